// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package query

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/poiesic/episteme/ai"
	"github.com/poiesic/episteme/core"
	"github.com/poiesic/episteme/session"
	"github.com/poiesic/episteme/vector"
)

const defaultMemoryWindow = 10

const (
	greetingAnswer = "Hello! Ask me anything about the material in this workspace " +
		"and I will answer from what was actually said."
	outOfScopeAnswer = "That is outside the material I know about. " +
		"I can only answer questions grounded in this workspace's transcripts."
)

// Request is one question against a workspace.
type Request struct {
	WorkspaceID string
	Question    string
	// SessionID, when set, threads the question into a conversation: recent
	// turns feed the prompt and both question and answer are appended.
	SessionID string
	Style     string
	Tone      string
}

// Source is one piece of context the answer drew from.
type Source struct {
	Kind       string // "chunk" or "concept"
	Key        string
	EpisodeID  string
	SourcePath string
	Speaker    string
	Snippet    string
}

// Answer is a complete answer with its retrieval trail.
type Answer struct {
	Text       string
	SessionID  string
	Intent     Intent
	Strategy   Strategy
	Sources    []Source
	VectorHits int
	GraphHits  int
	// Degraded reports that at least one retrieval path failed and the
	// answer was built from partial context.
	Degraded bool
}

// Engine answers questions: plan, retrieve, rerank, synthesize.
type Engine struct {
	provider     ai.AIProvider
	planner      *Planner
	retriever    *Retriever
	synthesizer  *Synthesizer
	sessions     *session.Store
	rerankConfig RerankConfig
	memoryWindow int
	logger       *slog.Logger
}

// EngineOption configures an Engine.
type EngineOption func(*Engine) error

// WithSessionStore enables conversation memory.
func WithSessionStore(sessions *session.Store) EngineOption {
	return func(e *Engine) error {
		e.sessions = sessions
		return nil
	}
}

// WithRerankConfig overrides the reranker tuning.
func WithRerankConfig(cfg RerankConfig) EngineOption {
	return func(e *Engine) error {
		e.rerankConfig = cfg
		return nil
	}
}

// WithMemoryWindow sets how many recent turns feed the prompt.
func WithMemoryWindow(n int) EngineOption {
	return func(e *Engine) error {
		if n < 0 {
			n = 0
		}
		e.memoryWindow = n
		return nil
	}
}

// NewEngine creates a query engine.
func NewEngine(provider ai.AIProvider, vectors vector.Store, searcher GraphSearcher, opts ...EngineOption) (*Engine, error) {
	if provider == nil {
		return nil, ErrProviderRequired
	}
	if vectors == nil || searcher == nil {
		return nil, ErrStoresRequired
	}

	e := &Engine{
		provider:     provider,
		planner:      NewPlanner(provider.Classifier()),
		retriever:    NewRetriever(vectors, searcher, provider.Embedder()),
		synthesizer:  NewSynthesizer(provider.Generator()),
		rerankConfig: DefaultRerankConfig(),
		memoryWindow: defaultMemoryWindow,
		logger:       slog.Default().With("component", "query-engine"),
	}
	for _, opt := range opts {
		if err := opt(e); err != nil {
			return nil, err
		}
	}
	return e, nil
}

// Ask answers a question and returns the complete answer.
func (e *Engine) Ask(ctx context.Context, req Request) (*Answer, error) {
	return e.ask(ctx, req, nil)
}

// AskStream answers a question, delivering text fragments to fn as they
// are generated. The returned answer carries the full text and the
// retrieval trail; it is only valid once AskStream returns.
func (e *Engine) AskStream(ctx context.Context, req Request, fn ai.StreamFunc) (*Answer, error) {
	if fn == nil {
		return e.ask(ctx, req, nil)
	}
	return e.ask(ctx, req, fn)
}

func (e *Engine) ask(ctx context.Context, req Request, fn ai.StreamFunc) (*Answer, error) {
	if strings.TrimSpace(req.WorkspaceID) == "" {
		return nil, ErrEmptyWorkspace
	}
	if strings.TrimSpace(req.Question) == "" {
		return nil, ErrEmptyQuestion
	}

	plan := e.planner.Plan(ctx, req.Question)
	e.logger.Debug("planned", "intent", string(plan.Intent), "strategy", string(plan.Strategy))

	// Intents answered without retrieval.
	switch plan.Intent {
	case IntentGreeting:
		return e.finishDirect(ctx, req, plan, greetingAnswer, fn)
	case IntentOutOfScope:
		return e.finishDirect(ctx, req, plan, outOfScopeAnswer, fn)
	case IntentSystemInfo:
		return e.finishDirect(ctx, req, plan, e.systemInfo(ctx, req.WorkspaceID), fn)
	}

	retrieval := e.retriever.Retrieve(ctx, req.WorkspaceID, req.Question, plan.Strategy)
	candidates := Rerank(retrieval, e.rerankConfig)

	var memory []core.Turn
	if e.sessions != nil && req.SessionID != "" {
		var err error
		memory, err = e.sessions.GetRecent(ctx, req.WorkspaceID, req.SessionID, e.memoryWindow)
		if err != nil {
			e.logger.Warn("failed to load session memory", "err", err)
		}
	}

	input := SynthesisInput{
		Question: req.Question,
		Context:  candidates,
		Memory:   memory,
		Style:    req.Style,
		Tone:     req.Tone,
	}

	var text string
	var err error
	if fn != nil {
		text, err = e.synthesizer.SynthesizeStream(ctx, input, fn)
	} else {
		text, err = e.synthesizer.Synthesize(ctx, input)
	}
	if err != nil {
		return nil, fmt.Errorf("synthesis failed: %w", err)
	}

	answer := &Answer{
		Text:       text,
		SessionID:  req.SessionID,
		Intent:     plan.Intent,
		Strategy:   plan.Strategy,
		Sources:    sourcesOf(candidates),
		VectorHits: len(retrieval.VectorMatches),
		GraphHits:  len(retrieval.GraphHits),
		Degraded:   retrieval.VectorDegraded || retrieval.GraphDegraded,
	}
	e.remember(ctx, req, answer.Text)
	return answer, nil
}

// finishDirect ships a canned answer, still streaming and remembering it so
// the caller sees one uniform behavior.
func (e *Engine) finishDirect(ctx context.Context, req Request, plan Plan, text string, fn ai.StreamFunc) (*Answer, error) {
	if fn != nil {
		if err := fn(ctx, []byte(text)); err != nil {
			return nil, err
		}
	}
	answer := &Answer{
		Text:      text,
		SessionID: req.SessionID,
		Intent:    plan.Intent,
		Strategy:  plan.Strategy,
	}
	e.remember(ctx, req, text)
	return answer, nil
}

// systemInfo describes what the workspace holds.
func (e *Engine) systemInfo(ctx context.Context, workspaceID string) string {
	count, err := e.retriever.vectors.Count(ctx, workspaceID)
	if err != nil {
		e.logger.Warn("failed to count vectors", "err", err)
		return "This workspace is a knowledge base built from ingested transcripts."
	}
	return fmt.Sprintf(
		"This workspace holds %d indexed passages. Ask about their content and I will answer with sources.",
		count)
}

// remember appends the question and answer to the session, best effort.
func (e *Engine) remember(ctx context.Context, req Request, answerText string) {
	if e.sessions == nil || req.SessionID == "" {
		return
	}
	turns := []core.Turn{
		{WorkspaceID: req.WorkspaceID, SessionID: req.SessionID, Role: core.TurnRoleUser, Content: req.Question},
		{WorkspaceID: req.WorkspaceID, SessionID: req.SessionID, Role: core.TurnRoleAssistant, Content: answerText},
	}
	for _, turn := range turns {
		if _, err := e.sessions.Append(ctx, turn); err != nil {
			e.logger.Warn("failed to append session turn", "err", err)
			return
		}
	}
}

const snippetLimit = 160

func sourcesOf(candidates []Candidate) []Source {
	sources := make([]Source, len(candidates))
	for i, c := range candidates {
		sources[i] = Source{
			Kind:       c.Kind,
			Key:        c.Key,
			EpisodeID:  c.EpisodeID,
			SourcePath: c.SourcePath,
			Speaker:    c.Speaker,
			Snippet:    snippetOf(c.Text),
		}
	}
	return sources
}

// snippetOf truncates text for the source trail, cutting on a rune
// boundary so a multi-byte character is never split.
func snippetOf(text string) string {
	if len(text) <= snippetLimit {
		return text
	}
	cut := snippetLimit
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return text[:cut] + "…"
}
