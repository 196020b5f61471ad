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

	"github.com/poiesic/episteme/ai"
	"github.com/poiesic/episteme/core"
)

const (
	defaultStyle = "clear and direct"
	defaultTone  = "warm"

	// minGroundingScore is the advisory threshold below which an answer is
	// considered weakly grounded in the retrieved context.
	minGroundingScore = 0.3
)

const synthesisSystemTemplate = `You are a knowledge assistant answering questions about recorded talks and transcripts.
Answer ONLY from the provided context. If the context does not contain the answer, say so plainly.
Attribute quotes to their speakers when the context names them.
Write in a %s style with a %s tone.`

const strictSystemSuffix = `
IMPORTANT: Your previous draft drifted from the source material. Quote the context directly wherever possible and do not add anything the context does not state.`

// Synthesizer turns reranked context and session memory into an answer.
type Synthesizer struct {
	generator ai.Generator
	logger    *slog.Logger
}

// NewSynthesizer creates a synthesizer backed by the given generator.
func NewSynthesizer(generator ai.Generator) *Synthesizer {
	return &Synthesizer{
		generator: generator,
		logger:    slog.Default().With("component", "synthesizer"),
	}
}

// SynthesisInput is everything one answer is built from.
type SynthesisInput struct {
	Question string
	Context  []Candidate
	Memory   []core.Turn
	Style    string
	Tone     string
}

// Synthesize generates a complete answer. When the draft scores below the
// grounding threshold it is regenerated once with a stricter prompt; the
// better-grounded of the two is returned.
func (s *Synthesizer) Synthesize(ctx context.Context, input SynthesisInput) (string, error) {
	system := s.systemPrompt(input, false)
	user := s.userPrompt(input)

	answer, err := s.generator.Generate(ctx, system, user)
	if err != nil {
		return "", err
	}

	score := groundingScore(answer, input.Context)
	if score >= minGroundingScore || len(input.Context) == 0 {
		return answer, nil
	}

	s.logger.Info("answer weakly grounded, retrying with strict prompt", "score", score)
	strict, err := s.generator.Generate(ctx, s.systemPrompt(input, true), user)
	if err != nil {
		// The first draft still exists; the retry was advisory.
		return answer, nil
	}
	if groundingScore(strict, input.Context) > score {
		return strict, nil
	}
	return answer, nil
}

// SynthesizeStream streams fragments to fn as they are generated and
// returns the full answer. Fragments already reached the caller, so a low
// grounding score is only logged here.
func (s *Synthesizer) SynthesizeStream(ctx context.Context, input SynthesisInput, fn ai.StreamFunc) (string, error) {
	answer, err := s.generator.GenerateStream(ctx, s.systemPrompt(input, false), s.userPrompt(input), fn)
	if err != nil {
		return "", err
	}
	if score := groundingScore(answer, input.Context); score < minGroundingScore && len(input.Context) > 0 {
		s.logger.Warn("streamed answer weakly grounded", "score", score)
	}
	return answer, nil
}

func (s *Synthesizer) systemPrompt(input SynthesisInput, strict bool) string {
	style := input.Style
	if style == "" {
		style = defaultStyle
	}
	tone := input.Tone
	if tone == "" {
		tone = defaultTone
	}
	prompt := fmt.Sprintf(synthesisSystemTemplate, style, tone)
	if strict {
		prompt += strictSystemSuffix
	}
	return prompt
}

func (s *Synthesizer) userPrompt(input SynthesisInput) string {
	var b strings.Builder

	if len(input.Context) > 0 {
		b.WriteString("Context:\n")
		for i, cand := range input.Context {
			fmt.Fprintf(&b, "[%d]", i+1)
			if cand.Speaker != "" {
				fmt.Fprintf(&b, " %s", cand.Speaker)
			}
			if cand.EpisodeID != "" {
				fmt.Fprintf(&b, " (%s)", cand.EpisodeID)
			}
			b.WriteString(":\n")
			b.WriteString(cand.Text)
			b.WriteString("\n\n")
		}
	} else {
		b.WriteString("Context: none was retrieved.\n\n")
	}

	if len(input.Memory) > 0 {
		b.WriteString("Conversation so far:\n")
		for _, turn := range input.Memory {
			role := "User"
			if turn.Role == core.TurnRoleAssistant {
				role = "Assistant"
			}
			fmt.Fprintf(&b, "%s: %s\n", role, turn.Content)
		}
		b.WriteString("\n")
	}

	b.WriteString("Question: ")
	b.WriteString(input.Question)
	return b.String()
}

// groundingScore measures how much of the answer's vocabulary appears in
// the context: the fraction of distinct answer terms (4+ chars) found in
// any context text. A crude proxy, used only as an advisory signal.
func groundingScore(answer string, context []Candidate) float64 {
	terms := make(map[string]bool)
	for _, word := range strings.Fields(strings.ToLower(answer)) {
		word = strings.Trim(word, ".,!?;:\"'()[]{}")
		if len(word) >= 4 {
			terms[word] = true
		}
	}
	if len(terms) == 0 {
		return 1
	}

	var contextText strings.Builder
	for _, cand := range context {
		contextText.WriteString(strings.ToLower(cand.Text))
		contextText.WriteString(" ")
	}
	haystack := contextText.String()

	found := 0
	for term := range terms {
		if strings.Contains(haystack, term) {
			found++
		}
	}
	return float64(found) / float64(len(terms))
}
