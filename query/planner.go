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
	"log/slog"

	"github.com/poiesic/episteme/ai"
)

// Intent is what kind of question the user asked.
type Intent string

const (
	IntentGreeting   Intent = "greeting"
	IntentOutOfScope Intent = "out_of_scope"
	IntentKnowledge  Intent = "knowledge"
	IntentMemory     Intent = "memory"
	IntentSystemInfo Intent = "system_info"
)

// Strategy is how retrieval should run for a question.
type Strategy string

const (
	StrategyNone   Strategy = "none"
	StrategyVector Strategy = "vector"
	StrategyGraph  Strategy = "graph"
	StrategyHybrid Strategy = "hybrid"
)

// minPlanConfidence is the classification confidence below which the
// planner distrusts the model and falls back to hybrid retrieval.
const minPlanConfidence = 0.5

// Plan is the planner's decision for one question.
type Plan struct {
	Intent   Intent
	Strategy Strategy
}

// Planner decides retrieval strategy per question. Classification is best
// effort: any model failure, unknown label or low confidence degrades to
// knowledge/hybrid, never to an error. A wrong plan costs latency; a failed
// plan would cost the answer.
type Planner struct {
	classifier ai.Classifier
	logger     *slog.Logger
}

// NewPlanner creates a planner backed by the given classifier.
func NewPlanner(classifier ai.Classifier) *Planner {
	return &Planner{
		classifier: classifier,
		logger:     slog.Default().With("component", "planner"),
	}
}

// fallbackPlan is used whenever classification cannot be trusted.
func fallbackPlan() Plan {
	return Plan{Intent: IntentKnowledge, Strategy: StrategyHybrid}
}

// Plan classifies the question and maps it to a retrieval strategy.
func (p *Planner) Plan(ctx context.Context, question string) Plan {
	classification, err := p.classifier.ClassifyQuestion(ctx, question)
	if err != nil {
		p.logger.Warn("classification failed, using hybrid", "err", err)
		return fallbackPlan()
	}
	if classification.Confidence < minPlanConfidence {
		p.logger.Debug("classification confidence too low, using hybrid",
			"confidence", classification.Confidence)
		return fallbackPlan()
	}

	intent, ok := parseIntent(classification.Intent)
	if !ok {
		p.logger.Warn("unknown intent label, using hybrid", "intent", classification.Intent)
		return fallbackPlan()
	}

	strategy, ok := parseStrategy(classification.Strategy)
	if !ok {
		strategy = StrategyHybrid
	}

	// Intents that need no retrieval always run with StrategyNone no
	// matter what the model suggested.
	switch intent {
	case IntentGreeting, IntentOutOfScope, IntentSystemInfo:
		strategy = StrategyNone
	case IntentMemory:
		// Memory questions are answered from session turns plus whatever
		// retrieval the model picked.
	case IntentKnowledge:
		if strategy == StrategyNone {
			strategy = StrategyHybrid
		}
	}

	return Plan{Intent: intent, Strategy: strategy}
}

func parseIntent(label string) (Intent, bool) {
	switch Intent(label) {
	case IntentGreeting, IntentOutOfScope, IntentKnowledge, IntentMemory, IntentSystemInfo:
		return Intent(label), true
	}
	return "", false
}

func parseStrategy(label string) (Strategy, bool) {
	switch Strategy(label) {
	case StrategyNone, StrategyVector, StrategyGraph, StrategyHybrid:
		return Strategy(label), true
	}
	return "", false
}
