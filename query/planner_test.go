package query

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/poiesic/episteme/ai"
	"github.com/poiesic/episteme/ai/mock"
)

func classifierReturning(intent, strategy string, confidence float64) *mock.MockClassifier {
	return &mock.MockClassifier{
		ClassifyQuestionFunc: func(ctx context.Context, question string) (*ai.Classification, error) {
			return &ai.Classification{Intent: intent, Strategy: strategy, Confidence: confidence}, nil
		},
	}
}

func TestPlanMapsIntents(t *testing.T) {
	tests := []struct {
		name         string
		intent       string
		strategy     string
		confidence   float64
		wantIntent   Intent
		wantStrategy Strategy
	}{
		{"knowledge hybrid", "knowledge", "hybrid", 0.9, IntentKnowledge, StrategyHybrid},
		{"knowledge vector", "knowledge", "vector", 0.9, IntentKnowledge, StrategyVector},
		{"greeting forces none", "greeting", "hybrid", 0.9, IntentGreeting, StrategyNone},
		{"out of scope forces none", "out_of_scope", "vector", 0.9, IntentOutOfScope, StrategyNone},
		{"system info forces none", "system_info", "graph", 0.9, IntentSystemInfo, StrategyNone},
		{"knowledge none becomes hybrid", "knowledge", "none", 0.9, IntentKnowledge, StrategyHybrid},
		{"memory keeps strategy", "memory", "vector", 0.9, IntentMemory, StrategyVector},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewPlanner(classifierReturning(tt.intent, tt.strategy, tt.confidence))
			plan := p.Plan(context.Background(), "some question")
			assert.Equal(t, tt.wantIntent, plan.Intent)
			assert.Equal(t, tt.wantStrategy, plan.Strategy)
		})
	}
}

func TestPlanFallsBackToHybrid(t *testing.T) {
	// Classifier error.
	p := NewPlanner(&mock.MockClassifier{
		ClassifyQuestionFunc: func(ctx context.Context, question string) (*ai.Classification, error) {
			return nil, errors.New("model unavailable")
		},
	})
	assert.Equal(t, fallbackPlan(), p.Plan(context.Background(), "q"))

	// Low confidence.
	p = NewPlanner(classifierReturning("knowledge", "vector", 0.2))
	assert.Equal(t, fallbackPlan(), p.Plan(context.Background(), "q"))

	// Unknown intent label.
	p = NewPlanner(classifierReturning("weather_report", "vector", 0.9))
	assert.Equal(t, fallbackPlan(), p.Plan(context.Background(), "q"))

	// Unknown strategy label degrades to hybrid but keeps the intent.
	p = NewPlanner(classifierReturning("knowledge", "quantum", 0.9))
	plan := p.Plan(context.Background(), "q")
	assert.Equal(t, IntentKnowledge, plan.Intent)
	assert.Equal(t, StrategyHybrid, plan.Strategy)
}
