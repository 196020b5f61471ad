package query

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/episteme/ai/mock"
	"github.com/poiesic/episteme/core"
)

func TestUserPromptLayout(t *testing.T) {
	s := NewSynthesizer(mock.NewMockGenerator())
	prompt := s.userPrompt(SynthesisInput{
		Question: "What was said about patience?",
		Context: []Candidate{
			{Text: "Patience is the practice.", Speaker: "Teacher A", EpisodeID: "ep-1"},
		},
		Memory: []core.Turn{
			{Role: core.TurnRoleUser, Content: "earlier question"},
			{Role: core.TurnRoleAssistant, Content: "earlier answer"},
		},
	})

	assert.Contains(t, prompt, "[1] Teacher A (ep-1):")
	assert.Contains(t, prompt, "Patience is the practice.")
	assert.Contains(t, prompt, "User: earlier question")
	assert.Contains(t, prompt, "Assistant: earlier answer")
	assert.True(t, strings.HasSuffix(prompt, "Question: What was said about patience?"))
}

func TestSystemPromptStyleAndTone(t *testing.T) {
	s := NewSynthesizer(mock.NewMockGenerator())

	prompt := s.systemPrompt(SynthesisInput{Style: "scholarly", Tone: "neutral"}, false)
	assert.Contains(t, prompt, "scholarly style")
	assert.Contains(t, prompt, "neutral tone")

	defaults := s.systemPrompt(SynthesisInput{}, false)
	assert.Contains(t, defaults, defaultStyle)
	assert.Contains(t, defaults, defaultTone)

	strict := s.systemPrompt(SynthesisInput{}, true)
	assert.Contains(t, strict, "previous draft drifted")
}

func TestSynthesizeRetriesWhenWeaklyGrounded(t *testing.T) {
	generator := &mock.MockGenerator{
		GenerateFunc: func(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
			if strings.Contains(systemPrompt, "previous draft drifted") {
				return "Patience is the practice, the context says.", nil
			}
			return "Something entirely unrelated happened elsewhere.", nil
		},
	}
	s := NewSynthesizer(generator)

	answer, err := s.Synthesize(context.Background(), SynthesisInput{
		Question: "What about patience?",
		Context:  []Candidate{{Text: "Patience is the practice, the context says."}},
	})
	require.NoError(t, err)
	assert.Contains(t, answer, "Patience is the practice")
	assert.Equal(t, 2, generator.CallCount(), "weakly grounded draft triggers one strict retry")
}

func TestSynthesizeKeepsWellGroundedDraft(t *testing.T) {
	generator := &mock.MockGenerator{Response: "Patience is the practice."}
	s := NewSynthesizer(generator)

	answer, err := s.Synthesize(context.Background(), SynthesisInput{
		Question: "What about patience?",
		Context:  []Candidate{{Text: "Patience is the practice."}},
	})
	require.NoError(t, err)
	assert.Equal(t, "Patience is the practice.", answer)
	assert.Equal(t, 1, generator.CallCount())
}
