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


package core

import (
	"fmt"
	"slices"
)

// ValidateChunk validates a Chunk according to domain rules.
//
// Validation rules:
//   - WorkspaceID and Text must not be empty
//   - EndOffset must be greater than StartOffset
//
// NOT validated (may be legitimately absent):
//   - Speaker and Timestamp (many transcripts carry no markup)
func ValidateChunk(chunk *Chunk) error {
	if chunk == nil {
		return fmt.Errorf("%w: chunk is nil", ErrInvalidChunk)
	}
	if chunk.WorkspaceID == "" {
		return fmt.Errorf("%w: %w", ErrInvalidChunk, ErrEmptyWorkspace)
	}
	if chunk.Text == "" {
		return fmt.Errorf("%w: %w", ErrInvalidChunk, ErrEmptyText)
	}
	if chunk.EndOffset <= chunk.StartOffset {
		return fmt.Errorf("%w: %w", ErrInvalidChunk, ErrInvalidOffsets)
	}
	return nil
}

// ValidateConcept validates a Concept according to domain rules.
//
// Validation rules:
//   - WorkspaceID and Name must not be empty
//   - Type must be one of the known concept types
//   - Confidence must be in [0,1]
func ValidateConcept(concept *Concept) error {
	if concept == nil {
		return fmt.Errorf("%w: concept is nil", ErrInvalidConcept)
	}
	if concept.WorkspaceID == "" {
		return fmt.Errorf("%w: %w", ErrInvalidConcept, ErrEmptyWorkspace)
	}
	if concept.Name == "" {
		return fmt.Errorf("%w: %w", ErrInvalidConcept, ErrEmptyConceptName)
	}
	if !slices.Contains(ConceptTypes, concept.Type) {
		return fmt.Errorf("%w: %w: %q", ErrInvalidConcept, ErrUnknownConceptType, concept.Type)
	}
	if concept.Confidence < 0 || concept.Confidence > 1 {
		return fmt.Errorf("%w: %w", ErrInvalidConcept, ErrConfidenceOutOfRange)
	}
	return nil
}

// ValidateRelationship validates a Relationship according to domain rules.
//
// Validation rules:
//   - WorkspaceID must not be empty
//   - Source and target ids must be set and distinct
//   - Type must be a known relationship type (CROSS_EPISODE included)
//   - Confidence must be in [0,1]
func ValidateRelationship(rel *Relationship) error {
	if rel == nil {
		return fmt.Errorf("%w: relationship is nil", ErrInvalidRelationship)
	}
	if rel.WorkspaceID == "" {
		return fmt.Errorf("%w: %w", ErrInvalidRelationship, ErrEmptyWorkspace)
	}
	if rel.SourceID == 0 || rel.TargetID == 0 {
		return fmt.Errorf("%w: endpoints must be set", ErrInvalidRelationship)
	}
	if rel.SourceID == rel.TargetID {
		return fmt.Errorf("%w: self-referencing edge", ErrInvalidRelationship)
	}
	if rel.Type != RelationCrossEpisode && !slices.Contains(RelationTypes, rel.Type) {
		return fmt.Errorf("%w: %w: %q", ErrInvalidRelationship, ErrUnknownRelationType, rel.Type)
	}
	if rel.Confidence < 0 || rel.Confidence > 1 {
		return fmt.Errorf("%w: %w", ErrInvalidRelationship, ErrConfidenceOutOfRange)
	}
	return nil
}

// ValidateQuote validates a Quote according to domain rules.
func ValidateQuote(quote *Quote) error {
	if quote == nil {
		return fmt.Errorf("%w: quote is nil", ErrInvalidQuote)
	}
	if quote.WorkspaceID == "" {
		return fmt.Errorf("%w: %w", ErrInvalidQuote, ErrEmptyWorkspace)
	}
	if quote.Text == "" {
		return fmt.Errorf("%w: %w", ErrInvalidQuote, ErrEmptyText)
	}
	return nil
}

// ValidateTurn validates a session Turn according to domain rules.
func ValidateTurn(turn *Turn) error {
	if turn == nil {
		return fmt.Errorf("%w: turn is nil", ErrInvalidTurn)
	}
	if turn.WorkspaceID == "" {
		return fmt.Errorf("%w: %w", ErrInvalidTurn, ErrEmptyWorkspace)
	}
	if turn.SessionID == "" {
		return fmt.Errorf("%w: session id cannot be empty", ErrInvalidTurn)
	}
	if turn.Content == "" {
		return fmt.Errorf("%w: %w", ErrInvalidTurn, ErrEmptyText)
	}
	if err := ValidateTurnRole(turn.Role); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidTurn, err)
	}
	return nil
}

// ValidateTurnRole validates that a TurnRole has a valid value.
func ValidateTurnRole(role TurnRole) error {
	switch role {
	case TurnRoleUser, TurnRoleAssistant:
		return nil
	default:
		return fmt.Errorf("%w: %d", ErrInvalidTurnRole, role)
	}
}
