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

import "errors"

// Domain validation errors
var (
	// ErrInvalidChunk indicates a Chunk failed validation.
	ErrInvalidChunk = errors.New("invalid chunk")

	// ErrInvalidConcept indicates a Concept failed validation.
	ErrInvalidConcept = errors.New("invalid concept")

	// ErrInvalidRelationship indicates a Relationship failed validation.
	ErrInvalidRelationship = errors.New("invalid relationship")

	// ErrInvalidQuote indicates a Quote failed validation.
	ErrInvalidQuote = errors.New("invalid quote")

	// ErrInvalidTurn indicates a session Turn failed validation.
	ErrInvalidTurn = errors.New("invalid turn")

	// ErrEmptyWorkspace indicates a missing workspace id.
	ErrEmptyWorkspace = errors.New("workspace id cannot be empty")

	// ErrEmptyText indicates an empty text field.
	ErrEmptyText = errors.New("text cannot be empty")

	// ErrEmptyConceptName indicates the concept Name field is empty.
	ErrEmptyConceptName = errors.New("concept name cannot be empty")

	// ErrUnknownConceptType indicates a concept type outside the known set.
	ErrUnknownConceptType = errors.New("unknown concept type")

	// ErrUnknownRelationType indicates a relationship type outside the known set.
	ErrUnknownRelationType = errors.New("unknown relationship type")

	// ErrConfidenceOutOfRange indicates a confidence value outside [0,1].
	ErrConfidenceOutOfRange = errors.New("confidence must be in [0,1]")

	// ErrInvalidOffsets indicates end offset is not after start offset.
	ErrInvalidOffsets = errors.New("end offset must be greater than start offset")

	// ErrInvalidTurnRole indicates an invalid TurnRole value.
	ErrInvalidTurnRole = errors.New("invalid turn role")
)
