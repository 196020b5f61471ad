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


package graph

import "errors"

var (
	// ErrURIRequired indicates no Neo4j connection URI was configured.
	ErrURIRequired = errors.New("neo4j uri is required")

	// ErrUnknownEndpoint indicates a relationship references a concept name
	// that appears nowhere in the batch or the graph.
	ErrUnknownEndpoint = errors.New("relationship endpoint references unknown concept")

	// ErrInvalidLinkerConfig indicates cross-episode linker thresholds are
	// out of range.
	ErrInvalidLinkerConfig = errors.New("invalid linker configuration")

	// ErrInvalidRetryConfig indicates retry settings are out of range.
	ErrInvalidRetryConfig = errors.New("invalid retry configuration")
)
