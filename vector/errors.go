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


package vector

import "errors"

var (
	// ErrEmbedderRequired indicates no embedder was provided to the indexer.
	ErrEmbedderRequired = errors.New("embedder is required")

	// ErrStoreRequired indicates no vector store was provided.
	ErrStoreRequired = errors.New("vector store is required")

	// ErrDimensionMismatch indicates an embedding batch returned vectors of
	// inconsistent length, or fewer vectors than inputs.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrInvalidBatchSize indicates a non-positive batch size.
	ErrInvalidBatchSize = errors.New("batch size must be positive")
)
