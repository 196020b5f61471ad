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


package ingest

import "errors"

var (
	// ErrProviderRequired indicates the pipeline was built without an AI
	// provider.
	ErrProviderRequired = errors.New("ai provider is required")

	// ErrStoresRequired indicates the pipeline was built without its stores.
	ErrStoresRequired = errors.New("graph and vector stores are required")

	// ErrChunkerRequired indicates a nil chunker was supplied.
	ErrChunkerRequired = errors.New("chunker is required")

	// ErrNoTranscripts indicates Run was called with nothing to ingest.
	ErrNoTranscripts = errors.New("no transcripts to ingest")

	// ErrInvalidTranscript indicates a transcript without an episode id or
	// content.
	ErrInvalidTranscript = errors.New("invalid transcript")
)
