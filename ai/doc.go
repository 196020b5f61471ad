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


// Package ai provides abstractions for AI services used in Episteme.
//
// This package defines interfaces for AI operations including text embeddings,
// structured knowledge extraction, question classification, and answer
// generation. It follows the dependency inversion principle, allowing the
// pipeline and query engine to depend on abstractions rather than concrete
// implementations.
//
// # Design Principles
//
// The package is designed around four key interfaces:
//
//   - Embedder: Generates vector embeddings from text
//   - KnowledgeExtractor: Extracts concepts, relationships, and quotes from chunk batches
//   - Classifier: Classifies a question's intent and retrieval strategy
//   - Generator: Produces answer text, optionally as a fragment stream
//
// AIProvider aggregates all four for convenient initialization.
//
// # Implementation Packages
//
// The ai package includes two implementation sub-packages:
//
//   - ai/openai: Production implementation using OpenAI-compatible APIs
//   - ai/mock: Test doubles for unit testing without external dependencies
//
// Public constructors (openai.NewProvider etc.) return INTERFACE types to
// enforce abstraction. Mock constructors return CONCRETE types to enable
// test assertions and behavior injection.
//
// # Usage Example
//
//	config := ai.DefaultConfig()
//	provider, err := openai.NewProvider(config)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer provider.Close()
//
//	vec, err := provider.Embedder().EmbedText(ctx, "meditation improves focus")
//	ext, err := provider.KnowledgeExtractor().ExtractKnowledge(ctx, chunkTexts)
package ai
