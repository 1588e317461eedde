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


// Package ai provides abstractions for AI services used in Newswire.
//
// This package defines the Embedder interface for generating text embeddings,
// along with a caching decorator. It follows the dependency inversion
// principle, allowing the filtering and dispatch logic to depend on
// abstractions rather than concrete implementations.
//
// # Implementation Packages
//
// The ai package includes two implementation sub-packages:
//
//   - ai/openai: Production implementation using OpenAI-compatible APIs
//   - ai/mock: Test doubles for unit testing without external dependencies
//
// # Embedding Cache
//
// CachingEmbedder decorates any Embedder with a bounded LRU cache keyed by
// model identifier and content hash. Repeated texts (topic lists are the
// common case) are embedded once; concurrent requests for the same text
// coalesce into a single upstream call.
//
//	inner, err := openai.NewEmbedder(config)
//	cached, err := ai.NewCachingEmbedder(inner, config.EmbeddingModel, config.CacheSize)
//	vec, err := cached.EmbedText(ctx, "sample text")
//
// # Constructor Return Type Pattern
//
// Public constructors (openai.NewEmbedder) return INTERFACE types to enforce
// abstraction and prevent accidental coupling to concrete implementations.
//
// Test utility constructors (mock.NewMockEmbedder) return CONCRETE types to
// enable test assertions and behavior injection via the mock's public
// methods (CallCount, WithEmbedTextFunc, Reset).
package ai
