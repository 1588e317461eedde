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


// Package filter implements the two-stage message filtering pipeline.
//
// The pipeline evaluates filter rules against message text. The keyword
// stage runs first as a cheap gate; the semantic stage embeds message and
// topic text and compares them with cosine similarity. Vectors are
// normalized to unit length at embedding time, so cosine similarity is
// computed as a plain dot product.
//
// # Components
//
//   - Matcher: scores text against topics via an ai.Embedder
//   - Pipeline: orchestrates keyword and semantic stages per rule
//   - LoadRules/ParseRules: YAML rule file loading
//
// # Usage
//
//	matcher := filter.NewMatcher(cachedEmbedder)
//	pipeline := filter.NewPipeline(matcher, filter.DefaultPipelineConfig())
//
//	rules, err := filter.LoadRules("rules.yaml")
//	matches, err := pipeline.Run(ctx, "breaking news about elections", rules)
package filter
