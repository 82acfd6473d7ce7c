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


// Package ai provides the embedding abstraction used by the ingestion
// pipeline and the query tooling.
//
// The pipeline depends on the Embedder interface rather than a concrete
// client, so tests run without an external service and providers can be
// swapped. Two implementations ship with the repository:
//
//   - ai/openai: production implementation over OpenAI-compatible APIs
//   - ai/mock: deterministic test double
//
// Public constructors (openai.NewEmbedder) return the interface type to
// enforce abstraction; the mock constructor returns the concrete type so
// tests can inject behavior and assert call counts.
package ai
