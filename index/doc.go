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


// Package index abstracts the remote vector collection that stores chunk
// embeddings.
//
// The pipeline depends on the VectorIndex interface; the production
// implementation in index/qdrant speaks gRPC to a Qdrant Cloud collection,
// and index/mock provides an in-memory collection with cosine scoring for
// tests. Point IDs are deterministic per chunk, which makes upserts
// idempotent: a crashed run can be retried without producing duplicates.
package index
