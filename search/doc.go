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
// Package search retrieves stored chunks for a natural-language query.
//
// The Engine supports two retrieval modes:
//   - Vector search: the query is embedded, nearest-neighbor candidates are
//     fetched from the chunk store and rescored with exact cosine similarity
//   - Hybrid search: vector and keyword searches run concurrently and their
//     results are fused by a weighted sum of vector score and reciprocal keyword rank
//
// Every executed query is written to the query history when a history store is
// configured. Results carry their owning document.
package search
