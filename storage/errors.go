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


package storage

import "errors"

// Lookup and query errors. Stores wrap them with the entity and id.
var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidQuery = errors.New("invalid query parameters")
)

// ErrStorageClosed is returned by every operation on a closed backend.
var ErrStorageClosed = errors.New("storage is closed")

// Codec errors from serialization.go.
var (
	ErrSerializationFailed = errors.New("record codec failed")
	ErrTruncatedData       = errors.New("record truncated")
)

// ErrInvalidBlobRef rejects empty blob keys and keys that escape the store root.
var ErrInvalidBlobRef = errors.New("invalid blob reference")
