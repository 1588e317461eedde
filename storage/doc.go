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


// Package storage defines the persistence abstractions for Newswire.
//
// This package declares repository interfaces for sources, messages, match
// records, and forward tasks, along with the MUS serializers used by
// concrete backends. The dispatch pipeline depends only on these
// interfaces; the storage/badger sub-package provides the BadgerDB
// implementation.
//
// # Repository Interfaces
//
//   - SourceRepository: get-or-create by chat id, active-source listing
//   - MessageRepository: idempotent insert keyed by (chat id, external id)
//   - MatchRepository: one match record per (message, rule) pair
//   - ForwardTaskRepository: pending/sent/failed task lifecycle
//
// # Correctness Contracts
//
// Two operations carry the pipeline's correctness guarantees and must be
// atomic at the backend level:
//
//   - SourceRepository.GetOrCreate: exactly one Source per chat id under
//     concurrent first-sight; a conflicting create falls back to reading
//     the winning row.
//   - MessageRepository.InsertIdempotent: exactly one Message per
//     (ChatID, ExternalMessageID) pair; a duplicate insert is a no-op
//     success returning the existing row.
//
// # Error Handling
//
// Repositories return ErrNotFound for missing records. Callers should use
// errors.Is for comparison since errors may be wrapped with context.
package storage
