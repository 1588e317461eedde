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


// Package dispatch turns raw transport events into persisted, filtered
// messages.
//
// The flow per event: Normalize converts the transport payload into an
// IncomingMessage, the Dispatcher admits it against the active source set
// (SourceCache snapshot first, storage as fallback), persists it exactly
// once, runs the filter pipeline and records MatchRecords and ForwardTasks.
// The ForwardWorker later drains pending tasks to a Forwarder collaborator.
//
// HandleEvent is the boundary with the transport layer: it swallows panics
// and errors so one bad event can never take down the event loop.
package dispatch
