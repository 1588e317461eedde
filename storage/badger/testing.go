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


package badger

import "github.com/poiesic/newswire/storage"

// Repositories bundles the repository set sharing one backend.
type Repositories struct {
	Sources  storage.SourceRepository
	Messages storage.MessageRepository
	Matches  storage.MatchRepository
	Forwards storage.ForwardTaskRepository
}

// NewRepositories creates all repositories over a shared backend.
func NewRepositories(backend *Backend) (*Repositories, error) {
	sources, err := NewSourceRepository(backend)
	if err != nil {
		return nil, err
	}

	messages, err := NewMessageRepository(backend)
	if err != nil {
		sources.Close()
		return nil, err
	}

	matches, err := NewMatchRepository(backend)
	if err != nil {
		messages.Close()
		sources.Close()
		return nil, err
	}

	forwards, err := NewForwardTaskRepository(backend)
	if err != nil {
		matches.Close()
		messages.Close()
		sources.Close()
		return nil, err
	}

	return &Repositories{
		Sources:  sources,
		Messages: messages,
		Matches:  matches,
		Forwards: forwards,
	}, nil
}

// Close releases every repository in the bundle.
func (r *Repositories) Close() error {
	var firstErr error
	for _, c := range []interface{ Close() error }{r.Forwards, r.Matches, r.Messages, r.Sources} {
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// NewMemoryRepositories creates an in-memory backend and repositories for
// testing. Caller must close both the repositories and the backend when done.
func NewMemoryRepositories() (*Repositories, *Backend, error) {
	backend, err := OpenBackend("", true)
	if err != nil {
		return nil, nil, err
	}

	repos, err := NewRepositories(backend)
	if err != nil {
		backend.Close()
		return nil, nil, err
	}

	return repos, backend, nil
}
