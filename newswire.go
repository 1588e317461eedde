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


package newswire

import (
	"context"
	"log/slog"
	"time"

	"github.com/poiesic/newswire/ai"
	"github.com/poiesic/newswire/ai/openai"
	"github.com/poiesic/newswire/core"
	"github.com/poiesic/newswire/dispatch"
	"github.com/poiesic/newswire/filter"
	"github.com/poiesic/newswire/storage"
	"github.com/poiesic/newswire/storage/badger"
)

// Monitor is the assembled message monitor: storage, embedding, filtering and
// dispatch wired together behind one handle. Transports feed it raw events
// via HandleEvent; everything downstream of that call is owned by the
// Monitor.
type Monitor struct {
	backend    *badger.Backend
	repos      *badger.Repositories
	embedder   ai.Embedder
	pipeline   *filter.Pipeline
	cache      *dispatch.SourceCache
	dispatcher *dispatch.Dispatcher
	worker     *dispatch.ForwardWorker
	logger     *slog.Logger
}

// MonitorOption configures a Monitor.
type MonitorOption func(*monitorOptions)

type monitorOptions struct {
	aiConfig        *ai.Config
	embedder        ai.Embedder
	forwarder       dispatch.Forwarder
	rules           []core.FilterRule
	rulesPath       string
	pipelineConfig  filter.Config
	refreshInterval time.Duration
	drainInterval   time.Duration
	inMemory        bool
}

// WithAIConfig sets the embedding service configuration.
func WithAIConfig(cfg *ai.Config) MonitorOption {
	return func(o *monitorOptions) {
		o.aiConfig = cfg
	}
}

// WithEmbedder replaces the OpenAI-compatible embedder, typically with a test
// double. The embedder is still wrapped by the caching layer.
func WithEmbedder(embedder ai.Embedder) MonitorOption {
	return func(o *monitorOptions) {
		o.embedder = embedder
	}
}

// WithForwarder installs the collaborator that delivers matched messages.
// Without one, forward tasks are recorded and stay pending.
func WithForwarder(f dispatch.Forwarder) MonitorOption {
	return func(o *monitorOptions) {
		o.forwarder = f
	}
}

// WithRules sets the filter rule set directly.
func WithRules(rules []core.FilterRule) MonitorOption {
	return func(o *monitorOptions) {
		o.rules = rules
	}
}

// WithRulesFile loads the filter rule set from a YAML file.
func WithRulesFile(path string) MonitorOption {
	return func(o *monitorOptions) {
		o.rulesPath = path
	}
}

// WithPipelineConfig overrides the filter pipeline configuration.
func WithPipelineConfig(cfg filter.Config) MonitorOption {
	return func(o *monitorOptions) {
		o.pipelineConfig = cfg
	}
}

// WithRefreshInterval sets how often the active source snapshot reloads.
func WithRefreshInterval(interval time.Duration) MonitorOption {
	return func(o *monitorOptions) {
		o.refreshInterval = interval
	}
}

// WithDrainInterval sets how often pending forward tasks are drained.
func WithDrainInterval(interval time.Duration) MonitorOption {
	return func(o *monitorOptions) {
		o.drainInterval = interval
	}
}

// WithInMemory opens the storage backend without a data directory. Intended
// for tests.
func WithInMemory() MonitorOption {
	return func(o *monitorOptions) {
		o.inMemory = true
	}
}

// NewMonitor opens storage at filePath and assembles the full pipeline.
func NewMonitor(filePath string, opts ...MonitorOption) (*Monitor, error) {
	options := &monitorOptions{
		aiConfig:       ai.DefaultConfig(),
		pipelineConfig: filter.DefaultPipelineConfig(),
	}
	for _, opt := range opts {
		opt(options)
	}

	backend, err := badger.OpenBackend(filePath, options.inMemory)
	if err != nil {
		return nil, err
	}

	repos, err := badger.NewRepositories(backend)
	if err != nil {
		backend.Close()
		return nil, err
	}

	inner := options.embedder
	if inner == nil {
		inner, err = openai.NewEmbedder(options.aiConfig)
		if err != nil {
			repos.Close()
			backend.Close()
			return nil, err
		}
	}
	embedder, err := ai.NewCachingEmbedder(inner, options.aiConfig.EmbeddingModel, options.aiConfig.CacheSize)
	if err != nil {
		repos.Close()
		backend.Close()
		return nil, err
	}

	rules := options.rules
	if options.rulesPath != "" {
		rules, err = filter.LoadRules(options.rulesPath)
		if err != nil {
			repos.Close()
			backend.Close()
			return nil, err
		}
	}

	pipeline := filter.NewPipeline(filter.NewMatcher(embedder), options.pipelineConfig)
	cache := dispatch.NewSourceCache(repos.Sources, options.refreshInterval)

	dispatcher, err := dispatch.NewDispatcher(dispatch.Repositories{
		Sources:  repos.Sources,
		Messages: repos.Messages,
		Matches:  repos.Matches,
		Forwards: repos.Forwards,
	}, pipeline, rules,
		dispatch.WithSourceCache(cache),
		dispatch.WithEmbedTimeout(options.aiConfig.EmbedTimeout),
	)
	if err != nil {
		repos.Close()
		backend.Close()
		return nil, err
	}

	m := &Monitor{
		backend:    backend,
		repos:      repos,
		embedder:   embedder,
		pipeline:   pipeline,
		cache:      cache,
		dispatcher: dispatcher,
		logger:     slog.Default(),
	}

	if options.forwarder != nil {
		m.worker = dispatch.NewForwardWorker(repos.Forwards, repos.Messages,
			options.forwarder, options.drainInterval, 0)
	}

	return m, nil
}

// Start loads the source snapshot and begins the background refresh and, when
// a forwarder is configured, the forward task drain.
func (m *Monitor) Start(ctx context.Context) error {
	if err := m.cache.Start(ctx); err != nil {
		return err
	}
	if m.worker != nil {
		m.worker.Start(ctx)
	}
	return nil
}

// HandleEvent feeds one raw event into the dispatcher. It never returns an
// error; failures are contained per message.
func (m *Monitor) HandleEvent(ctx context.Context, ev *dispatch.RawEvent) {
	m.dispatcher.HandleEvent(ctx, ev)
}

// Process runs one event synchronously and returns the outcome.
func (m *Monitor) Process(ctx context.Context, ev *dispatch.RawEvent) (*dispatch.Result, error) {
	return m.dispatcher.Process(ctx, ev)
}

// SetRules replaces the filter rule set on the running dispatcher.
func (m *Monitor) SetRules(rules []core.FilterRule) {
	m.dispatcher.SetRules(rules)
}

// ReloadRules reloads the rule set from a YAML file.
func (m *Monitor) ReloadRules(path string) error {
	rules, err := filter.LoadRules(path)
	if err != nil {
		return err
	}
	m.dispatcher.SetRules(rules)
	m.logger.Info("filter rules reloaded", "path", path, "rules", len(rules))
	return nil
}

// RefreshSources forces a source snapshot reload, bypassing the ticker.
func (m *Monitor) RefreshSources(ctx context.Context) error {
	return m.cache.Refresh(ctx)
}

func (m *Monitor) SourceRepository() storage.SourceRepository {
	return m.repos.Sources
}

func (m *Monitor) MessageRepository() storage.MessageRepository {
	return m.repos.Messages
}

func (m *Monitor) MatchRepository() storage.MatchRepository {
	return m.repos.Matches
}

func (m *Monitor) ForwardTaskRepository() storage.ForwardTaskRepository {
	return m.repos.Forwards
}

// Close stops background work, drains in-flight events and releases storage.
func (m *Monitor) Close() error {
	if m.worker != nil {
		m.worker.Stop()
	}
	m.cache.Stop()

	if err := m.dispatcher.Close(); err != nil {
		m.logger.Error("error closing dispatcher", "err", err)
	}

	if err := m.repos.Close(); err != nil {
		m.logger.Error("error closing repositories", "err", err)
		return err
	}

	if err := m.backend.Close(); err != nil {
		m.logger.Error("error closing backend storage", "err", err)
		return err
	}
	return nil
}
