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


package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"

	"github.com/poiesic/newswire/core"
	"github.com/poiesic/newswire/filter"
	"github.com/poiesic/newswire/storage"
)

// Repositories bundles the storage dependencies of a Dispatcher.
type Repositories struct {
	Sources  storage.SourceRepository
	Messages storage.MessageRepository
	Matches  storage.MatchRepository
	Forwards storage.ForwardTaskRepository
}

// Result describes what one event produced. It exists for synchronous
// processing and tests; the async path discards it.
type Result struct {
	// Dropped is set when the event was rejected at admission.
	Dropped    bool
	DropReason string

	// Duplicate is set when the message had already been persisted; filtering
	// is skipped for redeliveries.
	Duplicate bool

	Message *core.Message
	Matches []filter.RuleMatch
	Records []*core.MatchRecord
	Tasks   []*core.ForwardTask
}

// Dispatcher is the event-handling core: it admits raw events against the
// active source set, persists them exactly once, runs the filter pipeline and
// records matches and forward tasks.
//
// The async entry point HandleEvent never returns an error; every failure is
// contained to its own message and logged. Process is the synchronous
// equivalent used by tests and callers who want the outcome.
type Dispatcher struct {
	repos        Repositories
	pipeline     *filter.Pipeline
	cache        *SourceCache
	pool         *ants.Pool
	embedTimeout time.Duration
	logger       *slog.Logger

	mu     sync.RWMutex
	rules  []core.FilterRule
	closed bool
	wg     sync.WaitGroup
}

// Option configures a Dispatcher.
type Option func(*Dispatcher) error

// WithPoolSize sets the worker pool size for concurrent event processing.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(d *Dispatcher) error {
		if size < 1 {
			return fmt.Errorf("pool size must be at least 1, got %d", size)
		}
		if d.pool != nil {
			d.pool.Release()
		}
		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		d.pool = pool
		return nil
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Dispatcher) error {
		d.logger = logger
		return nil
	}
}

// WithSourceCache installs an admission cache so the hot path avoids a
// storage read per event. Without one, admission always reads storage.
func WithSourceCache(cache *SourceCache) Option {
	return func(d *Dispatcher) error {
		d.cache = cache
		return nil
	}
}

// WithEmbedTimeout bounds the filter pipeline run per message. Zero disables
// the bound. Default is 30 seconds.
func WithEmbedTimeout(timeout time.Duration) Option {
	return func(d *Dispatcher) error {
		d.embedTimeout = timeout
		return nil
	}
}

// NewDispatcher creates a Dispatcher over the given repositories, filter
// pipeline and rule set.
func NewDispatcher(repos Repositories, pipeline *filter.Pipeline, rules []core.FilterRule, opts ...Option) (*Dispatcher, error) {
	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	d := &Dispatcher{
		repos:        repos,
		pipeline:     pipeline,
		pool:         pool,
		rules:        rules,
		embedTimeout: 30 * time.Second,
		logger:       slog.Default().With("component", "dispatcher"),
	}

	for _, opt := range opts {
		if err := opt(d); err != nil {
			d.pool.Release()
			return nil, err
		}
	}

	return d, nil
}

// SetRules replaces the rule set. Safe to call while events are in flight;
// messages already past the rule snapshot keep the old set.
func (d *Dispatcher) SetRules(rules []core.FilterRule) {
	d.mu.Lock()
	d.rules = rules
	d.mu.Unlock()
}

// Rules returns the current rule set.
func (d *Dispatcher) Rules() []core.FilterRule {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.rules
}

// HandleEvent processes one raw event asynchronously. It never panics and
// never reports an error to the caller; failures are logged and confined to
// the event that caused them.
func (d *Dispatcher) HandleEvent(ctx context.Context, ev *RawEvent) {
	// Every boundary log names the triggering event so a failure can be
	// traced back to its message.
	logger := d.logger
	if ev != nil {
		logger = logger.With("chat_id", ev.ChatID, "message_id", ev.MessageID)
	}

	d.mu.RLock()
	closed := d.closed
	if !closed {
		d.wg.Add(1)
	}
	d.mu.RUnlock()
	if closed {
		logger.Warn("event dropped", "err", ErrDispatcherClosed)
		return
	}

	task := func() {
		defer d.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				logger.Error("panic while processing event", "panic", r)
			}
		}()
		if _, err := d.Process(ctx, ev); err != nil {
			logger.Error("event processing failed", "err", err)
		}
	}

	if err := d.pool.Submit(task); err != nil {
		// Pool unavailable, process inline rather than losing the event.
		logger.Warn("worker pool rejected event, processing inline", "err", err)
		task()
	}
}

// Process runs the full dispatch path for one event and returns the outcome.
func (d *Dispatcher) Process(ctx context.Context, ev *RawEvent) (*Result, error) {
	incoming, err := Normalize(ev)
	if err != nil {
		return nil, err
	}

	logger := d.logger.With(
		"trace_id", uuid.NewString(),
		"chat_id", incoming.ChatID,
		"message_id", incoming.ExternalMessageID,
	)

	admitted, reason, err := d.admit(ctx, incoming.ChatID)
	if err != nil {
		return nil, fmt.Errorf("admission check failed: %w", err)
	}
	if !admitted {
		logger.Debug("event dropped at admission", "reason", reason)
		return &Result{Dropped: true, DropReason: reason}, nil
	}

	source, created, err := d.repos.Sources.GetOrCreate(ctx, incoming.ChatID, incoming.SourceHint)
	if err != nil {
		return nil, fmt.Errorf("source resolution failed: %w", err)
	}
	if created {
		logger.Info("registered new source", "source_id", source.Id, "title", source.Title)
	}

	msg, inserted, err := d.repos.Messages.InsertIdempotent(ctx, &core.Message{
		ExternalMessageID: incoming.ExternalMessageID,
		ChatID:            incoming.ChatID,
		SourceId:          source.Id,
		Text:              incoming.Text,
		Timestamp:         incoming.Timestamp,
		Metadata:          incoming.Metadata,
	})
	if err != nil {
		return nil, fmt.Errorf("message persistence failed: %w", err)
	}
	if !inserted {
		logger.Debug("redelivered message, skipping filters")
		return &Result{Duplicate: true, Message: msg}, nil
	}

	matches := d.runFilters(ctx, logger, msg.Text)

	result := &Result{Message: msg, Matches: matches}
	for i := range matches {
		records, tasks, err := d.recordMatch(ctx, msg, &matches[i])
		if err != nil {
			// The message is already persisted; a failed match write loses
			// only this rule's outcome.
			logger.Error("failed to record match", "rule", matches[i].Rule.Name, "err", err)
			continue
		}
		result.Records = append(result.Records, records...)
		result.Tasks = append(result.Tasks, tasks...)
	}

	if len(matches) > 0 {
		logger.Info("message matched",
			"matches", len(matches), "forward_tasks", len(result.Tasks))
	}

	return result, nil
}

// admit decides whether a chat id belongs to an active source. A cache hit
// admits immediately; otherwise storage is consulted, which also covers
// sources created since the last cache refresh.
func (d *Dispatcher) admit(ctx context.Context, chatID int64) (bool, string, error) {
	if d.cache != nil && d.cache.Contains(chatID) {
		return true, "", nil
	}

	source, err := d.repos.Sources.GetByChatID(ctx, chatID)
	if errors.Is(err, storage.ErrNotFound) {
		return false, "unknown source", nil
	}
	if err != nil {
		return false, "", err
	}
	if !source.IsActive {
		return false, "inactive source", nil
	}
	return true, "", nil
}

// runFilters evaluates the rule snapshot against text under the embed
// timeout. Pipeline failures yield no matches, never an error.
func (d *Dispatcher) runFilters(ctx context.Context, logger *slog.Logger, text string) []filter.RuleMatch {
	d.mu.RLock()
	rules := d.rules
	d.mu.RUnlock()
	if len(rules) == 0 {
		return nil
	}

	runCtx := ctx
	if d.embedTimeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, d.embedTimeout)
		defer cancel()
	}

	matches, err := d.pipeline.Run(runCtx, text, rules)
	if err != nil {
		logger.Error("filter pipeline failed, message kept without matches", "err", err)
		return nil
	}
	return matches
}

// recordMatch persists one rule match and creates its forward tasks. Tasks
// are created only when the match record is new, so a replayed evaluation
// cannot enqueue twice.
func (d *Dispatcher) recordMatch(ctx context.Context, msg *core.Message, match *filter.RuleMatch) ([]*core.MatchRecord, []*core.ForwardTask, error) {
	topics := make([]string, len(match.Topics))
	for i, t := range match.Topics {
		topics[i] = t.Topic
	}

	record, created, err := d.repos.Matches.GetOrCreate(ctx, &core.MatchRecord{
		MessageId: msg.Id,
		RuleId:    match.Rule.Id,
		Type:      match.Type,
		Score:     match.Score,
		Topics:    topics,
	})
	if err != nil {
		return nil, nil, err
	}
	if !created {
		return []*core.MatchRecord{record}, nil, nil
	}

	var tasks []*core.ForwardTask
	if len(match.Topics) == 0 {
		// Pure keyword match: one task for the rule itself.
		task, err := d.repos.Forwards.Create(ctx, &core.ForwardTask{
			MessageId: msg.Id,
			RuleId:    match.Rule.Id,
			Score:     match.Score,
		})
		if err != nil {
			return []*core.MatchRecord{record}, nil, err
		}
		tasks = append(tasks, task)
	} else {
		for _, t := range match.Topics {
			task, err := d.repos.Forwards.Create(ctx, &core.ForwardTask{
				MessageId: msg.Id,
				RuleId:    match.Rule.Id,
				TopicId:   t.TopicId,
				Score:     t.Score,
			})
			if err != nil {
				return []*core.MatchRecord{record}, tasks, err
			}
			tasks = append(tasks, task)
		}
	}

	return []*core.MatchRecord{record}, tasks, nil
}

// Close stops accepting events, waits for in-flight processing to finish and
// releases the worker pool.
func (d *Dispatcher) Close() error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	d.mu.Unlock()

	d.wg.Wait()
	d.pool.Release()
	return nil
}
