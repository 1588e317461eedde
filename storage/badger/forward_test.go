package badger

import (
	"context"
	"errors"
	"testing"

	"github.com/poiesic/newswire/core"
	"github.com/poiesic/newswire/storage"
)

func TestForwardTaskLifecycle(t *testing.T) {
	repos, backend, err := NewMemoryRepositories()
	if err != nil {
		t.Fatalf("Failed to create repositories: %v", err)
	}
	defer func() { repos.Close(); backend.Close() }()

	ctx := context.Background()

	task := &core.ForwardTask{
		MessageId: core.ID(7),
		RuleId:    core.IDFromContent("politics"),
		TopicId:   core.IDFromContent("elections"),
		Score:     0.82,
	}

	created, err := repos.Forwards.Create(ctx, task)
	if err != nil {
		t.Fatalf("Failed to create task: %v", err)
	}
	if created.Id == 0 {
		t.Fatal("Expected non-zero ID")
	}
	if created.Status != core.ForwardStatusPending {
		t.Fatalf("Expected pending status, got %v", created.Status)
	}

	pending, err := repos.Forwards.ListPending(ctx, 10)
	if err != nil {
		t.Fatalf("Failed to list pending: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("Expected 1 pending task, got %d", len(pending))
	}

	if err := repos.Forwards.MarkSent(ctx, created.Id); err != nil {
		t.Fatalf("Failed to mark sent: %v", err)
	}

	sent, err := repos.Forwards.Get(ctx, created.Id)
	if err != nil {
		t.Fatalf("Failed to get task: %v", err)
	}
	if sent.Status != core.ForwardStatusSent {
		t.Fatalf("Expected sent status, got %v", sent.Status)
	}

	pending, err = repos.Forwards.ListPending(ctx, 10)
	if err != nil {
		t.Fatalf("Failed to list pending: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("Expected no pending tasks after send, got %d", len(pending))
	}
}

func TestForwardTaskMarkFailed(t *testing.T) {
	repos, backend, err := NewMemoryRepositories()
	if err != nil {
		t.Fatalf("Failed to create repositories: %v", err)
	}
	defer func() { repos.Close(); backend.Close() }()

	ctx := context.Background()

	task, err := repos.Forwards.Create(ctx, &core.ForwardTask{MessageId: 1, RuleId: 2, TopicId: 3})
	if err != nil {
		t.Fatalf("Failed to create task: %v", err)
	}

	if err := repos.Forwards.MarkFailed(ctx, task.Id, "collaborator unavailable"); err != nil {
		t.Fatalf("Failed to mark failed: %v", err)
	}

	failed, err := repos.Forwards.Get(ctx, task.Id)
	if err != nil {
		t.Fatalf("Failed to get task: %v", err)
	}
	if failed.Status != core.ForwardStatusFailed {
		t.Fatalf("Expected failed status, got %v", failed.Status)
	}
	if failed.Error != "collaborator unavailable" {
		t.Fatalf("Expected failure reason, got %q", failed.Error)
	}
}

func TestForwardTaskListPending_OldestFirst(t *testing.T) {
	repos, backend, err := NewMemoryRepositories()
	if err != nil {
		t.Fatalf("Failed to create repositories: %v", err)
	}
	defer func() { repos.Close(); backend.Close() }()

	ctx := context.Background()

	var ids []core.ID
	for i := 0; i < 3; i++ {
		task, err := repos.Forwards.Create(ctx, &core.ForwardTask{MessageId: core.ID(i + 1)})
		if err != nil {
			t.Fatalf("Failed to create task: %v", err)
		}
		ids = append(ids, task.Id)
	}

	pending, err := repos.Forwards.ListPending(ctx, 2)
	if err != nil {
		t.Fatalf("Failed to list pending: %v", err)
	}
	if len(pending) != 2 {
		t.Fatalf("Expected limit of 2, got %d", len(pending))
	}
	if pending[0].Id != ids[0] || pending[1].Id != ids[1] {
		t.Fatal("Expected oldest tasks first")
	}
}

func TestForwardTaskMarkSent_NotFound(t *testing.T) {
	repos, backend, err := NewMemoryRepositories()
	if err != nil {
		t.Fatalf("Failed to create repositories: %v", err)
	}
	defer func() { repos.Close(); backend.Close() }()

	if err := repos.Forwards.MarkSent(context.Background(), core.ID(404)); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound, got %v", err)
	}
}
