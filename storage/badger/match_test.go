package badger

import (
	"context"
	"testing"

	"github.com/poiesic/newswire/core"
)

func TestMatchGetOrCreate(t *testing.T) {
	repos, backend, err := NewMemoryRepositories()
	if err != nil {
		t.Fatalf("Failed to create repositories: %v", err)
	}
	defer func() { repos.Close(); backend.Close() }()

	ctx := context.Background()

	record := &core.MatchRecord{
		MessageId: core.ID(7),
		RuleId:    core.IDFromContent("politics"),
		Type:      core.MatchTypeSemantic,
		Score:     0.82,
		Topics:    []string{"elections"},
	}

	first, created, err := repos.Matches.GetOrCreate(ctx, record)
	if err != nil {
		t.Fatalf("Failed to create match record: %v", err)
	}
	if !created {
		t.Fatal("Expected record to be created")
	}
	if first.Id == 0 {
		t.Fatal("Expected non-zero ID")
	}

	// Redelivered message re-running the same rule finds the existing record.
	duplicate := &core.MatchRecord{
		MessageId: core.ID(7),
		RuleId:    core.IDFromContent("politics"),
		Type:      core.MatchTypeSemantic,
		Score:     0.82,
	}
	second, created, err := repos.Matches.GetOrCreate(ctx, duplicate)
	if err != nil {
		t.Fatalf("Failed on duplicate: %v", err)
	}
	if created {
		t.Fatal("Expected duplicate to find the existing record")
	}
	if second.Id != first.Id {
		t.Fatalf("Expected ID %d, got %d", first.Id, second.Id)
	}
}

func TestMatchListByMessage(t *testing.T) {
	repos, backend, err := NewMemoryRepositories()
	if err != nil {
		t.Fatalf("Failed to create repositories: %v", err)
	}
	defer func() { repos.Close(); backend.Close() }()

	ctx := context.Background()

	for _, rule := range []string{"politics", "finance"} {
		record := &core.MatchRecord{
			MessageId: core.ID(7),
			RuleId:    core.IDFromContent(rule),
			Type:      core.MatchTypeKeyword,
			Score:     1.0,
		}
		if _, _, err := repos.Matches.GetOrCreate(ctx, record); err != nil {
			t.Fatalf("Failed to create match record: %v", err)
		}
	}

	// A record for another message must not leak into the listing.
	other := &core.MatchRecord{MessageId: core.ID(8), RuleId: core.IDFromContent("politics")}
	if _, _, err := repos.Matches.GetOrCreate(ctx, other); err != nil {
		t.Fatalf("Failed to create match record: %v", err)
	}

	records, err := repos.Matches.ListByMessage(ctx, core.ID(7))
	if err != nil {
		t.Fatalf("Failed to list by message: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("Expected 2 records, got %d", len(records))
	}
	for _, r := range records {
		if r.MessageId != core.ID(7) {
			t.Fatalf("Unexpected message id %d in listing", r.MessageId)
		}
	}
}
