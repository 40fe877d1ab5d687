package store

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/foreman-dev/foreman/pkg/types"
)

var base = time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)

func backends(t *testing.T) map[string]Store {
	t.Helper()
	sqlite, err := NewSQLite(filepath.Join(t.TempDir(), "nested", "foreman.db"))
	if err != nil {
		t.Fatalf("NewSQLite: %v", err)
	}
	t.Cleanup(func() { sqlite.Close() })

	return map[string]Store{
		"memory": NewMemory(),
		"sqlite": sqlite,
	}
}

func TestBuildsRoundTrip(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			completed := base.Add(time.Hour)

			later := &types.BuildRecord{ID: "b2", Name: "Later", State: types.BuildStateBuilding, StartedAt: base.Add(time.Minute)}
			first := &types.BuildRecord{
				ID:          "b1",
				Name:        "First",
				State:       types.BuildStateReadyForApproval,
				Progress:    100,
				StartedAt:   base,
				CompletedAt: &completed,
				Phases:      []types.Phase{{Name: "Architecture Design", Agent: "architect", Status: types.PhaseStatusCompleted, Progress: 100}},
			}

			for _, rec := range []*types.BuildRecord{later, first} {
				if err := s.SaveBuild(ctx, rec); err != nil {
					t.Fatalf("SaveBuild: %v", err)
				}
			}

			later.State = types.BuildStateCancelled
			if err := s.SaveBuild(ctx, later); err != nil {
				t.Fatalf("SaveBuild update: %v", err)
			}

			got, err := s.LoadBuilds(ctx)
			if err != nil {
				t.Fatalf("LoadBuilds: %v", err)
			}
			if len(got) != 2 {
				t.Fatalf("expected 2 builds, got %d", len(got))
			}
			if got[0].ID != "b1" || got[1].ID != "b2" {
				t.Errorf("expected start-time order, got %s, %s", got[0].ID, got[1].ID)
			}
			if got[1].State != types.BuildStateCancelled {
				t.Errorf("update not persisted: %s", got[1].State)
			}
			if got[0].CompletedAt == nil || !got[0].CompletedAt.Equal(completed) {
				t.Errorf("CompletedAt = %v", got[0].CompletedAt)
			}
			if len(got[0].Phases) != 1 || got[0].Phases[0].Agent != "architect" {
				t.Errorf("phases not persisted: %+v", got[0].Phases)
			}
		})
	}
}

func TestQueueReplace(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			if err := s.SaveQueue(ctx, []types.Opportunity{{ID: "a"}, {ID: "b"}, {ID: "c"}}); err != nil {
				t.Fatalf("SaveQueue: %v", err)
			}
			if err := s.SaveQueue(ctx, []types.Opportunity{{ID: "c"}, {ID: "a"}}); err != nil {
				t.Fatalf("SaveQueue: %v", err)
			}

			got, err := s.LoadQueue(ctx)
			if err != nil {
				t.Fatalf("LoadQueue: %v", err)
			}
			if len(got) != 2 || got[0].ID != "c" || got[1].ID != "a" {
				t.Errorf("unexpected queue %+v", got)
			}

			if err := s.SaveQueue(ctx, nil); err != nil {
				t.Fatalf("SaveQueue empty: %v", err)
			}
			got, _ = s.LoadQueue(ctx)
			if len(got) != 0 {
				t.Errorf("expected empty queue, got %d", len(got))
			}
		})
	}
}

func TestSessionsRoundTrip(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			sess := &types.Session{ID: "s1", Goal: "ship", StartedAt: base, Status: "active"}
			if err := s.SaveSession(ctx, sess); err != nil {
				t.Fatalf("SaveSession: %v", err)
			}
			sess.Connected = true
			if err := s.SaveSession(ctx, sess); err != nil {
				t.Fatalf("SaveSession: %v", err)
			}

			got, err := s.LoadSessions(ctx)
			if err != nil {
				t.Fatalf("LoadSessions: %v", err)
			}
			if len(got) != 1 || !got[0].Connected || got[0].Goal != "ship" {
				t.Errorf("unexpected sessions %+v", got)
			}
		})
	}
}

func TestEventsTail(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			for i, typ := range []string{"one", "two", "three"} {
				err := s.AppendEvent(ctx, types.Event{
					ID:        typ,
					Type:      typ,
					Data:      map[string]int{"n": i},
					Timestamp: base.Add(time.Duration(i) * time.Second),
				})
				if err != nil {
					t.Fatalf("AppendEvent: %v", err)
				}
			}

			got, err := s.Events(ctx, 2)
			if err != nil {
				t.Fatalf("Events: %v", err)
			}
			if len(got) != 2 || got[0].Type != "two" || got[1].Type != "three" {
				t.Fatalf("unexpected tail %+v", got)
			}

			raw, ok := got[1].Data.(json.RawMessage)
			if !ok {
				t.Fatalf("expected raw JSON data, got %T", got[1].Data)
			}
			var payload map[string]int
			if err := json.Unmarshal(raw, &payload); err != nil || payload["n"] != 2 {
				t.Errorf("unexpected payload %s", raw)
			}

			all, _ := s.Events(ctx, 0)
			if len(all) != 3 {
				t.Errorf("expected all 3 events, got %d", len(all))
			}
		})
	}
}

func TestAgentsKeepFirstSavedOrder(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			// Same CreatedAt, so only save order can decide.
			for _, id := range []string{"zeta", "alpha", "mid"} {
				if err := s.SaveAgent(ctx, &types.AgentDefinition{ID: id, Name: id, Role: "developer", CreatedAt: base}); err != nil {
					t.Fatalf("SaveAgent: %v", err)
				}
			}
			used := base.Add(time.Minute)
			if err := s.SaveAgent(ctx, &types.AgentDefinition{ID: "zeta", Name: "zeta", Role: "developer", CreatedAt: base, ConversationCount: 3, LastUsed: &used}); err != nil {
				t.Fatalf("SaveAgent update: %v", err)
			}
			if err := s.DeleteAgent(ctx, "mid"); err != nil {
				t.Fatalf("DeleteAgent: %v", err)
			}
			if err := s.DeleteAgent(ctx, "missing"); err != nil {
				t.Errorf("deleting a missing agent: %v", err)
			}

			got, err := s.LoadAgents(ctx)
			if err != nil {
				t.Fatalf("LoadAgents: %v", err)
			}
			if len(got) != 2 || got[0].ID != "zeta" || got[1].ID != "alpha" {
				t.Fatalf("unexpected agents %+v", got)
			}
			if got[0].ConversationCount != 3 || got[0].LastUsed == nil || !got[0].LastUsed.Equal(used) {
				t.Errorf("update not persisted: %+v", got[0])
			}
		})
	}
}

func TestConversationsAndTeamsRoundTrip(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			conv := &types.Conversation{ID: "c1", AgentID: "a1", CreatedAt: base}
			if err := s.SaveConversation(ctx, conv); err != nil {
				t.Fatalf("SaveConversation: %v", err)
			}
			conv.Messages = append(conv.Messages,
				types.Message{Role: "user", Content: "hi", Timestamp: base},
				types.Message{Role: "assistant", Content: "hello", Timestamp: base})
			if err := s.SaveConversation(ctx, conv); err != nil {
				t.Fatalf("SaveConversation: %v", err)
			}

			convs, err := s.LoadConversations(ctx)
			if err != nil {
				t.Fatalf("LoadConversations: %v", err)
			}
			if len(convs) != 1 || len(convs[0].Messages) != 2 || convs[0].Messages[1].Content != "hello" {
				t.Errorf("unexpected conversations %+v", convs)
			}

			team := &types.AgentTeam{ID: "t1", Purpose: "ship", AgentIDs: []string{"a1", "a2"}, CreatedAt: base}
			if err := s.SaveTeam(ctx, team); err != nil {
				t.Fatalf("SaveTeam: %v", err)
			}
			teams, err := s.LoadTeams(ctx)
			if err != nil {
				t.Fatalf("LoadTeams: %v", err)
			}
			if len(teams) != 1 || len(teams[0].AgentIDs) != 2 || teams[0].Purpose != "ship" {
				t.Errorf("unexpected teams %+v", teams)
			}
		})
	}
}

func TestConnectionsRoundTrip(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			conn := &types.IntegrationConnection{
				ID:            "conn-1",
				UserID:        "default-user",
				IntegrationID: "vercel",
				Status:        types.ConnectionConnected,
				ConnectedAt:   base,
				Config:        map[string]string{"apiKey": "***1234"},
			}
			if err := s.SaveConnection(ctx, conn); err != nil {
				t.Fatalf("SaveConnection: %v", err)
			}
			// Mutating the caller's value after saving must not leak into
			// the stored copy.
			conn.Config["apiKey"] = "changed"

			got, err := s.LoadConnections(ctx)
			if err != nil {
				t.Fatalf("LoadConnections: %v", err)
			}
			if len(got) != 1 || got[0].Config["apiKey"] != "***1234" || got[0].IntegrationID != "vercel" {
				t.Errorf("unexpected connections %+v", got)
			}
		})
	}
}
