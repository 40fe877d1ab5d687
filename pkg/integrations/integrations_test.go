package integrations

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang/mock/gomock"

	"github.com/foreman-dev/foreman/pkg/clock"
	"github.com/foreman-dev/foreman/pkg/mocks"
	"github.com/foreman-dev/foreman/pkg/store"
	"github.com/foreman-dev/foreman/pkg/types"
)

var epoch = time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)

func newService(t *testing.T, opts ...Option) (*Service, *clock.Manual, *mocks.EventRecorder) {
	t.Helper()
	c := clock.NewManual(epoch)
	events := mocks.NewEventRecorder()
	opts = append([]Option{WithClock(c), WithPublisher(events), WithSeed(1)}, opts...)
	return New(opts...), c, events
}

func TestCatalog(t *testing.T) {
	s, _, _ := newService(t)

	catalog := s.Catalog()
	if len(catalog) != 7 {
		t.Fatalf("catalog has %d entries, want 7", len(catalog))
	}
	catalog[0].Features[0] = "changed"
	if s.Catalog()[0].Features[0] == "changed" {
		t.Error("Catalog should return copies")
	}

	in, err := s.Integration("vercel")
	if err != nil || in.Name != "Vercel" || in.AuthType != AuthAPIKey {
		t.Errorf("Integration(vercel) = %+v, %v", in, err)
	}
	if _, err := s.Integration("myspace"); !errors.Is(err, types.ErrNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestSanitize(t *testing.T) {
	tests := []struct {
		name string
		key  string
		in   string
		want string
	}{
		{"api key", "apiKey", "sk-live-abcd1234", "***1234"},
		{"snake case key", "api_key", "re_123456789", "***6789"},
		{"access token", "accessToken", "ya29.tokenvalue", "***alue"},
		{"client secret", "client-secret", "s3cr3tvalue", "***alue"},
		{"short secret", "password", "abc", "***"},
		{"empty secret", "token", "", ""},
		{"plain value", "projectId", "prj_42", "prj_42"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Sanitize(map[string]string{tt.key: tt.in})
			if got[tt.key] != tt.want {
				t.Errorf("Sanitize(%s=%q) = %q, want %q", tt.key, tt.in, got[tt.key], tt.want)
			}
		})
	}

	if Sanitize(nil) != nil {
		t.Error("empty config should stay nil")
	}
}

func TestConnect(t *testing.T) {
	s, _, events := newService(t)
	ctx := context.Background()

	conn, err := s.Connect(ctx, "", "resend", map[string]string{"apiKey": "re_live_9876", "domain": "mail.example.com"})
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if conn.UserID != DefaultUserID || conn.IntegrationName != "Resend" || conn.Status != types.ConnectionConnected {
		t.Errorf("unexpected connection %+v", conn)
	}
	if conn.Config["apiKey"] != "***9876" || conn.Config["domain"] != "mail.example.com" {
		t.Errorf("config not sanitized: %v", conn.Config)
	}
	if !conn.ConnectedAt.Equal(epoch) {
		t.Errorf("ConnectedAt = %v", conn.ConnectedAt)
	}
	if events.Count(types.EventIntegrationConnected) != 1 {
		t.Error("expected a connected event")
	}

	if _, err := s.Connect(ctx, "u1", "nope", nil); !errors.Is(err, types.ErrNotFound) {
		t.Errorf("unknown integration: %v", err)
	}
}

func TestConnectionsPerUser(t *testing.T) {
	s, _, _ := newService(t)
	ctx := context.Background()

	a, _ := s.Connect(ctx, "alice", "vercel", nil)
	s.Connect(ctx, "bob", "supabase", nil)
	b, _ := s.Connect(ctx, "alice", "vscode", nil)

	got := s.Connections("alice")
	if len(got) != 2 || got[0].ID != a.ID || got[1].ID != b.ID {
		t.Errorf("unexpected connections %+v", got)
	}
	if len(s.Connections("carol")) != 0 {
		t.Error("unknown user should have no connections")
	}
	if len(s.Connections("")) != 0 {
		t.Error("default user has no connections yet")
	}
}

func TestDisconnectAndTest(t *testing.T) {
	s, c, events := newService(t)
	ctx := context.Background()

	conn, _ := s.Connect(ctx, "", "supabase", map[string]string{"accessToken": "sbp_0123456789"})

	result, err := s.Test(ctx, conn.ID)
	if err != nil {
		t.Fatalf("Test: %v", err)
	}
	if result.Status != TestSuccess || result.Message != "Connection is healthy" {
		t.Errorf("unexpected result %+v", result)
	}
	if result.LatencyMs < 50 || result.LatencyMs > 149 {
		t.Errorf("latency %d out of range", result.LatencyMs)
	}

	c.Advance(time.Minute)
	out, err := s.Disconnect(ctx, conn.ID)
	if err != nil {
		t.Fatalf("Disconnect: %v", err)
	}
	if out.Status != types.ConnectionDisconnected || out.DisconnectedAt == nil || !out.DisconnectedAt.Equal(epoch.Add(time.Minute)) {
		t.Errorf("unexpected disconnect %+v", out)
	}

	c.Advance(time.Minute)
	again, err := s.Disconnect(ctx, conn.ID)
	if err != nil || !again.DisconnectedAt.Equal(epoch.Add(time.Minute)) {
		t.Errorf("second disconnect = %+v, %v", again, err)
	}
	if events.Count(types.EventIntegrationDisconnected) != 1 {
		t.Errorf("disconnected events = %d, want 1", events.Count(types.EventIntegrationDisconnected))
	}

	failed, err := s.Test(ctx, conn.ID)
	if err != nil || failed.Status != TestFailed {
		t.Errorf("test after disconnect = %+v, %v", failed, err)
	}
}

func TestUnknownConnection(t *testing.T) {
	s, _, _ := newService(t)
	ctx := context.Background()

	if _, err := s.Connection("missing"); !errors.Is(err, types.ErrNotFound) {
		t.Errorf("Connection: %v", err)
	}
	if _, err := s.Disconnect(ctx, "missing"); !errors.Is(err, types.ErrNotFound) {
		t.Errorf("Disconnect: %v", err)
	}
	if _, err := s.Test(ctx, "missing"); !errors.Is(err, types.ErrNotFound) {
		t.Errorf("Test: %v", err)
	}
	if _, err := s.Execute(ctx, "missing", "deploy"); !errors.Is(err, types.ErrNotFound) {
		t.Errorf("Execute: %v", err)
	}
}

func TestExecuteRecordsUsage(t *testing.T) {
	s, c, _ := newService(t)
	ctx := context.Background()
	conn, _ := s.Connect(ctx, "", "vercel", nil)

	c.Advance(time.Hour)
	res, err := s.Execute(ctx, conn.ID, "deploy")
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !res.Success || res.Action != "deploy" || res.Result != "Executed deploy via Vercel" {
		t.Errorf("unexpected result %+v", res)
	}

	got, _ := s.Connection(conn.ID)
	if got.UsageCount != 1 || got.LastUsed == nil || !got.LastUsed.Equal(epoch.Add(time.Hour)) {
		t.Errorf("usage not recorded: %+v", got)
	}

	if _, err := s.Execute(ctx, conn.ID, " "); !errors.Is(err, types.ErrValidation) {
		t.Errorf("empty action: %v", err)
	}
	s.Disconnect(ctx, conn.ID)
	if _, err := s.Execute(ctx, conn.ID, "deploy"); !errors.Is(err, types.ErrValidation) {
		t.Errorf("execute on disconnected: %v", err)
	}
}

func TestStats(t *testing.T) {
	s, _, _ := newService(t)
	ctx := context.Background()

	s.Connect(ctx, "", "vercel", nil)
	gone, _ := s.Connect(ctx, "", "vercel", nil)
	s.Connect(ctx, "", "resend", nil)
	s.Disconnect(ctx, gone.ID)

	stats := s.Stats()
	if stats.TotalIntegrations != 7 || stats.TotalConnections != 3 || stats.ActiveConnections != 2 {
		t.Errorf("unexpected totals %+v", stats)
	}
	if got := stats.ByIntegration["vercel"]; got.Connections != 1 || got.Name != "Vercel" {
		t.Errorf("vercel usage = %+v", got)
	}
	if got := stats.ByIntegration["lovable"]; got.Connections != 0 || got.Name != "Lovable" {
		t.Errorf("lovable usage = %+v", got)
	}
}

func TestRestoreFromStore(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()

	first, _, _ := newService(t, WithStore(st))
	conn, _ := first.Connect(ctx, "alice", "googleDrive", map[string]string{"refreshToken": "1//0gabcdef"})
	first.Disconnect(ctx, conn.ID)

	second, _, _ := newService(t, WithStore(st))
	if err := second.Restore(ctx); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	got, err := second.Connection(conn.ID)
	if err != nil {
		t.Fatalf("Connection: %v", err)
	}
	if got.Status != types.ConnectionDisconnected || got.Config["refreshToken"] != "***cdef" {
		t.Errorf("unexpected restored connection %+v", got)
	}
}

func TestPersistFailureKeepsConnection(t *testing.T) {
	ctrl := gomock.NewController(t)
	st := mocks.NewMockStore(ctrl)
	st.EXPECT().SaveConnection(gomock.Any(), gomock.Any()).Return(errors.New("read-only filesystem"))

	s, _, _ := newService(t, WithStore(st))
	conn, err := s.Connect(context.Background(), "", "vscode", nil)
	if err != nil {
		t.Fatalf("Connect should not fail on a store error: %v", err)
	}
	if _, err := s.Connection(conn.ID); err != nil {
		t.Errorf("connection missing: %v", err)
	}
}
