package engine

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/golang/mock/gomock"

	"github.com/foreman-dev/foreman/pkg/agents"
	"github.com/foreman-dev/foreman/pkg/clock"
	"github.com/foreman-dev/foreman/pkg/interfaces"
	"github.com/foreman-dev/foreman/pkg/mocks"
	"github.com/foreman-dev/foreman/pkg/types"
)

func newMockedOrchestrator(t *testing.T, st *mocks.MockStore, pub *mocks.MockPublisher) *Orchestrator {
	t.Helper()
	clk := clock.NewManual(epoch)
	reg := agents.New(nil, agents.WithClock(clk))
	if err := agents.Bootstrap(reg); err != nil {
		t.Fatalf("Bootstrap: %v", err)
	}
	return New(&types.ForemanConfig{Opportunities: types.OpportunityConfig{Seed: 7}}, nil, interfaces.ForemanDependencies{
		Agents:        reg,
		Opportunities: staticSource(nil),
		Store:         st,
		Publisher:     pub,
		Clock:         clk,
	})
}

func TestStoreFailuresKeepMemoryAuthoritative(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	diskFull := errors.New("disk full")
	st := mocks.NewMockStore(ctrl)
	st.EXPECT().SaveQueue(gomock.Any(), gomock.Any()).Return(diskFull).MinTimes(2)
	st.EXPECT().SaveBuild(gomock.Any(), gomock.Any()).Return(diskFull).MinTimes(1)
	st.EXPECT().Close().Return(nil).AnyTimes()

	pub := mocks.NewMockPublisher(ctrl)
	var mu sync.Mutex
	var published []string
	pub.EXPECT().Publish(gomock.Any()).Do(func(e types.Event) {
		mu.Lock()
		defer mu.Unlock()
		published = append(published, e.Type)
	}).AnyTimes()

	orch := newMockedOrchestrator(t, st, pub)
	ctx := context.Background()

	added, err := orch.Enqueue(testOpportunity("X"))
	if err != nil || !added {
		t.Fatalf("Enqueue = %v, %v", added, err)
	}
	if len(orch.ListQueue()) != 1 {
		t.Fatal("a failed queue write dropped the opportunity")
	}

	rec, err := orch.Tick(ctx)
	if err != nil || rec == nil {
		t.Fatalf("Tick = %v, %v", rec, err)
	}
	if got, err := orch.Get(rec.ID); err != nil || got.State != types.BuildStateBuilding {
		t.Errorf("Get after failed write = %+v, %v", got, err)
	}
	if err := orch.Stop(ctx); err != nil {
		t.Fatalf("Stop: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	found := false
	for _, typ := range published {
		if typ == types.EventBuildStarted {
			found = true
		}
	}
	if !found {
		t.Errorf("build-started not published, got %v", published)
	}
}

func TestRestoreReportsLoadFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	st := mocks.NewMockStore(ctrl)
	st.EXPECT().LoadBuilds(gomock.Any()).Return(nil, errors.New("corrupt"))
	st.EXPECT().LoadQueue(gomock.Any()).Return(nil, nil).AnyTimes()
	st.EXPECT().Close().Return(nil).AnyTimes()

	orch := newMockedOrchestrator(t, st, mocks.NewMockPublisher(ctrl))
	if err := orch.Restore(context.Background()); err == nil {
		t.Error("expected Restore to surface the load error")
	}
	if len(orch.ListActive()) != 0 || len(orch.ListQueue()) != 0 {
		t.Error("failed restore left partial state")
	}
}
