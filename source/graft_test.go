package source

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/grindlemire/graft"
)

type testSettings struct {
	dsn    string
	closed atomic.Bool
}

func (s *testSettings) Close() error {
	s.closed.Store(true)
	return nil
}

type testSession struct {
	dsn    string
	closed atomic.Bool
}

func (s *testSession) Close() error {
	s.closed.Store(true)
	return nil
}

type testRepo struct {
	session *testSession
}

var settingsBuilt atomic.Int32

func init() {
	graft.Register(graft.Node[*testSettings]{
		ID:        "source_test.settings",
		Cacheable: true,
		Run: func(ctx context.Context) (*testSettings, error) {
			settingsBuilt.Add(1)
			return &testSettings{dsn: "memory"}, nil
		},
	})
	graft.Register(graft.Node[*testSession]{
		ID:        "source_test.session",
		DependsOn: []graft.ID{"source_test.settings"},
		Run: func(ctx context.Context) (*testSession, error) {
			settings, err := graft.Dep[*testSettings](ctx)
			if err != nil {
				return nil, err
			}
			return &testSession{dsn: settings.dsn}, nil
		},
	})
	graft.Register(graft.Node[*testRepo]{
		ID:        "source_test.repo",
		DependsOn: []graft.ID{"source_test.session"},
		Run: func(ctx context.Context) (*testRepo, error) {
			session, err := graft.Dep[*testSession](ctx)
			if err != nil {
				return nil, err
			}
			return &testRepo{session: session}, nil
		},
	})
}

func TestGraftScoped(t *testing.T) {
	shared := graft.NewMemoryCache()
	p := GraftScoped[*testRepo](shared)
	before := settingsBuilt.Load()

	if p.Lifetime() != LifetimeScoped {
		t.Fatalf("Lifetime() = %v, want scoped", p.Lifetime())
	}

	first, err := p.Open(context.Background())
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	second, err := p.Open(context.Background())
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	if first.Source().session == second.Source().session {
		t.Error("each scope should build its own session")
	}
	if first.Source().session.dsn != "memory" {
		t.Errorf("session dsn = %q, want memory", first.Source().session.dsn)
	}
	if got := settingsBuilt.Load() - before; got != 1 {
		t.Errorf("cacheable settings built %d times, want 1", got)
	}

	if err := first.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if !first.Source().session.closed.Load() {
		t.Error("scoped session should be closed with its scope")
	}
	if second.Source().session.closed.Load() {
		t.Error("closing one scope must not close another")
	}

	settings, _, _ := shared.Get(context.Background(), "source_test.settings")
	if settings.(*testSettings).closed.Load() {
		t.Error("shared settings must survive scope close")
	}
	_ = second.Close()
}

func TestGraftSingleton(t *testing.T) {
	p := GraftSingleton[*testRepo](graft.WithCache(graft.NewMemoryCache()))

	if p.Lifetime() != LifetimeSingleton {
		t.Fatalf("Lifetime() = %v, want singleton", p.Lifetime())
	}
	sc, err := p.Open(context.Background())
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if sc.Source() == nil || sc.Source().session == nil {
		t.Fatal("expected resolved repo")
	}
	if err := sc.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if sc.Source().session.closed.Load() {
		t.Error("singleton scope close must not close graft outputs")
	}
}
