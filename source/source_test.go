package source

import (
	"context"
	"errors"
	"testing"
)

func TestInstance(t *testing.T) {
	p := Instance("static")

	if p.Lifetime() != LifetimeSingleton {
		t.Errorf("Lifetime() = %v, want singleton", p.Lifetime())
	}
	sc, err := p.Open(context.Background())
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if sc.Source() != "static" {
		t.Errorf("Source() = %q, want static", sc.Source())
	}
	if err := sc.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}

func TestSingleton_ResolveError(t *testing.T) {
	testErr := errors.New("no dsn")
	p := Singleton(func(ctx context.Context) (int, error) {
		return 0, testErr
	})

	_, err := p.Open(context.Background())
	if !errors.Is(err, testErr) {
		t.Fatalf("Open() error = %v, want %v", err, testErr)
	}
}

func TestScope_CloseOnce(t *testing.T) {
	released := 0
	p := Scoped(func(ctx context.Context) (string, func() error, error) {
		return "session", func() error {
			released++
			return nil
		}, nil
	})

	if p.Lifetime() != LifetimeScoped {
		t.Errorf("Lifetime() = %v, want scoped", p.Lifetime())
	}
	sc, err := p.Open(context.Background())
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	_ = sc.Close()
	_ = sc.Close()

	if released != 1 {
		t.Errorf("released %d times, want 1", released)
	}
}

func TestUse_ReleasesOnEveryPath(t *testing.T) {
	fnErr := errors.New("query failed")
	relErr := errors.New("rollback failed")

	tests := []struct {
		name       string
		fn         func(ctx context.Context, src string) (int, error)
		releaseErr error
		wantErr    error
		wantPanic  bool
	}{
		{
			name: "success",
			fn:   func(ctx context.Context, src string) (int, error) { return len(src), nil },
		},
		{
			name:    "refresh error",
			fn:      func(ctx context.Context, src string) (int, error) { return 0, fnErr },
			wantErr: fnErr,
		},
		{
			name:       "release error surfaces after success",
			fn:         func(ctx context.Context, src string) (int, error) { return 1, nil },
			releaseErr: relErr,
			wantErr:    relErr,
		},
		{
			name:       "refresh error wins over release error",
			fn:         func(ctx context.Context, src string) (int, error) { return 0, fnErr },
			releaseErr: relErr,
			wantErr:    fnErr,
		},
		{
			name:      "panic",
			fn:        func(ctx context.Context, src string) (int, error) { panic("boom") },
			wantPanic: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			released := false
			p := Scoped(func(ctx context.Context) (string, func() error, error) {
				return "db", func() error {
					released = true
					return tt.releaseErr
				}, nil
			})

			func() {
				defer func() {
					if r := recover(); (r != nil) != tt.wantPanic {
						t.Errorf("recovered %v, wantPanic %v", r, tt.wantPanic)
					}
				}()
				_, err := Use(context.Background(), p, tt.fn)
				if tt.wantErr == nil && err != nil {
					t.Errorf("Use() error = %v", err)
				}
				if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
					t.Errorf("Use() error = %v, want %v", err, tt.wantErr)
				}
			}()

			if !released {
				t.Error("scope was not released")
			}
		})
	}
}

func TestLifetime_String(t *testing.T) {
	if LifetimeSingleton.String() != "singleton" || LifetimeScoped.String() != "scoped" {
		t.Error("unexpected lifetime names")
	}
	if Lifetime(9).String() != "lifetime(9)" {
		t.Errorf("unexpected name for unknown lifetime: %s", Lifetime(9))
	}
}
