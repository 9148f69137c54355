package cron

import (
	"errors"
	"testing"
	"time"
)

func TestEvery(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	s := Every(250 * time.Millisecond)

	if got := s.Next(now); !got.Equal(now.Add(250 * time.Millisecond)) {
		t.Errorf("Next() = %v, want %v", got, now.Add(250*time.Millisecond))
	}
	if got := Delay(s, now); got != 250*time.Millisecond {
		t.Errorf("Delay() = %v, want 250ms", got)
	}
}

func TestParse(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 30, 0, time.UTC)

	tests := []struct {
		name string
		spec string
		want time.Time
	}{
		{"five fields", "*/5 * * * *", time.Date(2024, 1, 1, 12, 5, 0, 0, time.UTC)},
		{"with seconds", "0 * * * * *", time.Date(2024, 1, 1, 12, 1, 0, 0, time.UTC)},
		{"descriptor", "@hourly", time.Date(2024, 1, 1, 13, 0, 0, 0, time.UTC)},
		{"every descriptor", "@every 1m", time.Date(2024, 1, 1, 12, 1, 30, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := Parse(tt.spec)
			if err != nil {
				t.Fatalf("Parse(%q) error = %v", tt.spec, err)
			}
			if got := s.Next(now); !got.Equal(tt.want) {
				t.Errorf("Next() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParse_Invalid(t *testing.T) {
	for _, spec := range []string{"", "   ", "not a cron", "61 * * * *"} {
		if _, err := Parse(spec); !errors.Is(err, ErrInvalidSpec) {
			t.Errorf("Parse(%q) error = %v, want ErrInvalidSpec", spec, err)
		}
	}
}
