package scheduler

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestUntilNextPush(t *testing.T) {
	now := time.Date(2026, 8, 31, 7, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		pushAt string
		want   time.Duration
	}{
		{"later today", "08:30", 90 * time.Minute},
		{"already passed rolls to tomorrow", "06:00", 23 * time.Hour},
		{"exactly now rolls to tomorrow", "07:00", 24 * time.Hour},
		{"disabled", "", 24 * time.Hour},
		{"malformed", "8am", 24 * time.Hour},
		{"out of range", "25:00", 24 * time.Hour},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New(nil, nil, time.Hour, tt.pushAt, zerolog.Nop())
			require.Equal(t, tt.want, s.untilNextPush(now))
		})
	}
}

func TestNewClampsInterval(t *testing.T) {
	s := New(nil, nil, 0, "", zerolog.Nop())
	require.Equal(t, time.Hour, s.interval)
}
