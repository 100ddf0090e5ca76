package mediasession

import (
	"testing"
	"time"
)

func TestValidPosition(t *testing.T) {
	tests := []struct {
		name     string
		pos      time.Duration
		duration time.Duration
		want     bool
	}{
		{"within track", 30 * time.Second, 3 * time.Minute, true},
		{"at start", 0, 3 * time.Minute, true},
		{"at end", 3 * time.Minute, 3 * time.Minute, true},
		{"past end", 4 * time.Minute, 3 * time.Minute, false},
		{"negative", -time.Second, 3 * time.Minute, false},
		{"unknown duration", 30 * time.Second, 0, false},
		{"negative duration", 30 * time.Second, -time.Second, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ValidPosition(tt.pos, tt.duration); got != tt.want {
				t.Errorf("ValidPosition(%v, %v) = %v, want %v", tt.pos, tt.duration, got, tt.want)
			}
		})
	}
}

func TestSeekOffset(t *testing.T) {
	if got := SeekOffset(0, false); got != DefaultSeekStep {
		t.Errorf("forward default = %v, want %v", got, DefaultSeekStep)
	}
	if got := SeekOffset(0, true); got != -DefaultSeekStep {
		t.Errorf("backward default = %v, want %v", got, -DefaultSeekStep)
	}
	if got := SeekOffset(5*time.Second, false); got != 5*time.Second {
		t.Errorf("explicit forward = %v, want 5s", got)
	}
	if got := SeekOffset(5*time.Second, true); got != -5*time.Second {
		t.Errorf("explicit backward = %v, want -5s", got)
	}
	if got := SeekOffset(-5*time.Second, true); got != 0 {
		t.Errorf("negative backward = %v, want 0", got)
	}
	if got := SeekOffset(-5*time.Second, false); got != 0 {
		t.Errorf("negative forward = %v, want 0", got)
	}
}
