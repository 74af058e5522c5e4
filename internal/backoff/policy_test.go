package backoff

import (
	"testing"
	"time"
)

func TestPolicy_NextDelay(t *testing.T) {
	p := Policy{Base: 15 * time.Second}

	tests := []struct {
		attempt uint
		want    time.Duration
	}{
		{0, 15 * time.Second},
		{1, 30 * time.Second},
		{2, 60 * time.Second},
		{3, 120 * time.Second},
		{10, 15 * time.Second * 1024},
	}

	for _, tt := range tests {
		if got := p.NextDelay(tt.attempt); got != tt.want {
			t.Errorf("NextDelay(%d) = %v, want %v", tt.attempt, got, tt.want)
		}
	}
}

func TestPolicy_NextDelay_Capped(t *testing.T) {
	p := Policy{Base: 15 * time.Second, Max: 2 * time.Minute}

	if got := p.NextDelay(2); got != 60*time.Second {
		t.Errorf("NextDelay(2) = %v, want 60s (below cap)", got)
	}
	if got := p.NextDelay(3); got != 2*time.Minute {
		t.Errorf("NextDelay(3) = %v, want cap of 2m", got)
	}
	if got := p.NextDelay(50); got != 2*time.Minute {
		t.Errorf("NextDelay(50) = %v, want cap of 2m", got)
	}
}

func TestPolicy_NextDelay_Deterministic(t *testing.T) {
	p := Policy{Base: time.Second}
	for i := 0; i < 5; i++ {
		if p.NextDelay(4) != 16*time.Second {
			t.Fatal("NextDelay must be deterministic across calls")
		}
	}
}

func TestPolicy_NextDelay_OverflowGuard(t *testing.T) {
	p := Policy{Base: time.Second}
	if d := p.NextDelay(200); d <= 0 {
		t.Errorf("NextDelay(200) = %v, want positive", d)
	}

	capped := Policy{Base: time.Second, Max: time.Hour}
	if d := capped.NextDelay(200); d != time.Hour {
		t.Errorf("NextDelay(200) with cap = %v, want 1h", d)
	}
}
