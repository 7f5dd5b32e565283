package core

import (
	"sync"
	"testing"
)

func TestLedgerDebitClamps(t *testing.T) {
	l := NewLedger()
	l.Register("agent_00", 1.0)

	if got := l.Debit("agent_00", 0.4); got != 0.4 {
		t.Errorf("Debit(0.4) charged %v, want 0.4", got)
	}
	// Requested amount exceeds balance: charge is clamped, never negative.
	if got := l.Debit("agent_00", 2.0); got != 0.6 {
		t.Errorf("Debit(2.0) charged %v, want clamped 0.6", got)
	}
	if got := l.Balance("agent_00"); got != 0 {
		t.Errorf("balance = %v, want 0", got)
	}
	if got := l.Debit("agent_00", 0.1); got != 0 {
		t.Errorf("Debit on empty balance charged %v, want 0", got)
	}
}

func TestLedgerCreditUnbounded(t *testing.T) {
	l := NewLedger()
	l.Register("agent_00", 0)
	l.Credit("agent_00", 100)
	l.Credit("agent_00", 100)
	if got := l.Balance("agent_00"); got != 200 {
		t.Errorf("balance = %v, want 200", got)
	}
	// Negative credits are ignored.
	l.Credit("agent_00", -5)
	if got := l.Balance("agent_00"); got != 200 {
		t.Errorf("balance after negative credit = %v, want 200", got)
	}
}

func TestLedgerUnknownAgent(t *testing.T) {
	l := NewLedger()
	if got := l.Debit("ghost", 1); got != 0 {
		t.Errorf("Debit on unknown agent charged %v, want 0", got)
	}
	if got := l.Balance("ghost"); got != 0 {
		t.Errorf("Balance of unknown agent = %v, want 0", got)
	}
}

func TestLedgerConcurrentDebits(t *testing.T) {
	l := NewLedger()
	l.Register("agent_00", 1.0)

	const n = 100
	charges := make([]float64, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			charges[i] = l.Debit("agent_00", 0.05)
		}(i)
	}
	wg.Wait()

	var total float64
	for _, c := range charges {
		total += c
		if c < 0 {
			t.Fatalf("negative charge %v", c)
		}
	}
	if bal := l.Balance("agent_00"); bal < 0 {
		t.Fatalf("balance went negative: %v", bal)
	}
	// Conservation: everything charged plus the remainder is the start.
	if got := total + l.Balance("agent_00"); got < 0.999 || got > 1.001 {
		t.Errorf("charged+remaining = %v, want 1.0", got)
	}
}

func TestLedgerBalancesSnapshot(t *testing.T) {
	l := NewLedger()
	l.Register("a", 1)
	l.Register("b", 2)
	snap := l.Balances()
	if len(snap) != 2 || snap["a"] != 1 || snap["b"] != 2 {
		t.Errorf("snapshot = %v", snap)
	}
}
