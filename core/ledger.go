package core

import (
	"sort"
	"sync"
)

// Ledger tracks per-agent budgets. Every debit is clamped so a balance
// can never go negative; callers must inspect the returned amount and
// treat a short charge as "could not fully afford", not as an error.
//
// Operations on a single agent are serialized through that agent's own
// lock; agents never contend with each other.
type Ledger struct {
	mu       sync.RWMutex
	accounts map[string]*account
}

type account struct {
	mu      sync.Mutex
	balance float64
}

// NewLedger creates an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{accounts: make(map[string]*account)}
}

// Register opens an account with the given starting balance. Registering
// an existing agent resets its balance.
func (l *Ledger) Register(agentID string, initial float64) {
	if initial < 0 {
		initial = 0
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.accounts[agentID] = &account{balance: initial}
}

func (l *Ledger) account(agentID string) *account {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.accounts[agentID]
}

// Debit charges up to amount from the agent's balance and returns what
// was actually charged. Unknown agents and non-positive amounts charge
// nothing.
func (l *Ledger) Debit(agentID string, amount float64) float64 {
	if amount <= 0 {
		return 0
	}
	acct := l.account(agentID)
	if acct == nil {
		return 0
	}
	acct.mu.Lock()
	defer acct.mu.Unlock()
	charged := amount
	if charged > acct.balance {
		charged = acct.balance
	}
	acct.balance -= charged
	return charged
}

// Credit adds amount to the agent's balance. Credits have no upper
// bound; non-positive amounts are ignored.
func (l *Ledger) Credit(agentID string, amount float64) {
	if amount <= 0 {
		return
	}
	acct := l.account(agentID)
	if acct == nil {
		return
	}
	acct.mu.Lock()
	acct.balance += amount
	acct.mu.Unlock()
}

// Balance returns the agent's current balance, or 0 for unknown agents.
func (l *Ledger) Balance(agentID string) float64 {
	acct := l.account(agentID)
	if acct == nil {
		return 0
	}
	acct.mu.Lock()
	defer acct.mu.Unlock()
	return acct.balance
}

// Balances returns a snapshot of all balances, keyed by agent ID.
func (l *Ledger) Balances() map[string]float64 {
	l.mu.RLock()
	ids := make([]string, 0, len(l.accounts))
	for id := range l.accounts {
		ids = append(ids, id)
	}
	l.mu.RUnlock()
	sort.Strings(ids)

	out := make(map[string]float64, len(ids))
	for _, id := range ids {
		out[id] = l.Balance(id)
	}
	return out
}
