package memory

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"
)

// Ledger is an in-memory payment gateway: it moves balances between
// identities and can inject forwarding failures for settlement tests.
type Ledger struct {
	mu         sync.Mutex
	balances   map[string]decimal.Decimal
	forwardErr error
}

func NewLedger() *Ledger {
	return &Ledger{balances: make(map[string]decimal.Decimal)}
}

func (l *Ledger) Credit(account string, amount decimal.Decimal) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.balances[account] = l.balanceLocked(account).Add(amount)
}

func (l *Ledger) Balance(account string) decimal.Decimal {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balanceLocked(account)
}

// FailForwards makes every subsequent Forward return err; pass nil to
// restore normal behavior.
func (l *Ledger) FailForwards(err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.forwardErr = err
}

func (l *Ledger) Forward(_ context.Context, from, to string, amount decimal.Decimal) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.forwardErr != nil {
		return l.forwardErr
	}
	l.balances[from] = l.balanceLocked(from).Sub(amount)
	l.balances[to] = l.balanceLocked(to).Add(amount)
	return nil
}

func (l *Ledger) balanceLocked(account string) decimal.Decimal {
	if balance, ok := l.balances[account]; ok {
		return balance
	}
	return decimal.Zero
}
