// Copyright (C) 2019-2025, Lux Partners Limited. All rights reserved.
// See the file LICENSE for licensing terms.

package omni

import "sync"

// CallGuard blocks nested entry into a group of guarded operations. An
// application and the token built on it share one guard so a payload handler
// cannot call back into any balance-mutating entry point of the pair while
// the outer call is still running. Nested entry fails with ErrReentrancy
// instead of deadlocking.
type CallGuard struct {
	mu   sync.Mutex
	held bool
}

// Enter acquires the guard. The caller must release it with Exit once the
// outer operation completes, normally via defer.
func (g *CallGuard) Enter() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.held {
		return ErrReentrancy
	}
	g.held = true
	return nil
}

// Exit releases the guard.
func (g *CallGuard) Exit() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.held = false
}

// Held reports whether the guard is currently held.
func (g *CallGuard) Held() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.held
}
