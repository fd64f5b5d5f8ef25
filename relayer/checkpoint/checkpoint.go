// Copyright (C) 2019-2025, Lux Partners Limited. All rights reserved.
// See the file LICENSE for licensing terms.

// Package checkpoint tracks the contiguous high-water mark of processed
// event sequence numbers, so a relayer with concurrent workers can resume
// from a position that skips nothing.
package checkpoint

import (
	"container/heap"
	"sync"

	log "github.com/luxfi/log"

	"github.com/luxfi/omni/utils"
)

// Manager commits processed sequence numbers in order. Workers finish out of
// order; a finished sequence number is staged on a min-heap and the committed
// mark only advances across contiguous runs.
type Manager struct {
	log log.Logger

	lock      sync.RWMutex
	committed uint64
	pending   *utils.UInt64Heap
}

// NewManager creates a Manager whose next expected sequence number is start
func NewManager(logger log.Logger, start uint64) *Manager {
	if logger == nil {
		logger = log.NoLog{}
	}
	h := &utils.UInt64Heap{}
	heap.Init(h)
	return &Manager{
		log:       logger,
		committed: start,
		pending:   h,
	}
}

// StageProcessed records seq as processed. Sequence numbers below the
// committed mark are ignored; gaps hold the mark until the missing numbers
// arrive.
func (m *Manager) StageProcessed(seq uint64) {
	m.lock.Lock()
	defer m.lock.Unlock()

	if seq < m.committed {
		m.log.Debug("ignoring already-committed sequence",
			log.Uint64("seq", seq),
			log.Uint64("committed", m.committed),
		)
		return
	}

	heap.Push(m.pending, seq)
	for m.pending.Len() > 0 && m.pending.Peek() == m.committed {
		heap.Pop(m.pending)
		m.committed++
	}
}

// Committed returns the next sequence number that has not been processed.
// Every sequence number below it has been processed exactly once.
func (m *Manager) Committed() uint64 {
	m.lock.RLock()
	defer m.lock.RUnlock()

	return m.committed
}

// Pending returns the number of processed sequence numbers still waiting on
// an earlier gap.
func (m *Manager) Pending() int {
	m.lock.RLock()
	defer m.lock.RUnlock()

	return m.pending.Len()
}
