// Copyright (C) 2019-2025, Lux Partners Limited. All rights reserved.
// See the file LICENSE for licensing terms.

package events

import (
	"sync"

	log "github.com/luxfi/log"

	"github.com/luxfi/omni"
)

// Record is an appended event together with its position in the log.
// Sequence numbers start at 0 and never repeat.
type Record struct {
	Seq   uint64
	Event Event
}

// Log is the append-only event log of one ledger. Appends are totally
// ordered; records are never modified or removed.
type Log struct {
	chain omni.ChainID
	log   log.Logger

	mu      sync.RWMutex
	entries []Record
	subs    map[int]chan Record
	nextSub int
}

// NewLog creates an empty event log for one ledger. A nil logger defaults
// to a no-op logger.
func NewLog(chain omni.ChainID, logger log.Logger) *Log {
	if logger == nil {
		logger = log.NoLog{}
	}
	return &Log{
		chain: chain,
		log:   logger,
		subs:  make(map[int]chan Record),
	}
}

// Chain returns the ledger this log belongs to
func (l *Log) Chain() omni.ChainID {
	return l.chain
}

// Append appends one event and fans it out to subscribers. A subscriber
// whose buffer is full misses the record; tailers recover by re-reading
// from their last seen sequence number.
func (l *Log) Append(ev Event) Record {
	l.mu.Lock()
	defer l.mu.Unlock()

	rec := Record{
		Seq:   uint64(len(l.entries)),
		Event: ev,
	}
	l.entries = append(l.entries, rec)

	for id, ch := range l.subs {
		select {
		case ch <- rec:
		default:
			l.log.Debug("event subscriber lagging",
				log.Int("subscriber", id),
				log.Uint64("seq", rec.Seq),
			)
		}
	}
	return rec
}

// Len returns the number of appended records
func (l *Log) Len() uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return uint64(len(l.entries))
}

// Entries returns a copy of all records with sequence number >= from
func (l *Log) Entries(from uint64) []Record {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if from >= uint64(len(l.entries)) {
		return nil
	}
	out := make([]Record, len(l.entries)-int(from))
	copy(out, l.entries[from:])
	return out
}

// Subscribe registers a buffered live feed of new records. The returned
// cancel function must be called exactly once; after cancel the channel is
// closed.
func (l *Log) Subscribe(buffer int) (<-chan Record, func()) {
	l.mu.Lock()
	defer l.mu.Unlock()

	id := l.nextSub
	l.nextSub++

	ch := make(chan Record, buffer)
	l.subs[id] = ch

	cancel := func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		if sub, ok := l.subs[id]; ok {
			delete(l.subs, id)
			close(sub)
		}
	}
	return ch, cancel
}
