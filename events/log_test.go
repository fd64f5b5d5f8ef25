// Copyright (C) 2019-2025, Lux Partners Limited. All rights reserved.
// See the file LICENSE for licensing terms.

package events

import (
	"testing"
	"time"

	"github.com/luxfi/ids"
	log "github.com/luxfi/log"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/omni"
)

func TestAppendAssignsSequenceNumbers(t *testing.T) {
	require := require.New(t)

	eventLog := NewLog(1, log.NoLog{})
	require.Zero(eventLog.Len())
	require.Equal(omni.ChainID(1), eventLog.Chain())

	for i := uint64(0); i < 5; i++ {
		rec := eventLog.Append(MessageDelivered{GUID: ids.GenerateTestID()})
		require.Equal(i, rec.Seq)
	}
	require.Equal(uint64(5), eventLog.Len())
}

func TestEntriesFrom(t *testing.T) {
	require := require.New(t)

	eventLog := NewLog(1, log.NoLog{})
	guids := make([]ids.ID, 4)
	for i := range guids {
		guids[i] = ids.GenerateTestID()
		eventLog.Append(MessageDelivered{GUID: guids[i]})
	}

	all := eventLog.Entries(0)
	require.Len(all, 4)
	for i, rec := range all {
		require.Equal(uint64(i), rec.Seq)
		require.Equal(guids[i], rec.Event.(MessageDelivered).GUID)
	}

	tail := eventLog.Entries(2)
	require.Len(tail, 2)
	require.Equal(uint64(2), tail[0].Seq)

	require.Empty(eventLog.Entries(4))
	require.Empty(eventLog.Entries(100))
}

func TestSubscribeDeliversLiveRecords(t *testing.T) {
	require := require.New(t)

	eventLog := NewLog(1, log.NoLog{})
	feed, cancel := eventLog.Subscribe(4)
	defer cancel()

	guid := ids.GenerateTestID()
	eventLog.Append(MessageDelivered{GUID: guid})

	select {
	case rec := <-feed:
		require.Zero(rec.Seq)
		require.Equal(guid, rec.Event.(MessageDelivered).GUID)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for record")
	}
}

func TestSubscribeDropsWhenFull(t *testing.T) {
	require := require.New(t)

	eventLog := NewLog(1, log.NoLog{})
	feed, cancel := eventLog.Subscribe(1)
	defer cancel()

	// The second append finds the buffer full and is dropped, never
	// blocking the appender.
	eventLog.Append(MessageDelivered{GUID: ids.GenerateTestID()})
	eventLog.Append(MessageDelivered{GUID: ids.GenerateTestID()})

	rec := <-feed
	require.Zero(rec.Seq)
	select {
	case rec, ok := <-feed:
		require.True(ok)
		t.Fatalf("unexpected record %d", rec.Seq)
	default:
	}

	// The log itself kept both records; a lagging tailer re-reads.
	require.Equal(uint64(2), eventLog.Len())
	require.Len(eventLog.Entries(rec.Seq+1), 1)
}

func TestNewLogNilLogger(t *testing.T) {
	require := require.New(t)

	eventLog := NewLog(1, nil)
	_, cancel := eventLog.Subscribe(0)
	defer cancel()

	// Every append finds the zero-capacity buffer full; the drop is logged
	// through the defaulted no-op logger instead of dereferencing nil.
	eventLog.Append(MessageDelivered{GUID: ids.GenerateTestID()})
	eventLog.Append(MessageDelivered{GUID: ids.GenerateTestID()})
	require.Equal(uint64(2), eventLog.Len())
}

func TestSubscribeCancel(t *testing.T) {
	require := require.New(t)

	eventLog := NewLog(1, log.NoLog{})
	feed, cancel := eventLog.Subscribe(1)
	cancel()

	_, ok := <-feed
	require.False(ok)

	// Appending after cancel does not panic or deliver.
	eventLog.Append(MessageDelivered{GUID: ids.GenerateTestID()})
}

func TestMultipleSubscribers(t *testing.T) {
	require := require.New(t)

	eventLog := NewLog(1, log.NoLog{})
	feedA, cancelA := eventLog.Subscribe(2)
	defer cancelA()
	feedB, cancelB := eventLog.Subscribe(2)
	defer cancelB()

	guid := ids.GenerateTestID()
	eventLog.Append(MessageDelivered{GUID: guid})

	for _, feed := range []<-chan Record{feedA, feedB} {
		select {
		case rec := <-feed:
			require.Equal(guid, rec.Event.(MessageDelivered).GUID)
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for record")
		}
	}
}
