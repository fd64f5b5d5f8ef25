// Copyright (C) 2019-2025, Lux Partners Limited. All rights reserved.
// See the file LICENSE for licensing terms.

package relayer

import (
	"context"
	"sync"

	"github.com/luxfi/ids"

	"github.com/luxfi/omni"
)

// FakeSubmitter is a test implementation of Submitter that records every
// submission and returns a scripted error.
type FakeSubmitter struct {
	// Err is returned by every Submit call
	Err error

	lock        sync.Mutex
	submissions []Submission
}

// Submission is one recorded Submit call
type Submission struct {
	OriginChain omni.ChainID
	GUID        ids.ID
	Payload     []byte
	Receiver    ids.ID
	Fee         uint64
}

var _ Submitter = (*FakeSubmitter)(nil)

func (f *FakeSubmitter) Submit(
	_ context.Context,
	originChain omni.ChainID,
	guid ids.ID,
	payload []byte,
	receiver ids.ID,
	fee uint64,
) error {
	f.lock.Lock()
	defer f.lock.Unlock()

	f.submissions = append(f.submissions, Submission{
		OriginChain: originChain,
		GUID:        guid,
		Payload:     payload,
		Receiver:    receiver,
		Fee:         fee,
	})
	return f.Err
}

// Submissions returns a copy of the recorded Submit calls
func (f *FakeSubmitter) Submissions() []Submission {
	f.lock.Lock()
	defer f.lock.Unlock()

	out := make([]Submission, len(f.submissions))
	copy(out, f.submissions)
	return out
}
