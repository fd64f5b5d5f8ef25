// Copyright (C) 2019-2025, Lux Partners Limited. All rights reserved.
// See the file LICENSE for licensing terms.

package cache

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLRUCache(t *testing.T) {
	tests := []struct {
		name          string
		key           string
		invalidate    bool
		expectedValue int
		expectedCount int
	}{
		{
			name:          "fresh cache, fetch",
			key:           "guid1",
			expectedValue: 42,
			expectedCount: 1,
		},
		{
			name:          "use cache, no fetch",
			key:           "guid1",
			expectedValue: 42,
			expectedCount: 1,
		},
		{
			name:          "invalidate, fetch again",
			key:           "guid1",
			invalidate:    true,
			expectedValue: 42,
			expectedCount: 2,
		},
		{
			name:          "different key, fetch",
			key:           "guid2",
			expectedValue: 42,
			expectedCount: 3,
		},
	}

	cache := NewLRUCache[string, int](10)
	fetchCount := 0
	fetchFunc := func(string) (int, error) {
		fetchCount++
		return 42, nil
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require := require.New(t)

			val, err := cache.Get(tt.key, fetchFunc, tt.invalidate)
			require.NoError(err)
			require.Equal(tt.expectedValue, val)
			require.Equal(tt.expectedCount, fetchCount)
		})
	}
}

func TestLRUCacheEviction(t *testing.T) {
	require := require.New(t)

	cache := NewLRUCache[int, int](2)
	fetchCount := 0
	fetch := func(key int) (int, error) {
		fetchCount++
		return key * 10, nil
	}

	for _, key := range []int{1, 2, 3} {
		val, err := cache.Get(key, fetch, false)
		require.NoError(err)
		require.Equal(key*10, val)
	}
	require.Equal(3, fetchCount)

	// Key 1 was evicted by key 3; fetching it again counts.
	_, err := cache.Get(1, fetch, false)
	require.NoError(err)
	require.Equal(4, fetchCount)
}
