package phc

import (
	"context"
	"sync"
	"testing"

	"github.com/pubhubs/pubhubs-core/apierr"
	"github.com/stretchr/testify/require"
)

func TestNewObjectThenGetRoundTrips(t *testing.T) {
	h := newTestHarness(t)
	bearer, _ := registerUserForTest(t, h)

	created, aerr := h.Server.NewObject(context.Background(), bearer, NewObjectRequest{ID: "obj-1", Data: []byte("hello")})
	require.Nil(t, aerr)
	require.NotEmpty(t, created.ETag)

	got, aerr := h.Server.GetObject(context.Background(), bearer, "obj-1")
	require.Nil(t, aerr)
	require.Equal(t, []byte("hello"), got.Data)
	require.Equal(t, created.ETag, got.ETag)
}

// TestConcurrentOverwriteObjectExactlyOneWinner checks that two
// concurrent OverwriteObject calls sharing the same stale ETag leave
// exactly one winner, with the other rejected as apierr.VersionConflict.
func TestConcurrentOverwriteObjectExactlyOneWinner(t *testing.T) {
	h := newTestHarness(t)
	bearer, _ := registerUserForTest(t, h)

	created, aerr := h.Server.NewObject(context.Background(), bearer, NewObjectRequest{ID: "obj-1", Data: []byte("v0")})
	require.Nil(t, aerr)

	const attempts = 8
	var wg sync.WaitGroup
	successes := make([]bool, attempts)
	codes := make([]*apierr.Error, attempts)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, aerr := h.Server.OverwriteObject(context.Background(), bearer, OverwriteObjectRequest{
				ID:   "obj-1",
				Data: []byte("v1"),
				ETag: created.ETag,
			})
			successes[i] = aerr == nil
			codes[i] = aerr
		}(i)
	}
	wg.Wait()

	winners := 0
	for i, ok := range successes {
		if ok {
			winners++
			continue
		}
		require.Equal(t, apierr.VersionConflict, codes[i].Code)
	}
	require.Equal(t, 1, winners, "exactly one concurrent overwrite of the same etag must succeed")
}

func TestOverwriteObjectRejectsStaleETag(t *testing.T) {
	h := newTestHarness(t)
	bearer, _ := registerUserForTest(t, h)

	_, aerr := h.Server.NewObject(context.Background(), bearer, NewObjectRequest{ID: "obj-1", Data: []byte("v0")})
	require.Nil(t, aerr)

	_, aerr = h.Server.OverwriteObject(context.Background(), bearer, OverwriteObjectRequest{
		ID:   "obj-1",
		Data: []byte("v1"),
		ETag: "not-the-real-etag",
	})
	require.NotNil(t, aerr)
	require.Equal(t, apierr.VersionConflict, aerr.Code)
}

func TestGetObjectRejectsUnknownID(t *testing.T) {
	h := newTestHarness(t)
	bearer, _ := registerUserForTest(t, h)

	_, aerr := h.Server.GetObject(context.Background(), bearer, "no-such-object")
	require.NotNil(t, aerr)
}
