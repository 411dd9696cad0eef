package transcript

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_FetchTranscript(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/transcripts/abc123":
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`[{"start": 0.0, "text": "hello"}, {"start": 1.5, "text": "world"}]`))
		case "/transcripts/nocaps":
			http.NotFound(w, r)
		case "/transcripts/empty":
			w.Write([]byte(`null`))
		default:
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte("upstream exploded"))
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/", time.Second)
	ctx := context.Background()

	segs, err := c.FetchTranscript(ctx, "abc123")
	require.NoError(t, err)
	assert.Equal(t, []Segment{{Start: 0, Text: "hello"}, {Start: 1.5, Text: "world"}}, segs)

	segs, err = c.FetchTranscript(ctx, "nocaps")
	require.NoError(t, err)
	assert.NotNil(t, segs)
	assert.Empty(t, segs)

	segs, err = c.FetchTranscript(ctx, "empty")
	require.NoError(t, err)
	assert.NotNil(t, segs)
	assert.Empty(t, segs)

	_, err = c.FetchTranscript(ctx, "boom")
	require.ErrorIs(t, err, ErrTranscript)
	assert.Contains(t, err.Error(), "status 500")
}

func TestJoin(t *testing.T) {
	segs := []Segment{{Text: " one "}, {Text: ""}, {Text: "two"}, {Text: "three"}}

	assert.Equal(t, "one two three", Join(segs, 0))
	assert.Equal(t, "one two three", Join(segs, 100))
	assert.Equal(t, "one two", Join(segs, 10))
	assert.Equal(t, "", Join(nil, 10))
}

type countingFetcher struct {
	calls    atomic.Int32
	segments []Segment
	err      error
}

func (f *countingFetcher) FetchTranscript(context.Context, string) ([]Segment, error) {
	f.calls.Add(1)
	return f.segments, f.err
}

func TestCachedFetcher_CachesNonEmpty(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	next := &countingFetcher{segments: []Segment{{Start: 0, Text: "cached"}}}
	c := NewCachedFetcher(next, rdb, time.Hour)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		segs, err := c.FetchTranscript(ctx, "v1")
		require.NoError(t, err)
		assert.Equal(t, "cached", segs[0].Text)
	}
	assert.Equal(t, int32(1), next.calls.Load())
	assert.True(t, mr.Exists("transcript:v1"))
	assert.Equal(t, time.Hour, mr.TTL("transcript:v1"))
}

func TestCachedFetcher_DoesNotCacheEmptyOrErrors(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	ctx := context.Background()

	empty := &countingFetcher{segments: []Segment{}}
	c := NewCachedFetcher(empty, rdb, time.Hour)
	_, _ = c.FetchTranscript(ctx, "v2")
	_, _ = c.FetchTranscript(ctx, "v2")
	assert.Equal(t, int32(2), empty.calls.Load())
	assert.False(t, mr.Exists("transcript:v2"))

	failing := &countingFetcher{err: errors.New("down")}
	c = NewCachedFetcher(failing, rdb, time.Hour)
	_, err := c.FetchTranscript(ctx, "v3")
	assert.Error(t, err)
	assert.False(t, mr.Exists("transcript:v3"))
}

func TestCachedFetcher_FailsOpenWhenRedisIsDown(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	mr.Close()

	next := &countingFetcher{segments: []Segment{{Text: "live"}}}
	c := NewCachedFetcher(next, rdb, time.Hour)

	segs, err := c.FetchTranscript(context.Background(), "v4")
	require.NoError(t, err)
	assert.Equal(t, "live", segs[0].Text)
}

func TestCachedFetcher_CorruptEntryIsRefetched(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	require.NoError(t, mr.Set("transcript:v5", "{not json"))

	next := &countingFetcher{segments: []Segment{{Text: "fresh"}}}
	c := NewCachedFetcher(next, rdb, time.Hour)

	segs, err := c.FetchTranscript(context.Background(), "v5")
	require.NoError(t, err)
	assert.Equal(t, "fresh", segs[0].Text)
	assert.Equal(t, int32(1), next.calls.Load())
}
