package numtrie

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/numtrie/blobstore"
	"github.com/hupe1980/numtrie/internal/resource"
	"github.com/hupe1980/numtrie/trie"
)

func snapshotFixture(t *testing.T, optFns ...Option) *Store {
	t.Helper()

	s := New(append([]Option{WithFieldStep("price", 4)}, optFns...)...)
	ctx := context.Background()

	docs := make([]uint32, 0, 1000)
	vals := make([]int64, 0, 1000)
	for i := range 1000 {
		docs = append(docs, uint32(i))
		vals = append(vals, int64(i)*37-18500)
	}
	require.NoError(t, s.BulkInsert(ctx, "price", docs, vals))
	s.Seal()
	return s
}

func TestSnapshot_RoundTrip(t *testing.T) {
	schemes := []struct {
		name   string
		scheme Compression
	}{
		{"none", CompressionNone},
		{"s2", CompressionS2},
		{"zstd", CompressionZstd},
		{"lz4", CompressionLZ4},
	}

	for _, tc := range schemes {
		t.Run(tc.name, func(t *testing.T) {
			ctx := context.Background()
			s := snapshotFixture(t, WithCompression(tc.scheme))
			bs := blobstore.NewMemoryStore()

			require.NoError(t, s.SaveSnapshot(ctx, bs, "snap.bin"))

			loaded, err := LoadSnapshot(ctx, bs, "snap.bin")
			require.NoError(t, err)
			require.True(t, loaded.IsSealed())
			assert.Equal(t, uint(4), loaded.StepFor("price"))

			// Loaded store answers queries identically.
			r := trie.Between(-500, 500)
			want, err := s.RangeSearch(ctx, "price", r, WithSortByValue(false))
			require.NoError(t, err)
			got, err := loaded.RangeSearch(ctx, "price", r, WithSortByValue(false))
			require.NoError(t, err)
			assert.Equal(t, want.Docs, got.Docs)
			assert.Equal(t, want.TermCount, got.TermCount)
			assert.NotEmpty(t, got.Docs)

			v, ok := loaded.Value("price", got.Docs[0])
			require.True(t, ok)
			assert.True(t, r.Contains(v))
		})
	}
}

func TestSnapshot_UnsealedFails(t *testing.T) {
	s := New()
	err := s.SaveSnapshot(context.Background(), blobstore.NewMemoryStore(), "snap.bin")
	require.ErrorIs(t, err, ErrNotSealed)
}

func TestSnapshot_Missing(t *testing.T) {
	_, err := LoadSnapshot(context.Background(), blobstore.NewMemoryStore(), "nope.bin")
	require.ErrorIs(t, err, blobstore.ErrNotFound)
}

func TestSnapshot_Corrupt(t *testing.T) {
	ctx := context.Background()
	s := snapshotFixture(t)
	bs := blobstore.NewMemoryStore()
	require.NoError(t, s.SaveSnapshot(ctx, bs, "snap.bin"))

	blob, err := bs.Open(ctx, "snap.bin")
	require.NoError(t, err)
	data, err := blobstore.ReadAll(blob)
	require.NoError(t, err)
	require.NoError(t, blob.Close())

	t.Run("bad magic", func(t *testing.T) {
		bad := append([]byte(nil), data...)
		bad[0] ^= 0xFF
		require.NoError(t, bs.Put(ctx, "bad.bin", bad))

		_, err := LoadSnapshot(ctx, bs, "bad.bin")
		require.ErrorIs(t, err, ErrSnapshotCorrupt)
	})

	t.Run("bad version", func(t *testing.T) {
		bad := append([]byte(nil), data...)
		bad[5] = 99
		require.NoError(t, bs.Put(ctx, "bad.bin", bad))

		_, err := LoadSnapshot(ctx, bs, "bad.bin")
		var version *ErrSnapshotVersion
		require.ErrorAs(t, err, &version)
		assert.EqualValues(t, 99, version.Version)
	})

	t.Run("flipped payload byte", func(t *testing.T) {
		bad := append([]byte(nil), data...)
		bad[len(bad)/2] ^= 0xFF
		require.NoError(t, bs.Put(ctx, "bad.bin", bad))

		_, err := LoadSnapshot(ctx, bs, "bad.bin")
		require.ErrorIs(t, err, ErrSnapshotCorrupt)
	})

	t.Run("truncated", func(t *testing.T) {
		require.NoError(t, bs.Put(ctx, "bad.bin", data[:10]))

		_, err := LoadSnapshot(ctx, bs, "bad.bin")
		require.ErrorIs(t, err, ErrSnapshotCorrupt)
	})

	t.Run("unknown scheme", func(t *testing.T) {
		bad := append([]byte(nil), data...)
		bad[6] = 200
		require.NoError(t, bs.Put(ctx, "bad.bin", bad))

		_, err := LoadSnapshot(ctx, bs, "bad.bin")
		var unknown *ErrUnknownCompression
		require.ErrorAs(t, err, &unknown)
	})
}

func TestSnapshot_LocalStore(t *testing.T) {
	ctx := context.Background()
	s := snapshotFixture(t)

	bs, err := blobstore.NewLocalStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, s.SaveSnapshot(ctx, bs, "snap.bin"))

	loaded, err := LoadSnapshot(ctx, bs, "snap.bin")
	require.NoError(t, err)

	res, err := loaded.RangeSearch(ctx, "price", trie.AtLeast(18000))
	require.NoError(t, err)
	assert.NotEmpty(t, res.Docs)
}

// Snapshot IO runs through the resource controller. The limit is chosen
// below the snapshot size, so the transfer must be acquired in chunks; a
// save of more bytes than the limiter's burst has to throttle, not fail.
func TestSnapshot_Throttled(t *testing.T) {
	ctx := context.Background()
	bs := blobstore.NewMemoryStore()

	// Unthrottled save to learn the snapshot size.
	require.NoError(t, snapshotFixture(t).SaveSnapshot(ctx, bs, "probe-size.bin"))
	blob, err := bs.Open(ctx, "probe-size.bin")
	require.NoError(t, err)
	size := blob.Size()
	require.NoError(t, blob.Close())

	limit := size / 2
	require.Positive(t, limit, "fixture snapshot too small to throttle")

	s := snapshotFixture(t, WithResourceLimits(resource.Config{
		IOBytesPerSec:     limit,
		MaxBackgroundJobs: 1,
	}))

	require.NoError(t, s.SaveSnapshot(ctx, bs, "snap.bin"))

	loaded, err := LoadSnapshot(ctx, bs, "snap.bin", WithResourceLimits(resource.Config{
		IOBytesPerSec: limit,
	}))
	require.NoError(t, err)
	assert.True(t, loaded.IsSealed())
}

// Snapshot buffers count against the configured memory limit.
func TestSnapshot_MemoryLimit(t *testing.T) {
	ctx := context.Background()
	bs := blobstore.NewMemoryStore()

	s := snapshotFixture(t, WithResourceLimits(resource.Config{MemoryLimitBytes: 16}))
	err := s.SaveSnapshot(ctx, bs, "snap.bin")
	require.ErrorIs(t, err, resource.ErrMemoryLimitExceeded)

	require.NoError(t, snapshotFixture(t).SaveSnapshot(ctx, bs, "snap.bin"))
	_, err = LoadSnapshot(ctx, bs, "snap.bin", WithResourceLimits(resource.Config{MemoryLimitBytes: 16}))
	require.ErrorIs(t, err, resource.ErrMemoryLimitExceeded)
}

func TestSnapshot_FieldNameTooLong(t *testing.T) {
	ctx := context.Background()

	s := New(WithFieldStep(strings.Repeat("x", 1<<16), 4))
	require.NoError(t, s.Insert(ctx, "ok", 1, 42))
	s.Seal()

	err := s.SaveSnapshot(ctx, blobstore.NewMemoryStore(), "snap.bin")
	require.ErrorContains(t, err, "field name too long")
}
