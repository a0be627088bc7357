package cache

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vkgeo/pkg/config"
	"vkgeo/pkg/geo"
	"vkgeo/pkg/logger"
)

func sampleRecords(t *testing.T) []geo.Record {
	t.Helper()
	inputs := []struct {
		lat, long float64
		desc      string
		created   time.Time
	}{
		{55.75, 37.61, "Red Square", time.Date(2023, 11, 14, 22, 13, 20, 0, time.UTC)},
		{55.7501, 37.6101, "", time.Date(2023, 11, 15, 8, 0, 0, 0, time.UTC)},
		{-33.8568, 151.2153, `quoted "opera", with comma`, time.Date(2020, 1, 2, 3, 4, 5, 0, time.UTC)},
	}
	records := make([]geo.Record, 0, len(inputs))
	for i, in := range inputs {
		r, err := geo.NewRecord(in.lat, in.long,
			"https://img/"+string(rune('a'+i)),
			"https://vk.com/albums42?z=photo42_"+string(rune('1'+i)),
			in.desc, in.created)
		require.NoError(t, err)
		records = append(records, r)
	}
	return records
}

func assertSameRecords(t *testing.T, want, got []geo.Record) {
	t.Helper()
	require.Len(t, got, len(want))
	for i := range want {
		assert.InDelta(t, want[i].Latitude(), got[i].Latitude(), 1e-9)
		assert.InDelta(t, want[i].Longitude(), got[i].Longitude(), 1e-9)
		assert.Equal(t, want[i].SourceURL(), got[i].SourceURL())
		assert.Equal(t, want[i].ProfileLink(), got[i].ProfileLink())
		assert.Equal(t, want[i].Description(), got[i].Description())
		assert.True(t, want[i].CreatedAt().Equal(got[i].CreatedAt()), "record %d created", i)
	}
}

func storeRoundTrip(t *testing.T, store Store) {
	ctx := context.Background()
	records := sampleRecords(t)

	_, ok, err := store.Load(ctx, "42")
	require.NoError(t, err)
	assert.False(t, ok, "nothing cached yet")

	require.NoError(t, store.Save(ctx, "42", records))
	got, ok, err := store.Load(ctx, "42")
	require.NoError(t, err)
	require.True(t, ok)
	assertSameRecords(t, records, got)

	require.NoError(t, store.Save(ctx, "42", records[:1]))
	got, ok, err = store.Load(ctx, "42")
	require.NoError(t, err)
	require.True(t, ok)
	assertSameRecords(t, records[:1], got)

	require.NoError(t, store.Save(ctx, "99", nil))
	got, ok, err = store.Load(ctx, "99")
	require.NoError(t, err)
	assert.True(t, ok, "an empty collection is still cached")
	assert.Empty(t, got)

	require.NoError(t, store.Delete(ctx, "42"))
	_, ok, err = store.Load(ctx, "42")
	require.NoError(t, err)
	assert.False(t, ok)
	require.NoError(t, store.Delete(ctx, "42"), "deleting twice is fine")
}

func TestCSVStoreRoundTrip(t *testing.T) {
	store, err := NewCSVStore(t.TempDir(), logger.NewNopLogger())
	require.NoError(t, err)
	storeRoundTrip(t, store)
}

func TestSQLiteStoreRoundTrip(t *testing.T) {
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "cache.db"), logger.NewNopLogger())
	require.NoError(t, err)
	defer store.Close()
	storeRoundTrip(t, store)
}

func TestMemoryStoreRoundTrip(t *testing.T) {
	storeRoundTrip(t, NewMemoryStore(time.Minute))
}

func TestLayeredStoreRoundTrip(t *testing.T) {
	durable, err := NewCSVStore(t.TempDir(), logger.NewNopLogger())
	require.NoError(t, err)
	storeRoundTrip(t, NewLayered(NewMemoryStore(time.Minute), durable, logger.NewNopLogger()))
}

func TestLayeredWarmsFront(t *testing.T) {
	ctx := context.Background()
	durable, err := NewCSVStore(t.TempDir(), logger.NewNopLogger())
	require.NoError(t, err)
	front := NewMemoryStore(time.Minute)
	require.NoError(t, durable.Save(ctx, "7", sampleRecords(t)))

	layered := NewLayered(front, durable, logger.NewNopLogger())
	got, ok, err := layered.Load(ctx, "7")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Len(t, got, 3)
	assert.Equal(t, 1, front.Len())
}

func TestCSVFileFormat(t *testing.T) {
	dir := t.TempDir()
	store, err := NewCSVStore(dir, logger.NewNopLogger())
	require.NoError(t, err)
	require.NoError(t, store.Save(context.Background(), "42", sampleRecords(t)[:1]))

	data, err := os.ReadFile(filepath.Join(dir, "42_geo.csv"))
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "lat,long,source,profile_link,description,created", lines[0])
	assert.Equal(t, "55.75,37.61,https://img/a,https://vk.com/albums42?z=photo42_1,Red Square,2023-11-14 22:13:20", lines[1])

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temporary files are left behind")
}

func TestReadCSVRejectsBadInput(t *testing.T) {
	cases := map[string]string{
		"empty":        "",
		"bad header":   "lat,lng,source,profile_link,description,created\n",
		"bad lat":      "lat,long,source,profile_link,description,created\nx,1,s,p,d,2020-01-01 00:00:00\n",
		"bad created":  "lat,long,source,profile_link,description,created\n1,1,s,p,d,yesterday\n",
		"out of range": "lat,long,source,profile_link,description,created\n100,1,s,p,d,2020-01-01 00:00:00\n",
	}
	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ReadCSV(strings.NewReader(input))
			assert.Error(t, err)
		})
	}
}

func TestWriteReadCSVPreservesOrder(t *testing.T) {
	var buf bytes.Buffer
	records := sampleRecords(t)
	require.NoError(t, WriteCSV(&buf, records))

	got, err := ReadCSV(&buf)
	require.NoError(t, err)
	assertSameRecords(t, records, got)
}

func TestValidateProfileID(t *testing.T) {
	for _, id := range []string{"42", "-1234", "durov", "id_1.a"} {
		assert.NoError(t, ValidateProfileID(id), id)
	}
	for _, id := range []string{"", "..", "../etc/passwd", "a/b", "with space"} {
		assert.ErrorIs(t, ValidateProfileID(id), ErrInvalidProfileID, id)
	}
}

func TestNewSelectsBackend(t *testing.T) {
	dir := t.TempDir()

	store, err := New(config.CacheConfig{Backend: config.BackendCSV, Directory: dir}, nil)
	require.NoError(t, err)
	assert.IsType(t, &CSVStore{}, store)

	store, err = New(config.CacheConfig{Backend: config.BackendMemory}, nil)
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, store)

	store, err = New(config.CacheConfig{Backend: "Memory"}, nil)
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, store)

	store, err = New(config.CacheConfig{Backend: config.BackendCSV, Directory: dir, Layered: true, MemoryTTL: time.Minute}, nil)
	require.NoError(t, err)
	assert.IsType(t, &Layered{}, store)

	_, err = New(config.CacheConfig{Backend: "redis"}, nil)
	assert.Error(t, err)
}
