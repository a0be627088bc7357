package pipeline

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vkgeo/pkg/cache"
	"vkgeo/pkg/config"
	errs "vkgeo/pkg/errors"
	"vkgeo/pkg/geo"
	"vkgeo/pkg/logger"
	"vkgeo/pkg/paging"
	"vkgeo/pkg/photos"
	"vkgeo/pkg/vk"
)

func ptr(v float64) *float64 { return &v }

type fakeLister struct {
	listing *photos.Listing
	err     error
	calls   int
}

func (f *fakeLister) List(ctx context.Context, ownerID string) (*photos.Listing, error) {
	f.calls++
	return f.listing, f.err
}

type fakeEnricher struct {
	byID    map[vk.CompositeID]vk.Photo
	err     error
	batches [][]vk.CompositeID
}

func (f *fakeEnricher) EnrichByIDs(ctx context.Context, ids []vk.CompositeID) ([]vk.Photo, error) {
	f.batches = append(f.batches, ids)
	if f.err != nil {
		return nil, f.err
	}
	out := []vk.Photo{}
	for _, id := range ids {
		if p, ok := f.byID[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

type countingStore struct {
	cache.Store
	loadErr error
	saveErr error
	saves   int
}

func (s *countingStore) Load(ctx context.Context, id string) ([]geo.Record, bool, error) {
	if s.loadErr != nil {
		return nil, false, s.loadErr
	}
	return s.Store.Load(ctx, id)
}

func (s *countingStore) Save(ctx context.Context, id string, records []geo.Record) error {
	s.saves++
	if s.saveErr != nil {
		return s.saveErr
	}
	return s.Store.Save(ctx, id, records)
}

func newStore() *countingStore {
	return &countingStore{Store: cache.NewMemoryStore(time.Minute)}
}

func geoPhoto(owner, id int64, lat, long float64) vk.Photo {
	return vk.Photo{ID: id, OwnerID: owner, Date: 1700000000 + id, Lat: ptr(lat), Long: ptr(long), URL: "https://img/" + strconv.FormatInt(id, 10)}
}

func enricherFor(list ...vk.Photo) *fakeEnricher {
	f := &fakeEnricher{byID: map[vk.CompositeID]vk.Photo{}}
	for _, p := range list {
		f.byID[p.CompositeID()] = p
	}
	return f
}

// Profile 42 has three photos, two geotagged a few metres apart, served two per page.
func TestLocateScenario42(t *testing.T) {
	hc := &http.Client{}
	httpmock.ActivateNonDefault(hc)
	defer httpmock.DeactivateAndReset()

	pages := map[string]string{
		"0": `{"response":{"count":3,"items":[
			{"id":1,"owner_id":42,"date":1700000000,"lat":55.75,"long":37.61,"sizes":[{"url":"s1","width":100}]},
			{"id":2,"owner_id":42,"date":1700000050,"sizes":[{"url":"s2","width":100}]}]}}`,
		"2": `{"response":{"count":3,"items":[
			{"id":3,"owner_id":42,"date":1700000100,"lat":55.7501,"long":37.6101,"sizes":[{"url":"s3","width":100}]}]}}`,
	}
	var listOffsets []string
	httpmock.RegisterResponder("GET", "https://api.vk.com/method/photos.getAll", func(req *http.Request) (*http.Response, error) {
		offset := req.URL.Query().Get("offset")
		listOffsets = append(listOffsets, offset)
		return httpmock.NewStringResponse(200, pages[offset]), nil
	})
	var enrichedIDs string
	httpmock.RegisterResponder("GET", "https://api.vk.com/method/photos.getById", func(req *http.Request) (*http.Response, error) {
		enrichedIDs = req.URL.Query().Get("photos")
		return httpmock.NewStringResponse(200, `{"response":[
			{"id":1,"owner_id":42,"date":1700000000,"text":"first","lat":55.75,"long":37.61,
			 "sizes":[{"url":"small-1","width":130},{"url":"wide-1","width":2560},{"url":"mid-1","width":807}]},
			{"id":3,"owner_id":42,"date":1700000100,"lat":55.7501,"long":37.6101,
			 "sizes":[{"url":"wide-3","width":1280},{"url":"small-3","width":75}]}]}`), nil
	})

	client := vk.NewClient(config.VKConfig{AccessToken: "t"}, vk.WithHTTPClient(hc), vk.WithLogger(logger.NewNopLogger()))
	log := logger.NewNopLogger()
	store := newStore()
	p := New(
		photos.NewLister(paging.NewFetcher(client, log, nil), 2, log),
		photos.NewBatchEnricher(client, log),
		store,
		WithLogger(log),
	)

	out := p.Locate(context.Background(), "42")
	require.NoError(t, out.Err)
	assert.Equal(t, Success, out.Status)
	assert.Equal(t, []string{"0", "2"}, listOffsets)
	assert.Equal(t, "42_1,42_3", enrichedIDs)
	assert.Equal(t, []State{StateCacheCheck, StateFetching, StateEnriching, StateBuilding, StatePersisted}, out.Trace)

	require.Len(t, out.Records, 2)
	assert.Equal(t, "wide-1", out.Records[0].SourceURL())
	assert.Equal(t, "wide-3", out.Records[1].SourceURL())
	assert.Equal(t, "https://vk.com/albums42?z=photo42_1", out.Records[0].ProfileLink())
	assert.Equal(t, "first", out.Records[0].Description())
	assert.True(t, out.Records[0].Equals(out.Records[1], geo.DefaultThreshold))

	cached, ok, err := store.Load(context.Background(), "42")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Len(t, cached, 2)

	calls := httpmock.GetTotalCallCount()
	again := p.Locate(context.Background(), "42")
	assert.True(t, again.FromCache)
	assert.Equal(t, calls, httpmock.GetTotalCallCount(), "second locate is served from cache")
	assert.NotEqual(t, out.RequestID, again.RequestID)
}

// Profile 99 has photos but none geotagged.
func TestLocateScenario99(t *testing.T) {
	lister := &fakeLister{listing: &photos.Listing{
		Photos:   []vk.Photo{{ID: 1, OwnerID: 99}, {ID: 2, OwnerID: 99, Lat: ptr(1)}, {ID: 3, OwnerID: 99}},
		Total:    3,
		Complete: true,
	}}
	enricher := enricherFor()
	store := newStore()

	out := New(lister, enricher, store, WithLogger(logger.NewNopLogger())).Locate(context.Background(), "99")

	assert.Equal(t, NotFound, out.Status)
	assert.NoError(t, out.Err)
	assert.Empty(t, out.Records)
	assert.Empty(t, enricher.batches, "no enrichment call without geotagged photos")
	assert.Equal(t, []State{StateCacheCheck, StateFetching, StatePersisted}, out.Trace)
	assert.Equal(t, 1, store.saves)

	records, ok, err := store.Load(context.Background(), "99")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Empty(t, records)
}

// Profile 7 is already cached.
func TestLocateScenario7CacheHit(t *testing.T) {
	store := newStore()
	rec, err := geo.NewRecord(59.93, 30.31, "src", "link", "cached", time.Unix(1600000000, 0))
	require.NoError(t, err)
	require.NoError(t, store.Save(context.Background(), "7", []geo.Record{rec}))
	store.saves = 0

	lister := &fakeLister{err: errors.New("must not be called")}
	enricher := enricherFor()
	out := New(lister, enricher, store, WithLogger(logger.NewNopLogger())).Locate(context.Background(), "7")

	assert.Equal(t, Success, out.Status)
	assert.True(t, out.FromCache)
	assert.Equal(t, []State{StateCacheCheck, StateCacheHit}, out.Trace)
	assert.Equal(t, 0, lister.calls)
	assert.Empty(t, enricher.batches)
	assert.Equal(t, 0, store.saves)
	require.Len(t, out.Records, 1)
	assert.Equal(t, "cached", out.Records[0].Description())
}

func TestLocateCachedEmptyCollectionIsNotFound(t *testing.T) {
	store := newStore()
	require.NoError(t, store.Save(context.Background(), "5", nil))

	out := New(&fakeLister{}, enricherFor(), store, WithLogger(logger.NewNopLogger())).Locate(context.Background(), "5")
	assert.Equal(t, NotFound, out.Status)
	assert.True(t, out.FromCache)
}

func TestRefreshBypassesCache(t *testing.T) {
	store := newStore()
	require.NoError(t, store.Save(context.Background(), "7", nil))

	photo := geoPhoto(7, 1, 10, 20)
	lister := &fakeLister{listing: &photos.Listing{Photos: []vk.Photo{photo}, Total: 1, Complete: true}}
	out := New(lister, enricherFor(photo), store, WithLogger(logger.NewNopLogger())).Refresh(context.Background(), "7")

	assert.Equal(t, Success, out.Status)
	assert.False(t, out.FromCache)
	assert.False(t, out.Visited(StateCacheCheck))
	assert.Equal(t, 1, lister.calls)

	records, _, err := store.Load(context.Background(), "7")
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestLocateListingFailure(t *testing.T) {
	upstream := &errs.Error{Type: errs.ErrorTypeAccessDenied, Code: errs.CodeProfilePrivate, Message: "This profile is private"}
	store := newStore()
	out := New(&fakeLister{err: upstream}, enricherFor(), store, WithLogger(logger.NewNopLogger())).Locate(context.Background(), "13")

	assert.Equal(t, UpstreamError, out.Status)
	assert.ErrorIs(t, out.Err, upstream)
	assert.Equal(t, errs.ErrorTypeAccessDenied, errs.TypeOf(out.Err))
	assert.Equal(t, 0, store.saves)
}

func TestLocatePartialListingIsNotPersisted(t *testing.T) {
	photo := geoPhoto(8, 1, 10, 20)
	lister := &fakeLister{
		listing: &photos.Listing{Photos: []vk.Photo{photo}, Total: 400},
		err:     errors.New("page 2 failed"),
	}
	store := newStore()
	out := New(lister, enricherFor(photo), store, WithLogger(logger.NewNopLogger())).Locate(context.Background(), "8")

	assert.Equal(t, Success, out.Status)
	assert.True(t, out.Partial)
	assert.Error(t, out.Err)
	assert.Len(t, out.Records, 1)
	assert.False(t, out.Visited(StatePersisted))
	assert.Equal(t, 0, store.saves)
}

func TestLocatePartialListingWithoutGeotagsIsUpstreamError(t *testing.T) {
	lister := &fakeLister{
		listing: &photos.Listing{Photos: []vk.Photo{{ID: 1, OwnerID: 8}}, Total: 400},
		err:     errors.New("page 2 failed"),
	}
	out := New(lister, enricherFor(), newStore(), WithLogger(logger.NewNopLogger())).Locate(context.Background(), "8")

	assert.Equal(t, UpstreamError, out.Status)
	assert.True(t, out.Partial)
}

func TestLocateEnrichmentFailureIsNotEmptySuccess(t *testing.T) {
	photo := geoPhoto(3, 1, 10, 20)
	lister := &fakeLister{listing: &photos.Listing{Photos: []vk.Photo{photo}, Total: 1, Complete: true}}
	enricher := &fakeEnricher{err: &errs.Error{Type: errs.ErrorTypeServerError, Code: errs.CodeInternal}}
	store := newStore()

	out := New(lister, enricher, store, WithLogger(logger.NewNopLogger())).Locate(context.Background(), "3")
	assert.Equal(t, UpstreamError, out.Status)
	assert.Equal(t, errs.ErrorTypeServerError, errs.TypeOf(out.Err))
	assert.Equal(t, 0, store.saves)
}

func TestLocateChunksEnrichment(t *testing.T) {
	var all []vk.Photo
	for i := int64(1); i <= 5; i++ {
		all = append(all, geoPhoto(4, i, float64(i), float64(i)))
	}
	lister := &fakeLister{listing: &photos.Listing{Photos: all, Total: 5, Complete: true}}
	enricher := enricherFor(all...)

	out := New(lister, enricher, newStore(), WithBatchSize(2), WithLogger(logger.NewNopLogger())).Locate(context.Background(), "4")
	require.Equal(t, Success, out.Status)
	assert.Len(t, out.Records, 5)
	require.Len(t, enricher.batches, 3)
	assert.Equal(t, []vk.CompositeID{"4_5"}, enricher.batches[2])
}

func TestLocateSkipsInvalidPhotos(t *testing.T) {
	good := geoPhoto(6, 1, 10, 20)
	bad := geoPhoto(6, 2, 95, 20)
	untagged := vk.Photo{ID: 3, OwnerID: 6}
	lister := &fakeLister{listing: &photos.Listing{Photos: []vk.Photo{good, bad, geoPhoto(6, 3, 1, 1)}, Complete: true}}
	enricher := enricherFor(good, bad, untagged)
	log := logger.NewTestLogger()

	out := New(lister, enricher, newStore(), WithLogger(log)).Locate(context.Background(), "6")
	assert.Equal(t, Success, out.Status)
	require.Len(t, out.Records, 1)
	assert.True(t, log.HasMessage("skipping photo with invalid coordinates"))
}

func TestLocateCacheErrorsAreNotFatal(t *testing.T) {
	photo := geoPhoto(2, 1, 10, 20)
	lister := &fakeLister{listing: &photos.Listing{Photos: []vk.Photo{photo}, Total: 1, Complete: true}}
	store := newStore()
	store.loadErr = errors.New("disk unreadable")
	store.saveErr = errors.New("disk full")

	out := New(lister, enricherFor(photo), store, WithLogger(logger.NewNopLogger())).Locate(context.Background(), "2")
	assert.Equal(t, Success, out.Status)
	assert.NoError(t, out.Err)
	assert.Equal(t, 1, lister.calls)
	assert.Equal(t, 1, store.saves)
}

func TestLocateRejectsUnsafeProfileID(t *testing.T) {
	lister := &fakeLister{}
	out := New(lister, enricherFor(), newStore(), WithLogger(logger.NewNopLogger())).Locate(context.Background(), "../x")
	assert.ErrorIs(t, out.Err, cache.ErrInvalidProfileID)
	assert.Equal(t, 0, lister.calls)
}

func TestConcurrentLocatesAreIsolated(t *testing.T) {
	store := newStore()
	for i := 1; i <= 8; i++ {
		rec, err := geo.NewRecord(float64(i), float64(i), "", "", strconv.Itoa(i), time.Unix(0, 0))
		require.NoError(t, err)
		require.NoError(t, store.Save(context.Background(), strconv.Itoa(i), []geo.Record{rec}))
	}
	p := New(&fakeLister{}, enricherFor(), store, WithLogger(logger.NewNopLogger()))

	var wg sync.WaitGroup
	outcomes := make([]*Outcome, 8)
	for i := range outcomes {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			outcomes[i] = p.Locate(context.Background(), strconv.Itoa(i+1))
		}(i)
	}
	wg.Wait()

	for i, out := range outcomes {
		rec, err := out.At(0)
		require.NoError(t, err)
		assert.Equal(t, strconv.Itoa(i+1), rec.Description())
	}
}

func TestOutcomeAt(t *testing.T) {
	rec, err := geo.NewRecord(1, 2, "s", "l", "d", time.Unix(0, 0))
	require.NoError(t, err)
	out := &Outcome{Records: []geo.Record{rec}}

	got, err := out.At(0)
	require.NoError(t, err)
	assert.Equal(t, rec, got)

	_, err = out.At(1)
	assert.ErrorIs(t, err, ErrIndexOutOfRange)
	_, err = out.At(-1)
	assert.ErrorIs(t, err, ErrIndexOutOfRange)
}

func TestStatusString(t *testing.T) {
	assert.Equal(t, "success", Success.String())
	assert.Equal(t, "not_found", NotFound.String())
	assert.Equal(t, "upstream_error", UpstreamError.String())
}
