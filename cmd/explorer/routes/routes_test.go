package routes

import (
	"context"
	"database/sql"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/labstack/echo/v4"
	"github.com/lyzr/explorer/cmd/explorer/container"
	"github.com/lyzr/explorer/cmd/explorer/middleware"
	"github.com/lyzr/explorer/cmd/explorer/realtime"
	"github.com/lyzr/explorer/cmd/explorer/service"
	"github.com/lyzr/explorer/common/bootstrap"
	"github.com/lyzr/explorer/common/clients"
	"github.com/lyzr/explorer/common/config"
	"github.com/lyzr/explorer/common/kv"
	"github.com/lyzr/explorer/common/logger"
	"github.com/lyzr/explorer/common/models"
	"github.com/lyzr/explorer/common/notify"
	"github.com/lyzr/explorer/common/repository"
	"github.com/lyzr/explorer/common/store"
	"github.com/lyzr/explorer/common/tagsync"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const slashID = "a/b+c="

type memoryRecords []models.Record

func (m memoryRecords) FetchRecords(ctx context.Context, from, to int) ([]models.Record, error) {
	if from >= len(m) {
		return []models.Record{}, nil
	}
	return append([]models.Record(nil), m[from:min(to+1, len(m))]...), nil
}

type testServer struct {
	srv       *httptest.Server
	client    *clients.ExplorerClient
	container *container.Container
	mock      sqlmock.Sqlmock
}

// newTestServer wires the explorer the way main does, with in-memory
// records, a kv tag store and a sqlmock-backed version repository
func newTestServer(t *testing.T) *testServer {
	t.Helper()
	log := logger.Discard()

	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	bus := notify.NewMemoryBus(log)
	t.Cleanup(func() { bus.Close() })

	cfg := &config.Config{
		Explorer: config.ExplorerConfig{BatchSize: 2, PageSize: 2},
		Tags:     config.TagConfig{Backend: "kv"},
	}
	components := &bootstrap.Components{Config: cfg, Logger: log, Bus: bus}

	records := memoryRecords{
		{ID: "r1", CodeID: "100", CodeDisplay: "Glucose", Org: "A", Category: "Lab", Vocab: "LOINC", Count: 10},
		{ID: "r2", CodeID: "200", CodeDisplay: "Hemoglobin", Org: "A", Category: "Lab", Vocab: "LOINC", Count: 500},
		{ID: slashID, CodeID: "300", CodeDisplay: "Glucose tolerance", Org: "B", Category: "Vitals", Vocab: "SNOMED", Count: 3},
	}
	tagStore := tagsync.NewKVBackend(kv.NewMemoryStore(log))
	recordService := service.NewRecordService(store.SplitSource{Records: records, Tags: tagStore}, cfg.Explorer, nil, log)

	c := &container.Container{
		Components:    components,
		VersionRepo:   repository.NewDataVersionRepository(db),
		TagStore:      tagStore,
		RecordService: recordService,
		TagService:    service.NewTagService(tagStore, bus, recordService, nil, log),
		Hub:           realtime.NewHub(log, nil),
	}

	stop, err := c.Start(context.Background())
	require.NoError(t, err)
	t.Cleanup(stop)

	e := echo.New()
	e.Use(middleware.ExtractUsername())
	RegisterRecordRoutes(e, c)
	RegisterTagRoutes(e, c)
	RegisterRealtimeRoutes(e, c)

	srv := httptest.NewServer(e)
	t.Cleanup(srv.Close)

	return &testServer{
		srv:       srv,
		client:    clients.NewExplorerClient(srv.URL, 5*time.Second, log),
		container: c,
		mock:      mock,
	}
}

func (ts *testServer) get(t *testing.T, path string) *http.Response {
	t.Helper()
	resp, err := http.Get(ts.srv.URL + path)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestExplore(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()

	res, err := ts.client.Explore(ctx, clients.ExploreQuery{})
	require.NoError(t, err)
	assert.Equal(t, 3, res.TotalVisible)
	assert.Equal(t, 2, res.TotalPages)
	assert.True(t, res.HasNext)
	assert.Len(t, res.Records, 2)

	res, err = ts.client.Explore(ctx, clients.ExploreQuery{
		Keywords: []string{"glucose"},
		Filters:  models.FilterSelection{models.FacetOrg: {"B"}},
	})
	require.NoError(t, err)
	require.Len(t, res.Records, 1)
	assert.Equal(t, slashID, res.Records[0].ID)

	res, err = ts.client.Explore(ctx, clients.ExploreQuery{Expression: `record.count >= 500`})
	require.NoError(t, err)
	require.Len(t, res.Records, 1)
	assert.Equal(t, "r2", res.Records[0].ID)

	_, err = ts.client.Explore(ctx, clients.ExploreQuery{Expression: `record.count >=`})
	assert.ErrorIs(t, err, models.ErrValidation)

	resp := ts.get(t, "/api/v1/explore?page=two")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestFacets(t *testing.T) {
	ts := newTestServer(t)

	facets, err := ts.client.Facets(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, facets[models.FacetOrg])
	assert.Equal(t, []string{"Lab", "Vitals"}, facets[models.FacetCategory])
}

func TestRecords(t *testing.T) {
	ts := newTestServer(t)

	records, err := ts.client.FetchRecords(context.Background(), 1, 2)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "r2", records[0].ID)

	resp := ts.get(t, "/api/v1/records?from=5&to=1")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = ts.get(t, "/api/v1/records?from=0&to=1099511627775")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = ts.get(t, "/api/v1/records?from=0&to=9223372036854775807")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	records, err = ts.client.FetchRecords(context.Background(), 0, store.MaxBatchSize-1)
	require.NoError(t, err)
	assert.Len(t, records, 3)

	resp = ts.get(t, "/api/v1/records/r1")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = ts.get(t, "/api/v1/records/nope")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestTagLifecycle(t *testing.T) {
	ts := newTestServer(t)
	ctx := clients.WithUserID(context.Background(), "alice")

	tag, err := ts.client.AddTag(ctx, slashID, "  urgent ")
	require.NoError(t, err)
	assert.Equal(t, slashID, tag.RecordID)
	assert.Equal(t, "urgent", tag.Text)
	require.NotNil(t, tag.CreatedBy)
	assert.Equal(t, "alice", *tag.CreatedBy)

	_, err = ts.client.AddTag(ctx, slashID, "urgent")
	assert.ErrorIs(t, err, models.ErrConflict)

	_, err = ts.client.AddTag(ctx, slashID, "   ")
	assert.ErrorIs(t, err, models.ErrValidation)

	tags, err := ts.client.GetTags(ctx, slashID)
	require.NoError(t, err)
	require.Len(t, tags, 1)
	assert.Equal(t, tag.ID, tags[0].ID)

	all, err := ts.client.FetchAllTags(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	// the snapshot follows through the bus, so explore sees the tag
	require.Eventually(t, func() bool {
		res, err := ts.client.Explore(ctx, clients.ExploreQuery{Keywords: []string{"urgent"}})
		return err == nil && len(res.Records) == 1 && res.TagColors["urgent"].Background != ""
	}, time.Second, 10*time.Millisecond)

	require.NoError(t, ts.client.RemoveTag(ctx, tag.ID))
	assert.ErrorIs(t, ts.client.RemoveTag(ctx, tag.ID), models.ErrNotFound)

	tags, err = ts.client.GetTags(ctx, slashID)
	require.NoError(t, err)
	assert.Empty(t, tags)
}

func TestLoaderOverHTTP(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()

	_, err := ts.client.AddTag(ctx, "r2", "review needed")
	require.NoError(t, err)

	records, err := store.NewLoader(ts.client, logger.Discard(), store.WithBatchSize(2)).Load(ctx)
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, []string{"review needed"}, records[1].TagTexts())
}

func TestSessionOverHTTP(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()

	syncer := tagsync.New(ts.client, logger.Discard())
	sess, err := syncer.Open(ctx, "r1")
	require.NoError(t, err)
	defer sess.Close()

	ch, err := sess.Add(ctx, "urgent")
	require.NoError(t, err)
	require.NoError(t, (<-ch).Err)

	ch, err = sess.Add(ctx, "urgent")
	require.NoError(t, err)
	res := <-ch
	assert.True(t, tagsync.IsConflict(res.Err))

	tags := sess.Tags()
	require.Len(t, tags, 1)
	assert.Equal(t, "urgent", tags[0].Text)
	assert.False(t, tags[0].IsPlaceholder())
}

func TestWatchTags(t *testing.T) {
	ts := newTestServer(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var (
		mu     sync.Mutex
		events []notify.Event
	)
	done := make(chan error, 1)
	go func() {
		done <- ts.client.WatchTags(ctx, slashID, func(e notify.Event) {
			mu.Lock()
			events = append(events, e)
			mu.Unlock()
		})
	}()

	require.Eventually(t, func() bool {
		return ts.container.Hub.GetConnectionCount() == 1
	}, time.Second, 5*time.Millisecond)

	tag, err := ts.client.AddTag(context.Background(), slashID, "urgent")
	require.NoError(t, err)
	_, err = ts.client.AddTag(context.Background(), "r1", "elsewhere")
	require.NoError(t, err)
	require.NoError(t, ts.client.RemoveTag(context.Background(), tag.ID))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(events) == 2
	}, time.Second, 5*time.Millisecond)

	mu.Lock()
	assert.Equal(t, notify.EventTagAdded, events[0].Type)
	assert.Equal(t, notify.EventTagRemoved, events[1].Type)
	assert.Equal(t, slashID, events[1].RecordID)
	mu.Unlock()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("watch did not stop")
	}
}

func TestReload(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Post(ts.srv.URL+"/api/v1/records/reload", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestVersions(t *testing.T) {
	ts := newTestServer(t)
	columns := []string{"version", "record_count", "is_active", "notes", "created_at"}
	now := time.Now()

	ts.mock.ExpectQuery(`FROM data_versions`).
		WillReturnRows(sqlmock.NewRows(columns).
			AddRow("v2", 3, true, nil, now).
			AddRow("v1", 2, false, "first import", now))
	ts.mock.ExpectQuery(`FROM data_versions`).
		WillReturnError(sql.ErrNoRows)

	resp := ts.get(t, "/api/v1/versions")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `"version":"v2"`)
	assert.Contains(t, string(body), `"active":null`)
	assert.NoError(t, ts.mock.ExpectationsWereMet())
}
