package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/docopt/docopt-go"
	"github.com/lyzr/explorer/common/clients"
	"github.com/lyzr/explorer/common/config"
	"github.com/lyzr/explorer/common/logger"
	"github.com/lyzr/explorer/common/models"
	"github.com/lyzr/explorer/common/tagsync"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubAPI serves the handful of explorer endpoints the CLI calls
type stubAPI struct {
	mu      sync.Mutex
	records []models.Record
	tags    []models.Tag
	nextID  int
}

func (s *stubAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	write := func(status int, body interface{}) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(body)
	}

	switch {
	case r.Method == http.MethodGet && r.URL.Path == "/api/v1/records":
		records := s.records
		if r.URL.Query().Get("from") != "0" {
			records = nil
		}
		write(http.StatusOK, map[string]interface{}{"records": records, "count": len(records)})

	case r.Method == http.MethodGet && r.URL.Path == "/api/v1/tags":
		write(http.StatusOK, map[string]interface{}{"tags": s.tags, "count": len(s.tags)})

	case r.Method == http.MethodGet && r.URL.Path == "/api/v1/records/r1/tags":
		write(http.StatusOK, map[string]interface{}{"record_id": "r1", "tags": s.tags})

	case r.Method == http.MethodPost && r.URL.Path == "/api/v1/records/r1/tags":
		var req struct {
			TagText string `json:"tag_text"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		for _, t := range s.tags {
			if t.Text == req.TagText {
				write(http.StatusConflict, map[string]interface{}{"error": "tag already exists"})
				return
			}
		}
		s.nextID++
		tag := models.Tag{ID: fmt.Sprintf("t%d", s.nextID), RecordID: "r1", Text: req.TagText, CreatedAt: time.Now()}
		s.tags = append([]models.Tag{tag}, s.tags...)
		write(http.StatusCreated, map[string]interface{}{"tag": tag})

	default:
		write(http.StatusNotFound, map[string]interface{}{"error": "not found"})
	}
}

func newTestCLI(t *testing.T, api *stubAPI) (*cli, *bytes.Buffer) {
	t.Helper()
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)

	var out bytes.Buffer
	return &cli{
		client: clients.NewExplorerClient(srv.URL, 5*time.Second, logger.Discard()),
		tagCfg: config.TagConfig{ReconcileStrategy: "reload"},
		log:    logger.Discard(),
		out:    &out,
	}, &out
}

func TestSearch_Local(t *testing.T) {
	api := &stubAPI{
		records: []models.Record{
			{ID: "r1", CodeID: "100", CodeDisplay: "Glucose", Org: "A", Count: 10},
			{ID: "r2", CodeID: "200", CodeDisplay: "Hemoglobin", Org: "B", Count: 500},
		},
		tags: []models.Tag{{ID: "t1", RecordID: "r2", Text: "urgent"}},
	}
	c, out := newTestCLI(t, api)

	opts := docopt.Opts{
		"--page":      "1",
		"--page_size": "50",
		"--batch":     "10",
		"--remote":    false,
		"--expr":      nil,
		"--org":       []string{},
		"--category":  []string{},
		"--vocab":     []string{},
		"<keyword>":   []string{"urgent"},
	}
	require.NoError(t, c.search(context.Background(), opts))
	assert.Contains(t, out.String(), "Hemoglobin")
	assert.NotContains(t, out.String(), "Glucose")
	assert.Contains(t, out.String(), "page 1/1, 1 matching")

	out.Reset()
	opts["<keyword>"] = []string{}
	opts["--expr"] = "record.count < 100"
	require.NoError(t, c.search(context.Background(), opts))
	assert.Contains(t, out.String(), "Glucose")
	assert.NotContains(t, out.String(), "Hemoglobin")
}

func TestMutate_ReportsEveryFailure(t *testing.T) {
	api := &stubAPI{tags: []models.Tag{{ID: "t0", RecordID: "r1", Text: "dup"}}}
	c, out := newTestCLI(t, api)
	ctx := context.Background()

	err := c.mutate(ctx, "r1", []string{"urgent", "dup", "  "}, func(sess *tagsync.Session, text string) (<-chan tagsync.Result, error) {
		return sess.Add(ctx, text)
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrConflict)
	assert.ErrorIs(t, err, models.ErrValidation)

	assert.Contains(t, out.String(), "add t1 [urgent]")
	assert.Len(t, api.tags, 2)
}
