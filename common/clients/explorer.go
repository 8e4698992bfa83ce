package clients

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/lyzr/explorer/common/explore"
	"github.com/lyzr/explorer/common/models"
	"github.com/lyzr/explorer/common/notify"
)

// ExplorerClient talks to the explorer HTTP API. It serves as a record
// Source for the loader and as a tag Backend for the synchronizer.
type ExplorerClient struct {
	baseURL string
	http    *HTTPClient
	logger  Logger
}

// NewExplorerClient creates a new explorer client
func NewExplorerClient(baseURL string, timeout time.Duration, logger Logger) *ExplorerClient {
	httpClient := &http.Client{
		Timeout: timeout,
	}

	return &ExplorerClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    NewHTTPClient(httpClient, logger),
		logger:  logger,
	}
}

// ExploreQuery is one search over the loaded record set
type ExploreQuery struct {
	Keywords   []string
	Filters    models.FilterSelection
	Page       int
	PageSize   int
	Expression string
}

// ExploreResult is a page of records plus the colors of the tags on it
type ExploreResult struct {
	explore.Page
	TagColors map[string]explore.TagColor `json:"tag_colors"`
}

// FetchRecords returns active records in the inclusive range [from, to]
func (c *ExplorerClient) FetchRecords(ctx context.Context, from, to int) ([]models.Record, error) {
	q := url.Values{}
	q.Set("from", strconv.Itoa(from))
	q.Set("to", strconv.Itoa(to))

	var resp struct {
		Records []models.Record `json:"records"`
	}
	if err := c.http.DoJSON(ctx, http.MethodGet, c.url("/api/v1/records", q), nil, &resp); err != nil {
		return nil, classify(fmt.Errorf("failed to fetch records: %w", err))
	}
	return resp.Records, nil
}

// FetchAllTags returns every tag
func (c *ExplorerClient) FetchAllTags(ctx context.Context) ([]models.Tag, error) {
	var resp struct {
		Tags []models.Tag `json:"tags"`
	}
	if err := c.http.DoJSON(ctx, http.MethodGet, c.url("/api/v1/tags", nil), nil, &resp); err != nil {
		return nil, classify(fmt.Errorf("failed to fetch tags: %w", err))
	}
	return resp.Tags, nil
}

// GetTags returns a record's tags, newest first
func (c *ExplorerClient) GetTags(ctx context.Context, recordID string) ([]models.Tag, error) {
	var resp struct {
		Tags []models.Tag `json:"tags"`
	}
	path := "/api/v1/records/" + url.PathEscape(recordID) + "/tags"
	if err := c.http.DoJSON(ctx, http.MethodGet, c.url(path, nil), nil, &resp); err != nil {
		return nil, classify(fmt.Errorf("failed to get tags: %w", err))
	}
	if resp.Tags == nil {
		return []models.Tag{}, nil
	}
	return resp.Tags, nil
}

// AddTag creates a tag; duplicates return models.ErrConflict
func (c *ExplorerClient) AddTag(ctx context.Context, recordID, text string) (models.Tag, error) {
	c.logger.Debug("adding tag", "record_id", recordID, "tag_text", text)

	var resp struct {
		Tag models.Tag `json:"tag"`
	}
	req := map[string]string{"tag_text": text}
	path := "/api/v1/records/" + url.PathEscape(recordID) + "/tags"
	if err := c.http.DoJSON(ctx, http.MethodPost, c.url(path, nil), req, &resp); err != nil {
		return models.Tag{}, classify(fmt.Errorf("failed to add tag: %w", err))
	}
	return resp.Tag, nil
}

// RemoveTag deletes a tag; unknown ids return models.ErrNotFound
func (c *ExplorerClient) RemoveTag(ctx context.Context, tagID string) error {
	c.logger.Debug("removing tag", "tag_id", tagID)

	path := "/api/v1/tags/" + url.PathEscape(tagID)
	if err := c.http.DoJSON(ctx, http.MethodDelete, c.url(path, nil), nil, nil); err != nil {
		return classify(fmt.Errorf("failed to remove tag: %w", err))
	}
	return nil
}

// Explore runs a search on the server's loaded record set
func (c *ExplorerClient) Explore(ctx context.Context, query ExploreQuery) (*ExploreResult, error) {
	q := url.Values{}
	for _, kw := range query.Keywords {
		q.Add("q", kw)
	}
	for facet, values := range query.Filters {
		for _, v := range values {
			q.Add(string(facet), v)
		}
	}
	if query.Page > 0 {
		q.Set("page", strconv.Itoa(query.Page))
	}
	if query.PageSize > 0 {
		q.Set("page_size", strconv.Itoa(query.PageSize))
	}
	if query.Expression != "" {
		q.Set("expr", query.Expression)
	}

	var result ExploreResult
	if err := c.http.DoJSON(ctx, http.MethodGet, c.url("/api/v1/explore", q), nil, &result); err != nil {
		return nil, classify(fmt.Errorf("failed to explore: %w", err))
	}
	return &result, nil
}

// Facets returns the distinct values of every facet
func (c *ExplorerClient) Facets(ctx context.Context) (map[models.Facet][]string, error) {
	var resp struct {
		Facets map[models.Facet][]string `json:"facets"`
	}
	if err := c.http.DoJSON(ctx, http.MethodGet, c.url("/api/v1/facets", nil), nil, &resp); err != nil {
		return nil, classify(fmt.Errorf("failed to get facets: %w", err))
	}
	return resp.Facets, nil
}

// WatchTags streams tag change events for a record until ctx ends or the
// connection drops
func (c *ExplorerClient) WatchTags(ctx context.Context, recordID string, fn func(notify.Event)) error {
	conn, err := c.dialWatch(ctx, recordID)
	if err != nil {
		return err
	}
	return readEvents(ctx, conn, fn)
}

func (c *ExplorerClient) dialWatch(ctx context.Context, recordID string) (*websocket.Conn, error) {
	wsURL := c.url("/ws/records/"+url.PathEscape(recordID)+"/tags", nil)
	switch {
	case strings.HasPrefix(wsURL, "https://"):
		wsURL = "wss://" + strings.TrimPrefix(wsURL, "https://")
	case strings.HasPrefix(wsURL, "http://"):
		wsURL = "ws://" + strings.TrimPrefix(wsURL, "http://")
	}

	header := http.Header{}
	setUserHeader(ctx, header)

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, header)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to connect websocket: %w", models.ErrNetwork, err)
	}
	return conn, nil
}

// readEvents owns conn and closes it when ctx ends or reading fails
func readEvents(ctx context.Context, conn *websocket.Conn, fn func(notify.Event)) error {
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	for {
		var event notify.Event
		if err := conn.ReadJSON(&event); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("websocket read failed: %w", err)
		}
		fn(event)
	}
}

func (c *ExplorerClient) url(path string, q url.Values) string {
	u := c.baseURL + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	return u
}

// classify maps transport and status failures onto the model's error kinds
func classify(err error) error {
	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		return fmt.Errorf("%w: %w", models.ErrNetwork, err)
	}

	switch statusErr.StatusCode {
	case http.StatusConflict:
		return fmt.Errorf("%w: %w", models.ErrConflict, err)
	case http.StatusNotFound:
		return fmt.Errorf("%w: %w", models.ErrNotFound, err)
	case http.StatusBadRequest:
		return fmt.Errorf("%w: %w", models.ErrValidation, err)
	default:
		return fmt.Errorf("%w: %w", models.ErrNetwork, err)
	}
}
