package container

import (
	"context"
	"errors"
	"fmt"

	"github.com/lyzr/explorer/cmd/explorer/realtime"
	"github.com/lyzr/explorer/cmd/explorer/service"
	"github.com/lyzr/explorer/common/bootstrap"
	"github.com/lyzr/explorer/common/repository"
	"github.com/lyzr/explorer/common/store"
	"github.com/lyzr/explorer/common/tagsync"
)

// Container holds all initialized services and repositories (singleton pattern)
type Container struct {
	// Components
	Components *bootstrap.Components

	// Repositories
	RecordRepo  *repository.RecordRepository
	TagRepo     *repository.TagRepository
	VersionRepo *repository.DataVersionRepository

	// Where tags are persisted: Postgres or the kv store
	TagStore service.TagStore

	// Services
	RecordService *service.RecordService
	TagService    *service.TagService

	// Websocket fan-out
	Hub *realtime.Hub
}

// NewContainer initializes all services and repositories once
func NewContainer(components *bootstrap.Components) (*Container, error) {
	if components.DB == nil {
		return nil, errors.New("explorer requires a database: records live in Postgres")
	}
	cfg := components.Config
	log := components.Logger

	// Initialize repositories
	sqlDB := components.DB.SQL()
	recordRepo := repository.NewRecordRepository(sqlDB)
	tagRepo := repository.NewTagRepository(sqlDB)
	versionRepo := repository.NewDataVersionRepository(sqlDB)

	// Pick the tag store
	var tagStore service.TagStore
	switch cfg.Tags.Backend {
	case "kv":
		if components.KV == nil {
			return nil, errors.New("tag backend kv selected but no kv store was initialized")
		}
		tagStore = tagsync.NewKVBackend(components.KV)
	default:
		tagStore = service.NewPostgresTagStore(tagRepo)
	}
	log.Info("tag store ready", "backend", cfg.Tags.Backend, "type", fmt.Sprintf("%T", tagStore))

	// Records always come from Postgres; tags from wherever they are stored
	var source store.Source = store.NewPostgresSource(recordRepo, tagRepo)
	if cfg.Tags.Backend == "kv" {
		source = store.SplitSource{Records: recordRepo, Tags: tagStore}
	}

	// Initialize services (bottom-up: dependencies first)
	recordService := service.NewRecordService(
		source,
		cfg.Explorer,
		components.Metrics,
		log,
	)
	tagService := service.NewTagService(tagStore, components.Bus, recordService, components.Metrics, log)

	return &Container{
		Components:    components,
		RecordRepo:    recordRepo,
		TagRepo:       tagRepo,
		VersionRepo:   versionRepo,
		TagStore:      tagStore,
		RecordService: recordService,
		TagService:    tagService,
		Hub:           realtime.NewHub(log, components.Metrics),
	}, nil
}

// Start loads the first snapshot and wires the notification bus to the
// snapshot and to websocket clients. A failed first load is logged and the
// service starts empty; POST /api/v1/records/reload retries it.
// The returned func stops everything Start began.
func (c *Container) Start(ctx context.Context) (func(), error) {
	log := c.Components.Logger
	bus := c.Components.Bus

	if _, err := c.RecordService.Reload(ctx); err != nil {
		log.Warn("starting with an empty snapshot", "error", err)
	}

	ctx, cancel := context.WithCancel(ctx)

	stopSnapshot, err := c.RecordService.Start(ctx, bus)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to subscribe snapshot to tag events: %w", err)
	}

	go c.Hub.Run(ctx)

	stopForward, err := c.Hub.Forward(ctx, bus)
	if err != nil {
		stopSnapshot()
		cancel()
		return nil, fmt.Errorf("failed to subscribe hub to tag events: %w", err)
	}

	return func() {
		stopForward()
		stopSnapshot()
		cancel()
	}, nil
}
