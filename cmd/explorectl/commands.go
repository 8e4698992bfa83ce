package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/docopt/docopt-go"
	"github.com/lyzr/explorer/common/clients"
	"github.com/lyzr/explorer/common/config"
	"github.com/lyzr/explorer/common/explore"
	"github.com/lyzr/explorer/common/logger"
	"github.com/lyzr/explorer/common/models"
	"github.com/lyzr/explorer/common/store"
	"github.com/lyzr/explorer/common/tagsync"
)

type cli struct {
	client *clients.ExplorerClient
	tagCfg config.TagConfig
	log    *logger.Logger
	out    io.Writer

	// nil prints tags without colour
	renderer *lipgloss.Renderer
}

func (c *cli) withUser(ctx context.Context, opts docopt.Opts) context.Context {
	user, _ := opts.String("--user")
	if user == "" {
		user = clients.GetClientConfig().UserID
	}
	if user == "" {
		return ctx
	}
	return clients.WithUserID(ctx, user)
}

func (c *cli) search(ctx context.Context, opts docopt.Opts) error {
	page, err := opts.Int("--page")
	if err != nil {
		return fmt.Errorf("invalid --page: %w", err)
	}
	pageSize, err := opts.Int("--page_size")
	if err != nil {
		return fmt.Errorf("invalid --page_size: %w", err)
	}
	keywords := stringsOpt(opts, "<keyword>")
	filters := filtersOpt(opts)
	expr, _ := opts.String("--expr")

	if remote, _ := opts.Bool("--remote"); remote {
		res, err := c.client.Explore(ctx, clients.ExploreQuery{
			Keywords:   keywords,
			Filters:    filters,
			Page:       page,
			PageSize:   pageSize,
			Expression: expr,
		})
		if err != nil {
			return err
		}
		return c.renderPage(res.Page)
	}

	batch, err := opts.Int("--batch")
	if err != nil {
		return fmt.Errorf("invalid --batch: %w", err)
	}
	all, err := store.NewLoader(c.client, c.log, store.WithBatchSize(batch)).Load(ctx)
	if err != nil {
		return err
	}

	if expr != "" {
		visible, err := explore.NewExpressionFilter().VisibleRecordsWhere(all, explore.NewKeywordSet(keywords...), filters, expr)
		if err != nil {
			return err
		}
		return c.renderPage(explore.PageOf(visible, page, pageSize))
	}

	view := explore.NewView(pageSize)
	for _, kw := range keywords {
		view.AddKeyword(kw)
	}
	view.SetFilters(filters)
	view.GoTo(page)
	return c.renderPage(view.Result(all))
}

func (c *cli) facets(ctx context.Context) error {
	facets, err := c.client.Facets(ctx)
	if err != nil {
		return err
	}
	for _, f := range models.Facets {
		fmt.Fprintf(c.out, "%s:\n", f)
		for _, v := range facets[f] {
			fmt.Fprintf(c.out, "  %s\n", v)
		}
	}
	return nil
}

func (c *cli) tags(ctx context.Context, opts docopt.Opts) error {
	recordID, _ := opts.String("<record_id>")
	tags, err := c.client.GetTags(ctx, recordID)
	if err != nil {
		return err
	}
	c.renderTags(tags)
	return nil
}

func (c *cli) tagAdd(ctx context.Context, opts docopt.Opts) error {
	recordID, _ := opts.String("<record_id>")
	return c.mutate(ctx, recordID, stringsOpt(opts, "<text>"), func(sess *tagsync.Session, text string) (<-chan tagsync.Result, error) {
		return sess.Add(ctx, text)
	})
}

func (c *cli) tagRm(ctx context.Context, opts docopt.Opts) error {
	recordID, _ := opts.String("<record_id>")
	return c.mutate(ctx, recordID, stringsOpt(opts, "<tag_id>"), func(sess *tagsync.Session, tagID string) (<-chan tagsync.Result, error) {
		return sess.Remove(ctx, tagID)
	})
}

// mutate applies op to every arg through one serial session and prints the
// tag list once all of them settled
func (c *cli) mutate(ctx context.Context, recordID string, args []string, op func(*tagsync.Session, string) (<-chan tagsync.Result, error)) error {
	// the CLI always queues: arguments apply in the order given
	syncer := tagsync.New(c.client, c.log, append(tagsync.FromConfig(c.tagCfg, c.log),
		tagsync.WithSerialQueue(),
		tagsync.WithOnError(func(res tagsync.Result) {
			c.log.Warn("tag change rolled back", "op", res.Op, "record_id", res.RecordID, "error", res.Err)
		}),
	)...)
	sess, err := syncer.Open(ctx, recordID)
	if err != nil {
		return err
	}
	defer sess.Close()

	var (
		pending []<-chan tagsync.Result
		errs    []error
	)
	for _, arg := range args {
		ch, err := op(sess, arg)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", arg, err))
			continue
		}
		pending = append(pending, ch)
	}

	for _, ch := range pending {
		res := <-ch
		if res.Err != nil {
			errs = append(errs, fmt.Errorf("%s %q: %w", res.Op, res.Tag.Text, res.Err))
			continue
		}
		fmt.Fprintf(c.out, "%s %s %s\n", res.Op, res.Tag.ID, c.chip(res.Tag.Text))
	}

	c.renderTags(sess.Tags())
	return errors.Join(errs...)
}

func (c *cli) watch(ctx context.Context, opts docopt.Opts) error {
	recordID, _ := opts.String("<record_id>")

	tagCfg := c.tagCfg
	if strategy, _ := opts.String("--strategy"); strategy != "" {
		tagCfg.ReconcileStrategy = strings.ToLower(strategy)
	}
	switch tagCfg.ReconcileStrategy {
	case "reload", "patch":
	default:
		return fmt.Errorf("unknown reconcile strategy: %s", tagCfg.ReconcileStrategy)
	}

	syncOpts := append(tagsync.FromConfig(tagCfg, c.log),
		tagsync.WithOnChange(func(id string, tags []models.Tag) {
			fmt.Fprintf(c.out, "-- %s\n", id)
			c.renderTags(tags)
		}),
	)
	syncer := tagsync.New(c.client, c.log, syncOpts...)
	sess, err := syncer.Open(ctx, recordID)
	if err != nil {
		return err
	}
	defer sess.Close()
	c.renderTags(sess.Tags())

	bus := clients.NewWatchBus(c.client)
	defer bus.Close()

	stop, err := sess.Watch(ctx, bus)
	if err != nil {
		return err
	}
	defer stop()

	fmt.Fprintf(os.Stderr, "watching %s, ctrl-c to stop\n", recordID)
	<-ctx.Done()
	return nil
}

func stringsOpt(opts docopt.Opts, key string) []string {
	values, _ := opts[key].([]string)
	return values
}

func filtersOpt(opts docopt.Opts) models.FilterSelection {
	filters := models.FilterSelection{}
	for flag, facet := range map[string]models.Facet{
		"--org":      models.FacetOrg,
		"--category": models.FacetCategory,
		"--vocab":    models.FacetVocab,
	} {
		if values := stringsOpt(opts, flag); len(values) > 0 {
			sort.Strings(values)
			filters[facet] = values
		}
	}
	return filters
}
