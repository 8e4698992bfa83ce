package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/lipgloss"
	"github.com/docopt/docopt-go"
	"github.com/lyzr/explorer/common/clients"
	"github.com/lyzr/explorer/common/config"
	"github.com/lyzr/explorer/common/logger"
	"golang.org/x/term"
)

const ExplorectlVersion = "0.1.0"

func main() {
	usage := `Explorer control.

The explorer url defaults to $EXPLORER_URL (http://localhost:8080) and the
user sent as X-User-ID to $EXPLORER_USER. watch reconciles with
$RECONCILE_STRATEGY unless --strategy is given.

Usage:
    explorectl search [--url=<url>] [--remote] [--no-color]
        [--page=<page>] [--page_size=<page_size>] [--batch=<batch>]
        [--org=<org>]... [--category=<category>]... [--vocab=<vocab>]...
        [--expr=<expr>] [<keyword>...]
    explorectl facets [--url=<url>]
    explorectl tags [--url=<url>] [--no-color] <record_id>
    explorectl tag-add [--url=<url>] [--user=<user>] [--no-color] <record_id> <text>...
    explorectl tag-rm [--url=<url>] [--user=<user>] [--no-color] <record_id> <tag_id>...
    explorectl watch [--url=<url>] [--strategy=<strategy>] [--no-color] <record_id>
    explorectl -h | --help
    explorectl --version

Options:
    -h --help                  Show this screen.
    --version                  Show version.
    --url=<url>                Explorer base url.
    --user=<user>              User recorded as the tag's creator.
    --remote                   Search on the server instead of loading every record.
    --page=<page>              Page to show [default: 1].
    --page_size=<page_size>    Records per page [default: 50].
    --batch=<batch>            Records per request while loading [default: 1000].
    --org=<org>                Keep records of this org; repeatable.
    --category=<category>      Keep records of this category; repeatable.
    --vocab=<vocab>            Keep records of this vocabulary; repeatable.
    --expr=<expr>              CEL predicate over record, e.g. 'record.count > 100'.
    --strategy=<strategy>      reload: refetch the tag list on every change,
                               patch: apply the change event's JSON patch.
    --no-color                 Print tags without colors.`

	opts, err := docopt.ParseArgs(usage, os.Args[1:], ExplorectlVersion)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid arguments: %v\n", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	c := newCLI(opts)
	ctx = c.withUser(ctx, opts)

	var runErr error
	if search_, _ := opts.Bool("search"); search_ {
		runErr = c.search(ctx, opts)
	} else if facets_, _ := opts.Bool("facets"); facets_ {
		runErr = c.facets(ctx)
	} else if tags_, _ := opts.Bool("tags"); tags_ {
		runErr = c.tags(ctx, opts)
	} else if tagAdd_, _ := opts.Bool("tag-add"); tagAdd_ {
		runErr = c.tagAdd(ctx, opts)
	} else if tagRm_, _ := opts.Bool("tag-rm"); tagRm_ {
		runErr = c.tagRm(ctx, opts)
	} else if watch_, _ := opts.Bool("watch"); watch_ {
		runErr = c.watch(ctx, opts)
	}

	stop()
	if runErr != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", runErr)
		os.Exit(1)
	}
}

func newCLI(opts docopt.Opts) *cli {
	cfg := clients.GetClientConfig()

	baseURL := cfg.BaseURL
	if u, err := opts.String("--url"); err == nil && u != "" {
		baseURL = u
	}

	level := os.Getenv("LOG_LEVEL")
	if level == "" {
		level = "warn"
	}
	log := logger.NewWithWriter(os.Stderr, level, "text")

	c := &cli{
		client: clients.NewExplorerClient(baseURL, cfg.Timeout, log),
		tagCfg: config.LoadTagConfig(),
		log:    log,
		out:    os.Stdout,
	}
	if noColor, _ := opts.Bool("--no-color"); !noColor && term.IsTerminal(int(os.Stdout.Fd())) {
		// lipgloss picks the richest profile the terminal supports
		c.renderer = lipgloss.NewRenderer(os.Stdout)
	}
	return c
}
