// Command scalectl manages the scale catalog and runs offline searches against catalog files.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/kailas-cloud/scaledex/internal/app"
	"github.com/kailas-cloud/scaledex/internal/config"
	"github.com/kailas-cloud/scaledex/internal/domain"
	domscale "github.com/kailas-cloud/scaledex/internal/domain/scale"
	"github.com/kailas-cloud/scaledex/internal/domain/search/filter"
	"github.com/kailas-cloud/scaledex/internal/domain/search/mode"
	"github.com/kailas-cloud/scaledex/internal/domain/search/request"
	logpkg "github.com/kailas-cloud/scaledex/internal/logger"
	scalerepo "github.com/kailas-cloud/scaledex/internal/repository/scale"
	"github.com/kailas-cloud/scaledex/internal/version"
)

func main() {
	if err := newApp(os.Stdout).Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newApp(out io.Writer) *cli.App {
	return &cli.App{
		Name:    "scalectl",
		Usage:   "Manage the clinical scale catalog",
		Version: version.Version,
		Writer:  out,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to a YAML config file (default: config/<ENV>.yaml)",
				EnvVars: []string{"SCALEDEX_CONFIG"},
			},
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "warn",
			},
		},
		Commands: []*cli.Command{
			{
				Name:      "import",
				Usage:     "Import a JSON catalog file into the configured database",
				ArgsUsage: "<catalog.json>",
				Action:    importCommand,
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "embed",
						Usage: "Compute embeddings for scales that have none",
					},
					&cli.BoolFlag{
						Name:  "dry-run",
						Usage: "Validate the catalog without writing it",
					},
				},
			},
			{
				Name:      "search",
				Usage:     "Rank a catalog file for a query without a server",
				ArgsUsage: "<query>",
				Action:    searchCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "catalog",
						Usage:    "Path to a JSON catalog file",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "mode",
						Usage: "Search mode (keyword, semantic, hybrid, vector, advanced)",
						Value: string(mode.Hybrid),
					},
					&cli.StringFlag{
						Name:  "locale",
						Usage: "Query locale hint",
					},
					&cli.StringSliceFlag{
						Name:  "category",
						Usage: "Restrict to a category (repeatable)",
					},
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Number of results to print",
						Value: 10,
					},
					&cli.BoolFlag{
						Name:  "include-private",
						Usage: "Rank scales not marked public",
					},
				},
			},
			{
				Name:      "expand",
				Usage:     "Print the normalized query and its expansion terms",
				ArgsUsage: "<query>",
				Action:    expandCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "locale",
						Usage: "Query locale hint",
					},
				},
			},
		},
	}
}

// setup loads the configuration and a logger for a command.
func setup(c *cli.Context) (config.Config, *zap.Logger, error) {
	var (
		cfg config.Config
		err error
	)
	if path := c.String("config"); path != "" {
		cfg, err = config.LoadFile(path)
	} else {
		cfg, err = config.Load(config.GetEnv())
	}
	if err != nil {
		return config.Config{}, nil, err
	}
	logger, err := logpkg.NewLogger(config.GetEnv(), c.String("log-level"))
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("create logger: %w", err)
	}
	return cfg, logger, nil
}

func importCommand(c *cli.Context) error {
	path := c.Args().First()
	if path == "" {
		return errors.New("catalog file argument is required")
	}
	cfg, logger, err := setup(c)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	scales, err := readCatalog(path)
	if err != nil {
		return err
	}
	out := c.App.Writer

	if c.Bool("embed") {
		if !cfg.Embedding.Enabled() {
			return errors.New("--embed requires embedding.api_key")
		}
		n, err := backfillEmbeddings(c.Context, app.NewProviderEmbedder(cfg.Embedding, logger), scales)
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintf(out, "embedded %d scales\n", n)
	}

	if c.Bool("dry-run") {
		_, _ = fmt.Fprintf(out, "catalog valid: %d scales\n", len(scales))
		return nil
	}

	store, err := app.OpenStore(c.Context, cfg.Database, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	n, err := scalerepo.New(store, scalerepo.WithLogger(logger)).Import(c.Context, scales)
	if err != nil {
		return fmt.Errorf("import after %d scales: %w", n, err)
	}
	_, _ = fmt.Fprintf(out, "imported %d scales\n", n)
	return nil
}

// readCatalog decodes a catalog file. Any invalid record fails the command.
func readCatalog(path string) ([]domscale.Scale, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	defer func() { _ = f.Close() }()

	scales, err := scalerepo.DecodeCatalog(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return scales, nil
}

// backfillEmbeddings fills in missing embeddings in place and returns how many were computed.
func backfillEmbeddings(ctx context.Context, emb domain.BatchEmbedder, scales []domscale.Scale) (int, error) {
	var (
		idx   []int
		texts []string
	)
	for i := range scales {
		if len(scales[i].Embedding()) == 0 {
			idx = append(idx, i)
			texts = append(texts, scales[i].EmbeddingText())
		}
	}
	if len(texts) == 0 {
		return 0, nil
	}
	res, err := emb.BatchEmbed(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("embed catalog: %w", err)
	}
	for j, i := range idx {
		scales[i] = scales[i].WithEmbedding(res.Embeddings[j])
	}
	return len(idx), nil
}

func searchCommand(c *cli.Context) error {
	query := strings.Join(c.Args().Slice(), " ")
	cfg, logger, err := setup(c)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	scales, err := readCatalog(c.String("catalog"))
	if err != nil {
		return err
	}
	if !c.Bool("include-private") {
		public := scales[:0]
		for i := range scales {
			if scales[i].IsPublic() {
				public = append(public, scales[i])
			}
		}
		scales = public
	}

	facets, err := filter.New(filter.Spec{Categories: c.StringSlice("category")})
	if err != nil {
		return err
	}
	req, err := request.New(request.Params{
		Query:  query,
		Locale: c.String("locale"),
		Mode:   mode.Mode(c.String("mode")),
		Facets: facets,
		Limit:  c.Int("limit"),
	})
	if err != nil {
		return err
	}

	engine, err := app.NewEngine(cfg.Search, logger)
	if err != nil {
		return err
	}
	page, err := engine.Rank(c.Context, &req, scales)
	if err != nil {
		return err
	}

	out := c.App.Writer
	_, _ = fmt.Fprintf(out, "mode=%s total=%d candidates=%d\n",
		page.Mode, page.Pagination.Total, page.Stats.Candidates)
	if terms := page.Stats.ExpansionTerms; len(terms) > 0 {
		_, _ = fmt.Fprintf(out, "expanded: %s\n", strings.Join(terms, ", "))
	}
	for i := range page.Results {
		r := &page.Results[i]
		s := r.Scale()
		_, _ = fmt.Fprintf(out, "%2d. %-10s %.3f  %s [%s]\n",
			i+1, s.ID(), r.Fused(), s.DisplayName(), strings.Join(r.Reasons(), ","))
	}
	return nil
}

func expandCommand(c *cli.Context) error {
	query := strings.Join(c.Args().Slice(), " ")
	if strings.TrimSpace(query) == "" {
		return errors.New("query argument is required")
	}
	cfg, logger, err := setup(c)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	engine, err := app.NewEngine(cfg.Search, logger)
	if err != nil {
		return err
	}
	exp, err := engine.Expand(query, c.String("locale"))
	if err != nil {
		return err
	}

	out := c.App.Writer
	_, _ = fmt.Fprintf(out, "normalized: %s\n", exp.Normalized())
	_, _ = fmt.Fprintf(out, "tokens: %s\n", strings.Join(exp.Tokens(), " "))
	_, _ = fmt.Fprintf(out, "expansion: %s\n", strings.Join(exp.ExpansionTerms(), ", "))
	return nil
}
