package scaledex

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/scaledex/internal/db"
	dbBadger "github.com/kailas-cloud/scaledex/internal/db/badger"
	dbRedis "github.com/kailas-cloud/scaledex/internal/db/redis"
	"github.com/kailas-cloud/scaledex/internal/domain"
	domaccess "github.com/kailas-cloud/scaledex/internal/domain/access"
	domscale "github.com/kailas-cloud/scaledex/internal/domain/scale"
	"github.com/kailas-cloud/scaledex/internal/domain/search/filter"
	"github.com/kailas-cloud/scaledex/internal/domain/search/mode"
	"github.com/kailas-cloud/scaledex/internal/domain/search/request"
	"github.com/kailas-cloud/scaledex/internal/domain/search/result"
	"github.com/kailas-cloud/scaledex/internal/domain/thesaurus"
	domusage "github.com/kailas-cloud/scaledex/internal/domain/usage"
	scalerepo "github.com/kailas-cloud/scaledex/internal/repository/scale"
	usagerepo "github.com/kailas-cloud/scaledex/internal/repository/usage"
	accessuc "github.com/kailas-cloud/scaledex/internal/usecase/access"
	embeddinguc "github.com/kailas-cloud/scaledex/internal/usecase/embedding"
	healthuc "github.com/kailas-cloud/scaledex/internal/usecase/health"
	searchuc "github.com/kailas-cloud/scaledex/internal/usecase/search"
	usageuc "github.com/kailas-cloud/scaledex/internal/usecase/usage"
)

const (
	defaultReadinessTimeout = 10 * time.Second
	usageWorkers            = 2
	usageGrace              = 2 * time.Second
)

// Internal interfaces, replaced in tests.
type catalogUseCase interface {
	Import(ctx context.Context, scales []domscale.Scale) (int, error)
	Get(ctx context.Context, id string) (domscale.Scale, error)
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context) (int, error)
}

type searchUseCase interface {
	Search(ctx context.Context, id domaccess.Identity, req request.Request) (result.Page, error)
	Expand(raw, locale string) (request.Expanded, error)
}

// Client is the scaledex SDK entry point.
type Client struct {
	store     db.Store
	catalog   catalogUseCase
	searchSvc searchUseCase
	healthSvc healthUseCase
	usageSvc  usageUseCase
	closers   []func()
	obs       *observer
}

// New creates a Client and connects to the database.
// The provided context is used for the initial readiness check.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := &clientConfig{}
	for _, o := range opts {
		o.apply(cfg)
	}

	store, err := createStore(cfg)
	if err != nil {
		return nil, err
	}

	if err := store.WaitForReady(ctx, defaultReadinessTimeout); err != nil {
		store.Close()
		return nil, fmt.Errorf("scaledex: database not ready: %w", err)
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		store.Close()
		return nil, err
	}
	return wireClient(store, cfg, obs)
}

func createStore(cfg *clientConfig) (db.Store, error) {
	switch cfg.driver {
	case "redis":
		if len(cfg.addrs) == 0 || cfg.addrs[0] == "" {
			return nil, errors.New("scaledex: redis address required")
		}
		s, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.addrs,
			Password: cfg.password,
		})
		if err != nil {
			return nil, fmt.Errorf("scaledex: create redis store: %w", err)
		}
		return s, nil
	case "badger":
		if cfg.badgerPath == "" && !cfg.inMemory {
			return nil, errors.New("scaledex: badger path required")
		}
		s, err := dbBadger.NewStore(dbBadger.Config{
			Path:     cfg.badgerPath,
			InMemory: cfg.inMemory,
		}, zap.NewNop())
		if err != nil {
			return nil, fmt.Errorf("scaledex: create badger store: %w", err)
		}
		return s, nil
	case "":
		return nil, errors.New("scaledex: database required (use WithRedis, WithBadger or WithBadgerInMemory)")
	default:
		return nil, fmt.Errorf("scaledex: unknown driver %q", cfg.driver)
	}
}

func wireClient(store db.Store, cfg *clientConfig, obs *observer) (*Client, error) {
	logger := zap.NewNop()

	var repoOpts []scalerepo.Option
	if cfg.snapshotTTL > 0 {
		repoOpts = append(repoOpts, scalerepo.WithSnapshotTTL(cfg.snapshotTTL))
	}
	scales := scalerepo.New(store, repoOpts...)

	engine := searchuc.NewEngine(thesaurus.Default(), searchuc.DefaultConfig())

	policy := domaccess.DefaultPolicy()
	if cfg.quota > 0 {
		policy.Quota = int64(cfg.quota)
	}
	if cfg.window > 0 {
		policy.Window = cfg.window
	}
	if cfg.anonymousLimit > 0 {
		policy.AnonymousLimit = cfg.anonymousLimit
	}
	gateStore := accessuc.NewMemoryStore(time.Minute)
	closers := []func(){gateStore.Close}

	// Pass nil interfaces (not typed nil pointers) when a component is disabled.
	var (
		vectorizer  searchuc.Vectorizer
		recorder    searchuc.Recorder
		usageReader usageuc.CounterReader
	)
	if cfg.embedder != nil {
		vectorizer = embeddinguc.NewVectorizer(&embedderAdapter{inner: cfg.embedder}, cfg.dimensions)
	}
	if cfg.usage {
		counter := usagerepo.New(store, usagerepo.DefaultDailyTTL)
		dispatcher, err := usageuc.NewDispatcher(counter, usageWorkers, usageGrace, logger)
		if err != nil {
			gateStore.Close()
			store.Close()
			return nil, fmt.Errorf("scaledex: usage dispatcher: %w", err)
		}
		// Drain before the store closes.
		closers = append([]func(){func() { _ = dispatcher.Close() }}, closers...)
		recorder = dispatcher
		usageReader = counter
	}

	searchSvc := searchuc.NewService(searchuc.ServiceDeps{
		Engine:     engine,
		Provider:   scales,
		Gate:       accessuc.NewGate(gateStore, policy, logger),
		Vectorizer: vectorizer,
		Recorder:   recorder,
		Logger:     logger,
	})

	return &Client{
		store:     store,
		catalog:   scales,
		searchSvc: searchSvc,
		healthSvc: healthuc.New(store, nil, scales),
		usageSvc:  usageuc.New(usageReader),
		closers:   closers,
		obs:       obs,
	}, nil
}

// Close drains pending usage writes and releases all resources.
func (c *Client) Close() {
	for _, fn := range c.closers {
		fn()
	}
	if c.store != nil {
		c.store.Close()
	}
}

// Ping checks database connectivity.
func (c *Client) Ping(ctx context.Context) (err error) {
	start := time.Now()
	defer func() { c.obs.observe("ping", start, err) }()

	if err = c.store.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Import validates and upserts scales. Nothing is written if any scale is invalid.
func (c *Client) Import(ctx context.Context, scales []Scale) (n int, err error) {
	start := time.Now()
	defer func() { c.obs.observe("import", start, err) }()

	items := make([]domscale.Scale, 0, len(scales))
	var errs []error
	for i := range scales {
		s, convErr := scales[i].toDomain()
		if convErr != nil {
			errs = append(errs, fmt.Errorf("scale %d: %w: %w", i, domain.ErrInvalidScale, convErr))
			continue
		}
		items = append(items, s)
	}
	if err = errors.Join(errs...); err != nil {
		return 0, err
	}
	return c.catalog.Import(ctx, items)
}

// Get returns one scale by ID.
func (c *Client) Get(ctx context.Context, id string) (_ Scale, err error) {
	start := time.Now()
	defer func() { c.obs.observe("get", start, err) }()

	s, err := c.catalog.Get(ctx, id)
	if err != nil {
		return Scale{}, err
	}
	return scaleFromDomain(&s), nil
}

// Delete removes a scale.
func (c *Client) Delete(ctx context.Context, id string) (err error) {
	start := time.Now()
	defer func() { c.obs.observe("delete", start, err) }()

	return c.catalog.Delete(ctx, id)
}

// Count returns the number of public scales.
func (c *Client) Count(ctx context.Context) (n int, err error) {
	start := time.Now()
	defer func() { c.obs.observe("count", start, err) }()

	return c.catalog.Count(ctx)
}

// Search ranks the catalog for q.
// An exhausted anonymous quota returns an error matching ErrRateLimitExceeded.
func (c *Client) Search(ctx context.Context, q Query) (_ SearchPage, err error) {
	start := time.Now()
	defer func() { c.obs.observe("search", start, err) }()

	req, err := q.toRequest()
	if err != nil {
		return SearchPage{}, err
	}
	page, err := c.searchSvc.Search(ctx, q.Caller.identity(), req)
	if err != nil {
		return SearchPage{}, err
	}
	out := pageFromDomain(&page)
	c.obs.observeSearch(&out)
	return out, nil
}

// Expand normalizes text and lists the thesaurus terms a search would add.
func (c *Client) Expand(text, locale string) (_ Expansion, err error) {
	start := time.Now()
	defer func() { c.obs.observe("expand", start, err) }()

	exp, err := c.searchSvc.Expand(text, locale)
	if err != nil {
		return Expansion{}, err
	}
	return Expansion{
		Normalized: exp.Normalized(),
		Tokens:     exp.Tokens(),
		Terms:      exp.ExpansionTerms(),
	}, nil
}

func (q *Query) toRequest() (request.Request, error) {
	statuses := make([]string, len(q.Statuses))
	for i, s := range q.Statuses {
		statuses[i] = string(s)
	}
	items, err := filter.NewRange(q.MinItems, q.MaxItems)
	if err != nil {
		return request.Request{}, fmt.Errorf("%w: item count: %w", domain.ErrInvalidQuery, err)
	}
	minutes, err := filter.NewRange(nil, q.MaxMinutes)
	if err != nil {
		return request.Request{}, fmt.Errorf("%w: admin time: %w", domain.ErrInvalidQuery, err)
	}
	facets, err := filter.New(filter.Spec{
		Categories: q.Categories,
		Statuses:   statuses,
		Languages:  q.Languages,
		ItemCount:  items,
		AdminTime:  minutes,
		Domain:     q.Domain,
		Population: q.Population,
	})
	if err != nil {
		return request.Request{}, fmt.Errorf("%w: %w", domain.ErrInvalidQuery, err)
	}
	return request.New(request.Params{
		Query:         q.Text,
		Locale:        q.Locale,
		Facets:        facets,
		Mode:          mode.Mode(q.Mode),
		Page:          q.Page,
		Limit:         q.Limit,
		Sort:          request.Sort(q.Sort),
		MinScore:      q.MinScore,
		IncludeFacets: q.IncludeFacets,
	})
}

func (c Caller) identity() domaccess.Identity {
	if c.Authenticated {
		return domaccess.Authenticated(c.Key)
	}
	return domaccess.Anonymous(c.Key)
}

// embedderAdapter wraps public Embedder to satisfy internal domain.Embedder.
type embedderAdapter struct {
	inner Embedder
}

func (a *embedderAdapter) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	r, err := a.inner.Embed(ctx, text)
	if err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("embed: %w", err)
	}
	return domain.EmbeddingResult{
		Embedding:    r.Embedding,
		PromptTokens: r.PromptTokens,
		TotalTokens:  r.TotalTokens,
	}, nil
}

// usageUseCase is the internal interface for usage reports.
type usageUseCase interface {
	GetReport(ctx context.Context, period domusage.Period) (domusage.Report, error)
}
