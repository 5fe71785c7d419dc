package scaledex

import (
	"context"
	"errors"
	"testing"
	"time"

	domaccess "github.com/kailas-cloud/scaledex/internal/domain/access"
	domscale "github.com/kailas-cloud/scaledex/internal/domain/scale"
	"github.com/kailas-cloud/scaledex/internal/domain/search/mode"
	"github.com/kailas-cloud/scaledex/internal/domain/search/request"
	"github.com/kailas-cloud/scaledex/internal/domain/search/result"
	domusage "github.com/kailas-cloud/scaledex/internal/domain/usage"
	healthuc "github.com/kailas-cloud/scaledex/internal/usecase/health"
)

func testScale(t *testing.T, id string) domscale.Scale {
	t.Helper()
	s, err := domscale.New(domscale.Fields{
		ID:       id,
		NameEn:   "Patient Health Questionnaire-9",
		Acronym:  "PHQ-9",
		Category: "depression",
		Status:   domscale.StatusPublished,
		Public:   true,
	})
	if err != nil {
		t.Fatalf("domscale.New: %v", err)
	}
	return s
}

func TestClient_Import(t *testing.T) {
	var got []domscale.Scale
	c := &Client{catalog: &mockCatalogUC{
		importFn: func(_ context.Context, scales []domscale.Scale) (int, error) {
			got = scales
			return len(scales), nil
		},
	}}

	n, err := c.Import(context.Background(), []Scale{
		{ID: "phq-9", NameEn: "PHQ-9", Status: StatusPublished},
		{ID: "pilot", NameEn: "Pilot", Private: true},
	})
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if n != 2 || len(got) != 2 {
		t.Fatalf("imported %d (%d passed), want 2", n, len(got))
	}
	if !got[0].IsPublic() || got[1].IsPublic() {
		t.Error("Private must map to Public=false")
	}
	if got[1].Status() != domscale.StatusDraft {
		t.Errorf("missing status = %q, want draft", got[1].Status())
	}
}

func TestClient_Import_Invalid(t *testing.T) {
	called := false
	c := &Client{catalog: &mockCatalogUC{
		importFn: func(context.Context, []domscale.Scale) (int, error) {
			called = true
			return 0, nil
		},
	}}

	_, err := c.Import(context.Background(), []Scale{
		{ID: "phq-9", NameEn: "PHQ-9"},
		{ID: "bad id!", NameEn: "Broken"},
	})
	if !errors.Is(err, ErrInvalidScale) {
		t.Fatalf("expected ErrInvalidScale, got %v", err)
	}
	if called {
		t.Error("nothing must be written when a scale is invalid")
	}
}

func TestClient_Get(t *testing.T) {
	s := testScale(t, "phq-9")
	c := &Client{catalog: &mockCatalogUC{
		getFn: func(_ context.Context, id string) (domscale.Scale, error) {
			if id != "phq-9" {
				return domscale.Scale{}, ErrNotFound
			}
			return s, nil
		},
	}}

	got, err := c.Get(context.Background(), "phq-9")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Acronym != "PHQ-9" || got.Status != StatusPublished || got.Private {
		t.Errorf("scale = %+v", got)
	}

	if _, err := c.Get(context.Background(), "nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestClient_DeleteAndCount(t *testing.T) {
	deleted := ""
	c := &Client{catalog: &mockCatalogUC{
		deleteFn: func(_ context.Context, id string) error {
			deleted = id
			return nil
		},
		countFn: func(context.Context) (int, error) { return 12, nil },
	}}

	if err := c.Delete(context.Background(), "gad-7"); err != nil || deleted != "gad-7" {
		t.Errorf("Delete: err=%v deleted=%q", err, deleted)
	}
	if n, err := c.Count(context.Background()); err != nil || n != 12 {
		t.Errorf("Count = %d, %v", n, err)
	}
}

func TestClient_Search(t *testing.T) {
	s := testScale(t, "phq-9")
	var (
		gotID  domaccess.Identity
		gotReq request.Request
	)
	c := &Client{searchSvc: &mockSearchUC{
		searchFn: func(_ context.Context, id domaccess.Identity, req request.Request) (result.Page, error) {
			gotID, gotReq = id, req
			return result.Page{
				Results: []result.Scored{
					result.New(&s, 100, 3, result.Absent, 72.5, []string{"acronym exact match"}),
				},
				Pagination: result.Pagination{Page: 1, Limit: 5, Total: 1, TotalPages: 1},
				Mode:       mode.Keyword,
				Stats:      result.Statistics{ExpansionTerms: []string{"抑郁"}},
			}, nil
		},
	}}

	page, err := c.Search(context.Background(), Query{
		Caller: Caller{Key: "u-1", Authenticated: true},
		Text:   "phq-9",
		Mode:   ModeKeyword,
		Limit:  5,
	})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if !gotID.IsAuthenticated() || gotID.Key() != "u-1" {
		t.Errorf("identity = %+v", gotID)
	}
	if gotReq.Mode() != mode.Keyword || gotReq.Limit() != 5 {
		t.Errorf("request mode=%s limit=%d", gotReq.Mode(), gotReq.Limit())
	}
	if len(page.Results) != 1 || page.Results[0].Scale.ID != "phq-9" || page.Results[0].Score != 72.5 {
		t.Fatalf("results = %+v", page.Results)
	}
	if page.Results[0].Keyword != 100 || page.Results[0].Reasons[0] != "acronym exact match" {
		t.Errorf("subscores = %+v", page.Results[0])
	}
	if page.Total != 1 || page.Mode != ModeKeyword || page.ExpansionTerms[0] != "抑郁" {
		t.Errorf("page = %+v", page)
	}
}

func TestClient_Search_InvalidQueryNotSent(t *testing.T) {
	c := &Client{searchSvc: &mockSearchUC{
		searchFn: func(context.Context, domaccess.Identity, request.Request) (result.Page, error) {
			t.Fatal("search must not run for an invalid query")
			return result.Page{}, nil
		},
	}}
	if _, err := c.Search(context.Background(), Query{Mode: ModeKeyword}); !errors.Is(err, ErrInvalidQuery) {
		t.Fatalf("expected ErrInvalidQuery, got %v", err)
	}
}

func TestClient_Search_RateLimited(t *testing.T) {
	c := &Client{searchSvc: &mockSearchUC{
		searchFn: func(context.Context, domaccess.Identity, request.Request) (result.Page, error) {
			return result.Page{}, &RateLimitError{RetryAfter: 90 * time.Minute}
		},
	}}
	_, err := c.Search(context.Background(), Query{Text: "phq"})
	var rle *RateLimitError
	if !errors.As(err, &rle) || !errors.Is(err, ErrRateLimitExceeded) {
		t.Fatalf("expected RateLimitError, got %v", err)
	}
	if rle.RetryAfterSeconds() != 5400 {
		t.Errorf("RetryAfterSeconds = %d, want 5400", rle.RetryAfterSeconds())
	}
}

func TestClient_Expand(t *testing.T) {
	c := &Client{searchSvc: &mockSearchUC{
		expandFn: func(raw, _ string) (request.Expanded, error) {
			return request.NewExpanded(raw, []string{"抑郁"}), nil
		},
	}}
	exp, err := c.Expand("depression", "en")
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	if exp.Normalized != "depression" || len(exp.Terms) != 1 || exp.Terms[0] != "抑郁" {
		t.Errorf("expansion = %+v", exp)
	}
}

func TestClient_Health(t *testing.T) {
	c := &Client{healthSvc: &mockHealthUC{report: healthuc.Report{
		Status:  healthuc.Degraded,
		Checks:  map[string]healthuc.CheckResult{"database": healthuc.CheckOK, "catalog": healthuc.CheckEmpty},
		Catalog: 0,
	}}}
	h := c.Health(context.Background())
	if h.Status != "degraded" || h.Checks["catalog"] != "empty" || h.Checks["database"] != "ok" {
		t.Errorf("health = %+v", h)
	}
}

func TestClient_Usage(t *testing.T) {
	c := &Client{usageSvc: &mockUsageUC{
		fn: func(_ context.Context, p domusage.Period) (domusage.Report, error) {
			return domusage.NewReport(p, "2026-10-14", domusage.Counters{
				Searches:  7,
				Anonymous: 4,
				ByMode:    map[mode.Mode]int64{mode.Hybrid: 5, mode.Keyword: 2},
			}), nil
		},
	}}

	r, err := c.Usage(context.Background(), PeriodDay)
	if err != nil {
		t.Fatalf("Usage: %v", err)
	}
	if r.Bucket != "2026-10-14" || r.Searches != 7 || r.Anonymous != 4 || r.ByMode[ModeHybrid] != 5 {
		t.Errorf("report = %+v", r)
	}
}

func TestClient_Usage_InvalidPeriod(t *testing.T) {
	c := &Client{usageSvc: &mockUsageUC{
		fn: func(context.Context, domusage.Period) (domusage.Report, error) {
			t.Fatal("must not be called")
			return domusage.Report{}, nil
		},
	}}
	if _, err := c.Usage(context.Background(), "month"); err == nil {
		t.Fatal("expected error for unknown period")
	}
}
