package scaledex

import (
	"context"
	"errors"
	"testing"
	"time"
)

func newInMemoryClient(t *testing.T, opts ...Option) *Client {
	t.Helper()
	opts = append([]Option{WithBadgerInMemory(), WithSnapshotTTL(time.Millisecond)}, opts...)
	c, err := New(context.Background(), opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(c.Close)
	return c
}

var testCatalog = []Scale{
	{
		ID: "phq-9", NameEn: "Patient Health Questionnaire-9", Acronym: "PHQ-9",
		DescriptionEn: "Self-report measure of depression severity", Category: "depression",
		ItemCount: 9, Languages: []string{"en", "zh"}, Status: StatusPublished, UsageCount: 100,
	},
	{
		ID: "gad-7", NameEn: "Generalized Anxiety Disorder-7", Acronym: "GAD-7",
		DescriptionEn: "Brief self-report scale for generalized anxiety", Category: "anxiety",
		ItemCount: 7, Languages: []string{"en"}, Status: StatusPublished, UsageCount: 90,
	},
	{
		ID: "pilot", NameEn: "Internal depression pilot", Category: "depression", Private: true,
	},
}

func TestClient_EndToEnd(t *testing.T) {
	ctx := context.Background()
	c := newInMemoryClient(t, WithUsageCounters())

	if err := c.Ping(ctx); err != nil {
		t.Fatalf("Ping: %v", err)
	}
	n, err := c.Import(ctx, testCatalog)
	if err != nil || n != 3 {
		t.Fatalf("Import = %d, %v", n, err)
	}
	if count, err := c.Count(ctx); err != nil || count != 2 {
		t.Fatalf("Count = %d, %v, want 2 public scales", count, err)
	}

	page, err := c.Search(ctx, Query{
		Caller: Caller{Key: "u-1", Authenticated: true},
		Text:   "depression",
		Mode:   ModeKeyword,
	})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(page.Results) != 1 || page.Results[0].Scale.ID != "phq-9" {
		t.Fatalf("results = %+v, want only phq-9 (private scales hidden)", page.Results)
	}

	got, err := c.Get(ctx, "gad-7")
	if err != nil || got.Acronym != "GAD-7" {
		t.Fatalf("Get = %+v, %v", got, err)
	}
	if err := c.Delete(ctx, "gad-7"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := c.Get(ctx, "gad-7"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}

	h := c.Health(ctx)
	if h.Status != "ok" || h.Catalog != 1 {
		t.Errorf("health = %+v", h)
	}

	// Usage counters are written asynchronously.
	deadline := time.Now().Add(2 * time.Second)
	for {
		r, err := c.Usage(ctx, PeriodTotal)
		if err != nil {
			t.Fatalf("Usage: %v", err)
		}
		if r.Searches == 1 {
			if r.ByMode[ModeKeyword] != 1 || r.Anonymous != 0 {
				t.Errorf("report = %+v", r)
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("usage counter not recorded: %+v", r)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestClient_AnonymousQuota(t *testing.T) {
	ctx := context.Background()
	c := newInMemoryClient(t, WithAnonymousQuota(2, time.Hour, 1))
	if _, err := c.Import(ctx, testCatalog); err != nil {
		t.Fatalf("Import: %v", err)
	}

	anon := Query{Caller: Caller{Key: "203.0.113.7"}, Text: "self-report", Mode: ModeKeyword, Limit: 10}
	page, err := c.Search(ctx, anon)
	if err != nil {
		t.Fatalf("first anonymous search: %v", err)
	}
	if len(page.Results) != 2 {
		t.Errorf("first page size = %d, want the requested limit (2 matches)", len(page.Results))
	}

	page, err = c.Search(ctx, anon)
	if err != nil {
		t.Fatalf("second anonymous search: %v", err)
	}
	if len(page.Results) != 1 {
		t.Errorf("second page size = %d, want capped at 1", len(page.Results))
	}

	_, err = c.Search(ctx, anon)
	var rle *RateLimitError
	if !errors.As(err, &rle) {
		t.Fatalf("expected RateLimitError on third anonymous search, got %v", err)
	}

	anon.Caller.Authenticated = true
	if _, err := c.Search(ctx, anon); err != nil {
		t.Errorf("authenticated caller must bypass the quota: %v", err)
	}
}
