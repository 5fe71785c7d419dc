package scaledex

import (
	"context"

	domaccess "github.com/kailas-cloud/scaledex/internal/domain/access"
	domscale "github.com/kailas-cloud/scaledex/internal/domain/scale"
	"github.com/kailas-cloud/scaledex/internal/domain/search/request"
	"github.com/kailas-cloud/scaledex/internal/domain/search/result"
	domusage "github.com/kailas-cloud/scaledex/internal/domain/usage"
	healthuc "github.com/kailas-cloud/scaledex/internal/usecase/health"
)

type mockEmbedder struct {
	fn func(ctx context.Context, text string) (EmbeddingResult, error)
}

func (m *mockEmbedder) Embed(ctx context.Context, text string) (EmbeddingResult, error) {
	return m.fn(ctx, text)
}

// --- catalogUseCase mock ---

type mockCatalogUC struct {
	importFn func(ctx context.Context, scales []domscale.Scale) (int, error)
	getFn    func(ctx context.Context, id string) (domscale.Scale, error)
	deleteFn func(ctx context.Context, id string) error
	countFn  func(ctx context.Context) (int, error)
}

func (m *mockCatalogUC) Import(ctx context.Context, scales []domscale.Scale) (int, error) {
	return m.importFn(ctx, scales)
}

func (m *mockCatalogUC) Get(ctx context.Context, id string) (domscale.Scale, error) {
	return m.getFn(ctx, id)
}

func (m *mockCatalogUC) Delete(ctx context.Context, id string) error {
	return m.deleteFn(ctx, id)
}

func (m *mockCatalogUC) Count(ctx context.Context) (int, error) {
	return m.countFn(ctx)
}

// --- searchUseCase mock ---

type mockSearchUC struct {
	searchFn func(ctx context.Context, id domaccess.Identity, req request.Request) (result.Page, error)
	expandFn func(raw, locale string) (request.Expanded, error)
}

func (m *mockSearchUC) Search(ctx context.Context, id domaccess.Identity, req request.Request) (result.Page, error) {
	return m.searchFn(ctx, id, req)
}

func (m *mockSearchUC) Expand(raw, locale string) (request.Expanded, error) {
	return m.expandFn(raw, locale)
}

// --- healthUseCase / usageUseCase mocks ---

type mockHealthUC struct {
	report healthuc.Report
}

func (m *mockHealthUC) Check(context.Context) healthuc.Report { return m.report }

type mockUsageUC struct {
	fn func(ctx context.Context, period domusage.Period) (domusage.Report, error)
}

func (m *mockUsageUC) GetReport(ctx context.Context, period domusage.Period) (domusage.Report, error) {
	return m.fn(ctx, period)
}
