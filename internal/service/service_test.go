package service

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/andresuchdata/estoque-drawdown/backend-go/internal/cache"
	"github.com/andresuchdata/estoque-drawdown/backend-go/internal/catalog"
	"github.com/andresuchdata/estoque-drawdown/backend-go/internal/domain"
	"github.com/andresuchdata/estoque-drawdown/backend-go/internal/drawdown"
	"github.com/andresuchdata/estoque-drawdown/backend-go/internal/ingest"
	"github.com/andresuchdata/estoque-drawdown/backend-go/internal/report"
	"github.com/andresuchdata/estoque-drawdown/backend-go/internal/repository"
	"github.com/andresuchdata/estoque-drawdown/backend-go/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	mu          sync.Mutex
	cat         *domain.Catalog
	err         error
	invalidated int
}

func (p *fakeProvider) Get(ctx context.Context) (*domain.Catalog, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cat, p.err
}

func (p *fakeProvider) Invalidate(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.invalidated++
	return nil
}

func (p *fakeProvider) LoadedAt() time.Time { return time.Time{} }

type fakeMutator struct {
	reqs []domain.MutationRequest
}

func (m *fakeMutator) Mutate(ctx context.Context, req domain.MutationRequest) (domain.MutationResponse, error) {
	m.reqs = append(m.reqs, req)
	if req.Code == "FAIL" {
		return domain.MutationResponse{}, errors.New("boom")
	}
	stock := 100 - req.Quantity
	return domain.MutationResponse{Success: true, ResultingStock: &stock}, nil
}

func (m *fakeMutator) Adjust(ctx context.Context, code string, quantity int, direction domain.Direction, actor string) (domain.MutationResponse, error) {
	return m.Mutate(ctx, domain.MutationRequest{Code: code, Quantity: quantity, Direction: direction, Actor: actor})
}

type fakeHistory struct {
	reports []domain.SubmissionReport
	filter  repository.HistoryFilter
}

func (h *fakeHistory) SaveReport(ctx context.Context, r domain.SubmissionReport) error {
	h.reports = append(h.reports, r)
	return nil
}

func (h *fakeHistory) ListHistory(ctx context.Context, f repository.HistoryFilter) ([]domain.HistoryEntry, error) {
	h.filter = f
	return []domain.HistoryEntry{}, nil
}

type fakeArchive struct {
	uploads map[string][]byte
	prefix  string
}

func (a *fakeArchive) ListObjects(ctx context.Context, prefix string) ([]storage.ObjectInfo, error) {
	a.prefix = prefix
	var out []storage.ObjectInfo
	for k, v := range a.uploads {
		out = append(out, storage.ObjectInfo{Key: k, Size: int64(len(v))})
	}
	return out, nil
}

func (a *fakeArchive) GetObject(ctx context.Context, key string) ([]byte, error) {
	return a.uploads[key], nil
}

func (a *fakeArchive) UploadObject(ctx context.Context, key string, data []byte, contentType string) error {
	if a.uploads == nil {
		a.uploads = map[string][]byte{}
	}
	a.uploads[key] = data
	return nil
}

func testCatalog() *domain.Catalog {
	return domain.NewCatalog([]domain.SKU{
		{Code: "P001", Name: "Parafuso", Category: "Fixação", StockCurrent: 10, StockMin: 5, StockMax: 40, UnitCost: 1.5},
		{Code: "P002", Name: "Porca", Category: "Fixação", StockCurrent: 2, StockMin: 5, StockMax: 40, UnitCost: 0.5},
		{Code: "P003", Name: "Arruela", Category: "Acessórios", StockCurrent: 60, StockMin: 5, StockMax: 40, UnitCost: 0.2},
		{Code: "KIT1", Name: "Kit montagem", Category: "Kits", IsBundle: true,
			Components: []domain.Component{{Code: "P001", Multiplier: 2}, {Code: "P002", Multiplier: 1}}},
	})
}

type fixture struct {
	provider *fakeProvider
	mutator  *fakeMutator
	history  *fakeHistory
	archive  *fakeArchive
	svc      *DrawdownService
}

func newFixture(withMutator bool) *fixture {
	f := &fixture{
		provider: &fakeProvider{cat: testCatalog()},
		mutator:  &fakeMutator{},
		history:  &fakeHistory{},
		archive:  &fakeArchive{},
	}
	var mutator drawdown.StockMutator
	if withMutator {
		mutator = f.mutator
	}
	f.svc = NewDrawdownService(DrawdownDeps{
		Catalog:      f.provider,
		Previews:     cache.NewMemoryPreviewStore(time.Minute),
		Orchestrator: drawdown.NewOrchestrator(mutator),
		History:      f.history,
		Archive:      f.archive,
	})
	f.svc.newID = func() string { return "batch-1" }
	f.svc.now = func() time.Time { return time.Date(2024, 5, 2, 10, 0, 0, 0, time.UTC) }
	return f
}

const upload = "codigo,quantidade\nKIT1,3\np001,1\nUNKNOWN,4\n"

func TestDrawdownService_Preview(t *testing.T) {
	f := newFixture(true)

	preview, err := f.svc.Preview(context.Background(), "vendas.csv", []byte(upload))
	require.NoError(t, err)

	assert.Equal(t, "batch-1", preview.BatchID)
	require.Len(t, preview.Result.Matched, 2)
	assert.Equal(t, "P001", preview.Result.Matched[0].Code)
	assert.Equal(t, 7, preview.Result.Matched[0].Quantity)
	assert.Equal(t, 3, preview.Result.Matched[0].StockAfter)
	assert.Equal(t, "P002", preview.Result.Matched[1].Code)
	assert.Equal(t, -1, preview.Result.Matched[1].StockAfter)
	assert.Equal(t, []domain.UnmatchedLine{{Code: "UNKNOWN", Quantity: 4}}, preview.Result.Unmatched)
	assert.Equal(t, 1, preview.Summary.Negative)

	stored, err := f.svc.GetPreview(context.Background(), "batch-1")
	require.NoError(t, err)
	assert.Equal(t, preview.Result, stored.Result)
}

func TestDrawdownService_PreviewErrors(t *testing.T) {
	f := newFixture(true)
	f.provider.err = catalog.ErrCatalogUnavailable
	_, err := f.svc.Preview(context.Background(), "vendas.csv", []byte(upload))
	assert.ErrorIs(t, err, catalog.ErrCatalogUnavailable)

	f.provider.err = nil
	f.provider.cat = nil
	_, err = f.svc.Preview(context.Background(), "vendas.csv", []byte(upload))
	assert.ErrorIs(t, err, ErrCatalogNotLoaded)

	f.provider.cat = testCatalog()
	_, err = f.svc.Preview(context.Background(), "vendas.pdf", []byte(upload))
	reason, ok := ingest.AsReason(err)
	require.True(t, ok)
	assert.Equal(t, ingest.ReasonUnsupportedFormat, reason.Code)
}

func TestDrawdownService_SimulateKeepsPreview(t *testing.T) {
	f := newFixture(true)
	_, err := f.svc.Preview(context.Background(), "vendas.csv", []byte(upload))
	require.NoError(t, err)

	rep, err := f.svc.Submit(context.Background(), "batch-1", "ana", "")
	require.NoError(t, err)
	assert.Equal(t, domain.ModeSimulate, rep.Mode)
	assert.Equal(t, 2, rep.SuccessCount)
	assert.Empty(t, f.mutator.reqs)
	assert.Empty(t, f.archive.uploads)
	assert.Len(t, f.history.reports, 1)

	_, err = f.svc.GetPreview(context.Background(), "batch-1")
	assert.NoError(t, err)
}

func TestDrawdownService_ApplyConsumesPreview(t *testing.T) {
	f := newFixture(true)
	_, err := f.svc.Preview(context.Background(), "vendas.csv", []byte(upload))
	require.NoError(t, err)

	rep, err := f.svc.Submit(context.Background(), "batch-1", "ana", domain.ModeApply)
	require.NoError(t, err)
	assert.Equal(t, 2, rep.SuccessCount)
	require.Len(t, f.mutator.reqs, 2)
	assert.Equal(t, "batch-1:0", f.mutator.reqs[0].IdempotencyKey)
	assert.Equal(t, domain.DirectionOut, f.mutator.reqs[1].Direction)
	assert.Equal(t, 1, f.provider.invalidated)
	assert.Len(t, f.history.reports, 1)
	require.Len(t, f.archive.uploads, 1)
	for key, data := range f.archive.uploads {
		assert.True(t, strings.HasPrefix(key, "drawdown/"), key)
		assert.True(t, bytes.HasPrefix(data, []byte("\xef\xbb\xbf")))
	}

	_, err = f.svc.Submit(context.Background(), "batch-1", "ana", domain.ModeApply)
	assert.ErrorIs(t, err, ErrPreviewNotFound)
}

func TestDrawdownService_SubmitValidation(t *testing.T) {
	f := newFixture(false)
	_, err := f.svc.Preview(context.Background(), "vendas.csv", []byte(upload))
	require.NoError(t, err)

	_, err = f.svc.Submit(context.Background(), "batch-1", "", domain.ModeApply)
	assert.ErrorIs(t, err, drawdown.ErrNoMutator)

	_, err = f.svc.Submit(context.Background(), "batch-1", "", "force")
	assert.ErrorIs(t, err, drawdown.ErrInvalidMode)

	// a rejected submission must not consume the preview
	_, err = f.svc.GetPreview(context.Background(), "batch-1")
	assert.NoError(t, err)

	_, err = f.svc.Submit(context.Background(), "missing", "", domain.ModeSimulate)
	assert.ErrorIs(t, err, ErrPreviewNotFound)
}

func TestDrawdownService_ExportPreview(t *testing.T) {
	f := newFixture(true)
	_, err := f.svc.Preview(context.Background(), "vendas.csv", []byte(upload))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, f.svc.ExportPreview(context.Background(), "batch-1", TableUnmatched, &buf))
	assert.Contains(t, buf.String(), "UNKNOWN")

	buf.Reset()
	require.NoError(t, f.svc.ExportPreview(context.Background(), "batch-1", "", &buf))
	assert.Contains(t, buf.String(), "P001")

	assert.ErrorIs(t, f.svc.ExportPreview(context.Background(), "batch-1", "other", &buf), ErrUnknownTable)
	assert.ErrorIs(t, f.svc.ExportPreview(context.Background(), "nope", TableMatched, &buf), ErrPreviewNotFound)
}

func TestDrawdownService_HistoryAndArchive(t *testing.T) {
	f := newFixture(true)

	_, err := f.svc.History(context.Background(), repository.HistoryFilter{Codes: []string{" p001 "}})
	require.NoError(t, err)
	assert.Equal(t, repository.DefaultHistoryLimit, f.history.filter.Limit)
	assert.Equal(t, []string{"P001"}, f.history.filter.Codes)

	_, err = f.svc.Archive(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "drawdown/", f.archive.prefix)
}

func TestInventoryService_Views(t *testing.T) {
	provider := &fakeProvider{cat: testCatalog()}
	svc := NewInventoryService(provider, nil, "")
	ctx := context.Background()

	items, err := svc.List(ctx, report.Filter{Category: "fixação"})
	require.NoError(t, err)
	assert.Len(t, items, 2)

	summary, err := svc.Summary(ctx, report.Filter{})
	require.NoError(t, err)
	assert.Equal(t, 4, summary.Products)
	assert.Equal(t, 1, summary.ByStatus[domain.StatusCritical])
	assert.Equal(t, 1, summary.ByStatus[domain.StatusExcess])

	categories, err := svc.Categories(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Fixação", "Acessórios", "Kits"}, categories)

	critical, err := svc.Critical(ctx)
	require.NoError(t, err)
	require.Len(t, critical.Items, 1)
	assert.Equal(t, "P002", critical.Items[0].Code)
	assert.Equal(t, 3, critical.Items[0].Shortfall)

	bundles, err := svc.Bundles(ctx)
	require.NoError(t, err)
	require.Len(t, bundles, 1)
	assert.Equal(t, "KIT1", bundles[0].Code)

	_, err = svc.Refresh(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, provider.invalidated)
}

func TestInventoryService_Adjust(t *testing.T) {
	provider := &fakeProvider{cat: testCatalog()}
	mutator := &fakeMutator{}
	ctx := context.Background()

	_, err := NewInventoryService(provider, nil, "").Adjust(ctx, "P001", 1, domain.DirectionIn, "")
	assert.ErrorIs(t, err, ErrNoAdjuster)

	svc := NewInventoryService(provider, mutator, "balcao")
	_, err = svc.Adjust(ctx, "X999", 1, domain.DirectionIn, "")
	assert.ErrorIs(t, err, ErrUnknownSKU)

	resp, err := svc.Adjust(ctx, " p001", 4, domain.DirectionIn, "")
	require.NoError(t, err)
	assert.True(t, resp.Success)
	require.Len(t, mutator.reqs, 1)
	assert.Equal(t, "P001", mutator.reqs[0].Code)
	assert.Equal(t, "balcao", mutator.reqs[0].Actor)
	assert.Equal(t, 1, provider.invalidated)
}
