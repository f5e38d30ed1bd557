package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/andresuchdata/estoque-drawdown/backend-go/internal/cache"
	"github.com/andresuchdata/estoque-drawdown/backend-go/internal/domain"
	"github.com/andresuchdata/estoque-drawdown/backend-go/internal/drawdown"
	"github.com/andresuchdata/estoque-drawdown/backend-go/internal/export"
	"github.com/andresuchdata/estoque-drawdown/backend-go/internal/ingest"
	"github.com/andresuchdata/estoque-drawdown/backend-go/internal/repository"
	"github.com/andresuchdata/estoque-drawdown/backend-go/internal/storage"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Export tables of a preview.
const (
	TableMatched   = "matched"
	TableUnmatched = "unmatched"
)

type DrawdownDeps struct {
	Catalog      CatalogProvider
	Previews     cache.PreviewStore
	Orchestrator *drawdown.Orchestrator
	History      repository.DrawdownRepository
	Archive      storage.ObjectStorage
	// ArchivePrefix is the object key prefix of archived outcome CSVs.
	ArchivePrefix string
	Ingest        ingest.Options
}

// DrawdownService runs the upload → preview → submit flow.
type DrawdownService struct {
	catalog       CatalogProvider
	previews      cache.PreviewStore
	orchestrator  *drawdown.Orchestrator
	history       repository.DrawdownRepository
	archive       storage.ObjectStorage
	archivePrefix string
	ingest        ingest.Options
	newID         func() string
	now           func() time.Time
}

func NewDrawdownService(deps DrawdownDeps) *DrawdownService {
	s := &DrawdownService{
		catalog:       deps.Catalog,
		previews:      deps.Previews,
		orchestrator:  deps.Orchestrator,
		history:       deps.History,
		archive:       deps.Archive,
		archivePrefix: deps.ArchivePrefix,
		ingest:        deps.Ingest,
		newID:         uuid.NewString,
		now:           time.Now,
	}
	if s.previews == nil {
		s.previews = cache.NewMemoryPreviewStore(0)
	}
	if s.orchestrator == nil {
		s.orchestrator = drawdown.NewOrchestrator(nil)
	}
	if s.history == nil {
		s.history = repository.NewNoopDrawdownRepository()
	}
	if s.archive == nil {
		s.archive = storage.NewNoop()
	}
	s.archivePrefix = strings.Trim(s.archivePrefix, "/")
	if s.archivePrefix == "" {
		s.archivePrefix = "drawdown"
	}
	return s
}

// CanApply reports whether real submissions are possible.
func (s *DrawdownService) CanApply() bool {
	return s.orchestrator.CanApply()
}

// Reconcile ingests an upload and reconciles it against the current catalog
// without storing anything.
func (s *DrawdownService) Reconcile(ctx context.Context, fileName string, content []byte) (*domain.Preview, error) {
	cat, err := loadCatalog(ctx, s.catalog)
	if err != nil {
		return nil, err
	}

	orders, err := s.ingest.Parse(fileName, content)
	if err != nil {
		return nil, err
	}

	expanded := drawdown.Expand(orders, cat)
	result := drawdown.Match(expanded, cat)

	return &domain.Preview{
		BatchID:   s.newID(),
		FileName:  fileName,
		CreatedAt: s.now(),
		Orders:    orders,
		Expanded:  expanded,
		Result:    result,
		Summary:   result.Summary(),
	}, nil
}

// Preview reconciles an upload and keeps the result under a new batch id
// until it is submitted or expires.
func (s *DrawdownService) Preview(ctx context.Context, fileName string, content []byte) (*domain.Preview, error) {
	preview, err := s.Reconcile(ctx, fileName, content)
	if err != nil {
		return nil, err
	}

	if err := s.previews.Put(ctx, preview); err != nil {
		return nil, fmt.Errorf("store preview: %w", err)
	}

	log.Info().
		Str("batch_id", preview.BatchID).
		Str("file", fileName).
		Int("matched", preview.Summary.Matched).
		Int("unmatched", preview.Summary.Unmatched).
		Int("negative", preview.Summary.Negative).
		Msg("drawdown: preview created")

	return preview, nil
}

// Submit runs a stored preview. Simulation leaves the preview in place so it
// can still be applied; apply consumes it, so a batch is applied at most once.
func (s *DrawdownService) Submit(ctx context.Context, batchID, actor string, mode domain.SubmitMode) (domain.SubmissionReport, error) {
	if mode == "" {
		mode = domain.ModeSimulate
	}
	if mode != domain.ModeSimulate && mode != domain.ModeApply {
		return domain.SubmissionReport{}, fmt.Errorf("%w: %q", drawdown.ErrInvalidMode, mode)
	}
	if mode == domain.ModeApply && !s.orchestrator.CanApply() {
		return domain.SubmissionReport{}, drawdown.ErrNoMutator
	}

	var (
		preview *domain.Preview
		ok      bool
		err     error
	)
	if mode == domain.ModeApply {
		preview, ok, err = s.previews.Take(ctx, batchID)
	} else {
		preview, ok, err = s.previews.Peek(ctx, batchID)
	}
	if err != nil {
		return domain.SubmissionReport{}, fmt.Errorf("load preview: %w", err)
	}
	if !ok {
		return domain.SubmissionReport{}, fmt.Errorf("%w: %s", ErrPreviewNotFound, batchID)
	}

	return s.Run(ctx, preview, actor, mode)
}

// Run submits the matched lines of a preview directly, then records the
// audit trail. The CLI uses it without a preview store.
func (s *DrawdownService) Run(ctx context.Context, preview *domain.Preview, actor string, mode domain.SubmitMode) (domain.SubmissionReport, error) {
	report, err := s.orchestrator.Submit(ctx, drawdown.SubmitInput{
		BatchID: preview.BatchID,
		Actor:   actor,
		Mode:    mode,
		Lines:   preview.Result.Matched,
	})
	if err != nil {
		return domain.SubmissionReport{}, err
	}

	// The request context may already be cancelled; the audit still has to land.
	auditCtx := context.WithoutCancel(ctx)

	if err := s.history.SaveReport(auditCtx, report); err != nil {
		log.Error().Err(err).Str("batch_id", report.BatchID).Msg("drawdown: failed to save history")
	}

	if report.Mode == domain.ModeApply {
		s.archiveReport(auditCtx, report)
		if err := s.catalog.Invalidate(auditCtx); err != nil {
			log.Warn().Err(err).Msg("drawdown: catalog invalidate failed")
		}
	}

	return report, nil
}

func (s *DrawdownService) archiveReport(ctx context.Context, report domain.SubmissionReport) {
	var buf bytes.Buffer
	if err := export.WriteCSV(&buf, export.OutcomesTable(report.Outcomes)); err != nil {
		log.Error().Err(err).Str("batch_id", report.BatchID).Msg("drawdown: failed to render outcomes")
		return
	}

	key := storage.ArchiveKey(s.archivePrefix, report.BatchID, report.FinishedAt)
	if err := s.archive.UploadObject(ctx, key, buf.Bytes(), "text/csv; charset=utf-8"); err != nil {
		log.Error().Err(err).Str("key", key).Msg("drawdown: failed to archive outcomes")
		return
	}
	log.Info().Str("key", key).Msg("drawdown: outcomes archived")
}

// ExportPreview writes the matched or unmatched table of a pending preview.
func (s *DrawdownService) ExportPreview(ctx context.Context, batchID, table string, w io.Writer) error {
	preview, ok, err := s.previews.Peek(ctx, batchID)
	if err != nil {
		return fmt.Errorf("load preview: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrPreviewNotFound, batchID)
	}

	var t export.Table
	switch table {
	case "", TableMatched:
		t = export.MatchedTable(preview.Result.Matched)
	case TableUnmatched:
		t = export.UnmatchedTable(preview.Result.Unmatched)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownTable, table)
	}
	return export.WriteCSV(w, t)
}

// GetPreview returns a pending preview without consuming it.
func (s *DrawdownService) GetPreview(ctx context.Context, batchID string) (*domain.Preview, error) {
	preview, ok, err := s.previews.Peek(ctx, batchID)
	if err != nil {
		return nil, fmt.Errorf("load preview: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrPreviewNotFound, batchID)
	}
	return preview, nil
}

func (s *DrawdownService) History(ctx context.Context, filter repository.HistoryFilter) ([]domain.HistoryEntry, error) {
	if filter.Limit <= 0 {
		filter.Limit = repository.DefaultHistoryLimit
	}
	for i, code := range filter.Codes {
		filter.Codes[i] = domain.NormalizeCode(code)
	}
	return s.history.ListHistory(ctx, filter)
}

// Archive lists the archived outcome CSVs.
func (s *DrawdownService) Archive(ctx context.Context) ([]storage.ObjectInfo, error) {
	return s.archive.ListObjects(ctx, s.archivePrefix+"/")
}
