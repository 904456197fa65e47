package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/noah-isme/dismissal-api/internal/export"
	"github.com/noah-isme/dismissal-api/internal/reconcile"
)

// ExportFile is a rendered spreadsheet.
type ExportFile struct {
	Filename string
	Rows     int
	Content  []byte
}

// ExportService renders dismissal records for a date range.
type ExportService interface {
	Workbook(ctx context.Context, start, end time.Time) (ExportFile, error)
}

type exportService struct {
	dismissals  DismissalService
	schoolShort string
	logger      zerolog.Logger
}

// NewExportService constructs the exporter. schoolShort prefixes file names.
func NewExportService(dismissals DismissalService, schoolShort string, logger zerolog.Logger) ExportService {
	return &exportService{
		dismissals:  dismissals,
		schoolShort: schoolShort,
		logger:      logger.With().Str("component", "export_service").Logger(),
	}
}

func (s *exportService) Workbook(ctx context.Context, start, end time.Time) (ExportFile, error) {
	records, err := s.dismissals.Range(ctx, start, end)
	if err != nil {
		return ExportFile{}, err
	}

	rows := reconcile.ExportRows(records, s.dismissals.Location())
	content, err := export.WriteXLSX(rows)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to render export workbook")
		return ExportFile{}, err
	}

	filename := fmt.Sprintf("%s_%s_%s_%s.xlsx", s.schoolShort, export.SheetName, reconcile.DateKey(start), reconcile.DateKey(end))
	s.logger.Info().Int("rows", len(rows)).Str("filename", filename).Msg("export rendered")
	return ExportFile{Filename: filename, Rows: len(rows), Content: content}, nil
}
