package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/dhobighat/api/internal/models"
	appErrors "github.com/dhobighat/api/pkg/errors"
	"github.com/dhobighat/api/pkg/export"
)

const exportBatchSize = 500

type exportItemLister interface {
	List(ctx context.Context, page models.ItemPage, includeArchived bool) ([]models.ClothingItem, error)
}

// ScheduleReport is a rendered cleaning-schedule export.
type ScheduleReport struct {
	Content     []byte
	ContentType string
	Filename    string
}

// ExportService renders the wardrobe cleaning schedule as CSV or PDF.
type ExportService struct {
	repo   exportItemLister
	csv    *export.CSVExporter
	pdf    *export.PDFExporter
	logger *zap.Logger
}

// NewExportService constructs the export service.
func NewExportService(repo exportItemLister, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		repo:   repo,
		csv:    export.NewCSVExporter(),
		pdf:    export.NewPDFExporter(),
		logger: logger,
	}
}

// BuildScheduleReport gathers the full unarchived wardrobe and renders it in
// the requested format ("csv" or "pdf").
func (s *ExportService) BuildScheduleReport(ctx context.Context, format string) (*ScheduleReport, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = "csv"
	}
	if format != "csv" && format != "pdf" {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}

	items, err := s.collectItems(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to gather items for export")
	}

	dataset := buildScheduleDataset(items, time.Now().UTC())
	stamp := time.Now().UTC().Format("2006-01-02")

	switch format {
	case "pdf":
		content, err := s.pdf.Render(dataset, "Cleaning Schedule")
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf export")
		}
		return &ScheduleReport{Content: content, ContentType: "application/pdf", Filename: "cleaning-schedule-" + stamp + ".pdf"}, nil
	default:
		content, err := s.csv.Render(dataset)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv export")
		}
		return &ScheduleReport{Content: content, ContentType: "text/csv", Filename: "cleaning-schedule-" + stamp + ".csv"}, nil
	}
}

func (s *ExportService) collectItems(ctx context.Context) ([]models.ClothingItem, error) {
	var all []models.ClothingItem
	page := models.ItemPage{Skip: 0, Limit: exportBatchSize}
	for {
		batch, err := s.repo.List(ctx, page, false)
		if err != nil {
			return nil, err
		}
		all = append(all, batch...)
		if int64(len(batch)) < page.Limit {
			break
		}
		page.Skip += page.Limit
	}
	return all, nil
}

func buildScheduleDataset(items []models.ClothingItem, now time.Time) export.Dataset {
	headers := []string{"Name", "Type", "Last Cleaned", "Interval (days)", "Next Due", "Overdue"}
	rows := make([][]string, 0, len(items))
	for _, item := range items {
		overdue := "no"
		if !item.NextCleaningDate.After(now) {
			overdue = "yes"
		}
		rows = append(rows, []string{
			item.Name,
			item.ItemType,
			item.LastCleaned.Format(time.RFC3339),
			strconv.FormatFloat(float64(item.CleaningIntervalSeconds)/86400, 'f', -1, 64),
			item.NextCleaningDate.Format(time.RFC3339),
			overdue,
		})
	}
	return export.Dataset{Headers: headers, Rows: rows}
}
