package service

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/batch-slot-api/internal/dto"
	appErrors "github.com/noah-isme/batch-slot-api/pkg/errors"
	"github.com/noah-isme/batch-slot-api/pkg/export"
)

type occupancyProvider interface {
	Occupancy(ctx context.Context, participantID, excludeBatchID, tz string) (*dto.OccupancyResponse, error)
}

// TimetableDocument is a rendered timetable ready to be streamed.
type TimetableDocument struct {
	Filename    string
	ContentType string
	Body        []byte
}

// TimetableExportService renders a participant's weekly commitments in their timezone.
type TimetableExportService struct {
	occupancy occupancyProvider
	exporters map[string]export.Exporter
	logger    *zap.Logger
}

// NewTimetableExportService registers the CSV and PDF exporters.
func NewTimetableExportService(occupancy occupancyProvider, logger *zap.Logger) *TimetableExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	csvExporter := export.NewCSVExporter()
	pdfExporter := export.NewPDFExporter()
	return &TimetableExportService{
		occupancy: occupancy,
		exporters: map[string]export.Exporter{
			csvExporter.Extension(): csvExporter,
			pdfExporter.Extension(): pdfExporter,
		},
		logger: logger,
	}
}

// Export renders the timetable as csv (default) or pdf.
func (s *TimetableExportService) Export(ctx context.Context, participantID, tz, format string) (*TimetableDocument, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = "csv"
	}
	exporter, ok := s.exporters[format]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}

	occupancy, err := s.occupancy.Occupancy(ctx, participantID, "", tz)
	if err != nil {
		return nil, err
	}
	items := append([]dto.OccupancyItem(nil), occupancy.Items...)
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i].Projection, items[j].Projection
		if dayOrder(a.Day) != dayOrder(b.Day) {
			return dayOrder(a.Day) < dayOrder(b.Day)
		}
		return a.Start < b.Start
	})

	table := export.Table{
		Title:    fmt.Sprintf("Weekly timetable for %s", participantID),
		Subtitle: fmt.Sprintf("Times shown in %s", occupancy.Timezone),
		Headers:  []string{"Day", "Time", "Course", "Role", "Batch", "Reference time"},
		Rows:     make([][]string, 0, len(items)),
	}
	for _, item := range items {
		p := item.Projection
		when := fmt.Sprintf("%s-%s", p.Start, p.End)
		if p.EndDay != p.Day {
			when += " (+1)"
		}
		course := item.CourseName
		if course == "" {
			course = item.CourseID
		}
		table.Rows = append(table.Rows, []string{p.Day.String(), when, course, string(item.Role), item.BatchID, p.ReferenceLabel})
	}

	body, err := exporter.Render(table)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render timetable")
	}
	s.logger.Debug("timetable exported", zap.String("participant_id", participantID), zap.String("format", format), zap.Int("rows", len(table.Rows)))
	return &TimetableDocument{
		Filename:    fmt.Sprintf("timetable-%s.%s", participantID, exporter.Extension()),
		ContentType: exporter.ContentType(),
		Body:        body,
	}, nil
}
