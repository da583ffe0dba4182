package service

import (
	"context"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/abkawan/card-ledger/internal/models"
	"github.com/abkawan/card-ledger/internal/validation"
)

// ReportService derives a report date window and delegates to the store's
// date-range query. It performs no aggregation.
type ReportService struct {
	store  Store
	logger *logrus.Logger
	now    func() time.Time
}

// NewReportService creates a ReportService.
func NewReportService(store Store, logger *logrus.Logger) *ReportService {
	return &ReportService{store: store, logger: logger, now: time.Now}
}

// WithClock overrides the service clock. Intended for tests.
func (s *ReportService) WithClock(now func() time.Time) *ReportService {
	s.now = now
	return s
}

// Generate resolves the report window for the request and returns the
// matching transactions, newest first.
func (s *ReportService) Generate(ctx context.Context, req *models.ReportRequest) ([]models.Transaction, error) {
	if !strings.EqualFold(req.Confirmation, "Y") {
		return nil, ErrConfirmationRequired
	}

	startDate, endDate, err := s.resolveWindow(req)
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"report_type": req.ReportType,
		"start_date":  startDate.Format(validation.DateLayout),
		"end_date":    endDate.Format(validation.DateLayout),
	}).Info("generating transaction report")

	start, end := ExpandDateRange(startDate, endDate)
	return s.store.FindByDateRange(ctx, start, end)
}

func (s *ReportService) resolveWindow(req *models.ReportRequest) (time.Time, time.Time, error) {
	var zero time.Time

	switch strings.ToUpper(req.ReportType) {
	case models.ReportMonthly:
		now := s.now()
		start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
		end := start.AddDate(0, 1, -1)
		return start, end, nil

	case models.ReportYearly:
		now := s.now()
		start := time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, now.Location())
		end := time.Date(now.Year(), time.December, 31, 0, 0, 0, 0, now.Location())
		return start, end, nil

	case models.ReportCustom:
		if req.StartDate == "" || req.EndDate == "" {
			return zero, zero, ErrMissingDateRange
		}
		if !validation.IsValidDate(req.StartDate, validation.DateLayout) {
			return zero, zero, ErrInvalidDate
		}
		if !validation.IsValidDate(req.EndDate, validation.DateLayout) {
			return zero, zero, ErrInvalidDate
		}

		start, _ := time.Parse(validation.DateLayout, req.StartDate)
		end, _ := time.Parse(validation.DateLayout, req.EndDate)
		if start.After(end) {
			return zero, zero, ErrInvalidRange
		}
		return start, end, nil

	default:
		return zero, zero, ErrInvalidReportType
	}
}
