package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/abkawan/card-ledger/internal/db"
	"github.com/abkawan/card-ledger/internal/models"
	"github.com/abkawan/card-ledger/internal/service"
)

func newReporter(store service.Store) *service.ReportService {
	return service.NewReportService(store, testLogger()).
		WithClock(func() time.Time { return testClock })
}

func seedReportTransactions(store *db.Memory, timestamps ...time.Time) {
	for i, ts := range timestamps {
		store.AddTransaction(models.Transaction{
			TransactionID:     fmt16(i + 1),
			CardNumber:        testCardNumber,
			AccountID:         testAccountID,
			OriginalTimestamp: ts,
		})
	}
}

func TestGenerateMonthlyReportWindow(t *testing.T) {
	store := newLedger(t)
	// Clock is 2024-03-15, so the window is [2024-03-01, 2024-03-31].
	seedReportTransactions(store,
		time.Date(2024, 2, 29, 23, 59, 59, 0, time.UTC), // outside
		time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),     // inside
		time.Date(2024, 3, 31, 23, 59, 59, 0, time.UTC), // inside
		time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC),     // outside
	)
	reporter := newReporter(store)

	txns, err := reporter.Generate(context.Background(), &models.ReportRequest{
		ReportType:   models.ReportMonthly,
		Confirmation: "Y",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(txns) != 2 {
		t.Fatalf("matched = %d, want 2", len(txns))
	}
	if txns[0].TransactionID != fmt16(3) || txns[1].TransactionID != fmt16(2) {
		t.Errorf("got ids %s, %s; want newest first within March", txns[0].TransactionID, txns[1].TransactionID)
	}
}

func TestGenerateYearlyReportWindow(t *testing.T) {
	store := newLedger(t)
	seedReportTransactions(store,
		time.Date(2023, 12, 31, 23, 59, 59, 0, time.UTC), // outside
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),      // inside
		time.Date(2024, 12, 31, 23, 59, 59, 0, time.UTC), // inside
		time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),      // outside
	)
	reporter := newReporter(store)

	txns, err := reporter.Generate(context.Background(), &models.ReportRequest{
		ReportType:   models.ReportYearly,
		Confirmation: "y",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(txns) != 2 {
		t.Errorf("matched = %d, want 2", len(txns))
	}
}

func TestGenerateCustomReport(t *testing.T) {
	store := newLedger(t)
	seedReportTransactions(store,
		time.Date(2024, 1, 10, 8, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 20, 8, 0, 0, 0, time.UTC),
		time.Date(2024, 2, 5, 8, 0, 0, 0, time.UTC),
	)
	reporter := newReporter(store)

	txns, err := reporter.Generate(context.Background(), &models.ReportRequest{
		ReportType:   models.ReportCustom,
		StartDate:    "2024-01-01",
		EndDate:      "2024-01-31",
		Confirmation: "Y",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(txns) != 2 {
		t.Errorf("matched = %d, want 2", len(txns))
	}
}

func TestGenerateReportFailures(t *testing.T) {
	reporter := newReporter(newLedger(t))

	tests := []struct {
		name    string
		req     models.ReportRequest
		wantErr error
	}{
		{
			name:    "unconfirmed",
			req:     models.ReportRequest{ReportType: models.ReportMonthly, Confirmation: "n"},
			wantErr: service.ErrConfirmationRequired,
		},
		{
			name:    "missing custom range",
			req:     models.ReportRequest{ReportType: models.ReportCustom, StartDate: "2024-01-01", Confirmation: "Y"},
			wantErr: service.ErrMissingDateRange,
		},
		{
			name:    "invalid start date",
			req:     models.ReportRequest{ReportType: models.ReportCustom, StartDate: "2024-13-01", EndDate: "2024-01-31", Confirmation: "Y"},
			wantErr: service.ErrInvalidDate,
		},
		{
			name:    "invalid end date",
			req:     models.ReportRequest{ReportType: models.ReportCustom, StartDate: "2024-01-01", EndDate: "31-01-2024", Confirmation: "Y"},
			wantErr: service.ErrInvalidDate,
		},
		{
			name:    "start after end",
			req:     models.ReportRequest{ReportType: models.ReportCustom, StartDate: "2024-02-01", EndDate: "2024-01-01", Confirmation: "Y"},
			wantErr: service.ErrInvalidRange,
		},
		{
			name:    "unknown report type",
			req:     models.ReportRequest{ReportType: "WEEKLY", Confirmation: "Y"},
			wantErr: service.ErrInvalidReportType,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := reporter.Generate(context.Background(), &tt.req); !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestGenerateReportTypeIsCaseInsensitive(t *testing.T) {
	reporter := newReporter(newLedger(t))

	if _, err := reporter.Generate(context.Background(), &models.ReportRequest{
		ReportType:   "monthly",
		Confirmation: "Y",
	}); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}
