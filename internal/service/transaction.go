package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/abkawan/card-ledger/internal/models"
	"github.com/abkawan/card-ledger/internal/validation"
)

// timestampLayout is the wire layout for originalTimestamp.
const timestampLayout = "2006-01-02T15:04:05"

// firstTransactionID seeds the id sequence for an empty ledger.
const firstTransactionID = "0000000000000001"

// AuditRecorder receives one record per posting attempt, accepted or
// rejected. Recording is best-effort; failures never affect the posting.
type AuditRecorder interface {
	RecordPosting(ctx context.Context, rec PostingRecord) error
}

// PostingRecord is the audit view of one posting attempt.
type PostingRecord struct {
	TransactionID string          `bson:"transaction_id,omitempty" json:"transactionId,omitempty"`
	CardNumber    string          `bson:"card_number" json:"cardNumber"`
	Amount        decimal.Decimal `bson:"amount" json:"amount"`
	Accepted      bool            `bson:"accepted" json:"accepted"`
	Reason        string          `bson:"reason,omitempty" json:"reason,omitempty"`
	RecordedAt    time.Time       `bson:"recorded_at" json:"recordedAt"`
}

// EventPublisher emits posted-transaction events after commit.
type EventPublisher interface {
	PublishTransactionPosted(ctx context.Context, txn *models.Transaction) error
}

// TransactionService owns the posting workflow and the transaction reads.
type TransactionService struct {
	store  Store
	audit  AuditRecorder
	events EventPublisher
	logger *logrus.Logger
	now    func() time.Time
}

// NewTransactionService creates a TransactionService. audit and events may
// be nil, disabling the audit trail and event publication.
func NewTransactionService(store Store, audit AuditRecorder, events EventPublisher, logger *logrus.Logger) *TransactionService {
	return &TransactionService{
		store:  store,
		audit:  audit,
		events: events,
		logger: logger,
		now:    time.Now,
	}
}

// WithClock overrides the service clock. Intended for tests.
func (s *TransactionService) WithClock(now func() time.Time) *TransactionService {
	s.now = now
	return s
}

// Post runs the posting workflow: confirmation, card and account
// resolution, date and expiration checks, credit-limit enforcement, id
// assignment, then the atomic insert-and-balance-update unit. The first
// failing gate aborts with no writes.
func (s *TransactionService) Post(ctx context.Context, req *models.PostTransactionRequest) (*models.Transaction, error) {
	txn, err := s.post(ctx, req)
	if err != nil {
		s.recordAudit(ctx, req, "", false, err.Error())
		return nil, err
	}

	s.recordAudit(ctx, req, txn.TransactionID, true, "")
	s.publishPosted(ctx, txn)
	return txn, nil
}

func (s *TransactionService) post(ctx context.Context, req *models.PostTransactionRequest) (*models.Transaction, error) {
	if !strings.EqualFold(req.Confirmation, "Y") {
		return nil, ErrConfirmationRequired
	}

	tx, err := s.store.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin posting unit: %w", err)
	}
	defer tx.Rollback()

	card, err := tx.GetCard(ctx, req.CardNumber)
	if err != nil {
		return nil, err
	}

	account, err := tx.GetAccountForUpdate(ctx, card.AccountID)
	if err != nil {
		return nil, err
	}

	originalDate := datePortion(req.OriginalTimestamp)
	if !validation.IsValidDate(originalDate, validation.DateLayout) {
		return nil, ErrInvalidDate
	}
	originalTimestamp, err := time.Parse(timestampLayout, req.OriginalTimestamp)
	if err != nil {
		return nil, ErrInvalidDate
	}

	if truncateToDate(originalTimestamp).After(account.ExpirationDate) {
		return nil, ErrAccountExpired
	}

	projected := account.CurrentCycleCredit.Sub(account.CurrentCycleDebit).Add(req.Amount)
	if projected.GreaterThan(account.CreditLimit) {
		return nil, ErrOverLimit
	}

	transactionID, err := s.nextTransactionID(ctx, tx)
	if err != nil {
		return nil, err
	}

	txn := &models.Transaction{
		TransactionID:      transactionID,
		CardNumber:         req.CardNumber,
		AccountID:          card.AccountID,
		TypeCode:           req.TypeCode,
		CategoryCode:       req.CategoryCode,
		Source:             req.Source,
		Description:        req.Description,
		Amount:             req.Amount,
		MerchantID:         req.MerchantID,
		MerchantName:       req.MerchantName,
		MerchantCity:       req.MerchantCity,
		MerchantZip:        req.MerchantZip,
		OriginalTimestamp:  originalTimestamp,
		ProcessedTimestamp: s.now(),
	}
	if err := tx.InsertTransaction(ctx, txn); err != nil {
		return nil, err
	}

	account.CurrentBalance = account.CurrentBalance.Add(req.Amount)
	if req.Amount.Sign() >= 0 {
		account.CurrentCycleCredit = account.CurrentCycleCredit.Add(req.Amount)
	} else {
		account.CurrentCycleDebit = account.CurrentCycleDebit.Add(req.Amount.Abs())
	}
	if err := tx.UpdateAccount(ctx, account); err != nil {
		return nil, err
	}

	balance, err := tx.GetOrCreateCategoryBalance(ctx, card.AccountID, req.TypeCode, req.CategoryCode)
	if err != nil {
		return nil, err
	}
	balance.Balance = balance.Balance.Add(req.Amount)
	if err := tx.SaveCategoryBalance(ctx, balance); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit posting unit: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"transaction_id": txn.TransactionID,
		"card_number":    txn.CardNumber,
		"account_id":     txn.AccountID,
		"amount":         txn.Amount.String(),
	}).Info("transaction posted")

	return txn, nil
}

// nextTransactionID increments the most recent id, zero-padded to 16
// digits. A non-numeric latest id falls back to a uuid-derived 16-char id;
// that path is not collision-checked, a known weakness kept for
// compatibility with the id sequence this ledger inherited.
func (s *TransactionService) nextTransactionID(ctx context.Context, tx Tx) (string, error) {
	latest, err := tx.LatestTransactionID(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to read latest transaction id: %w", err)
	}
	if latest == "" {
		return firstTransactionID, nil
	}

	n, err := strconv.ParseInt(latest, 10, 64)
	if err != nil {
		s.logger.WithField("latest_id", latest).Warn("non-numeric transaction id, falling back to random id")
		return strings.ReplaceAll(uuid.New().String(), "-", "")[:16], nil
	}
	return fmt.Sprintf("%016d", n+1), nil
}

// GetTransaction retrieves a transaction by id.
func (s *TransactionService) GetTransaction(ctx context.Context, transactionID string) (*models.Transaction, error) {
	return s.store.GetTransaction(ctx, transactionID)
}

// ListTransactions returns one page ordered by originalTimestamp
// descending. Negative pages and non-positive sizes fall back to the
// defaults (page 0, size 10).
func (s *TransactionService) ListTransactions(ctx context.Context, page, size int) (*models.TransactionPage, error) {
	if page < 0 {
		page = 0
	}
	if size <= 0 {
		size = 10
	}

	txns, total, err := s.store.FindAll(ctx, page, size)
	if err != nil {
		return nil, err
	}

	content := make([]models.TransactionListItem, 0, len(txns))
	for _, txn := range txns {
		content = append(content, models.TransactionListItem{
			TransactionID:   txn.TransactionID,
			TransactionDate: txn.OriginalTimestamp,
			Description:     txn.Description,
			Amount:          txn.Amount,
		})
	}

	totalPages := int(total) / size
	if int(total)%size != 0 {
		totalPages++
	}

	return &models.TransactionPage{
		Content:    content,
		Page:       page,
		TotalPages: totalPages,
		TotalItems: total,
	}, nil
}

// GetTransactionsByCard returns a card's transactions, newest first.
func (s *TransactionService) GetTransactionsByCard(ctx context.Context, cardNumber string) ([]models.Transaction, error) {
	return s.store.FindByCardNumber(ctx, cardNumber)
}

// GetTransactionsByAccount returns an account's transactions, newest first.
func (s *TransactionService) GetTransactionsByAccount(ctx context.Context, accountID int64) ([]models.Transaction, error) {
	return s.store.FindByAccountID(ctx, accountID)
}

// GetTransactionsByDateRange returns transactions whose originalTimestamp
// falls within the full calendar days [start 00:00:00, end 23:59:59].
func (s *TransactionService) GetTransactionsByDateRange(ctx context.Context, startDate, endDate time.Time) ([]models.Transaction, error) {
	start, end := ExpandDateRange(startDate, endDate)
	return s.store.FindByDateRange(ctx, start, end)
}

// ExpandDateRange widens two calendar dates to cover their full days.
func ExpandDateRange(startDate, endDate time.Time) (time.Time, time.Time) {
	start := truncateToDate(startDate)
	end := time.Date(endDate.Year(), endDate.Month(), endDate.Day(), 23, 59, 59, 0, endDate.Location())
	return start, end
}

func (s *TransactionService) recordAudit(ctx context.Context, req *models.PostTransactionRequest, transactionID string, accepted bool, reason string) {
	if s.audit == nil {
		return
	}
	rec := PostingRecord{
		TransactionID: transactionID,
		CardNumber:    req.CardNumber,
		Amount:        req.Amount,
		Accepted:      accepted,
		Reason:        reason,
		RecordedAt:    s.now(),
	}
	if err := s.audit.RecordPosting(ctx, rec); err != nil {
		s.logger.WithError(err).Warn("failed to record posting audit entry")
	}
}

func (s *TransactionService) publishPosted(ctx context.Context, txn *models.Transaction) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishTransactionPosted(ctx, txn); err != nil {
		s.logger.WithError(err).Warn("failed to publish posted-transaction event")
	}
}

func datePortion(timestamp string) string {
	if len(timestamp) < len(validation.DateLayout) {
		return timestamp
	}
	return timestamp[:len(validation.DateLayout)]
}

func truncateToDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
