// ABOUTME: Payroll lookup service matching a date and identifier against sheet rows
// ABOUTME: First qualifying row wins; source failures surface as ErrUnavailable

package payroll

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/paydesk/payday-bot/internal/sheets"
)

// ErrNotFound is returned when no row matches the requested date and
// identifier. A clean miss, not a failure.
var ErrNotFound = errors.New("payment record not found")

// ErrUnavailable is returned when the sheet could not be read at all
// (transport or auth failure). Distinct from ErrNotFound so the dialogue
// can tell the user to retry instead of claiming the record does not exist.
var ErrUnavailable = errors.New("payroll source unavailable")

// Source provides the raw payout rows. *sheets.Client satisfies this.
type Source interface {
	Values(ctx context.Context) ([][]any, error)
}

// Service performs payment record lookups against a row source.
type Service struct {
	source Source
	logger *slog.Logger
}

// NewService creates a lookup service reading rows from the given source.
func NewService(source Source, logger *slog.Logger) *Service {
	return &Service{
		source: source,
		logger: logger.With("component", "payroll"),
	}
}

// FetchRecord returns the first row whose identifier equals the requested
// identifier case-insensitively and whose date cell is exactly string-equal
// to the normalized date. The full range is fetched fresh on every call;
// payroll data changes between requests and is never cached.
//
// Returns ErrNotFound on a clean miss, sheets.ErrNotConfigured when the
// sheet location or credentials are missing, and ErrUnavailable (wrapping
// the cause) when the read itself fails.
func (s *Service) FetchRecord(ctx context.Context, date, identifier string) (*Record, error) {
	rows, err := s.source.Values(ctx)
	if err != nil {
		if errors.Is(err, sheets.ErrNotConfigured) {
			s.logger.Warn("payroll lookup without configured sheet", "error", err)
			return nil, err
		}
		s.logger.Error("failed to read payroll sheet", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	for _, row := range rows {
		// Too short to hold both the identifier and date cells
		if len(row) <= colDate {
			continue
		}
		if !strings.EqualFold(cellString(row[colIdentifier]), identifier) {
			continue
		}
		if cellString(row[colDate]) != date {
			continue
		}

		rec := recordFromRow(row)
		s.logger.Debug("matched payroll record",
			"identifier", rec.Identifier,
			"date", rec.Date,
			"has_amount", rec.HasAmount())
		return rec, nil
	}

	s.logger.Debug("no payroll record matched", "identifier", identifier, "date", date)
	return nil, ErrNotFound
}

// recordFromRow maps positional cells onto a Record. The row is known to
// reach the date column; handle and amount may be missing.
func recordFromRow(row []any) *Record {
	rec := &Record{
		Identifier: cellString(row[colIdentifier]),
		Date:       cellString(row[colDate]),
	}
	if len(row) > colHandle {
		rec.Handle = cellString(row[colHandle])
	}
	if len(row) > colAmount {
		rec.Amount = cellString(row[colAmount])
	}
	return rec
}

// cellString coerces an untyped sheet cell to a string. The API returns
// strings for formatted values but can produce numbers and bools.
func cellString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	case nil:
		return ""
	default:
		return fmt.Sprint(t)
	}
}
