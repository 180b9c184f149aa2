// ABOUTME: Google Sheets client for reading the payroll sheet
// ABOUTME: Lazily builds and caches an authenticated service from a service-account key

package sheets

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	gsheets "google.golang.org/api/sheets/v4"

	"github.com/paydesk/payday-bot/internal/config"
)

// ErrNotConfigured is returned when the spreadsheet ID or credentials are
// missing. Lookups degrade to a per-request failure instead of refusing to
// start, so the bot can come up before the sheet is provisioned.
var ErrNotConfigured = errors.New("spreadsheet not configured")

// Client reads payout rows through the Google Sheets API.
//
// The authenticated service is built on first use and cached for the
// lifetime of the process. A failed build is retried on the next call
// rather than latched.
type Client struct {
	cfg    config.SheetsConfig
	logger *slog.Logger

	mu  sync.Mutex
	srv *gsheets.Service
}

// NewClient creates a sheet reader for the configured spreadsheet.
// No network traffic happens until the first Values call.
func NewClient(cfg config.SheetsConfig, logger *slog.Logger) *Client {
	return &Client{
		cfg:    cfg,
		logger: logger.With("component", "sheets"),
	}
}

// Values fetches the configured range and returns its rows. Cell values are
// untyped; callers coerce them to strings themselves.
func (c *Client) Values(ctx context.Context) ([][]any, error) {
	if c.cfg.SpreadsheetID == "" {
		return nil, fmt.Errorf("%w: missing spreadsheet_id", ErrNotConfigured)
	}

	srv, err := c.service()
	if err != nil {
		return nil, err
	}

	resp, err := srv.Spreadsheets.Values.Get(c.cfg.SpreadsheetID, c.cfg.Range).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("reading range %q: %w", c.cfg.Range, err)
	}

	c.logger.Debug("fetched sheet values", "range", c.cfg.Range, "rows", len(resp.Values))
	return resp.Values, nil
}

// service returns the cached Sheets service, building it on first use.
// The service outlives any single request, so token refresh is bound to the
// background context rather than a request context.
func (c *Client) service() (*gsheets.Service, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.srv != nil {
		return c.srv, nil
	}

	creds, err := c.credentials()
	if err != nil {
		return nil, err
	}

	jwtCfg, err := google.JWTConfigFromJSON(creds, gsheets.SpreadsheetsReadonlyScope)
	if err != nil {
		return nil, fmt.Errorf("parsing service account key: %w", err)
	}

	ctx := context.Background()
	srv, err := gsheets.NewService(ctx, option.WithHTTPClient(jwtCfg.Client(ctx)))
	if err != nil {
		return nil, fmt.Errorf("building sheets service: %w", err)
	}

	c.logger.Info("sheets client initialized", "spreadsheet_id", c.cfg.SpreadsheetID)
	c.srv = srv
	return srv, nil
}

// credentials resolves the service-account key. The inline JSON blob wins;
// the key file is the local-development fallback.
func (c *Client) credentials() ([]byte, error) {
	if c.cfg.CredentialsJSON != "" {
		return []byte(c.cfg.CredentialsJSON), nil
	}
	if c.cfg.CredentialsFile != "" {
		data, err := os.ReadFile(c.cfg.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("reading credentials file: %w", err)
		}
		return data, nil
	}
	return nil, fmt.Errorf("%w: missing credentials", ErrNotConfigured)
}
