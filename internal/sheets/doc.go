// Package sheets reads the payroll sheet through the Google Sheets API.
//
// The client authenticates with a service-account key (inline JSON in
// production, a key file as the development fallback) scoped to read-only
// spreadsheet access. The authenticated service is built lazily on the first
// read and cached for the life of the process; rebuilding it after a cold
// start needs nothing but configuration.
//
// Values returns the configured range as raw rows of untyped cells. Column
// meaning is the lookup layer's concern, not this package's.
//
// A missing spreadsheet ID or key surfaces as ErrNotConfigured so a request
// can fail politely while the service itself stays up.
package sheets
