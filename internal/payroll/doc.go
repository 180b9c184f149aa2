// Package payroll matches payout requests against rows of the payroll sheet.
//
// A lookup takes a normalized date and an employee identifier and scans the
// sheet rows in source order. The identifier cell is compared
// case-insensitively, the date cell by exact string equality, and the first
// qualifying row wins; duplicate rows are resolved by first occurrence on
// purpose. Rows too short to hold both cells are skipped.
//
// The three outcomes a caller distinguishes:
//
//   - a *Record on a match
//   - ErrNotFound on a clean miss
//   - ErrUnavailable (or sheets.ErrNotConfigured) when the sheet could not
//     be read, so a broken credential never masquerades as an empty result
//
// The Record exposes the handle-marker semantics used for requester
// validation; the decision of what to reveal stays with the dialogue layer.
package payroll
