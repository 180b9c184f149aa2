// ABOUTME: Record type for one matched payroll row and its column layout
// ABOUTME: Cells are positional and untyped; coercion happens at read time

package payroll

import "strings"

// HandleMarker prefixes a handle cell that names a chat handle rather than
// free-form text. Only marked handles participate in requester validation.
const HandleMarker = "@"

// Column layout of the payout range (0-indexed within each row).
const (
	colIdentifier = 2
	colDate       = 3
	colHandle     = 4
	colAmount     = 5
)

// Record is one logical row from the payroll sheet. Records are only ever
// read and matched, never written back.
type Record struct {
	Identifier string
	Date       string
	Handle     string
	Amount     string
}

// HandleMarked reports whether the on-file handle carries the chat-handle
// marker. Unmarked or empty handles skip requester validation entirely.
func (r *Record) HandleMarked() bool {
	return r.Handle != "" && strings.HasPrefix(r.Handle, HandleMarker)
}

// HandleOwner returns the marked handle with the marker stripped and
// lowercased, ready for comparison against a requester's handle.
func (r *Record) HandleOwner() string {
	return strings.ToLower(strings.TrimPrefix(r.Handle, HandleMarker))
}

// HasAmount reports whether the row carries payment data.
func (r *Record) HasAmount() bool {
	return r.Amount != ""
}
