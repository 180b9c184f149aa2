// Package dialog implements the two-step payout conversation.
//
// # State Machine
//
// Each user walks a fixed dialogue:
//
//	/start            -> awaiting_date      "what's the payment date?"
//	valid date        -> awaiting_identifier "what's your employee ID?"
//	any identifier    -> terminal            lookup result, session deleted
//
// /start resets from any state. A message without a session in progress is
// answered with a pointer to /start and changes nothing. Date rejections
// re-prompt and leave the session untouched. The identifier step is
// single-shot: whatever the lookup outcome (amount, no amount, mismatch,
// miss, failure), the session is deleted and a new dialogue starts from
// /start.
//
// # Date Normalization
//
// NormalizeDate canonicalizes user-typed dates ("1/3/25", "01,03,2025") to
// DD.MM.YYYY. Structural problems (not three parts, year not expandable to
// four digits) are format errors; well-shaped but impossible dates
// (31.02.2024) are validity errors. Sheet matching uses the canonical
// string verbatim.
//
// # Revealing Amounts
//
// A matched record with a marker-prefixed handle on file is only revealed
// to the requester whose chat handle equals it (case-insensitive, marker
// stripped). A requester without a handle can never match a marked record.
// Unmarked handle cells skip the check.
//
// The machine's error returns are for the caller's log; the reply string is
// always present and safe to send.
package dialog
