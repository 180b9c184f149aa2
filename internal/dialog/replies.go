// ABOUTME: Reply texts sent by the dialogue state machine
// ABOUTME: Every outcome branch has exactly one distinct reply

package dialog

// Replies for each dialogue outcome. The machine never exposes internal
// detail to chat; failures always map to one of these.
const (
	// ReplyAskDate opens a fresh dialogue.
	ReplyAskDate = "Let's find your payout. What's the payment date? Send it as DD.MM.YYYY, for example 05.03.2025."

	// ReplyAskIdentifier follows an accepted date.
	ReplyAskIdentifier = "Got it. Now send me your employee ID."

	// ReplyNoSession is sent for a message with no dialogue in progress.
	ReplyNoSession = "Send /start to begin a payout lookup."

	// ReplyDateFormat rejects input that is not shaped like a date.
	ReplyDateFormat = "That doesn't look like a date. Send it as DD.MM.YYYY, for example 05.03.2025."

	// ReplyDateInvalid rejects a well-shaped but impossible date.
	ReplyDateInvalid = "That date doesn't exist on the calendar. Check it and send the date again."

	// ReplyNotFound reports a clean lookup miss.
	ReplyNotFound = "No payout found for that date and employee ID. Send /start to try another."

	// ReplyHandleMismatch withholds a record registered to someone else.
	ReplyHandleMismatch = "This record is registered to a different chat handle, so I can't share it. If that's a mistake, contact payroll."

	// ReplyNoAmount reports a matched record with no payment data.
	ReplyNoAmount = "I found the record, but it has no payment amount yet. Check back later or contact payroll."

	// ReplyUnavailable reports that the payroll sheet could not be read.
	ReplyUnavailable = "The payroll sheet isn't reachable right now. Please try again in a few minutes."

	// ReplyInternalError covers everything that should not happen.
	ReplyInternalError = "Something went wrong on my side. Please send /start and try again."
)

// replyAmountFormat renders the successful lookup: date, then amount.
const replyAmountFormat = "Your payout for %s: %s"
