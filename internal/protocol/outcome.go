package protocol

import (
	"errors"
	"fmt"

	"github.com/inkdoc/inkdoc/internal/markdown"
)

// Unauthorised is the rejection token used for read-role users attempting
// a write command; it has no corresponding markdown.Kind since the
// rejection happens before the command ever reaches Dispatch.
const Unauthorised = "UNAUTHORISED"

// FormatEditLine renders one log/broadcast line for a processed command,
// e.g. "EDIT alice INSERT 0 hi SUCCESS" or
// "EDIT bob DEL 0 3 Reject OUTDATED_VERSION". commandLine is the raw text
// the client sent, echoed back verbatim as the original implementation
// does (not a re-serialization of the parsed Command).
func FormatEditLine(username, commandLine string, outcome error) string {
	if outcome == nil {
		return fmt.Sprintf("EDIT %s %s SUCCESS", username, commandLine)
	}
	return fmt.Sprintf("EDIT %s %s Reject %s", username, commandLine, RejectionToken(outcome))
}

// FormatUnauthorisedLine renders the rejection line for a read-role user
// attempting a write command, without ever calling Dispatch.
func FormatUnauthorisedLine(username, commandLine string) string {
	return fmt.Sprintf("EDIT %s %s Reject %s", username, commandLine, Unauthorised)
}

// RejectionToken maps an error returned by markdown.Dispatch to its wire
// token. Unrecognized errors fall back to INVALID_POSITION, mirroring
// UNKNOWN_COMMAND handling in the original process_command dispatcher.
func RejectionToken(err error) string {
	var mdErr *markdown.Error
	if errors.As(err, &mdErr) {
		return mdErr.Kind.String()
	}
	return markdown.InvalidPosition.String()
}
