package web

// ErrorBody is the JSON error envelope. The message strings are part of the
// API contract: the lab frontends pattern-match on them, so they must stay
// stable per condition.
type ErrorBody struct {
	Error string `json:"error"`
}

// MsgDBError is the generic message clients see for unclassified persistence
// failures. The underlying error is logged server-side only.
const MsgDBError = "DB error"

// Err wraps a message in the standard error envelope.
func Err(msg string) ErrorBody {
	return ErrorBody{Error: msg}
}
