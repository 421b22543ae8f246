package common

import "net/http"

// Cross-cutting error codes shared by every handler. Domain codes such as
// EMPTY_CART or CODE_EXPIRED live next to the sentinel errors that produce
// them; only codes emitted from more than one package belong here.
const (
	CodeValidation       = "VALIDATION"
	CodeBadRequest       = "BAD_REQUEST"
	CodeNotFound         = "NOT_FOUND"
	CodeInternal         = "INTERNAL"
	CodeReplay           = "IDEMPOTENT_REPLAY"
	CodeCommitInProgress = "COMMIT_IN_PROGRESS"
	CodePayloadTooLarge  = "PAYLOAD_TOO_LARGE"
)

// BadRequest rejects a request whose body or parameters could not be read.
func BadRequest(w http.ResponseWriter, message string) {
	JSONError(w, http.StatusBadRequest, CodeBadRequest, message, nil)
}

// Validation rejects a well-formed request carrying values the operation
// cannot accept, such as a malformed amount or an unknown payment method.
func Validation(w http.ResponseWriter, message string) {
	JSONError(w, http.StatusBadRequest, CodeValidation, message, nil)
}

// NotFound reports a missing product, customer, discount or transaction.
func NotFound(w http.ResponseWriter, message string) {
	JSONError(w, http.StatusNotFound, CodeNotFound, message, nil)
}

// Internal reports an unexpected failure without leaking its cause.
func Internal(w http.ResponseWriter) {
	JSONError(w, http.StatusInternalServerError, CodeInternal, "internal error", nil)
}
