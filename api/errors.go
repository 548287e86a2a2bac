package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/linqining/deck-agent/log"
)

// Error is the API's error taxonomy type, grounded on the teacher's
// api/errors_definition.go error catalogue (the Error type's own defining
// file was filtered out of the retrieval pack; its Write/WithErr/Withf
// methods are reconstructed here from the call-site idiom
// ErrX.WithErr(err).Write(w) seen throughout the teacher's handlers).
//
// Code ranges mirror the teacher convention: 40001-49999 for client-fault
// errors, 50001-59999 for server-fault ones. Never reuse or renumber a code
// once shipped.
type Error struct {
	Code       int
	HTTPstatus int
	Err        error
}

func (e Error) Error() string {
	return e.Err.Error()
}

// WithErr returns a copy of e with additional wrapped error context.
func (e Error) WithErr(err error) Error {
	e.Err = fmt.Errorf("%s: %w", e.Err.Error(), err)
	return e
}

// Withf returns a copy of e with a formatted message appended.
func (e Error) Withf(format string, args ...any) Error {
	e.Err = fmt.Errorf("%s: %s", e.Err.Error(), fmt.Sprintf(format, args...))
	return e
}

type errorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Write sends e as the HTTP response, in the {code, message} JSON shape
// spec.md's error handling design requires.
func (e Error) Write(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(e.HTTPstatus)
	body, err := json.Marshal(errorResponse{Code: e.Code, Message: e.Err.Error()})
	if err != nil {
		log.Errorw(err, "failed to marshal error response")
		return
	}
	if _, err := w.Write(body); err != nil {
		log.Warnw("failed to write error response", "error", err)
	}
}

// Error taxonomy, per spec.md §7.
var (
	ErrMissingFields      = Error{Code: 40001, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("missing required fields")}
	ErrInvalidPublicKey   = Error{Code: 40002, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("invalid public key")}
	ErrInvalidProof       = Error{Code: 40003, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("invalid proof")}
	ErrInvalidCard        = Error{Code: 40004, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("invalid card")}
	ErrInvalidRevealToken = Error{Code: 40005, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("invalid reveal token")}
	ErrInvalidSeed        = Error{Code: 40006, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("invalid seed")}
	ErrSerializationError = Error{Code: 40007, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("serialization error")}
	ErrUserNotFound       = Error{Code: 40401, HTTPstatus: http.StatusNotFound, Err: fmt.Errorf("user not found")}
	ErrSessionNotFound    = Error{Code: 40402, HTTPstatus: http.StatusNotFound, Err: fmt.Errorf("session not found")}
	ErrPlayerNotFound     = Error{Code: 40403, HTTPstatus: http.StatusNotFound, Err: fmt.Errorf("player not found")}

	ErrMarshalingServerJSONFailed = Error{Code: 50001, HTTPstatus: http.StatusInternalServerError, Err: fmt.Errorf("marshaling (server-side) JSON failed")}
	ErrGenericError               = Error{Code: 50002, HTTPstatus: http.StatusInternalServerError, Err: fmt.Errorf("internal server error")}
)
