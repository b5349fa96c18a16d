package http

import (
	"errors"
	"net/http"

	"savings/internal/board"
	"savings/internal/core"
	"savings/internal/ledger"
	"savings/internal/session"
)

var validationErrors = []error{
	core.ErrInvalidAmount,
	core.ErrInvalidType,
	core.ErrInvalidDate,
	core.ErrEmptyDescription,
	core.ErrDescriptionLong,
	core.ErrEmptyCategory,
	core.ErrEmptyPatch,
	board.ErrUnknownColumn,
	ErrInvalidMonth,
}

// statusFor maps a domain error to its HTTP status. Remote failures are checked
// first because they wrap the store's own errors.
func statusFor(err error) int {
	switch {
	case errors.Is(err, ledger.ErrRemoteOperationFailed):
		return http.StatusBadGateway
	case errors.Is(err, ledger.ErrNotAuthenticated),
		errors.Is(err, ledger.ErrSessionMismatch),
		errors.Is(err, session.ErrSessionNotFound):
		return http.StatusUnauthorized
	case errors.Is(err, ledger.ErrUnknownTransaction), errors.Is(err, board.ErrUnknownCard):
		return http.StatusNotFound
	case errors.Is(err, ledger.ErrSessionChanged):
		return http.StatusConflict
	}
	for _, v := range validationErrors {
		if errors.Is(err, v) {
			return http.StatusUnprocessableEntity
		}
	}
	return http.StatusInternalServerError
}

// publicMessage hides causes that may carry backend details.
func publicMessage(err error) string {
	var rerr *ledger.RemoteError
	if errors.As(err, &rerr) {
		if rerr.Op == ledger.OpLoad {
			return "could not load transactions"
		}
		return "could not " + rerr.Op + " transaction"
	}
	if statusFor(err) == http.StatusInternalServerError {
		return "internal error"
	}
	return err.Error()
}

// errorResponse builds the response for err, carrying any notifications the
// operation raised.
func errorResponse(err error, rec *ledger.Recorder) *ResponseBuilder {
	b := ErrorResponse(statusFor(err), publicMessage(err))
	if statusFor(err) == http.StatusUnauthorized {
		b.Header("WWW-Authenticate", "Bearer")
	}
	if rec != nil {
		b.NotifyAll(rec)
	}
	return b
}
