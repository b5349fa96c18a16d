// This file implements the builder used for every JSON response. Ledger
// notifications travel in the HX-Trigger header as show-notification events so
// an HTMX client can raise toasts without parsing the body.

package http

import (
	"encoding/json"
	"net/http"

	"savings/internal/ledger"
)

// ResponseBuilder provides a fluent API for building JSON responses.
type ResponseBuilder struct {
	triggers      map[string]any
	notifications []notificationPayload
	statusCode    int
	body          any
	headers       map[string]string
}

type notificationPayload struct {
	Type     string `json:"type"`
	Title    string `json:"title,omitempty"`
	Message  string `json:"message"`
	Duration int    `json:"duration"`
}

func NewResponse() *ResponseBuilder {
	return &ResponseBuilder{
		triggers:   make(map[string]any),
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

func (b *ResponseBuilder) Status(code int) *ResponseBuilder {
	b.statusCode = code
	return b
}

// Trigger adds a named event to the HX-Trigger header.
func (b *ResponseBuilder) Trigger(name string, data any) *ResponseBuilder {
	b.triggers[name] = data
	return b
}

// TriggerLedgerChanged tells the client to refresh its ledger views.
func (b *ResponseBuilder) TriggerLedgerChanged() *ResponseBuilder {
	return b.Trigger("ledger:changed", struct{}{})
}

// Notify queues n as a show-notification event. Errors stay on screen longer.
func (b *ResponseBuilder) Notify(n ledger.Notification) *ResponseBuilder {
	duration := 3000
	if n.Kind == ledger.KindError {
		duration = 5000
	}
	b.notifications = append(b.notifications, notificationPayload{
		Type:     string(n.Kind),
		Title:    n.Title,
		Message:  n.Message,
		Duration: duration,
	})
	return b
}

// NotifyAll queues every notification the recorder captured.
func (b *ResponseBuilder) NotifyAll(rec *ledger.Recorder) *ResponseBuilder {
	for _, n := range rec.Notifications() {
		b.Notify(n)
	}
	return b
}

func (b *ResponseBuilder) Header(name, value string) *ResponseBuilder {
	b.headers[name] = value
	return b
}

// JSON sets v as the response body.
func (b *ResponseBuilder) JSON(v any) *ResponseBuilder {
	b.body = v
	return b
}

func (b *ResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}

	triggers := b.triggers
	if len(b.notifications) > 0 {
		// one event per response; the last notification wins in the header,
		// all of them are listed under "notifications"
		triggers["show-notification"] = b.notifications[len(b.notifications)-1]
		triggers["notifications"] = b.notifications
	}
	if len(triggers) > 0 {
		if raw, err := json.Marshal(triggers); err == nil {
			w.Header().Set("HX-Trigger", string(raw))
		}
	}

	if b.body == nil {
		w.WriteHeader(b.statusCode)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(b.statusCode)
	_ = json.NewEncoder(w).Encode(b.body)
}

type errorBody struct {
	Error string `json:"error"`
}

// ErrorResponse builds a JSON error body with the given status.
func ErrorResponse(statusCode int, message string) *ResponseBuilder {
	return NewResponse().Status(statusCode).JSON(errorBody{Error: message})
}

func BadRequestError(message string) *ResponseBuilder {
	return ErrorResponse(http.StatusBadRequest, message)
}

func UnprocessableEntityError(message string) *ResponseBuilder {
	return ErrorResponse(http.StatusUnprocessableEntity, message)
}

func UnauthorizedError(message string) *ResponseBuilder {
	return ErrorResponse(http.StatusUnauthorized, message).Header("WWW-Authenticate", "Bearer")
}

func NotFoundError(message string) *ResponseBuilder {
	return ErrorResponse(http.StatusNotFound, message)
}

func BadGatewayError(message string) *ResponseBuilder {
	return ErrorResponse(http.StatusBadGateway, message)
}

func InternalServerError(message string) *ResponseBuilder {
	return ErrorResponse(http.StatusInternalServerError, message)
}
