package httperror

import (
	"context"
	"net/http"

	"github.com/stellar/go-stellar-sdk/support/log"
	"github.com/stellar/go-stellar-sdk/support/render/httpjson"

	"github.com/impactsmiles/smiles-wallet/internal/apptracker"
)

type ErrorResponse struct {
	Status int                    `json:"-"`
	Error  string                 `json:"error"`
	Extras map[string]interface{} `json:"extras,omitempty"`
}

func (e ErrorResponse) Render(w http.ResponseWriter) {
	httpjson.RenderStatus(w, e.Status, e, httpjson.JSON)
}

type ErrorHandler struct {
	Error ErrorResponse
}

func (h ErrorHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.Error.Render(w)
}

var NotFound = ErrorResponse{
	Status: http.StatusNotFound,
	Error:  "The resource at the url requested was not found.",
}

var MethodNotAllowed = ErrorResponse{
	Status: http.StatusMethodNotAllowed,
	Error:  "The method is not allowed for resource at the url requested.",
}

var TooManyRequests = ErrorResponse{
	Status: http.StatusTooManyRequests,
	Error:  "Too many requests, slow down.",
}

func newErrorResponse(status int, message, fallback string, extras map[string]interface{}) *ErrorResponse {
	if message == "" {
		message = fallback
	}
	return &ErrorResponse{Status: status, Error: message, Extras: extras}
}

func BadRequest(message string, extras map[string]interface{}) *ErrorResponse {
	return newErrorResponse(http.StatusBadRequest, message, "Invalid request", extras)
}

func Unauthorized(message string, extras map[string]interface{}) *ErrorResponse {
	return newErrorResponse(http.StatusUnauthorized, message, "Not authorized.", extras)
}

func ResourceNotFound(message string, extras map[string]interface{}) *ErrorResponse {
	return newErrorResponse(http.StatusNotFound, message, NotFound.Error, extras)
}

func Conflict(message string, extras map[string]interface{}) *ErrorResponse {
	return newErrorResponse(http.StatusConflict, message, "The request conflicts with the current state of the resource.", extras)
}

// UnprocessableEntity reports a well-formed request the economy refused to settle.
func UnprocessableEntity(message string, extras map[string]interface{}) *ErrorResponse {
	return newErrorResponse(http.StatusUnprocessableEntity, message, "The request could not be processed.", extras)
}

func ServiceUnavailable(message string, extras map[string]interface{}) *ErrorResponse {
	return newErrorResponse(http.StatusServiceUnavailable, message, "The ledger is currently unavailable, try again later.", extras)
}

func InternalServerError(ctx context.Context, message string, err error, extras map[string]interface{}, appTracker apptracker.AppTracker) *ErrorResponse {
	log.Ctx(ctx).Error(err)
	if appTracker != nil {
		appTracker.CaptureException(err)
	} else {
		log.Warn("App Tracker is nil")
	}

	return &ErrorResponse{
		Status: http.StatusInternalServerError,
		Error:  "An error occurred while processing this request.",
		Extras: extras,
	}
}
