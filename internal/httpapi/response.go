package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"roombook/internal/booking"
)

type ErrorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

type SuccessResponse struct {
	Data     any      `json:"data,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

func WriteJSON(w http.ResponseWriter, statusCode int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	return json.NewEncoder(w).Encode(data)
}

// WriteError maps booking errors onto HTTP statuses. Unknown errors are not echoed to the client.
func WriteError(w http.ResponseWriter, err error) error {
	var (
		verr     *booking.ValidationError
		conflict *booking.ConflictError
	)

	switch {
	case errors.As(err, &verr):
		return WriteJSON(w, http.StatusUnprocessableEntity, ErrorResponse{Error: verr.Message, Field: verr.Field})
	case errors.As(err, &conflict):
		return WriteJSON(w, http.StatusConflict, ErrorResponse{Error: conflict.Error()})
	case errors.Is(err, booking.ErrNotFound):
		return WriteJSON(w, http.StatusNotFound, ErrorResponse{Error: booking.ErrNotFound.Error()})
	case errors.Is(err, booking.ErrAuthMismatch):
		return WriteJSON(w, http.StatusForbidden, ErrorResponse{Error: booking.ErrAuthMismatch.Error()})
	case errors.Is(err, booking.ErrAlreadyStarted):
		return WriteJSON(w, http.StatusConflict, ErrorResponse{Error: booking.ErrAlreadyStarted.Error()})
	default:
		return WriteJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "Internal server error"})
	}
}

func WriteSuccess(w http.ResponseWriter, data any) error {
	return WriteJSON(w, http.StatusOK, SuccessResponse{Data: data})
}

// WriteReceipt reports a committed change along with any notification failures.
func WriteReceipt(w http.ResponseWriter, statusCode int, receipt *booking.Receipt) error {
	resp := SuccessResponse{Data: newBookingResponse(receipt.Booking)}
	for _, warning := range receipt.Warnings {
		resp.Warnings = append(resp.Warnings, warning.Error())
	}
	return WriteJSON(w, statusCode, resp)
}

func isClientError(err error) bool {
	var verr *booking.ValidationError
	return errors.As(err, &verr) ||
		errors.Is(err, booking.ErrConflict) ||
		errors.Is(err, booking.ErrNotFound) ||
		errors.Is(err, booking.ErrAuthMismatch) ||
		errors.Is(err, booking.ErrAlreadyStarted)
}
