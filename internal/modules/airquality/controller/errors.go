package controller

import (
	"errors"
	"net/http"

	"airquality-dashboard/internal/modules/airquality/types"
	"airquality-dashboard/internal/utils"
)

// statusFor maps a dataset error to the HTTP status reported to clients.
func statusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, types.ErrInvalidRange):
		return http.StatusBadRequest
	case errors.Is(err, types.ErrMissingColumn):
		return http.StatusUnprocessableEntity
	case errors.Is(err, types.ErrNotFound),
		errors.Is(err, types.ErrEmptyInput),
		errors.Is(err, types.ErrMalformedInput),
		errors.Is(err, types.ErrNotLoaded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeDatasetError writes err with the status statusFor assigns it.
func writeDatasetError(w http.ResponseWriter, err error) {
	utils.WriteError(w, statusFor(err), err.Error())
}
