package handler

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	"account-ledger/internal/errors"
	"account-ledger/pkg/logger"
)

// OwnerHeader carries the caller identity resolved by the gateway in front of
// this service.
const OwnerHeader = "X-Owner-ID"

type Response struct {
	Data  interface{} `json:"data,omitempty"`
	Error *Error      `json:"error,omitempty"`
}

type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

func writeJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	response := Response{Data: data}
	json.NewEncoder(w).Encode(response)
}

func writeError(w http.ResponseWriter, appErr *errors.AppError) {
	w.Header().Set("Content-Type", "application/json")

	statusCode := appErr.HTTPStatus()
	errResponse := Error{
		Code:    string(appErr.Code),
		Message: appErr.Message,
		Details: appErr.Details,
	}

	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(Response{Error: &errResponse})
}

// handleError writes err as an error envelope. Server-side failures are
// logged; client errors are not.
func handleError(w http.ResponseWriter, r *http.Request, err error) {
	appErr := errors.FromError(err)
	if appErr.HTTPStatus() >= http.StatusInternalServerError {
		logger.FromContext(r.Context(), nil).Error("Request failed",
			"code", appErr.Code,
			"error", err)
	}
	writeError(w, appErr)
}

// decodeJSON decodes the body into dst and runs struct validation on it. Enum
// fields reject unknown values while decoding.
func decodeJSON(r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var appErr *errors.AppError
		if stderrors.As(err, &appErr) {
			return appErr
		}
		return errors.NewAppError(errors.InvalidInput, "invalid request body").WithDetails(err.Error())
	}
	return validateRequest(dst)
}

func validateRequest(req interface{}) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !stderrors.As(err, &fieldErrs) {
		return errors.NewAppError(errors.InvalidInput, "invalid request").WithDetails(err.Error())
	}

	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, fmt.Sprintf("%s failed on %s", fe.Field(), fe.Tag()))
	}
	return errors.NewValidationError("request validation failed").WithDetails(strings.Join(msgs, "; "))
}

func ownerID(r *http.Request) (string, error) {
	owner := strings.TrimSpace(r.Header.Get(OwnerHeader))
	if owner == "" {
		return "", errors.NewAppError(errors.InvalidInput, "missing "+OwnerHeader+" header")
	}
	return owner, nil
}

func pathUUID(r *http.Request, name string, invalid *errors.AppError) (uuid.UUID, error) {
	id, err := uuid.Parse(mux.Vars(r)[name])
	if err != nil {
		return uuid.Nil, invalid.WithDetails(err.Error())
	}
	return id, nil
}

func parseDecimal(field, value string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, errors.NewValidationError("invalid " + field + " format").WithDetails(err.Error())
	}
	return d, nil
}
