package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"stacksIndexer/internal/query"
)

// Category classifies a ServiceError and decides its HTTP status.
type Category int

const (
	CategoryDataError Category = iota + 1
	CategoryResourceNotFound
	CategoryGeneralError
)

func (c Category) String() string {
	switch c {
	case CategoryDataError:
		return "CategoryDataError"
	case CategoryResourceNotFound:
		return "CategoryResourceNotFound"
	default:
		return "CategoryGeneralError"
	}
}

// ServiceError carries a client-facing message. Err is logged, never sent.
type ServiceError struct {
	Category Category
	Message  string
	Err      error
}

func (err *ServiceError) Error() string {
	if err.Err != nil {
		return err.Err.Error()
	}
	return err.Message
}

func (err *ServiceError) Unwrap() error {
	return err.Err
}

// StatusCode returns the HTTP status code for the error category
func (err *ServiceError) StatusCode() int {
	switch err.Category {
	case CategoryDataError:
		return http.StatusBadRequest
	case CategoryResourceNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func BadRequestError(err error, message string) error {
	if err == nil {
		err = errors.New("bad request: " + message)
	}
	return &ServiceError{Category: CategoryDataError, Message: message, Err: err}
}

func NotFoundError(err error, message string) error {
	if err == nil {
		err = errors.New("resource not found: " + message)
	}
	return &ServiceError{Category: CategoryResourceNotFound, Message: message, Err: err}
}

// GeneralError reports an unexpected failure of op. The message names the
// failed operation; err itself is only logged.
func GeneralError(err error, op string) error {
	if err == nil {
		err = errors.New("internal server error")
	}
	msg := "Internal Server Error"
	if op != "" {
		msg = op + " failed"
	}
	return &ServiceError{Category: CategoryGeneralError, Message: msg, Err: err}
}

// fromQuery maps query sentinels onto service errors.
func fromQuery(err error, op, notFound string) error {
	switch {
	case errors.Is(err, query.ErrNotFound):
		return NotFoundError(err, notFound)
	case errors.Is(err, query.ErrInvalidArgument):
		return BadRequestError(err, err.Error())
	default:
		return GeneralError(err, op)
	}
}

type errorResponse struct {
	ErrMsg     string `json:"error"`
	ErrMsgCode int    `json:"code"`
}

func writeError(w http.ResponseWriter, err error) {
	var svcErr *ServiceError
	status := http.StatusInternalServerError
	msg := "Unexpected Service Error"
	if errors.As(err, &svcErr) {
		status = svcErr.StatusCode()
		msg = svcErr.Message
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(&errorResponse{ErrMsg: msg, ErrMsgCode: status})
}
