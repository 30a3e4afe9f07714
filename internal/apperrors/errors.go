// Package apperrors is the error taxonomy shared by services and controllers.
// Every type maps to one HTTP status through StatusCode.
package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// BadRequestError reports missing or malformed client input.
type BadRequestError struct {
	Msg string
}

func (e *BadRequestError) Error() string { return e.Msg }

// ConfigurationError reports a missing secret or endpoint on the server.
type ConfigurationError struct {
	Msg string
}

func (e *ConfigurationError) Error() string { return e.Msg }

// ForbiddenError reports a proxy target outside the allow-list.
type ForbiddenError struct {
	Msg string
}

func (e *ForbiddenError) Error() string { return e.Msg }

// NotFoundError reports a missing storage object.
type NotFoundError struct {
	Msg string
}

func (e *NotFoundError) Error() string { return e.Msg }

// UpstreamError reports a non-success answer from the AI or storage service.
// Status is the upstream HTTP status, zero when it never answered.
type UpstreamError struct {
	Status int
	Msg    string
	Err    error
}

func (e *UpstreamError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// StorageError reports a database connectivity or query failure.
type StorageError struct {
	Err error
}

func (e *StorageError) Error() string { return e.Err.Error() }

func (e *StorageError) Unwrap() error { return e.Err }

func BadRequest(format string, args ...any) error {
	return &BadRequestError{Msg: fmt.Sprintf(format, args...)}
}

func Configuration(format string, args ...any) error {
	return &ConfigurationError{Msg: fmt.Sprintf(format, args...)}
}

func Forbidden(format string, args ...any) error {
	return &ForbiddenError{Msg: fmt.Sprintf(format, args...)}
}

func NotFound(format string, args ...any) error {
	return &NotFoundError{Msg: fmt.Sprintf(format, args...)}
}

func Upstream(status int, msg string, err error) error {
	return &UpstreamError{Status: status, Msg: msg, Err: err}
}

func Storage(err error) error {
	if err == nil {
		return nil
	}
	return &StorageError{Err: err}
}

// StatusCode maps an error to the HTTP status a handler should answer with.
func StatusCode(err error) int {
	var (
		badRequest *BadRequestError
		config     *ConfigurationError
		forbidden  *ForbiddenError
		notFound   *NotFoundError
		upstream   *UpstreamError
		storage    *StorageError
	)
	switch {
	case err == nil:
		return http.StatusOK
	case errors.As(err, &badRequest):
		return http.StatusBadRequest
	case errors.As(err, &forbidden):
		return http.StatusForbidden
	case errors.As(err, &notFound):
		return http.StatusNotFound
	case errors.As(err, &upstream):
		if upstream.Status >= 400 {
			return upstream.Status
		}
		return http.StatusBadGateway
	case errors.As(err, &config), errors.As(err, &storage):
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
