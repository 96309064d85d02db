package api

import (
	"errors"
	"net/http"

	"github.com/samcharles93/agentx/internal/pim"
	"github.com/samcharles93/agentx/internal/profile"
	"github.com/samcharles93/agentx/internal/topology"
)

var ErrInvalidRequest = errors.New("invalid_request")

type invalidRequestError struct {
	msg   string
	param string
}

func (e invalidRequestError) Error() string {
	return e.msg
}

func (e invalidRequestError) Unwrap() error {
	return ErrInvalidRequest
}

func newInvalidRequest(param, msg string) error {
	return invalidRequestError{msg: msg, param: param}
}

// ResponseError is the body of every non-2xx JSON response.
type ResponseError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    string `json:"code,omitempty"`
	Param   string `json:"param,omitempty"`
}

// classify maps a generation error onto an HTTP status and error type.
func classify(err error) (status int, errType, code string) {
	var capErr *pim.CapacityError
	switch {
	case errors.As(err, &capErr):
		return http.StatusUnprocessableEntity, "capacity_exceeded", "capacity_exceeded"
	case errors.Is(err, profile.ErrUnknownProfile):
		return http.StatusBadRequest, "invalid_request_error", "unknown_model"
	case errors.Is(err, profile.ErrInvalidParams),
		errors.Is(err, pim.ErrMalformedShape),
		errors.Is(err, topology.ErrInvalidElementWidth),
		errors.Is(err, topology.ErrInvalidTopology),
		errors.Is(err, ErrInvalidRequest):
		return http.StatusBadRequest, "invalid_request_error", ""
	default:
		return http.StatusInternalServerError, "server_error", ""
	}
}
