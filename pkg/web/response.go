// Package web defines common components for a web application.
package web

import (
	"errors"

	"github.com/go-playground/validator/v10"
)

// msgInvalidRequest is reported for requests that fail before validation, such as malformed JSON.
const msgInvalidRequest = "invalid request"

// Response holds the common response type for all APIs.
type Response struct {
	Data  any    `json:"data,omitempty"`
	Error string `json:"error,omitempty"`
}

// Error wraps err into a Response.
func Error(err error) Response {
	return Response{Error: err.Error()}
}

// GetErrorMsg returns a human readable suffix for a failed validation tag.
func GetErrorMsg(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return " is required"
	case "min":
		return " must be at least " + fe.Param()
	case "max":
		return " must be at most " + fe.Param()
	case "gt":
		return " must be greater than " + fe.Param()
	case "oneof":
		return " must be one of " + fe.Param()
	case "currency":
		return " is not supported"
	case "ownerkind":
		return " must be USER or MERCHANT"
	case "datetime":
		return " must match " + fe.Param()
	}

	return " is invalid"
}

// BindingError returns the message reported for a failed request binding.
func BindingError(err error) Response {
	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		field := ve[0]
		return Response{Error: field.Field() + GetErrorMsg(field)}
	}

	return Response{Error: msgInvalidRequest}
}
