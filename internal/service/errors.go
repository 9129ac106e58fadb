package service

import (
	"errors"
	"fmt"
)

// Client-facing validation messages
const (
	MsgMissingText         = "Missing text parameter"
	MsgMissingQueryOrTexts = "Missing query or texts parameter"
	MsgTextsNotList        = "texts must be a non-empty list"
	MsgTextNotString       = "text must be a string"
	MsgQueryNotString      = "query must be a string"
	MsgTextsNotStrings     = "texts must be a list of strings"
	MsgRequestBodyTooLarge = "request body too large"
	msgTextTooLongFormat   = "%s exceeds maximum length of %d characters"
)

// ErrInvalidRequest matches every InvalidRequestError under errors.Is
var ErrInvalidRequest = errors.New("invalid request")

// InvalidRequestError reports a malformed request or a missing or mistyped
// field. Its message is returned to the client verbatim.
type InvalidRequestError struct {
	Message string
}

func (e *InvalidRequestError) Error() string {
	return e.Message
}

// Is lets errors.Is(err, ErrInvalidRequest) match any InvalidRequestError
func (e *InvalidRequestError) Is(target error) bool {
	return target == ErrInvalidRequest
}

func invalid(msg string) error {
	return &InvalidRequestError{Message: msg}
}

func tooLong(field string, limit int) error {
	return invalid(fmt.Sprintf(msgTextTooLongFormat, field, limit))
}

// IsInvalidRequest reports whether err is an InvalidRequestError and returns
// the client-facing message
func IsInvalidRequest(err error) (string, bool) {
	var ire *InvalidRequestError
	if errors.As(err, &ire) {
		return ire.Message, true
	}
	return "", false
}
