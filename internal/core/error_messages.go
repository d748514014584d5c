package core

// # Error Codes Reference
//
// User-facing errors carry a code that can be quoted in bug reports.
//
//	VCF001 - Invalid vCard: the file could not be parsed as vCard data
//	         Action: Export the contacts again as vCard (.vcf)
//	         Matches: ErrInvalidInput
//
//	VCF002 - Missing organization: a contact has no organization name
//	         Action: Add a company name to the contact or ignore the warning
//	         Matches: ErrMissingRequiredField
//
//	FLD001 - Unknown field: a requested column does not exist
//	         Action: Pick columns from the list of valid fields
//	         Matches: ErrUnknownField
//
//	FILE001 - File too large: the upload exceeds the size limit
//	          Matches: "request body too large"
//
//	FILE005 - Empty file: the input contains no data
//	          Matches: ErrEmptyInput
//
//	CNV001 - System busy: too many conversions in progress
//	         Matches: "too many concurrent conversions"
//
//	REQ001 - Request cancelled: Matches context.Canceled
//	REQ002 - Request timeout:   Matches context.DeadlineExceeded
//
//	DB004 - Connection refused: the contact store is unreachable
//	        Matches: "connection refused"
//
//	ERR000 - Unknown error: fallback when nothing else matches
//
// Sentinel errors are matched with errors.Is first; message patterns are then
// matched case-insensitively, first match wins.

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

type errorTarget struct {
	target error
	msg    UserMessage
}

type errorPattern struct {
	pattern string
	msg     UserMessage
}

var errorTargets = []errorTarget{
	{
		target: ErrInvalidInput,
		msg: UserMessage{
			Message: "The file is not valid vCard data",
			Action:  "Export the contacts again as vCard (.vcf)",
			Code:    "VCF001",
		},
	},
	{
		target: ErrMissingRequiredField,
		msg: UserMessage{
			Message: "A contact has no organization name",
			Action:  "Add a company name to the contact or ignore the warning",
			Code:    "VCF002",
		},
	},
	{
		target: ErrUnknownField,
		msg: UserMessage{
			Message: "A requested column does not exist",
			Action:  "Pick columns from the list of valid fields",
			Code:    "FLD001",
		},
	},
	{
		target: ErrEmptyInput,
		msg: UserMessage{
			Message: "The uploaded file is empty",
			Action:  "Upload a vCard file with at least one contact",
			Code:    "FILE005",
		},
	},
	{
		target: context.Canceled,
		msg: UserMessage{
			Message: "Request was cancelled",
			Action:  "Please try again",
			Code:    "REQ001",
		},
	},
	{
		target: context.DeadlineExceeded,
		msg: UserMessage{
			Message: "Request timed out",
			Action:  "Try a smaller file or try again later",
			Code:    "REQ002",
		},
	},
}

var errorPatterns = []errorPattern{
	{
		pattern: "request body too large",
		msg: UserMessage{
			Message: "File exceeds maximum size limit",
			Action:  "Split the contacts into smaller files",
			Code:    "FILE001",
		},
	},
	{
		pattern: "too many concurrent conversions",
		msg: UserMessage{
			Message: "Too many conversions in progress",
			Action:  "Please wait a moment and try again",
			Code:    "CNV001",
		},
	},
	{
		pattern: "connection refused",
		msg: UserMessage{
			Message: "Unable to connect to the contact store",
			Action:  "Check DATABASE_URL and try again",
			Code:    "DB004",
		},
	},
}

var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or check the logs",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
// Returns an empty UserMessage for a nil error.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	for _, et := range errorTargets {
		if errors.Is(err, et.target) {
			return et.msg
		}
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
}

// FormatUserError creates a formatted error string for display.
// The format is: "Message (Code: XXX). Action"
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err maps to a specific code rather than ERR000.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}
