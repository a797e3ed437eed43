package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents stable error codes for all failure modes
type ErrorCode string

const (
	// MalformedInput indicates a declaration model that cannot be built
	MalformedInput ErrorCode = "MALFORMED_INPUT"
	// AmbiguousMatch indicates declarations that could not be paired one to one
	AmbiguousMatch ErrorCode = "AMBIGUOUS_MATCH"
	// UnsupportedDeclarationKind indicates a kind the rule table has no rule for
	UnsupportedDeclarationKind ErrorCode = "UNSUPPORTED_DECLARATION_KIND"
	// InputNotFound indicates a model file that does not exist
	InputNotFound ErrorCode = "INPUT_NOT_FOUND"
	// UnsupportedFormat indicates a model file extension no decoder handles
	UnsupportedFormat ErrorCode = "UNSUPPORTED_FORMAT"
	// RulesInvalid indicates a rule table file that failed to load
	RulesInvalid ErrorCode = "RULES_INVALID"
	// ConfigInvalid indicates a configuration file that failed validation
	ConfigInvalid ErrorCode = "CONFIG_INVALID"
	// InvalidArgument indicates a command-line flag or argument value
	InvalidArgument ErrorCode = "INVALID_ARGUMENT"
	// InternalError indicates unexpected error
	InternalError ErrorCode = "INTERNAL_ERROR"
)

// Fatal reports whether errors with this code abort a comparison run.
// Ambiguous matches and unsupported kinds are downgraded to report records.
func (c ErrorCode) Fatal() bool {
	switch c {
	case AmbiguousMatch, UnsupportedDeclarationKind:
		return false
	default:
		return true
	}
}

// FixActionType represents the type of fix action
type FixActionType string

const (
	// RunCommand suggests running a command
	RunCommand FixActionType = "run-command"
	// EditInput suggests correcting an input file
	EditInput FixActionType = "edit-input"
	// OpenDocs suggests opening documentation
	OpenDocs FixActionType = "open-docs"
)

// FixAction represents a suggested fix for an error
type FixAction struct {
	Type        FixActionType `json:"type"`
	Command     string        `json:"command,omitempty"`
	Safe        bool          `json:"safe,omitempty"`
	Description string        `json:"description,omitempty"`
	URL         string        `json:"url,omitempty"`
}

// Error is a coded failure with an optional cause and suggested fixes.
type Error struct {
	Code           ErrorCode   `json:"code"`
	Message        string      `json:"message"`
	Identity       string      `json:"identity,omitempty"`
	Details        interface{} `json:"details,omitempty"`
	SuggestedFixes []FixAction `json:"suggestedFixes,omitempty"`
	cause          error       // Underlying error (not exported to JSON)
}

// New creates an Error. When fixes is nil the defaults for code are used.
func New(code ErrorCode, message string, cause error, fixes []FixAction) *Error {
	if fixes == nil {
		fixes = GetSuggestedFixes(code)
	}
	return &Error{
		Code:           code,
		Message:        message,
		cause:          cause,
		SuggestedFixes: fixes,
	}
}

// Malformed is shorthand for a MALFORMED_INPUT error naming the offending identity.
func Malformed(identity, format string, args ...interface{}) *Error {
	e := New(MalformedInput, fmt.Sprintf(format, args...), nil, nil)
	e.Identity = identity
	return e
}

// Error implements the error interface
func (e *Error) Error() string {
	msg := e.Message
	if e.Identity != "" {
		msg = fmt.Sprintf("%s (%s)", msg, e.Identity)
	}
	if e.cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, msg, e.cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, msg)
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.cause
}

// WithDetails adds details to the error
func (e *Error) WithDetails(details interface{}) *Error {
	e.Details = details
	return e
}

// WithIdentity records the declaration identity the error concerns
func (e *Error) WithIdentity(identity string) *Error {
	e.Identity = identity
	return e
}

// CodeOf returns the code of the first *Error in err's chain, or "" if none.
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// Is reports whether err carries the given code anywhere in its chain.
func Is(err error, code ErrorCode) bool {
	return CodeOf(err) == code
}

// ErrorActions maps error codes to suggested fix actions
var ErrorActions = map[ErrorCode][]FixAction{
	MalformedInput: {
		{
			Type:        EditInput,
			Description: "Every declaration needs a name and kind, and identities must be unique within a model",
		},
		{
			Type:        RunCommand,
			Command:     "abicompat extract <headers> -o model.json",
			Safe:        true,
			Description: "Regenerate the model from headers",
		},
	},
	InputNotFound: {
		{
			Type:        EditInput,
			Description: "Check the model path",
		},
	},
	UnsupportedFormat: {
		{
			Type:        EditInput,
			Description: "Use .json, .yaml, .yml, .toml (optionally .zst compressed) or .scip",
		},
	},
	RulesInvalid: {
		{
			Type:        RunCommand,
			Command:     "abicompat rules --format json",
			Safe:        true,
			Description: "Print the default rule table to use as a template",
		},
	},
	ConfigInvalid: {
		{
			Type:        EditInput,
			Description: "Fix .abicompat/config.json or delete it to restore defaults",
		},
	},
	InvalidArgument: {
		{
			Type:        RunCommand,
			Command:     "abicompat help",
			Safe:        true,
			Description: "List the accepted flags and values",
		},
	},
}

// GetSuggestedFixes returns suggested fixes for an error code
func GetSuggestedFixes(code ErrorCode) []FixAction {
	if fixes, ok := ErrorActions[code]; ok {
		return fixes
	}
	return nil
}
