package main

import (
	"errors"
	"fmt"
	"io"

	abierrors "abicompat/internal/errors"
	"abicompat/internal/rules"
	"abicompat/internal/verdict"
)

// Process exit codes.
const (
	ExitOK        = 0 // nothing at or above the failure threshold
	ExitThreshold = 1 // a change reached the failure threshold
	ExitInput     = 2 // input, model or configuration error
)

// exitError carries an exit code through cobra.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err == nil {
		return ""
	}
	return e.err.Error()
}

func (e *exitError) Unwrap() error { return e.err }

func inputError(err error) error {
	return &exitError{code: ExitInput, err: err}
}

// errThresholdExceeded reports a verdict at or above --fail-on. It prints
// nothing; the report already explains the failure.
var errThresholdExceeded = &exitError{code: ExitThreshold}

func exitCodeOf(err error) int {
	if err == nil {
		return ExitOK
	}
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	return ExitInput
}

// thresholdCode maps a verdict to an exit code.
func thresholdCode(v *verdict.Verdict, failOn rules.Severity) int {
	if v.AtLeast(failOn) {
		return ExitThreshold
	}
	return ExitOK
}

// parseFailOn accepts "breaking" or "warning".
func parseFailOn(s string) (rules.Severity, error) {
	sev, err := rules.ParseSeverity(s)
	if err != nil || sev == rules.Safe {
		return 0, abierrors.New(abierrors.InvalidArgument,
			fmt.Sprintf("invalid --fail-on %q (want breaking or warning)", s), err,
			[]abierrors.FixAction{{Type: abierrors.EditInput, Description: "Use --fail-on breaking or --fail-on warning"}})
	}
	return sev, nil
}

func printFixes(w io.Writer, err error) {
	var ae *abierrors.Error
	if !errors.As(err, &ae) {
		return
	}
	if ae.Identity != "" {
		fmt.Fprintf(w, "  identity: %s\n", ae.Identity)
	}
	for _, fix := range ae.SuggestedFixes {
		switch {
		case fix.Command != "":
			fmt.Fprintf(w, "  hint: %s (%s)\n", fix.Description, fix.Command)
		case fix.Description != "":
			fmt.Fprintf(w, "  hint: %s\n", fix.Description)
		}
	}
}
