/*
 * Copyright (c) 2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

// Package agenterrors implements the agent's error taxonomy:
// ConfigError, TransientApiError, UnsupportedHost, SubprocessFailed,
// Deadline, and UploadError, all as distinct codes on one error type.
package agenterrors

import (
	"errors"
	"fmt"
	"runtime"
)

type Code string

const (
	CodeConfigError      Code = "CONFIG_ERROR"
	CodeTransientAPI     Code = "TRANSIENT_API_ERROR"
	CodeUnsupportedHost  Code = "UNSUPPORTED_HOST"
	CodeSubprocessFailed Code = "SUBPROCESS_FAILED"
	CodeDeadline         Code = "DEADLINE"
	CodeUploadError      Code = "UPLOAD_ERROR"
)

// Error is the agent's single error type; every taxonomy member is a
// distinct Code on this struct rather than its own type, so callers can
// always errors.As into *Error and branch on Code.
type Error struct {
	Code       Code
	Message    string
	InnerError error
	Stack      []runtime.Frame
}

func (e *Error) Error() string {
	if e.InnerError != nil {
		return fmt.Sprintf("error %s. code %s. message %s", e.InnerError.Error(), e.Code, e.Message)
	}
	return fmt.Sprintf("code %s. message %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.InnerError
}

func (e *Error) WithCode(code Code) *Error {
	e.Code = code
	return e
}

func (e *Error) WithMessage(message string) *Error {
	e.Message = message
	return e
}

func (e *Error) WithError(err error) *Error {
	e.InnerError = err
	return e
}

// GetTopStackString renders the innermost captured frame, or "" if none.
func (e *Error) GetTopStackString() string {
	if len(e.Stack) == 0 {
		return ""
	}
	return frameString(e.Stack[0])
}

// GetStackString renders every captured frame, one per line.
func (e *Error) GetStackString() string {
	if len(e.Stack) == 0 {
		return ""
	}
	out := ""
	for i, f := range e.Stack {
		if i > 0 {
			out += "\n"
		}
		out += frameString(f)
	}
	return out
}

func frameString(f runtime.Frame) string {
	name := "unknown"
	if f.Func != nil {
		name = f.Func.Name()
		for i := len(name) - 1; i >= 0; i-- {
			if name[i] == '/' {
				name = name[i+1:]
				break
			}
		}
	}
	return fmt.Sprintf("%s:%d %s", f.File, f.Line, name)
}

func captureStack(skip int) []runtime.Frame {
	pcs := make([]uintptr, 16)
	n := runtime.Callers(skip+2, pcs)
	frames := runtime.CallersFrames(pcs[:n])
	var out []runtime.Frame
	for {
		frame, more := frames.Next()
		out = append(out, frame)
		if !more {
			break
		}
	}
	return out
}

func newError(code Code, message string, cause error) *Error {
	return &Error{
		Code:       code,
		Message:    message,
		InnerError: cause,
		Stack:      captureStack(1),
	}
}

func NewConfigError(message string, cause error) *Error {
	return newError(CodeConfigError, message, cause)
}

func NewTransientAPIError(message string, cause error) *Error {
	return newError(CodeTransientAPI, message, cause)
}

func NewUnsupportedHost(message string) *Error {
	return newError(CodeUnsupportedHost, message, nil)
}

func NewSubprocessFailed(message string, cause error) *Error {
	return newError(CodeSubprocessFailed, message, cause)
}

func NewDeadline(message string) *Error {
	return newError(CodeDeadline, message, nil)
}

func NewUploadError(message string, cause error) *Error {
	return newError(CodeUploadError, message, cause)
}

// codeOf returns (code, true) if err (or something it wraps) is *Error.
func codeOf(err error) (Code, bool) {
	var agentErr *Error
	if errors.As(err, &agentErr) {
		return agentErr.Code, true
	}
	return "", false
}

func GetErrorCode(err error) Code {
	code, _ := codeOf(err)
	return code
}

func IsConfigError(err error) bool {
	code, ok := codeOf(err)
	return ok && code == CodeConfigError
}

func IsTransientAPIError(err error) bool {
	code, ok := codeOf(err)
	return ok && code == CodeTransientAPI
}

func IsUnsupportedHost(err error) bool {
	code, ok := codeOf(err)
	return ok && code == CodeUnsupportedHost
}

func IsSubprocessFailed(err error) bool {
	code, ok := codeOf(err)
	return ok && code == CodeSubprocessFailed
}

func IsDeadline(err error) bool {
	code, ok := codeOf(err)
	return ok && code == CodeDeadline
}

func IsUploadError(err error) bool {
	code, ok := codeOf(err)
	return ok && code == CodeUploadError
}

// IsTerminal reports whether err should terminate the owning operation,
// i.e. every taxonomy member except TransientApiError and UploadError
// (transient/retryable errors aside).
func IsTerminal(err error) bool {
	code, ok := codeOf(err)
	if !ok {
		return err != nil
	}
	return code != CodeTransientAPI && code != CodeUploadError
}
