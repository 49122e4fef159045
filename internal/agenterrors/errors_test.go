/*
 * Copyright (c) 2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package agenterrors

import (
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorWithoutInnerError(t *testing.T) {
	err := &Error{Code: CodeConfigError, Message: "missing NODE_NAME"}
	assert.Contains(t, err.Error(), "code CONFIG_ERROR")
	assert.Contains(t, err.Error(), "message missing NODE_NAME")
	assert.NotContains(t, err.Error(), "error ")
}

func TestErrorWithInnerError(t *testing.T) {
	inner := stderrors.New("boom")
	err := &Error{Code: CodeSubprocessFailed, Message: "apt-get failed", InnerError: inner}
	assert.Contains(t, err.Error(), "error boom")
	assert.Contains(t, err.Error(), "code SUBPROCESS_FAILED")
}

func TestChaining(t *testing.T) {
	inner := stderrors.New("inner")
	err := &Error{}
	result := err.WithCode(CodeDeadline).WithMessage("timed out").WithError(inner)
	assert.Same(t, err, result)
	assert.Equal(t, CodeDeadline, err.Code)
	assert.Equal(t, "timed out", err.Message)
	assert.Equal(t, inner, err.InnerError)
}

func TestConstructorsAndPredicates(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		check func(error) bool
	}{
		{"config", NewConfigError("x", nil), IsConfigError},
		{"transient", NewTransientAPIError("x", nil), IsTransientAPIError},
		{"unsupported host", NewUnsupportedHost("x"), IsUnsupportedHost},
		{"subprocess", NewSubprocessFailed("x", nil), IsSubprocessFailed},
		{"deadline", NewDeadline("x"), IsDeadline},
		{"upload", NewUploadError("x", nil), IsUploadError},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			assert.True(t, test.check(test.err))
		})
	}

	plain := stderrors.New("plain")
	assert.False(t, IsConfigError(plain))
	assert.Equal(t, Code(""), GetErrorCode(plain))
}

func TestIsTerminal(t *testing.T) {
	assert.True(t, IsTerminal(NewSubprocessFailed("x", nil)))
	assert.True(t, IsTerminal(NewUnsupportedHost("x")))
	assert.True(t, IsTerminal(NewDeadline("x")))
	assert.False(t, IsTerminal(NewTransientAPIError("x", nil)))
	assert.False(t, IsTerminal(NewUploadError("x", nil)))
	assert.True(t, IsTerminal(stderrors.New("unknown kind")))
	assert.False(t, IsTerminal(nil))
}

func TestStackHelpers(t *testing.T) {
	err := NewConfigError("x", nil)
	assert.NotEmpty(t, err.Stack)
	assert.NotEmpty(t, err.GetTopStackString())
	assert.NotEmpty(t, err.GetStackString())

	empty := &Error{}
	assert.Equal(t, "", empty.GetTopStackString())
	assert.Equal(t, "", empty.GetStackString())
}
