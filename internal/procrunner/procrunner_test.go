/*
 * Copyright (c) 2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package procrunner

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"gotest.tools/assert"

	"github.com/AMD-AIG-AIMA/cupcake-agent/internal/agenterrors"
)

func TestRunSuccess(t *testing.T) {
	var r Runner
	var buf bytes.Buffer
	result, err := r.Run(context.Background(), []string{"echo", "hello"}, nil, &buf, true)
	assert.NilError(t, err)
	assert.Equal(t, result.ExitCode, 0)
	assert.Equal(t, strings.TrimSpace(result.Stdout), "hello")
	assert.Equal(t, strings.TrimSpace(buf.String()), "hello")
}

func TestRunNonzeroExit(t *testing.T) {
	var r Runner
	result, err := r.Run(context.Background(), []string{"sh", "-c", "echo boom; exit 3"}, nil, nil, true)
	assert.NilError(t, err)
	assert.Equal(t, result.ExitCode, 3)
	assert.Equal(t, strings.TrimSpace(result.Stdout), "boom")
}

func TestRunMissingBinary(t *testing.T) {
	var r Runner
	_, err := r.Run(context.Background(), []string{"definitely-not-a-real-binary-xyz"}, nil, nil, false)
	assert.Assert(t, err != nil)
}

func TestMustRunSuccess(t *testing.T) {
	var r Runner
	_, err := r.MustRun(context.Background(), []string{"true"}, nil, nil, false)
	assert.NilError(t, err)
}

func TestMustRunNonzeroIsSubprocessFailed(t *testing.T) {
	var r Runner
	_, err := r.MustRun(context.Background(), []string{"false"}, nil, nil, true)
	assert.Assert(t, err != nil)
	assert.Equal(t, agenterrors.IsSubprocessFailed(err), true)
}

func TestRunEmptyArgv(t *testing.T) {
	var r Runner
	_, err := r.Run(context.Background(), nil, nil, nil, false)
	assert.Equal(t, agenterrors.IsConfigError(err), true)
}
