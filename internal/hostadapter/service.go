/*
 * Copyright (c) 2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package hostadapter

import (
	"context"
	"io"
	"os/exec"
	"strings"

	"github.com/AMD-AIG-AIMA/cupcake-agent/internal/agenterrors"
	"github.com/AMD-AIG-AIMA/cupcake-agent/internal/procrunner"
)

// ServiceManager wraps systemctl's daemon-reload/restart/is-active trio.
type ServiceManager interface {
	DaemonReload(ctx context.Context, log io.Writer) error
	Restart(ctx context.Context, unit string, log io.Writer) error
	IsActive(ctx context.Context, unit string) (bool, error)
}

// DetectServiceManager probes PATH for systemctl. Returns UnsupportedHost
// if absent.
func DetectServiceManager(runner procrunner.Runner) (ServiceManager, error) {
	if _, err := exec.LookPath("systemctl"); err != nil {
		return nil, agenterrors.NewUnsupportedHost("systemctl not found on PATH")
	}
	return systemdManager{runner: runner}, nil
}

type systemdManager struct{ runner procrunner.Runner }

func (m systemdManager) DaemonReload(ctx context.Context, log io.Writer) error {
	_, err := m.runner.MustRun(ctx, []string{"systemctl", "daemon-reload"}, nil, log, false)
	return err
}

func (m systemdManager) Restart(ctx context.Context, unit string, log io.Writer) error {
	_, err := m.runner.MustRun(ctx, []string{"systemctl", "restart", unit}, nil, log, false)
	return err
}

func (m systemdManager) IsActive(ctx context.Context, unit string) (bool, error) {
	result, err := m.runner.Run(ctx, []string{"systemctl", "is-active", unit}, nil, nil, true)
	if err != nil {
		return false, agenterrors.NewSubprocessFailed("systemctl is-active "+unit, err)
	}
	return strings.TrimSpace(result.Stdout) == "active", nil
}
