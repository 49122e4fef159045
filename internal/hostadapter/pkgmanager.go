/*
 * Copyright (c) 2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

// Package hostadapter detects the host's package manager, service manager,
// and consensus-store layout by probing for tool presence at call time.
// Detection is never cached across steps, since an upgrade operation can
// itself change which tools are on PATH.
package hostadapter

import (
	"context"
	"fmt"
	"io"
	"os/exec"

	"github.com/AMD-AIG-AIMA/cupcake-agent/internal/agenterrors"
	"github.com/AMD-AIG-AIMA/cupcake-agent/internal/procrunner"
)

// PackageManagerKind identifies which package manager was detected.
type PackageManagerKind string

const (
	PackageManagerApt PackageManagerKind = "apt"
	PackageManagerYum PackageManagerKind = "yum"
)

// PackageRef names a package and the version to pin it to.
type PackageRef struct {
	Name    string
	Version string
}

// PackageManager downloads or installs a pinned set of packages.
type PackageManager interface {
	Kind() PackageManagerKind
	// Download fetches packages without installing them. apt's "download"
	// subcommand deliberately does not check exit status for missing
	// individual packages in the original tool this spec is derived from;
	// this implementation takes the conservative branch and
	// out and does check it.
	Download(ctx context.Context, pkgs []PackageRef, log io.Writer) error
	// Install installs the pinned packages, upgrading or downgrading as
	// needed; repeated calls at the same version are a no-op (the
	// idempotence the executor's resume path relies on).
	Install(ctx context.Context, pkgs []PackageRef, log io.Writer) error
}

// DetectPackageManager probes PATH for apt-get then yum, in that order.
// Returns UnsupportedHost if neither is present.
func DetectPackageManager(runner procrunner.Runner) (PackageManager, error) {
	if _, err := exec.LookPath("apt-get"); err == nil {
		return aptManager{runner: runner}, nil
	}
	if _, err := exec.LookPath("yum"); err == nil {
		return yumManager{runner: runner}, nil
	}
	return nil, agenterrors.NewUnsupportedHost("no supported package manager found (apt-get or yum)")
}

type aptManager struct{ runner procrunner.Runner }

func (aptManager) Kind() PackageManagerKind { return PackageManagerApt }

func (m aptManager) Download(ctx context.Context, pkgs []PackageRef, log io.Writer) error {
	if _, err := m.runner.MustRun(ctx, []string{"apt-get", "update"}, nil, log, false); err != nil {
		return err
	}
	argv := append([]string{"apt-get", "download"}, aptSpecs(pkgs)...)
	if _, err := m.runner.MustRun(ctx, argv, nil, log, false); err != nil {
		return err
	}
	return nil
}

func (m aptManager) Install(ctx context.Context, pkgs []PackageRef, log io.Writer) error {
	argv := append([]string{"apt-get", "install", "-y", "--allow-change-held-packages"}, aptSpecs(pkgs)...)
	_, err := m.runner.MustRun(ctx, argv, nil, log, false)
	return err
}

func aptSpecs(pkgs []PackageRef) []string {
	specs := make([]string, len(pkgs))
	for i, p := range pkgs {
		specs[i] = fmt.Sprintf("%s=%s-00", p.Name, p.Version)
	}
	return specs
}

type yumManager struct{ runner procrunner.Runner }

func (yumManager) Kind() PackageManagerKind { return PackageManagerYum }

func (m yumManager) Download(ctx context.Context, pkgs []PackageRef, log io.Writer) error {
	argv := append([]string{"yum", "install", "--downloadonly", "-y"}, yumSpecs(pkgs)...)
	_, err := m.runner.MustRun(ctx, argv, nil, log, false)
	return err
}

func (m yumManager) Install(ctx context.Context, pkgs []PackageRef, log io.Writer) error {
	argv := append([]string{"yum", "install", "-y"}, yumSpecs(pkgs)...)
	_, err := m.runner.MustRun(ctx, argv, nil, log, false)
	return err
}

func yumSpecs(pkgs []PackageRef) []string {
	specs := make([]string, len(pkgs))
	for i, p := range pkgs {
		specs[i] = fmt.Sprintf("%s-%s-0", p.Name, p.Version)
	}
	return specs
}
