/*
 * Copyright (c) 2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

// Package stepcatalog maps a node's role and requested components to the
// ordered step sequence for an upgrade operation. Plan is pure: no clock,
// no I/O, no hidden state — the Step's Run function is a first-class
// value bound at plan time rather than looked up by name at execution
// time.
package stepcatalog

import (
	"context"

	"github.com/AMD-AIG-AIMA/cupcake-agent/internal/types"
)

// StepContext is everything a Run function needs: the operation's log
// directory (one file per step, named after the step) and the operation
// metadata, which also carries the node name the agent runs on.
type StepContext struct {
	Context  context.Context
	LogsDir  string
	Metadata types.OperationMetadata
}

// Step is one named, ordered unit of work. Run is dispatched directly by
// the executor; there is no name-based lookup at execution time.
type Step struct {
	Name string
	Run  func(StepContext) error
}

// Deps bundles the executor functions a Plan binds into steps. Kept as an
// interface (not a concrete struct of concrete types) so stepcatalog does
// not import the adapter/client packages directly, avoiding an import
// cycle with the packages that construct a Plan.
type Deps interface {
	DownloadPackages(StepContext) error
	UpgradeKubeadm(StepContext) error
	KubeadmUpgrade(StepContext) error
	KubeadmUpgradeNode(StepContext) error
	UpgradeKubelet(StepContext) error
	UpgradeContainerd(StepContext) error
	RestartKubelet(StepContext) error
	DrainNode(StepContext) error
	UncordonNode(StepContext) error
	VerifyNode(StepContext) error
}

// Plan is a pure function of (role, components): equal inputs yield an
// equal step sequence.
func Plan(role types.Role, meta types.OperationMetadata, deps Deps) []Step {
	steps := []Step{
		{Name: "download-packages", Run: deps.DownloadPackages},
	}

	if role == types.RoleWorker {
		steps = append(steps, Step{Name: "drain-node", Run: deps.DrainNode})
	}

	steps = append(steps,
		Step{Name: "upgrade-kubeadm", Run: deps.UpgradeKubeadm},
	)

	if role == types.RoleWorker {
		steps = append(steps, Step{Name: "kubeadm-upgrade-node", Run: deps.KubeadmUpgradeNode})
	} else {
		steps = append(steps, Step{Name: "kubeadm-upgrade", Run: deps.KubeadmUpgrade})
	}

	steps = append(steps, Step{Name: "upgrade-kubelet", Run: deps.UpgradeKubelet})

	if meta.HasComponent(types.ComponentContainerd) {
		steps = append(steps, Step{Name: "upgrade-containerd", Run: deps.UpgradeContainerd})
	}

	steps = append(steps, Step{Name: "restart-kubelet", Run: deps.RestartKubelet})
	steps = append(steps, Step{Name: "verify-node", Run: deps.VerifyNode})

	if role == types.RoleWorker {
		steps = append(steps, Step{Name: "uncordon-node", Run: deps.UncordonNode})
	}

	return steps
}
