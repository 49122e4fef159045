/*
 * Copyright (c) 2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package stepcatalog

import (
	"testing"

	"gotest.tools/assert"

	"github.com/AMD-AIG-AIMA/cupcake-agent/internal/types"
)

type fakeDeps struct{}

func (fakeDeps) DownloadPackages(StepContext) error  { return nil }
func (fakeDeps) UpgradeKubeadm(StepContext) error     { return nil }
func (fakeDeps) KubeadmUpgrade(StepContext) error     { return nil }
func (fakeDeps) KubeadmUpgradeNode(StepContext) error { return nil }
func (fakeDeps) UpgradeKubelet(StepContext) error     { return nil }
func (fakeDeps) UpgradeContainerd(StepContext) error  { return nil }
func (fakeDeps) RestartKubelet(StepContext) error     { return nil }
func (fakeDeps) DrainNode(StepContext) error          { return nil }
func (fakeDeps) UncordonNode(StepContext) error       { return nil }
func (fakeDeps) VerifyNode(StepContext) error         { return nil }

func names(steps []Step) []string {
	out := make([]string, len(steps))
	for i, s := range steps {
		out[i] = s.Name
	}
	return out
}

func TestWorkerPlanWithContainerd(t *testing.T) {
	meta := types.OperationMetadata{Components: []string{"containerd"}}
	steps := Plan(types.RoleWorker, meta, fakeDeps{})
	assert.DeepEqual(t, names(steps), []string{
		"download-packages", "drain-node", "upgrade-kubeadm", "kubeadm-upgrade-node",
		"upgrade-kubelet", "upgrade-containerd", "restart-kubelet", "verify-node", "uncordon-node",
	})
}

func TestControlPlanePlanNoContainerd(t *testing.T) {
	meta := types.OperationMetadata{Components: nil}
	steps := Plan(types.RoleControlPlane, meta, fakeDeps{})
	assert.DeepEqual(t, names(steps), []string{
		"download-packages", "upgrade-kubeadm", "kubeadm-upgrade", "upgrade-kubelet", "restart-kubelet", "verify-node",
	})
	assert.Equal(t, len(steps), 6)
	for _, n := range names(steps) {
		assert.Assert(t, n != "drain-node")
		assert.Assert(t, n != "uncordon-node")
	}
}

func TestPlanDeterministic(t *testing.T) {
	meta := types.OperationMetadata{Components: []string{"containerd"}}
	a := names(Plan(types.RoleWorker, meta, fakeDeps{}))
	b := names(Plan(types.RoleWorker, meta, fakeDeps{}))
	assert.DeepEqual(t, a, b)
}
