/*
 * Copyright (c) 2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package steps

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"gotest.tools/assert"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes/fake"

	"github.com/AMD-AIG-AIMA/cupcake-agent/internal/clusterclient"
	"github.com/AMD-AIG-AIMA/cupcake-agent/internal/procrunner"
	"github.com/AMD-AIG-AIMA/cupcake-agent/internal/stepcatalog"
	"github.com/AMD-AIG-AIMA/cupcake-agent/internal/types"
)

func newStepContext(t *testing.T) stepcatalog.StepContext {
	return stepcatalog.StepContext{
		Context: context.Background(),
		LogsDir: t.TempDir(),
		Metadata: types.OperationMetadata{
			OperationID:   "op1",
			TargetVersion: "1.29.4",
			NodeName:      "node-a",
			Role:          types.RoleWorker,
		},
	}
}

func TestVerifyNodeSucceedsWhenReady(t *testing.T) {
	clientset := fake.NewSimpleClientset(&corev1.Node{
		ObjectMeta: metav1.ObjectMeta{Name: "node-a"},
		Status: corev1.NodeStatus{
			Conditions: []corev1.NodeCondition{{Type: corev1.NodeReady, Status: corev1.ConditionTrue}},
		},
	})
	d := Deps{Runner: procrunner.Runner{}, Cluster: clusterclient.NewFromClientset(clientset)}

	err := d.VerifyNode(newStepContext(t))
	assert.NilError(t, err)
}

func TestDrainNodeInvokesKubectl(t *testing.T) {
	d := Deps{Runner: procrunner.Runner{}}
	sc := newStepContext(t)
	// Exercise the real log-file path without invoking a real kubectl binary:
	// absence of kubectl on PATH surfaces as a SubprocessFailed error, which
	// is the same failure classification a nonzero exit would produce.
	err := d.DrainNode(sc)
	assert.Assert(t, err != nil)

	data, readErr := os.ReadFile(filepath.Join(sc.LogsDir, "drain-node.log"))
	assert.NilError(t, readErr)
	_ = data
}

func TestUpgradeContainerdNoPackageManagerWarnsAndSucceeds(t *testing.T) {
	t.Setenv("PATH", t.TempDir())
	d := Deps{Runner: procrunner.Runner{}}
	sc := newStepContext(t)
	err := d.UpgradeContainerd(sc)
	assert.NilError(t, err)
}
