/*
 * Copyright (c) 2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package executor

import (
	"context"
	"errors"
	"testing"

	"gotest.tools/assert"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes/fake"

	"github.com/AMD-AIG-AIMA/cupcake-agent/internal/clusterclient"
	"github.com/AMD-AIG-AIMA/cupcake-agent/internal/opstore"
	"github.com/AMD-AIG-AIMA/cupcake-agent/internal/stepcatalog"
	"github.com/AMD-AIG-AIMA/cupcake-agent/internal/types"
)

func newExecutor(t *testing.T, nodeName string) *Executor {
	store, err := opstore.New(t.TempDir())
	assert.NilError(t, err)
	clientset := fake.NewSimpleClientset(&corev1.Node{ObjectMeta: metav1.ObjectMeta{Name: nodeName}})
	return &Executor{Store: store, Cluster: clusterclient.NewFromClientset(clientset)}
}

func countingStep(name string, calls *int, fail bool) stepcatalog.Step {
	return stepcatalog.Step{
		Name: name,
		Run: func(stepcatalog.StepContext) error {
			*calls++
			if fail {
				return errors.New("boom")
			}
			return nil
		},
	}
}

func TestExecuteHappyPath(t *testing.T) {
	exec := newExecutor(t, "node-a")
	var c1, c2 int
	plan := []stepcatalog.Step{
		countingStep("step-one", &c1, false),
		countingStep("step-two", &c2, false),
	}
	meta := types.OperationMetadata{NodeName: "node-a"}

	err := exec.Execute(context.Background(), "op1", plan, meta, false)
	assert.NilError(t, err)
	assert.Equal(t, c1, 1)
	assert.Equal(t, c2, 1)

	view, err := exec.Cluster.ReadNode(context.Background(), "node-a")
	assert.NilError(t, err)
	assert.Equal(t, view.Annotations[types.AnnotationStatus], types.StatusCompleted)
}

func TestExecuteFailFastStopsSubsequentSteps(t *testing.T) {
	exec := newExecutor(t, "node-a")
	var c1, c2 int
	plan := []stepcatalog.Step{
		countingStep("step-one", &c1, true),
		countingStep("step-two", &c2, false),
	}
	meta := types.OperationMetadata{NodeName: "node-a"}

	err := exec.Execute(context.Background(), "op1", plan, meta, false)
	assert.Assert(t, err != nil)
	assert.Equal(t, c1, 1)
	assert.Equal(t, c2, 0)

	view, err := exec.Cluster.ReadNode(context.Background(), "node-a")
	assert.NilError(t, err)
	assert.Equal(t, view.Annotations[types.AnnotationStatus], types.StatusFailed)
}

func TestExecuteResumeSkipsDoneSteps(t *testing.T) {
	exec := newExecutor(t, "node-a")
	var c1, c2 int
	plan := []stepcatalog.Step{
		countingStep("step-one", &c1, false),
		countingStep("step-two", &c2, false),
	}
	meta := types.OperationMetadata{NodeName: "node-a"}

	assert.NilError(t, exec.Execute(context.Background(), "op1", plan, meta, false))
	assert.Equal(t, c1, 1)
	assert.Equal(t, c2, 1)

	// Re-run with resume=true against the same id: every step's .done
	// marker already exists, so no step function should be invoked again.
	assert.NilError(t, exec.Execute(context.Background(), "op1", plan, meta, true))
	assert.Equal(t, c1, 1)
	assert.Equal(t, c2, 1)
}
