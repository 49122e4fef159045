/*
 * Copyright (c) 2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

// Package executor runs a step sequence against the operation store,
// honoring a resume/fail-fast contract.
package executor

import (
	"context"
	"time"

	"k8s.io/klog/v2"

	"github.com/AMD-AIG-AIMA/cupcake-agent/internal/agenterrors"
	"github.com/AMD-AIG-AIMA/cupcake-agent/internal/clusterclient"
	"github.com/AMD-AIG-AIMA/cupcake-agent/internal/opstore"
	"github.com/AMD-AIG-AIMA/cupcake-agent/internal/stepcatalog"
	"github.com/AMD-AIG-AIMA/cupcake-agent/internal/types"
)

// Executor drives one operation's step plan through the operation store,
// patching node status back through the cluster client facade.
type Executor struct {
	Store   *opstore.Store
	Cluster *clusterclient.Client
}

// Execute runs plan start to finish against the operation store. When resume is
// false, metadata is written fresh; when true, the on-disk metadata.json is
// the source of truth and the metadata argument is ignored beyond its
// OperationID.
func (e *Executor) Execute(ctx context.Context, operationID string, plan []stepcatalog.Step, meta types.OperationMetadata, resume bool) error {
	dir, err := e.Store.Open(operationID)
	if err != nil {
		return err
	}

	if !resume {
		meta.OperationID = operationID
		if err := e.Store.WriteMetadata(dir, meta); err != nil {
			return err
		}
	} else {
		loaded, err := e.Store.ReadMetadata(dir)
		if err != nil {
			return err
		}
		meta = loaded
	}

	for i, step := range plan {
		index := i + 1

		if e.Store.IsDone(dir, index, step.Name) {
			klog.V(1).Infof("operation %s: step %d (%s) already done, skipping", operationID, index, step.Name)
			continue
		}

		klog.Infof("operation %s: starting step %d (%s)", operationID, index, step.Name)
		if _, err := e.Store.MarkInProgress(dir, types.StepInProgressRecord{
			Step: index, Name: step.Name, StartedAt: time.Now().UTC(),
		}); err != nil {
			return err
		}

		stepCtx := stepcatalog.StepContext{Context: ctx, LogsDir: dir.LogsDir(), Metadata: meta}
		if runErr := step.Run(stepCtx); runErr != nil {
			klog.Errorf("operation %s: step %d (%s) failed: %v", operationID, index, step.Name, runErr)
			return e.fail(ctx, dir, meta.NodeName, index, step.Name, runErr)
		}

		if err := e.Store.Finish(dir, index, step.Name); err != nil {
			return err
		}
	}

	if err := e.Store.MarkCompleted(dir, types.CompletedRecord{CompletedAt: time.Now().UTC(), NodeName: meta.NodeName}); err != nil {
		return err
	}
	if err := e.patchStatus(ctx, meta.NodeName, types.StatusCompleted); err != nil {
		klog.Warningf("operation %s: completed locally but status patch failed: %v", operationID, err)
	}
	return nil
}

func (e *Executor) fail(ctx context.Context, dir opstore.Dir, nodeName string, index int, name string, cause error) error {
	record := types.FailedRecord{Step: index, Name: name, Error: cause.Error(), FailedAt: time.Now().UTC()}
	if err := e.Store.MarkFailed(dir, record); err != nil {
		return err
	}
	if err := e.patchStatus(ctx, nodeName, types.StatusFailed); err != nil {
		klog.Warningf("patching failed status for node %s: %v", nodeName, err)
	}
	return agenterrors.NewSubprocessFailed("step "+name+" failed", cause)
}

func (e *Executor) patchStatus(ctx context.Context, nodeName, status string) error {
	if e.Cluster == nil {
		return nil
	}
	return e.Cluster.PatchNodeAnnotation(ctx, nodeName, types.AnnotationStatus, status)
}
