/*
 * Copyright (c) 2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

// Package reconciler implements the periodic poller: resume
// incomplete operations on startup, then loop forever reading the agent's
// own node annotations, dispatching new work, and servicing the Snapshot
// Service. A robfig/cron-scheduled operation-directory GC sweep runs
// alongside it — a supplemented feature original_source/main.py never
// performs, silently filling the hostpath root over a node's lifetime.
package reconciler

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"k8s.io/klog/v2"

	"github.com/AMD-AIG-AIMA/cupcake-agent/internal/clusterclient"
	"github.com/AMD-AIG-AIMA/cupcake-agent/internal/executor"
	"github.com/AMD-AIG-AIMA/cupcake-agent/internal/opstore"
	"github.com/AMD-AIG-AIMA/cupcake-agent/internal/snapshot"
	"github.com/AMD-AIG-AIMA/cupcake-agent/internal/stepcatalog"
	"github.com/AMD-AIG-AIMA/cupcake-agent/internal/types"
)

// PlanFunc builds the step sequence for an operation — bound to the real
// stepcatalog.Plan by the caller, or a fake in tests.
type PlanFunc func(role types.Role, meta types.OperationMetadata) []stepcatalog.Step

// Reconciler is the agent's periodic loop. All dependencies are passed in
// explicitly (the AgentContext shape assembled once at startup); there
// is no process-global client or config.
type Reconciler struct {
	Cluster           *clusterclient.Client
	Store             *opstore.Store
	Executor          *executor.Executor
	Snapshot          *snapshot.Service
	Plan              PlanFunc
	NodeName          string
	ReconcileInterval time.Duration
	HostpathRoot      string
	Retention         time.Duration
	GCSchedule        string
}

// Run resumes incomplete operations, starts the GC cron, then loops until
// ctx is cancelled. Errors and panics inside a reconcile tick are logged
// and swallowed, never terminating the loop; only ctx cancellation stops
// Run.
func (r *Reconciler) Run(ctx context.Context) {
	r.resumeIncomplete(ctx)

	c := r.startGC()
	defer c.Stop()

	ticker := time.NewTicker(r.ReconcileInterval)
	defer ticker.Stop()

	for {
		r.tick(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (r *Reconciler) resumeIncomplete(ctx context.Context) {
	ids, err := r.Store.ListIncomplete()
	if err != nil {
		klog.Errorf("listing incomplete operations: %v", err)
		return
	}
	for _, id := range ids {
		klog.Infof("resuming incomplete operation %s", id)
		r.resumeOne(ctx, id)
	}
}

func (r *Reconciler) resumeOne(ctx context.Context, id string) {
	dir, err := r.Store.Open(id)
	if err != nil {
		klog.Errorf("reopening operation %s: %v", id, err)
		return
	}
	meta, err := r.Store.ReadMetadata(dir)
	if err != nil {
		klog.Errorf("reading metadata for operation %s: %v", id, err)
		return
	}
	plan := r.Plan(meta.Role, meta)
	if err := r.Executor.Execute(ctx, id, plan, meta, true); err != nil {
		klog.Errorf("resuming operation %s: %v", id, err)
	}
}

func (r *Reconciler) tick(ctx context.Context) {
	tickID := uuid.NewString()
	defer func() {
		if rec := recover(); rec != nil {
			klog.Errorf("reconcile tick %s recovered from panic: %v", tickID, rec)
		}
	}()

	view, err := r.Cluster.ReadNode(ctx, r.NodeName)
	if err != nil {
		klog.Warningf("tick %s: reading own node: %v", tickID, err)
	} else {
		r.dispatchIfPending(ctx, view)
	}

	if r.Snapshot != nil {
		if err := r.Snapshot.Intake(ctx); err != nil {
			klog.Warningf("snapshot intake: %v", err)
		}
		r.Snapshot.Drain(ctx)
	}
}

func (r *Reconciler) dispatchIfPending(ctx context.Context, view clusterclient.NodeView) {
	operationID := view.Annotations[types.AnnotationOperationID]
	status := view.Annotations[types.AnnotationStatus]
	if operationID == "" || status != types.StatusPending {
		return
	}

	role := roleFromLabels(view.Labels)
	meta := types.OperationMetadata{
		OperationID:   operationID,
		TargetVersion: view.Annotations[types.AnnotationTargetVersion],
		Components:    splitComponents(view.Annotations[types.AnnotationComponents]),
		NodeName:      r.NodeName,
		Role:          role,
		StartedAt:     time.Now().UTC(),
	}

	plan := r.Plan(role, meta)
	if err := r.Executor.Execute(ctx, operationID, plan, meta, false); err != nil {
		klog.Errorf("executing operation %s: %v", operationID, err)
	}
}

func roleFromLabels(labels map[string]string) types.Role {
	if _, ok := labels[types.NodeRoleControlPlaneLabel]; ok {
		return types.RoleControlPlane
	}
	if _, ok := labels[types.NodeRoleMasterLabel]; ok {
		return types.RoleControlPlane
	}
	return types.RoleWorker
}

func splitComponents(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func (r *Reconciler) startGC() *cron.Cron {
	c := cron.New()
	schedule := r.GCSchedule
	if schedule == "" {
		schedule = "@daily"
	}
	_, err := c.AddFunc(schedule, func() { r.collectTerminalOperations(r.HostpathRoot) })
	if err != nil {
		klog.Errorf("invalid gc schedule %q, operation-directory GC disabled: %v", schedule, err)
		return c
	}
	c.Start()
	return c
}

// collectTerminalOperations removes completed/failed operation directories
// older than r.Retention. It never touches a directory lacking a terminal
// marker, preserving the crash-resume invariant.
func (r *Reconciler) collectTerminalOperations(root string) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return
	}
	cutoff := time.Now().Add(-r.Retention)
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		dirPath := filepath.Join(root, e.Name())
		if !hasTerminalMarker(dirPath) {
			continue
		}
		info, err := e.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		if err := os.RemoveAll(dirPath); err != nil {
			klog.Warningf("gc: removing %s: %v", dirPath, err)
		} else {
			klog.V(1).Infof("gc: removed terminal operation directory %s", dirPath)
		}
	}
}

func hasTerminalMarker(dirPath string) bool {
	for _, name := range []string{"completed", "failed"} {
		if _, err := os.Stat(filepath.Join(dirPath, name)); err == nil {
			return true
		}
	}
	return false
}
