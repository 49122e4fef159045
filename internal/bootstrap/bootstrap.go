/*
 * Copyright (c) 2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

// Package bootstrap builds the single AgentContext the rest of the agent
// runs from, and installs the graceful-shutdown signal handler — grounded
// on node-exporter's bootstrap.setupGracefulShutdown.
package bootstrap

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"

	"k8s.io/klog/v2"

	"github.com/AMD-AIG-AIMA/cupcake-agent/internal/agentconfig"
	"github.com/AMD-AIG-AIMA/cupcake-agent/internal/clusterclient"
	"github.com/AMD-AIG-AIMA/cupcake-agent/internal/executor"
	"github.com/AMD-AIG-AIMA/cupcake-agent/internal/opstore"
	"github.com/AMD-AIG-AIMA/cupcake-agent/internal/procrunner"
	"github.com/AMD-AIG-AIMA/cupcake-agent/internal/reconciler"
	"github.com/AMD-AIG-AIMA/cupcake-agent/internal/sink"
	"github.com/AMD-AIG-AIMA/cupcake-agent/internal/snapshot"
	"github.com/AMD-AIG-AIMA/cupcake-agent/internal/stepcatalog"
	"github.com/AMD-AIG-AIMA/cupcake-agent/internal/steps"
	"github.com/AMD-AIG-AIMA/cupcake-agent/internal/types"
)

// AgentContext bundles every component the agent needs, built once at
// startup and wired into the Reconciler — the explicit-value replacement
// for ad-hoc process-global singletons.
type AgentContext struct {
	Config     *agentconfig.Config
	Store      *opstore.Store
	Cluster    *clusterclient.Client
	Sink       sink.Sink
	Reconciler *reconciler.Reconciler
	watcher    io.Closer
}

// NewAgentContext wires every component from cfg. Kubeconfig is read from
// the ambient KUBECONFIG environment variable / ~/.kube/config when the
// agent isn't running in-cluster.
func NewAgentContext(ctx context.Context, cfg *agentconfig.Config, kubeconfigPath string) (*AgentContext, error) {
	store, err := opstore.New(cfg.HostpathRoot)
	if err != nil {
		return nil, err
	}

	cluster, err := clusterclient.New(kubeconfigPath)
	if err != nil {
		return nil, err
	}

	uploadSink, err := sink.New(ctx, sink.Config{
		Enabled:  cfg.BackupStoreEnabled,
		Type:     cfg.BackupStoreType,
		Bucket:   cfg.BackupStoreBucket,
		Endpoint: cfg.BackupStoreEndpoint,
	})
	if err != nil {
		return nil, err
	}

	runner := procrunner.Runner{}
	stepDeps := steps.Deps{Runner: runner, Cluster: cluster}
	exec := &executor.Executor{Store: store, Cluster: cluster}
	snapshotSvc := snapshot.NewService(cluster, runner, uploadSink, cfg.Namespace, cfg.NodeName, cfg.HostpathRoot)

	planFn := func(role types.Role, meta types.OperationMetadata) []stepcatalog.Step {
		return stepcatalog.Plan(role, meta, stepDeps)
	}

	r := &reconciler.Reconciler{
		Cluster:           cluster,
		Store:             store,
		Executor:          exec,
		Snapshot:          snapshotSvc,
		Plan:              planFn,
		NodeName:          cfg.NodeName,
		ReconcileInterval: cfg.ReconcileInterval,
		HostpathRoot:      cfg.HostpathRoot,
		Retention:         cfg.Retention,
		GCSchedule:        cfg.GCSchedule,
	}

	ac := &AgentContext{Config: cfg, Store: store, Cluster: cluster, Sink: uploadSink, Reconciler: r}

	// A reload updates r's fields. Retention takes effect at the next GC
	// sweep; ReconcileInterval and GCSchedule are read once when
	// Reconciler.Run starts, so a running reconciler keeps its tick period
	// and GC schedule until restart.
	if watcher, err := agentconfig.WatchFile(os.Getenv("AGENT_CONFIG_FILE"), func(tun agentconfig.Tunables) {
		klog.Infof("config reloaded: reconcile_interval=%s retention=%s gc_schedule=%s", tun.ReconcileInterval, tun.Retention, tun.GCSchedule)
		r.ReconcileInterval = tun.ReconcileInterval
		r.Retention = tun.Retention
		r.GCSchedule = tun.GCSchedule
	}); err != nil {
		klog.Warningf("config hot-reload disabled: %v", err)
	} else if watcher != nil {
		ac.watcher = watcher
	}

	return ac, nil
}

// Run installs a SIGINT/SIGTERM handler and runs the Reconciler until
// signaled, closing the config watcher on the way out.
func (ac *AgentContext) Run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		klog.Infof("received signal %v, shutting down gracefully", sig)
		cancel()
	}()

	defer func() {
		if ac.watcher != nil {
			_ = ac.watcher.Close()
		}
	}()

	ac.Reconciler.Run(ctx)
}
