/*
 * Copyright (c) 2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

// Package snapshot implements consensus-store snapshot intake
// of labeled ConfigMap requests, etcdctl save/status invocation through the
// consensus-store host adapter, optional sink upload, and a status
// ConfigMap written back for the controller to consume.
package snapshot

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/util/workqueue"
	"k8s.io/klog/v2"

	"github.com/AMD-AIG-AIMA/cupcake-agent/internal/agenterrors"
	"github.com/AMD-AIG-AIMA/cupcake-agent/internal/clusterclient"
	"github.com/AMD-AIG-AIMA/cupcake-agent/internal/hostadapter"
	"github.com/AMD-AIG-AIMA/cupcake-agent/internal/procrunner"
	"github.com/AMD-AIG-AIMA/cupcake-agent/internal/sink"
	"github.com/AMD-AIG-AIMA/cupcake-agent/internal/types"
)

const labelSelector = types.LabelBackup + "=true"

// Service takes and ships consensus-store snapshots on behalf of the
// Reconciler, buffering requests in a typed rate-limiting workqueue — the
// same pattern node-agent's monitor/exporter pair uses for MonitorMessage.
// Intake deletes every request of a tick before Drain executes any of
// them, so one request's upload never delays another's deletion. Drain
// runs synchronously inside the tick, so a slow upload does delay the
// next tick.
type Service struct {
	Cluster      *clusterclient.Client
	Runner       procrunner.Runner
	Sink         sink.Sink
	Namespace    string
	NodeName     string
	HostpathRoot string

	queue workqueue.TypedRateLimitingInterface[types.SnapshotRequest]
}

// NewService builds a Service with its own internal workqueue.
func NewService(cluster *clusterclient.Client, runner procrunner.Runner, uploadSink sink.Sink, namespace, nodeName, hostpathRoot string) *Service {
	return &Service{
		Cluster:      cluster,
		Runner:       runner,
		Sink:         uploadSink,
		Namespace:    namespace,
		NodeName:     nodeName,
		HostpathRoot: hostpathRoot,
		queue: workqueue.NewTypedRateLimitingQueue[types.SnapshotRequest](
			workqueue.DefaultTypedControllerRateLimiter[types.SnapshotRequest](),
		),
	}
}

// Intake lists labeled request ConfigMaps in the agent's namespace, filters
// to ones addressed to our node, enqueues each, and deletes the request —
// requests are ephemeral, consumed once and not retried.
func (s *Service) Intake(ctx context.Context) error {
	objs, err := s.Cluster.ListConfigObjects(ctx, s.Namespace, labelSelector)
	if err != nil {
		return err
	}

	for _, obj := range objs {
		if obj.Data["node_name"] != s.NodeName {
			continue
		}
		req := types.SnapshotRequest{
			ConfigMapName: obj.Name,
			NodeName:      obj.Data["node_name"],
			OperationID:   obj.Data["operation_id"],
			SnapshotName:  obj.Data["snapshot_name"],
		}
		s.queue.Add(req)
		if err := s.Cluster.DeleteConfigObject(ctx, s.Namespace, obj.Name); err != nil {
			klog.Warningf("deleting snapshot request %s: %v", obj.Name, err)
		}
	}
	return nil
}

// Drain processes every request currently queued, in FIFO order, to
// exhaustion — called once per reconcile tick after Intake.
func (s *Service) Drain(ctx context.Context) {
	for s.queue.Len() > 0 {
		req, shutdown := s.queue.Get()
		if shutdown {
			return
		}
		s.execute(ctx, req)
		s.queue.Done(req)
		s.queue.Forget(req)
	}
}

func (s *Service) execute(ctx context.Context, req types.SnapshotRequest) {
	status := s.run(ctx, req)
	if err := s.writeStatus(ctx, req, status); err != nil {
		klog.Errorf("writing snapshot status for %s: %v", req.OperationID, err)
	}
}

func (s *Service) run(ctx context.Context, req types.SnapshotRequest) types.SnapshotStatus {
	now := time.Now().UTC()
	store := hostadapter.DetectEtcdStore(os.Getenv("ETCD_ENDPOINTS_OVERRIDE"))
	certs := store.Certs()

	snapshotPath := filepath.Join(s.HostpathRoot, req.SnapshotName+".db")
	env := []string{"ETCDCTL_API=3"}
	saveArgv := []string{
		"etcdctl", "snapshot", "save", snapshotPath,
		"--endpoints=" + store.Endpoints(),
		"--cacert=" + certs.CA, "--cert=" + certs.Cert, "--key=" + certs.Key,
	}
	if _, err := s.Runner.MustRun(ctx, saveArgv, env, nil, false); err != nil {
		return types.SnapshotStatus{Completed: true, Success: false, Message: err.Error(), SnapshotName: req.SnapshotName, Timestamp: now}
	}

	statusArgv := []string{"etcdctl", "snapshot", "status", snapshotPath}
	if _, err := s.Runner.MustRun(ctx, statusArgv, env, nil, false); err != nil {
		return types.SnapshotStatus{Completed: true, Success: false, Message: err.Error(), SnapshotName: req.SnapshotName, Timestamp: now}
	}

	if s.Sink != nil {
		remoteKey := "etcd-snapshots/" + req.SnapshotName + ".db"
		if err := s.Sink.Put(ctx, snapshotPath, remoteKey); err != nil {
			return types.SnapshotStatus{Completed: true, Success: false, Message: err.Error(), SnapshotName: req.SnapshotName, Timestamp: now}
		}
	}

	return types.SnapshotStatus{Completed: true, Success: true, Message: "snapshot saved", SnapshotName: req.SnapshotName, Timestamp: now}
}

func (s *Service) writeStatus(ctx context.Context, req types.SnapshotRequest, status types.SnapshotStatus) error {
	cm := &corev1.ConfigMap{
		ObjectMeta: metav1.ObjectMeta{Name: statusObjectName(req.OperationID, req.NodeName)},
		Data:       statusData(status),
	}
	return s.Cluster.CreateConfigObject(ctx, s.Namespace, cm)
}

func statusObjectName(operationID, nodeName string) string {
	name := fmt.Sprintf("backup-status-%s-%s", operationID, nodeName)
	return strings.ReplaceAll(name, ".", "-")
}

func statusData(status types.SnapshotStatus) map[string]string {
	return map[string]string{
		"completed":     fmt.Sprintf("%t", status.Completed),
		"success":       fmt.Sprintf("%t", status.Success),
		"message":       status.Message,
		"snapshot_name": status.SnapshotName,
		"timestamp":     status.Timestamp.Format(time.RFC3339),
	}
}
