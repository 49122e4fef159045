/*
 * Copyright (c) 2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

// Package steps implements the concrete upgrade-step semantics,
// binding stepcatalog.Deps to concrete host-adapter and cluster-client
// calls. Kept separate from stepcatalog so the plan function stays pure and
// free of adapter imports.
package steps

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"k8s.io/apimachinery/pkg/util/wait"

	corev1 "k8s.io/api/core/v1"

	"github.com/AMD-AIG-AIMA/cupcake-agent/internal/agenterrors"
	"github.com/AMD-AIG-AIMA/cupcake-agent/internal/clusterclient"
	"github.com/AMD-AIG-AIMA/cupcake-agent/internal/hostadapter"
	"github.com/AMD-AIG-AIMA/cupcake-agent/internal/procrunner"
	"github.com/AMD-AIG-AIMA/cupcake-agent/internal/stepcatalog"
)

// Deps implements stepcatalog.Deps against real OS/cluster calls.
type Deps struct {
	Runner  procrunner.Runner
	Cluster *clusterclient.Client
}

func (d Deps) logFile(sc stepcatalog.StepContext, name string) (io.WriteCloser, error) {
	f, err := os.OpenFile(filepath.Join(sc.LogsDir, name+".log"), os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return nil, agenterrors.NewConfigError("opening step log for "+name, err)
	}
	return f, nil
}

func pkgRefs(version string, names ...string) []hostadapter.PackageRef {
	refs := make([]hostadapter.PackageRef, len(names))
	for i, n := range names {
		refs[i] = hostadapter.PackageRef{Name: n, Version: version}
	}
	return refs
}

// DownloadPackages: apt-get update && apt-get download kubeadm=VER-00
// kubelet=… kubectl=… OR yum install --downloadonly -y kubeadm-VER-0 ….
func (d Deps) DownloadPackages(sc stepcatalog.StepContext) error {
	log, err := d.logFile(sc, "download-packages")
	if err != nil {
		return err
	}
	defer log.Close()

	pm, err := hostadapter.DetectPackageManager(d.Runner)
	if err != nil {
		return err
	}
	pkgs := pkgRefs(sc.Metadata.TargetVersion, "kubeadm", "kubelet", "kubectl")
	return pm.Download(sc.Context, pkgs, log)
}

// UpgradeKubeadm: install pinned kubeadm, then kubeadm version -o short.
func (d Deps) UpgradeKubeadm(sc stepcatalog.StepContext) error {
	log, err := d.logFile(sc, "upgrade-kubeadm")
	if err != nil {
		return err
	}
	defer log.Close()

	pm, err := hostadapter.DetectPackageManager(d.Runner)
	if err != nil {
		return err
	}
	if err := pm.Install(sc.Context, pkgRefs(sc.Metadata.TargetVersion, "kubeadm"), log); err != nil {
		return err
	}
	_, err = d.Runner.MustRun(sc.Context, []string{"kubeadm", "version", "-o", "short"}, nil, log, false)
	return err
}

// KubeadmUpgrade: kubeadm upgrade plan vVER (advisory, not checked), then
// kubeadm upgrade apply vVER -y --force. The plan banner is preserved in
// the log verbatim even though its exit status is never consulted.
func (d Deps) KubeadmUpgrade(sc stepcatalog.StepContext) error {
	log, err := d.logFile(sc, "kubeadm-upgrade")
	if err != nil {
		return err
	}
	defer log.Close()

	version := "v" + sc.Metadata.TargetVersion
	fmt.Fprintln(log, "=== Upgrade Plan ===")
	_, _ = d.Runner.Run(sc.Context, []string{"kubeadm", "upgrade", "plan", version}, nil, log, false)

	fmt.Fprintln(log, "=== Applying Upgrade ===")
	_, err = d.Runner.MustRun(sc.Context, []string{"kubeadm", "upgrade", "apply", version, "-y", "--force"}, nil, log, false)
	return err
}

// KubeadmUpgradeNode: kubeadm upgrade node.
func (d Deps) KubeadmUpgradeNode(sc stepcatalog.StepContext) error {
	log, err := d.logFile(sc, "kubeadm-upgrade-node")
	if err != nil {
		return err
	}
	defer log.Close()
	_, err = d.Runner.MustRun(sc.Context, []string{"kubeadm", "upgrade", "node"}, nil, log, false)
	return err
}

// UpgradeKubelet: install pinned kubelet and kubectl, then kubelet --version.
func (d Deps) UpgradeKubelet(sc stepcatalog.StepContext) error {
	log, err := d.logFile(sc, "upgrade-kubelet")
	if err != nil {
		return err
	}
	defer log.Close()

	pm, err := hostadapter.DetectPackageManager(d.Runner)
	if err != nil {
		return err
	}
	if err := pm.Install(sc.Context, pkgRefs(sc.Metadata.TargetVersion, "kubelet", "kubectl"), log); err != nil {
		return err
	}
	_, err = d.Runner.MustRun(sc.Context, []string{"kubelet", "--version"}, nil, log, false)
	return err
}

// UpgradeContainerd: install/update containerd.io, restart, sleep 5s,
// is-active. If no package manager is detected this step warns and is
// marked done rather than failing the operation.
func (d Deps) UpgradeContainerd(sc stepcatalog.StepContext) error {
	log, err := d.logFile(sc, "upgrade-containerd")
	if err != nil {
		return err
	}
	defer log.Close()

	pm, err := hostadapter.DetectPackageManager(d.Runner)
	if err != nil {
		fmt.Fprintln(log, "no package manager detected, skipping containerd package update")
		return nil
	}
	if err := pm.Install(sc.Context, []hostadapter.PackageRef{{Name: "containerd.io", Version: "*"}}, log); err != nil {
		return err
	}

	svc, err := hostadapter.DetectServiceManager(d.Runner)
	if err != nil {
		return err
	}
	if err := svc.Restart(sc.Context, "containerd", log); err != nil {
		return err
	}
	time.Sleep(5 * time.Second)
	active, err := svc.IsActive(sc.Context, "containerd")
	if err != nil {
		return err
	}
	if !active {
		return agenterrors.NewSubprocessFailed("containerd not active after restart", nil)
	}
	return nil
}

// RestartKubelet: daemon-reload, restart kubelet, sleep 15s, is-active.
func (d Deps) RestartKubelet(sc stepcatalog.StepContext) error {
	log, err := d.logFile(sc, "restart-kubelet")
	if err != nil {
		return err
	}
	defer log.Close()

	svc, err := hostadapter.DetectServiceManager(d.Runner)
	if err != nil {
		return err
	}
	if err := svc.DaemonReload(sc.Context, log); err != nil {
		return err
	}
	if err := svc.Restart(sc.Context, "kubelet", log); err != nil {
		return err
	}
	time.Sleep(15 * time.Second)
	active, err := svc.IsActive(sc.Context, "kubelet")
	if err != nil {
		return err
	}
	if !active {
		return agenterrors.NewSubprocessFailed("kubelet not active after restart", nil)
	}
	return nil
}

// DrainNode: kubectl drain <node> --ignore-daemonsets --delete-emptydir-data --timeout=300s.
func (d Deps) DrainNode(sc stepcatalog.StepContext) error {
	log, err := d.logFile(sc, "drain-node")
	if err != nil {
		return err
	}
	defer log.Close()
	_, err = d.Runner.MustRun(sc.Context, []string{
		"kubectl", "drain", sc.Metadata.NodeName,
		"--ignore-daemonsets", "--delete-emptydir-data", "--timeout=300s",
	}, nil, log, false)
	return err
}

// UncordonNode: kubectl uncordon <node>.
func (d Deps) UncordonNode(sc stepcatalog.StepContext) error {
	log, err := d.logFile(sc, "uncordon-node")
	if err != nil {
		return err
	}
	defer log.Close()
	_, err = d.Runner.MustRun(sc.Context, []string{"kubectl", "uncordon", sc.Metadata.NodeName}, nil, log, false)
	return err
}

const (
	verifyDeadline = 300 * time.Second
	verifyInterval = 10 * time.Second
)

// VerifyNode polls the cluster API for our own node, succeeding on the
// first Ready=True condition, failing with Deadline after 300s.
func (d Deps) VerifyNode(sc stepcatalog.StepContext) error {
	log, err := d.logFile(sc, "verify-node")
	if err != nil {
		return err
	}
	defer log.Close()

	ctx, cancel := context.WithTimeout(sc.Context, verifyDeadline)
	defer cancel()

	pollErr := wait.PollUntilContextTimeout(ctx, verifyInterval, verifyDeadline, true, func(pollCtx context.Context) (bool, error) {
		view, err := d.Cluster.ReadNode(pollCtx, sc.Metadata.NodeName)
		if err != nil {
			fmt.Fprintf(log, "verify-node: read failed: %v\n", err)
			return false, nil
		}
		for _, cond := range view.Conditions {
			if cond.Type == corev1.NodeReady && cond.Status == corev1.ConditionTrue {
				return true, nil
			}
		}
		return false, nil
	})
	if pollErr != nil {
		return agenterrors.NewDeadline("node did not report Ready within " + verifyDeadline.String())
	}
	return nil
}
