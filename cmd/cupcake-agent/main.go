/*
 * Copyright (c) 2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package main

import (
	"context"
	"os"

	"k8s.io/klog/v2"

	"github.com/AMD-AIG-AIMA/cupcake-agent/internal/agentconfig"
	"github.com/AMD-AIG-AIMA/cupcake-agent/internal/agentlog"
	"github.com/AMD-AIG-AIMA/cupcake-agent/internal/bootstrap"
)

func main() {
	cfg, err := agentconfig.Load()
	if err != nil {
		klog.Errorf("config: %v", err)
		os.Exit(1)
	}
	agentlog.Init(cfg.LogLevel)

	ac, err := bootstrap.NewAgentContext(context.Background(), cfg, os.Getenv("KUBECONFIG"))
	if err != nil {
		klog.Errorf("bootstrap: %v", err)
		os.Exit(1)
	}

	klog.Infof("cupcake-agent starting on node %s, hostpath root %s", cfg.NodeName, cfg.HostpathRoot)
	ac.Run(context.Background())
}
