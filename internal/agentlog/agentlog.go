/*
 * Copyright (c) 2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

// Package agentlog sets klog's verbosity from the agent's LOG_LEVEL
// configuration. The rest of the codebase calls klog.Infof/Warningf/
// Errorf/V(n).Infof directly, the same way SaFE/apiserver/cmd/main.go does.
package agentlog

import (
	"flag"
	"strings"

	"k8s.io/klog/v2"
)

// Verbosity levels used throughout the agent. debug steps through V(1),
// everything else logs unconditionally at its natural level.
const (
	VDebug = klog.Level(1)
)

// Init configures klog's -v flag from a LOG_LEVEL string
// (debug/info/warn/error, case-insensitive; unrecognized values fall back
// to "info").
func Init(level string) {
	fs := flag.NewFlagSet("klog", flag.ContinueOnError)
	klog.InitFlags(fs)

	v := "0"
	switch strings.ToLower(level) {
	case "debug":
		v = "1"
	case "info", "":
		v = "0"
	case "warn", "warning", "error":
		v = "0"
	}
	_ = fs.Set("v", v)
}
