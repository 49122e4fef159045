/*
 * Copyright (c) 2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

// Package sink implements the pluggable upload sinks: an
// s3-compatible sink and a gcs sink, selected by configuration. An unknown
// type logs a warning and yields no sink at all (not an error) — local
// snapshot success stands on its own.
package sink

import (
	"context"

	"k8s.io/klog/v2"
)

// Sink uploads a local file to remote object storage.
type Sink interface {
	Put(ctx context.Context, localPath, remoteKey string) error
}

// Config is the subset of agentconfig.Config a sink needs to construct itself.
type Config struct {
	Enabled  bool
	Type     string
	Bucket   string
	Endpoint string
}

// New selects and constructs a Sink by cfg.Type. With Enabled=false it
// returns (nil, nil) without logging; an unrecognized type logs a warning
// and returns (nil, nil). Either way there is no upload sink and no error —
// the local snapshot still stands on its own.
func New(ctx context.Context, cfg Config) (Sink, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	switch cfg.Type {
	case "s3", "":
		return newS3Sink(ctx, cfg)
	case "gcs":
		return newGCSSink(ctx, cfg)
	default:
		klog.Warningf("unrecognized backup store type %q, snapshots will not be uploaded", cfg.Type)
		return nil, nil
	}
}
