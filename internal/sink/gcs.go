/*
 * Copyright (c) 2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package sink

import (
	"context"
	"os"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"github.com/AMD-AIG-AIMA/cupcake-agent/internal/agenterrors"
)

// gcsSink is the cloud.google.com/go/storage analogue of s3Sink. No pack
// example wires GCS object storage directly, but zicongmei-gke-mcp
// establishes cloud.google.com/go/*+google.golang.org/api as the in-corpus
// idiom for GCP clients, and "gcs" is a supported backup store type
// alongside "s3".
type gcsSink struct {
	client *storage.Client
	bucket string
}

// newGCSSink builds a client for cfg, honoring GOOGLE_APPLICATION_CREDENTIALS
// explicitly via option.WithCredentialsFile when set, falling back to
// storage.NewClient's own application-default-credentials discovery.
func newGCSSink(ctx context.Context, cfg Config) (*gcsSink, error) {
	var opts []option.ClientOption
	if credsFile := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"); credsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credsFile))
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, agenterrors.NewConfigError("creating gcs client", err)
	}
	return &gcsSink{client: client, bucket: cfg.Bucket}, nil
}

func (g *gcsSink) Put(ctx context.Context, localPath, remoteKey string) error {
	f, err := os.Open(localPath)
	if err != nil {
		return agenterrors.NewUploadError("opening "+localPath, err)
	}
	defer f.Close()

	w := g.client.Bucket(g.bucket).Object(remoteKey).NewWriter(ctx)
	if _, err := w.ReadFrom(f); err != nil {
		_ = w.Close()
		return agenterrors.NewUploadError("uploading "+localPath+" to gcs://"+g.bucket+"/"+remoteKey, err)
	}
	if err := w.Close(); err != nil {
		return agenterrors.NewUploadError("closing gcs writer for "+remoteKey, err)
	}
	return nil
}
