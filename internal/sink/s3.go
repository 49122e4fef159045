/*
 * Copyright (c) 2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package sink

import (
	"context"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/AMD-AIG-AIMA/cupcake-agent/internal/agenterrors"
)

// s3Sink ports Lens's S3Storage client construction (endpoint resolver,
// path-style toggle, static credentials) down to the single Put operation
// the snapshot flow needs.
type s3Sink struct {
	client *s3.Client
	bucket string
}

// newS3Sink builds a client for cfg, honoring an optional endpoint override
// for MinIO/ceph-compatible stores via path-style addressing.
func newS3Sink(ctx context.Context, cfg Config) (*s3Sink, error) {
	var opts []awsconfig.LoadOptionsFunc
	if accessKey := os.Getenv("AWS_ACCESS_KEY_ID"); accessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			accessKey, os.Getenv("AWS_SECRET_ACCESS_KEY"), "",
		)))
	}
	if cfg.Endpoint != "" {
		resolver := aws.EndpointResolverWithOptionsFunc(func(service, region string, options ...interface{}) (aws.Endpoint, error) {
			return aws.Endpoint{URL: cfg.Endpoint, HostnameImmutable: true}, nil
		})
		opts = append(opts, awsconfig.WithEndpointResolverWithOptions(resolver))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, agenterrors.NewConfigError("loading aws config for s3 sink", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.Endpoint != ""
	})

	return &s3Sink{client: client, bucket: cfg.Bucket}, nil
}

func (s *s3Sink) Put(ctx context.Context, localPath, remoteKey string) error {
	f, err := os.Open(localPath)
	if err != nil {
		return agenterrors.NewUploadError("opening "+localPath, err)
	}
	defer f.Close()

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(remoteKey),
		Body:   f,
	})
	if err != nil {
		return agenterrors.NewUploadError("uploading "+localPath+" to s3://"+s.bucket+"/"+remoteKey, err)
	}
	return nil
}
