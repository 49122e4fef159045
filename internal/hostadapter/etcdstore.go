/*
 * Copyright (c) 2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package hostadapter

import "os"

// CertPaths is the etcd client certificate material an EtcdStore adapter
// resolved.
type CertPaths struct {
	CA   string
	Cert string
	Key  string
}

// EtcdStore locates the local consensus store's endpoints and client
// certificate material. DetectEtcdStore never fails:
// both probe branches resolve to a usable default, matching
// original_source/main.py's _get_etcd_endpoints/_get_etcd_cert_paths.
type EtcdStore interface {
	Endpoints() string
	Certs() CertPaths
}

const (
	stackedManifestPath = "/etc/kubernetes/manifests/etcd.yaml"
	defaultEndpoint     = "https://127.0.0.1:2379"

	etcdPKIDir = "/etc/kubernetes/pki/etcd"
	kubePKIDir = "/etc/kubernetes/pki"
)

type etcdStore struct {
	endpoint string
	certs    CertPaths
}

func (e etcdStore) Endpoints() string { return e.endpoint }
func (e etcdStore) Certs() CertPaths  { return e.certs }

// DetectEtcdStore resolves endpoints and certs by probing for a stacked
// control-plane etcd instance first. endpointsOverride, when non-empty
// (the agent's ETCD_ENDPOINTS_OVERRIDE), takes precedence over both probe
// branches, since external-etcd discovery isn't implemented.
func DetectEtcdStore(endpointsOverride string) EtcdStore {
	endpoint := defaultEndpoint
	if endpointsOverride != "" {
		endpoint = endpointsOverride
	} else if fileExists(stackedManifestPath) {
		// Stacked etcd: co-located with the API server on 127.0.0.1.
		endpoint = defaultEndpoint
	}
	// TODO: external etcd discovery via kubeadm config is not implemented;
	// both branches currently resolve to the same loopback default.

	return etcdStore{
		endpoint: endpoint,
		certs:    detectCertPaths(),
	}
}

func detectCertPaths() CertPaths {
	if fileExists(etcdPKIDir + "/ca.crt") {
		return CertPaths{
			CA:   etcdPKIDir + "/ca.crt",
			Cert: etcdPKIDir + "/server.crt",
			Key:  etcdPKIDir + "/server.key",
		}
	}
	return CertPaths{
		CA:   etcdPKIDir + "/ca.crt",
		Cert: kubePKIDir + "/apiserver-etcd-client.crt",
		Key:  kubePKIDir + "/apiserver-etcd-client.key",
	}
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
