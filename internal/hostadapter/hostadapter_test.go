/*
 * Copyright (c) 2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package hostadapter

import (
	"testing"

	"gotest.tools/assert"

	"github.com/AMD-AIG-AIMA/cupcake-agent/internal/agenterrors"
	"github.com/AMD-AIG-AIMA/cupcake-agent/internal/procrunner"
)

func TestAptSpecs(t *testing.T) {
	specs := aptSpecs([]PackageRef{{Name: "kubeadm", Version: "1.29.4"}})
	assert.Equal(t, specs[0], "kubeadm=1.29.4-00")
}

func TestYumSpecs(t *testing.T) {
	specs := yumSpecs([]PackageRef{{Name: "kubeadm", Version: "1.29.4"}})
	assert.Equal(t, specs[0], "kubeadm-1.29.4-0")
}

func TestDetectEtcdStoreDefault(t *testing.T) {
	store := DetectEtcdStore("")
	assert.Equal(t, store.Endpoints(), defaultEndpoint)
	certs := store.Certs()
	assert.Equal(t, certs.CA, etcdPKIDir+"/ca.crt")
}

func TestDetectEtcdStoreOverride(t *testing.T) {
	store := DetectEtcdStore("https://etcd.example.com:2379")
	assert.Equal(t, store.Endpoints(), "https://etcd.example.com:2379")
}

func TestDetectPackageManagerNoneOnPath(t *testing.T) {
	t.Setenv("PATH", t.TempDir())
	_, err := DetectPackageManager(procrunner.Runner{})
	assert.Assert(t, err != nil)
	assert.Equal(t, agenterrors.IsUnsupportedHost(err), true)
}

func TestDetectServiceManagerNoneOnPath(t *testing.T) {
	t.Setenv("PATH", t.TempDir())
	_, err := DetectServiceManager(procrunner.Runner{})
	assert.Assert(t, err != nil)
	assert.Equal(t, agenterrors.IsUnsupportedHost(err), true)
}
