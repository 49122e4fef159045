/*
 * Copyright (c) 2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package clusterclient

import (
	"context"
	"testing"

	"gotest.tools/assert"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes/fake"
)

func newTestNode(name string) *corev1.Node {
	return &corev1.Node{
		ObjectMeta: metav1.ObjectMeta{
			Name:   name,
			Labels: map[string]string{"node-role.kubernetes.io/control-plane": ""},
			Annotations: map[string]string{
				"cupcake.ricardomolendijk.com/operation-id": "op1",
				"cupcake.ricardomolendijk.com/status":       "pending",
			},
		},
		Status: corev1.NodeStatus{
			Conditions: []corev1.NodeCondition{
				{Type: corev1.NodeReady, Status: corev1.ConditionTrue},
			},
		},
	}
}

func TestReadNode(t *testing.T) {
	clientset := fake.NewSimpleClientset(newTestNode("node-a"))
	c := NewFromClientset(clientset)

	view, err := c.ReadNode(context.Background(), "node-a")
	assert.NilError(t, err)
	assert.Equal(t, view.Annotations["cupcake.ricardomolendijk.com/operation-id"], "op1")
	assert.Equal(t, len(view.Conditions), 1)
}

func TestReadNodeMissing(t *testing.T) {
	clientset := fake.NewSimpleClientset()
	c := NewFromClientset(clientset)
	_, err := c.ReadNode(context.Background(), "node-missing")
	assert.Assert(t, err != nil)
}

func TestPatchNodeAnnotationPreservesOthers(t *testing.T) {
	clientset := fake.NewSimpleClientset(newTestNode("node-a"))
	c := NewFromClientset(clientset)

	err := c.PatchNodeAnnotation(context.Background(), "node-a", "cupcake.ricardomolendijk.com/status", "completed")
	assert.NilError(t, err)

	view, err := c.ReadNode(context.Background(), "node-a")
	assert.NilError(t, err)
	assert.Equal(t, view.Annotations["cupcake.ricardomolendijk.com/status"], "completed")
	assert.Equal(t, view.Annotations["cupcake.ricardomolendijk.com/operation-id"], "op1")
}

func TestConfigObjectCreateListDelete(t *testing.T) {
	clientset := fake.NewSimpleClientset()
	c := NewFromClientset(clientset)
	ctx := context.Background()

	cm := &corev1.ConfigMap{
		ObjectMeta: metav1.ObjectMeta{Name: "backup-req-1", Labels: map[string]string{"backup": "true"}},
		Data:       map[string]string{"node_name": "node-a", "operation_id": "op1", "snapshot_name": "snap1"},
	}
	assert.NilError(t, c.CreateConfigObject(ctx, "kube-system", cm))

	list, err := c.ListConfigObjects(ctx, "kube-system", "backup=true")
	assert.NilError(t, err)
	assert.Equal(t, len(list), 1)

	assert.NilError(t, c.DeleteConfigObject(ctx, "kube-system", "backup-req-1"))
	list, err = c.ListConfigObjects(ctx, "kube-system", "backup=true")
	assert.NilError(t, err)
	assert.Equal(t, len(list), 0)
}

func TestCreateConfigObjectReplacesOnCollision(t *testing.T) {
	clientset := fake.NewSimpleClientset()
	c := NewFromClientset(clientset)
	ctx := context.Background()

	first := &corev1.ConfigMap{
		ObjectMeta: metav1.ObjectMeta{Name: "backup-status-op1-node-a"},
		Data:       map[string]string{"message": "first"},
	}
	assert.NilError(t, c.CreateConfigObject(ctx, "kube-system", first))

	second := &corev1.ConfigMap{
		ObjectMeta: metav1.ObjectMeta{Name: "backup-status-op1-node-a"},
		Data:       map[string]string{"message": "second"},
	}
	assert.NilError(t, c.CreateConfigObject(ctx, "kube-system", second))

	got, err := clientset.CoreV1().ConfigMaps("kube-system").Get(ctx, "backup-status-op1-node-a", metav1.GetOptions{})
	assert.NilError(t, err)
	assert.Equal(t, got.Data["message"], "second")
}

func TestDeleteConfigObjectNotFoundIsNotAnError(t *testing.T) {
	clientset := fake.NewSimpleClientset()
	c := NewFromClientset(clientset)
	err := c.DeleteConfigObject(context.Background(), "kube-system", "does-not-exist")
	assert.NilError(t, err)
}
