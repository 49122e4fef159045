/*
 * Copyright (c) 2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

// Package clusterclient is the narrow facade over the cluster API: it
// reads/patches the agent's own node object, and does CRUD on
// configuration objects (plain ConfigMaps, per original_source/main.py's
// list_namespaced_config_map/create_namespaced_config_map calls — no CRD
// is needed for these).
package clusterclient

import (
	"context"
	"encoding/json"

	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/types"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"

	"github.com/AMD-AIG-AIMA/cupcake-agent/internal/agenterrors"
)

// NodeView is the subset of a node object the agent reads.
type NodeView struct {
	Labels      map[string]string
	Annotations map[string]string
	Conditions  []corev1.NodeCondition
}

// Client is the facade's public surface. Every method not accepting a
// context has one added internally; all are expected to be called with a
// bounded parent context by reconciler/steps callers.
type Client struct {
	clientset kubernetes.Interface
}

// New builds a Client preferring in-cluster service-account credentials and
// falling back to ambient kubeconfig, failing with ConfigError on neither —
// matching original_source/main.py's
// config.load_incluster_config()/config.load_kube_config() fallback chain.
func New(kubeconfigPath string) (*Client, error) {
	cfg, err := rest.InClusterConfig()
	if err != nil {
		if kubeconfigPath == "" {
			kubeconfigPath = clientcmd.RecommendedHomeFile
		}
		cfg, err = clientcmd.BuildConfigFromFlags("", kubeconfigPath)
		if err != nil {
			return nil, agenterrors.NewConfigError("no in-cluster credentials and no usable kubeconfig", err)
		}
	}

	clientset, err := kubernetes.NewForConfig(cfg)
	if err != nil {
		return nil, agenterrors.NewConfigError("building cluster clientset", err)
	}
	return &Client{clientset: clientset}, nil
}

// NewFromClientset wraps an existing clientset (the fake clientset in
// tests, or a caller-built one).
func NewFromClientset(clientset kubernetes.Interface) *Client {
	return &Client{clientset: clientset}
}

// ReadNode fetches the named node and projects it down to NodeView.
func (c *Client) ReadNode(ctx context.Context, name string) (NodeView, error) {
	node, err := c.clientset.CoreV1().Nodes().Get(ctx, name, metav1.GetOptions{})
	if err != nil {
		return NodeView{}, agenterrors.NewTransientAPIError("reading node "+name, err)
	}
	return NodeView{
		Labels:      node.Labels,
		Annotations: node.Annotations,
		Conditions:  node.Status.Conditions,
	}, nil
}

// PatchNodeAnnotation applies a JSON merge patch setting a single
// annotation key, leaving every other annotation (including the
// controller-written ones) untouched.
func (c *Client) PatchNodeAnnotation(ctx context.Context, name, key, value string) error {
	patch := map[string]any{
		"metadata": map[string]any{
			"annotations": map[string]string{key: value},
		},
	}
	body, err := json.Marshal(patch)
	if err != nil {
		return agenterrors.NewConfigError("marshaling annotation patch", err)
	}
	_, err = c.clientset.CoreV1().Nodes().Patch(ctx, name, types.MergePatchType, body, metav1.PatchOptions{})
	if err != nil {
		return agenterrors.NewTransientAPIError("patching node "+name+" annotation "+key, err)
	}
	return nil
}

// ListConfigObjects lists ConfigMaps in namespace matching labelSelector.
func (c *Client) ListConfigObjects(ctx context.Context, namespace, labelSelector string) ([]corev1.ConfigMap, error) {
	list, err := c.clientset.CoreV1().ConfigMaps(namespace).List(ctx, metav1.ListOptions{LabelSelector: labelSelector})
	if err != nil {
		return nil, agenterrors.NewTransientAPIError("listing config objects in "+namespace, err)
	}
	return list.Items, nil
}

// CreateConfigObject creates obj, or replaces it in place if a same-named
// object already exists — create-or-replace rather than surfacing the
// raw conflict to the caller.
func (c *Client) CreateConfigObject(ctx context.Context, namespace string, obj *corev1.ConfigMap) error {
	cm := obj.DeepCopy()
	cm.Namespace = namespace
	_, err := c.clientset.CoreV1().ConfigMaps(namespace).Create(ctx, cm, metav1.CreateOptions{})
	if err == nil {
		return nil
	}
	if !apierrors.IsAlreadyExists(err) {
		return agenterrors.NewTransientAPIError("creating config object "+obj.Name, err)
	}
	existing, getErr := c.clientset.CoreV1().ConfigMaps(namespace).Get(ctx, obj.Name, metav1.GetOptions{})
	if getErr != nil {
		return agenterrors.NewTransientAPIError("reloading config object "+obj.Name+" before replace", getErr)
	}
	cm.ResourceVersion = existing.ResourceVersion
	if _, err := c.clientset.CoreV1().ConfigMaps(namespace).Update(ctx, cm, metav1.UpdateOptions{}); err != nil {
		return agenterrors.NewTransientAPIError("replacing config object "+obj.Name, err)
	}
	return nil
}

// DeleteConfigObject deletes the named ConfigMap. Not-found is treated as
// success: the request was already consumed by a prior (possibly crashed)
// attempt.
func (c *Client) DeleteConfigObject(ctx context.Context, namespace, name string) error {
	err := c.clientset.CoreV1().ConfigMaps(namespace).Delete(ctx, name, metav1.DeleteOptions{})
	if err != nil && !apierrors.IsNotFound(err) {
		return agenterrors.NewTransientAPIError("deleting config object "+name, err)
	}
	return nil
}
