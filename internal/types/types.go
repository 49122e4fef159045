/*
 * Copyright (c) 2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

// Package types holds the value types shared across the agent's components:
// operation metadata, step state, and the ConfigMap-carried snapshot
// request/status records.
package types

import "time"

// Role is the node role derived from node labels at plan time.
type Role string

const (
	RoleControlPlane Role = "control_plane"
	RoleWorker       Role = "worker"
)

// Component toggles an optional upgrade step.
type Component string

const (
	ComponentContainerd Component = "containerd"
)

// StepState is one of the states a Step's durable marker can be in.
type StepState string

const (
	StepAbsent     StepState = "absent"
	StepInProgress StepState = "inprogress"
	StepDone       StepState = "done"
	StepFailed     StepState = "failed"
)

// OperationMetadata is the immutable (after creation) record written to
// metadata.json at the root of an operation directory.
type OperationMetadata struct {
	OperationID   string    `json:"operation_id"`
	TargetVersion string    `json:"target_version"`
	Components    []string  `json:"components"`
	NodeName      string    `json:"node_name"`
	Role          Role      `json:"role"`
	StartedAt     time.Time `json:"started_at"`
}

// HasComponent reports whether c was requested on the operation.
func (m OperationMetadata) HasComponent(c Component) bool {
	for _, got := range m.Components {
		if got == string(c) {
			return true
		}
	}
	return false
}

// StepInProgressRecord is the JSON body of a step-NN-<name>.inprogress file.
type StepInProgressRecord struct {
	Step      int       `json:"step"`
	Name      string    `json:"name"`
	StartedAt time.Time `json:"started_at"`
}

// FailedRecord is the JSON body of an operation directory's failed file.
type FailedRecord struct {
	Step     int       `json:"step"`
	Name     string    `json:"name"`
	Error    string    `json:"error"`
	FailedAt time.Time `json:"failed_at"`
}

// CompletedRecord is the JSON body of an operation directory's completed file.
type CompletedRecord struct {
	CompletedAt time.Time `json:"completed_at"`
	NodeName    string    `json:"node_name"`
}

// SnapshotRequest is parsed from a labeled ConfigMap's data fields.
type SnapshotRequest struct {
	ConfigMapName string
	NodeName      string
	OperationID   string
	SnapshotName  string
}

// SnapshotStatus is written back to a status ConfigMap after a snapshot
// attempt completes, successfully or not.
type SnapshotStatus struct {
	Completed    bool      `json:"completed"`
	Success      bool      `json:"success"`
	Message      string    `json:"message"`
	SnapshotName string    `json:"snapshot_name"`
	Timestamp    time.Time `json:"timestamp"`
}

// Annotation keys written/read on the agent's own node object. Prefix is
// the fixed domain-scoped annotation namespace.
const (
	AnnotationPrefix        = "cupcake.ricardomolendijk.com"
	AnnotationOperationID   = AnnotationPrefix + "/operation-id"
	AnnotationStatus        = AnnotationPrefix + "/status"
	AnnotationTargetVersion = AnnotationPrefix + "/target-version"
	AnnotationComponents    = AnnotationPrefix + "/components"

	LabelBackup = AnnotationPrefix + "/backup"
)

// Status values for AnnotationStatus.
const (
	StatusPending   = "pending"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

const (
	NodeRoleControlPlaneLabel = "node-role.kubernetes.io/control-plane"
	NodeRoleMasterLabel       = "node-role.kubernetes.io/master"
)
