/*
 * Copyright (c) 2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

// Package opstore implements the durable on-disk operation directory:
// metadata.json, step-NN-<name> markers, and terminal markers, all written
// with fsync-before-rename so the .inprogress → .done transition survives a
// crash at any point.
package opstore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/AMD-AIG-AIMA/cupcake-agent/internal/agenterrors"
	"github.com/AMD-AIG-AIMA/cupcake-agent/internal/types"
)

const (
	metadataFile  = "metadata.json"
	failedFile    = "failed"
	completedFile = "completed"
	logsDir       = "logs"

	operationDirPrefix = "operation-"
)

// Store roots all operation directories under a single hostpath.
type Store struct {
	root string
}

// New roots a Store at root, creating it if necessary.
func New(root string) (*Store, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, agenterrors.NewConfigError("creating hostpath root "+root, err)
	}
	return &Store{root: root}, nil
}

// Dir is a single operation's on-disk directory, opened by Open.
type Dir struct {
	path string
}

func (d Dir) Path() string    { return d.path }
func (d Dir) LogsDir() string { return filepath.Join(d.path, logsDir) }

// Open returns the operation directory for id, creating it (and its logs
// subdirectory) if it does not already exist.
func (s *Store) Open(id string) (Dir, error) {
	dir := Dir{path: filepath.Join(s.root, operationDirPrefix+id)}
	if err := os.MkdirAll(dir.LogsDir(), 0o755); err != nil {
		return Dir{}, agenterrors.NewConfigError("creating operation directory for "+id, err)
	}
	return dir, nil
}

// WriteMetadata persists meta to metadata.json. Called once, at operation
// creation; metadata.json is immutable afterward.
func (s *Store) WriteMetadata(dir Dir, meta types.OperationMetadata) error {
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return agenterrors.NewConfigError("marshaling operation metadata", err)
	}
	return writeFileDurable(filepath.Join(dir.path, metadataFile), data)
}

// ReadMetadata loads the metadata.json previously written by WriteMetadata.
func (s *Store) ReadMetadata(dir Dir) (types.OperationMetadata, error) {
	var meta types.OperationMetadata
	data, err := os.ReadFile(filepath.Join(dir.path, metadataFile))
	if err != nil {
		return meta, agenterrors.NewConfigError("reading operation metadata", err)
	}
	if err := json.Unmarshal(data, &meta); err != nil {
		return meta, agenterrors.NewConfigError("parsing operation metadata", err)
	}
	return meta, nil
}

// MarkInProgress writes step-NN-<name>.inprogress, fsyncing the file and its
// parent directory before returning. A fresh marker is written even on a
// resumed, previously-interrupted step: the rename at Finish
// remains valid regardless of whether a stale .inprogress already existed.
func (s *Store) MarkInProgress(dir Dir, record types.StepInProgressRecord) (string, error) {
	path := stepPath(dir, record.Step, record.Name, "inprogress")
	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return "", agenterrors.NewConfigError("marshaling step record", err)
	}
	if err := writeFileDurable(path, data); err != nil {
		return "", err
	}
	return path, nil
}

// Finish atomically renames the step's .inprogress marker to .done.
func (s *Store) Finish(dir Dir, index int, name string) error {
	oldPath := stepPath(dir, index, name, "inprogress")
	newPath := stepPath(dir, index, name, "done")
	return renameDurable(oldPath, newPath, dir.path)
}

// IsDone reports whether step index/name already has a .done marker — the
// resume skip gate the executor checks before re-running a step.
func (s *Store) IsDone(dir Dir, index int, name string) bool {
	_, err := os.Stat(stepPath(dir, index, name, "done"))
	return err == nil
}

// MarkFailed writes the operation directory's terminal "failed" record.
func (s *Store) MarkFailed(dir Dir, record types.FailedRecord) error {
	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return agenterrors.NewConfigError("marshaling failed record", err)
	}
	return writeFileDurable(filepath.Join(dir.path, failedFile), data)
}

// MarkCompleted writes the operation directory's terminal "completed" record.
func (s *Store) MarkCompleted(dir Dir, record types.CompletedRecord) error {
	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return agenterrors.NewConfigError("marshaling completed record", err)
	}
	return writeFileDurable(filepath.Join(dir.path, completedFile), data)
}

// IsTerminal reports whether dir carries a completed or failed marker.
func (s *Store) IsTerminal(dir Dir) bool {
	if _, err := os.Stat(filepath.Join(dir.path, completedFile)); err == nil {
		return true
	}
	if _, err := os.Stat(filepath.Join(dir.path, failedFile)); err == nil {
		return true
	}
	return false
}

// ListIncomplete returns the operation ids under root that have neither a
// completed nor a failed marker — resume candidates on startup.
func (s *Store) ListIncomplete() ([]string, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, agenterrors.NewConfigError("listing hostpath root", err)
	}
	var ids []string
	for _, e := range entries {
		if !e.IsDir() || !strings.HasPrefix(e.Name(), operationDirPrefix) {
			continue
		}
		id := strings.TrimPrefix(e.Name(), operationDirPrefix)
		dir := Dir{path: filepath.Join(s.root, e.Name())}
		if !s.IsTerminal(dir) {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func stepPath(dir Dir, index int, name, suffix string) string {
	return filepath.Join(dir.path, fmt.Sprintf("step-%02d-%s.%s", index, name, suffix))
}

// writeFileDurable writes data to a temp file in path's directory, fsyncs
// it, renames it into place, then fsyncs the directory — the durable-write
// half of the "fsync the file and its parent directory before
// rename" requirement.
func writeFileDurable(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp := path + ".tmp-" + strconv.Itoa(os.Getpid())
	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return agenterrors.NewConfigError("opening "+tmp, err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmp)
		return agenterrors.NewConfigError("writing "+tmp, err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return agenterrors.NewConfigError("fsyncing "+tmp, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return agenterrors.NewConfigError("closing "+tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return agenterrors.NewConfigError("renaming "+tmp+" to "+path, err)
	}
	return fsyncDir(dir)
}

// renameDurable performs the atomic .inprogress → .done rename required by
// the crash-safety requirement, fsyncing parentDir afterward so the rename itself is durable.
func renameDurable(oldPath, newPath, parentDir string) error {
	if err := os.Rename(oldPath, newPath); err != nil {
		return agenterrors.NewConfigError("renaming "+oldPath+" to "+newPath, err)
	}
	return fsyncDir(parentDir)
}

func fsyncDir(dir string) error {
	f, err := os.Open(dir)
	if err != nil {
		return agenterrors.NewConfigError("opening directory "+dir+" for fsync", err)
	}
	defer f.Close()
	if err := f.Sync(); err != nil {
		return agenterrors.NewConfigError("fsyncing directory "+dir, err)
	}
	return nil
}
