package workspace

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	cerrors "github.com/sfuhrm/capsula/pkg/errors"
)

const stateSuffix = "-build.state.json"

// Status values of a retained working directory.
const (
	StatusComplete = "complete"
	StatusFailed   = "failed"
)

// State records a working directory that was kept for inspection.
type State struct {
	Timestamp     time.Time `json:"timestamp"`
	Target        string    `json:"target"`
	Status        string    `json:"status"`
	Stage         string    `json:"stage,omitempty"`
	CommandID     string    `json:"command_id,omitempty"`
	Error         string    `json:"error,omitempty"`
	WorkingDir    string    `json:"working_dir"`
	LayoutDir     string    `json:"layout_dir"`
	ExpandedFiles []string  `json:"expanded_files,omitempty"`
}

// StateFileName is the state marker name of target below the build root.
func StateFileName(target string) string {
	return target + stateSuffix
}

// MarkComplete records a retained working directory of a successful build.
func MarkComplete(buildRoot string, state State) error {
	state.Status = StatusComplete
	state.Error = ""
	return writeState(buildRoot, state)
}

// MarkFailed records a retained working directory of a failed build.
func MarkFailed(buildRoot string, state State, reason error) error {
	state.Status = StatusFailed
	if reason != nil {
		state.Error = reason.Error()
	}
	return writeState(buildRoot, state)
}

func writeState(buildRoot string, state State) error {
	if state.Timestamp.IsZero() {
		state.Timestamp = time.Now().UTC()
	}
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal state of %s: %w", state.Target, err)
	}
	path := filepath.Join(buildRoot, StateFileName(state.Target))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return cerrors.IOf(err, "write %s", path)
	}
	return nil
}

// ReadState loads the state marker of target.
func ReadState(buildRoot, target string) (*State, error) {
	path := filepath.Join(buildRoot, StateFileName(target))
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: state of %s in %s", cerrors.ErrNotFound, target, buildRoot)
		}
		return nil, cerrors.IOf(err, "read %s", path)
	}
	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, cerrors.Configf("parse %s: %v", path, err)
	}
	return &state, nil
}

// Retained lists the state markers below buildRoot whose working directory
// still exists, sorted by target.
func Retained(buildRoot string) ([]State, error) {
	entries, err := os.ReadDir(buildRoot)
	if err != nil {
		return nil, cerrors.IOf(err, "list %s", buildRoot)
	}

	var states []State
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, stateSuffix) {
			continue
		}
		state, err := ReadState(buildRoot, strings.TrimSuffix(name, stateSuffix))
		if err != nil {
			return nil, err
		}
		if info, err := os.Stat(state.WorkingDir); err != nil || !info.IsDir() {
			continue
		}
		states = append(states, *state)
	}
	sort.Slice(states, func(i, j int) bool { return states[i].Target < states[j].Target })
	return states, nil
}
