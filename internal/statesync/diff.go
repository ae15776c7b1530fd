// Package statesync produces full snapshots and versioned deltas of the
// authoritative game state. A delta is a list of path-addressed operations
// over the JSON form of the state; clients apply it only when its
// previous_version matches their local version and fall back to requesting
// a full snapshot otherwise.
package statesync

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/DoyleJ11/tactics-backend/internal/game"
)

var ErrVersionMismatch = errors.New("delta previous version does not match local version")

const (
	OpSet    = "set"
	OpDelete = "delete"
	OpPush   = "push"
	OpSplice = "splice"
)

type Change struct {
	Op          string `json:"op"`
	Path        string `json:"path"`
	Value       any    `json:"value,omitempty"`
	Index       int    `json:"index,omitempty"`
	DeleteCount int    `json:"delete_count,omitempty"`
	Items       []any  `json:"items,omitempty"`
}

type Delta struct {
	Version         int      `json:"version"`
	PreviousVersion int      `json:"previous_version"`
	Changes         []Change `json:"changes"`
}

type Snapshot struct {
	Version    int             `json:"version"`
	State      *game.GameState `json:"state"`
	YourUnitID string          `json:"your_unit_id,omitempty"`
}

// Tree converts a state into its generic JSON form, the shape both Diff
// and clients operate on.
func Tree(s *game.GameState) (map[string]any, error) {
	raw, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("marshal state: %w", err)
	}
	var tree map[string]any
	if err := json.Unmarshal(raw, &tree); err != nil {
		return nil, fmt.Errorf("unmarshal state: %w", err)
	}
	return tree, nil
}

// Diff computes the operations that transform old into new.
func Diff(old, new *game.GameState, oldVersion, newVersion int) (Delta, error) {
	oldTree, err := Tree(old)
	if err != nil {
		return Delta{}, err
	}
	newTree, err := Tree(new)
	if err != nil {
		return Delta{}, err
	}

	d := Delta{Version: newVersion, PreviousVersion: oldVersion}
	diffMap("", oldTree, newTree, &d.Changes)
	return d, nil
}

func joinPath(base, seg string) string {
	if base == "" {
		return seg
	}
	return base + "." + seg
}

func diffValue(path string, a, b any, out *[]Change) {
	if reflect.DeepEqual(a, b) {
		return
	}
	am, aIsMap := a.(map[string]any)
	bm, bIsMap := b.(map[string]any)
	if aIsMap && bIsMap {
		diffMap(path, am, bm, out)
		return
	}
	as, aIsSlice := a.([]any)
	bs, bIsSlice := b.([]any)
	// A nil slice marshals as null; diff it as an empty list so appends to
	// empty collections still come out as pushes.
	if a == nil && bIsSlice {
		as, aIsSlice = []any{}, true
	}
	if b == nil && aIsSlice {
		bs, bIsSlice = []any{}, true
	}
	if aIsSlice && bIsSlice {
		diffSlice(path, as, bs, out)
		return
	}
	*out = append(*out, Change{Op: OpSet, Path: path, Value: b})
}

func diffMap(path string, a, b map[string]any, out *[]Change) {
	for k := range a {
		if _, ok := b[k]; !ok {
			*out = append(*out, Change{Op: OpDelete, Path: joinPath(path, k)})
		}
	}
	for k, bv := range b {
		av, ok := a[k]
		if !ok {
			*out = append(*out, Change{Op: OpSet, Path: joinPath(path, k), Value: bv})
			continue
		}
		diffValue(joinPath(path, k), av, bv, out)
	}
}

func diffSlice(path string, a, b []any, out *[]Change) {
	if len(a) == len(b) {
		for i := range a {
			diffValue(joinPath(path, fmt.Sprintf("%d", i)), a[i], b[i], out)
		}
		return
	}

	// Pure append becomes push ops, anything else collapses into a single
	// splice from the first divergent index.
	if len(b) > len(a) && slicePrefixEqual(a, b) {
		for _, item := range b[len(a):] {
			*out = append(*out, Change{Op: OpPush, Path: path, Value: item})
		}
		return
	}

	i := 0
	for i < len(a) && i < len(b) && reflect.DeepEqual(a[i], b[i]) {
		i++
	}
	items := make([]any, len(b)-i)
	copy(items, b[i:])
	*out = append(*out, Change{
		Op:          OpSplice,
		Path:        path,
		Index:       i,
		DeleteCount: len(a) - i,
		Items:       items,
	})
}

func slicePrefixEqual(a, b []any) bool {
	for i := range a {
		if !reflect.DeepEqual(a[i], b[i]) {
			return false
		}
	}
	return true
}

// splitPath breaks "units.0.position" into segments.
func splitPath(path string) []string {
	if path == "" {
		return nil
	}
	return strings.Split(path, ".")
}
