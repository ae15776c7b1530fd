package statesync

import (
	"errors"
	"fmt"
	"strconv"
)

var ErrBadPath = errors.New("path does not resolve")

// ApplyTo mirrors the client-side delta application. The delta only applies
// cleanly on top of the version it was diffed against; anything else is the
// desync case and the caller should fetch a full snapshot.
func (d Delta) ApplyTo(tree map[string]any, localVersion int) (map[string]any, error) {
	if d.PreviousVersion != localVersion {
		return nil, ErrVersionMismatch
	}
	var node any = tree
	for _, c := range d.Changes {
		next, err := applyChange(node, splitPath(c.Path), c)
		if err != nil {
			return nil, fmt.Errorf("apply %s %q: %w", c.Op, c.Path, err)
		}
		node = next
	}
	out, ok := node.(map[string]any)
	if !ok {
		return nil, ErrBadPath
	}
	return out, nil
}

// applyChange walks to the addressed node and performs the op, returning
// the (possibly replaced) node so slice replacements propagate upward.
func applyChange(node any, segs []string, c Change) (any, error) {
	if len(segs) == 0 {
		return applyHere(node, c)
	}

	seg := segs[0]
	switch n := node.(type) {
	case map[string]any:
		if len(segs) == 1 && c.Op == OpSet {
			n[seg] = c.Value
			return n, nil
		}
		if len(segs) == 1 && c.Op == OpDelete {
			delete(n, seg)
			return n, nil
		}
		child, ok := n[seg]
		if !ok {
			return nil, ErrBadPath
		}
		next, err := applyChange(child, segs[1:], c)
		if err != nil {
			return nil, err
		}
		n[seg] = next
		return n, nil

	case []any:
		i, err := strconv.Atoi(seg)
		if err != nil || i < 0 || i >= len(n) {
			return nil, ErrBadPath
		}
		if len(segs) == 1 && c.Op == OpSet {
			n[i] = c.Value
			return n, nil
		}
		next, err := applyChange(n[i], segs[1:], c)
		if err != nil {
			return nil, err
		}
		n[i] = next
		return n, nil

	default:
		return nil, ErrBadPath
	}
}

// applyHere handles ops addressed at the node itself (push/splice target
// the array, not an element).
func applyHere(node any, c Change) (any, error) {
	switch c.Op {
	case OpPush:
		arr, ok := asArray(node)
		if !ok {
			return nil, ErrBadPath
		}
		return append(arr, c.Value), nil

	case OpSplice:
		arr, ok := asArray(node)
		if !ok {
			return nil, ErrBadPath
		}
		if c.Index < 0 || c.Index > len(arr) || c.Index+c.DeleteCount > len(arr) {
			return nil, ErrBadPath
		}
		out := make([]any, 0, len(arr)-c.DeleteCount+len(c.Items))
		out = append(out, arr[:c.Index]...)
		out = append(out, c.Items...)
		out = append(out, arr[c.Index+c.DeleteCount:]...)
		return out, nil

	default:
		return nil, ErrBadPath
	}
}

// asArray accepts a real array or JSON null standing in for an empty one.
func asArray(node any) ([]any, bool) {
	if node == nil {
		return []any{}, true
	}
	arr, ok := node.([]any)
	return arr, ok
}
