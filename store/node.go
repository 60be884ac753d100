package store

import (
	"github.com/pkg/errors"

	"github.com/nbtaylor/concurrentkv/nodelock"
)

// maxEntryBytes bounds the combined size of a name and a value accepted by
// Add. Go's allocator does not expose a recoverable "out of memory" signal
// the way the original C implementation's malloc did, so this cap is the
// stand-in for a resource-exhaustion error: a caller that hits it gets
// ErrAllocation back instead of an unbounded allocation.
const maxEntryBytes = 1 << 20 // 1 MiB

// ErrAllocation reports that a new node could not be created. It mirrors
// the "allocation failure during add" path of the original node_create:
// the insert is aborted and the tree is left unchanged.
var ErrAllocation = errors.New("store: allocation failed")

// node is one entry in the tree: a name, a value, two children, and the
// per-node lock that lock-coupling acquires while descending through it.
//
// A node's name is immutable once inserted, except during the two-child
// delete case, where its name and value are swapped (by reference, not by
// copying bytes) with its in-order successor.
type node struct {
	name  []byte
	value []byte
	left  *node
	right *node
	lock  *nodelock.Lock
}

// newNode allocates a node with no children. It returns ErrAllocation
// (never a panic) if name and value together exceed maxEntryBytes, the
// only way this implementation can reject an insert for size reasons.
func newNode(name, value []byte) (*node, error) {
	if len(name)+len(value) > maxEntryBytes {
		return nil, ErrAllocation
	}
	n := &node{
		name:  append([]byte(nil), name...),
		value: append([]byte(nil), value...),
		lock:  nodelock.New(),
	}
	return n, nil
}

// newSentinel builds the permanent root node described in the data model:
// its name is the empty string, so every real key compares strictly
// greater than it and its left child is never populated.
func newSentinel() *node {
	return &node{
		name:  []byte{},
		value: nil,
		lock:  nodelock.New(),
	}
}
