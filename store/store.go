// Package store implements the concurrent, lock-coupled binary search tree
// at the core of the system: a single in-memory ordered map from byte-string
// names to byte-string values, safe for many concurrent readers and writers.
//
// Every operation descends from a permanent sentinel root, acquiring and
// releasing nodelock.Lock values hand-over-hand (lock-coupling): a
// descending goroutine holds at most the current node's lock and the child
// it is about to step onto, and it only ever acquires locks root-to-leaf,
// which is what rules out lock-order deadlocks (see the package doc of
// nodelock for the two states involved).
package store

import (
	"bytes"
)

// AddOutcome reports whether Add inserted a new entry or found one already
// present.
type AddOutcome int

const (
	Added AddOutcome = iota
	AlreadyPresent
)

// DeleteOutcome reports whether Delete actually removed an entry.
type DeleteOutcome int

const (
	Removed DeleteOutcome = iota
	Absent
)

// Store is the tree itself, rooted at a permanent sentinel node. The zero
// value is not usable; construct one with New.
type Store struct {
	root *node
}

// New returns an empty Store: just the sentinel, with no real keys.
func New() *Store {
	return &Store{root: newSentinel()}
}

// searchRead descends from the sentinel acquiring shared locks, the
// read-only variant of the lock-coupling search used by Query.
//
// On return, parent's lock is always held. If target is non-nil, its lock
// is held too. The caller is responsible for releasing whatever is held.
func (s *Store) searchRead(name []byte) (target, parent *node) {
	parent = s.root
	parent.lock.SLock()

	for {
		var child *node
		if bytes.Compare(name, parent.name) < 0 {
			child = parent.left
		} else {
			child = parent.right
		}

		if child == nil {
			return nil, parent
		}

		child.lock.SLock()
		if bytes.Equal(child.name, name) {
			return child, parent
		}

		parent.lock.SUnlock()
		parent = child
	}
}

// searchWrite is the WriteSearch variant: identical shape to searchRead but
// acquiring exclusive locks, used by Add and Delete.
func (s *Store) searchWrite(name []byte) (target, parent *node) {
	parent = s.root
	parent.lock.XLock()

	for {
		var child *node
		if bytes.Compare(name, parent.name) < 0 {
			child = parent.left
		} else {
			child = parent.right
		}

		if child == nil {
			return nil, parent
		}

		child.lock.XLock()
		if bytes.Equal(child.name, name) {
			return child, parent
		}

		parent.lock.XUnlock()
		parent = child
	}
}

// Query looks up name and returns a copy of its bound value. The returned
// bool reports whether name was present. Query never blocks behind other
// concurrent queries; it may wait on a writer descending through an
// overlapping path prefix.
func (s *Store) Query(name []byte) (value []byte, found bool) {
	target, parent := s.searchRead(name)
	if target == nil {
		parent.lock.SUnlock()
		return nil, false
	}

	value = append([]byte(nil), target.value...)
	target.lock.SUnlock()
	parent.lock.SUnlock()
	return value, true
}

// Add inserts name/value if name is not already present. It never
// overwrites an existing entry; call Delete first if that is the intent.
func (s *Store) Add(name, value []byte) (AddOutcome, error) {
	target, parent := s.searchWrite(name)
	if target != nil {
		target.lock.XUnlock()
		parent.lock.XUnlock()
		return AlreadyPresent, nil
	}

	n, err := newNode(name, value)
	if err != nil {
		parent.lock.XUnlock()
		return 0, err
	}

	if bytes.Compare(name, parent.name) < 0 {
		parent.left = n
	} else {
		parent.right = n
	}
	parent.lock.XUnlock()
	return Added, nil
}

// Delete removes name from the tree if present.
func (s *Store) Delete(name []byte) DeleteOutcome {
	target, parent := s.searchWrite(name)
	if target == nil {
		parent.lock.XUnlock()
		return Absent
	}

	switch {
	case target.right == nil:
		// No right child (this also covers the no-children case): the
		// parent's slot for target is replaced by target's left child.
		if bytes.Compare(target.name, parent.name) < 0 {
			parent.left = target.left
		} else {
			parent.right = target.left
		}
		parent.lock.XUnlock()
		target.lock.XUnlock()

	case target.left == nil:
		// Symmetric: no left child, so the parent's slot becomes target's
		// right child.
		if bytes.Compare(target.name, parent.name) < 0 {
			parent.left = target.right
		} else {
			parent.right = target.right
		}
		parent.lock.XUnlock()
		target.lock.XUnlock()

	default:
		s.deleteTwoChildren(parent, target)
	}

	return Removed
}

// deleteTwoChildren implements the in-order-successor swap: target has two
// children, so its contents are swapped with its in-order successor (the
// leftmost node of its right subtree), and the successor - which by
// construction has no left child - is unlinked in its place.
//
// The entire successor descent uses write locks (no read-then-upgrade
// step): target's lock is the anchor held for the whole descent;
// every other node visited along the way is released once the lock two
// levels below it is acquired, so the successor and its parent both stay
// locked until the unlink is complete.
func (s *Store) deleteTwoChildren(parent, target *node) {
	cur := target
	next := target.right
	next.lock.XLock()

	for next.left != nil {
		prev := cur
		cur = next
		next = next.left
		next.lock.XLock()
		if prev != target {
			prev.lock.XUnlock()
		}
	}

	succ := next
	succParent := cur

	// Swap string contents (slice headers, not bytes) so that an
	// allocation of a different length never needs a copy-in-place.
	target.name, succ.name = succ.name, target.name
	target.value, succ.value = succ.value, target.value

	if succParent == target {
		target.right = succ.right
	} else {
		succParent.left = succ.right
	}

	succ.lock.XUnlock()
	if succParent != target {
		succParent.lock.XUnlock()
	}
	target.lock.XUnlock()
	parent.lock.XUnlock()
}
