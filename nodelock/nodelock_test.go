package nodelock

import (
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestExtractSIdempotency(t *testing.T) {
	seed := time.Now().UTC().UnixNano()
	rng := rand.New(rand.NewSource(seed))
	for i := 0; i < 100; i++ {
		state := rng.Uint64()
		val := rng.Uint64() & maxHolders

		newState := setS(state, val)
		assert.Equal(t, val, extractS(newState), "expected %016x; got %016x", val, extractS(newState))
		assert.Equal(t, extractX(state), extractX(newState), "X bits must be untouched by setS")
	}
}

func TestExtractXIdempotency(t *testing.T) {
	seed := time.Now().UTC().UnixNano()
	rng := rand.New(rand.NewSource(seed))
	for i := 0; i < 100; i++ {
		state := rng.Uint64()
		val := rng.Uint64() & maxHolders

		newState := setX(state, val)
		assert.Equal(t, val, extractX(newState), "expected %016x; got %016x", val, extractX(newState))
		assert.Equal(t, extractS(state), extractS(newState), "S bits must be untouched by setX")
	}
}

func TestRegisterX(t *testing.T) {
	var l *Lock

	// X -> X
	l = New()
	assert.True(t, l.registerX(), "failed to register X state from a nascent lock")
	assert.False(t, l.registerX(), "failed to ensure mutual writer exclusion")

	// X -> S
	l = New()
	assert.True(t, l.registerX())
	assert.False(t, l.registerS(), "S must not be compatible with a held X")
}

func TestRegisterS(t *testing.T) {
	var l *Lock

	// S -> X
	l = New()
	assert.True(t, l.registerS())
	assert.False(t, l.registerX(), "X must not be compatible with a held S")

	// S -> S
	l = New()
	assert.True(t, l.registerS())
	assert.True(t, l.registerS(), "multiple simultaneous S holders must be allowed")
}

// TestSLockBlocksForX exercises the slow (blocking) path: an XLock holder
// must delay every SLock request until it unlocks.
func TestSLockBlocksForX(t *testing.T) {
	l := New()
	l.XLock()

	acquired := make(chan struct{})
	go func() {
		l.SLock()
		close(acquired)
	}()

	select {
	case <-acquired:
		t.Fatal("SLock acquired while X was still held")
	case <-time.After(20 * time.Millisecond):
	}

	l.XUnlock()

	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("SLock never woke up after XUnlock")
	}
	l.SUnlock()
}

// TestXLockWaitsForAllReaders exercises the many-S-holders-then-one-X case,
// the shape lock-coupling relies on when a writer must wait on a node that
// several readers are mid-descent through.
func TestXLockWaitsForAllReaders(t *testing.T) {
	l := New()
	const readers = 8

	for i := 0; i < readers; i++ {
		l.SLock()
	}

	acquired := make(chan struct{})
	go func() {
		l.XLock()
		close(acquired)
	}()

	select {
	case <-acquired:
		t.Fatal("XLock acquired while readers were still held")
	case <-time.After(20 * time.Millisecond):
	}

	for i := 0; i < readers-1; i++ {
		l.SUnlock()
		select {
		case <-acquired:
			t.Fatalf("XLock acquired before the last reader released, iteration %d", i)
		case <-time.After(5 * time.Millisecond):
		}
	}
	l.SUnlock()

	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("XLock never woke up after the last SUnlock")
	}
	l.XUnlock()
}

// testNonDecreasing checks that a sequence of observations taken under a
// final exclusive lock never goes backwards, which is the signature of a
// linearization violation: a writer must have been interleaved with a
// sequence of readers and writers on an overlapping path without taking
// the lock in between.
func testNonDecreasing(t *testing.T, values []uint32) {
	for i := 1; i < len(values); i++ {
		assert.LessOrEqual(t, values[i-1], values[i], "observed a non-monotonic value at index %d", i)
	}
}

// TestConcurrentMixedWorkload simulates concurrent readers and writers on a
// chain of locks, mirroring how a lock-coupled descent holds one lock per
// tree level. locks[i] guards values[i] and (by convention of this test)
// every value at an index >= i.
func TestConcurrentMixedWorkload(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping stress test in -short mode")
	}

	const concurrency = 20
	const ops = 500
	const writeFrac = 20 // percent

	var locks [10]*Lock
	var values [10]uint32
	for i := range locks {
		locks[i] = New()
	}

	var wg sync.WaitGroup
	sem := make(chan struct{}, concurrency)

	for i := 0; i < ops; i++ {
		offset := rand.Intn(len(locks))
		write := rand.Intn(100) < writeFrac

		sem <- struct{}{}
		wg.Add(1)
		go func(offset int, write bool) {
			defer wg.Done()
			defer func() { <-sem }()

			if write {
				for i := 0; i <= offset; i++ {
					locks[i].XLock()
				}
				for i := offset; i < len(values); i++ {
					values[i]++
				}
				for i := offset; i >= 0; i-- {
					locks[i].XUnlock()
				}
			} else {
				for i := 0; i <= offset; i++ {
					locks[i].SLock()
				}
				for i := offset; i >= 0; i-- {
					locks[i].SUnlock()
				}
			}
		}(offset, write)
	}

	wg.Wait()

	locks[0].XLock()
	snapshot := append([]uint32(nil), values[:]...)
	locks[0].XUnlock()

	testNonDecreasing(t, snapshot)
}
