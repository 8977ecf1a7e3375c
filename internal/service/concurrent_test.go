package service_test

import (
	"sync"
	"sync/atomic"
	"testing"
)

// TestConcurrentSettlementPriceGuard simulates buyers settling against a
// shared price while checking their locked price under a mutex — the same
// guard the real OrderService gets from the row-level FOR UPDATE lock.  The
// race detector confirms the pattern is sound, and the invariant holds:
// every accepted order settled at exactly the price it locked.
func TestConcurrentSettlementPriceGuard(t *testing.T) {
	const buyers = 50
	const lockedPrice = int64(100)

	var (
		mu           sync.Mutex
		currentPrice = lockedPrice
		revenue      int64
		accepted     int64
		rejected     int64
		wg           sync.WaitGroup
	)

	for i := 0; i < buyers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()

			mu.Lock()
			defer mu.Unlock()

			// One buyer in the middle of the pack plays the evolution bot
			// and moves the price; later settlements must all reject.
			if n == buyers/2 {
				currentPrice = 110
			}

			if currentPrice != lockedPrice {
				atomic.AddInt64(&rejected, 1)
				return
			}
			atomic.AddInt64(&accepted, 1)
			revenue += lockedPrice
		}(i)
	}
	wg.Wait()

	if accepted+rejected != buyers {
		t.Errorf("accepted %d + rejected %d != %d buyers", accepted, rejected, buyers)
	}
	if rejected == 0 {
		t.Error("the price move should have rejected at least the mover's settlement")
	}
	if revenue != accepted*lockedPrice {
		t.Errorf("revenue %d != accepted %d × locked %d — an order settled at a stale price",
			revenue, accepted, lockedPrice)
	}
}

// TestConcurrentCompareAndSet verifies that with N writers racing the same
// expected value, exactly one compare-and-set succeeds — the guarantee the
// conditional UPDATE gives the evolution engine.
func TestConcurrentCompareAndSet(t *testing.T) {
	const workers = 20
	const expected = int64(100)

	var (
		mu    sync.Mutex
		value = expected
		wins  int64
		wg    sync.WaitGroup
	)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()

			proposed := expected + int64(n+1)*10

			mu.Lock()
			defer mu.Unlock()

			if value != expected {
				return // lost the race
			}
			value = proposed
			atomic.AddInt64(&wins, 1)
		}(i)
	}
	wg.Wait()

	if wins != 1 {
		t.Errorf("exactly 1 CAS should win, got %d", wins)
	}
	if value == expected {
		t.Error("value should have been updated by the winning CAS")
	}
}
