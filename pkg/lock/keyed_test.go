package lock_test

import (
	"sync"
	"testing"

	"github.com/sumitghosal/zaika/pkg/lock"
)

func TestKeyed_SerialisesSameKey(t *testing.T) {
	k := lock.NewKeyed()

	const n = 200
	counter := 0

	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			k.Do("user-1", func() {
				counter++ // data race here unless Do serialises
			})
		}()
	}
	wg.Wait()

	if counter != n {
		t.Errorf("expected %d increments, got %d", n, counter)
	}
}

func TestKeyed_IndependentKeys(t *testing.T) {
	k := lock.NewKeyed()

	k.Lock("a")
	done := make(chan struct{})
	go func() {
		// Must not block on a different key.
		k.Do("b", func() {})
		close(done)
	}()
	<-done
	k.Unlock("a")
}

func TestKeyed_EntriesEvicted(t *testing.T) {
	k := lock.NewKeyed()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			k.Do("user-1", func() {})
			k.Do("user-2", func() {})
		}()
	}
	wg.Wait()

	if got := k.Len(); got != 0 {
		t.Errorf("expected all entries evicted after release, got %d live", got)
	}
}
