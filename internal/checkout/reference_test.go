package checkout

import (
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestReferenceGeneratorIsMonotonicWithinOneMillisecond(t *testing.T) {
	fixed := time.UnixMilli(1718000000000)
	gen := newReferenceGenerator(func() time.Time { return fixed })

	assert.Equal(t, "1718000000000", gen.next())
	assert.Equal(t, "1718000000001", gen.next())
	assert.Equal(t, "1718000000002", gen.next())
}

func TestReferenceGeneratorConcurrentUnique(t *testing.T) {
	gen := newReferenceGenerator(nil)

	const n = 200
	var mu sync.Mutex
	seen := make(map[string]struct{}, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ref := gen.next()
			_, err := strconv.ParseInt(ref, 10, 64)
			assert.NoError(t, err)
			mu.Lock()
			seen[ref] = struct{}{}
			mu.Unlock()
		}()
	}
	wg.Wait()
	assert.Len(t, seen, n)
}

func TestKeyedMutexReleasesEntries(t *testing.T) {
	k := newKeyedMutex()

	release := k.Lock("a")
	assert.Equal(t, 1, k.size())

	acquired := make(chan struct{})
	go func() {
		r := k.Lock("a")
		close(acquired)
		r()
	}()

	select {
	case <-acquired:
		t.Fatal("second holder acquired a held key")
	case <-time.After(20 * time.Millisecond):
	}

	otherRelease := k.Lock("b")
	otherRelease()

	release()
	<-acquired
	assert.Eventually(t, func() bool { return k.size() == 0 }, time.Second, 5*time.Millisecond)
}
