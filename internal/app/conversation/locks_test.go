package conversation

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSessionLocksAreReleased(t *testing.T) {
	l := newSessionLocks()

	var (
		wg      sync.WaitGroup
		counter int
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := l.Lock("s1")
			counter++
			unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, counter)
	assert.Zero(t, l.len())
}

func TestSessionLocksAreIndependent(t *testing.T) {
	l := newSessionLocks()

	unlockA := l.Lock("a")
	unlockB := l.Lock("b") // must not block on "a"
	assert.Equal(t, 2, l.len())

	unlockB()
	unlockA()
	assert.Zero(t, l.len())
}
