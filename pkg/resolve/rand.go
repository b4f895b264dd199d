package resolve

import (
	"math/rand"
	"sync"
	"time"
)

// randSource is a package-level source: each call goes through a
// rand.Rand guarded by its own mutex, since math/rand's
// global functions are fine but a dedicated source keeps $randomInt
// independent of anything else in the process that might seed math/rand.
var randSource = newLockedRand()

type lockedRand struct {
	mu  sync.Mutex
	src *rand.Rand
}

func newLockedRand() *lockedRand {
	return &lockedRand{src: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

func (l *lockedRand) Intn(n int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.src.Intn(n)
}
