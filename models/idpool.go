package models

import (
	"slices"
	"sync"
)

// IDPool hands out small positive ids. Released ids are handed out again,
// smallest first, before new ones are allocated.
type IDPool struct {
	mutex    sync.Mutex
	last     uint32
	released []uint32
}

// Acquire returns an id that is not in use.
func (p *IDPool) Acquire() uint32 {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	if len(p.released) != 0 {
		id := p.released[0]
		p.released = p.released[1:]
		return id
	}

	p.last++
	return p.last
}

// Release makes id available to Acquire again. Releasing an id that is not
// in use is a no-op.
func (p *IDPool) Release(id uint32) {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	if id == 0 || id > p.last {
		return
	}

	i, found := slices.BinarySearch(p.released, id)
	if found {
		return
	}
	p.released = slices.Insert(p.released, i, id)
}

// InUse returns the number of acquired ids.
func (p *IDPool) InUse() int {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	return int(p.last) - len(p.released)
}
