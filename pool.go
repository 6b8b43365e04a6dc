package reframe

import (
	"sync"
)

// Pool is a simple pool of detector instances so keyframes can be analysed
// in parallel, one detector per concurrent worker
type Pool struct {
	// pool of detectors
	detectors chan Detector
	// size of pool
	size  int
	close sync.Once
}

// NewPool creates a detector pool of the given size.  The factory is called
// once per slot, if any call fails detectors created so far are closed and
// the error returned.
func NewPool(size int, factory func() (Detector, error)) (*Pool, error) {

	p := &Pool{
		detectors: make(chan Detector, size),
		size:      size,
	}

	for i := 0; i < size; i++ {
		det, err := factory()

		if err != nil {
			// close any instances that may have been created before
			// receiving the error
			p.Close()
			return nil, err
		}

		// attach to pool
		p.Return(det)
	}

	return p, nil
}

// Get a detector from the pool, blocking until one is available
func (p *Pool) Get() Detector {
	return <-p.detectors
}

// Return a detector to the pool
func (p *Pool) Return(det Detector) {
	select {
	case p.detectors <- det:
	default:
		// pool is full or closed
	}
}

// Size returns the number of slots in the pool
func (p *Pool) Size() int {
	return p.size
}

// Close the pool and all detectors in it
func (p *Pool) Close() {
	p.close.Do(func() {
		close(p.detectors)

		for next := range p.detectors {
			_ = next.Close()
		}
	})
}
