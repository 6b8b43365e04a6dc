package reframe

import (
	"errors"
	"sync"
	"testing"

	"gocv.io/x/gocv"
)

type countingDetector struct {
	mu      sync.Mutex
	detects int
	closed  bool
}

func (d *countingDetector) Detect(img gocv.Mat, topN int) ([]Object, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.detects++
	return nil, nil
}

func (d *countingDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	return nil
}

func TestPoolCreatesOneDetectorPerSlot(t *testing.T) {

	var created []*countingDetector

	pool, err := NewPool(3, func() (Detector, error) {
		d := &countingDetector{}
		created = append(created, d)
		return d, nil
	})
	if err != nil {
		t.Fatalf("NewPool failed: %v", err)
	}
	defer pool.Close()

	if len(created) != 3 {
		t.Errorf("expected 3 detectors created, got %d", len(created))
	}

	if pool.Size() != 3 {
		t.Errorf("expected pool size 3, got %d", pool.Size())
	}
}

func TestPoolGetReturnRoundtrip(t *testing.T) {

	pool, err := NewPool(2, func() (Detector, error) {
		return &countingDetector{}, nil
	})
	if err != nil {
		t.Fatalf("NewPool failed: %v", err)
	}
	defer pool.Close()

	a := pool.Get()
	b := pool.Get()

	if a == b {
		t.Error("expected distinct detector instances")
	}

	pool.Return(a)
	pool.Return(b)

	// returned detectors become available again
	c := pool.Get()

	if c != a && c != b {
		t.Error("expected a previously returned detector")
	}

	pool.Return(c)
}

func TestPoolCloseClosesAllDetectors(t *testing.T) {

	var created []*countingDetector

	pool, err := NewPool(2, func() (Detector, error) {
		d := &countingDetector{}
		created = append(created, d)
		return d, nil
	})
	if err != nil {
		t.Fatalf("NewPool failed: %v", err)
	}

	pool.Close()

	for i, d := range created {
		if !d.closed {
			t.Errorf("detector %d not closed", i)
		}
	}

	// a second close is a no-op
	pool.Close()
}

func TestPoolFactoryError(t *testing.T) {

	wantErr := errors.New("model missing")

	calls := 0

	_, err := NewPool(2, func() (Detector, error) {
		calls++
		if calls == 2 {
			return nil, wantErr
		}
		return &countingDetector{}, nil
	})

	if !errors.Is(err, wantErr) {
		t.Errorf("expected factory error to propagate, got %v", err)
	}
}
