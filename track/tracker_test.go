package track

import (
	"testing"

	"github.com/IORoot/reframer"
)

func det(x, y float64) reframe.Object {
	return reframe.NewObject(reframe.NewRect(x, y, 100, 200), "person", 0, 0.9)
}

func TestTrackerAssignsStableIDs(t *testing.T) {
	tr := NewCentroidTracker(30, 50)

	first := tr.Update([]reframe.Object{det(100, 100)})

	if len(first) != 1 {
		t.Fatalf("expected 1 tracked object, got %d", len(first))
	}

	if first[0].TrackID != 1 {
		t.Errorf("expected track ID 1, got %d", first[0].TrackID)
	}

	// small movement keeps the same identity
	second := tr.Update([]reframe.Object{det(120, 110)})

	if second[0].TrackID != 1 {
		t.Errorf("expected track ID 1 after small movement, got %d", second[0].TrackID)
	}
}

func TestTrackerNewIDOnLargeJump(t *testing.T) {
	tr := NewCentroidTracker(30, 50)

	tr.Update([]reframe.Object{det(100, 100)})
	jumped := tr.Update([]reframe.Object{det(1000, 800)})

	if jumped[0].TrackID == 1 {
		t.Error("expected a new track ID after a jump beyond the match distance")
	}
}

func TestTrackerMatchesNearestOfSeveral(t *testing.T) {
	tr := NewCentroidTracker(30, 50)

	tr.Update([]reframe.Object{det(100, 100), det(500, 100)})

	// both move slightly, order reversed in the detection list
	updated := tr.Update([]reframe.Object{det(510, 105), det(105, 102)})

	if updated[0].TrackID != 2 {
		t.Errorf("expected right hand object to keep ID 2, got %d", updated[0].TrackID)
	}

	if updated[1].TrackID != 1 {
		t.Errorf("expected left hand object to keep ID 1, got %d", updated[1].TrackID)
	}
}

func TestTrackerDropsLostTracks(t *testing.T) {
	tr := NewCentroidTracker(2, 50)

	tr.Update([]reframe.Object{det(100, 100)})

	// miss more updates than the disappearance budget allows
	for i := 0; i < 3; i++ {
		tr.Update(nil)
	}

	if len(tr.Tracks()) != 0 {
		t.Fatalf("expected track to be dropped, still have %d", len(tr.Tracks()))
	}

	// the object returning gets a fresh identity
	back := tr.Update([]reframe.Object{det(100, 100)})

	if back[0].TrackID != 2 {
		t.Errorf("expected new track ID 2, got %d", back[0].TrackID)
	}
}

func TestTrackerSurvivesShortOcclusion(t *testing.T) {
	tr := NewCentroidTracker(3, 50)

	tr.Update([]reframe.Object{det(100, 100)})
	tr.Update(nil)
	tr.Update(nil)

	back := tr.Update([]reframe.Object{det(110, 100)})

	if back[0].TrackID != 1 {
		t.Errorf("expected track to survive short occlusion, got ID %d", back[0].TrackID)
	}
}

func TestTrackerReset(t *testing.T) {
	tr := NewCentroidTracker(30, 50)

	tr.Update([]reframe.Object{det(100, 100)})
	tr.Reset()

	if len(tr.Tracks()) != 0 {
		t.Fatal("expected no tracks after reset")
	}

	fresh := tr.Update([]reframe.Object{det(100, 100)})

	if fresh[0].TrackID != 1 {
		t.Errorf("expected ID numbering to restart at 1, got %d", fresh[0].TrackID)
	}
}
