// Package track assigns stable identities to detections across keyframes
// using greedy nearest centroid association.
package track

import (
	"math"

	"github.com/IORoot/reframer"
	"gonum.org/v1/gonum/mat"
)

// Track is one object identity followed across keyframes
type Track struct {
	// ID is the stable identity assigned to the object
	ID int64
	// Object is the most recent detection associated with this track
	Object reframe.Object
	// disappeared counts consecutive updates without a matching detection
	disappeared int
}

// CentroidTracker matches new detections against known tracks by centroid
// distance.  A track survives a bounded number of missed updates before it
// is considered lost and removed.
type CentroidTracker struct {
	// maxDisappeared is the number of updates an object can be missing
	// before being considered lost
	maxDisappeared int
	// maxDistance is the maximum centroid distance for re-identifying an
	// object, in pixels
	maxDistance float64
	// counter for assigning unique track IDs
	idCount int64
	// currently followed tracks
	tracks []*Track
}

// NewCentroidTracker initializes and returns a new CentroidTracker
func NewCentroidTracker(maxDisappeared int, maxDistance float64) *CentroidTracker {
	return &CentroidTracker{
		maxDisappeared: maxDisappeared,
		maxDistance:    maxDistance,
	}
}

// Reset clears the tracked data and resets everything
func (t *CentroidTracker) Reset() {
	t.idCount = 0
	t.tracks = nil
}

// Update matches the detections for one keyframe against the known tracks
// and returns the detections with stable track IDs assigned.  Detections
// that match no track start a new one.
func (t *CentroidTracker) Update(detections []reframe.Object) []reframe.Object {

	if len(t.tracks) == 0 {
		// nothing to match against, everything starts a new track
		for i := range detections {
			t.register(&detections[i])
		}
		return detections
	}

	if len(detections) == 0 {
		t.age(nil)
		return nil
	}

	// distance matrix, tracks by rows and detections by columns
	cost := mat.NewDense(len(t.tracks), len(detections), nil)

	for i, tr := range t.tracks {
		trackCenter := tr.Object.Box.Center()

		for j := range detections {
			cost.Set(i, j, trackCenter.DistanceTo(detections[j].Box.Center()))
		}
	}

	matchedTracks := make([]bool, len(t.tracks))
	matchedDets := make([]bool, len(detections))

	// greedy assignment, repeatedly take the closest remaining pair while
	// it is within the match distance
	for {
		best := math.Inf(1)
		bestI, bestJ := -1, -1

		for i := range t.tracks {
			if matchedTracks[i] {
				continue
			}

			for j := range detections {
				if matchedDets[j] {
					continue
				}

				if d := cost.At(i, j); d < best {
					best = d
					bestI, bestJ = i, j
				}
			}
		}

		if bestI < 0 || best > t.maxDistance {
			break
		}

		matchedTracks[bestI] = true
		matchedDets[bestJ] = true

		detections[bestJ].TrackID = t.tracks[bestI].ID
		t.tracks[bestI].Object = detections[bestJ]
		t.tracks[bestI].disappeared = 0
	}

	// unmatched detections start new tracks
	for j := range detections {
		if !matchedDets[j] {
			t.register(&detections[j])
		}
	}

	t.age(matchedTracks)

	return detections
}

// Tracks returns the currently followed tracks
func (t *CentroidTracker) Tracks() []*Track {
	return t.tracks
}

// register starts a new track for the detection and assigns its ID
func (t *CentroidTracker) register(detection *reframe.Object) {
	t.idCount++
	detection.TrackID = t.idCount

	t.tracks = append(t.tracks, &Track{
		ID:     t.idCount,
		Object: *detection,
	})
}

// age increments the disappearance count of unmatched tracks and removes
// those missing for too long.  A nil matched slice ages every track.
func (t *CentroidTracker) age(matched []bool) {

	kept := t.tracks[:0]

	for i, tr := range t.tracks {
		if matched != nil && i < len(matched) && matched[i] {
			kept = append(kept, tr)
			continue
		}

		// newly registered tracks sit past the end of matched and are
		// always kept
		if matched != nil && i >= len(matched) {
			kept = append(kept, tr)
			continue
		}

		tr.disappeared++

		if tr.disappeared <= t.maxDisappeared {
			kept = append(kept, tr)
		}
	}

	t.tracks = kept
}
