/*
reframer reframes a source video to a target aspect ratio by computing, for
every output frame, a crop window that keeps the most salient content in view
while avoiding jarring motion between frames.

Object detection and tracking run on keyframes only.  The crop package turns
each keyframe's detections (optionally augmented with face detections and a
saliency estimate) into a smoothed crop window, reconstructs the windows for
the frames in between by linear interpolation, and applies a second temporal
smoothing pass over the dense sequence.

See cmd/reframer for the command line front end.
*/
package reframe
