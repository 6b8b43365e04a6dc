package video

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
)

// FFmpeg runs post processing steps that need the ffmpeg binary, audio
// merging and H.264 conversion
type FFmpeg struct {
	// Path is the ffmpeg executable, "ffmpeg" resolves via PATH
	Path string
}

// NewFFmpeg returns an FFmpeg helper using the given binary path, or the
// system ffmpeg when empty
func NewFFmpeg(path string) *FFmpeg {

	if path == "" {
		path = "ffmpeg"
	}

	return &FFmpeg{Path: path}
}

// MergeAudio extracts the audio track of the source video and muxes it into
// the processed video, overwriting it in place.  A source without audio is
// not an error.
func (f *FFmpeg) MergeAudio(ctx context.Context, videoPath, sourcePath string) error {

	dir := filepath.Dir(videoPath)
	audioPath := filepath.Join(dir, "temp_audio.m4a")
	tempOutput := filepath.Join(dir, "temp_output.mp4")

	defer os.Remove(audioPath)
	defer os.Remove(tempOutput)

	// extract audio from the source video, 0:a? makes the stream optional
	if err := f.run(ctx, "-i", sourcePath, "-vn", "-c:a", "aac",
		"-map", "0:a?", audioPath, "-y"); err != nil {
		return fmt.Errorf("error extracting audio: %w", err)
	}

	if _, err := os.Stat(audioPath); err != nil {
		// no audio track in the source
		return nil
	}

	if err := f.run(ctx, "-i", videoPath, "-i", audioPath,
		"-c:v", "copy", "-c:a", "aac", tempOutput, "-y"); err != nil {
		return fmt.Errorf("error merging audio: %w", err)
	}

	return os.Rename(tempOutput, videoPath)
}

// ConvertToH264 re-encodes the video as H.264 in place
func (f *FFmpeg) ConvertToH264(ctx context.Context, videoPath string) error {

	tempOutput := filepath.Join(filepath.Dir(videoPath), "temp_h264_output.mp4")
	defer os.Remove(tempOutput)

	if err := f.run(ctx, "-y", "-i", videoPath,
		"-c:v", "libx264", "-preset", "ultrafast", "-crf", "28",
		"-c:a", "aac", "-b:a", "128k",
		tempOutput); err != nil {
		return fmt.Errorf("error encoding to h264: %w", err)
	}

	return os.Rename(tempOutput, videoPath)
}

// run executes ffmpeg with the given arguments, returning the combined
// output on failure
func (f *FFmpeg) run(ctx context.Context, args ...string) error {

	cmd := exec.CommandContext(ctx, f.Path, args...)

	output, err := cmd.CombinedOutput()

	if err != nil {
		return fmt.Errorf("%s %v failed: %w\noutput: %s", f.Path, args, err, output)
	}

	return nil
}
