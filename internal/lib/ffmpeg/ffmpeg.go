package ffmpeg

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"

	"github.com/clipcam/clipcam/internal/lib/utils/writer"
)

/*
 * FFmpeg wrapper.
 *
 * No libraries are used, because none of them provide
 * the necessary functional. Just direct exec call.
 */

type FFmpeg struct{}

func New() *FFmpeg {
	return &FFmpeg{}
}

// Check verifies "ffmpeg" executable availability.
func (f *FFmpeg) Check() error {
	cmd := exec.Command("ffmpeg", "-version")

	if err := cmd.Run(); err != nil {
		return errors.New(`can't find ffmpeg executable (ran "ffmpeg -version")`)
	}

	return nil
}

// ConcatImages assembles the still images listed in the
// manifest into one video file. The manifest fixes the
// playback order, ffmpeg never re-derives it.
//
// Encoder stderr is returned inside the error verbatim.
func (f *FFmpeg) ConcatImages(ctx context.Context, manifestPath, outputPath string, frameRate int) error {
	cmd := exec.CommandContext(ctx,
		"ffmpeg",       //									call converter
		"-hide_banner", //									hide banner
		"-y",           //									force rewriting file
		"-f", "concat", //									treat input as concat manifest
		"-safe", "0", //									allow absolute paths in manifest
		"-i", manifestPath, //								input manifest
		"-vf", "fps="+strconv.Itoa(frameRate), //			target frame rate
		"-pix_fmt", "yuv420p", //							pixel format for common playback
		outputPath, //										output file
	)

	errorWriter := writer.New()
	cmd.Stderr = errorWriter

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: %s", err, errorWriter.String())
	}

	return nil
}
