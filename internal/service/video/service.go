package video

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/clipcam/clipcam/internal/lib/logger/sl"
	"github.com/clipcam/clipcam/internal/models"
	"github.com/clipcam/clipcam/internal/service"
	"github.com/clipcam/clipcam/internal/storage"
)

// Video assembles stored frames into a playable mp4
// through an external encoder. The encoder is opaque:
// it gets an ordered manifest and a frame rate, nothing
// else, and its diagnostics are surfaced verbatim.
type Video struct {
	log       *slog.Logger
	storage   MediaStorage
	encoder   Encoder
	frameRate int
	minFrames int
	timeout   time.Duration
}

type MediaStorage interface {
	Meta(ctx context.Context, clipID string) (models.Clip, error)
	ListFrames(ctx context.Context, clipID string) ([]string, error)
	Paths(clipID string) storage.ClipPaths
	ListUploads(ctx context.Context) ([]string, error)
	UploadsDir() string
}

type Encoder interface {
	ConcatImages(ctx context.Context, manifestPath, outputPath string, frameRate int) error
}

// New returns new video assembly service.
func New(
	log *slog.Logger,
	mediaStorage MediaStorage,
	encoder Encoder,
	frameRate int,
	minFrames int,
	timeout time.Duration,
) *Video {
	return &Video{
		log:       log,
		storage:   mediaStorage,
		encoder:   encoder,
		frameRate: frameRate,
		minFrames: minFrames,
		timeout:   timeout,
	}
}

// Assemble builds clip.mp4 from the clip's stored frames.
func (v *Video) Assemble(ctx context.Context, clipID string) (models.VideoResult, error) {
	const op = "Video.Assemble"

	log := v.log.With(
		slog.String("op", op),
		slog.String("clipId", clipID),
	)

	if _, err := v.storage.Meta(ctx, clipID); err != nil {
		if errors.Is(err, storage.ErrClipNotFound) {
			log.Warn("clip not found")
			return models.VideoResult{}, fmt.Errorf("%s: %w", op, service.ErrClipNotFound)
		}
		log.Error("failed to read clip meta", sl.Err(err))
		return models.VideoResult{}, fmt.Errorf("%s: %w", op, err)
	}

	frames, err := v.storage.ListFrames(ctx, clipID)
	if err != nil {
		log.Error("failed to list frames", sl.Err(err))
		return models.VideoResult{}, fmt.Errorf("%s: %w", op, err)
	}

	paths := v.storage.Paths(clipID)

	framePaths := make([]string, 0, len(frames))
	for _, name := range frames {
		framePaths = append(framePaths, filepath.Join(paths.FramesDir, name))
	}

	if err := v.assemble(ctx, log, framePaths, paths.Manifest, paths.Video); err != nil {
		return models.VideoResult{}, fmt.Errorf("%s: %w", op, err)
	}

	return models.VideoResult{
		ClipID:   clipID,
		FileName: filepath.Base(paths.Video),
		URL:      models.VideoURL(clipID),
	}, nil
}

// AssembleUploads builds a timestamped mp4 from the flat
// uploads directory. Kept for the legacy device firmware.
func (v *Video) AssembleUploads(ctx context.Context) (models.VideoResult, error) {
	const op = "Video.AssembleUploads"

	log := v.log.With(
		slog.String("op", op),
	)

	files, err := v.storage.ListUploads(ctx)
	if err != nil {
		log.Error("failed to list uploads", sl.Err(err))
		return models.VideoResult{}, fmt.Errorf("%s: %w", op, err)
	}

	dir := v.storage.UploadsDir()

	framePaths := make([]string, 0, len(files))
	for _, name := range files {
		framePaths = append(framePaths, filepath.Join(dir, name))
	}

	fileName := fmt.Sprintf("clip_%d.mp4", time.Now().UnixMilli())

	if err := v.assemble(ctx, log, framePaths, filepath.Join(dir, "frames.txt"), filepath.Join(dir, fileName)); err != nil {
		return models.VideoResult{}, fmt.Errorf("%s: %w", op, err)
	}

	return models.VideoResult{
		FileName: fileName,
		URL:      models.UploadURL(fileName),
	}, nil
}

// assemble writes the ordered manifest and drives the encoder.
// The encoder runs out-of-line with its result delivered over
// a channel, duration scales with frame count and is unbounded
// without the timeout.
func (v *Video) assemble(ctx context.Context, log *slog.Logger, framePaths []string, manifestPath, outputPath string) error {
	if len(framePaths) < v.minFrames {
		log.Warn("not enough frames", slog.Int("frames", len(framePaths)))
		return service.ErrNotEnoughFrames
	}

	if err := writeManifest(manifestPath, framePaths); err != nil {
		log.Error("failed to write manifest", sl.Err(err))
		return err
	}

	log.Info("assembling video",
		slog.Int("frames", len(framePaths)),
		slog.String("output", outputPath),
	)

	encCtx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- v.encoder.ConcatImages(encCtx, manifestPath, outputPath, v.frameRate)
	}()

	var err error
	select {
	case err = <-done:
	case <-encCtx.Done():
		err = encCtx.Err()
	}

	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			log.Error("encode timeout")
			return service.ErrEncodeTimeout
		}
		log.Error("encoder failed", sl.Err(err))
		return err
	}

	log.Info("assembled video", slog.String("output", outputPath))

	return nil
}

// writeManifest lists every frame path once, in the order
// given, in the concat demuxer's format. Input frames are
// never moved or deleted.
func writeManifest(path string, framePaths []string) error {
	var b strings.Builder
	for _, p := range framePaths {
		b.WriteString("file '")
		b.WriteString(filepath.ToSlash(p))
		b.WriteString("'\n")
	}

	return os.WriteFile(path, []byte(b.String()), 0666)
}
