package clip

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/clipcam/clipcam/internal/lib/logger/sl"
	"github.com/clipcam/clipcam/internal/lib/utils/keylock"
	ptr "github.com/clipcam/clipcam/internal/lib/utils/pointers"
	"github.com/clipcam/clipcam/internal/models"
	"github.com/clipcam/clipcam/internal/service"
	"github.com/clipcam/clipcam/internal/storage"
)

// Clip implements the clip lifecycle: start, frame and
// audio uploads, end, single fetch and listing.
//
// Metadata updates are read-modify-write against the
// storage, so every mutating operation takes the clip's
// lock to not lose updates between concurrent requests.
type Clip struct {
	log     *slog.Logger
	storage ClipStorage
	locks   *keylock.KeyLock
}

type ClipStorage interface {
	EnsureDirs(clipID string) error
	Meta(ctx context.Context, clipID string) (models.Clip, error)
	SaveMeta(ctx context.Context, clip models.Clip) error
	SaveFrame(ctx context.Context, clipID string, index int, data []byte) (string, error)
	SaveAudio(ctx context.Context, clipID string, data []byte) error
	ListFrames(ctx context.Context, clipID string) ([]string, error)
	ListClipIDs(ctx context.Context) ([]string, error)
	HasAudio(clipID string) bool
	HasVideo(clipID string) bool
}

// New returns new clip lifecycle service.
func New(
	log *slog.Logger,
	clipStorage ClipStorage,
) *Clip {
	return &Clip{
		log:     log,
		storage: clipStorage,
		locks:   keylock.New(),
	}
}

// StartClip allocates a fresh clip id, creates its directory
// tree and writes the initial metadata record. Returns the
// endpoints the device should push to next.
func (c *Clip) StartClip(ctx context.Context, deviceID, reason string) (models.ClipHandle, error) {
	const op = "Clip.StartClip"

	log := c.log.With(
		slog.String("op", op),
	)

	if deviceID == "" {
		deviceID = models.DefaultDeviceID
	}

	clip := models.Clip{
		ID:        uuid.New().String(),
		DeviceID:  deviceID,
		Reason:    reason,
		StartedAt: time.Now().UTC(),
	}

	if err := c.storage.EnsureDirs(clip.ID); err != nil {
		log.Error("failed to create clip dirs", sl.Err(err))
		return models.ClipHandle{}, fmt.Errorf("%s: %w", op, err)
	}

	if err := c.storage.SaveMeta(ctx, clip); err != nil {
		log.Error("failed to save clip meta", sl.Err(err))
		return models.ClipHandle{}, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("started clip",
		slog.String("clipId", clip.ID),
		slog.String("deviceId", deviceID),
		slog.String("reason", reason),
	)

	return models.ClipHandle{
		ClipID:         clip.ID,
		UploadFrameURL: models.UploadFrameEndpoint(clip.ID),
		UploadAudioURL: models.UploadAudioEndpoint(clip.ID),
		EndURL:         models.EndEndpoint(clip.ID),
	}, nil
}

// UploadFrame stores frame bytes under a sequence index.
//
// The index is the caller's explicit one when given
// (must be positive), otherwise frameCount+1. The stored
// frameCount becomes max(current, used index): gaps and
// out-of-order uploads are tolerated, EndClip normalizes
// the count from the files actually present.
func (c *Clip) UploadFrame(ctx context.Context, clipID string, data []byte, explicitIndex *int) (models.FrameRef, error) {
	const op = "Clip.UploadFrame"

	log := c.log.With(
		slog.String("op", op),
		slog.String("clipId", clipID),
	)

	if explicitIndex != nil && *explicitIndex < 1 {
		log.Warn("rejected frame index", slog.Int("index", *explicitIndex))
		return models.FrameRef{}, fmt.Errorf("%s: %w", op, service.ErrInvalidFrameIndex)
	}

	c.locks.Lock(clipID)
	defer c.locks.Unlock(clipID)

	clip, err := c.storage.Meta(ctx, clipID)
	if err != nil {
		if errors.Is(err, storage.ErrClipNotFound) {
			log.Warn("clip not found")
			return models.FrameRef{}, fmt.Errorf("%s: %w", op, service.ErrClipNotFound)
		}
		log.Error("failed to read clip meta", sl.Err(err))
		return models.FrameRef{}, fmt.Errorf("%s: %w", op, err)
	}

	index := clip.FrameCount + 1
	if explicitIndex != nil {
		index = *explicitIndex
	}

	fileName, err := c.storage.SaveFrame(ctx, clipID, index, data)
	if err != nil {
		log.Error("failed to save frame", slog.Int("index", index), sl.Err(err))
		return models.FrameRef{}, fmt.Errorf("%s: %w", op, err)
	}

	if index > clip.FrameCount {
		clip.FrameCount = index
		if err := c.storage.SaveMeta(ctx, clip); err != nil {
			log.Error("failed to save clip meta", sl.Err(err))
			return models.FrameRef{}, fmt.Errorf("%s: %w", op, err)
		}
	}

	log.Debug("saved frame", slog.String("fileName", fileName))

	return models.FrameRef{
		Index:    index,
		FileName: fileName,
		URL:      models.FrameURL(clipID, fileName),
	}, nil
}

// UploadAudio overwrites the clip's single audio asset
// unconditionally and marks the clip as having audio.
func (c *Clip) UploadAudio(ctx context.Context, clipID string, data []byte) (string, error) {
	const op = "Clip.UploadAudio"

	log := c.log.With(
		slog.String("op", op),
		slog.String("clipId", clipID),
	)

	c.locks.Lock(clipID)
	defer c.locks.Unlock(clipID)

	clip, err := c.storage.Meta(ctx, clipID)
	if err != nil {
		if errors.Is(err, storage.ErrClipNotFound) {
			log.Warn("clip not found")
			return "", fmt.Errorf("%s: %w", op, service.ErrClipNotFound)
		}
		log.Error("failed to read clip meta", sl.Err(err))
		return "", fmt.Errorf("%s: %w", op, err)
	}

	if err := c.storage.SaveAudio(ctx, clipID, data); err != nil {
		log.Error("failed to save audio", sl.Err(err))
		return "", fmt.Errorf("%s: %w", op, err)
	}

	if !clip.HasAudio {
		clip.HasAudio = true
		if err := c.storage.SaveMeta(ctx, clip); err != nil {
			log.Error("failed to save clip meta", sl.Err(err))
			return "", fmt.Errorf("%s: %w", op, err)
		}
	}

	log.Info("saved audio")

	return models.AudioURL(clipID), nil
}

// EndClip finalizes the clip: stamps endedAt and recomputes
// frameCount from the frame files actually on disk, so a
// sparse index sequence collapses to the true file count.
// Re-invocation re-stamps and re-normalizes, no special
// casing of an already ended clip.
func (c *Clip) EndClip(ctx context.Context, clipID string) (int, error) {
	const op = "Clip.EndClip"

	log := c.log.With(
		slog.String("op", op),
		slog.String("clipId", clipID),
	)

	c.locks.Lock(clipID)
	defer c.locks.Unlock(clipID)

	clip, err := c.storage.Meta(ctx, clipID)
	if err != nil {
		if errors.Is(err, storage.ErrClipNotFound) {
			log.Warn("clip not found")
			return 0, fmt.Errorf("%s: %w", op, service.ErrClipNotFound)
		}
		log.Error("failed to read clip meta", sl.Err(err))
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	frames, err := c.storage.ListFrames(ctx, clipID)
	if err != nil {
		log.Error("failed to list frames", sl.Err(err))
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	clip.EndedAt = ptr.Pointer(time.Now().UTC())
	clip.FrameCount = len(frames)

	if err := c.storage.SaveMeta(ctx, clip); err != nil {
		log.Error("failed to save clip meta", sl.Err(err))
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("ended clip", slog.Int("frameCount", clip.FrameCount))

	return clip.FrameCount, nil
}

// Clip returns the full metadata plus ordered frame
// references and audio/video locations when present.
func (c *Clip) Clip(ctx context.Context, clipID string) (models.ClipView, error) {
	const op = "Clip.Clip"

	log := c.log.With(
		slog.String("op", op),
		slog.String("clipId", clipID),
	)

	clip, err := c.storage.Meta(ctx, clipID)
	if err != nil {
		if errors.Is(err, storage.ErrClipNotFound) {
			log.Warn("clip not found")
			return models.ClipView{}, fmt.Errorf("%s: %w", op, service.ErrClipNotFound)
		}
		log.Error("failed to read clip meta", sl.Err(err))
		return models.ClipView{}, fmt.Errorf("%s: %w", op, err)
	}

	frames, err := c.storage.ListFrames(ctx, clipID)
	if err != nil {
		log.Error("failed to list frames", sl.Err(err))
		return models.ClipView{}, fmt.Errorf("%s: %w", op, err)
	}

	view := models.ClipView{
		Clip:   clip,
		Frames: make([]models.FrameRef, 0, len(frames)),
	}

	for _, name := range frames {
		view.Frames = append(view.Frames, models.FrameRef{
			Index:    frameIndex(name),
			FileName: name,
			URL:      models.FrameURL(clipID, name),
		})
	}

	if c.storage.HasAudio(clipID) {
		view.AudioURL = models.AudioURL(clipID)
	}
	if c.storage.HasVideo(clipID) {
		view.VideoURL = models.VideoURL(clipID)
	}

	return view, nil
}

// Clips lists all stored clips newest first. Directories
// with missing or unparsable metadata are skipped. Frame
// count and preview are recomputed from disk.
func (c *Clip) Clips(ctx context.Context) ([]models.ClipSummary, error) {
	const op = "Clip.Clips"

	log := c.log.With(
		slog.String("op", op),
	)

	ids, err := c.storage.ListClipIDs(ctx)
	if err != nil {
		log.Error("failed to list clips", sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	summaries := make([]models.ClipSummary, 0, len(ids))

	for _, id := range ids {
		clip, err := c.storage.Meta(ctx, id)
		if err != nil {
			log.Warn("skipping clip with unreadable meta", slog.String("clipId", id))
			continue
		}

		frames, err := c.storage.ListFrames(ctx, id)
		if err != nil {
			log.Warn("skipping clip with unreadable frames", slog.String("clipId", id))
			continue
		}

		clip.FrameCount = len(frames)

		summary := models.ClipSummary{Clip: clip}
		if len(frames) > 0 {
			summary.PreviewURL = models.FrameURL(id, frames[len(frames)-1])
		}

		summaries = append(summaries, summary)
	}

	// newest first, zero startedAt sorts last
	sort.SliceStable(summaries, func(i, j int) bool {
		return summaries[i].StartedAt.After(summaries[j].StartedAt)
	})

	return summaries, nil
}

// frameIndex recovers the numeric index from a frame
// file name. Returns 0 for a name it doesn't recognize.
func frameIndex(fileName string) int {
	s := strings.TrimSuffix(strings.TrimPrefix(fileName, "frame_"), ".jpg")
	index, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return index
}
