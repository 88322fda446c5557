package snapshot

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/clipcam/clipcam/internal/lib/logger/sl"
	"github.com/clipcam/clipcam/internal/models"
)

// Snapshot stores standalone photos in the flat uploads
// directory. This is the oldest device firmware's surface,
// kept next to the clip model for compatibility.
type Snapshot struct {
	log     *slog.Logger
	storage SnapshotStorage
}

type SnapshotStorage interface {
	SaveUpload(ctx context.Context, fileName string, data []byte) error
}

// New returns new snapshot service.
func New(
	log *slog.Logger,
	snapshotStorage SnapshotStorage,
) *Snapshot {
	return &Snapshot{
		log:     log,
		storage: snapshotStorage,
	}
}

// SaveSnapshot writes the photo under a timestamped name.
func (s *Snapshot) SaveSnapshot(ctx context.Context, data []byte) (string, string, error) {
	const op = "Snapshot.SaveSnapshot"

	log := s.log.With(
		slog.String("op", op),
	)

	// nanoseconds, consecutive shots must not collide
	fileName := fmt.Sprintf("photo_%d.jpg", time.Now().UnixNano())

	if err := s.storage.SaveUpload(ctx, fileName, data); err != nil {
		log.Error("failed to save snapshot", sl.Err(err))
		return "", "", fmt.Errorf("%s: %w", op, err)
	}

	log.Info("saved snapshot", slog.String("fileName", fileName))

	return fileName, models.UploadURL(fileName), nil
}
