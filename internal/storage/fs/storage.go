package fs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gofrs/flock"

	"github.com/clipcam/clipcam/internal/models"
	"github.com/clipcam/clipcam/internal/storage"
)

const (
	clipsDir   = "clips"
	uploadsDir = "uploads"
	framesDir  = "frames"

	metaFile     = "clip.json"
	audioFile    = "audio.wav"
	videoFile    = "clip.mp4"
	manifestFile = "frames.txt"
	lockFile     = ".lock"

	framePrefix = "frame_"
	frameExt    = ".jpg"
)

// Storage persists all clip data under a single media root:
//
//	media/clips/{clipId}/{frames/frame_NNNNNN.jpg, audio.wav, clip.mp4, clip.json}
//	media/uploads/photo_*.jpg
//
// No in-memory cache is kept, every read reflects
// the current on-disk state.
type Storage struct {
	root string
}

func New(root string) (*Storage, error) {
	const op = "storage.fs.New"

	for _, dir := range []string{
		filepath.Join(root, clipsDir),
		filepath.Join(root, uploadsDir),
	} {
		if err := os.MkdirAll(dir, 0777); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}

	return &Storage{root: root}, nil
}

// Root returns the media root directory.
func (s *Storage) Root() string {
	return s.root
}

// FrameFileName builds a frame file name from its 1-based index.
// Fixed-width zero padding keeps lexicographic order equal to
// numeric order, ListFrames relies on that.
func FrameFileName(index int) string {
	return fmt.Sprintf("%s%06d%s", framePrefix, index, frameExt)
}

// Paths resolves the layout for a clip id without touching disk.
func (s *Storage) Paths(clipID string) storage.ClipPaths {
	dir := filepath.Join(s.root, clipsDir, clipID)
	return storage.ClipPaths{
		Dir:       dir,
		FramesDir: filepath.Join(dir, framesDir),
		Meta:      filepath.Join(dir, metaFile),
		Audio:     filepath.Join(dir, audioFile),
		Video:     filepath.Join(dir, videoFile),
		Manifest:  filepath.Join(dir, manifestFile),
	}
}

// EnsureDirs creates the clip's directory tree. Idempotent.
func (s *Storage) EnsureDirs(clipID string) error {
	const op = "storage.fs.EnsureDirs"

	if err := os.MkdirAll(s.Paths(clipID).FramesDir, 0777); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// Meta reads the clip metadata record.
//
// A missing directory, missing clip.json or unparsable
// content all surface as storage.ErrClipNotFound, never
// as a crash: listing skips such directories.
func (s *Storage) Meta(ctx context.Context, clipID string) (models.Clip, error) {
	const op = "storage.fs.Meta"

	data, err := os.ReadFile(s.Paths(clipID).Meta)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return models.Clip{}, fmt.Errorf("%s: %w", op, storage.ErrClipNotFound)
		}
		return models.Clip{}, fmt.Errorf("%s: %w", op, err)
	}

	var clip models.Clip
	if err := json.Unmarshal(data, &clip); err != nil {
		return models.Clip{}, fmt.Errorf("%s: %w", op, storage.ErrClipNotFound)
	}

	return clip, nil
}

// SaveMeta persists the full metadata record, overwriting
// any prior version. The record is written to a temporary
// file and renamed, so a concurrent reader never observes
// a partially written clip.json. A file lock additionally
// serializes writers across processes.
func (s *Storage) SaveMeta(ctx context.Context, clip models.Clip) error {
	const op = "storage.fs.SaveMeta"

	paths := s.Paths(clip.ID)

	fl := flock.New(filepath.Join(paths.Dir, lockFile))
	if err := fl.Lock(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer fl.Unlock()

	data, err := json.MarshalIndent(clip, "", "  ")
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	tmp, err := os.CreateTemp(paths.Dir, metaFile+".*")
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := os.Rename(tmpName, paths.Meta); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// SaveFrame writes frame bytes under the given 1-based index.
// An existing frame at the same index is overwritten silently.
func (s *Storage) SaveFrame(ctx context.Context, clipID string, index int, data []byte) (string, error) {
	const op = "storage.fs.SaveFrame"

	fileName := FrameFileName(index)

	if err := os.WriteFile(filepath.Join(s.Paths(clipID).FramesDir, fileName), data, 0666); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return fileName, nil
}

// SaveAudio overwrites the clip's single audio file.
func (s *Storage) SaveAudio(ctx context.Context, clipID string, data []byte) error {
	const op = "storage.fs.SaveAudio"

	if err := os.WriteFile(s.Paths(clipID).Audio, data, 0666); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// ListFrames returns frame file names sorted lexicographically.
// Valid only because FrameFileName zero-pads indices to fixed width.
func (s *Storage) ListFrames(ctx context.Context, clipID string) ([]string, error) {
	const op = "storage.fs.ListFrames"

	entries, err := os.ReadDir(s.Paths(clipID).FramesDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	frames := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.HasPrefix(name, framePrefix) && strings.HasSuffix(strings.ToLower(name), frameExt) {
			frames = append(frames, name)
		}
	}

	sort.Strings(frames)

	return frames, nil
}

// ListClipIDs enumerates all clip directories under the media root.
func (s *Storage) ListClipIDs(ctx context.Context) ([]string, error) {
	const op = "storage.fs.ListClipIDs"

	entries, err := os.ReadDir(filepath.Join(s.root, clipsDir))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			ids = append(ids, e.Name())
		}
	}

	return ids, nil
}

// HasAudio reports audio asset existence. File presence
// is the only source of truth.
func (s *Storage) HasAudio(clipID string) bool {
	_, err := os.Stat(s.Paths(clipID).Audio)
	return err == nil
}

// HasVideo reports assembled video existence.
func (s *Storage) HasVideo(clipID string) bool {
	_, err := os.Stat(s.Paths(clipID).Video)
	return err == nil
}

// UploadsDir returns the flat uploads directory
// used by the legacy device firmware.
func (s *Storage) UploadsDir() string {
	return filepath.Join(s.root, uploadsDir)
}

// SaveUpload writes a flat upload with the given file name.
func (s *Storage) SaveUpload(ctx context.Context, fileName string, data []byte) error {
	const op = "storage.fs.SaveUpload"

	if err := os.WriteFile(filepath.Join(s.UploadsDir(), fileName), data, 0666); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// ListUploads returns jpg files in the uploads
// directory sorted lexicographically.
func (s *Storage) ListUploads(ctx context.Context) ([]string, error) {
	const op = "storage.fs.ListUploads"

	entries, err := os.ReadDir(s.UploadsDir())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	files := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if strings.HasSuffix(strings.ToLower(e.Name()), frameExt) {
			files = append(files, e.Name())
		}
	}

	sort.Strings(files)

	return files, nil
}
