package fs

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ptr "github.com/clipcam/clipcam/internal/lib/utils/pointers"
	"github.com/clipcam/clipcam/internal/models"
	"github.com/clipcam/clipcam/internal/storage"
)

func newStorage(t *testing.T) *Storage {
	t.Helper()

	s, err := New(t.TempDir())
	require.NoError(t, err)

	return s
}

func TestFrameFileName(t *testing.T) {
	assert.Equal(t, "frame_000001.jpg", FrameFileName(1))
	assert.Equal(t, "frame_000042.jpg", FrameFileName(42))
	assert.Equal(t, "frame_123456.jpg", FrameFileName(123456))
}

func TestMetaRoundTrip(t *testing.T) {
	s := newStorage(t)
	ctx := context.Background()

	clip := models.Clip{
		ID:         "round-trip",
		DeviceID:   "esp32-cam",
		Reason:     "button",
		StartedAt:  time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
		EndedAt:    ptr.Pointer(time.Date(2024, 6, 1, 12, 1, 0, 0, time.UTC)),
		FrameCount: 7,
		HasAudio:   true,
	}

	require.NoError(t, s.EnsureDirs(clip.ID))
	require.NoError(t, s.SaveMeta(ctx, clip))

	got, err := s.Meta(ctx, clip.ID)
	require.NoError(t, err)
	assert.Equal(t, clip, got)
}

func TestMetaNotFound(t *testing.T) {
	s := newStorage(t)

	_, err := s.Meta(context.Background(), "no-such-clip")
	assert.ErrorIs(t, err, storage.ErrClipNotFound)
}

func TestMetaUnparsable(t *testing.T) {
	s := newStorage(t)
	ctx := context.Background()

	require.NoError(t, s.EnsureDirs("broken"))
	require.NoError(t, os.WriteFile(s.Paths("broken").Meta, []byte("{not json"), 0666))

	_, err := s.Meta(ctx, "broken")
	assert.ErrorIs(t, err, storage.ErrClipNotFound)
}

func TestSaveMetaOverwrites(t *testing.T) {
	s := newStorage(t)
	ctx := context.Background()

	clip := models.Clip{ID: "c", StartedAt: time.Now().UTC()}
	require.NoError(t, s.EnsureDirs(clip.ID))
	require.NoError(t, s.SaveMeta(ctx, clip))

	clip.FrameCount = 3
	require.NoError(t, s.SaveMeta(ctx, clip))

	got, err := s.Meta(ctx, clip.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, got.FrameCount)

	// no temp leftovers next to clip.json
	entries, err := os.ReadDir(s.Paths(clip.ID).Dir)
	require.NoError(t, err)
	for _, e := range entries {
		assert.NotContains(t, e.Name(), "clip.json.")
	}
}

func TestListFramesSorted(t *testing.T) {
	s := newStorage(t)
	ctx := context.Background()

	require.NoError(t, s.EnsureDirs("c"))

	for _, index := range []int{3, 1, 2} {
		_, err := s.SaveFrame(ctx, "c", index, []byte{0xff, 0xd8})
		require.NoError(t, err)
	}

	// noise that must not be listed
	require.NoError(t, os.WriteFile(filepath.Join(s.Paths("c").FramesDir, "notes.txt"), []byte("x"), 0666))

	frames, err := s.ListFrames(ctx, "c")
	require.NoError(t, err)
	assert.Equal(t, []string{"frame_000001.jpg", "frame_000002.jpg", "frame_000003.jpg"}, frames)
}

func TestListFramesMissingDir(t *testing.T) {
	s := newStorage(t)

	frames, err := s.ListFrames(context.Background(), "ghost")
	require.NoError(t, err)
	assert.Empty(t, frames)
}

func TestSaveFrameOverwritesSameIndex(t *testing.T) {
	s := newStorage(t)
	ctx := context.Background()

	require.NoError(t, s.EnsureDirs("c"))

	_, err := s.SaveFrame(ctx, "c", 1, []byte("old"))
	require.NoError(t, err)
	name, err := s.SaveFrame(ctx, "c", 1, []byte("new"))
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(s.Paths("c").FramesDir, name))
	require.NoError(t, err)
	assert.Equal(t, "new", string(data))

	frames, err := s.ListFrames(ctx, "c")
	require.NoError(t, err)
	assert.Len(t, frames, 1)
}

func TestAudioAndVideoPresence(t *testing.T) {
	s := newStorage(t)
	ctx := context.Background()

	require.NoError(t, s.EnsureDirs("c"))

	assert.False(t, s.HasAudio("c"))
	assert.False(t, s.HasVideo("c"))

	require.NoError(t, s.SaveAudio(ctx, "c", []byte("wav")))
	assert.True(t, s.HasAudio("c"))

	require.NoError(t, os.WriteFile(s.Paths("c").Video, []byte("mp4"), 0666))
	assert.True(t, s.HasVideo("c"))
}

func TestListClipIDs(t *testing.T) {
	s := newStorage(t)
	ctx := context.Background()

	require.NoError(t, s.EnsureDirs("a"))
	require.NoError(t, s.EnsureDirs("b"))

	ids, err := s.ListClipIDs(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a", "b"}, ids)
}

func TestUploads(t *testing.T) {
	s := newStorage(t)
	ctx := context.Background()

	require.NoError(t, s.SaveUpload(ctx, "photo_2.jpg", []byte("b")))
	require.NoError(t, s.SaveUpload(ctx, "photo_1.jpg", []byte("a")))
	require.NoError(t, s.SaveUpload(ctx, "frames.txt", []byte("manifest")))

	files, err := s.ListUploads(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"photo_1.jpg", "photo_2.jpg"}, files)
}
