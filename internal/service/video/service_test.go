package video

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clipcam/clipcam/internal/models"
	"github.com/clipcam/clipcam/internal/service"
	"github.com/clipcam/clipcam/internal/storage/fs"
)

// fakeEncoder records invocations instead of running ffmpeg.
type fakeEncoder struct {
	calls     int
	manifests []string
	outputs   []string
	err       error
	delay     time.Duration
}

func (f *fakeEncoder) ConcatImages(ctx context.Context, manifestPath, outputPath string, frameRate int) error {
	f.calls++
	f.manifests = append(f.manifests, manifestPath)
	f.outputs = append(f.outputs, outputPath)

	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	return f.err
}

func newService(t *testing.T, enc *fakeEncoder) (*Video, *fs.Storage) {
	t.Helper()

	st, err := fs.New(t.TempDir())
	require.NoError(t, err)

	log := slog.New(slog.NewTextHandler(os.Stderr, nil))

	return New(log, st, enc, 6, 2, time.Second), st
}

func seedClip(t *testing.T, st *fs.Storage, clipID string, frames int) {
	t.Helper()
	ctx := context.Background()

	require.NoError(t, st.EnsureDirs(clipID))
	require.NoError(t, st.SaveMeta(ctx, models.Clip{
		ID:        clipID,
		StartedAt: time.Now().UTC(),
	}))

	for i := 1; i <= frames; i++ {
		_, err := st.SaveFrame(ctx, clipID, i, []byte{0xff, 0xd8, byte(i)})
		require.NoError(t, err)
	}
}

func TestAssembleMissingClip(t *testing.T) {
	enc := &fakeEncoder{}
	srv, _ := newService(t, enc)

	_, err := srv.Assemble(context.Background(), "ghost")
	assert.ErrorIs(t, err, service.ErrClipNotFound)
	assert.Zero(t, enc.calls)
}

func TestAssembleRejectsBelowMinimum(t *testing.T) {
	enc := &fakeEncoder{}
	srv, st := newService(t, enc)

	for _, frames := range []int{0, 1} {
		clipID := fmt.Sprintf("clip-%d", frames)
		seedClip(t, st, clipID, frames)

		_, err := srv.Assemble(context.Background(), clipID)
		assert.ErrorIs(t, err, service.ErrNotEnoughFrames)
	}

	// encoder never invoked for rejected requests
	assert.Zero(t, enc.calls)
}

func TestAssembleManifestOrder(t *testing.T) {
	enc := &fakeEncoder{}
	srv, st := newService(t, enc)

	seedClip(t, st, "c", 3)

	res, err := srv.Assemble(context.Background(), "c")
	require.NoError(t, err)
	assert.Equal(t, "c", res.ClipID)
	assert.Equal(t, "clip.mp4", res.FileName)
	assert.Equal(t, models.VideoURL("c"), res.URL)

	require.Equal(t, 1, enc.calls)

	data, err := os.ReadFile(enc.manifests[0])
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 3)
	for i, line := range lines {
		expected := filepath.ToSlash(filepath.Join(st.Paths("c").FramesDir, fs.FrameFileName(i+1)))
		assert.Equal(t, "file '"+expected+"'", line)
	}

	assert.Equal(t, st.Paths("c").Video, enc.outputs[0])
}

func TestAssembleEncoderErrorSurfaced(t *testing.T) {
	enc := &fakeEncoder{err: errors.New("ffmpeg exploded: frame_000002.jpg unreadable")}
	srv, st := newService(t, enc)

	seedClip(t, st, "c", 2)

	_, err := srv.Assemble(context.Background(), "c")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ffmpeg exploded: frame_000002.jpg unreadable")
}

func TestAssembleTimeout(t *testing.T) {
	enc := &fakeEncoder{delay: time.Second}

	st, err := fs.New(t.TempDir())
	require.NoError(t, err)

	log := slog.New(slog.NewTextHandler(os.Stderr, nil))
	srv := New(log, st, enc, 6, 2, 20*time.Millisecond)

	seedClip(t, st, "c", 2)

	_, err = srv.Assemble(context.Background(), "c")
	assert.ErrorIs(t, err, service.ErrEncodeTimeout)
}

func TestAssembleUploads(t *testing.T) {
	enc := &fakeEncoder{}
	srv, st := newService(t, enc)
	ctx := context.Background()

	require.NoError(t, st.SaveUpload(ctx, "photo_2.jpg", []byte("b")))
	require.NoError(t, st.SaveUpload(ctx, "photo_1.jpg", []byte("a")))

	res, err := srv.AssembleUploads(ctx)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(res.FileName, "clip_"))
	assert.Equal(t, models.UploadURL(res.FileName), res.URL)

	require.Equal(t, 1, enc.calls)

	data, err := os.ReadFile(enc.manifests[0])
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "photo_1.jpg")
	assert.Contains(t, lines[1], "photo_2.jpg")
}

func TestAssembleUploadsRejectsBelowMinimum(t *testing.T) {
	enc := &fakeEncoder{}
	srv, st := newService(t, enc)
	ctx := context.Background()

	require.NoError(t, st.SaveUpload(ctx, "photo_1.jpg", []byte("a")))

	_, err := srv.AssembleUploads(ctx)
	assert.ErrorIs(t, err, service.ErrNotEnoughFrames)
	assert.Zero(t, enc.calls)
}
