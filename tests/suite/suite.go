package suite

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"io"
	"log/slog"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/gavv/httpexpect/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/joho/godotenv"
	"github.com/stretchr/testify/require"

	"github.com/clipcam/clipcam/internal/app/router"
	videoSrv "github.com/clipcam/clipcam/internal/service/video"
	"github.com/clipcam/clipcam/internal/storage/fs"
)

// Actual environment
var (
	_ = godotenv.Load("../.env")
)

// Suite runs the full router in-process against a
// throwaway media root, no listening socket involved.
type Suite struct {
	E         *httpexpect.Expect
	MediaRoot string
	Encoder   *StubEncoder
}

// StubEncoder stands in for ffmpeg: it records calls and
// produces an empty output file so media URLs resolve.
type StubEncoder struct {
	Calls int
}

func (s *StubEncoder) ConcatImages(ctx context.Context, manifestPath, outputPath string, frameRate int) error {
	s.Calls++
	return os.WriteFile(outputPath, []byte("stub mp4"), 0666)
}

func New(t *testing.T) *Suite {
	t.Helper()

	enc := &StubEncoder{}
	s, e := newExpect(t, enc)
	return &Suite{E: e, MediaRoot: s, Encoder: enc}
}

// NewWithEncoder builds the suite around a real encoder,
// used by the ffmpeg-gated tests.
func NewWithEncoder(t *testing.T, enc videoSrv.Encoder) *Suite {
	t.Helper()

	root, e := newExpectWithEncoder(t, enc)
	return &Suite{E: e, MediaRoot: root}
}

func newExpect(t *testing.T, enc *StubEncoder) (string, *httpexpect.Expect) {
	return newExpectWithEncoder(t, enc)
}

func newExpectWithEncoder(t *testing.T, enc videoSrv.Encoder) (string, *httpexpect.Expect) {
	t.Helper()

	mediaRoot := t.TempDir()

	storage, err := fs.New(mediaRoot)
	require.NoError(t, err)

	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	r := router.New(
		log,
		storage,
		enc,
		"localhost:0",
		10*1024*1024,
		6,
		2,
		30*time.Second,
	)

	handler := adaptor.FiberApp(r.Fiber())

	e := httpexpect.WithConfig(httpexpect.Config{
		TestName: t.Name(),
		BaseURL:  "http://clipcam.test",
		Client: &http.Client{
			Transport: httpexpect.NewBinder(handler),
		},
		Reporter: httpexpect.NewAssertReporter(t),
	})

	return mediaRoot, e
}

// JPEGFrame renders a small valid jpeg, tinted by seed
// so consecutive frames differ.
func JPEGFrame(t *testing.T, seed int) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, 16, 16))
	for x := 0; x < 16; x++ {
		for y := 0; y < 16; y++ {
			img.Set(x, y, color.RGBA{R: uint8(seed * 40), G: uint8(x * 16), B: uint8(y * 16), A: 255})
		}
	}

	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, nil))

	return buf.Bytes()
}

// FFmpegE2E reports whether the ffmpeg-dependent tests
// were enabled via the environment.
func FFmpegE2E() bool {
	return os.Getenv("CLIPCAM_E2E_FFMPEG") != ""
}
