package tests

import (
	"encoding/base64"
	"net/http"
	"testing"

	"github.com/clipcam/clipcam/internal/lib/ffmpeg"
	"github.com/clipcam/clipcam/tests/suite"
)

func TestLegacyUpload(t *testing.T) {
	s := suite.New(t)

	image := base64.StdEncoding.EncodeToString(suite.JPEGFrame(t, 1))

	res := s.E.POST("/upload").
		WithJSON(map[string]string{
			"image": "data:image/jpeg;base64," + image,
		}).
		Expect().
		Status(http.StatusOK).
		JSON().Object()

	res.Value("message").String().IsEqual("Image received")

	fileNameVal := res.Value("fileName").String()
	fileNameVal.Match(`^photo_\d+\.jpg$`)
	fileName := fileNameVal.Raw()

	s.E.GET("/media/uploads/" + fileName).
		Expect().
		Status(http.StatusOK)
}

func TestLegacyUploadWithoutImage(t *testing.T) {
	s := suite.New(t)

	s.E.POST("/upload").
		WithJSON(map[string]string{}).
		Expect().
		Status(http.StatusBadRequest).
		JSON().Object().
		Value("error").String().IsEqual("no image data received")
}

func TestLegacyMakeVideoNeedsTwoImages(t *testing.T) {
	s := suite.New(t)

	image := base64.StdEncoding.EncodeToString(suite.JPEGFrame(t, 1))
	s.E.POST("/upload").
		WithJSON(map[string]string{"image": image}).
		Expect().
		Status(http.StatusOK)

	s.E.GET("/make-video").
		Expect().
		Status(http.StatusBadRequest)

	if s.Encoder.Calls != 0 {
		t.Fatalf("encoder invoked for rejected request")
	}
}

func TestLegacyMakeVideo(t *testing.T) {
	s := suite.New(t)

	for i := 0; i < 3; i++ {
		image := base64.StdEncoding.EncodeToString(suite.JPEGFrame(t, i))
		s.E.POST("/upload").
			WithJSON(map[string]string{"image": image}).
			Expect().
			Status(http.StatusOK)
	}

	res := s.E.GET("/make-video").
		Expect().
		Status(http.StatusOK).
		JSON().Object()

	res.Value("message").String().IsEqual("Video created")
	res.Value("url").String().Match(`^/media/uploads/clip_\d+\.mp4$`)
}

// TestClipVideoFFmpeg drives the real encoder end to end.
// Needs ffmpeg in PATH, enabled via CLIPCAM_E2E_FFMPEG.
func TestClipVideoFFmpeg(t *testing.T) {
	if !suite.FFmpegE2E() {
		t.Skip("set CLIPCAM_E2E_FFMPEG to run ffmpeg-dependent tests")
	}

	enc := ffmpeg.New()
	if err := enc.Check(); err != nil {
		t.Skip("ffmpeg not available")
	}

	s := suite.NewWithEncoder(t, enc)

	clipID := s.E.POST("/clip/start").
		Expect().
		Status(http.StatusOK).
		JSON().Object().
		Value("clipId").String().Raw()

	for i := 1; i <= 6; i++ {
		image := base64.StdEncoding.EncodeToString(suite.JPEGFrame(t, i))
		s.E.POST("/clip/"+clipID+"/frame").
			WithJSON(map[string]string{"image": image}).
			Expect().
			Status(http.StatusOK)
	}

	s.E.POST("/clip/"+clipID+"/video").
		Expect().
		Status(http.StatusOK).
		JSON().Object().
		Value("videoUrl").String().IsEqual("/media/clips/" + clipID + "/clip.mp4")
}
