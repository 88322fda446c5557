package controller

import (
	"context"
	"errors"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gofiber/fiber/v2"

	"github.com/clipcam/clipcam/internal/lib/payload"
	"github.com/clipcam/clipcam/internal/models"
	"github.com/clipcam/clipcam/internal/service"
)

func New(
	srvClip Clip,
	srvVideo Video,
) *fiber.App {
	clipCtr := clipController{
		srvClip:  srvClip,
		srvVideo: srvVideo,
	}

	app := fiber.New()

	app.Post("/start", clipCtr.start)
	app.Post("/:clipID/frame", clipCtr.uploadFrame)
	app.Post("/:clipID/audio", clipCtr.uploadAudio)
	app.Post("/:clipID/end", clipCtr.end)
	app.Post("/:clipID/video", clipCtr.makeVideo)
	app.Get("/:clipID", clipCtr.clip)

	return app
}

type clipController struct {
	srvClip  Clip
	srvVideo Video
}

type Clip interface {
	StartClip(ctx context.Context, deviceID, reason string) (models.ClipHandle, error)
	UploadFrame(ctx context.Context, clipID string, data []byte, explicitIndex *int) (models.FrameRef, error)
	UploadAudio(ctx context.Context, clipID string, data []byte) (string, error)
	EndClip(ctx context.Context, clipID string) (int, error)
	Clip(ctx context.Context, clipID string) (models.ClipView, error)
}

type Video interface {
	Assemble(ctx context.Context, clipID string) (models.VideoResult, error)
}

// start creates a fresh clip and returns
// the endpoints to push media to.
func (clipCtr *clipController) start(c *fiber.Ctx) error {
	var request struct {
		DeviceID string `json:"deviceId"`
		Reason   string `json:"reason"`
	}

	// body is optional, both fields have defaults
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&request); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid request body",
			})
		}
	}

	handle, err := clipCtr.srvClip.StartClip(context.TODO(), request.DeviceID, request.Reason)
	if err != nil {
		return c.SendStatus(fiber.StatusInternalServerError)
	}

	return c.Status(fiber.StatusOK).JSON(handle)
}

// uploadFrame stores one frame. Index is optional:
// without it frames are appended sequentially.
func (clipCtr *clipController) uploadFrame(c *fiber.Ctx) error {
	var request struct {
		Image string `json:"image"`
		Index *int   `json:"index"`
	}

	if err := c.BodyParser(&request); err != nil {
		return c.SendStatus(fiber.StatusBadRequest)
	}

	if request.Image == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "no image data received",
		})
	}

	data, err := payload.DecodeBase64(request.Image)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid base64 image data",
		})
	}

	if !strings.HasPrefix(mimetype.Detect(data).String(), "image/") {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "unsupported mime-type",
		})
	}

	clipID := c.Params("clipID")

	frame, err := clipCtr.srvClip.UploadFrame(context.TODO(), clipID, data, request.Index)
	if err != nil {
		if errors.Is(err, service.ErrClipNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "clip not found",
			})
		}
		if errors.Is(err, service.ErrInvalidFrameIndex) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid frame index",
			})
		}
		return c.SendStatus(fiber.StatusInternalServerError)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"clipId":   clipID,
		"fileName": frame.FileName,
		"url":      frame.URL,
	})
}

// uploadAudio overwrites the clip's audio track.
func (clipCtr *clipController) uploadAudio(c *fiber.Ctx) error {
	var request struct {
		Audio string `json:"audio"`
	}

	if err := c.BodyParser(&request); err != nil {
		return c.SendStatus(fiber.StatusBadRequest)
	}

	if request.Audio == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "no audio data received",
		})
	}

	data, err := payload.DecodeBase64(request.Audio)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid base64 audio data",
		})
	}

	clipID := c.Params("clipID")

	url, err := clipCtr.srvClip.UploadAudio(context.TODO(), clipID, data)
	if err != nil {
		if errors.Is(err, service.ErrClipNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "clip not found",
			})
		}
		return c.SendStatus(fiber.StatusInternalServerError)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"clipId": clipID,
		"url":    url,
	})
}

// end finalizes the clip and reports the
// normalized frame count.
func (clipCtr *clipController) end(c *fiber.Ctx) error {
	clipID := c.Params("clipID")

	frameCount, err := clipCtr.srvClip.EndClip(context.TODO(), clipID)
	if err != nil {
		if errors.Is(err, service.ErrClipNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "clip not found",
			})
		}
		return c.SendStatus(fiber.StatusInternalServerError)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"clipId":     clipID,
		"frameCount": frameCount,
	})
}

// makeVideo assembles the clip's frames into clip.mp4.
func (clipCtr *clipController) makeVideo(c *fiber.Ctx) error {
	clipID := c.Params("clipID")

	res, err := clipCtr.srvVideo.Assemble(context.TODO(), clipID)
	if err != nil {
		if errors.Is(err, service.ErrClipNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "clip not found",
			})
		}
		if errors.Is(err, service.ErrNotEnoughFrames) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "not enough frames to make video",
			})
		}
		if errors.Is(err, service.ErrEncodeTimeout) {
			return c.Status(fiber.StatusGatewayTimeout).JSON(fiber.Map{
				"error": "encode timeout",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"clipId":   clipID,
		"videoUrl": res.URL,
	})
}

// clip returns full metadata with frame,
// audio and video references.
func (clipCtr *clipController) clip(c *fiber.Ctx) error {
	clipID := c.Params("clipID")

	view, err := clipCtr.srvClip.Clip(context.TODO(), clipID)
	if err != nil {
		if errors.Is(err, service.ErrClipNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "clip not found",
			})
		}
		return c.SendStatus(fiber.StatusInternalServerError)
	}

	return c.Status(fiber.StatusOK).JSON(view)
}
