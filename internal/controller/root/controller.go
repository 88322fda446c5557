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
	srvSnapshot Snapshot,
	srvVideo Video,
) *fiber.App {
	rootCtr := rootController{
		srvClip:     srvClip,
		srvSnapshot: srvSnapshot,
		srvVideo:    srvVideo,
	}

	app := fiber.New()

	app.Get("/", rootCtr.home)
	app.Get("/clips", rootCtr.clips)

	// legacy flat-upload surface of the first firmware
	app.Post("/upload", rootCtr.upload)
	app.Get("/make-video", rootCtr.makeVideo)

	return app
}

type rootController struct {
	srvClip     Clip
	srvSnapshot Snapshot
	srvVideo    Video
}

type Clip interface {
	Clips(ctx context.Context) ([]models.ClipSummary, error)
}

type Snapshot interface {
	SaveSnapshot(ctx context.Context, data []byte) (string, string, error)
}

type Video interface {
	AssembleUploads(ctx context.Context) (models.VideoResult, error)
}

func (rootCtr *rootController) home(c *fiber.Ctx) error {
	return c.SendString("Hello from the ESP32 backend!")
}

// clips lists all stored clips, newest first.
func (rootCtr *rootController) clips(c *fiber.Ctx) error {
	summaries, err := rootCtr.srvClip.Clips(context.TODO())
	if err != nil {
		return c.SendStatus(fiber.StatusInternalServerError)
	}

	return c.Status(fiber.StatusOK).JSON(summaries)
}

// upload saves one standalone photo into the flat
// uploads directory.
func (rootCtr *rootController) upload(c *fiber.Ctx) error {
	var request struct {
		Image string `json:"image"`
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

	fileName, url, err := rootCtr.srvSnapshot.SaveSnapshot(context.TODO(), data)
	if err != nil {
		return c.SendStatus(fiber.StatusInternalServerError)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message":  "Image received",
		"fileName": fileName,
		"url":      url,
	})
}

// makeVideo assembles everything in the uploads
// directory into a timestamped mp4.
func (rootCtr *rootController) makeVideo(c *fiber.Ctx) error {
	res, err := rootCtr.srvVideo.AssembleUploads(context.TODO())
	if err != nil {
		if errors.Is(err, service.ErrNotEnoughFrames) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "need at least 2 images to make video",
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
		"message": "Video created",
		"url":     res.URL,
	})
}
