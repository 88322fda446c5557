package router

import (
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"

	"github.com/clipcam/clipcam/internal/storage/fs"

	clipSrv "github.com/clipcam/clipcam/internal/service/clip"
	snapshotSrv "github.com/clipcam/clipcam/internal/service/snapshot"
	videoSrv "github.com/clipcam/clipcam/internal/service/video"

	clipCtr "github.com/clipcam/clipcam/internal/controller/clip"
	rootCtr "github.com/clipcam/clipcam/internal/controller/root"
)

type App struct {
	log     *slog.Logger
	address string
	app     *fiber.App
}

// New returns configured router.App
func New(
	log *slog.Logger,
	storage *fs.Storage,
	encoder videoSrv.Encoder,
	address string,
	bodyLimit int,
	frameRate int,
	minFrames int,
	encodeTimeout time.Duration,
) *App {
	// Create services
	clip := clipSrv.New(
		log,
		storage,
	)

	video := videoSrv.New(
		log,
		storage,
		encoder,
		frameRate,
		minFrames,
		encodeTimeout,
	)

	snapshot := snapshotSrv.New(
		log,
		storage,
	)

	app := fiber.New(fiber.Config{
		BodyLimit: bodyLimit,
	})

	app.Use(cors.New())

	// raw media assets, existence on disk is the
	// source of truth for audio/video availability
	app.Static("/media", storage.Root())

	// Mount controllers to an app
	app.Mount("/clip", clipCtr.New(clip, video))
	app.Mount("/", rootCtr.New(clip, snapshot, video))

	return &App{
		log:     log,
		address: address,
		app:     app,
	}
}

func (a *App) MustRun() {
	if err := a.Run(); err != nil {
		panic(err)
	}
}

func (a *App) Run() error {
	return a.app.Listen(a.address)
}

func (a *App) Stop() {
	a.app.Shutdown()
}

// Fiber exposes the underlying fiber app
// for in-process testing.
func (a *App) Fiber() *fiber.App {
	return a.app
}
