package app

import (
	"log/slog"
	"os"
	"time"

	routerApp "github.com/clipcam/clipcam/internal/app/router"
	"github.com/clipcam/clipcam/internal/lib/ffmpeg"
	"github.com/clipcam/clipcam/internal/lib/logger/sl"
	"github.com/clipcam/clipcam/internal/storage/fs"
)

type App struct {
	Router routerApp.App
}

func New(
	log *slog.Logger,
	address string,
	mediaRoot string,
	bodyLimit int,
	frameRate int,
	minFrames int,
	encodeTimeout time.Duration,
) *App {
	storage, err := fs.New(mediaRoot)
	if err != nil {
		log.Error("failed to init storage", sl.Err(err))
		os.Exit(1)
	}

	encoder := ffmpeg.New()
	if err := encoder.Check(); err != nil {
		// video assembly will fail until ffmpeg appears
		// in PATH, everything else keeps working
		log.Warn("ffmpeg unavailable", sl.Err(err))
	}

	routerApp := routerApp.New(
		log,
		storage,
		encoder,
		address,
		bodyLimit,
		frameRate,
		minFrames,
		encodeTimeout,
	)

	return &App{
		Router: *routerApp,
	}
}
