package service

import "errors"

var (
	ErrClipNotFound      = errors.New("clip not found")
	ErrInvalidFrameIndex = errors.New("invalid frame index")
	ErrNotEnoughFrames   = errors.New("not enough frames")
	ErrEncodeTimeout     = errors.New("encode timeout")
)
