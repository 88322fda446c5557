package storage

import "errors"

var (
	ErrClipNotFound = errors.New("clip not found")
)

// ClipPaths is the resolved on-disk layout of one clip.
// Pure mapping from clip id, never touches disk.
type ClipPaths struct {
	Dir       string
	FramesDir string
	Meta      string
	Audio     string
	Video     string
	Manifest  string
}
