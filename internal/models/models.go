package models

import (
	"time"
)

// TODO: split into different files when become too big

const (
	// DefaultDeviceID is used when the device
	// doesn't introduce itself.
	DefaultDeviceID = "esp32-cam"
)

// Clip is the metadata record persisted
// as clip.json inside the clip directory.
type Clip struct {
	ID         string     `json:"clipId"`
	DeviceID   string     `json:"deviceId"`
	Reason     string     `json:"reason"`
	StartedAt  time.Time  `json:"startedAt"`
	EndedAt    *time.Time `json:"endedAt"`
	FrameCount int        `json:"frameCount"`
	HasAudio   bool       `json:"hasAudio"`
}

// Ended reports whether the clip was finalized.
func (c Clip) Ended() bool {
	return c.EndedAt != nil
}

// ClipHandle is returned by clip start. It tells
// the device where to push frames and audio next.
type ClipHandle struct {
	ClipID         string `json:"clipId"`
	UploadFrameURL string `json:"uploadFrameUrl"`
	UploadAudioURL string `json:"uploadAudioUrl"`
	EndURL         string `json:"endUrl"`
}

// FrameRef points to a single stored frame.
type FrameRef struct {
	Index    int    `json:"index"`
	FileName string `json:"fileName"`
	URL      string `json:"url"`
}

// ClipView is the full clip representation:
// metadata plus references to every stored asset.
type ClipView struct {
	Clip
	Frames   []FrameRef `json:"frames"`
	AudioURL string     `json:"audioUrl,omitempty"`
	VideoURL string     `json:"videoUrl,omitempty"`
}

// ClipSummary is the listing representation.
// FrameCount here is recomputed from disk,
// not taken from the stored record.
type ClipSummary struct {
	Clip
	PreviewURL string `json:"previewUrl,omitempty"`
}

// VideoResult describes an assembled video file.
type VideoResult struct {
	ClipID   string `json:"clipId,omitempty"`
	FileName string `json:"fileName"`
	URL      string `json:"url"`
}

// URL helpers. The /media prefix is served statically
// from the media root, so these must mirror the
// on-disk layout exactly.

func FrameURL(clipID, fileName string) string {
	return "/media/clips/" + clipID + "/frames/" + fileName
}

func AudioURL(clipID string) string {
	return "/media/clips/" + clipID + "/audio.wav"
}

func VideoURL(clipID string) string {
	return "/media/clips/" + clipID + "/clip.mp4"
}

func UploadURL(fileName string) string {
	return "/media/uploads/" + fileName
}

func UploadFrameEndpoint(clipID string) string {
	return "/clip/" + clipID + "/frame"
}

func UploadAudioEndpoint(clipID string) string {
	return "/clip/" + clipID + "/audio"
}

func EndEndpoint(clipID string) string {
	return "/clip/" + clipID + "/end"
}
