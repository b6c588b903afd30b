package media

import (
	"path/filepath"
	"strings"
	"time"
)

// Kind classifies a media file by its container family.
type Kind string

const (
	KindImage Kind = "image"
	KindVideo Kind = "video"
	KindOther Kind = "other"
)

var imageExts = map[string]struct{}{
	".jpg": {}, ".jpeg": {}, ".png": {}, ".webp": {}, ".gif": {},
	".heic": {}, ".heif": {}, ".tif": {}, ".tiff": {}, ".bmp": {},
}

var rawExts = map[string]struct{}{
	".cr2": {}, ".nef": {}, ".arw": {}, ".dng": {},
	".raf": {}, ".rw2": {}, ".orf": {}, ".srw": {},
}

var videoExts = map[string]struct{}{
	".mov": {}, ".mp4": {}, ".m4v": {}, ".mkv": {}, ".avi": {}, ".hevc": {},
}

// Ext returns the lowercased extension of path, including the leading dot.
func Ext(path string) string {
	return strings.ToLower(filepath.Ext(path))
}

// Classify returns the media kind for a file path based on its extension.
// Camera RAW formats classify as images; their embedded previews decode
// through the image path.
func Classify(path string) Kind {
	ext := Ext(path)
	if _, ok := imageExts[ext]; ok {
		return KindImage
	}
	if _, ok := rawExts[ext]; ok {
		return KindImage
	}
	if _, ok := videoExts[ext]; ok {
		return KindVideo
	}
	return KindOther
}

// IsRaw reports whether the path carries a camera RAW extension.
func IsRaw(path string) bool {
	_, ok := rawExts[Ext(path)]
	return ok
}

// FileRef identifies a scanned file. Path is absolute and NFC-normalized;
// Size and ModTime come from the stat at walk time and, together with the
// content digest, key incremental re-scans.
type FileRef struct {
	Path    string
	Size    int64
	ModTime time.Time
	Kind    Kind
}

// Details carries decode-time metadata used for reporting and the
// suggested-keep policy. Zero values mean unknown.
type Details struct {
	Width       int
	Height      int
	BitrateKbps int
	DurationMs  int64
}

// PixelCount returns the total pixels, the quality signal for images.
func (d Details) PixelCount() int64 {
	return int64(d.Width) * int64(d.Height)
}

// File combines the stable reference with extraction details and the
// database identity assigned by the store.
type File struct {
	ID int64
	FileRef
	Details
}

// QualityScore ranks a file for the suggested-keep policy: pixel count for
// images, bitrate for videos. Higher is better.
func (f File) QualityScore() int64 {
	if f.Kind == KindVideo {
		return int64(f.BitrateKbps)
	}
	return f.PixelCount()
}
