// Package media defines the file model shared across the index: the
// classification of paths into images, videos, and everything else, plus
// the File record scans persist. Classification is extension-based and
// case-insensitive; unknown extensions participate in exact matching
// only.
package media
