// Package codec decodes image files for fingerprinting.
//
// JPEG, PNG, GIF, WebP, TIFF and BMP decode in process with EXIF
// orientation applied. RAW camera formats decode through the embedded JPEG
// preview extracted with exiftool, which is orders of magnitude cheaper
// than demosaicing and close enough for perceptual hashing.
package codec
