// Package ffmpeg shells out to ffmpeg and ffprobe for video inspection,
// keyframe extraction and audio decoding.
//
// All invocations honour the caller's context, so per-file extraction
// budgets kill runaway decodes. Failures are classified at this boundary:
// expired deadlines become extraction timeouts, missing binaries become
// external-tool errors, and nonzero exits on bad input become decode
// errors.
package ffmpeg
