// Package probe runs ffprobe as a decode check on media files that passed
// the basic filesystem checks.
//
// A file is healthy when ffprobe lists at least one audio or video stream.
// Any tool error, timeout, or empty listing marks the file CORRUPTED.
// Probing is sequential: one subprocess at a time.
package probe
