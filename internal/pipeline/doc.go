// Package pipeline manages the FFmpeg capture pipeline. A single
// subprocess owns the camera at any time: a preview-only pipeline while
// the session is idle at the lens, swapped for a tee pipeline that adds
// an encoded byte stream on stdout while a recording is active.
package pipeline
