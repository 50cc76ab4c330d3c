// Package preview mirrors the live camera feed to browsers over
// WebRTC. The capture pipeline pushes RTP to a loopback socket; a hub
// fans the packets out to however many peers are watching. The mirror
// is monitor-only: it never touches the recording path.
package preview
