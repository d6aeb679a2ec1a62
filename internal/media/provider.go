package media

import "errors"

// ErrMediaAccess is returned when a capture device is denied or unavailable.
// The requested toggle aborts and prior state stays intact.
var ErrMediaAccess = errors.New("media capture unavailable")

// Provider acquires local capture sources. It is the only part of the
// meeting core that touches devices; everything else consumes tracks.
type Provider interface {
	// UserMedia opens the camera and/or microphone.
	UserMedia(video, audio bool) (*Stream, error)

	// DisplayMedia opens a screen capture source.
	DisplayMedia() (*Stream, error)
}
