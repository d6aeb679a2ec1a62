package media

import (
	"sync"

	"github.com/pion/webrtc/v4"
)

// Track wraps a local media track with the bits pion does not model for us:
// an enabled flag (sample writers must skip disabled tracks), a stop hook
// that releases the capture source, and an ended callback fired when the
// source shuts down on its own (the "stop sharing" button equivalent).
type Track struct {
	local webrtc.TrackLocal

	mu       sync.Mutex
	enabled  bool
	onEnded  func()
	stop     func()
	stopOnce sync.Once
}

// NewTrack wraps local. stop releases the underlying capture and may be nil.
func NewTrack(local webrtc.TrackLocal, stop func()) *Track {
	return &Track{local: local, enabled: true, stop: stop}
}

// Local returns the wrapped track for handing to a peer connection.
func (t *Track) Local() webrtc.TrackLocal {
	return t.local
}

// Kind reports whether this is an audio or video track.
func (t *Track) Kind() webrtc.RTPCodecType {
	return t.local.Kind()
}

// Enabled reports whether samples should currently be produced.
func (t *Track) Enabled() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.enabled
}

// SetEnabled flips production in place. The capture source keeps running;
// nothing is renegotiated.
func (t *Track) SetEnabled(enabled bool) {
	t.mu.Lock()
	t.enabled = enabled
	t.mu.Unlock()
}

// OnEnded registers a callback for when the capture source ends externally.
func (t *Track) OnEnded(fn func()) {
	t.mu.Lock()
	t.onEnded = fn
	t.mu.Unlock()
}

// EndedExternally is invoked by providers when the source shuts down outside
// our control. It fires the registered callback once.
func (t *Track) EndedExternally() {
	t.mu.Lock()
	fn := t.onEnded
	t.onEnded = nil
	t.mu.Unlock()

	if fn != nil {
		fn()
	}
}

// Stop releases the capture source. Safe to call multiple times.
func (t *Track) Stop() {
	t.stopOnce.Do(func() {
		if t.stop != nil {
			t.stop()
		}
	})
}

// Stream is the set of tracks produced by one capture source: camera plus
// microphone, or a screen grab.
type Stream struct {
	Audio *Track
	Video *Track
}

// Tracks returns the stream's tracks in a stable order, audio first.
func (s *Stream) Tracks() []*Track {
	var out []*Track
	if s.Audio != nil {
		out = append(out, s.Audio)
	}
	if s.Video != nil {
		out = append(out, s.Video)
	}
	return out
}

// Stop releases every track in the stream.
func (s *Stream) Stop() {
	for _, t := range s.Tracks() {
		t.Stop()
	}
}
