package media

import (
	"fmt"
	"log/slog"
	"sync"
)

// State is a snapshot of the local media flags, shared with remote
// participants so they can render mute and share indicators.
type State struct {
	AudioOn       bool
	VideoOn       bool
	SharingScreen bool
}

// Controller owns the local capture sources for one meeting and is the
// single writer of their enablement and video source. Peer sessions only
// consume the tracks it hands out.
type Controller struct {
	provider Provider

	mu      sync.Mutex
	camera  *Stream
	screen  *Stream
	audioOn bool
	videoOn bool
	sharing bool
	started bool

	onVideoSource func(*Track)
	onChange      func(State)
}

// NewController creates a controller backed by the given capture provider.
func NewController(provider Provider) *Controller {
	return &Controller{provider: provider}
}

// OnVideoSource registers the hook invoked whenever the outbound video
// source changes (screen share on/off). The meeting layer uses it to replace
// the sent track on every active session without renegotiating.
func (c *Controller) OnVideoSource(fn func(*Track)) {
	c.mu.Lock()
	c.onVideoSource = fn
	c.mu.Unlock()
}

// OnChange registers the hook invoked after every state flip.
func (c *Controller) OnChange(fn func(State)) {
	c.mu.Lock()
	c.onChange = fn
	c.mu.Unlock()
}

// Start acquires the camera and microphone. Called when the meeting room
// mounts, before any peer session exists.
func (c *Controller) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.started {
		return nil
	}

	stream, err := c.provider.UserMedia(true, true)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMediaAccess, err)
	}

	c.camera = stream
	c.audioOn = stream.Audio != nil
	c.videoOn = stream.Video != nil
	c.started = true
	return nil
}

// State returns the current flags.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return State{AudioOn: c.audioOn, VideoOn: c.videoOn, SharingScreen: c.sharing}
}

// Tracks returns the outbound track set in a stable order: microphone audio
// first, then the active video source (camera or screen, never both).
func (c *Controller) Tracks() []*Track {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tracksLocked()
}

func (c *Controller) tracksLocked() []*Track {
	var out []*Track
	if c.camera != nil && c.camera.Audio != nil {
		out = append(out, c.camera.Audio)
	}
	if v := c.videoTrackLocked(); v != nil {
		out = append(out, v)
	}
	return out
}

func (c *Controller) videoTrackLocked() *Track {
	if c.sharing && c.screen != nil {
		return c.screen.Video
	}
	if c.camera != nil {
		return c.camera.Video
	}
	return nil
}

// ToggleAudio flips the microphone track's enabled flag in place and returns
// the new state. No capture restart, no renegotiation.
func (c *Controller) ToggleAudio() bool {
	c.mu.Lock()
	if c.camera == nil || c.camera.Audio == nil {
		c.mu.Unlock()
		return false
	}
	c.audioOn = !c.audioOn
	c.camera.Audio.SetEnabled(c.audioOn)
	on, notify := c.audioOn, c.onChange
	st := State{AudioOn: c.audioOn, VideoOn: c.videoOn, SharingScreen: c.sharing}
	c.mu.Unlock()

	if notify != nil {
		notify(st)
	}
	return on
}

// ToggleVideo flips the camera track's enabled flag in place and returns the
// new state.
func (c *Controller) ToggleVideo() bool {
	c.mu.Lock()
	if c.camera == nil || c.camera.Video == nil {
		c.mu.Unlock()
		return false
	}
	c.videoOn = !c.videoOn
	c.camera.Video.SetEnabled(c.videoOn)
	on, notify := c.videoOn, c.onChange
	st := State{AudioOn: c.audioOn, VideoOn: c.videoOn, SharingScreen: c.sharing}
	c.mu.Unlock()

	if notify != nil {
		notify(st)
	}
	return on
}

// ToggleScreenShare swaps the outbound video source between camera and
// screen. The swap is a plain track replacement on every session; no new
// offer/answer round-trip happens. A capture failure aborts the toggle and
// leaves the previous state untouched.
func (c *Controller) ToggleScreenShare() (bool, error) {
	c.mu.Lock()
	sharing := c.sharing
	c.mu.Unlock()

	if !sharing {
		return c.startScreenShare()
	}
	return c.stopScreenShare()
}

func (c *Controller) startScreenShare() (bool, error) {
	screen, err := c.provider.DisplayMedia()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrMediaAccess, err)
	}
	if screen.Video == nil {
		screen.Stop()
		return false, fmt.Errorf("%w: display capture produced no video", ErrMediaAccess)
	}

	c.mu.Lock()
	c.screen = screen
	c.sharing = true
	swap, notify := c.onVideoSource, c.onChange
	st := State{AudioOn: c.audioOn, VideoOn: c.videoOn, SharingScreen: true}
	c.mu.Unlock()

	// The native "stop sharing" affordance ends the track from outside;
	// route it through the same reversal path as a manual toggle.
	screen.Video.OnEnded(func() {
		if _, err := c.stopScreenShare(); err != nil {
			slog.Error("screen share revert failed", "err", err)
		}
	})

	if swap != nil {
		swap(screen.Video)
	}
	if notify != nil {
		notify(st)
	}
	return true, nil
}

func (c *Controller) stopScreenShare() (bool, error) {
	c.mu.Lock()
	if !c.sharing {
		c.mu.Unlock()
		return false, nil
	}
	c.mu.Unlock()

	camera, err := c.provider.UserMedia(true, false)
	if err != nil {
		return true, fmt.Errorf("%w: %v", ErrMediaAccess, err)
	}

	c.mu.Lock()
	screen := c.screen
	c.screen = nil
	c.sharing = false
	if c.camera != nil && c.camera.Video != nil {
		c.camera.Video.Stop()
	}
	if c.camera == nil {
		c.camera = camera
	} else {
		c.camera.Video = camera.Video
	}
	c.camera.Video.SetEnabled(c.videoOn)
	swap, notify := c.onVideoSource, c.onChange
	st := State{AudioOn: c.audioOn, VideoOn: c.videoOn, SharingScreen: false}
	c.mu.Unlock()

	if swap != nil {
		swap(camera.Video)
	}
	if screen != nil {
		screen.Stop()
	}
	if notify != nil {
		notify(st)
	}
	return false, nil
}

// Stop releases every capture source. Called when the meeting room unmounts;
// teardown is immediate and best-effort.
func (c *Controller) Stop() {
	c.mu.Lock()
	camera, screen := c.camera, c.screen
	c.camera, c.screen = nil, nil
	c.started = false
	c.sharing = false
	c.mu.Unlock()

	if camera != nil {
		camera.Stop()
	}
	if screen != nil {
		screen.Stop()
	}
}
