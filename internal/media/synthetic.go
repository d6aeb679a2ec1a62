package media

import (
	"fmt"
	"time"

	"github.com/pion/webrtc/v4"
	pionmedia "github.com/pion/webrtc/v4/pkg/media"
)

const (
	audioFrameInterval = 20 * time.Millisecond
	videoFrameInterval = 100 * time.Millisecond
)

// SyntheticProvider produces silence and blank frames instead of touching
// real devices. It backs the headless CLI client and keeps the rest of the
// meeting core runnable in environments without capture hardware.
type SyntheticProvider struct {
	streamID string
	seq      int
}

// NewSyntheticProvider creates a provider whose tracks share the given
// stream id.
func NewSyntheticProvider(streamID string) *SyntheticProvider {
	return &SyntheticProvider{streamID: streamID}
}

// UserMedia returns a synthetic microphone and/or camera stream.
func (p *SyntheticProvider) UserMedia(video, audio bool) (*Stream, error) {
	stream := &Stream{}

	if audio {
		track, err := p.newSampleTrack(webrtc.MimeTypeOpus, "audio", audioFrameInterval)
		if err != nil {
			return nil, err
		}
		stream.Audio = track
	}

	if video {
		track, err := p.newSampleTrack(webrtc.MimeTypeVP8, "video", videoFrameInterval)
		if err != nil {
			stream.Stop()
			return nil, err
		}
		stream.Video = track
	}

	return stream, nil
}

// DisplayMedia returns a synthetic screen stream.
func (p *SyntheticProvider) DisplayMedia() (*Stream, error) {
	track, err := p.newSampleTrack(webrtc.MimeTypeVP8, "screen", videoFrameInterval)
	if err != nil {
		return nil, err
	}
	return &Stream{Video: track}, nil
}

// newSampleTrack builds a sample track plus a writer goroutine that pushes
// placeholder frames while the track is enabled.
func (p *SyntheticProvider) newSampleTrack(mimeType, kind string, interval time.Duration) (*Track, error) {
	p.seq++
	local, err := webrtc.NewTrackLocalStaticSample(
		webrtc.RTPCodecCapability{MimeType: mimeType},
		fmt.Sprintf("%s-%d", kind, p.seq),
		p.streamID,
	)
	if err != nil {
		return nil, err
	}

	done := make(chan struct{})
	track := NewTrack(local, func() { close(done) })

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		frame := make([]byte, 16)
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				if !track.Enabled() {
					continue
				}
				// Write errors before the connection is up are expected.
				_ = local.WriteSample(pionmedia.Sample{Data: frame, Duration: interval})
			}
		}
	}()

	return track, nil
}
