package dlna

import (
	"context"

	"github.com/wysentanu/localcast/internal/dlnatime"
)

// PlaybackState is the raw CurrentTransportState value a renderer reports.
type PlaybackState string

const (
	StateStopped       PlaybackState = "STOPPED"
	StatePlaying       PlaybackState = "PLAYING"
	StatePaused        PlaybackState = "PAUSED_PLAYBACK"
	StateTransitioning PlaybackState = "TRANSITIONING"
	StateNoMedia       PlaybackState = "NO_MEDIA_PRESENT"
	// StateUnknown stands in when the renderer omits the state entirely.
	StateUnknown PlaybackState = "N/A"
)

// Label renders the state for display. Unrecognized wire values pass
// through unchanged so odd renderers stay debuggable.
func (s PlaybackState) Label() string {
	switch s {
	case StateStopped:
		return "Stopped"
	case StatePlaying:
		return "Playing"
	case StatePaused:
		return "Paused"
	case StateTransitioning:
		return "Loading..."
	case StateNoMedia:
		return "No Media"
	default:
		return string(s)
	}
}

// PositionInfo is a renderer's playback clock in whole seconds. Zero
// duration means the renderer has not reported one yet.
type PositionInfo struct {
	ElapsedSecs  int64 `json:"elapsed_secs"`
	DurationSecs int64 `json:"duration_secs"`
}

func (p PositionInfo) ElapsedDisplay() string {
	return dlnatime.Format(p.ElapsedSecs)
}

func (p PositionInfo) DurationDisplay() string {
	return dlnatime.Format(p.DurationSecs)
}

// ProgressRatio is elapsed over duration, clamped to [0, 1].
func (p PositionInfo) ProgressRatio() float64 {
	if p.DurationSecs <= 0 {
		return 0
	}
	r := float64(p.ElapsedSecs) / float64(p.DurationSecs)
	if r < 0 {
		return 0
	}
	if r > 1 {
		return 1
	}
	return r
}

// AVTransport drives a renderer's AVTransport:1 service. All actions use
// instance 0, which is the only instance renderers in the wild expose.
type AVTransport struct {
	soap *SOAPClient
}

func NewAVTransport(soap *SOAPClient) *AVTransport {
	return &AVTransport{soap: soap}
}

// SetURI loads the media URL and its DIDL-Lite metadata into the renderer.
// Some renderers reject any metadata they cannot parse, so a failed attempt
// is retried once with CurrentURIMetaData left empty.
func (t *AVTransport) SetURI(ctx context.Context, controlURL, mediaURL, metadata string) error {
	_, err := t.soap.Invoke(ctx, controlURL, ServiceType, "SetAVTransportURI", [][2]string{
		{"InstanceID", "0"},
		{"CurrentURI", mediaURL},
		{"CurrentURIMetaData", metadata},
	})
	if err == nil || metadata == "" {
		return err
	}

	_, err = t.soap.Invoke(ctx, controlURL, ServiceType, "SetAVTransportURI", [][2]string{
		{"InstanceID", "0"},
		{"CurrentURI", mediaURL},
		{"CurrentURIMetaData", ""},
	})
	return err
}

func (t *AVTransport) Play(ctx context.Context, controlURL string) error {
	_, err := t.soap.Invoke(ctx, controlURL, ServiceType, "Play", [][2]string{
		{"InstanceID", "0"},
		{"Speed", "1"},
	})
	return err
}

func (t *AVTransport) Pause(ctx context.Context, controlURL string) error {
	_, err := t.soap.Invoke(ctx, controlURL, ServiceType, "Pause", [][2]string{
		{"InstanceID", "0"},
	})
	return err
}

func (t *AVTransport) Stop(ctx context.Context, controlURL string) error {
	_, err := t.soap.Invoke(ctx, controlURL, ServiceType, "Stop", [][2]string{
		{"InstanceID", "0"},
	})
	return err
}

// Seek jumps to an absolute position using REL_TIME units.
func (t *AVTransport) Seek(ctx context.Context, controlURL string, positionSecs int64) error {
	_, err := t.soap.Invoke(ctx, controlURL, ServiceType, "Seek", [][2]string{
		{"InstanceID", "0"},
		{"Unit", "REL_TIME"},
		{"Target", dlnatime.Format(positionSecs)},
	})
	return err
}

// PositionInfo reads the renderer's playback clock. Missing or malformed
// time fields decode as zero.
func (t *AVTransport) PositionInfo(ctx context.Context, controlURL string) (PositionInfo, error) {
	values, err := t.soap.Invoke(ctx, controlURL, ServiceType, "GetPositionInfo", [][2]string{
		{"InstanceID", "0"},
	})
	if err != nil {
		return PositionInfo{}, err
	}
	return PositionInfo{
		ElapsedSecs:  dlnatime.Parse(values["RelTime"]),
		DurationSecs: dlnatime.Parse(values["TrackDuration"]),
	}, nil
}

// TransportInfo reads the renderer's transport state.
func (t *AVTransport) TransportInfo(ctx context.Context, controlURL string) (PlaybackState, error) {
	values, err := t.soap.Invoke(ctx, controlURL, ServiceType, "GetTransportInfo", [][2]string{
		{"InstanceID", "0"},
	})
	if err != nil {
		return StateUnknown, err
	}
	state, ok := values["CurrentTransportState"]
	if !ok || state == "" {
		return StateUnknown, nil
	}
	return PlaybackState(state), nil
}
