// Package controller owns the playback session: the selected file, the
// discovered renderers, the media server instance, and the renderer's last
// reported transport state.
package controller

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/wysentanu/localcast/internal/dlna"
	"github.com/wysentanu/localcast/internal/media"
	"github.com/wysentanu/localcast/internal/mediaserver"
	"github.com/wysentanu/localcast/internal/netutil"
)

// Discoverer finds renderers. Satisfied by *dlna.Discoverer; tests inject
// fakes.
type Discoverer interface {
	Discover(ctx context.Context) ([]dlna.Device, error)
}

// FileInfo is the selected file as shown to API clients.
type FileInfo struct {
	Name string `json:"name"`
	Path string `json:"path"`
	MIME string `json:"mime"`
	Size int64  `json:"size"`
}

// Status is a complete snapshot of the session. Every change publishes a
// fresh one; consumers never see partial state.
type Status struct {
	SessionID    string        `json:"session_id"`
	File         *FileInfo     `json:"file,omitempty"`
	Devices      []dlna.Device `json:"devices"`
	Device       *dlna.Device  `json:"selected_device,omitempty"`
	StreamURL    string        `json:"stream_url,omitempty"`
	State        string        `json:"state"`
	StateLabel   string        `json:"state_label"`
	ElapsedSecs  int64         `json:"elapsed_secs"`
	DurationSecs int64         `json:"duration_secs"`
	Elapsed      string        `json:"elapsed"`
	Duration     string        `json:"duration"`
	Progress     float64       `json:"progress"`
}

// Options configures a Controller.
type Options struct {
	// Port is the media server listen port; 0 picks an ephemeral port.
	Port int
	// Discoverer locates renderers on the network.
	Discoverer Discoverer
	// AVTransport drives the selected renderer.
	AVTransport *dlna.AVTransport
	Logger      zerolog.Logger
}

// Controller serializes session mutations behind one mutex. The mutex is
// never held across network or disk I/O: commands snapshot what they need,
// do the slow work unlocked, then revalidate against the generation counter
// before committing. A command whose generation went stale lost to a later
// command and discards its result silently.
type Controller struct {
	mu  sync.Mutex
	gen uint64

	sessionID string
	file      *media.File
	devices   []dlna.Device
	selected  *dlna.Device
	server    *mediaserver.Server
	streamURL string
	state     dlna.PlaybackState
	position  dlna.PositionInfo

	pollCancel context.CancelFunc

	port       int
	discoverer Discoverer
	av         *dlna.AVTransport
	bus        *Bus
	log        zerolog.Logger
}

func New(opts Options) *Controller {
	return &Controller{
		sessionID:  uuid.NewString(),
		state:      dlna.StateNoMedia,
		port:       opts.Port,
		discoverer: opts.Discoverer,
		av:         opts.AVTransport,
		bus:        NewBus(),
		log:        opts.Logger.With().Str("component", "controller").Logger(),
	}
}

// Subscribe returns a channel of Status snapshots and a cancel func.
func (c *Controller) Subscribe() (<-chan Status, func()) {
	return c.bus.Subscribe()
}

// Status returns the current snapshot.
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Controller) snapshotLocked() Status {
	s := Status{
		SessionID:    c.sessionID,
		Devices:      append([]dlna.Device(nil), c.devices...),
		StreamURL:    c.streamURL,
		State:        string(c.state),
		StateLabel:   c.state.Label(),
		ElapsedSecs:  c.position.ElapsedSecs,
		DurationSecs: c.position.DurationSecs,
		Elapsed:      c.position.ElapsedDisplay(),
		Duration:     c.position.DurationDisplay(),
		Progress:     c.position.ProgressRatio(),
	}
	if c.file != nil {
		s.File = &FileInfo{Name: c.file.Name, Path: c.file.Path, MIME: c.file.MIME, Size: c.file.Size}
	}
	if c.selected != nil {
		dev := *c.selected
		s.Device = &dev
	}
	return s
}

func (c *Controller) publishLocked() {
	c.bus.Publish(c.snapshotLocked())
}

// SelectFile validates path, starts a media server for it, and replaces any
// previous one. The old server is fully stopped before the new one starts
// so a fixed port can be reused.
func (c *Controller) SelectFile(ctx context.Context, path string) error {
	f, err := media.Probe(path)
	if err != nil {
		return wrapProbe(path, err)
	}

	c.mu.Lock()
	gen := c.gen
	old := c.server
	c.mu.Unlock()

	if old != nil {
		old.Stop()
	}
	srv, err := mediaserver.Start(f, c.port, c.log)
	if err != nil {
		return newError(KindMediaServerError, path, err)
	}

	c.mu.Lock()
	if c.gen != gen {
		c.mu.Unlock()
		srv.Stop()
		return nil
	}
	c.gen++
	c.file = f
	c.server = srv
	c.selected = nil
	c.streamURL = ""
	c.position = dlna.PositionInfo{}
	c.publishLocked()
	c.mu.Unlock()

	c.log.Info().Str("file", f.Name).Int("port", srv.Port()).Msg("file selected")
	return nil
}

// Discover searches the network and replaces the device list. Any previous
// device selection is cleared, since its index no longer means anything.
// An empty result is a valid outcome, not an error; UIs surface it as
// KindNoDevicesFound via ErrNoDevices.
func (c *Controller) Discover(ctx context.Context) ([]dlna.Device, error) {
	c.mu.Lock()
	gen := c.gen
	c.mu.Unlock()

	devices, err := c.discoverer.Discover(ctx)
	if err != nil {
		return nil, newError(KindNetworkError, "discovery failed", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen != gen {
		return devices, nil
	}
	c.gen++
	c.devices = devices
	c.selected = nil
	c.publishLocked()
	return devices, nil
}

// SelectDevice picks a renderer from the last discovery by index.
func (c *Controller) SelectDevice(index int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if index < 0 || index >= len(c.devices) {
		return newError(KindInvalidArgument,
			fmt.Sprintf("device index %d out of range (have %d)", index, len(c.devices)), nil)
	}
	c.gen++
	dev := c.devices[index]
	c.selected = &dev
	c.publishLocked()
	c.log.Info().Str("device", dev.FriendlyName).Msg("device selected")
	return nil
}

// Cast pushes the selected file's stream URL to the selected renderer and
// starts playback plus the status poller.
func (c *Controller) Cast(ctx context.Context) error {
	c.mu.Lock()
	gen := c.gen
	f := c.file
	dev := c.selected
	srv := c.server
	c.mu.Unlock()

	if f == nil || srv == nil {
		return newError(KindInvalidArgument, "no file selected", nil)
	}
	if dev == nil {
		return newError(KindInvalidArgument, "no device selected", nil)
	}

	host, err := controlHost(dev.ControlURL)
	if err != nil {
		return newError(KindInvalidArgument, dev.ControlURL, err)
	}
	localIP, err := netutil.LocalIPFor(host)
	if err != nil {
		return newError(KindNetworkError, "no route to renderer", err)
	}
	streamURL := srv.StreamURL(localIP)

	didl := dlna.BuildDIDL(f.Name, streamURL, f.MIME, f.Size)
	if err := c.av.SetURI(ctx, dev.ControlURL, streamURL, didl); err != nil {
		return wrapAction("SetAVTransportURI", err)
	}
	if err := c.av.Play(ctx, dev.ControlURL); err != nil {
		return wrapAction("Play", err)
	}

	c.mu.Lock()
	if c.gen != gen {
		c.mu.Unlock()
		return nil
	}
	c.gen++
	c.streamURL = streamURL
	c.state = dlna.StatePlaying
	c.position = dlna.PositionInfo{}
	c.startPollerLocked(dev.ControlURL)
	c.publishLocked()
	c.mu.Unlock()

	c.log.Info().Str("device", dev.FriendlyName).Str("url", streamURL).Msg("casting")
	return nil
}

// Play resumes playback on the selected renderer.
func (c *Controller) Play(ctx context.Context) error {
	dev, gen, err := c.requireDevice()
	if err != nil {
		return err
	}
	if err := c.av.Play(ctx, dev.ControlURL); err != nil {
		return wrapAction("Play", err)
	}
	c.commitState(gen, dlna.StatePlaying, false)
	return nil
}

// Pause pauses playback on the selected renderer.
func (c *Controller) Pause(ctx context.Context) error {
	dev, gen, err := c.requireDevice()
	if err != nil {
		return err
	}
	if err := c.av.Pause(ctx, dev.ControlURL); err != nil {
		return wrapAction("Pause", err)
	}
	c.commitState(gen, dlna.StatePaused, false)
	return nil
}

// Stop halts playback on the selected renderer and cancels the poller.
func (c *Controller) Stop(ctx context.Context) error {
	dev, gen, err := c.requireDevice()
	if err != nil {
		return err
	}
	if err := c.av.Stop(ctx, dev.ControlURL); err != nil {
		return wrapAction("Stop", err)
	}
	c.commitState(gen, dlna.StateStopped, true)
	return nil
}

// Leave halts playback if a session is active and cancels the poller, but
// keeps the file bound and the media server running so a new cast can
// follow immediately.
func (c *Controller) Leave(ctx context.Context) error {
	c.mu.Lock()
	gen := c.gen
	dev := c.selected
	c.mu.Unlock()

	if dev != nil {
		if err := c.av.Stop(ctx, dev.ControlURL); err != nil {
			c.log.Debug().Err(err).Msg("renderer stop on leave")
		}
	}
	c.commitState(gen, dlna.StateStopped, true)
	return nil
}

// commitState records the outcome of a transport command. A command whose
// generation moved while its request was in flight lost to a later command
// and discards the commit.
func (c *Controller) commitState(gen uint64, state dlna.PlaybackState, cancelPoller bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen != gen {
		return
	}
	c.gen++
	c.state = state
	if cancelPoller && c.pollCancel != nil {
		c.pollCancel()
		c.pollCancel = nil
	}
	c.publishLocked()
}

// Seek jumps to an absolute position, clamped to the known duration.
func (c *Controller) Seek(ctx context.Context, positionSecs int64) error {
	dev, _, err := c.requireDevice()
	if err != nil {
		return err
	}

	c.mu.Lock()
	duration := c.position.DurationSecs
	c.mu.Unlock()

	if positionSecs < 0 {
		positionSecs = 0
	}
	if duration > 0 && positionSecs > duration {
		positionSecs = duration
	}
	return wrapAction("Seek", c.av.Seek(ctx, dev.ControlURL, positionSecs))
}

// SeekRelative jumps by a signed offset from the last known position.
func (c *Controller) SeekRelative(ctx context.Context, deltaSecs int64) error {
	c.mu.Lock()
	elapsed := c.position.ElapsedSecs
	c.mu.Unlock()
	return c.Seek(ctx, elapsed+deltaSecs)
}

// Shutdown stops the poller, tells the renderer to stop, and tears down the
// media server.
func (c *Controller) Shutdown(ctx context.Context) {
	c.mu.Lock()
	c.gen++
	if c.pollCancel != nil {
		c.pollCancel()
		c.pollCancel = nil
	}
	dev := c.selected
	srv := c.server
	c.server = nil
	c.mu.Unlock()

	if dev != nil {
		if err := c.av.Stop(ctx, dev.ControlURL); err != nil {
			c.log.Debug().Err(err).Msg("renderer stop on shutdown")
		}
	}
	if srv != nil {
		srv.Stop()
	}
	c.log.Info().Msg("session closed")
}

// requireDevice snapshots the selected device and the current generation so
// the caller can commit its result only if no newer command ran meanwhile.
func (c *Controller) requireDevice() (dlna.Device, uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.selected == nil {
		return dlna.Device{}, 0, newError(KindInvalidArgument, "no device selected", nil)
	}
	return *c.selected, c.gen, nil
}

func controlHost(controlURL string) (string, error) {
	u, err := url.Parse(controlURL)
	if err != nil {
		return "", err
	}
	host := u.Hostname()
	if host == "" {
		return "", fmt.Errorf("controller: control URL %q has no host", controlURL)
	}
	return host, nil
}

// pollInterval is how often the poller asks the renderer for position and
// transport state.
const pollInterval = time.Second
