package dlna

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/net/ipv4"
)

const (
	ssdpMulticastAddr = "239.255.255.250:1900"
	ssdpMulticastTTL  = 2
	searchTarget      = "urn:schemas-upnp-org:device:MediaRenderer:1"
)

// Discoverer finds MediaRenderer devices on the local network via SSDP
// M-SEARCH and filters them to those exposing an AVTransport service.
type Discoverer struct {
	timeout time.Duration
	client  *http.Client
	log     zerolog.Logger
}

// NewDiscoverer returns a Discoverer that listens for search responses for
// the given window. Description fetches use the same bound per request.
func NewDiscoverer(timeout time.Duration, logger zerolog.Logger) *Discoverer {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Discoverer{
		timeout: timeout,
		client:  &http.Client{Timeout: timeout},
		log:     logger.With().Str("component", "ssdp").Logger(),
	}
}

// Discover multicasts an M-SEARCH for media renderers and collects responses
// until the search window closes. Devices are deduplicated by LOCATION, and
// only those whose description advertises AVTransport:1 are returned, in the
// order their responses arrived. An empty network yields an empty slice, not
// an error.
func (d *Discoverer) Discover(ctx context.Context) ([]Device, error) {
	locations, err := d.search(ctx)
	if err != nil {
		return nil, err
	}

	devices := make([]Device, 0, len(locations))
	for _, loc := range locations {
		dev, err := d.describe(ctx, loc)
		if err != nil {
			d.log.Debug().Err(err).Str("location", loc).Msg("skipping device")
			continue
		}
		d.log.Info().Str("name", dev.FriendlyName).Str("location", loc).Msg("found renderer")
		devices = append(devices, dev)
	}
	return devices, nil
}

// search sends the M-SEARCH and returns unique LOCATION URLs in arrival order.
func (d *Discoverer) search(ctx context.Context) ([]string, error) {
	conn, err := net.ListenPacket("udp4", ":0")
	if err != nil {
		return nil, fmt.Errorf("dlna: ssdp socket: %w", err)
	}
	defer conn.Close()

	p := ipv4.NewPacketConn(conn)
	if err := p.SetMulticastTTL(ssdpMulticastTTL); err != nil {
		d.log.Debug().Err(err).Msg("multicast TTL not set")
	}

	dst, err := net.ResolveUDPAddr("udp4", ssdpMulticastAddr)
	if err != nil {
		return nil, fmt.Errorf("dlna: resolve %s: %w", ssdpMulticastAddr, err)
	}

	mx := int(d.timeout.Seconds())
	if mx < 1 {
		mx = 1
	}
	if mx > 5 {
		mx = 5
	}
	request := "M-SEARCH * HTTP/1.1\r\n" +
		"HOST: " + ssdpMulticastAddr + "\r\n" +
		"MAN: \"ssdp:discover\"\r\n" +
		"MX: " + fmt.Sprintf("%d", mx) + "\r\n" +
		"ST: " + searchTarget + "\r\n" +
		"\r\n"
	if _, err := conn.WriteTo([]byte(request), dst); err != nil {
		return nil, fmt.Errorf("dlna: send M-SEARCH: %w", err)
	}

	deadline := time.Now().Add(d.timeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		deadline = ctxDeadline
	}
	return collectLocations(ctx, conn, deadline)
}

// collectLocations reads search responses from conn until deadline, keeping
// unique LOCATION URLs in arrival order. Several renderers answer the same
// M-SEARCH more than once; repeats collapse to the first arrival.
func collectLocations(ctx context.Context, conn net.PacketConn, deadline time.Time) ([]string, error) {
	conn.SetReadDeadline(deadline)

	seen := make(map[string]bool)
	var locations []string
	buf := make([]byte, 4096)
	for {
		if err := ctx.Err(); err != nil {
			return locations, err
		}
		n, _, err := conn.ReadFrom(buf)
		if err != nil {
			if isTimeout(err) {
				return locations, nil
			}
			return locations, fmt.Errorf("dlna: ssdp read: %w", err)
		}
		loc, ok := parseSearchResponse(string(buf[:n]))
		if !ok || seen[loc] {
			continue
		}
		seen[loc] = true
		locations = append(locations, loc)
	}
}

// describe fetches a device description and keeps the device only when it
// carries an AVTransport service.
func (d *Discoverer) describe(ctx context.Context, location string) (Device, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
	if err != nil {
		return Device{}, fmt.Errorf("dlna: describe %s: %w", location, err)
	}
	resp, err := d.client.Do(req)
	if err != nil {
		return Device{}, fmt.Errorf("dlna: describe %s: %w", location, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Device{}, fmt.Errorf("dlna: describe %s: status %d", location, resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Device{}, fmt.Errorf("dlna: describe %s: %w", location, err)
	}

	description := string(body)
	controlURL, err := ResolveControlURL(location, description, ServiceType)
	if err != nil {
		return Device{}, err
	}

	name := friendlyName(description)
	if name == "" {
		name = location
	}
	return Device{
		FriendlyName: name,
		Location:     location,
		ControlURL:   controlURL,
	}, nil
}

// parseSearchResponse extracts the LOCATION header from an SSDP search
// response. Only 200 responses count; header names match case-insensitively.
func parseSearchResponse(message string) (string, bool) {
	lines := strings.Split(message, "\r\n")
	if len(lines) == 0 || !strings.Contains(lines[0], "200") || !strings.HasPrefix(lines[0], "HTTP/") {
		return "", false
	}
	for _, line := range lines[1:] {
		name, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		if strings.EqualFold(strings.TrimSpace(name), "LOCATION") {
			loc := strings.TrimSpace(value)
			if loc != "" {
				return loc, true
			}
		}
	}
	return "", false
}

func isTimeout(err error) bool {
	netErr, ok := err.(net.Error)
	return ok && netErr.Timeout()
}
