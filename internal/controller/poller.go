package controller

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	pollTicksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "localcast_poll_ticks_total",
		Help: "Status poll cycles run against the renderer.",
	})
	pollErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "localcast_poll_errors_total",
		Help: "Status poll cycles that failed and were skipped.",
	})
)

// startPollerLocked replaces any running poller with a fresh one bound to
// controlURL. Caller holds c.mu.
func (c *Controller) startPollerLocked(controlURL string) {
	if c.pollCancel != nil {
		c.pollCancel()
	}
	ctx, cancel := context.WithCancel(context.Background())
	c.pollCancel = cancel
	go c.poll(ctx, controlURL)
}

// poll refreshes position and transport state once a second until its
// context is cancelled. Each call commits on its own success; a renderer
// that answers only one of the two still gets that half reflected. A fully
// failed cycle is logged and skipped; the renderer being slow or briefly
// unreachable must not kill the session.
func (c *Controller) poll(ctx context.Context, controlURL string) {
	log := c.log.With().Str("component", "poller").Logger()
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		pollTicksTotal.Inc()

		pos, posErr := c.av.PositionInfo(ctx, controlURL)
		state, stateErr := c.av.TransportInfo(ctx, controlURL)
		if posErr != nil || stateErr != nil {
			pollErrorsTotal.Inc()
			log.Debug().AnErr("position", posErr).AnErr("transport", stateErr).Msg("poll cycle degraded")
		}
		if posErr != nil && stateErr != nil {
			continue
		}

		c.mu.Lock()
		if ctx.Err() != nil {
			// Cancelled while the requests were in flight; the session
			// has moved on and this result no longer describes it.
			c.mu.Unlock()
			return
		}
		if posErr == nil {
			c.position = pos
		}
		if stateErr == nil {
			c.state = state
		}
		c.publishLocked()
		c.mu.Unlock()
	}
}
