// Package mediaserver serves a single local video file over HTTP with the
// byte-range support DLNA renderers need for seeking.
package mediaserver

import (
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/wysentanu/localcast/internal/media"
)

// Server streams one file. Each selected file gets a fresh Server; picking a
// new file replaces the old instance entirely.
type Server struct {
	file *media.File
	port int
	srv  *http.Server
	done chan struct{}
	once sync.Once
	log  zerolog.Logger
}

// Start binds the listener and begins serving f at /media/stream.<ext>.
// Port 0 picks an ephemeral port, reported by Port afterwards.
func Start(f *media.File, port int, logger zerolog.Logger) (*Server, error) {
	ln, err := net.Listen("tcp4", fmt.Sprintf(":%d", port))
	if err != nil {
		return nil, fmt.Errorf("mediaserver: listen on %d: %w", port, err)
	}

	s := &Server{
		file: f,
		port: ln.Addr().(*net.TCPAddr).Port,
		done: make(chan struct{}),
		log:  logger.With().Str("component", "mediaserver").Str("file", f.Name).Logger(),
	}

	r := chi.NewRouter()
	path := "/media/stream." + f.Ext
	r.Get(path, s.handleStream)
	r.Head(path, s.handleStream)

	s.srv = &http.Server{
		Handler:     r,
		ReadTimeout: 30 * time.Second,
		IdleTimeout: 120 * time.Second,
		// WriteTimeout stays zero: a full-length movie stream outlives
		// any sane fixed bound.
	}

	go func() {
		defer close(s.done)
		if err := s.srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.log.Error().Err(err).Msg("serve loop ended")
		}
	}()

	s.log.Info().Int("port", s.port).Msg("media server started")
	return s, nil
}

// Port returns the bound TCP port.
func (s *Server) Port() int {
	return s.port
}

// StreamURL builds the URL a renderer at the far end should fetch, given
// the local address that renderer can reach.
func (s *Server) StreamURL(localIP string) string {
	return fmt.Sprintf("http://%s:%d/media/stream.%s", localIP, s.port, s.file.Ext)
}

// Stop closes the listener, drops in-flight connections, and waits for the
// serve loop to exit. Safe to call more than once.
func (s *Server) Stop() {
	s.once.Do(func() {
		s.srv.Close()
		<-s.done
	})
}

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	size := s.file.Size

	rng, err := parseRange(r.Header.Get("Range"), size)
	if err != nil {
		w.Header().Set("Content-Range", fmt.Sprintf("bytes */%d", size))
		w.WriteHeader(http.StatusRequestedRangeNotSatisfiable)
		requestsTotal.WithLabelValues("416").Inc()
		s.log.Debug().Str("range", r.Header.Get("Range")).Msg("unsatisfiable range")
		return
	}

	w.Header().Set("Content-Type", s.file.MIME)
	w.Header().Set("Accept-Ranges", "bytes")

	start, length := int64(0), size
	status := http.StatusOK
	if rng != nil {
		rangeRequestsTotal.Inc()
		start, length = rng.start, rng.length()
		status = http.StatusPartialContent
		w.Header().Set("Content-Range", fmt.Sprintf("bytes %d-%d/%d", rng.start, rng.end, size))
	}
	w.Header().Set("Content-Length", strconv.FormatInt(length, 10))
	w.WriteHeader(status)
	requestsTotal.WithLabelValues(strconv.Itoa(status)).Inc()

	if r.Method == http.MethodHead {
		return
	}

	file, err := os.Open(s.file.Path)
	if err != nil {
		s.log.Error().Err(err).Msg("open for streaming")
		return
	}
	defer file.Close()

	if start > 0 {
		if _, err := file.Seek(start, io.SeekStart); err != nil {
			s.log.Error().Err(err).Int64("offset", start).Msg("seek")
			return
		}
	}

	n, err := io.CopyN(w, file, length)
	bytesSentTotal.Add(float64(n))
	if err != nil {
		// Renderers drop connections mid-stream constantly; debug only.
		s.log.Debug().Err(err).Int64("sent", n).Msg("stream ended early")
	}
}
