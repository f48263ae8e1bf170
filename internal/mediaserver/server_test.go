package mediaserver

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wysentanu/localcast/internal/media"
)

// startTestServer serves a generated file whose byte at offset i is i%251,
// so any slice of the payload is checkable.
func startTestServer(t *testing.T, size int) (*Server, []byte) {
	t.Helper()

	payload := make([]byte, size)
	for i := range payload {
		payload[i] = byte(i % 251)
	}
	path := filepath.Join(t.TempDir(), "clip.mp4")
	require.NoError(t, os.WriteFile(path, payload, 0o644))

	f, err := media.Probe(path)
	require.NoError(t, err)

	s, err := Start(f, 0, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(s.Stop)
	return s, payload
}

func (s *Server) testURL() string {
	return s.StreamURL("127.0.0.1")
}

func get(t *testing.T, url, rangeHeader string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, url, nil)
	require.NoError(t, err)
	if rangeHeader != "" {
		req.Header.Set("Range", rangeHeader)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	resp.Body.Close()
	return resp, body
}

func TestFullFile(t *testing.T) {
	s, payload := startTestServer(t, 4096)

	resp, body := get(t, s.testURL(), "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "video/mp4", resp.Header.Get("Content-Type"))
	assert.Equal(t, "bytes", resp.Header.Get("Accept-Ranges"))
	assert.Equal(t, "4096", resp.Header.Get("Content-Length"))
	assert.Equal(t, payload, body)
}

func TestRangeSlices(t *testing.T) {
	s, payload := startTestServer(t, 4096)

	tests := []struct {
		header string
		start  int64
		end    int64
	}{
		{"bytes=0-1023", 0, 1023},
		{"bytes=1024-", 1024, 4095},
		{"bytes=-512", 3584, 4095},
		{"bytes=4000-9999", 4000, 4095},
	}
	for _, tt := range tests {
		resp, body := get(t, s.testURL(), tt.header)
		assert.Equal(t, http.StatusPartialContent, resp.StatusCode, tt.header)
		assert.Equal(t, fmt.Sprintf("bytes %d-%d/4096", tt.start, tt.end), resp.Header.Get("Content-Range"))
		assert.Equal(t, payload[tt.start:tt.end+1], body, tt.header)
	}
}

func TestRangeUnsatisfiable(t *testing.T) {
	s, _ := startTestServer(t, 4096)

	resp, _ := get(t, s.testURL(), "bytes=4096-")
	assert.Equal(t, http.StatusRequestedRangeNotSatisfiable, resp.StatusCode)
	assert.Equal(t, "bytes */4096", resp.Header.Get("Content-Range"))

	resp, _ = get(t, s.testURL(), "bytes=broken")
	assert.Equal(t, http.StatusRequestedRangeNotSatisfiable, resp.StatusCode)
}

func TestHeadOmitsBody(t *testing.T) {
	s, _ := startTestServer(t, 4096)

	resp, err := http.Head(s.testURL())
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "4096", resp.Header.Get("Content-Length"))
	body, _ := io.ReadAll(resp.Body)
	assert.Empty(t, body)
}

func TestUnknownPathIs404(t *testing.T) {
	s, _ := startTestServer(t, 64)

	resp, _ := get(t, fmt.Sprintf("http://127.0.0.1:%d/media/other.mp4", s.Port()), "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestConcurrentDisjointRanges(t *testing.T) {
	const size = 64 * 1024
	s, payload := startTestServer(t, size)

	const parts = 10
	chunk := size / parts
	var wg sync.WaitGroup
	errs := make(chan error, parts)
	for i := 0; i < parts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			start := i * chunk
			end := start + chunk - 1
			resp, body := get(t, s.testURL(), fmt.Sprintf("bytes=%d-%d", start, end))
			if resp.StatusCode != http.StatusPartialContent {
				errs <- fmt.Errorf("part %d: status %d", i, resp.StatusCode)
				return
			}
			if !assert.ObjectsAreEqual(payload[start:end+1], body) {
				errs <- fmt.Errorf("part %d: payload mismatch", i)
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}

func TestStopReleasesPort(t *testing.T) {
	s, _ := startTestServer(t, 64)
	port := s.Port()
	s.Stop()
	s.Stop() // idempotent

	_, err := http.Get(fmt.Sprintf("http://127.0.0.1:%d/media/stream.mp4", port))
	assert.Error(t, err)
}

func TestReplacementServerCanReusePort(t *testing.T) {
	s1, _ := startTestServer(t, 64)
	port := s1.Port()
	s1.Stop()

	path := filepath.Join(t.TempDir(), "next.mkv")
	require.NoError(t, os.WriteFile(path, []byte("abcd"), 0o644))
	f, err := media.Probe(path)
	require.NoError(t, err)

	s2, err := Start(f, port, zerolog.Nop())
	require.NoError(t, err)
	defer s2.Stop()

	resp, body := get(t, s2.StreamURL("127.0.0.1"), "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "video/x-matroska", resp.Header.Get("Content-Type"))
	assert.Equal(t, []byte("abcd"), body)
}
