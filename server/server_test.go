package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"git.sr.ht/~whereswaldon/watt-wealth/backend"
	"git.sr.ht/~whereswaldon/watt-wealth/flow"
	"git.sr.ht/~whereswaldon/watt-wealth/labels"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	ds := backend.NewDatasource(backend.Options{Interval: time.Hour})
	s := New(ds, labels.DefaultNudge)
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return s, ts
}

func get(t *testing.T, url string) (*http.Response, string) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(body)
}

func TestSnapshot(t *testing.T) {
	_, ts := newTestServer(t)
	resp, body := get(t, ts.URL+"/api/snapshot")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	var s backend.Snapshot
	require.NoError(t, json.Unmarshal([]byte(body), &s))
	assert.Equal(t, backend.Fallback().Now, s.Now)
	assert.Len(t, s.Forecast.Hours, 24)
}

func TestReading(t *testing.T) {
	_, ts := newTestServer(t)
	resp, body := get(t, ts.URL+"/api/reading")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var raw struct {
		Reading     flow.Reading `json:"reading"`
		Intensities struct {
			Solar struct {
				Channel   string  `json:"channel"`
				Magnitude float64 `json:"magnitude"`
			} `json:"solar"`
		} `json:"intensities"`
	}
	require.NoError(t, json.Unmarshal([]byte(body), &raw))
	r := backend.Fallback().Now.Reading
	assert.Equal(t, r, raw.Reading)
	assert.Equal(t, "solar", raw.Intensities.Solar.Channel)
	assert.InDelta(t, flow.Normalize(r).Solar.Magnitude, raw.Intensities.Solar.Magnitude, 1e-9)
}

func TestDocuments(t *testing.T) {
	_, ts := newTestServer(t)

	resp, body := get(t, ts.URL+"/flow.svg")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/svg+xml", resp.Header.Get("Content-Type"))
	assert.Contains(t, body, "stroke-dashoffset")

	resp, body = get(t, ts.URL+"/forecast.csv")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, strings.Split(strings.TrimSpace(body), "\n"), 25)

	resp, body = get(t, ts.URL+"/report.html")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Energy mix")
}

func TestMethodNotAllowed(t *testing.T) {
	_, ts := newTestServer(t)
	resp, err := http.Post(ts.URL+"/api/snapshot", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestLive(t *testing.T) {
	s, ts := newTestServer(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	readings := make(chan flow.Reading)
	go s.Run(ctx, readings)

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/live"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var f Frame
	require.NoError(t, conn.ReadJSON(&f))
	assert.Equal(t, backend.Fallback().Now.Reading, f.Reading)

	next := flow.Reading{Solar: 3, Battery: 90, Grid: 0, Home: 1.5}
	// The handler subscribes after upgrading; keep publishing until the
	// frame arrives.
	go func() {
		for {
			select {
			case readings <- next:
			case <-ctx.Done():
				return
			}
			time.Sleep(10 * time.Millisecond)
		}
	}()
	for {
		require.NoError(t, conn.ReadJSON(&f))
		if f.Reading == next {
			break
		}
	}
	assert.Equal(t, 1.0, f.Intensities.Solar.Magnitude)
	assert.Equal(t, 100.0, f.Mix.Solar)
}
