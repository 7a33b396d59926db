package app

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"bpcd/pkg/app/config"
	"bpcd/pkg/bpc"
	"bpcd/pkg/raspberry"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/womat/debug"
)

func TestMain(m *testing.M) {
	debug.SetDebug(os.Stderr, debug.Standard)
	os.Exit(m.Run())
}

var frame = bpc.Result{
	Status: bpc.StatusOK,
	Year:   2025, Month: 12, Day: 30, Week: 2,
	Hour: 14, Minute: 36, Second: 19,
	Diff: 3 * time.Millisecond,
}

func newTestApp(t *testing.T, modify ...func(*config.Config)) *App {
	t.Helper()

	c := config.NewConfig()
	c.Link.Backend = raspberry.BackendEmulator
	for _, f := range modify {
		f(c)
	}
	require.NoError(t, c.LoadConfig())

	a, err := New(c)
	require.NoError(t, err)
	a.initDefaultRoutes()
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func get(t *testing.T, a *App, path string) (int, []byte) {
	t.Helper()

	resp, err := a.web.Test(httptest.NewRequest(http.MethodGet, path, nil))
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, body
}

func TestNew_Errors(t *testing.T) {
	c := config.NewConfig()
	c.Webserver.URL = "http://[::1"
	_, err := New(c)
	assert.Error(t, err)

	c = config.NewConfig()
	c.Link.Backend = "serial"
	_, err = New(c)
	assert.ErrorIs(t, err, raspberry.ErrInvalidParam)
}

func TestHandleData(t *testing.T) {
	a := newTestApp(t)

	code, _ := get(t, a, "/data")
	assert.Equal(t, http.StatusNotFound, code)

	a.handleResult(frame, time.Now())

	code, body := get(t, a, "/data")
	require.Equal(t, http.StatusOK, code)

	var d struct {
		Status string `json:"status"`
		Hour   int    `json:"hour"`
		Diff   int64  `json:"diff"`
		DiffUs int64  `json:"diffUs"`
		Time   string `json:"time"`
	}
	require.NoError(t, json.Unmarshal(body, &d))
	assert.Equal(t, "ok", d.Status)
	assert.Equal(t, 14, d.Hour)
	assert.Equal(t, int64(3*time.Millisecond), d.Diff)
	assert.Equal(t, int64(3000), d.DiffUs)
	assert.Equal(t, "2025-12-30 14:36:19", d.Time)
}

func TestHandleResult_Invalid(t *testing.T) {
	a := newTestApp(t)

	a.handleResult(bpc.Result{Status: bpc.StatusParityError}, time.Now())
	_, ok := a.lastData()
	assert.False(t, ok)
	assert.Len(t, a.mqtt.C, 0)

	a = newTestApp(t, func(c *config.Config) { c.MQTT.PublishInvalid = true })
	a.handleResult(bpc.Result{Status: bpc.StatusFrameInvalid}, time.Now())
	require.Len(t, a.mqtt.C, 1)
	msg := <-a.mqtt.C
	assert.Contains(t, string(msg.Payload), `"status":"frame invalid"`)
}

func TestHandleResult_Publish(t *testing.T) {
	a := newTestApp(t, func(c *config.Config) {
		c.MQTT.Topic = "/home/clock"
		c.TimeFormat = "%H:%M:%S"
	})

	a.handleResult(frame, time.Now())
	require.Len(t, a.mqtt.C, 1)

	msg := <-a.mqtt.C
	assert.Equal(t, "/home/clock", msg.Topic)
	assert.True(t, msg.Retained)
	assert.Contains(t, string(msg.Payload), `"time":"14:36:19"`)
}

func TestHandleStatus(t *testing.T) {
	a := newTestApp(t)

	code, body := get(t, a, "/status")
	require.Equal(t, http.StatusOK, code)

	var s struct {
		Backend string         `json:"backend"`
		Decoder bpc.Snapshot   `json:"decoder"`
		Device  bpc.DeviceInfo `json:"device"`
	}
	require.NoError(t, json.Unmarshal(body, &s))
	assert.Equal(t, raspberry.BackendEmulator, s.Backend)
	assert.False(t, s.Decoder.Inited)
	assert.Equal(t, bpc.Info(), s.Device)
}

func TestHandleMetrics(t *testing.T) {
	a := newTestApp(t)
	a.handleResult(frame, time.Now())
	a.handleResult(bpc.Result{Status: bpc.StatusParityError}, time.Now())

	code, body := get(t, a, "/metrics")
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(body), `bpc_frames_total{status="ok"} 1`)
	assert.Contains(t, string(body), `bpc_frames_total{status="parity error"} 1`)
	assert.Contains(t, string(body), `bpc_frames_total{status="frame invalid"} 0`)
	assert.Contains(t, string(body), "bpc_trace_valid 0")
}

func TestReceive_Drops(t *testing.T) {
	a := newTestApp(t)

	for i := 0; i < cap(a.results)+2; i++ {
		a.receive(frame)
	}
	assert.Len(t, a.results, cap(a.results))
	assert.Equal(t, 2.0, testutil.ToFloat64(a.metrics.dropped))
}

func TestRoutes(t *testing.T) {
	a := newTestApp(t, func(c *config.Config) {
		c.Webserver.Webservices = map[string]bool{"version": true}
	})

	code, body := get(t, a, "/version")
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(body), VERSION)

	for _, path := range []string{"/health", "/data", "/status", "/metrics"} {
		code, _ = get(t, a, path)
		assert.Equal(t, http.StatusNotFound, code, path)
	}
}

func TestVersion(t *testing.T) {
	assert.True(t, strings.HasPrefix(Version(), MODULE+" V"))
}

func TestHandleHealth(t *testing.T) {
	a := newTestApp(t)

	code, body := get(t, a, "/health")
	require.Equal(t, http.StatusOK, code)

	var h struct {
		Version string
		Signal  bool
		Edges   uint64
	}
	require.NoError(t, json.Unmarshal(body, &h))
	assert.Equal(t, VERSION, h.Version)
	assert.False(t, h.Signal)
	assert.Equal(t, uint64(0), h.Edges)
}

func TestClose_Twice(t *testing.T) {
	a := newTestApp(t)

	require.NoError(t, a.Close())
	assert.NotPanics(t, func() { assert.NoError(t, a.Close()) })

	_, open := <-a.results
	assert.False(t, open)
	assert.False(t, a.bpc.Snapshot().Inited)
}

func TestShutdown_WebServerFails(t *testing.T) {
	a := newTestApp(t, func(c *config.Config) { c.Webserver.URL = "http://127.0.0.1:99999" })

	go a.runWebServer()

	select {
	case <-a.Shutdown():
	case <-time.After(5 * time.Second):
		t.Fatal("shutdown not signaled")
	}
	assert.NotPanics(t, a.fail)
}
