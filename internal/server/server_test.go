package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/image/tiff"

	"github.com/muurk/tiscam/internal/camera"
	"github.com/muurk/tiscam/internal/grabber"
)

func newTestServer(t *testing.T) (*Server, *httptest.Server, *grabber.Simulator) {
	t.Helper()
	sim := grabber.NewSimulator()
	cam, err := camera.Open(sim, camera.Options{Initial: camera.Settings{VideoFormat: camera.String("Y16 (640x480)")}})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	srv := New(cam, &Config{Instance: "tiscam test", StreamInterval: 5 * time.Millisecond})
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
		ts.Close()
		_ = cam.Close()
	})
	return srv, ts, sim
}

func postSettings(t *testing.T, url, body string) (*http.Response, ApplyResponse) {
	t.Helper()
	resp, err := http.Post(url+"/api/settings", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST failed: %v", err)
	}
	defer resp.Body.Close()

	var out ApplyResponse
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp, out
}

func TestNew_Defaults(t *testing.T) {
	srv, _, _ := newTestServer(t)

	if srv.config.Model != "DMK 33UJ003" {
		t.Errorf("Expected model from device type, got %q", srv.config.Model)
	}
	if srv.config.Instance != "tiscam test" {
		t.Errorf("Expected configured instance, got %q", srv.config.Instance)
	}
}

func TestGetSettings(t *testing.T) {
	_, ts, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/api/settings")
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("Expected JSON content type, got %q", ct)
	}

	var cfg camera.Config
	if err := json.NewDecoder(resp.Body).Decode(&cfg); err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if cfg.VideoFormat != "Y16 (640x480)" || cfg.Image.Width != 640 || cfg.Image.Height != 480 {
		t.Errorf("Unexpected config %+v", cfg)
	}
	if cfg.Gain != 383 {
		t.Errorf("Expected default gain 383, got %d", cfg.Gain)
	}
}

func TestPostSettings(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantGain   int
	}{
		{"valid gain", `{"gain": 200}`, http.StatusOK, 200},
		{"gain rounds half even", `{"gain": 200.5}`, http.StatusOK, 200},
		{"out of range", `{"gain": 5}`, http.StatusBadRequest, 383},
		{"unknown field", `{"brightness": 5}`, http.StatusBadRequest, 383},
		{"empty", `{}`, http.StatusBadRequest, 383},
		{"malformed", `{"gain":`, http.StatusBadRequest, 383},
		{"bad format", `{"video_format": "Y800 (640x480)"}`, http.StatusBadRequest, 383},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, ts, _ := newTestServer(t)

			resp, out := postSettings(t, ts.URL, tt.body)
			if resp.StatusCode != tt.wantStatus {
				t.Errorf("Expected %d, got %d (%s)", tt.wantStatus, resp.StatusCode, out.Error)
			}
			if got := srv.cam.Gain(); got != tt.wantGain {
				t.Errorf("Expected camera gain %d, got %d", tt.wantGain, got)
			}
			if tt.wantStatus == http.StatusOK && out.Config.Gain != tt.wantGain {
				t.Errorf("Expected response gain %d, got %d", tt.wantGain, out.Config.Gain)
			}
		})
	}
}

func TestPostSettings_RollsBack(t *testing.T) {
	srv, ts, sim := newTestServer(t)
	sim.FailOnce(grabber.CallSetVideoProperty, grabber.StatusError)

	resp, out := postSettings(t, ts.URL, `{"num_images": 4, "gain": 250}`)
	if resp.StatusCode != http.StatusInternalServerError {
		t.Errorf("Expected 500, got %d", resp.StatusCode)
	}
	if !out.RolledBack {
		t.Error("Expected rolled_back in response")
	}
	if out.Error == "" {
		t.Error("Expected error message")
	}
	if srv.cam.Gain() != 383 || srv.cam.NumImages() != camera.DefaultNumImages {
		t.Errorf("Expected previous settings, got gain %d, %d images", srv.cam.Gain(), srv.cam.NumImages())
	}
}

func TestGetFormats(t *testing.T) {
	_, ts, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/api/formats")
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	defer resp.Body.Close()

	var out FormatsResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if len(out.Supported) != len(camera.SupportedVideoFormats()) {
		t.Errorf("Expected %d supported formats, got %d", len(camera.SupportedVideoFormats()), len(out.Supported))
	}
	if len(out.Device) == 0 || out.Current != "Y16 (640x480)" {
		t.Errorf("Unexpected formats response %+v", out)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	_, ts, _ := newTestServer(t)

	req, _ := http.NewRequest(http.MethodDelete, ts.URL+"/api/settings", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("DELETE failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("Expected 405, got %d", resp.StatusCode)
	}
}

func TestFrameTIFF(t *testing.T) {
	srv, ts, _ := newTestServer(t)
	if err := srv.cam.ApplySettings(camera.Settings{NumImages: camera.Int(5)}); err != nil {
		t.Fatalf("ApplySettings failed: %v", err)
	}

	resp, err := http.Get(ts.URL + "/api/frame.tiff")
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "image/tiff" {
		t.Errorf("Expected image/tiff, got %q", ct)
	}

	img, err := tiff.Decode(resp.Body)
	if err != nil {
		t.Fatalf("tiff.Decode failed: %v", err)
	}
	if _, ok := img.(*image.Gray16); !ok {
		t.Errorf("Expected *image.Gray16, got %T", img)
	}
	if b := img.Bounds(); b.Dx() != 640 || b.Dy() != 480 {
		t.Errorf("Unexpected bounds %v", b)
	}
	if srv.cam.NumImages() != 5 {
		t.Errorf("Single frame grab must not change NumImages, got %d", srv.cam.NumImages())
	}
}

func TestFrameTIFF_Timeout(t *testing.T) {
	_, ts, sim := newTestServer(t)
	sim.FailSnaps(1)

	resp, err := http.Get(ts.URL + "/api/frame.tiff")
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusGatewayTimeout {
		t.Errorf("Expected 504, got %d", resp.StatusCode)
	}
	var out errorResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if out.Type != "Timeout" {
		t.Errorf("Expected timeout error type, got %q", out.Type)
	}
}

func TestStatusForError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", camera.NewValidationError("gain", "out of range"), http.StatusBadRequest},
		{"verification", camera.NewVerificationError("gain", 200, 201), http.StatusConflict},
		{"timeout", camera.NewTimeoutError(0, 1000, nil), http.StatusGatewayTimeout},
		{"state", camera.NewStateError("closed"), http.StatusServiceUnavailable},
		{"driver", camera.NewDriverError("boom", nil), http.StatusInternalServerError},
		{"plain", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := statusForError(tt.err); got != tt.want {
				t.Errorf("statusForError() = %d, want %d", got, tt.want)
			}
		})
	}
}

func wsURL(ts *httptest.Server, query string) string {
	return "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws" + query
}

func TestWebSocket_StreamsFrames(t *testing.T) {
	srv, ts, _ := newTestServer(t)

	conn, resp, err := websocket.DefaultDialer.Dial(wsURL(ts, "?interval_ms=1"), nil)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	defer conn.Close()
	if resp.StatusCode != http.StatusSwitchingProtocols {
		t.Errorf("Expected 101, got %d", resp.StatusCode)
	}

	for want := uint32(0); want < 3; want++ {
		_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		mt, msg, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("ReadMessage failed: %v", err)
		}
		if mt != websocket.BinaryMessage {
			t.Fatalf("Expected binary message, got type %d", mt)
		}
		h, err := DecodeFrameHeader(msg)
		if err != nil {
			t.Fatalf("DecodeFrameHeader failed: %v", err)
		}
		if h.Width != 640 || h.Height != 480 || h.Sequence != want {
			t.Errorf("Unexpected header %+v, want sequence %d", h, want)
		}
	}

	if n := srv.GetActiveConnections(); n != 1 {
		t.Errorf("Expected 1 active stream, got %d", n)
	}
}

func TestWebSocket_Shutdown(t *testing.T) {
	srv, ts, _ := newTestServer(t)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(ts, ""), nil)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	defer conn.Close()

	if _, _, err := conn.ReadMessage(); err != nil {
		t.Fatalf("ReadMessage failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown failed: %v", err)
	}

	for {
		_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		if _, _, err = conn.ReadMessage(); err != nil {
			break
		}
	}
	if !websocket.IsCloseError(err, websocket.CloseGoingAway) {
		t.Errorf("Expected going-away close, got %v", err)
	}
	if n := srv.GetActiveConnections(); n != 0 {
		t.Errorf("Expected no active streams, got %d", n)
	}
}

func TestWebSocket_AcquisitionFailure(t *testing.T) {
	_, ts, sim := newTestServer(t)
	sim.FailSnaps(1)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(ts, ""), nil)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	defer conn.Close()

	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, _, err = conn.ReadMessage()
	if !websocket.IsCloseError(err, websocket.CloseInternalServerErr) {
		t.Fatalf("Expected internal error close, got %v", err)
	}
	var closeErr *websocket.CloseError
	if errors.As(err, &closeErr) && !strings.Contains(closeErr.Text, "timed out") {
		t.Errorf("Expected timeout reason, got %q", closeErr.Text)
	}
}

func TestWebSocket_BadInterval(t *testing.T) {
	_, ts, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/ws?interval_ms=soon")
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("Expected 400, got %d", resp.StatusCode)
	}
}

func TestFrameMessage(t *testing.T) {
	pix := []uint16{0x0102, 0xfffe, 7, 0}
	msg, err := EncodeFrameMessage(FrameHeader{Width: 2, Height: 2, Sequence: 9}, pix)
	if err != nil {
		t.Fatalf("EncodeFrameMessage failed: %v", err)
	}

	wantHeader := []byte{'T', 'S', 'C', '1', 2, 0, 0, 0, 2, 0, 0, 0, 9, 0, 0, 0}
	if !bytes.Equal(msg[:FrameHeaderSize], wantHeader) {
		t.Errorf("Header = % x, want % x", msg[:FrameHeaderSize], wantHeader)
	}
	if !bytes.Equal(msg[FrameHeaderSize:FrameHeaderSize+4], []byte{0x02, 0x01, 0xfe, 0xff}) {
		t.Errorf("Pixels not little-endian: % x", msg[FrameHeaderSize:])
	}

	h, err := DecodeFrameHeader(msg)
	if err != nil {
		t.Fatalf("DecodeFrameHeader failed: %v", err)
	}
	if h != (FrameHeader{Width: 2, Height: 2, Sequence: 9}) {
		t.Errorf("Unexpected header %+v", h)
	}
}

func TestFrameMessage_Errors(t *testing.T) {
	if _, err := EncodeFrameMessage(FrameHeader{Width: 2, Height: 2}, []uint16{1}); err == nil {
		t.Error("Expected pixel count error")
	}

	good, _ := EncodeFrameMessage(FrameHeader{Width: 1, Height: 1}, []uint16{1})
	tests := []struct {
		name string
		msg  []byte
	}{
		{"short", good[:8]},
		{"bad magic", append([]byte("XXXX"), good[4:]...)},
		{"truncated pixels", good[:len(good)-1]},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := DecodeFrameHeader(tt.msg); err == nil {
				t.Error("Expected error")
			}
		})
	}
}

func TestStartAndShutdown(t *testing.T) {
	sim := grabber.NewSimulator()
	cam, err := camera.Open(sim, camera.Options{})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer cam.Close()

	srv := New(cam, &Config{Host: "127.0.0.1", Port: 0})
	if err := srv.Listen(); err != nil {
		t.Fatalf("Listen failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ctx) }()

	resp, err := http.Get("http://" + srv.Addr() + "/api/settings")
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected 200, got %d", resp.StatusCode)
	}

	cancel()
	select {
	case err := <-errCh:
		if err != nil {
			t.Fatalf("Serve returned error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Server did not stop")
	}
}

func TestReleaseCamera_WaitsForHeldSnap(t *testing.T) {
	srv, ts, sim := newTestServer(t)

	release := make(chan struct{})
	sim.HoldSnaps(release)

	grabbed := make(chan int, 1)
	go func() {
		resp, err := http.Get(ts.URL + "/api/frame.tiff")
		if err != nil {
			grabbed <- 0
			return
		}
		resp.Body.Close()
		grabbed <- resp.StatusCode
	}()

	deadline := time.Now().Add(2 * time.Second)
	for sim.HeldSnaps() != 1 {
		if time.Now().After(deadline) {
			t.Fatal("Expected frame request to block in SnapImage")
		}
		time.Sleep(time.Millisecond)
	}

	called := false
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := srv.ReleaseCamera(ctx, func(*camera.Camera) { called = true }); err == nil {
		t.Error("Expected error while a snap is in progress")
	}
	if called {
		t.Fatal("Camera must not be handed back while a snap is in progress")
	}

	close(release)
	if code := <-grabbed; code != http.StatusOK {
		t.Errorf("Expected held frame request to finish with 200, got %d", code)
	}

	var closeErr error
	if err := srv.ReleaseCamera(context.Background(), func(c *camera.Camera) { closeErr = c.Close() }); err != nil {
		t.Fatalf("ReleaseCamera failed: %v", err)
	}
	if closeErr != nil {
		t.Fatalf("Close failed: %v", closeErr)
	}
	if sim.OpenGrabbers() != 0 {
		t.Errorf("Expected grabber released, %d open", sim.OpenGrabbers())
	}

	resp, err := http.Get(ts.URL + "/api/settings")
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("Expected 503 after release, got %d", resp.StatusCode)
	}

	// releasing twice is a no-op
	if err := srv.ReleaseCamera(context.Background(), func(*camera.Camera) { t.Error("fn called twice") }); err != nil {
		t.Errorf("Second ReleaseCamera failed: %v", err)
	}
}
