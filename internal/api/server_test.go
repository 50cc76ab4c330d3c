package api

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/tisianewembou/NextWavePt3/internal/artifact"
	"github.com/tisianewembou/NextWavePt3/internal/device"
	"github.com/tisianewembou/NextWavePt3/internal/events"
	"github.com/tisianewembou/NextWavePt3/internal/session"
)

// fakeDevices is a device manager that always succeeds.
type fakeDevices struct {
	session *device.CaptureSession
}

func (f *fakeDevices) Acquire(ctx context.Context, constraints device.Constraints) (*device.CaptureSession, error) {
	m := device.NewManager(device.WithProber(staticProber{}))
	cs, err := m.Acquire(ctx, constraints)
	if err != nil {
		return nil, err
	}
	f.session = cs
	return f.session, nil
}

// staticProber resolves to fixed nodes so Acquire yields a session
// with live tracks without touching real hardware.
type staticProber struct{}

func (staticProber) Resolve(_ context.Context, c device.Constraints) (device.Resolved, error) {
	return device.Resolved{
		VideoDevice: "/dev/video0",
		AudioDevice: "default",
		Width:       c.IdealWidth,
		Height:      c.IdealHeight,
	}, nil
}

func (f *fakeDevices) Release() { f.session = nil }

// fakeEncoder produces a fixed artifact.
type fakeEncoder struct {
	recording bool
}

func (f *fakeEncoder) Start(_ context.Context, _ *device.CaptureSession) (*session.RecordingInfo, error) {
	f.recording = true
	return &session.RecordingInfo{ID: "rec-test", Format: "webm/vp9"}, nil
}

func (f *fakeEncoder) Stop(_ context.Context) (*artifact.Artifact, error) {
	if !f.recording {
		return nil, nil
	}
	f.recording = false
	return &artifact.Artifact{
		RecordingID: "rec-test",
		Data:        []byte("webm-bytes"),
		Format:      "webm/vp9",
		Ext:         "webm",
		MimeType:    "video/webm",
		CreatedAt:   time.Now().UTC(),
	}, nil
}

const (
	testUser = "admin"
	testPass = "secret"
)

func newTestServer(t *testing.T) (*httptest.Server, *session.Controller) {
	t.Helper()

	store, err := artifact.NewStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	bus := events.New()
	controller := session.NewController(&fakeDevices{}, &fakeEncoder{}, bus)

	server := NewServer(&Options{
		AuthUsername: testUser,
		AuthPassword: testPass,
		Controller:   controller,
		Store:        store,
		Bus:          bus,
	})

	ts := httptest.NewServer(server.Handler())
	t.Cleanup(ts.Close)
	return ts, controller
}

func doRequest(t *testing.T, ts *httptest.Server, method, path string, authed bool) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, ts.URL+path, nil)
	if err != nil {
		t.Fatal(err)
	}
	if authed {
		creds := base64.StdEncoding.EncodeToString([]byte(testUser + ":" + testPass))
		req.Header.Set("Authorization", "Basic "+creds)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, out any) {
	t.Helper()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		t.Fatalf("invalid JSON %q: %v", data, err)
	}
}

func TestHealthNeedsNoAuth(t *testing.T) {
	ts, _ := newTestServer(t)
	resp := doRequest(t, ts, http.MethodGet, "/api/health", false)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
}

func TestSessionRequiresAuth(t *testing.T) {
	ts, _ := newTestServer(t)
	resp := doRequest(t, ts, http.MethodGet, "/api/session", false)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", resp.StatusCode)
	}
	if got := resp.Header.Get("WWW-Authenticate"); !strings.Contains(got, "Basic") {
		t.Errorf("WWW-Authenticate = %q", got)
	}
}

func TestSessionSnapshotStartsIdle(t *testing.T) {
	ts, _ := newTestServer(t)
	resp := doRequest(t, ts, http.MethodGet, "/api/session", true)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var snapshot session.Snapshot
	decodeBody(t, resp, &snapshot)
	if snapshot.State != "idle" {
		t.Errorf("State = %q, want idle", snapshot.State)
	}
	if snapshot.HasArtifact {
		t.Error("HasArtifact = true on a fresh session")
	}
}

func TestCameraCommandTransitionsState(t *testing.T) {
	ts, _ := newTestServer(t)
	resp := doRequest(t, ts, http.MethodPost, "/api/session/camera", true)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var body struct {
		State string `json:"state"`
	}
	decodeBody(t, resp, &body)
	if body.State != "camera-ready" {
		t.Errorf("State = %q, want camera-ready", body.State)
	}
}

func TestDownloadWithoutArtifactIs404(t *testing.T) {
	ts, _ := newTestServer(t)
	resp := doRequest(t, ts, http.MethodGet, "/api/session/download", true)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}

func TestFullSessionOverHTTP(t *testing.T) {
	ts, _ := newTestServer(t)

	for _, step := range []struct {
		method, path string
		wantState    string
	}{
		{http.MethodPost, "/api/session/camera", "camera-ready"},
		{http.MethodPost, "/api/session/record", "recording"},
		{http.MethodPost, "/api/session/stop", "recorded"},
	} {
		resp := doRequest(t, ts, step.method, step.path, true)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("%s %s: status = %d", step.method, step.path, resp.StatusCode)
		}
		var body struct {
			State string `json:"state"`
		}
		decodeBody(t, resp, &body)
		if body.State != step.wantState {
			t.Fatalf("%s: state = %q, want %q", step.path, body.State, step.wantState)
		}
	}

	resp := doRequest(t, ts, http.MethodGet, "/api/session/download", true)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("download status = %d, want 200", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "video/webm" {
		t.Errorf("Content-Type = %q, want video/webm", ct)
	}
	cd := resp.Header.Get("Content-Disposition")
	if !strings.Contains(cd, "presentation_") || !strings.Contains(cd, ".webm") {
		t.Errorf("Content-Disposition = %q", cd)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "webm-bytes" {
		t.Errorf("body = %q, want webm-bytes", data)
	}

	// Download is repeat-safe.
	resp = doRequest(t, ts, http.MethodGet, "/api/session/download", true)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("second download status = %d, want 200", resp.StatusCode)
	}
}

func TestTeardownOverHTTP(t *testing.T) {
	ts, controller := newTestServer(t)

	doRequest(t, ts, http.MethodPost, "/api/session/camera", true)
	resp := doRequest(t, ts, http.MethodDelete, "/api/session", true)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var body struct {
		State string `json:"state"`
	}
	decodeBody(t, resp, &body)
	if body.State != "idle" {
		t.Errorf("State = %q, want idle", body.State)
	}
	if controller.Capture() != nil {
		t.Error("capture session still held after teardown")
	}
}

func TestStopWithoutRecordingIsAccepted(t *testing.T) {
	ts, _ := newTestServer(t)
	resp := doRequest(t, ts, http.MethodPost, "/api/session/stop", true)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
}

func TestListRecordingsEmpty(t *testing.T) {
	ts, _ := newTestServer(t)
	resp := doRequest(t, ts, http.MethodGet, "/api/recordings", true)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var body struct {
		Count int `json:"count"`
	}
	decodeBody(t, resp, &body)
	if body.Count != 0 {
		t.Errorf("Count = %d, want 0", body.Count)
	}
}

func TestAuthViaQueryParameter(t *testing.T) {
	ts, _ := newTestServer(t)
	creds := base64.StdEncoding.EncodeToString([]byte(testUser + ":" + testPass))
	resp, err := http.Get(ts.URL + "/api/session?auth=" + creds)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
}
