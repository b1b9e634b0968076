package webmonitor

import (
	"bytes"
	"encoding/base64"
	"image/jpeg"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/dj-oyu/rdk-x5_smart-pet-camera/interest-monitor/internal/metrics"
	"github.com/dj-oyu/rdk-x5_smart-pet-camera/interest-monitor/internal/recorder"
)

func TestIndexAndHealth(t *testing.T) {
	_, ts := newTestServer(t, DefaultConfig(), nil)

	resp, body := get(t, ts.URL+"/")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET / status = %d", resp.StatusCode)
	}
	if !strings.Contains(resp.Header.Get("Content-Type"), "text/html") ||
		!strings.Contains(string(body), "/stream/mask") {
		t.Fatalf("GET / did not return the monitor page")
	}

	resp, _ = get(t, ts.URL+"/nope")
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("GET /nope status = %d, want 404", resp.StatusCode)
	}

	resp, body = get(t, ts.URL+"/health")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET /health status = %d", resp.StatusCode)
	}
	health := decodeJSONMap(t, body)
	if health["status"] != "ok" || health["recording"] != false {
		t.Fatalf("unexpected health payload %v", health)
	}
}

func TestStatusReportsLatestAndHistory(t *testing.T) {
	srv, ts := newTestServer(t, DefaultConfig(), nil)

	_, body := get(t, ts.URL+"/api/status")
	payload := decodeJSONMap(t, body)
	assertStatusPayload(t, payload)
	if payload["latest_event"] != nil {
		t.Fatalf("latest_event before any frame = %v", payload["latest_event"])
	}

	srv.Handle(observation(1, 200, true))
	srv.Handle(observation(2, 0, false))
	srv.Handle(observation(3, 200, true))

	_, body = get(t, ts.URL+"/api/status")
	payload = decodeJSONMap(t, body)
	assertStatusPayload(t, payload)

	monitor := requireMap(t, payload["monitor"], "monitor")
	if got := requireNumber(t, monitor["frames_processed"], "frames_processed"); got != 3 {
		t.Fatalf("frames_processed = %v, want 3", got)
	}
	if got := requireNumber(t, monitor["frames_flagged"], "frames_flagged"); got != 2 {
		t.Fatalf("frames_flagged = %v, want 2", got)
	}
	latest := requireMap(t, payload["latest_event"], "latest_event")
	if got := requireNumber(t, latest["frame_number"], "latest_event.frame_number"); got != 3 {
		t.Fatalf("latest frame = %v, want 3", got)
	}
	history := requireSlice(t, payload["interest_history"], "interest_history")
	if len(history) != 2 {
		t.Fatalf("history length = %d, want 2", len(history))
	}
	first := requireMap(t, history[0], "interest_history[0]")
	if got := requireNumber(t, first["frame_number"], "frame_number"); got != 3 {
		t.Fatalf("newest history entry = %v, want frame 3", got)
	}
}

func TestHistoryIsBounded(t *testing.T) {
	cfg := DefaultConfig()
	cfg.HistorySize = 2
	srv, _ := newTestServer(t, cfg, nil)

	for i := uint64(1); i <= 5; i++ {
		srv.Handle(observation(i, 200, true))
	}
	_, _, history := srv.monitor.Snapshot()
	if len(history) != 2 {
		t.Fatalf("history length = %d, want 2", len(history))
	}
	if history[0].FrameNumber != 5 || history[1].FrameNumber != 4 {
		t.Fatalf("history = %+v", history)
	}
}

func TestInterestStreamJSON(t *testing.T) {
	srv, ts := newTestServer(t, DefaultConfig(), nil)

	type result struct {
		event  string
		header http.Header
		err    error
	}
	done := make(chan result, 1)
	go func() {
		event, header, err := readSSEEvent(ts.URL+"/api/interest/stream", "", defaultRequestTimeout)
		done <- result{event, header, err}
	}()

	waitFor(t, "SSE subscriber", func() bool { return srv.events.Clients() == 1 })
	srv.Handle(observation(7, 200, true))

	res := <-done
	if res.err != nil {
		t.Fatalf("interest stream error: %v", res.err)
	}
	if !strings.Contains(res.header.Get("Content-Type"), "text/event-stream") {
		t.Fatalf("content-type = %q", res.header.Get("Content-Type"))
	}
	if res.header.Get("X-Content-Format") != "application/json" {
		t.Fatalf("X-Content-Format = %q", res.header.Get("X-Content-Format"))
	}
	payload := decodeJSONMap(t, []byte(sseData(t, res.event)))
	assertEventPayload(t, payload, "event")
	if payload["frame_number"] != float64(7) || payload["score"] != float64(1) {
		t.Fatalf("unexpected event %v", payload)
	}
}

func TestInterestStreamProtobuf(t *testing.T) {
	srv, ts := newTestServer(t, DefaultConfig(), nil)

	type result struct {
		event  string
		header http.Header
		err    error
	}
	done := make(chan result, 1)
	go func() {
		event, header, err := readSSEEvent(ts.URL+"/api/interest/stream", "application/protobuf", defaultRequestTimeout)
		done <- result{event, header, err}
	}()

	waitFor(t, "SSE subscriber", func() bool { return srv.events.Clients() == 1 })
	srv.Handle(observation(9, 200, true))

	res := <-done
	if res.err != nil {
		t.Fatalf("interest stream error: %v", res.err)
	}
	if res.header.Get("X-Content-Format") != "application/protobuf" {
		t.Fatalf("X-Content-Format = %q", res.header.Get("X-Content-Format"))
	}

	raw, err := base64.StdEncoding.DecodeString(sseData(t, res.event))
	if err != nil {
		t.Fatalf("base64: %v", err)
	}
	var st structpb.Struct
	if err := proto.Unmarshal(raw, &st); err != nil {
		t.Fatalf("protobuf: %v", err)
	}
	fields := st.GetFields()
	if got := fields["frame_number"].GetNumberValue(); got != 9 {
		t.Fatalf("frame_number = %v, want 9", got)
	}
	if got := fields["score"].GetNumberValue(); got != 1 {
		t.Fatalf("score = %v, want 1", got)
	}
	if !fields["interesting"].GetBoolValue() {
		t.Fatalf("interesting = false, want true")
	}
	if got := fields["session_id"].GetStringValue(); got != "test" {
		t.Fatalf("session_id = %q", got)
	}
}

func TestStatusStream(t *testing.T) {
	cfg := DefaultConfig()
	cfg.StatusInterval = 20 * time.Millisecond
	srv, ts := newTestServer(t, cfg, nil)
	srv.Handle(observation(1, 200, true))

	event, header, err := readSSEEvent(ts.URL+"/api/status/stream", "", defaultRequestTimeout)
	if err != nil {
		t.Fatalf("status stream error: %v", err)
	}
	if !strings.Contains(header.Get("Content-Type"), "text/event-stream") {
		t.Fatalf("content-type = %q", header.Get("Content-Type"))
	}
	payload := decodeJSONMap(t, []byte(sseData(t, event)))
	assertStatusPayload(t, payload)
}

func TestMaskStream(t *testing.T) {
	srv, ts := newTestServer(t, DefaultConfig(), nil)

	client := &http.Client{Timeout: defaultRequestTimeout}
	resp, err := client.Get(ts.URL + "/stream/mask")
	if err != nil {
		t.Fatalf("GET /stream/mask: %v", err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); !strings.Contains(ct, "multipart/x-mixed-replace") ||
		!strings.Contains(ct, "boundary=frame") {
		t.Fatalf("content-type = %q", ct)
	}

	waitFor(t, "MJPEG subscriber", func() bool { return srv.masks.Clients() == 1 })
	srv.Handle(observation(1, 200, true))

	mr := multipart.NewReader(resp.Body, "frame")
	readPart := func() []byte {
		t.Helper()
		part, err := mr.NextPart()
		if err != nil {
			t.Fatalf("next part: %v", err)
		}
		data, err := io.ReadAll(part)
		if err != nil {
			t.Fatalf("read part: %v", err)
		}
		return data
	}

	blank, err := jpeg.Decode(bytes.NewReader(readPart()))
	if err != nil {
		t.Fatalf("decode placeholder: %v", err)
	}
	if blank.Bounds().Dx() != 320 {
		t.Fatalf("placeholder width = %d", blank.Bounds().Dx())
	}

	mask, err := jpeg.Decode(bytes.NewReader(readPart()))
	if err != nil {
		t.Fatalf("decode mask: %v", err)
	}
	if mask.Bounds().Dx() != 4 || mask.Bounds().Dy() != 4 {
		t.Fatalf("mask bounds = %v, want 4x4", mask.Bounds())
	}
	r, _, _, _ := mask.At(1, 1).RGBA()
	if r>>8 < 200 {
		t.Fatalf("mask cell = %d, want a bright pixel", r>>8)
	}
}

func TestMasksSkippedWithoutClients(t *testing.T) {
	mb := NewMaskBroadcaster(75, 25)
	for i := 0; i < 3; i++ {
		mb.Publish(observation(uint64(i), 200, true).Interest)
	}
	if mb.skipCount != 3 {
		t.Fatalf("skipCount = %d, want 3", mb.skipCount)
	}
}

func TestRenderMaskAppliesGain(t *testing.T) {
	res := observation(1, 200, true).Interest
	data, err := renderMask(res.Threshold(), 100, 90)
	if err != nil {
		t.Fatalf("renderMask: %v", err)
	}
	img, err := jpeg.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	r, g, b, _ := img.At(0, 0).RGBA()
	if r>>8 < 240 || g>>8 < 240 || b>>8 < 240 {
		t.Fatalf("saturated cell = (%d,%d,%d), want white", r>>8, g>>8, b>>8)
	}
}

func TestRecordingEndpoints(t *testing.T) {
	rec := recorder.NewRecorder(recorder.Options{BasePath: t.TempDir()}, nil)
	defer rec.Close()
	_, ts := newTestServer(t, DefaultConfig(), rec)

	resp, _ := get(t, ts.URL+"/api/recording/start")
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("GET start status = %d, want 405", resp.StatusCode)
	}

	resp, body := post(t, ts.URL+"/api/recording/start")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("POST start status = %d: %s", resp.StatusCode, body)
	}
	payload := decodeJSONMap(t, body)
	status := requireMap(t, payload["recording"], "recording")
	if status["recording"] != true {
		t.Fatalf("recording status after start = %v", status)
	}

	resp, _ = post(t, ts.URL+"/api/recording/start")
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("second start status = %d, want 400", resp.StatusCode)
	}

	_, body = get(t, ts.URL+"/api/recording/status")
	status = decodeJSONMap(t, body)
	if status["recording"] != true || !strings.HasSuffix(status["filename"].(string), ".mjpeg") {
		t.Fatalf("status = %v", status)
	}

	resp, body = post(t, ts.URL+"/api/recording/stop")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("POST stop status = %d: %s", resp.StatusCode, body)
	}
	resp, _ = post(t, ts.URL+"/api/recording/stop")
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("second stop status = %d, want 400", resp.StatusCode)
	}
}

func TestRecordingWithoutRecorder(t *testing.T) {
	_, ts := newTestServer(t, DefaultConfig(), nil)
	for _, path := range []string{"/api/recording/start", "/api/recording/stop"} {
		resp, _ := post(t, ts.URL+path)
		if resp.StatusCode != http.StatusServiceUnavailable {
			t.Fatalf("POST %s status = %d, want 503", path, resp.StatusCode)
		}
	}
}

func TestAssets(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "extra.js"), []byte("// extra"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg := DefaultConfig()
	cfg.AssetsDir = dir
	_, ts := newTestServer(t, cfg, nil)

	resp, body := get(t, ts.URL+"/assets/monitor.css")
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), ".panel") {
		t.Fatalf("built-in stylesheet: status %d", resp.StatusCode)
	}
	resp, body = get(t, ts.URL+"/assets/extra.js")
	if resp.StatusCode != http.StatusOK || string(body) != "// extra" {
		t.Fatalf("override asset: status %d body %q", resp.StatusCode, body)
	}
	resp, _ = get(t, ts.URL+"/assets/missing.png")
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("missing asset status = %d, want 404", resp.StatusCode)
	}
}

func TestHandleUpdatesClientMetric(t *testing.T) {
	m := metrics.New()
	srv := NewServer(DefaultConfig(), nil, m)
	defer srv.Close()

	id, _ := srv.events.Subscribe()
	srv.Handle(observation(1, 0, false))
	if got := m.StreamClients.Load(); got != 1 {
		t.Fatalf("StreamClients = %d, want 1", got)
	}
	srv.events.Unsubscribe(id)
	srv.Handle(observation(2, 0, false))
	if got := m.StreamClients.Load(); got != 0 {
		t.Fatalf("StreamClients = %d, want 0", got)
	}
}

func TestCloseDisconnectsSubscribers(t *testing.T) {
	srv := NewServer(DefaultConfig(), nil, nil)
	_, ch := srv.events.Subscribe()
	srv.Close()
	if _, ok := <-ch; ok {
		t.Fatal("subscriber channel still open after Close")
	}
	_, late := srv.masks.Subscribe()
	if _, ok := <-late; ok {
		t.Fatal("subscription after Close must be closed")
	}
}
