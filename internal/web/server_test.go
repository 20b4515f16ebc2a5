package web

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sweeney/ctc-blinky/internal/monitor"
	"github.com/sweeney/ctc-blinky/internal/status"
)

func newTestServer(t *testing.T) (*httptest.Server, *status.Tracker) {
	t.Helper()
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cfg := status.Config{
		ClockHz:     16_000_000,
		Prescaler:   256,
		Threshold:   62499,
		Ack:         "hardware",
		HeartbeatMs: 900000,
		Broker:      "tcp://192.168.1.200:1883",
		HTTPAddr:    ":8080",
		GPIOLine:    -1,
	}
	tr := status.NewTracker(start, cfg)
	srv := New(":0", tr)
	ts := httptest.NewServer(srv.httpServer.Handler)
	t.Cleanup(ts.Close)
	return ts, tr
}

func getStatus(t *testing.T, url string) status.StatusJSON {
	t.Helper()
	resp, err := http.Get(url + "/index.json")
	if err != nil {
		t.Fatalf("GET /index.json: %v", err)
	}
	defer resp.Body.Close()

	var sj status.StatusJSON
	if err := json.NewDecoder(resp.Body).Decode(&sj); err != nil {
		t.Fatalf("decode JSON: %v", err)
	}
	return sj
}

func TestJSONEndpoint(t *testing.T) {
	ts, tr := newTestServer(t)
	tr.Update(monitor.LevelHigh, true, monitor.Counts{Rises: 5, Falls: 4}, monitor.Stats{Last: time.Second, Min: time.Second, Max: time.Second, N: 9})
	tr.SetTimer(status.Timer{Matches: 9, Serviced: 9, Elapsed: 9 * time.Second})
	tr.SetMQTTConnected(true)

	resp, err := http.Get(ts.URL + "/index.json")
	if err != nil {
		t.Fatalf("GET /index.json: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		t.Errorf("status: got %d, want 200", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type: got %q, want application/json", ct)
	}

	var sj status.StatusJSON
	if err := json.NewDecoder(resp.Body).Decode(&sj); err != nil {
		t.Fatalf("decode JSON: %v", err)
	}

	if sj.Status.LED != "HIGH" {
		t.Errorf("LED: got %q, want HIGH", sj.Status.LED)
	}
	if !sj.Status.Ready {
		t.Error("expected Ready=true")
	}
	if !sj.Status.MQTT.Connected {
		t.Error("expected MQTT.Connected=true")
	}
	if sj.Status.MQTT.Broker != "tcp://192.168.1.200:1883" {
		t.Errorf("MQTT.Broker: got %q, want tcp://192.168.1.200:1883", sj.Status.MQTT.Broker)
	}
	if sj.Status.Edges.Rises != 5 || sj.Status.Edges.Falls != 4 {
		t.Errorf("Edges: got %+v", sj.Status.Edges)
	}
	if sj.Status.HalfPeriod.LastMs != 1000 {
		t.Errorf("HalfPeriod.LastMs: got %v, want 1000", sj.Status.HalfPeriod.LastMs)
	}
	if sj.Status.Timer.Serviced != 9 {
		t.Errorf("Timer.Serviced: got %d, want 9", sj.Status.Timer.Serviced)
	}
	if sj.Status.Config.PeriodMs != 2000 {
		t.Errorf("Config.PeriodMs: got %v, want 2000", sj.Status.Config.PeriodMs)
	}
}

func TestJSONUnknownLevelBeforeBaseline(t *testing.T) {
	ts, _ := newTestServer(t)

	sj := getStatus(t, ts.URL)
	if sj.Status.LED != "UNKNOWN" {
		t.Errorf("LED before baseline: got %q, want UNKNOWN", sj.Status.LED)
	}
}

func TestHTMLEndpointRoot(t *testing.T) {
	ts, tr := newTestServer(t)
	tr.Update(monitor.LevelLow, true, monitor.Counts{Falls: 1}, monitor.Stats{})

	resp, err := http.Get(ts.URL + "/")
	if err != nil {
		t.Fatalf("GET /: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		t.Errorf("status: got %d, want 200", resp.StatusCode)
	}
	ct := resp.Header.Get("Content-Type")
	if !strings.HasPrefix(ct, "text/html") {
		t.Errorf("Content-Type: got %q, want text/html", ct)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	page := string(body)
	for _, want := range []string{`class="low">LOW<`, "62499", "2000.000ms", "hardware", "disabled"} {
		if !strings.Contains(page, want) {
			t.Errorf("page missing %q", want)
		}
	}
}

func TestHTMLShowsStorms(t *testing.T) {
	ts, tr := newTestServer(t)
	tr.SetTimer(status.Timer{Matches: 1, Serviced: 9, Storms: 1})

	resp, err := http.Get(ts.URL + "/")
	if err != nil {
		t.Fatalf("GET /: %v", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), `class="storm">1<`) {
		t.Error("expected storm count to be highlighted")
	}
}

func TestHTMLEndpointIndexHTML(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/index.html")
	if err != nil {
		t.Fatalf("GET /index.html: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		t.Errorf("status: got %d, want 200", resp.StatusCode)
	}
}

func TestNotFoundForUnknownPath(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/nonexistent")
	if err != nil {
		t.Fatalf("GET /nonexistent: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 404 {
		t.Errorf("status: got %d, want 404", resp.StatusCode)
	}
}

func TestStateChangesReflectedInResponse(t *testing.T) {
	ts, tr := newTestServer(t)

	// Initially not baselined
	if getStatus(t, ts.URL).Status.Ready {
		t.Error("expected Ready=false initially")
	}

	tr.Update(monitor.LevelHigh, true, monitor.Counts{}, monitor.Stats{})
	tr.Update(monitor.LevelLow, true, monitor.Counts{Falls: 1}, monitor.Stats{Last: time.Second, N: 1})
	tr.SetMQTTConnected(true)

	sj := getStatus(t, ts.URL)
	if !sj.Status.Ready {
		t.Error("expected Ready=true after update")
	}
	if sj.Status.LED != "LOW" {
		t.Errorf("LED: got %q, want LOW", sj.Status.LED)
	}
	if sj.Status.Edges.Falls != 1 {
		t.Errorf("Edges.Falls: got %d, want 1", sj.Status.Edges.Falls)
	}
	if !sj.Status.MQTT.Connected {
		t.Error("expected MQTT connected after update")
	}
}
