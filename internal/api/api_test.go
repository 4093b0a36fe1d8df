package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bcnelson/netbox-restconf-sync/internal/api"
	"github.com/bcnelson/netbox-restconf-sync/internal/domain"
	"github.com/bcnelson/netbox-restconf-sync/internal/netbox"
	"github.com/bcnelson/netbox-restconf-sync/internal/restconf"
	"github.com/bcnelson/netbox-restconf-sync/internal/service"
	"github.com/bcnelson/netbox-restconf-sync/internal/storage/memory"
)

const adminKey = "test-admin-key"

// fakeDevice records RESTCONF calls. DELETEs answer 404 so withdrawals of
// absent configuration are exercised.
type fakeDevice struct {
	mu    sync.Mutex
	calls []string
	delay time.Duration // per call; set before any request is sent
}

func (d *fakeDevice) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	time.Sleep(d.delay)
	d.mu.Lock()
	d.calls = append(d.calls, r.Method+" "+r.URL.EscapedPath())
	d.mu.Unlock()
	if r.Method == http.MethodDelete {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (d *fakeDevice) recorded() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.calls...)
}

// testServer creates a test server with in-memory storage, a file inventory
// and a fake device.
type testServer struct {
	handler   http.Handler
	store     *memory.Store
	inventory *netbox.FileShim
	device    *fakeDevice
}

func newTestServer(t *testing.T, key string) *testServer {
	t.Helper()

	device := &fakeDevice{}
	deviceServer := httptest.NewServer(device)
	t.Cleanup(deviceServer.Close)

	u, _ := url.Parse(deviceServer.URL)
	port, _ := strconv.Atoi(u.Port())

	inventory := netbox.NewFileShim(filepath.Join(t.TempDir(), "inventory.json"))
	mtu := 9000
	desc := "uplink"
	for _, iface := range []*domain.Interface{
		{ID: 17, Name: "GigabitEthernet1", Enabled: true, Device: domain.Device{ID: 1, Name: "r1", PrimaryIP: "127.0.0.1/8"}},
		{ID: 42, Name: "GigabitEthernet2", Enabled: true, Description: &desc, MTU: &mtu, Device: domain.Device{ID: 1, Name: "r1", PrimaryIP: "127.0.0.1/8"}},
		{ID: 99, Name: "GigabitEthernet0", Enabled: true, MgmtOnly: true, Device: domain.Device{ID: 1, Name: "r1", PrimaryIP: "127.0.0.1/8"}},
	} {
		if err := inventory.Put(iface); err != nil {
			t.Fatalf("seeding inventory: %v", err)
		}
	}

	store := memory.New()
	client := restconf.New(restconf.Options{Username: "admin", Password: "secret"})
	endpoint := restconf.Endpoint{Scheme: "http", Port: port}
	dispatcher := service.NewDispatcher(
		store,
		service.NewInterfaceService(inventory, client, endpoint),
		service.NewAddressService(inventory, client, endpoint),
	)

	return &testServer{
		handler:   api.NewRouter(store, dispatcher, key, nil),
		store:     store,
		inventory: inventory,
		device:    device,
	}
}

func (ts *testServer) request(method, path string, body any, apiKey string) *httptest.ResponseRecorder {
	var reqBody io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reqBody = bytes.NewBufferString(b)
	default:
		jsonBytes, _ := json.Marshal(b)
		reqBody = bytes.NewReader(jsonBytes)
	}

	req := httptest.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")
	if apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+apiKey)
	}

	rr := httptest.NewRecorder()
	ts.handler.ServeHTTP(rr, req)
	return rr
}

func (ts *testServer) events(t *testing.T) []*domain.EventRecord {
	t.Helper()
	rr := ts.request("GET", "/api/v1/events", nil, adminKey)
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status 200 listing events, got %d: %s", rr.Code, rr.Body.String())
	}
	var events []*domain.EventRecord
	if err := json.Unmarshal(rr.Body.Bytes(), &events); err != nil {
		t.Fatalf("Failed to decode events: %v", err)
	}
	return events
}

func TestHealthEndpoint(t *testing.T) {
	ts := newTestServer(t, adminKey)

	rr := ts.request("GET", "/health", nil, "")

	if rr.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", rr.Code)
	}

	var resp map[string]string
	_ = json.Unmarshal(rr.Body.Bytes(), &resp)
	if resp["status"] != "ok" {
		t.Errorf("Expected status ok, got %s", resp["status"])
	}
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newTestServer(t, adminKey)

	ts.request("POST", "/api/update-interface", "not json", "")
	rr := ts.request("GET", "/metrics", nil, "")

	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rr.Code)
	}
	if !bytes.Contains(rr.Body.Bytes(), []byte("netbox_restconf_webhook_events_total")) {
		t.Error("Expected webhook event counter in metrics output")
	}
}

func TestWebhookAlwaysNoContent(t *testing.T) {
	ts := newTestServer(t, adminKey)

	tests := []struct {
		name string
		path string
		body any
	}{
		{"malformed interface body", "/api/update-interface", "{not json"},
		{"unknown event", "/api/update-interface", map[string]any{"event": "renamed", "data": map[string]any{"id": 42}}},
		{"missing interface", "/api/update-interface", map[string]any{"event": "updated", "data": map[string]any{"id": 1000}}},
		{"bad address", "/api/update-address", map[string]any{"event": "created", "data": map[string]any{"address": "nope", "family": map[string]any{"value": 4}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := ts.request("POST", tt.path, tt.body, "")
			if rr.Code != http.StatusNoContent {
				t.Errorf("Expected status 204, got %d", rr.Code)
			}
		})
	}

	if calls := ts.device.recorded(); len(calls) != 0 {
		t.Errorf("Expected no device calls, got %v", calls)
	}

	statuses := map[string]int{}
	for _, e := range ts.events(t) {
		statuses[e.Status]++
	}
	if statuses[domain.StatusRejected] != 3 || statuses[domain.StatusFailed] != 1 {
		t.Errorf("Expected 3 rejected and 1 failed, got %v", statuses)
	}
}

func TestInterfaceWebhook(t *testing.T) {
	ts := newTestServer(t, adminKey)

	rr := ts.request("POST", "/api/update-interface", map[string]any{
		"event": "updated",
		"model": "interface",
		"data":  map[string]any{"id": 42, "name": "GigabitEthernet2"},
	}, "")
	if rr.Code != http.StatusNoContent {
		t.Fatalf("Expected status 204, got %d", rr.Code)
	}

	base := "/restconf/data/Cisco-IOS-XE-native:native/interface/GigabitEthernet=2"
	want := []string{
		"DELETE " + base + "/shutdown",
		"PUT " + base + "/description",
		"PUT " + base + "/mtu",
	}
	got := ts.device.recorded()
	if len(got) != len(want) {
		t.Fatalf("Expected calls %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Call %d: expected %q, got %q", i, want[i], got[i])
		}
	}

	events := ts.events(t)
	if len(events) != 1 {
		t.Fatalf("Expected 1 event, got %d", len(events))
	}
	if events[0].Status != domain.StatusApplied || events[0].Operations != 3 || events[0].ObjectID != 42 {
		t.Errorf("Unexpected journal entry: %+v", events[0])
	}
}

func TestManagementInterfaceUntouched(t *testing.T) {
	ts := newTestServer(t, adminKey)

	ts.request("POST", "/api/update-interface", map[string]any{"event": "updated", "data": map[string]any{"id": 99}}, "")
	ts.request("POST", "/api/update-address", map[string]any{
		"event": "created",
		"data": map[string]any{
			"address":            "10.0.0.5/24",
			"family":             map[string]any{"value": 4},
			"assigned_object_id": 99,
		},
	}, "")

	if calls := ts.device.recorded(); len(calls) != 0 {
		t.Errorf("Expected no device calls, got %v", calls)
	}
	for _, e := range ts.events(t) {
		if e.Status != domain.StatusSkipped {
			t.Errorf("Expected skipped, got %s for %s", e.Status, e.Kind)
		}
	}
}

func TestAddressWebhookMove(t *testing.T) {
	ts := newTestServer(t, adminKey)

	rr := ts.request("POST", "/api/update-address", map[string]any{
		"event": "updated",
		"data": map[string]any{
			"id":                 7,
			"address":            "10.0.0.5/24",
			"family":             map[string]any{"value": 4, "label": "IPv4"},
			"assigned_object_id": 42,
		},
		"snapshots": map[string]any{
			"prechange": map[string]any{"assigned_object_id": 17},
		},
	}, "")
	if rr.Code != http.StatusNoContent {
		t.Fatalf("Expected status 204, got %d", rr.Code)
	}

	want := []string{
		"DELETE /restconf/data/Cisco-IOS-XE-native:native/interface/GigabitEthernet=1/ip/address/primary",
		"PUT /restconf/data/Cisco-IOS-XE-native:native/interface/GigabitEthernet=2/ip/address/primary",
	}
	got := ts.device.recorded()
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("Expected calls %v, got %v", want, got)
	}
}

func TestAuthRequired(t *testing.T) {
	ts := newTestServer(t, adminKey)

	tests := []struct {
		name string
		key  string
	}{
		{"no header", ""},
		{"wrong key", "not-the-key"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := ts.request("GET", "/api/v1/events", nil, tt.key)
			if rr.Code != http.StatusUnauthorized {
				t.Errorf("Expected status 401, got %d", rr.Code)
			}
		})
	}
}

func TestAdminAPIDisabledWithoutCredentials(t *testing.T) {
	ts := newTestServer(t, "")

	rr := ts.request("GET", "/api/v1/events", nil, adminKey)
	if rr.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", rr.Code)
	}
}

func TestGetAndReplayEvent(t *testing.T) {
	ts := newTestServer(t, adminKey)

	ts.request("POST", "/api/update-interface", map[string]any{"event": "updated", "data": map[string]any{"id": 42}}, "")
	events := ts.events(t)
	if len(events) != 1 {
		t.Fatalf("Expected 1 event, got %d", len(events))
	}
	id := events[0].ID

	rr := ts.request("GET", "/api/v1/events/"+id, nil, adminKey)
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rr.Code)
	}

	rr = ts.request("GET", "/api/v1/events/does-not-exist", nil, adminKey)
	if rr.Code != http.StatusNotFound {
		t.Errorf("Expected status 404 for unknown event, got %d", rr.Code)
	}

	var logs bytes.Buffer
	log.SetOutput(&logs)
	defer log.SetOutput(os.Stderr)

	rr = ts.request("POST", "/api/v1/events/"+id+"/replay", nil, adminKey)
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status 200 on replay, got %d: %s", rr.Code, rr.Body.String())
	}
	var replayed domain.EventRecord
	if err := json.Unmarshal(rr.Body.Bytes(), &replayed); err != nil {
		t.Fatalf("Failed to decode replay: %v", err)
	}
	if replayed.ReplayOf != id || replayed.ID == id {
		t.Errorf("Expected a new event replaying %s, got %+v", id, replayed)
	}
	if replayed.Status != domain.StatusApplied {
		t.Errorf("Expected applied, got %s", replayed.Status)
	}
	if want := "admin-key replayed event " + id; !strings.Contains(logs.String(), want) {
		t.Errorf("Expected log line %q, got:\n%s", want, logs.String())
	}
	if got := len(ts.device.recorded()); got != 6 {
		t.Errorf("Expected 6 device calls after replay, got %d", got)
	}

	rr = ts.request("GET", "/api/v1/events?status=applied&kind=interface&limit=1", nil, adminKey)
	var page []*domain.EventRecord
	_ = json.Unmarshal(rr.Body.Bytes(), &page)
	if len(page) != 1 || page[0].ID != replayed.ID {
		t.Errorf("Expected newest event first in a one-item page, got %v", page)
	}
}

func TestInterfaceWebhookOutlivesSender(t *testing.T) {
	ts := newTestServer(t, adminKey)
	ts.device.delay = 150 * time.Millisecond

	listener := httptest.NewServer(ts.handler)
	defer listener.Close()

	// The sender gives up long before the three device calls are done.
	client := &http.Client{Timeout: 100 * time.Millisecond}
	resp, err := client.Post(listener.URL+"/api/update-interface", "application/json",
		strings.NewReader(`{"event":"updated","data":{"id":42}}`))
	if err == nil {
		resp.Body.Close()
		t.Fatal("Expected the sender to time out")
	}

	var record *domain.EventRecord
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		events, _ := ts.store.ListEvents(context.Background(), domain.EventFilter{})
		if len(events) == 1 && events[0].Status != domain.StatusPending {
			record = events[0]
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	if record == nil {
		t.Fatal("Event was not completed")
	}

	if calls := ts.device.recorded(); len(calls) != 3 {
		t.Errorf("Expected all 3 interface steps to reach the device, got %v", calls)
	}
	if record.Status != domain.StatusApplied || record.Operations != 3 {
		t.Errorf("Expected applied with 3 operations, got %s/%d: %s", record.Status, record.Operations, record.Error)
	}
}

func TestWebhookBodyTooLarge(t *testing.T) {
	ts := newTestServer(t, adminKey)

	body := `{"event":"updated","data":{"id":42},"padding":"` + strings.Repeat("x", 1<<20) + `"}`
	rr := ts.request("POST", "/api/update-interface", body, "")
	if rr.Code != http.StatusNoContent {
		t.Errorf("Expected status 204, got %d", rr.Code)
	}

	if calls := ts.device.recorded(); len(calls) != 0 {
		t.Errorf("Expected no device calls, got %v", calls)
	}
	events := ts.events(t)
	if len(events) != 1 {
		t.Fatalf("Expected 1 event, got %d", len(events))
	}
	if events[0].Status != domain.StatusRejected || !strings.Contains(events[0].Error, "exceeds") {
		t.Errorf("Expected rejected as too large, got %s: %s", events[0].Status, events[0].Error)
	}
}
