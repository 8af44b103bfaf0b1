package status_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/kinesia/poseloop/internal/adapters/http/status"
	"github.com/kinesia/poseloop/pkg/logger"
)

func init() {
	// Initialize logging for tests
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

// fakeProvider is a controllable status source.
type fakeProvider struct {
	mu       sync.Mutex
	snapshot status.Snapshot
	announce []bool
	overlay  []bool
}

func (f *fakeProvider) Snapshot(ctx context.Context) status.Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snapshot
}

func (f *fakeProvider) SetAnnouncementsEnabled(enabled bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.announce = append(f.announce, enabled)
}

func (f *fakeProvider) SetOverlayEnabled(enabled bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.overlay = append(f.overlay, enabled)
}

func newTestServer(provider *fakeProvider) *httptest.Server {
	mux := http.NewServeMux()
	status.NewServer(provider).Register(context.Background(), mux)
	return httptest.NewServer(mux)
}

func TestStatusRoute(t *testing.T) {
	Convey("Given a status server", t, func() {
		provider := &fakeProvider{snapshot: status.Snapshot{
			SessionID:     "s-1",
			Mode:          "testing",
			Status:        "active",
			Score:         85,
			TotalErrors:   3,
			FrameSequence: 12,
			Announcements: true,
			Overlay:       true,
		}}
		srv := newTestServer(provider)
		defer srv.Close()

		Convey("GET /status returns the provider snapshot", func() {
			resp, err := http.Get(srv.URL + "/status")
			So(err, ShouldBeNil)
			defer resp.Body.Close()
			So(resp.StatusCode, ShouldEqual, http.StatusOK)

			var snap status.Snapshot
			So(json.NewDecoder(resp.Body).Decode(&snap), ShouldBeNil)
			So(snap, ShouldResemble, provider.snapshot)
		})

		Convey("POST /status is rejected", func() {
			resp, err := http.Post(srv.URL+"/status", "application/json", nil)
			So(err, ShouldBeNil)
			defer resp.Body.Close()
			So(resp.StatusCode, ShouldEqual, http.StatusMethodNotAllowed)
		})

		Convey("GET /healthz reports ok", func() {
			resp, err := http.Get(srv.URL + "/healthz")
			So(err, ShouldBeNil)
			defer resp.Body.Close()
			So(resp.StatusCode, ShouldEqual, http.StatusOK)
		})

		Convey("GET /metrics serves the registry", func() {
			resp, err := http.Get(srv.URL + "/metrics")
			So(err, ShouldBeNil)
			defer resp.Body.Close()
			So(resp.StatusCode, ShouldEqual, http.StatusOK)
		})
	})
}

func TestToggleRoutes(t *testing.T) {
	Convey("Given a status server", t, func() {
		provider := &fakeProvider{}
		srv := newTestServer(provider)
		defer srv.Close()

		Convey("The announce toggles reach the provider", func() {
			resp, err := http.Post(srv.URL+"/announce/disable", "application/json", nil)
			So(err, ShouldBeNil)
			resp.Body.Close()
			So(resp.StatusCode, ShouldEqual, http.StatusOK)

			resp, err = http.Post(srv.URL+"/announce/enable", "application/json", nil)
			So(err, ShouldBeNil)
			resp.Body.Close()
			So(resp.StatusCode, ShouldEqual, http.StatusOK)

			So(provider.announce, ShouldResemble, []bool{false, true})
			So(provider.overlay, ShouldBeEmpty)
		})

		Convey("The overlay toggles reach the provider", func() {
			resp, err := http.Post(srv.URL+"/overlay/enable", "application/json", nil)
			So(err, ShouldBeNil)
			resp.Body.Close()
			So(resp.StatusCode, ShouldEqual, http.StatusOK)

			So(provider.overlay, ShouldResemble, []bool{true})
		})

		Convey("GET on a toggle is rejected", func() {
			resp, err := http.Get(srv.URL + "/overlay/enable")
			So(err, ShouldBeNil)
			defer resp.Body.Close()
			So(resp.StatusCode, ShouldEqual, http.StatusMethodNotAllowed)
			So(provider.overlay, ShouldBeEmpty)
		})
	})
}
