package scoring_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	scoring "github.com/kinesia/poseloop/internal/adapters/scoring"
	"github.com/kinesia/poseloop/internal/domain/codec"
	"github.com/kinesia/poseloop/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	// Initialize logging for tests
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func TestHTTPClientSubmit(t *testing.T) {
	Convey("Given a scoring endpoint behind HTTP", t, func() {
		var gotPath string
		var gotSeq int64
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotPath = r.URL.Path
			var req struct {
				SessionID     string `json:"sessionId"`
				Image         []byte `json:"image"`
				SequenceIndex int64  `json:"sequenceIndex"`
			}
			_ = json.NewDecoder(r.Body).Decode(&req)
			gotSeq = req.SequenceIndex
			_, _ = w.Write([]byte(`{"subjects": [{"subjectId": 1, "score": 95}]}`))
		}))
		Reset(srv.Close)

		client := scoring.NewHTTPClient(srv.URL)

		Convey("When submitting a frame", func() {
			result, err := client.Submit(context.Background(), scoring.Request{
				SessionID:     "sess-1",
				Image:         []byte{1, 2, 3},
				Timestamp:     time.Now(),
				SequenceIndex: 42,
			})

			Convey("Then the decoded response comes back", func() {
				So(err, ShouldBeNil)
				So(gotPath, ShouldEqual, "/sessions/sess-1/frames")
				So(gotSeq, ShouldEqual, 42)
				So(result.Subjects, ShouldHaveLength, 1)
				So(result.Subjects[0].Score, ShouldEqual, 95)
			})
		})

		Convey("When finalizing a session", func() {
			err := client.Finalize(context.Background(), "sess-1", 85, 3)

			Convey("Then the finalize route is hit", func() {
				So(err, ShouldBeNil)
				So(gotPath, ShouldEqual, "/sessions/sess-1/finalize")
			})
		})
	})
}

func TestHTTPClientFailures(t *testing.T) {
	Convey("Given a misbehaving scoring endpoint", t, func() {
		Convey("When the endpoint returns a 5xx", func() {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "boom", http.StatusInternalServerError)
			}))
			Reset(srv.Close)
			client := scoring.NewHTTPClient(srv.URL)

			_, err := client.Submit(context.Background(), scoring.Request{SessionID: "s"})

			Convey("Then submission fails with the submit sentinel", func() {
				So(err, ShouldNotBeNil)
				So(err.Error(), ShouldContainSubstring, scoring.ErrSubmitFailed.Error())
			})
		})

		Convey("When the endpoint returns unparseable JSON", func() {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{"subjects": [`))
			}))
			Reset(srv.Close)
			client := scoring.NewHTTPClient(srv.URL)

			_, err := client.Submit(context.Background(), scoring.Request{SessionID: "s"})

			Convey("Then submission fails with the codec sentinel", func() {
				So(err, ShouldNotBeNil)
				So(err.Error(), ShouldContainSubstring, codec.ErrMalformedPayload.Error())
			})
		})

		Convey("When the endpoint is unreachable", func() {
			client := scoring.NewHTTPClient("http://127.0.0.1:1")

			_, err := client.Submit(context.Background(), scoring.Request{SessionID: "s"})

			Convey("Then submission fails", func() {
				So(err, ShouldNotBeNil)
			})
		})
	})
}
