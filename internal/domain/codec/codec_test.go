package codec_test

import (
	"fmt"
	"strings"
	"testing"

	codec "github.com/kinesia/poseloop/internal/domain/codec"
	"github.com/kinesia/poseloop/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

// keypointJSON builds a well-formed 17-triple keypoint array.
func keypointJSON() string {
	triples := make([]string, model.KeypointCount)
	for i := range triples {
		triples[i] = fmt.Sprintf("[%d,%d,0.9]", i*10, i*20)
	}
	return "[" + strings.Join(triples, ",") + "]"
}

func TestDecodeCanonicalPayload(t *testing.T) {
	Convey("Given a fully populated scoring response", t, func() {
		payload := fmt.Sprintf(`{
			"subjects": [{
				"subjectId": 1,
				"score": 92.5,
				"errors": [{"category": "arm_angle", "message": "raise your elbow"}],
				"keypoints": %s,
				"stopped": false
			}],
			"stablePersonIds": [1],
			"totalPersons": 1
		}`, keypointJSON())

		Convey("When decoding", func() {
			result, err := codec.Decode([]byte(payload))

			Convey("Then all fields map to the canonical shape", func() {
				So(err, ShouldBeNil)
				So(result.Subjects, ShouldHaveLength, 1)
				subject := result.Subjects[0]
				So(subject.SubjectID, ShouldEqual, 1)
				So(subject.HasScore, ShouldBeTrue)
				So(subject.Score, ShouldEqual, 92.5)
				So(subject.Errors, ShouldHaveLength, 1)
				So(subject.Errors[0].Category, ShouldEqual, "arm_angle")
				So(subject.Errors[0].Message, ShouldEqual, "raise your elbow")
				So(subject.Keypoints, ShouldHaveLength, model.KeypointCount)
				So(subject.Stopped, ShouldBeFalse)
				So(result.StableIDs, ShouldResemble, []int{1})
				So(result.TotalPersons, ShouldEqual, 1)
			})
		})
	})
}

func TestDecodeAlternateFieldNames(t *testing.T) {
	Convey("Given a response using the older field spellings", t, func() {
		payload := `{
			"subjects": [{
				"personId": 3,
				"score": 88,
				"errors": [{"type": "back_straight", "msg": "keep your back straight"}]
			}]
		}`

		Convey("When decoding", func() {
			result, err := codec.Decode([]byte(payload))

			Convey("Then alternates are normalized away", func() {
				So(err, ShouldBeNil)
				So(result.Subjects, ShouldHaveLength, 1)
				subject := result.Subjects[0]
				So(subject.SubjectID, ShouldEqual, 3)
				So(subject.Errors[0].Category, ShouldEqual, "back_straight")
				So(subject.Errors[0].Message, ShouldEqual, "keep your back straight")
			})
		})
	})
}

func TestDecodeAbsentFields(t *testing.T) {
	Convey("Given a response with absent optional fields", t, func() {
		Convey("When keypoints and errors are missing entirely", func() {
			result, err := codec.Decode([]byte(`{"subjects": [{"subjectId": 2, "score": 70}]}`))

			Convey("Then they decode to empty, not an error", func() {
				So(err, ShouldBeNil)
				So(result.Subjects, ShouldHaveLength, 1)
				So(result.Subjects[0].Errors, ShouldBeEmpty)
				So(result.Subjects[0].Keypoints, ShouldBeNil)
			})
		})

		Convey("When no subjects are present at all", func() {
			result, err := codec.Decode([]byte(`{}`))

			Convey("Then the result is valid and empty", func() {
				So(err, ShouldBeNil)
				So(result.Subjects, ShouldBeEmpty)
			})
		})

		Convey("When the score field is absent", func() {
			result, err := codec.Decode([]byte(`{"subjects": [{"subjectId": 4}]}`))

			Convey("Then HasScore is false", func() {
				So(err, ShouldBeNil)
				So(result.Subjects[0].HasScore, ShouldBeFalse)
			})
		})
	})
}

func TestDecodeMalformedKeypoints(t *testing.T) {
	Convey("Given keypoint payload defects", t, func() {
		Convey("When the keypoint list has the wrong cardinality", func() {
			payload := `{"subjects": [{"subjectId": 1, "score": 90, "keypoints": [[1,2,0.9],[3,4,0.9]]}]}`
			result, err := codec.Decode([]byte(payload))

			Convey("Then keypoints are rejected but score survives", func() {
				So(err, ShouldBeNil)
				So(result.Subjects, ShouldHaveLength, 1)
				So(result.Subjects[0].Keypoints, ShouldBeNil)
				So(result.Subjects[0].HasScore, ShouldBeTrue)
				So(result.Subjects[0].Score, ShouldEqual, 90)
			})
		})

		Convey("When a triple is short", func() {
			triples := make([]string, model.KeypointCount)
			for i := range triples {
				triples[i] = "[1,2,0.9]"
			}
			triples[8] = "[1,2]"
			payload := fmt.Sprintf(`{"subjects": [{"subjectId": 1, "keypoints": [%s]}]}`, strings.Join(triples, ","))
			result, err := codec.Decode([]byte(payload))

			Convey("Then the whole set is rejected", func() {
				So(err, ShouldBeNil)
				So(result.Subjects[0].Keypoints, ShouldBeNil)
			})
		})

		Convey("When confidence is out of range", func() {
			triples := make([]string, model.KeypointCount)
			for i := range triples {
				triples[i] = "[1,2,1.7]"
			}
			payload := fmt.Sprintf(`{"subjects": [{"subjectId": 1, "keypoints": [%s]}]}`, strings.Join(triples, ","))
			result, err := codec.Decode([]byte(payload))

			Convey("Then confidence is clamped into [0,1]", func() {
				So(err, ShouldBeNil)
				So(result.Subjects[0].Keypoints[0].Confidence, ShouldEqual, 1.0)
			})
		})
	})
}

func TestDecodeStructuralDefects(t *testing.T) {
	Convey("Given structurally defective payloads", t, func() {
		Convey("When the JSON is unparseable", func() {
			_, err := codec.Decode([]byte(`{"subjects": [`))

			Convey("Then decoding fails with the malformed sentinel", func() {
				So(err, ShouldNotBeNil)
				So(err.Error(), ShouldContainSubstring, codec.ErrMalformedPayload.Error())
			})
		})

		Convey("When a subject carries no identifier", func() {
			result, err := codec.Decode([]byte(`{"subjects": [{"score": 50}, {"subjectId": 9}]}`))

			Convey("Then only that subject is dropped", func() {
				So(err, ShouldBeNil)
				So(result.Subjects, ShouldHaveLength, 1)
				So(result.Subjects[0].SubjectID, ShouldEqual, 9)
			})
		})

		Convey("When an error entry has no category under either name", func() {
			result, err := codec.Decode([]byte(`{"subjects": [{"subjectId": 1, "errors": [{"message": "??"}, {"category": "knee_bend"}]}]}`))

			Convey("Then only the categorized error survives", func() {
				So(err, ShouldBeNil)
				So(result.Subjects[0].Errors, ShouldHaveLength, 1)
				So(result.Subjects[0].Errors[0].Category, ShouldEqual, "knee_bend")
			})
		})
	})
}
