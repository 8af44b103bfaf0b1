// Package codec normalizes scoring endpoint payloads into one canonical
// internal shape. Alternate field names and optional fields are resolved
// here; consuming components never see wire-level variance.
package codec

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kinesia/poseloop/internal/domain/model"
	"github.com/kinesia/poseloop/pkg/metrics"
)

// ErrorDetail is one server-reported posture error, pre-sequencing.
type ErrorDetail struct {
	Category string
	Message  string
}

// SubjectResult is the canonical per-subject slice of one scoring response.
type SubjectResult struct {
	SubjectID int
	Score     float64
	HasScore  bool
	Errors    []ErrorDetail
	// Keypoints is nil when the payload carried no keypoint set or the set
	// failed validation. Score and Errors are applied independently of
	// keypoint validity.
	Keypoints []model.Keypoint
	Stopped   bool
}

// Result is the canonical decoded scoring response.
type Result struct {
	Subjects     []SubjectResult
	StableIDs    []int
	TotalPersons int
}

// wireError tolerates the two category spellings and the two message
// spellings the endpoint has shipped over time.
type wireError struct {
	Category string `json:"category"`
	Type     string `json:"type"`
	Message  string `json:"message"`
	Msg      string `json:"msg"`
}

func (e wireError) normalize() (ErrorDetail, bool) {
	category := strings.TrimSpace(e.Category)
	if category == "" {
		category = strings.TrimSpace(e.Type)
	}
	if category == "" {
		return ErrorDetail{}, false
	}
	message := e.Message
	if message == "" {
		message = e.Msg
	}
	return ErrorDetail{Category: category, Message: message}, true
}

type wireSubject struct {
	SubjectID *int        `json:"subjectId"`
	PersonID  *int        `json:"personId"`
	Score     *float64    `json:"score"`
	Errors    []wireError `json:"errors"`
	Keypoints [][]float64 `json:"keypoints"`
	Stopped   bool        `json:"stopped"`
}

type wireResult struct {
	Subjects        []wireSubject `json:"subjects"`
	StablePersonIDs []int         `json:"stablePersonIds"`
	TotalPersons    int           `json:"totalPersons"`
}

// Decode parses a raw scoring response. Absent subjects, errors, or
// keypoints decode to empty values, not failures; only structurally
// unparseable JSON is rejected.
func Decode(data []byte) (Result, error) {
	var wire wireResult
	if err := json.Unmarshal(data, &wire); err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}

	out := Result{
		StableIDs:    wire.StablePersonIDs,
		TotalPersons: wire.TotalPersons,
	}
	for _, ws := range wire.Subjects {
		subject, ok := normalizeSubject(ws)
		if !ok {
			metrics.RecordMalformedSubject()
			continue
		}
		out.Subjects = append(out.Subjects, subject)
	}
	return out, nil
}

// normalizeSubject maps one wire subject to canonical form. A subject
// without any identifier cannot be merged and is dropped.
func normalizeSubject(ws wireSubject) (SubjectResult, bool) {
	id, ok := subjectID(ws)
	if !ok {
		return SubjectResult{}, false
	}

	subject := SubjectResult{SubjectID: id, Stopped: ws.Stopped}
	if ws.Score != nil {
		subject.Score = *ws.Score
		subject.HasScore = true
	}
	for _, we := range ws.Errors {
		detail, valid := we.normalize()
		if !valid {
			continue
		}
		subject.Errors = append(subject.Errors, detail)
	}
	subject.Keypoints = decodeKeypoints(ws.Keypoints)
	return subject, true
}

func subjectID(ws wireSubject) (int, bool) {
	switch {
	case ws.SubjectID != nil:
		return *ws.SubjectID, true
	case ws.PersonID != nil:
		return *ws.PersonID, true
	default:
		return 0, false
	}
}

// decodeKeypoints validates and converts a wire keypoint list. Anything
// other than exactly KeypointCount well-formed [x, y, confidence] triples
// yields nil so the renderer never sees a partial skeleton.
func decodeKeypoints(raw [][]float64) []model.Keypoint {
	if raw == nil {
		return nil
	}
	if len(raw) != model.KeypointCount {
		metrics.RecordMalformedKeypoints()
		return nil
	}
	keypoints := make([]model.Keypoint, 0, model.KeypointCount)
	for _, triple := range raw {
		if len(triple) < 3 {
			metrics.RecordMalformedKeypoints()
			return nil
		}
		keypoints = append(keypoints, model.Keypoint{
			X:          triple[0],
			Y:          triple[1],
			Confidence: clampConfidence(triple[2]),
		})
	}
	return keypoints
}

func clampConfidence(c float64) float64 {
	switch {
	case c < 0:
		return 0
	case c > 1:
		return 1
	default:
		return c
	}
}
