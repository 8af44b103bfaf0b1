// Package simulator fakes the remote scoring endpoint for demos and
// end-to-end tests. Scoring is deterministic: every Nth frame of a session
// detects one more posture error and deducts a fixed amount from the score,
// and the terminal stopped flag raises once the score floor is crossed.
package simulator

import (
	"context"
	"math"
	"sync"

	"github.com/kinesia/poseloop/pkg/logger"
)

// Default simulator tuning.
const (
	defaultStartScore = 100
	defaultDeduction  = 5
	defaultErrorEvery = 4
	defaultFloor      = 0
)

// errorCategories cycle in detection order.
var errorCategories = []string{
	"arm_angle",
	"back_straight",
	"knee_bend",
	"head_position",
	"stance_width",
	"hip_rotation",
}

// Option applies a configuration option to the Simulator.
type Option func(*Simulator)

// WithStartScore sets the score a session starts from.
func WithStartScore(score float64) Option {
	return func(s *Simulator) {
		s.startScore = score
	}
}

// WithDeduction sets the score deducted per detected error.
func WithDeduction(amount float64) Option {
	return func(s *Simulator) {
		if amount > 0 {
			s.deduction = amount
		}
	}
}

// WithErrorEvery detects one new error every n frames. Zero disables
// detection entirely.
func WithErrorEvery(n int) Option {
	return func(s *Simulator) {
		if n >= 0 {
			s.errorEvery = n
		}
	}
}

// WithScoreFloor sets the score at which the terminal flag raises.
func WithScoreFloor(floor float64) Option {
	return func(s *Simulator) {
		s.floor = floor
	}
}

// WithLogger sets a custom logger for the simulator.
func WithLogger(log logger.Logger) Option {
	return func(s *Simulator) {
		if log != nil {
			s.logger = log
		}
	}
}

// Simulator scores frames against per-session state.
type Simulator struct {
	mu       sync.Mutex
	sessions map[string]*sessionState

	startScore float64
	deduction  float64
	errorEvery int
	floor      float64
	logger     logger.Logger
}

type sessionState struct {
	frames    int64
	score     float64
	errors    []errorPayload
	finalized bool
}

// New creates a scoring simulator.
func New(opts ...Option) *Simulator {
	s := &Simulator{
		sessions:   make(map[string]*sessionState),
		startScore: defaultStartScore,
		deduction:  defaultDeduction,
		errorEvery: defaultErrorEvery,
		floor:      defaultFloor,
		logger:     logger.Get().Named("simulator"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Wire shapes mirror what the feedback loop's decoder accepts.
type errorPayload struct {
	Category string `json:"category"`
	Message  string `json:"message"`
}

type subjectPayload struct {
	SubjectID int            `json:"subjectId"`
	Score     float64        `json:"score"`
	Errors    []errorPayload `json:"errors"`
	Keypoints [][]float64    `json:"keypoints"`
	Stopped   bool           `json:"stopped"`
}

type resultPayload struct {
	Subjects        []subjectPayload `json:"subjects"`
	StablePersonIDs []int            `json:"stablePersonIds"`
	TotalPersons    int              `json:"totalPersons"`
}

// scoreFrame advances a session by one frame and returns its response.
func (s *Simulator) scoreFrame(sessionID string) resultPayload {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.sessions[sessionID]
	if !ok {
		st = &sessionState{score: s.startScore}
		s.sessions[sessionID] = st
	}
	st.frames++

	if s.errorEvery > 0 && st.frames%int64(s.errorEvery) == 0 {
		category := errorCategories[len(st.errors)%len(errorCategories)]
		st.errors = append(st.errors, errorPayload{
			Category: category,
			Message:  "error in " + category,
		})
		st.score -= s.deduction
		if st.score < s.floor {
			st.score = s.floor
		}
	}

	stopped := st.score <= s.floor
	errs := make([]errorPayload, len(st.errors))
	copy(errs, st.errors)

	return resultPayload{
		Subjects: []subjectPayload{{
			SubjectID: 1,
			Score:     st.score,
			Errors:    errs,
			Keypoints: posedKeypoints(st.frames),
			Stopped:   stopped,
		}},
		StablePersonIDs: []int{1},
		TotalPersons:    1,
	}
}

// finalize records terminal values for a session.
func (s *Simulator) finalize(ctx context.Context, sessionID string, score float64, totalErrors int) {
	s.mu.Lock()
	st, ok := s.sessions[sessionID]
	if ok {
		st.finalized = true
	}
	s.mu.Unlock()

	s.logger.Info(ctx, "session finalized",
		logger.String("sessionID", sessionID),
		logger.Float64("score", score),
		logger.Int("totalErrors", totalErrors),
	)
}

// Finalized reports whether a session has received a finalize call.
func (s *Simulator) Finalized(sessionID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.sessions[sessionID]
	return ok && st.finalized
}

// basePose is a standing figure in a 640x480 frame, one x/y pair per
// landmark in detection order (nose through right ankle).
var basePose = [17][2]float64{
	{320, 80},  // nose
	{310, 70},  // left eye
	{330, 70},  // right eye
	{300, 75},  // left ear
	{340, 75},  // right ear
	{280, 140}, // left shoulder
	{360, 140}, // right shoulder
	{260, 210}, // left elbow
	{380, 210}, // right elbow
	{250, 280}, // left wrist
	{390, 280}, // right wrist
	{295, 270}, // left hip
	{345, 270}, // right hip
	{290, 350}, // left knee
	{350, 350}, // right knee
	{285, 440}, // left ankle
	{355, 440}, // right ankle
}

// posedKeypoints renders the base pose with a deterministic per-frame sway
// so consecutive frames differ visibly but reproducibly.
func posedKeypoints(frame int64) [][]float64 {
	sway := 4 * math.Sin(float64(frame)/5)
	out := make([][]float64, 0, len(basePose))
	for i, p := range basePose {
		confidence := 0.9
		if i >= 15 {
			// Ankles flicker near typical visibility thresholds.
			confidence = 0.5 + 0.4*math.Cos(float64(frame)/3)
			if confidence < 0 {
				confidence = 0
			}
		}
		out = append(out, []float64{p[0] + sway, p[1], confidence})
	}
	return out
}
