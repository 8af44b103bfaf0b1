// Package config defines process configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults.
// - Load(ctx) layers defaults, optional YAML file, and environment.
// - External errors must be wrapped via this package's error helpers.
package config

// Config contains process configuration. Extend as needed.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the status HTTP listen address, e.g. ":9090".
	Addr string `koanf:"addr"`

	// Endpoint is the scoring service base URL (http[s]:// for the POST
	// transport, ws[s]:// for the stream transport).
	Endpoint string `koanf:"endpoint"`

	// Transport selects the scoring client: "http" or "ws".
	Transport string `koanf:"transport"`

	// TickIntervalMS sets the capture timer period.
	TickIntervalMS int `koanf:"tick_interval_ms"`

	// StartScore is the score a session opens with.
	StartScore float64 `koanf:"start_score"`

	// ScoreFloor is the clamp floor for merged scores.
	ScoreFloor float64 `koanf:"score_floor"`

	// AnnounceCooldownMS is the per-category announcement cooldown window.
	AnnounceCooldownMS int `koanf:"announce_cooldown_ms"`

	// AnnounceBacklog bounds the pending announcement backlog.
	AnnounceBacklog int `koanf:"announce_backlog"`

	// AnnouncePaceMS is the pause between consecutive announcements.
	AnnouncePaceMS int `koanf:"announce_pace_ms"`

	// VisibilityThreshold gates keypoint rendering by confidence.
	VisibilityThreshold float64 `koanf:"visibility_threshold"`

	// SourceWidth and SourceHeight are the capture frame dimensions.
	SourceWidth  int `koanf:"source_width"`
	SourceHeight int `koanf:"source_height"`

	// DisplayWidth and DisplayHeight are the overlay surface dimensions.
	DisplayWidth  int `koanf:"display_width"`
	DisplayHeight int `koanf:"display_height"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:            "info",
		Addr:                ":9090",
		Endpoint:            "http://127.0.0.1:9443",
		Transport:           "http",
		TickIntervalMS:      120,
		StartScore:          100,
		ScoreFloor:          0,
		AnnounceCooldownMS:  2000,
		AnnounceBacklog:     5,
		AnnouncePaceMS:      300,
		VisibilityThreshold: 0.3,
		SourceWidth:         640,
		SourceHeight:        480,
		DisplayWidth:        960,
		DisplayHeight:       720,
	}
}
