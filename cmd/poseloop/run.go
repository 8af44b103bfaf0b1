package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/kinesia/poseloop/internal/adapters/capture"
	"github.com/kinesia/poseloop/internal/adapters/http/status"
	"github.com/kinesia/poseloop/internal/adapters/scoring"
	service "github.com/kinesia/poseloop/internal/app"
	"github.com/kinesia/poseloop/internal/config"
	"github.com/kinesia/poseloop/internal/domain/model"
	"github.com/kinesia/poseloop/internal/domain/overlay"
	"github.com/kinesia/poseloop/internal/simulator"
	"github.com/kinesia/poseloop/pkg/logger"
)

// HTTP server timeout constants.
const (
	readTimeout       = 10 * time.Second
	writeTimeout      = 10 * time.Second
	idleTimeout       = 60 * time.Second
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 10 * time.Second
)

var runOpts struct {
	sessionID string
	mode      string
	simulate  bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a scoring session",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSession(cmd.Context())
	},
}

func init() {
	runCmd.Flags().StringVarP(&runOpts.sessionID, "session", "s", "", "Session id (generated when empty)")
	runCmd.Flags().StringVarP(&runOpts.mode, "mode", "m", "testing", "Session mode: testing or practising")
	runCmd.Flags().BoolVar(&runOpts.simulate, "simulate", false, "Score against an in-process simulated endpoint")
	rootCmd.AddCommand(runCmd)
}

func runSession(ctx context.Context) error {
	log := logger.Get()

	cfg, err := config.Load(ctx)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info",
			logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	endpoint := cfg.Endpoint
	if runOpts.simulate {
		simSrv, simAddr, err := startInProcessSimulator(ctx, cfg, log)
		if err != nil {
			return err
		}
		defer shutdownServer(simSrv)
		endpoint = simAddr
	}

	client, err := buildClient(ctx, cfg, endpoint)
	if err != nil {
		return fmt.Errorf("connect scoring endpoint: %w", err)
	}

	mode := model.SessionMode(runOpts.mode)
	sessionID := runOpts.sessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	// The terminal condition ends the process run.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	svc := service.New(
		service.WithClient(client),
		service.WithSource(capture.NewSyntheticSource(
			capture.WithFrameSize(cfg.SourceWidth, cfg.SourceHeight),
		)),
		service.WithTickInterval(time.Duration(cfg.TickIntervalMS)*time.Millisecond),
		service.WithStartScore(cfg.StartScore),
		service.WithScoreFloor(cfg.ScoreFloor),
		service.WithCooldownWindow(time.Duration(cfg.AnnounceCooldownMS)*time.Millisecond),
		service.WithBacklogCapacity(cfg.AnnounceBacklog),
		service.WithPacing(time.Duration(cfg.AnnouncePaceMS)*time.Millisecond),
		service.WithVisibilityThreshold(cfg.VisibilityThreshold),
		service.WithDisplaySize(func() overlay.Size {
			return overlay.Size{Width: float64(cfg.DisplayWidth), Height: float64(cfg.DisplayHeight)}
		}),
		service.WithNavigator(func(st model.SessionStatus) {
			log.Info(ctx, "session reached terminal state", logger.String("status", string(st)))
			cancel()
		}),
		service.WithLogger(log),
	)
	defer func() { _ = svc.Close() }()

	// Status/toggle surface.
	mux := http.NewServeMux()
	status.NewServer(svc).Register(ctx, mux)
	statusSrv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}
	go func() {
		log.Info(ctx, "starting status server", logger.String("addr", cfg.Addr))
		if err := statusSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error(ctx, "status server failed", logger.Error(err))
		}
	}()
	defer shutdownServer(statusSrv)

	if err := svc.Start(ctx, sessionID, mode); err != nil {
		return fmt.Errorf("start session: %w", err)
	}

	<-ctx.Done()
	svc.Stop(context.Background())
	log.Info(context.Background(), "session run finished", logger.String("sessionID", sessionID))
	return nil
}

// buildClient selects the scoring transport from config.
func buildClient(ctx context.Context, cfg *config.Config, endpoint string) (scoring.Client, error) {
	if cfg.Transport == "ws" {
		return scoring.DialWS(ctx, endpoint)
	}
	return scoring.NewHTTPClient(endpoint), nil
}

// startInProcessSimulator serves the simulated endpoint on a loopback
// listener and returns its base URL.
func startInProcessSimulator(ctx context.Context, cfg *config.Config, log logger.Logger) (*http.Server, string, error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, "", fmt.Errorf("listen for simulator: %w", err)
	}

	mux := http.NewServeMux()
	simulator.New(simulator.WithScoreFloor(cfg.ScoreFloor)).Register(mux)
	// No read/write timeouts: the /stream route holds its connection open
	// for the whole session.
	srv := &http.Server{
		Handler:           mux,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}
	go func() {
		if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			log.Error(ctx, "simulator server failed", logger.Error(err))
		}
	}()

	scheme := "http"
	if cfg.Transport == "ws" {
		scheme = "ws"
	}
	addr := fmt.Sprintf("%s://%s", scheme, ln.Addr().String())
	if cfg.Transport == "ws" {
		addr += "/stream"
	}
	log.Info(ctx, "in-process simulator listening", logger.String("addr", addr))
	return srv, addr, nil
}

func shutdownServer(srv *http.Server) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	_ = srv.Shutdown(ctx)
}
