package main

import (
	"context"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/kinesia/poseloop/internal/simulator"
	"github.com/kinesia/poseloop/pkg/logger"
)

var simOpts struct {
	addr       string
	deduction  float64
	errorEvery int
	floor      float64
}

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Serve a standalone simulated scoring endpoint",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSimulator(cmd.Context())
	},
}

func init() {
	simulateCmd.Flags().StringVarP(&simOpts.addr, "addr", "a", ":9443", "Listen address")
	simulateCmd.Flags().Float64VarP(&simOpts.deduction, "deduction", "d", 5, "Score deducted per detected error")
	simulateCmd.Flags().IntVarP(&simOpts.errorEvery, "error-every", "e", 4, "Detect one new error every N frames (0 disables)")
	simulateCmd.Flags().Float64VarP(&simOpts.floor, "floor", "f", 0, "Score at which the terminal flag raises")
	rootCmd.AddCommand(simulateCmd)
}

func runSimulator(ctx context.Context) error {
	log := logger.Get()

	mux := http.NewServeMux()
	simulator.New(
		simulator.WithDeduction(simOpts.deduction),
		simulator.WithErrorEvery(simOpts.errorEvery),
		simulator.WithScoreFloor(simOpts.floor),
	).Register(mux)

	// No read/write timeouts: the /stream route holds its connection open
	// for the whole session.
	srv := &http.Server{
		Addr:              simOpts.addr,
		Handler:           mux,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	go func() {
		<-ctx.Done()
		shutdownServer(srv)
	}()

	log.Info(ctx, "simulated scoring endpoint listening", logger.String("addr", simOpts.addr))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
