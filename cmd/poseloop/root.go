package main

import (
	"github.com/spf13/cobra"
)

// Version is the application version.
const Version = "0.1.0"

var rootCmd = &cobra.Command{
	Use:   "poseloop",
	Short: "Real-time posture scoring feedback loop",
	Long: `poseloop drives the client side of a posture/drill-scoring session:
it samples a video source on a fixed timer, submits each frame to the
scoring endpoint, and fans results out to the session ledger, the skeletal
overlay, and the spoken-error announcer.`,
	Version:      Version,
	SilenceUsage: true,
}
