package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var pauseCmd = &cobra.Command{
	Use:   "pause",
	Short: "Pause the active session timer",
	RunE:  runPause,
}

var resumeCmd = &cobra.Command{
	Use:   "resume",
	Short: "Resume a paused session",
	RunE:  runResume,
}

func init() {
	rootCmd.AddCommand(pauseCmd)
	rootCmd.AddCommand(resumeCmd)
}

func runPause(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	ctx := cmd.Context()
	if _, err := a.reattachOpen(ctx); err != nil {
		return err
	}

	pause, err := a.manager.Pause(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("Session paused at %s elapsed\n", formatElapsed(pause.ElapsedSecondsWhenPaused))
	return nil
}

func runResume(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	ctx := cmd.Context()
	if _, err := a.reattachOpen(ctx); err != nil {
		return err
	}

	pause, err := a.manager.Resume(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("Session resumed after a %s pause\n", formatElapsed(pause.PauseDurationSeconds))
	return nil
}
