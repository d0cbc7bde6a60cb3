package main

import (
	"errors"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/testigo/testigo/internal/recorder"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the active session, its elapsed time and pause history",
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	ctx := cmd.Context()
	session, err := a.reattachOpen(ctx)
	if err != nil {
		if errors.Is(err, recorder.ErrNoActiveSession) {
			fmt.Println("No active session")
			return nil
		}
		return err
	}

	state := a.manager.State()
	stateLabel := color.GreenString("running")
	if state == recorder.StatePaused {
		stateLabel = color.YellowString("paused")
	}

	bold := color.New(color.Bold)
	bold.Printf("%s", session.Name)
	fmt.Printf("  [%s]\n", stateLabel)
	fmt.Printf("  id:        %s\n", session.ID)
	fmt.Printf("  owner:     %s\n", session.Username)
	fmt.Printf("  started:   %s\n", session.StartedAt.Format("2006-01-02 15:04:05"))
	fmt.Printf("  elapsed:   %s\n", formatElapsed(a.manager.ElapsedSeconds()))
	if session.InitialURL != "" {
		fmt.Printf("  url:       %s\n", session.InitialURL)
	}
	if session.DocumentPath != "" {
		fmt.Printf("  document:  %s\n", session.DocumentPath)
	}
	if session.EvidenceDir != "" {
		fmt.Printf("  evidence:  %s\n", session.EvidenceDir)
	}

	evidences, err := a.manager.ListEvidences(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("  captures:  %d\n", len(evidences))

	pauses, err := a.manager.ListPauses(ctx)
	if err != nil {
		return err
	}
	if len(pauses) > 0 {
		fmt.Println("  pauses:")
		for _, pause := range pauses {
			if pause.Open() {
				fmt.Printf("    %s  (still paused)\n", pause.PausedAt.Format("15:04:05"))
				continue
			}
			fmt.Printf("    %s - %s  (%s)\n",
				pause.PausedAt.Format("15:04:05"),
				pause.ResumedAt.Format("15:04:05"),
				formatElapsed(pause.PauseDurationSeconds))
		}
	}
	return nil
}
