package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var finalizeCmd = &cobra.Command{
	Use:   "finalize",
	Short: "Finalize the active session and persist its duration",
	Long:  `Finalize the active session. A paused session must be resumed first so the closing duration reflects real running time.`,
	RunE:  runFinalize,
}

var abandonCmd = &cobra.Command{
	Use:   "abandon",
	Short: "Abandon the active session without finalizing it",
	Long:  `Abandon the active session. The persisted rows are kept as-is; the session simply stops being the active one and stays open in storage.`,
	RunE:  runAbandon,
}

func init() {
	rootCmd.AddCommand(finalizeCmd)
	rootCmd.AddCommand(abandonCmd)
}

func runFinalize(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	ctx := cmd.Context()
	if _, err := a.reattachOpen(ctx); err != nil {
		return err
	}

	session, err := a.manager.Finalize(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("Session %q finalized after %s\n", session.Name, formatElapsed(session.DurationSeconds))
	return nil
}

func runAbandon(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	ctx := cmd.Context()
	session, err := a.reattachOpen(ctx)
	if err != nil {
		return err
	}

	a.manager.ClearActiveSession()
	fmt.Printf("Session %q abandoned; its rows remain in storage (id %s)\n", session.Name, session.ID)
	return nil
}
