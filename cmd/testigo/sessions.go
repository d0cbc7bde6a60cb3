package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	sessionsLimit int
	sessionsUser  string
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List recorded sessions, newest first",
	RunE:  runSessions,
}

func init() {
	sessionsCmd.Flags().IntVar(&sessionsLimit, "limit", 20, "Maximum number of sessions to show (0 for all)")
	sessionsCmd.Flags().StringVar(&sessionsUser, "user", "", "Only show sessions owned by this user")
	rootCmd.AddCommand(sessionsCmd)
}

func runSessions(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	sessions, err := a.store.Sessions().List(cmd.Context(), sessionsLimit, sessionsUser)
	if err != nil {
		return err
	}

	if len(sessions) == 0 {
		fmt.Println("No sessions recorded")
		return nil
	}
	for _, session := range sessions {
		state := "open"
		duration := "-"
		if !session.Open() {
			state = "closed"
			duration = formatElapsed(session.DurationSeconds)
		}
		fmt.Printf("%s  %-24s  %-12s  %-6s  %8s  %s\n",
			session.StartedAt.Format("2006-01-02 15:04"),
			session.Name,
			session.Username,
			state,
			duration,
			session.ID)
	}
	return nil
}
