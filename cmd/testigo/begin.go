package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/testigo/testigo/internal/recorder"
	"github.com/testigo/testigo/internal/storage"
)

var (
	beginURL         string
	beginDocument    string
	beginEvidenceDir string
	beginUser        string
)

var beginCmd = &cobra.Command{
	Use:   "begin NAME",
	Short: "Begin a new evidence session",
	Long:  `Begin a new timed evidence session. Only one session can be open at a time; finalize or abandon the current one first.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runBegin,
}

func init() {
	beginCmd.Flags().StringVar(&beginURL, "url", "", "Initial target URL of the application under test")
	beginCmd.Flags().StringVar(&beginDocument, "document", "", "Output report document path")
	beginCmd.Flags().StringVar(&beginEvidenceDir, "evidence-dir", "", "Output evidence folder")
	beginCmd.Flags().StringVar(&beginUser, "user", "", "Session owner (defaults to recorder.username)")
	rootCmd.AddCommand(beginCmd)
}

func runBegin(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	ctx := cmd.Context()
	username := beginUser
	if username == "" {
		username = a.cfg.Recorder.Username
	}

	// Refuse to stack sessions: an open one must be finalized or
	// abandoned first.
	if open, err := a.manager.FindOpenSession(ctx, ""); err == nil {
		return fmt.Errorf("session %q (%s) is still open: finalize or abandon it first", open.Name, open.ID)
	} else if !errors.Is(err, storage.ErrNotFound) {
		return err
	}

	documentPath := beginDocument
	if documentPath == "" {
		documentPath = a.cfg.Recorder.DocumentDir
	}
	evidenceDir := beginEvidenceDir
	if evidenceDir == "" {
		evidenceDir = a.cfg.Recorder.EvidenceDir
	}

	session, err := a.manager.Begin(ctx, recorder.BeginParams{
		Name:         args[0],
		InitialURL:   beginURL,
		DocumentPath: documentPath,
		EvidenceDir:  evidenceDir,
		Username:     username,
	})
	if err != nil {
		return err
	}

	fmt.Printf("Session %q started (id %s)\n", session.Name, session.ID)
	return nil
}
