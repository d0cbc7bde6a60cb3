package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/testigo/testigo/internal/recorder"
)

var (
	evidenceDescription    string
	evidenceConsiderations string
	evidenceObservations   string
)

var evidenceCmd = &cobra.Command{
	Use:   "evidence",
	Short: "Record and manage captured evidence",
}

var evidenceAddCmd = &cobra.Command{
	Use:   "add FILE",
	Short: "Record a captured file as evidence of the active session",
	Args:  cobra.ExactArgs(1),
	RunE:  runEvidenceAdd,
}

var evidenceAttachCmd = &cobra.Command{
	Use:   "attach EVIDENCE_ID FILE",
	Short: "Attach a supplementary capture to an existing evidence",
	Args:  cobra.ExactArgs(2),
	RunE:  runEvidenceAttach,
}

var evidenceReplaceCmd = &cobra.Command{
	Use:   "replace EVIDENCE_ID POSITION FILE",
	Short: "Replace the capture stored at a position of an evidence",
	Args:  cobra.ExactArgs(3),
	RunE:  runEvidenceReplace,
}

var evidenceUpdateCmd = &cobra.Command{
	Use:   "update EVIDENCE_ID FILE",
	Short: "Update the file and metadata of an evidence entry",
	Args:  cobra.ExactArgs(2),
	RunE:  runEvidenceUpdate,
}

var evidenceListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the evidence of the active session in capture order",
	RunE:  runEvidenceList,
}

func init() {
	for _, c := range []*cobra.Command{evidenceAddCmd, evidenceUpdateCmd} {
		c.Flags().StringVar(&evidenceDescription, "description", "", "What the capture shows")
		c.Flags().StringVar(&evidenceConsiderations, "considerations", "", "Preconditions or context worth noting")
		c.Flags().StringVar(&evidenceObservations, "observations", "", "Anomalies or follow-ups observed")
	}
	evidenceCmd.AddCommand(evidenceAddCmd)
	evidenceCmd.AddCommand(evidenceAttachCmd)
	evidenceCmd.AddCommand(evidenceReplaceCmd)
	evidenceCmd.AddCommand(evidenceUpdateCmd)
	evidenceCmd.AddCommand(evidenceListCmd)
	rootCmd.AddCommand(evidenceCmd)
}

func runEvidenceAdd(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	ctx := cmd.Context()
	if _, err := a.reattachOpen(ctx); err != nil {
		return err
	}

	evidence, err := a.manager.RecordEvidence(ctx, recorder.Capture{
		FilePath:       args[0],
		Description:    evidenceDescription,
		Considerations: evidenceConsiderations,
		Observations:   evidenceObservations,
	})
	if err != nil {
		return err
	}

	fmt.Printf("Evidence %s recorded at %s elapsed (+%s since previous)\n",
		evidence.ID,
		formatElapsed(evidence.ElapsedSinceStartSeconds),
		formatElapsed(evidence.ElapsedSincePreviousSeconds))
	return nil
}

func runEvidenceAttach(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	asset, err := a.manager.AttachEvidenceAsset(cmd.Context(), args[0], args[1])
	if err != nil {
		return err
	}

	fmt.Printf("Asset attached to evidence %s at position %d\n", asset.EvidenceID, asset.Position)
	return nil
}

func runEvidenceReplace(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	position, err := strconv.Atoi(args[1])
	if err != nil || position < 0 {
		return fmt.Errorf("invalid position: %s", args[1])
	}

	asset, err := a.manager.ReplaceEvidenceAsset(cmd.Context(), args[0], position, args[2])
	if err != nil {
		return err
	}

	fmt.Printf("Asset at position %d of evidence %s now points to %s\n", asset.Position, asset.EvidenceID, asset.FilePath)
	return nil
}

func runEvidenceUpdate(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	err = a.manager.UpdateEvidence(cmd.Context(), args[0], recorder.Capture{
		FilePath:       args[1],
		Description:    evidenceDescription,
		Considerations: evidenceConsiderations,
		Observations:   evidenceObservations,
	})
	if err != nil {
		return err
	}

	fmt.Printf("Evidence %s updated\n", args[0])
	return nil
}

func runEvidenceList(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	ctx := cmd.Context()
	if _, err := a.reattachOpen(ctx); err != nil {
		return err
	}

	evidences, err := a.manager.ListEvidences(ctx)
	if err != nil {
		return err
	}

	if len(evidences) == 0 {
		fmt.Println("No evidence recorded yet")
		return nil
	}

	assets, err := a.manager.ListSessionAssets(ctx)
	if err != nil {
		return err
	}
	for i, evidence := range evidences {
		fmt.Printf("%3d  %s  %-30s  at %s  +%s  (%d captures)\n",
			i+1,
			evidence.ID,
			evidence.FileName,
			formatElapsed(evidence.ElapsedSinceStartSeconds),
			formatElapsed(evidence.ElapsedSincePreviousSeconds),
			len(assets[evidence.ID]))
	}
	return nil
}
