package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/spherical/cropcare/internal/domain"
	"github.com/spherical/cropcare/internal/ui"
)

var extractOutput string

var extractCmd = &cobra.Command{
	Use:   "extract <file>",
	Short: "Extract text from a PDF, DOCX, TXT or image file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}

		a, err := buildApp(ctx, cfg, "console")
		if err != nil {
			return err
		}
		defer a.Close()

		artifact, err := readArtifact(args[0])
		if err != nil {
			return err
		}

		events := make(chan domain.ProgressEvent, progressChannelSize)
		rendered := renderProgressBar(events)
		res, err := a.extractor.Extract(ctx, artifact, events)
		close(events)
		<-rendered

		for _, w := range res.Warnings {
			ui.Warning("%s", w)
		}
		if err != nil {
			if domain.IsType(err, domain.ErrorTypeUnsupportedFile) || res.Text == "" {
				return err
			}
			ui.Warning("%v", err)
		}
		if res.Text == "" {
			return fmt.Errorf("no readable text found in %s", artifact.Name)
		}

		ui.Debug("method=%s pages=%d chars=%d", res.Method, res.Pages, len(res.Text))

		if extractOutput == "" {
			fmt.Fprintln(os.Stdout, res.Text)
			return nil
		}
		if err := os.WriteFile(extractOutput, []byte(res.Text+"\n"), 0o644); err != nil {
			return domain.IOError("Failed to write "+extractOutput, err)
		}
		ui.Success("Wrote %d characters to %s (%s)", len(res.Text), extractOutput, res.Method)
		return nil
	},
}

func init() {
	extractCmd.Flags().StringVarP(&extractOutput, "output", "o", "", "write text to this file instead of stdout")
}
