package cmd

import (
	"encoding/base64"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jactl-lang/jactl/internal/bytecode"
	"github.com/jactl-lang/jactl/pkg/jactl"
)

var resumeValue string

var checkpointCmd = &cobra.Command{
	Use:   "checkpoint",
	Short: "Inspect or resume a saved script checkpoint",
}

var checkpointResumeCmd = &cobra.Command{
	Use:   "resume <script-file> <checkpoint-file>",
	Short: "Resume a suspended script from a checkpoint file",
	Long: `Resume re-reads the original script source (it must still define the
same functions and classes the checkpoint was captured against, per
Jactl's suspend/resume contract) and continues execution from the saved
frame stack, feeding --value as the answer to whatever suspended it.`,
	Args: cobra.ExactArgs(2),
	RunE: runCheckpointResume,
}

func init() {
	rootCmd.AddCommand(checkpointCmd)
	checkpointCmd.AddCommand(checkpointResumeCmd)
	checkpointResumeCmd.Flags().StringVar(&resumeValue, "value", "", "the value to resume with, as the answer to whatever suspended the script")
}

func runCheckpointResume(_ *cobra.Command, args []string) error {
	scriptFile, checkpointFile := args[0], args[1]

	source, err := os.ReadFile(scriptFile)
	if err != nil {
		return fmt.Errorf("failed to read script %s: %w", scriptFile, err)
	}
	encoded, err := os.ReadFile(checkpointFile)
	if err != nil {
		return fmt.Errorf("failed to read checkpoint %s: %w", checkpointFile, err)
	}
	data, err := base64.StdEncoding.DecodeString(string(encoded))
	if err != nil {
		return fmt.Errorf("checkpoint file is not valid base64: %w", err)
	}

	ctx := jactl.Create().Restore(true).Build()
	script, err := ctx.CompileScript(string(source), scriptFile)
	if err != nil {
		return err
	}

	res, err := ctx.RecoverCheckpoint(data, script.Compiled(), bytecode.Str(resumeValue))
	if err != nil {
		return err
	}
	if res.Suspended {
		fmt.Fprintln(os.Stderr, "script suspended again; printing the new checkpoint")
		fmt.Println(base64.StdEncoding.EncodeToString(res.Checkpoint))
		return nil
	}
	if verbose {
		fmt.Fprintf(os.Stderr, "result: %s\n", res.Value.String())
	}
	return nil
}
