package cmd

import (
	"encoding/base64"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jactl-lang/jactl/pkg/jactl"
)

var (
	evalExpr      string
	checkpointOut bool
)

var runCmd = &cobra.Command{
	Use:   "run [file]",
	Short: "Run a Jactl script",
	Long: `Execute a Jactl program from a file or inline expression.

Examples:
  jactl run script.jactl
  jactl run -e "println('hello')"
  jactl run --checkpoint script.jactl    # enable suspend/resume support`,
	Args: cobra.MaximumNArgs(1),
	RunE: runScript,
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().StringVarP(&evalExpr, "eval", "e", "", "evaluate inline code instead of reading from file")
	runCmd.Flags().BoolVar(&checkpointOut, "checkpoint", false, "allow the script to suspend; print a base64 checkpoint if it does")
}

func runScript(_ *cobra.Command, args []string) error {
	input, filename, err := readInput(evalExpr, args)
	if err != nil {
		return err
	}

	ctx := jactl.Create().Checkpoint(checkpointOut).Build()
	script, err := ctx.CompileScript(input, filename)
	if err != nil {
		return err
	}

	res, err := script.Run()
	if err != nil {
		return err
	}
	if res.Suspended {
		if !checkpointOut {
			return fmt.Errorf("script suspended but --checkpoint was not given")
		}
		fmt.Fprintf(os.Stderr, "script suspended (checkpoint %s); resume with `jactl checkpoint resume`\n", res.CheckpointID)
		fmt.Println(base64.StdEncoding.EncodeToString(res.Checkpoint))
		return nil
	}
	if verbose {
		fmt.Fprintf(os.Stderr, "result: %s\n", res.Value.String())
	}
	return nil
}
