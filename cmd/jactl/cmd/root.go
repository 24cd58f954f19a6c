// Package cmd implements the jactl CLI's subcommands: one cobra.Command
// per file, a shared rootCmd that each init() registers onto, and a
// --verbose persistent flag. "run" executes a script; "lex"/"parse" print
// the token stream / parsed AST for debugging; "checkpoint
// resume" feeds a saved checkpoint blob back through the suspend/resume
// path from the shell.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	Version   = "0.1.0-dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "jactl",
	Short: "Jactl interpreter and compiler",
	Long: `jactl is a Go implementation of the Jactl scripting language: a
Java/Groovy-like dynamic language whose defining feature is that any
script execution can suspend at an async operation (sleep, checkpoint,
a blocking host call) and resume later from a durable snapshot, even in
a different process.`,
	Version: Version,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf(`{{with .Name}}{{printf "%%s " .}}{{end}}{{printf "version %%s" .Version}}
Commit: %s
Built:  %s
`, GitCommit, BuildDate))
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

func exitWithError(msg string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+msg+"\n", args...)
	os.Exit(1)
}

func readInput(evalExpr string, args []string) (input, filename string, err error) {
	if evalExpr != "" {
		return evalExpr, "<eval>", nil
	}
	if len(args) == 1 {
		content, readErr := os.ReadFile(args[0])
		if readErr != nil {
			return "", "", fmt.Errorf("failed to read file %s: %w", args[0], readErr)
		}
		return string(content), args[0], nil
	}
	return "", "", fmt.Errorf("either provide a file path or use -e for inline code")
}
