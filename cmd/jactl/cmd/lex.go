package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jactl-lang/jactl/internal/lexer"
	"github.com/jactl-lang/jactl/internal/token"
)

var (
	lexEvalExpr string
	showPos     bool
	showType    bool
)

var lexCmd = &cobra.Command{
	Use:   "lex [file]",
	Short: "Tokenize a Jactl file or expression",
	Long:  `Tokenize a Jactl program and print the resulting tokens, for debugging the lexer.`,
	Args:  cobra.MaximumNArgs(1),
	RunE:  lexScript,
}

func init() {
	rootCmd.AddCommand(lexCmd)
	lexCmd.Flags().StringVarP(&lexEvalExpr, "eval", "e", "", "tokenize inline code instead of reading from file")
	lexCmd.Flags().BoolVar(&showPos, "show-pos", false, "show token positions (line:column)")
	lexCmd.Flags().BoolVar(&showType, "show-type", false, "show token kind names")
}

func lexScript(_ *cobra.Command, args []string) error {
	input, _, err := readInput(lexEvalExpr, args)
	if err != nil {
		return err
	}

	l := lexer.New(input)
	count := 0
	for {
		tok := l.Next()
		printToken(tok)
		count++
		if tok.Kind == token.EOF {
			break
		}
	}
	if verbose {
		fmt.Printf("---\ntotal tokens: %d\n", count)
	}
	return nil
}

func printToken(tok token.Token) {
	out := ""
	if showType {
		out = fmt.Sprintf("[%-12s]", tok.Kind)
	}
	if tok.Kind == token.EOF {
		out += " EOF"
	} else {
		out += fmt.Sprintf(" %q", tok.Chars)
	}
	if showPos {
		out += fmt.Sprintf(" @%d:%d", tok.Pos.Line, tok.Pos.Column)
	}
	fmt.Println(out)
}
