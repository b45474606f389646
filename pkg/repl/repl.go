// Package repl implements the interactive read-eval-print loop for am
// scripts: line editing and history via chzyer/readline, colorized output
// via fatih/color, and a persistent Evaluator and Context so bindings made
// in one line stay visible to the next.
package repl

import (
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"
	"github.com/fatih/color"

	"github.com/basjoofan/am/pkg/evaluator"
	"github.com/basjoofan/am/pkg/httpclient"
	"github.com/basjoofan/am/pkg/parser"
	"github.com/basjoofan/am/pkg/value"
)

var (
	errorColor = color.New(color.FgRed)
	valueColor = color.New(color.FgYellow)
	traceColor = color.New(color.FgCyan)
)

const banner = `am — a scripting language for HTTP requests and assertions
Type an expression and press Enter. ':help' for help, ':quit' or ':exit' to leave.`

// Run starts the REPL, reading from an internal readline instance (which
// draws the prompts itself) and writing the banner, results, and errors to
// out. It returns when the user exits or input reaches EOF.
func Run(out io.Writer, client *httpclient.Client) error {
	fmt.Fprintln(out, banner)

	rl, err := readline.New("am> ")
	if err != nil {
		return err
	}
	defer rl.Close()

	eval := evaluator.New(client)
	ctx := value.NewContext()
	var buf strings.Builder

	for {
		if buf.Len() == 0 {
			rl.SetPrompt("am> ")
		} else {
			rl.SetPrompt("... ")
		}

		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			buf.Reset()
			continue
		}
		if err != nil {
			fmt.Fprintln(out, "goodbye")
			return nil
		}
		rl.SaveHistory(line)

		if buf.Len() == 0 {
			switch strings.TrimSpace(line) {
			case ":quit", ":exit":
				fmt.Fprintln(out, "goodbye")
				return nil
			case ":help":
				printHelp(out)
				continue
			case "":
				continue
			}
		}

		buf.WriteString(line)
		buf.WriteByte('\n')

		if pendingDepth(buf.String()) > 0 {
			continue
		}

		text := strings.TrimSpace(buf.String())
		buf.Reset()
		if text == "" {
			continue
		}

		evalLine(out, eval, ctx, text)
	}
}

// evalLine parses and evaluates one complete statement block, first
// printing a pass/fail line in cyan per assertion that request literals
// recorded along the way, then the resulting value in yellow or an error
// in red.
func evalLine(out io.Writer, eval *evaluator.Evaluator, ctx *value.Context, text string) {
	exprs, err := parser.New(text).Parse()
	if err != nil {
		errorColor.Fprintf(out, "parse error: %v\n", err)
		return
	}

	before := len(eval.Records)
	result := eval.Run(exprs, ctx)
	for _, r := range eval.Records[before:] {
		for _, a := range r.Asserts {
			status := "PASS"
			if !a.Result {
				status = "FAIL"
			}
			traceColor.Fprintf(out, "%s %s\n", status, a.Expression)
		}
	}

	if result.IsError() {
		errorColor.Fprintf(out, "%s\n", result.Display())
		return
	}
	valueColor.Fprintf(out, "%s\n", result.Display())
}

// pendingDepth reports how many braces, brackets, or parens remain open at
// the end of text, ignoring characters inside double-quoted strings and
// backtick-delimited request templates. A simple depth count, not a full
// lexer pass — it doesn't special-case escaped quotes inside a string, but
// that's rare enough in practice not to matter for an interactive prompt.
func pendingDepth(text string) int {
	depth := 0
	inString := false
	inTemplate := false
	for _, r := range text {
		switch {
		case inString:
			if r == '"' {
				inString = false
			}
		case inTemplate:
			if r == '`' {
				inTemplate = false
			}
		case r == '"':
			inString = true
		case r == '`':
			inTemplate = true
		case r == '(' || r == '{' || r == '[':
			depth++
		case r == ')' || r == '}' || r == ']':
			depth--
		}
	}
	return depth
}

func printHelp(out io.Writer) {
	fmt.Fprintln(out, "am REPL")
	fmt.Fprintln(out, "  :help     show this help")
	fmt.Fprintln(out, "  :quit     leave the REPL")
	fmt.Fprintln(out, "  :exit     leave the REPL")
	fmt.Fprintln(out, "")
	fmt.Fprintln(out, "Bindings made with `let` persist across lines.")
	fmt.Fprintln(out, "A request literal's asserts print PASS/FAIL as they run.")
}
