// Command am runs am scripts: an interactive REPL, a one-line eval, or a
// source file or project directory, with an optional test runner.
package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/basjoofan/am/pkg/ast"
	"github.com/basjoofan/am/pkg/evaluator"
	"github.com/basjoofan/am/pkg/httpclient"
	"github.com/basjoofan/am/pkg/loader"
	"github.com/basjoofan/am/pkg/parser"
	"github.com/basjoofan/am/pkg/repl"
	"github.com/basjoofan/am/pkg/value"
)

const version = "0.1.0"

func main() {
	if len(os.Args) < 2 {
		runREPL()
		return
	}

	switch os.Args[1] {
	case "version", "-v", "--version":
		fmt.Printf("am version %s\n", version)
	case "help", "-h", "--help":
		printUsage()
	case "repl":
		runREPL()
	case "eval":
		if len(os.Args) < 3 {
			fmt.Println("Error: no expression given")
			printUsage()
			os.Exit(1)
		}
		runEval(os.Args[2])
	case "run":
		path := "."
		if len(os.Args) >= 3 {
			path = os.Args[2]
		}
		runPath(path)
	case "test":
		name, path := parseTestArgs(os.Args[2:])
		runTest(name, path)
	default:
		runPath(os.Args[1])
	}
}

func printUsage() {
	fmt.Println("am - a scripting language for HTTP requests and assertions")
	fmt.Println("\nUsage:")
	fmt.Println("  am                          Start interactive REPL")
	fmt.Println("  am repl                     Start interactive REPL")
	fmt.Println("  am eval <text>              Evaluate a single expression")
	fmt.Println("  am run [path]               Run a .am file or directory (default: .)")
	fmt.Println("  am test [--name N] [path]   Run test blocks, all or one named N")
	fmt.Println("  am version                  Show version")
	fmt.Println("  am help                     Show this help")
}

func parseTestArgs(args []string) (name, path string) {
	path = "."
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--name":
			if i+1 < len(args) {
				name = args[i+1]
				i++
			}
		default:
			path = args[i]
		}
	}
	return name, path
}

func newClient() *httpclient.Client {
	client := httpclient.New(httpclient.Config{})
	client.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	return client
}

func runREPL() {
	if err := repl.Run(os.Stdout, newClient()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runEval(text string) {
	eval := evaluator.New(newClient())
	run(eval, text)
}

func runPath(path string) {
	text, err := loader.Read(path)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	eval := evaluator.New(newClient())
	run(eval, text)
}

// run parses and evaluates text against a fresh top-level Context. A
// successful result is not printed; an in-band Error result is printed to
// stderr and the process exits non-zero.
func run(eval *evaluator.Evaluator, text string) {
	exprs, err := parser.New(text).Parse()
	if err != nil {
		fmt.Fprintf(os.Stderr, "parse error: %v\n", err)
		os.Exit(1)
	}
	ctx := value.NewContext()
	result := eval.Run(exprs, ctx)
	if result.IsError() {
		fmt.Fprintln(os.Stderr, result.Display())
		os.Exit(1)
	}
}

// runTest loads path, runs its top-level expressions once to register every
// named test, then calls either the single test named or every test found,
// printing a PASS/FAIL line per assertion recorded along the way. Exits
// non-zero if any assertion failed or any test errored.
func runTest(name, path string) {
	text, err := loader.Read(path)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	exprs, err := parser.New(text).Parse()
	if err != nil {
		fmt.Fprintf(os.Stderr, "parse error: %v\n", err)
		os.Exit(1)
	}

	names := testNames(exprs)
	if name != "" {
		if !contains(names, name) {
			fmt.Printf("test not found: %s\n", name)
			os.Exit(1)
		}
		names = []string{name}
	}

	eval := evaluator.New(newClient())
	ctx := value.NewContext()
	if result := eval.Run(exprs, ctx); result.IsError() {
		fmt.Fprintln(os.Stderr, result.Display())
		os.Exit(1)
	}

	failed := false
	for _, n := range names {
		callee, ok := ctx.Get(n)
		if !ok {
			fmt.Printf("=== RUN  %s\n--- SKIP %s (not bound)\n", n, n)
			failed = true
			continue
		}
		before := len(eval.Records)
		fmt.Printf("=== RUN  %s\n", n)
		result := eval.Call(callee, nil, ctx)
		pass := !result.IsError()
		for _, r := range eval.Records[before:] {
			for _, a := range r.Asserts {
				status := "PASS"
				if !a.Result {
					status = "FAIL"
					pass = false
				}
				fmt.Printf("    %s %s\n", status, a.Expression)
			}
		}
		if pass {
			fmt.Printf("--- PASS %s\n", n)
		} else {
			fmt.Printf("--- FAIL %s\n", n)
			failed = true
		}
	}
	if failed {
		os.Exit(1)
	}
}

// testNames collects the name of every top-level Test block, the way the
// original command surface gathers Expr::Test entries before deciding
// which ones to run.
func testNames(exprs []ast.Expr) []string {
	var names []string
	for _, expr := range exprs {
		if expr.Kind == ast.Test && expr.Name != "" {
			names = append(names, expr.Name)
		}
	}
	return names
}

func contains(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}
