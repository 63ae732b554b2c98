// Command jsrun is a debugging aid for builder/interpreter authors: an
// interactive bytecode REPL when stdin/stdout are a terminal, and a
// line-oriented batch evaluator otherwise. It is not a production
// JavaScript CLI — there is no module loader, no event loop, and the
// REPL's own parser (parser.go) covers only the grammar a debugging
// session needs, not full ECMAScript.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/wippyai/jsvm/internal/jslog"
)

func main() {
	var (
		scriptPath  = flag.String("script", "", "path to a script to evaluate in batch mode (default: read stdin)")
		bytecode    = flag.Bool("bytecode", false, "batch mode: print the script's linearized bytecode instead of running it")
		step        = flag.Bool("step", false, "batch mode: run with a live register/stack trace")
		interactive = flag.Bool("i", false, "force interactive REPL even when stdout is not a terminal")
		debug       = flag.Bool("debug", false, "enable verbose builder/interpreter tracing to stderr")
	)
	flag.Parse()

	logger, _ := zap.NewDevelopment()
	jslog.SetLogger(logger)
	jslog.SetDebug(*debug)

	var runErr error
	if *interactive || isInteractiveTTY() {
		runErr = runInteractive()
	} else {
		runErr = runBatch(*scriptPath, *bytecode, *step)
	}

	// Combine the run error with teardown failures (tier2 wazero host,
	// logger flush) rather than dropping either silently — a REPL session
	// that both threw and failed to flush its logger should report both.
	shutdownErr := logger.Sync()
	err := multierr.Combine(runErr, shutdownErr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "jsrun: %v\n", err)
		os.Exit(1)
	}
}

// closeSession releases a session's tier2 wazero host, if it ever created
// one. Called from both batch and interactive exit paths.
func closeSession(sess *session) error {
	return sess.ip.Close(context.Background())
}

func isInteractiveTTY() bool {
	return term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
}

// runBatch reads one script (from scriptPath, or stdin if empty), evaluates
// it against a fresh session, and prints either its bytecode, a step trace,
// or its result value, matching whichever flag was given.
func runBatch(scriptPath string, showBytecode, showStep bool) (err error) {
	src, err := readSource(scriptPath)
	if err != nil {
		return fmt.Errorf("read source: %w", err)
	}

	sess := newSession()
	defer func() { err = multierr.Append(err, closeSession(sess)) }()

	switch {
	case showBytecode:
		out, err := sess.disassemble(src)
		if err != nil {
			return err
		}
		fmt.Print(out)

	case showStep:
		out, result, err := sess.trace(src)
		fmt.Print(out)
		if err != nil {
			return err
		}
		fmt.Println("=> " + sess.format(result))

	default:
		v, err := sess.eval(src)
		if err != nil {
			return err
		}
		fmt.Println(sess.format(v))
	}
	return nil
}

func readSource(path string) (string, error) {
	if path == "" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", err
		}
		return string(data), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
