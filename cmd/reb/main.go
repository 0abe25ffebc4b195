package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/peterh/liner"
	"golang.org/x/term"

	"github.com/rhencke/reb"
)

const (
	appName     = "reb"
	historyFile = ".reb_history"
	promptMain  = ">> "
	promptCont  = "... "
)

var banner = fmt.Sprintf("reb %s REPL\nCtrl+C cancels input, Ctrl+D exits. Type :quit to exit.", reb.Version)

var colorEnabled = term.IsTerminal(int(os.Stdout.Fd()))

func red(s string) string {
	if !colorEnabled {
		return s
	}
	return "\x1b[31m" + s + "\x1b[0m"
}

func blue(s string) string {
	if !colorEnabled {
		return s
	}
	return "\x1b[94m" + s + "\x1b[0m"
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	cmd := os.Args[1]
	switch cmd {
	case "run":
		os.Exit(cmdRun(os.Args[2:]))
	case "repl":
		os.Exit(cmdRepl(os.Args[2:]))
	case "version":
		fmt.Println(reb.Version)
		return
	case "-h", "--help", "help":
		usage()
		os.Exit(0)
	default:
		fmt.Fprintf(os.Stderr, "%s: unknown command %q\n", appName, cmd)
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Printf(`reb %s

Usage:
  %s run <file.reb>    Run a script.
  %s repl              Start the REPL.
  %s version           Print the compiled version

`, reb.Version, appName, appName, appName)
}

// -----------------------------------------------------------------------------
// run
// -----------------------------------------------------------------------------

func cmdRun(args []string) int {
	if len(args) < 1 {
		fmt.Fprintf(os.Stderr, "usage: %s run <file.reb>\n", appName)
		return 2
	}

	src, err := os.ReadFile(args[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: cannot read %s: %v\n", appName, args[0], err)
		return 1
	}

	rt := reb.NewRuntime()
	installInterruptHalt(rt)

	result, evalErr := rt.Do(string(src))
	if evalErr != nil {
		fmt.Fprintln(os.Stderr, red(evalErr.Error()))
		return 1
	}
	if result != "" {
		fmt.Println(result)
	}
	return 0
}

// installInterruptHalt turns SIGINT into a halt signal so a runaway
// script can be stopped at the next evaluator step or WAIT poll.
func installInterruptHalt(rt *reb.Runtime) {
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, os.Interrupt)
	go func() {
		for range sigc {
			rt.Halt()
		}
	}()
}

// -----------------------------------------------------------------------------
// repl
// -----------------------------------------------------------------------------

func cmdRepl(_ []string) int {
	fmt.Println(banner)

	home, _ := os.UserHomeDir()
	histPath := filepath.Join(home, historyFile)

	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)

	defer func() {
		if f, err := os.Create(histPath); err == nil {
			_, _ = ln.WriteHistory(f)
			_ = f.Close()
		}
	}()

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sigc)
	go func() {
		<-sigc
		ln.Close()
		os.Exit(130)
	}()

	if f, err := os.Open(histPath); err == nil {
		_, _ = ln.ReadHistory(f)
		_ = f.Close()
	}

	rt := reb.NewRuntime()

	for {
		code, ok := readByScanProbe(rt, ln, promptMain, promptCont)
		if !ok {
			fmt.Println()
			break
		}

		if strings.HasPrefix(strings.TrimSpace(code), ":") {
			switch strings.TrimSpace(strings.ToLower(code)) {
			case ":quit":
				return 0
			default:
				fmt.Printf("unknown command. Type :quit to exit.\n")
			}
			continue
		}

		if strings.TrimSpace(code) == "" {
			continue
		}

		result, err := rt.Do(code)
		if err != nil {
			fmt.Fprintln(os.Stderr, red(err.Error()))
			continue
		}
		if result != "" {
			fmt.Println(blue("== " + result))
		}
		ln.AppendHistory(strings.ReplaceAll(code, "\n", " "))
	}

	return 0
}

// readByScanProbe reads lines until the accumulated input scans as a
// complete block, prompting with the continuation prompt while a
// bracket, brace, or string is still open.
func readByScanProbe(rt *reb.Runtime, ln *liner.State, prompt, cont string) (string, bool) {
	var b strings.Builder

	for {
		var line string
		var err error
		if b.Len() == 0 {
			line, err = ln.Prompt(prompt)
		} else {
			line, err = ln.Prompt(cont)
		}
		if errors.Is(err, io.EOF) {
			return "", false
		}
		if err != nil {
			return "", true
		}

		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(line)

		src := b.String()
		if _, scanErr := rt.Scan(src); scanErr != nil && isIncomplete(scanErr) {
			continue
		}
		return src, true
	}
}

func isIncomplete(e *reb.Error) bool {
	switch e.ID {
	case "missing-close", "unterminated-string", "unterminated-tag",
		"unterminated-char", "unterminated-file":
		return true
	}
	return false
}
