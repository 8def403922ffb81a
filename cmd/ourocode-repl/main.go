// Command ourocode-repl is an interactive loop for experimenting with rule
// programs: each entered rule is compiled and applied to a persistent
// ecosystem state.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/peterh/liner"

	"github.com/ourocode-lang/ourocode/internal/build"
	"github.com/ourocode-lang/ourocode/internal/cli"
	"github.com/ourocode-lang/ourocode/internal/interp"
	"github.com/ourocode-lang/ourocode/internal/ir"
)

const historyFile = ".ourocode_history"

func main() {
	var (
		showVersion = flag.Bool("version", false, "show version information")
		jsonOutput  = flag.Bool("json", false, "output version in JSON format")
		lang        = flag.String("lang", build.LangAlgol, "source language tag (algol, lisp)")
		configPath  = flag.String("config", "", "executor limits YAML file")
	)
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [OPTIONS]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Ourocode interactive rule loop.\n\n")
		fmt.Fprintf(os.Stderr, "OPTIONS:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nREPL COMMANDS:\n")
		fmt.Fprintf(os.Stderr, "  :help              Show help\n")
		fmt.Fprintf(os.Stderr, "  :quit              Exit\n")
		fmt.Fprintf(os.Stderr, "  :state             Show the current ecosystem state\n")
		fmt.Fprintf(os.Stderr, "  :set <field> <v>   Set a state field\n")
		fmt.Fprintf(os.Stderr, "  :lang algol|lisp   Switch the front end\n")
		fmt.Fprintf(os.Stderr, "  :ir                Show the IR of the last compiled rule\n")
		fmt.Fprintf(os.Stderr, "  :hash              Show the hash of the last compiled rule\n")
		fmt.Fprintf(os.Stderr, "  :reset             Reset the state to defaults\n")
	}
	flag.Parse()

	if *showVersion {
		cli.PrintVersion("Ourocode REPL", *jsonOutput)
		os.Exit(0)
	}

	cfg, err := interp.LoadConfig(*configPath)
	if err != nil {
		cli.ExitWithError("%v", err)
	}

	r := &repl{
		lang:     *lang,
		pipeline: build.NewPipeline(0),
		exec:     interp.New(cfg),
		state:    interp.State(50, 50, 0.05),
	}
	os.Exit(r.run())
}

type repl struct {
	lang     string
	pipeline *build.Pipeline
	exec     *interp.Executor
	state    interp.Value
	lastRule *build.CompiledRule
}

func (r *repl) run() int {
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
	signal.Notify(sigc, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)
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

	fmt.Printf("Ourocode REPL v%s (front end: %s). Type :help for commands.\n", cli.Version, r.lang)
	r.printState()

	for {
		line, err := ln.Prompt("rule> ")
		if errors.Is(err, io.EOF) || errors.Is(err, liner.ErrPromptAborted) {
			fmt.Println()
			return 0
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "read error: %v\n", err)
			return 1
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		ln.AppendHistory(line)

		if strings.HasPrefix(line, ":") {
			if quit := r.command(line); quit {
				return 0
			}
			continue
		}
		r.apply(line)
	}
}

func (r *repl) command(line string) (quit bool) {
	fields := strings.Fields(line)
	switch fields[0] {
	case ":quit", ":q", ":exit":
		return true
	case ":help", ":h":
		flag.Usage()
	case ":state":
		r.printState()
	case ":reset":
		r.state = interp.State(50, 50, 0.05)
		r.printState()
	case ":lang":
		if len(fields) != 2 {
			fmt.Println("usage: :lang algol|lisp")
			return
		}
		r.lang = fields[1]
		fmt.Printf("front end: %s\n", r.lang)
	case ":set":
		if len(fields) != 3 {
			fmt.Println("usage: :set <population|energy|mutationRate> <value>")
			return
		}
		idx, ok := ir.FieldIndex(fields[1])
		if !ok {
			fmt.Printf("unknown field %q\n", fields[1])
			return
		}
		v, err := strconv.ParseFloat(fields[2], 64)
		if err != nil {
			fmt.Printf("bad value %q\n", fields[2])
			return
		}
		next := append([]float64(nil), r.state.Fields...)
		next[idx] = v
		r.state = interp.Value{Kind: interp.KindStruct, Fields: next}
		r.printState()
	case ":ir":
		if r.lastRule == nil {
			fmt.Println("no rule compiled yet")
			return
		}
		fmt.Print(r.lastRule.Text)
	case ":hash":
		if r.lastRule == nil {
			fmt.Println("no rule compiled yet")
			return
		}
		fmt.Println(r.lastRule.Hash)
	default:
		fmt.Printf("unknown command %q (try :help)\n", fields[0])
	}
	return false
}

func (r *repl) apply(source string) {
	rule, err := r.pipeline.Compile(source, r.lang, build.Options{})
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return
	}
	r.lastRule = rule

	out, err := r.exec.ExecuteModule(rule.Module, ir.RuleFunctionName, []interp.Value{r.state})
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return
	}
	r.state = out
	r.printState()
}

func (r *repl) printState() {
	fmt.Printf("  population=%g energy=%g mutationRate=%g\n",
		r.state.Population(), r.state.Energy(), r.state.MutationRate())
}
