// Command ourocode compiles, validates, hashes and runs Ourocode rule
// programs.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/sync/errgroup"

	"github.com/ourocode-lang/ourocode/internal/build"
	"github.com/ourocode-lang/ourocode/internal/cli"
	"github.com/ourocode-lang/ourocode/internal/interp"
	"github.com/ourocode-lang/ourocode/internal/ir"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	switch os.Args[1] {
	case "compile":
		cmdCompile(os.Args[2:])
	case "hash":
		cmdHash(os.Args[2:])
	case "validate":
		cmdValidate(os.Args[2:])
	case "run":
		cmdRun(os.Args[2:])
	case "watch":
		cmdWatch(os.Args[2:])
	case "version", "--version", "-version":
		cli.PrintVersion("ourocode", false)
	case "help", "--help", "-help", "-h":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", os.Args[1])
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: ourocode <command> [OPTIONS]\n\n")
	fmt.Fprintf(os.Stderr, "COMMANDS:\n")
	fmt.Fprintf(os.Stderr, "    compile     Compile a rule file and print its IR text\n")
	fmt.Fprintf(os.Stderr, "    hash        Print the canonical hash of a compiled rule\n")
	fmt.Fprintf(os.Stderr, "    validate    Check CFG well-formedness of a compiled rule\n")
	fmt.Fprintf(os.Stderr, "    run         Compile and execute a rule against a state\n")
	fmt.Fprintf(os.Stderr, "    watch       Recompile rule files on change\n")
	fmt.Fprintf(os.Stderr, "    version     Show version information\n")
}

// languageFor picks a front end from a flag value or the file extension.
func languageFor(flagValue, path string) string {
	if flagValue != "" {
		return flagValue
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".lisp", ".scm", ".sexp":
		return build.LangLisp
	default:
		return build.LangAlgol
	}
}

func compileFile(path, lang, name, version string) (*build.CompiledRule, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return build.CompileOnce(string(src), languageFor(lang, path), build.Options{
		ModuleName: name,
		Version:    version,
	})
}

func cmdCompile(args []string) {
	fs := flag.NewFlagSet("compile", flag.ExitOnError)
	lang := fs.String("lang", "", "source language tag (algol, lisp); default by file extension")
	name := fs.String("name", "", "module name (default rule_module)")
	version := fs.String("module-version", "", "module semver (default 1.0.0)")
	out := fs.String("o", "", "write IR text to file instead of stdout")
	_ = fs.Parse(args)
	if fs.NArg() != 1 {
		cli.ExitWithError("compile expects exactly one rule file")
	}

	rule, err := compileFile(fs.Arg(0), *lang, *name, *version)
	if err != nil {
		cli.ExitWithError("%v", err)
	}
	if *out != "" {
		if err := os.WriteFile(*out, []byte(rule.Text), 0o644); err != nil {
			cli.ExitWithError("%v", err)
		}
	} else {
		fmt.Print(rule.Text)
	}
	fmt.Fprintf(os.Stderr, "hash: %s\n", rule.Hash)
}

func cmdHash(args []string) {
	fs := flag.NewFlagSet("hash", flag.ExitOnError)
	lang := fs.String("lang", "", "source language tag")
	_ = fs.Parse(args)
	if fs.NArg() != 1 {
		cli.ExitWithError("hash expects exactly one rule file")
	}
	rule, err := compileFile(fs.Arg(0), *lang, "", "")
	if err != nil {
		cli.ExitWithError("%v", err)
	}
	fmt.Println(rule.Hash)
}

func cmdValidate(args []string) {
	fs := flag.NewFlagSet("validate", flag.ExitOnError)
	lang := fs.String("lang", "", "source language tag")
	_ = fs.Parse(args)
	if fs.NArg() != 1 {
		cli.ExitWithError("validate expects exactly one rule file")
	}
	rule, err := compileFile(fs.Arg(0), *lang, "", "")
	if err != nil {
		cli.ExitWithError("%v", err)
	}
	if errs := ir.Validate(rule.Module); len(errs) > 0 {
		for _, e := range errs {
			fmt.Fprintln(os.Stderr, e.Error())
		}
		os.Exit(1)
	}
	fmt.Println("ok")
}

func cmdRun(args []string) {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	lang := fs.String("lang", "", "source language tag")
	population := fs.Float64("population", 50, "initial population")
	energy := fs.Float64("energy", 50, "initial energy")
	mutationRate := fs.Float64("mutation-rate", 0.05, "initial mutation rate")
	configPath := fs.String("config", "", "executor limits YAML file")
	verbose := fs.Bool("v", false, "verbose output")
	_ = fs.Parse(args)
	if fs.NArg() != 1 {
		cli.ExitWithError("run expects exactly one rule file")
	}

	log := cli.NewLogger(*verbose, false)

	rule, err := compileFile(fs.Arg(0), *lang, "", "")
	if err != nil {
		cli.ExitWithError("%v", err)
	}
	log.Info("compiled %s (hash %s)", fs.Arg(0), rule.Hash)

	cfg, err := interp.LoadConfig(*configPath)
	if err != nil {
		cli.ExitWithError("%v", err)
	}
	exec := interp.New(cfg)
	if err := exec.LoadModule(rule.Module); err != nil {
		cli.ExitWithError("%v", err)
	}

	in := interp.State(*population, *energy, *mutationRate)
	out, err := exec.Execute(rule.Module.Name, ir.RuleFunctionName, []interp.Value{in})
	if err != nil {
		cli.ExitWithError("%v", err)
	}
	fmt.Printf("population:   %g\n", out.Population())
	fmt.Printf("energy:       %g\n", out.Energy())
	fmt.Printf("mutationRate: %g\n", out.MutationRate())
}

func cmdWatch(args []string) {
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	lang := fs.String("lang", "", "source language tag")
	verbose := fs.Bool("v", false, "verbose output")
	_ = fs.Parse(args)
	if fs.NArg() == 0 {
		cli.ExitWithError("watch expects one or more rule files")
	}

	log := cli.NewLogger(true, *verbose)
	files := fs.Args()

	// initial compile of all files in parallel
	g, _ := errgroup.WithContext(context.Background())
	for _, f := range files {
		f := f
		g.Go(func() error {
			rule, err := compileFile(f, *lang, "", "")
			if err != nil {
				log.Error("%s: %v", f, err)
				return nil // keep watching files that fail to compile
			}
			log.Info("%s compiled (hash %s)", f, rule.Hash)
			return nil
		})
	}
	_ = g.Wait()

	w, err := fsnotify.NewWatcher()
	if err != nil {
		cli.ExitWithError("%v", err)
	}
	defer w.Close()
	for _, f := range files {
		if err := w.Add(f); err != nil {
			cli.ExitWithError("watch %s: %v", f, err)
		}
	}

	log.Info("watching %d file(s)", len(files))
	for {
		select {
		case ev, ok := <-w.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			rule, err := compileFile(ev.Name, *lang, "", "")
			if err != nil {
				log.Error("%s: %v", ev.Name, err)
				continue
			}
			log.Info("%s recompiled (hash %s)", ev.Name, rule.Hash)
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			log.Error("watcher: %v", err)
		}
	}
}
