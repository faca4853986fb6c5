// Command wfgraph validates, inspects, and runs workflow graph documents.
//
// Usage:
//
//	wfgraph validate <graph.json|graph.yaml>
//	wfgraph stages   <graph>
//	wfgraph run      [-config settings.yaml] [-payload '{"k":1}'] <graph>
//
// Settings come from the -config file (YAML or JSON) overlaid with
// WFGRAPH_* environment variables, e.g. WFGRAPH_LOG__LEVEL=debug.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/randalmurphal/wfgraph/pkg/wfgraph"
)

// Exit codes.
const (
	exitOK        = 0
	exitRunFailed = 1
	exitUsage     = 2
	exitInvalid   = 3
)

// app carries the process environment so commands can be tested.
type app struct {
	stdout  io.Writer
	stderr  io.Writer
	environ []string
}

func main() {
	a := &app{stdout: os.Stdout, stderr: os.Stderr, environ: os.Environ()}
	os.Exit(a.main(os.Args[1:]))
}

func (a *app) main(args []string) int {
	if len(args) < 1 {
		a.usage()
		return exitUsage
	}

	switch args[0] {
	case "validate":
		return a.validate(args[1:])
	case "stages":
		return a.stages(args[1:])
	case "run":
		return a.run(args[1:])
	case "help", "-h", "--help":
		a.usage()
		return exitOK
	default:
		fmt.Fprintf(a.stderr, "unknown command: %s\n", args[0])
		a.usage()
		return exitUsage
	}
}

func (a *app) usage() {
	fmt.Fprint(a.stderr, `Usage: wfgraph <command> [flags] <graph-file>

Commands:
  validate   check a graph document and list every violation
  stages     print the execution stages of a valid graph
  run        execute a graph against a JSON payload and print the result
`)
}

// load reads and compiles a graph file. Structure violations are printed
// one per line.
func (a *app) load(path string) (*wfgraph.CompiledGraph, int) {
	g, err := wfgraph.LoadGraphFile(path)
	if err != nil {
		fmt.Fprintf(a.stderr, "load %s: %v\n", path, err)
		return nil, exitInvalid
	}
	compiled, err := wfgraph.Compile(g)
	if err != nil {
		var gse *wfgraph.GraphStructureError
		if errors.As(err, &gse) {
			for _, v := range gse.Violations {
				fmt.Fprintln(a.stderr, v.String())
			}
		} else {
			fmt.Fprintln(a.stderr, err)
		}
		return nil, exitInvalid
	}
	return compiled, exitOK
}

func (a *app) validate(args []string) int {
	path, code := a.graphArg("validate", args)
	if code != exitOK {
		return code
	}
	compiled, code := a.load(path)
	if code != exitOK {
		return code
	}
	fmt.Fprintf(a.stdout, "%s: ok (%d nodes, %d stages)\n",
		compiled.ID(), len(compiled.NodeIDs()), len(compiled.Stages()))
	return exitOK
}

func (a *app) stages(args []string) int {
	path, code := a.graphArg("stages", args)
	if code != exitOK {
		return code
	}
	compiled, code := a.load(path)
	if code != exitOK {
		return code
	}
	for i, stage := range compiled.Stages() {
		fmt.Fprintf(a.stdout, "%d: %v\n", i, stage)
	}
	return exitOK
}

func (a *app) graphArg(cmd string, args []string) (string, int) {
	if len(args) != 1 {
		fmt.Fprintf(a.stderr, "usage: wfgraph %s <graph-file>\n", cmd)
		return "", exitUsage
	}
	return args[0], exitOK
}
