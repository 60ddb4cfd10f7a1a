// Command pyrun is a standalone driver for the interpreter package: it reads a single source
// file, runs it under a Context built from the given flags, and prints its captured output (or
// an AST dump, with --dump_ast, mirroring the teacher's parser benchmark binary).
package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/thought-machine/go-flags"
	"gopkg.in/op/go-logging.v1"

	"github.com/please-build/pyhost/internal/interp"
)

var log = logging.MustGetLogger("pyrun")

var opts = struct {
	Verbosity   int      `short:"v" long:"verbosity" default:"1" description:"Verbosity of logging output (0-5, higher is more verbose)"`
	TimeoutMS   int      `short:"t" long:"timeout_ms" description:"Compute deadline in milliseconds; 0 means no timeout"`
	Capability  []string `short:"c" long:"capability" description:"Grant a capability (network, boto3, sql, filesystem); may be repeated"`
	AllowedHost []string `long:"allow_host" description:"Host (or *.suffix wildcard) to permit outbound requests to; may be repeated"`
	DumpAst     bool     `short:"d" long:"dump_ast" description:"Print the parsed AST instead of evaluating it"`
	Args        struct {
		File string `positional-arg-name:"file" required:"true" description:"Python source file to run"`
	} `positional-args:"true"`
}{}

func initLogging(verbosity int) {
	backend := logging.NewLogBackend(os.Stderr, "", 0)
	formatted := logging.NewBackendFormatter(backend, logging.MustStringFormatter(
		"%{time:15:04:05.000} %{level:.4s} %{module}: %{message}"))
	level := logging.NOTICE
	switch {
	case verbosity >= 4:
		level = logging.DEBUG
	case verbosity == 3:
		level = logging.INFO
	case verbosity == 2:
		level = logging.NOTICE
	case verbosity == 1:
		level = logging.WARNING
	default:
		level = logging.ERROR
	}
	leveled := logging.AddModuleLevel(formatted)
	leveled.SetLevel(level, "")
	logging.SetBackend(leveled)
}

func main() {
	if _, err := flags.Parse(&opts); err != nil {
		os.Exit(1)
	}
	initLogging(opts.Verbosity)

	src, err := os.ReadFile(opts.Args.File)
	if err != nil {
		log.Fatalf("reading %s: %s", opts.Args.File, err)
	}

	if opts.DumpAst {
		dumpAST(opts.Args.File, string(src))
		return
	}

	ctx := interp.NewContext()
	for _, cap := range opts.Capability {
		ctx.WithCapability(interp.Capability(cap))
	}
	ctx.AllowedHosts = opts.AllowedHost
	if opts.TimeoutMS > 0 {
		ctx.WithTimeout(time.Duration(opts.TimeoutMS) * time.Millisecond)
	}

	start := time.Now()
	result, ctx, runErr := interp.Run(string(src), ctx)
	log.Noticef("ran %s in %s", opts.Args.File, time.Since(start))

	if out := ctx.Output(); out != "" {
		fmt.Println(out)
	}
	if runErr != nil {
		log.Errorf("%s", runErr)
		os.Exit(1)
	}
	if result != nil && result.Type() != "NoneType" {
		fmt.Println(result.String())
	}
}

// dumpAST parses filename and pretty-prints its statement list via go-spew, the same tool and
// config the teacher's parser benchmark uses for --dump_ast (src/parse/asp/main/main.go).
func dumpAST(filename, src string) {
	file, err := interp.ParseFileInput(strings.NewReader(src), filename)
	if err != nil {
		log.Fatalf("%s", err)
	}
	config := spew.NewDefaultConfig()
	config.DisablePointerAddresses = true
	config.Indent = "  "
	config.Dump(file.Statements)
}
