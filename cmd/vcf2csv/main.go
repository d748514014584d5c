// Command vcf2csv converts vCard contact exports into CSV mailing lists.
package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/alecthomas/kong"

	"github.com/JonMunkholm/vcf2csv/internal/config"
	"github.com/JonMunkholm/vcf2csv/internal/core"
	"github.com/JonMunkholm/vcf2csv/internal/logging"
)

// Exit codes.
const (
	exitOK      = 0
	exitFailure = 1
	exitUsage   = 2
)

type cli struct {
	LogLevel string `help:"Minimum log level (debug, info, warn, error)." default:"${log_level}" enum:"debug,info,warn,error"`

	Convert convertCmd `cmd:"" default:"withargs" help:"Convert a vCard file to CSV on stdout."`
	Serve   serveCmd   `cmd:"" help:"Serve conversions over HTTP."`
}

// env is bound into every command's Run method.
type env struct {
	cfg    *config.Config
	stdin  io.Reader
	stdout io.Writer
}

type exitCode int

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) (code int) {
	if err := config.LoadDotEnv(); err != nil {
		fmt.Fprintf(stderr, "vcf2csv: %v\n", err)
		return exitFailure
	}
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(stderr, "vcf2csv: %v\n", err)
		return exitFailure
	}

	var c cli
	c.Convert.defaultFields = cfg.Convert.Fields
	parser, err := kong.New(&c,
		kong.Name("vcf2csv"),
		kong.Description("Turn the organization contacts of a vCard export into CSV rows for address labels."),
		kong.UsageOnError(),
		kong.Writers(stdout, stderr),
		kong.Exit(func(code int) { panic(exitCode(code)) }),
		kong.Vars{
			"fields":       strings.Join(cfg.Convert.Fields, ","),
			"valid_fields": strings.Join(core.FieldNames(core.AllFields), ", "),
			"skip_country": cfg.Convert.SkipCountry,
			"addr":         cfg.Server.Addr(),
			"log_level":    strings.ToLower(cfg.Logging.Level),
		},
	)
	if err != nil {
		fmt.Fprintf(stderr, "vcf2csv: %v\n", err)
		return exitFailure
	}

	// --help and kong's own fatal paths exit through the panic above.
	defer func() {
		if r := recover(); r != nil {
			ec, ok := r.(exitCode)
			if !ok {
				panic(r)
			}
			code = int(ec)
		}
	}()

	kctx, err := parser.Parse(args)
	if err != nil {
		parser.Errorf("%s", err)
		var perr *kong.ParseError
		if errors.As(err, &perr) {
			// Only --help writes to stdout, which carries the CSV.
			parser.Stdout = stderr
			_ = perr.Context.PrintUsage(true)
		}
		return exitUsage
	}

	logging.Setup(stderr, c.LogLevel, cfg.Logging.Format)
	slog.Debug("configuration loaded", "config", cfg.String())

	if err := kctx.Run(&env{cfg: cfg, stdin: stdin, stdout: stdout}); err != nil {
		slog.Error("vcf2csv failed", "command", kctx.Command(), "error", err)
		if core.IsUserFacing(err) {
			fmt.Fprintf(stderr, "vcf2csv: %s\n", core.FormatUserError(err))
		} else {
			fmt.Fprintf(stderr, "vcf2csv: %v\n", err)
		}
		return exitFailure
	}
	return exitOK
}
