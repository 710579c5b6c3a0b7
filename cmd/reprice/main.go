/*
main.go - Command-line reconciliation of a sales export

PURPOSE:
  Runs the whole pipeline on one CSV without a server: prices every sale,
  resolves ambiguities, prints the report and the rejected rows, and
  optionally writes the enriched export.

COMMAND-LINE FLAGS:
  -csv        Sales export to read ("-" for stdin)
  -config     Pricing config, YAML or JSON
  -resolver   Override the config's resolver (none, temporal, seller)
  -out        Write the enriched export here
  -format     Report format: text (default) or json
  -log-level  debug, info, warn, error (default: warn)

EXIT CODES:
  0  Success, even with rejected rows or residual ambiguity
  1  Processing failed
  2  Invalid usage or config

EXAMPLES:
  ./reprice -csv sales.csv -config pricing.yaml -out enriched.csv
  cat sales.csv | ./reprice -csv - -config pricing.json -resolver temporal
*/
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/warp/ticket-recon/factory"
	"github.com/warp/ticket-recon/logger"
	"github.com/warp/ticket-recon/report"
	"github.com/warp/ticket-recon/sale"
)

const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("reprice", flag.ContinueOnError)
	fs.SetOutput(stderr)
	csvPath := fs.String("csv", "", "sales export to read (\"-\" for stdin)")
	configPath := fs.String("config", "", "pricing config, YAML or JSON")
	resolver := fs.String("resolver", "", "override the config's resolver (none, temporal, seller)")
	outPath := fs.String("out", "", "write the enriched export here")
	format := fs.String("format", "text", "report format: text or json")
	level := fs.String("log-level", "warn", "debug, info, warn, error")
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}
	if *csvPath == "" || *configPath == "" {
		fmt.Fprintln(stderr, "reprice: -csv and -config are required")
		fs.Usage()
		return exitUsage
	}
	if *format != "text" && *format != "json" {
		fmt.Fprintf(stderr, "reprice: unknown format %q\n", *format)
		return exitUsage
	}

	log := logger.NewWithWriter(zerolog.ConsoleWriter{Out: stderr, NoColor: true}, logger.ParseLevel(*level))
	ctx = logger.WithContext(ctx, log)

	sctx, err := loadContext(*configPath, *resolver)
	if err != nil {
		fmt.Fprintf(stderr, "reprice: %v\n", err)
		return exitUsage
	}

	in, closeIn, err := openInput(*csvPath, stdin)
	if err != nil {
		fmt.Fprintf(stderr, "reprice: %v\n", err)
		return exitError
	}
	defer closeIn()

	out, err := sale.Process(ctx, in, sctx)
	if err != nil {
		fmt.Fprintf(stderr, "reprice: %v\n", err)
		if errors.Is(err, sale.ErrInvalidContext) {
			return exitUsage
		}
		return exitError
	}

	rep := report.Default().Compute(out.Ledger)
	if err := printReport(stdout, rep, out, *format); err != nil {
		fmt.Fprintf(stderr, "reprice: write report: %v\n", err)
		return exitError
	}

	if *outPath != "" {
		if err := writeExport(*outPath, out.Ledger.ExportRows()); err != nil {
			fmt.Fprintf(stderr, "reprice: %v\n", err)
			return exitError
		}
		log.Info().Str("path", *outPath).Int("rows", out.Ledger.Len()).Msg("export written")
	}
	return exitOK
}

func loadContext(path, resolver string) (sale.Context, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return sale.Context{}, fmt.Errorf("read config: %w", err)
	}
	cfg, err := factory.NewPricingFactory().Parse(data)
	if err != nil {
		return sale.Context{}, err
	}
	if resolver != "" {
		cfg.Resolver = resolver
	}
	return factory.NewPricingFactory().Build(cfg)
}

func openInput(path string, stdin io.Reader) (io.Reader, func(), error) {
	if path == "-" {
		return stdin, func() {}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open sales: %w", err)
	}
	return f, func() { f.Close() }, nil
}

type jsonOutput struct {
	Report      report.Report `json:"report"`
	Passes      int           `json:"passes"`
	Resolved    int           `json:"resolved"`
	ParseErrors []string      `json:"parse_errors"`
}

func printReport(w io.Writer, rep report.Report, out *sale.Outcome, format string) error {
	errs := make([]string, 0, len(out.ParseErrors))
	for _, err := range out.ParseErrors {
		errs = append(errs, err.Error())
	}

	if format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(jsonOutput{Report: rep, Passes: out.Passes, Resolved: out.Resolved, ParseErrors: errs})
	}

	if err := rep.WriteText(w); err != nil {
		return err
	}
	fmt.Fprintf(w, "\nResolution: %d resolved in %d passes\n", out.Resolved, out.Passes)
	if len(errs) > 0 {
		fmt.Fprintf(w, "\nRejected rows (%d):\n", len(errs))
		for _, e := range errs {
			fmt.Fprintf(w, "  %s\n", e)
		}
	}
	return nil
}

func writeExport(path string, rows []sale.ExportRow) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create export: %w", err)
	}
	if err := sale.WriteExport(f, rows); err != nil {
		f.Close()
		return fmt.Errorf("write export: %w", err)
	}
	return f.Close()
}
