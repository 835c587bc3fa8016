package main

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"os"

	gojson "github.com/goccy/go-json"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	guzzle "github.com/zubr/guzzle"
	"github.com/zubr/guzzle/description"
	"github.com/zubr/guzzle/i18n"
	"github.com/zubr/guzzle/parser"
	"github.com/zubr/guzzle/response"
	"github.com/zubr/guzzle/visitor"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "guzzle",
		Short:         "Parse HTTP responses with service descriptions",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newParseCmd(), newOperationsCmd())
	return root
}

type parseOptions struct {
	descPath  string
	operation string
	respPath  string
	verbose   bool
	indent    bool
	maxDepth  int
	maxBytes  int64
	strict    bool
	lang      string
}

func newParseCmd() *cobra.Command {
	var opts parseOptions
	cmd := &cobra.Command{
		Use:   "parse",
		Short: "Parse a captured raw HTTP response against an operation",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runParse(cmd, opts)
		},
	}
	fs := cmd.Flags()
	fs.StringVarP(&opts.descPath, "description", "d", "", "service description file (.yaml or .json)")
	fs.StringVarP(&opts.operation, "operation", "o", "", "operation name")
	fs.StringVarP(&opts.respPath, "response", "r", "-", "raw HTTP response file, - for stdin")
	fs.BoolVarP(&opts.verbose, "verbose", "v", false, "debug logging on stderr")
	fs.BoolVar(&opts.indent, "indent", false, "indent JSON output (default on when stdout is a terminal)")
	fs.IntVar(&opts.maxDepth, "max-depth", 0, "maximum body nesting depth (0 = unlimited)")
	fs.Int64Var(&opts.maxBytes, "max-bytes", 0, "maximum body size in bytes (0 = unlimited)")
	fs.BoolVar(&opts.strict, "strict", false, "reject duplicate keys in the body")
	fs.StringVar(&opts.lang, "lang", "en", "message language (en, ja)")
	_ = cmd.MarkFlagRequired("description")
	_ = cmd.MarkFlagRequired("operation")
	return cmd
}

func runParse(cmd *cobra.Command, opts parseOptions) error {
	i18n.SetLanguage(opts.lang)
	level := slog.LevelWarn
	if opts.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

	desc, err := description.LoadFile(opts.descPath)
	if err != nil {
		return fmt.Errorf("load description: %w", err)
	}
	op, ok := desc.Operation(opts.operation)
	if !ok {
		return fmt.Errorf("operation %q not found in %s", opts.operation, opts.descPath)
	}

	raw, err := readInput(cmd.InOrStdin(), opts.respPath)
	if err != nil {
		return err
	}
	popt := guzzle.ParseOpt{MaxDepth: opts.maxDepth, MaxBytes: opts.maxBytes}
	if opts.strict {
		popt.Strictness.OnDuplicateKey = guzzle.Error
	} else {
		popt.Strictness.OnDuplicateKey = guzzle.Warn
		popt.OnIssue = func(iss guzzle.Issue) {
			logger.Warn("body issue", "code", iss.Code, "path", iss.Path, "message", iss.Message)
		}
	}
	resp, err := response.Read(raw, popt)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	logger.Debug("response read", "status", resp.StatusCode, "headers", resp.Header.Len())

	p := parser.New(visitor.NewRegistry(), parser.WithLogger(logger), parser.WithoutMetrics())
	out, err := p.Parse(cmd.Context(), op, resp)
	if err != nil {
		return err
	}
	b, err := encode(out)
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	if opts.indent || isTerminal(cmd.OutOrStdout()) {
		var buf bytes.Buffer
		if err := gojson.Indent(&buf, b, "", "  "); err != nil {
			return err
		}
		b = buf.Bytes()
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), string(b))
	return err
}

// encode keeps the key order of Marshaler results; anything a class builder
// returns goes through the regular encoder.
func encode(out any) ([]byte, error) {
	if m, ok := out.(gojson.Marshaler); ok {
		return m.MarshalJSON()
	}
	return gojson.Marshal(out)
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()))
}

func readInput(stdin io.Reader, path string) ([]byte, error) {
	if path == "" || path == "-" {
		return io.ReadAll(stdin)
	}
	return os.ReadFile(path)
}

func newOperationsCmd() *cobra.Command {
	var descPath string
	cmd := &cobra.Command{
		Use:   "operations",
		Short: "List the operations of a service description",
		RunE: func(cmd *cobra.Command, args []string) error {
			desc, err := description.LoadFile(descPath)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			for _, name := range desc.OperationNames() {
				op, _ := desc.Operation(name)
				target := op.ResponseModel
				if op.ResponseType == description.ResponseClass {
					target = op.ResponseClass
				}
				if _, err := fmt.Fprintf(w, "%s\t%s\t%s\n", name, op.ResponseType, target); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&descPath, "description", "d", "", "service description file (.yaml or .json)")
	_ = cmd.MarkFlagRequired("description")
	return cmd
}
