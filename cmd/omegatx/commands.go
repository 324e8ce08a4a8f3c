package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/cobra/doc"
	"github.com/spf13/viper"
	"github.com/zberg/go-omegatx/pkg/omegatx"
)

// errReported marks a failure that has already been written to stderr.
var errReported = errors.New("already reported")

func init() {
	rootCmd.AddCommand(readCmd)
	rootCmd.AddCommand(commandsCmd)
	rootCmd.AddCommand(docCmd)

	docCmd.PersistentFlags().String("output", ".", "Directory to write documentation to")
	docCmd.AddCommand(manCmd)
	docCmd.AddCommand(markdownCmd)
}

var readCmd = &cobra.Command{
	Use:   "read [type] [address]",
	Short: "Perform a single read and print it as JSON",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) != 2 {
			return fmt.Errorf("expected 2 arguments (type and address), got %d", len(args))
		}
		model, err := omegatx.ParseModel(args[0])
		if err != nil {
			return err
		}

		opts := readOptions{
			model:          model,
			address:        args[1],
			port:           viper.GetInt("port"),
			timeout:        viper.GetDuration("timeout"),
			overallTimeout: viper.GetDuration("overall-timeout"),
			logger:         slog.Default(),
		}
		return runRead(cmd.Context(), opts, cmd.OutOrStdout(), cmd.ErrOrStderr())
	},
}

var commandsCmd = &cobra.Command{
	Use:   "commands",
	Short: "List the iBTHX-W query commands",
	Run: func(cmd *cobra.Command, args []string) {
		writeCommands(cmd.OutOrStdout(), omegatx.Commands())
	},
}

var docCmd = &cobra.Command{
	Use:   "doc",
	Short: "Generate documentation",
}

var manCmd = &cobra.Command{
	Use:   "man",
	Short: "Generate man pages",
	RunE: func(cmd *cobra.Command, args []string) error {
		header := &doc.GenManHeader{
			Title:   "OMEGATX",
			Section: "1",
		}
		return doc.GenManTree(cmd.Root(), header, outputDir(cmd))
	},
}

var markdownCmd = &cobra.Command{
	Use:   "markdown",
	Short: "Generate Markdown documentation",
	RunE: func(cmd *cobra.Command, args []string) error {
		return doc.GenMarkdownTree(cmd.Root(), outputDir(cmd))
	},
}

func outputDir(cmd *cobra.Command) string {
	dir, _ := cmd.Flags().GetString("output")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		slog.Warn("failed to create output directory", "dir", dir, "error", err)
	}
	return dir
}

// readOptions holds everything one read cycle needs.
type readOptions struct {
	model          omegatx.Model
	address        string
	port           int
	timeout        time.Duration
	overallTimeout time.Duration
	logger         *slog.Logger
}

func (o readOptions) clientOptions() []omegatx.Option {
	opts := []omegatx.Option{
		omegatx.WithTimeout(o.timeout),
		omegatx.WithLogger(o.logger),
	}
	if o.port != 0 {
		opts = append(opts, omegatx.WithPort(o.port))
	}
	return opts
}

// deadline bounds the whole cycle: connect plus every command round-trip.
func (o readOptions) deadline() time.Duration {
	if o.overallTimeout > 0 {
		return o.overallTimeout
	}
	n := 1
	if o.model == omegatx.ModelIBTHX {
		n = len(omegatx.Commands())
	}
	return o.timeout * time.Duration(n+1)
}

// runRead performs one connect, get, close cycle and writes the Reading as
// JSON to stdout. A device that cannot be reached in time gets a single
// error line on stderr.
func runRead(ctx context.Context, o readOptions, stdout, stderr io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}

	tx, err := omegatx.New(o.model, o.address, o.clientOptions()...)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, o.deadline())
	defer cancel()

	reading, err := omegatx.ReadOnce(ctx, tx)
	switch {
	case errors.Is(err, omegatx.ErrConnect), errors.Is(err, context.DeadlineExceeded):
		writeConnectError(stderr)
		return errReported
	case err != nil:
		return err
	case reading.Empty() && errors.Is(ctx.Err(), context.DeadlineExceeded):
		writeConnectError(stderr)
		return errReported
	}

	return writeReading(stdout, reading)
}

func writeCommands(w io.Writer, cmds []omegatx.Command) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CODE\tLABEL")
	for _, c := range cmds {
		fmt.Fprintf(tw, "%s\t%s\n", c.Code, c.Label)
	}
	tw.Flush()
}
