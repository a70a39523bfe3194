package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/shadowhtml/shadowhtml"
	"github.com/shadowhtml/shadowhtml/formatter"
	"github.com/shadowhtml/shadowhtml/transport"
)

// NewRunCmd creates the run subcommand: process a file through the
// pipeline end to end.
func NewRunCmd() *cobra.Command {
	var actionsPath, inPath, outPath string
	var useBrotli, scriptTag bool

	cmd := &cobra.Command{
		Use:          "run",
		Short:        "Rewrite an HTML file through a ShadowJson action tree",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			actionsJSON, err := os.ReadFile(actionsPath)
			if err != nil {
				return fmt.Errorf("reading actions: %w", err)
			}
			html, err := os.ReadFile(inPath)
			if err != nil {
				return fmt.Errorf("reading input HTML: %w", err)
			}

			var opts []shadowhtml.Option
			if scriptTag {
				opts = append(opts, shadowhtml.WithDataFormatter(formatter.ScriptTag))
			}

			out, diags, err := runPipeline(actionsJSON, html, useBrotli, opts)
			if err != nil {
				for _, d := range diags {
					fmt.Fprintln(cmd.ErrOrStderr(), d)
				}
				return fmt.Errorf("processing html: %w", err)
			}
			for _, d := range diags {
				fmt.Fprintln(cmd.ErrOrStderr(), d)
			}

			if outPath == "" {
				_, err = cmd.OutOrStdout().Write(out)
				return err
			}
			return os.WriteFile(outPath, out, 0o644)
		},
	}

	cmd.Flags().StringVar(&actionsPath, "actions", "", "path to the ShadowJson action tree")
	cmd.Flags().StringVar(&inPath, "in", "", "path to the input HTML file")
	cmd.Flags().StringVar(&outPath, "out", "", "path to write rewritten HTML (default: stdout)")
	cmd.Flags().BoolVar(&useBrotli, "brotli", false, "compress the output with brotli")
	cmd.Flags().BoolVar(&scriptTag, "script-tag", false, "wrap harvested data in a <script> element")
	_ = cmd.MarkFlagRequired("actions")
	_ = cmd.MarkFlagRequired("in")

	return cmd
}

// runPipeline processes html through shadowhtml.Process, optionally
// brotli-compressing the output.
func runPipeline(actionsJSON, html []byte, useBrotli bool, opts []shadowhtml.Option) ([]byte, []string, error) {
	if !useBrotli {
		return shadowhtml.ProcessHTML(actionsJSON, html, opts...)
	}

	r := transport.NewSliceReader([][]byte{html})
	buf := &transport.BufferWriter{}
	bw := transport.NewBrotliWriter(buf)

	diags, err := shadowhtml.Process(actionsJSON, r, bw, opts...)
	if err != nil {
		return nil, diags, err
	}
	if err := bw.Close(); err != nil {
		return nil, diags, fmt.Errorf("flushing brotli stream: %w", err)
	}
	return buf.Bytes(), diags, nil
}
