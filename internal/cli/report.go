package cli

import (
	"bytes"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-avrocontract/pkg/report"
)

type reportOptions struct {
	file        string
	contentType string
	format      string
	notes       string
	out         string
}

func newReportCmd(root *rootOptions) *cobra.Command {
	opts := reportOptions{}
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Render a configured interaction as text, markdown or html",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReport(cmd, root, opts)
		},
	}
	fs := cmd.Flags()
	fs.StringVarP(&opts.file, "file", "f", "", "contents config yaml path")
	fs.StringVar(&opts.contentType, "content-type", "", "content type when the config sets none")
	fs.StringVar(&opts.format, "format", "markdown", "report format: text, markdown or html")
	fs.StringVar(&opts.notes, "notes", "", "free-form notes; html output keeps basic markup")
	fs.StringVarP(&opts.out, "out", "o", "", "write the report here instead of stdout")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func runReport(cmd *cobra.Command, root *rootOptions, opts reportOptions) error {
	format, err := report.ParseFormat(opts.format)
	if err != nil {
		return err
	}
	a, err := root.load(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	config, err := readContentsConfig(opts.file)
	if err != nil {
		return err
	}
	interaction, err := a.orch.ConfigureInteraction(cmd.Context(), a.contentType(opts.contentType), config)
	if err != nil {
		return err
	}

	renderer, err := report.NewRenderer()
	if err != nil {
		return err
	}
	r := report.FromInteraction(interaction)
	r.Notes = opts.notes

	var buf bytes.Buffer
	if _, err := renderer.Render(&buf, format, r); err != nil {
		return err
	}
	return writeOutput(cmd.OutOrStdout(), opts.out, buf.Bytes())
}
