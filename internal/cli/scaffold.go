package cli

import (
	"github.com/spf13/cobra"

	"github.com/goliatone/go-avrocontract/pkg/scaffold"
	"github.com/goliatone/go-avrocontract/pkg/schema"
)

type scaffoldOptions struct {
	schema      string
	record      string
	contentType string
	out         string
}

// newScaffoldCmd prompts through driver; nil uses the terminal.
func newScaffoldCmd(root *rootOptions, driver scaffold.PromptDriver) *cobra.Command {
	opts := scaffoldOptions{}
	cmd := &cobra.Command{
		Use:   "scaffold",
		Short: "Interactively write a contents config for a record",
		RunE: func(cmd *cobra.Command, args []string) error {
			d := driver
			if d == nil {
				d = scaffold.NewSurveyDriver(nil)
			}
			return runScaffold(cmd, root, opts, d)
		},
	}
	fs := cmd.Flags()
	fs.StringVarP(&opts.schema, "schema", "s", "", "schema path, URL or inline JSON")
	fs.StringVarP(&opts.record, "record", "r", "", "record name, short or fully qualified")
	fs.StringVar(&opts.contentType, "content-type", "", "pact:content-type to write, omitted when empty")
	fs.StringVarP(&opts.out, "out", "o", "", "write the yaml here instead of stdout")
	_ = cmd.MarkFlagRequired("schema")
	_ = cmd.MarkFlagRequired("record")
	return cmd
}

func runScaffold(cmd *cobra.Command, root *rootOptions, opts scaffoldOptions, driver scaffold.PromptDriver) error {
	a, err := root.load(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	src, err := schema.ParseSource(opts.schema)
	if err != nil {
		return err
	}
	rec, err := a.orch.Resolve(cmd.Context(), src, opts.record)
	if err != nil {
		return err
	}

	res, err := scaffold.New(driver).Scaffold(cmd.Context(), rec)
	if err != nil {
		return err
	}
	doc, err := res.Document(opts.schema, opts.contentType)
	if err != nil {
		return err
	}
	return writeOutput(cmd.OutOrStdout(), opts.out, doc)
}
