package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-avrocontract/pkg/schema"
)

func newRecordsCmd(root *rootOptions) *cobra.Command {
	var ref string
	cmd := &cobra.Command{
		Use:   "records",
		Short: "List the records defined by a schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := root.load(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			src, err := schema.ParseSource(ref)
			if err != nil {
				return err
			}
			names, err := a.orch.Records(cmd.Context(), src)
			if err != nil {
				return err
			}
			for _, name := range names {
				if _, err := fmt.Fprintln(cmd.OutOrStdout(), name); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&ref, "schema", "s", "", "schema path, URL or inline JSON")
	_ = cmd.MarkFlagRequired("schema")
	return cmd
}
