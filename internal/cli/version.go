package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-avrocontract/internal/version"
)

func newVersionCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := root.load(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s plugin %s\n%s\n", a.cfg.Plugin.Name, a.cfg.Plugin.Version, version.Get())
			return err
		},
	}
}
