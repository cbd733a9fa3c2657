package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-avrocontract/pkg/plugin"
)

type configureOptions struct {
	file        string
	contentType string
	out         string
	payloadOut  string
}

func newConfigureCmd(root *rootOptions) *cobra.Command {
	opts := configureOptions{}
	cmd := &cobra.Command{
		Use:   "configure",
		Short: "Build an interaction from a contents config yaml",
		Long: "Reads the pact:avro, pact:record-name and optional pact:content-type keys\n" +
			"plus the literal from --file and prints the interaction as JSON.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigure(cmd, root, opts)
		},
	}
	fs := cmd.Flags()
	fs.StringVarP(&opts.file, "file", "f", "", "contents config yaml path")
	fs.StringVar(&opts.contentType, "content-type", "", "content type when the config sets none")
	fs.StringVarP(&opts.out, "out", "o", "", "write the interaction JSON here instead of stdout")
	fs.StringVar(&opts.payloadOut, "payload", "", "also write the encoded payload to this path")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func runConfigure(cmd *cobra.Command, root *rootOptions, opts configureOptions) error {
	a, err := root.load(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	config, err := readContentsConfig(opts.file)
	if err != nil {
		return err
	}

	resp, err := a.service.ConfigureInteraction(cmd.Context(), plugin.ConfigureInteractionRequest{
		ContentType:    a.contentType(opts.contentType),
		ContentsConfig: config,
	})
	if err != nil {
		return err
	}
	if resp.Error != "" {
		return errors.New(resp.Error)
	}
	if len(resp.Interactions) != 1 {
		return fmt.Errorf("expected one interaction, got %d", len(resp.Interactions))
	}
	interaction := resp.Interactions[0]

	if opts.payloadOut != "" {
		if err := os.WriteFile(opts.payloadOut, interaction.Contents.Payload, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", opts.payloadOut, err)
		}
	}
	data, err := marshalIndent(interaction)
	if err != nil {
		return err
	}
	return writeOutput(cmd.OutOrStdout(), opts.out, data)
}
