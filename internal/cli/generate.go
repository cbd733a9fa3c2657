package cli

import (
	"github.com/spf13/cobra"

	"github.com/goliatone/go-avrocontract/pkg/plugin"
)

type generateOptions struct {
	interaction string
	state       map[string]string
	out         string
	descriptor  bool
}

func newGenerateCmd(root *rootOptions) *cobra.Command {
	opts := generateOptions{}
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Regenerate an interaction payload with its generators applied",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(cmd, root, opts)
		},
	}
	fs := cmd.Flags()
	fs.StringVarP(&opts.interaction, "interaction", "i", "", "interaction JSON written by configure")
	fs.StringToStringVar(&opts.state, "state", nil, "provider state values, key=value")
	fs.StringVarP(&opts.out, "out", "o", "", "write the payload here instead of stdout")
	fs.BoolVar(&opts.descriptor, "json", false, "print the content descriptor as JSON instead of raw bytes")
	_ = cmd.MarkFlagRequired("interaction")
	return cmd
}

func runGenerate(cmd *cobra.Command, root *rootOptions, opts generateOptions) error {
	a, err := root.load(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	interaction, err := readInteraction(opts.interaction)
	if err != nil {
		return err
	}

	state := make(map[string]any, len(opts.state))
	for k, v := range opts.state {
		state[k] = v
	}
	resp, err := a.service.GenerateContent(cmd.Context(), plugin.GenerateContentRequest{
		Contents:            interaction.Contents,
		Generators:          interaction.Generators,
		PluginConfiguration: interaction.PluginConfiguration,
		TestContext:         state,
	})
	if err != nil {
		return err
	}

	if !opts.descriptor {
		return writeOutput(cmd.OutOrStdout(), opts.out, resp.Contents.Payload)
	}
	data, err := marshalIndent(resp.Contents)
	if err != nil {
		return err
	}
	return writeOutput(cmd.OutOrStdout(), opts.out, data)
}
