package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-avrocontract/pkg/orchestrator"
	"github.com/goliatone/go-avrocontract/pkg/report"
)

type verifyOptions struct {
	interaction string
	payload     string
	format      string
}

func newVerifyCmd(root *rootOptions) *cobra.Command {
	opts := verifyOptions{}
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Check a provider payload against a configured interaction",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVerify(cmd, root, opts)
		},
	}
	fs := cmd.Flags()
	fs.StringVarP(&opts.interaction, "interaction", "i", "", "interaction JSON written by configure")
	fs.StringVarP(&opts.payload, "payload", "p", "", "encoded payload to verify")
	fs.StringVar(&opts.format, "format", "text", "report format: text, markdown or html")
	_ = cmd.MarkFlagRequired("interaction")
	_ = cmd.MarkFlagRequired("payload")
	return cmd
}

func runVerify(cmd *cobra.Command, root *rootOptions, opts verifyOptions) error {
	format, err := report.ParseFormat(opts.format)
	if err != nil {
		return err
	}
	a, err := root.load(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	interaction, err := readInteraction(opts.interaction)
	if err != nil {
		return err
	}
	// #nosec G304 -- path is provided by the operator.
	payload, err := os.ReadFile(opts.payload)
	if err != nil {
		return fmt.Errorf("read %s: %w", opts.payload, err)
	}

	target, err := orchestrator.ParseConfig(interaction.PluginConfiguration.InteractionConfiguration)
	if err != nil {
		return err
	}
	res, err := a.orch.Verify(cmd.Context(), orchestrator.VerifyRequest{
		Source:      target.Source,
		Record:      target.Record,
		ContentType: interaction.Contents.ContentType,
		Payload:     payload,
		Expected:    interaction.Contents.Payload,
		Rules:       interaction.Rules,
	})
	if err != nil {
		return err
	}

	renderer, err := report.NewRenderer()
	if err != nil {
		return err
	}
	if _, err := renderer.Render(cmd.OutOrStdout(), format, report.FromVerify(target.Record, res)); err != nil {
		return err
	}
	if !res.OK() {
		return ErrVerifyFailed
	}
	return nil
}
