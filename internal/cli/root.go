// Package cli wires the avro-contract commands.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-avrocontract/internal/config"
	"github.com/goliatone/go-avrocontract/pkg/content"
	"github.com/goliatone/go-avrocontract/pkg/orchestrator"
	"github.com/goliatone/go-avrocontract/pkg/plugin"
)

// ErrVerifyFailed is returned when verification reports mismatches; the
// report has already been printed.
var ErrVerifyFailed = errors.New("verification failed")

type rootOptions struct {
	cfgPath string
}

// Execute runs the root command with the process arguments.
func Execute(ctx context.Context) error {
	return newRootCmd().ExecuteContext(ctx)
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "avro-contract",
		Short:         "Build, verify and regenerate Avro contract interactions",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVarP(&opts.cfgPath, "config", "c", "", "config yaml path (defaults plus AVRO_CONTRACT_* env when empty)")

	cmd.AddCommand(
		newConfigureCmd(opts),
		newVerifyCmd(opts),
		newGenerateCmd(opts),
		newRecordsCmd(opts),
		newReportCmd(opts),
		newScaffoldCmd(opts, nil),
		newServeCmd(opts),
		newVersionCmd(opts),
	)
	return cmd
}

// app bundles what every command needs after the config is loaded.
type app struct {
	cfg     *config.Config
	orch    *orchestrator.Orchestrator
	service *plugin.Service
}

func (o *rootOptions) load(stderr io.Writer) (*app, error) {
	cfg, err := config.Load(strings.TrimSpace(o.cfgPath))
	if err != nil {
		return nil, err
	}
	logger := cfg.NewLogger(stderr)
	registry := content.Default()
	if len(cfg.Plugin.Textual) > 0 {
		registry = content.NewRegistry(cfg.Plugin.Textual...)
	}
	orch := orchestrator.New(
		orchestrator.WithLoaderOptions(cfg.LoaderOptions()...),
		orchestrator.WithContentRegistry(registry),
		orchestrator.WithLogger(logger),
	)
	return &app{
		cfg:     cfg,
		orch:    orch,
		service: plugin.NewService(orch, plugin.WithLogger(logger)),
	}, nil
}

// contentType returns the explicit value or the configured default format.
func (a *app) contentType(explicit string) string {
	if s := strings.TrimSpace(explicit); s != "" {
		return s
	}
	return a.cfg.Plugin.Format + "/binary"
}

func readContentsConfig(path string) (map[string]any, error) {
	// #nosec G304 -- path is provided by the operator.
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	var out map[string]any
	if err := yaml.Unmarshal(b, &out); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	if out == nil {
		return nil, fmt.Errorf("%s is empty", path)
	}
	return out, nil
}

func readInteraction(path string) (plugin.InteractionResponse, error) {
	// #nosec G304 -- path is provided by the operator.
	b, err := os.ReadFile(path)
	if err != nil {
		return plugin.InteractionResponse{}, fmt.Errorf("read %s: %w", path, err)
	}
	var out plugin.InteractionResponse
	if err := json.Unmarshal(b, &out); err != nil {
		return plugin.InteractionResponse{}, fmt.Errorf("decode %s: %w", path, err)
	}
	return out, nil
}

// writeOutput writes data to path, or to w when path is empty.
func writeOutput(w io.Writer, path string, data []byte) error {
	if strings.TrimSpace(path) == "" {
		_, err := w.Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func marshalIndent(v any) ([]byte, error) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(b, '\n'), nil
}
