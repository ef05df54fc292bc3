// Package initcmder provides the init command for initializing a local .docq
// directory in the current working directory.
package initcmder

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/docq/pkg/cliui"
	"github.com/papercomputeco/docq/pkg/config"
	"github.com/papercomputeco/docq/pkg/dotdir"
)

const initLongDesc string = `Initialize a new .docq/ directory in the current working directory.

Creates a local .docq/ directory that takes precedence over the default
~/.docq/ directory for configuration and the default SQLite database,
and writes a config.toml when none exists yet.

Use --preset to start from a storage preset (memory, sqlite, postgres) or
from a config.toml fetched over HTTP(S).

Examples:
  docq init
  docq init --preset sqlite
  docq init --preset https://example.com/docq/config.toml`

const initShortDesc string = "Initialize a local .docq/ directory"

const fetchTimeout = 30 * time.Second

type initCommander struct {
	preset string
	out    io.Writer
}

func NewInitCmd() *cobra.Command {
	cmder := &initCommander{}

	cmd := &cobra.Command{
		Use:   "init",
		Short: initShortDesc,
		Long:  initLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmder.out = cmd.OutOrStdout()
			return cmder.run(cmd.Context())
		},
	}

	cmd.Flags().StringVar(&cmder.preset, "preset", "",
		fmt.Sprintf("Config preset (%s) or URL of a config.toml", strings.Join(config.ValidPresetNames(), ", ")))

	return cmd
}

func (c *initCommander) run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := c.resolveConfig(ctx)
	if err != nil {
		return err
	}

	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("getting current directory: %w", err)
	}
	dir := filepath.Join(cwd, dotdir.DirName)

	if info, err := os.Stat(dir); err == nil && info.IsDir() {
		fmt.Fprintf(c.out, "Already initialized: %s\n", dir)
	} else {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating .docq directory: %w", err)
		}
		fmt.Fprintf(c.out, "Initialized .docq directory: %s\n", dir)
	}

	cfger, err := config.NewConfiger(dir)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// An existing config.toml is only replaced when a preset is asked for.
	if _, err := os.Stat(cfger.GetTarget()); err == nil && c.preset == "" {
		return nil
	}

	if err := cfger.SaveConfig(cfg); err != nil {
		return err
	}

	fmt.Fprintf(c.out, "  %s Wrote %s\n", cliui.SuccessMark, cliui.DimStyle.Render(cfger.GetTarget()))
	return nil
}

func (c *initCommander) resolveConfig(ctx context.Context) (*config.Config, error) {
	switch {
	case c.preset == "":
		return config.NewDefaultConfig(), nil

	case strings.HasPrefix(c.preset, "http://"), strings.HasPrefix(c.preset, "https://"):
		data, err := fetchConfig(ctx, c.preset)
		if err != nil {
			return nil, err
		}
		return config.ParseConfigTOML(data)

	default:
		return config.PresetConfig(c.preset)
	}
}

func fetchConfig(ctx context.Context, url string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating preset request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching preset: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching preset: unexpected status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading preset: %w", err)
	}
	return data, nil
}
