// Package initcmder provides the init command for initializing a local .paideia
// directory in the current working directory.
package initcmder

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/paideialabs/paideia/pkg/config"
)

const (
	dirName    = ".paideia"
	configFile = "config.toml"

	remoteFetchTimeout = 10 * time.Second
)

const initLongDesc string = `Initialize a new .paideia/ directory in the current working directory.

Creates a local .paideia/ directory that takes precedence over the default
~/.paideia/ directory for configuration, cache storage, and the document
store, and writes a config.toml with default values.

Use --preset to start from a provider preset (openai, anthropic, ollama)
or from a remote config.toml URL.

This is useful for maintaining separate memory state per project or
curriculum.

Examples:
  paideia init
  paideia init --preset anthropic
  paideia init --preset https://example.com/paideia/config.toml`

const initShortDesc string = "Initialize a local .paideia/ directory"

func NewInitCmd() *cobra.Command {
	var preset string

	cmd := &cobra.Command{
		Use:   "init",
		Short: initShortDesc,
		Long:  initLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return runInit(preset)
		},
	}

	cmd.Flags().StringVar(&preset, "preset", "", "Provider preset name or remote config.toml URL")

	return cmd
}

func runInit(preset string) error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("getting current directory: %w", err)
	}

	dir := filepath.Join(cwd, dirName)

	info, err := os.Stat(dir)
	alreadyInitialized := err == nil && info.IsDir()

	if !alreadyInitialized {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating .paideia directory: %w", err)
		}
	}

	configPath := filepath.Join(dir, configFile)
	_, statErr := os.Stat(configPath)
	configExists := statErr == nil

	// A plain re-init leaves an existing config.toml alone; a preset
	// always replaces it.
	if preset == "" && configExists {
		fmt.Printf("Already initialized: %s\n", dir)
		return nil
	}

	cfg, err := resolvePresetConfig(preset)
	if err != nil {
		return err
	}

	cfger, err := config.NewConfiger(dir)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if err := cfger.SaveConfig(cfg); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}

	if alreadyInitialized {
		fmt.Printf("Wrote %s\n", configPath)
		return nil
	}

	fmt.Printf("Initialized .paideia directory: %s\n", dir)
	return nil
}

// resolvePresetConfig turns the --preset value into a Config. An empty value
// means defaults, an http(s) URL is fetched and parsed, anything else is
// treated as a provider preset name.
func resolvePresetConfig(preset string) (*config.Config, error) {
	if preset == "" {
		return config.NewDefaultConfig(), nil
	}

	if strings.HasPrefix(preset, "http://") || strings.HasPrefix(preset, "https://") {
		return fetchRemoteConfig(preset)
	}

	return config.PresetConfig(preset)
}

func fetchRemoteConfig(url string) (*config.Config, error) {
	client := &http.Client{Timeout: remoteFetchTimeout}

	resp, err := client.Get(url)
	if err != nil {
		return nil, fmt.Errorf("fetching remote config: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching remote config: HTTP %d from %s", resp.StatusCode, url)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading remote config: %w", err)
	}

	return config.ParseConfigTOML(data)
}
