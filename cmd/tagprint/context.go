package main

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"tagprint/internal/api"
	"tagprint/internal/config"
	"tagprint/internal/daemon"
	"tagprint/internal/history"
	"tagprint/internal/logging"
)

type commandContext struct {
	configFlag *string
	apiFlag    *string

	configOnce sync.Once
	config     *config.Config
	configErr  error

	localOnce sync.Once
	local     *daemon.Daemon
	localErr  error
}

func newCommandContext(configFlag, apiFlag *string) *commandContext {
	return &commandContext{
		configFlag: configFlag,
		apiFlag:    apiFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// remote reports whether requests should go to a daemon.
func (c *commandContext) remote() bool {
	return c.apiFlag != nil && strings.TrimSpace(*c.apiFlag) != ""
}

func (c *commandContext) apiClient() (*api.Client, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	bind := cfg.Paths.APIBind
	if c.remote() {
		bind = strings.TrimSpace(*c.apiFlag)
	}
	client, err := api.NewClient(bind, cfg.Paths.APIToken)
	if err != nil {
		return nil, fmt.Errorf("api client: %w", err)
	}
	if client == nil {
		return nil, fmt.Errorf("api client: no address configured")
	}
	return client, nil
}

// localServices wires the daemon's services without starting the API or
// taking the daemon lock.
func (c *commandContext) localServices() (*daemon.Daemon, error) {
	c.localOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.localErr = err
			return
		}
		logger, err := cliLogger(cfg)
		if err != nil {
			c.localErr = err
			return
		}
		store, err := history.Open(cfg)
		if err != nil {
			c.localErr = fmt.Errorf("open history: %w", err)
			return
		}
		d, err := daemon.New(cfg, store, logger)
		if err != nil {
			_ = store.Close()
			c.localErr = err
			return
		}
		c.local = d
	})
	return c.local, c.localErr
}

func (c *commandContext) close() {
	if c.local != nil {
		_ = c.local.Close()
	}
}

// cliLogger writes to the log directory only so command output stays clean.
func cliLogger(cfg *config.Config) (*slog.Logger, error) {
	return logging.New(logging.Options{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		OutputPaths: []string{filepath.Join(cfg.Paths.LogDir, "tagprint-cli.log")},
	})
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
