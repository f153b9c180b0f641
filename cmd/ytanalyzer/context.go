package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"ytanalyzer/internal/api"
	"ytanalyzer/internal/config"
	"ytanalyzer/internal/logging"
)

type commandContext struct {
	configFlag *string
	jsonFlag   *bool

	configOnce sync.Once
	config     *config.Config
	configErr  error

	// coreOptions are appended to every api.Open call.
	coreOptions []api.Option
}

func newCommandContext(configFlag *string, jsonFlag *bool) *commandContext {
	return &commandContext{
		configFlag: configFlag,
		jsonFlag:   jsonFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		if err := config.LoadDotEnv(); err != nil {
			c.configErr = fmt.Errorf("load .env: %w", err)
			return
		}
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

func (c *commandContext) jsonOutput() bool {
	return c.jsonFlag != nil && *c.jsonFlag
}

// withCore opens the facade for the duration of fn.
func (c *commandContext) withCore(fn func(*api.Core) error, opts ...api.Option) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	core, err := api.Open(cfg, logger, append(append([]api.Option(nil), c.coreOptions...), opts...)...)
	if err != nil {
		return err
	}
	defer core.Close()
	return fn(core)
}

// emit prints a facade result. With --json the envelope is written as-is;
// otherwise render formats a successful payload. Failures become the
// command's error in both modes.
func emit[T any](c *commandContext, cmd *cobra.Command, res api.Result[T], render func(io.Writer, T)) error {
	if c.jsonOutput() {
		if err := writeJSON(cmd, res); err != nil {
			return err
		}
	} else if res.Success && render != nil {
		render(cmd.OutOrStdout(), res.Payload)
	}
	if !res.Success {
		return errors.New(res.Error)
	}
	return nil
}

func readFile(path string) ([]byte, error) {
	expanded, err := config.ExpandPath(strings.TrimSpace(path))
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(expanded)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", expanded, err)
	}
	return data, nil
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
