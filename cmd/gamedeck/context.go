package main

import (
	"errors"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"gamedeck/internal/artwork"
	"gamedeck/internal/config"
	"gamedeck/internal/daemonrun"
	"gamedeck/internal/logging"
)

type commandContext struct {
	configFlag *string
	jsonFlag   *bool
	yamlFlag   *bool

	configOnce sync.Once
	config     *config.Config
	configErr  error

	loggerOnce sync.Once
	log        *slog.Logger
}

func newCommandContext(configFlag *string, jsonFlag, yamlFlag *bool) *commandContext {
	return &commandContext{
		configFlag: configFlag,
		jsonFlag:   jsonFlag,
		yamlFlag:   yamlFlag,
	}
}

func (c *commandContext) configPath() string {
	if c.configFlag == nil {
		return ""
	}
	return strings.TrimSpace(*c.configFlag)
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, _, _, err := config.Load(c.configPath())
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

// logger writes to stderr and the log directory so stdout stays parseable.
func (c *commandContext) logger() *slog.Logger {
	c.loggerOnce.Do(func() {
		cfg, _ := c.ensureConfig()
		logger, err := logging.NewFromConfig(cfg)
		if err != nil {
			logger = logging.NewNop()
		}
		c.log = logger
	})
	return c.log
}

func (c *commandContext) policy() artwork.Policy {
	cfg, _ := c.ensureConfig()
	return artwork.PolicyFromConfig(cfg)
}

// withComponents builds the pipeline from config and releases it after fn.
func (c *commandContext) withComponents(fn func(*daemonrun.Components) error, opts ...daemonrun.BuildOption) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	components, err := daemonrun.Build(cfg, c.logger(), opts...)
	if err != nil {
		return err
	}
	defer components.Close()
	return fn(components)
}

var errNoArtworkKey = errors.New("artwork lookups are disabled: set artwork.api_key or STEAMGRIDDB_API_KEY")

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
