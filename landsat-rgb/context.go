package main

import (
	"context"
	"net/http"
	"os"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/nci/bandstack/fetch"
	"github.com/nci/bandstack/metrics"
	"github.com/nci/bandstack/processor"
	"github.com/nci/bandstack/utils"
	"go.uber.org/zap"
)

type commandContext struct {
	configFlag  *string
	verboseFlag *bool

	configOnce sync.Once
	config     *utils.Config
	configErr  error

	loggerOnce sync.Once
	logger     *zap.Logger
	runID      string
}

func newCommandContext(configFlag *string, verboseFlag *bool) *commandContext {
	return &commandContext{
		configFlag:  configFlag,
		verboseFlag: verboseFlag,
		runID:       uuid.New().String(),
	}
}

// ensureConfig loads the configuration file named by --config, or the
// defaults when no file is given. Relative names are searched for in
// $LANDSAT_RGB_CONFIG_PATH first.
func (c *commandContext) ensureConfig() (*utils.Config, error) {
	c.configOnce.Do(func() {
		cfg := utils.DefaultConfig()
		if c.configFlag != nil {
			if name := strings.TrimSpace(*c.configFlag); name != "" {
				path, err := utils.NewConfigResolver(os.Getenv(utils.ConfigPathEnv)).Resolve(name)
				if err != nil {
					c.configErr = err
					return
				}
				if err = cfg.LoadConfigFile(path); err != nil {
					c.configErr = err
					return
				}
			}
		}
		if c.verboseFlag != nil && *c.verboseFlag {
			cfg.Verbose = true
		}
		c.config = &cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) verbose() bool {
	if c.config != nil {
		return c.config.Verbose
	}
	return c.verboseFlag != nil && *c.verboseFlag
}

func (c *commandContext) log() *zap.Logger {
	c.loggerOnce.Do(func() {
		var logger *zap.Logger
		var err error
		if c.verbose() {
			logger, err = zap.NewDevelopment()
		} else {
			logger, err = zap.NewProduction()
		}
		if err != nil {
			logger = zap.NewNop()
		}
		c.logger = logger.With(zap.String("run_id", c.runID))
	})
	return c.logger
}

func (c *commandContext) close() {
	if c.logger != nil {
		c.logger.Sync()
	}
}

// fetchContext bounds the retrieval of a run by the configured timeout.
func (c *commandContext) fetchContext(parent context.Context, cfg *utils.Config) (context.Context, context.CancelFunc) {
	if cfg.FetchTimeout > 0 {
		return context.WithTimeout(parent, cfg.FetchTimeout)
	}
	return context.WithCancel(parent)
}

func (c *commandContext) newLoader(cfg *utils.Config) *processor.SceneLoader {
	fetcher := fetch.NewDefaultFetcher(&http.Client{})
	cache := fetch.NewCache(cfg.CacheDir, cfg.CacheExt, fetcher, c.log())
	return processor.NewSceneLoader(cache, c.log())
}

func (c *commandContext) newCollector(cfg *utils.Config) *metrics.Collector {
	loggers := metrics.MultiLogger{metrics.NewZapLogger(c.log())}
	if cfg.MetricsLog != "" {
		loggers = append(loggers, metrics.NewFileLogger(cfg.MetricsLog, 0, 0, c.log()))
	}
	return metrics.NewCollector(c.runID, loggers)
}
