package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"winnow/internal/config"
	"winnow/internal/logging"
	"winnow/internal/runcontrol"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
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

func (c *commandContext) newLogger(cmd *cobra.Command) (*slog.Logger, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return logging.New(logging.Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		LogDir: cfg.Paths.LogDir,
		Out:    cmd.ErrOrStderr(),
	})
}

// runContext wires the shared pause/stop substrate into signals:
// SIGINT/SIGTERM cancel the returned context, SIGUSR1 toggles the pause
// gate. The returned stop func releases both hooks.
func runContext(parent context.Context, gate *runcontrol.Gate, logger *slog.Logger) (context.Context, func()) {
	ctx, cancel := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)

	pauseCh := make(chan os.Signal, 1)
	signal.Notify(pauseCh, syscall.SIGUSR1)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-pauseCh:
				gate.Toggle()
				if gate.Paused() {
					logger.Info("run paused (SIGUSR1 again to resume)")
				} else {
					logger.Info("run resumed")
				}
			}
		}
	}()

	return ctx, func() {
		signal.Stop(pauseCh)
		cancel()
	}
}

// acquireLock takes the single-instance mutation lock. Dry runs skip it;
// concurrent analysis-only runs are harmless, concurrent mutation is not.
func acquireLock(cfg *config.Config) (func(), error) {
	lock := flock.New(cfg.LockPath())
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock %s: %w", cfg.LockPath(), err)
	}
	if !locked {
		return nil, fmt.Errorf("another winnow run holds %s; wait for it to finish", cfg.LockPath())
	}
	return func() { _ = lock.Unlock() }, nil
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
