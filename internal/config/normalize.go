package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeScan()
	c.normalizeMedia()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.QuarantineDir) == "" {
		c.Paths.QuarantineDir = defaultQuarantineDir
	}
	if c.Paths.QuarantineDir, err = expandPath(c.Paths.QuarantineDir); err != nil {
		return fmt.Errorf("paths.quarantine_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeScan() {
	if c.Scan.Threads <= 0 {
		c.Scan.Threads = defaultThreads
	}

	exts := make([]string, 0, len(c.Scan.IgnoreExtensions))
	for _, ext := range c.Scan.IgnoreExtensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		exts = append(exts, ext)
	}
	c.Scan.IgnoreExtensions = exts

	folders := make([]string, 0, len(c.Scan.IgnoreFolders))
	for _, folder := range c.Scan.IgnoreFolders {
		folder = strings.TrimSpace(folder)
		if folder != "" {
			folders = append(folders, folder)
		}
	}
	c.Scan.IgnoreFolders = folders

	c.Scan.KeepPolicy = strings.ToLower(strings.TrimSpace(c.Scan.KeepPolicy))
	if c.Scan.KeepPolicy == "" {
		c.Scan.KeepPolicy = defaultKeepPolicy
	}
}

func (c *Config) normalizeMedia() {
	c.Media.FFmpegBinary = strings.TrimSpace(c.Media.FFmpegBinary)
	c.Media.FFprobeBinary = strings.TrimSpace(c.Media.FFprobeBinary)
	if c.Media.MinVideoFrames <= 0 {
		c.Media.MinVideoFrames = defaultMinVideoFrames
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
