package config

const (
	defaultStateDir       = "~/.local/share/winnow"
	defaultLogDir         = "~/.local/share/winnow/logs"
	defaultQuarantineDir  = "~/.local/share/winnow/quarantine"
	defaultThreads        = 4
	defaultKeepPolicy     = "oldest"
	defaultMinVideoFrames = 10
	defaultLogFormat      = "console"
	defaultLogLevel       = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StateDir:      defaultStateDir,
			LogDir:        defaultLogDir,
			QuarantineDir: defaultQuarantineDir,
		},
		Scan: Scan{
			Threads:    defaultThreads,
			KeepPolicy: defaultKeepPolicy,
		},
		Media: Media{
			MinVideoFrames: defaultMinVideoFrames,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
