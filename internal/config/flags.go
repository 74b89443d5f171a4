package config

import (
	"flag"
	"time"
)

var (
	flagConfig  = flag.String("config", "", "Path to config file")
	flagDebug   = flag.Bool("debug", false, "Enable debug logging")
	flagOut     = flag.String("out", "", "Output .glb path")
	flagOutDir  = flag.String("out-dir", "", "Directory for generated output names")
	flagTimeout = flag.Duration("timeout", 0, "Download timeout per attempt")
	flagRetries = flag.Int("retries", -1, "Extra download attempts after a failure")
	flagListen  = flag.String("listen", "", "HTTP listen address for serve")
)

// ParseFlags parses command-line flags. Call this early in main().
func ParseFlags() {
	flag.Parse()
}

// Args returns the non-flag arguments left after ParseFlags.
func Args() []string {
	return flag.Args()
}

// ConfigPath returns the explicit config path if provided via --config flag.
func ConfigPath() string {
	return *flagConfig
}

// applyFlags applies CLI flag overrides to the config.
func applyFlags(cfg *Config) {
	if *flagDebug {
		cfg.Logging.Level = "debug"
	}
	if *flagOut != "" {
		cfg.Output.Path = *flagOut
	}
	if *flagOutDir != "" {
		cfg.Output.Dir = *flagOutDir
	}
	if *flagTimeout > 0 {
		cfg.Fetch.Timeout = *flagTimeout
	}
	if *flagRetries >= 0 {
		cfg.Fetch.Retries = *flagRetries
	}
	if *flagListen != "" {
		cfg.Server.Listen = *flagListen
	}
}

// resetFlags restores flag defaults; used by tests.
func resetFlags() {
	*flagConfig = ""
	*flagDebug = false
	*flagOut = ""
	*flagOutDir = ""
	*flagTimeout = time.Duration(0)
	*flagRetries = -1
	*flagListen = ""
}
