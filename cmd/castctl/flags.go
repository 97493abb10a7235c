package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
)

// version is injected at build time with -ldflags "-X main.version=...". Defaults to dev.
var version = "dev"

// cliConfig holds user-supplied flag values prior to translation into a
// cast.Config, mirroring the teacher's cliConfig/parseFlags split.
type cliConfig struct {
	host        string
	port        uint
	logLevel    string
	timeout     uint // request timeout, seconds
	showVersion bool

	command  string
	appID    string
	mediaURL string
	volume   float64
}

func parseFlags(args []string) (*cliConfig, error) {
	fs := flag.NewFlagSet("castctl", flag.ContinueOnError)
	fs.SetOutput(os.Stdout)

	cfg := &cliConfig{}
	fs.StringVar(&cfg.host, "host", "", "Cast device host or IP")
	fs.UintVar(&cfg.port, "port", 8009, "Cast device port")
	fs.StringVar(&cfg.logLevel, "log-level", "info", "Log level: debug|info|warn|error")
	fs.UintVar(&cfg.timeout, "timeout", 10, "Request timeout in seconds")
	fs.BoolVar(&cfg.showVersion, "version", false, "Print version and exit")
	fs.StringVar(&cfg.appID, "app-id", "", "Application id for the launch command")
	fs.StringVar(&cfg.mediaURL, "url", "", "Media URL for the load command")
	fs.Float64Var(&cfg.volume, "volume", 0, "Target volume level [0,1] for the volume command")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if cfg.showVersion {
		return cfg, nil
	}

	rest := fs.Args()
	if len(rest) == 0 {
		return nil, errors.New("missing command: status|launch|load|volume")
	}
	cfg.command = rest[0]

	switch cfg.command {
	case "status", "launch", "load", "volume":
	default:
		return nil, fmt.Errorf("unknown command %q: expected status|launch|load|volume", cfg.command)
	}

	if cfg.host == "" {
		return nil, errors.New("-host is required")
	}

	switch cfg.logLevel {
	case "debug", "info", "warn", "error":
	default:
		return nil, fmt.Errorf("invalid log-level %q", cfg.logLevel)
	}

	if cfg.command == "launch" && cfg.appID == "" {
		return nil, errors.New("launch requires -app-id")
	}
	if cfg.command == "load" && cfg.mediaURL == "" {
		return nil, errors.New("load requires -url (launch an app first)")
	}
	if cfg.command == "volume" && (cfg.volume < 0 || cfg.volume > 1) {
		return nil, fmt.Errorf("volume must be within [0,1], got %v", cfg.volume)
	}

	return cfg, nil
}
