// Command castctl is a small command-line driver over the cast package,
// adapted from the teacher's cmd/rtmp-server entry point: parse flags,
// set up logging, run one command against a device, and exit with a
// status code reflecting the result.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	cast "github.com/alxayo/go-cast"
	"github.com/alxayo/go-cast/internal/castmsg"
	"github.com/alxayo/go-cast/internal/logger"
)

func mediaFromURL(url string) castmsg.Media {
	return castmsg.Media{ContentID: url, ContentType: "video/mp4", StreamType: "BUFFERED"}
}

func main() {
	cfg, err := parseFlags(os.Args[1:])
	if err != nil {
		os.Exit(2)
	}
	if cfg.showVersion {
		fmt.Println(version)
		return
	}

	logger.Init()
	if err := logger.SetLevel(cfg.logLevel); err != nil {
		fmt.Printf("Warning: invalid log level %q, using default\n", cfg.logLevel)
	}
	log := logger.Logger().With("component", "castctl")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("command failed", "command", cfg.command, "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *cliConfig, log interface {
	Info(string, ...any)
}) error {
	timeout := time.Duration(cfg.timeout) * time.Second

	device := cast.NewDevice(cast.DefaultConfig())
	device.Events().Add(cast.ListenerFunc(func(e cast.Event) {
		log.Info("event", "type", string(e.Type))
	}))

	connectCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := device.Connect(connectCtx, cfg.host, int(cfg.port), ""); err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer device.Close()

	switch cfg.command {
	case "status":
		status, err := device.GetStatus(ctx, timeout)
		if err != nil {
			return fmt.Errorf("get status: %w", err)
		}
		fmt.Printf("standBy=%v activeInput=%v applications=%d\n",
			status.IsStandBy, status.IsActiveInput, len(status.Applications))
		for _, app := range status.Applications {
			fmt.Printf("  appId=%s sessionId=%s transportId=%s displayName=%s\n",
				app.AppID, app.SessionID, app.TransportID, app.DisplayName)
		}
		return nil

	case "launch":
		status, err := device.Launch(ctx, cfg.appID, timeout)
		if err != nil {
			return fmt.Errorf("launch: %w", err)
		}
		app, ok := status.RunningApplication()
		if !ok {
			return fmt.Errorf("launch reported success but no application is running")
		}
		fmt.Printf("launched appId=%s sessionId=%s transportId=%s\n", app.AppID, app.SessionID, app.TransportID)
		return nil

	case "load":
		status, err := device.Load(ctx, mediaFromURL(cfg.mediaURL), true, 0, timeout)
		if err != nil {
			return fmt.Errorf("load: %w", err)
		}
		fmt.Printf("mediaSessionId=%d playerState=%s\n", status.MediaSessionID, status.PlayerState)
		return nil

	case "volume":
		if err := device.SetVolumeByIncrement(ctx, cfg.volume, timeout); err != nil {
			return fmt.Errorf("set volume: %w", err)
		}
		fmt.Printf("volume set to %v\n", cfg.volume)
		return nil

	default:
		return fmt.Errorf("unknown command %q", cfg.command)
	}
}
