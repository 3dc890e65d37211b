package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/tphakala/mixcore/cmd"
	"github.com/tphakala/mixcore/internal/buildinfo"
	"github.com/tphakala/mixcore/internal/conf"
	"github.com/tphakala/mixcore/internal/logging"
	"github.com/tphakala/mixcore/internal/telemetry"
)

// Populated by the linker at build time:
//
//	go build -ldflags "-X main.version=... -X main.buildDate=..."
var (
	version   = ""
	buildDate = ""
)

func main() {
	os.Exit(mainWithExitCode())
}

func mainWithExitCode() int {
	settings, err := conf.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error loading configuration: %v\n", err)
		return 1
	}

	level := slog.LevelInfo
	if settings.Debug {
		level = slog.LevelDebug
	}
	logging.Init(level)

	build := &buildinfo.Context{Version: version, BuildDate: buildDate}
	if paths, err := conf.GetDefaultConfigPaths(); err == nil {
		if id, err := telemetry.LoadOrCreateSystemID(paths[0]); err == nil {
			build.SystemID = id
		} else {
			logging.Warn("could not establish system ID", "error", err)
		}
	}
	settings.Version = build.GetVersion()
	settings.BuildDate = build.GetBuildDate()
	settings.SystemID = build.GetSystemID()

	// Telemetry is opt-in; error capture hooks are installed either way
	// so enabling it later needs no restart.
	telemetry.InitializeErrorIntegration()
	if err := telemetry.InitSentry(settings); err != nil {
		logging.Warn("telemetry initialization failed", "error", err)
	}
	defer telemetry.Flush(2 * time.Second)

	logging.Info("mixcore starting",
		"version", settings.Version,
		"build_date", settings.BuildDate)

	if err := cmd.RootCommand(settings).Execute(); err != nil {
		logging.Error("command failed", "error", err)
		return 1
	}
	return 0
}
