// Command conductord is the Conductor Runtime daemon: it boots the LLM,
// plugin, MCP, Agents and Conductor modules, then serves the gRPC/HTTP
// adapters until a shutdown signal arrives.
package main

import (
	"math/rand"
	"time"

	"github.com/kiosk404/echoryn/internal/hivemind"
	"github.com/kiosk404/echoryn/internal/hivemind/config"
	"github.com/kiosk404/echoryn/internal/hivemind/options"
	"github.com/kiosk404/echoryn/pkg/app"
	"github.com/kiosk404/echoryn/pkg/logger"
)

const AppName = "conductord"

func main() {
	rand.New(rand.NewSource(time.Now().UTC().UnixNano()))

	opts := options.NewOptions()
	application := app.NewApp(AppName, AppName,
		app.WithOptions(opts),
		app.WithDescription("conductord is the supervised, event-sourced orchestration engine powering the hivemind realm."),
		app.WithDefaultValidArgs(),
		app.WithRunFunc(run(opts)),
	)
	application.Run()
}

func run(opts *options.Options) app.RunFunc {
	return func(basename string) error {
		logPath := basename + "/" + basename + ".log"
		if err := logger.InitLog(logPath); err != nil {
			return err
		}
		defer logger.FlushLog()

		cfg, err := config.CreateConfigFromOptions(opts)
		if err != nil {
			return err
		}

		return hivemind.Run(cfg)
	}
}
