package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/spaghettifunk/swapper/engine"
	"github.com/spaghettifunk/swapper/engine/core"
)

func main() {
	configPath := flag.String("config", "config.toml", "path to the TOML configuration file")
	flag.Parse()

	config, err := core.LoadConfig(*configPath)
	if err != nil {
		core.LogFatal("failed to load configuration: %s", err)
	}
	if err := core.SetLogLevel(config.Logging.Level); err != nil {
		core.LogFatal(err.Error())
	}

	// signal context to capture system calls
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	e, err := engine.New(config)
	if err != nil {
		core.LogFatal("failed to create the engine: %s", err)
	}

	if err := e.Initialize(); err != nil {
		core.LogFatal("failed to initialize the engine (%s): %s", core.Classify(err), err)
	}

	runErr := e.Run(ctx)
	_ = e.Shutdown()
	if runErr != nil {
		core.LogFatal("engine stopped (%s): %s", core.Classify(runErr), runErr)
	}
}
