package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/huelink/internal/config"
)

const usage = `usage: huelink [-c config.yaml] <command> [args]

commands:
  discover                     locate a bridge (mDNS, then nUPnP)
  register <app-name>          register an application (press the link button first)
  devices | lights | scenes    list resources
  smart-scenes | grouped-lights
  rooms [-resolve]             list rooms, optionally resolved down to lights
  zones [-resolve]             list zones, optionally resolved down to lights
  set-light <id> [flags]       update one light (-on|-off -bri -mirek -x -y -transition)
  set-group <id> [flags]       update one grouped light
  scene <id>                   recall a scene
  smart-scene <id>             recall a smart scene
  events [-journal]            follow the event stream, optionally journaling to sqlite
  run <script.lua>             execute an automation script
`

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "huelink.yaml", "Path to configuration file")
	flag.StringVar(&configPath, "c", "huelink.yaml", "Path to configuration file (shorthand)")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	setupLogging(cfg.Log.Level, cfg.Log.UseJSON, cfg.Log.Colors)

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, args); err != nil {
		log.Fatal().Err(err).Str("command", args[0]).Msg("Command failed")
	}
}

func setupLogging(level string, useJSON bool, colors bool) {
	zerolog.TimeFieldFormat = time.RFC3339

	if useJSON {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	} else {
		log.Logger = log.Output(zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: "2006-01-02T15:04:05.000Z07:00",
			NoColor:    !colors,
		})
	}

	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}
