package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/huelink/bridge"
	"github.com/dokzlo13/huelink/disco"
	"github.com/dokzlo13/huelink/internal/config"
	"github.com/dokzlo13/huelink/internal/journal"
	"github.com/dokzlo13/huelink/internal/script"
)

func run(ctx context.Context, cfg *config.Config, args []string) error {
	command, rest := args[0], args[1:]

	switch command {
	case "discover":
		return cmdDiscover(ctx, cfg)
	case "register":
		return cmdRegister(ctx, cfg, rest)
	case "devices", "lights", "scenes", "smart-scenes", "grouped-lights":
		return cmdList(ctx, cfg, command)
	case "rooms", "zones":
		return cmdGroups(ctx, cfg, command, rest)
	case "set-light", "set-group":
		return cmdSetState(ctx, cfg, command, rest)
	case "scene", "smart-scene":
		return cmdRecall(ctx, cfg, command, rest)
	case "events":
		return cmdEvents(ctx, cfg, rest)
	case "run":
		return cmdRun(ctx, cfg, rest)
	default:
		flag.Usage()
		return fmt.Errorf("unknown command %q", command)
	}
}

// connect builds an authenticated client, discovering the bridge when no
// address is configured.
func connect(ctx context.Context, cfg *config.Config) (*bridge.Bridge, error) {
	if cfg.Bridge.AppKey == "" {
		return nil, errors.New("no application key configured, run `huelink register` first")
	}
	unauth, err := locate(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return unauth.WithKey(cfg.Bridge.AppKey), nil
}

func locate(ctx context.Context, cfg *config.Config) (*bridge.UnauthBridge, error) {
	if cfg.Bridge.Address != "" {
		return bridge.New(cfg.Bridge.Address), nil
	}
	log.Debug().Msg("No bridge address configured, discovering")
	return bridge.Discover(ctx)
}

// commandCtx bounds one command by the configured timeout.
func commandCtx(ctx context.Context, cfg *config.Config) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, cfg.Bridge.Timeout.Duration())
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func cmdDiscover(ctx context.Context, cfg *config.Config) error {
	ctx, cancel := commandCtx(ctx, cfg)
	defer cancel()

	found, err := disco.Discover(ctx)
	if err != nil {
		return err
	}
	log.Info().Stringer("ip", found.IP).Str("id", found.ID).Msg("Bridge located")
	return printJSON(found)
}

func cmdRegister(ctx context.Context, cfg *config.Config, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: huelink register <app-name>")
	}
	ctx, cancel := commandCtx(ctx, cfg)
	defer cancel()

	unauth, err := locate(ctx, cfg)
	if err != nil {
		return err
	}

	// The bridge tracks registrations per devicetype, so every run gets a
	// distinct instance suffix.
	devicetype := fmt.Sprintf("%s#%.8s", args[0], uuid.NewString())
	log.Info().Str("devicetype", devicetype).Str("address", unauth.Address).
		Msg("Registering application, press the link button if this fails")

	b, err := unauth.Register(ctx, devicetype)
	if err != nil {
		return err
	}
	log.Info().Msg("Application registered, store the key under bridge.app_key")
	return printJSON(map[string]string{"address": b.Address, "app_key": b.AppKey})
}

func cmdList(ctx context.Context, cfg *config.Config, kind string) error {
	ctx, cancel := commandCtx(ctx, cfg)
	defer cancel()

	b, err := connect(ctx, cfg)
	if err != nil {
		return err
	}

	var items any
	switch kind {
	case "devices":
		items, err = b.GetAllDevices(ctx)
	case "lights":
		items, err = b.GetAllLights(ctx)
	case "scenes":
		items, err = b.GetAllScenes(ctx)
	case "smart-scenes":
		items, err = b.GetAllSmartScenes(ctx)
	case "grouped-lights":
		items, err = b.GetAllGroupedLights(ctx)
	}
	if err != nil {
		return err
	}
	return printJSON(items)
}

func cmdGroups(ctx context.Context, cfg *config.Config, kind string, args []string) error {
	fs := flag.NewFlagSet(kind, flag.ContinueOnError)
	resolve := fs.Bool("resolve", false, "resolve member services down to lights")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx, cancel := commandCtx(ctx, cfg)
	defer cancel()

	b, err := connect(ctx, cfg)
	if err != nil {
		return err
	}

	var items any
	switch {
	case kind == "rooms" && *resolve:
		items, err = b.ResolveRooms(ctx)
	case kind == "rooms":
		items, err = b.GetAllRooms(ctx)
	case kind == "zones" && *resolve:
		items, err = b.ResolveZones(ctx)
	default:
		items, err = b.GetAllZones(ctx)
	}
	if err != nil {
		return err
	}
	return printJSON(items)
}

func cmdSetState(ctx context.Context, cfg *config.Config, kind string, args []string) error {
	fs := flag.NewFlagSet(kind, flag.ContinueOnError)
	on := fs.Bool("on", false, "switch on")
	off := fs.Bool("off", false, "switch off")
	bri := fs.Float64("bri", -1, "brightness percentage (0-100)")
	mirek := fs.Uint("mirek", 0, "color temperature in mirek (153-500)")
	x := fs.Float64("x", -1, "CIE x coordinate")
	y := fs.Float64("y", -1, "CIE y coordinate")
	transition := fs.Uint("transition", 0, "transition time in milliseconds")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("usage: huelink %s <id> [flags]", kind)
	}
	if *on && *off {
		return errors.New("-on and -off are mutually exclusive")
	}

	var cmd bridge.LightCommand
	if *on {
		cmd = cmd.WithOn()
	}
	if *off {
		cmd = cmd.WithOff()
	}
	if *bri >= 0 {
		cmd = cmd.WithBrightness(*bri)
	}
	if *mirek > 0 {
		cmd = cmd.WithMirek(uint16(*mirek))
	}
	if *x >= 0 && *y >= 0 {
		cmd = cmd.WithXY(*x, *y)
	}
	if *transition > 0 {
		cmd = cmd.WithTransitionTime(uint32(*transition))
	}

	ctx, cancel := commandCtx(ctx, cfg)
	defer cancel()

	b, err := connect(ctx, cfg)
	if err != nil {
		return err
	}

	id := fs.Arg(0)
	if kind == "set-group" {
		return b.SetGroupState(ctx, id, cmd)
	}
	return b.SetLightState(ctx, id, cmd)
}

func cmdRecall(ctx context.Context, cfg *config.Config, kind string, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: huelink %s <id>", kind)
	}

	ctx, cancel := commandCtx(ctx, cfg)
	defer cancel()

	b, err := connect(ctx, cfg)
	if err != nil {
		return err
	}

	if kind == "smart-scene" {
		return b.RecallSmartScene(ctx, args[0])
	}
	return b.RecallScene(ctx, args[0])
}

func cmdEvents(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("events", flag.ContinueOnError)
	useJournal := fs.Bool("journal", false, "record events to the sqlite journal")
	if err := fs.Parse(args); err != nil {
		return err
	}

	// The stream runs until interrupted, so no command timeout here.
	b, err := connect(ctx, cfg)
	if err != nil {
		return err
	}

	var jnl *journal.Journal
	if *useJournal {
		jnl, err = journal.Open(cfg.Journal.Path)
		if err != nil {
			return fmt.Errorf("open journal: %w", err)
		}
		defer jnl.Close()
		log.Info().Str("path", cfg.Journal.Path).Msg("Journaling events")
	}

	feed, err := b.Events(ctx)
	if err != nil {
		return err
	}
	log.Info().Str("address", b.Address).Msg("Following event stream")

	for ev := range feed {
		if ev.Err != "" {
			log.Warn().Str("error", ev.Err).Msg("Event stream error")
			continue
		}
		if err := printJSON(ev.Events); err != nil {
			return err
		}
		if jnl != nil {
			if err := jnl.Record(ev.Events); err != nil {
				log.Error().Err(err).Msg("Failed to journal event batch")
			}
		}
	}

	if ctx.Err() != nil {
		log.Info().Msg("Event stream stopped")
		return nil
	}
	return errors.New("event stream closed by bridge")
}

func cmdRun(ctx context.Context, cfg *config.Config, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: huelink run <script.lua>")
	}

	b, err := connect(ctx, cfg)
	if err != nil {
		return err
	}

	rt := script.New(b, cfg.Script.RateLimitRPS)
	log.Info().Str("script", args[0]).Msg("Running script")
	return rt.Run(ctx, args[0])
}
