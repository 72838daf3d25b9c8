// ABOUTME: Command-line tool for one-shot Atlas processor operations
// ABOUTME: Resolves devices from config and runs get/set/volume/scene/watch commands

package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/harper/atlas-control/internal/atlas"
	"github.com/harper/atlas-control/internal/config"
	"github.com/harper/atlas-control/internal/jsonrpc"
	"github.com/harper/atlas-control/internal/logger"
	"github.com/harper/atlas-control/internal/registry"
)

const usage = `usage: atlasctl [flags] <command> [args]

commands:
  devices                      list configured devices
  get <param> [val|pct|str]    read a parameter
  set <param> <value> [fmt]    write a parameter
  volume <zone> <dB>           set zone gain in dB
  volume-pct <zone> <pct>      set zone gain as 0-100 percent
  bump <zone> <delta>          adjust zone gain by a relative dB delta
  mute <zone> on|off           mute or unmute a zone
  source-mute <src> on|off     mute or unmute an input source
  source <zone> <idx|none>     route a source to a zone
  scene <idx>                  recall a stored scene
  message <idx>                play a stored message
  group <idx> on|off           activate or deactivate a group
  name <zone>                  read a zone's display name
  watch <param> [param...]     subscribe and print updates until interrupted
`

func main() {
	// Optional .env for site-local overrides; absence is fine.
	_ = godotenv.Load()

	configPath := flag.String("config", "", "path to config file")
	deviceName := flag.String("device", "", "configured device name")
	host := flag.String("host", "", "device host (overrides -device)")
	port := flag.Int("port", 0, "device TCP port (default 5321)")
	format := flag.String("fmt", "val", "value format for watch: val, pct, or str")
	verbose := flag.Bool("verbose", false, "enable debug logging")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	logger.SetVerbose(*verbose)

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if *verbose || cfg.Logging.Verbose {
		logger.SetVerbose(true)
	}

	reg, err := registry.New(cfg.RegistryDevices())
	if err != nil {
		log.Fatalf("invalid device config: %v", err)
	}

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(2)
	}

	if args[0] == "devices" {
		for _, d := range reg.Devices() {
			fmt.Printf("%-16s %s:%d model=%s\n", d.Name, d.Host, d.TCPPort, d.Model)
		}
		return
	}

	dev, err := resolveDevice(reg, *deviceName, *host, *port)
	if err != nil {
		log.Fatalf("%v", err)
	}

	client := atlas.NewClient(dev.Host, dev.TCPPort, atlas.Options{
		ConnectTimeout: cfg.ConnectTimeout(),
		RequestTimeout: cfg.RequestTimeout(),
	})

	ctx := context.Background()
	if err := client.Connect(ctx); err != nil {
		log.Fatalf("connect: %v", err)
	}
	defer client.Disconnect()

	if err := run(ctx, client, dev, jsonrpc.Format(*format), args); err != nil {
		log.Fatalf("%s: %v", args[0], err)
	}
}

func resolveDevice(reg *registry.Registry, name, host string, port int) (registry.Device, error) {
	if host != "" {
		return registry.Device{Name: host, Host: host, TCPPort: port}, nil
	}
	if name == "" {
		return registry.Device{}, fmt.Errorf("either -device or -host is required")
	}
	dev, ok := reg.Lookup(name)
	if !ok {
		return registry.Device{}, fmt.Errorf("unknown device %q", name)
	}
	return dev, nil
}

//nolint:gocognit,funlen // flat command dispatch
func run(ctx context.Context, client *atlas.Client, dev registry.Device, format jsonrpc.Format, args []string) error {
	cmd, rest := args[0], args[1:]

	switch cmd {
	case "get":
		if len(rest) < 1 {
			return fmt.Errorf("usage: get <param> [val|pct|str]")
		}
		f := jsonrpc.FormatVal
		if len(rest) > 1 {
			f = jsonrpc.Format(rest[1])
		}
		if !f.Valid() {
			return fmt.Errorf("invalid format %q", rest[1])
		}
		v, err := client.GetParameter(ctx, rest[0], f)
		if err != nil {
			return err
		}
		printValue(rest[0], v)
		return nil

	case "set":
		if len(rest) < 2 {
			return fmt.Errorf("usage: set <param> <value> [val|pct|str]")
		}
		f := jsonrpc.FormatVal
		if len(rest) > 2 {
			f = jsonrpc.Format(rest[2])
		}
		params, err := buildParams(rest[0], rest[1], f)
		if err != nil {
			return err
		}
		return client.SetParameter(ctx, params)

	case "volume", "volume-pct", "bump":
		zone, level, err := zoneAndNumber(rest, cmd)
		if err != nil {
			return err
		}
		if err := dev.ValidateZone(zone); err != nil {
			return err
		}
		switch cmd {
		case "volume":
			return client.SetZoneVolume(ctx, zone, level)
		case "volume-pct":
			return client.SetZoneVolumePct(ctx, zone, level)
		default:
			return client.BumpZoneVolume(ctx, zone, level)
		}

	case "mute", "group", "source-mute":
		idx, on, err := indexAndSwitch(rest, cmd)
		if err != nil {
			return err
		}
		switch cmd {
		case "mute":
			if err := dev.ValidateZone(idx); err != nil {
				return err
			}
			return client.SetZoneMute(ctx, idx, on)
		case "source-mute":
			if err := dev.ValidateSource(idx); err != nil {
				return err
			}
			return client.SetSourceMute(ctx, idx, on)
		default:
			return client.SetGroupActive(ctx, idx, on)
		}

	case "source":
		if len(rest) != 2 {
			return fmt.Errorf("usage: source <zone> <idx|none>")
		}
		zone, err := strconv.Atoi(rest[0])
		if err != nil {
			return fmt.Errorf("invalid zone %q", rest[0])
		}
		if err := dev.ValidateZone(zone); err != nil {
			return err
		}
		source := atlas.NoSource
		if rest[1] != "none" {
			if source, err = strconv.Atoi(rest[1]); err != nil {
				return fmt.Errorf("invalid source %q", rest[1])
			}
			if err := dev.ValidateSource(source); err != nil {
				return err
			}
		}
		return client.SetZoneSource(ctx, zone, source)

	case "scene", "message":
		if len(rest) != 1 {
			return fmt.Errorf("usage: %s <idx>", cmd)
		}
		idx, err := strconv.Atoi(rest[0])
		if err != nil || idx < 0 {
			return fmt.Errorf("invalid index %q", rest[0])
		}
		if cmd == "scene" {
			return client.RecallScene(ctx, idx)
		}
		return client.PlayMessage(ctx, idx)

	case "name":
		if len(rest) != 1 {
			return fmt.Errorf("usage: name <zone>")
		}
		zone, err := strconv.Atoi(rest[0])
		if err != nil {
			return fmt.Errorf("invalid zone %q", rest[0])
		}
		name, err := client.ZoneName(ctx, zone)
		if err != nil {
			return err
		}
		fmt.Println(name)
		return nil

	case "watch":
		if len(rest) == 0 {
			return fmt.Errorf("usage: watch <param> [param...]")
		}
		return watch(ctx, client, rest, format)

	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func watch(ctx context.Context, client *atlas.Client, params []string, format jsonrpc.Format) error {
	if !format.Valid() {
		return fmt.Errorf("invalid format %q", format)
	}
	for _, p := range params {
		if _, err := client.Subscribe(ctx, p, format, func(param string, value interface{}, _ jsonrpc.Params) {
			fmt.Printf("%s = %v\n", param, value)
		}); err != nil {
			return err
		}
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig
	return nil
}

func buildParams(param, value string, f jsonrpc.Format) (jsonrpc.Params, error) {
	switch f {
	case jsonrpc.FormatStr:
		return jsonrpc.StrParams(param, value), nil
	case jsonrpc.FormatVal, jsonrpc.FormatPct:
		n, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return jsonrpc.Params{}, fmt.Errorf("invalid numeric value %q", value)
		}
		if f == jsonrpc.FormatPct {
			return jsonrpc.PctParams(param, n), nil
		}
		return jsonrpc.ValParams(param, n), nil
	default:
		return jsonrpc.Params{}, fmt.Errorf("invalid format %q", f)
	}
}

func zoneAndNumber(rest []string, cmd string) (int, float64, error) {
	if len(rest) != 2 {
		return 0, 0, fmt.Errorf("usage: %s <zone> <number>", cmd)
	}
	zone, err := strconv.Atoi(rest[0])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid zone %q", rest[0])
	}
	n, err := strconv.ParseFloat(rest[1], 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid number %q", rest[1])
	}
	return zone, n, nil
}

func indexAndSwitch(rest []string, cmd string) (int, bool, error) {
	if len(rest) != 2 {
		return 0, false, fmt.Errorf("usage: %s <idx> on|off", cmd)
	}
	idx, err := strconv.Atoi(rest[0])
	if err != nil {
		return 0, false, fmt.Errorf("invalid index %q", rest[0])
	}
	switch rest[1] {
	case "on":
		return idx, true, nil
	case "off":
		return idx, false, nil
	default:
		return 0, false, fmt.Errorf("expected on or off, got %q", rest[1])
	}
}

func printValue(param string, v atlas.Value) {
	switch v.Format {
	case jsonrpc.FormatStr:
		fmt.Printf("%s = %s\n", param, v.Str)
	case "":
		fmt.Printf("%s = %s\n", param, string(v.Raw))
	default:
		fmt.Printf("%s = %g\n", param, v.Num)
	}
}
