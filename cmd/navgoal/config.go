package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/PhamBao-egn/BAOPHAM/internal/config"
	"github.com/PhamBao-egn/BAOPHAM/internal/doctor"
	"github.com/PhamBao-egn/BAOPHAM/internal/log"
	"github.com/PhamBao-egn/BAOPHAM/internal/rosbridge"
)

func (c *cli) runConfigNoun(args []string) int {
	if len(args) == 0 || isHelpToken(args[0]) {
		fmt.Fprintln(c.errOut, "Usage: navgoal config show|check|hash [--config PATH]")
		if len(args) == 0 {
			return exitFailure
		}
		return exitOK
	}

	switch args[0] {
	case "show":
		return c.runConfigShow(args[1:])
	case "check":
		return c.runConfigCheck(args[1:])
	case "hash":
		return c.runConfigHash(args[1:])
	default:
		fmt.Fprintf(c.errOut, "Unknown config action: %s\n", args[0])
		return exitFailure
	}
}

// runConfigShow prints the effective configuration, defaults included.
func (c *cli) runConfigShow(args []string) int {
	fs := c.newFlagSet("config show")
	configPath := fs.String("config", "", "Path to configuration file or directory")
	if err := fs.Parse(args); err != nil {
		return exitFailure
	}

	cfg, err := config.Resolve(*configPath)
	if err != nil {
		fmt.Fprintf(c.errOut, "Failed to load config: %v\n", err)
		return exitFailure
	}
	data, err := config.Marshal(cfg)
	if err != nil {
		fmt.Fprintf(c.errOut, "%v\n", err)
		return exitFailure
	}

	source := cfg.SourcePath
	if source == "" {
		source = "built-in defaults"
	}
	fmt.Fprintf(c.out, "# source: %s\n", source)
	_, _ = c.out.Write(data)
	return exitOK
}

// runConfigHash records the config file's BLAKE3 hash in .checksums next to it.
func (c *cli) runConfigHash(args []string) int {
	fs := c.newFlagSet("config hash")
	configPath := fs.String("config", "", "Path to configuration file or directory")
	if err := fs.Parse(args); err != nil {
		return exitFailure
	}

	path := *configPath
	if path == "" {
		path = config.Discover()
	}
	if path == "" {
		fmt.Fprintln(c.errOut, "No config file found: pass --config or set "+config.EnvConfigPath)
		return exitFailure
	}

	// Hash whatever is on disk now, even if an older manifest disagrees.
	resolved, err := config.ResolveFile(path)
	if err != nil {
		fmt.Fprintf(c.errOut, "Failed to resolve config: %v\n", err)
		return exitFailure
	}
	hash, err := config.WriteChecksums(resolved)
	if err != nil {
		fmt.Fprintf(c.errOut, "Failed to write checksums: %v\n", err)
		return exitFailure
	}
	fmt.Fprintf(c.out, "Wrote %s\n", filepath.Join(filepath.Dir(resolved), config.ChecksumFile))
	fmt.Fprintf(c.out, "blake3 %s  %s\n", hash, filepath.Base(resolved))
	return exitOK
}

// runConfigCheck validates the configuration and, unless --offline, probes
// the action server through the bridge.
func (c *cli) runConfigCheck(args []string) int {
	fs := c.newFlagSet("config check")
	configPath := fs.String("config", "", "Path to configuration file or directory")
	offline := fs.Bool("offline", false, "Skip the action server probe")
	probeTimeout := fs.Duration("probe-timeout", doctor.DefaultProbeTimeout, "How long to wait for the action server")
	asJSON := fs.Bool("json", false, "Print the report as JSON")
	if err := fs.Parse(args); err != nil {
		return exitFailure
	}

	var result *doctor.Result
	cfg, err := config.Resolve(*configPath)
	if err != nil {
		result = doctor.LoadFailure(err)
	} else {
		var prober doctor.Prober
		if !*offline {
			client := rosbridge.New(rosbridge.Options{
				URL:         cfg.Bridge.URL,
				DialTimeout: cfg.Bridge.DialTimeout,
				Logger:      log.New(cfg.Service.LogLevel, cfg.Service.LogFormat, io.Discard),
			})
			defer func() { _ = client.Close() }()
			prober = client
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		result = doctor.New(cfg, prober).WithProbeTimeout(*probeTimeout).Validate(ctx)
	}

	if *asJSON {
		out, err := doctor.FormatJSON(result)
		if err != nil {
			fmt.Fprintf(c.errOut, "%v\n", err)
			return exitFailure
		}
		fmt.Fprintln(c.out, out)
	} else {
		fmt.Fprint(c.out, doctor.FormatHuman(result))
	}

	if !result.Valid {
		return exitFailure
	}
	return exitOK
}
