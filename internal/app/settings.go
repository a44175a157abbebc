package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"horse.fit/pagetrans/internal/cli"
	"horse.fit/pagetrans/internal/settings"
)

func runSettings(args []string) int {
	fs := flag.NewFlagSet("settings", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	timeout := fs.Duration("timeout", 30*time.Second, "Command timeout")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	action := strings.ToLower(strings.TrimSpace(fs.Arg(0)))
	switch {
	case action == "" || action == "get":
		if fs.NArg() > 1 {
			printSettingsUsage()
			return 2
		}
	case action == "set":
		if fs.NArg() != 2 {
			fmt.Fprintln(os.Stderr, "settings set requires one language code")
			printSettingsUsage()
			return 2
		}
	default:
		fmt.Fprintf(os.Stderr, "Unknown settings action: %s\n\n", fs.Arg(0))
		printSettingsUsage()
		return 2
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	rt, err := loadRuntime(ctx, envLoader, os.Stderr, false)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer rt.Close()

	if rt.pool == nil {
		rt.logger.Warn().Msg("DATABASE_URL is not set; settings are not persisted between runs")
	}

	if action == "set" {
		saved, err := settings.SaveLastTargetLang(ctx, rt.store, fs.Arg(1))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to save setting: %v\n", err)
			return 1
		}
		fmt.Printf("%s=%s\n", settings.KeyLastTargetLang, saved)
		return 0
	}

	fmt.Printf("%s=%s\n", settings.KeyLastTargetLang, rt.lastTargetLang(ctx))
	return 0
}

func printSettingsUsage() {
	fmt.Fprintln(os.Stderr, "Usage:")
	fmt.Fprintln(os.Stderr, "  pagetrans settings [get] [--env .env]")
	fmt.Fprintln(os.Stderr, "  pagetrans settings set <lang> [--env .env]")
}
