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
	"horse.fit/pagetrans/internal/language"
	"horse.fit/pagetrans/internal/panel"
	"horse.fit/pagetrans/internal/settings"
)

func runTranslate(args []string) int {
	fs := flag.NewFlagSet("translate", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	timeout := fs.Duration("timeout", time.Minute, "Command timeout")
	to := fs.String("to", "", "Target language (defaults to the saved target language)")
	from := fs.String("from", language.Auto, "Source language, or auto")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	text := strings.TrimSpace(strings.Join(fs.Args(), " "))
	if text == "" {
		fmt.Fprintln(os.Stderr, panel.EmptyInputText)
		printTranslateUsage()
		return 2
	}

	source := language.Auto
	if !language.IsAuto(*from) {
		resolved, err := language.Resolve(*from)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Invalid --from: %v\n", err)
			return 2
		}
		source = resolved
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	rt, err := loadRuntime(ctx, envLoader, os.Stderr, false)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer rt.Close()

	target := rt.lastTargetLang(ctx)
	if strings.TrimSpace(*to) != "" {
		saved, err := settings.SaveLastTargetLang(ctx, rt.store, *to)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Invalid --to: %v\n", err)
			return 2
		}
		target = saved
	}

	translated, err := rt.client.Translate(ctx, text, source, target)
	if err != nil {
		rt.logger.Error().Err(err).Str("target_lang", target).Msg("translate failed")
		fmt.Fprintln(os.Stderr, panel.FailedText)
		return 1
	}

	fmt.Println(translated)
	return 0
}

func printTranslateUsage() {
	fmt.Fprintln(os.Stderr, "Usage:")
	fmt.Fprintln(os.Stderr, "  pagetrans translate [--to <lang>] [--from auto] [--env .env] [--timeout 1m] <text...>")
}
