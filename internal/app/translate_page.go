package app

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"horse.fit/pagetrans/internal/cli"
	"horse.fit/pagetrans/internal/dom"
	"horse.fit/pagetrans/internal/engine"
	"horse.fit/pagetrans/internal/overlay"
	"horse.fit/pagetrans/internal/reader"
	"horse.fit/pagetrans/internal/settings"
)

func runTranslatePage(args []string) int {
	fs := flag.NewFlagSet("translate-page", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	timeout := fs.Duration("timeout", 5*time.Minute, "Command timeout")
	to := fs.String("to", "", "Target language (defaults to the saved target language)")
	mode := fs.String("mode", "", "Overlay mode: hover or inline (defaults to OVERLAY_MODE)")
	readerMode := fs.Bool("reader", false, "Reduce the page to its readable article first")
	title := fs.Bool("title", false, "Also translate the document title (inline mode)")
	out := fs.String("out", "", "Write the result to this file instead of stdout")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "translate-page requires one file path or URL")
		printTranslatePageUsage()
		return 2
	}
	src := strings.TrimSpace(fs.Arg(0))

	var overlayMode overlay.Mode
	if strings.TrimSpace(*mode) != "" {
		parsed, err := overlay.ParseMode(*mode)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Invalid --mode: %v\n", err)
			return 2
		}
		overlayMode = parsed
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

	page, err := reader.Load(ctx, src, reader.FetchOptions{})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load page: %v\n", err)
		return 1
	}
	body := page.Body
	if *readerMode {
		if body, err = page.Readable(); err != nil {
			fmt.Fprintf(os.Stderr, "Reader extraction failed: %v\n", err)
			return 1
		}
	}

	doc, err := dom.Parse(bytes.NewReader(body))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to parse page: %v\n", err)
		return 1
	}

	opts := rt.engineOptions(target)
	if overlayMode != "" {
		opts.Mode = overlayMode
	}
	opts.TranslateTitle = *title

	eng, err := engine.New(uuid.NewString(), doc, rt.client, opts, rt.logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to start engine: %v\n", err)
		return 1
	}

	// Cancel the engine's batches once the command deadline passes.
	stop := context.AfterFunc(ctx, eng.Close)
	defer stop()

	if _, err := eng.BeginPageTranslate(); err != nil {
		fmt.Fprintf(os.Stderr, "Page translation rejected: %v\n", err)
		return 1
	}
	eng.Wait()

	stats := eng.LastStats()
	rt.logger.Info().
		Str("src", src).
		Str("target_lang", target).
		Str("state", eng.State().String()).
		Int("units", stats.Total).
		Int("translated", stats.Translated).
		Int("cached", stats.Cached).
		Int("failed", stats.Failed).
		Msg("page translated")

	result, err := eng.HTML()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to render page: %v\n", err)
		return 1
	}
	eng.Close()

	if path := strings.TrimSpace(*out); path != "" {
		if err := os.WriteFile(path, []byte(result), 0o644); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to write output: %v\n", err)
			return 1
		}
		return 0
	}
	fmt.Println(result)
	return 0
}

func printTranslatePageUsage() {
	fmt.Fprintln(os.Stderr, "Usage:")
	fmt.Fprintln(os.Stderr, "  pagetrans translate-page [--to <lang>] [--mode hover|inline] [--reader] [--title] [--out file] [--env .env] <file|url>")
}
