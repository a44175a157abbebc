package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"horse.fit/pagetrans/internal/cli"
	"horse.fit/pagetrans/internal/engine"
	"horse.fit/pagetrans/internal/httpapi"
	"horse.fit/pagetrans/internal/reader"
)

func runServe(args []string) int {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	addr := fs.String("addr", "", "Listen address (defaults to HTTP_ADDR)")
	maxDocs := fs.Int("max-documents", 256, "Maximum number of hosted documents")
	readTimeout := fs.Duration("read-timeout", 10*time.Second, "HTTP read timeout")
	writeTimeout := fs.Duration("write-timeout", 60*time.Second, "HTTP write timeout")
	shutdownTimeout := fs.Duration("shutdown-timeout", 10*time.Second, "Graceful shutdown timeout")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if *maxDocs < 0 {
		fmt.Fprintln(os.Stderr, "--max-documents must be >= 0")
		return 2
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rt, err := loadRuntime(ctx, envLoader, os.Stdout, false)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer rt.Close()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	go func() {
		<-sigCh
		cancel()
	}()

	listenAddr := *addr
	if listenAddr == "" {
		listenAddr = rt.cfg.HTTPAddr
	}

	docs := engine.NewRegistry(rt.client, rt.engineOptions(rt.lastTargetLang(ctx)), *maxDocs, rt.logger)
	var runs httpapi.RunStore
	if rt.pool != nil {
		runs = rt.pool
	}

	srv := httpapi.NewServer(docs, rt.client, rt.store, runs, rt.logger, httpapi.Options{
		Addr:              listenAddr,
		ReadTimeout:       *readTimeout,
		WriteTimeout:      *writeTimeout,
		ShutdownTimeout:   *shutdownTimeout,
		AllowedOrigins:    rt.cfg.CORSAllowedOriginsList(),
		DefaultTargetLang: rt.cfg.DefaultTargetLang,
		Fetch:             reader.FetchOptions{Timeout: rt.cfg.ProviderTimeout},
	})

	rt.logger.Info().
		Str("mode", rt.cfg.Mode()).
		Str("provider", rt.client.ProviderName()).
		Bool("history", rt.pool != nil).
		Msg("serve starting")

	if err := srv.Start(ctx); err != nil {
		rt.logger.Error().Err(err).Str("addr", listenAddr).Msg("server failed")
		fmt.Fprintf(os.Stderr, "Server failed: %v\n", err)
		return 1
	}

	return 0
}
