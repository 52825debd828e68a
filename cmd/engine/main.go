package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"employers-engine/internal/config"
	"employers-engine/internal/httpapi"
	"employers-engine/internal/scheduler"
)

func main() {
	var (
		cfgPath = flag.String("config", "", "config file (default <data-dir>/config.yml)")
		dataDir = flag.String("data-dir", "", "data directory (default $EMPLOYERS_DATA_DIR or .)")
		once    = flag.Bool("once", false, "fetch employers once, print the region HTML and exit")
		verbose = flag.Bool("v", false, "debug logging")
	)
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	if err := run(*cfgPath, *dataDir, *once, os.Stdout); err != nil {
		slog.Error("engine stopped", "err", err)
		os.Exit(1)
	}
}

func run(cfgPath, dataDir string, once bool, stdout io.Writer) error {
	if dataDir == "" {
		dataDir = os.Getenv("EMPLOYERS_DATA_DIR")
	}
	if dataDir == "" {
		dataDir = "."
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return err
	}

	userCfgPath := cfgPath
	if userCfgPath == "" {
		p, err := config.EnsureUserConfig(dataDir, filepath.Join("config", "config.yml"))
		if err != nil {
			return fmt.Errorf("config bootstrap failed: %w", err)
		}
		userCfgPath = p
	}

	raw, err := config.Load(userCfgPath)
	if err != nil {
		return fmt.Errorf("config load failed (%s): %w", userCfgPath, err)
	}
	cfg, vr := config.NormalizeAndValidate(raw)
	for _, w := range vr.Warnings {
		slog.Warn("config", "warning", w)
	}
	if !vr.OK() {
		return fmt.Errorf("config %s invalid:\n- %s", userCfgPath, strings.Join(vr.Errors, "\n- "))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	eng, err := newEngine(cfg, dataDir, slog.Default())
	if err != nil {
		return err
	}
	defer eng.close()

	if once {
		return runOnce(ctx, eng, stdout)
	}

	var cfgVal atomic.Value
	cfgVal.Store(cfg)
	return serve(ctx, eng, &cfgVal, userCfgPath, dataDir)
}

func runOnce(ctx context.Context, eng *engine, stdout io.Writer) error {
	if err := eng.loader.Load(ctx); err != nil {
		return err
	}
	_, err := fmt.Fprintln(stdout, eng.region.HTML())
	return err
}

func serve(parent context.Context, eng *engine, cfgVal *atomic.Value, userCfgPath, dataDir string) error {
	cfg := cfgVal.Load().(config.Config)

	token, err := randomToken(32)
	if err != nil {
		return err
	}

	// The token goes to an owner-only file, never to the log.
	tokenPath, err := writeTokenFile(dataDir, token)
	if err != nil {
		return err
	}
	defer os.Remove(tokenPath)

	mux := eng.handler(cfgVal, userCfgPath)
	srv := &http.Server{
		Handler:           httpapi.Chain(mux, httpapi.RequestID, httpapi.AccessLog, httpapi.Recover, httpapi.Cors),
		ReadHeaderTimeout: 5 * time.Second,
	}
	mux.HandleFunc("/shutdown", shutdownHandler(token, srv))

	addr := fmt.Sprintf("127.0.0.1:%d", cfg.App.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	slog.Info("engine listening",
		"addr", "http://"+addr,
		"employers_url", cfg.EndpointURL(),
		"policy", cfg.Loader.Policy,
		"page_file", sinkPath(eng),
		"shutdown_token_file", tokenPath,
	)

	ctx, cancel := context.WithCancel(parent)
	defer cancel()
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer cancel()
		if err := srv.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		// Drop SSE subscribers first so Shutdown is not held open by them.
		eng.hub.Close()
		sctx, scancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer scancel()
		if err := srv.Shutdown(sctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	if every := cfg.RefreshInterval(); every > 0 {
		g.Go(func() error {
			scheduler.Every(ctx, every, "refresh", func(context.Context) error {
				eng.trigger.Fire()
				return nil
			})
			return nil
		})
	}

	return g.Wait()
}

func sinkPath(eng *engine) string {
	if eng.sink == nil {
		return ""
	}
	return eng.sink.Path
}
