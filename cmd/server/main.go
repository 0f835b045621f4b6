package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/ryandielhenn/fencer/internal/config"
	"github.com/ryandielhenn/fencer/internal/hook"
	"github.com/ryandielhenn/fencer/internal/logging"
	"github.com/ryandielhenn/fencer/internal/telemetry"
	"github.com/ryandielhenn/fencer/pkg/election"
	"github.com/ryandielhenn/fencer/pkg/gossip"
	"github.com/ryandielhenn/fencer/pkg/node"
	"github.com/ryandielhenn/fencer/pkg/peer"
	"github.com/ryandielhenn/fencer/pkg/registry"
	"github.com/ryandielhenn/fencer/pkg/state"
)

// Set with -ldflags "-X main.version=... -X main.gitSHA=...".
var (
	version = "dev"
	gitSHA  = "unknown"
)

const shutdownTimeout = 5 * time.Second

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, "fencer:", err)
		os.Exit(2)
	}

	log, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, "fencer:", err)
		os.Exit(2)
	}
	if code := finish(log, run(cfg, log)); code != 0 {
		os.Exit(code)
	}
}

// finish logs a fatal run error and flushes the logger before the process
// exits, returning the exit code.
func finish(log *zap.Logger, err error) int {
	code := 0
	if err != nil {
		log.Error("fencer stopped", zap.Error(err))
		code = 1
	}
	_ = log.Sync()
	return code
}

func run(cfg *config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	telemetry.SetBuildInfo(version, gitSHA)

	// 1. Local state and peer client
	self := cfg.AdvertiseAddr
	store := state.NewStore(self, state.WithLogger(log.Named("state")))
	client := peer.NewClient(self,
		peer.WithProbeTimeout(cfg.ProbeTimeout),
		peer.WithPullTimeout(cfg.PullTimeout),
	)
	log.Info("starting node",
		zap.Stringer("self", self),
		zap.Float64("start_time", store.StartTime()),
		zap.String("version", version))

	// 2. Leader-change hooks
	hookLog := log.Named("hook")
	hooks := []election.Hook{hook.Announce(hookLog)}
	if cfg.HookCommand != "" {
		hooks = append(hooks, hook.Command(cfg.HookCommand, hook.DefaultCommandTimeout, hookLog))
	}
	elector := election.New(store,
		election.WithLogger(log.Named("election")),
		election.WithHook(election.Chain(hooks...)),
	)

	// 3. Seeds, optionally extended from etcd
	var seeds gossip.SeedSource = gossip.StaticSeeds(cfg.Seeds)
	if len(cfg.EtcdEndpoints) > 0 {
		log.Info("creating etcd client", zap.Strings("endpoints", cfg.EtcdEndpoints))
		cli, err := registry.NewClient(cfg.EtcdEndpoints)
		if err != nil {
			return err
		}
		defer cli.Close()

		reg := registry.New(cli, cli, cfg.EtcdPrefix, cfg.EtcdTTL, log.Named("registry"))
		deregister, err := reg.Register(ctx, self)
		if err != nil {
			return err
		}
		defer deregister()
		seeds = gossip.MultiSource{seeds, reg}
	}

	engine := gossip.New(store, client, elector, gossip.Config{
		Seeds:    seeds,
		Interval: cfg.LoopRate,
		Logger:   log.Named("gossip"),
	})

	// 4. HTTP surface
	srv := &http.Server{
		Addr:              cfg.BindAddr(),
		Handler:           node.NewNode(store, engine, log.Named("http")).Routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	serveErr := make(chan error, 1)
	go func() {
		log.Info("listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	// 5. Gossip until signalled
	loopDone := make(chan struct{})
	go func() {
		defer close(loopDone)
		_ = engine.Run(ctx)
	}()

	var err error
	select {
	case <-ctx.Done():
		log.Info("shutting down")
	case err = <-serveErr:
		stop()
	}
	<-loopDone

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if serr := srv.Shutdown(shutdownCtx); serr != nil && err == nil {
		err = serr
	}
	return err
}
