// Command assetstored runs the asset store as a standalone HTTP daemon:
// it loads configuration (flags, environment, optional config file),
// opens the configured backend and id cache, mounts the built-in
// bin.* actions, and serves the gateway until signaled to stop.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"assetstore.evalgo.org/action"
	"assetstore.evalgo.org/actions"
	"assetstore.evalgo.org/applog"
	"assetstore.evalgo.org/gateway"
	"assetstore.evalgo.org/gateway/identitybridge"
	"assetstore.evalgo.org/permission"
	"assetstore.evalgo.org/persistence"
	"assetstore.evalgo.org/store"
	"assetstore.evalgo.org/storeconfig"
)

func main() {
	root := storeconfig.NewRootCommand(run)
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cfg storeconfig.EnvConfig) error {
	ctx := context.Background()

	boot, err := storeconfig.NewStore(ctx, cfg, func(reg *persistence.Registry) {
		store.RegisterCodecs(reg)
		actions.RegisterCodecs(reg)
	})
	if err != nil {
		return fmt.Errorf("assetstored: %w", err)
	}
	actions.SetModuleTable(boot.Modules)

	if err := mountBuiltins(boot, cfg); err != nil {
		return fmt.Errorf("assetstored: mounting built-in actions: %w", err)
	}

	h := &gateway.Handler{
		Store:    boot.Store,
		Registry: boot.Registry,
		Version:  version(),
	}
	if cfg.JWTSecret != "" {
		h.Bridge = identitybridge.New(cfg.JWTSecret)
	}

	gwCfg := gateway.Config{
		Port:            cfg.Port,
		Debug:           cfg.Debug,
		BodyLimit:       cfg.BodyLimit,
		ReadTimeout:     cfg.ReadTimeout,
		WriteTimeout:    cfg.WriteTimeout,
		ShutdownTimeout: cfg.ShutdownTimeout,
		AllowedOrigins:  cfg.AllowedOrigins,
		RateLimit:       cfg.RateLimit,
	}
	e := gateway.NewEchoServer(gwCfg, h)

	errCh := make(chan error, 1)
	go func() {
		if err := gateway.StartServer(e, gwCfg); err != nil {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("assetstored: server error: %w", err)
	case <-quit:
	}

	if err := boot.Store.Save(ctx); err != nil {
		applog.Base.WithError(err).Warn("failed to persist store state on shutdown")
	}
	return gateway.GracefulShutdown(e, gwCfg)
}

// mountBuiltins stores the actions package's built-ins under "bin.*",
// each with an owner-and-group-executable mode — a gateway call that
// carries any override arguments requires Execute on its target, not
// merely Read, so these must be mounted executable rather than just
// readable. "bin" is created explicitly with Mkdir before anything is
// mounted beneath it: letting the store auto-materialize it as a side
// effect of Store would leave it with zero granted permission bits,
// permanently unreachable even to its own creator.
func mountBuiltins(boot *storeconfig.Bootstrap, cfg storeconfig.EnvConfig) error {
	uc := store.NewUpdateContext(boot.Store, boot.Registry, cfg.RootOwner, cfg.RootGroup)

	if err := boot.Store.Mkdir(uc, "bin", 0755); err != nil {
		return fmt.Errorf("mkdir bin: %w", err)
	}

	builtins := map[string]action.Action{
		"bin.ls":     actions.ListDirectory{},
		"bin.info":   actions.GetAssetInfo{},
		"bin.help":   actions.GetHelp{},
		"bin.call":   actions.Call{},
		"bin.reload": actions.Reload{},
	}

	for path, act := range builtins {
		perm := permission.New(uc.GetUser(), uc.GetGroup())
		if err := perm.Chmod(0755); err != nil {
			return fmt.Errorf("chmod %s: %w", path, err)
		}
		asset := store.NewAsset(act, perm)
		if err := boot.Store.Store(uc, asset, path, 0, false); err != nil {
			return fmt.Errorf("mount %s: %w", path, err)
		}
	}
	return nil
}

func version() string {
	return "dev"
}
