// Package storeconfig is the process bootstrap layer: flag/env/file
// configuration (cobra + viper), backend and id-cache selection, and the
// wiring that turns an EnvConfig into a running store.Store, identity
// registry, and module table. The gateway.Handler is built by the caller
// (cmd/assetstored).
package storeconfig

import (
	"context"
	"errors"
	"fmt"
	"time"

	"assetstore.evalgo.org/applog"
	"assetstore.evalgo.org/backend"
	"assetstore.evalgo.org/backend/boltbackend"
	"assetstore.evalgo.org/backend/filebackend"
	"assetstore.evalgo.org/backend/s3backend"
	"assetstore.evalgo.org/identity"
	"assetstore.evalgo.org/persistence"
	"assetstore.evalgo.org/permission"
	"assetstore.evalgo.org/store"
	"assetstore.evalgo.org/store/idcache"
)

// BackendConfig selects and configures the blob storage driver.
type BackendConfig struct {
	Kind string // "file" (default), "bolt", or "s3"

	FileDir string

	BoltPath string

	S3Endpoint     string
	S3Region       string
	S3Bucket       string
	S3Prefix       string
	S3AccessKey    string
	S3SecretKey    string
	S3UsePathStyle bool
}

// IDCacheConfig selects the asset-id cache: in-process by default, Redis
// for multi-process deployments sharing one backend.
type IDCacheConfig struct {
	Kind       string // "memory" (default) or "redis"
	StartID    int64
	RedisURL   string
	CounterKey string
	BlobPrefix string
	TTL        time.Duration
}

// EnvConfig is the fully resolved process configuration, assembled from
// command-line flags, environment variables, and an optional config file
// by NewRootCommand (see cli.go), in that precedence order: flags win
// over environment, environment wins over the config file.
type EnvConfig struct {
	Port            int
	Debug           bool
	BodyLimit       string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	AllowedOrigins  []string
	RateLimit       float64

	RootOwner string
	RootGroup string
	RootMode  int

	JWTSecret string

	ModuleRoot string // filesystem root portable module paths ("[]/...") resolve against

	Backend BackendConfig
	IDCache IDCacheConfig

	LogLevel  string
	LogFormat string
}

// DefaultEnvConfig returns the same defaults gateway.DefaultConfig does,
// plus the store-specific fields every deployment must still choose
// (root ownership, backend location).
func DefaultEnvConfig() EnvConfig {
	return EnvConfig{
		Port:            8080,
		Debug:           false,
		BodyLimit:       "1M",
		ReadTimeout:     30 * time.Second,
		WriteTimeout:    30 * time.Second,
		ShutdownTimeout: 10 * time.Second,
		AllowedOrigins:  []string{"*"},
		RateLimit:       0,
		RootOwner:       "admin",
		RootGroup:       identity.Wildcard,
		RootMode:        0755,
		ModuleRoot:      ".",
		Backend:         BackendConfig{Kind: "file", FileDir: "./data"},
		IDCache:         IDCacheConfig{Kind: "memory", StartID: 100000},
		LogLevel:        applog.LevelInfo,
		LogFormat:       "text",
	}
}

// OpenBackend constructs the configured backend.Backend driver.
func OpenBackend(ctx context.Context, cfg BackendConfig) (backend.Backend, error) {
	switch cfg.Kind {
	case "", "file":
		return filebackend.New(cfg.FileDir)
	case "bolt":
		return boltbackend.Open(cfg.BoltPath)
	case "s3":
		return s3backend.New(ctx, s3backend.Config{
			Endpoint:     cfg.S3Endpoint,
			Region:       cfg.S3Region,
			Bucket:       cfg.S3Bucket,
			Prefix:       cfg.S3Prefix,
			AccessKey:    cfg.S3AccessKey,
			SecretKey:    cfg.S3SecretKey,
			UsePathStyle: cfg.S3UsePathStyle,
		})
	default:
		return nil, fmt.Errorf("storeconfig: unknown backend kind %q", cfg.Kind)
	}
}

// OpenIDCache constructs the configured idcache.Cache driver.
func OpenIDCache(cfg IDCacheConfig) (idcache.Cache, error) {
	switch cfg.Kind {
	case "", "memory":
		return idcache.NewMemory(cfg.StartID), nil
	case "redis":
		return idcache.NewRedis(cfg.RedisURL, cfg.CounterKey, cfg.BlobPrefix, cfg.TTL)
	default:
		return nil, fmt.Errorf("storeconfig: unknown id-cache kind %q", cfg.Kind)
	}
}

// Bootstrap is everything a running process needs, assembled by
// NewStore: the store itself, the identity registry rooted on
// cfg.RootOwner/RootGroup, and the module table hot-reload actions runs
// against.
type Bootstrap struct {
	Store    *store.Store
	Registry *identity.Registry
	Modules  *persistence.ModuleTable
}

// NewStore wires a backend, a persistence registry (with codecCfg
// applied), an id cache, and a store.Store rooted at cfg.RootOwner with
// cfg.RootMode, then loads any persisted state.
func NewStore(ctx context.Context, cfg EnvConfig, codecCfg func(*persistence.Registry)) (*Bootstrap, error) {
	applog.Configure(applog.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})

	be, err := OpenBackend(ctx, cfg.Backend)
	if err != nil {
		return nil, fmt.Errorf("storeconfig: opening backend: %w", err)
	}

	ids, err := OpenIDCache(cfg.IDCache)
	if err != nil {
		return nil, fmt.Errorf("storeconfig: opening id cache: %w", err)
	}

	persist := persistence.NewRegistry()
	if codecCfg != nil {
		codecCfg(persist)
	}

	reg := identity.NewRegistry()
	if _, err := reg.Create(cfg.RootOwner); err != nil && !errors.Is(err, identity.ErrAlreadyExists) {
		return nil, fmt.Errorf("storeconfig: creating root owner identity: %w", err)
	}
	if cfg.RootGroup != identity.Wildcard && cfg.RootGroup != cfg.RootOwner {
		if _, err := reg.Create(cfg.RootGroup); err != nil && !errors.Is(err, identity.ErrAlreadyExists) {
			return nil, fmt.Errorf("storeconfig: creating root group identity: %w", err)
		}
	}

	st := store.New(be, persist, ids, cfg.RootOwner, cfg.RootGroup)
	rootPerm := permission.New(cfg.RootOwner, cfg.RootGroup)
	if err := rootPerm.Chmod(cfg.RootMode); err != nil {
		return nil, fmt.Errorf("storeconfig: invalid root mode %o: %w", cfg.RootMode, err)
	}
	st.SetRootPermissions(rootPerm)

	if err := st.Load(ctx); err != nil {
		applog.Base.WithError(err).Warn("no prior store state loaded, starting empty")
	}

	resolver := persistence.NewPortablePathResolver(cfg.ModuleRoot)
	modules := persistence.NewModuleTable(resolver)

	return &Bootstrap{Store: st, Registry: reg, Modules: modules}, nil
}
