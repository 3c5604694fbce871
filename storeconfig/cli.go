package storeconfig

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

// NewRootCommand builds the cobra root command for the asset store
// daemon: a persistent --config flag, per-field flags bound to viper
// keys, and a run callback that only reads viper once flags and any
// config file have both been merged in.
//
// run receives the fully resolved EnvConfig and is expected to start (and
// block on) the server; NewRootCommand itself does no I/O beyond argument
// parsing.
func NewRootCommand(run func(EnvConfig) error) *cobra.Command {
	root := &cobra.Command{
		Use:   "assetstored",
		Short: "Permissioned, content-addressable asset store daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(fromViper())
		},
	}

	cobra.OnInitialize(initConfig)

	flags := root.PersistentFlags()
	defaults := DefaultEnvConfig()

	flags.StringVar(&cfgFile, "config", "", "config file (default: $HOME/.assetstored.yaml)")
	flags.Int("port", defaults.Port, "HTTP listen port")
	flags.Bool("debug", defaults.Debug, "enable verbose request logging")
	flags.String("body-limit", defaults.BodyLimit, "maximum request body size (e.g. 1M)")
	flags.StringSlice("allowed-origins", defaults.AllowedOrigins, "CORS allowed origins")
	flags.Float64("rate-limit", defaults.RateLimit, "requests/sec per client, 0 disables limiting")

	flags.String("root-owner", defaults.RootOwner, "owning identity of the store root")
	flags.String("root-group", defaults.RootGroup, "owning group of the store root")
	flags.Int("root-mode", defaults.RootMode, "permission mode of the store root")
	flags.String("module-root", defaults.ModuleRoot, "filesystem root portable module paths resolve against")

	flags.String("jwt-secret", "", "HMAC secret enabling bearer-token identity assertion; empty disables it")

	flags.String("backend", defaults.Backend.Kind, "blob backend: file, bolt, or s3")
	flags.String("backend-file-dir", defaults.Backend.FileDir, "directory for the file backend")
	flags.String("backend-bolt-path", "", "database file for the bolt backend")
	flags.String("backend-s3-endpoint", "", "S3-compatible endpoint URL")
	flags.String("backend-s3-region", "", "S3 region")
	flags.String("backend-s3-bucket", "", "S3 bucket name")
	flags.String("backend-s3-prefix", "", "S3 key prefix")
	flags.String("backend-s3-access-key", "", "S3 access key")
	flags.String("backend-s3-secret-key", "", "S3 secret key")
	flags.Bool("backend-s3-path-style", false, "use path-style S3 addressing")

	flags.String("idcache", defaults.IDCache.Kind, "asset id cache: memory or redis")
	flags.Int64("idcache-start-id", defaults.IDCache.StartID, "starting id for the memory cache")
	flags.String("idcache-redis-url", "", "redis connection URL")
	flags.String("idcache-counter-key", "assetstore:next-id", "redis key for the id counter")
	flags.String("idcache-blob-prefix", "assetstore:id:", "redis key prefix for id->blob mappings")

	flags.String("log-level", defaults.LogLevel, "debug, info, warn, or error")
	flags.String("log-format", defaults.LogFormat, "text or json")

	for _, name := range []string{
		"port", "debug", "body-limit", "allowed-origins", "rate-limit",
		"root-owner", "root-group", "root-mode", "module-root", "jwt-secret",
		"backend", "backend-file-dir", "backend-bolt-path",
		"backend-s3-endpoint", "backend-s3-region", "backend-s3-bucket", "backend-s3-prefix",
		"backend-s3-access-key", "backend-s3-secret-key", "backend-s3-path-style",
		"idcache", "idcache-start-id", "idcache-redis-url", "idcache-counter-key", "idcache-blob-prefix",
		"log-level", "log-format",
	} {
		if err := viper.BindPFlag(name, flags.Lookup(name)); err != nil {
			panic(fmt.Sprintf("storeconfig: binding flag %q: %v", name, err))
		}
	}

	return root
}

// initConfig discovers and loads an optional config file: an explicit
// --config path if given, otherwise a search of $HOME and the working
// directory for ".assetstored.yaml". Environment variables
// (ASSETSTORED_*) always override file values, and flags override both.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(home)
		}
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".assetstored")
	}

	viper.SetEnvPrefix("ASSETSTORED")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "storeconfig: using config file", viper.ConfigFileUsed())
	}
}

// fromViper assembles an EnvConfig from whatever combination of flags,
// environment variables, and config file viper has merged by the time the
// root command runs.
func fromViper() EnvConfig {
	return EnvConfig{
		Port:            viper.GetInt("port"),
		Debug:           viper.GetBool("debug"),
		BodyLimit:       viper.GetString("body-limit"),
		ReadTimeout:     DefaultEnvConfig().ReadTimeout,
		WriteTimeout:    DefaultEnvConfig().WriteTimeout,
		ShutdownTimeout: DefaultEnvConfig().ShutdownTimeout,
		AllowedOrigins:  viper.GetStringSlice("allowed-origins"),
		RateLimit:       viper.GetFloat64("rate-limit"),

		RootOwner:  viper.GetString("root-owner"),
		RootGroup:  viper.GetString("root-group"),
		RootMode:   viper.GetInt("root-mode"),
		ModuleRoot: viper.GetString("module-root"),

		JWTSecret: viper.GetString("jwt-secret"),

		Backend: BackendConfig{
			Kind:           viper.GetString("backend"),
			FileDir:        viper.GetString("backend-file-dir"),
			BoltPath:       viper.GetString("backend-bolt-path"),
			S3Endpoint:     viper.GetString("backend-s3-endpoint"),
			S3Region:       viper.GetString("backend-s3-region"),
			S3Bucket:       viper.GetString("backend-s3-bucket"),
			S3Prefix:       viper.GetString("backend-s3-prefix"),
			S3AccessKey:    viper.GetString("backend-s3-access-key"),
			S3SecretKey:    viper.GetString("backend-s3-secret-key"),
			S3UsePathStyle: viper.GetBool("backend-s3-path-style"),
		},

		IDCache: IDCacheConfig{
			Kind:       viper.GetString("idcache"),
			StartID:    viper.GetInt64("idcache-start-id"),
			RedisURL:   viper.GetString("idcache-redis-url"),
			CounterKey: viper.GetString("idcache-counter-key"),
			BlobPrefix: viper.GetString("idcache-blob-prefix"),
			TTL:        0,
		},

		LogLevel:  viper.GetString("log-level"),
		LogFormat: viper.GetString("log-format"),
	}
}
