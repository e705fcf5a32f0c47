package cmd

import (
	"context"
	"errors"
	"io/fs"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/spigell/fitscore/internal/ai/gemini"
	"github.com/spigell/fitscore/internal/server"
	"github.com/spigell/fitscore/internal/store"
)

const (
	app       = "fitscore"
	envPrefix = "FITSCORE"
)

type Config struct {
	AI     *AIConfig     `mapstructure:"ai"`
	Store  *StoreConfig  `mapstructure:"store"`
	Server *ServerConfig `mapstructure:"server"`
	Rank   *RankConfig   `mapstructure:"rank"`
}

type AIConfig struct {
	Provider string        `mapstructure:"provider"`
	Gemini   *GeminiConfig `mapstructure:"gemini"`
}

type GeminiConfig struct {
	APIKey       string `mapstructure:"api-key"`
	APIKeyFile   string `mapstructure:"api-key-file"`
	Model        string `mapstructure:"model"`
	MaxLogLength int    `mapstructure:"max-log-length"`
}

type StoreConfig struct {
	Backend  string          `mapstructure:"backend"`
	API      *APIStoreConfig `mapstructure:"api"`
	Postgres *PostgresConfig `mapstructure:"postgres"`
	File     *FileConfig     `mapstructure:"file"`
	Redis    *RedisConfig    `mapstructure:"redis"`
}

type APIStoreConfig struct {
	URL       string `mapstructure:"url"`
	TokenFile string `mapstructure:"token-file"`
	UserAgent string `mapstructure:"user-agent"`
}

type PostgresConfig struct {
	DSN string `mapstructure:"dsn"`
}

type FileConfig struct {
	Path string `mapstructure:"path"`
}

type RedisConfig struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	TTL      time.Duration `mapstructure:"ttl"`
}

type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

type RankConfig struct {
	MinimumFitScore int           `mapstructure:"minimum-fit-score"`
	ExcludeFile     string        `mapstructure:"exclude-file"`
	Delay           time.Duration `mapstructure:"delay"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "fitscore scores how well a product offer fits a CRM contact",
	}
)

// Execute executes the root command. SIGINT and SIGTERM cancel the command context.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.SilenceUsage = true

	setDefaults(viper.GetViper())
	if err := configureEnv(viper.GetViper()); err != nil {
		log.Fatalf("binding environment variables: %v", err)
	}

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is fitscore.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

// setDefaults registers every config key so environment overrides reach Unmarshal.
func setDefaults(v *viper.Viper) {
	v.SetDefault("ai.provider", gemini.ProviderName)
	v.SetDefault("ai.gemini.api-key", "")
	v.SetDefault("ai.gemini.api-key-file", "")
	v.SetDefault("ai.gemini.model", gemini.DefaultModel)
	v.SetDefault("ai.gemini.max-log-length", 200)

	v.SetDefault("store.backend", backendFile)
	v.SetDefault("store.api.url", "")
	v.SetDefault("store.api.token-file", "")
	v.SetDefault("store.api.user-agent", "")
	v.SetDefault("store.postgres.dsn", "")
	v.SetDefault("store.file.path", "fixtures.json")
	v.SetDefault("store.redis.addr", "")
	v.SetDefault("store.redis.password", "")
	v.SetDefault("store.redis.db", 0)
	v.SetDefault("store.redis.ttl", store.DefaultCacheTTL)

	v.SetDefault("server.addr", server.DefaultAddr)

	v.SetDefault("rank.minimum-fit-score", 60)
	v.SetDefault("rank.exclude-file", "")
	v.SetDefault("rank.delay", time.Duration(0))
}

// configureEnv maps keys onto FITSCORE_* variables, e.g. store.redis.addr -> FITSCORE_STORE_REDIS_ADDR.
func configureEnv(v *viper.Viper) error {
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	return v.BindEnv("ai.gemini.model", envPrefix+"_AI_GEMINI_MODEL", "GEMINI_MODEL")
}

func initConfig() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Fatalf("loading .env: %v", err)
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app)
	}

	// A missing default config file is fine, everything has a default or an env override.
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			log.Fatal(err)
		}
	}
}

func getConfig() (*Config, error) {
	return loadConfig(viper.GetViper())
}

func loadConfig(v *viper.Viper) (*Config, error) {
	var config *Config
	err := v.Unmarshal(&config)
	if err != nil {
		return config, err
	}

	return config, nil
}
