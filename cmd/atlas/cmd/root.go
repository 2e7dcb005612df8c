package cmd

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:   "atlas",
	Short: "Distribox image registry CLI",
	Long: `Publish qcow2 images and their metadata sidecars to the distribox
registry bucket, list what is published and remove images.`,
	SilenceUsage: true,
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()
	flags.String("config", "", "config file (default: ~/.config/atlas/config.yaml)")
	flags.String("bucket", "", "registry bucket (env: DISTRIBOX_BUCKET_REGISTRY)")
	flags.String("backend", "", "object store backend: s3, oci or file")
	flags.String("log-level", "", "log level: debug, info, warn, error")
	flags.Int("concurrency", 0, "images processed in parallel during a directory sync")
	flags.String("metrics-textfile", "", "write Prometheus metrics to this file after the command")

	viper.BindPFlag("bucket_registry", flags.Lookup("bucket"))
	viper.BindPFlag("backend", flags.Lookup("backend"))
	viper.BindPFlag("log_level", flags.Lookup("log-level"))
	viper.BindPFlag("concurrency", flags.Lookup("concurrency"))
	viper.BindPFlag("metrics_textfile", flags.Lookup("metrics-textfile"))
}

func initConfig() {
	// A missing .env is normal.
	_ = godotenv.Load()

	if cfg := rootCmd.PersistentFlags().Lookup("config").Value.String(); cfg != "" {
		viper.SetConfigFile(cfg)
	} else {
		viper.AddConfigPath(configDir())
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	bindEnv(viper.GetViper())
	setDefaults(viper.GetViper())

	err := viper.ReadInConfig()

	setupLogging(viper.GetString("log_level"))

	var notFound viper.ConfigFileNotFoundError
	if err != nil && !errors.As(err, &notFound) {
		log.Warn().Err(err).Msg("Failed to read config file")
	}
}

// bindEnv maps every key to DISTRIBOX_<KEY>, nested keys joined with "_"
// (s3.endpoint is DISTRIBOX_S3_ENDPOINT).
func bindEnv(v *viper.Viper) {
	v.SetEnvPrefix("DISTRIBOX")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

func setupLogging(level string) {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		if level != "" {
			log.Warn().Str("invalid_level", level).Msg("Invalid log level, using info")
		}
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
}

func configDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "atlas")
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".config", "atlas")
	}
	return ".atlas"
}
