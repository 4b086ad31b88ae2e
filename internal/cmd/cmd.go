package cmd

import (
	"context"
	"log"
	"os/signal"
	"strings"
	"syscall"
	"time"

	serverconstants "github.com/danilofalcao/chat-relay/internal/constants/server"
	"github.com/danilofalcao/chat-relay/internal/relay"
	"github.com/danilofalcao/chat-relay/internal/server"
	"github.com/danilofalcao/chat-relay/internal/store"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type config struct {
	Port          string `mapstructure:"port"`
	Loglevel      string `mapstructure:"log_level"`
	Timeout       string `mapstructure:"timeout"`
	ModelsFile    string `mapstructure:"models_file"`
	MaxUploadSize int64  `mapstructure:"max_upload_size"`
}

const shutdownGrace = 10 * time.Second

func Run() {
	configPath := pflag.StringP("config", "c", "", "sets the config file location e.g. $HOME/relay-config.yaml")
	pflag.String("port", serverconstants.DefaultPort, "port to listen on")
	pflag.String("log_level", serverconstants.DefaultLogLevel, "one of trace, debug, info, warn, error, fatal")
	pflag.String("models_file", serverconstants.DefaultModelsFile, "path of the saved model configurations")
	pflag.Parse()

	// .env is optional
	if err := godotenv.Load(); err != nil {
		log.Printf("no .env loaded: %s", err.Error())
	}

	cfg, err := loadConfig(*configPath, pflag.CommandLine)
	if err != nil {
		log.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	exitCh := make(chan string, 1)

	svr, err := server.New(ctx, server.Options{
		Port:          cfg.Port,
		Store:         store.NewFileStore(cfg.ModelsFile),
		Relay:         relay.New(relay.Options{}),
		LogLevel:      cfg.Loglevel,
		Timeout:       cfg.Timeout,
		MaxUploadSize: cfg.MaxUploadSize,
		ExitCh:        exitCh,
	})
	if err != nil {
		log.Fatalf("unable to start server %s", err.Error())
	}

	go func() {
		if err := svr.Start(); err != nil {
			exitCh <- err.Error()
		}
	}()

	select {
	case s := <-exitCh:
		log.Fatalf("killed with message %s", s)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := svr.Shutdown(shutdownCtx); err != nil {
			log.Printf("error shutting down: %s", err.Error())
		}
	}
}

// loadConfig layers defaults, an optional YAML file, flags and the environment. The file is only
// required when its path was given explicitly.
func loadConfig(configPath string, flags *pflag.FlagSet) (*config, error) {
	// "#" as delimiter keeps dotted values out of key paths
	v := viper.NewWithOptions(
		viper.KeyDelimiter("#"),
		viper.EnvKeyReplacer(strings.NewReplacer("#", "_")),
	)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	v.SetDefault("port", serverconstants.DefaultPort)
	v.SetDefault("log_level", serverconstants.DefaultLogLevel)
	v.SetDefault("timeout", serverconstants.DefaultTimeout)
	v.SetDefault("models_file", serverconstants.DefaultModelsFile)
	v.SetDefault("max_upload_size", serverconstants.DefaultMaxUploadSize)

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, errors.Wrap(err, "error binding flags")
		}
	}
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configPath != "" || !errors.As(err, &notFound) {
			return nil, errors.Wrap(err, "error reading config file")
		}
	}

	var cfg config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "error unmarshaling config")
	}
	return &cfg, nil
}
