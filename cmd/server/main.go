package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/lmittmann/tint"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"gopkg.in/yaml.v3"

	mandukyadb "github.com/nickyhof/MandukyaDB"
)

// Version is set at build time via -ldflags
var Version = "dev"

// Flags are the server options. Values given here override the config file.
type Flags struct {
	Database    string `arg:"" optional:"" default:":memory:" help:"Database file, or :memory:"`
	Port        int    `short:"p" default:"5433" help:"TCP port to listen on"`
	Config      string `short:"c" type:"existingfile" help:"YAML config file"`
	LogLevel    string `name:"log-level" default:"info" enum:"debug,info,warn,error" help:"Log level (debug, info, warn, error)"`
	CacheSize   int    `name:"cache-size" help:"Maximum number of cached query results"`
	TLSCert     string `name:"tls-cert" type:"existingfile" help:"TLS certificate file"`
	TLSKey      string `name:"tls-key" type:"existingfile" help:"TLS key file"`
	JWTSecret   string `name:"jwt-secret" env:"MANDUKYA_JWT_SECRET" help:"Require AUTH JWT tokens signed with this HMAC secret"`
	JWTIssuer   string `name:"jwt-issuer" help:"Expected JWT issuer"`
	JWTAudience string `name:"jwt-audience" help:"Expected JWT audience"`
	Version     bool   `short:"v" help:"Print version and exit"`
}

func main() {
	var flags Flags
	kong.Parse(&flags,
		kong.Name("mandukya-server"),
		kong.Description("MandukyaDB SQL server (one statement per line, JSON responses)"),
		kong.UsageOnError(),
	)

	if flags.Version {
		fmt.Printf("MandukyaDB SQL Server %s\n", Version)
		return
	}

	var ll slog.Level
	if err := ll.UnmarshalText([]byte(flags.LogLevel)); err != nil {
		ll = slog.LevelInfo
	}
	logger := slog.New(tint.NewHandler(colorable.NewColorable(os.Stderr), &tint.Options{
		Level:      ll,
		TimeFormat: "15:04:05.000",
		NoColor:    !isatty.IsTerminal(os.Stderr.Fd()),
	}))
	slog.SetDefault(logger)

	if err := run(flags, logger); err != nil {
		logger.Error("Server failed", "error", err)
		os.Exit(1)
	}
}

func loadConfig(flags Flags) (mandukyadb.Config, error) {
	config := mandukyadb.DefaultConfig()
	if flags.Config != "" {
		data, err := os.ReadFile(flags.Config)
		if err != nil {
			return config, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &config); err != nil {
			return config, fmt.Errorf("failed to parse config %s: %w", flags.Config, err)
		}
	}
	if flags.CacheSize > 0 {
		config.CacheSize = flags.CacheSize
	}
	return config, nil
}

func run(flags Flags, logger *slog.Logger) error {
	config, err := loadConfig(flags)
	if err != nil {
		return err
	}
	config.Logger = logger

	handle, err := mandukyadb.OpenConfig(flags.Database, config)
	if err != nil {
		return err
	}
	defer handle.Close()

	var server *Server
	if flags.JWTSecret != "" {
		server = NewServerWithAuth(handle, &AuthConfig{
			Enabled:   true,
			JWTSecret: flags.JWTSecret,
			Issuer:    flags.JWTIssuer,
			Audience:  flags.JWTAudience,
		}, logger)
	} else {
		server = NewServer(handle, logger)
	}

	addr := fmt.Sprintf(":%d", flags.Port)
	if flags.TLSCert != "" || flags.TLSKey != "" {
		err = server.StartTLS(addr, flags.TLSCert, flags.TLSKey)
	} else {
		err = server.Start(addr)
	}
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	logger.Info("Shutting down")
	server.Stop()
	logger.Info("Server stopped")
	return nil
}
