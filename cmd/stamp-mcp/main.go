package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ironsheep/stamp-tools-mcp/internal/cache"
	"github.com/ironsheep/stamp-tools-mcp/internal/config"
	"github.com/ironsheep/stamp-tools-mcp/internal/httpapi"
	"github.com/ironsheep/stamp-tools-mcp/internal/imaging"
	"github.com/ironsheep/stamp-tools-mcp/internal/logging"
	"github.com/ironsheep/stamp-tools-mcp/internal/server"
	"github.com/ironsheep/stamp-tools-mcp/internal/stamp"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	args := os.Args[1:]
	if len(args) > 0 {
		switch args[0] {
		case "--version", "-v", "version":
			fmt.Printf("stamp-tools-mcp %s\n", Version)
			fmt.Printf("  Build time: %s\n", BuildTime)
			fmt.Printf("  Git commit: %s\n", GitCommit)
			return
		case "--help", "-h", "help":
			printHelp()
			return
		}
	}

	var err error
	switch {
	case len(args) > 0 && args[0] == "serve":
		err = runServe(args[1:])
	case len(args) > 0 && args[0] == "extract":
		err = runExtract(args[1:])
	default:
		err = runMCP(args)
	}
	if err != nil && !errors.Is(err, flag.ErrHelp) {
		fmt.Fprintf(os.Stderr, "stamp-mcp: %v\n", err)
		os.Exit(1)
	}
}

func printHelp() {
	fmt.Println("stamp-tools-mcp - locate and extract colored stamps from document images")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  stamp-mcp [-config file]              MCP server over stdin/stdout")
	fmt.Println("  stamp-mcp serve [-config file]        HTTP API")
	fmt.Println("  stamp-mcp extract [flags] <image> <outdir>")
	fmt.Println()
	fmt.Println("Extract flags:")
	fmt.Println("  -color #ff0000           Stamp color to search for")
	fmt.Println("  -fill #rrggbb            Output color for flat-fill (default: stamp color)")
	fmt.Println("  -mode flat-fill          flat-fill or pass-through")
	fmt.Println("  -strategy multi-circle   multi-circle or single-blob")
	fmt.Println()
	fmt.Println("Options:")
	fmt.Println("  --version, -v    Print version information")
	fmt.Println("  --help, -h       Print this help message")
	fmt.Println()
	fmt.Println("Environment variables:")
	fmt.Println("  STAMP_MCP_CONFIG=path               Configuration file (YAML)")
	fmt.Println("  STAMP_MCP_SERVER_LOG_LEVEL=debug    Log level")
	fmt.Println("  STAMP_MCP_<SECTION>_<KEY>=value     Override any configuration key")
}

// setup loads the configuration and builds the logger.
func setup(path string) (*config.Config, *zap.Logger, error) {
	if path == "" {
		path = os.Getenv("STAMP_MCP_CONFIG")
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, nil, err
	}
	logger, err := logging.New(cfg.Server.Mode, cfg.Server.LogLevel)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

func runMCP(args []string) error {
	fs := flag.NewFlagSet("stamp-mcp", flag.ContinueOnError)
	configPath := fs.String("config", "", "configuration file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, logger, err := setup(*configPath)
	if err != nil {
		return err
	}
	defer logging.Sync(logger)

	opts, err := cfg.Stamp.Options()
	if err != nil {
		return err
	}
	target, err := cfg.Stamp.TargetColor()
	if err != nil {
		return err
	}

	logger.Info("starting MCP server",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
		zap.String("git_commit", GitCommit),
	)

	srv, err := server.New(server.Config{Options: opts, DefaultColor: target, Version: Version}, logger)
	if err != nil {
		return err
	}
	return srv.Run()
}

func runServe(args []string) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	configPath := fs.String("config", "", "configuration file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, logger, err := setup(*configPath)
	if err != nil {
		return err
	}
	defer logging.Sync(logger)

	// Fail at startup rather than on the first request.
	if _, err := cfg.Stamp.Options(); err != nil {
		return err
	}

	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	results := cache.New(ctx, cfg.Redis, logger)
	defer results.Close()

	router := httpapi.NewRouter(cfg, results, logger, httpapi.BuildInfo{
		Version:   Version,
		BuildTime: BuildTime,
		GitCommit: GitCommit,
	})

	httpServer := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting HTTP server",
			zap.String("addr", cfg.Server.Addr),
			zap.String("version", Version),
		)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

func runExtract(args []string) error {
	fs := flag.NewFlagSet("extract", flag.ContinueOnError)
	configPath := fs.String("config", "", "configuration file")
	colorHex := fs.String("color", "", "stamp color to search for (default from config)")
	fillHex := fs.String("fill", "", "flat-fill output color (default: stamp color)")
	mode := fs.String("mode", "", "flat-fill or pass-through (default from config)")
	strategy := fs.String("strategy", "", "multi-circle or single-blob (default from config)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 2 {
		return errors.New("usage: stamp-mcp extract [flags] <image> <outdir>")
	}
	imagePath, outDir := fs.Arg(0), fs.Arg(1)

	cfg, logger, err := setup(*configPath)
	if err != nil {
		return err
	}
	defer logging.Sync(logger)

	if *colorHex != "" {
		cfg.Stamp.DefaultColor = *colorHex
	}
	if *fillHex != "" {
		cfg.Stamp.FillColor = *fillHex
	}
	if *mode != "" {
		cfg.Stamp.Mode = *mode
	}
	if *strategy != "" {
		cfg.Stamp.Strategy = *strategy
	}

	target, err := cfg.Stamp.TargetColor()
	if err != nil {
		return err
	}
	opts, err := cfg.Stamp.Options()
	if err != nil {
		return err
	}

	pipeline, err := stamp.New(opts, logger)
	if err != nil {
		return err
	}

	data, err := os.ReadFile(imagePath)
	if err != nil {
		return fmt.Errorf("failed to read image: %w", err)
	}
	img, _, err := imaging.DecodeBytes(data)
	if err != nil {
		return err
	}

	res, err := pipeline.Extract(img, target, "")
	if err != nil {
		return err
	}
	if len(res.Stamps) == 0 {
		logger.Warn("no stamps found", zap.String("image", imagePath), zap.String("color", target.Hex()))
		return nil
	}

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	for i, st := range res.Stamps {
		out := filepath.Join(outDir, fmt.Sprintf("stamp_%d.png", i+1))
		if err := imaging.SavePNG(st.Image, out); err != nil {
			return err
		}
		fmt.Println(out)
	}
	return nil
}
