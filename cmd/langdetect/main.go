package main

import (
	"context"
	stderrors "errors"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"github.com/devrev/langdetect/internal/cli"
	"github.com/devrev/langdetect/internal/config"
	"github.com/devrev/langdetect/internal/corpus"
	"github.com/devrev/langdetect/internal/handler"
	"github.com/devrev/langdetect/internal/health"
	"github.com/devrev/langdetect/internal/metrics"
	"github.com/devrev/langdetect/internal/server"
	"github.com/devrev/langdetect/internal/service"
)

type options struct {
	configPath  string
	corpusPath  string
	queryPath   string
	text        string
	all         bool
	serve       bool
	interactive bool
}

func main() {
	var opts options
	flag.StringVar(&opts.configPath, "config", "", "path to config file (defaults to $CONFIG_PATH)")
	flag.StringVar(&opts.corpusPath, "corpus", "", "labeled training corpus, one <text>@<label> per line")
	flag.StringVar(&opts.queryPath, "query", "", "file whose language should be detected")
	flag.StringVar(&opts.text, "text", "", "text whose language should be detected")
	flag.BoolVar(&opts.all, "all", false, "print every language with its distance")
	flag.BoolVar(&opts.serve, "serve", false, "serve the HTTP and gRPC APIs")
	flag.BoolVar(&opts.interactive, "interactive", false, "run the interactive menu")
	flag.Parse()

	if opts.configPath == "" {
		opts.configPath = os.Getenv("CONFIG_PATH")
	}

	cfg, err := config.LoadConfig(opts.configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if opts.corpusPath == "" {
		opts.corpusPath = cfg.Pipeline.CorpusPath
	}

	logger, err := initLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch {
	case opts.serve:
		err = serve(ctx, cfg, opts, logger)
	case opts.interactive:
		err = interactive(ctx, cfg, logger)
	default:
		err = detect(ctx, cfg, opts, logger)
	}

	if err != nil {
		logger.Error("Detector failed", zap.Error(err))
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// detect trains from the corpus and prints the language of one query
func detect(ctx context.Context, cfg *config.Config, opts options, logger *zap.Logger) error {
	if opts.corpusPath == "" {
		return stderrors.New("-corpus is required")
	}
	if (opts.queryPath == "") == (opts.text == "") {
		return stderrors.New("exactly one of -query or -text is required")
	}

	detector, err := service.NewDetector(cfg, nil, nil, logger)
	if err != nil {
		return err
	}

	query := opts.text
	if opts.queryPath != "" {
		query, err = corpus.ReadQuery(opts.queryPath, int64(cfg.Detector.MaxQueryBytes))
		if err != nil {
			return err
		}
	}

	if _, err := detector.TrainFile(ctx, opts.corpusPath); err != nil {
		return err
	}

	if opts.all {
		ranking, err := detector.IdentifyAll(ctx, query)
		if err != nil {
			return err
		}
		for _, d := range ranking {
			fmt.Printf("%s\t%d\n", d.Language, d.Distance)
		}
		return nil
	}

	lang, err := detector.Identify(ctx, query)
	if err != nil {
		return err
	}
	fmt.Printf("The text appears to be written in %s.\n", lang)
	return nil
}

// interactive runs the console menu over stdin and stdout
func interactive(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	detector, err := service.NewDetector(cfg, nil, nil, logger)
	if err != nil {
		return err
	}

	menu := cli.NewMenu(detector, os.Stdin, os.Stdout, cli.MenuConfig{
		MaxQueryBytes: int64(cfg.Detector.MaxQueryBytes),
	}, logger)

	err = menu.Run(ctx)
	if stderrors.Is(err, cli.ErrInputClosed) {
		return nil
	}
	return err
}

// serve starts the HTTP and gRPC APIs, trains from the corpus in the
// background and stops on SIGINT or SIGTERM.
func serve(ctx context.Context, cfg *config.Config, opts options, logger *zap.Logger) error {
	logger = logger.With(zap.String("instance_id", cfg.Server.InstanceID))

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.NewMetrics(cfg.Server.InstanceID, reg)

	healthChecker := health.NewHealthChecker(&health.HealthCheckConfig{
		InstanceID: cfg.Server.InstanceID,
	}, logger.Named("health"))

	detector, err := service.NewDetector(cfg, m, healthChecker, logger.Named("detector"))
	if err != nil {
		return err
	}

	httpServer := server.NewServer(cfg, detector, healthChecker, m, reg, logger.Named("http"))
	grpcServer, grpcHealth := handler.NewGRPCServer(
		handler.NewDetectorHandler(detector, logger.Named("grpc")), m, logger.Named("grpc"))

	grpcAddr := net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.GRPCPort))
	listener, err := net.Listen("tcp", grpcAddr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", grpcAddr, err)
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		healthChecker.Start(gctx)
		return nil
	})
	g.Go(httpServer.Start)
	g.Go(func() error {
		logger.Info("Starting gRPC server", zap.String("addr", grpcAddr))
		return grpcServer.Serve(listener)
	})

	if opts.corpusPath != "" {
		g.Go(func() error {
			if _, err := detector.TrainFile(gctx, opts.corpusPath); err != nil {
				// The APIs stay up and report not ready
				logger.Error("Initial training failed", zap.Error(err))
				return nil
			}
			handler.SetServing(grpcHealth, true)
			return nil
		})
	} else {
		logger.Warn("No corpus configured; the detector will not become ready")
	}

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Initiating graceful shutdown")

		healthChecker.SetDraining(true)
		handler.SetServing(grpcHealth, false)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("Failed to shutdown HTTP server", zap.Error(err))
		}
		grpcServer.GracefulStop()
		return nil
	})

	err = g.Wait()
	logger.Info("Detector shutdown complete")
	return err
}

// initLogger builds the zap logger described by cfg. Logs go to stderr so
// detection results on stdout stay clean.
func initLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	var zcfg zap.Config
	if cfg.Format == "console" {
		zcfg = zap.NewDevelopmentConfig()
	} else {
		zcfg = zap.NewProductionConfig()
	}
	zcfg.Level = zap.NewAtomicLevelAt(level)
	zcfg.OutputPaths = []string{"stderr"}
	zcfg.ErrorOutputPaths = []string{"stderr"}

	return zcfg.Build()
}
