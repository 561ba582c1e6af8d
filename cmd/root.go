package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"parafetch/downloader"
	"parafetch/internal"
	"parafetch/utils"
)

var (
	destinationDir string
	mode           string
	segmentCount   int
	workerCount    int
	maxRetries     int
	allowResume    bool
	quiet          bool
	proxyURL       string
	debug          bool
	logLevel       string
	logFile        string
	storePath      string
	config         *internal.Config
)

var rootCmd = &cobra.Command{
	Use:     "parafetch [OPTIONS] <URL>",
	Short:   "Download files over HTTP with parallel segmented transfer",
	Version: "v1.0.0",
	Long: `parafetch is a CLI for downloading a single HTTP resource to disk, with
optional splitting into byte-range segments served by concurrent workers,
and optional resume of an interrupted transfer.

Examples:
  parafetch https://example.com/file.iso
  parafetch -o ./downloads --mode segmented_pool -s 8 -w 4 https://example.com/file.iso
  parafetch --mode segmented_fixed -s 16 --resume https://example.com/file.iso
  parafetch --proxy socks5://127.0.0.1:1080 https://example.com/file.iso

Environment Variables:
  PARAFETCH_SEGMENTS        Default segment count
  PARAFETCH_WORKERS         Default worker count
  PARAFETCH_RETRIES         Default max retries per segment
  PARAFETCH_REQUEST_TIMEOUT Per-attempt request timeout, in seconds
  PARAFETCH_PROXY           Proxy URL
  PARAFETCH_LOG_LEVEL       Log level (debug, info, warn, error)
  PARAFETCH_LOG_FILE        Write logs to file instead of stderr`,
	Args: cobra.ExactArgs(1),
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := loadConfiguration(); err != nil {
			return fmt.Errorf("configuration error: %v", err)
		}
		if !cmd.Flags().Changed("segments") {
			segmentCount = config.DefaultSegments
		}
		if !cmd.Flags().Changed("workers") {
			workerCount = config.DefaultWorkers
		}
		if !cmd.Flags().Changed("max-retries") {
			maxRetries = config.DefaultRetries
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		url := args[0]
		return runDownload(url)
	},
}

func loadConfiguration() error {
	config = internal.DefaultConfig()
	config.LoadFromEnv()

	if debug {
		config.EnableDebug = true
		config.LogLevel = "debug"
	}
	if quiet {
		config.QuietMode = true
	}
	if logLevel != "" {
		config.LogLevel = logLevel
	}
	if logFile != "" {
		config.LogFile = logFile
	}
	if proxyURL != "" {
		config.ProxyURL = proxyURL
	}

	return config.ValidateConfig()
}

func parseMode(s string) (internal.Mode, error) {
	switch s {
	case "sequential":
		return internal.ModeSequential, nil
	case "segmented_pool":
		return internal.ModeSegmentedPool, nil
	case "segmented_fixed":
		return internal.ModeSegmentedFixed, nil
	default:
		return 0, fmt.Errorf("unknown mode %q (want sequential, segmented_pool, or segmented_fixed)", s)
	}
}

func runDownload(url string) error {
	logger, err := internal.NewLogger(config)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	validator := utils.NewURLValidator()
	if err := validator.ValidateURL(url); err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}

	dlMode, err := parseMode(mode)
	if err != nil {
		return err
	}

	if destinationDir == "" {
		destinationDir = "."
	}
	if err := os.MkdirAll(destinationDir, 0755); err != nil {
		return fmt.Errorf("failed to create destination directory: %w", err)
	}

	if storePath == "" {
		storePath = os.Getenv("PARAFETCH_STORE")
	}
	if storePath == "" {
		storePath = filepath.Join(destinationDir, ".parafetch.db")
	}
	store, err := downloader.NewSQLiteStore(storePath)
	if err != nil {
		return fmt.Errorf("failed to open segment store: %w", err)
	}
	defer store.Close()

	transport, err := internal.NewHTTPTransport(internal.TransportConfig{
		UserAgent: config.UserAgent,
		ProxyURL:  config.ProxyURL,
		Logger:    logger,
	})
	if err != nil {
		return fmt.Errorf("failed to configure transport: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		logger.Info("received signal %v, initiating graceful shutdown", sig)
		if !quiet {
			fmt.Fprintf(os.Stderr, "\nreceived %v, shutting down...\n", sig)
		}
		cancel()
	}()

	if !quiet {
		fmt.Printf("downloading: %s\n", url)
		fmt.Printf("destination: %s\n", destinationDir)
		fmt.Printf("mode: %s\n", dlMode)
		if dlMode != internal.ModeSequential {
			fmt.Printf("segments: %d, workers: %d\n", segmentCount, workerCount)
		}
	}

	var tracker *utils.ProgressTracker
	req := &internal.DownloadRequest{
		URL:            url,
		DestinationDir: destinationDir,
		Mode:           dlMode,
		SegmentCount:   segmentCount,
		WorkerCount:    workerCount,
		MaxRetries:     maxRetries,
		AllowResume:    allowResume,
		RequestTimeout: config.RequestTimeout,
		Logger:         logger,
		Transport:      transport,
		Context:        ctx,
		OnProgress: func(percent float64) {
			if tracker != nil {
				tracker.OnProgress(percent)
			}
		},
		OnComplete: func(path string) {
			if tracker != nil {
				tracker.Finish()
			}
			if !quiet {
				fmt.Printf("\ndownload complete: %s\n", path)
			}
		},
		OnError: func(message string) {
			if !quiet {
				fmt.Fprintf(os.Stderr, "\ndownload failed: %s\n", message)
			}
		},
	}

	probeCtx, probeCancel := context.WithTimeout(ctx, 30*time.Second)
	desc, probeErr := transport.Head(probeCtx, url)
	probeCancel()
	if probeErr == nil && desc.TotalBytes > 0 {
		tracker = utils.NewProgressTracker(desc.TotalBytes, quiet)
	}

	coordinator := downloader.NewCoordinator(store)
	if err := coordinator.Run(req); err != nil {
		return err
	}

	return nil
}

func init() {
	config = internal.DefaultConfig()

	rootCmd.Flags().StringVarP(&destinationDir, "output-dir", "o", "", "Destination directory (default: current directory)")
	rootCmd.Flags().StringVarP(&mode, "mode", "m", "segmented_pool", "Download mode: sequential, segmented_pool, segmented_fixed")
	rootCmd.Flags().IntVarP(&segmentCount, "segments", "s", config.DefaultSegments, "Number of byte-range segments (segmented modes only)")
	rootCmd.Flags().IntVarP(&workerCount, "workers", "w", config.DefaultWorkers, "Number of concurrent workers (segmented_pool only)")
	rootCmd.Flags().IntVar(&maxRetries, "max-retries", config.DefaultRetries, "Maximum retry attempts per segment")
	rootCmd.Flags().BoolVar(&allowResume, "resume", false, "Resume a previously interrupted download if one is found")
	rootCmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Suppress progress bar output")
	rootCmd.Flags().StringVar(&proxyURL, "proxy", "", "HTTP/SOCKS5 proxy URL (env: PARAFETCH_PROXY)")
	rootCmd.Flags().StringVar(&storePath, "store", "", "Path to the segment store database (default: .parafetch.db in the output directory)")

	rootCmd.Flags().BoolVarP(&debug, "debug", "d", false, "Enable debug logging with file and line information")
	rootCmd.Flags().StringVar(&logLevel, "log-level", "", "Set log level (debug, info, warn, error)")
	rootCmd.Flags().StringVar(&logFile, "log-file", "", "Write logs to file instead of stderr")
}

func Execute() error {
	return rootCmd.Execute()
}
