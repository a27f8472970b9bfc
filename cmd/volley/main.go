package main

import (
	"fmt"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/volleyhq/volley/internal/hub"
	"github.com/volleyhq/volley/internal/report"
	"github.com/volleyhq/volley/internal/runner"
	"github.com/volleyhq/volley/internal/server"
	"github.com/volleyhq/volley/internal/session"
	"github.com/volleyhq/volley/internal/stats"
	"github.com/volleyhq/volley/internal/storage"
	"github.com/volleyhq/volley/pkg/config"
	"github.com/volleyhq/volley/pkg/models"
)

var (
	addr       string
	dataPath   string
	logDir     string
	configPath string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "volley",
	Short: "Volley - HTTP load testing service",
	Long: `Volley issues batches of concurrent HTTP requests against a target
endpoint, validates every response against configurable rules, streams
per-request progress to observers in real time, and aggregates
performance statistics.`,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the load-test API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := storage.Open(viper.GetString("serve.data"))
		if err != nil {
			return err
		}
		defer store.Close()

		writer, err := report.NewWriter(viper.GetString("serve.logs"))
		if err != nil {
			return err
		}

		h := hub.New()
		mgr := session.NewManager(h, writer, store)
		srv := server.New(viper.GetString("serve.addr"), mgr, h, store)
		return srv.Start()
	},
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one load test from a YAML file, without the server",
	RunE: func(cmd *cobra.Command, args []string) error {
		if configPath == "" {
			return fmt.Errorf("a config file is required (-f test.yaml)")
		}
		cfg, err := config.LoadFile(configPath)
		if err != nil {
			return err
		}

		eng, err := runner.New(*cfg, nil)
		if err != nil {
			return err
		}

		// Ctrl+C stops issuing batches; the one in flight drains.
		cancelled := &atomic.Bool{}
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		go func() {
			<-sigChan
			fmt.Println("\n⚠️  Interrupt received, finishing the current batch...")
			cancelled.Store(true)
		}()

		fmt.Printf("🚀 %s %s — %d request(s) × %d batch(es)\n",
			cfg.Method, cfg.URL, cfg.ConcurrentCalls, cfg.Batches())

		start := time.Now()
		outcomes := eng.Run("local", cancelled)
		summary := stats.Summarize(outcomes, time.Since(start))

		fmt.Printf("\nTotal requests:  %d\n", summary.TotalRequests)
		fmt.Printf("Successful:      %d\n", summary.SuccessfulRequests)
		fmt.Printf("Failed:          %d\n", summary.FailedRequests)
		fmt.Printf("Success rate:    %.1f%%\n", summary.SuccessRate)
		fmt.Printf("Duration:        %.2fs\n", summary.TotalDuration)
		fmt.Printf("Avg latency:     %.0fms\n", summary.AvgResponseTime*1000)
		fmt.Printf("P50/P95/P99:     %.0fms / %.0fms / %.0fms\n",
			summary.P50ResponseTime*1000, summary.P95ResponseTime*1000, summary.P99ResponseTime*1000)
		fmt.Printf("Requests/sec:    %.1f\n", summary.RequestsPerSecond)

		if dir := viper.GetString("run.logs"); dir != "" {
			writer, err := report.NewWriter(dir)
			if err != nil {
				return err
			}
			state := models.StateCompleted
			if cancelled.Load() {
				state = models.StateCancelled
			}
			now := time.Now()
			sess := &models.Session{
				ID:        uuid.New().String(),
				Config:    *cfg,
				Status:    state,
				StartTime: start,
				EndTime:   &now,
				Results:   outcomes,
				Stats:     summary,
			}
			if err := writer.WriteArtifacts(sess); err != nil {
				log.WithError(err).Warn("failed to write artifacts")
			} else {
				fmt.Printf("\n📄 Artifacts written to %s\n", dir)
			}
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	serveCmd.Flags().StringVar(&addr, "addr", ":8000", "listen address")
	serveCmd.Flags().StringVar(&dataPath, "data", defaultDataPath(), "bbolt database path")
	serveCmd.Flags().StringVar(&logDir, "logs", "logs", "artifact directory")
	_ = viper.BindPFlag("serve.addr", serveCmd.Flags().Lookup("addr"))
	_ = viper.BindPFlag("serve.data", serveCmd.Flags().Lookup("data"))
	_ = viper.BindPFlag("serve.logs", serveCmd.Flags().Lookup("logs"))
	_ = viper.BindEnv("serve.addr", "VOLLEY_ADDR")
	_ = viper.BindEnv("serve.data", "VOLLEY_DATA")
	_ = viper.BindEnv("serve.logs", "VOLLEY_LOGS")

	runCmd.Flags().StringVarP(&configPath, "file", "f", "", "YAML test configuration")
	runCmd.Flags().String("logs", "", "artifact directory (empty to skip artifacts)")
	_ = viper.BindPFlag("run.logs", runCmd.Flags().Lookup("logs"))

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(runCmd)
}

func initConfig() {
	// .env overrides defaults, flags override .env.
	_ = godotenv.Load()
	viper.SetEnvPrefix("volley")
	viper.AutomaticEnv()

	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	if verbose {
		log.SetLevel(log.DebugLevel)
	}
}

func defaultDataPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "volley.db"
	}
	return home + "/.volley/volley.db"
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
