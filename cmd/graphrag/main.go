package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"graphrag/internal/cache"
	"graphrag/internal/config"
	"graphrag/internal/cypher"
	"graphrag/internal/examples"
	"graphrag/internal/graphdb"
	"graphrag/internal/llm"
	"graphrag/internal/logging"
	"graphrag/internal/perf"
	"graphrag/internal/pipeline"
	"graphrag/internal/refine"
)

var (
	// Global flags
	verbose    bool
	configPath string

	// ask flags
	showPerf       bool
	showCacheStats bool

	// bench flags
	benchRuns        int
	benchConcurrency int

	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "graphrag",
	Short: "graphrag - natural-language questions over an embedded graph",
	Long: `graphrag answers natural-language questions by generating Cypher
queries against an embedded graph store, validating and repairing them in a
bounded refinement loop, and caching successful runs.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		zcfg := zap.NewProductionConfig()
		if verbose {
			zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zcfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		cwd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("failed to resolve working directory: %w", err)
		}
		if err := logging.Initialize(cwd); err != nil {
			logger.Warn("category logging unavailable", zap.Error(err))
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.CloseAll()
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

// askCmd answers a single question
var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Answer a natural-language question over the graph",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runAsk,
}

// benchCmd exercises the pipeline concurrently against a shared cache and tracker
var benchCmd = &cobra.Command{
	Use:   "bench [question]",
	Short: "Run a question repeatedly at a given concurrency and report timings",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runBench,
}

// seedCmd loads the demo dataset
var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Create and populate the demo graph database",
	RunE:  runSeed,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "graphrag.json", "path to config file")

	askCmd.Flags().BoolVar(&showPerf, "perf", false, "print the stage timing breakdown")
	askCmd.Flags().BoolVar(&showCacheStats, "cache-stats", false, "print cache counters")

	benchCmd.Flags().IntVarP(&benchRuns, "runs", "n", 20, "total pipeline runs")
	benchCmd.Flags().IntVarP(&benchConcurrency, "concurrency", "c", 4, "concurrent workers")

	rootCmd.AddCommand(askCmd, benchCmd, seedCmd)
}

// buildPipeline assembles the production pipeline from config.
func buildPipeline(ctx context.Context, cfg *config.Config) (*pipeline.Pipeline, *graphdb.Store, error) {
	store, err := graphdb.Open(cfg.Store.DatabasePath)
	if err != nil {
		return nil, nil, err
	}

	client, err := llm.NewGenAIClient(ctx, cfg.LLM.APIKey, cfg.LLM.Model)
	if err != nil {
		store.Close()
		return nil, nil, fmt.Errorf("set GEMINI_API_KEY or llm.api_key in %s: %w", configPath, err)
	}

	var corpus *examples.Corpus
	if cfg.Examples.CorpusPath != "" {
		corpus, err = examples.Load(cfg.Examples.CorpusPath)
		if err != nil {
			logger.Warn("example corpus unavailable, generating without few-shots",
				zap.String("path", cfg.Examples.CorpusPath), zap.Error(err))
		}
	}

	validator := cypher.NewValidator(store.Explain)
	refiner := refine.NewLoop(validator, cfg.Refine.MaxAttempts)

	p := pipeline.New(
		cache.New[pipeline.Result](cfg.Cache.Capacity),
		refiner,
		perf.NewTracker(),
		store,
		client,
		corpus,
		pipeline.Options{SelectK: cfg.Examples.SelectK},
	)
	return p, store, nil
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func runAsk(cmd *cobra.Command, args []string) error {
	question := strings.Join(args, " ")
	ctx := cmd.Context()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	p, store, err := buildPipeline(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	start := time.Now()
	res, err := p.Run(ctx, question)
	if err != nil {
		return err
	}
	logger.Info("pipeline run complete",
		zap.String("run_id", res.RunID),
		zap.Bool("cached", res.Cached),
		zap.Int("attempts", res.Attempts),
		zap.Duration("elapsed", time.Since(start)))

	fmt.Printf("Query:  %s\n", res.Query)
	fmt.Printf("Answer: %s\n", res.Answer)
	if res.Cached {
		fmt.Println("(served from cache)")
	}
	if !res.Valid {
		fmt.Println("(warning: query never passed validation, result is best effort)")
	}

	if showPerf {
		fmt.Println()
		fmt.Println(perf.Render(p.Tracker().Breakdown(), 40))
	}
	if showCacheStats {
		s := p.CacheStats()
		fmt.Printf("\ncache: %d/%d entries, %d hits, %d misses, %.1f%% hit rate\n",
			s.Size, s.Capacity, s.Hits, s.Misses, s.HitRate*100)
	}
	return nil
}

func runBench(cmd *cobra.Command, args []string) error {
	question := strings.Join(args, " ")
	ctx := cmd.Context()

	if benchRuns < 1 || benchConcurrency < 1 {
		return fmt.Errorf("runs and concurrency must be at least 1")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	p, store, err := buildPipeline(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	start := time.Now()
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(benchConcurrency)
	for i := 0; i < benchRuns; i++ {
		g.Go(func() error {
			_, err := p.Run(gctx, question)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	elapsed := time.Since(start)

	logger.Info("bench complete",
		zap.Int("runs", benchRuns),
		zap.Int("concurrency", benchConcurrency),
		zap.Duration("elapsed", elapsed))

	fmt.Printf("%d runs at concurrency %d in %v\n\n", benchRuns, benchConcurrency, elapsed)
	fmt.Println(perf.Render(p.Tracker().Breakdown(), 40))

	s := p.CacheStats()
	fmt.Printf("\ncache: %d/%d entries, %d hits, %d misses, %.1f%% hit rate\n",
		s.Size, s.Capacity, s.Hits, s.Misses, s.HitRate*100)
	return nil
}

func runSeed(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	store, err := graphdb.Open(cfg.Store.DatabasePath)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := graphdb.Seed(cmd.Context(), store); err != nil {
		return err
	}

	logger.Info("seeded demo graph", zap.String("path", cfg.Store.DatabasePath))
	fmt.Printf("seeded demo graph at %s\n", cfg.Store.DatabasePath)
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
