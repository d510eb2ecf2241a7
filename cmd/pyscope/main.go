package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"pyscope/internal/config"
	"pyscope/internal/crawler"
	"pyscope/internal/engine"
	"pyscope/internal/pipeline"
	"pyscope/internal/registry"
	"pyscope/internal/storage"
)

var (
	rootCmd = &cobra.Command{
		Use:   "pyscope",
		Short: "Static type inference for Python projects",
	}
	dbPath     string
	configPath string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&dbPath, "db", "d", "", "Path to the module index database (SQLite)")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "pyscope.yaml", "Path to the config file")

	syncCmd.Flags().String("base", "HEAD", "Git ref to diff against")

	rootCmd.AddCommand(indexCmd)
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(inferCmd)
	rootCmd.AddCommand(completeCmd)
	rootCmd.AddCommand(signaturesCmd)
	rootCmd.AddCommand(mroCmd)
}

func loadConfig() *config.Config {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if dbPath != "" {
		cfg.Index.DBPath = dbPath
	}
	setupLogging(cfg.Log.Level)
	return cfg
}

func setupLogging(level string) {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})))
}

func newSync(cfg *config.Config, reg *registry.Registry) (*pipeline.Sync, *storage.SQLiteStore) {
	store, err := storage.NewSQLiteStore(cfg.Index.DBPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	c := crawler.New(cfg.Project.Exclude...)
	return pipeline.NewSync(cfg.Project.Root, c, store, reg), store
}

// loadedEngine builds an engine over the previously indexed project.
func loadedEngine(ctx context.Context) *engine.Engine {
	cfg := loadConfig()
	reg := registry.New()
	sync, store := newSync(cfg, reg)
	defer store.Close()

	if _, err := sync.Load(ctx); err != nil {
		log.Fatalf("Failed to load index: %v", err)
	}
	return engine.New(reg)
}

var indexCmd = &cobra.Command{
	Use:   "index [path]",
	Short: "Index every Python module under the project root",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()
		if len(args) > 0 {
			cfg.Project.Root = args[0]
		}

		reg := registry.New()
		sync, store := newSync(cfg, reg)
		defer store.Close()

		fmt.Printf("Indexing %s\n", cfg.Project.Root)
		start := time.Now()
		res, err := sync.Full(context.Background())
		if err != nil {
			log.Fatalf("Index failed: %v", err)
		}
		fmt.Printf("Indexed %d modules in %v (%d skipped). Database: %s\n",
			res.Indexed, time.Since(start), res.Skipped, cfg.Index.DBPath)
	},
}

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Update the index from local git changes",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()
		baseRef, _ := cmd.Flags().GetString("base")

		reg := registry.New()
		sync, store := newSync(cfg, reg)
		defer store.Close()

		res, err := sync.Incremental(context.Background(), baseRef)
		if err != nil {
			log.Fatalf("Sync failed: %v", err)
		}
		if res.Indexed == 0 && res.Removed == 0 {
			fmt.Println("No changes detected.")
			return
		}
		fmt.Printf("Sync: %d modules updated, %d removed, %d skipped.\n",
			res.Indexed, res.Removed, res.Skipped)
	},
}

func positionArgs(args []string) (string, int, int) {
	line, err := strconv.Atoi(args[1])
	if err != nil {
		log.Fatalf("Invalid line number: %v", err)
	}
	col, err := strconv.Atoi(args[2])
	if err != nil {
		log.Fatalf("Invalid column number: %v", err)
	}
	return args[0], line, col
}

var inferCmd = &cobra.Command{
	Use:   "infer <module> <line> <col>",
	Short: "Infer the values of the expression at a position",
	Args:  cobra.ExactArgs(3),
	Run: func(cmd *cobra.Command, args []string) {
		module, line, col := positionArgs(args)
		eng := loadedEngine(context.Background())

		results, err := eng.Infer(module, line, col)
		if err != nil {
			log.Fatalf("Infer failed: %v", err)
		}
		if len(results) == 0 {
			fmt.Println("Nothing could be inferred.")
			return
		}
		for _, r := range results {
			if r.Description != "" {
				fmt.Printf("%s %s\t%s\n", r.Kind, r.Name, r.Description)
			} else {
				fmt.Printf("%s %s\n", r.Kind, r.Name)
			}
		}
	},
}

var completeCmd = &cobra.Command{
	Use:   "complete <module> <line> <col>",
	Short: "List the names available at a position",
	Args:  cobra.ExactArgs(3),
	Run: func(cmd *cobra.Command, args []string) {
		module, line, col := positionArgs(args)
		eng := loadedEngine(context.Background())

		names, err := eng.Complete(module, line, col)
		if err != nil {
			log.Fatalf("Complete failed: %v", err)
		}
		for _, name := range names {
			fmt.Println(name)
		}
	},
}

var signaturesCmd = &cobra.Command{
	Use:   "signatures <module> <line> <col>",
	Short: "Show the call signatures of the expression at a position",
	Args:  cobra.ExactArgs(3),
	Run: func(cmd *cobra.Command, args []string) {
		module, line, col := positionArgs(args)
		eng := loadedEngine(context.Background())

		sigs, err := eng.Signatures(module, line, col)
		if err != nil {
			log.Fatalf("Signatures failed: %v", err)
		}
		for _, sig := range sigs {
			fmt.Println(sig)
		}
	},
}

var mroCmd = &cobra.Command{
	Use:   "mro <module> <class>",
	Short: "Print the method resolution order of a class",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		eng := loadedEngine(context.Background())

		names, err := eng.MRO(args[0], args[1])
		if err != nil {
			log.Fatalf("MRO failed: %v", err)
		}
		for _, name := range names {
			fmt.Println(name)
		}
	},
}
