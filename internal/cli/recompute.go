package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/quietloop/wellspring/internal/config"
	"github.com/quietloop/wellspring/internal/engine"
	"github.com/quietloop/wellspring/internal/store"
)

var (
	recomputeUser string
	recomputeDay  string
)

var recomputeCmd = &cobra.Command{
	Use:   "recompute",
	Short: "Run the full pipeline for one user and day, synchronously",
	RunE:  runRecompute,
}

func init() {
	recomputeCmd.Flags().StringVar(&recomputeUser, "user", "", "user id (required)")
	recomputeCmd.Flags().StringVar(&recomputeDay, "day", "", "day key YYYY-MM-DD (default today)")
	recomputeCmd.MarkFlagRequired("user")
}

// openEngine wires a store and engine from config for one-shot commands.
func openEngine(configPath string) (*store.DB, *engine.Engine, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}

	log, err := newLogger()
	if err != nil {
		return nil, nil, fmt.Errorf("init logger: %w", err)
	}

	dbPath := cfg.Database.Path
	if dbPath == "" {
		dbPath, err = store.DefaultDBPath()
		if err != nil {
			return nil, nil, fmt.Errorf("resolve db path: %w", err)
		}
	}
	db, err := store.Open(dbPath)
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}

	loc := time.Local
	if cfg.Engine.Timezone != "" {
		loc, err = time.LoadLocation(cfg.Engine.Timezone)
		if err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("load timezone %q: %w", cfg.Engine.Timezone, err)
		}
	}
	return db, engine.New(db, log, loc), nil
}

func runRecompute(cmd *cobra.Command, args []string) error {
	db, eng, err := openEngine("")
	if err != nil {
		return err
	}
	defer db.Close()

	day := recomputeDay
	if day == "" {
		day = engine.DayKeyOf(time.Now(), eng.Location())
	}

	ctx := context.Background()
	if err := eng.Recompute(ctx, recomputeUser, day); err != nil {
		return fmt.Errorf("recompute: %w", err)
	}

	state, err := eng.EnsureDaily(ctx, recomputeUser, day, false)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(state)
}
