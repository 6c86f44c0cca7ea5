package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/quietloop/wellspring/internal/engine"
)

var (
	gateUser string
	gateDay  string
)

var gateCmd = &cobra.Command{
	Use:   "gate",
	Short: "Print the gate decision and speech constraints for one user and day",
	RunE:  runGate,
}

func init() {
	gateCmd.Flags().StringVar(&gateUser, "user", "", "user id (required)")
	gateCmd.Flags().StringVar(&gateDay, "day", "", "day key YYYY-MM-DD (default today)")
	gateCmd.MarkFlagRequired("user")
}

func runGate(cmd *cobra.Command, args []string) error {
	db, eng, err := openEngine("")
	if err != nil {
		return err
	}
	defer db.Close()

	day := gateDay
	if day == "" {
		day = engine.DayKeyOf(time.Now(), eng.Location())
	}

	decision, err := eng.Gate(context.Background(), gateUser, day)
	if err != nil {
		return fmt.Errorf("gate: %w", err)
	}
	payload, err := engine.BuildPayload(decision)
	if err != nil {
		return fmt.Errorf("build payload: %w", err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(map[string]any{
		"decision": decision,
		"payload":  payload,
	})
}
