package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/coparent/rota/config"
	"github.com/coparent/rota/core/model"
	coreschedule "github.com/coparent/rota/core/schedule"
)

var (
	generateStart string
	generateFirst string
	generateDays  int
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Print a fresh alternating baseline calendar as JSON",
	RunE:  generate,
}

func init() {
	generateCmd.Flags().StringVar(&generateStart, "start", "", "first day (YYYY-MM-DD)")
	generateCmd.Flags().StringVar(&generateFirst, "first", "", "guardian holding the opening block")
	generateCmd.Flags().IntVar(&generateDays, "days", 28, "number of days to generate")
	rootCmd.AddCommand(generateCmd)
}

func generate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	start := model.DateKey(generateStart)
	if _, err := model.ParseDateKey(start); err != nil {
		return err
	}
	first := model.GuardianID(generateFirst)
	if first == "" {
		first = cfg.Rebalance.GuardianA
	}
	if first != cfg.Rebalance.GuardianA && first != cfg.Rebalance.GuardianB {
		return fmt.Errorf("unknown guardian %q", first)
	}

	gen := coreschedule.Generator{
		GuardianA:   cfg.Rebalance.GuardianA,
		GuardianB:   cfg.Rebalance.GuardianB,
		BlockLength: cfg.Schedule.BlockLength,
	}
	cal := gen.Generate(start, first, generateDays)

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(cal)
}
