package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/coparent/rota/config"
	"github.com/coparent/rota/core/model"
	"github.com/coparent/rota/core/rebalance"
	"github.com/coparent/rota/infra/logger"
)

var (
	rebalanceCalendarPath string
	rebalanceDisruptions  []string
)

var rebalanceCmd = &cobra.Command{
	Use:   "rebalance",
	Short: "Repair a calendar file under declared disruptions and print the result",
	RunE:  runRebalance,
}

func init() {
	rebalanceCmd.Flags().StringVar(&rebalanceCalendarPath, "calendar", "", "path to a calendar JSON file")
	rebalanceCmd.Flags().StringArrayVar(&rebalanceDisruptions, "disrupt", nil, "disruption as DATE=GUARDIAN, repeatable")
	rootCmd.AddCommand(rebalanceCmd)
}

func runRebalance(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	data, err := os.ReadFile(rebalanceCalendarPath)
	if err != nil {
		return fmt.Errorf("read calendar: %w", err)
	}
	var cal model.Calendar
	if err := json.Unmarshal(data, &cal); err != nil {
		return fmt.Errorf("decode calendar: %w", err)
	}
	if err := cal.Validate(cfg.Rebalance.GuardianA, cfg.Rebalance.GuardianB); err != nil {
		return err
	}

	disruptions := model.DisruptionSet{}
	for _, d := range rebalanceDisruptions {
		date, guardian, ok := strings.Cut(d, "=")
		if !ok || guardian == "" {
			return fmt.Errorf("invalid disruption %q: want DATE=GUARDIAN", d)
		}
		key := model.DateKey(date)
		if _, err := model.ParseDateKey(key); err != nil {
			return err
		}
		disruptions[key] = model.GuardianID(guardian)
	}

	reb := rebalance.New(cfg.Rebalance, logger.New("rebalance-command"))
	out := reb.Rebalance(cal, disruptions)
	summary := rebalance.Summarize(cal, out, cfg.Rebalance)

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(map[string]any{"calendar": out, "summary": summary})
}
