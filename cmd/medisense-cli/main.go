package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/pramodacn2005/Micro-Labs-Project-sub000/internal/assistant"
	"github.com/pramodacn2005/Micro-Labs-Project-sub000/internal/config"
	"github.com/pramodacn2005/Micro-Labs-Project-sub000/internal/predictor"
	"github.com/pramodacn2005/Micro-Labs-Project-sub000/internal/repository"
	"github.com/pramodacn2005/Micro-Labs-Project-sub000/internal/service"
	"github.com/pramodacn2005/Micro-Labs-Project-sub000/internal/vitals"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "medisense-cli",
		Short:        "Offline fever scoring and vitals classification",
		SilenceUsage: true,
	}

	rootCmd.AddCommand(scoreCmd())
	rootCmd.AddCommand(classifyCmd())
	rootCmd.AddCommand(thresholdsCmd())
	return rootCmd
}

// loadThresholds 默认阈值叠加环境变量覆盖，与服务端一致
func loadThresholds() (*vitals.ThresholdTable, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	return service.NewThresholdTable(cfg, zap.NewNop())
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func scoreCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "score [bundle.json]",
		Short: "Run fever triage on a JSON bundle (file or stdin) with rule-based models",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			allowPartial, _ := cmd.Flags().GetBool("allow-partial")

			var data []byte
			var err error
			if len(args) == 1 && args[0] != "-" {
				data, err = os.ReadFile(args[0])
			} else {
				data, err = io.ReadAll(cmd.InOrStdin())
			}
			if err != nil {
				return fmt.Errorf("failed to read bundle: %w", err)
			}

			var req service.FeverCheckRequest
			if err := json.Unmarshal(data, &req); err != nil {
				return fmt.Errorf("invalid bundle: %w", err)
			}
			req.AllowPartial = req.AllowPartial || allowPartial

			logger := zap.NewNop()
			triage := service.NewTriageService(
				repository.NewMemorySessionStore(),
				predictor.NewSymptomClient(nil, logger),
				predictor.NewLabClient(nil, logger),
				assistant.New("", "", "", 0, logger),
				logger,
			)
			result, err := triage.FeverCheck(context.Background(), &req)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), result)
		},
	}
	cmd.Flags().Bool("allow-partial", false, "score even when required fields are missing")
	return cmd
}

func classifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "classify <metric> <value>",
		Short: "Classify one vital value against the active thresholds",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			table, err := loadThresholds()
			if err != nil {
				return err
			}
			th, ok := table.Get(args[0])
			if !ok {
				return fmt.Errorf("unknown metric: %s", args[0])
			}
			value, err := strconv.ParseFloat(args[1], 64)
			if err != nil {
				return fmt.Errorf("invalid value %q: %w", args[1], err)
			}

			return printJSON(cmd.OutOrStdout(), vitals.MetricStatus{
				Metric:    args[0],
				Value:     &value,
				Status:    vitals.Classify(value, th),
				Threshold: th,
			})
		},
	}
}

func thresholdsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "thresholds",
		Short: "Print the active threshold table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			table, err := loadThresholds()
			if err != nil {
				return err
			}
			metrics := table.Metrics()
			out := cmd.OutOrStdout()
			for _, m := range metrics {
				th, _ := table.Get(m)
				fmt.Fprintf(out, "%-24s min=%-8s max=%-8s criticalMin=%-8s criticalMax=%s\n",
					m, fmtFloat(&th.Min), fmtFloat(&th.Max), fmtFloat(th.CriticalMin), fmtFloat(th.CriticalMax))
			}
			return nil
		},
	}
}

func fmtFloat(v *float64) string {
	if v == nil {
		return "-"
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

