// Command tunedemo exercises the autotune dispatch facade against a
// synthetic kernel from the command line, either for a single batch of
// calls (run) or behind an HTTP observability server (serve).
package main

import (
	"context"
	"fmt"
	"math"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/kerneltune/autotune"
)

type syntheticKernel struct {
	argNames []string
	center   float64 // num_warps value the synthetic cost surface favors
}

func (k *syntheticKernel) ArgNames() []string { return k.argNames }
func (k *syntheticKernel) Name() string       { return "synthetic" }

func (k *syntheticKernel) Warmup(ctx context.Context, args []any, kwargs map[string]any) error {
	return nil
}

func (k *syntheticKernel) Run(ctx context.Context, args []any, kwargs map[string]any) error {
	warps, _ := kwargs["num_warps"].(int)
	cost := math.Abs(float64(warps)-k.center)*0.3 + 0.1
	time.Sleep(time.Duration(cost * float64(time.Millisecond)))
	return nil
}

func buildConfigs(warpChoices []int) ([]*autotune.Config, error) {
	configs := make([]*autotune.Config, 0, len(warpChoices))
	for _, w := range warpChoices {
		c, err := autotune.NewConfig(nil, autotune.WithNumWarps(w))
		if err != nil {
			return nil, err
		}
		configs = append(configs, c)
	}
	return configs, nil
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "tunedemo",
		Short: "Exercise the autotune dispatch facade against a synthetic kernel",
	}
	root.AddCommand(newRunCmd())
	root.AddCommand(newServeCmd())
	return root
}

func newRunCmd() *cobra.Command {
	var policy string
	var calls int

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a batch of calls through one policy and print timing",
		RunE: func(cmd *cobra.Command, args []string) error {
			kernel := &syntheticKernel{argNames: []string{"n"}, center: 4}
			configs, err := buildConfigs([]int{1, 2, 4, 8, 16})
			if err != nil {
				return err
			}
			logger := autotune.NewDefaultLogger()
			tuner, err := autotune.Dispatch(policy, kernel, configs, []string{"n"}, autotune.WithLogger(logger))
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			start := time.Now()
			for i := 0; i < calls; i++ {
				if err := tuner.Run(ctx, []any{i}, nil); err != nil {
					return err
				}
			}
			fmt.Printf("policy=%s calls=%d elapsed=%s\n", policy, calls, time.Since(start))
			return nil
		},
	}
	cmd.Flags().StringVar(&policy, "policy", autotune.PolicyDefault, "policy: default, stepwise, epsilon, confidence")
	cmd.Flags().IntVar(&calls, "calls", 10, "number of calls to make")
	return cmd
}

func newServeCmd() *cobra.Command {
	var policy string
	var port int
	var interval time.Duration

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run continuously behind an HTTP observability server",
		RunE: func(cmd *cobra.Command, args []string) error {
			registry := prometheus.NewRegistry()
			recorder := autotune.NewRecorder(registry)
			alertManager := autotune.NewAlertManager(recorder)
			alertManager.AddObserver(autotune.NewLogAlertObserver(autotune.NewDefaultLogger()))

			obsConfig := autotune.DefaultObservabilityConfig()
			obsConfig.HTTPPort = port
			obs := autotune.NewObservabilityServer(obsConfig, recorder, registry)
			if err := obs.Start(); err != nil {
				return err
			}
			defer obs.Stop()
			fmt.Printf("serving metrics on :%d%s\n", port, obsConfig.MetricsPath)

			kernel := &syntheticKernel{argNames: []string{"n"}, center: 4}
			configs, err := buildConfigs([]int{1, 2, 4, 8, 16})
			if err != nil {
				return err
			}
			tuner, err := autotune.Dispatch(policy, kernel, configs, []string{"n"},
				autotune.WithRecorder(recorder),
				autotune.WithAlertManager(alertManager),
			)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			ticker := time.NewTicker(interval)
			defer ticker.Stop()
			for i := 0; ; i++ {
				select {
				case <-ctx.Done():
					return nil
				case <-ticker.C:
					if err := tuner.Run(ctx, []any{i}, nil); err != nil {
						fmt.Fprintln(os.Stderr, "run error:", err)
					}
				}
			}
		},
	}
	cmd.Flags().StringVar(&policy, "policy", autotune.PolicyStepwise, "policy: default, stepwise, epsilon, confidence")
	cmd.Flags().IntVar(&port, "port", 9090, "HTTP port for the observability server")
	cmd.Flags().DurationVar(&interval, "interval", 100*time.Millisecond, "time between simulated calls")
	return cmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
