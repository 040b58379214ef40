// Package main provides the heating-curve planner entry point and CLI interface.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/ovheul/heatplan/heatpump"
	"github.com/ovheul/heatplan/planner"
	"github.com/ovheul/heatplan/scheduler"
)

func main() {
	var (
		configFile = flag.String("config", "config.json", "Configuration file path")
		info       = flag.Bool("info", false, "Show heat pump unit status")
		help       = flag.Bool("help", false, "Show help message")
		serverOnly = flag.Bool("serverOnly", false, "Run only the web server without periodic planning")
		plan       = flag.Bool("plan", false, "Run one planning cycle and print the resulting schedule")
	)
	flag.Parse()

	if *help {
		showHelp()
		return
	}

	config, err := scheduler.LoadConfig(*configFile)
	if err != nil {
		fmt.Println("Error loading configuration:", err)
		return
	}

	if *info {
		if err := heatpump.ShowUnitInfo(config.HeatPumpAddress); err != nil {
			fmt.Println("Error:", err)
			return
		}
		return
	}

	if *plan {
		runPlanOnce(config)
		return
	}

	fmt.Printf("Starting heating-curve planner with the following configuration:\n")
	fmt.Printf("  Horizon: %d steps of %.2g h\n", config.HorizonSteps, config.StepHours)
	fmt.Printf("  Plan Interval: %s\n", config.PlanInterval)
	fmt.Printf("  Heating Curve: %.0f..%.0f °C water over %.0f..%.0f °C outdoor\n",
		config.Curve.WaterMax, config.Curve.WaterMin, config.Curve.OutdoorMin, config.Curve.OutdoorMax)
	fmt.Printf("  Offset Range: %+d..%+d\n", config.OffsetMin, config.OffsetMax)

	if config.DryRun {
		fmt.Printf("  Mode: DRY-RUN (offsets will not be written)\n")
	}
	fmt.Println()

	logger := log.New(os.Stdout, "[SCHEDULER] ", log.LstdFlags)

	heatScheduler := scheduler.NewHeatSchedulerWithWebServer(config, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := heatScheduler.Start(ctx, *serverOnly); err != nil {
			if err != context.Canceled {
				logger.Printf("Scheduler error: %v", err)
			}
		}
	}()

	logger.Printf("Scheduler started. Press Ctrl+C to stop...")

	<-sigChan
	logger.Printf("Shutdown signal received, stopping scheduler...")

	cancel()
	heatScheduler.Stop()

	logger.Printf("Scheduler stopped successfully")
}

func runPlanOnce(config *scheduler.Config) {
	logger := log.New(os.Stdout, "[PLAN] ", log.LstdFlags)

	heatScheduler := scheduler.NewHeatScheduler(config, logger)

	ctx := context.Background()
	if err := heatScheduler.RunPlanningCycle(ctx); err != nil {
		logger.Printf("Error during planning cycle: %v", err)
		return
	}

	out, _ := heatScheduler.GetLatestPlan()
	if out == nil {
		logger.Printf("No plan was produced")
		return
	}

	fmt.Println("\n========================================")
	fmt.Println("HEATING PLAN")
	fmt.Println("========================================")
	fmt.Printf("Status: %s\n\n", out.Status)

	fmt.Println("┌──────┬────────┬──────────┬──────────┬──────────┬──────────┐")
	fmt.Println("│ Step │ Offset │  Supply  │  Buffer  │   Cost   │ Savings  │")
	fmt.Println("│      │  (°C)  │   (°C)   │  (kWh)   │          │          │")
	fmt.Println("├──────┼────────┼──────────┼──────────┼──────────┼──────────┤")

	for t := range out.Offsets {
		var supply, cost, savings float64
		if t < len(out.SupplyTemp) {
			supply = out.SupplyTemp[t]
		}
		if t < len(out.CostPerStep) {
			cost = out.CostPerStep[t]
		}
		if t < len(out.SavingsPerStep) {
			savings = out.SavingsPerStep[t]
		}
		fmt.Printf("│ %4d │  %+4d  │  %6.1f  │  %6.2f  │  %6.4f  │  %6.4f  │\n",
			t, out.Offsets[t], supply, out.Buffer[t], cost, savings)
	}

	fmt.Println("└──────┴────────┴──────────┴──────────┴──────────┴──────────┘")
	fmt.Println("\n========================================")
	fmt.Println("SUMMARY")
	fmt.Println("========================================")
	fmt.Printf("Total predicted cost:   %.4f\n", out.TotalCost)
	fmt.Printf("Baseline (offset 0):    %.4f\n", out.BaselineCost)
	fmt.Printf("Predicted savings:      %.4f\n", out.TotalSavings)
	fmt.Printf("Terminal penalty:       %.4f\n", out.TerminalPenalty)
	if len(out.Warnings) > 0 {
		fmt.Println("\nWarnings:")
		for _, w := range out.Warnings {
			fmt.Printf("  - %s\n", w)
		}
	}
	fmt.Println("========================================")

	if out.Status == planner.StatusOK {
		fmt.Printf("\nOffset to apply now: %+d\n", out.Offsets[0])
	}
}

func showHelp() {
	fmt.Println("heatplan - Cost-optimal heating-curve offsets for a residential heat pump")
	fmt.Println()
	fmt.Println("DESCRIPTION:")
	fmt.Println("  Plans a sequence of heating-curve offsets that minimizes electricity")
	fmt.Println("  cost against day-ahead prices while meeting the building's forecast")
	fmt.Println("  heat demand. The building's thermal mass buffers heat: the planner")
	fmt.Println("  pre-heats during cheap hours and coasts through expensive ones.")
	fmt.Println()
	fmt.Println("  Key Features:")
	fmt.Println("  - Day-ahead price integration (ENTSO-E)")
	fmt.Println("  - Weather-driven heat loss and solar gain forecasting")
	fmt.Println("  - Heat pump COP model with defrost derating")
	fmt.Println("  - Dynamic-programming offset optimization")
	fmt.Println("  - Heat pump control over Modbus")
	fmt.Println("  - Plan persistence and a live web dashboard")
	fmt.Println()
	fmt.Println("USAGE:")
	fmt.Println("  heatplan [OPTIONS]")
	fmt.Println()
	fmt.Println("OPTIONS:")
	flag.PrintDefaults()
	fmt.Println()
	fmt.Println("EXAMPLES:")
	fmt.Println("  # Run the planning service")
	fmt.Println("  heatplan --config=config.json")
	fmt.Println()
	fmt.Println("  # Run one planning cycle and print the schedule")
	fmt.Println("  heatplan -plan")
	fmt.Println()
	fmt.Println("  # Show heat pump unit status")
	fmt.Println("  heatplan -info")
	fmt.Println()
	fmt.Println("  # Run only the web server")
	fmt.Println("  heatplan -serverOnly")
}
