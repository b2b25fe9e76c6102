package cmd

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/episim/episim/sim"
	"github.com/episim/episim/sim/population"
	"github.com/episim/episim/sim/telemetry"
)

var (
	configPath string // YAML run configuration
	logLevel   string // Log verbosity level

	// CLI overrides; applied only when the flag is set explicitly
	seed            int64   // Master seed for every random stream
	days            int     // Simulated days
	tickMinutes     int     // Minutes per scheduler tick
	populationSize  int     // Number of agents
	initPercentSick float64 // Percent of agents infected at tick zero
	stores          int     // Number of stores
	parks           int     // Number of parks
	miscs           int     // Number of misc venues
	hospitals       int     // Number of hospitals (each with one ICU)
	workFromHome    bool    // Skip workplace visits
	immuneAfter     bool    // Recovered agents become immune
	monitorPeriod   int64   // SEIR sampling period in ticks (0 = one day)
	telemetryDBPath string  // SQLite file for telemetry events
	printTimeSeries bool    // Print the SEIR series after the summary
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "episim",
	Short: "Agent-based discrete-event epidemic simulator",
}

// runCmd executes the simulation using parameters from the config file and CLI flags
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the epidemic simulation",
	Run: func(cmd *cobra.Command, args []string) {
		level, err := logrus.ParseLevel(logLevel)
		if err != nil {
			logrus.Fatalf("Invalid log level: %s", logLevel)
		}
		logrus.SetLevel(level)

		cfg, err := loadConfig(configPath)
		if err != nil {
			logrus.Fatalf("Failed to load config: %v", err)
		}
		applyFlagOverrides(cmd, &cfg)

		if err := runSimulation(cmd.Context(), cfg, cmd.OutOrStdout()); err != nil {
			logrus.Fatalf("Simulation failed: %v", err)
		}
		logrus.Info("Simulation complete.")
	},
}

// applyFlagOverrides copies explicitly set flags over the loaded config,
// so file values survive unless the user asks otherwise.
func applyFlagOverrides(cmd *cobra.Command, cfg *Config) {
	f := cmd.Flags()
	s := &cfg.Simulation
	if f.Changed("seed") {
		s.Seed = seed
	}
	if f.Changed("days") {
		s.Days = days
	}
	if f.Changed("tick-minutes") {
		s.TickMinutes = tickMinutes
	}
	if f.Changed("population") {
		s.City.Population = populationSize
	}
	if f.Changed("init-percent-sick") {
		s.City.InitialInfectedFraction = initPercentSick / 100
	}
	if f.Changed("stores") {
		s.City.Stores = stores
	}
	if f.Changed("parks") {
		s.City.Parks = parks
	}
	if f.Changed("miscs") {
		s.City.Miscs = miscs
	}
	if f.Changed("hospitals") {
		s.City.Hospitals = hospitals
	}
	if f.Changed("work-from-home") {
		s.Mobility.WorkFromHome = workFromHome
	}
	if f.Changed("immune-after-recovery") {
		s.Epidemic.ImmuneAfterRecovery = immuneAfter
	}
	if f.Changed("monitor-period") {
		s.MonitorPeriodTicks = monitorPeriod
	}
	if f.Changed("telemetry-db") {
		cfg.Telemetry.SQLitePath = telemetryDBPath
	}
}

// runSimulation builds the world, runs it to the horizon and reports.
func runSimulation(ctx context.Context, cfg Config, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	startTime := time.Now()

	log := telemetry.NewLog()
	var tracker telemetry.Tracker = log
	var store *telemetry.SQLiteStore
	runID := uuid.New().String()
	if cfg.Telemetry.SQLitePath != "" {
		var err error
		store, err = telemetry.OpenSQLiteStore(cfg.Telemetry.SQLitePath)
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()
		tracker = telemetry.Fanout{log, store}
		runID = store.RunID()
		logrus.Infof("Recording telemetry to %s", cfg.Telemetry.SQLitePath)
	}
	logrus.Infof("Run %s", runID)

	sampler := population.NewBaselineSampler(cfg.Population)
	w, err := sim.NewWorld(cfg.Simulation, sampler, tracker)
	if err != nil {
		return err
	}
	seir := sim.NewSEIRMonitor(w, cfg.Simulation.MonitorPeriodTicks)
	w.AddMonitor(seir)
	if store != nil {
		w.AddMonitor(sim.NewFlushMonitor(ctx, w, store, cfg.Simulation.MonitorPeriodTicks))
	}

	res, err := w.Run()
	if err != nil {
		return err
	}
	if store != nil {
		if err := store.Flush(ctx); err != nil {
			return err
		}
	}

	metrics := sim.NewMetrics(res, len(w.Agents), telemetry.Summarize(log))
	metrics.RunID = runID
	metrics.Print(out, cfg.Simulation.Horizon(), startTime)
	if printTimeSeries {
		printSeries(out, w, res.Series)
	}
	return nil
}

// Execute runs the CLI root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// init sets up CLI flags and subcommands
func init() {
	runCmd.Flags().StringVar(&configPath, "config", "", "Path to a YAML run configuration")
	runCmd.Flags().StringVar(&logLevel, "log", "warn", "Log level (trace, debug, info, warn, error, fatal, panic)")

	runCmd.Flags().Int64Var(&seed, "seed", 0, "Master seed for all random streams")
	runCmd.Flags().IntVar(&days, "days", 30, "Number of simulated days")
	runCmd.Flags().IntVar(&tickMinutes, "tick-minutes", 1, "Minutes per scheduler tick (must divide 1440)")
	runCmd.Flags().IntVar(&populationSize, "population", 100, "Number of agents")
	runCmd.Flags().Float64Var(&initPercentSick, "init-percent-sick", 1, "Percent of agents infected at the start")
	runCmd.Flags().IntVar(&stores, "stores", 10, "Number of stores")
	runCmd.Flags().IntVar(&parks, "parks", 5, "Number of parks")
	runCmd.Flags().IntVar(&miscs, "miscs", 10, "Number of misc venues")
	runCmd.Flags().IntVar(&hospitals, "hospitals", 1, "Number of hospitals")
	runCmd.Flags().BoolVar(&workFromHome, "work-from-home", false, "Agents never go to their workplace")
	runCmd.Flags().BoolVar(&immuneAfter, "immune-after-recovery", true, "Recovered agents cannot be reinfected")
	runCmd.Flags().Int64Var(&monitorPeriod, "monitor-period", 0, "SEIR sampling period in ticks (0 = one simulated day)")
	runCmd.Flags().StringVar(&telemetryDBPath, "telemetry-db", "", "SQLite file to persist telemetry events")
	runCmd.Flags().BoolVar(&printTimeSeries, "series", false, "Print the SEIR time series")

	rootCmd.AddCommand(runCmd)
}
