package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"arcane/internal/config"
	"arcane/internal/eventlog"
	"arcane/internal/oracle"
	"arcane/internal/sim"
)

var (
	// Global flags
	verbose      bool
	settingsPath string
	scenarioPath string
	steps        int
	seed         int64
	apiKey       string
	logDir       string
	offline      bool

	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "arcane",
	Short: "ARCANE - agent-based social engineering simulation",
	Long: `ARCANE runs a small town of LLM-driven agents in discrete time steps.
Benign agents go about their routines holding secrets behind a trust gate;
a deviant agent works them over SMS, email, and social DMs through a staged
engagement plan. Every message, tactic, trust change, and disclosure lands
in an append-only run log for later analysis.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg := zap.NewProductionConfig()
		if verbose {
			cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = cfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a simulation headless for a fixed number of steps",
	RunE: func(cmd *cobra.Command, args []string) error {
		w, log, settings, err := buildWorld(cmd.Context())
		if err != nil {
			return err
		}
		defer log.Close()

		fmt.Printf("ARCANE run %s | scenario: %s | seed %d | %d steps\n",
			log.RunID(), scenarioName(), settings.Seed, settings.Steps)
		fmt.Printf("event log: %s\n\n", log.Path())

		for i := 0; i < settings.Steps; i++ {
			if err := cmd.Context().Err(); err != nil {
				return err
			}
			started := time.Now()
			m := w.Advance(cmd.Context())
			fmt.Printf("step %3d | %s | msgs %d delivered %d tactics %d reveals %d errors %d | %s\n",
				m.Step, w.SimTime(), m.Messages, m.Delivered, m.Tactics, m.Reveals, m.Errors,
				time.Since(started).Round(time.Millisecond))
		}

		printTotals(log)
		return nil
	},
}

var replCmd = &cobra.Command{
	Use:   "repl",
	Short: "Drive a simulation interactively",
	RunE: func(cmd *cobra.Command, args []string) error {
		w, log, _, err := buildWorld(cmd.Context())
		if err != nil {
			return err
		}
		defer log.Close()

		fmt.Println("ARCANE interactive mode. Commands: run [n], status, agents, log [n], quit")
		scanner := bufio.NewScanner(os.Stdin)
		for {
			fmt.Print("arcane> ")
			if !scanner.Scan() {
				break
			}
			fields := strings.Fields(scanner.Text())
			if len(fields) == 0 {
				continue
			}
			switch fields[0] {
			case "run":
				n := 1
				if len(fields) > 1 {
					if v, err := strconv.Atoi(fields[1]); err == nil && v > 0 {
						n = v
					}
				}
				for i := 0; i < n; i++ {
					m := w.Advance(cmd.Context())
					fmt.Printf("step %3d | msgs %d reveals %d\n", m.Step, m.Messages, m.Reveals)
				}
			case "status":
				s := w.Snapshot()
				fmt.Printf("step %d | %s | scenario %s\n", s.Step, s.SimTime, s.Scenario)
				for _, e := range s.RecentEvents {
					fmt.Println("  " + e)
				}
			case "agents":
				for _, a := range w.Snapshot().Agents {
					fmt.Printf("%-10s %-20s %-8s @ %-16s unread %d  %s\n",
						a.ID, a.Name, a.Role, a.Location, a.Unread, a.Activity)
				}
			case "log":
				n := 10
				if len(fields) > 1 {
					if v, err := strconv.Atoi(fields[1]); err == nil && v > 0 {
						n = v
					}
				}
				for _, e := range log.Recent(n) {
					fmt.Println(e.String())
				}
			case "quit", "exit":
				printTotals(log)
				return nil
			default:
				fmt.Println("unknown command:", fields[0])
			}
		}
		return scanner.Err()
	},
}

// buildWorld assembles settings, scenario, oracle, log, and world. Any
// configuration problem aborts before the first step.
func buildWorld(ctx context.Context) (*sim.World, *eventlog.Log, config.Settings, error) {
	settings, err := config.LoadSettings(settingsPath)
	if err != nil {
		return nil, nil, settings, err
	}
	if steps > 0 {
		settings.Steps = steps
	}
	if seed != 0 {
		settings.Seed = seed
	}
	if apiKey != "" {
		settings.Oracle.APIKey = apiKey
	}
	if logDir != "" {
		settings.LogDir = logDir
	}
	if offline {
		settings.Offline = true
	}

	scenario := config.DefaultScenario()
	if scenarioPath != "" {
		scenario, err = config.LoadScenario(scenarioPath)
		if err != nil {
			return nil, nil, settings, err
		}
	}

	completer, err := buildCompleter(ctx, settings)
	if err != nil {
		return nil, nil, settings, err
	}

	log, err := eventlog.New(settings.LogDir, logger)
	if err != nil {
		return nil, nil, settings, err
	}

	w, err := sim.New(settings, scenario, completer, log, logger)
	if err != nil {
		log.Close()
		return nil, nil, settings, err
	}
	return w, log, settings, nil
}

func buildCompleter(ctx context.Context, settings config.Settings) (oracle.Completer, error) {
	if settings.Offline {
		s := oracle.NewScripted(
			"Nice to meet you! Happy to chat.",
			"Things are busy at work, but going well.",
			"STAY",
			"Sure, what do you need?",
			"Let me get back to you on that.",
			"ADVANCE",
		)
		s.Loop = true
		return s, nil
	}
	if settings.Oracle.APIKey == "" {
		return nil, fmt.Errorf("no API key: set GEMINI_API_KEY, pass --api-key, or use --offline")
	}
	g, err := oracle.NewGemini(ctx, settings.Oracle.APIKey, settings.Oracle.Model)
	if err != nil {
		return nil, err
	}
	return oracle.WithTimeout(g, time.Duration(settings.Oracle.TimeoutSeconds)*time.Second), nil
}

func scenarioName() string {
	if scenarioPath != "" {
		return scenarioPath
	}
	return "built-in " + config.DefaultScenario().Name
}

func printTotals(log *eventlog.Log) {
	t := log.Totals()
	fmt.Printf("\ntotals: %d events | %d messages | %d tactics | %d trust changes | %d phase changes | %d reveals\n",
		t.Events, t.Messages, t.Tactics, t.TrustChanges, t.PhaseChanges, t.Reveals)
	fmt.Printf("event log: %s\n", log.Path())
}

func main() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&settingsPath, "settings", "", "settings file (yaml)")
	rootCmd.PersistentFlags().StringVar(&scenarioPath, "scenario", "", "scenario file (yaml); built-in scenario when omitted")
	rootCmd.PersistentFlags().IntVar(&steps, "steps", 0, "number of steps to run (overrides settings)")
	rootCmd.PersistentFlags().Int64Var(&seed, "seed", 0, "PRNG seed (overrides settings)")
	rootCmd.PersistentFlags().StringVar(&apiKey, "api-key", "", "Gemini API key (falls back to GEMINI_API_KEY)")
	rootCmd.PersistentFlags().StringVar(&logDir, "log-dir", "", "directory for run logs")
	rootCmd.PersistentFlags().BoolVar(&offline, "offline", false, "use the built-in scripted oracle instead of a live provider")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(replCmd)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
