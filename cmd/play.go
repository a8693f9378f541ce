package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/nstehr/rampart/rampart-core/agent"
	"github.com/nstehr/rampart/rampart-core/archive"
	"github.com/nstehr/rampart/rampart-core/config"
	"github.com/nstehr/rampart/rampart-core/ipc"
	"github.com/nstehr/rampart/rampart-core/pubsub"
	"github.com/nstehr/rampart/rampart-core/rules"
	"github.com/nstehr/rampart/rampart-core/telemetry"
)

var (
	playDoctrine   string
	playRecord     bool
	playArchiveDir string
)

var playCmd = &cobra.Command{
	Use:   "play",
	Short: "Play one match against the engine on stdin/stdout",
	Long: `Play one match. The engine's lines are read from stdin and the turn
submissions are written to stdout.

Examples:
  rampart play                                  # built-in balanced doctrine
  rampart play --doctrine doctrines/siege.yaml  # YAML doctrine
  rampart play --record --archive-dir matches   # keep a recording for "rampart decode"`,
	Args: cobra.NoArgs,
	RunE: runPlay,
}

func init() {
	playCmd.Flags().StringVar(&playDoctrine, "doctrine", "", "YAML doctrine file (overrides "+config.EnvDoctrine+")")
	playCmd.Flags().BoolVar(&playRecord, "record", false, "record engine lines and turn reports")
	playCmd.Flags().StringVar(&playArchiveDir, "archive-dir", "", "recording root directory (overrides "+config.EnvArchiveDir+")")
	rootCmd.AddCommand(playCmd)
}

func runPlay(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("doctrine") {
		cfg.Doctrine = playDoctrine
	}
	if cmd.Flags().Changed("record") {
		cfg.Record = playRecord
	}
	if cmd.Flags().Changed("archive-dir") {
		cfg.ArchiveDir = playArchiveDir
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	fmt.Fprintln(os.Stderr, banner)
	slog.Info("starting rampart", "version", version)

	doctrine, engine, err := buildEngine(cfg.Doctrine)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	bus := pubsub.NewBus()
	defer bus.Close()
	if err := bus.SubscribeReports(ctx, logReport); err != nil {
		return err
	}

	a := agent.New(ipc.NewConn(os.Stdin, os.Stdout, nil), engine)
	a.Strategist = agent.NewStrategist(engine, doctrine)
	a.Reports = bus

	if cfg.Record {
		rec, err := archive.NewRecorder(afero.NewOsFs(), cfg.ArchiveDir)
		if err != nil {
			return err
		}
		defer rec.Close()
		a.Recorder = rec
		slog.Info("recording match", "match", rec.MatchID(), "dir", rec.Dir())
	}

	if err := a.Run(ctx); err != nil {
		return fmt.Errorf("play: %w", err)
	}
	slog.Info("shutting down")
	return nil
}

// buildEngine loads the doctrine at path, or the built-in one when path is
// empty, and compiles it into a rule engine.
func buildEngine(path string) (rules.Doctrine, *rules.Engine, error) {
	d := rules.DefaultDoctrine()
	if path != "" {
		var err error
		if d, err = rules.LoadDoctrine(path); err != nil {
			return rules.Doctrine{}, nil, err
		}
	}
	compiled, err := rules.CompileDoctrine(d)
	if err != nil {
		return rules.Doctrine{}, nil, err
	}
	engine, err := rules.NewEngine(compiled)
	if err != nil {
		return rules.Doctrine{}, nil, err
	}
	slog.Info("doctrine loaded",
		"name", d.Name,
		"rationale", d.Rationale,
		"aggression", d.Aggression,
		"defense", d.DefensePriority,
		"economy", d.EconomyPriority,
		"rules", len(compiled),
	)
	return d, engine, nil
}

func logReport(ctx context.Context, r telemetry.TurnReport) error {
	slog.Info("turn report",
		"turn", r.Turn,
		"player", r.Player,
		"groups", len(r.Groups),
		"damage", r.TotalDamage(),
		"breaches", r.TotalBreaches(),
		"lost", len(r.Lost),
		"coresSpent", r.CoresSpent,
		"bitsSpent", r.BitsSpent,
	)
	return nil
}
