package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/nstehr/rampart/rampart-core/archive"
	"github.com/nstehr/rampart/rampart-core/ipc"
	"github.com/nstehr/rampart/rampart-core/ledger"
	"github.com/nstehr/rampart/rampart-core/model"
	"github.com/nstehr/rampart/rampart-core/telemetry"
)

var decodePlayer int

var decodeCmd = &cobra.Command{
	Use:   "decode <engine.jsonl>",
	Short: "Replay a recorded match and print its turn reports",
	Long: `Replay the engine lines of a recorded match through the telemetry
decoder and print one JSON turn report per line.

Examples:
  rampart decode matches/<match-id>/engine.jsonl             # both players
  rampart decode matches/<match-id>/engine.jsonl --player 1  # the opponent only`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := loadConfig(cmd); err != nil {
			return err
		}
		lines, err := archive.ReadLines(afero.NewOsFs(), args[0])
		if err != nil {
			return err
		}
		return replay(lines, decodePlayer, cmd.OutOrStdout())
	},
}

func init() {
	decodeCmd.Flags().IntVar(&decodePlayer, "player", -1, "player to decode: 0, 1 or -1 for both")
	rootCmd.AddCommand(decodeCmd)
}

// replay feeds recorded engine lines through fresh decoders, the same way
// the agent does live, and writes each report to w as JSON.
func replay(lines [][]byte, player int, w io.Writer) error {
	players := []int{0, 1}
	if player != -1 {
		if err := model.CheckPlayer(player); err != nil {
			return err
		}
		players = []int{player}
	}

	var (
		cfg       model.Config
		cat       *model.Catalog
		histories [2]*telemetry.History
		frames    [][]byte
		prev      *ledger.Ledger
	)
	enc := json.NewEncoder(w)

	flush := func() error {
		if len(frames) == 0 {
			return nil
		}
		defer func() { frames = nil }()
		for _, p := range players {
			rep, err := telemetry.NewDecoder(cat, histories[p], p).Decode(frames, prev)
			if err != nil {
				slog.Error("decode turn frames", "player", p, "frames", len(frames), "error", err)
				continue
			}
			if err := enc.Encode(rep); err != nil {
				return fmt.Errorf("write report: %w", err)
			}
		}
		return nil
	}

	for i, line := range lines {
		kind, err := ipc.Classify(line)
		if err != nil {
			return fmt.Errorf("line %d: %w", i+1, err)
		}
		if kind != ipc.KindConfig && cat == nil {
			return fmt.Errorf("line %d: %w: %s before game config", i+1, model.ErrProtocol, kind)
		}

		switch kind {
		case ipc.KindConfig:
			if cfg, cat, err = model.ParseConfig(line); err != nil {
				return fmt.Errorf("line %d: %w", i+1, err)
			}
			histories = [2]*telemetry.History{telemetry.NewHistory(model.ArenaSize), telemetry.NewHistory(model.ArenaSize)}
			frames, prev = nil, nil
		case ipc.KindActionFrame:
			frames = append(frames, line)
		case ipc.KindTurnStart, ipc.KindGameOver:
			if err := flush(); err != nil {
				return err
			}
			if kind == ipc.KindGameOver {
				continue
			}
			gs, err := model.ParseGameState(line)
			if err != nil {
				return fmt.Errorf("line %d: %w", i+1, err)
			}
			if prev, err = ledger.New(cat, cfg, gs); err != nil {
				return fmt.Errorf("line %d: %w", i+1, err)
			}
		}
	}
	return flush()
}
