package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/nstehr/rampart/rampart-core/ipc"
	"github.com/nstehr/rampart/rampart-core/ledger"
	"github.com/nstehr/rampart/rampart-core/model"
	"github.com/nstehr/rampart/rampart-core/rules"
	"github.com/nstehr/rampart/rampart-core/telemetry"
)

// ReportPublisher receives every decoded turn report.
type ReportPublisher interface {
	PublishReport(report *telemetry.TurnReport) error
}

// Recorder keeps a copy of the raw engine lines and decoded reports.
type Recorder interface {
	RecordLine(data []byte) error
	RecordReport(report *telemetry.TurnReport) error
}

// Agent owns the decision-making for a single match. Handlers run on the
// connection's read loop, one line at a time.
type Agent struct {
	Conn       *ipc.Conn
	Engine     *rules.Engine
	Strategist *Strategist
	Reports    ReportPublisher // optional
	Recorder   Recorder        // optional

	cfg       model.Config
	cat       *model.Catalog
	histories [2]*telemetry.History
	frames    [][]byte
	prev      *ledger.Ledger
	snapshot  *stateSnapshot
	reports   [2]*telemetry.TurnReport
}

func New(conn *ipc.Conn, engine *rules.Engine) *Agent {
	return &Agent{Conn: conn, Engine: engine}
}

// Handlers maps each engine line kind to its handler.
func (a *Agent) Handlers() map[ipc.Kind]ipc.Handler {
	return map[ipc.Kind]ipc.Handler{
		ipc.KindConfig:      a.HandleConfig,
		ipc.KindTurnStart:   a.HandleTurnStart,
		ipc.KindActionFrame: a.HandleActionFrame,
		ipc.KindGameOver:    a.HandleGameOver,
	}
}

// Run registers the handlers and plays until the match ends.
func (a *Agent) Run(ctx context.Context) error {
	for kind, h := range a.Handlers() {
		a.Conn.RegisterHandler(kind, h)
	}
	return a.Conn.ReadLoop(ctx)
}

// History returns the decoded history of a player, or nil before the config.
func (a *Agent) History(player int) *telemetry.History {
	if !model.ValidPlayer(player) {
		return nil
	}
	return a.histories[player]
}

// HandleConfig starts a new match.
func (a *Agent) HandleConfig(env ipc.Envelope) error {
	a.record(env.Data)
	cfg, cat, err := model.ParseConfig(env.Data)
	if err != nil {
		return fmt.Errorf("game config: %w", err)
	}
	a.cfg, a.cat = cfg, cat
	a.histories = [2]*telemetry.History{telemetry.NewHistory(model.ArenaSize), telemetry.NewHistory(model.ArenaSize)}
	a.frames = nil
	a.prev = nil
	a.snapshot = nil
	a.reports = [2]*telemetry.TurnReport{}

	if a.Strategist != nil {
		if err := a.Strategist.Reset(); err != nil {
			slog.Error("strategist reset failed", "error", err)
		}
	}
	a.Engine.LockMemory()
	clear(a.Engine.Memory)
	a.Engine.UnlockMemory()

	slog.Info("game config received", "units", len(cfg.UnitInformation),
		"bitsPerRound", cfg.Resources.BitsPerRound, "coresPerRound", cfg.Resources.CoresPerRound)
	return nil
}

// HandleTurnStart decodes the previous turn, runs the rules on a fresh
// ledger and submits. Once the config is known a submission is always sent,
// even when the turn state is unreadable or the rules fail, so the engine is
// never left waiting.
func (a *Agent) HandleTurnStart(env ipc.Envelope) error {
	a.record(env.Data)
	if a.cat == nil {
		return fmt.Errorf("%w: turn state before game config", model.ErrProtocol)
	}
	gs, err := model.ParseGameState(env.Data)
	if err != nil {
		return a.skipTurn(fmt.Errorf("turn state: %w", err))
	}

	a.decodeFrames()

	l, err := ledger.New(a.cat, a.cfg, gs)
	if err != nil {
		return a.skipTurn(fmt.Errorf("turn %d ledger: %w", gs.Turn, err))
	}
	l.InheritOverlays(a.prev)

	events := detectEvents(l, a.histories[1], a.reports[1], a.snapshot)
	snap := takeSnapshot(l, a.histories[1])
	a.snapshot = &snap
	if len(events) > 0 {
		slog.Info("match events", "turn", gs.Turn, "events", formatEvents(events))
	}
	a.Engine.LockMemory()
	applyFlags(a.Engine.Memory, events)
	a.Engine.UnlockMemory()
	if a.Strategist != nil {
		a.Strategist.Observe(gs.Turn, events)
	}

	slog.Info("turn started",
		"turn", gs.Turn,
		"health", gs.Stats[0].Health,
		"cores", gs.Stats[0].Cores,
		"bits", gs.Stats[0].Bits,
		"enemyHealth", gs.Stats[1].Health,
	)

	if err := a.Engine.Evaluate(l, a.histories[0], a.histories[1]); err != nil {
		slog.Error("rule engine error", "turn", gs.Turn, "error", err)
	}
	a.prev = l
	if err := l.Submit(a.Conn); err != nil {
		return fmt.Errorf("turn %d submit: %w", gs.Turn, err)
	}
	return nil
}

// skipTurn sends empty build and deploy queues for a turn that could not be
// read, then returns cause.
func (a *Agent) skipTurn(cause error) error {
	for range 2 {
		if err := a.Conn.SendCommand([][]any{}); err != nil {
			return errors.Join(cause, fmt.Errorf("send empty queue: %w", err))
		}
	}
	return cause
}

// HandleActionFrame buffers a frame for decoding at the next turn start.
func (a *Agent) HandleActionFrame(env ipc.Envelope) error {
	a.record(env.Data)
	a.frames = append(a.frames, env.Data)
	return nil
}

// HandleGameOver decodes the last turn's frames and logs the result.
func (a *Agent) HandleGameOver(env ipc.Envelope) error {
	a.record(env.Data)
	a.decodeFrames()
	gs, err := model.ParseGameState(env.Data)
	if err != nil {
		return fmt.Errorf("game over state: %w", err)
	}
	slog.Info("game over",
		"turn", gs.Turn,
		"health", gs.Stats[0].Health,
		"enemyHealth", gs.Stats[1].Health,
		"won", gs.Stats[0].Health > gs.Stats[1].Health,
	)
	return nil
}

// decodeFrames turns the buffered frames into one report per player. A
// failed decode leaves that player's history untouched.
func (a *Agent) decodeFrames() {
	frames := a.frames
	a.frames = nil
	a.reports = [2]*telemetry.TurnReport{}
	if len(frames) == 0 || a.cat == nil {
		return
	}

	for player := range a.histories {
		rep, err := telemetry.NewDecoder(a.cat, a.histories[player], player).Decode(frames, a.prev)
		if err != nil {
			slog.Error("decode turn frames", "player", player, "frames", len(frames), "error", err)
			continue
		}
		a.reports[player] = rep
		slog.Debug("turn decoded",
			"player", player,
			"turn", rep.Turn,
			"groups", len(rep.Groups),
			"damage", rep.TotalDamage(),
			"breaches", rep.TotalBreaches(),
			"skipped", len(rep.Skipped),
		)
		if a.Reports != nil {
			if err := a.Reports.PublishReport(rep); err != nil {
				slog.Error("publish turn report", "player", player, "error", err)
			}
		}
		if a.Recorder != nil {
			if err := a.Recorder.RecordReport(rep); err != nil {
				slog.Error("record turn report", "player", player, "error", err)
			}
		}
	}
}

func (a *Agent) record(data []byte) {
	if a.Recorder == nil {
		return
	}
	if err := a.Recorder.RecordLine(data); err != nil {
		slog.Error("record engine line", "error", err)
	}
}
