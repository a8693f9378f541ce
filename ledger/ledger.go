package ledger

import (
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/nstehr/rampart/rampart-core/board"
	"github.com/nstehr/rampart/rampart-core/model"
	"github.com/nstehr/rampart/rampart-core/pathing"
)

var (
	// ErrIllegalPlacement wraps the reason a placement or removal was refused.
	ErrIllegalPlacement = errors.New("illegal placement")

	// ErrAlreadySubmitted is returned by every mutation after Submit.
	ErrAlreadySubmitted = errors.New("turn already submitted")
)

// Resource selects one of a player's two pools.
type Resource int

const (
	Bits  Resource = 0 // buys mobile units
	Cores Resource = 1 // buys stationary units
)

func (r Resource) String() string {
	if r == Cores {
		return "cores"
	}
	return "bits"
}

// Resources is one player's pools.
type Resources struct {
	Cores float64
	Bits  float64
}

func (r Resources) get(kind Resource) float64 {
	if kind == Cores {
		return r.Cores
	}
	return r.Bits
}

func (r *Resources) add(kind Resource, amount float64) {
	if kind == Cores {
		r.Cores += amount
	} else {
		r.Bits += amount
	}
}

// Intent is one pending build, deploy or remove order.
type Intent struct {
	Type model.UnitType
	X    int
	Y    int
}

func (i Intent) Cell() model.Cell { return model.Cell{X: i.X, Y: i.Y} }

// Submitter delivers one command line to the engine.
type Submitter interface {
	SendCommand(v any) error
}

// Ledger is the legal state of one turn from our side: both players' pools, the
// board, and the orders accumulated so far. It is built fresh from each
// turn-start payload and ends when Submit flushes the queues.
type Ledger struct {
	cat   *model.Catalog
	cfg   model.Config
	board *board.Board

	turn      int
	stats     [2]model.Stats
	resources [2]Resources
	breaches  []model.BreachEvent

	build  []Intent
	deploy []Intent

	protected []bool // no removal
	forbidden []bool // no building

	submitted bool
}

// New builds the turn ledger from the turn-start payload.
func New(cat *model.Catalog, cfg model.Config, gs model.GameState) (*Ledger, error) {
	if cat == nil {
		return nil, fmt.Errorf("%w: nil catalog", model.ErrInvalidArgument)
	}
	b := board.New(model.ArenaSize)
	l := &Ledger{
		cat:       cat,
		cfg:       cfg,
		board:     b,
		turn:      gs.Turn,
		stats:     gs.Stats,
		breaches:  gs.Events.Breach,
		build:     []Intent{},
		deploy:    []Intent{},
		protected: make([]bool, model.ArenaSize*model.ArenaSize),
		forbidden: make([]bool, model.ArenaSize*model.ArenaSize),
	}
	for p := range 2 {
		l.resources[p] = Resources{Cores: gs.Stats[p].Cores, Bits: gs.Stats[p].Bits}
		if err := l.addParsedUnits(gs, p); err != nil {
			return nil, err
		}
	}
	return l, nil
}

// addParsedUnits places one player's listed units. Remove entries come last in
// the payload, so the firewall they flag is already on the board.
func (l *Ledger) addParsedUnits(gs model.GameState, player int) error {
	for t := model.Filter; t <= model.Remove; t++ {
		for _, e := range gs.Units[player][t] {
			if t == model.Remove && !l.board.MarkPendingRemoval(e.Cell()) {
				slog.Error("remove entry without a firewall", "player", player, "cell", e.Cell())
			}
			u := board.Unit{Type: t, Owner: player, HP: e.HP, X: e.X, Y: e.Y, ID: e.ID}
			if err := l.board.AddUnit(u); err != nil {
				return fmt.Errorf("%w: turn %d: %v", model.ErrProtocol, gs.Turn, err)
			}
		}
	}
	return nil
}

func (l *Ledger) Catalog() *model.Catalog       { return l.cat }
func (l *Ledger) Config() model.Config          { return l.cfg }
func (l *Ledger) Board() *board.Board           { return l.board }
func (l *Ledger) Turn() int                     { return l.turn }
func (l *Ledger) Breaches() []model.BreachEvent { return l.breaches }
func (l *Ledger) Submitted() bool               { return l.submitted }
func (l *Ledger) Health(player int) float64     { return l.stat(player).Health }
func (l *Ledger) TimeUsed(player int) float64   { return l.stat(player).Time }

// Stats returns a player's turn-start stats as the engine sent them. Unlike
// Resources it does not reflect this turn's spending.
func (l *Ledger) Stats(player int) model.Stats { return l.stat(player) }

func (l *Ledger) stat(player int) model.Stats {
	if !model.ValidPlayer(player) {
		return model.Stats{}
	}
	return l.stats[player]
}

// Resource returns a player's pool of the given kind.
func (l *Ledger) Resource(kind Resource, player int) (float64, error) {
	if err := model.CheckPlayer(player); err != nil {
		return 0, err
	}
	if kind != Bits && kind != Cores {
		return 0, fmt.Errorf("%w: resource kind %d", model.ErrInvalidArgument, int(kind))
	}
	return l.resources[player].get(kind), nil
}

// Resources returns a copy of a player's pools; zero for invalid players.
func (l *Ledger) Resources(player int) Resources {
	if !model.ValidPlayer(player) {
		return Resources{}
	}
	return l.resources[player]
}

// ResourceFor returns the pool that pays for t.
func ResourceFor(t model.UnitType) Resource {
	if t.Stationary() {
		return Cores
	}
	return Bits
}

// Cost returns the price of t.
func (l *Ledger) Cost(t model.UnitType) (float64, error) {
	return l.cat.Cost(t)
}

// AffordableCount is floor(pool / cost) for our own pool.
func (l *Ledger) AffordableCount(t model.UnitType) (int, error) {
	cost, err := l.priced(t)
	if err != nil {
		return 0, err
	}
	held := l.resources[0].get(ResourceFor(t))
	return int(math.Floor(held / cost)), nil
}

// priced validates that t is a purchasable unit and returns its cost.
func (l *Ledger) priced(t model.UnitType) (float64, error) {
	cost, err := l.cat.Cost(t)
	if err != nil {
		return 0, err
	}
	if t == model.Remove {
		return 0, fmt.Errorf("%w: %s is not a placeable unit", model.ErrInvalidArgument, l.cat.Name(t))
	}
	if cost <= 0 {
		return 0, fmt.Errorf("%w: %s has non-positive cost %v", model.ErrInvalidArgument, l.cat.Name(t), cost)
	}
	return cost, nil
}

func (l *Ledger) checkArgs(t model.UnitType, count int) (float64, error) {
	cost, err := l.priced(t)
	if err != nil {
		return 0, err
	}
	if count < 1 {
		return 0, fmt.Errorf("%w: count %d, want at least 1", model.ErrInvalidArgument, count)
	}
	return cost, nil
}

// CanPlace reports whether count units of t can be placed at c right now.
// The error is non-nil only for invalid arguments.
func (l *Ledger) CanPlace(t model.UnitType, c model.Cell, count int) (bool, error) {
	if _, err := l.checkArgs(t, count); err != nil {
		return false, err
	}
	return l.placementReason(t, c, count) == nil, nil
}

// Check is CanPlace with the refusal reason, wrapped in ErrIllegalPlacement.
func (l *Ledger) Check(t model.UnitType, c model.Cell, count int) error {
	if _, err := l.checkArgs(t, count); err != nil {
		return err
	}
	return l.placementReason(t, c, count)
}

func (l *Ledger) placementReason(t model.UnitType, c model.Cell, count int) error {
	if l.submitted {
		return ErrAlreadySubmitted
	}
	if !l.board.InBounds(c) {
		return fmt.Errorf("%w: %s is outside the arena", ErrIllegalPlacement, c)
	}
	affordable, err := l.AffordableCount(t)
	if err != nil {
		return err
	}
	if affordable < count {
		return fmt.Errorf("%w: can afford %d %s, want %d", ErrIllegalPlacement, affordable, l.cat.Name(t), count)
	}
	if !l.board.OwnHalf(c, 0) {
		return fmt.Errorf("%w: %s is enemy territory", ErrIllegalPlacement, c)
	}
	if l.board.Blocked(c) || (t.Stationary() && len(l.board.UnitsAt(c)) > 0) {
		return fmt.Errorf("%w: %s is blocked", ErrIllegalPlacement, c)
	}
	if t.Mobile() && !l.board.OnEdge(c, board.BottomLeft, board.BottomRight) {
		return fmt.Errorf("%w: %s is not a deploy edge", ErrIllegalPlacement, c)
	}
	if t.Stationary() && count != 1 {
		return fmt.Errorf("%w: stationary units are placed one per cell", ErrIllegalPlacement)
	}
	if l.Forbidden(c) {
		return fmt.Errorf("%w: %s is marked no-build", ErrIllegalPlacement, c)
	}
	return nil
}

// Place attempts count placements of t at each cell. Refused attempts are
// logged and skipped; the rest of the batch still runs. Returns the number of
// units placed. The error is non-nil only for invalid arguments or a ledger
// that was already submitted.
func (l *Ledger) Place(t model.UnitType, cells []model.Cell, count int) (int, error) {
	if l.submitted {
		return 0, ErrAlreadySubmitted
	}
	cost, err := l.checkArgs(t, count)
	if err != nil {
		return 0, err
	}
	kind := ResourceFor(t)
	placed := 0
	for _, c := range cells {
		for i := range count {
			if err := l.placementReason(t, c, 1); err != nil {
				slog.Warn("could not place unit", "type", l.cat.Name(t), "number", i, "cell", c, "reason", err)
				continue
			}
			l.resources[0].add(kind, -cost)
			u := board.Unit{Type: t, Owner: 0, HP: l.cat.Stability(t), X: c.X, Y: c.Y}
			if err := l.board.AddUnit(u); err != nil {
				// placementReason already checked bounds and occupancy
				l.resources[0].add(kind, cost)
				slog.Error("board rejected checked placement", "cell", c, "error", err)
				continue
			}
			intent := Intent{Type: t, X: c.X, Y: c.Y}
			if t.Stationary() {
				l.build = append(l.build, intent)
			} else {
				l.deploy = append(l.deploy, intent)
			}
			placed++
		}
	}
	return placed, nil
}

// RevokePlacement undoes up to count pending placements of t at each cell,
// newest first, refunding their cost. Returns the number revoked.
func (l *Ledger) RevokePlacement(t model.UnitType, cells []model.Cell, count int) (int, error) {
	if l.submitted {
		return 0, ErrAlreadySubmitted
	}
	cost, err := l.checkArgs(t, count)
	if err != nil {
		return 0, err
	}
	queue := &l.deploy
	if t.Stationary() {
		queue = &l.build
	}
	revoked := 0
	for _, c := range cells {
		for i := range count {
			idx := lastIndex(*queue, Intent{Type: t, X: c.X, Y: c.Y})
			if idx < 0 {
				slog.Warn("could not revoke placement", "type", l.cat.Name(t), "number", i, "cell", c)
				break
			}
			*queue = append((*queue)[:idx], (*queue)[idx+1:]...)
			l.board.RemoveUnit(c, t)
			l.resources[0].add(ResourceFor(t), cost)
			revoked++
		}
	}
	return revoked, nil
}

func lastIndex(queue []Intent, want Intent) int {
	for i := len(queue) - 1; i >= 0; i-- {
		if queue[i] == want {
			return i
		}
	}
	return -1
}

// Remove queues removal of our firewalls at cells. Cells on the enemy half,
// cells without a firewall, protected cells and cells already queued are
// refused with a warning. Returns the number of removals queued.
func (l *Ledger) Remove(cells []model.Cell) (int, error) {
	if l.submitted {
		return 0, ErrAlreadySubmitted
	}
	removed := 0
	for _, c := range cells {
		if err := l.removalReason(c); err != nil {
			slog.Warn("could not remove unit", "cell", c, "reason", err)
			continue
		}
		l.build = append(l.build, Intent{Type: model.Remove, X: c.X, Y: c.Y})
		l.board.MarkPendingRemoval(c)
		removed++
	}
	return removed, nil
}

func (l *Ledger) removalReason(c model.Cell) error {
	if !l.board.InBounds(c) {
		return fmt.Errorf("%w: %s is outside the arena", ErrIllegalPlacement, c)
	}
	if !l.board.OwnHalf(c, 0) {
		return fmt.Errorf("%w: %s is enemy territory", ErrIllegalPlacement, c)
	}
	u, ok := l.board.StationaryAt(c)
	if !ok || u.Owner != 0 {
		return fmt.Errorf("%w: %s has no firewall", ErrIllegalPlacement, c)
	}
	if l.Protected(c) {
		return fmt.Errorf("%w: %s is protected from removal", ErrIllegalPlacement, c)
	}
	if lastIndex(l.build, Intent{Type: model.Remove, X: c.X, Y: c.Y}) >= 0 {
		return fmt.Errorf("%w: %s is already queued for removal", ErrIllegalPlacement, c)
	}
	return nil
}

// StationaryAt returns the firewall at c, if any.
func (l *Ledger) StationaryAt(c model.Cell) (board.Unit, bool) {
	return l.board.StationaryAt(c)
}

// ProjectFutureBits predicts a player's bits turnsAhead turns from now. A non-nil
// override replaces the player's current bits as the starting value.
func (l *Ledger) ProjectFutureBits(turnsAhead, player int, override *float64) (float64, error) {
	if turnsAhead < 1 || turnsAhead > 99 {
		return 0, fmt.Errorf("%w: turns ahead %d, want 1..99", model.ErrInvalidArgument, turnsAhead)
	}
	if err := model.CheckPlayer(player); err != nil {
		return 0, err
	}
	bits := l.resources[player].Bits
	if override != nil {
		if *override < 0 {
			return 0, fmt.Errorf("%w: negative starting bits %v", model.ErrInvalidArgument, *override)
		}
		bits = *override
	}
	return model.ProjectBits(l.cfg.Resources, l.turn, bits, turnsAhead), nil
}

// BuildQueue returns a copy of the pending build and remove orders.
func (l *Ledger) BuildQueue() []Intent { return append([]Intent{}, l.build...) }

// DeployQueue returns a copy of the pending deploy orders.
func (l *Ledger) DeployQueue() []Intent { return append([]Intent{}, l.deploy...) }

// Submit sends the build queue and then the deploy queue, each as one JSON
// array of [shorthand, x, y]. It succeeds at most once per ledger.
func (l *Ledger) Submit(s Submitter) error {
	if l.submitted {
		return ErrAlreadySubmitted
	}
	build, err := l.encode(l.build)
	if err != nil {
		return err
	}
	deploy, err := l.encode(l.deploy)
	if err != nil {
		return err
	}

	// Marked before sending: a half-written submission must not be retried.
	l.submitted = true
	if err := s.SendCommand(build); err != nil {
		return fmt.Errorf("send build queue: %w", err)
	}
	if err := s.SendCommand(deploy); err != nil {
		return fmt.Errorf("send deploy queue: %w", err)
	}
	slog.Info("turn submitted", "turn", l.turn, "builds", len(l.build), "deploys", len(l.deploy))
	return nil
}

func (l *Ledger) encode(queue []Intent) ([][]any, error) {
	out := make([][]any, 0, len(queue))
	for _, in := range queue {
		code, err := l.cat.Shorthand(in.Type)
		if err != nil {
			return nil, err
		}
		out = append(out, []any{code, in.X, in.Y})
	}
	return out, nil
}

// SetProtected marks or clears cells that Remove must refuse.
func (l *Ledger) SetProtected(cells []model.Cell, on bool) { l.setOverlay(l.protected, cells, on) }

// SetForbidden marks or clears cells where nothing may be built.
func (l *Ledger) SetForbidden(cells []model.Cell, on bool) { l.setOverlay(l.forbidden, cells, on) }

func (l *Ledger) ResetProtected() { clear(l.protected) }
func (l *Ledger) ResetForbidden() { clear(l.forbidden) }

func (l *Ledger) Protected(c model.Cell) bool { return l.overlayAt(l.protected, c) }
func (l *Ledger) Forbidden(c model.Cell) bool { return l.overlayAt(l.forbidden, c) }

// InheritOverlays copies the protected and forbidden marks of a previous turn.
func (l *Ledger) InheritOverlays(prev *Ledger) {
	if prev == nil {
		return
	}
	copy(l.protected, prev.protected)
	copy(l.forbidden, prev.forbidden)
}

func (l *Ledger) setOverlay(overlay []bool, cells []model.Cell, on bool) {
	for _, c := range cells {
		if !l.board.InBounds(c) {
			slog.Warn("overlay cell out of bounds", "cell", c)
			continue
		}
		overlay[c.Y*model.ArenaSize+c.X] = on
	}
}

func (l *Ledger) overlayAt(overlay []bool, c model.Cell) bool {
	if !l.board.InBounds(c) {
		return false
	}
	return overlay[c.Y*model.ArenaSize+c.X]
}

// PathToEdge is the path a mobile unit spawned at start would take toward edge
// given the board as it stands, including this turn's pending placements.
func (l *Ledger) PathToEdge(start model.Cell, edge board.Edge) ([]model.Cell, error) {
	return pathing.ShortestPath(l.board, start, edge)
}

// FrontierLine is the cheapest wall line across the player's half.
func (l *Ledger) FrontierLine(player int) ([]model.Cell, error) {
	return pathing.FrontierLine(l.board, player)
}
