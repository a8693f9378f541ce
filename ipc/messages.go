package ipc

import "github.com/nstehr/rampart/rampart-core/model"

// Kind classifies one line from the engine. Turn lines carry their phase in
// turnInfo[0]; the config line is the only one without turnInfo.
type Kind int

const (
	KindConfig Kind = iota - 1
	KindTurnStart
	KindActionFrame
	KindGameOver
)

func (k Kind) String() string {
	switch k {
	case KindConfig:
		return "config"
	case KindTurnStart:
		return "turn_start"
	case KindActionFrame:
		return "action_frame"
	case KindGameOver:
		return "game_over"
	}
	return "unknown"
}

// phaseKinds must stay in sync with the model phase constants.
var phaseKinds = map[int]Kind{
	model.PhaseTurnStart:   KindTurnStart,
	model.PhaseActionFrame: KindActionFrame,
	model.PhaseGameOver:    KindGameOver,
}
