package supervising

import (
	"fmt"

	"github.com/contre95/pew/src/reload"
)

var transitions = map[reload.State][]reload.State{
	reload.Stopped:  {reload.Starting},
	reload.Starting: {reload.Running, reload.Crashed},
	reload.Running:  {reload.Stopping, reload.Crashed},
	reload.Stopping: {reload.Stopped},
	reload.Crashed:  {reload.Stopped},
}

func canTransition(from, to reload.State) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// setStateLocked must be called with s.mu held.
func (s *Supervisor) setStateLocked(to reload.State) {
	from := s.state
	if !canTransition(from, to) {
		panic(fmt.Sprintf("supervisor: invalid transition %s -> %s", from, to))
	}
	s.state = to
	s.metrics.ObserveState(to)
	s.logger.Debug("Process state changed", "from", from.String(), "to", to.String())
}
