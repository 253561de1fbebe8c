package metrics

import (
	"time"

	"github.com/weft-ui/weft/pkg/weft"
)

// Fanout combines observers; every observation goes to each in order.
func Fanout(observers ...weft.Observer) weft.Observer {
	return fanout(observers)
}

type fanout []weft.Observer

func (f fanout) ObserveRender(component string, lane weft.Lane, d time.Duration) {
	for _, o := range f {
		o.ObserveRender(component, lane, d)
	}
}

func (f fanout) ObserveCommit(phase weft.CommitPhase, effects int) {
	for _, o := range f {
		o.ObserveCommit(phase, effects)
	}
}

func (f fanout) ObserveFlush(d time.Duration) {
	for _, o := range f {
		o.ObserveFlush(d)
	}
}
