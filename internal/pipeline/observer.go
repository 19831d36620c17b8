package pipeline

import (
	"sync"

	"github.com/nao1215/nodescan/internal/model"
)

// Observer receives scan events. Every field is optional.
// The Scheduler serializes calls, so callbacks need no locking of their
// own, but they must not block for long: in the parallel strategy
// OnProgress runs while the checkpoint lock is held.
type Observer struct {
	// OnProgress reports completed nodes out of the range total.
	OnProgress func(completed, total int)

	// OnLog receives human-readable status lines such as "Working on node 12".
	OnLog func(line string)

	// OnOutcome receives the outcome of every existing node in mode all.
	OnOutcome func(outcome model.NodeOutcome)

	// OnDone is called once when Run returns; completed is false when the
	// scan stopped early.
	OnDone func(completed bool)
}

// notifier serializes Observer calls.
type notifier struct {
	mu       sync.Mutex
	observer Observer
}

func (n *notifier) progress(completed, total int) {
	if n.observer.OnProgress == nil {
		return
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	n.observer.OnProgress(completed, total)
}

func (n *notifier) log(line string) {
	if n.observer.OnLog == nil {
		return
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	n.observer.OnLog(line)
}

func (n *notifier) outcome(o model.NodeOutcome) {
	if n.observer.OnOutcome == nil {
		return
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	n.observer.OnOutcome(o)
}

func (n *notifier) done(completed bool) {
	if n.observer.OnDone == nil {
		return
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	n.observer.OnDone(completed)
}
