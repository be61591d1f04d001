package notify

import (
	"sync"

	"github.com/officehub/console/internal/view"
	"go.uber.org/zap"
)

const IndicatorID = "connection-status"

// Indicator is the persistent connection-status badge. The badge node is
// created exactly once and restyled in place on state changes.
type Indicator struct {
	logger   *zap.Logger
	document *view.Document

	mu        sync.Mutex
	listeners []func(bool)
}

func NewIndicator(logger *zap.Logger, document *view.Document) *Indicator {
	return &Indicator{
		logger:   logger,
		document: document,
	}
}

func (i *Indicator) Subscribe(fn func(connected bool)) {
	i.mu.Lock()
	defer i.mu.Unlock()

	i.listeners = append(i.listeners, fn)
}

func (i *Indicator) Set(connected bool) {
	i.ensureBadge()

	i.document.Update(IndicatorID, func(n *view.Node) {
		if connected {
			n.RemoveClass("status-disconnected")
			n.AddClass("status-connected")
		} else {
			n.RemoveClass("status-connected")
			n.AddClass("status-disconnected")
		}
		n.Text = statusText(connected)
	})

	i.logger.Debug("connection indicator updated", zap.Bool("connected", connected))

	i.mu.Lock()
	listeners := make([]func(bool), len(i.listeners))
	copy(listeners, i.listeners)
	i.mu.Unlock()

	for _, fn := range listeners {
		fn(connected)
	}
}

// Connected reports the state the badge currently shows.
func (i *Indicator) Connected() bool {
	node := i.document.Lookup(IndicatorID)

	return node != nil && node.HasClass("status-connected")
}

func (i *Indicator) ensureBadge() {
	if i.document.Lookup(IndicatorID) != nil {
		return
	}

	badge := view.NewNode("div").
		WithID(IndicatorID).
		WithClass("status-badge", "status-disconnected").
		WithText(statusText(false))

	if err := i.document.Append("", badge); err != nil {
		i.logger.Warn("failed to create connection indicator", zap.Error(err))
	}
}

func statusText(connected bool) string {
	if connected {
		return "Connected"
	}

	return "Disconnected"
}
