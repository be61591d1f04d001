package notify

import (
	"sync"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/officehub/console/internal/view"
	"go.uber.org/zap"
)

type Kind string

const (
	KindInfo    Kind = "info"
	KindSuccess Kind = "success"
	KindWarning Kind = "warning"
	KindError   Kind = "error"
)

const (
	ContainerID = "toast-container"

	DefaultDismissAfter = 5 * time.Second
)

type Toast struct {
	ID      string
	Title   string
	Message string
	Kind    Kind
}

// Presenter renders transient toasts into the view document. Toasts are
// independent: no dedup, no cap, append order. Each toast auto-dismisses
// after the configured window unless paused (hover) or closed.
type Presenter struct {
	logger       *zap.Logger
	document     *view.Document
	dismissAfter time.Duration

	mu        sync.Mutex
	timers    map[string]*time.Timer
	listeners []func(Toast)
}

func NewPresenter(logger *zap.Logger, document *view.Document, dismissAfter time.Duration) *Presenter {
	if dismissAfter <= 0 {
		dismissAfter = DefaultDismissAfter
	}

	return &Presenter{
		logger:       logger,
		document:     document,
		dismissAfter: dismissAfter,
		timers:       make(map[string]*time.Timer),
	}
}

// Subscribe registers fn to observe every toast as it is shown.
func (p *Presenter) Subscribe(fn func(Toast)) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.listeners = append(p.listeners, fn)
}

// Show renders one dismissible toast and returns its id. The container
// is created on first use, so Show is safe at any point in page life.
func (p *Presenter) Show(title, message string, kind Kind) string {
	p.ensureContainer()

	toast := Toast{
		ID:      "toast-" + gonanoid.Must(),
		Title:   title,
		Message: message,
		Kind:    kind,
	}

	node := view.NewNode("div").
		WithID(toast.ID).
		WithClass("toast", "toast-"+string(kind)).
		WithChildren(
			view.NewNode("h4").WithText(title),
			view.NewNode("p").WithText(message),
		)

	if err := p.document.Append(ContainerID, node); err != nil {
		p.logger.Warn("failed to mount toast", zap.Error(err))
		return toast.ID
	}

	p.mu.Lock()
	p.timers[toast.ID] = time.AfterFunc(p.dismissAfter, func() {
		p.Close(toast.ID)
	})
	listeners := make([]func(Toast), len(p.listeners))
	copy(listeners, p.listeners)
	p.mu.Unlock()

	p.logger.Info("notification",
		zap.String("kind", string(kind)),
		zap.String("title", title),
		zap.String("message", message))

	for _, fn := range listeners {
		fn(toast)
	}

	return toast.ID
}

// Pause halts the auto-dismiss timer for id (mouse enter).
func (p *Presenter) Pause(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if timer, ok := p.timers[id]; ok {
		timer.Stop()
	}
}

// Resume restarts the dismiss window for id from scratch (mouse leave).
func (p *Presenter) Resume(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if timer, ok := p.timers[id]; ok {
		timer.Reset(p.dismissAfter)
	}
}

// Close removes the toast immediately. Closing an already-dismissed
// toast is a no-op.
func (p *Presenter) Close(id string) {
	p.mu.Lock()
	if timer, ok := p.timers[id]; ok {
		timer.Stop()
		delete(p.timers, id)
	}
	p.mu.Unlock()

	p.document.Remove(id)
}

// Visible reports whether the toast for id is still mounted.
func (p *Presenter) Visible(id string) bool {
	return p.document.Lookup(id) != nil
}

func (p *Presenter) ensureContainer() {
	if p.document.Lookup(ContainerID) != nil {
		return
	}

	container := view.NewNode("div").
		WithID(ContainerID).
		WithClass("toasts")

	if err := p.document.Append("", container); err != nil {
		p.logger.Warn("failed to create toast container", zap.Error(err))
	}
}
