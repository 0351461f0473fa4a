package notify

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/milanapp/engine/internal/domain/model"
	pgrepo "github.com/milanapp/engine/internal/repo/postgres"
)

var ErrDependenciesNil = errors.New("notify dependencies are not configured")

type Store interface {
	Insert(ctx context.Context, params pgrepo.InsertNotificationParams, now time.Time) (model.Notification, error)
}

type Event struct {
	ProfileID      int64
	ActorProfileID int64
	Kind           string
	SubjectKind    string
	SubjectID      int64
}

// Notifier delivers engine events into the notification inbox off the
// request path. Enqueue never blocks a state transition: when the queue is
// full the event is dropped with a warning, since inbox entries are
// best-effort while the transition itself is already committed.
type Notifier struct {
	store Store
	log   *zap.Logger
	queue chan Event
	now   func() time.Time
}

func NewNotifier(store Store, log *zap.Logger, queueSize int) *Notifier {
	if log == nil {
		log = zap.NewNop()
	}
	if queueSize <= 0 {
		queueSize = 256
	}

	return &Notifier{
		store: store,
		log:   log,
		queue: make(chan Event, queueSize),
		now:   time.Now,
	}
}

func (n *Notifier) Enqueue(event Event) {
	if event.ProfileID <= 0 || event.Kind == "" {
		return
	}

	select {
	case n.queue <- event:
	default:
		n.log.Warn("notification queue full, dropping event",
			zap.Int64("profile_id", event.ProfileID),
			zap.String("kind", event.Kind),
		)
	}
}

// Run consumes the queue until the context is cancelled, then drains what
// is already buffered.
func (n *Notifier) Run(ctx context.Context) error {
	if n.store == nil {
		return ErrDependenciesNil
	}

	for {
		select {
		case <-ctx.Done():
			n.drain()
			return ctx.Err()
		case event := <-n.queue:
			n.deliver(event)
		}
	}
}

func (n *Notifier) drain() {
	for {
		select {
		case event := <-n.queue:
			n.deliver(event)
		default:
			return
		}
	}
}

func (n *Notifier) deliver(event Event) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := n.store.Insert(ctx, pgrepo.InsertNotificationParams{
		ProfileID:      event.ProfileID,
		ActorProfileID: event.ActorProfileID,
		Kind:           event.Kind,
		SubjectKind:    event.SubjectKind,
		SubjectID:      event.SubjectID,
	}, n.now().UTC())
	if err != nil {
		n.log.Error("deliver notification",
			zap.Int64("profile_id", event.ProfileID),
			zap.String("kind", event.Kind),
			zap.Error(err),
		)
	}
}
