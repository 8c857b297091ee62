package identity

import (
	"context"
	"time"
)

// ActivityEventType enumerates supported activity categories.
type ActivityEventType string

const (
	ActivityEventUserCreated  ActivityEventType = "identity.user.created"
	ActivityEventLoginSuccess ActivityEventType = "identity.login.success"
	ActivityEventLoginFailure ActivityEventType = "identity.login.failure"
)

// ActivityEvent captures audit-friendly information about an action.
// Reconciliation returns pending events instead of performing side
// effects inline; a Dispatcher delivers them best-effort.
type ActivityEvent struct {
	EventType  ActivityEventType
	UserID     string
	Email      string
	Name       string
	Metadata   map[string]any
	OccurredAt time.Time
}

// ActivitySink consumes activity events for auditing/telemetry purposes.
type ActivitySink interface {
	Record(ctx context.Context, event ActivityEvent) error
}

// ActivitySinkFunc adapts a function to the ActivitySink interface.
type ActivitySinkFunc func(ctx context.Context, event ActivityEvent) error

// Record implements ActivitySink.
func (f ActivitySinkFunc) Record(ctx context.Context, event ActivityEvent) error {
	if f == nil {
		return nil
	}
	return f(ctx, event)
}

type noopActivitySink struct{}

func (noopActivitySink) Record(context.Context, ActivityEvent) error {
	return nil
}

func normalizeActivitySink(s ActivitySink) ActivitySink {
	if s == nil {
		return noopActivitySink{}
	}
	return s
}

// UserCreatedHook is the post-creation notification consumer.
type UserCreatedHook interface {
	OnUserCreated(ctx context.Context, email, name string) error
}

// UserCreatedHookFunc adapts a function to the UserCreatedHook interface.
type UserCreatedHookFunc func(ctx context.Context, email, name string) error

// OnUserCreated implements UserCreatedHook.
func (f UserCreatedHookFunc) OnUserCreated(ctx context.Context, email, name string) error {
	if f == nil {
		return nil
	}
	return f(ctx, email, name)
}

// AnalyticsTracker receives fire-and-forget analytics events.
type AnalyticsTracker interface {
	Track(ctx context.Context, event string, payload map[string]any) error
}

// Dispatcher delivers pending activity events to the configured hook,
// tracker, and sink. Delivery is best-effort: failures are logged and
// never propagate to the reconciliation caller.
type Dispatcher struct {
	hook    UserCreatedHook
	tracker AnalyticsTracker
	sink    ActivitySink
	logger  Logger
}

// NewDispatcher returns a Dispatcher with no-op consumers.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{
		sink:   noopActivitySink{},
		logger: defLogger{},
	}
}

func (d *Dispatcher) WithUserCreatedHook(hook UserCreatedHook) *Dispatcher {
	d.hook = hook
	return d
}

func (d *Dispatcher) WithAnalyticsTracker(tracker AnalyticsTracker) *Dispatcher {
	d.tracker = tracker
	return d
}

func (d *Dispatcher) WithActivitySink(sink ActivitySink) *Dispatcher {
	d.sink = normalizeActivitySink(sink)
	return d
}

func (d *Dispatcher) WithLogger(logger Logger) *Dispatcher {
	d.logger = logger
	return d
}

// Dispatch delivers each event. Safe to call with a nil receiver or an
// empty slice.
func (d *Dispatcher) Dispatch(ctx context.Context, events []ActivityEvent) {
	if d == nil || len(events) == 0 {
		return
	}

	for _, event := range events {
		d.dispatch(ctx, event)
	}
}

func (d *Dispatcher) dispatch(ctx context.Context, event ActivityEvent) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now()
	}

	if err := normalizeActivitySink(d.sink).Record(ctx, event); err != nil {
		d.logger.Warn("activity sink record error for %s: %v", event.EventType, err)
	}

	if d.tracker != nil {
		payload := map[string]any{
			"user_id":  event.UserID,
			"email":    event.Email,
			"provider": event.Metadata["provider"],
		}
		if err := d.tracker.Track(ctx, string(event.EventType), payload); err != nil {
			d.logger.Warn("analytics track error for %s: %v", event.EventType, err)
		}
	}

	if event.EventType == ActivityEventUserCreated && d.hook != nil {
		if err := d.hook.OnUserCreated(ctx, event.Email, event.Name); err != nil {
			d.logger.Warn("user created hook error for %s: %v", event.Email, err)
		}
	}
}
