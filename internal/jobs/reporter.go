package jobs

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type EventKind string

const (
	EventOfferCreated       EventKind = "offer_created"
	EventOfferUpdated       EventKind = "offer_updated"
	EventOfferDeleted       EventKind = "offer_deleted"
	EventOffersExpired      EventKind = "offers_expired"
	EventApplicationCreated EventKind = "application_created"
	EventApplicationStatus  EventKind = "application_status_changed"
	EventApplicationCancel  EventKind = "application_cancelled"
	EventUserRegistered     EventKind = "user_registered"
	EventUserBanned         EventKind = "user_banned"
	EventUserUnbanned       EventKind = "user_unbanned"
	EventProfileUpdated     EventKind = "profile_updated"
	EventPasswordChanged    EventKind = "password_changed"
	EventUserDeleted        EventKind = "user_deleted"
	EventCommandRejected    EventKind = "command_rejected"
)

// Event describes a completed or rejected command.
type Event struct {
	Kind    EventKind
	ActorID uuid.UUID
	// SubjectID is the offer, application or user the command acted on.
	SubjectID uuid.UUID
	// Status is the resulting status for status changes, or the error code
	// for rejected commands.
	Status string
	Count  int64
}

// Reporter observes service events. Implementations must not block.
type Reporter interface {
	Report(ctx context.Context, event Event)
}

// NopReporter discards events.
type NopReporter struct{}

func (NopReporter) Report(context.Context, Event) {}

// LogReporter writes events at debug level.
type LogReporter struct {
	Logger *zap.Logger
}

func (r LogReporter) Report(_ context.Context, event Event) {
	r.Logger.Debug("Domain event",
		zap.String("kind", string(event.Kind)),
		zap.String("actor_id", event.ActorID.String()),
		zap.String("subject_id", event.SubjectID.String()),
		zap.String("status", event.Status),
		zap.Int64("count", event.Count),
	)
}

// MultiReporter fans an event out to every reporter in order.
type MultiReporter []Reporter

func (m MultiReporter) Report(ctx context.Context, event Event) {
	for _, r := range m {
		r.Report(ctx, event)
	}
}
