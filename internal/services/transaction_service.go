package services

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"savings/internal/amqp"
	"savings/internal/core"
	"savings/internal/session"
	"savings/internal/store"
)

// EventPublisher announces committed transaction changes.
type EventPublisher interface {
	PublishTransactionEvent(ctx context.Context, msg *amqp.TransactionEvent) error
}

// TransactionService wraps a Remote Store with tracing and change events.
// Events are best effort: a publish failure never fails the mutation.
type TransactionService struct {
	store     store.Store
	publisher EventPublisher
	tracer    trace.Tracer
}

var _ store.Store = (*TransactionService)(nil)

// NewTransactionService creates the decorator. publisher may be nil.
func NewTransactionService(s store.Store, publisher EventPublisher) *TransactionService {
	return &TransactionService{
		store:     s,
		publisher: publisher,
		tracer:    otel.Tracer("savings/internal/services"),
	}
}

func (s *TransactionService) List(ctx context.Context, userID string) ([]core.Transaction, error) {
	ctx, span := s.tracer.Start(ctx, "store.List", trace.WithAttributes(attribute.String("user_id", userID)))
	defer span.End()

	txs, err := s.store.List(ctx, userID)
	if err != nil {
		return nil, fail(span, fmt.Errorf("list transactions: %w", err))
	}
	span.SetAttributes(attribute.Int("transactions", len(txs)))
	return txs, nil
}

func (s *TransactionService) Insert(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	ctx, span := s.tracer.Start(ctx, "store.Insert", trace.WithAttributes(
		attribute.String("user_id", t.UserID),
		attribute.String("type", string(t.Type)),
	))
	defer span.End()

	created, err := s.store.Insert(ctx, t)
	if err != nil {
		return core.Transaction{}, fail(span, fmt.Errorf("insert transaction: %w", err))
	}
	span.SetAttributes(attribute.String("transaction_id", created.ID))
	s.publish(ctx, amqp.TransactionCreated, created.ID, created.UserID)
	return created, nil
}

func (s *TransactionService) Update(ctx context.Context, id string, p core.Patch) (core.Transaction, error) {
	ctx, span := s.tracer.Start(ctx, "store.Update", trace.WithAttributes(attribute.String("transaction_id", id)))
	defer span.End()

	updated, err := s.store.Update(ctx, id, p)
	if err != nil {
		return core.Transaction{}, fail(span, fmt.Errorf("update transaction %s: %w", id, err))
	}
	s.publish(ctx, amqp.TransactionUpdated, updated.ID, updated.UserID)
	return updated, nil
}

func (s *TransactionService) Delete(ctx context.Context, id string) error {
	ctx, span := s.tracer.Start(ctx, "store.Delete", trace.WithAttributes(attribute.String("transaction_id", id)))
	defer span.End()

	if err := s.store.Delete(ctx, id); err != nil {
		return fail(span, fmt.Errorf("delete transaction %s: %w", id, err))
	}
	userID := ""
	if sess, ok := session.FromContext(ctx); ok {
		userID = sess.UserID
	}
	s.publish(ctx, amqp.TransactionDeleted, id, userID)
	return nil
}

func (s *TransactionService) publish(ctx context.Context, kind amqp.EventKind, id, userID string) {
	if s.publisher == nil {
		slog.DebugContext(ctx, "AMQP publisher not available, skipping event", "kind", kind, "transaction_id", id)
		return
	}
	if err := s.publisher.PublishTransactionEvent(ctx, amqp.NewTransactionEvent(kind, id, userID)); err != nil {
		slog.ErrorContext(ctx, "Failed to publish transaction event",
			"kind", kind, "transaction_id", id, "error", err)
	}
}

func fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
