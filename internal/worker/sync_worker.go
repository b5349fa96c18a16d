package worker

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"savings/internal/amqp"
	"savings/internal/core"
	"savings/internal/log"
	"savings/internal/store"
)

// Replica receives copies of committed transactions under their original ids.
type Replica interface {
	Upsert(ctx context.Context, t core.Transaction) error
	Delete(ctx context.Context, id string) error
}

// SyncStats counts what the worker has applied so far.
type SyncStats struct {
	Upserted int64
	Deleted  int64
	Skipped  int64
	Failed   int64
}

// SyncWorker mirrors the primary store into a replica, driven by change events.
type SyncWorker struct {
	source  store.Lister
	replica Replica
	logger  *log.Logger

	upserted atomic.Int64
	deleted  atomic.Int64
	skipped  atomic.Int64
	failed   atomic.Int64
}

func NewSyncWorker(source store.Lister, replica Replica, logger *log.Logger) *SyncWorker {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &SyncWorker{
		source:  source,
		replica: replica,
		logger:  logger.WithComponent(log.ComponentWorker),
	}
}

// HandleEvent applies one change event. Created and updated events re-read the
// record from the source, so replaying an event is harmless. A record that is
// gone from the source is removed from the replica.
func (w *SyncWorker) HandleEvent(ctx context.Context, ev *amqp.TransactionEvent) error {
	w.logger.DebugContext(ctx, "Processing transaction event",
		"kind", ev.Kind,
		log.FieldTransactionID, ev.ID,
		log.FieldUserID, ev.UserID)

	var err error
	switch ev.Kind {
	case amqp.TransactionCreated, amqp.TransactionUpdated:
		err = w.mirror(ctx, ev)
	case amqp.TransactionDeleted:
		err = w.remove(ctx, ev.ID)
	default:
		w.skipped.Add(1)
		w.logger.WarnContext(ctx, "Ignoring unknown event kind", "kind", ev.Kind)
		return nil
	}
	if err != nil {
		w.failed.Add(1)
		return err
	}
	return nil
}

func (w *SyncWorker) mirror(ctx context.Context, ev *amqp.TransactionEvent) error {
	txs, err := w.source.List(ctx, ev.UserID)
	if err != nil {
		return fmt.Errorf("read source for user %s: %w", ev.UserID, err)
	}
	for _, t := range txs {
		if t.ID != ev.ID {
			continue
		}
		if err := w.replica.Upsert(ctx, t); err != nil {
			return fmt.Errorf("upsert %s into replica: %w", t.ID, err)
		}
		w.upserted.Add(1)
		w.logger.InfoContext(ctx, "Transaction mirrored",
			log.FieldTransactionID, t.ID,
			log.FieldUserID, t.UserID,
			log.FieldOperation, string(ev.Kind))
		return nil
	}

	w.logger.InfoContext(ctx, "Transaction no longer in source, removing from replica",
		log.FieldTransactionID, ev.ID)
	return w.remove(ctx, ev.ID)
}

func (w *SyncWorker) remove(ctx context.Context, id string) error {
	err := w.replica.Delete(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		w.skipped.Add(1)
		return nil
	}
	if err != nil {
		return fmt.Errorf("delete %s from replica: %w", id, err)
	}
	w.deleted.Add(1)
	w.logger.InfoContext(ctx, "Transaction removed from replica", log.FieldTransactionID, id)
	return nil
}

// Resync copies every source record of the given users into the replica.
// It is the startup pass that catches up on events lost while the worker was down.
func (w *SyncWorker) Resync(ctx context.Context, userIDs []string) error {
	var errs []error
	for _, user := range userIDs {
		txs, err := w.source.List(ctx, user)
		if err != nil {
			errs = append(errs, fmt.Errorf("read source for user %s: %w", user, err))
			continue
		}
		for _, t := range txs {
			if err := w.replica.Upsert(ctx, t); err != nil {
				w.failed.Add(1)
				errs = append(errs, fmt.Errorf("upsert %s into replica: %w", t.ID, err))
				continue
			}
			w.upserted.Add(1)
		}
		w.logger.InfoContext(ctx, "Startup resync completed", log.FieldUserID, user, log.FieldCount, len(txs))
	}
	return errors.Join(errs...)
}

// Stats returns the counters accumulated since the worker started.
func (w *SyncWorker) Stats() SyncStats {
	return SyncStats{
		Upserted: w.upserted.Load(),
		Deleted:  w.deleted.Load(),
		Skipped:  w.skipped.Load(),
		Failed:   w.failed.Load(),
	}
}
