package synchronizer

import (
	"context"
	"errors"
	"log/slog"

	"github.com/usagereg/usagereg/internal/catalog"
	"github.com/usagereg/usagereg/internal/remote"
	"github.com/usagereg/usagereg/internal/shared"
)

// partial marks a write that changed the store before failing, so the
// collection must still be re-read.
type partial struct {
	err error
}

func (p *partial) Error() string { return p.err.Error() }
func (p *partial) Unwrap() error { return p.err }

func partially(err error) error {
	var half *partial
	if err == nil || errors.As(err, &half) {
		return err
	}
	return &partial{err: err}
}

// writeError keeps typed store errors and classifies anything else as a
// remote write failure.
func writeError(op string, entity catalog.Entity, err error) error {
	var typed *shared.Error
	if errors.As(err, &typed) {
		return err
	}
	return shared.E(shared.KindRemoteWrite, op, string(entity), err)
}

// mutate runs write against the store and re-reads the collection when the
// store changed. When write fails outright the local collection is untouched.
// A failed re-read after a successful write is logged and keeps the previous
// collection; the write itself is still reported as successful.
func (s *Synchronizer) mutate(ctx context.Context, entity catalog.Entity, op string, write func(context.Context, remote.Store) error, refresh func(context.Context) error) error {
	if s.store == nil {
		err := shared.E(shared.KindConnectivity, op, string(entity), shared.ErrNotConfigured)
		s.observeWrite(entity, op, err)
		return err
	}

	err := write(ctx, s.store)
	var half *partial
	if err != nil && !errors.As(err, &half) {
		err = writeError(op, entity, err)
		s.logger.Error("remote write failed",
			slog.String("entity", string(entity)), slog.String("op", op), slog.Any("error", err))
		s.observeWrite(entity, op, err)
		return err
	}

	rerr := refresh(ctx)
	s.observeRefresh(entity, sourceWrite, rerr)
	if half != nil {
		err = writeError(op, entity, half.err)
		s.logger.Error("remote write partially applied",
			slog.String("entity", string(entity)), slog.String("op", op), slog.Any("error", err))
		s.observeWrite(entity, op, err)
		return err
	}
	s.observeWrite(entity, op, nil)
	return nil
}

func (s *Synchronizer) observeWrite(entity catalog.Entity, op string, err error) {
	if s.recorder != nil {
		s.recorder.ObserveWrite(entity, op, err)
	}
}

// confirmed asks the Confirmer and turns a decline into ErrCancelled.
func (s *Synchronizer) confirmed(ctx context.Context, entity catalog.Entity, op, prompt string) error {
	if s.confirm.Confirm(ctx, prompt) {
		return nil
	}
	s.logger.Info("action cancelled", slog.String("entity", string(entity)), slog.String("op", op))
	return shared.E(shared.KindCancelled, op, string(entity), shared.ErrCancelled)
}

func notFound(op string, entity catalog.Entity) error {
	return shared.E(shared.KindNotFound, op, string(entity), shared.ErrNotFound)
}
