package catalogsync

import (
	"context"

	"github.com/agentstation/catalogsync/pkg/errors"
	"github.com/agentstation/catalogsync/pkg/logging"
	"github.com/agentstation/catalogsync/pkg/reconciler"
	"github.com/agentstation/catalogsync/pkg/records"
)

// Records returns every local record ordered by local id.
func (c *client) Records(ctx context.Context) ([]records.CatalogRecord, error) {
	return c.store.FetchAll(ctx)
}

// Record returns one local record.
func (c *client) Record(ctx context.Context, id records.LocalID) (records.CatalogRecord, error) {
	return c.store.Get(ctx, id)
}

// Conflicts returns preserved remote versions, newest first.
func (c *client) Conflicts(ctx context.Context) ([]records.Conflict, error) {
	return c.store.Conflicts(ctx)
}

// Add validates fields and stores them as a new unlinked record. With
// WithImmediatePush the record is pushed and linked before Add returns;
// the push outcome is returned alongside the record. A push that fails, or
// that finds a pass already running, leaves the record unlinked for the
// next pass and is not an error.
func (c *client) Add(ctx context.Context, fields records.Fields, opts ...AddOption) (records.CatalogRecord, *reconciler.Outcome, error) {
	var ao addOptions
	for _, opt := range opts {
		opt(&ao)
	}

	if err := fields.Validate(); err != nil {
		return records.CatalogRecord{}, nil, err
	}

	rec, err := c.store.Insert(ctx, records.NewRecord{Fields: fields})
	if err != nil {
		return records.CatalogRecord{}, nil, errors.WrapResource("insert", "record", "", err)
	}

	ctx = logging.WithLocalID(logging.WithOperation(ctx, "add"), int64(rec.LocalID))
	logging.FromContext(ctx).Debug().Str("name", rec.Name).Msg("Record added")

	if !ao.push {
		return rec, nil, nil
	}

	outcome, err := c.reconciler.Push(ctx, ao.credential, rec)
	if err != nil {
		if errors.IsBusy(err) {
			logging.FromContext(ctx).Info().Msg("Pass in progress, record will be pushed by the next pass")
			return rec, nil, nil
		}
		return rec, nil, err
	}

	c.hooks.trigger(ctx, []reconciler.Outcome{*outcome})

	if outcome.Kind == reconciler.OutcomePushedAndLinked {
		if linked, getErr := c.store.Get(ctx, rec.LocalID); getErr == nil {
			rec = linked
		}
	}
	return rec, outcome, nil
}

// Edit validates fields and replaces the fields of a local record. The
// store bumps its updated_at, so the edit wins over older remote versions.
func (c *client) Edit(ctx context.Context, id records.LocalID, fields records.Fields) (records.CatalogRecord, error) {
	if err := fields.Validate(); err != nil {
		return records.CatalogRecord{}, err
	}
	rec, err := c.store.Update(ctx, id, fields)
	if err != nil {
		return records.CatalogRecord{}, err
	}
	ctx = logging.WithLocalID(logging.WithOperation(ctx, "edit"), int64(id))
	logging.FromContext(ctx).Debug().Msg("Record edited")
	return rec, nil
}
