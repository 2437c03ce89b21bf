package logging

import (
	"context"

	"github.com/google/uuid"
)

type metaKey struct{}

// Meta is the per-request or per-alert metadata carried through a context.
// Request fields are set by the HTTP middleware; alert fields by WithAlert.
type Meta struct {
	RequestID string
	IP        string
	Method    string
	Path      string
	UserAgent string

	AlertID string
	Trigger string
}

// HasRequest reports whether the metadata came from an HTTP request.
func (m Meta) HasRequest() bool { return m.RequestID != "" }

// HasAlert reports whether the metadata belongs to an alert run.
func (m Meta) HasAlert() bool { return m.AlertID != "" }

func WithMeta(ctx context.Context, meta Meta) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, metaKey{}, meta)
}

func FromContext(ctx context.Context) (Meta, bool) {
	if ctx == nil {
		return Meta{}, false
	}
	meta, ok := ctx.Value(metaKey{}).(Meta)
	return meta, ok
}

/**
 * WithAlert stamps a fresh alert ID and the trigger source onto the context,
 * keeping any request metadata already present.
 *
 * @param ctx Parent context, possibly carrying request metadata
 * @param trigger Name of the trigger surface (button, widget, volume_keys)
 * @return context.Context Context with alert metadata
 * @return string The generated alert ID
 */
func WithAlert(ctx context.Context, trigger string) (context.Context, string) {
	meta, _ := FromContext(ctx)
	meta.AlertID = uuid.NewString()
	meta.Trigger = trigger
	return WithMeta(ctx, meta), meta.AlertID
}

