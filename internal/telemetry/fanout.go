package telemetry

import (
	"context"
	"errors"
	"log/slog"

	"github.com/samber/lo"
)

type fanout struct {
	handlers []slog.Handler
}

// Fanout sends every record to each handler that accepts its level.
func Fanout(handlers ...slog.Handler) slog.Handler {
	return &fanout{handlers: handlers}
}

func (f *fanout) Enabled(ctx context.Context, level slog.Level) bool {
	return lo.SomeBy(f.handlers, func(h slog.Handler) bool {
		return h.Enabled(ctx, level)
	})
}

func (f *fanout) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, h := range f.handlers {
		if !h.Enabled(ctx, r.Level) {
			continue
		}
		// each handler may keep the record; give it its own copy
		if err := h.Handle(ctx, r.Clone()); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (f *fanout) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &fanout{handlers: lo.Map(f.handlers, func(h slog.Handler, _ int) slog.Handler {
		return h.WithAttrs(attrs)
	})}
}

func (f *fanout) WithGroup(name string) slog.Handler {
	return &fanout{handlers: lo.Map(f.handlers, func(h slog.Handler, _ int) slog.Handler {
		return h.WithGroup(name)
	})}
}
