package logging

import "context"

type ctxKey struct{}

// ContextWith returns a copy of ctx carrying key–value pairs that every
// backend adds to records logged with that context, e.g. a request id set
// by the front end and seen in store and scheduler logs.
func ContextWith(ctx context.Context, args ...any) context.Context {
	if len(args) == 0 {
		return ctx
	}
	prev := fromContext(ctx)
	merged := make([]any, 0, len(prev)+len(args))
	merged = append(merged, prev...)
	merged = append(merged, args...)
	return context.WithValue(ctx, ctxKey{}, merged)
}

func fromContext(ctx context.Context) []any {
	if ctx == nil {
		return nil
	}
	args, _ := ctx.Value(ctxKey{}).([]any)
	return args
}

// withContext prepends the context pairs to args.
func withContext(ctx context.Context, args []any) []any {
	extra := fromContext(ctx)
	if len(extra) == 0 {
		return args
	}
	out := make([]any, 0, len(extra)+len(args))
	out = append(out, extra...)
	return append(out, args...)
}
