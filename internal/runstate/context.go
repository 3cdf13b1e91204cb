package runstate

import "context"

type announcerKey struct{}

// WithAnnouncer returns a context that reports the generation of any run
// started with it. fn is called once, right after the run's Begin.
func WithAnnouncer(ctx context.Context, fn func(gen uint64)) context.Context {
	return context.WithValue(ctx, announcerKey{}, fn)
}

// Announce reports gen to the announcer carried by ctx, if any.
func Announce(ctx context.Context, gen uint64) {
	if fn, ok := ctx.Value(announcerKey{}).(func(uint64)); ok && fn != nil {
		fn(gen)
	}
}
