package session

import (
	"github.com/rs/zerolog"

	"shadowkv/internal/overlay"
)

type Options struct {
	ID     string
	Base   overlay.Base[string, any]
	Logger *zerolog.Logger
}

type Option func(*Options)

// WithID fixes the session ID instead of generating one.
func WithID(id string) Option {
	return func(o *Options) {
		o.ID = id
	}
}

// WithBase binds the session's attributes to an existing committed store.
// The session borrows base and never replaces it.
func WithBase(base overlay.Base[string, any]) Option {
	return func(o *Options) {
		o.Base = base
	}
}

// WithLogger overrides the package-wide logger from common.Logger.
func WithLogger(l zerolog.Logger) Option {
	return func(o *Options) {
		o.Logger = &l
	}
}
