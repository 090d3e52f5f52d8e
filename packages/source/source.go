// Package source resolves the Postman collection and environment a run
// executes, either from local files or from the Postman API.
package source

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/abdul-hamid-achik/hitboard/packages/core/config"
)

// Kind names one of the two definitions a run needs
type Kind string

const (
	KindCollection  Kind = "collection"
	KindEnvironment Kind = "environment"
)

// Pair is the collection and environment for one run. Both documents are
// passed to the engine untouched.
type Pair struct {
	Collection  json.RawMessage
	Environment json.RawMessage
}

// Resolver produces the configuration pair for a run
type Resolver interface {
	Resolve(ctx context.Context) (*Pair, error)

	// Mode returns config.ModeLocal or config.ModeRemote
	Mode() string
}

// Option is a functional option shared by the resolvers
type Option func(*options)

type options struct {
	logger     *slog.Logger
	remoteOpts []RemoteOption
}

// WithLogger sets the logger used by the resolver
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithRemoteOptions passes options through to a remote resolver
func WithRemoteOptions(opts ...RemoteOption) Option {
	return func(o *options) {
		o.remoteOpts = append(o.remoteOpts, opts...)
	}
}

// New builds the resolver for a configured source
func New(src config.Source, opts ...Option) (Resolver, error) {
	o := &options{logger: slog.Default()}
	for _, opt := range opts {
		opt(o)
	}

	switch s := src.(type) {
	case config.LocalSource:
		return NewLocal(s.CollectionPath, s.EnvironmentPath, o.logger), nil
	case config.RemoteSource:
		remoteOpts := append([]RemoteOption{WithRemoteLogger(o.logger)}, o.remoteOpts...)
		return NewRemote(s, remoteOpts...), nil
	default:
		return nil, fmt.Errorf("unsupported source %T", src)
	}
}
