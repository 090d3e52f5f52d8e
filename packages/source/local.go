package source

import (
	"context"
	"errors"
	"log/slog"
	"os"

	"github.com/abdul-hamid-achik/hitboard/packages/core/config"
	"github.com/tidwall/gjson"
)

// Local reads the collection and environment from files
type Local struct {
	collectionPath  string
	environmentPath string
	logger          *slog.Logger
}

// NewLocal creates a local resolver
func NewLocal(collectionPath, environmentPath string, logger *slog.Logger) *Local {
	if logger == nil {
		logger = slog.Default()
	}
	return &Local{
		collectionPath:  collectionPath,
		environmentPath: environmentPath,
		logger:          logger,
	}
}

// Mode implements Resolver
func (l *Local) Mode() string { return config.ModeLocal }

// Paths returns the collection and environment file paths
func (l *Local) Paths() (collection, environment string) {
	return l.collectionPath, l.environmentPath
}

// Resolve reads and validates both files
func (l *Local) Resolve(ctx context.Context) (*Pair, error) {
	collection, err := l.load(ctx, KindCollection, l.collectionPath)
	if err != nil {
		return nil, err
	}
	environment, err := l.load(ctx, KindEnvironment, l.environmentPath)
	if err != nil {
		return nil, err
	}
	return &Pair{Collection: collection, Environment: environment}, nil
}

func (l *Local) load(ctx context.Context, kind Kind, path string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, &ConfigLoadError{Kind: kind, Path: path, Err: err}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ConfigLoadError{Kind: kind, Path: path, Err: err}
	}
	if !gjson.ValidBytes(data) {
		return nil, &ConfigLoadError{Kind: kind, Path: path, Err: errors.New("invalid JSON")}
	}

	data = unwrap(kind, data)
	if err := validate(kind, data); err != nil {
		return nil, &ConfigLoadError{Kind: kind, Path: path, Err: err}
	}

	l.logger.Debug("loaded definition", "kind", kind, "path", path, "bytes", len(data))
	return data, nil
}
