package config

import (
	"fmt"
	"strings"
)

// Source is where the collection and environment definitions come from.
// It is either a LocalSource or a RemoteSource.
type Source interface {
	// Mode returns ModeLocal or ModeRemote
	Mode() string
}

// LocalSource reads both definitions from files
type LocalSource struct {
	CollectionPath  string
	EnvironmentPath string
}

// Mode implements Source
func (LocalSource) Mode() string { return ModeLocal }

// RemoteSource fetches both definitions from the Postman API
type RemoteSource struct {
	CollectionUID  string
	EnvironmentUID string
	APIKey         string
	BaseURL        string
}

// Mode implements Source
func (RemoteSource) Mode() string { return ModeRemote }

// ResolveSource turns the source section into a Source variant
func (c *Config) ResolveSource() (Source, error) {
	switch strings.ToLower(c.Source.Mode) {
	case ModeLocal:
		local := c.Source.Local
		if local.Collection == "" || local.Environment == "" {
			return nil, fmt.Errorf("source.local.collection and source.local.environment are required")
		}
		return LocalSource{
			CollectionPath:  local.Collection,
			EnvironmentPath: local.Environment,
		}, nil

	case ModeRemote:
		remote := c.Source.Remote
		var missing []string
		if remote.CollectionUID == "" {
			missing = append(missing, "collectionUid (POSTMAN_COLLECTION_UID)")
		}
		if remote.EnvironmentUID == "" {
			missing = append(missing, "environmentUid (POSTMAN_ENVIRONMENT_UID)")
		}
		if remote.APIKey == "" {
			missing = append(missing, "apiKey (POSTMAN_API_KEY)")
		}
		if len(missing) > 0 {
			return nil, fmt.Errorf("remote source is missing %s", strings.Join(missing, ", "))
		}
		baseURL := remote.BaseURL
		if baseURL == "" {
			baseURL = DefaultPostmanBaseURL
		}
		return RemoteSource{
			CollectionUID:  remote.CollectionUID,
			EnvironmentUID: remote.EnvironmentUID,
			APIKey:         remote.APIKey,
			BaseURL:        strings.TrimRight(baseURL, "/"),
		}, nil

	default:
		return nil, fmt.Errorf("unknown source.mode %q (use local or remote)", c.Source.Mode)
	}
}
