package source

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/abdul-hamid-achik/hitboard/packages/core/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testCollection = `{"info":{"name":"Release API","schema":"https://schema.getpostman.com/json/collection/v2.1.0/collection.json"},"item":[{"name":"ping"}]}`

const testEnvironment = `{"name":"Test","values":[{"key":"baseUrl","value":"http://localhost","enabled":true}]}`

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLocal_Resolve(t *testing.T) {
	dir := t.TempDir()
	coll := writeFile(t, dir, "collection.json", testCollection)
	env := writeFile(t, dir, "environment.json", testEnvironment)

	pair, err := NewLocal(coll, env, quietLogger()).Resolve(context.Background())
	require.NoError(t, err)

	assert.JSONEq(t, testCollection, string(pair.Collection))
	assert.JSONEq(t, testEnvironment, string(pair.Environment))
}

func TestLocal_UnwrapsAPIExportEnvelope(t *testing.T) {
	dir := t.TempDir()
	coll := writeFile(t, dir, "collection.json", `{"collection":`+testCollection+`}`)
	env := writeFile(t, dir, "environment.json", `{"environment":`+testEnvironment+`}`)

	pair, err := NewLocal(coll, env, quietLogger()).Resolve(context.Background())
	require.NoError(t, err)

	assert.JSONEq(t, testCollection, string(pair.Collection))
	assert.JSONEq(t, testEnvironment, string(pair.Environment))
}

func TestLocal_Errors(t *testing.T) {
	dir := t.TempDir()
	goodColl := writeFile(t, dir, "good-collection.json", testCollection)
	goodEnv := writeFile(t, dir, "good-environment.json", testEnvironment)

	tests := []struct {
		name string
		coll string
		env  string
		kind Kind
	}{
		{"missing collection", filepath.Join(dir, "missing.json"), goodEnv, KindCollection},
		{"collection not JSON", writeFile(t, dir, "bad.json", "{nope"), goodEnv, KindCollection},
		{"collection without items", writeFile(t, dir, "noitems.json", `{"info":{"name":"x"}}`), goodEnv, KindCollection},
		{"missing environment", goodColl, filepath.Join(dir, "missing-env.json"), KindEnvironment},
		{"environment values not array", goodColl, writeFile(t, dir, "badenv.json", `{"values":{}}`), KindEnvironment},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewLocal(tt.coll, tt.env, quietLogger()).Resolve(context.Background())

			var loadErr *ConfigLoadError
			require.ErrorAs(t, err, &loadErr)
			assert.Equal(t, tt.kind, loadErr.Kind)
		})
	}
}

func newPostmanServer(t *testing.T, apiKey string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Api-Key") != apiKey {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":{"name":"AuthenticationError","message":"Invalid API Key."}}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/collections/c-1":
			_, _ = w.Write([]byte(`{"collection":` + testCollection + `}`))
		case "/environments/e-1":
			_, _ = w.Write([]byte(`{"environment":` + testEnvironment + `}`))
		case "/environments/e-empty":
			_, _ = w.Write([]byte(`{"something":"else"}`))
		case "/environments/e-garbage":
			_, _ = w.Write([]byte(`<html>`))
		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":{"name":"instanceNotFoundError","message":"We could not find it."}}`))
		}
	}))
}

func remoteSource(baseURL, envUID, key string) config.RemoteSource {
	return config.RemoteSource{
		CollectionUID:  "c-1",
		EnvironmentUID: envUID,
		APIKey:         key,
		BaseURL:        baseURL,
	}
}

func TestRemote_Resolve(t *testing.T) {
	server := newPostmanServer(t, "PMAK-1")
	defer server.Close()

	r := NewRemote(remoteSource(server.URL, "e-1", "PMAK-1"), WithRemoteLogger(quietLogger()))
	pair, err := r.Resolve(context.Background())
	require.NoError(t, err)

	assert.JSONEq(t, testCollection, string(pair.Collection))
	assert.JSONEq(t, testEnvironment, string(pair.Environment))
	assert.Equal(t, config.ModeRemote, r.Mode())
}

func TestRemote_Errors(t *testing.T) {
	server := newPostmanServer(t, "PMAK-1")
	defer server.Close()

	tests := []struct {
		name       string
		envUID     string
		key        string
		kind       Kind
		uid        string
		status     int
		authFailed bool
		contains   string
	}{
		{"bad key", "e-1", "wrong", KindCollection, "c-1", 401, true, "Invalid API Key."},
		{"unknown environment", "e-404", "PMAK-1", KindEnvironment, "e-404", 404, false, "We could not find it."},
		{"payload key missing", "e-empty", "PMAK-1", KindEnvironment, "e-empty", 200, false, `no "environment" object`},
		{"not JSON", "e-garbage", "PMAK-1", KindEnvironment, "e-garbage", 200, false, "not valid JSON"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRemote(remoteSource(server.URL, tt.envUID, tt.key), WithRemoteLogger(quietLogger()))
			_, err := r.Resolve(context.Background())

			var fetchErr *ConfigFetchError
			require.ErrorAs(t, err, &fetchErr)
			assert.Equal(t, tt.kind, fetchErr.Kind)
			assert.Equal(t, tt.uid, fetchErr.UID)
			assert.Equal(t, tt.status, fetchErr.StatusCode)
			assert.Equal(t, tt.authFailed, errors.Is(err, ErrUnauthorized))
			assert.Contains(t, err.Error(), tt.contains)
		})
	}
}

func TestRemote_EscapesUID(t *testing.T) {
	type seen struct{ path, escaped, query string }
	requests := make(chan seen, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests <- seen{path: r.URL.Path, escaped: r.URL.EscapedPath(), query: r.URL.RawQuery}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	r := NewRemote(remoteSource(server.URL+"/", "e-1", "k"), WithRemoteLogger(quietLogger()))

	tests := []struct {
		uid     string
		path    string
		escaped string
	}{
		{"abc?access_key=evil", "/collections/abc?access_key=evil", "/collections/abc%3Faccess_key=evil"},
		{"../environments/other", "/collections/../environments/other", "/collections/..%2Fenvironments%2Fother"},
		{"a b#c", "/collections/a b#c", "/collections/a%20b%23c"},
	}

	for _, tt := range tests {
		t.Run(tt.uid, func(t *testing.T) {
			_, err := r.Fetch(context.Background(), KindCollection, tt.uid)

			var fetchErr *ConfigFetchError
			require.ErrorAs(t, err, &fetchErr)
			assert.Equal(t, http.StatusNotFound, fetchErr.StatusCode)
			assert.Equal(t, tt.uid, fetchErr.UID)

			got := <-requests
			assert.Equal(t, tt.path, got.path)
			assert.Equal(t, tt.escaped, got.escaped)
			assert.Empty(t, got.query)
		})
	}
}

func TestRemote_RejectsEmptyUID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected request to %s", r.URL.Path)
	}))
	defer server.Close()

	r := NewRemote(remoteSource(server.URL, "e-1", "k"), WithRemoteLogger(quietLogger()))
	for _, uid := range []string{"", " ", ".", ".."} {
		_, err := r.Fetch(context.Background(), KindEnvironment, uid)

		var fetchErr *ConfigFetchError
		require.ErrorAs(t, err, &fetchErr, "uid %q", uid)
		assert.Equal(t, 0, fetchErr.StatusCode)
		assert.Contains(t, err.Error(), "invalid environment uid")
	}
}

func TestRemote_TransportFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	r := NewRemote(remoteSource(server.URL, "e-1", "k"),
		WithTimeout(20*time.Millisecond),
		WithRemoteLogger(quietLogger()),
	)
	_, err := r.Resolve(context.Background())

	var fetchErr *ConfigFetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, 0, fetchErr.StatusCode)
	assert.Equal(t, KindCollection, fetchErr.Kind)
}

func TestNew_SelectsResolver(t *testing.T) {
	local, err := New(config.LocalSource{CollectionPath: "a", EnvironmentPath: "b"}, WithLogger(quietLogger()))
	require.NoError(t, err)
	assert.IsType(t, &Local{}, local)
	assert.Equal(t, config.ModeLocal, local.Mode())

	remote, err := New(config.RemoteSource{CollectionUID: "c", EnvironmentUID: "e", APIKey: "k"})
	require.NoError(t, err)
	assert.IsType(t, &Remote{}, remote)

	_, err = New(nil)
	assert.Error(t, err)
}
