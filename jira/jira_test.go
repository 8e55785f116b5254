package jira

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	hverrors "github.com/hibernate/hvrelease/errors"
)

const versionsJSON = `[
  {"id":"18754","name":"8.0.0.Final","description":"Jakarta EE 10","archived":false,"released":true,"releaseDate":"2022-06-07"},
  {"id":"18755","name":"8.0.1.Final","archived":false,"released":true,"releaseDate":"2023-06-26"},
  {"id":"18756","name":"8.0.2.Final","archived":false,"released":false}
]`

func newTestClient(t *testing.T, handler http.Handler, opts ...Option) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	opts = append([]Option{WithRetries(0)}, opts...)
	c, err := New(srv.URL, "HV", opts...)
	require.NoError(t, err)
	return c
}

func versionsHandler(t *testing.T) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rest/api/latest/project/HV/versions", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(versionsJSON))
	})
}

func TestClient_Versions(t *testing.T) {
	c := newTestClient(t, versionsHandler(t))

	versions, err := c.Versions(t.Context())
	require.NoError(t, err)
	require.Len(t, versions, 3)
	assert.Equal(t, Version{
		ID: "18754", Name: "8.0.0.Final", Description: "Jakarta EE 10",
		Released: true, ReleaseDate: "2022-06-07",
	}, versions[0])
}

func TestClient_Release(t *testing.T) {
	c := newTestClient(t, versionsHandler(t))

	tests := []struct {
		name     string
		version  string
		wantCode hverrors.ErrorCode
		wantMsg  string
	}{
		{name: "released", version: "8.0.1.Final"},
		{name: "unknown", version: "9.9.9.Final", wantCode: hverrors.CodeNotFound, wantMsg: "does not exist in JIRA"},
		{name: "unreleased", version: "8.0.2.Final", wantCode: hverrors.CodeInvalidConfig, wantMsg: "not yet released"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := c.Release(t.Context(), tt.version)
			if tt.wantCode != "" {
				require.Error(t, err)
				assert.Equal(t, tt.wantCode, hverrors.CodeOf(err))
				assert.Contains(t, err.Error(), tt.wantMsg)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.version, v.Name)
			assert.Equal(t, "2023-06-26", v.ReleaseDate)
		})
	}
}

func TestClient_IssuesPaging(t *testing.T) {
	const total = 5
	var calls atomic.Int32

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "/rest/api/2/search", r.URL.Path)
		assert.Equal(t, `project = HV AND fixVersion = "8.0.1.Final" ORDER BY issuetype ASC`, r.URL.Query().Get("jql"))

		startAt, _ := strconv.Atoi(r.URL.Query().Get("startAt"))
		maxResults, _ := strconv.Atoi(r.URL.Query().Get("maxResults"))

		type comp struct {
			Name string `json:"name"`
		}
		var issues []map[string]any
		for i := startAt; i < total && i < startAt+maxResults; i++ {
			comps := []comp{}
			if i%2 == 0 {
				comps = append(comps, comp{Name: "engine"}, comp{Name: "documentation"})
			}
			issues = append(issues, map[string]any{
				"key": fmt.Sprintf("HV-%d", 100+i),
				"fields": map[string]any{
					"issuetype":  map[string]string{"name": "Bug"},
					"components": comps,
					"summary":    fmt.Sprintf("issue %d", i),
				},
			})
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"startAt": startAt, "maxResults": maxResults, "total": total, "issues": issues,
		})
	})

	c := newTestClient(t, handler, WithPageSize(2))
	issues, err := c.Issues(t.Context(), "8.0.1.Final")
	require.NoError(t, err)
	require.Len(t, issues, total)
	assert.Equal(t, int32(3), calls.Load())
	assert.Equal(t, Issue{
		Key: "HV-100", Type: "Bug", Components: []string{"engine", "documentation"}, Summary: "issue 0",
	}, issues[0])
	assert.Empty(t, issues[1].Components)
	assert.Equal(t, "HV-104", issues[4].Key)
}

func TestClient_Errors(t *testing.T) {
	t.Run("server error", func(t *testing.T) {
		c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "boom", http.StatusInternalServerError)
		}))
		_, err := c.Versions(t.Context())
		assert.Equal(t, hverrors.CodeNetwork, hverrors.CodeOf(err))
	})

	t.Run("not found", func(t *testing.T) {
		c := newTestClient(t, http.NotFoundHandler())
		_, err := c.Versions(t.Context())
		assert.True(t, hverrors.IsNotFound(err))
	})

	t.Run("malformed body", func(t *testing.T) {
		c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte("<html>login</html>"))
		}))
		_, err := c.Versions(t.Context())
		assert.True(t, hverrors.IsParseFailed(err))
	})

	t.Run("retries transient failures", func(t *testing.T) {
		var calls atomic.Int32
		c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if calls.Add(1) == 1 {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			versionsHandler(t).ServeHTTP(w, r)
		}), WithRetries(2), WithRetryWait(time.Millisecond, 5*time.Millisecond))

		versions, err := c.Versions(t.Context())
		require.NoError(t, err)
		assert.Len(t, versions, 3)
		assert.Equal(t, int32(2), calls.Load())
	})
}

func TestNew_Validation(t *testing.T) {
	_, err := New("not a url", "HV")
	assert.True(t, hverrors.IsInvalidConfig(err))

	_, err = New("https://hibernate.atlassian.net", "")
	assert.True(t, hverrors.IsInvalidConfig(err))

	c, err := New("https://hibernate.atlassian.net/", "HV")
	require.NoError(t, err)
	assert.Equal(t, "https://hibernate.atlassian.net", c.baseURL.String())
}
