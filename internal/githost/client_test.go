package githost

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/google/go-github/v57/github"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestClient points a Client at an httptest server.
func newTestClient(t *testing.T, mux *http.ServeMux) *Client {
	t.Helper()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	gh := github.NewClient(nil)
	base, err := url.Parse(srv.URL + "/")
	require.NoError(t, err)
	gh.BaseURL = base

	c := NewFromGitHub(gh, "acme")
	c.retry = fastRetryConfig()
	return c
}

func TestGetBranchHead(t *testing.T) {
	t.Run("returns head sha", func(t *testing.T) {
		mux := http.NewServeMux()
		mux.HandleFunc("/repos/acme/demo/git/ref/heads/main", func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"ref":"refs/heads/main","object":{"sha":"abc123","type":"commit"}}`)
		})
		c := newTestClient(t, mux)

		sha, found, err := c.GetBranchHead(context.Background(), "demo", "main")
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, "abc123", sha)
	})

	t.Run("absent branch is not an error", func(t *testing.T) {
		mux := http.NewServeMux()
		mux.HandleFunc("/repos/acme/demo/git/ref/heads/ghost", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprint(w, `{"message":"Not Found"}`)
		})
		c := newTestClient(t, mux)

		_, found, err := c.GetBranchHead(context.Background(), "demo", "ghost")
		require.NoError(t, err)
		assert.False(t, found)
	})
}

func TestGetFile(t *testing.T) {
	t.Run("decodes base64 content", func(t *testing.T) {
		encoded := base64.StdEncoding.EncodeToString([]byte("# Demo\n"))
		mux := http.NewServeMux()
		mux.HandleFunc("/repos/acme/demo/contents/README.md", func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "feature/x", r.URL.Query().Get("ref"))
			_ = json.NewEncoder(w).Encode(map[string]any{
				"type":     "file",
				"encoding": "base64",
				"content":  encoded,
				"sha":      "blob42",
			})
		})
		c := newTestClient(t, mux)

		content, sha, found, err := c.GetFile(context.Background(), "demo", "feature/x", "README.md")
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, "# Demo\n", content)
		assert.Equal(t, "blob42", sha)
	})

	t.Run("absent file is not an error", func(t *testing.T) {
		mux := http.NewServeMux()
		mux.HandleFunc("/repos/acme/demo/contents/nope.md", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprint(w, `{"message":"Not Found"}`)
		})
		c := newTestClient(t, mux)

		_, _, found, err := c.GetFile(context.Background(), "demo", "main", "nope.md")
		require.NoError(t, err)
		assert.False(t, found)
	})
}

func TestPutFile(t *testing.T) {
	t.Run("create omits sha", func(t *testing.T) {
		mux := http.NewServeMux()
		mux.HandleFunc("/repos/acme/demo/contents/tasks/task-1.md", func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, http.MethodPut, r.Method)
			var body map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.NotContains(t, body, "sha")
			assert.Equal(t, "feature/task-1", body["branch"])
			fmt.Fprint(w, `{"content":{"sha":"new"}}`)
		})
		c := newTestClient(t, mux)

		err := c.PutFile(context.Background(), "demo", "feature/task-1", "tasks/task-1.md", "# Task", "add task doc", "")
		require.NoError(t, err)
	})

	t.Run("update sends sha", func(t *testing.T) {
		mux := http.NewServeMux()
		mux.HandleFunc("/repos/acme/demo/contents/README.md", func(w http.ResponseWriter, r *http.Request) {
			var body map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "blob42", body["sha"])
			fmt.Fprint(w, `{"content":{"sha":"new"}}`)
		})
		c := newTestClient(t, mux)

		err := c.PutFile(context.Background(), "demo", "main", "README.md", "updated", "update readme", "blob42")
		require.NoError(t, err)
	})

	t.Run("stale sha surfaces as conflict", func(t *testing.T) {
		mux := http.NewServeMux()
		mux.HandleFunc("/repos/acme/demo/contents/README.md", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusConflict)
			fmt.Fprint(w, `{"message":"README.md does not match"}`)
		})
		c := newTestClient(t, mux)

		err := c.PutFile(context.Background(), "demo", "main", "README.md", "x", "m", "stale")
		require.Error(t, err)
		assert.True(t, IsConflict(err))

		apiErr, ok := AsAPIError(err)
		require.True(t, ok)
		assert.Equal(t, http.StatusConflict, apiErr.StatusCode)
		assert.Contains(t, apiErr.Body, "does not match")
	})
}

func TestListOpenPullRequests(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/acme/demo/pulls", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "open", r.URL.Query().Get("state"))
		assert.Equal(t, "acme:feature/task-1", r.URL.Query().Get("head"))
		assert.Equal(t, "main", r.URL.Query().Get("base"))
		fmt.Fprint(w, `[{"number":7,"state":"open","head":{"ref":"feature/task-1","sha":"headsha"},"base":{"ref":"main"}}]`)
	})
	c := newTestClient(t, mux)

	prs, err := c.ListOpenPullRequests(context.Background(), "demo", "feature/task-1", "main")
	require.NoError(t, err)
	require.Len(t, prs, 1)
	assert.Equal(t, 7, prs[0].Number)
	assert.Equal(t, "feature/task-1", prs[0].HeadRef)
	assert.Equal(t, "main", prs[0].BaseRef)
	assert.Equal(t, "headsha", prs[0].HeadSHA)
}

func TestMergePullRequest_Squash(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/acme/demo/pulls/7/merge", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPut, r.Method)
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "squash", body["merge_method"])
		fmt.Fprint(w, `{"merged":true}`)
	})
	c := newTestClient(t, mux)

	require.NoError(t, c.MergePullRequest(context.Background(), "demo", 7, "task-1: Add homepage"))
}

func TestProtectBranch(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/acme/demo/branches/main/protection", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPut, r.Method)
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		checks, ok := body["required_status_checks"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, true, checks["strict"])
		assert.Equal(t, []any{"ci/build"}, checks["contexts"])
		assert.Equal(t, false, body["allow_force_pushes"])
		assert.Equal(t, false, body["allow_deletions"])
		fmt.Fprint(w, `{}`)
	})
	c := newTestClient(t, mux)

	require.NoError(t, c.ProtectBranch(context.Background(), "demo", "main", "ci/build"))
}

func TestEnablePages_AlreadyEnabledIsBenign(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/acme/demo/pages", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		fmt.Fprint(w, `{"message":"GitHub Pages is already enabled"}`)
	})
	c := newTestClient(t, mux)

	assert.NoError(t, c.EnablePages(context.Background(), "demo", "main"))
}
