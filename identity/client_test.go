package identity

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docledger/document-registry-backend/interfaces"
)

func newIdentityTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		var creds map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&creds))
		if creds["password"] != "hunter2" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"access_token": "tok-1",
			"user": map[string]any{
				"id":           "user-1",
				"email":        creds["email"],
				"app_metadata": map[string]any{"role": "admin"},
			},
		})
	})
	mux.HandleFunc("/user", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok-1" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"id":           "user-1",
			"email":        "admin@example.org",
			"app_metadata": map[string]any{"role": "admin"},
		})
	})
	mux.HandleFunc("/logout", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	return httptest.NewServer(mux)
}

func TestClientSignInAndSessionUser(t *testing.T) {
	srv := newIdentityTestServer(t)
	defer srv.Close()

	client := &Client{BaseURL: srv.URL}

	var observed []*interfaces.User
	unsubscribe := client.OnAuthChange(func(u *interfaces.User) {
		observed = append(observed, u)
	})
	defer unsubscribe()

	token, user, err := client.SignIn(context.Background(), "admin@example.org", "hunter2")
	require.NoError(t, err)
	assert.Equal(t, "tok-1", token)
	assert.True(t, user.IsAdmin())

	resolved, err := client.SessionUser(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", resolved.ID)
	assert.Equal(t, interfaces.RoleAdmin, client.RoleOf(resolved))

	require.NoError(t, client.SignOut(context.Background(), token))

	require.Len(t, observed, 2)
	assert.NotNil(t, observed[0])
	assert.Nil(t, observed[1])
}

func TestClientSignInRejected(t *testing.T) {
	srv := newIdentityTestServer(t)
	defer srv.Close()

	client := &Client{BaseURL: srv.URL}
	_, _, err := client.SignIn(context.Background(), "admin@example.org", "wrong")
	assert.ErrorIs(t, err, interfaces.ErrNotAuthenticated)
}

func TestClientSessionUserInvalidToken(t *testing.T) {
	srv := newIdentityTestServer(t)
	defer srv.Close()

	client := &Client{BaseURL: srv.URL}

	_, err := client.SessionUser(context.Background(), "bogus")
	assert.ErrorIs(t, err, interfaces.ErrNotAuthenticated)

	_, err = client.SessionUser(context.Background(), "")
	assert.ErrorIs(t, err, interfaces.ErrNotAuthenticated)
}

func TestStaticProvider(t *testing.T) {
	provider := NewStaticProvider()
	provider.AddUser("student@example.org", "pw", "student")

	token, user, err := provider.SignIn(context.Background(), "student@example.org", "pw")
	require.NoError(t, err)
	assert.False(t, user.IsAdmin())

	resolved, err := provider.SessionUser(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, resolved.ID)

	require.NoError(t, provider.SignOut(context.Background(), token))
	_, err = provider.SessionUser(context.Background(), token)
	assert.ErrorIs(t, err, interfaces.ErrNotAuthenticated)

	_, _, err = provider.SignIn(context.Background(), "student@example.org", "nope")
	assert.ErrorIs(t, err, interfaces.ErrNotAuthenticated)
}
