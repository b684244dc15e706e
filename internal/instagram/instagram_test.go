package instagram

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecentMedia_FollowsPaging(t *testing.T) {
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/me/media", r.URL.Path)
		assert.Equal(t, "tok", r.URL.Query().Get("access_token"))

		w.Header().Set("Content-Type", "application/json")
		if r.URL.Query().Get("after") == "c2" {
			fmt.Fprint(w, `{"data": [{"id": "m2", "media_type": "IMAGE", "timestamp": "2024-03-09T10:00:00+0000"}]}`)
			return
		}
		assert.Equal(t, mediaFields, r.URL.Query().Get("fields"))
		fmt.Fprintf(w, `{"data": [{"id": "m1", "caption": "hello", "media_type": "VIDEO", "permalink": "https://instagram.com/p/m1", "timestamp": "2024-03-10T10:00:00+0000"}],
			"paging": {"next": "%s/me/media?access_token=tok&after=c2"}}`, srv.URL)
	}))
	defer srv.Close()

	c := New(Config{AccessToken: "tok", BaseURL: srv.URL, MaxPages: 5})
	media, err := c.RecentMedia(context.Background())
	require.NoError(t, err)

	require.Len(t, media, 2)
	assert.Equal(t, "m1", media[0].ID)
	assert.Equal(t, "hello", media[0].Caption)
	assert.Equal(t, MediaTypeVideo, media[0].MediaType)
	assert.Equal(t, "m2", media[1].ID)
}

func TestRecentMedia_StopsAtPageLimit(t *testing.T) {
	var calls int
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		fmt.Fprintf(w, `{"data": [{"id": "m%d"}], "paging": {"next": "%s/me/media?after=x"}}`, calls, srv.URL)
	}))
	defer srv.Close()

	c := New(Config{AccessToken: "tok", BaseURL: srv.URL})
	media, err := c.RecentMedia(context.Background())
	require.NoError(t, err)
	assert.Len(t, media, 1)
	assert.Equal(t, 1, calls)
}

func TestRecentMedia_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"error": {"message": "Invalid OAuth access token", "type": "OAuthException", "code": 190}}`)
	}))
	defer srv.Close()

	c := New(Config{AccessToken: "bad", BaseURL: srv.URL})
	_, err := c.RecentMedia(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid OAuth access token")
}

func TestConfigured(t *testing.T) {
	assert.False(t, New(Config{}).Configured())
	assert.True(t, New(Config{AccessToken: "tok"}).Configured())
}

func TestRecentMedia_TransportErrorHidesToken(t *testing.T) {
	const token = "SECRET-TOKEN-123"

	closed := httptest.NewServer(http.NotFoundHandler())
	closed.Close()

	c := New(Config{AccessToken: token, BaseURL: closed.URL})
	_, err := c.RecentMedia(context.Background())
	require.Error(t, err)
	assert.NotContains(t, err.Error(), token)
	assert.Contains(t, err.Error(), "access_token=REDACTED")
}

func TestRecentMedia_PagingErrorHidesToken(t *testing.T) {
	const token = "SECRET-TOKEN-123"

	closed := httptest.NewServer(http.NotFoundHandler())
	closed.Close()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"data": [{"id": "m1"}], "paging": {"next": "%s/me/media?access_token=%s&after=c2"}}`, closed.URL, token)
	}))
	defer srv.Close()

	c := New(Config{AccessToken: token, BaseURL: srv.URL, MaxPages: 2})
	_, err := c.RecentMedia(context.Background())
	require.Error(t, err)
	assert.NotContains(t, err.Error(), token)
}

func TestRecentMedia_APIErrorHidesToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"error": {"message": "Malformed access token tok-42", "code": 190}}`)
	}))
	defer srv.Close()

	c := New(Config{AccessToken: "tok-42", BaseURL: srv.URL})
	_, err := c.RecentMedia(context.Background())
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "tok-42")
	assert.Contains(t, err.Error(), "Malformed access token")
}
