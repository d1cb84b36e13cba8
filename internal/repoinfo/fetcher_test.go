package repoinfo

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParseReference(t *testing.T) {
	ref, err := ParseReference("https://github.com/acme/widget")
	require.NoError(t, err)
	require.Equal(t, Reference{Owner: "acme", Name: "widget"}, ref)
	require.Equal(t, "acme/widget", ref.String())

	ref, err = ParseReference("https://github.com/acme/widget.git")
	require.NoError(t, err)
	require.Equal(t, "widget", ref.Name)

	ref, err = ParseReference("https://github.com/acme/widget/tree/main")
	require.NoError(t, err)
	require.Equal(t, Reference{Owner: "acme", Name: "widget"}, ref)
}

func TestParseReferenceMalformed(t *testing.T) {
	cases := []string{
		"",
		"https://github.com/acme",
		"https://github.com/acme/",
		"https://github.com//widget",
		"github.com/acme/widget",
		"not a url",
		"https://github.com/../user",
		"https://github.com/acme/..",
		"https://github.com/./widget",
		"https://github.com/acme/..git",
		"https://github.com/acme%2F../widget",
		"https://github.com/acme/wid get",
		"https://github.com/acme/widget?x=1",
	}

	for _, tc := range cases {
		_, err := ParseReference(tc)
		require.Error(t, err, tc)
		require.ErrorIs(t, err, ErrMalformedURL, tc)
		require.ErrorIs(t, err, ErrNotFetchable, tc)
	}
}

func TestParseReferenceForHosts(t *testing.T) {
	_, err := ParseReferenceForHosts("https://GitHub.com/acme/widget", DefaultHosts)
	require.NoError(t, err)

	_, err = ParseReferenceForHosts("https://host/a/b", DefaultHosts)
	require.ErrorIs(t, err, ErrMalformedURL)

	_, err = ParseReferenceForHosts("https://host:8443/a/b", []string{"host"})
	require.NoError(t, err)

	_, err = ParseReferenceForHosts("https://host/a/b", []string{})
	require.NoError(t, err)
}

func TestFetcherMalformedURLMakesNoRequest(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer server.Close()

	fetcher := &Fetcher{Client: server.Client(), BaseURL: server.URL}

	for _, repoURL := range []string{"https://host/a/b", "https://github.com/a"} {
		_, err := fetcher.Fetch(context.Background(), repoURL)
		require.ErrorIs(t, err, ErrMalformedURL)

		var fetchErr *FetchError
		require.True(t, errors.As(err, &fetchErr))
		require.Equal(t, KindMalformedURL, fetchErr.Kind)
	}
	require.Zero(t, calls.Load())
}

func TestFetcherRefusesPathTraversal(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(`{"name":"Token Owner"}`))
	}))
	defer server.Close()

	fetcher := &Fetcher{Client: server.Client(), BaseURL: server.URL, Token: "server-secret"}

	for _, repoURL := range []string{"https://github.com/../user", "https://github.com/acme/.."} {
		info, err := fetcher.Fetch(context.Background(), repoURL)
		require.Nil(t, info, repoURL)
		require.ErrorIs(t, err, ErrMalformedURL, repoURL)
	}

	_, err := fetcher.FetchReference(context.Background(), Reference{Owner: "..", Name: "user"})
	require.ErrorIs(t, err, ErrMalformedURL)
	require.Zero(t, calls.Load())
}

func TestRepositoryURLKeepsBasePathAndEscapes(t *testing.T) {
	base, err := url.Parse("https://ghe.example.com/api/v3/")
	require.NoError(t, err)

	got := repositoryURL(base, Reference{Owner: "acme", Name: "widget.js"})
	require.Equal(t, "https://ghe.example.com/api/v3/repos/acme/widget.js", got)
}

func TestFetcherReturnsMetadata(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/repos/acme/widget", r.URL.Path)
		require.Equal(t, "Bearer gh-token", r.Header.Get("Authorization"))
		require.Equal(t, "application/vnd.github+json", r.Header.Get("Accept"))
		require.NotEmpty(t, r.Header.Get("User-Agent"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"name":"widget","full_name":"acme/widget","description":"A tiny widget","language":"TypeScript","html_url":"https://github.com/acme/widget"}`))
	}))
	defer server.Close()

	fetcher := &Fetcher{Client: server.Client(), BaseURL: server.URL, Token: "gh-token"}

	info, err := fetcher.Fetch(context.Background(), "https://github.com/acme/widget")
	require.NoError(t, err)
	require.Equal(t, "widget", info.Name)
	require.Equal(t, "A tiny widget", info.DescriptionOr("none"))
	require.Equal(t, "TypeScript", info.LanguageOr("none"))
	require.Equal(t, "acme/widget", info.FullName)
}

func TestFetcherUnauthenticatedWithoutToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Empty(t, r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"name":"widget","description":null,"language":null}`))
	}))
	defer server.Close()

	fetcher := &Fetcher{Client: server.Client(), BaseURL: server.URL}

	info, err := fetcher.Fetch(context.Background(), "https://github.com/acme/widget")
	require.NoError(t, err)
	require.Nil(t, info.Description)
	require.Nil(t, info.Language)
	require.Equal(t, "fallback", info.DescriptionOr("fallback"))
	require.Equal(t, "fallback", info.LanguageOr("fallback"))
}

func TestFetcherNotFoundAndPrivateAreNotFetchable(t *testing.T) {
	cases := []struct {
		name   string
		status int
		kind   FailureKind
	}{
		{"missing", http.StatusNotFound, KindNotFound},
		{"private", http.StatusForbidden, KindForbidden},
		{"unavailable", http.StatusBadGateway, KindUpstream},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(`{"message":"Not Found","documentation_url":"https://docs.github.com"}`))
			}))
			defer server.Close()

			fetcher := &Fetcher{Client: server.Client(), BaseURL: server.URL}

			info, err := fetcher.Fetch(context.Background(), "https://github.com/acme/widget")
			require.Nil(t, info)
			require.ErrorIs(t, err, ErrNotFetchable)
			require.NotErrorIs(t, err, ErrMalformedURL)

			var fetchErr *FetchError
			require.True(t, errors.As(err, &fetchErr))
			require.Equal(t, tc.kind, fetchErr.Kind)
			require.Equal(t, tc.status, fetchErr.StatusCode)
			require.Equal(t, "Not Found", fetchErr.Message)
		})
	}
}

func TestFetcherTransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	fetcher := &Fetcher{BaseURL: url, Client: &http.Client{Timeout: time.Second}}

	_, err := fetcher.Fetch(context.Background(), "https://github.com/acme/widget")
	require.ErrorIs(t, err, ErrNotFetchable)

	var fetchErr *FetchError
	require.True(t, errors.As(err, &fetchErr))
	require.Equal(t, KindTransport, fetchErr.Kind)
}

func TestFetcherInvalidJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{not json`))
	}))
	defer server.Close()

	fetcher := &Fetcher{Client: server.Client(), BaseURL: server.URL}

	_, err := fetcher.Fetch(context.Background(), "https://github.com/acme/widget")
	var fetchErr *FetchError
	require.True(t, errors.As(err, &fetchErr))
	require.Equal(t, KindDecode, fetchErr.Kind)
}

func TestFetcherRecordsProviderBackoff(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Retry-After", "30")
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"message":"API rate limit exceeded"}`))
	}))
	defer server.Close()

	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	backoff := NewBackoff()
	backoff.Clock = func() time.Time { return now }
	fetcher := &Fetcher{
		Client:  server.Client(),
		BaseURL: server.URL,
		Backoff: backoff,
		Clock:   func() time.Time { return now },
	}

	_, err := fetcher.Fetch(context.Background(), "https://github.com/acme/widget")
	var fetchErr *FetchError
	require.True(t, errors.As(err, &fetchErr))
	require.Equal(t, KindRateLimited, fetchErr.Kind)
	require.Equal(t, int32(1), calls.Load())

	// Second call fails fast while the cooldown lasts.
	_, err = fetcher.Fetch(context.Background(), "https://github.com/acme/widget")
	require.ErrorIs(t, err, ErrNotFetchable)
	require.Equal(t, int32(1), calls.Load())

	now = now.Add(31 * time.Second)
	_, _ = fetcher.Fetch(context.Background(), "https://github.com/acme/widget")
	require.Equal(t, int32(2), calls.Load())
}

func TestRateLimitWaitFromResetHeader(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	resp := &http.Response{Header: http.Header{}}
	resp.Header.Set("X-RateLimit-Remaining", "0")
	resp.Header.Set("X-RateLimit-Reset", "1735689660")

	wait, extra := rateLimitWait(resp, now)
	require.Equal(t, time.Minute, wait)
	require.Equal(t, "1735689660", extra["ratelimit_reset"])

	resp = &http.Response{Header: http.Header{}}
	resp.Header.Set("X-RateLimit-Remaining", "12")
	wait, extra = rateLimitWait(resp, now)
	require.Zero(t, wait)
	require.Nil(t, extra)
}

func TestInfoFallbacksOnlyForMissingValues(t *testing.T) {
	blank, empty := "  ", ""
	info := &Info{Description: &blank, Language: &empty}
	require.Equal(t, "  ", info.DescriptionOr("none"))
	require.Equal(t, "none", info.LanguageOr("none"))

	var missing *Info
	require.Equal(t, "none", missing.DescriptionOr("none"))
}

func TestBackoffNilIsPermissive(t *testing.T) {
	var backoff *Backoff
	ok, wait := backoff.Allow("api.github.com")
	require.True(t, ok)
	require.Zero(t, wait)
	backoff.Record("api.github.com", time.Minute)
}
