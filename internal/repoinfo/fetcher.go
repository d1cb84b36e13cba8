// Package repoinfo resolves repository URLs to descriptive metadata from the
// hosting provider's REST API.
package repoinfo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/readmegen/readmegen/internal/metrics"
)

const (
	defaultBaseURL   = "https://api.github.com"
	defaultUserAgent = "readmegen"
	githubSource     = "github"

	maxErrorBody = 64 << 10
)

// DefaultHosts are the web hosts accepted in repository URLs when a Fetcher
// has no explicit host list.
var DefaultHosts = []string{"github.com", "www.github.com"}

// Fetcher looks up repository metadata. One request per call, no retries.
type Fetcher struct {
	Client    *http.Client
	BaseURL   string
	Token     string
	UserAgent string
	// Hosts restricts accepted repository URL hosts. Nil uses DefaultHosts;
	// an empty non-nil slice accepts any host.
	Hosts   []string
	Backoff *Backoff
	Clock   func() time.Time
}

type repositoryPayload struct {
	Name        string  `json:"name"`
	FullName    string  `json:"full_name"`
	Description *string `json:"description"`
	Language    *string `json:"language"`
	HTMLURL     string  `json:"html_url"`
}

type providerMessage struct {
	Message string `json:"message"`
}

// Reference parses repoURL with the fetcher's host restrictions.
func (f *Fetcher) Reference(repoURL string) (Reference, error) {
	return ParseReferenceForHosts(repoURL, f.hosts())
}

// Fetch resolves repoURL and returns its metadata. Every failure is a
// *FetchError matching ErrNotFetchable; URL problems are reported before any
// network call.
func (f *Fetcher) Fetch(ctx context.Context, repoURL string) (*Info, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	ref, err := f.Reference(repoURL)
	if err != nil {
		return nil, err
	}
	return f.FetchReference(ctx, ref)
}

// FetchReference queries the provider for an already parsed reference.
func (f *Fetcher) FetchReference(ctx context.Context, ref Reference) (*Info, error) {
	if f == nil {
		return nil, &FetchError{Kind: KindTransport, Repository: ref.String(), Message: "fetcher is not configured"}
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if err := ref.validate(); err != nil {
		return nil, err
	}

	base := f.baseURL()
	endpoint := base.Hostname()

	if ok, wait := f.Backoff.Allow(endpoint); !ok {
		return nil, &FetchError{
			Kind:       KindRateLimited,
			Repository: ref.String(),
			StatusCode: http.StatusTooManyRequests,
			Message:    fmt.Sprintf("provider backoff active, retry in %s", wait.Round(time.Second)),
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, repositoryURL(base, ref), nil)
	if err != nil {
		return nil, &FetchError{Kind: KindTransport, Repository: ref.String(), Err: err}
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", "2022-11-28")
	req.Header.Set("User-Agent", f.userAgent())
	if token := strings.TrimSpace(f.Token); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	client := f.Client
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}

	resp, err := client.Do(req)
	if err != nil {
		metrics.RecordUpstreamRequest(githubSource, 0)
		return nil, &FetchError{Kind: KindTransport, Repository: ref.String(), Err: err}
	}
	defer resp.Body.Close() // nolint:errcheck // best-effort cleanup on HTTP response body

	metrics.RecordUpstreamRequest(githubSource, resp.StatusCode)

	switch {
	case resp.StatusCode == http.StatusOK:
		return decodeRepository(resp.Body, ref)
	case resp.StatusCode == http.StatusNotFound:
		return nil, f.failure(KindNotFound, ref, resp)
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, f.rateLimited(endpoint, ref, resp)
	case resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusUnauthorized:
		if wait, _ := rateLimitWait(resp, f.now()); wait > 0 || resp.Header.Get("X-RateLimit-Remaining") == "0" {
			return nil, f.rateLimited(endpoint, ref, resp)
		}
		return nil, f.failure(KindForbidden, ref, resp)
	default:
		return nil, f.failure(KindUpstream, ref, resp)
	}
}

// repositoryURL appends /repos/{owner}/{name} to base. The escaped path is
// set explicitly and dot segments are never resolved.
func repositoryURL(base *url.URL, ref Reference) string {
	u := *base
	u.Path = strings.TrimRight(base.Path, "/") + "/repos/" + ref.Owner + "/" + ref.Name
	u.RawPath = strings.TrimRight(base.EscapedPath(), "/") + "/repos/" + url.PathEscape(ref.Owner) + "/" + url.PathEscape(ref.Name)
	u.RawQuery = ""
	u.Fragment = ""
	return u.String()
}

func decodeRepository(body io.Reader, ref Reference) (*Info, error) {
	var payload repositoryPayload
	if err := json.NewDecoder(body).Decode(&payload); err != nil {
		return nil, &FetchError{Kind: KindDecode, Repository: ref.String(), StatusCode: http.StatusOK, Err: err}
	}

	name := strings.TrimSpace(payload.Name)
	if name == "" {
		name = ref.Name
	}

	return &Info{
		Name:        name,
		Description: payload.Description,
		Language:    payload.Language,
		FullName:    payload.FullName,
		HTMLURL:     payload.HTMLURL,
	}, nil
}

func (f *Fetcher) rateLimited(endpoint string, ref Reference, resp *http.Response) *FetchError {
	wait, _ := rateLimitWait(resp, f.now())
	if wait > 0 {
		f.Backoff.Record(endpoint, wait)
	}
	return f.failure(KindRateLimited, ref, resp)
}

func (f *Fetcher) failure(kind FailureKind, ref Reference, resp *http.Response) *FetchError {
	return &FetchError{
		Kind:       kind,
		Repository: ref.String(),
		StatusCode: resp.StatusCode,
		Message:    providerMessageFrom(resp.Body),
	}
}

func providerMessageFrom(body io.Reader) string {
	if body == nil {
		return ""
	}
	raw, err := io.ReadAll(io.LimitReader(body, maxErrorBody))
	if err != nil {
		return ""
	}
	var msg providerMessage
	if err := json.Unmarshal(raw, &msg); err == nil && strings.TrimSpace(msg.Message) != "" {
		return strings.TrimSpace(msg.Message)
	}
	return strings.TrimSpace(string(raw))
}

func (f *Fetcher) baseURL() *url.URL {
	if f != nil && strings.TrimSpace(f.BaseURL) != "" {
		if parsed, err := url.Parse(strings.TrimSpace(f.BaseURL)); err == nil && parsed.Host != "" {
			return parsed
		}
	}
	parsed, _ := url.Parse(defaultBaseURL)
	return parsed
}

func (f *Fetcher) hosts() []string {
	if f == nil || f.Hosts == nil {
		return DefaultHosts
	}
	return f.Hosts
}

func (f *Fetcher) userAgent() string {
	if f != nil && strings.TrimSpace(f.UserAgent) != "" {
		return strings.TrimSpace(f.UserAgent)
	}
	return defaultUserAgent
}

func (f *Fetcher) now() time.Time {
	if f != nil && f.Clock != nil {
		return f.Clock()
	}
	return time.Now().UTC()
}
