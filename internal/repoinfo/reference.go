package repoinfo

import (
	"net"
	"strings"
)

// ParseReference extracts owner and repository name from a repository URL
// such as https://github.com/acme/widget. The URL is split on "/" and the
// fourth and fifth segments are taken; anything after them is ignored. A
// trailing ".git" on the name is dropped.
func ParseReference(repoURL string) (Reference, error) {
	segments := strings.Split(strings.TrimSpace(repoURL), "/")
	if len(segments) < 5 {
		return Reference{}, malformed(repoURL, "expected https://host/owner/repo")
	}

	owner := strings.TrimSpace(segments[3])
	name := strings.TrimSuffix(strings.TrimSpace(segments[4]), ".git")
	if owner == "" || name == "" {
		return Reference{}, malformed(repoURL, "owner and repository name are required")
	}

	ref := Reference{Owner: owner, Name: name}
	if err := ref.validate(); err != nil {
		err.Repository = repoURL
		return Reference{}, err
	}
	return ref, nil
}

// validate restricts owner and name to the provider's character set. Dot
// segments are refused so the request path cannot climb out of /repos.
func (r Reference) validate() *FetchError {
	for _, segment := range []string{r.Owner, r.Name} {
		if !validSegment(segment) {
			return malformed(r.String(), "owner and repository name may only contain letters, digits, '.', '-' and '_'")
		}
	}
	return nil
}

func validSegment(segment string) bool {
	if segment == "" || segment == "." || segment == ".." {
		return false
	}
	for i := 0; i < len(segment); i++ {
		c := segment[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		case c == '.' || c == '-' || c == '_':
		default:
			return false
		}
	}
	return true
}

// ParseReferenceForHosts is ParseReference restricted to URLs whose host
// segment is one of hosts. An empty hosts list accepts any host.
func ParseReferenceForHosts(repoURL string, hosts []string) (Reference, error) {
	ref, err := ParseReference(repoURL)
	if err != nil {
		return Reference{}, err
	}
	if len(hosts) == 0 {
		return ref, nil
	}

	host := hostSegment(repoURL)
	for _, allowed := range hosts {
		if strings.EqualFold(strings.TrimSpace(allowed), host) {
			return ref, nil
		}
	}
	return Reference{}, malformed(repoURL, "unsupported repository host "+host)
}

func hostSegment(repoURL string) string {
	segments := strings.Split(strings.TrimSpace(repoURL), "/")
	if len(segments) < 3 {
		return ""
	}
	host := strings.ToLower(strings.TrimSpace(segments[2]))
	if h, _, err := net.SplitHostPort(host); err == nil {
		return h
	}
	return host
}

func malformed(repoURL, message string) *FetchError {
	return &FetchError{
		Kind:       KindMalformedURL,
		Repository: repoURL,
		Message:    message,
	}
}
