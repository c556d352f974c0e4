package urls

import (
	"fmt"
	"regexp"

	apperrors "github.com/Adithya-Monish-Kumar-K/tinyindex/pkg/errors"
)

var (
	domainPattern = regexp.MustCompile(`^.*?://([^/]*)`)
	urlPattern    = regexp.MustCompile(`^(([^:/?#]+):)?(//([^/?#]*)|///)?([^?#]*)(\?[^#]*)?(#.*)?`)
)

// ParsedURL holds the pieces of a URL needed for scoring and blocking.
type ParsedURL struct {
	Scheme   string
	Netloc   string
	Path     string
	RawQuery string
	Fragment string
}

// GetDomain returns the host part of url, including any port.
func GetDomain(url string) (string, error) {
	m := domainPattern.FindStringSubmatch(url)
	if m == nil {
		return "", fmt.Errorf("%w: no domain in %q", apperrors.ErrInvalidURL, url)
	}
	return m[1], nil
}

// ParseURL splits url into its components without the validation that
// net/url applies, so it accepts anything a crawler may have reported.
// RawQuery keeps its leading '?' and Fragment its leading '#'.
func ParseURL(url string) (ParsedURL, error) {
	m := urlPattern.FindStringSubmatch(url)
	if m == nil {
		return ParsedURL{}, fmt.Errorf("%w: %q", apperrors.ErrInvalidURL, url)
	}
	return ParsedURL{
		Scheme:   m[2],
		Netloc:   m[4],
		Path:     m[5],
		RawQuery: m[6],
		Fragment: m[7],
	}, nil
}

// Root returns the scheme and host of p as a URL with an empty path.
func (p ParsedURL) Root() string {
	return p.Scheme + "://" + p.Netloc + "/"
}
