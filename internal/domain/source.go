package domain

import (
	"regexp"
	"strings"
)

// sourcePatterns is the host allow-list; the scheme is optional.
var sourcePatterns = []*regexp.Regexp{
	regexp.MustCompile(`^(https?://)?(www\.)?(youtube\.com|youtu\.be)/.+$`),
	regexp.MustCompile(`^(https?://)?(www\.)?youtube\.com/watch\?v=[\w-]+$`),
	regexp.MustCompile(`^(https?://)?(www\.)?youtu\.be/[\w-]+$`),
}

// IsSupportedSource reports whether url points at a recognized video host.
func IsSupportedSource(url string) bool {
	for _, p := range sourcePatterns {
		if p.MatchString(url) {
			return true
		}
	}
	return false
}

// ValidateSource checks that url is present and on the allow-list.
func ValidateSource(url string) error {
	url = strings.TrimSpace(url)
	if url == "" {
		return NewInputError("url is required")
	}
	if !IsSupportedSource(url) {
		return NewInputError("unsupported video url")
	}
	return nil
}
