package subscription

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"unicode/utf8"
)

var (
	// ErrBase64 reports input that is not valid base64 in either alphabet.
	ErrBase64 = errors.New("subscription: invalid base64")
	// ErrInvalidUTF8 reports base64 that decodes to bytes which are not UTF-8 text.
	ErrInvalidUTF8 = errors.New("subscription: decoded content is not valid UTF-8")
	// ErrEmptyDocument reports a subscription body with nothing to decode.
	ErrEmptyDocument = errors.New("subscription: empty document")

	ErrMissingAt    = errors.New("subscription: missing '@' separator")
	ErrMissingField = errors.New("subscription: missing required field")
	ErrPort         = errors.New("subscription: invalid port")
	ErrJSON         = errors.New("subscription: invalid JSON payload")
)

// DecodeBase64Text decodes s as base64 and returns the UTF-8 text it holds.
// Whitespace inside s is ignored, missing padding is restored, and both the
// standard and URL-safe alphabets are accepted.
func DecodeBase64Text(s string) (string, error) {
	compact := strings.Join(strings.Fields(s), "")
	if compact == "" {
		return "", nil
	}
	if len(compact)%4 == 1 {
		return "", ErrBase64
	}
	if rem := len(compact) % 4; rem != 0 {
		compact += strings.Repeat("=", 4-rem)
	}

	decoded, err := base64.StdEncoding.DecodeString(compact)
	if err != nil {
		decoded, err = base64.URLEncoding.DecodeString(compact)
		if err != nil {
			return "", ErrBase64
		}
	}
	if !utf8.Valid(decoded) {
		return "", ErrInvalidUTF8
	}
	return string(decoded), nil
}

// DecodeDocument decodes a whole base64 subscription body into text.
// Unlike per-line decoding, a failure here is fatal for the caller: there
// is nothing meaningful to split into lines.
func DecodeDocument(body []byte) (string, error) {
	s := strings.TrimPrefix(string(body), "\uFEFF")
	s = strings.TrimSpace(s)
	if s == "" {
		return "", ErrEmptyDocument
	}
	text, err := DecodeBase64Text(s)
	if err != nil {
		return "", fmt.Errorf("decode subscription document: %w", err)
	}
	return text, nil
}

// splitRemark cuts uri at the first '#'. Everything after it, including any
// further '#', is the percent-encoded remark.
func splitRemark(uri string) (string, string) {
	main, fragment, ok := strings.Cut(uri, "#")
	if !ok {
		return main, ""
	}
	return main, unescapeComponent(fragment)
}

// unescapeComponent percent-decodes s without treating '+' as a space and
// falls back to the raw text when s is not a valid escape sequence.
func unescapeComponent(s string) string {
	decoded, err := url.PathUnescape(s)
	if err != nil {
		return s
	}
	return decoded
}

// splitHostPort splits on ':' and keeps the first two fields; a missing
// port is returned as "".
func splitHostPort(authority string) (string, string) {
	fields := strings.Split(authority, ":")
	if len(fields) < 2 {
		return fields[0], ""
	}
	return fields[0], fields[1]
}

// parsePort reads the leading decimal digits of s. Range is not checked.
// Text with no leading digit has no port and fails with ErrPort.
func parsePort(s string) (int, error) {
	s = strings.TrimLeft(s, " \t")
	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == 0 {
		return 0, fmt.Errorf("%w: %q", ErrPort, s)
	}
	port, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrPort, s)
	}
	return port, nil
}

func missing(field string) error {
	return fmt.Errorf("%w: %s", ErrMissingField, field)
}
