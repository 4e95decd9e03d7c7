package discord

import (
	"bufio"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"unicode/utf8"

	errs "chatdump/pkg/errors"
)

// pseudo-headers copied from browser devtools that must not be sent
var skippedHeaders = []string{"authority", "method", "path", "scheme"}

// ParseHeaderSnippet extracts request headers from a "Copy as PowerShell"
// snippet taken from the browser's network tab. Lines that assign
// "key"="value" pairs are kept; the session setup and the
// Invoke-WebRequest call are ignored.
func ParseHeaderSnippet(r io.Reader) (map[string]string, error) {
	headers := make(map[string]string)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" ||
			strings.Contains(line, "$session") ||
			strings.Contains(line, "Invoke-WebRequest") ||
			!strings.Contains(line, "=") {
			continue
		}

		key, value, _ := strings.Cut(line, "=")
		key = strings.Trim(strings.TrimSpace(key), `"`)
		if isSkipped(key) {
			continue
		}
		value = strings.Trim(strings.Trim(strings.TrimSpace(value), `"`), "`")
		// the last header line of a hashtable ends with "}"
		value = strings.TrimSuffix(strings.TrimSpace(strings.TrimSuffix(value, "}")), `"`)

		if key == "" || strings.ContainsAny(key, " \t:") {
			return nil, fmt.Errorf("invalid header name %q", key)
		}
		headers[http.CanonicalHeaderKey(key)] = value
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return headers, nil
}

// LoadHeaderFile reads a header snippet from path
func LoadHeaderFile(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.Validation(path, "cannot read auth file: %v", err)
	}
	if !utf8.Valid(data) {
		return nil, errs.Validation(path, "auth file is not valid UTF-8")
	}

	headers, err := ParseHeaderSnippet(strings.NewReader(string(data)))
	if err != nil {
		return nil, errs.Validation(path, "%v", err)
	}
	if len(headers) == 0 {
		return nil, errs.Validation(path, "no headers found in auth file")
	}
	return headers, nil
}

func isSkipped(key string) bool {
	for _, k := range skippedHeaders {
		if strings.EqualFold(k, key) {
			return true
		}
	}
	return false
}
