// Package input loads and validates the files and flags a batch starts from.
package input

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	errs "chatdump/pkg/errors"
	"chatdump/pkg/models"
)

// CheckFile verifies that path is a regular file with one of the given
// extensions (without the dot, compared case-insensitively)
func CheckFile(path string, extensions ...string) error {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return errs.Validation(path, "file not found")
		}
		return errs.Validation(path, "cannot access file: %v", err)
	}
	if info.IsDir() {
		return errs.Validation(path, "expected a file, got a directory")
	}

	if len(extensions) == 0 {
		return nil
	}
	found := strings.TrimPrefix(filepath.Ext(path), ".")
	for _, ext := range extensions {
		if strings.EqualFold(found, ext) {
			return nil
		}
	}
	return errs.Validation(path, "mismatched file type, expected '%s', got '%s'", strings.Join(extensions, "|"), found)
}

// ReadTargets reads a .txt file with one target per line. Lines are
// trimmed and NFC-normalised; blank lines are skipped.
func ReadTargets(path string) ([]string, error) {
	if err := CheckFile(path, "txt"); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.Validation(path, "cannot read file: %v", err)
	}
	if !utf8.Valid(data) {
		return nil, errs.Validation(path, "file is not valid UTF-8")
	}
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))

	var targets []string
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		targets = append(targets, norm.NFC.String(line))
	}
	if err := scanner.Err(); err != nil {
		return nil, errs.Validation(path, "cannot read file: %v", err)
	}
	if len(targets) == 0 {
		return nil, errs.Validation(path, "no targets found")
	}
	return targets, nil
}

// ReadResolvedPeers reads the JSON array written by a resolution batch
func ReadResolvedPeers(path string) ([]models.ResolvedPeer, error) {
	if err := CheckFile(path, "json"); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.Validation(path, "cannot read file: %v", err)
	}

	var peers []models.ResolvedPeer
	if err := json.Unmarshal(data, &peers); err != nil {
		return nil, errs.Validation(path, "cannot deserialize resolved peers: %v", err)
	}
	// peers are crawled and archived by username
	seen := make(map[string]int, len(peers))
	for i, p := range peers {
		if p.PeerID == "" || p.PeerUsername == "" {
			return nil, errs.Validation(path, "entry %d is missing peer_id or peer_username", i)
		}
		if first, ok := seen[p.PeerUsername]; ok {
			return nil, errs.Validation(path, "entry %d repeats peer %q from entry %d", i, p.PeerUsername, first)
		}
		seen[p.PeerUsername] = i
	}
	if len(peers) == 0 {
		return nil, errs.Validation(path, "no peers found")
	}
	return peers, nil
}

// Usernames returns the username of every peer, in order
func Usernames(peers []models.ResolvedPeer) []string {
	out := make([]string, len(peers))
	for i, p := range peers {
		out[i] = p.PeerUsername
	}
	return out
}

// ValidateSnowflakes checks that every id is a numeric platform id and
// reports all offenders at once
func ValidateSnowflakes(ids []string) error {
	var bad []string
	for _, id := range ids {
		if _, err := strconv.ParseUint(id, 10, 64); err != nil {
			bad = append(bad, id)
		}
	}
	if len(bad) > 0 {
		return errs.Validation(strings.Join(bad, ", "), "invalid ids supplied")
	}
	return nil
}

// ParseDatePoint accepts unix seconds or an RFC 3339 timestamp
func ParseDatePoint(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, errs.Validation("--date-point", "a date is required")
	}
	if secs, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(secs, 0).UTC(), nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, errs.Validation(s, "unable to parse datetime string: %v", err)
	}
	return t.UTC(), nil
}

// ValidateLimit accepts a positive count. An unset limit of 0 means no
// limit; set reports whether the flag was given explicitly.
func ValidateLimit(limit int, set bool) error {
	if limit < 0 || (set && limit == 0) {
		return errs.Validation("--limit", "must be positive, got %d", limit)
	}
	return nil
}

// Describe renders a one-line summary of a batch's parameters
func Describe(targets int, limit int, boundary time.Time) string {
	l := "none"
	if limit > 0 {
		l = strconv.Itoa(limit)
	}
	return fmt.Sprintf("%d targets, limit %s, back to %s", targets, l, boundary.Format(time.RFC3339))
}
