package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"

	errs "chatdump/pkg/errors"
	"chatdump/pkg/logger"
	"chatdump/pkg/metrics"
	"chatdump/pkg/models"
)

// Manager writes crawl artifacts into one output directory
type Manager struct {
	outputDir string
	log       logger.Logger
	metrics   *metrics.Collector
	written   []string
	mu        sync.Mutex
}

// Option configures a Manager
type Option func(*Manager)

// WithLogger sets the logger used for write events
func WithLogger(l logger.Logger) Option {
	return func(m *Manager) { m.log = l }
}

// WithMetrics counts written bytes into c
func WithMetrics(c *metrics.Collector) Option {
	return func(m *Manager) { m.metrics = c }
}

// NewManager creates a new storage manager, creating outputDir if needed
func NewManager(outputDir string, opts ...Option) (*Manager, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, errs.Persistence(outputDir, fmt.Errorf("failed to create output directory: %w", err))
	}

	m := &Manager{outputDir: outputDir}
	for _, opt := range opts {
		opt(m)
	}
	if m.log == nil {
		m.log = logger.GetLogger()
	}
	return m, nil
}

// Timestamp renders t the way artifact names carry it: UTC, RFC 3339 at
// second precision, with ':' and '+' replaced by '_'
func Timestamp(t time.Time) string {
	ts := t.UTC().Format(time.RFC3339)
	return strings.NewReplacer(":", "_", "+", "_").Replace(ts)
}

// ResolvedPeersFilename names the output of a resolution batch
func ResolvedPeersFilename(count int, execTime time.Time) string {
	return fmt.Sprintf("telegram_resolved_peers_%d_%s.json", count, Timestamp(execTime))
}

// DumpedPeerFilename names the per-peer Telegram dump. limit 0 means none
// was given and is left out.
func DumpedPeerFilename(username string, limit int, execTime time.Time) string {
	name := strings.NewReplacer("/", "_", string(filepath.Separator), "_").Replace(username)
	if limit > 0 {
		return fmt.Sprintf("telegram_%s_%d_%s.json", name, limit, Timestamp(execTime))
	}
	return fmt.Sprintf("telegram_%s_%s.json", name, Timestamp(execTime))
}

// DumpedPeersFilename names the aggregate Discord dump
func DumpedPeersFilename(count int, execTime time.Time) string {
	return fmt.Sprintf("discord_dumped_peers_%d_%s.json", count, Timestamp(execTime))
}

// WriteResolvedPeers writes the result of a resolution batch
func (m *Manager) WriteResolvedPeers(execTime time.Time, peers []models.ResolvedPeer) (string, error) {
	if peers == nil {
		peers = []models.ResolvedPeer{}
	}
	return m.writeJSON(ResolvedPeersFilename(len(peers), execTime), peers, len(peers))
}

// WriteDumpedPeer writes one Telegram peer's messages
func (m *Manager) WriteDumpedPeer(execTime time.Time, dump models.DumpedPeer, limit int) (string, error) {
	if dump.Chunks == nil {
		dump.Chunks = []models.Message{}
	}
	return m.writeJSON(DumpedPeerFilename(dump.Peer.PeerUsername, limit, execTime), dump, len(dump.Chunks))
}

// WriteDumpedPeers writes every Discord channel of a batch into one file
func (m *Manager) WriteDumpedPeers(execTime time.Time, dumps []models.DumpedPeer) (string, error) {
	out := make([]models.DumpedPeer, len(dumps))
	records := 0
	for i, d := range dumps {
		if d.Chunks == nil {
			d.Chunks = []models.Message{}
		}
		out[i] = d
		records += len(d.Chunks)
	}
	return m.writeJSON(DumpedPeersFilename(len(dumps), execTime), out, records)
}

// writeJSON writes v to a temporary file and renames it into place, so a
// reader never sees a truncated artifact
func (m *Manager) writeJSON(name string, v interface{}, records int) (string, error) {
	path := filepath.Join(m.outputDir, name)

	data, err := json.Marshal(v)
	if err != nil {
		return "", errs.Persistence(path, fmt.Errorf("failed to encode: %w", err))
	}

	tmp, err := os.CreateTemp(m.outputDir, "."+name+".*.tmp")
	if err != nil {
		return "", errs.Persistence(path, fmt.Errorf("failed to create temporary file: %w", err))
	}
	tmpName := tmp.Name()

	_, err = tmp.Write(data)
	closeErr := tmp.Close()

	if err != nil {
		os.Remove(tmpName)
		return "", errs.Persistence(path, fmt.Errorf("failed to write data: %w", err))
	}
	if closeErr != nil {
		os.Remove(tmpName)
		return "", errs.Persistence(path, fmt.Errorf("failed to close file: %w", closeErr))
	}

	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return "", errs.Persistence(path, fmt.Errorf("failed to rename temporary file: %w", err))
	}

	m.mu.Lock()
	m.written = append(m.written, path)
	m.mu.Unlock()

	m.metrics.ArtifactWritten(int64(len(data)))
	logger.LogArtifactWritten(m.log, path, records, humanize.Bytes(uint64(len(data))))

	return path, nil
}

// Written returns the paths written so far, in write order
func (m *Manager) Written() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.written...)
}
