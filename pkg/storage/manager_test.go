package storage

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errs "chatdump/pkg/errors"
	"chatdump/pkg/logger"
	"chatdump/pkg/metrics"
	"chatdump/pkg/models"
)

var execTime = time.Date(2024, 5, 1, 14, 30, 5, 0, time.FixedZone("CEST", 2*60*60))

func newTestManager(t *testing.T) (*Manager, string) {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "out")
	m, err := NewManager(dir, WithLogger(logger.NewNopLogger()))
	require.NoError(t, err)
	return m, dir
}

func TestTimestamp(t *testing.T) {
	assert.Equal(t, "2024-05-01T12_30_05Z", Timestamp(execTime))
	assert.Equal(t, "1970-01-01T00_00_00Z", Timestamp(time.Unix(0, 0)))
}

func TestFilenames(t *testing.T) {
	tests := []struct {
		name string
		got  string
		want string
	}{
		{"resolved peers", ResolvedPeersFilename(3, execTime), "telegram_resolved_peers_3_2024-05-01T12_30_05Z.json"},
		{"peer with limit", DumpedPeerFilename("alice", 50, execTime), "telegram_alice_50_2024-05-01T12_30_05Z.json"},
		{"peer without limit", DumpedPeerFilename("alice", 0, execTime), "telegram_alice_2024-05-01T12_30_05Z.json"},
		{"private peer", DumpedPeerFilename(models.PrivateUsername, 0, execTime), "telegram_PRIVATE_USERNAME_2024-05-01T12_30_05Z.json"},
		{"separator in username", DumpedPeerFilename("a/b", 0, execTime), "telegram_a_b_2024-05-01T12_30_05Z.json"},
		{"discord aggregate", DumpedPeersFilename(2, execTime), "discord_dumped_peers_2_2024-05-01T12_30_05Z.json"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.got)
		})
	}
}

func TestWriteResolvedPeers(t *testing.T) {
	m, dir := newTestManager(t)
	peers := []models.ResolvedPeer{
		models.NewResolvedPeer("1", "alice"),
		models.NewResolvedPeer("2", ""),
	}

	path, err := m.WriteResolvedPeers(execTime, peers)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "telegram_resolved_peers_2_2024-05-01T12_30_05Z.json"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, `[
		{"peer_id":"1","peer_username":"alice"},
		{"peer_id":"2","peer_username":"PRIVATE_USERNAME"}
	]`, string(data))
}

func TestWriteDumpedPeer(t *testing.T) {
	m, _ := newTestManager(t)
	dump := models.DumpedPeer{
		Peer: models.NewResolvedPeer("10", "alice"),
		Chunks: []models.Message{{
			ID:        "7",
			UserID:    models.SenderID(42),
			Content:   "hello",
			Timestamp: time.Date(2024, 4, 30, 8, 0, 0, 0, time.UTC),
		}},
	}

	path, err := m.WriteDumpedPeer(execTime, dump, 50)
	require.NoError(t, err)
	assert.Equal(t, "telegram_alice_50_2024-05-01T12_30_05Z.json", filepath.Base(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"peer":{"peer_id":"10","peer_username":"alice"},
		"chunks":[{"id":"7","user_id":"user42","message":"hello","date":"2024-04-30T08:00:00Z"}]
	}`, string(data))
}

func TestWriteDumpedPeersEmptyChunks(t *testing.T) {
	m, _ := newTestManager(t)
	dumps := []models.DumpedPeer{
		{Peer: models.ResolvedPeer{PeerID: "111", PeerUsername: "111"}},
	}

	path, err := m.WriteDumpedPeers(execTime, dumps)
	require.NoError(t, err)

	var decoded []map[string]json.RawMessage
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "[]", string(decoded[0]["chunks"]))
}

func TestWriteLeavesNoTemporaryFiles(t *testing.T) {
	m, dir := newTestManager(t)

	_, err := m.WriteResolvedPeers(execTime, nil)
	require.NoError(t, err)
	_, err = m.WriteDumpedPeers(execTime, nil)
	require.NoError(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	for _, e := range entries {
		assert.Equal(t, ".json", filepath.Ext(e.Name()))
	}
	assert.Len(t, m.Written(), 2)
}

func TestWriteFailureIsPersistenceError(t *testing.T) {
	m, dir := newTestManager(t)
	require.NoError(t, os.RemoveAll(dir))
	require.NoError(t, os.WriteFile(dir, []byte("not a directory"), 0644))

	_, err := m.WriteResolvedPeers(execTime, nil)

	require.Error(t, err)
	assert.True(t, errs.IsKind(err, errs.KindPersistence))
	assert.Contains(t, err.Error(), "telegram_resolved_peers_0_")
}

func TestNewManagerFailsOnFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(file, nil, 0644))

	_, err := NewManager(filepath.Join(file, "sub"))
	assert.True(t, errs.IsKind(err, errs.KindPersistence))
}

func TestWriteRecordsMetricsAndLogs(t *testing.T) {
	collector := metrics.New()
	tl := logger.NewTestLogger()
	m, err := NewManager(t.TempDir(), WithLogger(tl), WithMetrics(collector))
	require.NoError(t, err)

	_, err = m.WriteResolvedPeers(execTime, []models.ResolvedPeer{models.NewResolvedPeer("1", "a")})
	require.NoError(t, err)

	assert.True(t, tl.HasMessage("Artifact written"))
	count, err := testutil.GatherAndCount(collector.Registry(), "chatdump_artifact_bytes_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
