// Package storage writes crawl results to disk.
//
// Artifact names are derived from the platform, a count or the peer's
// username, the optional limit and the batch start time:
//
//	telegram_resolved_peers_{n}_{ts}.json
//	telegram_{username}[_{limit}]_{ts}.json
//	discord_dumped_peers_{n}_{ts}.json
//
// where ts is the UTC start time in RFC 3339 with ':' and '+' replaced by
// '_', e.g. 2024-05-01T12_00_00Z.
//
// Every artifact is written to a temporary file in the output directory
// and renamed into place. Failures are returned as persistence errors
// naming the target path.
//
// Usage:
//
//	manager, err := storage.NewManager("out", storage.WithLogger(log))
//	if err != nil {
//	    return err
//	}
//	path, err := manager.WriteDumpedPeers(start, dumps)
package storage
