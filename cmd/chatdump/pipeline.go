package main

import (
	"context"

	"chatdump/internal/crawl"
	"chatdump/pkg/input"
	"chatdump/pkg/logger"
	"chatdump/pkg/models"
)

// resolveUsers is Telegram phase one: resolve every username and write
// one resolved-peers artifact
func resolveUsers(ctx context.Context, b *batch, src crawl.Source, usernames []string) (string, error) {
	logger.LogBatchStart(b.log, b.platform, len(usernames), map[string]interface{}{"phase": "resolve"})

	peers, err := b.engine(src).ResolveAll(ctx, usernames)
	if err != nil {
		return "", err
	}
	return b.store.WriteResolvedPeers(b.execTime, peers)
}

// dumpPerPeer is Telegram phase two: one artifact per peer, written only
// once the whole batch has succeeded
func dumpPerPeer(ctx context.Context, b *batch, src crawl.Source, peers []models.ResolvedPeer, opts crawl.Options) ([]string, int, error) {
	targets := input.Usernames(peers)
	logger.LogBatchStart(b.log, b.platform, len(targets), map[string]interface{}{"limit": opts.Limit})

	dumps, err := b.engine(src).Run(ctx, targets, opts)
	if err != nil {
		return nil, 0, err
	}

	paths := make([]string, 0, len(dumps))
	for _, dump := range dumps {
		path, err := b.store.WriteDumpedPeer(b.execTime, dump, opts.Limit)
		if err != nil {
			return paths, 0, err
		}
		paths = append(paths, path)
	}
	return paths, countMessages(dumps), nil
}

// dumpAggregate is the Discord dump: every channel in one artifact
func dumpAggregate(ctx context.Context, b *batch, src crawl.Source, ids []string, opts crawl.Options) (string, int, error) {
	logger.LogBatchStart(b.log, b.platform, len(ids), map[string]interface{}{"limit": opts.Limit})

	dumps, err := b.engine(src).Run(ctx, ids, opts)
	if err != nil {
		return "", 0, err
	}

	path, err := b.store.WriteDumpedPeers(b.execTime, dumps)
	if err != nil {
		return "", 0, err
	}
	return path, countMessages(dumps), nil
}

func countMessages(dumps []models.DumpedPeer) int {
	n := 0
	for _, d := range dumps {
		n += len(d.Chunks)
	}
	return n
}
