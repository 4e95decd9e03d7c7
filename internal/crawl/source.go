package crawl

import (
	"context"

	"chatdump/pkg/models"
)

// PageSize is the largest page a history request may ask for
const PageSize = 100

// Source is a platform's Peer Resolver. Resolve maps a user-supplied
// target to its peer and a History positioned at the newest message.
type Source interface {
	Resolve(ctx context.Context, target string) (models.ResolvedPeer, History, error)
}

// History fetches one page of messages older than before, newest first.
// An empty before means "start from the newest message". Implementations
// return *errors.RateLimitError for throttling signals so the caller can
// back off and re-issue the same request. Entries the platform returns
// without content come back as placeholders so the page keeps the length
// and last id the platform sent.
type History interface {
	FetchPage(ctx context.Context, limit int, before string) ([]models.Message, error)
}
