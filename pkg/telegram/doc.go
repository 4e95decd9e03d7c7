// Package telegram resolves usernames and pages chat history over MTProto
// using github.com/gotd/td.
//
// A session is opened with Open, which runs the interactive login flow
// when the stored session is not authorized and then hands a Source to
// the callback:
//
//	err := telegram.Open(ctx, telegram.Options{
//	    APIID:       cfg.Telegram.APIID,
//	    APIHash:     cfg.Telegram.APIHash,
//	    SessionPath: cfg.Telegram.SessionPath,
//	}, func(ctx context.Context, src *telegram.Source) error {
//	    engine := crawl.NewEngine(telegram.Platform, src)
//	    _, err := engine.ResolveAll(ctx, usernames)
//	    return err
//	})
package telegram
