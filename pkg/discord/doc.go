// Package discord provides a client for Discord's REST API authenticated
// with headers copied from a logged-in browser session.
//
// This package includes:
//   - A configurable HTTP client with optional SOCKS5 proxy support
//   - Translation of 429 responses into rate-limit signals
//   - A parser for "Copy as PowerShell" header snippets
//   - A crawl source that pages channel history
//
// Example usage:
//
//	headers, err := discord.LoadHeaderFile("auth.txt")
//	if err != nil {
//	    return err
//	}
//	client, err := discord.NewClient(discord.Options{Headers: headers})
//	if err != nil {
//	    return err
//	}
//
//	page, err := client.GetMessages(ctx, "1120000000000000000", discord.MessageQuery{Limit: 100})
//	if err != nil {
//	    var dErr *discord.Error
//	    if errors.As(err, &dErr) && dErr.Type == discord.ErrorTypeAuth {
//	        // refresh the auth file
//	    }
//	}
package discord
