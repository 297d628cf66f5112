package cache

import (
	"context"
	"fmt"
	"net/url"
	"time"
)

// Key prefixes for the gateway memoization layer. This cache sits in front of
// the persistent store and only absorbs bursts of identical upstream calls.
const (
	tmdbKeyPrefix    = "memo:tmdb:%s?%s"
	sourcesKeyPrefix = "memo:sources:%s?%s"
)

const (
	// GenreListTTL covers the merged genre list, which changes rarely.
	GenreListTTL = 24 * time.Hour
)

// TMDBKey builds a memo key from an endpoint and its query parameters.
// url.Values.Encode sorts by key, so the same call always maps to the same key
// regardless of parameter order. Credentials must not be part of params.
func TMDBKey(endpoint string, params url.Values) string {
	return fmt.Sprintf(tmdbKeyPrefix, endpoint, params.Encode())
}

// SourcesKey builds a memo key for a streaming-source provider call.
func SourcesKey(endpoint string, params url.Values) string {
	return fmt.Sprintf(sourcesKeyPrefix, endpoint, params.Encode())
}

// FlushMemos removes every gateway memo entry. Clearing the store without
// clearing memos would resurrect stale upstream payloads on the next miss.
func FlushMemos(ctx context.Context) {
	if client == nil {
		return
	}
	iter := client.Scan(ctx, 0, "memo:*", 100).Iterator()
	for iter.Next(ctx) {
		Invalidate(ctx, iter.Val())
	}
}
