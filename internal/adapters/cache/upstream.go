package cache

import "time"

// UpstreamResponse is a raw upstream reply cached for passthrough endpoints.
type UpstreamResponse struct {
	Data       []byte
	StatusCode int
}

type UpstreamResponseCache = Cache[UpstreamResponse]

func NewTTLUpstreamResponseCache(ttl time.Duration) UpstreamResponseCache {
	return NewTTLCache[UpstreamResponse](ttl)
}
