package domain

import "errors"

var (
	ErrUnauthorized        = errors.New("admin token rejected by upstream")
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
	ErrMalformedResponse   = errors.New("malformed upstream response")
)
