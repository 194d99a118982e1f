// Package httputil builds the pooled HTTP client for outbound context reads.
package httputil

import (
	"net"
	"net/http"
	"time"
)

// NewContextAPIClient returns the client used for Spotify and Google context
// reads during newsletter drafting. Those calls are best-effort garnish on
// the email, so the client fails fast rather than stalling a draft worker.
func NewContextAPIClient() *http.Client {
	dialer := &net.Dialer{
		Timeout:   5 * time.Second,
		KeepAlive: 30 * time.Second,
	}

	transport := &http.Transport{
		DialContext:           dialer.DialContext,
		MaxIdleConns:          20,
		MaxIdleConnsPerHost:   5,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ResponseHeaderTimeout: 10 * time.Second,
		ForceAttemptHTTP2:     true,
	}

	return &http.Client{
		Transport: transport,
		Timeout:   15 * time.Second,
	}
}
