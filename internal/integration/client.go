// Package integration handles external service interactions
package integration

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/abelzeko/ache-o-meter/internal/forecast"
	"github.com/sony/gobreaker/v2"
)

const maxBodyBytes = 8 << 20

// endpoint is a single upstream URL guarded by its own circuit breaker.
// Requests are not retried: a failed fetch waits for the next cycle.
type endpoint struct {
	name    string
	url     string
	client  *http.Client
	breaker *gobreaker.CircuitBreaker[[]byte]
}

func newEndpoint(name, url string, client *http.Client) *endpoint {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	cb := gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     2 * time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Printf("Circuit breaker %s changed state: %s -> %s", name, from, to)
		},
	})
	return &endpoint{name: name, url: url, client: client, breaker: cb}
}

// get performs a GET with the given query and returns the body of a 2xx response.
// Every failure is wrapped with forecast.ErrSourceUnavailable.
func (e *endpoint) get(ctx context.Context, query string) ([]byte, error) {
	target := e.url
	if query != "" {
		target += "?" + query
	}

	body, err := e.breaker.Execute(func() ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to build request: %v", err)
		}
		req.Header.Set("Accept", "application/json")

		res, err := e.client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("request failed: %v", err)
		}
		defer res.Body.Close()

		if res.StatusCode < 200 || res.StatusCode >= 300 {
			return nil, fmt.Errorf("unexpected status code: %d %s", res.StatusCode, res.Status)
		}

		data, err := io.ReadAll(io.LimitReader(res.Body, maxBodyBytes))
		if err != nil {
			return nil, fmt.Errorf("failed to read response body: %v", err)
		}
		return data, nil
	})
	if err != nil {
		log.Printf("Error fetching %s data: %v", e.name, err)
		return nil, fmt.Errorf("%w: %s: %v", forecast.ErrSourceUnavailable, e.name, err)
	}

	log.Printf("Successfully received %d bytes from %s", len(body), e.name)
	return body, nil
}

// unavailable wraps a parse failure of a source response.
func unavailable(source string, format string, args ...any) error {
	err := fmt.Errorf("%w: %s: %s", forecast.ErrSourceUnavailable, source, fmt.Sprintf(format, args...))
	log.Printf("Error parsing %s data: %v", source, err)
	return err
}
