//
// SPDX-License-Identifier: GPL-3.0-or-later
//
// Copyright (C) 2025 Aaron Mathis aaron.mathis@gmail.com
//
// This file is part of TabFilter.
//
// TabFilter is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// TabFilter is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with TabFilter. If not, see https://www.gnu.org/licenses/.

package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// HTTPStatusError reports a response outside the 2xx range.
type HTTPStatusError struct {
	StatusCode int
	Status     string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("unexpected status %s", e.Status)
}

// retryable reports whether a request that failed with err may be sent again.
// Rate limiting and server errors are retried, other statuses are not.
func retryable(err error) bool {
	var statusErr *HTTPStatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode == http.StatusTooManyRequests || statusErr.StatusCode >= 500
	}
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}

// IsHTTP reports whether location is an http:// or https:// URL.
func IsHTTP(location string) bool {
	l := strings.ToLower(location)
	return strings.HasPrefix(l, "http://") || strings.HasPrefix(l, "https://")
}

// HTTPOptions configures HTTPStager.
type HTTPOptions struct {
	Headers       map[string]string
	BearerToken   string
	UserAgent     string
	Timeout       time.Duration
	RetryAttempts int
	RetryDelay    time.Duration
	Client        *http.Client
}

// HTTPOption represents a configuration function for HTTPStager.
type HTTPOption func(*HTTPOptions)

// WithHTTPHeader adds a header to every request.
func WithHTTPHeader(name, value string) HTTPOption {
	return func(opts *HTTPOptions) {
		if opts.Headers == nil {
			opts.Headers = make(map[string]string)
		}
		opts.Headers[name] = value
	}
}

func WithHTTPBearerToken(token string) HTTPOption {
	return func(opts *HTTPOptions) {
		opts.BearerToken = token
	}
}

func WithHTTPTimeout(timeout time.Duration) HTTPOption {
	return func(opts *HTTPOptions) {
		opts.Timeout = timeout
	}
}

// WithHTTPRetries sets how often a failed request is retried and the first
// backoff delay, which doubles on every attempt.
func WithHTTPRetries(attempts int, delay time.Duration) HTTPOption {
	return func(opts *HTTPOptions) {
		opts.RetryAttempts = attempts
		opts.RetryDelay = delay
	}
}

func WithHTTPClient(client *http.Client) HTTPOption {
	return func(opts *HTTPOptions) {
		opts.Client = client
	}
}

// HTTPStager implements Stager over plain HTTP. Sources are fetched with GET and
// destinations are sent with PUT, which suits presigned object store URLs.
type HTTPStager struct {
	client *http.Client
	opts   HTTPOptions
}

// NewHTTPStager returns a stager with a 30 second timeout and three retries.
func NewHTTPStager(options ...HTTPOption) *HTTPStager {
	opts := HTTPOptions{
		UserAgent:     "tabfilter/1.0",
		Timeout:       30 * time.Second,
		RetryAttempts: 3,
		RetryDelay:    time.Second,
	}
	for _, opt := range options {
		opt(&opts)
	}

	client := opts.Client
	if client == nil {
		client = &http.Client{Timeout: opts.Timeout}
	}
	return &HTTPStager{client: client, opts: opts}
}

// Download implements Stager. The local copy is named after the last path
// segment of the URL.
func (h *HTTPStager) Download(ctx context.Context, uri string) (string, func(), error) {
	u, err := url.Parse(uri)
	if err != nil {
		return "", nil, &StorageError{Op: "parse", URI: uri, Err: err}
	}

	resp, err := h.do(ctx, func() (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	})
	if err != nil {
		return "", nil, &StorageError{Op: "get", URI: uri, Err: err}
	}
	defer resp.Body.Close()

	return stage(uri, path.Base(u.Path), resp.Body)
}

// Upload implements Stager.
func (h *HTTPStager) Upload(ctx context.Context, local, uri string) error {
	info, err := os.Stat(local)
	if err != nil {
		return &StorageError{Op: "open_local", URI: uri, Err: err}
	}

	resp, err := h.do(ctx, func() (*http.Request, error) {
		f, err := os.Open(local)
		if err != nil {
			return nil, err
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPut, uri, f)
		if err != nil {
			f.Close()
			return nil, err
		}
		req.ContentLength = info.Size()
		return req, nil
	})
	if err != nil {
		return &StorageError{Op: "put", URI: uri, Err: err}
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	log.Debug().Str("uri", uri).Str("local", local).Msg("uploaded destination")
	return nil
}

// do sends the request built by newRequest, retrying with exponential backoff.
// A successful response is returned with its body open.
func (h *HTTPStager) do(ctx context.Context, newRequest func() (*http.Request, error)) (*http.Response, error) {
	var lastErr error
	for attempt := 0; attempt <= h.opts.RetryAttempts; attempt++ {
		if attempt > 0 {
			delay := h.opts.RetryDelay * time.Duration(1<<uint(attempt-1))
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		req, err := newRequest()
		if err != nil {
			return nil, err
		}
		h.decorate(req)

		resp, err := h.client.Do(req)
		if err == nil && resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return resp, nil
		}
		if err == nil {
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			err = &HTTPStatusError{StatusCode: resp.StatusCode, Status: resp.Status}
		}
		lastErr = err
		if !retryable(err) {
			break
		}
		log.Debug().Err(err).Str("url", req.URL.Redacted()).Int("attempt", attempt+1).Msg("request failed")
	}
	return nil, lastErr
}

func (h *HTTPStager) decorate(req *http.Request) {
	req.Header.Set("User-Agent", h.opts.UserAgent)
	for k, v := range h.opts.Headers {
		req.Header.Set(k, v)
	}
	if h.opts.BearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+h.opts.BearerToken)
	}
}
