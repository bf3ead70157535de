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

// Package storage stages remote tables on the local filesystem so the readers
// and writers only ever deal with local paths.
package storage

import (
	"context"
	"fmt"
	"os"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog/log"
)

// Scheme is the URI prefix of objects handled by S3Stager.
const Scheme = "s3://"

// StorageError provides structured error information for staging operations.
type StorageError struct {
	Op  string
	URI string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s %s: %v", e.Op, e.URI, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// Stager copies tables between a remote store and local files.
type Stager interface {
	// Download copies uri to a local file. cleanup removes the local copy.
	Download(ctx context.Context, uri string) (local string, cleanup func(), err error)
	// Upload copies the local file to uri.
	Upload(ctx context.Context, local, uri string) error
}

// ObjectAPI is the subset of the S3 client used by S3Stager.
type ObjectAPI interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// IsS3 reports whether location names an S3 object.
func IsS3(location string) bool {
	return strings.HasPrefix(strings.ToLower(location), Scheme)
}

// ParseURI splits s3://bucket/key into its bucket and key.
func ParseURI(uri string) (bucket, key string, err error) {
	if !IsS3(uri) {
		return "", "", fmt.Errorf("not an s3 uri: %q", uri)
	}
	rest := uri[len(Scheme):]
	bucket, key, _ = strings.Cut(rest, "/")
	if bucket == "" || key == "" || strings.HasSuffix(key, "/") {
		return "", "", fmt.Errorf("s3 uri %q needs both a bucket and an object key", uri)
	}
	return bucket, key, nil
}

// S3Options configures the S3 client.
type S3Options struct {
	Region         string
	Profile        string
	Credentials    aws.Credentials
	EndpointURL    string
	ForcePathStyle bool
}

// S3Option represents a configuration function for S3Stager.
type S3Option func(*S3Options)

func WithS3Region(region string) S3Option {
	return func(opts *S3Options) {
		opts.Region = region
	}
}

func WithS3Profile(profile string) S3Option {
	return func(opts *S3Options) {
		opts.Profile = profile
	}
}

func WithS3Credentials(creds aws.Credentials) S3Option {
	return func(opts *S3Options) {
		opts.Credentials = creds
	}
}

// WithS3Endpoint targets an S3 compatible service such as MinIO.
func WithS3Endpoint(endpoint string) S3Option {
	return func(opts *S3Options) {
		opts.EndpointURL = endpoint
	}
}

func WithS3PathStyle(pathStyle bool) S3Option {
	return func(opts *S3Options) {
		opts.ForcePathStyle = pathStyle
	}
}

// S3Stager implements Stager for Amazon S3 and compatible stores.
type S3Stager struct {
	client ObjectAPI
}

// NewS3Stager builds an S3 client from the default AWS configuration chain,
// overridden by options.
func NewS3Stager(ctx context.Context, options ...S3Option) (*S3Stager, error) {
	var opts S3Options
	for _, opt := range options {
		opt(&opts)
	}

	cfg, err := loadAWSConfig(ctx, opts)
	if err != nil {
		return nil, &StorageError{Op: "load_config", Err: err}
	}
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.EndpointURL != "" {
			o.BaseEndpoint = aws.String(opts.EndpointURL)
		}
		o.UsePathStyle = opts.ForcePathStyle
	})
	return &S3Stager{client: client}, nil
}

// NewS3StagerWithClient wraps an existing client.
func NewS3StagerWithClient(client ObjectAPI) *S3Stager {
	return &S3Stager{client: client}
}

// Download implements Stager. The local copy keeps the object's base name so
// extension based format dispatch still works.
func (s *S3Stager) Download(ctx context.Context, uri string) (string, func(), error) {
	bucket, key, err := ParseURI(uri)
	if err != nil {
		return "", nil, &StorageError{Op: "parse", URI: uri, Err: err}
	}

	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return "", nil, &StorageError{Op: "get_object", URI: uri, Err: err}
	}
	defer out.Body.Close()

	return stage(uri, path.Base(key), out.Body)
}

// Upload implements Stager.
func (s *S3Stager) Upload(ctx context.Context, local, uri string) error {
	bucket, key, err := ParseURI(uri)
	if err != nil {
		return &StorageError{Op: "parse", URI: uri, Err: err}
	}

	f, err := os.Open(local)
	if err != nil {
		return &StorageError{Op: "open_local", URI: uri, Err: err}
	}
	defer f.Close()

	if _, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
		Body:   f,
	}); err != nil {
		return &StorageError{Op: "put_object", URI: uri, Err: err}
	}

	log.Debug().Str("uri", uri).Str("local", local).Msg("uploaded destination")
	return nil
}

func loadAWSConfig(ctx context.Context, opts S3Options) (aws.Config, error) {
	configOpts := []func(*config.LoadOptions) error{}
	if opts.Region != "" {
		configOpts = append(configOpts, config.WithRegion(opts.Region))
	}
	if opts.Profile != "" {
		configOpts = append(configOpts, config.WithSharedConfigProfile(opts.Profile))
	}

	cfg, err := config.LoadDefaultConfig(ctx, configOpts...)
	if err != nil {
		return aws.Config{}, err
	}

	if opts.Credentials.AccessKeyID != "" {
		cfg.Credentials = aws.NewCredentialsCache(
			credentials.NewStaticCredentialsProvider(
				opts.Credentials.AccessKeyID,
				opts.Credentials.SecretAccessKey,
				opts.Credentials.SessionToken,
			),
		)
	}
	return cfg, nil
}
