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
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeObjects struct {
	objects map[string][]byte
	failGet bool
}

func newFakeObjects() *fakeObjects {
	return &fakeObjects{objects: make(map[string][]byte)}
}

func (f *fakeObjects) GetObject(ctx context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	if f.failGet {
		return nil, errors.New("access denied")
	}
	data, ok := f.objects[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)]
	if !ok {
		return nil, errors.New("no such key")
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (f *fakeObjects) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.objects[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)] = data
	return &s3.PutObjectOutput{}, nil
}

func TestParseURI(t *testing.T) {
	tests := []struct {
		uri     string
		bucket  string
		key     string
		wantErr bool
	}{
		{"s3://data/people.csv", "data", "people.csv", false},
		{"S3://data/in/2025/people.xlsx", "data", "in/2025/people.xlsx", false},
		{"s3://data", "", "", true},
		{"s3://data/", "", "", true},
		{"s3://data/folder/", "", "", true},
		{"/tmp/people.csv", "", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.uri, func(t *testing.T) {
			bucket, key, err := ParseURI(tt.uri)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.bucket, bucket)
			assert.Equal(t, tt.key, key)
		})
	}
}

func TestIsRemote(t *testing.T) {
	assert.True(t, IsS3("s3://bucket/key.csv"))
	assert.True(t, IsRemote("S3://bucket/key.csv"))
	assert.True(t, IsRemote("https://example.com/people.csv"))
	assert.True(t, IsHTTP("http://example.com/people.csv"))
	assert.False(t, IsS3("https://example.com/people.csv"))
	assert.False(t, IsRemote("bucket/key.csv"))
	assert.False(t, IsRemote(""))
}

func TestS3Stager_Download(t *testing.T) {
	objects := newFakeObjects()
	objects.objects["data/in/people.csv"] = []byte("Name\nAlice\n")
	stager := NewS3StagerWithClient(objects)

	local, cleanup, err := stager.Download(context.Background(), "s3://data/in/people.csv")
	require.NoError(t, err)
	assert.Equal(t, "people.csv", filepath.Base(local))

	content, err := os.ReadFile(local)
	require.NoError(t, err)
	assert.Equal(t, "Name\nAlice\n", string(content))

	cleanup()
	_, err = os.Stat(local)
	assert.True(t, os.IsNotExist(err))
}

func TestS3Stager_DownloadFailure(t *testing.T) {
	objects := newFakeObjects()
	objects.failGet = true
	stager := NewS3StagerWithClient(objects)

	_, _, err := stager.Download(context.Background(), "s3://data/people.csv")
	var storageErr *StorageError
	require.ErrorAs(t, err, &storageErr)
	assert.Equal(t, "get_object", storageErr.Op)
}

func TestS3Stager_Upload(t *testing.T) {
	objects := newFakeObjects()
	stager := NewS3StagerWithClient(objects)

	local := filepath.Join(t.TempDir(), "out.csv")
	require.NoError(t, os.WriteFile(local, []byte("Name\nBob\n"), 0o644))

	require.NoError(t, stager.Upload(context.Background(), local, "s3://results/out.csv"))
	assert.Equal(t, []byte("Name\nBob\n"), objects.objects["results/out.csv"])

	err := stager.Upload(context.Background(), local, "results/out.csv")
	assert.Error(t, err)
}
