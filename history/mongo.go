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

package history

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	// DefaultDatabase is the database MongoRecorder writes to.
	DefaultDatabase = "tabfilter"
	// DefaultCollection is the collection MongoRecorder writes to.
	DefaultCollection = "history"
)

// MongoRecorder inserts one document per entry.
type MongoRecorder struct {
	client     *mongo.Client
	collection *mongo.Collection
}

// NewMongoRecorder connects to uri and verifies the connection.
func NewMongoRecorder(ctx context.Context, uri string) (*MongoRecorder, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, &HistoryError{Backend: "mongo", Op: "connect", Err: err}
	}
	if err := client.Ping(ctx, nil); err != nil {
		client.Disconnect(ctx)
		return nil, &HistoryError{Backend: "mongo", Op: "ping", Err: err}
	}
	return &MongoRecorder{
		client:     client,
		collection: client.Database(DefaultDatabase).Collection(DefaultCollection),
	}, nil
}

func (r *MongoRecorder) Record(ctx context.Context, entry Entry) error {
	if _, err := r.collection.InsertOne(ctx, entry); err != nil {
		return &HistoryError{Backend: "mongo", Op: "insert", Err: err}
	}
	return nil
}

// Count returns how many entries carry label.
func (r *MongoRecorder) Count(ctx context.Context, label string) (int64, error) {
	n, err := r.collection.CountDocuments(ctx, bson.M{"label": label})
	if err != nil {
		return 0, &HistoryError{Backend: "mongo", Op: "count", Err: err}
	}
	return n, nil
}

func (r *MongoRecorder) Close(ctx context.Context) error {
	if err := r.client.Disconnect(ctx); err != nil {
		return &HistoryError{Backend: "mongo", Op: "disconnect", Err: err}
	}
	return nil
}
