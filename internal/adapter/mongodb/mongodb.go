// Package mongodb stores reports, users and profiles in MongoDB.
package mongodb

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Collection names.
const (
	ReportsCollection  = "reports"
	UsersCollection    = "users"
	ProfilesCollection = "profiles"
)

// DB is a connected database handle.
type DB struct {
	client *mongo.Client
	db     *mongo.Database
	logger *slog.Logger
}

// Connect dials uri, verifies the connection with a ping, and ensures indexes.
// Index failures are logged, not returned.
func Connect(ctx context.Context, uri, dbName string, logger *slog.Logger) (*DB, error) {
	start := time.Now()
	logger.Info("connecting to mongodb", "uri", redactURI(uri), "db", dbName)

	dctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	c, err := mongo.Connect(dctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := c.Ping(dctx, nil); err != nil {
		_ = c.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping: %w", err)
	}

	d := &DB{client: c, db: c.Database(dbName), logger: logger}
	if err := d.createIndexes(ctx); err != nil {
		logger.Warn("mongodb index creation warnings", "error", err)
	}

	logger.Info("connected to mongodb", "duration_ms", time.Since(start).Milliseconds())
	return d, nil
}

// Close disconnects the client.
func (d *DB) Close(ctx context.Context) error {
	return d.client.Disconnect(ctx)
}

// CheckReadiness pings the primary.
func (d *DB) CheckReadiness(ctx context.Context) error {
	if err := d.client.Ping(ctx, nil); err != nil {
		return fmt.Errorf("mongo ping: %w", err)
	}
	return nil
}

// Reports returns the report store.
func (d *DB) Reports() *ReportStore {
	return &ReportStore{col: d.db.Collection(ReportsCollection)}
}

// Users returns the user directory.
func (d *DB) Users() *UserDirectory {
	return &UserDirectory{col: d.db.Collection(UsersCollection)}
}

// Profiles returns the profile store.
func (d *DB) Profiles() *ProfileStore {
	return &ProfileStore{col: d.db.Collection(ProfilesCollection)}
}

func (d *DB) createIndexes(ctx context.Context) error {
	ctxIdx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	indexes := []struct {
		collection string
		model      mongo.IndexModel
	}{
		{ReportsCollection, mongo.IndexModel{Keys: bson.D{{Key: "city", Value: 1}}}},
		{ReportsCollection, mongo.IndexModel{Keys: bson.D{{Key: "timestamp", Value: -1}}}},
		{UsersCollection, mongo.IndexModel{
			Keys:    bson.D{{Key: "uid", Value: 1}},
			Options: options.Index().SetUnique(true),
		}},
		{ProfilesCollection, mongo.IndexModel{
			Keys:    bson.D{{Key: "uid", Value: 1}},
			Options: options.Index().SetUnique(true),
		}},
		{ProfilesCollection, mongo.IndexModel{Keys: bson.D{{Key: "locations.city", Value: 1}}}},
	}

	var errs []error
	for _, idx := range indexes {
		if _, err := d.db.Collection(idx.collection).Indexes().CreateOne(ctxIdx, idx.model); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", idx.collection, err))
		}
	}
	return errors.Join(errs...)
}

// redactURI masks credentials so the URI can be logged.
func redactURI(raw string) string {
	if raw == "" || !strings.Contains(raw, "://") {
		return raw
	}
	u, err := url.Parse(raw)
	if err != nil || u.User == nil {
		return raw
	}
	u.User = url.UserPassword("****", "****")
	return u.String()
}
