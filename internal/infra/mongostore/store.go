package mongostore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/osvaldoandrade/provision/internal/domain"
)

const (
	DefaultURI            = "mongodb://localhost:27017"
	defaultConnectTimeout = 10 * time.Second
	defaultAppName        = "provision"
)

type Options struct {
	URI            string
	Database       string
	AppName        string
	ConnectTimeout time.Duration
}

// Store talks to a MongoDB deployment, normally a mongos router. It
// implements both the executor driver and the planner state reader. The
// underlying client pools connections and is safe for concurrent use.
type Store struct {
	client   *mongo.Client
	db       *mongo.Database
	database string
}

// Open connects and pings the deployment.
func Open(ctx context.Context, opts Options) (*Store, error) {
	uri := strings.TrimSpace(opts.URI)
	if uri == "" {
		return nil, ErrURIRequired
	}
	if err := domain.ValidateDatabaseName(opts.Database); err != nil {
		return nil, err
	}
	if opts.ConnectTimeout <= 0 {
		opts.ConnectTimeout = defaultConnectTimeout
	}
	if opts.AppName == "" {
		opts.AppName = defaultAppName
	}

	clientOpts := options.Client().
		ApplyURI(uri).
		SetAppName(opts.AppName).
		SetConnectTimeout(opts.ConnectTimeout).
		SetServerSelectionTimeout(opts.ConnectTimeout)

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, &domain.DriverError{Op: "connect", Err: err}
	}

	pingCtx, cancel := context.WithTimeout(ctx, opts.ConnectTimeout)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, wrapErr("ping", "", err)
	}

	return &Store{
		client:   client,
		db:       client.Database(opts.Database),
		database: opts.Database,
	}, nil
}

func (s *Store) Close(ctx context.Context) error {
	if s == nil || s.client == nil {
		return nil
	}
	if err := s.client.Disconnect(ctx); err != nil {
		return fmt.Errorf("disconnect mongo: %w", err)
	}
	return nil
}

func (s *Store) Database() string {
	return s.database
}

func (s *Store) CreateCollection(ctx context.Context, name string) error {
	return wrapErr("createCollection", name, s.db.CreateCollection(ctx, name))
}

func (s *Store) EnableSharding(ctx context.Context, database string) error {
	cmd := bson.D{{Key: "enableSharding", Value: database}}
	return wrapErr("enableSharding", database, s.admin().RunCommand(ctx, cmd).Err())
}

func (s *Store) ShardCollection(ctx context.Context, name, key string, hashed bool) error {
	ns := domain.Namespace(s.database, name)
	cmd := bson.D{
		{Key: "shardCollection", Value: ns},
		{Key: "key", Value: shardKeyPattern(key, hashed)},
	}
	return wrapErr("shardCollection", name, s.admin().RunCommand(ctx, cmd).Err())
}

func (s *Store) CreateIndex(ctx context.Context, collection string, index domain.IndexSpec) error {
	model := mongo.IndexModel{
		Keys:    bson.D{{Key: index.Field, Value: int32(index.Direction)}},
		Options: options.Index().SetName(index.Name()).SetUnique(index.Unique),
	}
	_, err := s.db.Collection(collection).Indexes().CreateOne(ctx, model)
	return wrapErr("createIndex", collection, err)
}

func (s *Store) ListCollections(ctx context.Context) ([]string, error) {
	names, err := s.db.ListCollectionNames(ctx, bson.D{})
	if err != nil {
		return nil, wrapErr("listCollections", s.database, err)
	}
	return names, nil
}

func (s *Store) ListIndexes(ctx context.Context, collection string) ([]domain.IndexSpec, error) {
	cursor, err := s.db.Collection(collection).Indexes().List(ctx)
	if err != nil {
		return nil, wrapErr("listIndexes", collection, err)
	}
	defer cursor.Close(ctx)

	var indexes []domain.IndexSpec
	for cursor.Next(ctx) {
		var doc indexDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, wrapErr("listIndexes", collection, err)
		}
		if spec, ok := parseIndex(doc); ok {
			indexes = append(indexes, spec)
		}
	}
	if err := cursor.Err(); err != nil {
		return nil, wrapErr("listIndexes", collection, err)
	}
	return indexes, nil
}

// GetShardKey reads the shard key from the config server metadata. A
// collection without an entry is unsharded.
func (s *Store) GetShardKey(ctx context.Context, collection string) (domain.ShardKey, bool, error) {
	ns := domain.Namespace(s.database, collection)
	var doc shardDocument
	err := s.client.Database("config").Collection("collections").
		FindOne(ctx, bson.D{{Key: "_id", Value: ns}}).
		Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return domain.ShardKey{}, false, nil
	}
	if err != nil {
		return domain.ShardKey{}, false, wrapErr("getShardKey", collection, err)
	}
	if doc.Dropped {
		return domain.ShardKey{}, false, nil
	}
	key, ok := parseShardKey(doc.Key)
	return key, ok, nil
}

func (s *Store) admin() *mongo.Database {
	return s.client.Database("admin")
}
