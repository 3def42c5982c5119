package source

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"notionsync/internal/record"
)

type MongoOptions struct {
	URI        string
	Database   string
	Collection string
}

type MongoSource struct {
	client     *mongo.Client
	collection *mongo.Collection
	now        func() time.Time
}

func OpenMongo(ctx context.Context, opts MongoOptions) (*MongoSource, error) {
	if opts.URI == "" {
		return nil, errors.New("missing mongodb connection string")
	}
	if opts.Database == "" || opts.Collection == "" {
		return nil, errors.New("mongodb database and collection are required")
	}
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(opts.URI).SetMaxPoolSize(1))
	if err != nil {
		return nil, fmt.Errorf("open mongodb: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("connect mongodb: %w", err)
	}
	return &MongoSource{
		client:     client,
		collection: client.Database(opts.Database).Collection(opts.Collection),
		now:        func() time.Time { return time.Now().UTC() },
	}, nil
}

func (m *MongoSource) Name() string {
	return "mongodb"
}

func (m *MongoSource) Close() error {
	return m.client.Disconnect(context.Background())
}

func (m *MongoSource) Fetch(ctx context.Context) ([]record.Record, error) {
	cursor, err := m.collection.Find(ctx, bson.M{"sync_status": bson.M{"$ne": "synced"}})
	if err != nil {
		return nil, fmt.Errorf("query mongodb: %w", err)
	}
	var docs []bson.M
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("read mongodb documents: %w", err)
	}
	records := make([]record.Record, 0, len(docs))
	for _, doc := range docs {
		records = append(records, documentRecord(doc))
	}
	return records, nil
}

func (m *MongoSource) MarkSynced(ctx context.Context, uid string) error {
	res, err := m.collection.UpdateOne(ctx,
		uidFilter(uid),
		bson.M{"$set": bson.M{"sync_status": "synced", "synced_at": m.now()}},
	)
	if err != nil {
		return fmt.Errorf("mark %s synced: %w", uid, err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("mark %s synced: no matching document", uid)
	}
	return nil
}

// uidFilter matches uid stored either as a string or as a number, since
// records render numeric uids as text.
func uidFilter(uid string) bson.M {
	candidates := bson.A{uid}
	if n, err := strconv.ParseInt(uid, 10, 64); err == nil {
		candidates = append(candidates, n)
	} else if f, err := strconv.ParseFloat(uid, 64); err == nil {
		candidates = append(candidates, f)
	}
	if len(candidates) == 1 {
		return bson.M{"uid": uid}
	}
	return bson.M{"uid": bson.M{"$in": candidates}}
}

// documentRecord flattens BSON-specific scalars before normalization.
func documentRecord(doc bson.M) record.Record {
	raw := make(map[string]any, len(doc))
	for k, v := range doc {
		switch val := v.(type) {
		case primitive.ObjectID:
			raw[k] = val.Hex()
		case primitive.DateTime:
			raw[k] = val.Time().UTC()
		default:
			raw[k] = v
		}
	}
	return record.New(raw)
}

func MongoURI(host string, port int, name, user, password string) string {
	if host == "" {
		host = "localhost"
	}
	u := url.URL{
		Scheme: "mongodb",
		Host:   net.JoinHostPort(host, strconv.Itoa(port)),
		Path:   "/" + name,
	}
	if user != "" {
		u.User = url.UserPassword(user, password)
	}
	return u.String()
}
