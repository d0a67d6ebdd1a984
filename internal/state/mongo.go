package state

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/apiroute/routing-engine/internal/config"
)

// dialMongo connects and pings the configured MongoDB deployment within its
// timeout.
func dialMongo(ctx context.Context, cfg config.MongoConfig) (Conn, error) {
	ctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping: %w", err)
	}
	return &mongoConn{client: client, db: client.Database(cfg.Database)}, nil
}

// mongoConn stores documents with a string "_id" so identifiers read the
// same across backends.
type mongoConn struct {
	client *mongo.Client
	db     *mongo.Database
}

func (m *mongoConn) Create(ctx context.Context, collection, id string, doc Document) error {
	opts := options.Replace().SetUpsert(true)
	_, err := m.db.Collection(collection).ReplaceOne(ctx, bson.M{"_id": id}, doc.Native(), opts)
	return err
}

func (m *mongoConn) Add(ctx context.Context, collection string, doc Document) (string, error) {
	id := uuid.NewString()
	native := doc.Native()
	native["_id"] = id
	if _, err := m.db.Collection(collection).InsertOne(ctx, native); err != nil {
		return "", err
	}
	return id, nil
}

func (m *mongoConn) Get(ctx context.Context, collection, id string) (Document, bool, error) {
	var raw bson.M
	err := m.db.Collection(collection).FindOne(ctx, bson.M{"_id": id}).Decode(&raw)
	if err == mongo.ErrNoDocuments {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	doc, err := documentFromBSON(raw)
	if err != nil {
		return nil, false, err
	}
	return doc, true, nil
}

func (m *mongoConn) Update(ctx context.Context, collection, id string, fields Document) (bool, error) {
	res, err := m.db.Collection(collection).UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": fields.Native()})
	if err != nil {
		return false, err
	}
	return res.MatchedCount > 0, nil
}

func (m *mongoConn) Delete(ctx context.Context, collection, id string) error {
	_, err := m.db.Collection(collection).DeleteOne(ctx, bson.M{"_id": id})
	return err
}

func (m *mongoConn) Query(ctx context.Context, collection string, filters []Filter) ([]Result, error) {
	filter, err := mongoFilter(filters)
	if err != nil {
		return nil, err
	}

	cur, err := m.db.Collection(collection).Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []Result{}
	for cur.Next(ctx) {
		var raw bson.M
		if err := cur.Decode(&raw); err != nil {
			return nil, err
		}
		id, _ := raw["_id"].(string)
		doc, err := documentFromBSON(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, Result{ID: id, Doc: doc})
	}
	return out, cur.Err()
}

func (m *mongoConn) RunTransaction(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	sess, err := m.client.StartSession()
	if err != nil {
		return &commitError{err: err}
	}
	defer sess.EndSession(ctx)

	var bodyErr error
	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		bodyErr = nil
		if err := fn(sc, &mongoTx{conn: m}); err != nil {
			bodyErr = err
			return nil, err
		}
		return nil, nil
	})
	if err == nil {
		return nil
	}
	if bodyErr != nil {
		return bodyErr
	}
	return &commitError{err: err}
}

func (m *mongoConn) Close() error {
	return m.client.Disconnect(context.Background())
}

// mongoTx delegates to the connection; the session context handed to the
// transaction body scopes every operation to the transaction.
type mongoTx struct {
	conn *mongoConn
}

func (t *mongoTx) Get(ctx context.Context, collection, id string) (Document, bool, error) {
	return t.conn.Get(ctx, collection, id)
}

func (t *mongoTx) Set(ctx context.Context, collection, id string, doc Document) error {
	return t.conn.Create(ctx, collection, id, doc)
}

func (t *mongoTx) Delete(ctx context.Context, collection, id string) error {
	return t.conn.Delete(ctx, collection, id)
}

// mongoFilter translates filters into a find document. Each filter becomes
// its own $and clause so that several conditions on one field all apply
// instead of colliding on the field's map key.
func mongoFilter(filters []Filter) (bson.M, error) {
	if len(filters) == 0 {
		return bson.M{}, nil
	}
	conds := make([]bson.M, 0, len(filters))
	for _, f := range filters {
		op, err := mongoOp(f.Op)
		if err != nil {
			return nil, err
		}
		conds = append(conds, bson.M{f.Field: bson.M{op: f.Value.Native()}})
	}
	return bson.M{"$and": conds}, nil
}

func mongoOp(op string) (string, error) {
	switch op {
	case "==":
		return "$eq", nil
	case "<":
		return "$lt", nil
	case "<=":
		return "$lte", nil
	case ">":
		return "$gt", nil
	case ">=":
		return "$gte", nil
	}
	return "", fmt.Errorf("unsupported filter op %q", op)
}

// documentFromBSON lifts a decoded BSON document, dropping the _id key the
// backend manages itself.
func documentFromBSON(raw bson.M) (Document, error) {
	native := make(map[string]interface{}, len(raw))
	for k, v := range raw {
		if k == "_id" {
			continue
		}
		native[k] = fromBSON(v)
	}
	return DocumentFromNative(native)
}

// fromBSON normalizes driver-specific types to the shapes FromNative
// understands.
func fromBSON(x interface{}) interface{} {
	switch t := x.(type) {
	case primitive.DateTime:
		return t.Time().UTC()
	case primitive.A:
		out := make([]interface{}, len(t))
		for i, e := range t {
			out[i] = fromBSON(e)
		}
		return out
	case primitive.M:
		out := make(map[string]interface{}, len(t))
		for k, v := range t {
			out[k] = fromBSON(v)
		}
		return out
	case primitive.D:
		out := make(map[string]interface{}, len(t))
		for _, e := range t {
			out[e.Key] = fromBSON(e.Value)
		}
		return out
	default:
		return x
	}
}
