package state

import (
	"context"
	"fmt"
	"os"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/apiroute/routing-engine/internal/config"
)

// dialFirestore verifies the credentials file exists, then opens the
// Firestore session for the configured project. cfg.DatabaseURL is carried
// for the Realtime Database surface and is not needed here.
func dialFirestore(ctx context.Context, cfg config.FirebaseConfig) (Conn, error) {
	if _, err := os.Stat(cfg.CredentialsPath); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrCredentialsNotFound, cfg.CredentialsPath)
	}

	client, err := firestore.NewClient(ctx, cfg.ProjectID, option.WithCredentialsFile(cfg.CredentialsPath))
	if err != nil {
		return nil, fmt.Errorf("firestore connect: %w", err)
	}
	return &firestoreConn{client: client}, nil
}

type firestoreConn struct {
	client *firestore.Client
}

func (f *firestoreConn) Create(ctx context.Context, collection, id string, doc Document) error {
	_, err := f.client.Collection(collection).Doc(id).Set(ctx, doc.Native())
	return err
}

func (f *firestoreConn) Add(ctx context.Context, collection string, doc Document) (string, error) {
	ref, _, err := f.client.Collection(collection).Add(ctx, doc.Native())
	if err != nil {
		return "", err
	}
	return ref.ID, nil
}

func (f *firestoreConn) Get(ctx context.Context, collection, id string) (Document, bool, error) {
	snap, err := f.client.Collection(collection).Doc(id).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	doc, err := DocumentFromNative(snap.Data())
	if err != nil {
		return nil, false, err
	}
	return doc, true, nil
}

func (f *firestoreConn) Update(ctx context.Context, collection, id string, fields Document) (bool, error) {
	updates := make([]firestore.Update, 0, len(fields))
	for k, v := range fields {
		// FieldPath keeps dots in field names literal instead of parsing
		// them as nesting separators.
		updates = append(updates, firestore.Update{FieldPath: firestore.FieldPath{k}, Value: v.Native()})
	}
	_, err := f.client.Collection(collection).Doc(id).Update(ctx, updates)
	if status.Code(err) == codes.NotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (f *firestoreConn) Delete(ctx context.Context, collection, id string) error {
	_, err := f.client.Collection(collection).Doc(id).Delete(ctx)
	return err
}

func (f *firestoreConn) Query(ctx context.Context, collection string, filters []Filter) ([]Result, error) {
	q := f.client.Collection(collection).Query
	for _, flt := range filters {
		q = q.Where(flt.Field, flt.Op, flt.Value.Native())
	}

	iter := q.Documents(ctx)
	defer iter.Stop()

	out := []Result{}
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		doc, err := DocumentFromNative(snap.Data())
		if err != nil {
			return nil, err
		}
		out = append(out, Result{ID: snap.Ref.ID, Doc: doc})
	}
}

func (f *firestoreConn) RunTransaction(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	var bodyErr error
	err := f.client.RunTransaction(ctx, func(ctx context.Context, t *firestore.Transaction) error {
		bodyErr = nil
		if err := fn(ctx, &firestoreTx{client: f.client, t: t}); err != nil {
			bodyErr = err
			return err
		}
		return nil
	})
	if err == nil {
		return nil
	}
	if bodyErr != nil {
		return bodyErr
	}
	return &commitError{err: err}
}

func (f *firestoreConn) Close() error {
	return f.client.Close()
}

type firestoreTx struct {
	client *firestore.Client
	t      *firestore.Transaction
}

func (x *firestoreTx) Get(ctx context.Context, collection, id string) (Document, bool, error) {
	snap, err := x.t.Get(x.client.Collection(collection).Doc(id))
	if status.Code(err) == codes.NotFound {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	doc, err := DocumentFromNative(snap.Data())
	if err != nil {
		return nil, false, err
	}
	return doc, true, nil
}

func (x *firestoreTx) Set(ctx context.Context, collection, id string, doc Document) error {
	return x.t.Set(x.client.Collection(collection).Doc(id), doc.Native())
}

func (x *firestoreTx) Delete(ctx context.Context, collection, id string) error {
	return x.t.Delete(x.client.Collection(collection).Doc(id))
}
