package state

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()
	return NewClient(NewMemoryManager())
}

func TestCreateWithIDRoundTrips(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()
	doc := sampleDocument()

	id, err := c.CreateDocument(ctx, "backends", doc, "x")
	require.NoError(t, err)
	require.Equal(t, "x", id)

	got, found, err := c.GetDocument(ctx, "backends", "x")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, doc, got)
}

func TestCreateWithIDIsUpsert(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	_, err := c.CreateDocument(ctx, "backends", Document{"v": Integer(1)}, "x")
	require.NoError(t, err)
	_, err = c.CreateDocument(ctx, "backends", Document{"v": Integer(2)}, "x")
	require.NoError(t, err)

	got, found, err := c.GetDocument(ctx, "backends", "x")
	require.NoError(t, err)
	require.True(t, found)
	v, _ := got["v"].AsInteger()
	require.Equal(t, int64(2), v)
}

func TestCreateGeneratesDistinctIDs(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	seen := map[string]bool{}
	for i := 0; i < 5; i++ {
		id, err := c.CreateDocument(ctx, "backends", Document{"n": Integer(int64(i))}, "")
		require.NoError(t, err)
		require.NotEmpty(t, id)
		require.False(t, seen[id], "duplicate generated id %q", id)
		seen[id] = true
	}
}

func TestGetMissingIsNotAnError(t *testing.T) {
	c := newTestClient(t)

	doc, found, err := c.GetDocument(context.Background(), "backends", "missing")
	require.NoError(t, err)
	require.False(t, found)
	require.Nil(t, doc)
}

func TestUpdateMergesFields(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	_, err := c.CreateDocument(ctx, "backends", Document{"a": Integer(1), "b": Integer(2)}, "x")
	require.NoError(t, err)

	found, err := c.UpdateDocument(ctx, "backends", "x", Document{"b": Integer(20), "c": Integer(3)})
	require.NoError(t, err)
	require.True(t, found)

	got, _, err := c.GetDocument(ctx, "backends", "x")
	require.NoError(t, err)
	a, _ := got["a"].AsInteger()
	b, _ := got["b"].AsInteger()
	cc, _ := got["c"].AsInteger()
	require.Equal(t, []int64{1, 20, 3}, []int64{a, b, cc})
}

func TestUpdateTreatsDottedFieldNamesLiterally(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	_, err := c.CreateDocument(ctx, "backends", Document{
		"a": Map(Document{"b": Integer(1)}),
	}, "x")
	require.NoError(t, err)

	found, err := c.UpdateDocument(ctx, "backends", "x", Document{"a.b": Integer(2)})
	require.NoError(t, err)
	require.True(t, found)

	got, _, err := c.GetDocument(ctx, "backends", "x")
	require.NoError(t, err)

	// "a.b" is its own top-level field; the nested document is untouched
	v, ok := got["a.b"].AsInteger()
	require.True(t, ok)
	require.Equal(t, int64(2), v)
	nested, _ := got["a"].AsMap()
	b, _ := nested["b"].AsInteger()
	require.Equal(t, int64(1), b)
}

func TestUpdateMissingReportsNotFound(t *testing.T) {
	c := newTestClient(t)

	found, err := c.UpdateDocument(context.Background(), "backends", "missing", Document{"a": Integer(1)})
	require.NoError(t, err)
	require.False(t, found)
}

func TestDeleteIsIdempotent(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	_, err := c.CreateDocument(ctx, "backends", Document{"a": Integer(1)}, "x")
	require.NoError(t, err)

	require.NoError(t, c.DeleteDocument(ctx, "backends", "x"))
	_, found, err := c.GetDocument(ctx, "backends", "x")
	require.NoError(t, err)
	require.False(t, found)

	// deleting an already-absent document succeeds
	require.NoError(t, c.DeleteDocument(ctx, "backends", "x"))
}

func TestQueryFilters(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	docs := map[string]Document{
		"a": {"region": String("us-east"), "weight": Integer(10)},
		"b": {"region": String("us-east"), "weight": Integer(30)},
		"c": {"region": String("eu-west"), "weight": Integer(50)},
	}
	for id, d := range docs {
		_, err := c.CreateDocument(ctx, "backends", d, id)
		require.NoError(t, err)
	}

	res, err := c.QueryDocuments(ctx, "backends",
		Filter{Field: "region", Op: "==", Value: String("us-east")},
		Filter{Field: "weight", Op: ">=", Value: Integer(20)},
	)
	require.NoError(t, err)
	require.Len(t, res, 1)
	require.Equal(t, "b", res[0].ID)

	res, err = c.QueryDocuments(ctx, "backends", Filter{Field: "weight", Op: "<", Value: Integer(40)})
	require.NoError(t, err)
	require.Len(t, res, 2)
	require.Equal(t, "a", res[0].ID)
	require.Equal(t, "b", res[1].ID)

	// no filters returns the whole collection
	res, err = c.QueryDocuments(ctx, "backends")
	require.NoError(t, err)
	require.Len(t, res, 3)
}

func TestQueryRangeOnOneField(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	for id, weight := range map[string]int64{"a": 10, "b": 30, "c": 50} {
		_, err := c.CreateDocument(ctx, "backends", Document{"weight": Integer(weight)}, id)
		require.NoError(t, err)
	}

	// both bounds on the same field must apply
	res, err := c.QueryDocuments(ctx, "backends",
		Filter{Field: "weight", Op: ">=", Value: Integer(20)},
		Filter{Field: "weight", Op: "<", Value: Integer(40)},
	)
	require.NoError(t, err)
	require.Len(t, res, 1)
	require.Equal(t, "b", res[0].ID)
}

func TestTransactionCommit(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	err := c.WithTransaction(ctx, func(ctx context.Context, tx Tx) error {
		if err := tx.Set(ctx, "backends", "a", Document{"v": Integer(1)}); err != nil {
			return err
		}
		return tx.Set(ctx, "routes", "r1", Document{"target": String("a")})
	})
	require.NoError(t, err)

	_, found, err := c.GetDocument(ctx, "backends", "a")
	require.NoError(t, err)
	require.True(t, found)
	_, found, err = c.GetDocument(ctx, "routes", "r1")
	require.NoError(t, err)
	require.True(t, found)
}

func TestTransactionAbortLeavesStoreUntouched(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	_, err := c.CreateDocument(ctx, "backends", Document{"v": Integer(1)}, "a")
	require.NoError(t, err)

	boom := errors.New("boom")
	err = c.WithTransaction(ctx, func(ctx context.Context, tx Tx) error {
		if err := tx.Set(ctx, "backends", "a", Document{"v": Integer(99)}); err != nil {
			return err
		}
		if err := tx.Set(ctx, "backends", "b", Document{"v": Integer(2)}); err != nil {
			return err
		}
		return boom
	})
	// the body's error comes back unchanged
	require.ErrorIs(t, err, boom)
	require.NotErrorIs(t, err, ErrTransaction)

	got, found, err := c.GetDocument(ctx, "backends", "a")
	require.NoError(t, err)
	require.True(t, found)
	v, _ := got["v"].AsInteger()
	require.Equal(t, int64(1), v)

	_, found, err = c.GetDocument(ctx, "backends", "b")
	require.NoError(t, err)
	require.False(t, found)
}

func TestTransactionReadsOwnWrites(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	err := c.WithTransaction(ctx, func(ctx context.Context, tx Tx) error {
		if err := tx.Set(ctx, "backends", "a", Document{"v": Integer(7)}); err != nil {
			return err
		}
		doc, found, err := tx.Get(ctx, "backends", "a")
		if err != nil {
			return err
		}
		require.True(t, found)
		v, _ := doc["v"].AsInteger()
		require.Equal(t, int64(7), v)
		return nil
	})
	require.NoError(t, err)
}

func TestNestedTransactionRejected(t *testing.T) {
	c := newTestClient(t)

	err := c.WithTransaction(context.Background(), func(ctx context.Context, tx Tx) error {
		return c.WithTransaction(ctx, func(context.Context, Tx) error { return nil })
	})
	require.ErrorIs(t, err, ErrNestedTransaction)
}
