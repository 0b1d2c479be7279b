package local

import (
	"context"
	"fmt"

	"github.com/fuelbox/fuelbox/internal/app/backend"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type records struct {
	db *mongo.Database
}

// field maps the public "id" column onto Mongo's _id.
func field(name string) string {
	if name == "id" {
		return "_id"
	}
	return name
}

func toDoc(m map[string]any) bson.M {
	doc := make(bson.M, len(m))
	for k, v := range m {
		doc[field(k)] = v
	}
	return doc
}

func storageErr(op, table string, err error) error {
	return backend.Wrap(backend.StorageError, fmt.Sprintf("%s %s failed", op, table), err)
}

// Insert implements backend.Records.
func (r *records) Insert(ctx context.Context, table string, record any) error {
	doc := record
	if m, ok := record.(map[string]any); ok {
		doc = toDoc(m)
	}
	if _, err := r.db.Collection(table).InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return backend.Errorf(backend.StorageError, "duplicate key value violates unique constraint on %s", table)
		}
		return storageErr("insert into", table, err)
	}
	return nil
}

// Update implements backend.Records.
func (r *records) Update(ctx context.Context, table string, patch map[string]any, filter backend.Filter) (int64, error) {
	res, err := r.db.Collection(table).UpdateMany(ctx, toDoc(filter), bson.M{"$set": toDoc(patch)})
	if err != nil {
		return 0, storageErr("update", table, err)
	}
	return res.MatchedCount, nil
}

// Select implements backend.Records.
func (r *records) Select(ctx context.Context, table string, q backend.Query, out any) error {
	opts := options.Find()
	if len(q.Columns) > 0 {
		proj := bson.D{}
		for _, c := range q.Columns {
			proj = append(proj, bson.E{Key: field(c), Value: 1})
		}
		opts.SetProjection(proj)
	}
	if q.Order != nil {
		dir := 1
		if q.Order.Descending {
			dir = -1
		}
		opts.SetSort(bson.D{{Key: field(q.Order.Column), Value: dir}})
	}
	if q.Limit > 0 {
		opts.SetLimit(int64(q.Limit))
	}

	cur, err := r.db.Collection(table).Find(ctx, bson.M{}, opts)
	if err != nil {
		return storageErr("select from", table, err)
	}
	defer cur.Close(ctx)
	if err := cur.All(ctx, out); err != nil {
		return storageErr("select from", table, err)
	}
	return nil
}

// RPC implements backend.Records. Only get_table_names is provided.
func (r *records) RPC(ctx context.Context, name string, out any) error {
	switch name {
	case "get_table_names":
		names, err := r.db.ListCollectionNames(ctx, bson.D{})
		if err != nil {
			return storageErr("rpc", name, err)
		}
		switch o := out.(type) {
		case nil:
		case *[]string:
			*o = names
		default:
			return backend.Errorf(backend.StorageError, "rpc %s: unsupported result type %T", name, out)
		}
		return nil
	default:
		return backend.Errorf(backend.StorageError, "Could not find the function public.%s in the schema cache", name)
	}
}
