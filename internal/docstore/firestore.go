package docstore

import (
	"context"
	"errors"
	"strings"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/eventhub/apiserver/config"
)

// FirestoreBackend talks to the managed Firestore database the mobile
// client was built against.
type FirestoreBackend struct {
	client *firestore.Client
}

// NewFirestoreBackend constructs a Firestore client from config.
func NewFirestoreBackend(ctx context.Context, cfg config.FirestoreConfig) (*FirestoreBackend, error) {
	if strings.TrimSpace(cfg.ProjectID) == "" {
		return nil, errors.New("firestore project id is required")
	}

	var opts []option.ClientOption
	if strings.TrimSpace(cfg.CredentialsFile) != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	databaseID := strings.TrimSpace(cfg.DatabaseID)
	if databaseID == "" {
		databaseID = firestore.DefaultDatabaseID
	}

	client, err := firestore.NewClientWithDatabase(ctx, cfg.ProjectID, databaseID, opts...)
	if err != nil {
		return nil, err
	}
	return &FirestoreBackend{client: client}, nil
}

func (f *FirestoreBackend) Get(ctx context.Context, collection, id string) (Record, error) {
	snap, err := f.client.Collection(collection).Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, nil
		}
		return nil, err
	}
	if !snap.Exists() {
		return nil, nil
	}
	return Format(snap.Ref.ID, snap.Data()), nil
}

func (f *FirestoreBackend) GetMany(ctx context.Context, collection string, ids []string) ([]Record, error) {
	if len(ids) == 0 {
		return nil, ErrEmptyMatchSet
	}

	coll := f.client.Collection(collection)
	refs := make([]*firestore.DocumentRef, len(ids))
	for i, id := range ids {
		refs[i] = coll.Doc(id)
	}

	snaps, err := f.client.GetAll(ctx, refs)
	if err != nil {
		return nil, err
	}
	out := make([]Record, 0, len(snaps))
	for _, snap := range snaps {
		if snap == nil || !snap.Exists() {
			continue
		}
		out = append(out, Format(snap.Ref.ID, snap.Data()))
	}
	return out, nil
}

func (f *FirestoreBackend) Query(ctx context.Context, q Query) ([]Record, error) {
	query := f.client.Collection(q.Collection).Query
	for _, filter := range q.Filters {
		query = query.Where(filter.Field, "==", filter.Value)
	}
	if q.OrderBy != "" {
		dir := firestore.Asc
		if q.Descending {
			dir = firestore.Desc
		}
		query = query.OrderBy(q.OrderBy, dir)
	}

	iter := query.Documents(ctx)
	defer iter.Stop()

	var out []Record
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, err
		}
		if rec := Format(snap.Ref.ID, snap.Data()); rec != nil {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (f *FirestoreBackend) Create(ctx context.Context, collection, id string, fields map[string]any) error {
	_, err := f.client.Collection(collection).Doc(id).Set(ctx, fields)
	return err
}

func (f *FirestoreBackend) Merge(ctx context.Context, collection, id string, fields map[string]any) error {
	updates := make([]firestore.Update, 0, len(fields))
	for key, value := range fields {
		if inc, ok := value.(Increment); ok {
			value = firestore.Increment(int(inc))
		}
		updates = append(updates, firestore.Update{FieldPath: firestore.FieldPath{key}, Value: value})
	}
	if len(updates) == 0 {
		return nil
	}
	_, err := f.client.Collection(collection).Doc(id).Update(ctx, updates)
	if status.Code(err) == codes.NotFound {
		return ErrNotFound
	}
	return err
}

func (f *FirestoreBackend) Delete(ctx context.Context, collection, id string) error {
	_, err := f.client.Collection(collection).Doc(id).Delete(ctx)
	return err
}

func (f *FirestoreBackend) Close() error {
	return f.client.Close()
}
