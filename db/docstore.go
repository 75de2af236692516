package db

import (
	"context"

	"github.com/cockroachdb/errors"
	"gocloud.dev/docstore"
	_ "gocloud.dev/docstore/awsdynamodb"
	_ "gocloud.dev/docstore/memdocstore"
	"gocloud.dev/gcerrors"
)

// DocStore keeps cases in a document collection: a DynamoDB table in
// production ("dynamodb://Patient_Entries?partition_key=id"), an in-memory
// collection in tests ("mem://cases/id").
type DocStore struct {
	coll *docstore.Collection
}

func OpenDocStore(ctx context.Context, url string) (*DocStore, error) {
	coll, err := docstore.OpenCollection(ctx, url)
	if err != nil {
		return nil, errors.Wrapf(err, "open case collection %s", url)
	}
	return NewDocStore(coll), nil
}

func NewDocStore(coll *docstore.Collection) *DocStore {
	return &DocStore{coll: coll}
}

func (s *DocStore) PutCase(ctx context.Context, c Case) error {
	if err := s.coll.Put(ctx, &c); err != nil {
		return errors.Wrapf(err, "put case %s", c.ID)
	}
	return nil
}

func (s *DocStore) ResolveCase(ctx context.Context, id, resolution string) error {
	err := s.coll.Update(ctx, &Case{ID: id}, docstore.Mods{
		"doctor_resolution": resolution,
		"status":            StatusResolved,
	})
	if gcerrors.Code(err) == gcerrors.NotFound {
		return errors.Wrapf(ErrCaseNotFound, "case %s", id)
	}
	if err != nil {
		return errors.Wrapf(err, "update case %s", id)
	}
	return nil
}

func (s *DocStore) GetCase(ctx context.Context, id string) (Case, error) {
	c := Case{ID: id}
	err := s.coll.Get(ctx, &c)
	if gcerrors.Code(err) == gcerrors.NotFound {
		return Case{}, errors.Wrapf(ErrCaseNotFound, "case %s", id)
	}
	if err != nil {
		return Case{}, errors.Wrapf(err, "get case %s", id)
	}
	return c, nil
}

func (s *DocStore) Close() error {
	return s.coll.Close()
}
