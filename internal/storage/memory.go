package storage

import (
	"context"
	"fmt"

	"github.com/hashicorp/go-memdb"
)

const memoryTable = "assets"

type memoryRecord struct {
	Id   string
	Data []byte
}

var memorySchema = &memdb.DBSchema{
	Tables: map[string]*memdb.TableSchema{
		memoryTable: {
			Name: memoryTable,
			Indexes: map[string]*memdb.IndexSchema{
				"id": {
					Name:    "id",
					Unique:  true,
					Indexer: &memdb.StringFieldIndex{Field: "Id"},
				},
			},
		},
	},
}

// MemoryStore keeps encoded records in an in-process memdb. Records go
// through the same json envelope as the durable backends.
type MemoryStore[T ValidatingSpec] struct {
	db *memdb.MemDB
}

func NewMemoryStore[T ValidatingSpec]() (*MemoryStore[T], error) {
	db, err := memdb.NewMemDB(memorySchema)
	if err != nil {
		return nil, fmt.Errorf("creating memdb: %w", err)
	}

	return &MemoryStore[T]{db: db}, nil
}

func (s *MemoryStore[T]) Save(_ context.Context, id string, o T) error {
	if err := validateId(id); err != nil {
		return err
	}

	jsonData, err := encodeAsset(id, o)
	if err != nil {
		return err
	}

	txn := s.db.Txn(true)
	defer txn.Abort()

	err = txn.Insert(memoryTable, &memoryRecord{Id: id, Data: jsonData})
	if err != nil {
		return fmt.Errorf("inserting record: %w", err)
	}

	txn.Commit()
	return nil
}

func (s *MemoryStore[T]) Load(_ context.Context, id string) (T, error) {
	var zero T

	txn := s.db.Txn(false)
	defer txn.Abort()

	raw, err := txn.First(memoryTable, "id", id)
	if err != nil {
		return zero, fmt.Errorf("querying record: %w", err)
	}
	if raw == nil {
		return zero, ErrNotFound
	}

	return decodeAsset[T](id, raw.(*memoryRecord).Data)
}

func (s *MemoryStore[T]) Delete(_ context.Context, id string) error {
	txn := s.db.Txn(true)
	defer txn.Abort()

	_, err := txn.DeleteAll(memoryTable, "id", id)
	if err != nil {
		return fmt.Errorf("deleting record: %w", err)
	}

	txn.Commit()
	return nil
}

// Len returns the number of stored records.
func (s *MemoryStore[T]) Len() int {
	txn := s.db.Txn(false)
	defer txn.Abort()

	it, err := txn.Get(memoryTable, "id")
	if err != nil {
		return 0
	}

	n := 0
	for obj := it.Next(); obj != nil; obj = it.Next() {
		n++
	}
	return n
}
