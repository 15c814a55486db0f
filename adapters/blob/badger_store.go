package blob

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/sirupsen/logrus"

	"github.com/Kizaaaa/certichain/core"
)

const casScheme = "cas"

var blobPrefix = []byte("blob/")

// BadgerConfig configures a BadgerStore
type BadgerConfig struct {
	Path     string // directory for the value log; ignored when InMemory
	InMemory bool
	Logger   logrus.FieldLogger
}

// BadgerStore is a local content-addressed store on badger
type BadgerStore struct {
	db  *badger.DB
	log logrus.FieldLogger
}

// NewBadgerStore opens or creates the store
func NewBadgerStore(cfg BadgerConfig) (*BadgerStore, error) {
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}

	opts := badger.DefaultOptions(cfg.Path)
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	}
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("error opening badger store: %w", err)
	}

	return &BadgerStore{db: db, log: cfg.Logger}, nil
}

// Put implements ports.BlobStore
func (s *BadgerStore) Put(ctx context.Context, data []byte, name string) (string, error) {
	key := contentKey(data)

	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(append(append([]byte{}, blobPrefix...), key...), data)
	})
	if err != nil {
		return "", fmt.Errorf("%w: badger put: %v", core.ErrNetwork, err)
	}

	s.log.WithFields(logrus.Fields{
		"key":  key,
		"name": name,
		"size": len(data),
	}).Debug("stored artifact")

	return casScheme + "://" + key, nil
}

// Get implements ports.BlobStore
func (s *BadgerStore) Get(ctx context.Context, locator string) ([]byte, error) {
	key, err := splitLocator(locator, casScheme)
	if err != nil {
		return nil, err
	}

	var data []byte
	err = s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(append(append([]byte{}, blobPrefix...), key...))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, core.ErrBlobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: badger get: %v", core.ErrNetwork, err)
	}
	if err := verifyContent(key, data); err != nil {
		return nil, err
	}
	return data, nil
}

// Close closes the database
func (s *BadgerStore) Close() error {
	return s.db.Close()
}
