package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"github.com/sirupsen/logrus"
)

// BadgerConfig configures the local Badger-backed driver.
type BadgerConfig struct {
	Path   string
	Logger *logrus.Logger
}

// BadgerDriver stores vault blobs in a local Badger database keyed by path.
type BadgerDriver struct {
	db  *badger.DB
	log *logrus.Logger
}

func NewBadgerDriver(config BadgerConfig) (*BadgerDriver, error) {
	if config.Logger == nil {
		config.Logger = logrus.New()
	}
	if config.Path == "" {
		return nil, fmt.Errorf("badger driver: path is required")
	}

	opts := badger.DefaultOptions(config.Path)
	opts.Logger = nil
	opts.ValueLogFileSize = 1024 * 1024 * 100 // 100MB value log files
	opts.SyncWrites = false

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger at %s: %w", config.Path, err)
	}

	return &BadgerDriver{db: db, log: config.Logger}, nil
}

func (b *BadgerDriver) PutFile(ctx context.Context, path string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(path), data)
	})
}

func (b *BadgerDriver) GetFile(ctx context.Context, path string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var value []byte
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(path))
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if err == badger.ErrKeyNotFound {
		return nil, ErrFileNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return value, nil
}

func (b *BadgerDriver) FileExists(ctx context.Context, path string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	exists := false
	err := b.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get([]byte(path))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		exists = true
		return nil
	})
	return exists, err
}

func (b *BadgerDriver) RemoveDirectory(ctx context.Context, path string, recursive bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	prefix := []byte(strings.TrimSuffix(path, "/") + "/")

	var keys [][]byte
	err := b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			keys = append(keys, it.Item().KeyCopy(nil))
		}
		return nil
	})
	if err != nil {
		return err
	}

	return b.db.Update(func(txn *badger.Txn) error {
		if err := txn.Delete([]byte(path)); err != nil && err != badger.ErrKeyNotFound {
			return err
		}
		if !recursive {
			return nil
		}
		for _, key := range keys {
			if err := txn.Delete(key); err != nil {
				return err
			}
		}
		return nil
	})
}

func (b *BadgerDriver) Close() error {
	if err := b.db.Sync(); err != nil {
		b.log.WithError(err).Warn("badger sync before close failed")
	}
	return b.db.Close()
}
