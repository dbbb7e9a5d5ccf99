package database

import (
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/sirupsen/logrus"
)

// OpenOutbox opens the embedded BadgerDB used for the event outbox.
func OpenOutbox(path string) (*badger.DB, error) {
	opts := badger.DefaultOptions(path).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open outbox store: %v", err)
	}
	logrus.WithField("path", path).Info("Outbox store opened")
	return db, nil
}
