package main

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"

	"github.com/boltdb/bolt"
	"go.uber.org/zap"
)

// AuditTrail is the local append-only history of mirrored audit entries.
type AuditTrail interface {
	Append(ctx context.Context, entry LogEntry) error
	GetAll(ctx context.Context) ([]LogEntry, error)
	Close() error
}

type boltAuditTrail struct {
	logger *zap.Logger
	client *bolt.DB
	config *BoltDBConfig
}

// GetBoltDBClient setup the database and the bucket then provides a ready to use client.
func GetBoltDBClient(config *Config) (*bolt.DB, error) {
	db, err := bolt.Open(config.BoltDB.FilePath, 0o600, &bolt.Options{Timeout: config.BoltDB.Timeout})
	if err != nil {
		return nil, fmt.Errorf("failed to open the database, %v", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		if _, errB := tx.CreateBucketIfNotExists([]byte(config.BoltDB.BucketName)); errB != nil {
			return fmt.Errorf("failed to create %s bucket: %v", config.BoltDB.BucketName, errB)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to set up bucket: %v", err)
	}
	return db, nil
}

// NewBoltAuditTrail provides an instance of bolt-based audit trail.
func NewBoltAuditTrail(logger *zap.Logger, boltConfig *BoltDBConfig, client *bolt.DB) AuditTrail {
	return &boltAuditTrail{
		logger: logger,
		client: client,
		config: boltConfig,
	}
}

// Close shuts down the bolt-based audit trail.
func (at *boltAuditTrail) Close() error {
	return at.client.Close()
}

// Append persists an audit entry under the next bucket sequence number,
// keeping the insertion order of the mirrored entries.
func (at *boltAuditTrail) Append(_ context.Context, entry LogEntry) error {
	entryBytes, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	err = at.client.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(at.config.BucketName))
		seq, errS := bucket.NextSequence()
		if errS != nil {
			return errS
		}
		key := make([]byte, 8)
		binary.BigEndian.PutUint64(key, seq)
		return bucket.Put(key, entryBytes)
	})
	return err
}

// GetAll retrieves every audit entry stored locally, oldest first.
func (at *boltAuditTrail) GetAll(_ context.Context) ([]LogEntry, error) {
	tx, err := at.client.Begin(false)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	c := tx.Bucket([]byte(at.config.BucketName)).Cursor()

	entries := []LogEntry{}
	for k, v := c.First(); k != nil; k, v = c.Next() {
		var entry LogEntry
		if err = json.Unmarshal(v, &entry); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, nil
}
