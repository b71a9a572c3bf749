// Package ledger records token issuances in a bbolt database. Records hold
// who was granted what and until when; the token string and the app
// certificate are never stored.
package ledger

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
)

const (
	// ledgerDirPerm is the permission mode for the ledger directory.
	ledgerDirPerm = fs.FileMode(0o700)

	// ledgerFilePerm is the permission mode for the ledger database file.
	ledgerFilePerm = fs.FileMode(0o600)

	// ledgerOpenTimeout is the maximum time to wait for the bolt database lock.
	ledgerOpenTimeout = 5 * time.Second
)

var issuancesBucket = []byte("issuances")

// Issuance is one issued token.
type Issuance struct {
	Seq       uint64    `json:"-"`
	Channel   string    `json:"channel"`
	Account   string    `json:"account"`
	Role      string    `json:"role"`
	ClientID  string    `json:"client_id,omitempty"`
	RemoteIP  string    `json:"remote_ip,omitempty"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Ledger wraps a bbolt database of issuances.
type Ledger struct {
	db *bolt.DB
}

// Open opens the ledger at path, creating the file and bucket if needed.
func Open(path string) (*Ledger, error) {
	if err := os.MkdirAll(filepath.Dir(path), ledgerDirPerm); err != nil {
		return nil, fmt.Errorf("creating ledger directory: %w", err)
	}

	db, err := bolt.Open(path, ledgerFilePerm, &bolt.Options{Timeout: ledgerOpenTimeout})
	if err != nil {
		return nil, fmt.Errorf("opening ledger db: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(issuancesBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing ledger db: %w", err)
	}

	return &Ledger{db: db}, nil
}

// Close closes the database.
func (l *Ledger) Close() error {
	return l.db.Close()
}

// seqKey encodes a sequence number big-endian so bbolt's byte ordering
// matches insertion order.
func seqKey(seq uint64) []byte {
	return binary.BigEndian.AppendUint64(nil, seq)
}

// Record appends an issuance.
func (l *Ledger) Record(rec Issuance) error {
	return l.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(issuancesBucket)

		seq, err := b.NextSequence()
		if err != nil {
			return err
		}

		data, err := json.Marshal(rec)
		if err != nil {
			return err
		}

		return b.Put(seqKey(seq), data)
	})
}

// List returns up to limit issuances, newest first. An empty channel
// matches every channel; limit <= 0 means no limit.
func (l *Ledger) List(channel string, limit int) ([]Issuance, error) {
	var out []Issuance

	err := l.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(issuancesBucket).Cursor()

		for k, v := c.Last(); k != nil; k, v = c.Prev() {
			var rec Issuance
			if err := json.Unmarshal(v, &rec); err != nil {
				return fmt.Errorf("decoding issuance %x: %w", k, err)
			}

			if channel != "" && rec.Channel != channel {
				continue
			}

			rec.Seq = binary.BigEndian.Uint64(k)
			out = append(out, rec)

			if limit > 0 && len(out) >= limit {
				break
			}
		}

		return nil
	})

	return out, err
}

// Prune deletes issuances that expired before cutoff and returns how many
// were removed.
func (l *Ledger) Prune(cutoff time.Time) (int, error) {
	removed := 0

	err := l.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(issuancesBucket)

		var stale [][]byte
		err := b.ForEach(func(k, v []byte) error {
			var rec Issuance
			if err := json.Unmarshal(v, &rec); err != nil {
				return fmt.Errorf("decoding issuance %x: %w", k, err)
			}

			if rec.ExpiresAt.Before(cutoff) {
				stale = append(stale, append([]byte(nil), k...))
			}

			return nil
		})
		if err != nil {
			return err
		}

		// Deleting inside ForEach is not allowed, so collect first.
		for _, k := range stale {
			if err := b.Delete(k); err != nil {
				return err
			}
		}

		removed = len(stale)

		return nil
	})

	return removed, err
}

// Count returns the number of stored issuances.
func (l *Ledger) Count() (int, error) {
	n := 0
	err := l.db.View(func(tx *bolt.Tx) error {
		n = tx.Bucket(issuancesBucket).Stats().KeyN
		return nil
	})

	return n, err
}
