package history

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/disintegration/imaging"
	"github.com/sirupsen/logrus"

	"headwatch/internal/pipeline"
)

const (
	reportKeyPrefix = "report:"
	imageKeyPrefix  = "image:"

	DefaultImageTTL = time.Hour
)

var ErrNotFound = errors.New("not found")

// Store keeps report summaries and, for a limited time, their annotated
// frames.
type Store struct {
	db       *badger.DB
	logger   *logrus.Entry
	imageTTL time.Duration
}

func Open(dir string, logger *logrus.Entry) (*Store, error) {
	return open(badger.DefaultOptions(dir).WithLoggingLevel(badger.ERROR), logger)
}

// OpenInMemory returns a store that lives only as long as the process.
func OpenInMemory(logger *logrus.Entry) (*Store, error) {
	return open(badger.DefaultOptions("").WithInMemory(true).WithLoggingLevel(badger.ERROR), logger)
}

func open(opts badger.Options, logger *logrus.Entry) (*Store, error) {
	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}
	return &Store{
		db:       db,
		logger:   logger,
		imageTTL: DefaultImageTTL,
	}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func reportKey(r *pipeline.Report) []byte {
	return []byte(fmt.Sprintf("%s%020d:%s", reportKeyPrefix, r.CreatedAt.UnixNano(), r.ID))
}

func imageKey(id string) []byte {
	return []byte(imageKeyPrefix + id)
}

// Append records r. Its annotated frame is kept as JPEG until the image TTL
// expires.
func (s *Store) Append(r *pipeline.Report) error {
	val, err := json.Marshal(r.Summary())
	if err != nil {
		return fmt.Errorf("marshal report summary: %w", err)
	}

	var img []byte
	if r.Frame.Annotated != nil {
		var buf bytes.Buffer
		if err := imaging.Encode(&buf, r.Frame.Annotated, imaging.JPEG); err != nil {
			return fmt.Errorf("encode annotated image: %w", err)
		}
		img = buf.Bytes()
	}

	return s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(reportKey(r), val); err != nil {
			return err
		}
		if img == nil {
			return nil
		}
		return txn.SetEntry(badger.NewEntry(imageKey(r.ID), img).WithTTL(s.imageTTL))
	})
}

// List returns up to limit summaries, newest first. limit <= 0 returns all.
func (s *Store) List(limit int) ([]pipeline.Summary, error) {
	summaries := []pipeline.Summary{}
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.PrefetchSize = 10
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(reportKeyPrefix)
		seek := append([]byte(reportKeyPrefix), 0xff)
		for it.Seek(seek); it.ValidForPrefix(prefix); it.Next() {
			if limit > 0 && len(summaries) >= limit {
				break
			}
			var summary pipeline.Summary
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &summary)
			})
			if err != nil {
				s.logger.WithError(err).Warnf("skip unreadable report %s", it.Item().Key())
				continue
			}
			summaries = append(summaries, summary)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return summaries, nil
}

// Image returns the JPEG-encoded annotated frame of report id.
func (s *Store) Image(id string) ([]byte, error) {
	var val []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(imageKey(id))
		if err != nil {
			return err
		}
		val, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return val, nil
}
