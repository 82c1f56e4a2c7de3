package receipt

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.etcd.io/bbolt"
)

const (
	pointsBucketName = "points"

	// maxIDAttempts bounds id regeneration on collision; with random
	// 128-bit ids a single retry is already astronomically unlikely.
	maxIDAttempts = 3
)

// DB defines the interface for score storage
type DB interface {
	// Create stores points under a freshly generated id and returns the id
	Create(points int) (string, error)

	// Lookup returns the points stored under id. found is false when the
	// id is unknown; err is reserved for storage faults.
	Lookup(id string) (points int, found bool, err error)

	// Close releases the store, flushing it if it is file backed
	Close() error
}

// IDGenerator generates unique IDs for receipts
type IDGenerator interface {
	Generate() string
}

// TimeSource provides the current time
type TimeSource interface {
	Now() time.Time
}

// uuidGenerator generates random (version 4) UUIDs
type uuidGenerator struct{}

func (g *uuidGenerator) Generate() string {
	return uuid.NewString()
}

// defaultTimeSource provides the current time
type defaultTimeSource struct{}

func (t *defaultTimeSource) Now() time.Time {
	return time.Now()
}

// BoltDB implements the DB interface using BoltDB
type BoltDB struct {
	db          *bbolt.DB
	idGenerator IDGenerator
	timeSource  TimeSource
}

// NewBoltDB creates a new BoltDB instance
func NewBoltDB(path string) (*BoltDB, error) {
	return NewBoltDBWithDeps(path, &uuidGenerator{}, &defaultTimeSource{})
}

// NewBoltDBWithDeps creates a new BoltDB instance with custom dependencies for testing
func NewBoltDBWithDeps(path string, idGen IDGenerator, timeSrc TimeSource) (*BoltDB, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening boltdb: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(pointsBucketName))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating buckets: %w", err)
	}

	return &BoltDB{db: db, idGenerator: idGen, timeSource: timeSrc}, nil
}

// Create stores points under a new id. The existence check and the insert
// share one write transaction.
func (b *BoltDB) Create(points int) (string, error) {
	var id string
	err := b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(pointsBucketName))
		for i := 0; i < maxIDAttempts; i++ {
			candidate := b.idGenerator.Generate()
			if bucket.Get([]byte(candidate)) != nil {
				continue
			}

			data, err := json.Marshal(ScoreRecord{
				ID:        candidate,
				Points:    points,
				CreatedAt: b.timeSource.Now(),
			})
			if err != nil {
				return fmt.Errorf("marshaling score record: %w", err)
			}
			if err := bucket.Put([]byte(candidate), data); err != nil {
				return err
			}
			id = candidate
			return nil
		}
		return ErrIDCollision
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

// Lookup retrieves the points for id
func (b *BoltDB) Lookup(id string) (int, bool, error) {
	var (
		record ScoreRecord
		found  bool
	)
	err := b.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket([]byte(pointsBucketName)).Get([]byte(id))
		if data == nil {
			return nil
		}
		found = true
		return json.Unmarshal(data, &record)
	})
	if err != nil {
		return 0, false, fmt.Errorf("reading score record %s: %w", id, err)
	}
	return record.Points, found, nil
}

// Close closes the database connection
func (b *BoltDB) Close() error {
	return b.db.Close()
}
