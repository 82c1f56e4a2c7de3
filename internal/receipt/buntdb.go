package receipt

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/tidwall/buntdb"
)

// MemoryPath opens a BuntDB store that lives only as long as the process
const MemoryPath = ":memory:"

const buntKeyPrefix = "receipt:"

// BuntDB implements the DB interface using BuntDB
type BuntDB struct {
	db          *buntdb.DB
	idGenerator IDGenerator
	timeSource  TimeSource
}

// NewBuntDB opens a BuntDB store at path, or an in-memory store for MemoryPath
func NewBuntDB(path string) (*BuntDB, error) {
	return NewBuntDBWithDeps(path, &uuidGenerator{}, &defaultTimeSource{})
}

// NewBuntDBWithDeps creates a new BuntDB instance with custom dependencies for testing
func NewBuntDBWithDeps(path string, idGen IDGenerator, timeSrc TimeSource) (*BuntDB, error) {
	db, err := buntdb.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening buntdb: %w", err)
	}
	return &BuntDB{db: db, idGenerator: idGen, timeSource: timeSrc}, nil
}

// Create stores points under a new id
func (b *BuntDB) Create(points int) (string, error) {
	var id string
	err := b.db.Update(func(tx *buntdb.Tx) error {
		for i := 0; i < maxIDAttempts; i++ {
			candidate := b.idGenerator.Generate()
			_, err := tx.Get(buntKeyPrefix + candidate)
			if err == nil {
				continue
			}
			if !errors.Is(err, buntdb.ErrNotFound) {
				return err
			}

			data, err := json.Marshal(ScoreRecord{
				ID:        candidate,
				Points:    points,
				CreatedAt: b.timeSource.Now(),
			})
			if err != nil {
				return fmt.Errorf("marshaling score record: %w", err)
			}
			if _, _, err := tx.Set(buntKeyPrefix+candidate, string(data), nil); err != nil {
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
func (b *BuntDB) Lookup(id string) (int, bool, error) {
	var value string
	err := b.db.View(func(tx *buntdb.Tx) error {
		var err error
		value, err = tx.Get(buntKeyPrefix + id)
		return err
	})
	if errors.Is(err, buntdb.ErrNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("reading score record %s: %w", id, err)
	}

	var record ScoreRecord
	if err := json.Unmarshal([]byte(value), &record); err != nil {
		return 0, false, fmt.Errorf("unmarshaling score record %s: %w", id, err)
	}
	return record.Points, true, nil
}

// Close closes the database, flushing a file backed store
func (b *BuntDB) Close() error {
	return b.db.Close()
}
