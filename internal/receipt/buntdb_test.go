package receipt

import (
	"encoding/json"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/tidwall/buntdb"
)

var _ = Describe("BuntDB records", func() {
	var timeSrc *mockTimeSource

	BeforeEach(func() {
		timeSrc = &mockTimeSource{now: time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)}
	})

	When("opened in memory", func() {
		var db *BuntDB

		BeforeEach(func() {
			var err error
			db, err = NewBuntDBWithDeps(MemoryPath, &mockIDGenerator{ids: []string{"mem-id"}}, timeSrc)
			Expect(err).NotTo(HaveOccurred())
		})

		AfterEach(func() {
			db.Close()
		})

		It("stores a JSON score record under a prefixed key", func() {
			_, err := db.Create(61)
			Expect(err).NotTo(HaveOccurred())

			var value string
			err = db.db.View(func(tx *buntdb.Tx) error {
				var err error
				value, err = tx.Get("receipt:mem-id")
				return err
			})
			Expect(err).NotTo(HaveOccurred())

			var record ScoreRecord
			Expect(json.Unmarshal([]byte(value), &record)).To(Succeed())
			Expect(record.ID).To(Equal("mem-id"))
			Expect(record.Points).To(Equal(61))
			Expect(record.CreatedAt).To(BeTemporally("==", timeSrc.now))
		})

		It("does not write a file", func() {
			_, err := db.Create(1)
			Expect(err).NotTo(HaveOccurred())
			Expect(MemoryPath).NotTo(BeAnExistingFile())
		})
	})

	When("opened on a file", func() {
		It("keeps records across reopening", func() {
			dbPath := filepath.Join(GinkgoT().TempDir(), "points.db")
			db, err := NewBuntDBWithDeps(dbPath, &mockIDGenerator{ids: []string{"file-id"}}, timeSrc)
			Expect(err).NotTo(HaveOccurred())
			_, err = db.Create(17)
			Expect(err).NotTo(HaveOccurred())
			Expect(db.Close()).To(Succeed())
			Expect(dbPath).To(BeAnExistingFile())

			reopened, err := NewBuntDB(dbPath)
			Expect(err).NotTo(HaveOccurred())
			defer reopened.Close()

			points, found, err := reopened.Lookup("file-id")
			Expect(err).NotTo(HaveOccurred())
			Expect(found).To(BeTrue())
			Expect(points).To(Equal(17))
		})
	})

	When("the stored value is corrupt", func() {
		It("returns an error rather than not found", func() {
			db, err := NewBuntDB(MemoryPath)
			Expect(err).NotTo(HaveOccurred())
			defer db.Close()

			err = db.db.Update(func(tx *buntdb.Tx) error {
				_, _, err := tx.Set("receipt:broken", "not json", nil)
				return err
			})
			Expect(err).NotTo(HaveOccurred())

			_, found, err := db.Lookup("broken")
			Expect(err).To(HaveOccurred())
			Expect(found).To(BeFalse())
		})
	})
})
