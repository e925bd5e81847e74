package scan

import (
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.etcd.io/bbolt"
)

var _ = Describe("BoltStore", func() {
	var (
		tmpDir string
		dbPath string
		store  *BoltStore
	)

	newRecord := func(id, title string) ScanRecord {
		return ScanRecord{
			ID:            id,
			Title:         title,
			OCRText:       "some text",
			QualityScore:  0.8,
			OriginalFile:  id + "_photo.jpg",
			ProcessedFile: id + "_photo.jpg",
			ContentType:   "image/jpeg",
			FileSize:      1024,
			CreatedAt:     time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
		}
	}

	BeforeEach(func() {
		tmpDir = GinkgoT().TempDir()
		dbPath = filepath.Join(tmpDir, "test.db")
		var err error
		store, err = NewBoltStore(dbPath)
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		if store != nil {
			store.Close()
		}
	})

	Describe("Insert", func() {
		It("should prepend each record", func() {
			Expect(store.Insert(newRecord("first", "First"))).To(Succeed())
			Expect(store.Insert(newRecord("second", "Second"))).To(Succeed())

			records := store.List()
			Expect(records).To(HaveLen(2))
			Expect(records[0].ID).To(Equal("second"))
			Expect(records[1].ID).To(Equal("first"))
		})

		It("should persist the list across reopen", func() {
			Expect(store.Insert(newRecord("first", "First"))).To(Succeed())
			Expect(store.Insert(newRecord("second", "Second"))).To(Succeed())
			Expect(store.Close()).To(Succeed())

			reopened, err := NewBoltStore(dbPath)
			Expect(err).NotTo(HaveOccurred())
			defer reopened.Close()

			records := reopened.List()
			Expect(records).To(HaveLen(2))
			Expect(records[0].ID).To(Equal("second"))
			Expect(records[0].Title).To(Equal("Second"))
			Expect(records[1].ID).To(Equal("first"))

			store = nil
		})
	})

	Describe("Get", func() {
		BeforeEach(func() {
			Expect(store.Insert(newRecord("known", "Known"))).To(Succeed())
		})

		When("the record exists", func() {
			It("should return it", func() {
				record, ok := store.Get("known")
				Expect(ok).To(BeTrue())
				Expect(record.Title).To(Equal("Known"))
			})
		})

		When("the record does not exist", func() {
			It("should report not found", func() {
				_, ok := store.Get("unknown")
				Expect(ok).To(BeFalse())
			})
		})
	})

	Describe("Delete", func() {
		BeforeEach(func() {
			Expect(store.Insert(newRecord("first", "First"))).To(Succeed())
			Expect(store.Insert(newRecord("second", "Second"))).To(Succeed())
		})

		It("should remove the matching record", func() {
			Expect(store.Delete("first")).To(Succeed())

			records := store.List()
			Expect(records).To(HaveLen(1))
			Expect(records[0].ID).To(Equal("second"))
		})

		It("should persist the removal", func() {
			Expect(store.Delete("second")).To(Succeed())
			Expect(store.Close()).To(Succeed())

			reopened, err := NewBoltStore(dbPath)
			Expect(err).NotTo(HaveOccurred())
			defer reopened.Close()

			records := reopened.List()
			Expect(records).To(HaveLen(1))
			Expect(records[0].ID).To(Equal("first"))

			store = nil
		})

		It("should be a no-op for an absent ID", func() {
			Expect(store.Delete("missing")).To(Succeed())
			Expect(store.List()).To(HaveLen(2))
		})
	})

	Describe("List", func() {
		It("should return a snapshot that does not alias the store", func() {
			Expect(store.Insert(newRecord("first", "First"))).To(Succeed())

			records := store.List()
			records[0].Title = "mutated"

			fresh := store.List()
			Expect(fresh[0].Title).To(Equal("First"))
		})
	})

	Describe("loading malformed data", func() {
		BeforeEach(func() {
			Expect(store.Close()).To(Succeed())

			// Corrupt the persisted history out-of-band
			db, err := bbolt.Open(dbPath, 0600, nil)
			Expect(err).NotTo(HaveOccurred())
			err = db.Update(func(tx *bbolt.Tx) error {
				return tx.Bucket([]byte(historyBucket)).Put([]byte(historyKey), []byte("not json"))
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(db.Close()).To(Succeed())
		})

		It("should fail soft to an empty list", func() {
			reopened, err := NewBoltStore(dbPath)
			Expect(err).NotTo(HaveOccurred())
			defer reopened.Close()

			Expect(reopened.List()).To(BeEmpty())

			store = nil
		})
	})
})
