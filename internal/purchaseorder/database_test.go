package purchaseorder

import (
	"errors"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/zombor/po-reader/internal/extract"
)

var _ = Describe("BoltDB", func() {
	var (
		tmpDir string
		dbPath string
		db     *BoltDB
	)

	BeforeEach(func() {
		tmpDir = GinkgoT().TempDir()
		dbPath = filepath.Join(tmpDir, "test.db")
		var err error
		db, err = NewBoltDB(dbPath)
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		if db != nil {
			db.Close()
		}
	})

	newStored := func(filename string) *StoredRecord {
		return &StoredRecord{
			Filename:    filename,
			ContentHash: "hash-" + filename,
			ParsedAt:    time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC),
			Record: &extract.Record{
				SourceFile:    filename,
				Customer:      "Acme Corp",
				PONumber:      "PO-1001",
				InvoiceAmount: 10,
				Items: []extract.LineItem{
					{Description: "Widget", Quantity: 2, Rate: 5, Price: 10},
				},
			},
		}
	}

	Describe("SaveRecord", func() {
		var err error

		JustBeforeEach(func() {
			err = db.SaveRecord(newStored("order.pdf"))
		})

		It("should not return an error", func() {
			Expect(err).NotTo(HaveOccurred())
		})

		It("should persist the record", func() {
			stored, err := db.GetRecord("order.pdf")
			Expect(err).NotTo(HaveOccurred())
			Expect(stored.ContentHash).To(Equal("hash-order.pdf"))
			Expect(stored.ParsedAt.Equal(time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC))).To(BeTrue())
			Expect(stored.Record.Items).To(HaveLen(1))
			Expect(stored.Record.Items[0].Description).To(Equal("Widget"))
		})

		When("a record for the file already exists", func() {
			It("should replace it", func() {
				replacement := newStored("order.pdf")
				replacement.ContentHash = "new"
				Expect(db.SaveRecord(replacement)).To(Succeed())

				stored, err := db.GetRecord("order.pdf")
				Expect(err).NotTo(HaveOccurred())
				Expect(stored.ContentHash).To(Equal("new"))
			})
		})
	})

	Describe("GetRecord", func() {
		When("the record does not exist", func() {
			It("should return ErrNotFound", func() {
				_, err := db.GetRecord("missing.pdf")
				Expect(errors.Is(err, ErrNotFound)).To(BeTrue())
			})
		})
	})

	Describe("ListRecords", func() {
		When("records exist", func() {
			BeforeEach(func() {
				Expect(db.SaveRecord(newStored("b.pdf"))).To(Succeed())
				Expect(db.SaveRecord(newStored("a.pdf"))).To(Succeed())
			})

			It("should return them ordered by filename", func() {
				records, err := db.ListRecords()
				Expect(err).NotTo(HaveOccurred())
				Expect(records).To(HaveLen(2))
				Expect(records[0].Filename).To(Equal("a.pdf"))
				Expect(records[1].Filename).To(Equal("b.pdf"))
			})
		})

		When("no records exist", func() {
			It("should return an empty slice", func() {
				records, err := db.ListRecords()
				Expect(err).NotTo(HaveOccurred())
				Expect(records).NotTo(BeNil())
				Expect(records).To(BeEmpty())
			})
		})
	})

	Describe("DeleteRecord", func() {
		BeforeEach(func() {
			Expect(db.SaveRecord(newStored("order.pdf"))).To(Succeed())
		})

		It("should remove the record", func() {
			Expect(db.DeleteRecord("order.pdf")).To(Succeed())
			_, err := db.GetRecord("order.pdf")
			Expect(errors.Is(err, ErrNotFound)).To(BeTrue())
		})

		It("should not fail for missing records", func() {
			Expect(db.DeleteRecord("missing.pdf")).To(Succeed())
		})
	})

	Describe("reopening", func() {
		It("should keep saved records", func() {
			Expect(db.SaveRecord(newStored("order.pdf"))).To(Succeed())
			Expect(db.Close()).To(Succeed())

			var err error
			db, err = NewBoltDB(dbPath)
			Expect(err).NotTo(HaveOccurred())

			stored, err := db.GetRecord("order.pdf")
			Expect(err).NotTo(HaveOccurred())
			Expect(stored.Record.PONumber).To(Equal("PO-1001"))
		})
	})
})
