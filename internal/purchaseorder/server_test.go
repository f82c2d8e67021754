package purchaseorder

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/ghttp"

	"github.com/zombor/po-reader/internal/extract"
)

var _ = Describe("Server", func() {
	var (
		db          *mockDB
		storage     *mockStorage
		extractor   *mockExtractor
		opener      *mockOpener
		auth        BasicAuth
		ghttpServer *ghttp.Server
	)

	BeforeEach(func() {
		db = newMockDB()
		storage = newMockStorage()
		extractor = newMockExtractor()
		opener = &mockOpener{}
		auth = BasicAuth{}
	})

	// The server is built after every BeforeEach has adjusted the mocks
	JustBeforeEach(func() {
		service := NewServiceWithDeps(db, extractor, storage, opener,
			&mockIDGenerator{id: "abc"}, &mockTimeSource{now: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)})
		server := NewServerWithMux(service, auth, http.NewServeMux())
		ghttpServer = ghttp.NewServer()
		ghttpServer.AppendHandlers(server.ServeHTTP)
	})

	AfterEach(func() {
		if ghttpServer != nil {
			ghttpServer.Close()
		}
	})

	do := func(method, path string, body io.Reader, contentType string) *http.Response {
		req, err := http.NewRequest(method, ghttpServer.URL()+path, body)
		Expect(err).NotTo(HaveOccurred())
		if contentType != "" {
			req.Header.Set("Content-Type", contentType)
		}
		resp, err := http.DefaultClient.Do(req)
		Expect(err).NotTo(HaveOccurred())
		return resp
	}

	readBody := func(resp *http.Response) []byte {
		defer resp.Body.Close()
		body, err := io.ReadAll(resp.Body)
		Expect(err).NotTo(HaveOccurred())
		return body
	}

	upload := func(filename string, data []byte) *http.Response {
		var b bytes.Buffer
		writer := multipart.NewWriter(&b)
		part, err := writer.CreateFormFile("file", filename)
		Expect(err).NotTo(HaveOccurred())
		part.Write(data)
		writer.Close()
		return do("POST", "/invoices/pos", &b, writer.FormDataContentType())
	}

	Describe("handleHealth", func() {
		It("should report ok", func() {
			resp := do("GET", "/invoices/health", nil, "")
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			Expect(string(readBody(resp))).To(MatchJSON(`{"status":"ok"}`))
		})
	})

	Describe("CORS", func() {
		It("should answer preflight requests", func() {
			resp := do("OPTIONS", "/invoices/pos", nil, "")
			defer resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusNoContent))
			Expect(resp.Header.Get("Access-Control-Allow-Origin")).To(Equal("*"))
		})
	})

	Describe("authentication", func() {
		BeforeEach(func() {
			auth = BasicAuth{Username: "admin", Password: "secret"}
		})

		When("credentials are missing", func() {
			It("should return status Unauthorized", func() {
				resp := do("GET", "/invoices/pos", nil, "")
				defer resp.Body.Close()
				Expect(resp.StatusCode).To(Equal(http.StatusUnauthorized))
				Expect(resp.Header.Get("WWW-Authenticate")).To(ContainSubstring("Basic"))
			})
		})

		When("credentials are correct", func() {
			It("should return status OK", func() {
				req, err := http.NewRequest("GET", ghttpServer.URL()+"/invoices/pos", nil)
				Expect(err).NotTo(HaveOccurred())
				req.Header.Set("Authorization", "Basic "+base64.StdEncoding.EncodeToString([]byte("admin:secret")))
				resp, err := http.DefaultClient.Do(req)
				Expect(err).NotTo(HaveOccurred())
				defer resp.Body.Close()
				Expect(resp.StatusCode).To(Equal(http.StatusOK))
			})
		})

		When("the health check is requested", func() {
			It("should not require credentials", func() {
				resp := do("GET", "/invoices/health", nil, "")
				defer resp.Body.Close()
				Expect(resp.StatusCode).To(Equal(http.StatusOK))
			})
		})
	})

	Describe("handleList", func() {
		When("documents exist", func() {
			BeforeEach(func() {
				storage.files["b.pdf"] = []byte("b")
				storage.files["a.jpg"] = []byte("a")
			})

			It("should return them by name", func() {
				resp := do("GET", "/invoices/pos", nil, "")
				Expect(resp.StatusCode).To(Equal(http.StatusOK))
				Expect(resp.Header.Get("Content-Type")).To(Equal("application/json"))
				var files []*File
				Expect(json.Unmarshal(readBody(resp), &files)).To(Succeed())
				Expect(files).To(HaveLen(2))
				Expect(files[0].Filename).To(Equal("a.jpg"))
				Expect(files[0].ID).NotTo(BeEmpty())
			})
		})

		When("no documents exist", func() {
			It("should return an empty array", func() {
				resp := do("GET", "/invoices/pos", nil, "")
				Expect(string(readBody(resp))).To(MatchJSON(`[]`))
			})
		})

		When("storage fails", func() {
			BeforeEach(func() {
				storage.listErr = errors.New("disk error")
			})

			It("should return status Internal Server Error", func() {
				resp := do("GET", "/invoices/pos", nil, "")
				Expect(resp.StatusCode).To(Equal(http.StatusInternalServerError))
				Expect(string(readBody(resp))).To(ContainSubstring("Internal server error"))
			})
		})
	})

	Describe("handleUpload", func() {
		When("upload succeeds", func() {
			It("should return the file and the view", func() {
				resp := upload("order.pdf", []byte("%PDF"))
				Expect(resp.StatusCode).To(Equal(http.StatusCreated))
				var body map[string]any
				Expect(json.Unmarshal(readBody(resp), &body)).To(Succeed())
				Expect(body["file"]).To(HaveKeyWithValue("filename", "order.pdf"))
				Expect(body["file"]).To(HaveKeyWithValue("date", "2024-02-01T00:00:00Z"))
				Expect(body["date"]).To(Equal("01/15/2024"))
				Expect(body["vendor_name"]).To(Equal("Acme Corp"))
				Expect(body["total_amount"]).To(Equal("$25.00"))
				Expect(body["line_items"]).To(HaveLen(2))
			})
		})

		When("no file is provided", func() {
			It("should return status Bad Request", func() {
				var b bytes.Buffer
				writer := multipart.NewWriter(&b)
				writer.WriteField("other", "value")
				writer.Close()
				resp := do("POST", "/invoices/pos", &b, writer.FormDataContentType())
				Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
				Expect(string(readBody(resp))).To(ContainSubstring("No file was selected"))
			})
		})

		When("the body is not multipart", func() {
			It("should return status Bad Request", func() {
				resp := do("POST", "/invoices/pos", bytes.NewBufferString("{}"), "application/json")
				Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
				Expect(string(readBody(resp))).To(ContainSubstring("Error parsing form"))
			})
		})

		When("the format is unsupported", func() {
			It("should return status Bad Request", func() {
				resp := upload("notes.txt", []byte("hello"))
				defer resp.Body.Close()
				Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
			})
		})

		When("the name and its prefixed form are taken", func() {
			BeforeEach(func() {
				storage.files["order.pdf"] = []byte("old")
				storage.files["abc_order.pdf"] = []byte("older")
			})

			It("should return status Conflict", func() {
				resp := upload("order.pdf", []byte("%PDF"))
				defer resp.Body.Close()
				Expect(resp.StatusCode).To(Equal(http.StatusConflict))
			})
		})

		When("the document cannot be read", func() {
			BeforeEach(func() {
				extractor.err = &extract.Failure{Filename: "order.pdf", Err: errors.New("corrupt")}
			})

			It("should return status Unprocessable Entity", func() {
				resp := upload("order.pdf", []byte("junk"))
				Expect(resp.StatusCode).To(Equal(http.StatusUnprocessableEntity))
				Expect(string(readBody(resp))).To(ContainSubstring("corrupt"))
			})
		})
	})

	Describe("handleParse", func() {
		BeforeEach(func() {
			storage.files["order.pdf"] = []byte("%PDF")
		})

		It("should return the presentation view", func() {
			resp := do("POST", "/invoices/pos/order.pdf/parse", nil, "")
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			var view RecordView
			Expect(json.Unmarshal(readBody(resp), &view)).To(Succeed())
			Expect(view.VendorName).To(Equal("Acme Corp"))
			Expect(view.PONumber).To(Equal("PO-1001"))
			Expect(view.Date).To(Equal("01/15/2024"))
			Expect(view.LineItems[0]).To(Equal(ItemView{
				Description: "Widget", Quantity: 2, UnitPrice: "$5.00", Amount: "$10.00",
			}))
		})

		When("the file does not exist", func() {
			It("should return status Not Found", func() {
				resp := do("POST", "/invoices/pos/missing.pdf/parse", nil, "")
				defer resp.Body.Close()
				Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
			})
		})

		When("extraction fails unexpectedly", func() {
			BeforeEach(func() {
				extractor.err = errors.New("deadline exceeded")
			})

			It("should return status Internal Server Error", func() {
				resp := do("POST", "/invoices/pos/order.pdf/parse", nil, "")
				Expect(resp.StatusCode).To(Equal(http.StatusInternalServerError))
				Expect(string(readBody(resp))).To(ContainSubstring("Extraction failed"))
			})
		})
	})

	Describe("handleGetRecord", func() {
		When("a record is cached", func() {
			BeforeEach(func() {
				db.records["order.pdf"] = &StoredRecord{
					Filename: "order.pdf",
					Record:   &extract.Record{PONumber: "PO-7"},
				}
			})

			It("should return it", func() {
				resp := do("GET", "/invoices/pos/order.pdf/record", nil, "")
				Expect(resp.StatusCode).To(Equal(http.StatusOK))
				var stored StoredRecord
				Expect(json.Unmarshal(readBody(resp), &stored)).To(Succeed())
				Expect(stored.Record.PONumber).To(Equal("PO-7"))
			})
		})

		When("nothing is cached", func() {
			It("should return status Not Found", func() {
				resp := do("GET", "/invoices/pos/order.pdf/record", nil, "")
				defer resp.Body.Close()
				Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
			})
		})
	})

	Describe("handleGetFile", func() {
		BeforeEach(func() {
			storage.files["scan.png"] = []byte("png-data")
		})

		It("should return the file with its content type", func() {
			resp := do("GET", "/invoices/pos/scan.png/file", nil, "")
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			Expect(resp.Header.Get("Content-Type")).To(Equal("image/png"))
			Expect(readBody(resp)).To(Equal([]byte("png-data")))
		})

		When("the file does not exist", func() {
			It("should return status Not Found", func() {
				resp := do("GET", "/invoices/pos/missing.png/file", nil, "")
				defer resp.Body.Close()
				Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
			})
		})
	})

	Describe("exports", func() {
		BeforeEach(func() {
			storage.files["order.pdf"] = []byte("%PDF")
		})

		It("should serve CSV as an attachment", func() {
			resp := do("GET", "/invoices/pos/order.pdf/export.csv", nil, "")
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			Expect(resp.Header.Get("Content-Type")).To(HavePrefix("text/csv"))
			Expect(resp.Header.Get("Content-Disposition")).To(ContainSubstring(`"order.csv"`))
			Expect(string(readBody(resp))).To(ContainSubstring("Acme Corp"))
		})

		It("should serve XLSX as an attachment", func() {
			resp := do("GET", "/invoices/pos/order.pdf/export.xlsx", nil, "")
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			Expect(resp.Header.Get("Content-Disposition")).To(ContainSubstring(`"order.xlsx"`))
			// XLSX is a zip archive
			Expect(string(readBody(resp))).To(HavePrefix("PK"))
		})
	})

	Describe("handleDelete", func() {
		BeforeEach(func() {
			storage.files["order.pdf"] = []byte("%PDF")
			db.records["order.pdf"] = &StoredRecord{Filename: "order.pdf"}
		})

		It("should remove the file and its record", func() {
			resp := do("DELETE", "/invoices/pos/order.pdf", nil, "")
			defer resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusNoContent))
			Expect(storage.files).To(BeEmpty())
			Expect(db.records).To(BeEmpty())
		})

		When("the file does not exist", func() {
			It("should return status Not Found", func() {
				resp := do("DELETE", "/invoices/pos/missing.pdf", nil, "")
				defer resp.Body.Close()
				Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
			})
		})
	})

	Describe("handleOpenFolder", func() {
		It("should open the directory", func() {
			resp := do("POST", "/invoices/pos/open-folder", nil, "")
			defer resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			Expect(opener.dirs).To(Equal([]string{"/po"}))
		})

		When("the opener fails", func() {
			BeforeEach(func() {
				opener.err = errors.New("no display")
			})

			It("should return status Internal Server Error", func() {
				resp := do("POST", "/invoices/pos/open-folder", nil, "")
				Expect(resp.StatusCode).To(Equal(http.StatusInternalServerError))
				Expect(string(readBody(resp))).To(ContainSubstring("no display"))
			})
		})
	})

	Describe("unknown methods", func() {
		It("should return status Method Not Allowed", func() {
			resp := do("PUT", "/invoices/pos", nil, "")
			defer resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusMethodNotAllowed))
		})
	})
})
