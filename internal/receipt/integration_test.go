package receipt_test

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"regexp"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/ghttp"

	"github.com/zombor/receipt-buddy/internal/receipt"
	"github.com/zombor/receipt-buddy/internal/scanning"
)

// cannedRecognizer returns the same OCR lines for every image
type cannedRecognizer struct {
	lines []string
}

func (c *cannedRecognizer) Recognize(imageData []byte, contentType string) ([]string, error) {
	return c.lines, nil
}

func (c *cannedRecognizer) Close() error {
	return nil
}

var _ = Describe("Integration", func() {
	var (
		tmpDir   string
		db       *receipt.BoltDB
		store    *receipt.LocalStorage
		ghServer *ghttp.Server
		client   *http.Client
	)

	BeforeEach(func() {
		var err error
		tmpDir = GinkgoT().TempDir()

		db, err = receipt.NewBoltDB(filepath.Join(tmpDir, "test.db"))
		Expect(err).NotTo(HaveOccurred())
		store, err = receipt.NewLocalStorage(filepath.Join(tmpDir, "receipts"))
		Expect(err).NotTo(HaveOccurred())

		scanner := scanning.NewOCRScanner(&cannedRecognizer{lines: []string{
			"HARBOR HARDWARE",
			"Invoice No. 7781",
			"Date: 03/20/2024",
			"Hammer 1 x 24.99",
			"20311 Nails 5.50",
			"Total 30.49",
		}}, nil)

		service := receipt.NewService(db, scanner, store, receipt.WithReturnWindow(14))
		server := receipt.NewServer(service, receipt.BasicAuth{})

		ghServer = ghttp.NewServer()
		ghServer.SetAllowUnhandledRequests(false)
		for _, method := range []string{http.MethodGet, http.MethodPost, http.MethodDelete} {
			ghServer.RouteToHandler(method, regexp.MustCompile(`.*`), server.ServeHTTP)
		}
		client = &http.Client{}
	})

	AfterEach(func() {
		ghServer.Close()
		db.Close()
	})

	send := func(method, path, contentType string, body io.Reader) (int, []byte) {
		req, err := http.NewRequest(method, ghServer.URL()+path, body)
		Expect(err).NotTo(HaveOccurred())
		if contentType != "" {
			req.Header.Set("Content-Type", contentType)
		}
		resp, err := client.Do(req)
		Expect(err).NotTo(HaveOccurred())
		defer resp.Body.Close()
		data, err := io.ReadAll(resp.Body)
		Expect(err).NotTo(HaveOccurred())
		return resp.StatusCode, data
	}

	It("should scan, save, search, serve and delete a receipt", func() {
		// Scan
		var b bytes.Buffer
		writer := multipart.NewWriter(&b)
		part, err := writer.CreateFormFile("file", "IMG 0042.JPG")
		Expect(err).NotTo(HaveOccurred())
		_, err = part.Write([]byte("image bytes"))
		Expect(err).NotTo(HaveOccurred())
		Expect(writer.Close()).To(Succeed())

		status, body := send(http.MethodPost, "/api/receipts/scan", writer.FormDataContentType(), &b)
		Expect(status).To(Equal(http.StatusOK))

		var draft receipt.Receipt
		Expect(json.Unmarshal(body, &draft)).To(Succeed())
		Expect(draft.StoreName).To(Equal("HARBOR HARDWARE"))
		Expect(draft.InvoiceNumber).To(Equal("7781"))
		Expect(draft.Total.StringFixed(2)).To(Equal("30.49"))
		Expect(draft.ReturnDeadline.Format("2006-01-02")).To(Equal("2024-04-03"))
		Expect(draft.Filename).To(HaveSuffix("_IMG 0042.jpg"))
		Expect(draft.ContentType).To(Equal("image/jpeg"))

		// Nothing is listed until the draft is saved
		status, body = send(http.MethodGet, "/api/receipts", "", nil)
		Expect(status).To(Equal(http.StatusOK))
		Expect(strings.TrimSpace(string(body))).To(Equal("[]"))

		// Save the reviewed draft
		draft.StoreName = "Harbor Hardware"
		payload, err := json.Marshal(draft)
		Expect(err).NotTo(HaveOccurred())
		status, _ = send(http.MethodPost, "/api/receipts", "application/json", bytes.NewReader(payload))
		Expect(status).To(Equal(http.StatusCreated))

		// Search
		status, body = send(http.MethodGet, "/api/receipts?store=harbor&min_total=30&item=nails", "", nil)
		Expect(status).To(Equal(http.StatusOK))
		var found []receipt.Receipt
		Expect(json.Unmarshal(body, &found)).To(Succeed())
		Expect(found).To(HaveLen(1))
		Expect(found[0].ID).To(Equal(draft.ID))
		Expect(found[0].Items).To(HaveLen(2))

		status, body = send(http.MethodGet, "/api/items?q=20311", "", nil)
		Expect(status).To(Equal(http.StatusOK))
		var matches []receipt.ItemMatch
		Expect(json.Unmarshal(body, &matches)).To(Succeed())
		Expect(matches).To(HaveLen(1))
		Expect(matches[0].Item.Name).To(Equal("Nails"))

		// File
		status, body = send(http.MethodGet, "/api/receipts/"+draft.ID+"/file", "", nil)
		Expect(status).To(Equal(http.StatusOK))
		Expect(body).To(Equal([]byte("image bytes")))

		// Delete
		status, _ = send(http.MethodDelete, "/api/receipts/"+draft.ID, "", nil)
		Expect(status).To(Equal(http.StatusNoContent))

		status, _ = send(http.MethodGet, "/api/receipts/"+draft.ID, "", nil)
		Expect(status).To(Equal(http.StatusNotFound))
		_, err = store.Get(draft.Filename)
		Expect(err).To(MatchError(receipt.ErrNotFound))
	})
})
