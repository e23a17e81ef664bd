package receipt

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/zombor/receipt-buddy/internal/extraction"
	"github.com/zombor/receipt-buddy/internal/scanning"
)

// maxUploadSize covers high-resolution phone photos
const maxUploadSize = int64(50 << 20)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// statusFor maps service errors to HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidReceipt), errors.Is(err, ErrInvalidQuery):
		return http.StatusBadRequest
	case errors.Is(err, scanning.ErrUnsupportedFormat):
		return http.StatusUnsupportedMediaType
	default:
		return http.StatusInternalServerError
	}
}

// handleScanReceipt reads a multipart upload into an unsaved draft
func (s *Server) handleScanReceipt(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		slog.Error("Error parsing multipart form", "error", err)
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "File is too large. Maximum size is 50MB. Please compress or resize your image.")
			return
		}
		writeError(w, http.StatusBadRequest, "Error parsing form")
		return
	}

	f, header, err := r.FormFile("file")
	if err != nil {
		slog.Error("Error getting file from form", "error", err)
		writeError(w, http.StatusBadRequest, "No file was selected. Please choose a file to upload.")
		return
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		slog.Error("Error reading file data", "error", err, "filename", header.Filename)
		writeError(w, http.StatusInternalServerError, "Error reading file. Please try again.")
		return
	}

	contentType := uploadContentType(header.Header.Get("Content-Type"), header.Filename)
	draft, err := s.service.ScanReceipt(header.Filename, data, contentType)
	if err != nil {
		slog.Error("Error scanning receipt", "filename", header.Filename, "error", err)
		writeError(w, statusFor(err), err.Error())
		return
	}

	writeJSON(w, http.StatusOK, draft)
}

// uploadContentType trusts the part header unless it is missing or generic,
// then falls back to the file extension.
func uploadContentType(declared, filename string) string {
	declared = strings.ToLower(strings.TrimSpace(declared))
	if declared != "" && declared != "application/octet-stream" {
		return declared
	}
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".pdf":
		return "application/pdf"
	case ".heic":
		return "image/heic"
	case ".heif":
		return "image/heif"
	default:
		return "application/octet-stream"
	}
}

// handleCreateReceipt saves a reviewed draft or a manually entered receipt
func (s *Server) handleCreateReceipt(w http.ResponseWriter, r *http.Request) {
	var receipt Receipt
	if err := json.NewDecoder(r.Body).Decode(&receipt); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := s.service.CreateReceipt(&receipt); err != nil {
		slog.Error("Error creating receipt", "error", err)
		writeError(w, statusFor(err), err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, receipt)
}

// handleListReceipts returns the receipts matching the query filters
func (s *Server) handleListReceipts(w http.ResponseWriter, r *http.Request) {
	filter, sort, err := parseSearchQuery(r, s.service.timeSource.Now())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	receipts, err := s.service.SearchReceipts(filter, sort)
	if err != nil {
		slog.Error("Error listing receipts", "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(w, http.StatusOK, receipts)
}

// handleExportReceipts downloads the matching receipts as a spreadsheet
func (s *Server) handleExportReceipts(w http.ResponseWriter, r *http.Request) {
	filter, sort, err := parseSearchQuery(r, s.service.timeSource.Now())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	data, err := s.service.ExportXLSX(filter, sort)
	if err != nil {
		slog.Error("Error exporting receipts", "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="receipts.xlsx"`)
	w.Write(data)
}

// parseSearchQuery reads from, to (YYYY-MM-DD), min_total, max_total,
// store, item, code, returnable and sort from the query string.
// returnable=true filters on the deadline as of now.
func parseSearchQuery(r *http.Request, now time.Time) (Filter, SortOption, error) {
	q := r.URL.Query()
	var filter Filter

	for key, dst := range map[string]**time.Time{"from": &filter.From, "to": &filter.To} {
		if v := strings.TrimSpace(q.Get(key)); v != "" {
			t, err := time.Parse("2006-01-02", v)
			if err != nil {
				return Filter{}, "", fmt.Errorf("%w: %s date %q, expected YYYY-MM-DD", ErrInvalidQuery, key, v)
			}
			*dst = &t
		}
	}
	for key, dst := range map[string]**decimal.Decimal{"min_total": &filter.MinTotal, "max_total": &filter.MaxTotal} {
		if v := strings.TrimSpace(q.Get(key)); v != "" {
			amount, err := extraction.ParseAmount(v)
			if err != nil {
				return Filter{}, "", fmt.Errorf("%w: %s %q", ErrInvalidQuery, key, v)
			}
			*dst = &amount
		}
	}

	if v := strings.TrimSpace(q.Get("returnable")); v != "" {
		returnable, err := strconv.ParseBool(v)
		if err != nil {
			return Filter{}, "", fmt.Errorf("%w: returnable %q", ErrInvalidQuery, v)
		}
		if returnable {
			filter.ReturnableOn = &now
		}
	}

	filter.Store = q.Get("store")
	filter.ItemName = q.Get("item")
	filter.ItemCode = q.Get("code")

	sort, err := ParseSortOption(q.Get("sort"))
	if err != nil {
		return Filter{}, "", err
	}
	return filter, sort, nil
}

// handleGetReceipt returns a single receipt
func (s *Server) handleGetReceipt(w http.ResponseWriter, r *http.Request) {
	receipt, err := s.service.GetReceipt(r.PathValue("id"))
	if err != nil {
		writeError(w, statusFor(err), "Receipt not found")
		return
	}
	writeJSON(w, http.StatusOK, receipt)
}

// handleGetReceiptFile returns the stored image for a receipt
func (s *Server) handleGetReceiptFile(w http.ResponseWriter, r *http.Request) {
	data, contentType, err := s.service.GetReceiptFile(r.PathValue("id"))
	if err != nil {
		writeError(w, statusFor(err), "File not found")
		return
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Write(data)
}

// handleDeleteReceipt deletes a receipt
func (s *Server) handleDeleteReceipt(w http.ResponseWriter, r *http.Request) {
	if err := s.service.DeleteReceipt(r.PathValue("id")); err != nil {
		slog.Error("Error deleting receipt", "id", r.PathValue("id"), "error", err)
		writeError(w, statusFor(err), "Error deleting receipt")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleSearchItems finds items by name or code
func (s *Server) handleSearchItems(w http.ResponseWriter, r *http.Request) {
	matches, err := s.service.SearchItems(r.URL.Query().Get("q"))
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, matches)
}

// extractRequest carries OCR output as lines or as one newline-separated text
type extractRequest struct {
	Lines []string `json:"lines"`
	Text  string   `json:"text"`
}

// handleExtract runs the extraction engine over OCR text without storing it
func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	var req extractRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	lines := req.Lines
	if lines == nil && req.Text != "" {
		text := strings.TrimSuffix(strings.ReplaceAll(req.Text, "\r\n", "\n"), "\n")
		lines = strings.Split(text, "\n")
	}
	writeJSON(w, http.StatusOK, s.service.ExtractText(lines))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
