package purchaseorder

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/zombor/po-reader/internal/document"
	"github.com/zombor/po-reader/internal/extract"
)

const maxUploadSize = int64(50 << 20) // 50MB

// uploadResponse is the stored file alongside the extracted view. The file
// is nested because both carry a date.
type uploadResponse struct {
	File *File `json:"file"`
	*RecordView
}

// corsError writes an error response with CORS headers set
func corsError(w http.ResponseWriter, message string, code int) {
	setCORSHeaders(w)
	http.Error(w, message, code)
}

// setCORSHeaders sets CORS headers on a response
func setCORSHeaders(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
	w.Header().Set("Access-Control-Max-Age", "3600")
}

// jsonError writes {"error": message} with the given status
func jsonError(w http.ResponseWriter, message string, code int) {
	setCORSHeaders(w)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{
		"error": message,
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

// statusFor maps service errors to HTTP status codes
func statusFor(err error) int {
	var failure *extract.Failure
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidFilename), errors.Is(err, document.ErrUnsupportedFormat):
		return http.StatusBadRequest
	case errors.Is(err, ErrExists):
		return http.StatusConflict
	case errors.As(err, &failure):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleList returns the documents in the purchase order directory
func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	files, err := s.service.ListFiles()
	if err != nil {
		slog.Error("Error listing files", "error", err)
		corsError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, files)
}

// handleUpload stores an uploaded document and returns its extracted view
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		slog.Error("Error parsing multipart form", "error", err)
		errorMsg := "Error parsing form"
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			errorMsg = "File is too large. Maximum size is 50MB."
		}
		jsonError(w, errorMsg, http.StatusBadRequest)
		return
	}

	f, header, err := r.FormFile("file")
	if err != nil {
		slog.Error("Error getting file from form", "error", err)
		errorMsg := "No file provided"
		if errors.Is(err, http.ErrMissingFile) {
			errorMsg = "No file was selected. Please choose a file to upload."
		}
		jsonError(w, errorMsg, http.StatusBadRequest)
		return
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		slog.Error("Error reading file data", "error", err, "filename", header.Filename)
		jsonError(w, "Error reading file. Please try again.", http.StatusInternalServerError)
		return
	}

	file, rec, err := s.service.Upload(r.Context(), header.Filename, data)
	if err != nil {
		slog.Error("Error uploading document", "filename", header.Filename, "error", err)
		jsonError(w, err.Error(), statusFor(err))
		return
	}

	writeJSON(w, http.StatusCreated, uploadResponse{File: file, RecordView: NewRecordView(rec)})
}

// handleOpenFolder opens the purchase order directory on the host
func (s *Server) handleOpenFolder(w http.ResponseWriter, r *http.Request) {
	if err := s.service.OpenFolder(r.Context()); err != nil {
		slog.Error("Error opening folder", "error", err)
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "opened"})
}

// handleGetFile returns the raw document
func (s *Server) handleGetFile(w http.ResponseWriter, r *http.Request) {
	filename := r.PathValue("filename")
	data, contentType, err := s.service.GetFile(filename)
	if err != nil {
		corsError(w, "File not found", statusFor(err))
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Write(data)
}

// handleParse extracts a document and returns the presentation view
func (s *Server) handleParse(w http.ResponseWriter, r *http.Request) {
	filename := r.PathValue("filename")
	rec, err := s.service.Parse(r.Context(), filename)
	if err != nil {
		slog.Error("Error parsing document", "filename", filename, "error", err)
		jsonError(w, fmt.Sprintf("Extraction failed: %v", err), statusFor(err))
		return
	}

	writeJSON(w, http.StatusOK, NewRecordView(rec))
}

// handleGetRecord returns the cached record for a document
func (s *Server) handleGetRecord(w http.ResponseWriter, r *http.Request) {
	stored, err := s.service.GetRecord(r.PathValue("filename"))
	if err != nil {
		corsError(w, "Record not found", statusFor(err))
		return
	}

	writeJSON(w, http.StatusOK, stored)
}

func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	s.export(w, r, "text/csv; charset=utf-8", ".csv", WriteCSV)
}

func (s *Server) handleExportXLSX(w http.ResponseWriter, r *http.Request) {
	s.export(w, r, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", ".xlsx", WriteXLSX)
}

// export extracts a document and streams it through write as an attachment
func (s *Server) export(w http.ResponseWriter, r *http.Request, contentType, ext string,
	write func(io.Writer, ...*extract.Record) error) {
	filename := r.PathValue("filename")
	rec, err := s.service.Parse(r.Context(), filename)
	if err != nil {
		slog.Error("Error parsing document", "filename", filename, "error", err)
		jsonError(w, fmt.Sprintf("Extraction failed: %v", err), statusFor(err))
		return
	}

	var buf bytes.Buffer
	if err := write(&buf, rec); err != nil {
		slog.Error("Error writing export", "filename", filename, "error", err)
		corsError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	base := strings.TrimSuffix(filename, filepath.Ext(filename))
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", base+ext))
	w.Write(buf.Bytes())
}

// handleDelete removes a document and its cached record
func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	filename := r.PathValue("filename")
	if err := s.service.Delete(filename); err != nil {
		slog.Error("Error deleting document", "filename", filename, "error", err)
		corsError(w, "Error deleting document", statusFor(err))
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
