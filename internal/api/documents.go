package api

import (
	"encoding/json"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/discoursa/debate-engine/pkg/models"
)

const maxUploadSize = 10 << 20 // 10 MB

// handleIngestDocument accepts evidence either as a JSON body with a text
// field or as a multipart file upload.
func (s *Server) handleIngestDocument(w http.ResponseWriter, r *http.Request) {
	text, ok := s.readDocumentText(w, r)
	if !ok {
		return
	}

	if strings.TrimSpace(text) == "" {
		respondError(w, http.StatusBadRequest, "document text is empty")
		return
	}

	doc, err := s.engine.IngestDocument(r.Context(), text)
	if err != nil {
		respondError(w, statusForError(err), "failed to ingest document")
		return
	}

	respondJSON(w, http.StatusCreated, models.Document{
		ID:        doc.ID.String(),
		Hash:      doc.ContentHash,
		CreatedAt: doc.CreatedAt,
	})
}

func (s *Server) readDocumentText(w http.ResponseWriter, r *http.Request) (string, bool) {
	contentType := r.Header.Get("Content-Type")

	if strings.HasPrefix(contentType, "multipart/form-data") {
		r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)

		if err := r.ParseMultipartForm(maxUploadSize); err != nil {
			respondError(w, http.StatusBadRequest, "file too large or invalid form")
			return "", false
		}

		file, header, err := r.FormFile("file")
		if err != nil {
			respondError(w, http.StatusBadRequest, "no file provided")
			return "", false
		}
		defer file.Close()

		ext := filepath.Ext(header.Filename)
		allowedExts := map[string]bool{".md": true, ".txt": true}
		if !allowedExts[ext] {
			respondError(w, http.StatusBadRequest, "only .md and .txt files are allowed")
			return "", false
		}

		content, err := io.ReadAll(file)
		if err != nil {
			respondError(w, http.StatusInternalServerError, "failed to read file")
			return "", false
		}

		return string(content), true
	}

	var req struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return "", false
	}

	return req.Text, true
}
