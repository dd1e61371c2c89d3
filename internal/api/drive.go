package api

import (
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/poslog/poslog/internal/drive"
)

// listFiles handles GET /api/drive.
func (s *Server) listFiles(w http.ResponseWriter, r *http.Request) {
	files, err := s.drive.List()
	if err != nil {
		log.Printf("list files error: %v", err)
		respondError(w, http.StatusInternalServerError, "Failed to list files")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"files": files})
}

// uploadFile handles POST /api/drive with a multipart "file" field.
func (s *Server) uploadFile(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		respondError(w, http.StatusBadRequest, "No file uploaded")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		respondError(w, http.StatusBadRequest, "No file uploaded")
		return
	}
	defer file.Close()

	info, err := s.drive.Save(header.Filename, file)
	if err != nil {
		switch {
		case errors.Is(err, drive.ErrInvalidName):
			respondError(w, http.StatusBadRequest, "Invalid filename")
		case errors.Is(err, drive.ErrTooLarge):
			respondError(w, http.StatusRequestEntityTooLarge, "File too large")
		default:
			log.Printf("upload file error: %v", err)
			respondError(w, http.StatusInternalServerError, "Failed to store file")
		}
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"file":    info,
	})
}

// downloadFile handles GET /api/drive/{filename}.
func (s *Server) downloadFile(w http.ResponseWriter, r *http.Request) {
	filename := chi.URLParam(r, "filename")

	reader, size, err := s.drive.Open(filename)
	if err != nil {
		switch {
		case errors.Is(err, drive.ErrInvalidName):
			respondError(w, http.StatusBadRequest, "Invalid filename")
		case errors.Is(err, drive.ErrNotFound):
			respondError(w, http.StatusNotFound, "File not found")
		default:
			log.Printf("download file error: %v", err)
			respondError(w, http.StatusInternalServerError, "Failed to read file")
		}
		return
	}
	defer reader.Close()

	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Length", strconv.FormatInt(size, 10))
	io.Copy(w, reader)
}

// deleteFile handles DELETE /api/drive/{filename}.
func (s *Server) deleteFile(w http.ResponseWriter, r *http.Request) {
	filename := chi.URLParam(r, "filename")

	if err := s.drive.Delete(filename); err != nil {
		switch {
		case errors.Is(err, drive.ErrInvalidName):
			respondError(w, http.StatusBadRequest, "Invalid filename")
		case errors.Is(err, drive.ErrNotFound):
			respondError(w, http.StatusNotFound, "File not found")
		default:
			log.Printf("delete file error: %v", err)
			respondError(w, http.StatusInternalServerError, "Failed to delete file")
		}
		return
	}

	respondJSON(w, http.StatusOK, map[string]bool{"success": true})
}
