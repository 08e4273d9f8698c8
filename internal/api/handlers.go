package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/dan5py/mbox-viewer-sub001/internal/archive"
	"github.com/dan5py/mbox-viewer-sub001/internal/rangeio"
	"github.com/dan5py/mbox-viewer-sub001/internal/store"
	"github.com/dan5py/mbox-viewer-sub001/internal/worker"
)

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("encode response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, store.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, store.ErrNotInitialized):
		status = http.StatusNotFound
	case errors.Is(err, os.ErrNotExist):
		status = http.StatusNotFound
	case errors.Is(err, rangeio.ErrOutOfBounds):
		status = http.StatusBadRequest
	}
	s.writeJSON(w, status, map[string]string{"error": err.Error()})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type fileInfo struct {
	ID           string `json:"id"`
	DisplayName  string `json:"displayName"`
	Filename     string `json:"filename"`
	Format       string `json:"format"`
	MessageCount int    `json:"messageCount"`
}

func fileInfoOf(f *store.MailFile) fileInfo {
	return fileInfo{
		ID:           f.ID,
		DisplayName:  f.DisplayName,
		Filename:     f.Filename,
		Format:       f.Format,
		MessageCount: f.MessageCount(),
	}
}

func (s *Server) handleListFiles(w http.ResponseWriter, _ *http.Request) {
	files := s.store.Files()
	out := make([]fileInfo, 0, len(files))
	for _, f := range files {
		out = append(out, fileInfoOf(f))
	}
	s.writeJSON(w, http.StatusOK, out)
}

type openFileRequest struct {
	Path   string `json:"path"`
	Name   string `json:"name,omitempty"`
	Format string `json:"format,omitempty"`
}

// handleOpenFile opens an archive path. Zip containers are extracted and
// every contained mailbox is added; the response describes the first one.
func (s *Server) handleOpenFile(w http.ResponseWriter, r *http.Request) {
	var req openFileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Path == "" {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "path is required"})
		return
	}
	cacheDir := filepath.Join(s.cfg.HomeDir, "extracted")
	paths, err := archive.Resolve(req.Path, cacheDir, s.logger)
	if err != nil {
		s.writeError(w, err)
		return
	}

	format := req.Format
	if format == "" {
		format = "mbox"
	}
	var first *store.MailFile
	for _, p := range paths {
		reader, err := rangeio.OpenFile(p)
		if err != nil {
			s.writeError(w, err)
			return
		}
		name := req.Name
		if name == "" {
			name = p
		}
		f, err := s.store.AddFile(name, p, format, reader)
		if err != nil {
			reader.Close()
			s.writeError(w, err)
			return
		}
		if first == nil {
			first = f
		}
	}
	s.writeJSON(w, http.StatusCreated, fileInfoOf(first))
}

func (s *Server) handleGetFile(w http.ResponseWriter, r *http.Request) {
	f, err := s.store.File(chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, fileInfoOf(f))
}

type renameRequest struct {
	Name string `json:"name"`
}

func (s *Server) handleRename(w http.ResponseWriter, r *http.Request) {
	var req renameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name is required"})
		return
	}
	name, err := s.store.Rename(chi.URLParam(r, "id"), req.Name)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"displayName": name})
}

func (s *Server) handleRemove(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Remove(chi.URLParam(r, "id")); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleListMessages serves boundary previews for list rendering, paginated
// by offset/limit over the display order.
func (s *Server) handleListMessages(w http.ResponseWriter, r *http.Request) {
	f, err := s.store.File(chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	boundaries := f.Boundaries()

	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit <= 0 || limit > 500 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	if offset > len(boundaries) {
		offset = len(boundaries)
	}
	end := offset + limit
	if end > len(boundaries) {
		end = len(boundaries)
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"total":    len(boundaries),
		"messages": boundaries[offset:end],
	})
}

func (s *Server) handleGetMessage(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid index"})
		return
	}
	msg, err := s.store.LoadMessage(chi.URLParam(r, "id"), index, store.LoadOptions{Cache: true})
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, msg)
}

func (s *Server) handleListAttachments(w http.ResponseWriter, r *http.Request) {
	refs, err := s.store.IndexAttachments(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, refs)
}

type searchResponse struct {
	Indices []int `json:"indices"`
}

// handleSearch drives the worker synchronously for one query and returns the
// final result set. Progress messages are consumed internally; callers that
// need streaming progress talk the worker protocol in-process instead.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	fileID := chi.URLParam(r, "id")
	f, err := s.store.File(fileID)
	if err != nil {
		s.writeError(w, err)
		return
	}

	wk := s.newSearchWorker()
	wk.Search(f.Reader(), f.Boundaries(), r.URL.Query().Get("q"))

	for msg := range wk.Messages() {
		switch msg.Type {
		case worker.TypeResults:
			indices, _ := msg.Payload.([]int)
			s.writeJSON(w, http.StatusOK, searchResponse{Indices: indices})
			return
		case worker.TypeError:
			text, _ := msg.Payload.(string)
			s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": text})
			return
		}
		// PROGRESS messages are dropped here.
	}
}
