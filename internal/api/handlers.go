package api

import (
	"net/http"
	"strconv"

	"photodup/internal/dedup"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type scanRequest struct {
	BackupRoot string `json:"backup_root"`
	SortedRoot string `json:"sorted_root"`
	SessionID  string `json:"session_id"`
}

func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	var req scanRequest
	if err := decodeJSONOptional(r, &req); err != nil {
		s.RespondError(w, r, err)
		return
	}
	if req.BackupRoot == "" {
		req.BackupRoot = s.backupRoot
	}
	if req.SortedRoot == "" {
		req.SortedRoot = s.sortedRoot
	}
	if req.BackupRoot == "" || req.SortedRoot == "" {
		s.RespondError(w, r, invalid("backup_root and sorted_root are required"))
		return
	}

	pairs, err := s.svc.Scan(r.Context(), req.BackupRoot, req.SortedRoot)
	if err != nil {
		s.RespondError(w, r, err)
		return
	}
	session, err := s.svc.CreateSession(req.BackupRoot, req.SortedRoot, pairs, req.SessionID)
	if err != nil {
		s.RespondError(w, r, err)
		return
	}
	s.RespondJSON(w, http.StatusCreated, session)
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := s.svc.ListSessions()
	if err != nil {
		s.RespondError(w, r, err)
		return
	}
	if sessions == nil {
		sessions = []*dedup.ScanSession{}
	}
	s.RespondJSON(w, http.StatusOK, sessions)
}

func (s *Server) handleListEntries(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, err := parseIntQuery(r, "limit")
	if err != nil {
		s.RespondError(w, r, err)
		return
	}
	offset, err := parseIntQuery(r, "offset")
	if err != nil {
		s.RespondError(w, r, err)
		return
	}
	includeReviewed := false
	if raw := q.Get("include_reviewed"); raw != "" {
		includeReviewed, err = strconv.ParseBool(raw)
		if err != nil {
			s.RespondError(w, r, invalid("invalid include_reviewed"))
			return
		}
	}

	entries, err := s.svc.ListEntries(dedup.ListOptions{
		SessionID:       q.Get("session_id"),
		Limit:           limit,
		Offset:          offset,
		IncludeReviewed: includeReviewed,
	})
	if err != nil {
		s.RespondError(w, r, err)
		return
	}
	if entries == nil {
		entries = []*dedup.ReviewEntry{}
	}
	s.RespondJSON(w, http.StatusOK, entries)
}

type ignoreRequest struct {
	BackupPath string `json:"backup_path"`
	SortedPath string `json:"sorted_path"`
}

func (s *Server) handleIgnore(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "entryID")
	if err != nil {
		s.RespondError(w, r, err)
		return
	}
	var req ignoreRequest
	if err := decodeJSONOptional(r, &req); err != nil {
		s.RespondError(w, r, err)
		return
	}

	entry, err := s.svc.Ignore(id, req.BackupPath, req.SortedPath)
	if err != nil {
		s.RespondError(w, r, err)
		return
	}
	s.RespondJSON(w, http.StatusOK, entry)
}

type deleteRequest struct {
	BackupPath string `json:"backup_path"`
	SessionID  string `json:"session_id"`
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "entryID")
	if err != nil {
		s.RespondError(w, r, err)
		return
	}
	var req deleteRequest
	if err := decodeJSONOptional(r, &req); err != nil {
		s.RespondError(w, r, err)
		return
	}

	record, err := s.svc.Delete(r.Context(), id, req.BackupPath, req.SessionID)
	if err != nil {
		s.RespondError(w, r, err)
		return
	}
	s.RespondJSON(w, http.StatusOK, record)
}

func (s *Server) handleUndo(w http.ResponseWriter, r *http.Request) {
	record, err := s.svc.Undo(r.Context(), sessionParam(r))
	if err != nil {
		s.RespondError(w, r, err)
		return
	}
	s.RespondJSON(w, http.StatusOK, record)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.svc.Stats(sessionParam(r))
	if err != nil {
		s.RespondError(w, r, err)
		return
	}
	s.RespondJSON(w, http.StatusOK, stats)
}

func (s *Server) handleThumbnail(w http.ResponseWriter, r *http.Request) {
	p := r.URL.Query().Get("path")
	if p == "" {
		s.RespondError(w, r, invalid("path is required"))
		return
	}
	size, err := parseIntQuery(r, "size")
	if err != nil {
		s.RespondError(w, r, err)
		return
	}

	data, err := s.thumbs.Get(r.Context(), p, size)
	if err != nil {
		s.RespondError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Cache-Control", "private, max-age=3600")
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

func (s *Server) handleSuggestPaths(w http.ResponseWriter, r *http.Request) {
	suggestions, err := s.browser.SuggestPaths(r.Context(), r.URL.Query().Get("partial"))
	if err != nil {
		s.RespondError(w, r, err)
		return
	}
	s.RespondJSON(w, http.StatusOK, map[string][]string{"suggestions": suggestions})
}

func (s *Server) handleValidatePath(w http.ResponseWriter, r *http.Request) {
	p := r.URL.Query().Get("path")
	if err := s.browser.ValidatePath(r.Context(), p); err != nil {
		s.RespondError(w, r, err)
		return
	}
	s.RespondJSON(w, http.StatusOK, map[string]any{"path": p, "valid": true})
}
