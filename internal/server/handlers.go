package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/proofstream/proofstream/internal/receipt"
)

type handler struct {
	dir    string
	logger *slog.Logger
}

type receiptInfo struct {
	Name     string `json:"name"`
	Size     int64  `json:"size"`
	Modified string `json:"modified"`
}

type verificationResponse struct {
	Receipt  string          `json:"receipt"`
	Tampered bool            `json:"tampered"`
	Verified bool            `json:"verified"`
	Report   *receipt.Report `json:"report"`
}

func (h *handler) listReceipts(w http.ResponseWriter, r *http.Request) {
	paths, err := filepath.Glob(filepath.Join(h.dir, "*.json"))
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "failed to list receipts")
		return
	}

	infos := make([]receiptInfo, 0, len(paths))
	for _, path := range paths {
		stat, err := os.Stat(path)
		if err != nil {
			continue
		}
		infos = append(infos, receiptInfo{
			Name:     filepath.Base(path),
			Size:     stat.Size(),
			Modified: stat.ModTime().UTC().Format("2006-01-02T15:04:05Z"),
		})
	}
	h.writeJSON(w, http.StatusOK, infos)
}

func (h *handler) getReceipt(w http.ResponseWriter, r *http.Request) {
	rec, ok := h.loadNamed(w, r)
	if !ok {
		return
	}
	h.writeJSON(w, http.StatusOK, rec)
}

func (h *handler) getVerification(w http.ResponseWriter, r *http.Request) {
	rec, ok := h.loadNamed(w, r)
	if !ok {
		return
	}

	tampered := false
	switch r.URL.Query().Get("tamper") {
	case "1", "true":
		// Tampering is simulated on the in-memory copy only; the artifact
		// on disk is never modified.
		rec = receipt.Tamper(rec)
		tampered = true
	}

	report := receipt.Verify(rec)
	h.writeJSON(w, http.StatusOK, verificationResponse{
		Receipt:  chi.URLParam(r, "name"),
		Tampered: tampered,
		Verified: report.Verified(),
		Report:   report,
	})
}

// loadNamed resolves the {name} route parameter inside the receipt
// directory, rejecting anything that is not a bare filename.
func (h *handler) loadNamed(w http.ResponseWriter, r *http.Request) (*receipt.Receipt, bool) {
	name := chi.URLParam(r, "name")
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		h.writeError(w, http.StatusBadRequest, "invalid receipt name")
		return nil, false
	}

	rec, err := receipt.Load(filepath.Join(h.dir, name))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			h.writeError(w, http.StatusNotFound, "receipt not found")
			return nil, false
		}
		h.logger.Error("failed to load receipt",
			slog.String("name", name),
			slog.String("error", err.Error()),
		)
		h.writeError(w, http.StatusInternalServerError, "failed to load receipt")
		return nil, false
	}
	return rec, true
}

func (h *handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("failed to encode response", slog.String("error", err.Error()))
	}
}

func (h *handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
