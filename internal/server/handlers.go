package server

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/raaihank/fieldmask/internal/events"
	"github.com/raaihank/fieldmask/internal/keystore"
	"github.com/raaihank/fieldmask/internal/masking"
	"github.com/raaihank/fieldmask/internal/policy"
	"github.com/raaihank/fieldmask/internal/vault"
)

type maskRequest struct {
	Entity        string                 `json:"entity"`
	Records       []masking.Record       `json:"records"`
	FieldMetadata masking.MetadataLookup `json:"fieldMetadata,omitempty"`
}

type previewRequest struct {
	Entity        string                 `json:"entity"`
	Records       []masking.Record       `json:"records"`
	FieldMetadata masking.MetadataLookup `json:"fieldMetadata,omitempty"`
	ShowOriginal  bool                   `json:"showOriginal,omitempty"`
}

type scoreRequest struct {
	PIIFields []policy.FieldInfo `json:"piiFields"`
}

type registerKeyRequest struct {
	ID       string `json:"id"`
	Key      string `json:"key,omitempty"` // base64; empty means generate
	Generate bool   `json:"generate,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	p := s.Engine().Policy()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"name":          "fieldmask",
		"policy_id":     p.ID,
		"policy_name":   p.Name,
		"rules":         len(p.Rules),
		"vault_backend": s.config.Vault.Backend,
	})
}

func (s *Server) handleMask(w http.ResponseWriter, r *http.Request) {
	var req maskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}
	if req.Entity == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("entity is required"))
		return
	}

	start := time.Now()
	result, err := s.Engine().MaskRecords(r.Context(), req.Entity, req.Records, req.FieldMetadata)
	if err != nil {
		writeMaskingError(w, err)
		return
	}

	jobID := requestID(r.Context())
	s.logger.LogJobSummary(jobID, req.Entity, len(req.Records), result.MaskedFieldCount, time.Since(start))
	s.hub.BroadcastEvent(events.Event{
		Type:      events.EventTypeJobCompleted,
		Timestamp: time.Now(),
		RequestID: jobID,
		Data: events.JobCompletedEvent{
			JobID:            jobID,
			Entity:           req.Entity,
			Records:          len(req.Records),
			MaskedFieldCount: result.MaskedFieldCount,
			Duration:         time.Since(start),
		},
	})

	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	var req previewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}

	showOriginal := req.ShowOriginal && s.config.Masking.AllowOriginalInPreview
	if req.ShowOriginal && !showOriginal {
		s.logger.Warn("Preview original values requested but not permitted",
			zap.String("entity", req.Entity))
	}

	preview, err := s.Engine().GeneratePreview(r.Context(), req.Entity, req.Records, req.FieldMetadata, showOriginal)
	if err != nil {
		writeMaskingError(w, err)
		return
	}

	s.hub.BroadcastEvent(events.Event{
		Type:      events.EventTypePreview,
		Timestamp: time.Now(),
		RequestID: requestID(r.Context()),
		Data: events.PreviewEvent{
			Entity:        req.Entity,
			SampleRecords: len(preview.SampleRecords),
			ShowOriginal:  showOriginal,
		},
	})

	writeJSON(w, http.StatusOK, preview)
}

func (s *Server) handleScore(w http.ResponseWriter, r *http.Request) {
	var req scoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}

	score := s.Engine().CalculateEffectivenessScore(req.PIIFields)

	s.hub.BroadcastEvent(events.Event{
		Type:      events.EventTypeScore,
		Timestamp: time.Now(),
		RequestID: requestID(r.Context()),
		Data: events.ScoreEvent{
			PolicyID: score.PolicyID,
			Score:    score.Score,
			Gaps:     len(score.Gaps),
		},
	})

	writeJSON(w, http.StatusOK, score)
}

func (s *Server) handleGetPolicy(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Engine().Policy())
}

func (s *Server) handleClearCache(w http.ResponseWriter, r *http.Request) {
	s.Engine().ClearCache()
	writeJSON(w, http.StatusOK, map[string]string{"status": "cache cleared"})
}

func (s *Server) handleRegisterKey(w http.ResponseWriter, r *http.Request) {
	var req registerKeyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}
	if req.ID == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("key id is required"))
		return
	}

	if req.Generate || req.Key == "" {
		if _, err := s.keys.GenerateKey(req.ID); err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
	} else {
		key, err := base64.StdEncoding.DecodeString(req.Key)
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Errorf("key must be base64: %w", err))
			return
		}
		if err := s.keys.RegisterKey(req.ID, key); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
	}

	s.logger.Info("Key registered", zap.String("key_id", req.ID))
	writeJSON(w, http.StatusCreated, map[string]string{"id": req.ID})
}

func (s *Server) handleInitVault(w http.ResponseWriter, r *http.Request) {
	ref := mux.Vars(r)["ref"]
	if err := s.vault.Init(r.Context(), ref); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	s.logger.Info("Vault namespace initialized", zap.String("vault_ref", ref))
	writeJSON(w, http.StatusCreated, map[string]string{"vaultRef": ref})
}

func (s *Server) handleClearVault(w http.ResponseWriter, r *http.Request) {
	ref := mux.Vars(r)["ref"]
	if err := s.vault.Clear(r.Context(), ref); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	s.logger.Info("Vault namespace cleared", zap.String("vault_ref", ref))
	writeJSON(w, http.StatusOK, map[string]string{"vaultRef": ref})
}

func (s *Server) handleDetokenize(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	ref, token := vars["ref"], vars["token"]

	value, ok, err := s.vault.Detokenize(r.Context(), ref, token)
	if err != nil {
		writeMaskingError(w, err)
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Errorf("token not found"))
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"token": token, "value": value})
}

// writeMaskingError maps engine failures to status codes: missing secrets
// are client configuration problems, everything else is a server fault.
func writeMaskingError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, keystore.ErrKeyNotFound), errors.Is(err, vault.ErrVaultNotInitialized):
		writeError(w, http.StatusConflict, err)
	default:
		writeError(w, http.StatusInternalServerError, err)
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
