package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/mevdschee/openspec-ui/internal/config"
	"github.com/mevdschee/openspec-ui/pkg/openspec"
	"go.uber.org/zap"
)

type sourcesResponse struct {
	Sources []config.Source `json:"sources"`
}

type changesResponse struct {
	Changes []openspec.Change `json:"changes"`
}

type specsResponse struct {
	Specs []openspec.Spec `json:"specs"`
}

type configResponse struct {
	Sources  []config.SourceConfig `json:"sources"`
	Port     uint16                `json:"port"`
	Warnings []string              `json:"warnings,omitempty"`
}

type updateSourcesRequest struct {
	Sources []config.SourceConfig `json:"sources"`
}

func (s *Server) handleGetSources(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, sourcesResponse{Sources: s.registry.Sources()})
}

func (s *Server) handleGetChanges(w http.ResponseWriter, r *http.Request) {
	changes := []openspec.Change{}
	for _, src := range s.registry.Valid() {
		changes = append(changes, openspec.ScanChanges(src.Path, src.ID)...)
	}
	s.writeJSON(w, http.StatusOK, changesResponse{Changes: changes})
}

// lookupSource resolves the source part of a composite id, writing 400/404 on failure.
func (s *Server) lookupSource(w http.ResponseWriter, id string) (config.Source, string, bool) {
	sourceID, rest, err := openspec.SplitID(id)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return config.Source{}, "", false
	}
	src, ok := s.registry.Lookup(sourceID)
	if !ok || !src.Valid {
		s.writeError(w, http.StatusNotFound, "source not found: "+sourceID)
		return config.Source{}, "", false
	}
	return src, rest, true
}

func (s *Server) handleGetChangeDetail(w http.ResponseWriter, r *http.Request) {
	src, name, ok := s.lookupSource(w, r.PathValue("id"))
	if !ok {
		return
	}
	detail, ok := openspec.GetChangeDetail(src.Path, src.ID, name)
	if !ok {
		s.writeError(w, http.StatusNotFound, "change not found: "+name)
		return
	}
	s.writeJSON(w, http.StatusOK, detail)
}

func (s *Server) handleGetSpecs(w http.ResponseWriter, r *http.Request) {
	specs := []openspec.Spec{}
	for _, src := range s.registry.Valid() {
		specs = append(specs, openspec.ScanSpecs(src.Path, src.ID)...)
	}
	s.writeJSON(w, http.StatusOK, specsResponse{Specs: specs})
}

func (s *Server) handleGetSpecDetail(w http.ResponseWriter, r *http.Request) {
	src, name, ok := s.lookupSource(w, r.PathValue("id"))
	if !ok {
		return
	}
	detail, ok := openspec.FindSpec(src.Path, src.ID, name)
	if !ok {
		s.writeError(w, http.StatusNotFound, "spec not found: "+name)
		return
	}
	s.writeJSON(w, http.StatusOK, detail)
}

func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	cfg, err := s.config.Load()
	if err != nil {
		s.logger.Error("failed to load config", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "Failed to load configuration")
		return
	}
	s.writeJSON(w, http.StatusOK, configResponse{Sources: cfg.Sources, Port: cfg.Port})
}

// handleUpdateSources validates, persists and applies a new source list. The registry is only
// touched once the file has been written and re-read; concurrent updates apply in file order.
func (s *Server) handleUpdateSources(w http.ResponseWriter, r *http.Request) {
	var req updateSourcesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	valid, warnings, err := s.config.ValidateSources(req.Sources)
	if err != nil {
		var vErr *config.ValidationError
		if errors.As(err, &vErr) {
			s.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	var applied int
	err = s.config.Update(valid, func(sources []config.Source) {
		s.supervisor.Apply(sources)
		applied = len(sources)
	})
	if err != nil {
		s.logger.Error("failed to update sources", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.logger.Info("sources updated", zap.Int("sources", applied), zap.Int("dropped", len(warnings)))

	cfg, err := s.config.Load()
	if err != nil {
		s.logger.Error("failed to get config response", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "Failed to get updated configuration")
		return
	}
	s.writeJSON(w, http.StatusOK, configResponse{Sources: cfg.Sources, Port: cfg.Port, Warnings: warnings})
}
