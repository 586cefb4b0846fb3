package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"sort"

	"github.com/mevdschee/openspec-ui/internal/config"
	"github.com/mevdschee/openspec-ui/pkg/ideas"
	"go.uber.org/zap"
)

type ideasResponse struct {
	Ideas []ideas.Idea `json:"ideas"`
}

type deleteResponse struct {
	ID string `json:"id"`
}

func (s *Server) handleGetIdeas(w http.ResponseWriter, r *http.Request) {
	all := []ideas.Idea{}
	for _, src := range s.registry.Valid() {
		all = append(all, ideas.List(src.Path, src.ID)...)
	}
	sort.SliceStable(all, func(i, j int) bool {
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})
	s.writeJSON(w, http.StatusOK, ideasResponse{Ideas: all})
}

// ideaTarget picks the source a new idea is written to: an explicit sourceId, else a
// projectId naming a source, else the first valid source.
func (s *Server) ideaTarget(in ideas.Input) (config.Source, bool) {
	if in.SourceID != "" {
		src, ok := s.registry.Lookup(in.SourceID)
		return src, ok && src.Valid
	}
	if in.ProjectID != nil {
		if src, ok := s.registry.Lookup(*in.ProjectID); ok && src.Valid {
			return src, true
		}
	}
	valid := s.registry.Valid()
	if len(valid) == 0 {
		return config.Source{}, false
	}
	return valid[0], true
}

func (s *Server) writeIdeaError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ideas.ErrNotFound):
		s.writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, ideas.ErrInvalid):
		s.writeError(w, http.StatusBadRequest, err.Error())
	default:
		s.logger.Error("idea operation failed", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func (s *Server) handleCreateIdea(w http.ResponseWriter, r *http.Request) {
	var in ideas.Input
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	src, ok := s.ideaTarget(in)
	if !ok {
		s.writeError(w, http.StatusBadRequest, "no valid source to store the idea in")
		return
	}
	idea, err := ideas.Create(src.Path, src.ID, in, s.now())
	if err != nil {
		s.writeIdeaError(w, err)
		return
	}
	s.bus.Publish()
	s.writeJSON(w, http.StatusCreated, idea)
}

func (s *Server) handleUpdateIdea(w http.ResponseWriter, r *http.Request) {
	src, slug, ok := s.lookupSource(w, r.PathValue("id"))
	if !ok {
		return
	}
	var in ideas.Input
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	idea, err := ideas.Update(src.Path, src.ID, slug, in, s.now())
	if err != nil {
		s.writeIdeaError(w, err)
		return
	}
	s.bus.Publish()
	s.writeJSON(w, http.StatusOK, idea)
}

func (s *Server) handleDeleteIdea(w http.ResponseWriter, r *http.Request) {
	src, slug, ok := s.lookupSource(w, r.PathValue("id"))
	if !ok {
		return
	}
	if err := ideas.Delete(src.Path, slug); err != nil {
		s.writeIdeaError(w, err)
		return
	}
	s.bus.Publish()
	s.writeJSON(w, http.StatusOK, deleteResponse{ID: src.ID + "/" + slug})
}
