package adapthttp

import (
	"net/http"

	"bpmnstudio/internal/domain"

	"github.com/go-chi/chi/v5"
)

type saveRequest struct {
	Name     *string `param:"name" validate:"required"`
	XML      *string `param:"xml" validate:"required"`
	ID       *string `param:"id"`
	SaveMode string  `param:"save_mode"`
}

type renameRequest struct {
	ID   *string `param:"id" validate:"required"`
	Name *string `param:"name" validate:"required"`
}

type diagramRequest struct {
	ID *string `param:"id" validate:"required"`
}

// diagramID takes the id from the route and falls back to the "id" field the
// legacy endpoint sends.
func diagramID(r *http.Request) *string {
	if v := chi.URLParam(r, "id"); v != "" {
		return &v
	}
	return paramsFrom(r.Context()).ptr("id")
}

// resolveID turns a present raw id into a diagram id. A non-numeric id can
// never name an owned diagram, so it is reported as not found.
func resolveID(raw *string) (int64, error) {
	id := domain.ParseDiagramID(raw)
	if id == nil {
		return 0, domain.ErrDiagramNotFound
	}
	return *id, nil
}

func (s *Server) handleListDiagrams(w http.ResponseWriter, r *http.Request) {
	items, err := s.diagrams.List(r.Context(), userIDFrom(r.Context()))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.ok(w, r, "", envelope{"diagrams": items})
}

func (s *Server) handleGetDiagram(w http.ResponseWriter, r *http.Request) {
	req := diagramRequest{ID: diagramID(r)}
	if err := s.checkRequest(&req); err != nil {
		s.fail(w, r, err)
		return
	}
	id, err := resolveID(req.ID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	d, err := s.diagrams.Get(r.Context(), userIDFrom(r.Context()), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.ok(w, r, "", envelope{"diagram": d})
}

func (s *Server) handleSaveDiagram(w http.ResponseWriter, r *http.Request) {
	p := paramsFrom(r.Context())
	req := saveRequest{
		Name:     p.ptr("name"),
		XML:      p.ptr("xml"),
		ID:       p.ptr("id"),
		SaveMode: p.str("save_mode"),
	}
	if err := s.checkRequest(&req); err != nil {
		s.fail(w, r, err)
		return
	}

	mode := domain.ParseSaveMode(req.SaveMode)
	res, err := s.diagrams.Save(r.Context(), userIDFrom(r.Context()), domain.SaveRequest{
		Name: *req.Name,
		XML:  *req.XML,
		ID:   domain.ParseDiagramID(req.ID),
		Mode: mode,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}

	body := envelope{"id": res.ID, "created": res.Created}
	message := "diagram created"
	switch {
	case !res.Created:
		message = "diagram updated"
		body["updated"] = true
	case mode == domain.SaveModeSaveAs:
		message = "diagram saved as a new copy"
	}
	s.ok(w, r, message, body)
}

func (s *Server) handleRenameDiagram(w http.ResponseWriter, r *http.Request) {
	req := renameRequest{
		ID:   diagramID(r),
		Name: paramsFrom(r.Context()).ptr("name"),
	}
	if err := s.checkRequest(&req); err != nil {
		s.fail(w, r, err)
		return
	}
	id, err := resolveID(req.ID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if err := s.diagrams.Rename(r.Context(), userIDFrom(r.Context()), id, *req.Name); err != nil {
		s.fail(w, r, err)
		return
	}
	s.ok(w, r, "diagram renamed", nil)
}

func (s *Server) handleDeleteDiagram(w http.ResponseWriter, r *http.Request) {
	req := diagramRequest{ID: diagramID(r)}
	if err := s.checkRequest(&req); err != nil {
		s.fail(w, r, err)
		return
	}
	id, err := resolveID(req.ID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if err := s.diagrams.Delete(r.Context(), userIDFrom(r.Context()), id); err != nil {
		s.fail(w, r, err)
		return
	}
	s.ok(w, r, "diagram deleted", nil)
}
