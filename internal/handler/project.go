package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/story-studio/internal/model"
	"github.com/sakif/story-studio/internal/service"
)

// ProjectHandler serves /api/projects.
type ProjectHandler struct {
	projects *service.ProjectService
	errs     *ErrorWriter
}

func NewProjectHandler(projects *service.ProjectService, errs *ErrorWriter) *ProjectHandler {
	return &ProjectHandler{projects: projects, errs: errs}
}

// HandleList: GET /api/projects
func (h *ProjectHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	projects, err := h.projects.List(r.Context(), userID(r))
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}
	writeData(w, http.StatusOK, projects)
}

// HandleCreate: POST /api/projects → 201
func (h *ProjectHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var in service.CreateProjectInput
	if err := decodeJSON(r, &in); err != nil {
		h.errs.Write(w, r, err)
		return
	}
	project, err := h.projects.Create(r.Context(), userID(r), in)
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, project)
}

// HandleGet: GET /api/projects/{id}
func (h *ProjectHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	project, err := h.projects.Get(r.Context(), userID(r), chi.URLParam(r, "id"))
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}
	writeData(w, http.StatusOK, project)
}

// HandleUpdate: PUT /api/projects/{id}. Fields that are absent from the body
// are left alone.
func (h *ProjectHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var patch model.ProjectPatch
	if err := decodeJSON(r, &patch); err != nil {
		h.errs.Write(w, r, err)
		return
	}
	project, err := h.projects.Update(r.Context(), userID(r), chi.URLParam(r, "id"), patch)
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}
	writeData(w, http.StatusOK, project)
}

// HandleDelete: DELETE /api/projects/{id}
func (h *ProjectHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.projects.Delete(r.Context(), userID(r), chi.URLParam(r, "id")); err != nil {
		h.errs.Write(w, r, err)
		return
	}
	writeMessage(w, "Project deleted successfully")
}

// HandleSearch: GET /api/projects/search
//
// Query parameters: query, genre, status, sortBy, sortOrder, page, limit.
// page and limit that do not parse as integers fall back to their defaults.
func (h *ProjectHandler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	opts := model.ProjectSearch{
		Query:     q.Get("query"),
		Genre:     q.Get("genre"),
		Status:    model.ProjectStatus(q.Get("status")),
		SortBy:    q.Get("sortBy"),
		SortOrder: q.Get("sortOrder"),
		Page:      atoiOrZero(q.Get("page")),
		Limit:     atoiOrZero(q.Get("limit")),
	}

	page, err := h.projects.Search(r.Context(), userID(r), opts)
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}
	writeData(w, http.StatusOK, page)
}

func atoiOrZero(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}
