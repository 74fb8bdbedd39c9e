package model

import "time"

// ProjectStatus is the lifecycle state of a project.
type ProjectStatus string

const (
	StatusDraft      ProjectStatus = "DRAFT"
	StatusInProgress ProjectStatus = "IN_PROGRESS"
	StatusComplete   ProjectStatus = "COMPLETE"
	StatusArchived   ProjectStatus = "ARCHIVED"
)

// Valid reports whether s is one of the four known statuses.
func (s ProjectStatus) Valid() bool {
	switch s {
	case StatusDraft, StatusInProgress, StatusComplete, StatusArchived:
		return true
	}
	return false
}

// Project is a story owned by a single user. UserID never changes after
// creation.
//
// Sessions is only populated by reads that attach children: list and search
// attach the single most recently updated session, get attaches all of them.
// Those reads set a non-nil slice, so a project without sessions renders
// "sessions":[]; a nil slice (create, update) is omitted.
type Project struct {
	ID          string        `json:"id"`
	Title       string        `json:"title"`
	Genre       *string       `json:"genre"`
	Description *string       `json:"description"`
	Status      ProjectStatus `json:"status"`
	UserID      string        `json:"userId"`
	CreatedAt   time.Time     `json:"createdAt"`
	UpdatedAt   time.Time     `json:"updatedAt"`
	Sessions    []Session     `json:"sessions,omitzero"`
}

// ProjectPatch carries the fields of a partial project update. A nil field
// means "leave unchanged".
type ProjectPatch struct {
	Title       *string        `json:"title"`
	Genre       *string        `json:"genre"`
	Description *string        `json:"description"`
	Status      *ProjectStatus `json:"status"`
}

// ProjectSortFields are the accepted sortBy values of a project search.
var ProjectSortFields = []string{"createdAt", "updatedAt", "title", "status", "genre"}

// ProjectSearch holds the filters, ordering and paging of a project search.
type ProjectSearch struct {
	Query     string
	Genre     string
	Status    ProjectStatus
	SortBy    string
	SortOrder string
	Page      int
	Limit     int
}

// Pagination describes where a page of results sits in the full result set.
type Pagination struct {
	Page       int  `json:"page"`
	Limit      int  `json:"limit"`
	Total      int  `json:"total"`
	TotalPages int  `json:"totalPages"`
	HasNext    bool `json:"hasNext"`
	HasPrev    bool `json:"hasPrev"`
}

// NewPagination derives the page counters from a total row count.
func NewPagination(page, limit, total int) Pagination {
	totalPages := 0
	if limit > 0 {
		totalPages = (total + limit - 1) / limit
	}
	return Pagination{
		Page:       page,
		Limit:      limit,
		Total:      total,
		TotalPages: totalPages,
		HasNext:    page < totalPages,
		HasPrev:    page > 1,
	}
}

// ProjectPage is one page of search results.
type ProjectPage struct {
	Projects   []Project  `json:"projects"`
	Pagination Pagination `json:"pagination"`
}
