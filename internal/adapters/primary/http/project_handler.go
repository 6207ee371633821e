package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	mw "github.com/taskhive/taskhive-backend/internal/adapters/primary/http/middleware"
	"github.com/taskhive/taskhive-backend/internal/adapters/primary/validation"
	"github.com/taskhive/taskhive-backend/internal/auth"
	"github.com/taskhive/taskhive-backend/internal/core/domain"
	apperrors "github.com/taskhive/taskhive-backend/internal/core/errors"
	"github.com/taskhive/taskhive-backend/internal/core/ports"
)

// ProjectHandler handles project HTTP requests
type ProjectHandler struct {
	projectService ports.ProjectService
	errorHandler   *ErrorHandler
	logger         *slog.Logger
}

// NewProjectHandler creates a new project handler
func NewProjectHandler(
	projectService ports.ProjectService,
	errorHandler *ErrorHandler,
	logger *slog.Logger,
) *ProjectHandler {
	return &ProjectHandler{
		projectService: projectService,
		errorHandler:   errorHandler,
		logger:         logger.With("handler", "project"),
	}
}

// Router returns a configured chi router for project endpoints
func (h *ProjectHandler) Router() chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.HandleListProjects)
	r.Post("/", h.HandleCreateProject)

	r.Route("/{projectID}", func(r chi.Router) {
		r.Get("/", h.HandleGetProject)
		r.Patch("/", h.HandleUpdateProject)
		r.Get("/progress", h.HandleGetProgress)
		r.Post("/members", h.HandleAddMember)
	})

	return r
}

// --- Request/Response DTOs ---

// CreateProjectRequest defines the expected JSON body for project creation
type CreateProjectRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Priority    string `json:"priority"`
}

// Validate validates the project creation request
func (r *CreateProjectRequest) Validate() error {
	v := validation.NewValidator()

	v.Required("name", r.Name).
		MaxLength("name", r.Name, domain.MaxProjectNameLength)

	if r.Priority != "" {
		v.OneOf("priority", r.Priority, domain.ValidPriorities())
	}

	if v.HasErrors() {
		return v.Errors()
	}
	return nil
}

// UpdateProjectRequest defines the expected JSON body for updating a
// project. Absent fields are left unchanged.
type UpdateProjectRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Status      *string `json:"status"`
	Priority    *string `json:"priority"`
	TeamID      *string `json:"teamId"`
}

// Validate validates the project update request
func (r *UpdateProjectRequest) Validate() error {
	v := validation.NewValidator()

	if r.Name == nil && r.Description == nil && r.Status == nil && r.Priority == nil && r.TeamID == nil {
		v.Custom("name", false, "At least one field is required")
	}

	if r.Name != nil {
		v.Required("name", *r.Name).
			MaxLength("name", *r.Name, domain.MaxProjectNameLength)
	}
	if r.Status != nil {
		v.OneOf("status", *r.Status, domain.ValidProjectStatuses())
	}
	if r.Priority != nil {
		v.OneOf("priority", *r.Priority, domain.ValidPriorities())
	}
	if r.TeamID != nil {
		v.Required("teamId", *r.TeamID).
			UUID("teamId", *r.TeamID)
	}

	if v.HasErrors() {
		return v.Errors()
	}
	return nil
}

// AddMemberRequest defines the expected JSON body for adding a team member
type AddMemberRequest struct {
	UserID string `json:"userId"`
	Role   string `json:"role"`
}

// Validate validates the add member request
func (r *AddMemberRequest) Validate() error {
	v := validation.NewValidator()

	v.Required("userId", r.UserID).
		UUID("userId", r.UserID)
	v.Required("role", r.Role).
		OneOf("role", r.Role, domain.ValidMemberRoles())

	if v.HasErrors() {
		return v.Errors()
	}
	return nil
}

// MemberDTO defines the JSON representation of a project team member.
type MemberDTO struct {
	UserID   string `json:"userId"`
	Role     string `json:"role"`
	JoinedAt string `json:"joinedAt"`
}

// ProjectDTO defines the JSON representation of a project.
type ProjectDTO struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Description string      `json:"description,omitempty"`
	Status      string      `json:"status"`
	Priority    string      `json:"priority"`
	ManagerID   string      `json:"managerId"`
	TeamID      *string     `json:"teamId,omitempty"`
	Members     []MemberDTO `json:"members"`
	CreatedAt   string      `json:"createdAt"`
	UpdatedAt   *string     `json:"updatedAt,omitempty"`
}

func toProjectDTO(p *domain.Project) ProjectDTO {
	members := make([]MemberDTO, 0, len(p.Members))
	for _, m := range p.Members {
		members = append(members, MemberDTO{
			UserID:   m.UserID.String(),
			Role:     string(m.Role),
			JoinedAt: m.JoinedAt.Format(time.RFC3339),
		})
	}

	dto := ProjectDTO{
		ID:          p.ID.String(),
		Name:        p.Name,
		Description: p.Description,
		Status:      string(p.Status),
		Priority:    string(p.Priority),
		ManagerID:   p.ManagerID.String(),
		Members:     members,
		CreatedAt:   p.CreatedAt.Format(time.RFC3339),
	}
	if p.TeamID != nil {
		teamID := p.TeamID.String()
		dto.TeamID = &teamID
	}
	if p.UpdatedAt != nil {
		updated := p.UpdatedAt.Format(time.RFC3339)
		dto.UpdatedAt = &updated
	}
	return dto
}

// --- Handlers ---

// HandleCreateProject handles POST /projects
func (h *ProjectHandler) HandleCreateProject(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.getClaims(w, r)
	if !ok {
		return
	}

	req, err := validation.DecodeAndValidate[CreateProjectRequest](r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	if err := req.Validate(); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	project, err := h.projectService.CreateProject(r.Context(), ports.CreateProjectParams{
		Name:        req.Name,
		Description: req.Description,
		Priority:    domain.TaskPriority(req.Priority),
		ManagerID:   claims.UserID,
	})
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	h.logger.Info("project created", "project_id", project.ID, "manager_id", claims.UserID)

	WriteCreated(w, toProjectDTO(project))
}

// HandleListProjects handles GET /projects
func (h *ProjectHandler) HandleListProjects(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.getClaims(w, r)
	if !ok {
		return
	}

	projects, err := h.projectService.ListProjects(r.Context(), claims.UserID)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	dtos := make([]ProjectDTO, 0, len(projects))
	for _, p := range projects {
		dtos = append(dtos, toProjectDTO(p))
	}

	WriteList(w, dtos)
}

// HandleGetProject handles GET /projects/{projectID}
func (h *ProjectHandler) HandleGetProject(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.getClaims(w, r)
	if !ok {
		return
	}

	projectID, ok := h.parseProjectID(w, r)
	if !ok {
		return
	}

	project, err := h.projectService.GetProject(r.Context(), projectID, claims.UserID)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	WriteJSON(w, http.StatusOK, toProjectDTO(project))
}

// HandleUpdateProject handles PATCH /projects/{projectID}
func (h *ProjectHandler) HandleUpdateProject(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.getClaims(w, r)
	if !ok {
		return
	}

	projectID, ok := h.parseProjectID(w, r)
	if !ok {
		return
	}

	req, err := validation.DecodeAndValidate[UpdateProjectRequest](r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	if err := req.Validate(); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	params := ports.UpdateProjectParams{
		ProjectID:   projectID,
		ActorID:     claims.UserID,
		Name:        req.Name,
		Description: req.Description,
	}
	if req.Status != nil {
		status := domain.ProjectStatus(*req.Status)
		params.Status = &status
	}
	if req.Priority != nil {
		priority := domain.TaskPriority(*req.Priority)
		params.Priority = &priority
	}
	if req.TeamID != nil {
		teamID := uuid.MustParse(*req.TeamID)
		params.TeamID = &teamID
	}

	project, err := h.projectService.UpdateProject(r.Context(), params)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	h.logger.Info("project updated", "project_id", projectID, "actor_id", claims.UserID)

	WriteJSON(w, http.StatusOK, toProjectDTO(project))
}

// ProgressDTO defines the JSON response for the project progress endpoint.
type ProgressDTO struct {
	Progress int `json:"progress"`
}

// HandleGetProgress handles GET /projects/{projectID}/progress
func (h *ProjectHandler) HandleGetProgress(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.getClaims(w, r)
	if !ok {
		return
	}

	projectID, ok := h.parseProjectID(w, r)
	if !ok {
		return
	}

	progress, err := h.projectService.Progress(r.Context(), projectID, claims.UserID)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	WriteJSON(w, http.StatusOK, ProgressDTO{Progress: progress})
}

// HandleAddMember handles POST /projects/{projectID}/members
func (h *ProjectHandler) HandleAddMember(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.getClaims(w, r)
	if !ok {
		return
	}

	projectID, ok := h.parseProjectID(w, r)
	if !ok {
		return
	}

	req, err := validation.DecodeAndValidate[AddMemberRequest](r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	if err := req.Validate(); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		h.errorHandler.Handle(w, r, apperrors.NewBadRequestError(err, "Invalid user ID"))
		return
	}

	project, err := h.projectService.AddMember(r.Context(), ports.AddMemberParams{
		ProjectID: projectID,
		UserID:    userID,
		Role:      domain.MemberRole(req.Role),
		ActorID:   claims.UserID,
	})
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	h.logger.Info("member added", "project_id", projectID, "user_id", userID, "actor_id", claims.UserID)

	WriteJSON(w, http.StatusOK, toProjectDTO(project))
}

// getClaims extracts and validates user claims from the request context
func (h *ProjectHandler) getClaims(w http.ResponseWriter, r *http.Request) (*auth.Claims, bool) {
	claims, ok := mw.GetClaims(r.Context())
	if !ok {
		WriteJSON(w, http.StatusUnauthorized, ErrorResponse{
			Error: "Not authorized",
			Code:  "UNAUTHORIZED",
		})
		return nil, false
	}
	return claims, true
}

// parseProjectID extracts and validates the projectID URL parameter
func (h *ProjectHandler) parseProjectID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	projectID, err := uuid.Parse(chi.URLParam(r, "projectID"))
	if err != nil {
		h.errorHandler.Handle(w, r, apperrors.NewBadRequestError(err, "Invalid project ID"))
		return uuid.Nil, false
	}
	return projectID, true
}
