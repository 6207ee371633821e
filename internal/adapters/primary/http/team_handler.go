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

// TeamHandler handles team HTTP requests
type TeamHandler struct {
	teamService  ports.TeamService
	errorHandler *ErrorHandler
	logger       *slog.Logger
}

// NewTeamHandler creates a new team handler
func NewTeamHandler(
	teamService ports.TeamService,
	errorHandler *ErrorHandler,
	logger *slog.Logger,
) *TeamHandler {
	return &TeamHandler{
		teamService:  teamService,
		errorHandler: errorHandler,
		logger:       logger.With("handler", "team"),
	}
}

// Router returns a configured chi router for team endpoints
func (h *TeamHandler) Router() chi.Router {
	r := chi.NewRouter()

	r.Post("/", h.HandleCreateTeam)
	r.Post("/join", h.HandleJoinTeam)

	r.Route("/{teamID}", func(r chi.Router) {
		r.Get("/", h.HandleGetTeam)
		r.Post("/invite", h.HandleGenerateInvite)
		r.Get("/projects", h.HandleListTeamProjects)
		r.Patch("/members/{userID}/role", h.HandleUpdateMemberRole)
	})

	return r
}

// --- Request/Response DTOs ---

// CreateTeamRequest defines the expected JSON body for team creation
type CreateTeamRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	IsPrivate   bool   `json:"isPrivate"`
}

// Validate validates the team creation request
func (r *CreateTeamRequest) Validate() error {
	v := validation.NewValidator()

	v.Required("name", r.Name).
		MaxLength("name", r.Name, domain.MaxTeamNameLength)

	if v.HasErrors() {
		return v.Errors()
	}
	return nil
}

// JoinTeamRequest defines the expected JSON body for redeeming an invite
type JoinTeamRequest struct {
	InviteCode string `json:"inviteCode"`
}

// Validate validates the join team request
func (r *JoinTeamRequest) Validate() error {
	v := validation.NewValidator()

	v.Required("inviteCode", r.InviteCode)

	if v.HasErrors() {
		return v.Errors()
	}
	return nil
}

// UpdateTeamRoleRequest defines the expected JSON body for role changes
type UpdateTeamRoleRequest struct {
	Role string `json:"role"`
}

// Validate validates the role change request
func (r *UpdateTeamRoleRequest) Validate() error {
	v := validation.NewValidator()

	v.Required("role", r.Role).
		OneOf("role", r.Role, domain.ValidTeamRoles())

	if v.HasErrors() {
		return v.Errors()
	}
	return nil
}

// TeamMemberDTO defines the JSON representation of a team member.
type TeamMemberDTO struct {
	UserID   string `json:"userId"`
	Role     string `json:"role"`
	JoinedAt string `json:"joinedAt"`
}

// TeamDTO defines the JSON representation of a team.
type TeamDTO struct {
	ID              string          `json:"id"`
	Name            string          `json:"name"`
	Description     string          `json:"description,omitempty"`
	IsPrivate       bool            `json:"isPrivate"`
	LeaderID        string          `json:"leaderId"`
	Members         []TeamMemberDTO `json:"members"`
	CreatedAt       string          `json:"createdAt"`
	UpdatedAt       *string         `json:"updatedAt,omitempty"`
	InviteCode      *string         `json:"inviteCode,omitempty"`
	InviteExpiresAt *string         `json:"inviteExpiresAt,omitempty"`
}

// toTeamDTO renders a team. The invite code is only included when
// includeInvite is set; plain members never see it.
func toTeamDTO(t *domain.Team, includeInvite bool) TeamDTO {
	members := make([]TeamMemberDTO, 0, len(t.Members))
	for _, m := range t.Members {
		members = append(members, TeamMemberDTO{
			UserID:   m.UserID.String(),
			Role:     string(m.Role),
			JoinedAt: m.JoinedAt.Format(time.RFC3339),
		})
	}

	dto := TeamDTO{
		ID:          t.ID.String(),
		Name:        t.Name,
		Description: t.Description,
		IsPrivate:   t.IsPrivate,
		LeaderID:    t.LeaderID.String(),
		Members:     members,
		CreatedAt:   t.CreatedAt.Format(time.RFC3339),
	}
	if t.UpdatedAt != nil {
		updated := t.UpdatedAt.Format(time.RFC3339)
		dto.UpdatedAt = &updated
	}
	if includeInvite && t.InviteCode != nil {
		dto.InviteCode = t.InviteCode
		if t.InviteExpiresAt != nil {
			expires := t.InviteExpiresAt.Format(time.RFC3339)
			dto.InviteExpiresAt = &expires
		}
	}
	return dto
}

// --- Handlers ---

// HandleCreateTeam handles POST /teams
func (h *TeamHandler) HandleCreateTeam(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.getClaims(w, r)
	if !ok {
		return
	}

	req, err := validation.DecodeAndValidate[CreateTeamRequest](r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	if err := req.Validate(); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	team, err := h.teamService.CreateTeam(r.Context(), ports.CreateTeamParams{
		Name:        req.Name,
		Description: req.Description,
		IsPrivate:   req.IsPrivate,
		LeaderID:    claims.UserID,
	})
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	h.logger.Info("team created", "team_id", team.ID, "leader_id", claims.UserID)

	WriteCreated(w, toTeamDTO(team, false))
}

// HandleGetTeam handles GET /teams/{teamID}
func (h *TeamHandler) HandleGetTeam(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.getClaims(w, r)
	if !ok {
		return
	}

	teamID, ok := h.parseTeamID(w, r)
	if !ok {
		return
	}

	team, err := h.teamService.GetTeam(r.Context(), teamID, claims.UserID)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	WriteJSON(w, http.StatusOK, toTeamDTO(team, team.CanInvite(claims.UserID)))
}

// HandleGenerateInvite handles POST /teams/{teamID}/invite
func (h *TeamHandler) HandleGenerateInvite(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.getClaims(w, r)
	if !ok {
		return
	}

	teamID, ok := h.parseTeamID(w, r)
	if !ok {
		return
	}

	team, err := h.teamService.GenerateInvite(r.Context(), teamID, claims.UserID)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	h.logger.Info("invite code generated", "team_id", teamID, "actor_id", claims.UserID)

	WriteJSON(w, http.StatusOK, toTeamDTO(team, true))
}

// HandleJoinTeam handles POST /teams/join
func (h *TeamHandler) HandleJoinTeam(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.getClaims(w, r)
	if !ok {
		return
	}

	req, err := validation.DecodeAndValidate[JoinTeamRequest](r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	if err := req.Validate(); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	team, err := h.teamService.JoinTeam(r.Context(), req.InviteCode, claims.UserID)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	h.logger.Info("user joined team", "team_id", team.ID, "user_id", claims.UserID)

	WriteJSON(w, http.StatusOK, toTeamDTO(team, false))
}

// HandleListTeamProjects handles GET /teams/{teamID}/projects
func (h *TeamHandler) HandleListTeamProjects(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.getClaims(w, r)
	if !ok {
		return
	}

	teamID, ok := h.parseTeamID(w, r)
	if !ok {
		return
	}

	projects, err := h.teamService.ListTeamProjects(r.Context(), teamID, claims.UserID)
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

// HandleUpdateMemberRole handles PATCH /teams/{teamID}/members/{userID}/role
func (h *TeamHandler) HandleUpdateMemberRole(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.getClaims(w, r)
	if !ok {
		return
	}

	teamID, ok := h.parseTeamID(w, r)
	if !ok {
		return
	}

	userID, err := uuid.Parse(chi.URLParam(r, "userID"))
	if err != nil {
		h.errorHandler.Handle(w, r, apperrors.NewBadRequestError(err, "Invalid user ID"))
		return
	}

	req, err := validation.DecodeAndValidate[UpdateTeamRoleRequest](r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	if err := req.Validate(); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	team, err := h.teamService.UpdateMemberRole(r.Context(), ports.UpdateTeamRoleParams{
		TeamID:  teamID,
		UserID:  userID,
		Role:    domain.TeamRole(req.Role),
		ActorID: claims.UserID,
	})
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	h.logger.Info("team member role updated",
		"team_id", teamID, "user_id", userID, "role", req.Role, "actor_id", claims.UserID)

	WriteJSON(w, http.StatusOK, toTeamDTO(team, false))
}

// getClaims extracts and validates user claims from the request context
func (h *TeamHandler) getClaims(w http.ResponseWriter, r *http.Request) (*auth.Claims, bool) {
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

// parseTeamID extracts and validates the teamID URL parameter
func (h *TeamHandler) parseTeamID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	teamID, err := uuid.Parse(chi.URLParam(r, "teamID"))
	if err != nil {
		h.errorHandler.Handle(w, r, apperrors.NewBadRequestError(err, "Invalid team ID"))
		return uuid.Nil, false
	}
	return teamID, true
}
