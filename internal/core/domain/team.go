package domain

import (
	"crypto/rand"
	"encoding/hex"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/taskhive/taskhive-backend/internal/core/errors"
)

const MaxTeamNameLength = 255

// InviteCodeTTL is how long a generated invite code stays usable.
const InviteCodeTTL = 7 * 24 * time.Hour

// TeamRole is the role of a user within a team.
type TeamRole string

const (
	TeamRoleMember TeamRole = "member"
	TeamRoleLead   TeamRole = "lead"
	TeamRoleAdmin  TeamRole = "admin"
)

// ValidTeamRoles lists the accepted team roles.
func ValidTeamRoles() []string {
	return []string{string(TeamRoleMember), string(TeamRoleLead), string(TeamRoleAdmin)}
}

// TeamMember links a user to a team with a role.
type TeamMember struct {
	UserID   uuid.UUID
	Role     TeamRole
	JoinedAt time.Time
}

// Team is a standing group of users. Projects can be attached to a team,
// and members join either by invitation of an admin or by redeeming an
// invite code.
type Team struct {
	ID              uuid.UUID
	Name            string
	Description     string
	IsPrivate       bool
	LeaderID        uuid.UUID
	InviteCode      *string
	InviteExpiresAt *time.Time
	Members         []TeamMember
	CreatedAt       time.Time
	UpdatedAt       *time.Time
}

// TeamParams holds the input for creating a new team.
type TeamParams struct {
	Name        string
	Description string
	IsPrivate   bool
	LeaderID    uuid.UUID
}

// NewTeam is a factory function to create a valid new team. The leader
// is enrolled as the first member with the admin role.
func NewTeam(params TeamParams) (*Team, error) {
	if params.Name == "" {
		return nil, apperrors.ErrTeamNameRequired
	}
	if len(params.Name) > MaxTeamNameLength {
		return nil, apperrors.ErrNameTooLong
	}
	if params.LeaderID == uuid.Nil {
		return nil, apperrors.ErrLeaderRequired
	}

	now := time.Now().UTC()
	return &Team{
		ID:          uuid.New(),
		Name:        params.Name,
		Description: params.Description,
		IsPrivate:   params.IsPrivate,
		LeaderID:    params.LeaderID,
		Members: []TeamMember{{
			UserID:   params.LeaderID,
			Role:     TeamRoleAdmin,
			JoinedAt: now,
		}},
		CreatedAt: now,
	}, nil
}

// GenerateInviteCode mints a fresh invite code and resets its expiry.
// A previously issued code is invalidated.
func (t *Team) GenerateInviteCode() (string, error) {
	buf := make([]byte, 6)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	code := hex.EncodeToString(buf)
	expires := time.Now().UTC().Add(InviteCodeTTL)

	t.InviteCode = &code
	t.InviteExpiresAt = &expires
	now := time.Now().UTC()
	t.UpdatedAt = &now
	return code, nil
}

// InviteValid reports whether the team currently has a redeemable
// invite code.
func (t *Team) InviteValid(now time.Time) bool {
	return t.InviteCode != nil && t.InviteExpiresAt != nil && now.Before(*t.InviteExpiresAt)
}

// AddMember enrolls a user in the team.
func (t *Team) AddMember(userID uuid.UUID, role TeamRole) error {
	if t.HasMember(userID) {
		return apperrors.ErrMemberExists
	}
	t.Members = append(t.Members, TeamMember{
		UserID:   userID,
		Role:     role,
		JoinedAt: time.Now().UTC(),
	})
	now := time.Now().UTC()
	t.UpdatedAt = &now
	return nil
}

// HasMember reports whether the user belongs to the team.
func (t *Team) HasMember(userID uuid.UUID) bool {
	for _, m := range t.Members {
		if m.UserID == userID {
			return true
		}
	}
	return false
}

// RoleOf returns the member's role, or false if the user is not a member.
func (t *Team) RoleOf(userID uuid.UUID) (TeamRole, bool) {
	for _, m := range t.Members {
		if m.UserID == userID {
			return m.Role, true
		}
	}
	return "", false
}

// CanInvite reports whether the user may issue invite codes. Admins and
// leads may; plain members may not.
func (t *Team) CanInvite(userID uuid.UUID) bool {
	role, ok := t.RoleOf(userID)
	return ok && (role == TeamRoleAdmin || role == TeamRoleLead)
}

// SetMemberRole changes an existing member's role.
func (t *Team) SetMemberRole(userID uuid.UUID, role TeamRole) error {
	for i := range t.Members {
		if t.Members[i].UserID == userID {
			t.Members[i].Role = role
			now := time.Now().UTC()
			t.UpdatedAt = &now
			return nil
		}
	}
	return apperrors.ErrNotTeamMember
}
