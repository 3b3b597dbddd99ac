package authz

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

func strPtr(s string) *string { return &s }

func openTicket(sectorID, reporterID string) *domain.Ticket {
	return &domain.Ticket{
		ID:         "t-1",
		Status:     domain.TicketStatusOpen,
		SectorID:   sectorID,
		ReporterID: reporterID,
	}
}

func TestCanPerform(t *testing.T) {
	admin := domain.Actor{ID: "admin-1", Role: domain.RoleAdmin}
	tech := domain.Actor{ID: "tech-1", Role: domain.RoleTech, SectorID: strPtr("sector-a")}
	client := domain.Actor{ID: "client-1", Role: domain.RoleClient}

	assigned := openTicket("sector-a", "client-1")
	assigned.Status = domain.TicketStatusInProgress
	assigned.AssigneeID = strPtr("tech-1")

	assignedToOther := openTicket("sector-a", "client-1")
	assignedToOther.Status = domain.TicketStatusInProgress
	assignedToOther.AssigneeID = strPtr("tech-2")

	cases := []struct {
		name   string
		actor  domain.Actor
		action Action
		ticket *domain.Ticket
		want   bool
	}{
		{"client creates", client, ActionCreate, nil, true},
		{"client views own", client, ActionView, openTicket("sector-a", "client-1"), true},
		{"client views foreign", client, ActionView, openTicket("sector-a", "client-2"), false},
		{"client comments own", client, ActionComment, openTicket("sector-a", "client-1"), true},
		{"client cannot claim", client, ActionClaim, openTicket("sector-a", "client-1"), false},
		{"client cannot resolve", client, ActionResolve, assigned, false},
		{"client cannot reopen", client, ActionReopen, assigned, false},

		{"tech claims in own sector", tech, ActionClaim, openTicket("sector-a", "client-1"), true},
		{"tech cannot claim other sector", tech, ActionClaim, openTicket("sector-b", "client-1"), false},
		{"tech cannot claim assigned", tech, ActionClaim, assignedToOther, false},
		{"tech resolves own assignment", tech, ActionResolve, assigned, true},
		{"tech cannot resolve unassigned", tech, ActionResolve, openTicket("sector-a", "client-1"), false},
		{"tech cannot resolve foreign assignment", tech, ActionResolve, assignedToOther, false},
		{"tech views unassigned", tech, ActionView, openTicket("sector-b", "client-1"), true},
		{"tech cannot view foreign assignment", tech, ActionView, assignedToOther, false},
		{"tech forwards own assignment", tech, ActionForward, assigned, true},
		{"tech cannot create", tech, ActionCreate, nil, false},
		{"tech cannot reopen", tech, ActionReopen, assigned, false},

		{"admin views anything", admin, ActionView, assignedToOther, true},
		{"admin forwards anything", admin, ActionForward, assigned, true},
		{"admin reopens", admin, ActionReopen, assigned, true},
		{"admin cannot claim", admin, ActionClaim, openTicket("sector-a", "client-1"), false},
		{"admin cannot resolve", admin, ActionResolve, assigned, false},

		{"unknown role denied", domain.Actor{ID: "x", Role: "AUDITOR"}, ActionView, openTicket("sector-a", "x"), false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, CanPerform(tc.actor, tc.action, tc.ticket))
		})
	}
}

func TestCanPerformTechWithoutSectorCannotClaim(t *testing.T) {
	tech := domain.Actor{ID: "tech-1", Role: domain.RoleTech}
	assert.False(t, CanPerform(tech, ActionClaim, openTicket("sector-a", "client-1")))
}

func TestListScopeAdmin(t *testing.T) {
	scope, ok := ListScope(domain.Actor{ID: "admin-1", Role: domain.RoleAdmin})
	require.True(t, ok)
	assert.Nil(t, scope.ReporterID)
	assert.Nil(t, scope.SectorID)
}

func TestListScopeTech(t *testing.T) {
	scope, ok := ListScope(domain.Actor{ID: "tech-1", Role: domain.RoleTech, SectorID: strPtr("sector-a")})
	require.True(t, ok)
	require.NotNil(t, scope.SectorID)
	assert.Equal(t, "sector-a", *scope.SectorID)
	assert.Nil(t, scope.ReporterID)
}

func TestListScopeTechWithoutSector(t *testing.T) {
	_, ok := ListScope(domain.Actor{ID: "tech-1", Role: domain.RoleTech})
	assert.False(t, ok)
}

func TestListScopeClient(t *testing.T) {
	scope, ok := ListScope(domain.Actor{ID: "client-1", Role: domain.RoleClient})
	require.True(t, ok)
	require.NotNil(t, scope.ReporterID)
	assert.Equal(t, "client-1", *scope.ReporterID)
	assert.Nil(t, scope.SectorID)
}

func TestListScopeUnknownRole(t *testing.T) {
	_, ok := ListScope(domain.Actor{ID: "x", Role: "AUDITOR"})
	assert.False(t, ok)
}
