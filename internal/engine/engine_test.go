package engine

import (
	"context"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util"
)

type fakeTicketRepo struct {
	mu      sync.Mutex
	seq     int
	tickets map[string]domain.Ticket
}

func newFakeTicketRepo() *fakeTicketRepo {
	return &fakeTicketRepo{tickets: make(map[string]domain.Ticket)}
}

func (r *fakeTicketRepo) Create(_ context.Context, ticket *domain.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	ticket.ID = "ticket-" + strconv.Itoa(r.seq)
	r.tickets[ticket.ID] = *ticket
	return nil
}

func (r *fakeTicketRepo) Update(_ context.Context, ticket *domain.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.tickets[ticket.ID]
	if !ok {
		return pgx.ErrNoRows
	}
	if stored.Version != ticket.Version {
		return repository.ErrVersionConflict
	}
	ticket.Version++
	r.tickets[ticket.ID] = *ticket
	return nil
}

func (r *fakeTicketRepo) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := stored
	return &copied, nil
}

func (r *fakeTicketRepo) ListWithFilter(_ context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []domain.Ticket
	for _, ticket := range r.tickets {
		if filter.ReporterID != nil && ticket.ReporterID != *filter.ReporterID {
			continue
		}
		if filter.SectorID != nil && ticket.SectorID != *filter.SectorID {
			continue
		}
		if filter.AssigneeID != nil && (ticket.AssigneeID == nil || *ticket.AssigneeID != *filter.AssigneeID) {
			continue
		}
		if len(filter.Statuses) > 0 {
			matched := false
			for _, status := range filter.Statuses {
				if ticket.Status == status {
					matched = true
					break
				}
			}
			if !matched {
				continue
			}
		}
		result = append(result, ticket)
	}
	return result, nil
}

type fakeSectorRepo struct {
	sectors map[string]domain.Sector
}

func newFakeSectorRepo(ids ...string) *fakeSectorRepo {
	r := &fakeSectorRepo{sectors: make(map[string]domain.Sector)}
	for _, id := range ids {
		r.sectors[id] = domain.Sector{ID: id, Name: id}
	}
	return r
}

func (r *fakeSectorRepo) Create(_ context.Context, sector *domain.Sector) error {
	r.sectors[sector.ID] = *sector
	return nil
}

func (r *fakeSectorRepo) Update(_ context.Context, sector *domain.Sector) error {
	r.sectors[sector.ID] = *sector
	return nil
}

func (r *fakeSectorRepo) GetByID(_ context.Context, id string) (*domain.Sector, error) {
	sector, ok := r.sectors[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &sector, nil
}

func (r *fakeSectorRepo) ListAll(_ context.Context) ([]domain.Sector, error) {
	var result []domain.Sector
	for _, sector := range r.sectors {
		result = append(result, sector)
	}
	return result, nil
}

type fakeCommentRepo struct {
	mu       sync.Mutex
	seq      int
	comments []domain.TicketComment
}

func (r *fakeCommentRepo) Create(_ context.Context, comment *domain.TicketComment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	comment.ID = "comment-" + strconv.Itoa(r.seq)
	comment.CreatedAt = time.Now()
	r.comments = append(r.comments, *comment)
	return nil
}

func (r *fakeCommentRepo) ListByTicket(_ context.Context, ticketID string) ([]domain.TicketComment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []domain.TicketComment
	for _, comment := range r.comments {
		if comment.TicketID == ticketID {
			result = append(result, comment)
		}
	}
	return result, nil
}

type fakeAuditRepo struct {
	mu      sync.Mutex
	seq     int
	entries []domain.AuditEntry
}

func (r *fakeAuditRepo) Create(_ context.Context, entry *domain.AuditEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	entry.ID = "audit-" + strconv.Itoa(r.seq)
	entry.CreatedAt = time.Now()
	r.entries = append(r.entries, *entry)
	return nil
}

func (r *fakeAuditRepo) ListByTicket(_ context.Context, ticketID string) ([]domain.AuditEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []domain.AuditEntry
	for _, entry := range r.entries {
		if entry.TicketID == ticketID {
			result = append(result, entry)
		}
	}
	return result, nil
}

type fixture struct {
	engine   *Engine
	tickets  *fakeTicketRepo
	sectors  *fakeSectorRepo
	comments *fakeCommentRepo
	audit    *fakeAuditRepo
	events   *eventRecorder
}

type eventRecorder struct {
	mu     sync.Mutex
	byType map[events.EventType]int
}

func (r *eventRecorder) handle(_ context.Context, event events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byType[event.Type]++
	return nil
}

func (r *eventRecorder) count(t events.EventType) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.byType[t]
}

func newFixture(t *testing.T, sectorIDs ...string) *fixture {
	t.Helper()
	if len(sectorIDs) == 0 {
		sectorIDs = []string{"sector-a"}
	}
	tickets := newFakeTicketRepo()
	sectors := newFakeSectorRepo(sectorIDs...)
	comments := &fakeCommentRepo{}
	audit := &fakeAuditRepo{}
	recorder := &eventRecorder{byType: make(map[events.EventType]int)}

	dispatcher := events.NewInMemoryDispatcher()
	for _, et := range []events.EventType{
		events.EventTicketCreated,
		events.EventTicketClaimed,
		events.EventTicketForwarded,
		events.EventTicketResolved,
		events.EventTicketReopened,
		events.EventTicketCommented,
	} {
		dispatcher.Subscribe(et, recorder.handle)
	}

	base := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	var tick atomic.Int64
	eng := New(Dependencies{
		TicketRepo:  tickets,
		SectorRepo:  sectors,
		CommentRepo: comments,
		AuditRepo:   audit,
		Dispatcher:  dispatcher,
		Clock: func() time.Time {
			return base.Add(time.Duration(tick.Add(1)) * time.Second)
		},
	})
	return &fixture{engine: eng, tickets: tickets, sectors: sectors, comments: comments, audit: audit, events: recorder}
}

func strPtr(s string) *string { return &s }

var (
	client = domain.Actor{ID: "client-1", Role: domain.RoleClient}
	tech   = domain.Actor{ID: "tech-1", Role: domain.RoleTech, SectorID: strPtr("sector-a")}
	admin  = domain.Actor{ID: "admin-1", Role: domain.RoleAdmin}
)

func TestCreateRequiresDescription(t *testing.T) {
	f := newFixture(t)
	_, err := f.engine.Create(context.Background(), client, CreateInput{Description: "   ", SectorID: "sector-a"})
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeValidationFailed))
}

func TestCreateUnknownSector(t *testing.T) {
	f := newFixture(t)
	_, err := f.engine.Create(context.Background(), client, CreateInput{Description: "printer on fire", SectorID: "nope"})
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeNotFound))
}

func TestCreateForbiddenForTech(t *testing.T) {
	f := newFixture(t)
	_, err := f.engine.Create(context.Background(), tech, CreateInput{Description: "x", SectorID: "sector-a"})
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeForbidden))
}

func TestCreateOpensTicket(t *testing.T) {
	f := newFixture(t)
	ticket, err := f.engine.Create(context.Background(), client, CreateInput{Description: "  vpn broken  ", SectorID: "sector-a"})
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusOpen, ticket.Status)
	assert.Equal(t, "vpn broken", ticket.Description)
	assert.Equal(t, "client-1", ticket.ReporterID)
	assert.Nil(t, ticket.AssigneeID)
	assert.Equal(t, int64(1), ticket.Version)
	assert.Equal(t, 1, f.events.count(events.EventTicketCreated))
}

func TestClaimResolveRoundTrip(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	created, err := f.engine.Create(ctx, client, CreateInput{Description: "vpn broken", SectorID: "sector-a"})
	require.NoError(t, err)

	claimed, err := f.engine.Claim(ctx, tech, created.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusInProgress, claimed.Status)
	require.NotNil(t, claimed.AssigneeID)
	assert.Equal(t, "tech-1", *claimed.AssigneeID)
	assert.True(t, claimed.UpdatedAt.After(created.CreatedAt))

	closed, err := f.engine.Resolve(ctx, tech, created.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusClosed, closed.Status)

	entries, err := f.engine.AuditTrail(ctx, admin, created.ID)
	require.NoError(t, err)
	// claim: status + assignee, resolve: status
	require.Len(t, entries, 3)
	assert.Equal(t, domain.AuditChangeStatus, entries[0].ChangeKind)
	assert.Equal(t, domain.AuditChangeAssignee, entries[1].ChangeKind)
	assert.Equal(t, domain.AuditChangeStatus, entries[2].ChangeKind)

	assert.Equal(t, 1, f.events.count(events.EventTicketClaimed))
	assert.Equal(t, 1, f.events.count(events.EventTicketResolved))
}

func TestResolveFromOpenIsInvalid(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	created, err := f.engine.Create(ctx, client, CreateInput{Description: "vpn broken", SectorID: "sector-a"})
	require.NoError(t, err)

	claimed, err := f.engine.Claim(ctx, tech, created.ID)
	require.NoError(t, err)
	// revert assignment so only the status guard can fail
	reverted := *claimed
	reverted.Status = domain.TicketStatusOpen
	f.tickets.tickets[created.ID] = reverted

	_, err = f.engine.Resolve(ctx, tech, created.ID)
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeInvalidTransition))

	var domainErr *apperrors.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, string(domain.TicketStatusOpen), domainErr.Details["current_status"])

	stored, err := f.tickets.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusOpen, stored.Status)
}

func TestClaimOutsideSectorForbidden(t *testing.T) {
	f := newFixture(t, "sector-a", "sector-b")
	ctx := context.Background()
	created, err := f.engine.Create(ctx, client, CreateInput{Description: "vpn broken", SectorID: "sector-b"})
	require.NoError(t, err)

	_, err = f.engine.Claim(ctx, tech, created.ID)
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeForbidden))
}

func TestConcurrentClaimsSingleWinner(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	created, err := f.engine.Create(ctx, client, CreateInput{Description: "vpn broken", SectorID: "sector-a"})
	require.NoError(t, err)

	otherTech := domain.Actor{ID: "tech-2", Role: domain.RoleTech, SectorID: strPtr("sector-a")}

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, actor := range []domain.Actor{tech, otherTech} {
		wg.Add(1)
		go func(slot int, a domain.Actor) {
			defer wg.Done()
			_, errs[slot] = f.engine.Claim(ctx, a, created.ID)
		}(i, actor)
	}
	wg.Wait()

	var wins, conflicts int
	for _, claimErr := range errs {
		switch {
		case claimErr == nil:
			wins++
		case apperrors.IsCode(claimErr, apperrors.CodeConflict) || apperrors.IsCode(claimErr, apperrors.CodeForbidden):
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", claimErr)
		}
	}
	assert.Equal(t, 1, wins)
	assert.Equal(t, 1, conflicts)

	stored, err := f.tickets.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusInProgress, stored.Status)
	require.NotNil(t, stored.AssigneeID)
}

func TestClaimAfterRaceIsConflict(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	created, err := f.engine.Create(ctx, client, CreateInput{Description: "vpn broken", SectorID: "sector-a"})
	require.NoError(t, err)

	_, err = f.engine.Claim(ctx, tech, created.ID)
	require.NoError(t, err)

	otherTech := domain.Actor{ID: "tech-2", Role: domain.RoleTech, SectorID: strPtr("sector-a")}
	_, err = f.engine.Claim(ctx, otherTech, created.ID)
	require.Error(t, err)
	// first read already shows the assignment, so this is a plain denial
	assert.True(t, apperrors.IsCode(err, apperrors.CodeForbidden))
}

func TestForwardClearsAssigneeAndReclaim(t *testing.T) {
	f := newFixture(t, "sector-a", "sector-b")
	ctx := context.Background()
	created, err := f.engine.Create(ctx, client, CreateInput{Description: "vpn broken", SectorID: "sector-a"})
	require.NoError(t, err)
	_, err = f.engine.Claim(ctx, tech, created.ID)
	require.NoError(t, err)

	forwarded, err := f.engine.Forward(ctx, tech, created.ID, "sector-b")
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusForwarded, forwarded.Status)
	assert.Equal(t, "sector-b", forwarded.SectorID)
	assert.Nil(t, forwarded.AssigneeID)

	// second forward requires an intermediate claim
	_, err = f.engine.Forward(ctx, admin, created.ID, "sector-a")
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeInvalidTransition))

	// old-sector technician lost visibility for claiming
	_, err = f.engine.Claim(ctx, tech, created.ID)
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeForbidden))

	sectorBTech := domain.Actor{ID: "tech-9", Role: domain.RoleTech, SectorID: strPtr("sector-b")}
	reclaimed, err := f.engine.Claim(ctx, sectorBTech, created.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusInProgress, reclaimed.Status)
	require.NotNil(t, reclaimed.AssigneeID)
	assert.Equal(t, "tech-9", *reclaimed.AssigneeID)
}

func TestForwardUnknownSector(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	created, err := f.engine.Create(ctx, client, CreateInput{Description: "vpn broken", SectorID: "sector-a"})
	require.NoError(t, err)

	_, err = f.engine.Forward(ctx, admin, created.ID, "missing")
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeNotFound))
}

func TestReopenAdminOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	created, err := f.engine.Create(ctx, client, CreateInput{Description: "vpn broken", SectorID: "sector-a"})
	require.NoError(t, err)
	_, err = f.engine.Claim(ctx, tech, created.ID)
	require.NoError(t, err)
	_, err = f.engine.Resolve(ctx, tech, created.ID)
	require.NoError(t, err)

	_, err = f.engine.Reopen(ctx, tech, created.ID)
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeForbidden))

	reopened, err := f.engine.Reopen(ctx, admin, created.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusOpen, reopened.Status)
	assert.Nil(t, reopened.AssigneeID)
	assert.Equal(t, 1, f.events.count(events.EventTicketReopened))
}

func TestReopenOnlyFromClosed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	created, err := f.engine.Create(ctx, client, CreateInput{Description: "vpn broken", SectorID: "sector-a"})
	require.NoError(t, err)

	_, err = f.engine.Reopen(ctx, admin, created.ID)
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeInvalidTransition))
}

func TestListScopeForcedForTech(t *testing.T) {
	f := newFixture(t, "sector-a", "sector-b")
	ctx := context.Background()
	_, err := f.engine.Create(ctx, client, CreateInput{Description: "in a", SectorID: "sector-a"})
	require.NoError(t, err)
	_, err = f.engine.Create(ctx, client, CreateInput{Description: "in b", SectorID: "sector-b"})
	require.NoError(t, err)

	// a foreign sector filter cannot widen the scope
	foreign := "sector-b"
	tickets, err := f.engine.List(ctx, tech, ListFilter{SectorID: &foreign})
	require.NoError(t, err)
	require.Len(t, tickets, 1)
	assert.Equal(t, "sector-a", tickets[0].SectorID)
}

func TestListScopeForcedForClient(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.engine.Create(ctx, client, CreateInput{Description: "mine", SectorID: "sector-a"})
	require.NoError(t, err)

	other := domain.Actor{ID: "client-2", Role: domain.RoleClient}
	_, err = f.engine.Create(ctx, other, CreateInput{Description: "theirs", SectorID: "sector-a"})
	require.NoError(t, err)

	tickets, err := f.engine.List(ctx, client, ListFilter{})
	require.NoError(t, err)
	require.Len(t, tickets, 1)
	assert.Equal(t, "client-1", tickets[0].ReporterID)

	all, err := f.engine.List(ctx, admin, ListFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestGetStripsInternalCommentsForClient(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	created, err := f.engine.Create(ctx, client, CreateInput{Description: "vpn broken", SectorID: "sector-a"})
	require.NoError(t, err)
	_, err = f.engine.Claim(ctx, tech, created.ID)
	require.NoError(t, err)

	_, err = f.engine.AddComment(ctx, tech, created.ID, "looking into it", domain.CommentVisibilityPublic)
	require.NoError(t, err)
	_, err = f.engine.AddComment(ctx, tech, created.ID, "user error again", domain.CommentVisibilityInternal)
	require.NoError(t, err)

	_, comments, err := f.engine.Get(ctx, client, created.ID)
	require.NoError(t, err)
	require.Len(t, comments, 1)
	assert.Equal(t, domain.CommentVisibilityPublic, comments[0].Visibility)

	_, comments, err = f.engine.Get(ctx, tech, created.ID)
	require.NoError(t, err)
	assert.Len(t, comments, 2)
}

func TestClientCannotPostInternalNote(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	created, err := f.engine.Create(ctx, client, CreateInput{Description: "vpn broken", SectorID: "sector-a"})
	require.NoError(t, err)

	_, err = f.engine.AddComment(ctx, client, created.ID, "psst", domain.CommentVisibilityInternal)
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeForbidden))
}

func TestAddCommentValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	created, err := f.engine.Create(ctx, client, CreateInput{Description: "vpn broken", SectorID: "sector-a"})
	require.NoError(t, err)

	_, err = f.engine.AddComment(ctx, client, created.ID, "   ", domain.CommentVisibilityPublic)
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeValidationFailed))

	_, err = f.engine.AddComment(ctx, client, created.ID, "hello", domain.CommentVisibility("SECRET"))
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeValidationFailed))
}

func TestAuditTrailClientForbidden(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	created, err := f.engine.Create(ctx, client, CreateInput{Description: "vpn broken", SectorID: "sector-a"})
	require.NoError(t, err)

	_, err = f.engine.AuditTrail(ctx, client, created.ID)
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeForbidden))
}

func TestUnknownTicketNotFound(t *testing.T) {
	f := newFixture(t)
	_, err := f.engine.Claim(context.Background(), tech, "missing")
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeNotFound))
}
