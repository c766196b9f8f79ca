package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/CMIS-TAMU/cmis-events-sub000/internal/delivery/domain"
	ldomain "github.com/CMIS-TAMU/cmis-events-sub000/internal/listings/domain"
	rdomain "github.com/CMIS-TAMU/cmis-events-sub000/internal/recipients/domain"
	tdomain "github.com/CMIS-TAMU/cmis-events-sub000/internal/templates/domain"
)

// memTaskStore is a mutex-guarded TaskStore mirroring the SQL semantics of the
// pgx store, including the conditional claim update.
type memTaskStore struct {
	mu        sync.Mutex
	tasks     map[uuid.UUID]*domain.Task
	failFetch bool
}

func newMemTaskStore() *memTaskStore {
	return &memTaskStore{tasks: map[uuid.UUID]*domain.Task{}}
}

func (s *memTaskStore) Insert(ctx context.Context, t domain.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := t
	s.tasks[t.ID] = &cp
	return nil
}

func (s *memTaskStore) SelectDue(ctx context.Context, limit int, now time.Time, lookahead time.Duration) ([]domain.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failFetch {
		return nil, errors.New("store unavailable")
	}
	cutoff := now.Add(lookahead)
	var due []domain.Task
	for _, t := range s.tasks {
		if t.Status == domain.StatusPending && !t.ScheduledFor.After(cutoff) {
			due = append(due, *t)
		}
	}
	sort.SliceStable(due, func(i, j int) bool {
		if due[i].Priority != due[j].Priority {
			return due[i].Priority > due[j].Priority
		}
		return due[i].ScheduledFor.Before(due[j].ScheduledFor)
	})
	if len(due) > limit {
		due = due[:limit]
	}
	return due, nil
}

func (s *memTaskStore) CompareAndSetStatus(ctx context.Context, id uuid.UUID, expected, next domain.Status) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok || t.Status != expected {
		return false, nil
	}
	t.Status = next
	return true, nil
}

func (s *memTaskStore) UpdateTerminal(ctx context.Context, id uuid.UUID, status domain.Status, errMsg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.tasks[id]; ok {
		t.Status = status
	}
	return nil
}

func (s *memTaskStore) get(id uuid.UUID) domain.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.tasks[id]
}

func (s *memTaskStore) all() []domain.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Task
	for _, t := range s.tasks {
		out = append(out, *t)
	}
	return out
}

type memLogStore struct {
	mu      sync.Mutex
	entries []domain.Log
}

func (s *memLogStore) Append(ctx context.Context, l domain.Log) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, l)
	return nil
}

func (s *memLogStore) ListByRecipient(_ context.Context, recipientID uuid.UUID, limit int) ([]domain.Log, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Log
	for _, e := range s.entries {
		if e.RecipientID == recipientID {
			out = append(out, e)
		}
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *memLogStore) byTask(id uuid.UUID) []domain.Log {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Log
	for _, e := range s.entries {
		if e.TaskID != nil && *e.TaskID == id {
			out = append(out, e)
		}
	}
	return out
}

// memTemplates implements both TemplateSource and TemplateRegistry.
type memTemplates struct {
	mu   sync.Mutex
	byID map[uuid.UUID]tdomain.Template
}

func newMemTemplates() *memTemplates {
	return &memTemplates{byID: map[uuid.UUID]tdomain.Template{}}
}

func (m *memTemplates) add(cat tdomain.Category) tdomain.Template {
	m.mu.Lock()
	defer m.mu.Unlock()
	t := tdomain.Template{ID: uuid.New(), Name: string(cat) + "_default", Category: cat, Channel: tdomain.ChannelEmail, Subject: "fallback subject", IsActive: true}
	m.byID[t.ID] = t
	return t
}

func (m *memTemplates) GetByID(ctx context.Context, id uuid.UUID) (*tdomain.Template, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t, ok := m.byID[id]; ok {
		cp := t
		return &cp, nil
	}
	return nil, nil
}

func (m *memTemplates) GetOrCreate(ctx context.Context, name string, cat tdomain.Category, subject string) (tdomain.Template, error) {
	m.mu.Lock()
	for _, t := range m.byID {
		if t.Name == name && t.Category == cat {
			m.mu.Unlock()
			return t, nil
		}
	}
	t := tdomain.Template{ID: uuid.New(), Name: name, Category: cat, Channel: tdomain.ChannelEmail, Subject: subject, IsActive: true}
	m.byID[t.ID] = t
	m.mu.Unlock()
	return t, nil
}

// memRecipients implements the recipients repository over maps.
type memRecipients struct {
	mu    sync.Mutex
	recs  map[uuid.UUID]rdomain.Recipient
	prefs map[uuid.UUID]rdomain.Preference
}

func newMemRecipients() *memRecipients {
	return &memRecipients{recs: map[uuid.UUID]rdomain.Recipient{}, prefs: map[uuid.UUID]rdomain.Preference{}}
}

func (m *memRecipients) add(email string, roles ...string) rdomain.Recipient {
	m.mu.Lock()
	defer m.mu.Unlock()
	r := rdomain.Recipient{ID: uuid.New(), Email: email, FirstName: "Test", LastName: "Aggie", Roles: roles, IsActive: true}
	m.recs[r.ID] = r
	return r
}

func (m *memRecipients) optOut(id uuid.UUID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prefs[id] = rdomain.Preference{RecipientID: id, EmailEnabled: false}
}

func (m *memRecipients) unsubscribe(id uuid.UUID, category string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.prefs[id]
	if !ok {
		p = rdomain.Preference{RecipientID: id, EmailEnabled: true}
	}
	p.UnsubscribedCategories = append(p.UnsubscribedCategories, category)
	m.prefs[id] = p
}

func (m *memRecipients) GetByID(ctx context.Context, id uuid.UUID) (*rdomain.Recipient, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.recs[id]; ok {
		cp := r
		return &cp, nil
	}
	return nil, nil
}

func (m *memRecipients) ListByRoles(ctx context.Context, roles []string) ([]rdomain.Recipient, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []rdomain.Recipient
	for _, r := range m.recs {
		if r.IsActive && r.HasRole(roles) {
			out = append(out, r)
		}
	}
	sortRecipients(out)
	return out, nil
}

func (m *memRecipients) ListEmailEnabled(ctx context.Context, roles []string) ([]rdomain.Recipient, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []rdomain.Recipient
	for _, r := range m.recs {
		if !r.IsActive || !r.HasRole(roles) {
			continue
		}
		if p, ok := m.prefs[r.ID]; ok && !p.EmailEnabled {
			continue
		}
		out = append(out, r)
	}
	sortRecipients(out)
	return out, nil
}

func sortRecipients(rs []rdomain.Recipient) {
	sort.Slice(rs, func(i, j int) bool { return rs[i].Email < rs[j].Email })
}

func (m *memRecipients) GetPreference(ctx context.Context, id uuid.UUID) (*rdomain.Preference, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.prefs[id]; ok {
		cp := p
		return &cp, nil
	}
	return nil, nil
}

func (m *memRecipients) UpsertPreference(ctx context.Context, p rdomain.Preference) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prefs[p.RecipientID] = p
	return nil
}

// memListings implements the listings repository and the resolver's checker.
type memListings struct {
	mu       sync.Mutex
	listings map[uuid.UUID]ldomain.Listing
}

func newMemListings() *memListings {
	return &memListings{listings: map[uuid.UUID]ldomain.Listing{}}
}

func (m *memListings) add(title string, roles ...string) ldomain.Listing {
	m.mu.Lock()
	defer m.mu.Unlock()
	l := ldomain.Listing{ID: uuid.New(), Title: title, Description: "desc", Location: "MSC", StartsAt: time.Now().Add(48 * time.Hour), AudienceRoles: roles}
	m.listings[l.ID] = l
	return l
}

func (m *memListings) Create(ctx context.Context, l ldomain.Listing) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listings[l.ID] = l
	return nil
}

func (m *memListings) GetByID(ctx context.Context, id uuid.UUID) (*ldomain.Listing, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if l, ok := m.listings[id]; ok {
		cp := l
		return &cp, nil
	}
	return nil, nil
}

func (m *memListings) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.listings[id]
	return ok, nil
}

// fakeSender captures sends and fails on demand.
type fakeSender struct {
	mu         sync.Mutex
	sent       []string // recipient emails in send order
	failFor    map[string]error
	blockOnCtx bool
}

func newFakeSender() *fakeSender {
	return &fakeSender{failFor: map[string]error{}}
}

func (f *fakeSender) Send(ctx context.Context, to, subject, body string) error {
	if f.blockOnCtx {
		<-ctx.Done()
		return ctx.Err()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.failFor[to]; ok {
		return err
	}
	f.sent = append(f.sent, to)
	return nil
}

func (f *fakeSender) order() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.sent...)
}
