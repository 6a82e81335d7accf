package command

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hacklabs/hacklabs-platform/internal/domain/activity"
	"github.com/hacklabs/hacklabs-platform/internal/domain/learning"
	"github.com/hacklabs/hacklabs-platform/internal/domain/profile"
	"github.com/hacklabs/hacklabs-platform/internal/domain/shared"
)

// In-memory fakes for the command handlers. Error fields inject failures
// per call site so tests can exercise the best-effort paths.

// ─── Profiles ─────────────────────────────────────────────────────────────────

type fakeProfileRepo struct {
	mu   sync.Mutex
	byID map[string]*profile.Profile

	createErr error
	lookupErr error
	relinkErr error

	// lookupMisses makes the next N lookups report not-found regardless of
	// contents, to simulate a concurrent insert landing between lookup and
	// create.
	lookupMisses int
}

func newFakeProfileRepo() *fakeProfileRepo {
	return &fakeProfileRepo{byID: make(map[string]*profile.Profile)}
}

func (r *fakeProfileRepo) Create(_ context.Context, p *profile.Profile) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	for _, existing := range r.byID {
		if existing.Email == p.Email {
			return shared.ErrProfileAlreadyExists
		}
	}
	p.ID = uuid.NewString()
	r.byID[p.ID] = p.Clone()
	return nil
}

func (r *fakeProfileRepo) GetByID(_ context.Context, id string) (*profile.Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.byID[id]; ok {
		return p.Clone(), nil
	}
	return nil, shared.ErrProfileNotFound
}

func (r *fakeProfileRepo) GetByEmail(_ context.Context, email string) (*profile.Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.lookupErr != nil {
		return nil, r.lookupErr
	}
	if r.lookupMisses > 0 {
		r.lookupMisses--
		return nil, shared.ErrProfileNotFound
	}
	for _, p := range r.byID {
		if p.Email == email {
			return p.Clone(), nil
		}
	}
	return nil, shared.ErrProfileNotFound
}

func (r *fakeProfileRepo) GetByExternalID(_ context.Context, externalID string) (*profile.Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.lookupErr != nil {
		return nil, r.lookupErr
	}
	for _, p := range r.byID {
		if p.ExternalID == externalID {
			return p.Clone(), nil
		}
	}
	return nil, shared.ErrProfileNotFound
}

func (r *fakeProfileRepo) Relink(_ context.Context, profileID, externalID string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.relinkErr != nil {
		return r.relinkErr
	}
	p, ok := r.byID[profileID]
	if !ok {
		return shared.ErrProfileNotFound
	}
	p.ExternalID = externalID
	p.UpdatedAt = at
	return nil
}

func (r *fakeProfileRepo) seed(p *profile.Profile) *profile.Profile {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	r.byID[p.ID] = p
	return p
}

// ─── Dependents ───────────────────────────────────────────────────────────────

type fakeDependentRepo struct {
	mu            sync.Mutex
	scores        map[string]*profile.SkillScores
	subscriptions map[string]*profile.Subscription

	scoresErr       error
	subscriptionErr error
}

func newFakeDependentRepo() *fakeDependentRepo {
	return &fakeDependentRepo{
		scores:        make(map[string]*profile.SkillScores),
		subscriptions: make(map[string]*profile.Subscription),
	}
}

func (r *fakeDependentRepo) HasSkillScores(_ context.Context, profileID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.scores[profileID]
	return ok, nil
}

func (r *fakeDependentRepo) CreateSkillScores(_ context.Context, s *profile.SkillScores) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.scoresErr != nil {
		return r.scoresErr
	}
	if _, ok := r.scores[s.ProfileID]; ok {
		return shared.ErrAlreadyExists
	}
	r.scores[s.ProfileID] = s
	return nil
}

func (r *fakeDependentRepo) GetSkillScores(_ context.Context, profileID string) (*profile.SkillScores, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.scores[profileID]; ok {
		return s, nil
	}
	return nil, shared.ErrSkillScoresNotFound
}

func (r *fakeDependentRepo) HasSubscription(_ context.Context, profileID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.subscriptions[profileID]
	return ok, nil
}

func (r *fakeDependentRepo) CreateSubscription(_ context.Context, s *profile.Subscription) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.subscriptionErr != nil {
		return r.subscriptionErr
	}
	if _, ok := r.subscriptions[s.ProfileID]; ok {
		return shared.ErrAlreadyExists
	}
	s.ID = uuid.NewString()
	r.subscriptions[s.ProfileID] = s
	return nil
}

func (r *fakeDependentRepo) GetSubscription(_ context.Context, profileID string) (*profile.Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.subscriptions[profileID]; ok {
		return s, nil
	}
	return nil, shared.ErrSubscriptionNotFound
}

// ─── Sweep queries ────────────────────────────────────────────────────────────

type fakeSweepRepo struct {
	profiles   *fakeProfileRepo
	dependents *fakeDependentRepo
}

func (r *fakeSweepRepo) FindMissingSkillScores(_ context.Context, limit int) ([]*profile.Profile, error) {
	r.profiles.mu.Lock()
	defer r.profiles.mu.Unlock()
	var out []*profile.Profile
	for id, p := range r.profiles.byID {
		if _, ok := r.dependents.scores[id]; !ok && len(out) < limit {
			out = append(out, p.Clone())
		}
	}
	return out, nil
}

func (r *fakeSweepRepo) FindMissingSubscription(_ context.Context, limit int) ([]*profile.Profile, error) {
	r.profiles.mu.Lock()
	defer r.profiles.mu.Unlock()
	var out []*profile.Profile
	for id, p := range r.profiles.byID {
		if _, ok := r.dependents.subscriptions[id]; !ok && len(out) < limit {
			out = append(out, p.Clone())
		}
	}
	return out, nil
}

// ─── Activity log ─────────────────────────────────────────────────────────────

type fakeActivityRepo struct {
	mu        sync.Mutex
	entries   []*activity.Entry
	appendErr error
}

func (r *fakeActivityRepo) Append(_ context.Context, e *activity.Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.appendErr != nil {
		return r.appendErr
	}
	e.ID = uuid.NewString()
	r.entries = append(r.entries, e)
	return nil
}

func (r *fakeActivityRepo) ListByProfile(_ context.Context, profileID string, limit int) ([]*activity.Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*activity.Entry
	for i := len(r.entries) - 1; i >= 0 && len(out) < limit; i-- {
		if r.entries[i].ProfileID == profileID {
			out = append(out, r.entries[i])
		}
	}
	return out, nil
}

func (r *fakeActivityRepo) HasType(_ context.Context, profileID, activityType string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.entries {
		if e.ProfileID == profileID && e.Type == activityType {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeActivityRepo) typesFor(profileID string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, e := range r.entries {
		if e.ProfileID == profileID {
			out = append(out, e.Type)
		}
	}
	return out
}

// ─── Catalog ──────────────────────────────────────────────────────────────────

type fakeCatalog struct {
	units   map[string]*learning.Unit
	modules map[string][]*learning.Module
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{
		units:   make(map[string]*learning.Unit),
		modules: make(map[string][]*learning.Module),
	}
}

func (c *fakeCatalog) addUnit(id string, unitType learning.UnitType, moduleCount int) {
	c.units[id] = &learning.Unit{ID: id, Type: unitType, Title: "Unit " + id}
	for i := 0; i < moduleCount; i++ {
		c.modules[id] = append(c.modules[id], &learning.Module{
			ID:       fmt.Sprintf("%s-m%d", id, i+1),
			UnitID:   id,
			Position: i + 1,
		})
	}
}

func (c *fakeCatalog) GetUnit(_ context.Context, unitID string) (*learning.Unit, error) {
	if u, ok := c.units[unitID]; ok {
		return u, nil
	}
	return nil, shared.ErrUnitNotFound
}

func (c *fakeCatalog) ListModules(_ context.Context, unitID string) ([]*learning.Module, error) {
	return c.modules[unitID], nil
}

func (c *fakeCatalog) CountModules(_ context.Context, unitID string) (int, error) {
	return len(c.modules[unitID]), nil
}

func (c *fakeCatalog) ModuleBelongsToUnit(_ context.Context, unitID, moduleID string) (bool, error) {
	for _, m := range c.modules[unitID] {
		if m.ID == moduleID {
			return true, nil
		}
	}
	return false, nil
}

// ─── Enrollments ──────────────────────────────────────────────────────────────

type fakeEnrollmentRepo struct {
	mu   sync.Mutex
	rows map[string]*learning.Enrollment
}

func newFakeEnrollmentRepo() *fakeEnrollmentRepo {
	return &fakeEnrollmentRepo{rows: make(map[string]*learning.Enrollment)}
}

func enrollmentKey(profileID, unitID string) string {
	return profileID + "/" + unitID
}

func (r *fakeEnrollmentRepo) Upsert(_ context.Context, e *learning.Enrollment) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := enrollmentKey(e.ProfileID, e.UnitID)
	if existing, ok := r.rows[key]; ok {
		*e = *existing
		return false, nil
	}
	e.ID = uuid.NewString()
	stored := *e
	r.rows[key] = &stored
	return true, nil
}

func (r *fakeEnrollmentRepo) Get(_ context.Context, profileID, unitID string) (*learning.Enrollment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.rows[enrollmentKey(profileID, unitID)]; ok {
		cp := *e
		return &cp, nil
	}
	return nil, shared.ErrEnrollmentNotFound
}

func (r *fakeEnrollmentRepo) ListByProfile(_ context.Context, profileID string) ([]*learning.Enrollment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*learning.Enrollment
	for _, e := range r.rows {
		if e.ProfileID == profileID {
			cp := *e
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakeEnrollmentRepo) UpdateProgress(_ context.Context, enrollmentID string, percentage int, _ time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.rows {
		if e.ID == enrollmentID {
			e.ProgressPercentage = percentage
			return nil
		}
	}
	return shared.ErrEnrollmentNotFound
}

// ─── Module progress ──────────────────────────────────────────────────────────

type fakeProgressRepo struct {
	mu   sync.Mutex
	rows map[string]*learning.ModuleProgress
}

func newFakeProgressRepo() *fakeProgressRepo {
	return &fakeProgressRepo{rows: make(map[string]*learning.ModuleProgress)}
}

func (r *fakeProgressRepo) Upsert(_ context.Context, mp *learning.ModuleProgress) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := mp.ProfileID + "/" + mp.UnitID + "/" + mp.ModuleID
	r.rows[key] = mp
	return nil
}

func (r *fakeProgressRepo) ListByUnit(_ context.Context, profileID, unitID string) ([]*learning.ModuleProgress, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*learning.ModuleProgress
	for _, mp := range r.rows {
		if mp.ProfileID == profileID && mp.UnitID == unitID {
			out = append(out, mp)
		}
	}
	return out, nil
}

// ─── Event bus ────────────────────────────────────────────────────────────────

type fakeBus struct {
	mu     sync.Mutex
	events []shared.Event
}

func (b *fakeBus) Publish(event shared.Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, event)
	return nil
}

func (b *fakeBus) types() []shared.EventType {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []shared.EventType
	for _, e := range b.events {
		out = append(out, e.EventType())
	}
	return out
}
