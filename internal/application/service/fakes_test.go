package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/garyjia/claim-lifecycle/internal/application/port"
	"github.com/garyjia/claim-lifecycle/internal/domain/entity"
	"github.com/garyjia/claim-lifecycle/internal/domain/workflow"
)

// fakeClaimRepo stores copies so every read is a fresh snapshot.
type fakeClaimRepo struct {
	mu       sync.Mutex
	claims   map[int64]*entity.Claim
	nextID   int64
	reads    int
	writes   int
	getErr   error
	countErr error
	// beforeUpdate runs inside UpdateStatus, before the version check.
	beforeUpdate func()
}

func newFakeClaimRepo() *fakeClaimRepo {
	return &fakeClaimRepo{claims: make(map[int64]*entity.Claim), nextID: 1}
}

func cloneClaim(c *entity.Claim) *entity.Claim {
	cp := *c
	cp.LineItems = append([]entity.LineItem(nil), c.LineItems...)
	cp.Documents = append([]entity.SupportingDocument(nil), c.Documents...)
	return &cp
}

func (r *fakeClaimRepo) put(c *entity.Claim) *entity.Claim {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c.ID == 0 {
		c.ID = r.nextID
		r.nextID++
	}
	if c.Version == 0 {
		c.Version = 1
	}
	r.claims[c.ID] = cloneClaim(c)
	return c
}

func (r *fakeClaimRepo) stored(id int64) *entity.Claim {
	r.mu.Lock()
	defer r.mu.Unlock()
	return cloneClaim(r.claims[id])
}

func (r *fakeClaimRepo) Create(ctx context.Context, claim *entity.Claim) error {
	r.mu.Lock()
	r.writes++
	r.mu.Unlock()
	claim.Version = 0
	r.put(claim)
	return nil
}

func (r *fakeClaimRepo) GetByID(ctx context.Context, id int64) (*entity.Claim, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reads++
	if r.getErr != nil {
		return nil, r.getErr
	}
	c, ok := r.claims[id]
	if !ok {
		return nil, nil
	}
	return cloneClaim(c), nil
}

func (r *fakeClaimRepo) UpdateStatus(ctx context.Context, claim *entity.Claim) error {
	if r.beforeUpdate != nil {
		r.beforeUpdate()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.writes++
	current, ok := r.claims[claim.ID]
	if !ok || current.Version != claim.Version {
		return port.ErrVersionConflict
	}
	claim.Version++
	r.claims[claim.ID] = cloneClaim(claim)
	return nil
}

func (r *fakeClaimRepo) ListByStatuses(ctx context.Context, statuses []workflow.State) ([]*entity.Claim, error) {
	return r.filter(func(c *entity.Claim) bool { return hasState(statuses, c.Status) }), nil
}

func (r *fakeClaimRepo) ListBySubmitter(ctx context.Context, submitterID int64) ([]*entity.Claim, error) {
	return r.filter(func(c *entity.Claim) bool { return c.SubmitterID == submitterID }), nil
}

func (r *fakeClaimRepo) CountBySubmitterAndStatuses(ctx context.Context, submitterID int64, statuses []workflow.State) (int, error) {
	if r.countErr != nil {
		return 0, r.countErr
	}
	return len(r.filter(func(c *entity.Claim) bool {
		return c.SubmitterID == submitterID && hasState(statuses, c.Status)
	})), nil
}

func (r *fakeClaimRepo) ListByStatusSubmittedBetween(ctx context.Context, status workflow.State, from, to time.Time) ([]*entity.Claim, error) {
	return r.filter(func(c *entity.Claim) bool {
		return c.Status == status && !c.SubmittedAt.Before(from) && c.SubmittedAt.Before(to)
	}), nil
}

func (r *fakeClaimRepo) TotalsByStatus(ctx context.Context, status workflow.State) (*port.ClaimTotals, error) {
	totals := &port.ClaimTotals{}
	for _, c := range r.filter(func(c *entity.Claim) bool { return c.Status == status }) {
		totals.Count++
		totals.AmountCents += c.TotalAmountCents
	}
	return totals, nil
}

func (r *fakeClaimRepo) filter(keep func(c *entity.Claim) bool) []*entity.Claim {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entity.Claim
	for _, c := range r.claims {
		if keep(c) {
			out = append(out, cloneClaim(c))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func hasState(states []workflow.State, s workflow.State) bool {
	for _, st := range states {
		if st == s {
			return true
		}
	}
	return false
}

type fakeSubmitterRepo struct {
	submitters map[int64]*entity.Submitter
	getErr     error
	calls      int
}

func newFakeSubmitterRepo(subs ...*entity.Submitter) *fakeSubmitterRepo {
	r := &fakeSubmitterRepo{submitters: make(map[int64]*entity.Submitter)}
	for _, s := range subs {
		r.submitters[s.ID] = s
	}
	return r
}

func (r *fakeSubmitterRepo) Create(ctx context.Context, s *entity.Submitter) error {
	if s.ID == 0 {
		for id := range r.submitters {
			if id > s.ID {
				s.ID = id
			}
		}
		s.ID++
	}
	r.submitters[s.ID] = s
	return nil
}

func (r *fakeSubmitterRepo) GetByID(ctx context.Context, id int64) (*entity.Submitter, error) {
	r.calls++
	if r.getErr != nil {
		return nil, r.getErr
	}
	s, ok := r.submitters[id]
	if !ok {
		return nil, nil
	}
	cp := *s
	return &cp, nil
}

func (r *fakeSubmitterRepo) List(ctx context.Context) ([]*entity.Submitter, error) {
	out := make([]*entity.Submitter, 0, len(r.submitters))
	for _, s := range r.submitters {
		out = append(out, s)
	}
	return out, nil
}

func (r *fakeSubmitterRepo) UpdateRate(ctx context.Context, id int64, rateCents int64) error {
	s, ok := r.submitters[id]
	if !ok {
		return errors.New("submitter not found")
	}
	s.DefaultRateCents = rateCents
	return nil
}

type fakeHistoryRepo struct {
	entries   []*entity.ApprovalHistory
	createErr error
}

func (r *fakeHistoryRepo) Create(ctx context.Context, h *entity.ApprovalHistory) error {
	if r.createErr != nil {
		return r.createErr
	}
	h.ID = int64(len(r.entries) + 1)
	r.entries = append(r.entries, h)
	return nil
}

func (r *fakeHistoryRepo) GetByClaimID(ctx context.Context, claimID int64) ([]*entity.ApprovalHistory, error) {
	var out []*entity.ApprovalHistory
	for _, h := range r.entries {
		if h.ClaimID == claimID {
			out = append(out, h)
		}
	}
	return out, nil
}

type fakeDocumentRepo struct {
	docs []*entity.SupportingDocument
}

func (r *fakeDocumentRepo) Create(ctx context.Context, d *entity.SupportingDocument) error {
	d.ID = int64(len(r.docs) + 1)
	cp := *d
	r.docs = append(r.docs, &cp)
	return nil
}

func (r *fakeDocumentRepo) GetByClaimID(ctx context.Context, claimID int64) ([]*entity.SupportingDocument, error) {
	var out []*entity.SupportingDocument
	for _, d := range r.docs {
		if d.ClaimID == claimID {
			out = append(out, d)
		}
	}
	return out, nil
}

// fakeTxManager mirrors database/sql: a cancelled context fails the commit.
type fakeTxManager struct {
	calls     int
	commitErr error
}

func (m *fakeTxManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	m.calls++
	if err := fn(ctx); err != nil {
		return err
	}
	if m.commitErr != nil {
		return m.commitErr
	}
	return ctx.Err()
}

type fakeIdentity struct {
	actor entity.Actor
	err   error
	calls int
}

func (f *fakeIdentity) Resolve(ctx context.Context) (entity.Actor, error) {
	f.calls++
	return f.actor, f.err
}

type fakeRenderer struct {
	claims     []*entity.Claim
	submitters map[int64]*entity.Submitter
}

func (f *fakeRenderer) Render(claims []*entity.Claim, submitters map[int64]*entity.Submitter, year, month int) ([]byte, error) {
	f.claims = claims
	f.submitters = submitters
	return []byte("xlsx"), nil
}

type mockLogger struct{}

func (m *mockLogger) Info(msg string, keysAndValues ...interface{})  {}
func (m *mockLogger) Error(msg string, keysAndValues ...interface{}) {}
