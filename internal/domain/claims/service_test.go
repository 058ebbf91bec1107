package claims

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/ginja/claims-api/internal/domain/member"
)

// passthroughTxRunner runs fn without a real database transaction.
type passthroughTxRunner struct{}

func (passthroughTxRunner) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// mockClaimsRepo is a map-backed claims repository.
type mockClaimsRepo struct {
	mu     sync.Mutex
	claims map[uuid.UUID]*Claim
}

func newMockClaimsRepo() *mockClaimsRepo {
	return &mockClaimsRepo{claims: make(map[uuid.UUID]*Claim)}
}

func (r *mockClaimsRepo) Create(ctx context.Context, c *Claim) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *c
	r.claims[c.ID] = &cp
	return nil
}

func (r *mockClaimsRepo) GetByID(ctx context.Context, id uuid.UUID) (*Claim, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.claims[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (r *mockClaimsRepo) List(ctx context.Context, filter ListFilter, limit, offset int) ([]*Claim, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var items []*Claim
	for _, c := range r.claims {
		if filter.MemberID != "" && c.MemberID != filter.MemberID {
			continue
		}
		if filter.ProviderID != "" && c.ProviderID != filter.ProviderID {
			continue
		}
		if filter.Status != "" && c.Status != filter.Status {
			continue
		}
		cp := *c
		items = append(items, &cp)
	}
	return items, len(items), nil
}

func (r *mockClaimsRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.claims)
}

func validInput() SubmitClaimInput {
	return SubmitClaimInput{
		MemberID:      "M123",
		ProviderID:    "H456",
		DiagnosisCode: "D001",
		ProcedureCode: "P001",
		ClaimAmount:   5000,
	}
}

func newTestService(members *mockMemberStore) (*Service, *mockClaimsRepo) {
	providers := newMockProviderStore(activeProvider("H456"))
	cat := newMockCatalogStore().addDiagnosis("D001", "Malaria").addProcedure("P001", "Consultation", 5000)
	repo := newMockClaimsRepo()
	svc := NewService(repo, members, NewValidator(members, providers, cat), passthroughTxRunner{})
	return svc, repo
}

func TestSubmitClaim_Approved(t *testing.T) {
	members := newMockMemberStore(activeMember("M123", 100000, 0))
	svc, repo := newTestService(members)

	c, err := svc.SubmitClaim(context.Background(), validInput())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Status != StatusApproved {
		t.Errorf("expected APPROVED, got %s", c.Status)
	}
	if c.ApprovedAmount != 5000 {
		t.Errorf("expected approved amount 5000, got %.2f", c.ApprovedAmount)
	}
	if c.ProcessedAt == nil {
		t.Error("expected processed_at to be set")
	}
	if c.ID == uuid.Nil {
		t.Error("expected claim id to be assigned")
	}
	if c.FraudReason != nil {
		t.Errorf("expected no fraud reason, got %q", *c.FraudReason)
	}

	// Benefit was consumed
	if members.members["M123"].UsedBenefit != 5000 {
		t.Errorf("expected used benefit 5000, got %.2f", members.members["M123"].UsedBenefit)
	}

	// The claim is retrievable
	got, err := repo.GetByID(context.Background(), c.ID)
	if err != nil {
		t.Fatalf("expected persisted claim: %v", err)
	}
	if got.Status != StatusApproved {
		t.Errorf("persisted status = %s, want APPROVED", got.Status)
	}
}

func TestSubmitClaim_RejectionIsPersisted(t *testing.T) {
	// Gate rejections still leave a claim row with the reason recorded.
	members := newMockMemberStore()
	svc, repo := newTestService(members)

	c, err := svc.SubmitClaim(context.Background(), validInput())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Status != StatusRejected {
		t.Fatalf("expected REJECTED, got %s", c.Status)
	}
	if c.ApprovedAmount != 0 {
		t.Errorf("expected approved amount 0, got %.2f", c.ApprovedAmount)
	}
	if c.FraudFlag {
		t.Error("gate rejection must not set the fraud flag")
	}
	if c.FraudReason == nil || *c.FraudReason != "Member M123 not found" {
		t.Errorf("expected rejection reason in fraud_reason, got %v", c.FraudReason)
	}
	if repo.count() != 1 {
		t.Errorf("expected 1 persisted claim, got %d", repo.count())
	}
}

func TestSubmitClaim_FraudRejectionPersisted(t *testing.T) {
	members := newMockMemberStore(activeMember("M124", 50000, 45000))
	svc, repo := newTestService(members)

	in := validInput()
	in.MemberID = "M124"
	in.ClaimAmount = 20000
	c, err := svc.SubmitClaim(context.Background(), in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Status != StatusRejected {
		t.Fatalf("expected REJECTED, got %s", c.Status)
	}
	if !c.FraudFlag {
		t.Error("expected fraud flag to be set")
	}
	if c.FraudReason == nil {
		t.Fatal("expected fraud reason to be set")
	}
	// No benefit consumed on rejection
	if members.members["M124"].UsedBenefit != 45000 {
		t.Errorf("expected used benefit unchanged, got %.2f", members.members["M124"].UsedBenefit)
	}
	if repo.count() != 1 {
		t.Errorf("expected 1 persisted claim, got %d", repo.count())
	}
}

func TestSubmitClaim_PartialConsumesRemainder(t *testing.T) {
	members := newMockMemberStore(activeMember("M124", 50000, 45000))
	svc, _ := newTestService(members)

	in := validInput()
	in.MemberID = "M124"
	in.ClaimAmount = 8000
	c, err := svc.SubmitClaim(context.Background(), in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Status != StatusPartial {
		t.Fatalf("expected PARTIAL, got %s", c.Status)
	}
	if c.ApprovedAmount != 5000 {
		t.Errorf("expected approved amount 5000, got %.2f", c.ApprovedAmount)
	}
	if members.members["M124"].UsedBenefit != 50000 {
		t.Errorf("expected benefit fully consumed, got %.2f", members.members["M124"].UsedBenefit)
	}
}

func TestSubmitClaim_InputValidation(t *testing.T) {
	members := newMockMemberStore(activeMember("M123", 100000, 0))
	svc, repo := newTestService(members)

	tests := []struct {
		name   string
		mutate func(*SubmitClaimInput)
	}{
		{"missing member", func(in *SubmitClaimInput) { in.MemberID = "" }},
		{"missing provider", func(in *SubmitClaimInput) { in.ProviderID = "" }},
		{"missing diagnosis", func(in *SubmitClaimInput) { in.DiagnosisCode = "" }},
		{"missing procedure", func(in *SubmitClaimInput) { in.ProcedureCode = "" }},
		{"zero amount", func(in *SubmitClaimInput) { in.ClaimAmount = 0 }},
		{"negative amount", func(in *SubmitClaimInput) { in.ClaimAmount = -100 }},
		{"over maximum", func(in *SubmitClaimInput) { in.ClaimAmount = 1000000.01 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := validInput()
			tt.mutate(&in)
			_, err := svc.SubmitClaim(context.Background(), in)
			if !errors.Is(err, ErrInvalidInput) {
				t.Errorf("expected ErrInvalidInput, got %v", err)
			}
		})
	}
	if repo.count() != 0 {
		t.Errorf("invalid inputs must not persist claims, got %d rows", repo.count())
	}
}

func TestSubmitClaim_MaxAmountAccepted(t *testing.T) {
	members := newMockMemberStore(activeMember("M123", 2000000, 0))
	svc, _ := newTestService(members)

	in := validInput()
	in.ClaimAmount = 1000000.00
	// The mock procedure average is 5000 so this claim is flagged, but it
	// fits within the benefit and must not fail validation.
	c, err := svc.SubmitClaim(context.Background(), in)
	if err != nil {
		t.Fatalf("unexpected error at the maximum amount: %v", err)
	}
	if c.Status != StatusApproved {
		t.Errorf("expected APPROVED, got %s", c.Status)
	}
}

// contentionMemberStore fails the benefit reservation a fixed number of
// times before delegating, simulating concurrent submissions winning the
// conditional update race.
type contentionMemberStore struct {
	*mockMemberStore
	mu       sync.Mutex
	failures int
	attempts int
}

func (s *contentionMemberStore) IncrementUsedBenefit(ctx context.Context, id string, amount float64) error {
	s.mu.Lock()
	s.attempts++
	fail := s.attempts <= s.failures
	s.mu.Unlock()
	if fail {
		return member.ErrBenefitExceeded
	}
	return s.mockMemberStore.IncrementUsedBenefit(ctx, id, amount)
}

func TestSubmitClaim_RetriesOnContention(t *testing.T) {
	base := newMockMemberStore(activeMember("M123", 100000, 0))
	store := &contentionMemberStore{mockMemberStore: base, failures: 2}
	providers := newMockProviderStore(activeProvider("H456"))
	cat := newMockCatalogStore().addDiagnosis("D001", "Malaria").addProcedure("P001", "Consultation", 5000)
	repo := newMockClaimsRepo()
	svc := NewService(repo, store, NewValidator(store, providers, cat), passthroughTxRunner{})

	c, err := svc.SubmitClaim(context.Background(), validInput())
	if err != nil {
		t.Fatalf("expected success after retries, got %v", err)
	}
	if c.Status != StatusApproved {
		t.Errorf("expected APPROVED, got %s", c.Status)
	}
	if store.attempts != 3 {
		t.Errorf("expected 3 reservation attempts, got %d", store.attempts)
	}
	if repo.count() != 1 {
		t.Errorf("expected exactly 1 persisted claim, got %d", repo.count())
	}
}

func TestSubmitClaim_ContentionExhaustsRetries(t *testing.T) {
	base := newMockMemberStore(activeMember("M123", 100000, 0))
	store := &contentionMemberStore{mockMemberStore: base, failures: 100}
	providers := newMockProviderStore(activeProvider("H456"))
	cat := newMockCatalogStore().addDiagnosis("D001", "Malaria").addProcedure("P001", "Consultation", 5000)
	repo := newMockClaimsRepo()
	svc := NewService(repo, store, NewValidator(store, providers, cat), passthroughTxRunner{})

	_, err := svc.SubmitClaim(context.Background(), validInput())
	if !errors.Is(err, ErrBalanceContention) {
		t.Fatalf("expected ErrBalanceContention, got %v", err)
	}
	if store.attempts != 3 {
		t.Errorf("expected exactly 3 attempts, got %d", store.attempts)
	}
	if repo.count() != 0 {
		t.Errorf("no claim row may exist after exhausted retries, got %d", repo.count())
	}
}

func TestSubmitClaim_ConcurrentNeverOverdraws(t *testing.T) {
	members := newMockMemberStore(activeMember("M123", 10000, 0))
	svc, _ := newTestService(members)

	// 8 concurrent claims of 4000 against a 10000 limit: at most two can be
	// approved in full, the rest go PARTIAL or get rejected downstream.
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			in := validInput()
			in.ClaimAmount = 4000
			_, _ = svc.SubmitClaim(context.Background(), in)
		}()
	}
	wg.Wait()

	members.mu.Lock()
	used := members.members["M123"].UsedBenefit
	members.mu.Unlock()
	if used > 10000 {
		t.Errorf("used benefit %.2f exceeds the limit 10000", used)
	}
}

func TestGetClaim_NotFound(t *testing.T) {
	members := newMockMemberStore(activeMember("M123", 100000, 0))
	svc, _ := newTestService(members)

	_, err := svc.GetClaim(context.Background(), uuid.New())
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestListClaims_InvalidStatus(t *testing.T) {
	members := newMockMemberStore(activeMember("M123", 100000, 0))
	svc, _ := newTestService(members)

	_, _, err := svc.ListClaims(context.Background(), ListFilter{Status: "BOGUS"}, 20, 0)
	if !errors.Is(err, ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}

func TestListClaims_FilterByMember(t *testing.T) {
	members := newMockMemberStore(
		activeMember("M123", 100000, 0),
		activeMember("M124", 100000, 0),
	)
	svc, _ := newTestService(members)

	for _, id := range []string{"M123", "M123", "M124"} {
		in := validInput()
		in.MemberID = id
		if _, err := svc.SubmitClaim(context.Background(), in); err != nil {
			t.Fatalf("submit failed: %v", err)
		}
	}

	items, total, err := svc.ListClaims(context.Background(), ListFilter{MemberID: "M123"}, 20, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 2 || len(items) != 2 {
		t.Errorf("expected 2 claims for M123, got total=%d len=%d", total, len(items))
	}
}
