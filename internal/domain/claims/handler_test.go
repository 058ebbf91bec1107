package claims

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

func newHandlerTest(members *mockMemberStore) (*Handler, *mockClaimsRepo) {
	svc, repo := newTestService(members)
	return NewHandler(svc), repo
}

func submitRequest(t *testing.T, h *Handler, body string) (*httptest.ResponseRecorder, error) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/claims", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	return rec, h.SubmitClaim(c)
}

func TestHandler_SubmitClaim_Created(t *testing.T) {
	members := newMockMemberStore(activeMember("M123", 100000, 0))
	h, _ := newHandlerTest(members)

	body := `{"member_id":"M123","provider_id":"H456","diagnosis_code":"D001","procedure_code":"P001","claim_amount":5000}`
	rec, err := submitRequest(t, h, body)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var got Claim
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	if got.Status != StatusApproved {
		t.Errorf("expected APPROVED, got %s", got.Status)
	}
	if got.ApprovedAmount != 5000 {
		t.Errorf("expected approved amount 5000, got %.2f", got.ApprovedAmount)
	}
	if got.ProcessedAt == nil {
		t.Error("expected processed_at in response")
	}
}

func TestHandler_SubmitClaim_RejectionIsStill201(t *testing.T) {
	// Business rejections are adjudication outcomes, not request errors.
	members := newMockMemberStore()
	h, _ := newHandlerTest(members)

	body := `{"member_id":"M999","provider_id":"H456","diagnosis_code":"D001","procedure_code":"P001","claim_amount":5000}`
	rec, err := submitRequest(t, h, body)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}

	var got Claim
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	if got.Status != StatusRejected {
		t.Errorf("expected REJECTED, got %s", got.Status)
	}
	if got.FraudReason == nil || *got.FraudReason != "Member M999 not found" {
		t.Errorf("expected rejection reason in response, got %v", got.FraudReason)
	}
}

func TestHandler_SubmitClaim_InvalidInput(t *testing.T) {
	members := newMockMemberStore(activeMember("M123", 100000, 0))
	h, _ := newHandlerTest(members)

	body := `{"member_id":"","provider_id":"H456","diagnosis_code":"D001","procedure_code":"P001","claim_amount":5000}`
	_, err := submitRequest(t, h, body)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok {
		t.Fatalf("expected *echo.HTTPError, got %v", err)
	}
	if httpErr.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", httpErr.Code)
	}
}

func TestHandler_SubmitClaim_Contention(t *testing.T) {
	base := newMockMemberStore(activeMember("M123", 100000, 0))
	store := &contentionMemberStore{mockMemberStore: base, failures: 100}
	providers := newMockProviderStore(activeProvider("H456"))
	cat := newMockCatalogStore().addDiagnosis("D001", "Malaria").addProcedure("P001", "Consultation", 5000)
	svc := NewService(newMockClaimsRepo(), store, NewValidator(store, providers, cat), passthroughTxRunner{})
	h := NewHandler(svc)

	body := `{"member_id":"M123","provider_id":"H456","diagnosis_code":"D001","procedure_code":"P001","claim_amount":5000}`
	_, err := submitRequest(t, h, body)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok {
		t.Fatalf("expected *echo.HTTPError, got %v", err)
	}
	if httpErr.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", httpErr.Code)
	}
}

func TestHandler_GetClaim(t *testing.T) {
	members := newMockMemberStore(activeMember("M123", 100000, 0))
	h, repo := newHandlerTest(members)

	claim := &Claim{ID: uuid.New(), MemberID: "M123", ProviderID: "H456",
		DiagnosisCode: "D001", ProcedureCode: "P001", ClaimAmount: 5000,
		ApprovedAmount: 5000, Status: StatusApproved}
	if err := repo.Create(context.Background(), claim); err != nil {
		t.Fatalf("seed claim: %v", err)
	}

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetPath("/api/v1/claims/:id")
	c.SetParamNames("id")
	c.SetParamValues(claim.ID.String())

	if err := h.GetClaim(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var got Claim
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	if got.ID != claim.ID {
		t.Errorf("expected claim %s, got %s", claim.ID, got.ID)
	}
}

func TestHandler_GetClaim_InvalidID(t *testing.T) {
	members := newMockMemberStore(activeMember("M123", 100000, 0))
	h, _ := newHandlerTest(members)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetParamNames("id")
	c.SetParamValues("not-a-uuid")

	err := h.GetClaim(c)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %v", err)
	}
}

func TestHandler_GetClaim_NotFound(t *testing.T) {
	members := newMockMemberStore(activeMember("M123", 100000, 0))
	h, _ := newHandlerTest(members)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetParamNames("id")
	c.SetParamValues(uuid.New().String())

	err := h.GetClaim(c)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %v", err)
	}
}

func TestHandler_ListClaims(t *testing.T) {
	members := newMockMemberStore(
		activeMember("M123", 100000, 0),
		activeMember("M124", 100000, 0),
	)
	h, repo := newHandlerTest(members)

	for _, id := range []string{"M123", "M123", "M124"} {
		c := &Claim{ID: uuid.New(), MemberID: id, ProviderID: "H456",
			DiagnosisCode: "D001", ProcedureCode: "P001", ClaimAmount: 5000,
			ApprovedAmount: 5000, Status: StatusApproved}
		if err := repo.Create(context.Background(), c); err != nil {
			t.Fatalf("seed claim: %v", err)
		}
	}

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/?member_id=M123", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.ListClaims(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp struct {
		Data  []Claim `json:"data"`
		Total int     `json:"total"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	if resp.Total != 2 || len(resp.Data) != 2 {
		t.Errorf("expected 2 claims for M123, got total=%d len=%d", resp.Total, len(resp.Data))
	}
}

func TestHandler_ListClaims_InvalidStatus(t *testing.T) {
	members := newMockMemberStore(activeMember("M123", 100000, 0))
	h, _ := newHandlerTest(members)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/?status=BOGUS", nil)
	c := e.NewContext(req, httptest.NewRecorder())

	err := h.ListClaims(c)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %v", err)
	}
}
