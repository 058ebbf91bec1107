package claims

import (
	"context"
	"errors"
	"fmt"

	"github.com/ginja/claims-api/internal/domain/catalog"
	"github.com/ginja/claims-api/internal/domain/member"
	"github.com/ginja/claims-api/internal/domain/provider"
)

// RejectCode identifies why a claim was rejected. The set is closed so
// callers can switch over it exhaustively.
type RejectCode string

const (
	RejectMemberNotFound    RejectCode = "MEMBER_NOT_FOUND"
	RejectMemberIneligible  RejectCode = "MEMBER_INELIGIBLE"
	RejectBenefitExhausted  RejectCode = "BENEFIT_EXHAUSTED"
	RejectProviderNotFound  RejectCode = "PROVIDER_NOT_FOUND"
	RejectProviderInactive  RejectCode = "PROVIDER_INACTIVE"
	RejectDiagnosisNotFound RejectCode = "DIAGNOSIS_NOT_FOUND"
	RejectProcedureNotFound RejectCode = "PROCEDURE_NOT_FOUND"
	RejectFraudSuspected    RejectCode = "FRAUD_SUSPECTED"
)

// Rejection is a terminal gate outcome: the claim is recorded as REJECTED
// with Reason preserved for the audit trail. Rejections are values, not
// errors; infrastructure failures travel on the error path instead.
type Rejection struct {
	Code   RejectCode
	Reason string
}

// Decision is the outcome of adjudicating a claim request. Exactly one of
// the terminal statuses is set. FraudReason is non-empty iff FraudFlag is
// set; Rejection is non-nil iff Status is REJECTED.
type Decision struct {
	Status         Status
	ApprovedAmount float64
	FraudFlag      bool
	FraudReason    string
	Rejection      *Rejection
}

// ReasonText is the note persisted on the claim's fraud_reason column:
// the fraud message when the claim was flagged, otherwise the gate
// rejection reason, otherwise empty.
func (d *Decision) ReasonText() string {
	if d.FraudReason != "" {
		return d.FraudReason
	}
	if d.Rejection != nil {
		return d.Rejection.Reason
	}
	return ""
}

// AdjudicationRequest carries the claim fields the validation pipeline
// reads. Inputs are pre-validated by the service (non-empty references,
// positive amount).
type AdjudicationRequest struct {
	MemberID      string
	ProviderID    string
	DiagnosisCode string
	ProcedureCode string
	ClaimAmount   float64
}

// MemberStore is the member port the engine requires from storage.
type MemberStore interface {
	GetByID(ctx context.Context, id string) (*member.Member, error)
	IncrementUsedBenefit(ctx context.Context, id string, amount float64) error
}

// ProviderStore is the provider port the engine requires from storage.
type ProviderStore interface {
	GetByID(ctx context.Context, id string) (*provider.Provider, error)
}

// CatalogStore is the medical-code port the engine requires from storage.
type CatalogStore interface {
	GetDiagnosis(ctx context.Context, code string) (*catalog.Diagnosis, error)
	GetProcedure(ctx context.Context, code string) (*catalog.Procedure, error)
}

// Validator runs the ordered validation gates and derives the approval
// decision. It performs reads only; the benefit mutation and persistence
// belong to the Service.
type Validator struct {
	members   MemberStore
	providers ProviderStore
	catalog   CatalogStore
}

func NewValidator(members MemberStore, providers ProviderStore, cat CatalogStore) *Validator {
	return &Validator{members: members, providers: providers, catalog: cat}
}

// pipelineState accumulates the entities resolved by earlier gates for use
// by later stages.
type pipelineState struct {
	member    *member.Member
	procedure *catalog.Procedure
}

type gate func(ctx context.Context, req AdjudicationRequest, st *pipelineState) (*Rejection, error)

// Adjudicate runs the gates in order. The first rejecting gate terminates
// the pipeline; no later gate runs. Once all gates pass, the fraud signal
// is evaluated and the approval decision derived. An error means the
// adjudication did not complete (infrastructure failure) and no decision
// exists.
func (v *Validator) Adjudicate(ctx context.Context, req AdjudicationRequest) (*Decision, error) {
	var st pipelineState
	gates := []gate{v.memberGate, v.providerGate, v.codesGate}
	for _, g := range gates {
		rej, err := g(ctx, req, &st)
		if err != nil {
			return nil, err
		}
		if rej != nil {
			return &Decision{Status: StatusRejected, Rejection: rej}, nil
		}
	}

	flagged, fraudReason := EvaluateFraud(req.ClaimAmount, st.procedure.AverageCost)
	status, approved := DecideApproval(req.ClaimAmount, st.member.RemainingBenefit(), flagged)

	d := &Decision{
		Status:         status,
		ApprovedAmount: approved,
		FraudFlag:      flagged,
		FraudReason:    fraudReason,
	}
	if status == StatusRejected {
		d.Rejection = &Rejection{Code: RejectFraudSuspected, Reason: fraudReason}
	}
	return d, nil
}

// memberGate checks the member exists, is ACTIVE, and has benefit left.
func (v *Validator) memberGate(ctx context.Context, req AdjudicationRequest, st *pipelineState) (*Rejection, error) {
	m, err := v.members.GetByID(ctx, req.MemberID)
	if errors.Is(err, member.ErrNotFound) {
		return &Rejection{
			Code:   RejectMemberNotFound,
			Reason: fmt.Sprintf("Member %s not found", req.MemberID),
		}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("fetch member %s: %w", req.MemberID, err)
	}
	if m.Status != member.StatusActive {
		return &Rejection{
			Code:   RejectMemberIneligible,
			Reason: fmt.Sprintf("Member %s is not active (status: %s)", m.ID, m.Status),
		}, nil
	}
	if m.RemainingBenefit() <= 0 {
		return &Rejection{
			Code:   RejectBenefitExhausted,
			Reason: fmt.Sprintf("Member %s has exhausted benefit limit", m.ID),
		}, nil
	}
	st.member = m
	return nil, nil
}

// providerGate checks the provider exists and is active.
func (v *Validator) providerGate(ctx context.Context, req AdjudicationRequest, st *pipelineState) (*Rejection, error) {
	p, err := v.providers.GetByID(ctx, req.ProviderID)
	if errors.Is(err, provider.ErrNotFound) {
		return &Rejection{
			Code:   RejectProviderNotFound,
			Reason: fmt.Sprintf("Provider %s not found", req.ProviderID),
		}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("fetch provider %s: %w", req.ProviderID, err)
	}
	if !p.IsActive {
		return &Rejection{
			Code:   RejectProviderInactive,
			Reason: fmt.Sprintf("Provider %s is not active", p.ID),
		}, nil
	}
	return nil, nil
}

// codesGate checks both medical codes resolve; the procedure is retained
// for the fraud evaluation.
func (v *Validator) codesGate(ctx context.Context, req AdjudicationRequest, st *pipelineState) (*Rejection, error) {
	if _, err := v.catalog.GetDiagnosis(ctx, req.DiagnosisCode); err != nil {
		if errors.Is(err, catalog.ErrDiagnosisNotFound) {
			return &Rejection{
				Code:   RejectDiagnosisNotFound,
				Reason: fmt.Sprintf("Diagnosis code %s not found", req.DiagnosisCode),
			}, nil
		}
		return nil, fmt.Errorf("fetch diagnosis %s: %w", req.DiagnosisCode, err)
	}

	p, err := v.catalog.GetProcedure(ctx, req.ProcedureCode)
	if err != nil {
		if errors.Is(err, catalog.ErrProcedureNotFound) {
			return &Rejection{
				Code:   RejectProcedureNotFound,
				Reason: fmt.Sprintf("Procedure code %s not found", req.ProcedureCode),
			}, nil
		}
		return nil, fmt.Errorf("fetch procedure %s: %w", req.ProcedureCode, err)
	}
	st.procedure = p
	return nil, nil
}

// DecideApproval derives the terminal status and payable amount from the
// claim amount, the member's remaining benefit and the fraud flag:
//
//   - flagged and the claim exceeds the remaining benefit: REJECTED, 0
//   - the claim exceeds the remaining benefit: PARTIAL, up to the remainder
//   - otherwise: APPROVED in full
//
// A flagged claim that fits within the remaining benefit is approved with
// the flag recorded as informational data. Both comparisons are strictly
// greater-than: a claim equal to the remaining benefit is approved in full.
func DecideApproval(claimAmount, remainingBenefit float64, fraudFlag bool) (Status, float64) {
	if fraudFlag && claimAmount > remainingBenefit {
		return StatusRejected, 0
	}
	if claimAmount > remainingBenefit {
		return StatusPartial, remainingBenefit
	}
	return StatusApproved, claimAmount
}
