package claims

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/ginja/claims-api/internal/domain/member"
)

// ErrInvalidInput marks submission inputs rejected before adjudication
// starts. Handlers translate it to a 400.
var ErrInvalidInput = errors.New("invalid claim input")

// ErrBalanceContention is returned when concurrent submissions kept
// invalidating this claim's benefit reservation and the retry budget ran
// out. No claim row exists in that case.
var ErrBalanceContention = errors.New("benefit balance contention")

// MaxClaimAmount caps a single submission.
const MaxClaimAmount = 1_000_000.00

// submitAttempts bounds the optimistic retry loop around the pipeline.
const submitAttempts = 3

// TxRunner runs fn inside a database transaction carried on the context,
// committing on nil and rolling back on error.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// SubmitClaimInput is the request body of a claim submission.
type SubmitClaimInput struct {
	MemberID      string  `json:"member_id"`
	ProviderID    string  `json:"provider_id"`
	DiagnosisCode string  `json:"diagnosis_code"`
	ProcedureCode string  `json:"procedure_code"`
	ClaimAmount   float64 `json:"claim_amount"`
	Notes         *string `json:"notes,omitempty"`
}

func (in SubmitClaimInput) validate() error {
	switch {
	case in.MemberID == "":
		return fmt.Errorf("%w: member_id is required", ErrInvalidInput)
	case in.ProviderID == "":
		return fmt.Errorf("%w: provider_id is required", ErrInvalidInput)
	case in.DiagnosisCode == "":
		return fmt.Errorf("%w: diagnosis_code is required", ErrInvalidInput)
	case in.ProcedureCode == "":
		return fmt.Errorf("%w: procedure_code is required", ErrInvalidInput)
	case in.ClaimAmount <= 0:
		return fmt.Errorf("%w: claim_amount must be positive", ErrInvalidInput)
	case in.ClaimAmount > MaxClaimAmount:
		return fmt.Errorf("%w: claim_amount exceeds maximum of %.2f", ErrInvalidInput, float64(MaxClaimAmount))
	}
	return nil
}

// Service owns claim submission and retrieval. Submission runs the full
// validation pipeline, applies the benefit mutation and persists the
// adjudicated claim in one transaction per attempt.
type Service struct {
	repo      Repository
	members   MemberStore
	validator *Validator
	tx        TxRunner
}

func NewService(repo Repository, members MemberStore, validator *Validator, tx TxRunner) *Service {
	return &Service{repo: repo, members: members, validator: validator, tx: tx}
}

// SubmitClaim validates the input, adjudicates it and persists the outcome.
// Every completed adjudication, rejections included, leaves a claim row.
// When a concurrent submission consumes the benefit headroom between this
// claim's read and its conditional update, the whole pipeline is re-run
// against fresh state; after submitAttempts failed reservations the
// submission fails with ErrBalanceContention and nothing is persisted.
func (s *Service) SubmitClaim(ctx context.Context, in SubmitClaimInput) (*Claim, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	for attempt := 1; ; attempt++ {
		c, err := s.adjudicateOnce(ctx, in)
		if err == nil {
			return c, nil
		}
		if !errors.Is(err, member.ErrBenefitExceeded) {
			return nil, err
		}
		if attempt >= submitAttempts {
			log.Warn().
				Str("member_id", in.MemberID).
				Int("attempts", attempt).
				Msg("claim submission lost benefit reservation race")
			return nil, ErrBalanceContention
		}
	}
}

// adjudicateOnce runs one full pass: gates, fraud evaluation, decision,
// benefit reservation and persistence, all inside a single transaction.
// A member.ErrBenefitExceeded from the conditional update aborts the
// transaction and signals the caller to retry from fresh reads.
func (s *Service) adjudicateOnce(ctx context.Context, in SubmitClaimInput) (*Claim, error) {
	var out *Claim
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		dec, err := s.validator.Adjudicate(ctx, AdjudicationRequest{
			MemberID:      in.MemberID,
			ProviderID:    in.ProviderID,
			DiagnosisCode: in.DiagnosisCode,
			ProcedureCode: in.ProcedureCode,
			ClaimAmount:   in.ClaimAmount,
		})
		if err != nil {
			return err
		}

		if dec.Status == StatusApproved || dec.Status == StatusPartial {
			if err := s.members.IncrementUsedBenefit(ctx, in.MemberID, dec.ApprovedAmount); err != nil {
				return err
			}
		}

		now := time.Now().UTC()
		c := &Claim{
			ID:             uuid.New(),
			MemberID:       in.MemberID,
			ProviderID:     in.ProviderID,
			DiagnosisCode:  in.DiagnosisCode,
			ProcedureCode:  in.ProcedureCode,
			ClaimAmount:    in.ClaimAmount,
			ApprovedAmount: dec.ApprovedAmount,
			Status:         dec.Status,
			FraudFlag:      dec.FraudFlag,
			Notes:          in.Notes,
			ProcessedAt:    &now,
		}
		if reason := dec.ReasonText(); reason != "" {
			c.FraudReason = &reason
		}
		if err := s.repo.Create(ctx, c); err != nil {
			return fmt.Errorf("persist claim: %w", err)
		}

		log.Info().
			Str("claim_id", c.ID.String()).
			Str("member_id", c.MemberID).
			Str("status", string(c.Status)).
			Float64("claim_amount", c.ClaimAmount).
			Float64("approved_amount", c.ApprovedAmount).
			Bool("fraud_flag", c.FraudFlag).
			Msg("claim adjudicated")

		out = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Service) GetClaim(ctx context.Context, id uuid.UUID) (*Claim, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) ListClaims(ctx context.Context, filter ListFilter, limit, offset int) ([]*Claim, int, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, 0, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, filter.Status)
	}
	return s.repo.List(ctx, filter, limit, offset)
}
