package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/garyjia/claim-lifecycle/internal/application/autoapproval"
	"github.com/garyjia/claim-lifecycle/internal/application/compliance"
	"github.com/garyjia/claim-lifecycle/internal/application/port"
	"github.com/garyjia/claim-lifecycle/internal/domain/apperror"
	"github.com/garyjia/claim-lifecycle/internal/domain/entity"
	"github.com/garyjia/claim-lifecycle/internal/domain/workflow"
)

// TransitionResult describes a committed status change.
type TransitionResult struct {
	Claim          *entity.Claim           `json:"claim"`
	PreviousStatus workflow.State          `json:"previous_status"`
	NewStatus      workflow.State          `json:"new_status"`
	Action         entity.Action           `json:"action"`
	Compliance     *compliance.CheckResult `json:"compliance,omitempty"`
}

// AutoApprovalOutcome is the result of an automated approval attempt.
// Approved is false with a nil Transition when the battery did not pass.
type AutoApprovalOutcome struct {
	Approved   bool                 `json:"approved"`
	Evaluation *autoapproval.Result `json:"evaluation"`
	Transition *TransitionResult    `json:"transition,omitempty"`
}

// LifecycleService is the only component allowed to change a claim's status
type LifecycleService interface {
	CoordinatorApprove(ctx context.Context, claimID int64, actor entity.Actor) (*TransitionResult, error)
	CoordinatorReject(ctx context.Context, claimID int64, actor entity.Actor, reason string) (*TransitionResult, error)
	ManagerApprove(ctx context.Context, claimID int64, actor entity.Actor) (*TransitionResult, error)
	ManagerReject(ctx context.Context, claimID int64, actor entity.Actor, reason string) (*TransitionResult, error)
	AutoApprove(ctx context.Context, claimID int64) (*AutoApprovalOutcome, error)
	EvaluateAutoApproval(ctx context.Context, claimID int64) (*autoapproval.Result, error)
}

type lifecycleServiceImpl struct {
	claimRepo port.ClaimRepository
	txManager port.TransactionManager
	checker   *compliance.Checker
	evaluator *autoapproval.Evaluator
	identity  port.IdentityResolver
	audit     AuditLog
	lifecycle workflow.StateMachineBuilder
	now       func() time.Time
	logger    Logger
}

// NewLifecycleService creates a new LifecycleService
func NewLifecycleService(
	claimRepo port.ClaimRepository,
	txManager port.TransactionManager,
	checker *compliance.Checker,
	evaluator *autoapproval.Evaluator,
	identity port.IdentityResolver,
	audit AuditLog,
	logger Logger,
) LifecycleService {
	return &lifecycleServiceImpl{
		claimRepo: claimRepo,
		txManager: txManager,
		checker:   checker,
		evaluator: evaluator,
		identity:  identity,
		audit:     audit,
		lifecycle: workflow.NewClaimLifecycle(),
		now:       time.Now,
		logger:    logger,
	}
}

var autoApproveRoles = map[entity.Role]bool{
	entity.RoleCoordinator: true,
	entity.RoleManager:     true,
	entity.RoleSystem:      true,
}

// transition is one decision applied to a freshly read claim.
type transition struct {
	// intent is checked against the current state before anything else runs.
	intent workflow.Trigger
	// assess runs just before intent fires and returns the context its guards read.
	assess func(ctx context.Context, claim *entity.Claim, result *TransitionResult) (context.Context, error)
	// apply sets the reviewer fields once the status has moved.
	apply   func(claim *entity.Claim, now time.Time)
	actor   entity.Actor
	action  entity.Action
	comment string
}

func (s *lifecycleServiceImpl) CoordinatorApprove(ctx context.Context, claimID int64, actor entity.Actor) (*TransitionResult, error) {
	if err := requireRole(claimID, actor, entity.RoleCoordinator); err != nil {
		return nil, err
	}

	return s.execute(ctx, claimID, transition{
		intent: workflow.TriggerCoordinatorApprove,
		assess: func(ctx context.Context, claim *entity.Claim, result *TransitionResult) (context.Context, error) {
			verdict, err := s.checker.Check(claim)
			if err != nil {
				return nil, apperror.DependencyFailure(claim.ID, "claim line items could not be checked", err)
			}
			result.Compliance = verdict
			return workflow.WithCompliance(ctx, verdict.Compliant), nil
		},
		apply: func(claim *entity.Claim, now time.Time) {
			claim.CoordinatorID = &actor.ID
			claim.VerifiedAt = &now
			claim.RejectionReason = ""
		},
		actor:  actor,
		action: entity.ActionApproved,
	})
}

func (s *lifecycleServiceImpl) CoordinatorReject(ctx context.Context, claimID int64, actor entity.Actor, reason string) (*TransitionResult, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, apperror.Validation(claimID, "a rejection reason is required")
	}
	if err := requireRole(claimID, actor, entity.RoleCoordinator); err != nil {
		return nil, err
	}

	return s.execute(ctx, claimID, transition{
		intent: workflow.TriggerCoordinatorReject,
		apply: func(claim *entity.Claim, now time.Time) {
			claim.CoordinatorID = &actor.ID
			claim.VerifiedAt = &now
			claim.RejectionReason = reason
		},
		actor:   actor,
		action:  entity.ActionRejected,
		comment: reason,
	})
}

func (s *lifecycleServiceImpl) ManagerApprove(ctx context.Context, claimID int64, actor entity.Actor) (*TransitionResult, error) {
	if err := requireRole(claimID, actor, entity.RoleManager); err != nil {
		return nil, err
	}

	return s.execute(ctx, claimID, transition{
		intent: workflow.TriggerManagerApprove,
		apply: func(claim *entity.Claim, now time.Time) {
			claim.ManagerID = &actor.ID
			claim.VerifiedAt = &now
			claim.RejectionReason = ""
		},
		actor:  actor,
		action: entity.ActionApproved,
	})
}

func (s *lifecycleServiceImpl) ManagerReject(ctx context.Context, claimID int64, actor entity.Actor, reason string) (*TransitionResult, error) {
	if err := requireRole(claimID, actor, entity.RoleManager); err != nil {
		return nil, err
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = entity.DefaultManagerRejectReason
	}

	return s.execute(ctx, claimID, transition{
		intent: workflow.TriggerManagerReject,
		apply: func(claim *entity.Claim, now time.Time) {
			claim.ManagerID = &actor.ID
			claim.RejectionReason = reason
		},
		actor:   actor,
		action:  entity.ActionRejected,
		comment: reason,
	})
}

// AutoApprove resolves the acting identity only after the battery passes and refuses to proceed without one.
func (s *lifecycleServiceImpl) AutoApprove(ctx context.Context, claimID int64) (*AutoApprovalOutcome, error) {
	outcome := &AutoApprovalOutcome{}

	result, err := s.executeGated(ctx, claimID, func(ctx context.Context, claim *entity.Claim) (*transition, error) {
		evaluation, err := s.evaluator.Evaluate(ctx, claim)
		if err != nil {
			return nil, apperror.DependencyFailure(claim.ID, "claim could not be evaluated", err)
		}
		outcome.Evaluation = evaluation
		if !evaluation.CanAutoApprove {
			return nil, nil
		}

		actor, err := s.identity.Resolve(ctx)
		if err != nil {
			return nil, apperror.IdentityUnresolved(claim.ID, err)
		}
		if !actor.Resolved() {
			return nil, apperror.IdentityUnresolved(claim.ID, port.ErrIdentityUnresolved)
		}
		if !autoApproveRoles[actor.Role] {
			return nil, apperror.Forbidden(claim.ID, fmt.Sprintf("role %s may not approve claims", actor.Role))
		}

		return &transition{
			intent: workflow.TriggerAutoApprove,
			apply: func(claim *entity.Claim, now time.Time) {
				claim.VerifiedAt = &now
				claim.RejectionReason = ""
			},
			actor:   actor,
			action:  entity.ActionAutoApproved,
			comment: entity.AutoApprovedComment,
		}, nil
	}, workflow.TriggerAutoApprove)
	if err != nil {
		return nil, err
	}

	if result == nil {
		s.logger.Info("Claim not auto-approved", "claim_id", claimID, "reasons", strings.Join(outcome.Evaluation.FailedReasons, "; "))
		return outcome, nil
	}
	outcome.Approved = true
	outcome.Transition = result
	return outcome, nil
}

func (s *lifecycleServiceImpl) EvaluateAutoApproval(ctx context.Context, claimID int64) (*autoapproval.Result, error) {
	claim, err := s.loadClaim(ctx, claimID)
	if err != nil {
		return nil, err
	}
	result, err := s.evaluator.Evaluate(ctx, claim)
	if err != nil {
		return nil, apperror.DependencyFailure(claimID, "claim could not be evaluated", err)
	}
	return result, nil
}

// execute runs a human decision whose shape is known up front.
func (s *lifecycleServiceImpl) execute(ctx context.Context, claimID int64, t transition) (*TransitionResult, error) {
	return s.executeGated(ctx, claimID, func(context.Context, *entity.Claim) (*transition, error) {
		return &t, nil
	}, t.intent)
}

// executeGated performs read, state check, plan, write and audit inside one transaction.
// plan returning a nil transition ends the unit of work without writing.
func (s *lifecycleServiceImpl) executeGated(
	ctx context.Context,
	claimID int64,
	plan func(ctx context.Context, claim *entity.Claim) (*transition, error),
	intent workflow.Trigger,
) (*TransitionResult, error) {
	var result *TransitionResult

	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := txCtx.Err(); err != nil {
			return err
		}

		claim, err := s.loadClaim(txCtx, claimID)
		if err != nil {
			return err
		}

		machine := s.lifecycle.Build(claim.Status)
		if !machine.CanFire(intent) {
			return apperror.IllegalTransition(claim.ID, claim.ClaimNumber, machine.Sources(intent), claim.Status)
		}

		t, err := plan(txCtx, claim)
		if err != nil || t == nil {
			return err
		}

		pending := &TransitionResult{Claim: claim, PreviousStatus: claim.Status}
		fireCtx := txCtx
		if t.assess != nil {
			if fireCtx, err = t.assess(txCtx, claim, pending); err != nil {
				return err
			}
		}

		if err := machine.Fire(fireCtx, t.intent); err != nil {
			var terr *workflow.TransitionError
			if errors.As(err, &terr) {
				return apperror.IllegalTransition(claim.ID, claim.ClaimNumber, terr.Required, terr.Actual)
			}
			return apperror.DependencyFailure(claim.ID, "transition could not be applied", err)
		}

		claim.Status = machine.State()
		if t.apply != nil {
			t.apply(claim, s.now())
		}
		action, comment := t.action, t.comment
		// a coordinator approval that fails compliance lands in PolicyReview
		if claim.Status == workflow.StatePolicyReview && pending.Compliance != nil {
			action = entity.ActionFlagged
			comment = strings.Join(pending.Compliance.Violations, "; ")
		}

		if err := s.claimRepo.UpdateStatus(txCtx, claim); err != nil {
			if errors.Is(err, port.ErrVersionConflict) {
				return apperror.ConcurrencyConflict(claim.ID, err)
			}
			return apperror.DependencyFailure(claim.ID, "failed to persist claim status", err)
		}

		entry := &entity.ApprovalHistory{
			ClaimID:        claim.ID,
			ApproverID:     t.actor.ID,
			Role:           t.actor.Role,
			Action:         action,
			Comment:        comment,
			PreviousStatus: pending.PreviousStatus,
			NewStatus:      claim.Status,
		}
		if err := s.audit.Record(txCtx, entry); err != nil {
			return apperror.DependencyFailure(claim.ID, "failed to record approval history", err)
		}

		pending.NewStatus = claim.Status
		pending.Action = action
		result = pending
		return nil
	})
	if err != nil {
		var appErr *apperror.Error
		// stores that defer the conditional write to commit report the conflict here
		if !errors.As(err, &appErr) && errors.Is(err, port.ErrVersionConflict) {
			err = apperror.ConcurrencyConflict(claimID, err)
		}
		if errors.As(err, &appErr) {
			s.logger.Info("Claim transition refused", "claim_id", claimID, "intent", intent, "kind", appErr.Kind, "reason", appErr.Message)
		} else {
			s.logger.Error("Claim transition failed", "claim_id", claimID, "intent", intent, "error", err)
		}
		return nil, err
	}

	if result != nil {
		s.logger.Info("Claim transitioned",
			"claim_id", claimID,
			"from", result.PreviousStatus,
			"to", result.NewStatus,
			"action", result.Action)
	}
	return result, nil
}

func (s *lifecycleServiceImpl) loadClaim(ctx context.Context, claimID int64) (*entity.Claim, error) {
	claim, err := s.claimRepo.GetByID(ctx, claimID)
	if err != nil {
		return nil, apperror.DependencyFailure(claimID, "failed to load claim", err)
	}
	if claim == nil {
		return nil, apperror.NotFound("claim", claimID)
	}
	return claim, nil
}

func requireRole(claimID int64, actor entity.Actor, role entity.Role) error {
	if !actor.Resolved() {
		return apperror.IdentityUnresolved(claimID, port.ErrIdentityUnresolved)
	}
	if actor.Role != role {
		return apperror.Forbidden(claimID, fmt.Sprintf("role %s may not perform this action, %s required", actor.Role, role))
	}
	return nil
}
