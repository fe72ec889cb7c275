package posting

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"postingcore/internal/core/apperror"
	"postingcore/internal/domain/fieldrules"
	"postingcore/pkg/logger"
)

// FailurePolicy decides what happens to a line whose rule set cannot be
// resolved or is inactive.
type FailurePolicy string

const (
	// FailClosed reports a rule_set_unresolvable violation for the line.
	FailClosed FailurePolicy = "fail_closed"
	// FailOpen skips field evaluation for the line and logs a warning.
	FailOpen FailurePolicy = "fail_open"
)

// ParseFailurePolicy accepts fail_closed and fail_open (also with '-').
// An empty string means FailClosed.
func ParseFailurePolicy(s string) (FailurePolicy, error) {
	switch strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_") {
	case "", string(FailClosed):
		return FailClosed, nil
	case string(FailOpen):
		return FailOpen, nil
	default:
		return "", fmt.Errorf("unknown failure policy %q", s)
	}
}

// RuleResolver is what the validator needs from a resolver.
type RuleResolver interface {
	Resolve(ctx context.Context, pc fieldrules.Context) (fieldrules.Resolution, error)
}

// Observer receives validation outcomes, e.g. for metrics.
type Observer interface {
	ObserveLine(level fieldrules.Level, violations []Violation)
	ObservePosting(result Result)
	ObserveResolutionGap(policy FailurePolicy)
}

type nopObserver struct{}

func (nopObserver) ObserveLine(fieldrules.Level, []Violation) {}
func (nopObserver) ObservePosting(Result)                     {}
func (nopObserver) ObserveResolutionGap(FailurePolicy)        {}

// Config holds the validator dependencies.
type Config struct {
	Resolver RuleResolver
	Balance  *BalanceChecker
	Policy   FailurePolicy
	Observer Observer
	Logger   *logger.Logger
}

// Validator is the entry point for the CRUD layer: it validates single
// lines and whole postings and returns all violations at once.
//
// Violations are values in the Result. The error return is reserved for
// caller errors (InvalidInput), broken rule configuration (Configuration)
// and rule store failures (RuleStore), all as *apperror.AppError.
type Validator struct {
	resolver RuleResolver
	balance  *BalanceChecker
	policy   FailurePolicy
	observer Observer
	log      *logger.Logger
}

// NewValidator creates a validator. Resolver is required.
func NewValidator(cfg Config) (*Validator, error) {
	if cfg.Resolver == nil {
		return nil, errors.New("posting validator: resolver is required")
	}
	if cfg.Balance == nil {
		cfg.Balance = NewBalanceChecker()
	}
	if cfg.Policy == "" {
		cfg.Policy = FailClosed
	}
	if cfg.Policy != FailClosed && cfg.Policy != FailOpen {
		return nil, fmt.Errorf("posting validator: unknown failure policy %q", cfg.Policy)
	}
	if cfg.Observer == nil {
		cfg.Observer = nopObserver{}
	}
	return &Validator{
		resolver: cfg.Resolver,
		balance:  cfg.Balance,
		policy:   cfg.Policy,
		observer: cfg.Observer,
		log:      cfg.Logger,
	}, nil
}

// ValidateLine resolves the rule set for pc and evaluates every field of
// the line against it. pc replaces line.Context.
func (v *Validator) ValidateLine(ctx context.Context, pc fieldrules.Context, line Line) (Result, error) {
	line.Context = pc
	if err := checkLine(0, line); err != nil {
		return Result{}, err
	}
	var result Result
	violations, err := v.validateLine(ctx, 0, line)
	if err != nil {
		return Result{}, err
	}
	result.add(violations...)
	return result, nil
}

// ValidatePosting validates every line and then checks the balance across
// all lines. Line violations come first, in line order, followed by the
// balance violations.
func (v *Validator) ValidatePosting(ctx context.Context, p Posting) (Result, error) {
	for i, line := range p.Lines {
		if err := checkLine(i, line); err != nil {
			return Result{}, err
		}
	}

	var result Result
	for i, line := range p.Lines {
		violations, err := v.validateLine(ctx, i, line)
		if err != nil {
			if appErr, ok := apperror.AsAppError(err); ok && p.Reference != "" {
				appErr.WithDetail("posting", p.Reference)
			}
			return Result{}, err
		}
		result.add(violations...)
	}
	result.add(v.balance.Check(p)...)

	v.observer.ObservePosting(result)
	if !result.Valid() {
		v.logger(ctx).Debugw("posting rejected",
			"reference", p.Reference,
			"lines", len(p.Lines),
			"violations", len(result.Violations),
		)
	}
	return result, nil
}

func (v *Validator) validateLine(ctx context.Context, index int, line Line) ([]Violation, error) {
	structural := amountViolations(index, line)

	res, err := v.resolver.Resolve(ctx, line.Context)
	if err != nil {
		violations, err := v.handleResolveError(ctx, index, line, err)
		if err != nil {
			return nil, err
		}
		return append(violations, structural...), nil
	}
	v.logger(ctx).Debugw("rule set resolved",
		"line", index,
		"rule_set", res.RuleSet.ID(),
		"level", res.Level.String(),
		"key", res.Key,
	)

	violations, err := EvaluateLine(index, res.RuleSet, line)
	if err != nil {
		return nil, apperror.NewConfiguration(err.Error()).
			WithCause(err).
			WithDetail("line", index).
			WithDetail("rule_set", string(res.RuleSet.ID()))
	}

	violations = append(violations, structural...)
	v.observer.ObserveLine(res.Level, violations)
	return violations, nil
}

func (v *Validator) handleResolveError(ctx context.Context, index int, line Line, err error) ([]Violation, error) {
	pc := line.Context.Normalize()

	switch {
	case fieldrules.IsResolutionGap(err):
		v.observer.ObserveResolutionGap(v.policy)
		if v.policy == FailOpen {
			v.logger(ctx).Warnw("no usable rule set, skipping field checks",
				"line", index,
				"document_type", pc.DocumentType,
				"account", pc.AccountID,
				"error", err,
			)
			return nil, nil
		}
		return []Violation{{
			Scope:   ScopeLine,
			Code:    CodeRuleSetUnresolvable,
			Line:    index,
			Message: fmt.Sprintf("no usable rule set for line %d: %v.", index, err),
			Details: map[string]string{
				"document_type": pc.DocumentType,
				"account":       pc.AccountID,
			},
		}}, nil

	case errors.Is(err, fieldrules.ErrInvalidContext):
		return nil, apperror.NewInvalidInput(err.Error()).WithCause(err).WithDetail("line", index)

	case fieldrules.IsConfigurationError(err):
		v.logger(ctx).Errorw("rule configuration is broken",
			"line", index,
			"document_type", pc.DocumentType,
			"account", pc.AccountID,
			"error", err,
		)
		return nil, apperror.NewConfiguration(err.Error()).
			WithCause(err).
			WithDetail("line", index)

	default:
		return nil, apperror.NewRuleStore("resolve rule set", err).WithDetail("line", index)
	}
}

func (v *Validator) logger(ctx context.Context) *logger.Logger {
	if v.log != nil {
		return v.log.WithContext(ctx)
	}
	return logger.FromContext(ctx)
}
