package services

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/ledgermap/ledgermap_backend/internal/core/domain"
	"github.com/ledgermap/ledgermap_backend/internal/middleware"
)

// compiledRule is one snapshot entry: the rule plus its pattern prepared for
// repeated evaluation.
type compiledRule struct {
	rule    domain.MappingRule
	literal string         // lower-cased pattern, literal rules only
	re      *regexp.Regexp // compiled pattern, regex rules only
}

// RuleSnapshot is an immutable, batch-scoped view of a firm's active rules.
// Rules are held in evaluation order (priority descending, then creation
// time, then rule id) and regexes are compiled exactly once, so evaluating
// the same snapshot against the same line is fully deterministic.
type RuleSnapshot struct {
	rules []compiledRule
}

// NewRuleSnapshot compiles the given rules for one suggestion batch. The
// slice must already be in evaluation order. A malformed regex is a
// configuration error scoped to that rule: it is skipped with a warning and
// never aborts the batch.
func NewRuleSnapshot(ctx context.Context, rules []domain.MappingRule) *RuleSnapshot {
	logger := middleware.GetLoggerFromCtx(ctx)
	if logger == nil {
		logger = slog.Default()
	}

	snap := &RuleSnapshot{rules: make([]compiledRule, 0, len(rules))}
	for _, rule := range rules {
		if !rule.IsActive {
			continue
		}
		cr := compiledRule{rule: rule}
		if rule.IsRegex {
			pattern := rule.Pattern
			if rule.MatchMode == domain.MatchFull {
				pattern = "^(?:" + pattern + ")$"
			}
			re, err := regexp.Compile(pattern)
			if err != nil {
				logger.Warn("Skipping rule with malformed regex pattern",
					slog.String("rule_id", rule.RuleID),
					slog.String("rule_name", rule.Name),
					slog.String("error", err.Error()))
				continue
			}
			cr.re = re
		} else {
			cr.literal = strings.ToLower(rule.Pattern)
		}
		snap.rules = append(snap.rules, cr)
	}
	return snap
}

// Size returns the number of evaluable rules in the snapshot.
func (s *RuleSnapshot) Size() int {
	return len(s.rules)
}

// Evaluate runs the snapshot against one source account and returns rule
// candidates for up to maxTargets distinct target accounts. The first
// matching rule wins the base candidate; evaluation continues so
// lower-priority rules can contribute alternatives for other targets. Each
// target keeps the score of its best (earliest) matching rule.
func (s *RuleSnapshot) Evaluate(sourceCode, sourceName string, maxTargets int) []domain.MappingCandidate {
	if maxTargets <= 0 {
		return nil
	}

	loweredCode := strings.ToLower(sourceCode)
	loweredName := strings.ToLower(sourceName)

	var candidates []domain.MappingCandidate
	seen := make(map[string]bool)

	for _, cr := range s.rules {
		if !cr.matches(loweredCode, loweredName, sourceCode, sourceName) {
			continue
		}
		target := cr.rule.TargetAccountCode
		if seen[target] {
			continue
		}
		seen[target] = true

		candidates = append(candidates, domain.MappingCandidate{
			AccountCode: target,
			Score:       clamp01(0.5 + cr.rule.ConfidenceBoost),
			Source:      domain.SourceRule,
			RuleID:      cr.rule.RuleID,
			Evidence:    fmt.Sprintf("matched rule %q", cr.rule.Name),
		})
		if len(candidates) >= maxTargets {
			break
		}
	}
	return candidates
}

// matches tests one rule against the source code and name. Literal rules use
// case-insensitive containment; regex rules run as compiled (full-match
// patterns were anchored at snapshot time).
func (cr *compiledRule) matches(loweredCode, loweredName, rawCode, rawName string) bool {
	if cr.re != nil {
		return cr.re.MatchString(rawCode) || cr.re.MatchString(rawName)
	}
	if cr.literal == "" {
		return false
	}
	return strings.Contains(loweredCode, cr.literal) || strings.Contains(loweredName, cr.literal)
}

// clamp01 bounds a score to [0, 1].
func clamp01(score float64) float64 {
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}
