package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ledgermap/ledgermap_backend/internal/core/domain"
	portssvc "github.com/ledgermap/ledgermap_backend/internal/core/ports/services"
	"github.com/ledgermap/ledgermap_backend/internal/middleware"
)

// MLAdapter is the boundary to the external classifier. It normalizes the
// model's output into the same candidate shape as rules and history, and it
// degrades: classifier outages or nonsense identifiers cost candidates,
// never the batch.
type MLAdapter struct {
	classifier portssvc.ClassifierClient
}

// NewMLAdapter wraps a classifier client. A nil client disables the ML
// source entirely.
func NewMLAdapter(client portssvc.ClassifierClient) *MLAdapter {
	return &MLAdapter{classifier: client}
}

// Enabled reports whether a classifier is configured.
func (a *MLAdapter) Enabled() bool {
	return a.classifier != nil
}

// Candidates asks the classifier about one line and maps the prediction into
// canonical taxonomy candidates. modelVersion pins the model for the batch;
// it is threaded explicitly so re-runs are reproducible.
func (a *MLAdapter) Candidates(ctx context.Context, tax *domain.Taxonomy, line *domain.TrialBalanceLine, modelVersion string) []domain.MappingCandidate {
	if a.classifier == nil {
		return nil
	}
	logger := middleware.GetLoggerFromCtx(ctx)
	if logger == nil {
		logger = slog.Default()
	}

	req := domain.ClassifierRequest{
		SourceCode:       line.SourceCode,
		SourceName:       line.SourceName,
		NormalizedSource: line.NormalizedSource,
		NetMagnitude:     line.Net.Abs().InexactFloat64(),
		NetSign:          line.Net.Sign(),
		IsDebit:          line.Net.Sign() >= 0,
		ModelVersion:     modelVersion,
	}

	prediction, err := a.classifier.Classify(ctx, req)
	if err != nil {
		logger.Warn("Classifier unavailable, continuing without ML candidates",
			slog.String("line_id", line.LineID),
			slog.String("error", err.Error()))
		return nil
	}

	version := prediction.ModelVersion
	if version == "" {
		version = modelVersion
	}

	type scored struct {
		identifier  string
		probability float64
	}
	ranked := make([]scored, 0, len(prediction.Alternatives)+1)
	ranked = append(ranked, scored{prediction.Identifier, prediction.Probability})
	for _, alt := range prediction.Alternatives {
		ranked = append(ranked, scored{alt.Identifier, alt.Probability})
	}

	var candidates []domain.MappingCandidate
	seen := make(map[string]bool)
	for _, r := range ranked {
		code, ok := a.resolveIdentifier(tax, r.identifier)
		if !ok {
			logger.Warn("Dropping ML candidate with unknown identifier",
				slog.String("line_id", line.LineID),
				slog.String("identifier", r.identifier),
				slog.String("model_version", version))
			continue
		}
		if seen[code] {
			continue
		}
		seen[code] = true
		candidates = append(candidates, domain.MappingCandidate{
			AccountCode:  code,
			Score:        clamp01(r.probability),
			Source:       domain.SourceML,
			ModelVersion: version,
			Evidence:     fmt.Sprintf("classifier %s predicted %s", version, r.identifier),
		})
	}
	return candidates
}

// resolveIdentifier maps a model identifier onto a mappable canonical
// account: by exact code first, then by concept tag (first mappable account
// in code order).
func (a *MLAdapter) resolveIdentifier(tax *domain.Taxonomy, identifier string) (string, bool) {
	if identifier == "" {
		return "", false
	}
	if account, ok := tax.Resolve(identifier); ok {
		if account.IsMappingTarget() {
			return account.Code, true
		}
		return "", false
	}
	for _, account := range tax.ResolveConcept(identifier) {
		if account.IsMappingTarget() {
			return account.Code, true
		}
	}
	return "", false
}
