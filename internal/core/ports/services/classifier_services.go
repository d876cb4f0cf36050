package services

import (
	"context"

	"github.com/ledgermap/ledgermap_backend/internal/core/domain"
)

// ClassifierClient defines the interface to the external ML classification
// service. Implementations must treat the service as unreliable: callers
// degrade to rules and history when Classify fails.
type ClassifierClient interface {
	// Classify asks the model for candidate accounts for one line.
	Classify(ctx context.Context, req domain.ClassifierRequest) (*domain.ClassifierPrediction, error)
}

// TrainingFeedPublisher emits review decisions to the training pipeline.
// Publishing is best-effort: a failed publish must never fail the review
// decision that triggered it.
type TrainingFeedPublisher interface {
	// PublishReviewDecision sends one decision to the training feed.
	PublishReviewDecision(ctx context.Context, event domain.ReviewDecisionEvent) error

	// Close flushes and releases the underlying transport.
	Close() error
}
