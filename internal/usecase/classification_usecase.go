package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/iho/ledgerrecon/internal/domain"
)

// ClassificationUseCase classifies postings with the provider's current rules.
type ClassificationUseCase struct {
	rules RuleSetProvider
}

// NewClassificationUseCase creates a new ClassificationUseCase.
func NewClassificationUseCase(rules RuleSetProvider) *ClassificationUseCase {
	return &ClassificationUseCase{rules: rules}
}

// Classify resolves one posting to an expense type and category.
func (uc *ClassificationUseCase) Classify(ctx context.Context, in domain.ClassifyInput) (domain.Classification, error) {
	c, err := uc.classifier()
	if err != nil {
		return domain.Classification{}, err
	}
	return c.Classify(in), nil
}

// ClassifyBatch classifies inputs against a single rule snapshot.
func (uc *ClassificationUseCase) ClassifyBatch(ctx context.Context, inputs []domain.ClassifyInput) ([]domain.Classification, error) {
	c, err := uc.classifier()
	if err != nil {
		return nil, err
	}

	out := make([]domain.Classification, len(inputs))
	for i, in := range inputs {
		if i%256 == 0 && ctx.Err() != nil {
			return nil, ctx.Err()
		}
		out[i] = c.Classify(in)
	}
	return out, nil
}

// ClassifyOther resolves an other income/expense posting.
func (uc *ClassificationUseCase) ClassifyOther(ctx context.Context, code, name, category string) (domain.OtherClassification, error) {
	c, err := uc.classifier()
	if err != nil {
		return domain.OtherClassification{}, err
	}
	return c.ClassifyOther(code, name, category), nil
}

func (uc *ClassificationUseCase) classifier() (*domain.Classifier, error) {
	c, err := uc.rules.Classifier()
	if err != nil {
		if errors.Is(err, domain.ErrRulesUnavailable) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrRulesUnavailable, err)
	}
	if c == nil {
		return nil, domain.ErrRulesUnavailable
	}
	return c, nil
}
