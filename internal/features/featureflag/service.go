package featureflag

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type FeatureFlagService interface {
	IsEnabled(ctx context.Context, code string, orgID primitive.ObjectID) (bool, error)
	ListByOrg(ctx context.Context, orgID primitive.ObjectID) ([]FeatureFlag, error)
	SetFlag(ctx context.Context, orgID primitive.ObjectID, code string, enabled bool) error
}

type FeatureFlagServiceImpl struct {
	Repo FeatureFlagRepository
}

func NewFeatureFlagService(repo FeatureFlagRepository) FeatureFlagService {
	return &FeatureFlagServiceImpl{
		Repo: repo,
	}
}

func (s *FeatureFlagServiceImpl) IsEnabled(ctx context.Context, code string, orgID primitive.ObjectID) (bool, error) {
	flag, err := s.Repo.GetByCode(ctx, orgID, code)
	if err != nil {
		return false, err
	}
	if flag == nil {
		return false, nil
	}
	return flag.Enabled, nil
}

func (s *FeatureFlagServiceImpl) ListByOrg(ctx context.Context, orgID primitive.ObjectID) ([]FeatureFlag, error) {
	return s.Repo.ListByOrg(ctx, orgID)
}

func (s *FeatureFlagServiceImpl) SetFlag(ctx context.Context, orgID primitive.ObjectID, code string, enabled bool) error {
	return s.Repo.Upsert(ctx, &FeatureFlag{
		OrgID:     orgID,
		Code:      code,
		Enabled:   enabled,
		UpdatedAt: time.Now(),
	})
}
