package seeder

import (
	"context"

	"github.com/vnmchuo/budget-gateway/internal/auth"
	"go.uber.org/zap"
)

const (
	TestAPIKey = "test-api-key-12345"
	TestUserID = "test-user"
)

// SeedTestAPIKey creates a development key for tenantID billed to TestUserID.
func SeedTestAPIKey(ctx context.Context, store auth.Store, tenantID string, logger *zap.Logger) error {
	apiKey := &auth.APIKey{
		UserID:    TestUserID,
		TenantID:  tenantID,
		KeyHash:   auth.HashKey(TestAPIKey),
		RateLimit: 1000000,
		Active:    true,
	}

	if err := store.Create(ctx, apiKey); err != nil {
		logger.Info("test api key may already exist, skipping", zap.Error(err))
		return err
	}
	logger.Info("test api key created",
		zap.String("key", TestAPIKey),
		zap.String("tenant_id", tenantID),
		zap.String("user_id", TestUserID),
	)
	return nil
}
