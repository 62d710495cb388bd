package control

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/datawald/hub/internal/application/backoffice"
	"github.com/datawald/hub/internal/application/frontend"
	"github.com/datawald/hub/internal/domain/connector"
	domain "github.com/datawald/hub/internal/domain/sync"
)

func TestRegistryExecutorRoutesByArea(t *testing.T) {
	registry := connector.NewRegistry()
	store := new(MockEntityStore)
	exec := NewRegistryExecutor(
		backoffice.NewService(registry, store, zap.NewNop()),
		frontend.NewService(registry, store, zap.NewNop()),
		zap.NewNop(),
	)

	// An empty registry rejects the lookup on whichever side was routed to,
	// which is exactly what identifies the path taken
	err := exec.Execute(context.Background(), domain.Command{
		Area: domain.AreaBackOffice, System: "NS",
	})
	assert.ErrorContains(t, err, "backoffice/NS")

	err = exec.Execute(context.Background(), domain.Command{
		Area: domain.AreaFrontEnd, System: "MAGE2",
	})
	assert.ErrorContains(t, err, "frontend/MAGE2")

	err = exec.Execute(context.Background(), domain.Command{Area: "warehouse"})
	assert.ErrorContains(t, err, "unknown command area")
}
