package alert

import (
	"context"

	"go.uber.org/zap"

	domain "github.com/datawald/hub/internal/domain/sync"
)

// NoopAlerter logs alerts instead of publishing them. Default outside
// production
type NoopAlerter struct {
	logger *zap.Logger
}

// NewNoopAlerter builds a log-only alerter
func NewNoopAlerter(logger *zap.Logger) *NoopAlerter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NoopAlerter{logger: logger}
}

// Alert records the alert in the log and nothing else
func (a *NoopAlerter) Alert(ctx context.Context, subject string, detail map[string]any) {
	a.logger.Warn("alert", zap.String("subject", subject), zap.Any("detail", detail))
}

var _ domain.Alerter = (*NoopAlerter)(nil)
