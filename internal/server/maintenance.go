package server

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Sweep runs one maintenance pass: stored offer statuses catch up with their
// expiry dates, then revoked tokens and idle rate limit buckets are dropped.
// It returns the number of offers marked expired.
func (s *Server) Sweep(ctx context.Context) (int64, error) {
	expired, err := s.svc.ExpireOffers(ctx)
	if err != nil {
		return 0, err
	}

	tokens := s.jwtService.Blacklist().Cleanup()
	buckets := s.rateLimiter.Cleanup(time.Now())

	s.logger.Debug("Maintenance sweep finished",
		zap.Int64("offers_expired", expired),
		zap.Int("tokens_pruned", tokens),
		zap.Int("buckets_evicted", buckets),
	)
	return expired, nil
}

// RunMaintenance sweeps every interval until ctx is done. A non-positive
// interval returns immediately.
func (s *Server) RunMaintenance(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.Sweep(ctx); err != nil && ctx.Err() == nil {
				s.logger.Error("Maintenance sweep failed", zap.Error(err))
			}
		}
	}
}
