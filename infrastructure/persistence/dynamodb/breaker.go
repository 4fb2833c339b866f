package dynamodb

import (
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// breaker wraps every remote call so repeated connectivity failures trip
// open and subsequent syncs fail immediately instead of each waiting out a
// transport timeout. The engine treats a rejected call like any other
// connectivity failure: it queues a retry and moves on.
type breaker struct {
	cb *gobreaker.CircuitBreaker
}

func newBreaker(name string, logger *zap.Logger) *breaker {
	return &breaker{
		cb: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        name,
			MaxRequests: 3,
			Interval:    30 * time.Second,
			Timeout:     60 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				if counts.Requests < 5 {
					return false
				}
				return float64(counts.TotalFailures)/float64(counts.Requests) >= 0.6
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				logger.Warn("remote store circuit breaker state changed",
					zap.String("breaker", name),
					zap.String("from", from.String()),
					zap.String("to", to.String()),
				)
			},
		}),
	}
}

func (b *breaker) execute(fn func() error) error {
	_, err := b.cb.Execute(func() (any, error) {
		return nil, fn()
	})
	return err
}
