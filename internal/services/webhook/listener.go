package webhook

import (
	"time"

	"kudi/internal/repositories"

	"github.com/lib/pq"
	"go.uber.org/zap"
)

// Listen subscribes to inbox inserts over postgres LISTEN/NOTIFY and turns
// them into replay wakeups. The returned close func stops the listener.
func Listen(dsn string, logger *zap.Logger) (<-chan struct{}, func() error, error) {
	listener := pq.NewListener(dsn, 10*time.Second, time.Minute, func(ev pq.ListenerEventType, err error) {
		if err != nil {
			logger.Warn("webhook listener event", zap.Int("event", int(ev)), zap.Error(err))
		}
	})
	if err := listener.Listen(repositories.WebhookChannel); err != nil {
		listener.Close()
		return nil, nil, err
	}

	wakeups := make(chan struct{}, 1)
	go func() {
		defer close(wakeups)
		// a nil notification means the connection was re-established and
		// events may have been missed; it wakes the replayer too
		for range listener.Notify {
			select {
			case wakeups <- struct{}{}:
			default:
			}
		}
	}()
	return wakeups, listener.Close, nil
}
