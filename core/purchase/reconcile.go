package purchase

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
)

// Reconcile periodically expires pending purchases whose checkout
// session lapsed without a completed payment. Without it an abandoned
// session would gate the course behind a pending row forever.
func Reconcile(ctx context.Context, db *sqlx.DB, log logrus.FieldLogger, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-ticker.C:
			n, err := ExpireStale(ctx, db, time.Now().UTC())
			if err != nil {
				log.WithField("message", err).Error("expiring stale purchases")
				continue
			}

			if n > 0 {
				log.WithField("expired", n).Info("reclaimed stale pending purchases")
			}
		}
	}
}
