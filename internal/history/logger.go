package history

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/socialstudio/ugc-collector/internal/models"
	"github.com/socialstudio/ugc-collector/internal/store"
)

// Logger appends sealed collection runs to the history log. It is a
// best-effort audit trail: failures are swallowed and never reach the
// caller.
type Logger struct {
	store store.Store
}

// NewLogger creates a history logger backed by the given store.
func NewLogger(s store.Store) *Logger {
	return &Logger{store: s}
}

// Log appends one sealed run. It never returns an error and never blocks the
// run's outcome on the write.
func (l *Logger) Log(run models.CollectionRun) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := l.store.AppendRun(ctx, run); err != nil {
		logrus.Warnf("Failed to log collection run %s to history: %v", run.ID, err)
	}
}
