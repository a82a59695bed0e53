package notifications

import "github.com/socialstudio/ugc-collector/internal/models"

// Notifier defines the contract for run outcome notifications
type Notifier interface {
	NotifyRunFailed(run *models.CollectionRun) error
}
