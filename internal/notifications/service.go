package notifications

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
	"gopkg.in/gomail.v2"

	"github.com/socialstudio/ugc-collector/internal/config"
	"github.com/socialstudio/ugc-collector/internal/models"
)

// Service sends run failure alerts via Teams webhook and email
type Service struct {
	config *config.Config
	client *resty.Client
}

// Ensure Service implements Notifier
var _ Notifier = (*Service)(nil)

// TeamsMessage represents a Microsoft Teams message
type TeamsMessage struct {
	Type     string         `json:"@type"`
	Context  string         `json:"@context"`
	Title    string         `json:"title"`
	Text     string         `json:"text"`
	Sections []TeamsSection `json:"sections,omitempty"`
}

type TeamsSection struct {
	ActivityTitle string      `json:"activityTitle,omitempty"`
	Facts         []TeamsFact `json:"facts,omitempty"`
	Markdown      bool        `json:"markdown,omitempty"`
}

type TeamsFact struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// NewService creates a new notification service
func NewService(cfg *config.Config) *Service {
	return &Service{
		config: cfg,
		client: resty.New().SetTimeout(30 * time.Second),
	}
}

// NotifyRunFailed sends a failure alert via the configured channels. Callers
// treat it as best-effort; an error here never changes a run's outcome.
func (s *Service) NotifyRunFailed(run *models.CollectionRun) error {
	var errors []string

	if s.config.TeamsWebhookURL != "" {
		if err := s.sendToTeams(run); err != nil {
			logrus.Errorf("Failed to send Teams notification: %v", err)
			errors = append(errors, fmt.Sprintf("Teams: %v", err))
		} else {
			logrus.Info("Sent run failure alert to Teams")
		}
	}

	if s.config.NotificationEmail != "" {
		if err := s.sendEmail(run); err != nil {
			logrus.Errorf("Failed to send email notification: %v", err)
			errors = append(errors, fmt.Sprintf("Email: %v", err))
		} else {
			logrus.Info("Sent run failure alert via email")
		}
	}

	if len(errors) > 0 {
		return fmt.Errorf("notification errors: %s", strings.Join(errors, "; "))
	}

	return nil
}

func (s *Service) sendToTeams(run *models.CollectionRun) error {
	message := s.buildTeamsMessage(run)

	resp, err := s.client.R().
		SetHeader("Content-Type", "application/json").
		SetBody(message).
		Post(s.config.TeamsWebhookURL)

	if err != nil {
		return fmt.Errorf("failed to send Teams message: %w", err)
	}

	if resp.StatusCode() != 200 {
		return fmt.Errorf("Teams webhook returned status %d: %s", resp.StatusCode(), string(resp.Body()))
	}

	return nil
}

func (s *Service) buildTeamsMessage(run *models.CollectionRun) *TeamsMessage {
	return &TeamsMessage{
		Type:    "MessageCard",
		Context: "https://schema.org/extensions",
		Title:   fmt.Sprintf("Collection run %s failed", run.ID),
		Text:    fmt.Sprintf("%s collection failed after fetching %d items", run.Mode, run.ItemsFetched),
		Sections: []TeamsSection{
			{
				ActivityTitle: "Run details",
				Facts: []TeamsFact{
					{Name: "Run ID", Value: run.ID},
					{Name: "Mode", Value: run.Mode},
					{Name: "Items fetched", Value: fmt.Sprintf("%d", run.ItemsFetched)},
					{Name: "Items stored", Value: fmt.Sprintf("%d", run.ItemsStored)},
					{Name: "Errors", Value: strings.Join(run.Errors, "; ")},
					{Name: "Finished", Value: run.FinishedAt.Format("2006-01-02 15:04:05 UTC")},
				},
				Markdown: true,
			},
		},
	}
}

func (s *Service) sendEmail(run *models.CollectionRun) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.config.SMTPUsername)
	m.SetHeader("To", s.config.NotificationEmail)
	m.SetHeader("Subject", fmt.Sprintf("Collection run %s failed", run.ID))

	body := fmt.Sprintf(
		"Collection run %s (%s) failed at %s.\n\nItems fetched: %d\nItems stored: %d\n\nErrors:\n%s\n",
		run.ID, run.Mode, run.FinishedAt.Format(time.RFC3339),
		run.ItemsFetched, run.ItemsStored,
		strings.Join(run.Errors, "\n"),
	)
	m.SetBody("text/plain", body)

	d := gomail.NewDialer(s.config.SMTPHost, s.config.SMTPPort, s.config.SMTPUsername, s.config.SMTPPassword)
	if err := d.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	return nil
}
