package apify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"

	"github.com/socialstudio/ugc-collector/internal/config"
	"github.com/socialstudio/ugc-collector/internal/models"
	"github.com/socialstudio/ugc-collector/internal/progress"
)

// Client talks to the Apify actor API. The primary path is the synchronous
// run-and-fetch endpoint; on a transient failure it falls back once to
// starting an async run and polling it until the dataset is ready.
type Client struct {
	baseURL      string
	token        string
	actorID      string
	pollInterval time.Duration
	pollTimeout  time.Duration
	client       *resty.Client
}

type runStatusResponse struct {
	Data struct {
		ID               string `json:"id"`
		Status           string `json:"status"`
		StatusMessage    string `json:"statusMessage"`
		DefaultDatasetID string `json:"defaultDatasetId"`
	} `json:"data"`
}

// NewClient creates a provider client from explicit configuration.
func NewClient(cfg *config.Config) *Client {
	return &Client{
		baseURL:      cfg.ApifyBaseURL,
		token:        cfg.ApifyToken,
		actorID:      cfg.ApifyActorID,
		pollInterval: cfg.ScrapePollInterval,
		pollTimeout:  cfg.ScrapePollTimeout,
		client:       resty.New().SetTimeout(2 * time.Minute),
	}
}

// FetchItems runs one scrape for the given request and returns the raw
// result items. Progress is reported to sink in the 0-50 range.
func (c *Client) FetchItems(ctx context.Context, req models.ScrapeRequest, sink progress.Sink) ([]models.RawItem, error) {
	emit(sink, "starting", 0, fmt.Sprintf("starting %s collection", req.Mode))

	input := c.buildInput(req)

	emit(sink, "connecting", 10, "calling scraping engine")

	items, err := c.fetchSync(ctx, input)
	if err == nil {
		emit(sink, "fetching results", 45, fmt.Sprintf("received %d items", len(items)))
		return items, nil
	}

	var transient *TransientError
	if !errors.As(err, &transient) {
		return nil, err
	}

	logrus.Warnf("Synchronous scrape failed (%v), falling back to async run", transient.Err)
	return c.fetchAsync(ctx, input, sink)
}

// fetchSync calls the endpoint that starts a run and returns its dataset in
// one round trip.
func (c *Client) fetchSync(ctx context.Context, input map[string]interface{}) ([]models.RawItem, error) {
	url := fmt.Sprintf("%s/v2/acts/%s/run-sync-get-dataset-items", c.baseURL, c.actorID)

	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParam("token", c.token).
		SetHeader("Content-Type", "application/json").
		SetBody(input).
		Post(url)

	if err != nil {
		return nil, &TransientError{Err: err}
	}
	if err := classifyStatus(resp, "actor"); err != nil {
		return nil, err
	}

	var items []models.RawItem
	if err := json.Unmarshal(resp.Body(), &items); err != nil {
		return nil, &TransientError{Err: fmt.Errorf("decoding dataset items: %w", err)}
	}
	return items, nil
}

// fetchAsync starts a run, polls it to completion and fetches its dataset.
// It is attempted once; its own failures are not retried.
func (c *Client) fetchAsync(ctx context.Context, input map[string]interface{}, sink progress.Sink) ([]models.RawItem, error) {
	runID, err := c.startRun(ctx, input)
	if err != nil {
		return nil, err
	}

	datasetID, err := c.pollRun(ctx, runID, sink)
	if err != nil {
		return nil, err
	}

	emit(sink, "fetching results", 45, "downloading dataset")
	return c.fetchDataset(ctx, datasetID)
}

func (c *Client) startRun(ctx context.Context, input map[string]interface{}) (string, error) {
	url := fmt.Sprintf("%s/v2/acts/%s/runs", c.baseURL, c.actorID)

	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParam("token", c.token).
		SetHeader("Content-Type", "application/json").
		SetBody(input).
		Post(url)

	if err != nil {
		return "", &TransientError{Err: err}
	}
	if err := classifyStatus(resp, "actor"); err != nil {
		return "", err
	}

	var started runStatusResponse
	if err := json.Unmarshal(resp.Body(), &started); err != nil {
		return "", &TransientError{Err: fmt.Errorf("decoding run response: %w", err)}
	}
	if started.Data.ID == "" {
		return "", &TransientError{Err: fmt.Errorf("provider returned no run id")}
	}

	logrus.Infof("Started async scrape run %s", started.Data.ID)
	return started.Data.ID, nil
}

// pollRun polls the run status at a fixed interval until it reaches a
// terminal state or the hard timeout elapses. It returns the dataset id of a
// succeeded run.
func (c *Client) pollRun(ctx context.Context, runID string, sink progress.Sink) (string, error) {
	deadline := time.Now().Add(c.pollTimeout)
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-ticker.C:
		}

		if time.Now().After(deadline) {
			return "", &RunTimeoutError{Timeout: c.pollTimeout}
		}

		status, err := c.runStatus(ctx, runID)
		if err != nil {
			return "", err
		}

		switch status.Data.Status {
		case "SUCCEEDED":
			return status.Data.DefaultDatasetID, nil
		case "FAILED", "ABORTED", "TIMED_OUT", "TIMED-OUT":
			return "", &RunFailedError{Status: status.Data.Status, Message: status.Data.StatusMessage}
		default:
			emit(sink, "running", 25, fmt.Sprintf("run %s is %s", runID, status.Data.Status))
		}
	}
}

func (c *Client) runStatus(ctx context.Context, runID string) (*runStatusResponse, error) {
	url := fmt.Sprintf("%s/v2/actor-runs/%s", c.baseURL, runID)

	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParam("token", c.token).
		Get(url)

	if err != nil {
		return nil, &TransientError{Err: err}
	}
	if err := classifyStatus(resp, "run"); err != nil {
		return nil, err
	}

	var status runStatusResponse
	if err := json.Unmarshal(resp.Body(), &status); err != nil {
		return nil, &TransientError{Err: fmt.Errorf("decoding run status: %w", err)}
	}
	return &status, nil
}

func (c *Client) fetchDataset(ctx context.Context, datasetID string) ([]models.RawItem, error) {
	url := fmt.Sprintf("%s/v2/datasets/%s/items", c.baseURL, datasetID)

	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParam("token", c.token).
		Get(url)

	if err != nil {
		return nil, &TransientError{Err: err}
	}
	if err := classifyStatus(resp, "dataset"); err != nil {
		return nil, err
	}

	var items []models.RawItem
	if err := json.Unmarshal(resp.Body(), &items); err != nil {
		return nil, &TransientError{Err: fmt.Errorf("decoding dataset items: %w", err)}
	}
	return items, nil
}

// buildInput translates a ScrapeRequest into the actor's input document.
func (c *Client) buildInput(req models.ScrapeRequest) map[string]interface{} {
	input := map[string]interface{}{
		"resultsLimit": req.ResultsLimit,
	}

	switch req.Mode {
	case models.ModeURLs:
		input["directUrls"] = req.Targets
	default:
		input["hashtags"] = req.Targets
		input["searchType"] = "hashtag"
	}

	if req.FreshnessWindow > 0 {
		hours := int(req.FreshnessWindow.Hours())
		if hours < 1 {
			hours = 1
		}
		input["onlyPostsNewerThan"] = fmt.Sprintf("%d hours", hours)
	}

	return input
}

// classifyStatus maps a provider response onto the adapter error taxonomy.
func classifyStatus(resp *resty.Response, resource string) error {
	code := resp.StatusCode()
	switch {
	case code >= 200 && code < 300:
		return nil
	case code == 401 || code == 403:
		return &AuthError{StatusCode: code}
	case code == 404:
		return &NotFoundError{Resource: resource}
	case code == 400:
		return &BadRequestError{Payload: string(resp.Body())}
	default:
		return &TransientError{Err: fmt.Errorf("provider returned status %d", code)}
	}
}

func emit(sink progress.Sink, step string, pct int, message string) {
	if sink == nil {
		return
	}
	sink.Record(models.ProgressEvent{Step: step, Percentage: pct, Message: message})
}
