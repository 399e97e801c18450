package tracking

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"stagehand/internal/config"
	"stagehand/internal/services"
)

// HTTPDoer describes the HTTP client used by the tracking service.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// HTTPService talks to the tracking service REST endpoint.
type HTTPService struct {
	baseURL string
	script  string
	key     string
	project string
	client  HTTPDoer
}

// NewHTTPService constructs a tracking client from configuration.
func NewHTTPService(cfg *config.Config, client HTTPDoer) (*HTTPService, error) {
	if cfg == nil || cfg.Tracking.BaseURL == "" {
		return nil, services.Wrap(services.ErrConfiguration, "tracking", "new", "tracking.base_url is not configured", nil)
	}
	if cfg.Tracking.Project == "" {
		return nil, services.Wrap(services.ErrConfiguration, "tracking", "new", "tracking.project is not configured", nil)
	}
	if client == nil {
		client = &http.Client{Timeout: time.Duration(cfg.Tracking.RequestTimeout) * time.Second}
	}
	return &HTTPService{
		baseURL: cfg.Tracking.BaseURL,
		script:  cfg.Tracking.Script,
		key:     cfg.Tracking.Key,
		project: cfg.Tracking.Project,
		client:  client,
	}, nil
}

func (s *HTTPService) ProjectName() string { return s.project }

func (s *HTTPService) AssetTypes(ctx context.Context) ([]Record, error) {
	return s.records(ctx, "asset_types", nil)
}

func (s *HTTPService) Assets(ctx context.Context, assetType string) ([]Record, error) {
	return s.records(ctx, "assets", url.Values{"asset_type": {assetType}})
}

func (s *HTTPService) AssetSteps(ctx context.Context, assetID int) ([]Record, error) {
	return s.records(ctx, fmt.Sprintf("assets/%d/steps", assetID), nil)
}

func (s *HTTPService) AssetTasks(ctx context.Context, assetID, stepID int) ([]Record, error) {
	return s.records(ctx, fmt.Sprintf("assets/%d/tasks", assetID), url.Values{"step_id": {strconv.Itoa(stepID)}})
}

func (s *HTTPService) Sequences(ctx context.Context) ([]Record, error) {
	return s.records(ctx, "sequences", nil)
}

func (s *HTTPService) Shots(ctx context.Context, sequence string) ([]Record, error) {
	return s.records(ctx, "shots", url.Values{"sequence": {sequence}})
}

func (s *HTTPService) ShotSteps(ctx context.Context, shotID int) ([]Record, error) {
	return s.records(ctx, fmt.Sprintf("shots/%d/steps", shotID), nil)
}

func (s *HTTPService) ShotTasks(ctx context.Context, shotID, stepID int) ([]Record, error) {
	return s.records(ctx, fmt.Sprintf("shots/%d/tasks", shotID), url.Values{"step_id": {strconv.Itoa(stepID)}})
}

func (s *HTTPService) Versions(ctx context.Context, taskID int, fileType string) ([]Record, error) {
	return s.records(ctx, fmt.Sprintf("tasks/%d/versions", taskID), url.Values{"file_type": {fileType}})
}

func (s *HTTPService) CurrentVersion(ctx context.Context, taskID int, fileType string) (Record, error) {
	versions, err := s.Versions(ctx, taskID, fileType)
	if err != nil || len(versions) == 0 {
		return nil, err
	}
	return versions[len(versions)-1], nil
}

func (s *HTTPService) AssetIDFromName(ctx context.Context, name string) (int, error) {
	return s.lookupID(ctx, "asset_id", url.Values{"name": {name}})
}

func (s *HTTPService) AssetNameFromID(ctx context.Context, assetID int) (string, error) {
	return s.lookupValue(ctx, "asset_name", url.Values{"asset_id": {strconv.Itoa(assetID)}})
}

func (s *HTTPService) AssetTypeFromName(ctx context.Context, assetName string) (string, error) {
	return s.lookupValue(ctx, "asset_type", url.Values{"name": {assetName}})
}

func (s *HTTPService) ShotIDFromName(ctx context.Context, name string) (int, error) {
	return s.lookupID(ctx, "shot_id", url.Values{"name": {name}})
}

func (s *HTTPService) ShotNameFromID(ctx context.Context, shotID int) (string, error) {
	return s.lookupValue(ctx, "shot_name", url.Values{"shot_id": {strconv.Itoa(shotID)}})
}

func (s *HTTPService) SequenceNameFromShotID(ctx context.Context, shotID int) (string, error) {
	return s.lookupValue(ctx, "sequence_name", url.Values{"shot_id": {strconv.Itoa(shotID)}})
}

func (s *HTTPService) TaskIDFromName(ctx context.Context, name string, assetID, shotID int) (int, error) {
	query := url.Values{"name": {name}}
	if assetID != 0 {
		query.Set("asset_id", strconv.Itoa(assetID))
	}
	if shotID != 0 {
		query.Set("shot_id", strconv.Itoa(shotID))
	}
	return s.lookupID(ctx, "task_id", query)
}

func (s *HTTPService) TaskNameFromID(ctx context.Context, taskID int) (string, error) {
	return s.lookupValue(ctx, "task_name", url.Values{"task_id": {strconv.Itoa(taskID)}})
}

func (s *HTTPService) AssetIDFromTaskID(ctx context.Context, taskID int) (int, error) {
	return s.lookupID(ctx, "task_asset", url.Values{"task_id": {strconv.Itoa(taskID)}})
}

func (s *HTTPService) ShotIDFromTaskID(ctx context.Context, taskID int) (int, error) {
	return s.lookupID(ctx, "task_shot", url.Values{"task_id": {strconv.Itoa(taskID)}})
}

func (s *HTTPService) StepFromTask(ctx context.Context, taskID int) (string, error) {
	return s.lookupValue(ctx, "task_step", url.Values{"task_id": {strconv.Itoa(taskID)}})
}

func (s *HTTPService) StepIDFromName(ctx context.Context, name string, assetID, shotID int) (int, error) {
	query := url.Values{"name": {name}}
	if assetID != 0 {
		query.Set("asset_id", strconv.Itoa(assetID))
	}
	if shotID != 0 {
		query.Set("shot_id", strconv.Itoa(shotID))
	}
	return s.lookupID(ctx, "step_id", query)
}

func (s *HTTPService) StepNameFromID(ctx context.Context, stepID int) (string, error) {
	return s.lookupValue(ctx, "step_name", url.Values{"step_id": {strconv.Itoa(stepID)}})
}

func (s *HTTPService) VariantNameFromTask(ctx context.Context, taskID int) (string, error) {
	return s.lookupValue(ctx, "task_variant", url.Values{"task_id": {strconv.Itoa(taskID)}})
}

func (s *HTTPService) IsAssetTaskID(ctx context.Context, taskID int) (bool, error) {
	id, err := s.AssetIDFromTaskID(ctx, taskID)
	return id != 0, err
}

func (s *HTTPService) IsShotTaskID(ctx context.Context, taskID int) (bool, error) {
	id, err := s.ShotIDFromTaskID(ctx, taskID)
	return id != 0, err
}

func (s *HTTPService) ValidTaskID(ctx context.Context, taskID int) (bool, error) {
	if taskID == 0 {
		return false, nil
	}
	name, err := s.TaskNameFromID(ctx, taskID)
	return name != "", err
}

func (s *HTTPService) RegisterPublish(ctx context.Context, pub Publish) (int, error) {
	body, err := json.Marshal(pub)
	if err != nil {
		return 0, fmt.Errorf("encode publish: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint("publishes", nil), bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("build publish request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	s.authorize(req)

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("register publish: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusMultipleChoices {
		return 0, fmt.Errorf("tracking publish returned %d", resp.StatusCode)
	}

	var decoded struct {
		ID int `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return 0, fmt.Errorf("decode publish response: %w", err)
	}
	return decoded.ID, nil
}

func (s *HTTPService) records(ctx context.Context, path string, query url.Values) ([]Record, error) {
	var decoded struct {
		Records []Record `json:"records"`
	}
	if err := s.get(ctx, path, query, &decoded); err != nil {
		return nil, err
	}
	return decoded.Records, nil
}

func (s *HTTPService) lookupID(ctx context.Context, entity string, query url.Values) (int, error) {
	var decoded struct {
		ID int `json:"id"`
	}
	if err := s.getLookup(ctx, entity, query, &decoded); err != nil {
		return 0, err
	}
	return decoded.ID, nil
}

func (s *HTTPService) lookupValue(ctx context.Context, entity string, query url.Values) (string, error) {
	var decoded struct {
		Value string `json:"value"`
	}
	if err := s.getLookup(ctx, entity, query, &decoded); err != nil {
		return "", err
	}
	return decoded.Value, nil
}

func (s *HTTPService) getLookup(ctx context.Context, entity string, query url.Values, out any) error {
	return s.get(ctx, "lookup/"+entity, query, out)
}

func (s *HTTPService) get(ctx context.Context, path string, query url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.endpoint(path, query), nil)
	if err != nil {
		return fmt.Errorf("build tracking request: %w", err)
	}
	s.authorize(req)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("tracking %s: %w", path, err)
	}
	defer resp.Body.Close()

	// Not-found is a miss, not an error: callers fall back.
	if resp.StatusCode == http.StatusNotFound {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("tracking %s returned %d", path, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode tracking %s response: %w", path, err)
	}
	return nil
}

func (s *HTTPService) endpoint(path string, query url.Values) string {
	endpoint := fmt.Sprintf("%s/projects/%s/%s", s.baseURL, url.PathEscape(s.project), path)
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}
	return endpoint
}

func (s *HTTPService) authorize(req *http.Request) {
	if s.script != "" {
		req.Header.Set("X-Script-Name", s.script)
	}
	if s.key != "" {
		req.Header.Set("X-Script-Key", s.key)
	}
}
