package tracking

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strconv"
)

// Fixture entity types. These mirror the subset of the remote schema the
// integration layer touches; the Memory service resolves every Service call
// against them without a network.

// Asset is a fixture asset.
type Asset struct {
	ID   int    `json:"id"`
	Code string `json:"code"`
	Type string `json:"type"`
}

// Shot is a fixture shot.
type Shot struct {
	ID       int    `json:"id"`
	Code     string `json:"code"`
	Sequence string `json:"sequence"`
}

// Step is a fixture pipeline step.
type Step struct {
	ID   int    `json:"id"`
	Code string `json:"code"`
}

// Task is a fixture task. Exactly one of AssetID/ShotID is non-zero.
type Task struct {
	ID      int    `json:"id"`
	Content string `json:"content"`
	AssetID int    `json:"asset_id,omitempty"`
	ShotID  int    `json:"shot_id,omitempty"`
	StepID  int    `json:"step_id"`
	Variant string `json:"variant,omitempty"`
}

// Version is a fixture published version.
type Version struct {
	TaskID   int    `json:"task_id"`
	Number   int    `json:"number"`
	FileType string `json:"file_type"`
	Path     string `json:"path,omitempty"`
}

// Project is the fixture document consumed by the Memory service.
type Project struct {
	Name      string    `json:"name"`
	Assets    []Asset   `json:"assets"`
	Shots     []Shot    `json:"shots"`
	Steps     []Step    `json:"steps"`
	Tasks     []Task    `json:"tasks"`
	Versions  []Version `json:"versions"`
	Sequences []string  `json:"sequences,omitempty"`
}

// Memory is an in-process tracking service backed by a Project fixture.
// Tests and the CLI's offline mode use it in place of the HTTP client.
type Memory struct {
	project Project

	// Calls counts listing requests per endpoint so cascade tests can
	// assert cache behavior.
	Calls map[string]int

	nextPublishID int
}

// NewMemory wraps a fixture project in a Service implementation.
func NewMemory(project Project) *Memory {
	return &Memory{project: project, Calls: make(map[string]int)}
}

// LoadFixture reads a Project fixture document from disk.
func LoadFixture(path string) (*Memory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read tracking fixture: %w", err)
	}
	var project Project
	if err := json.Unmarshal(data, &project); err != nil {
		return nil, fmt.Errorf("parse tracking fixture: %w", err)
	}
	return NewMemory(project), nil
}

func (m *Memory) count(endpoint string) {
	if m.Calls != nil {
		m.Calls[endpoint]++
	}
}

func (m *Memory) ProjectName() string { return m.project.Name }

func (m *Memory) AssetTypes(ctx context.Context) ([]Record, error) {
	m.count("asset_types")
	seen := map[string]struct{}{}
	var records []Record
	for _, asset := range m.project.Assets {
		if _, ok := seen[asset.Type]; ok {
			continue
		}
		seen[asset.Type] = struct{}{}
		records = append(records, Record{FieldName: asset.Type})
	}
	sort.Slice(records, func(i, j int) bool { return records[i][FieldName] < records[j][FieldName] })
	return records, nil
}

func (m *Memory) Assets(ctx context.Context, assetType string) ([]Record, error) {
	m.count("assets")
	var records []Record
	for _, asset := range m.project.Assets {
		if assetType != "" && asset.Type != assetType {
			continue
		}
		records = append(records, Record{FieldID: strconv.Itoa(asset.ID), FieldCode: asset.Code})
	}
	return records, nil
}

func (m *Memory) AssetSteps(ctx context.Context, assetID int) ([]Record, error) {
	m.count("asset_steps")
	return m.stepsForTasks(func(task Task) bool { return task.AssetID == assetID }), nil
}

func (m *Memory) AssetTasks(ctx context.Context, assetID, stepID int) ([]Record, error) {
	m.count("asset_tasks")
	var records []Record
	for _, task := range m.project.Tasks {
		if task.AssetID != assetID || task.StepID != stepID {
			continue
		}
		records = append(records, Record{FieldID: strconv.Itoa(task.ID), FieldContent: task.Content})
	}
	return records, nil
}

func (m *Memory) Sequences(ctx context.Context) ([]Record, error) {
	m.count("sequences")
	names := append([]string{}, m.project.Sequences...)
	if len(names) == 0 {
		seen := map[string]struct{}{}
		for _, shot := range m.project.Shots {
			if _, ok := seen[shot.Sequence]; ok {
				continue
			}
			seen[shot.Sequence] = struct{}{}
			names = append(names, shot.Sequence)
		}
		sort.Strings(names)
	}
	var records []Record
	for _, name := range names {
		records = append(records, Record{FieldName: name})
	}
	return records, nil
}

func (m *Memory) Shots(ctx context.Context, sequence string) ([]Record, error) {
	m.count("shots")
	var records []Record
	for _, shot := range m.project.Shots {
		if sequence != "" && shot.Sequence != sequence {
			continue
		}
		records = append(records, Record{FieldID: strconv.Itoa(shot.ID), FieldCode: shot.Code})
	}
	return records, nil
}

func (m *Memory) ShotSteps(ctx context.Context, shotID int) ([]Record, error) {
	m.count("shot_steps")
	return m.stepsForTasks(func(task Task) bool { return task.ShotID == shotID }), nil
}

func (m *Memory) ShotTasks(ctx context.Context, shotID, stepID int) ([]Record, error) {
	m.count("shot_tasks")
	var records []Record
	for _, task := range m.project.Tasks {
		if task.ShotID != shotID || task.StepID != stepID {
			continue
		}
		records = append(records, Record{FieldID: strconv.Itoa(task.ID), FieldContent: task.Content})
	}
	return records, nil
}

func (m *Memory) Versions(ctx context.Context, taskID int, fileType string) ([]Record, error) {
	m.count("versions")
	var numbers []int
	for _, version := range m.project.Versions {
		if version.TaskID != taskID {
			continue
		}
		if fileType != "" && version.FileType != fileType {
			continue
		}
		numbers = append(numbers, version.Number)
	}
	sort.Ints(numbers)
	var records []Record
	for _, number := range numbers {
		records = append(records, Record{FieldVersionNumber: strconv.Itoa(number)})
	}
	return records, nil
}

func (m *Memory) CurrentVersion(ctx context.Context, taskID int, fileType string) (Record, error) {
	versions, err := m.Versions(ctx, taskID, fileType)
	if err != nil || len(versions) == 0 {
		return nil, err
	}
	return versions[len(versions)-1], nil
}

func (m *Memory) stepsForTasks(match func(Task) bool) []Record {
	seen := map[int]struct{}{}
	var records []Record
	for _, task := range m.project.Tasks {
		if !match(task) {
			continue
		}
		if _, ok := seen[task.StepID]; ok {
			continue
		}
		seen[task.StepID] = struct{}{}
		if step, ok := m.stepByID(task.StepID); ok {
			records = append(records, Record{
				FieldStepID:   strconv.Itoa(step.ID),
				FieldStepCode: step.Code,
			})
		}
	}
	return records
}

func (m *Memory) stepByID(id int) (Step, bool) {
	for _, step := range m.project.Steps {
		if step.ID == id {
			return step, true
		}
	}
	return Step{}, false
}

func (m *Memory) taskByID(id int) (Task, bool) {
	for _, task := range m.project.Tasks {
		if task.ID == id {
			return task, true
		}
	}
	return Task{}, false
}

func (m *Memory) assetByID(id int) (Asset, bool) {
	for _, asset := range m.project.Assets {
		if asset.ID == id {
			return asset, true
		}
	}
	return Asset{}, false
}

func (m *Memory) shotByID(id int) (Shot, bool) {
	for _, shot := range m.project.Shots {
		if shot.ID == id {
			return shot, true
		}
	}
	return Shot{}, false
}

func (m *Memory) AssetIDFromName(ctx context.Context, name string) (int, error) {
	for _, asset := range m.project.Assets {
		if asset.Code == name {
			return asset.ID, nil
		}
	}
	return 0, nil
}

func (m *Memory) AssetNameFromID(ctx context.Context, assetID int) (string, error) {
	if asset, ok := m.assetByID(assetID); ok {
		return asset.Code, nil
	}
	return "", nil
}

func (m *Memory) AssetTypeFromName(ctx context.Context, assetName string) (string, error) {
	for _, asset := range m.project.Assets {
		if asset.Code == assetName {
			return asset.Type, nil
		}
	}
	return "", nil
}

func (m *Memory) ShotIDFromName(ctx context.Context, name string) (int, error) {
	for _, shot := range m.project.Shots {
		if shot.Code == name {
			return shot.ID, nil
		}
	}
	return 0, nil
}

func (m *Memory) ShotNameFromID(ctx context.Context, shotID int) (string, error) {
	if shot, ok := m.shotByID(shotID); ok {
		return shot.Code, nil
	}
	return "", nil
}

func (m *Memory) SequenceNameFromShotID(ctx context.Context, shotID int) (string, error) {
	if shot, ok := m.shotByID(shotID); ok {
		return shot.Sequence, nil
	}
	return "", nil
}

func (m *Memory) TaskIDFromName(ctx context.Context, name string, assetID, shotID int) (int, error) {
	for _, task := range m.project.Tasks {
		if task.Content != name {
			continue
		}
		if assetID != 0 && task.AssetID != assetID {
			continue
		}
		if shotID != 0 && task.ShotID != shotID {
			continue
		}
		return task.ID, nil
	}
	return 0, nil
}

func (m *Memory) TaskNameFromID(ctx context.Context, taskID int) (string, error) {
	if task, ok := m.taskByID(taskID); ok {
		return task.Content, nil
	}
	return "", nil
}

func (m *Memory) AssetIDFromTaskID(ctx context.Context, taskID int) (int, error) {
	if task, ok := m.taskByID(taskID); ok {
		return task.AssetID, nil
	}
	return 0, nil
}

func (m *Memory) ShotIDFromTaskID(ctx context.Context, taskID int) (int, error) {
	if task, ok := m.taskByID(taskID); ok {
		return task.ShotID, nil
	}
	return 0, nil
}

func (m *Memory) StepFromTask(ctx context.Context, taskID int) (string, error) {
	task, ok := m.taskByID(taskID)
	if !ok {
		return "", nil
	}
	if step, ok := m.stepByID(task.StepID); ok {
		return step.Code, nil
	}
	return "", nil
}

func (m *Memory) StepIDFromName(ctx context.Context, name string, assetID, shotID int) (int, error) {
	for _, task := range m.project.Tasks {
		if assetID != 0 && task.AssetID != assetID {
			continue
		}
		if shotID != 0 && task.ShotID != shotID {
			continue
		}
		if step, ok := m.stepByID(task.StepID); ok && step.Code == name {
			return step.ID, nil
		}
	}
	return 0, nil
}

func (m *Memory) StepNameFromID(ctx context.Context, stepID int) (string, error) {
	if step, ok := m.stepByID(stepID); ok {
		return step.Code, nil
	}
	return "", nil
}

func (m *Memory) VariantNameFromTask(ctx context.Context, taskID int) (string, error) {
	if task, ok := m.taskByID(taskID); ok {
		return task.Variant, nil
	}
	return "", nil
}

func (m *Memory) IsAssetTaskID(ctx context.Context, taskID int) (bool, error) {
	task, ok := m.taskByID(taskID)
	return ok && task.AssetID != 0, nil
}

func (m *Memory) IsShotTaskID(ctx context.Context, taskID int) (bool, error) {
	task, ok := m.taskByID(taskID)
	return ok && task.ShotID != 0, nil
}

func (m *Memory) ValidTaskID(ctx context.Context, taskID int) (bool, error) {
	_, ok := m.taskByID(taskID)
	return ok, nil
}

func (m *Memory) RegisterPublish(ctx context.Context, pub Publish) (int, error) {
	m.project.Versions = append(m.project.Versions, Version{
		TaskID:   pub.TaskID,
		Number:   pub.Version,
		FileType: pub.FileType,
		Path:     pub.Path,
	})
	m.nextPublishID++
	return m.nextPublishID, nil
}
