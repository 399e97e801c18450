package tracking

import (
	"context"
	"strconv"
	"strings"
)

// Record is one field-addressed row returned by the tracking service.
// Field names mirror the remote schema, including dotted traversals such as
// "step.Step.id" on task-step rows.
type Record map[string]string

// Field names used by the menu layer.
const (
	FieldID            = "id"
	FieldName          = "name"
	FieldCode          = "code"
	FieldContent       = "content"
	FieldVersionNumber = "version_number"
	FieldStepID        = "step.Step.id"
	FieldStepCode      = "step.Step.code"
)

// Int reads a numeric field from a record, returning 0 when absent or
// malformed.
func (r Record) Int(field string) int {
	value, err := strconv.Atoi(strings.TrimSpace(r[field]))
	if err != nil {
		return 0
	}
	return value
}

// Publish describes a completed publish to register with the service.
type Publish struct {
	TaskID      int
	Version     int
	FileType    string
	Path        string
	Description string
}

// Service is the tracking client contract. Listing calls feed menus; lookup
// calls map between human-readable names and numeric identifiers. A lookup
// that finds nothing returns the zero value with a nil error.
type Service interface {
	ProjectName() string

	AssetTypes(ctx context.Context) ([]Record, error)
	Assets(ctx context.Context, assetType string) ([]Record, error)
	AssetSteps(ctx context.Context, assetID int) ([]Record, error)
	AssetTasks(ctx context.Context, assetID, stepID int) ([]Record, error)
	Sequences(ctx context.Context) ([]Record, error)
	Shots(ctx context.Context, sequence string) ([]Record, error)
	ShotSteps(ctx context.Context, shotID int) ([]Record, error)
	ShotTasks(ctx context.Context, shotID, stepID int) ([]Record, error)
	Versions(ctx context.Context, taskID int, fileType string) ([]Record, error)
	CurrentVersion(ctx context.Context, taskID int, fileType string) (Record, error)

	AssetIDFromName(ctx context.Context, name string) (int, error)
	AssetNameFromID(ctx context.Context, assetID int) (string, error)
	AssetTypeFromName(ctx context.Context, assetName string) (string, error)
	ShotIDFromName(ctx context.Context, name string) (int, error)
	ShotNameFromID(ctx context.Context, shotID int) (string, error)
	SequenceNameFromShotID(ctx context.Context, shotID int) (string, error)
	TaskIDFromName(ctx context.Context, name string, assetID, shotID int) (int, error)
	TaskNameFromID(ctx context.Context, taskID int) (string, error)
	AssetIDFromTaskID(ctx context.Context, taskID int) (int, error)
	ShotIDFromTaskID(ctx context.Context, taskID int) (int, error)
	StepFromTask(ctx context.Context, taskID int) (string, error)
	StepIDFromName(ctx context.Context, name string, assetID, shotID int) (int, error)
	StepNameFromID(ctx context.Context, stepID int) (string, error)
	VariantNameFromTask(ctx context.Context, taskID int) (string, error)

	IsAssetTaskID(ctx context.Context, taskID int) (bool, error)
	IsShotTaskID(ctx context.Context, taskID int) (bool, error)
	ValidTaskID(ctx context.Context, taskID int) (bool, error)

	RegisterPublish(ctx context.Context, pub Publish) (int, error)
}
