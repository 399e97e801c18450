package lookupcache

import (
	"context"
	"strconv"

	"stagehand/internal/tracking"
)

// Service decorates a tracking.Service with persistent memoization of the
// name/ID lookup calls. Listing calls pass through untouched so menus always
// see fresh records; only the stable mappings (an asset's ID never changes)
// are cached.
type Service struct {
	tracking.Service

	cache *Cache
	force bool
}

// Wrap returns a memoizing view of inner backed by cache.
func Wrap(inner tracking.Service, cache *Cache) *Service {
	return &Service{Service: inner, cache: cache}
}

// SetForce toggles cache bypass. When forced, lookups always hit the inner
// service and overwrite the cached value.
func (s *Service) SetForce(force bool) { s.force = force }

func (s *Service) cachedString(ctx context.Context, key string, fetch func(context.Context) (string, error)) (string, error) {
	if !s.force {
		if value, ok := s.cache.Lookup(key); ok {
			return value, nil
		}
	}
	value, err := fetch(ctx)
	if err != nil {
		return "", err
	}
	// Misses come back as the zero value; do not pin them, the entity may
	// appear later.
	if value != "" {
		if err := s.cache.Store(key, value); err != nil {
			return value, err
		}
	}
	return value, nil
}

func (s *Service) cachedInt(ctx context.Context, key string, fetch func(context.Context) (int, error)) (int, error) {
	if !s.force {
		if value, ok := s.cache.Lookup(key); ok {
			if n, err := strconv.Atoi(value); err == nil {
				return n, nil
			}
		}
	}
	n, err := fetch(ctx)
	if err != nil {
		return 0, err
	}
	if n != 0 {
		if err := s.cache.Store(key, strconv.Itoa(n)); err != nil {
			return n, err
		}
	}
	return n, nil
}

func (s *Service) AssetIDFromName(ctx context.Context, name string) (int, error) {
	return s.cachedInt(ctx, "asset_id_from_name/"+name, func(ctx context.Context) (int, error) {
		return s.Service.AssetIDFromName(ctx, name)
	})
}

func (s *Service) AssetNameFromID(ctx context.Context, assetID int) (string, error) {
	return s.cachedString(ctx, "asset_name_from_id/"+strconv.Itoa(assetID), func(ctx context.Context) (string, error) {
		return s.Service.AssetNameFromID(ctx, assetID)
	})
}

func (s *Service) AssetTypeFromName(ctx context.Context, assetName string) (string, error) {
	return s.cachedString(ctx, "asset_type_from_name/"+assetName, func(ctx context.Context) (string, error) {
		return s.Service.AssetTypeFromName(ctx, assetName)
	})
}

func (s *Service) ShotIDFromName(ctx context.Context, name string) (int, error) {
	return s.cachedInt(ctx, "shot_id_from_name/"+name, func(ctx context.Context) (int, error) {
		return s.Service.ShotIDFromName(ctx, name)
	})
}

func (s *Service) ShotNameFromID(ctx context.Context, shotID int) (string, error) {
	return s.cachedString(ctx, "shot_name_from_id/"+strconv.Itoa(shotID), func(ctx context.Context) (string, error) {
		return s.Service.ShotNameFromID(ctx, shotID)
	})
}

func (s *Service) SequenceNameFromShotID(ctx context.Context, shotID int) (string, error) {
	return s.cachedString(ctx, "sequence_from_shot_id/"+strconv.Itoa(shotID), func(ctx context.Context) (string, error) {
		return s.Service.SequenceNameFromShotID(ctx, shotID)
	})
}

func (s *Service) TaskNameFromID(ctx context.Context, taskID int) (string, error) {
	return s.cachedString(ctx, "task_name_from_id/"+strconv.Itoa(taskID), func(ctx context.Context) (string, error) {
		return s.Service.TaskNameFromID(ctx, taskID)
	})
}

func (s *Service) AssetIDFromTaskID(ctx context.Context, taskID int) (int, error) {
	return s.cachedInt(ctx, "asset_id_from_task_id/"+strconv.Itoa(taskID), func(ctx context.Context) (int, error) {
		return s.Service.AssetIDFromTaskID(ctx, taskID)
	})
}

func (s *Service) ShotIDFromTaskID(ctx context.Context, taskID int) (int, error) {
	return s.cachedInt(ctx, "shot_id_from_task_id/"+strconv.Itoa(taskID), func(ctx context.Context) (int, error) {
		return s.Service.ShotIDFromTaskID(ctx, taskID)
	})
}

func (s *Service) StepFromTask(ctx context.Context, taskID int) (string, error) {
	return s.cachedString(ctx, "step_from_task/"+strconv.Itoa(taskID), func(ctx context.Context) (string, error) {
		return s.Service.StepFromTask(ctx, taskID)
	})
}

func (s *Service) StepNameFromID(ctx context.Context, stepID int) (string, error) {
	return s.cachedString(ctx, "step_name_from_id/"+strconv.Itoa(stepID), func(ctx context.Context) (string, error) {
		return s.Service.StepNameFromID(ctx, stepID)
	})
}
