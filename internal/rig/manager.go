package rig

import (
	"context"
	"fmt"
	"log/slog"

	"stagehand/internal/nodecache"
	"stagehand/internal/scene"
	"stagehand/internal/template"
	"stagehand/internal/tracking"
)

// Manager hands out rigs per node path, building each at most once. A rig's
// menus are refreshed on first construction, matching the lazy
// initialise-on-first-access pattern the host callbacks rely on.
type Manager struct {
	scene     *scene.Scene
	svc       tracking.Service
	templates *template.Resolver
	logger    *slog.Logger

	rigs        *nodecache.Cache[*Rig]
	publishRigs *nodecache.Cache[*PublishRig]
}

// NewManager builds a rig manager for one scene.
func NewManager(sc *scene.Scene, svc tracking.Service, templates *template.Resolver, logger *slog.Logger) *Manager {
	return &Manager{
		scene:       sc,
		svc:         svc,
		templates:   templates,
		logger:      logger,
		rigs:        nodecache.New[*Rig](),
		publishRigs: nodecache.New[*PublishRig](),
	}
}

// Rig returns the rig for the node at path, building and refreshing it on
// first access.
func (m *Manager) Rig(ctx context.Context, path string) (*Rig, error) {
	return m.rigs.GetOrCreate(path, func() (*Rig, error) {
		node := m.scene.NodeAt(path)
		if node == nil {
			return nil, fmt.Errorf("no node at %s", path)
		}
		r, err := New(m.scene, node, m.svc, m.templates, m.logger)
		if err != nil {
			return nil, err
		}
		if err := r.UpdateAll(ctx, false); err != nil {
			return nil, err
		}
		return r, nil
	})
}

// PublishRig returns the publish rig for the node at path, building and
// refreshing it on first access.
func (m *Manager) PublishRig(ctx context.Context, path string) (*PublishRig, error) {
	return m.publishRigs.GetOrCreate(path, func() (*PublishRig, error) {
		node := m.scene.NodeAt(path)
		if node == nil {
			return nil, fmt.Errorf("no node at %s", path)
		}
		r, err := NewPublish(m.scene, node, m.svc, m.templates, m.logger)
		if err != nil {
			return nil, err
		}
		if err := r.UpdateAll(ctx, false); err != nil {
			return nil, err
		}
		return r, nil
	})
}
