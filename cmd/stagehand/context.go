package main

import (
	"errors"
	"log/slog"
	"strings"
	"sync"

	"stagehand/internal/config"
	"stagehand/internal/logging"
	"stagehand/internal/rig"
	"stagehand/internal/scene"
	"stagehand/internal/template"
	"stagehand/internal/tracking"
	"stagehand/internal/tracking/lookupcache"
)

type commandContext struct {
	configFlag   *string
	sceneFlag    *string
	fixturesFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
	loggerErr  error
}

func newCommandContext(configFlag, sceneFlag, fixturesFlag *string) *commandContext {
	return &commandContext{
		configFlag:   configFlag,
		sceneFlag:    sceneFlag,
		fixturesFlag: fixturesFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) ensureLogger() (*slog.Logger, error) {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.loggerErr = err
			return
		}
		c.logger, c.loggerErr = logging.NewFromConfig(cfg)
	})
	return c.logger, c.loggerErr
}

// service builds the tracking service: the configured remote client, or an
// offline fixture when --fixtures is set. Either way the lookup cache
// decorator sits in front.
func (c *commandContext) service() (*lookupcache.Service, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	logger, err := c.ensureLogger()
	if err != nil {
		return nil, err
	}

	var inner tracking.Service
	if c.fixturesFlag != nil && strings.TrimSpace(*c.fixturesFlag) != "" {
		inner, err = tracking.LoadFixture(strings.TrimSpace(*c.fixturesFlag))
	} else {
		inner, err = tracking.NewHTTPService(cfg, nil)
	}
	if err != nil {
		return nil, err
	}

	return lookupcache.Wrap(inner, lookupcache.NewCache(cfg.LookupCachePath(), logger)), nil
}

func (c *commandContext) scenePath() (string, error) {
	if c.sceneFlag == nil || strings.TrimSpace(*c.sceneFlag) == "" {
		return "", errors.New("a scene snapshot is required (use --scene)")
	}
	return strings.TrimSpace(*c.sceneFlag), nil
}

func (c *commandContext) loadScene() (*scene.Scene, error) {
	path, err := c.scenePath()
	if err != nil {
		return nil, err
	}
	return scene.Load(path)
}

// session is the shared wiring behind the node-level commands.
type session struct {
	cfg     *config.Config
	logger  *slog.Logger
	scene   *scene.Scene
	manager *rig.Manager
}

func (c *commandContext) newSession() (*session, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	logger, err := c.ensureLogger()
	if err != nil {
		return nil, err
	}
	sc, err := c.loadScene()
	if err != nil {
		return nil, err
	}
	svc, err := c.service()
	if err != nil {
		return nil, err
	}
	templates, err := template.NewResolver(cfg, svc, logger)
	if err != nil {
		return nil, err
	}
	return &session{
		cfg:     cfg,
		logger:  logger,
		scene:   sc,
		manager: rig.NewManager(sc, svc, templates, logger),
	}, nil
}

func (s *session) save(path string) error {
	return s.scene.Save(path)
}
