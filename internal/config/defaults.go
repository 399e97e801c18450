package config

const (
	defaultCacheDir        = "~/.cache/stagehand"
	defaultLogDir          = "~/.local/share/stagehand/logs"
	defaultPublishRoot     = "/jobs"
	defaultLogFormat       = "console"
	defaultLogLevel        = "info"
	defaultTrackingTimeout = 30
	defaultPipelineHost    = "houdini"
	defaultReportWidth     = 100
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		LogLevel:  defaultLogLevel,
		LogFormat: defaultLogFormat,
		Tracking: Tracking{
			RequestTimeout: defaultTrackingTimeout,
		},
		Paths: Paths{
			CacheDir:    defaultCacheDir,
			LogDir:      defaultLogDir,
			PublishRoot: defaultPublishRoot,
		},
		Pipeline: Pipeline{
			Host:        defaultPipelineHost,
			ReportWidth: defaultReportWidth,
		},
		Templates: Templates{
			Patterns: map[string]string{
				"usd_asset_publish":     "/jobs/{project}/assets/{asset_type}/{asset}/{step}/publish/usd/{task}/v{version}/{asset}.usd",
				"usd_shot_publish":      "/jobs/{project}/shots/{sequence}/{shot}/{step}/publish/usd/{task}/v{version}/{shot}.usd",
				"houdini_asset_work":    "/jobs/{project}/assets/{asset_type}/{asset}/{step}/work/houdini/{task}/{asset}_v{version}.hip",
				"houdini_asset_publish": "/jobs/{project}/assets/{asset_type}/{asset}/{step}/publish/houdini/{task}/{asset}_v{version}.hip",
				"houdini_shot_work":     "/jobs/{project}/shots/{sequence}/{shot}/{step}/work/houdini/{task}/{shot}_v{version}.hip",
				"houdini_shot_publish":  "/jobs/{project}/shots/{sequence}/{shot}/{step}/publish/houdini/{task}/{shot}_v{version}.hip",
			},
			SceneTemplates: []string{
				"houdini_asset_work",
				"houdini_asset_publish",
				"houdini_shot_work",
				"houdini_shot_publish",
			},
		},
	}
}
