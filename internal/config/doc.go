// Package config loads retrofit's settings.
//
// Settings come from three places, later ones winning:
//
//  1. Defaults (Default)
//  2. A TOML file, usually retrofit.toml
//  3. RETROFIT_* environment variables
//
// Example file:
//
//	enabled = true
//	debug = false
//	lazy_instrumentation = true
//	log_event_execution = false
//	log_event_patching = true
//	detailed_patch_logging = ["PlayerHealingInjuring"]
//	ignored_candidates = ["GameOpened"]
//	scripts = ["scripts"]
//	script_timeout = "500ms"
//
//	[log]
//	development = true
//	outputs = ["stderr"]
//
// The matching environment variables are RETROFIT_ENABLED, RETROFIT_DEBUG,
// RETROFIT_LAZY_INSTRUMENTATION, RETROFIT_LOG_EVENT_EXECUTION,
// RETROFIT_LOG_EVENT_PATCHING, RETROFIT_DETAILED_PATCH_LOGGING,
// RETROFIT_IGNORED_CANDIDATES, RETROFIT_SCRIPTS, RETROFIT_SCRIPT_TIMEOUT,
// RETROFIT_LOG_DEVELOPMENT and RETROFIT_LOG_OUTPUTS. Lists are comma
// separated.
//
// Settings only decide whether and when instrumentation happens and how much
// is logged. A Watcher reloads the file when it changes; which settings take
// effect without a restart is up to the caller (see Config.Reloadable).
package config
