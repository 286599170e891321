// Package config provides loading and environment overlay for dynalog
// configuration. It exposes a Default() baseline, file loading (JSON or
// YAML by extension) and a DYNALOG_* environment overlay.
//
// Example:
//
//	cfg := config.Default()
//	if fileCfg, err := config.Load("/etc/dynalog.yaml"); err == nil {
//	    cfg = fileCfg
//	}
//	config.FromEnv(&cfg)
//	if err := cfg.Validate(); err != nil {
//	    ...
//	}
package config
