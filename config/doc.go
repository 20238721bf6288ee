// Package config provides unified configuration loading for the bridge:
// defaults, then a YAML file, then environment variable overrides.
//
//	cfg, err := config.NewLoader().
//	    WithConfigPath("config.yaml").
//	    WithEnvPrefix("VOICEBRIDGE").
//	    Load()
package config
