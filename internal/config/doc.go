// Package config provides configuration management for steamlink.
//
// Configuration is loaded from config.yaml in a single directory. The default
// directory is ~/.config/steamlink; commands accept --config-path to use
// another one. A missing file yields the defaults.
//
// # Configuration File
//
//	dataDir: /var/lib/steamlink          # default: <config path>/data
//	provider:
//	  baseURL: https://api.steampowered.com
//	  deviceNameTemplate: "NXD-{{ .Hostname }}"
//	  httpTimeout: 30s
//	  pairingTimeout: 0s                 # 0 polls until cancelled
//	relay:
//	  mode: public-key                   # public-key, code-hash, plain-code
//	  pollInterval: 2s
//	log:
//	  level: info
//	  format: text
//	daemon:
//	  refreshInterval: 1m
//	  refreshSkew: 5m
//	  metricsAddress: 127.0.0.1:9477
//
// # Data Directory
//
// The data directory holds the credential file (steam_token.json) and the
// device id used for code-hash relay addressing (device_id). Both are
// created with owner-only permissions.
package config
