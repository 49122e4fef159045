/*
 * Copyright (c) 2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

// Package agentconfig reads the agent's environment configuration through
// viper, the same library SaFE/common/pkg/config wraps for its own
// LoadConfig/getInt/getString helpers. An optional YAML override file
// adds live-reloadable tuning knobs on top of the environment, watched
// with fsnotify the way node-agent's MonitorManager watches its config
// directory.
package agentconfig

import (
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"k8s.io/klog/v2"

	"github.com/AMD-AIG-AIMA/cupcake-agent/internal/agenterrors"
)

const (
	keyNodeName              = "node_name"
	keyNamespace             = "namespace"
	keyHostpathRoot          = "hostpath_root"
	keyBackupStoreEnabled    = "backup_store_enabled"
	keyBackupStoreType       = "backup_store_type"
	keyBackupStoreBucket     = "backup_store_bucket"
	keyBackupStoreEndpoint   = "backup_store_endpoint"
	keyReconcileInterval     = "reconcile_interval"
	keyLogLevel              = "log_level"
	keyGCSchedule            = "agent_gc_schedule"
	keyRetention             = "agent_retention"
	keyEtcdEndpointsOverride = "etcd_endpoints_override"
)

const keyAgentConfigFile = "agent_config_file"

// Config is the agent's fully resolved, static-at-startup configuration.
type Config struct {
	NodeName              string
	Namespace             string
	HostpathRoot          string
	BackupStoreEnabled    bool
	BackupStoreType       string
	BackupStoreBucket     string
	BackupStoreEndpoint   string
	ReconcileInterval     time.Duration
	LogLevel              string
	GCSchedule            string
	Retention             time.Duration
	EtcdEndpointsOverride string
}

// Load binds the agent's environment variables, applies defaults,
// and optionally merges a YAML override file named by AGENT_CONFIG_FILE.
// NODE_NAME missing is a fatal ConfigError, matching the "fail fast if
// absent" contract.
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault(keyNamespace, "kube-system")
	v.SetDefault(keyHostpathRoot, "/var/lib/cupcake")
	v.SetDefault(keyBackupStoreEnabled, false)
	v.SetDefault(keyBackupStoreType, "s3")
	v.SetDefault(keyReconcileInterval, 30)
	v.SetDefault(keyLogLevel, "info")
	v.SetDefault(keyGCSchedule, "@daily")
	v.SetDefault(keyRetention, "168h")

	for _, key := range []string{
		keyNodeName, keyNamespace, keyHostpathRoot, keyBackupStoreEnabled,
		keyBackupStoreType, keyBackupStoreBucket, keyBackupStoreEndpoint,
		keyReconcileInterval, keyLogLevel, keyGCSchedule, keyRetention,
		keyEtcdEndpointsOverride,
	} {
		if err := v.BindEnv(key); err != nil {
			return nil, agenterrors.NewConfigError("bind env "+key, err)
		}
	}

	if configFile := v.GetString(keyAgentConfigFile); configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, agenterrors.NewConfigError("read config file "+configFile, err)
		}
	}

	return build(v)
}

func build(v *viper.Viper) (*Config, error) {
	nodeName := v.GetString(keyNodeName)
	if nodeName == "" {
		return nil, agenterrors.NewConfigError("NODE_NAME environment variable not set", nil)
	}

	retention, err := time.ParseDuration(v.GetString(keyRetention))
	if err != nil {
		return nil, agenterrors.NewConfigError("invalid "+keyRetention, err)
	}

	return &Config{
		NodeName:              nodeName,
		Namespace:             v.GetString(keyNamespace),
		HostpathRoot:          v.GetString(keyHostpathRoot),
		BackupStoreEnabled:    v.GetBool(keyBackupStoreEnabled),
		BackupStoreType:       v.GetString(keyBackupStoreType),
		BackupStoreBucket:     v.GetString(keyBackupStoreBucket),
		BackupStoreEndpoint:   v.GetString(keyBackupStoreEndpoint),
		ReconcileInterval:     time.Duration(v.GetInt(keyReconcileInterval)) * time.Second,
		LogLevel:              v.GetString(keyLogLevel),
		GCSchedule:            v.GetString(keyGCSchedule),
		Retention:             retention,
		EtcdEndpointsOverride: v.GetString(keyEtcdEndpointsOverride),
	}, nil
}

// Tunables is the subset of Config that WatchFile re-reads from
// AGENT_CONFIG_FILE whenever it changes: the fields an operator plausibly
// wants to retune, as opposed to identity/credential fields fixed at
// startup. Whether a re-read value takes effect without a restart is up to
// the onChange consumer.
type Tunables struct {
	ReconcileInterval time.Duration
	Retention         time.Duration
	GCSchedule        string
}

// WatchFile re-invokes onChange with freshly-read Tunables whenever the
// named YAML file is written, mirroring MonitorManager's fsnotify-driven
// reload loop. It returns the watcher so the caller can Close it on
// shutdown. A zero-value path is a no-op (no file to watch).
func WatchFile(path string, onChange func(Tunables)) (*fsnotify.Watcher, error) {
	if path == "" {
		return nil, nil
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, agenterrors.NewConfigError("create config watcher", err)
	}
	if err := watcher.Add(path); err != nil {
		_ = watcher.Close()
		return nil, agenterrors.NewConfigError("watch config file "+path, err)
	}

	go func() {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				v := viper.New()
				v.SetConfigFile(path)
				v.SetDefault(keyReconcileInterval, 30)
				v.SetDefault(keyGCSchedule, "@daily")
				v.SetDefault(keyRetention, "168h")
				if err := v.ReadInConfig(); err != nil {
					klog.Warningf("reload %s: %v", path, err)
					continue
				}
				retention, err := time.ParseDuration(v.GetString(keyRetention))
				if err != nil {
					klog.Warningf("reload %s: invalid %s: %v", path, keyRetention, err)
					continue
				}
				onChange(Tunables{
					ReconcileInterval: time.Duration(v.GetInt(keyReconcileInterval)) * time.Second,
					Retention:         retention,
					GCSchedule:        v.GetString(keyGCSchedule),
				})
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				klog.Warningf("config watcher error: %v", err)
			}
		}
	}()

	return watcher, nil
}
