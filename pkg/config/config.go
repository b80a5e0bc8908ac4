// Package config loads the settings the backup engine needs from the
// environment and an optional YAML volumes file. Flags that are absent are
// treated as false.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config carries every setting the engine consumes. It is passed explicitly
// into constructors; nothing reads it ambiently.
type Config struct {
	// Filename metadata.
	SystemName  string
	Environment string
	Version     string

	// Behaviour flags.
	KeepLocal           bool
	KeepEmergencyBackup bool
	UseQueue            bool

	// Local layout. TempRoot holds staging workspaces; artifacts are staged
	// under StoragePath/Handle.
	TempRoot    string
	StoragePath string
	Handle      string

	Transport TransportConfig
	Database  DatabaseConfig
	Queue     QueueConfig
	Volumes   []VolumeConfig

	// HTTP service.
	ListenAddr string
}

// TransportConfig selects and configures the remote storage backend.
type TransportConfig struct {
	// Kind is "s3" or "local".
	Kind     string
	LocalDir string

	S3Endpoint       string
	S3Region         string
	S3Bucket         string
	S3Prefix         string
	S3AccessKey      string
	S3SecretKey      string
	S3DisableTLS     bool
	S3ForcePathStyle bool
}

// DatabaseConfig points at the relational database to dump and restore.
type DatabaseConfig struct {
	DSN string
}

// QueueConfig points at the deployment's job queue.
type QueueConfig struct {
	URL    string
	Stream string
}

// VolumeConfig declares one file-storage volume.
type VolumeConfig struct {
	Handle string `yaml:"handle"`
	Path   string `yaml:"path"`
}

// Load reads configuration from the environment. REMOTE_VOLUMES_FILE, when
// set, names a YAML file declaring the volumes.
func Load() (Config, error) {
	cfg := Config{
		SystemName:  os.Getenv("REMOTE_SYSTEM_NAME"),
		Environment: os.Getenv("REMOTE_ENVIRONMENT"),
		Version:     getEnv("REMOTE_VERSION", "1"),

		KeepLocal:           getEnvBool("REMOTE_KEEP_LOCAL", false),
		KeepEmergencyBackup: getEnvBool("REMOTE_KEEP_EMERGENCY_BACKUP", false),
		UseQueue:            getEnvBool("REMOTE_USE_QUEUE", false),

		TempRoot:    getEnv("REMOTE_TEMP_ROOT", filepath.Join(os.TempDir(), "remote-core")),
		StoragePath: getEnv("REMOTE_STORAGE_PATH", "storage"),
		Handle:      getEnv("REMOTE_HANDLE", "remote-backup"),

		ListenAddr: getEnv("REMOTE_LISTEN_ADDR", ":8080"),
	}

	cfg.Transport = TransportConfig{
		Kind:             getEnv("REMOTE_TRANSPORT", "s3"),
		LocalDir:         os.Getenv("REMOTE_TRANSPORT_DIR"),
		S3Endpoint:       os.Getenv("S3_ENDPOINT"),
		S3Region:         getEnv("S3_REGION", "us-east-1"),
		S3Bucket:         os.Getenv("S3_BUCKET"),
		S3Prefix:         os.Getenv("S3_PREFIX"),
		S3AccessKey:      os.Getenv("S3_ACCESS_KEY"),
		S3SecretKey:      os.Getenv("S3_SECRET_KEY"),
		S3DisableTLS:     getEnvBool("S3_DISABLE_TLS", false),
		S3ForcePathStyle: getEnvBool("S3_FORCE_PATH_STYLE", true),
	}

	cfg.Database = DatabaseConfig{DSN: os.Getenv("REMOTE_DATABASE_DSN")}
	cfg.Queue = QueueConfig{
		URL:    getEnv("REMOTE_QUEUE_URL", "nats://127.0.0.1:4222"),
		Stream: getEnv("REMOTE_QUEUE_STREAM", "jobs"),
	}

	switch cfg.Transport.Kind {
	case "s3":
		if cfg.Transport.S3Bucket == "" {
			return Config{}, fmt.Errorf("S3_BUCKET is required when REMOTE_TRANSPORT=s3")
		}
	case "local":
		if cfg.Transport.LocalDir == "" {
			return Config{}, fmt.Errorf("REMOTE_TRANSPORT_DIR is required when REMOTE_TRANSPORT=local")
		}
	default:
		return Config{}, fmt.Errorf("unknown REMOTE_TRANSPORT %q", cfg.Transport.Kind)
	}

	if path := os.Getenv("REMOTE_VOLUMES_FILE"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read volumes file: %w", err)
		}
		volumes, err := parseVolumesFile(data)
		if err != nil {
			return Config{}, fmt.Errorf("parse volumes file %s: %w", path, err)
		}
		cfg.Volumes = volumes
	}

	return cfg, nil
}

// ArtifactDir returns the directory staged artifacts live in. It is created
// on demand and is otherwise unmanaged; the directory listing is the only
// index.
func (c Config) ArtifactDir() string {
	return filepath.Join(c.StoragePath, c.Handle)
}

func parseVolumesFile(data []byte) ([]VolumeConfig, error) {
	var doc struct {
		Volumes []VolumeConfig `yaml:"volumes"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(doc.Volumes))
	for _, vol := range doc.Volumes {
		if vol.Handle == "" {
			return nil, fmt.Errorf("volume with empty handle")
		}
		if vol.Path == "" {
			return nil, fmt.Errorf("volume %q has no path", vol.Handle)
		}
		if _, dup := seen[vol.Handle]; dup {
			return nil, fmt.Errorf("duplicate volume handle %q", vol.Handle)
		}
		seen[vol.Handle] = struct{}{}
	}
	return doc.Volumes, nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}
