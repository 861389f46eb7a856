package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

const (
	StorageMemory    = "memory"
	StorageFirestore = "firestore"
)

type Config struct {
	Port        string
	Environment string
	LogLevel    string

	StorageBackend string // "memory" or "firestore"

	GCPProject   string
	GCPLocation  string
	ModelName    string
	GeminiAPIKey string
	UseMockLLM   bool

	ImageKit ImageKit

	AllowedOrigin string
}

type ImageKit struct {
	PrivateKey     string
	URLEndpoint    string
	UploadEndpoint string
}

// Load reads an optional pingup.yaml plus PINGUP_* environment overrides.
func Load() (*Config, error) {
	v := viper.New()

	v.SetDefault("port", "8080")
	v.SetDefault("environment", "local")
	v.SetDefault("loglevel", "info")
	v.SetDefault("storagebackend", StorageMemory)
	v.SetDefault("gcpproject", "")
	v.SetDefault("gcplocation", "us-central1")
	v.SetDefault("geminiapikey", "")
	v.SetDefault("modelname", "gemini-2.5-flash")
	v.SetDefault("usemockllm", false)
	v.SetDefault("imagekit.privatekey", "")
	v.SetDefault("imagekit.urlendpoint", "")
	v.SetDefault("imagekit.uploadendpoint", "https://upload.imagekit.io/api/v1/files/upload")
	// defaults double as env-key registrations; AutomaticEnv only surfaces
	// keys viper already knows about
	v.SetDefault("allowedorigin", "*")

	v.SetConfigName("pingup")
	v.SetConfigType("yaml")
	v.AddConfigPath("config")
	v.AddConfigPath(".")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// env-only operation is fine
	}

	v.SetEnvPrefix("PINGUP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if c.StorageBackend == StorageFirestore && c.GCPProject == "" {
		return nil, fmt.Errorf("gcpproject must be set for the firestore storage backend")
	}
	if !c.UseMockLLM && c.GeminiAPIKey == "" && c.GCPProject == "" {
		return nil, fmt.Errorf("either geminiapikey or gcpproject must be set (or enable usemockllm)")
	}

	return &c, nil
}
