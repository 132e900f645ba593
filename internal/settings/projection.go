package settings

import (
	"strings"

	"gopkg.in/yaml.v3"
)

// AppConfig is the backend's app.yaml document. Field order and names are
// read by the backend and must stay stable.
type AppConfig struct {
	RunMode string `yaml:"run_mode"`
	Host    string `yaml:"host"`
	Port    int    `yaml:"port"`

	DatabaseURL string `yaml:"database_url"`
	RedisURL    string `yaml:"redis_url,omitempty"`

	MinioEndpoint  string `yaml:"minio_endpoint,omitempty"`
	MinioAccessKey string `yaml:"minio_access_key,omitempty"`
	MinioSecretKey string `yaml:"minio_secret_key,omitempty"`
	MinioBucket    string `yaml:"minio_bucket,omitempty"`

	OSSEndpoint        string `yaml:"oss_endpoint,omitempty"`
	OSSAccessKeyID     string `yaml:"oss_access_key_id,omitempty"`
	OSSAccessKeySecret string `yaml:"oss_access_key_secret,omitempty"`
	OSSBucket          string `yaml:"oss_bucket,omitempty"`

	ConfigDir     string `yaml:"config_dir"`
	AbilitiesFile string `yaml:"abilities_file,omitempty"`

	DashscopeAPIKey  string `yaml:"dashscope_api_key,omitempty"`
	AnthropicAPIKey  string `yaml:"anthropic_api_key,omitempty"`
	AnthropicBaseURL string `yaml:"anthropic_base_url,omitempty"`

	RequiredEnvVars []string `yaml:"required_env_vars"`
	AIEnvPath       string   `yaml:"ai_env_path,omitempty"`

	SkipDBWait       bool `yaml:"skip_db_wait"`
	NoDBPassword     bool `yaml:"no_db_password"`
	UseLocalPostgres bool `yaml:"use_local_postgres"`
	Dev              bool `yaml:"dev"`
}

// Project maps s onto the backend's app.yaml shape. configDir replaces the
// config_dir pointer and abilitiesFile is the resolved overlay path.
//
// Object-store fields are only carried when both endpoint and bucket are
// set. The legacy qwen_token never appears; its value moves to
// dashscope_api_key when that key is empty.
func (s Settings) Project(configDir, abilitiesFile string) AppConfig {
	required := append([]string{}, s.RequiredEnvVars...)

	out := AppConfig{
		RunMode:          string(s.RunMode),
		Host:             s.Host,
		Port:             s.Port,
		DatabaseURL:      s.DatabaseURL,
		RedisURL:         s.RedisURL,
		MinioEndpoint:    s.MinioEndpoint,
		MinioAccessKey:   s.MinioAccessKey,
		MinioSecretKey:   s.MinioSecretKey,
		MinioBucket:      s.MinioBucket,
		ConfigDir:        configDir,
		AbilitiesFile:    abilitiesFile,
		DashscopeAPIKey:  s.APIKey(),
		AnthropicAPIKey:  strings.TrimSpace(s.AnthropicAPIKey),
		AnthropicBaseURL: strings.TrimSpace(s.AnthropicBaseURL),
		RequiredEnvVars:  required,
		AIEnvPath:        s.AIEnvPath,
		SkipDBWait:       s.SkipDBWait,
		NoDBPassword:     s.NoDBPassword,
		UseLocalPostgres: s.UseLocalPostgres,
		Dev:              s.Dev,
	}

	if s.OSSConfigured() {
		out.OSSEndpoint = s.OSSEndpointNormalized()
		out.OSSAccessKeyID = s.OSSAccessKeyID
		out.OSSAccessKeySecret = s.OSSAccessKeySecret
		out.OSSBucket = strings.TrimSpace(s.OSSBucket)
	}
	return out
}

// Marshal renders the document as YAML.
func (c AppConfig) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}
