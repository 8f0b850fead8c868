package config

import (
	"fmt"
	"os"
	"path"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v2"
)

const (
	EnvDataDir      = "HEADWATCH_DATA"
	EnvSMTPPassword = "HEADWATCH_SMTP_PASSWORD"
)

type DetectorConfig struct {
	ServerAddr   string `yaml:"serverAddr" json:"serverAddr" validate:"required"`
	ModelName    string `yaml:"modelName" json:"modelName" validate:"required"`
	ModelVersion string `yaml:"modelVersion" json:"modelVersion"`
	Width        int    `yaml:"width" json:"width" validate:"gt=0"`
	Height       int    `yaml:"height" json:"height" validate:"gt=0"`
}

type CounterConfig struct {
	HeadClass      int     `yaml:"headClass" json:"headClass" validate:"gte=0"`
	ConfThreshold  float32 `yaml:"confThreshold" json:"confThreshold" validate:"gte=0,lte=1"`
	Label          string  `yaml:"label" json:"label"`
	CountThreshold int     `yaml:"countThreshold" json:"countThreshold" validate:"gte=0"`
}

type DesktopConfig struct {
	Title   string `yaml:"title" json:"title"`
	Timeout int    `yaml:"timeout" json:"timeout" validate:"gte=0"`
}

type EmailConfig struct {
	Host     string `yaml:"host" json:"host"`
	Port     int    `yaml:"port" json:"port" validate:"gte=0,lte=65535"`
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
	From     string `yaml:"from" json:"from" validate:"omitempty,email"`
	To       string `yaml:"to" json:"to" validate:"omitempty,email"`
	Subject  string `yaml:"subject" json:"subject"`
	Timeout  int    `yaml:"timeout" json:"timeout" validate:"gte=0"`
}

type AlertConfig struct {
	// Cooldown in seconds, 0 disables suppression of repeated alerts.
	Cooldown int           `yaml:"cooldown" json:"cooldown" validate:"gte=0"`
	Desktop  DesktopConfig `yaml:"desktop" json:"desktop"`
	Email    EmailConfig   `yaml:"email" json:"email"`
}

type ServerConfig struct {
	Addr      string `yaml:"addr" json:"addr"`
	SSLCert   string `yaml:"sslCert" json:"sslCert"`
	SSLKey    string `yaml:"sslKey" json:"sslKey"`
	JwtSecret string `yaml:"jwtSecret" json:"jwtSecret"`
	// MaxUploadSize in bytes for multipart image uploads.
	MaxUploadSize int64 `yaml:"maxUploadSize" json:"maxUploadSize" validate:"gte=0"`
}

type NSQConfig struct {
	NSQDAddr string `yaml:"nsqdAddr" json:"nsqdAddr"`
	Topic    string `yaml:"topic" json:"topic"`
	Channel  string `yaml:"channel" json:"channel"`
}

type S3Config struct {
	Bucket          string `yaml:"bucket" json:"bucket"`
	Endpoint        string `yaml:"endpoint" json:"endpoint"`
	AccessKeyID     string `yaml:"accessKeyID" json:"accessKeyID"`
	SecretAccessKey string `yaml:"secretAccessKey" json:"secretAccessKey"`
	UseSSL          bool   `yaml:"useSSL" json:"useSSL,omitempty"`
	Region          string `yaml:"region" json:"region,omitempty"`
}

func (s3 *S3Config) Enabled() bool {
	return s3.Endpoint != "" && s3.Bucket != ""
}

type Config struct {
	WorkDir  string         `yaml:"workDir" json:"workDir"`
	Images   []string       `yaml:"images" json:"images"`
	Detector DetectorConfig `yaml:"detector" json:"detector"`
	Counter  CounterConfig  `yaml:"counter" json:"counter"`
	Alert    AlertConfig    `yaml:"alert" json:"alert"`
	Server   ServerConfig   `yaml:"server" json:"server"`
	NSQ      NSQConfig      `yaml:"nsq" json:"nsq"`
	S3       S3Config       `yaml:"s3" json:"s3"`
}

func (c Config) HistoryDir() string {
	return path.Join(c.WorkDir, "history")
}

func DefaultImages() []string {
	images := make([]string, 0, 8)
	for i := 1; i <= 8; i++ {
		images = append(images, fmt.Sprintf("network/images/image%d.jpg", i))
	}
	return images
}

func DefaultConfig() *Config {
	cfg := &Config{
		Images: DefaultImages(),
		Detector: DetectorConfig{
			ServerAddr:   "localhost:8001",
			ModelName:    "yolov8n",
			ModelVersion: "1",
			Width:        640,
			Height:       480,
		},
		Counter: CounterConfig{
			HeadClass:      0,
			ConfThreshold:  0.5,
			Label:          "Head",
			CountThreshold: 5,
		},
		Alert: AlertConfig{
			Desktop: DesktopConfig{
				Title:   "Head Count Alert!",
				Timeout: 5,
			},
			Email: EmailConfig{
				Host:    "smtp.gmail.com",
				Port:    587,
				Subject: "Head Count Alert!",
				Timeout: 10,
			},
		},
		Server: ServerConfig{
			Addr:          "127.0.0.1:8090",
			MaxUploadSize: 16 << 20,
		},
		NSQ: NSQConfig{
			Topic:   "headcount_reports",
			Channel: "headwatch-watch",
		},
		S3: S3Config{
			Bucket: "headwatch",
			Region: "us-east-1",
		},
	}

	if dataDir := os.Getenv(EnvDataDir); dataDir != "" {
		cfg.WorkDir = path.Join(dataDir, "headwatch")
	} else {
		cfg.WorkDir = "./headwatch_dir"
	}

	return cfg
}

// Validate checks struct constraints declared in the validate tags.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

func (c *Config) applyEnv() {
	if pw := os.Getenv(EnvSMTPPassword); pw != "" {
		c.Alert.Email.Password = pw
	}
}

// Parse decodes YAML data over the defaults.
func Parse(data []byte) (*Config, error) {
	conf := DefaultConfig()
	if err := yaml.Unmarshal(data, conf); err != nil {
		return nil, fmt.Errorf("unmarshal config file: %v", err)
	}
	conf.applyEnv()
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	return conf, nil
}

func LoadConfig(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	return Parse(data)
}
