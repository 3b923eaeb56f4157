package config

import "fmt"

type Config struct {
	Paths       PathsConfig       `yaml:"paths"`
	FFmpeg      FFmpegConfig      `yaml:"ffmpeg"`
	OSS         OSSConfig         `yaml:"oss"`
	Transcribe  TranscribeConfig  `yaml:"transcribe"`
	Summary     SummaryConfig     `yaml:"summary"`
	Performance PerformanceConfig `yaml:"performance"`
	Logging     LoggingConfig     `yaml:"logging"`
}

type PathsConfig struct {
	Input  string `yaml:"input"`
	Output string `yaml:"output"`
}

type FFmpegConfig struct {
	BinaryPath     string `yaml:"binary_path"`
	ProbePath      string `yaml:"probe_path"`
	AudioCodec     string `yaml:"audio_codec"`
	AudioQuality   string `yaml:"audio_quality"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

type OSSConfig struct {
	Bucket          string `yaml:"bucket"`
	Endpoint        string `yaml:"endpoint"`
	AccessKeyID     string `yaml:"access_key_id"`
	AccessKeySecret string `yaml:"access_key_secret"`
	Prefix          string `yaml:"prefix"`
	URLTTLSeconds   int64  `yaml:"url_ttl_seconds"`
}

type TranscribeConfig struct {
	APIKey              string   `yaml:"api_key"`
	Model               string   `yaml:"model"`
	LanguageHints       []string `yaml:"language_hints"`
	BatchSize           int      `yaml:"batch_size"`
	PollIntervalSeconds int      `yaml:"poll_interval_seconds"`
	Diarization         bool     `yaml:"diarization"`
}

type SummaryConfig struct {
	Provider   string   `yaml:"provider"` // "deepseek" or "gemini"
	APIKey     string   `yaml:"api_key"`
	APIKeys    []string `yaml:"api_keys"` // gemini key rotation pool
	Model      string   `yaml:"model"`
	BaseURL    string   `yaml:"base_url"`
	ExportDocx bool     `yaml:"export_docx"`
}

type PerformanceConfig struct {
	MaxConcurrent int `yaml:"max_concurrent"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

func (c *Config) Validate() error {
	if c.Paths.Input == "" {
		return fmt.Errorf("paths.input is required")
	}
	if c.Paths.Output == "" {
		return fmt.Errorf("paths.output is required")
	}
	if c.OSS.Bucket == "" {
		return fmt.Errorf("oss.bucket is required")
	}
	if c.OSS.Endpoint == "" {
		return fmt.Errorf("oss.endpoint is required")
	}
	if c.OSS.AccessKeyID == "" || c.OSS.AccessKeySecret == "" {
		return fmt.Errorf("oss.access_key_id and oss.access_key_secret are required")
	}
	if c.Transcribe.APIKey == "" {
		return fmt.Errorf("transcribe.api_key is required")
	}
	switch c.Summary.Provider {
	case "", "deepseek":
		c.Summary.Provider = "deepseek"
		if c.Summary.APIKey == "" {
			return fmt.Errorf("summary.api_key is required for the deepseek provider")
		}
	case "gemini":
		if len(c.Summary.APIKeys) == 0 && c.Summary.APIKey == "" {
			return fmt.Errorf("summary.api_keys is required for the gemini provider")
		}
	default:
		return fmt.Errorf("summary.provider must be \"deepseek\" or \"gemini\", got %q", c.Summary.Provider)
	}

	if c.FFmpeg.BinaryPath == "" {
		c.FFmpeg.BinaryPath = "ffmpeg"
	}
	if c.FFmpeg.ProbePath == "" {
		c.FFmpeg.ProbePath = "ffprobe"
	}
	if c.FFmpeg.AudioCodec == "" {
		c.FFmpeg.AudioCodec = "libmp3lame"
	}
	if c.FFmpeg.AudioQuality == "" {
		c.FFmpeg.AudioQuality = "2"
	}
	if c.FFmpeg.TimeoutSeconds == 0 {
		c.FFmpeg.TimeoutSeconds = 300
	}
	if c.OSS.Prefix == "" {
		c.OSS.Prefix = "audio_transcription"
	}
	if c.OSS.URLTTLSeconds == 0 {
		c.OSS.URLTTLSeconds = 86400
	}
	if c.Transcribe.Model == "" {
		c.Transcribe.Model = "fun-asr"
	}
	if len(c.Transcribe.LanguageHints) == 0 {
		c.Transcribe.LanguageHints = []string{"zh"}
	}
	if c.Transcribe.BatchSize == 0 {
		c.Transcribe.BatchSize = 100
	}
	if c.Transcribe.PollIntervalSeconds == 0 {
		c.Transcribe.PollIntervalSeconds = 10
	}
	if c.Summary.Model == "" {
		if c.Summary.Provider == "gemini" {
			c.Summary.Model = "gemini-2.5-flash"
		} else {
			c.Summary.Model = "deepseek-chat"
		}
	}
	if c.Summary.BaseURL == "" && c.Summary.Provider == "deepseek" {
		c.Summary.BaseURL = "https://api.deepseek.com"
	}
	if c.Performance.MaxConcurrent == 0 {
		c.Performance.MaxConcurrent = 1
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}

	return nil
}

// GeminiKeys returns the key-rotation pool for the gemini provider,
// falling back to the single api_key field.
func (c *Config) GeminiKeys() []string {
	if len(c.Summary.APIKeys) > 0 {
		return c.Summary.APIKeys
	}
	return []string{c.Summary.APIKey}
}
