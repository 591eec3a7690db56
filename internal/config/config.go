/*
 * This file is part of Paperwork Hub (https://github.com/clerkwell/paperwork-hub).
 * Copyright (C) 2025 Clerkwell Health
 *
 * This program is free software: you can redistribute it and/or modify
 * it under the terms of the GNU Affero General Public License as published by
 * the Free Software Foundation, either version 3 of the License, or
 * (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
 * GNU Affero General Public License for more details.
 *
 * You should have received a copy of the GNU Affero General Public License
 * along with this program. If not, see <https://www.gnu.org/licenses/>.
 */

package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all configuration for the paperwork hub
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	OpenAI   OpenAIConfig
	Mapping  MappingConfig
	Audio    AudioConfig
	Logging  LoggingConfig
	NATS     NATSConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DatabaseConfig holds SQLite storage configuration
type DatabaseConfig struct {
	Path string
}

// OpenAIConfig holds hosted AI service configuration
type OpenAIConfig struct {
	APIKey             string
	BaseURL            string        // Empty means the public API endpoint
	ExtractionModel    string        // Structured clinical extraction model
	TranscriptionModel string        // Speech-to-text model
	Timeout            time.Duration // Per-call budget
	Temperature        float64
	MaxOutputTokens    int
}

// MappingConfig holds form auto-fill engine thresholds
type MappingConfig struct {
	FuzzyMatchThreshold  float64 // Minimum similarity for non-exact field matching
	AcceptanceConfidence float64 // Minimum confidence for a field to count as present
	MaxFollowUps         int     // Cap on follow-up prompts per form
}

// AudioConfig holds realtime dictation session configuration
type AudioConfig struct {
	SampleRate    int           // PCM sample rate in Hz
	BitsPerSample int           // PCM sample width
	ChunkSeconds  float64       // Buffered audio before a transcription pass
	MaxSessions   int           // Concurrent session cap
	IdleTimeout   time.Duration // Janitor eviction threshold
	Language      string        // Transcription language hint
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string
	Format string
}

// NATSConfig holds NATS messaging configuration
type NATSConfig struct {
	URL           string // Empty disables event publishing
	MaxReconnect  int
	ReconnectWait time.Duration
}

// Load loads configuration from environment variables with defaults
func Load() (*Config, error) {
	config := &Config{
		Server: ServerConfig{
			Host:         getEnvString("PAPERWORK_HOST", "0.0.0.0"),
			Port:         getEnvInt("PAPERWORK_PORT", 3000),
			ReadTimeout:  getEnvDuration("PAPERWORK_READ_TIMEOUT", 30*time.Second),
			WriteTimeout: getEnvDuration("PAPERWORK_WRITE_TIMEOUT", 120*time.Second),
		},
		Database: DatabaseConfig{
			Path: getEnvString("PAPERWORK_DB_PATH", "./data/paperwork.db"),
		},
		OpenAI: OpenAIConfig{
			APIKey:             getEnvString("OPENAI_API_KEY", ""),
			BaseURL:            getEnvString("OPENAI_BASE_URL", ""),
			ExtractionModel:    getEnvString("PAPERWORK_EXTRACTION_MODEL", "gpt-4.1-mini"),
			TranscriptionModel: getEnvString("PAPERWORK_TRANSCRIPTION_MODEL", "whisper-1"),
			Timeout:            getEnvDuration("PAPERWORK_AI_TIMEOUT", 60*time.Second),
			Temperature:        getEnvFloat64("PAPERWORK_AI_TEMPERATURE", 0.1),
			MaxOutputTokens:    getEnvInt("PAPERWORK_AI_MAX_TOKENS", 2000),
		},
		Mapping: MappingConfig{
			FuzzyMatchThreshold:  getEnvFloat64("PAPERWORK_FUZZY_THRESHOLD", 0.8),
			AcceptanceConfidence: getEnvFloat64("PAPERWORK_ACCEPT_CONFIDENCE", 0.5),
			MaxFollowUps:         getEnvInt("PAPERWORK_MAX_FOLLOW_UPS", 5),
		},
		Audio: AudioConfig{
			SampleRate:    getEnvInt("PAPERWORK_AUDIO_SAMPLE_RATE", 16000),
			BitsPerSample: getEnvInt("PAPERWORK_AUDIO_BITS_PER_SAMPLE", 16),
			ChunkSeconds:  getEnvFloat64("PAPERWORK_AUDIO_CHUNK_SECONDS", 3.0),
			MaxSessions:   getEnvInt("PAPERWORK_AUDIO_MAX_SESSIONS", 100),
			IdleTimeout:   getEnvDuration("PAPERWORK_AUDIO_IDLE_TIMEOUT", 10*time.Minute),
			Language:      getEnvString("PAPERWORK_AUDIO_LANGUAGE", "en"),
		},
		Logging: LoggingConfig{
			Level:  getEnvString("LOG_LEVEL", "info"),
			Format: getEnvString("LOG_FORMAT", "json"),
		},
		NATS: NATSConfig{
			URL:           getEnvString("PAPERWORK_NATS_URL", ""),
			MaxReconnect:  getEnvInt("NATS_MAX_RECONNECT", 10),
			ReconnectWait: getEnvDuration("NATS_RECONNECT_WAIT", 2*time.Second),
		},
	}

	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// validate checks if the configuration is valid
func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Database.Path == "" {
		return fmt.Errorf("database path must be provided")
	}

	if c.OpenAI.ExtractionModel == "" {
		return fmt.Errorf("extraction model must be provided")
	}

	if c.OpenAI.TranscriptionModel == "" {
		return fmt.Errorf("transcription model must be provided")
	}

	if c.Mapping.FuzzyMatchThreshold < 0 || c.Mapping.FuzzyMatchThreshold > 1 {
		return fmt.Errorf("fuzzy match threshold must be within [0,1]: %f", c.Mapping.FuzzyMatchThreshold)
	}

	if c.Mapping.AcceptanceConfidence < 0 || c.Mapping.AcceptanceConfidence > 1 {
		return fmt.Errorf("acceptance confidence must be within [0,1]: %f", c.Mapping.AcceptanceConfidence)
	}

	if c.Mapping.MaxFollowUps < 0 {
		return fmt.Errorf("max follow-ups must not be negative: %d", c.Mapping.MaxFollowUps)
	}

	if c.Audio.SampleRate <= 0 {
		return fmt.Errorf("audio sample rate must be positive: %d", c.Audio.SampleRate)
	}

	if c.Audio.BitsPerSample != 8 && c.Audio.BitsPerSample != 16 {
		return fmt.Errorf("unsupported audio sample width: %d", c.Audio.BitsPerSample)
	}

	if c.Audio.ChunkSeconds <= 0 {
		return fmt.Errorf("audio chunk seconds must be positive: %f", c.Audio.ChunkSeconds)
	}

	if c.Audio.MaxSessions <= 0 {
		return fmt.Errorf("audio max sessions must be positive: %d", c.Audio.MaxSessions)
	}

	return nil
}

// Helper functions for environment variable parsing
func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloat64(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
