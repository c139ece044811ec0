package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	appNameVar  = "APP_NAME"
	envVar      = "ENV"
	logLevelVar = "LOG_LEVEL"

	initDataEnvVar = "TMA_INIT_DATA_ENV"
)

type EnvVars struct {
	file *AppFile
}

var _ EnvConfig = EnvVars{}

func (e EnvVars) GetAppName() string {
	return lookup(appNameVar, e.file.Name, "tma-session")
}

func (e EnvVars) GetEnv() string {
	return lookup(envVar, e.file.Env, "DEV")
}

func (e EnvVars) GetLogLevel() string {
	return lookup(logLevelVar, e.file.LogLevel, "info")
}

type HostConfig interface {
	// GetInitDataEnv names the environment variable the host shell
	// publishes its init payload in.
	GetInitDataEnv() string
}

type Host struct {
	file *HostFile
}

var _ HostConfig = Host{}

func (h Host) GetInitDataEnv() string {
	return lookup(initDataEnvVar, h.file.InitDataEnv, "TMA_INIT_DATA")
}

func GetEnv(envVar, defaultValue string) string {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	return value
}

// lookup prefers the environment, then the file value, then the default.
func lookup(envVar, fileValue, defaultValue string) string {
	if value := os.Getenv(envVar); value != "" {
		return value
	}
	if fileValue != "" {
		return fileValue
	}
	return defaultValue
}

func lookupInt(envVar string, fileValue, defaultValue int) int {
	if value := os.Getenv(envVar); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	if fileValue != 0 {
		return fileValue
	}
	return defaultValue
}

func lookupList(envVar string, fileValue []string) []string {
	if value := os.Getenv(envVar); value != "" {
		var out []string
		for _, item := range strings.Split(value, ",") {
			if item = strings.TrimSpace(item); item != "" {
				out = append(out, item)
			}
		}
		return out
	}
	return fileValue
}

// lookupDuration returns defaultValue when the setting is absent or does
// not parse; Validate reports the latter.
func lookupDuration(envVar, fileValue string, defaultValue time.Duration) time.Duration {
	d, err := parseDuration(lookup(envVar, fileValue, ""))
	if err != nil || d == 0 {
		return defaultValue
	}
	return d
}

func parseDuration(value string) (time.Duration, error) {
	if value == "" {
		return 0, nil
	}
	return time.ParseDuration(value)
}
