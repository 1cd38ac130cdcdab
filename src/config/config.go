package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	EnvFileEnvVar = "SCREEN_TRANSLATE_ENV"

	DeepLKeyPathEnvVar      = "DEEPL_API_KEY_FILE"
	OpenRouterKeyPathEnvVar = "OPENROUTER_API_KEY_FILE"

	StrategyDetector = "detector"
	StrategyClassic  = "classic"
	StrategyVision   = "vision"

	DefaultHotkey      = "Ctrl+Shift+T"
	DefaultTranslator  = "google"
	DefaultSourceLang  = "auto"
	DefaultTargetLang  = "en"
	DefaultHistoryFile = "translations.txt"
	DefaultOCRLanguage = "eng"
)

type LoadOptions struct {
	EnvFileOverride  string
	StrategyOverride string
}

type Config struct {
	Translator string
	SourceLang string
	TargetLang string

	Hotkey string

	OCRStrategy string
	OCRLanguage string

	DeepLAPIKey     string
	DeepLAPIKeyPath string

	OpenRouterAPIKey     string
	OpenRouterAPIKeyPath string
	Model                string
	Providers            []string

	HistoryFile string
	SaveHistory bool

	EnableFileLogging  bool
	RunDeadlineSec     int
	OverlayDurationSec int
	CopyToClipboard    bool
	Notify             bool
}

func Load() (*Config, error) {
	return LoadWithOptions(LoadOptions{})
}

func LoadWithOptions(opts LoadOptions) (*Config, error) {
	// Sources in priority order:
	// 1) explicit --env-file
	// 2) .env in the executable directory
	// 3) file named by SCREEN_TRANSLATE_ENV
	envPath := resolveEnvPath(opts.EnvFileOverride)
	dotenvValues := readDotenvValues(envPath)
	if envPath != "" {
		_ = godotenv.Load(envPath)
	}

	var providers []string
	if providersStr := os.Getenv("PROVIDERS"); providersStr != "" {
		for _, provider := range strings.Split(providersStr, ",") {
			if trimmed := strings.TrimSpace(provider); trimmed != "" {
				providers = append(providers, trimmed)
			}
		}
	}

	deeplPath := resolveKeyPath(DeepLKeyPathEnvVar, dotenvValues)
	openRouterPath := resolveKeyPath(OpenRouterKeyPathEnvVar, dotenvValues)

	strategy := os.Getenv("OCR_STRATEGY")
	if override := strings.TrimSpace(opts.StrategyOverride); override != "" {
		strategy = override
	}

	cfg := &Config{
		Translator:           strings.ToLower(getEnvWithDefault("TRANSLATOR", DefaultTranslator)),
		SourceLang:           getEnvWithDefault("SOURCE_LANG", DefaultSourceLang),
		TargetLang:           getEnvWithDefault("TARGET_LANG", DefaultTargetLang),
		Hotkey:               getEnvWithDefault("HOTKEY", DefaultHotkey),
		OCRStrategy:          ResolveStrategy(strategy),
		OCRLanguage:          getEnvWithDefault("OCR_LANGUAGE", DefaultOCRLanguage),
		DeepLAPIKey:          resolveKey(deeplPath, "DEEPL_API_KEY"),
		DeepLAPIKeyPath:      deeplPath,
		OpenRouterAPIKey:     resolveKey(openRouterPath, "OPENROUTER_API_KEY"),
		OpenRouterAPIKeyPath: openRouterPath,
		Model:                os.Getenv("MODEL"),
		Providers:            providers,
		HistoryFile:          getEnvWithDefault("HISTORY_FILE", DefaultHistoryFile),
		SaveHistory:          getEnvBool("SAVE_HISTORY", true),
		EnableFileLogging:    getEnvBool("ENABLE_FILE_LOGGING", false),
		RunDeadlineSec:       getEnvPositiveInt("RUN_DEADLINE_SEC", 20),
		OverlayDurationSec:   getEnvPositiveInt("OVERLAY_DURATION_SEC", 3),
		CopyToClipboard:      getEnvBool("COPY_TO_CLIPBOARD", false),
		Notify:               getEnvBool("NOTIFY", true),
	}

	return cfg, nil
}

func resolveEnvPath(override string) string {
	if override = strings.TrimSpace(override); override != "" {
		if _, err := os.Stat(override); err == nil {
			return override
		}
	}

	if execPath, err := os.Executable(); err == nil {
		exeEnv := filepath.Join(filepath.Dir(execPath), ".env")
		if _, err := os.Stat(exeEnv); err == nil {
			return exeEnv
		}
	}

	if alt := os.Getenv(EnvFileEnvVar); alt != "" {
		if _, err := os.Stat(alt); err == nil {
			return alt
		}
	}

	return ""
}

func readDotenvValues(envPath string) map[string]string {
	if envPath == "" {
		return map[string]string{}
	}

	values, err := godotenv.Read(envPath)
	if err != nil {
		return map[string]string{}
	}

	return values
}

// resolveKeyPath prefers the .env value over the process environment, matching
// godotenv.Load which never overrides variables that are already set.
func resolveKeyPath(envVar string, dotenvValues map[string]string) string {
	keyPath := strings.TrimSpace(os.Getenv(envVar))
	if dotenvPath := strings.TrimSpace(dotenvValues[envVar]); dotenvPath != "" {
		keyPath = dotenvPath
	}
	return keyPath
}

func resolveKey(keyPath, envVar string) string {
	if keyPath != "" {
		if data, err := os.ReadFile(keyPath); err == nil {
			if fileKey := strings.TrimSpace(string(data)); fileKey != "" {
				return fileKey
			}
		}
	}
	return strings.TrimSpace(os.Getenv(envVar))
}

// ResolveStrategy maps user input to one of the OCR strategies, defaulting to the detector.
func ResolveStrategy(value string) string {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case StrategyClassic, "tesseract":
		return StrategyClassic
	case StrategyVision, "llm":
		return StrategyVision
	default:
		return StrategyDetector
	}
}

func getEnvWithDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	switch v {
	case "true", "1", "yes":
		return true
	case "false", "0", "no":
		return false
	default:
		return defaultValue
	}
}

func getEnvPositiveInt(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return defaultValue
}
