package config

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const (
	settingsFile     = "config/setting.ini"
	defaultEnv       = "dev"
	envConfigPattern = "config/%s/portal.ini"
)

// Settings contains global toggles such as the active environment.
type Settings struct {
	Environment string
	Defaults    map[string]string
}

// PortalConfig describes runtime options for the officer portal daemon and CLI.
type PortalConfig struct {
	Environment string
	HTTPAddress string

	// Root admin bootstrap
	AdminEmail    string
	AdminPassword string

	// Backward-compatible base log file; used if specific files unset
	LogFile string
	// Separate log files for CLI and daemon (preferred)
	LogFileCLI    string
	LogFileDaemon string
	LogLevel      string

	// Storage locations. A value starting with postgres:// or postgresql://
	// selects the Postgres backend, anything else is a SQLite file path.
	DirectoryPath string
	LedgerPath    string

	// Sessions
	AuthSecret   string
	AuthDisabled bool
	SessionTTL   time.Duration

	// Lookup workflow
	VendorTimeout    time.Duration
	CapabilitiesFile string
	LookupsPerMinute float64
	LookupBurst      float64

	// CORS
	CORSOrigins []string

	// Vendor endpoints (credentials live on capability rows)
	SignzyBaseURL    string
	PlanAPIBaseURL   string
	DeepvueBaseURL   string
	LeakOSINTBaseURL string
}

// LoadPortalConfig reads the current environment and loads the matching portal config file.
func LoadPortalConfig(root string) (PortalConfig, error) {
	if root == "" {
		root = "."
	}
	s, err := loadSettings(root)
	if err != nil {
		return PortalConfig{}, err
	}

	envValues, err := parseINI(filepath.Join(root, fmt.Sprintf(envConfigPattern, s.Environment)))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			envValues = map[string]string{}
		} else {
			return PortalConfig{}, err
		}
	}

	merged := make(map[string]string)
	for k, v := range s.Defaults {
		merged[k] = v
	}
	for k, v := range envValues {
		merged[k] = v
	}

	cfg := PortalConfig{
		Environment:   s.Environment,
		HTTPAddress:   firstNonEmpty(os.Getenv("VERIPORT_HTTP_ADDRESS"), merged["http_address"], ":8086"),
		AdminEmail:    firstNonEmpty(os.Getenv("VERIPORT_ADMIN_EMAIL"), merged["admin_email"], "admin@local"),
		AdminPassword: firstNonEmpty(os.Getenv("VERIPORT_ADMIN_PASSWORD"), merged["admin_password"]),
		LogFile:       firstNonEmpty(os.Getenv("VERIPORT_LOG_FILE"), merged["log_file"]),
		LogLevel:      firstNonEmpty(merged["log_level"], "info"),
		DirectoryPath: firstNonEmpty(os.Getenv("VERIPORT_DIRECTORY_PATH"), merged["directory_path"], DefaultDirectoryPath()),
		LedgerPath:    firstNonEmpty(os.Getenv("VERIPORT_LEDGER_PATH"), merged["ledger_path"], DefaultLedgerPath()),
		AuthSecret:    firstNonEmpty(os.Getenv("VERIPORT_AUTH_SECRET"), merged["auth_secret"], "veriport-dev-secret"),
		AuthDisabled:  parseBool(firstNonEmpty(os.Getenv("VERIPORT_AUTH_DISABLED"), merged["auth_disabled"])),

		CapabilitiesFile: firstNonEmpty(os.Getenv("VERIPORT_CAPABILITIES_FILE"), merged["capabilities_file"]),
		CORSOrigins:      parseCSV(firstNonEmpty(os.Getenv("VERIPORT_CORS_ORIGINS"), merged["cors_origins"])),

		SignzyBaseURL:    firstNonEmpty(os.Getenv("VERIPORT_SIGNZY_BASE_URL"), merged["signzy_base_url"]),
		PlanAPIBaseURL:   firstNonEmpty(os.Getenv("VERIPORT_PLANAPI_BASE_URL"), merged["planapi_base_url"]),
		DeepvueBaseURL:   firstNonEmpty(os.Getenv("VERIPORT_DEEPVUE_BASE_URL"), merged["deepvue_base_url"]),
		LeakOSINTBaseURL: firstNonEmpty(os.Getenv("VERIPORT_LEAKOSINT_BASE_URL"), merged["leakosint_base_url"]),
	}

	// Preferred separate log files with env override precedence
	cliLog := firstNonEmpty(os.Getenv("VERIPORT_LOG_FILE_CLI"), os.Getenv("VERIPORT_LOG_FILE"), merged["log_file_cli"], merged["log_file"])
	daemonLog := firstNonEmpty(os.Getenv("VERIPORT_LOG_FILE_DAEMON"), os.Getenv("VERIPORT_LOG_FILE"), merged["log_file_daemon"], merged["log_file"])
	cfg.LogFileCLI = cliLog
	cfg.LogFileDaemon = daemonLog

	cfg.SessionTTL, err = parseOptionalDuration(firstNonEmpty(os.Getenv("VERIPORT_SESSION_TTL"), merged["session_ttl"]), 24*time.Hour)
	if err != nil {
		return PortalConfig{}, fmt.Errorf("invalid session_ttl: %w", err)
	}
	cfg.VendorTimeout, err = parseOptionalDuration(firstNonEmpty(os.Getenv("VERIPORT_VENDOR_TIMEOUT"), merged["vendor_timeout"]), 30*time.Second)
	if err != nil {
		return PortalConfig{}, fmt.Errorf("invalid vendor_timeout: %w", err)
	}

	cfg.LookupsPerMinute = parseOptionalFloat(firstNonEmpty(os.Getenv("VERIPORT_LOOKUPS_PER_MINUTE"), merged["lookups_per_minute"]), 30)
	cfg.LookupBurst = parseOptionalFloat(firstNonEmpty(os.Getenv("VERIPORT_LOOKUP_BURST"), merged["lookup_burst"]), 10)

	return cfg, nil
}

func loadSettings(root string) (Settings, error) {
	values, err := parseINI(filepath.Join(root, settingsFile))
	if errors.Is(err, os.ErrNotExist) {
		return Settings{Environment: defaultEnv, Defaults: map[string]string{}}, nil
	}
	if err != nil {
		return Settings{}, err
	}
	env := values["environment"]
	if env == "" {
		env = defaultEnv
	}
	defaults := make(map[string]string)
	for k, v := range values {
		if k == "environment" {
			continue
		}
		defaults[k] = v
	}
	return Settings{Environment: env, Defaults: defaults}, nil
}

func parseINI(path string) (map[string]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	values := make(map[string]string)
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, ";") {
			continue
		}
		if strings.HasPrefix(line, "[") {
			continue
		}
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}
		key := strings.TrimSpace(parts[0])
		val := strings.TrimSpace(parts[1])
		if key == "" {
			continue
		}
		values[strings.ToLower(key)] = val
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return values, nil
}

func parseBool(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

func parseOptionalFloat(v string, fallback float64) float64 {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	if parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil && parsed > 0 {
		return parsed
	}
	return fallback
}

func parseOptionalDuration(v string, fallback time.Duration) (time.Duration, error) {
	if strings.TrimSpace(v) == "" {
		return fallback, nil
	}
	dur, err := time.ParseDuration(strings.TrimSpace(v))
	if err != nil {
		return 0, err
	}
	return dur, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func parseCSV(input string) []string {
	if strings.TrimSpace(input) == "" {
		return nil
	}
	parts := strings.Split(input, ",")
	var out []string
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// DefaultDirectoryPath returns the fallback directory database under the user's home.
func DefaultDirectoryPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "directory.db"
	}
	return filepath.Join(home, ".veriport", "directory.db")
}

// DefaultLedgerPath returns the fallback ledger location under the user's home.
func DefaultLedgerPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "ledger.db"
	}
	return filepath.Join(home, ".veriport", "ledger.db")
}

// IsPostgresDSN reports whether the storage location selects the Postgres backend.
func IsPostgresDSN(path string) bool {
	return strings.HasPrefix(path, "postgres://") || strings.HasPrefix(path, "postgresql://")
}
