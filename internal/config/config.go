package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"roombook/internal/slot"
)

const (
	StoreSheets = "sheets"
	StoreFile   = "file"
	StoreMemory = "memory"
)

const (
	DefaultTimezone    = "Asia/Kolkata"
	DefaultOfficeOpen  = "08:00"
	DefaultOfficeClose = "20:00"
	DefaultSlotMinutes = 15

	DefaultStore     = StoreSheets
	DefaultStoreFile = "bookings.csv"

	DefaultSMTPPort = 587

	DefaultCalDAVCalendar = "Meeting Rooms"

	DefaultHTTPAddr        = ":8080"
	DefaultReadTimeout     = 10 * time.Second
	DefaultWriteTimeout    = 30 * time.Second
	DefaultShutdownTimeout = 15 * time.Second

	DefaultLogLevel = "info"
)

type Config struct {
	Timezone    string
	OfficeOpen  string
	OfficeClose string
	SlotMinutes int

	Store     string
	StoreFile string

	GoogleSpreadsheetID    string
	GoogleSpreadsheetTitle string
	GoogleSheetName        string
	GoogleCredentialsFile  string
	GoogleClientID         string
	GoogleClientSecret     string
	GoogleAccount          string
	SheetsSkipMalformed    bool

	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	MailFromName string

	CalDAVURL      string
	CalDAVUsername string
	CalDAVPassword string
	CalDAVCalendar string
	SyncStateFile  string

	HTTPAddr        string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration

	LogLevel string

	// Variables that were set but could not be parsed.
	malformed []string
}

// Load reads the configuration from the environment and validates it.
func Load() (*Config, error) {
	env := &envParser{}
	cfg := &Config{
		Timezone:    getEnvStr(EnvTimezone, DefaultTimezone),
		OfficeOpen:  getEnvStr(EnvOfficeOpen, DefaultOfficeOpen),
		OfficeClose: getEnvStr(EnvOfficeClose, DefaultOfficeClose),
		SlotMinutes: env.number(EnvSlotMinutes, DefaultSlotMinutes),

		Store:     strings.ToLower(getEnvStr(EnvStore, DefaultStore)),
		StoreFile: getEnvStr(EnvStoreFile, DefaultStoreFile),

		GoogleSpreadsheetID:    getEnvStr(EnvGoogleSpreadsheetID, ""),
		GoogleSpreadsheetTitle: getEnvStr(EnvGoogleSpreadsheetName, ""),
		GoogleSheetName:        getEnvStr(EnvGoogleSheetName, ""),
		GoogleCredentialsFile:  getEnvStr(EnvGoogleCredentials, ""),
		GoogleClientID:         getEnvStr(EnvGoogleClientID, ""),
		GoogleClientSecret:     getEnvStr(EnvGoogleClientSecret, ""),
		GoogleAccount:          getEnvStr(EnvGoogleAccount, ""),
		SheetsSkipMalformed:    env.flag(EnvSheetsSkipMalformed, false),

		SMTPHost:     getEnvStr(EnvSMTPHost, ""),
		SMTPPort:     env.number(EnvSMTPPort, DefaultSMTPPort),
		SMTPUsername: getEnvStr(EnvSMTPUsername, ""),
		SMTPPassword: getEnvStr(EnvSMTPPassword, ""),
		MailFromName: getEnvStr(EnvMailFromName, ""),

		CalDAVURL:      getEnvStr(EnvCalDAVURL, ""),
		CalDAVUsername: getEnvStr(EnvCalDAVUsername, ""),
		CalDAVPassword: getEnvStr(EnvCalDAVPassword, ""),
		CalDAVCalendar: getEnvStr(EnvCalDAVCalendar, DefaultCalDAVCalendar),
		SyncStateFile:  getEnvStr(EnvSyncStateFile, ""),

		HTTPAddr:        getEnvStr(EnvHTTPAddr, DefaultHTTPAddr),
		ReadTimeout:     env.duration(EnvReadTimeout, DefaultReadTimeout),
		WriteTimeout:    env.duration(EnvWriteTimeout, DefaultWriteTimeout),
		ShutdownTimeout: env.duration(EnvShutdownTimeout, DefaultShutdownTimeout),

		LogLevel: getEnvStr(EnvLogLevel, DefaultLogLevel),
	}
	cfg.malformed = env.malformed

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (cfg *Config) Validate() error {
	errors := append([]string(nil), cfg.malformed...)

	if _, err := time.LoadLocation(cfg.Timezone); err != nil {
		errors = append(errors, fmt.Sprintf("Timezone must be an IANA zone name, got: %s", cfg.Timezone))
	}
	if _, err := cfg.Grid(); err != nil {
		errors = append(errors, err.Error())
	}

	switch cfg.Store {
	case StoreSheets:
	case StoreFile:
		if cfg.StoreFile == "" {
			errors = append(errors, "StoreFile cannot be empty when STORE=file")
		}
	case StoreMemory:
	default:
		errors = append(errors, fmt.Sprintf("Store must be one of sheets, file, memory, got: %s", cfg.Store))
	}

	if cfg.MailEnabled() {
		if cfg.SMTPPort < 1 || cfg.SMTPPort > 65535 {
			errors = append(errors, fmt.Sprintf("SMTPPort must be between 1 and 65535, got: %d", cfg.SMTPPort))
		}
		if cfg.SMTPUsername == "" {
			errors = append(errors, "SMTPUsername cannot be empty when SMTP_HOST is set")
		}
	}
	if cfg.CalDAVEnabled() && cfg.CalDAVUsername == "" {
		errors = append(errors, "CalDAVUsername cannot be empty when CALDAV_URL is set")
	}

	if cfg.ReadTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("ReadTimeout must be positive, got: %s", cfg.ReadTimeout))
	}
	if cfg.WriteTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("WriteTimeout must be positive, got: %s", cfg.WriteTimeout))
	}
	if cfg.ShutdownTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("ShutdownTimeout must be positive, got: %s", cfg.ShutdownTimeout))
	}

	if len(errors) > 0 {
		errMsg := "Configuration validation failed:\n"
		for i, err := range errors {
			errMsg += fmt.Sprintf("  %d. %s\n", i+1, err)
		}
		return fmt.Errorf("%s", errMsg)
	}

	return nil
}

// Location is the zone every booking date and time is read in.
func (cfg *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone '%s': %w", cfg.Timezone, err)
	}
	return loc, nil
}

// Grid is the bookable office day.
func (cfg *Config) Grid() (slot.Grid, error) {
	open, err := slot.ParseTimeOfDay(cfg.OfficeOpen)
	if err != nil {
		return slot.Grid{}, fmt.Errorf("OfficeOpen must be in HH:MM format, got: %s", cfg.OfficeOpen)
	}
	closing, err := slot.ParseTimeOfDay(cfg.OfficeClose)
	if err != nil {
		return slot.Grid{}, fmt.Errorf("OfficeClose must be in HH:MM format, got: %s", cfg.OfficeClose)
	}
	g := slot.Grid{Open: open, Close: closing, Step: time.Duration(cfg.SlotMinutes) * time.Minute}
	if err := g.Validate(); err != nil {
		return slot.Grid{}, err
	}
	return g, nil
}

func (cfg *Config) MailEnabled() bool { return cfg.SMTPHost != "" }

func (cfg *Config) CalDAVEnabled() bool { return cfg.CalDAVURL != "" }

func (cfg *Config) LogConfiguration(log *slog.Logger) {
	log.Info("Configuration loaded successfully",
		"timezone", cfg.Timezone,
		"office_open", cfg.OfficeOpen,
		"office_close", cfg.OfficeClose,
		"slot_minutes", cfg.SlotMinutes,
		"store", cfg.Store,
		"spreadsheet_id", cfg.GoogleSpreadsheetID,
		"service_account_set", cfg.GoogleCredentialsFile != "",
		"smtp_host", cfg.SMTPHost,
		"smtp_password_set", cfg.SMTPPassword != "",
		"caldav_url", cfg.CalDAVURL,
		"caldav_password_set", cfg.CalDAVPassword != "",
		"http_addr", cfg.HTTPAddr,
	)
}

func getEnvStr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// envParser reads typed variables and records the ones that fail to parse.
type envParser struct {
	malformed []string
}

func (p *envParser) number(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		p.malformed = append(p.malformed, fmt.Sprintf("%s must be an integer, got: %s", key, value))
		return fallback
	}
	return n
}

func (p *envParser) flag(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		p.malformed = append(p.malformed, fmt.Sprintf("%s must be true or false, got: %s", key, value))
		return fallback
	}
	return b
}

func (p *envParser) duration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		p.malformed = append(p.malformed, fmt.Sprintf("%s must be a duration like 10s, got: %s", key, value))
		return fallback
	}
	return d
}
