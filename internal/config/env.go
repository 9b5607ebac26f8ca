package config

const (
	EnvTimezone    = "TIMEZONE"
	EnvOfficeOpen  = "OFFICE_OPEN"
	EnvOfficeClose = "OFFICE_CLOSE"
	EnvSlotMinutes = "SLOT_MINUTES"

	EnvStore     = "STORE"
	EnvStoreFile = "STORE_FILE"

	EnvGoogleSpreadsheetID   = "GOOGLE_SPREADSHEET_ID"
	EnvGoogleSpreadsheetName = "GOOGLE_SPREADSHEET_TITLE"
	EnvGoogleSheetName       = "GOOGLE_SHEET_NAME"
	EnvGoogleCredentials     = "GOOGLE_APPLICATION_CREDENTIALS"
	EnvGoogleClientID        = "GOOGLE_CLIENT_ID"
	EnvGoogleClientSecret    = "GOOGLE_CLIENT_SECRET"
	EnvGoogleAccount         = "GOOGLE_ACCOUNT"
	EnvSheetsSkipMalformed   = "SHEETS_SKIP_MALFORMED"

	EnvSMTPHost     = "SMTP_HOST"
	EnvSMTPPort     = "SMTP_PORT"
	EnvSMTPUsername = "SMTP_USERNAME"
	EnvSMTPPassword = "SMTP_PASSWORD"
	EnvMailFromName = "MAIL_FROM_NAME"

	EnvCalDAVURL      = "CALDAV_URL"
	EnvCalDAVUsername = "CALDAV_USERNAME"
	EnvCalDAVPassword = "CALDAV_PASSWORD"
	EnvCalDAVCalendar = "CALDAV_CALENDAR"
	EnvSyncStateFile  = "SYNC_STATE_FILE"

	EnvHTTPAddr        = "HTTP_ADDR"
	EnvReadTimeout     = "READ_TIMEOUT"
	EnvWriteTimeout    = "WRITE_TIMEOUT"
	EnvShutdownTimeout = "SHUTDOWN_TIMEOUT"

	EnvLogLevel = "LOG_LEVEL"
)
