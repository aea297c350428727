package app

import (
	"platemap_metadata/internal/blob"
	"platemap_metadata/internal/config"
)

// RunOptions is everything one metadata run needs besides the study config
// file itself.
type RunOptions struct {
	// Workbook is a local .xlsx path, s3://bucket/key, gs://bucket/object or
	// gsheets://<spreadsheet-id>.
	Workbook     string
	SheetNames   []string
	ConfigPath   string
	SubjectsPath string
	// Output is a TSV path, "-" for stdout, or gsheets://<spreadsheet-id>/<tab>.
	Output string

	// LedgerDSN is a SQLite path or postgres:// DSN; empty skips the ledger.
	LedgerDSN string
	// MetricsTextfile is a node-exporter textfile path; empty skips metrics.
	MetricsTextfile string

	CredentialsFile string
	// GCSCredentialsFile is a service account key for gs:// workbooks; empty
	// uses application default credentials.
	GCSCredentialsFile string
	S3                 blob.S3Config
	Notify             NotifySettings
	Resilience         config.ResilienceConfig
}

type NotifySettings struct {
	Enabled  bool
	URL      string
	Topic    string
	Priority string
}

// OptionsFromEnv fills the settings that normally come from the process
// environment.
func OptionsFromEnv() RunOptions {
	return RunOptions{
		Workbook:           GetEnvWithDefault("PLATEMAP_WORKBOOK", ""),
		SheetNames:         SplitList(GetEnvWithDefault("PLATEMAP_SHEETS", "")),
		ConfigPath:         GetEnvWithDefault("PLATEMAP_CONFIG", "config.yaml"),
		SubjectsPath:       GetEnvWithDefault("PLATEMAP_SUBJECTS", ""),
		Output:             GetEnvWithDefault("PLATEMAP_OUTPUT", "-"),
		LedgerDSN:          GetEnvWithDefault("PLATEMAP_LEDGER_DSN", ""),
		MetricsTextfile:    GetEnvWithDefault("PLATEMAP_METRICS_TEXTFILE", ""),
		CredentialsFile:    GetEnvWithDefault("GOOGLE_CREDENTIALS_FILE", "credentials.json"),
		GCSCredentialsFile: GetEnvWithDefault("GCS_CREDENTIALS_FILE", ""),
		S3: blob.S3Config{
			Region:    GetEnvWithDefault("PLATEMAP_S3_REGION", ""),
			Endpoint:  GetEnvWithDefault("PLATEMAP_S3_ENDPOINT", ""),
			PathStyle: GetEnvBool("PLATEMAP_S3_PATH_STYLE", false),
		},
		Notify: NotifySettings{
			Enabled:  GetEnvBool("NTFY_ENABLED", false),
			URL:      GetEnvWithDefault("NTFY_URL", "https://ntfy.sh"),
			Topic:    GetEnvWithDefault("NTFY_TOPIC", ""),
			Priority: GetEnvWithDefault("NTFY_PRIORITY", "default"),
		},
		Resilience: config.DefaultResilienceConfig,
	}
}
