package config

import (
	"strings"
	"testing"
	"time"
)

// clearEnv сбрасывает переменные, которые читает Load
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"APP_ENV", "ENV", "PORT", "LOG_LEVEL",
		"DATABASE_URL", "DATABASE_URL_POOLED", "DATABASE_URL_DIRECT",
		"BLOB_MODE", "S3_ENDPOINT", "S3_REGION", "S3_BUCKET", "S3_ACCESS_KEY_ID",
		"S3_SECRET_ACCESS_KEY", "S3_PUBLIC_BASE_URL", "S3_PRESIGN_TTL_SECONDS",
		"EXPORTS_MAX_PER_USER", "AUTH_MODE", "AUTH_REQUIRED",
		"ENGINE_POLICY_FILE", "CATALOG_CACHE_TTL_SECONDS",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaultsToLocalExports(t *testing.T) {
	clearEnv(t)

	cfg := Load()
	if cfg.Blob.Mode != BlobModeLocal {
		t.Errorf("expected blob mode %s, got %s", BlobModeLocal, cfg.Blob.Mode)
	}
	if cfg.Blob.S3.IsConfigured() {
		t.Error("expected S3 to be unconfigured by default")
	}
	if cfg.ExportsMaxPerUser != 20 || cfg.ExportsPresignTTLSecs != 900 {
		t.Errorf("unexpected export defaults: max=%d presign=%d", cfg.ExportsMaxPerUser, cfg.ExportsPresignTTLSecs)
	}
	if cfg.CatalogCacheTTL != 5*time.Minute {
		t.Errorf("expected catalog cache ttl 5m, got %s", cfg.CatalogCacheTTL)
	}
	if cfg.AuthMode != "none" || cfg.AuthRequired {
		t.Errorf("expected open auth by default, got mode=%s required=%t", cfg.AuthMode, cfg.AuthRequired)
	}
	if cfg.DatabaseURL != "" {
		t.Errorf("expected in-memory storage by default, got %q", cfg.DatabaseURL)
	}
}

func TestLoadSanitizesInvalidValues(t *testing.T) {
	clearEnv(t)
	t.Setenv("BLOB_MODE", "ftp")
	t.Setenv("S3_PRESIGN_TTL_SECONDS", "-5")
	t.Setenv("EXPORTS_MAX_PER_USER", "0")
	t.Setenv("CATALOG_CACHE_TTL_SECONDS", "-1")

	cfg := Load()
	if cfg.Blob.Mode != BlobModeLocal {
		t.Errorf("unknown BLOB_MODE must fall back to local, got %s", cfg.Blob.Mode)
	}
	if cfg.ExportsPresignTTLSecs != 900 || cfg.ExportsMaxPerUser != 20 {
		t.Errorf("expected defaults for invalid export limits, got presign=%d max=%d", cfg.ExportsPresignTTLSecs, cfg.ExportsMaxPerUser)
	}
	if cfg.CatalogCacheTTL != 0 {
		t.Errorf("negative cache ttl must clamp to 0, got %s", cfg.CatalogCacheTTL)
	}
}

func TestLoadDatabaseURLPriority(t *testing.T) {
	clearEnv(t)
	t.Setenv("DATABASE_URL_DIRECT", "postgres://direct")
	if got := Load().DatabaseURL; got != "postgres://direct" {
		t.Errorf("expected direct URL as last resort, got %q", got)
	}

	t.Setenv("DATABASE_URL", "postgres://plain")
	t.Setenv("DATABASE_URL_POOLED", "postgres://pooled")
	if got := Load().DatabaseURL; got != "postgres://pooled" {
		t.Errorf("expected pooled URL first, got %q", got)
	}
}

func TestLoadS3ExportsConfig(t *testing.T) {
	clearEnv(t)
	t.Setenv("BLOB_MODE", " S3 ")
	t.Setenv("S3_ENDPOINT", "https://storage.yandexcloud.net")
	t.Setenv("S3_BUCKET", "meal-plan-exports")

	cfg := Load()
	if cfg.Blob.Mode != BlobModeS3 {
		t.Fatalf("expected blob mode s3, got %s", cfg.Blob.Mode)
	}

	want := "S3_REGION,S3_ACCESS_KEY_ID,S3_SECRET_ACCESS_KEY,S3_PUBLIC_BASE_URL"
	if got := strings.Join(cfg.Blob.S3.MissingRequired(), ","); got != want {
		t.Errorf("expected missing %s, got %s", want, got)
	}
	if level, code, _ := cfg.Blob.S3.Diagnostics(); level != "WARN" || code != "s3_partial_config" {
		t.Errorf("expected WARN/s3_partial_config, got %s/%s", level, code)
	}

	t.Setenv("S3_REGION", "ru-central1")
	t.Setenv("S3_ACCESS_KEY_ID", "key")
	t.Setenv("S3_SECRET_ACCESS_KEY", "s3cr3t-value")
	t.Setenv("S3_PUBLIC_BASE_URL", "https://storage.yandexcloud.net/meal-plan-exports")

	cfg = Load()
	if !cfg.Blob.S3.IsConfigured() {
		t.Fatalf("expected S3 configured, missing %v", cfg.Blob.S3.MissingRequired())
	}
	if level, code, _ := cfg.Blob.S3.Diagnostics(); level != "INFO" || code != "s3_ready" {
		t.Errorf("expected INFO/s3_ready, got %s/%s", level, code)
	}
	if strings.Contains(cfg.Blob.S3.DiagnosticsSummary(), "s3cr3t-value") {
		t.Error("diagnostics summary must not print the secret key")
	}
}
