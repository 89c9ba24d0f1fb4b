package cliparse

import (
	"testing"
)

func TestParseFlags(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("DATABASE_TYPE", "")
	t.Setenv("TOKEN_SECRET", "")

	tests := []struct {
		name    string
		args    []string
		env     map[string]string
		wantErr bool
		check   func(t *testing.T, cfg Config)
	}{
		{
			name: "all flags provided",
			args: []string{"-p", "8080", "-d", "postgres://localhost/tischrunde", "-t", "postgres", "-token-secret", "s3cret"},
			check: func(t *testing.T, cfg Config) {
				if cfg.Port != 8080 {
					t.Errorf("Port = %d, want 8080", cfg.Port)
				}
				if cfg.DatabaseType != "postgres" {
					t.Errorf("DatabaseType = %q, want postgres", cfg.DatabaseType)
				}
			},
		},
		{
			name: "defaults from env",
			args: []string{},
			env: map[string]string{
				"DATABASE_URL": "campaigns.db",
				"TOKEN_SECRET": "s3cret",
			},
			check: func(t *testing.T, cfg Config) {
				if cfg.Port != 3320 {
					t.Errorf("Port = %d, want default 3320", cfg.Port)
				}
				if cfg.DatabaseType != "sqlite" {
					t.Errorf("DatabaseType = %q, want default sqlite", cfg.DatabaseType)
				}
			},
		},
		{
			name:    "missing database URL",
			args:    []string{"-token-secret", "s3cret"},
			wantErr: true,
		},
		{
			name:    "missing token secret",
			args:    []string{"-d", "campaigns.db"},
			wantErr: true,
		},
		{
			name:    "invalid database type",
			args:    []string{"-d", "campaigns.db", "-t", "mysql", "-token-secret", "s3cret"},
			wantErr: true,
		},
		{
			name:    "invalid PORT env",
			args:    []string{"-d", "campaigns.db", "-token-secret", "s3cret"},
			env:     map[string]string{"PORT": "not-a-number"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			cfg, err := ParseFlags(tt.args)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseFlags failed: %v", err)
			}
			if tt.check != nil {
				tt.check(t, cfg)
			}
		})
	}
}
