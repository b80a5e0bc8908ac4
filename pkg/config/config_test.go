package config

import (
	"reflect"
	"testing"
)

func TestParseVolumesFile(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    []VolumeConfig
		wantErr bool
	}{
		{
			name:  "empty document",
			input: "",
			want:  nil,
		},
		{
			name: "two volumes",
			input: `volumes:
  - handle: images
    path: /srv/uploads/images
  - handle: documents
    path: /srv/uploads/documents
`,
			want: []VolumeConfig{
				{Handle: "images", Path: "/srv/uploads/images"},
				{Handle: "documents", Path: "/srv/uploads/documents"},
			},
		},
		{
			name: "missing path",
			input: `volumes:
  - handle: images
`,
			wantErr: true,
		},
		{
			name: "duplicate handle",
			input: `volumes:
  - handle: images
    path: /a
  - handle: images
    path: /b
`,
			wantErr: true,
		},
		{
			name:    "not yaml",
			input:   "volumes: {{",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseVolumesFile([]byte(tt.input))
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseVolumesFile() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("parseVolumesFile() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLoadFlagDefaultsFalse(t *testing.T) {
	t.Setenv("REMOTE_TRANSPORT", "local")
	t.Setenv("REMOTE_TRANSPORT_DIR", t.TempDir())
	t.Setenv("REMOTE_KEEP_LOCAL", "")
	t.Setenv("REMOTE_KEEP_EMERGENCY_BACKUP", "")
	t.Setenv("REMOTE_USE_QUEUE", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.KeepLocal || cfg.KeepEmergencyBackup || cfg.UseQueue {
		t.Errorf("absent flags should default to false: %+v", cfg)
	}
}

func TestLoadRejectsUnknownTransport(t *testing.T) {
	t.Setenv("REMOTE_TRANSPORT", "carrier-pigeon")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for unknown transport kind")
	}
}

func TestLoadRequiresBucketForS3(t *testing.T) {
	t.Setenv("REMOTE_TRANSPORT", "s3")
	t.Setenv("S3_BUCKET", "")
	if _, err := Load(); err == nil {
		t.Fatal("expected error when S3 bucket is missing")
	}
}
