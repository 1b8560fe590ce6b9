package config

import (
	"reflect"
	"testing"
)

func TestParseSeeds(t *testing.T) {
	tests := []struct {
		name    string
		input   []string
		want    []string
		wantErr bool
	}{
		{
			name:  "empty list",
			input: nil,
			want:  []string{},
		},
		{
			name:  "single seed",
			input: []string{"127.0.0.1:50051"},
			want:  []string{"127.0.0.1:50051"},
		},
		{
			name:  "multiple seeds",
			input: []string{"127.0.0.1:50051", "10.0.0.2:50052"},
			want:  []string{"127.0.0.1:50051", "10.0.0.2:50052"},
		},
		{
			name:  "duplicates collapsed",
			input: []string{"127.0.0.1:50051", "127.0.0.1:50051"},
			want:  []string{"127.0.0.1:50051"},
		},
		{
			name:  "blank entries skipped",
			input: []string{" 127.0.0.1:50051 ", ""},
			want:  []string{"127.0.0.1:50051"},
		},
		{
			name:    "missing port",
			input:   []string{"127.0.0.1"},
			wantErr: true,
		},
		{
			name:    "hostname instead of IP",
			input:   []string{"example.com:50051"},
			wantErr: true,
		},
		{
			name:    "garbage",
			input:   []string{"not-an-address"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseSeeds(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Errorf("ParseSeeds(%v) expected error, got %v", tt.input, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseSeeds(%v) failed: %v", tt.input, err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ParseSeeds(%v) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "defaults are valid", mutate: func(*Config) {}},
		{name: "bad IP", mutate: func(c *Config) { c.LocalIP = "nope" }, wantErr: true},
		{name: "negative port", mutate: func(c *Config) { c.Port = -1 }, wantErr: true},
		{name: "port too large", mutate: func(c *Config) { c.Port = 70000 }, wantErr: true},
		{name: "zero max peers", mutate: func(c *Config) { c.MaxPeers = 0 }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
