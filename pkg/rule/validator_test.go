package rule

import (
	"strings"
	"testing"
)

type sampleConfig struct {
	Port int    `mapstructure:"port" rule:"required,min=1,max=65535"`
	Host string `mapstructure:"host" rule:"required"`
	Mode string `mapstructure:"mode" rule:"omitempty,oneof=dev prod"`
}

func TestValidateStructOK(t *testing.T) {
	cfg := sampleConfig{Port: 8080, Host: "0.0.0.0", Mode: "dev"}

	if err := ValidateStruct(cfg); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}
}

func TestValidateStructFailures(t *testing.T) {
	cases := []struct {
		name  string
		cfg   sampleConfig
		field string
	}{
		{"missing host", sampleConfig{Port: 8080}, "host"},
		{"port out of range", sampleConfig{Port: 70000, Host: "x"}, "port"},
		{"bad mode", sampleConfig{Port: 80, Host: "x", Mode: "staging"}, "mode"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateStruct(tc.cfg)
			if err == nil {
				t.Fatal("expected validation error")
			}

			if !strings.Contains(err.Error(), tc.field) {
				t.Fatalf("error %q does not mention field %q", err, tc.field)
			}
		})
	}
}
