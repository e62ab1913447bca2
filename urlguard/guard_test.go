package urlguard

import (
	"errors"
	"testing"
)

func TestValidate_SchemeCoercion(t *testing.T) {
	guard := New(nil, false)

	tests := []struct {
		name     string
		raw      string
		expected string
		wantErr  bool
	}{
		{
			name:     "missing scheme defaults to https",
			raw:      "example.com/page",
			expected: "https://example.com/page",
		},
		{
			name:     "http is upgraded to https",
			raw:      "http://example.com/page",
			expected: "https://example.com/page",
		},
		{
			name:     "https passes through",
			raw:      "https://example.com/page",
			expected: "https://example.com/page",
		},
		{
			name:    "ftp is rejected",
			raw:     "ftp://example.com/file",
			wantErr: true,
		},
		{
			name:    "javascript is rejected",
			raw:     "javascript://alert(1)",
			wantErr: true,
		},
		{
			name:    "empty url is rejected",
			raw:     "",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := guard.Validate(tt.raw)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("Validate(%q) = %q, want error", tt.raw, got)
				}
				if !errors.Is(err, ErrInvalidURL) {
					t.Errorf("error = %v, want ErrInvalidURL", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.expected {
				t.Errorf("Validate(%q) = %q, want %q", tt.raw, got, tt.expected)
			}
		})
	}
}

func TestValidate_PathTraversal(t *testing.T) {
	guard := New(nil, false)

	for _, raw := range []string{
		"https://example.com/../etc/passwd",
		"https://example.com/a/../b",
		"https://example.com/a/..",
	} {
		if _, err := guard.Validate(raw); !errors.Is(err, ErrInvalidURL) {
			t.Errorf("Validate(%q) error = %v, want ErrInvalidURL", raw, err)
		}
	}
}

func TestValidate_AllowList(t *testing.T) {
	guard := New([]string{"example.com", "*.partner.org"}, false)

	tests := []struct {
		name    string
		raw     string
		allowed bool
	}{
		{"exact match", "https://example.com/page", true},
		{"wildcard subdomain", "https://shop.partner.org/x", true},
		{"deep wildcard subdomain", "https://a.b.partner.org/x", true},
		{"unlisted domain", "https://other.com", false},
		{"suffix attack on wildcard", "https://evilpartner.org", false},
		{"suffix attack on exact", "https://notexample.com", false},
		{"subdomain of exact entry", "https://www.example.com", false},
		{"public ip literal", "https://93.184.216.34/page", false},
		{"ip literal with port", "https://93.184.216.34:8443/page", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := guard.Validate(tt.raw)
			if tt.allowed && err != nil {
				t.Errorf("Validate(%q) unexpectedly rejected: %v", tt.raw, err)
			}
			if !tt.allowed && err == nil {
				t.Errorf("Validate(%q) unexpectedly allowed", tt.raw)
			}
		})
	}
}

func TestValidate_SkipDomainCheck(t *testing.T) {
	guard := New([]string{"example.com"}, true)

	if _, err := guard.Validate("https://anything.net"); err != nil {
		t.Errorf("skip flag should disable the allow-list, got %v", err)
	}
}

func TestValidate_IPLiterals(t *testing.T) {
	guard := New(nil, false)

	tests := []struct {
		name    string
		raw     string
		allowed bool
	}{
		{"loopback v4", "https://127.0.0.1/admin", false},
		{"loopback v6", "https://[::1]/admin", false},
		{"private 10/8", "https://10.0.0.5", false},
		{"private 192.168/16", "https://192.168.1.1", false},
		{"link local", "https://169.254.169.254/latest/meta-data", false},
		{"public ip", "https://93.184.216.34", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := guard.Validate(tt.raw)
			if tt.allowed && err != nil {
				t.Errorf("Validate(%q) unexpectedly rejected: %v", tt.raw, err)
			}
			if !tt.allowed && err == nil {
				t.Errorf("Validate(%q) unexpectedly allowed", tt.raw)
			}
		})
	}
}

func TestValidateIP(t *testing.T) {
	tests := []struct {
		host    string
		wantErr bool
	}{
		{"127.0.0.1", true},
		{"::1", true},
		{"[::1]", true},
		{"10.1.2.3", true},
		{"93.184.216.34", false},
		{"not-an-ip", true},
	}

	for _, tt := range tests {
		t.Run(tt.host, func(t *testing.T) {
			err := ValidateIP(tt.host)
			if tt.wantErr && err == nil {
				t.Errorf("ValidateIP(%q) = nil, want error", tt.host)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("ValidateIP(%q) = %v, want nil", tt.host, err)
			}
		})
	}
}
