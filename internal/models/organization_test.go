package models

import "testing"

func TestOrganization_Validate(t *testing.T) {
	tests := []struct {
		name   string
		org    Organization
		fields []string
	}{
		{"valid", Organization{Name: "Code for Denver", Subdomain: "codefordenver"}, nil},
		{"hyphenated", Organization{Name: "A", Subdomain: "code-for-a"}, nil},
		{"missing name", Organization{Subdomain: "a"}, []string{"name"}},
		{"missing subdomain", Organization{Name: "A"}, []string{"subdomain"}},
		{"uppercase subdomain", Organization{Name: "A", Subdomain: "Denver"}, []string{"subdomain"}},
		{"leading hyphen", Organization{Name: "A", Subdomain: "-a"}, []string{"subdomain"}},
		{"dot", Organization{Name: "A", Subdomain: "a.b"}, []string{"subdomain"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := tt.org.Validate()
			if len(errs) != len(tt.fields) {
				t.Fatalf("Validate() = %v, expected errors on %v", errs, tt.fields)
			}
			for _, f := range tt.fields {
				if len(errs[f]) == 0 {
					t.Errorf("expected error on %q", f)
				}
			}
		})
	}
}

func TestOrganization_AutoVerifies(t *testing.T) {
	org := Organization{AutoVerify: true, AutoVerifyDomains: []string{"example.org", "@Corp.com"}}

	tests := []struct {
		domain string
		want   bool
	}{
		{"example.org", true},
		{"corp.com", true},
		{"other.org", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := org.AutoVerifies(tt.domain); got != tt.want {
			t.Errorf("AutoVerifies(%q) = %v, expected %v", tt.domain, got, tt.want)
		}
	}

	org.AutoVerify = false
	if org.AutoVerifies("example.org") {
		t.Error("disabled auto verify should never verify")
	}
}

func TestUser_EmailDomain(t *testing.T) {
	tests := map[string]string{
		"dev@Example.ORG": "example.org",
		"no-at-sign":      "",
		"a@b@c.io":        "c.io",
		"":                "",
	}
	for email, want := range tests {
		u := User{Email: email}
		if got := u.EmailDomain(); got != want {
			t.Errorf("EmailDomain(%q) = %q, expected %q", email, got, want)
		}
	}
}
