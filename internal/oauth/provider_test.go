package oauth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/huangang/hackfest/internal/config"
	"golang.org/x/oauth2"
)

func TestNewRegistry_OnlyConfiguredProviders(t *testing.T) {
	cfg := &config.OAuthConfig{
		CallbackBaseURL: "https://hackfest.test/",
		Providers: map[string]config.OAuthProviderConfig{
			Google:   {Key: "gk", Secret: "gs"},
			Facebook: {Key: "fk"},
			Meetup:   {Key: "mk", Secret: "ms"},
			"github": {Key: "x", Secret: "y"},
		},
	}

	r := NewRegistry(cfg)

	names := r.Names()
	if len(names) != 2 || names[0] != Google || names[1] != Meetup {
		t.Fatalf("Names() = %v, expected [%s %s]", names, Google, Meetup)
	}

	p, err := r.Get(Meetup)
	if err != nil {
		t.Fatalf("Get(meetup) error = %v", err)
	}
	if p.Config.RedirectURL != "https://hackfest.test/api/auth/oauth/meetup/callback" {
		t.Errorf("RedirectURL = %q", p.Config.RedirectURL)
	}
	if p.Config.Endpoint.AuthURL != meetupEndpoint.AuthURL {
		t.Errorf("meetup AuthURL = %q", p.Config.Endpoint.AuthURL)
	}

	if _, err := r.Get(Facebook); err != ErrUnknownProvider {
		t.Errorf("facebook without secret: err = %v, expected ErrUnknownProvider", err)
	}
}

func TestProvider_AuthCodeURLCarriesState(t *testing.T) {
	r := NewRegistry(&config.OAuthConfig{
		CallbackBaseURL: "http://localhost:8080",
		Providers:       map[string]config.OAuthProviderConfig{Google: {Key: "gk", Secret: "gs"}},
	})
	p, _ := r.Get(Google)

	u, err := url.Parse(p.AuthCodeURL("state-123"))
	if err != nil {
		t.Fatal(err)
	}
	q := u.Query()
	if q.Get("state") != "state-123" {
		t.Errorf("state = %q", q.Get("state"))
	}
	if q.Get("client_id") != "gk" {
		t.Errorf("client_id = %q", q.Get("client_id"))
	}
}

func TestProvider_Exchange(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil || r.Form.Get("code") != "the-code" {
			http.Error(w, "bad code", http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"tok","token_type":"Bearer","expires_in":3600}`))
	})
	mux.HandleFunc("/me", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Write([]byte(`{"id":"1001","name":"Ada","email":"ada@example.com","picture":{"data":{"url":"https://img/ada.png"}}}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	p, err := NewProvider(Facebook, &oauth2.Config{
		ClientID:     "fk",
		ClientSecret: "fs",
		Endpoint:     oauth2.Endpoint{AuthURL: srv.URL + "/auth", TokenURL: srv.URL + "/token"},
	}, srv.URL+"/me")
	if err != nil {
		t.Fatal(err)
	}
	r := &Registry{providers: map[string]*Provider{}}
	r.Register(p)

	profile, err := p.Exchange(context.Background(), "the-code")
	if err != nil {
		t.Fatalf("Exchange() error = %v", err)
	}
	if profile.Provider != Facebook || profile.UID != "1001" {
		t.Errorf("profile = %+v", profile)
	}
	if profile.Avatar != "https://img/ada.png" {
		t.Errorf("Avatar = %q", profile.Avatar)
	}

	if _, err := p.Exchange(context.Background(), "wrong"); err == nil {
		t.Error("expected error for rejected code")
	}
}

func TestParseProfiles(t *testing.T) {
	tests := []struct {
		name  string
		parse func([]byte) (*Profile, error)
		body  string
		uid   string
		email string
	}{
		{"google", parseGoogle, `{"sub":"g-1","name":"Grace","email":"grace@example.com"}`, "g-1", "grace@example.com"},
		{"facebook", parseFacebook, `{"id":"f-1","name":"Fred"}`, "f-1", ""},
		{"meetup", parseMeetup, `{"id":12345,"name":"Mia","photo":{"photo_link":"https://m/p.jpg"}}`, "12345", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := tt.parse([]byte(tt.body))
			if err != nil {
				t.Fatalf("parse error = %v", err)
			}
			if p.UID != tt.uid {
				t.Errorf("UID = %q, expected %q", p.UID, tt.uid)
			}
			if p.Email != tt.email {
				t.Errorf("Email = %q, expected %q", p.Email, tt.email)
			}
		})
	}
}
