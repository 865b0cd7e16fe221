// Package oauth wires the third-party identity providers users sign in with.
package oauth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/huangang/hackfest/internal/config"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"
)

// Provider names as used in routes and config.
const (
	Google   = "google_oauth2"
	Facebook = "facebook"
	Meetup   = "meetup"
)

var ErrUnknownProvider = errors.New("unknown identity provider")

var meetupEndpoint = oauth2.Endpoint{
	AuthURL:  "https://secure.meetup.com/oauth2/authorize",
	TokenURL: "https://secure.meetup.com/oauth2/access",
}

// Profile is what a provider tells us about the signed-in user.
type Profile struct {
	Provider string
	UID      string
	Name     string
	Email    string
	Avatar   string
}

// Provider is one configured identity provider.
type Provider struct {
	Name       string
	Config     *oauth2.Config
	ProfileURL string
	parse      func([]byte) (*Profile, error)
	client     *http.Client
}

// AuthCodeURL is where the browser is sent to sign in.
func (p *Provider) AuthCodeURL(state string) string {
	return p.Config.AuthCodeURL(state)
}

// Exchange trades an authorization code for a token and fetches the profile.
func (p *Provider) Exchange(ctx context.Context, code string) (*Profile, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, p.client)

	token, err := p.Config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%s token exchange: %w", p.Name, err)
	}

	resp, err := p.Config.Client(ctx, token).Get(p.ProfileURL)
	if err != nil {
		return nil, fmt.Errorf("%s profile request: %w", p.Name, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s profile returned status %d", p.Name, resp.StatusCode)
	}

	profile, err := p.parse(body)
	if err != nil {
		return nil, fmt.Errorf("%s profile: %w", p.Name, err)
	}
	if profile.UID == "" {
		return nil, fmt.Errorf("%s profile has no id", p.Name)
	}
	profile.Provider = p.Name
	return profile, nil
}

// Registry holds the providers that have credentials configured.
type Registry struct {
	providers map[string]*Provider
}

// NewRegistry builds a provider for every known name with a key and secret.
// Callbacks land on <callback_base_url>/api/auth/oauth/<name>/callback.
func NewRegistry(cfg *config.OAuthConfig) *Registry {
	r := &Registry{providers: map[string]*Provider{}}
	client := httpClient()
	base := strings.TrimRight(cfg.CallbackBaseURL, "/")

	for name, pc := range cfg.Providers {
		if pc.Key == "" || pc.Secret == "" {
			continue
		}
		p := newProvider(name, pc)
		if p == nil {
			continue
		}
		p.Config.RedirectURL = base + "/api/auth/oauth/" + name + "/callback"
		p.client = client
		r.providers[name] = p
	}
	return r
}

func newProvider(name string, pc config.OAuthProviderConfig) *Provider {
	oc := &oauth2.Config{ClientID: pc.Key, ClientSecret: pc.Secret}
	switch name {
	case Google:
		oc.Endpoint = endpoints.Google
		oc.Scopes = []string{"openid", "email", "profile"}
		return &Provider{Name: name, Config: oc, ProfileURL: "https://www.googleapis.com/oauth2/v3/userinfo", parse: parseGoogle}
	case Facebook:
		oc.Endpoint = endpoints.Facebook
		oc.Scopes = []string{"email", "public_profile"}
		return &Provider{Name: name, Config: oc, ProfileURL: "https://graph.facebook.com/me?fields=id,name,email,picture", parse: parseFacebook}
	case Meetup:
		oc.Endpoint = meetupEndpoint
		oc.Scopes = []string{"basic"}
		return &Provider{Name: name, Config: oc, ProfileURL: "https://api.meetup.com/members/self", parse: parseMeetup}
	}
	return nil
}

// Register adds or replaces a provider.
func (r *Registry) Register(p *Provider) {
	if p.client == nil {
		p.client = httpClient()
	}
	r.providers[p.Name] = p
}

func (r *Registry) Get(name string) (*Provider, error) {
	p, ok := r.providers[name]
	if !ok {
		return nil, ErrUnknownProvider
	}
	return p, nil
}

// Names lists configured providers in alphabetical order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.providers))
	for n := range r.providers {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// NewProvider builds a provider against arbitrary endpoints.
func NewProvider(name string, oc *oauth2.Config, profileURL string) (*Provider, error) {
	p := newProvider(name, config.OAuthProviderConfig{Key: oc.ClientID, Secret: oc.ClientSecret})
	if p == nil {
		return nil, ErrUnknownProvider
	}
	p.Config = oc
	p.ProfileURL = profileURL
	return p, nil
}

func parseGoogle(body []byte) (*Profile, error) {
	var v struct {
		Sub     string `json:"sub"`
		Name    string `json:"name"`
		Email   string `json:"email"`
		Picture string `json:"picture"`
	}
	if err := json.Unmarshal(body, &v); err != nil {
		return nil, err
	}
	return &Profile{UID: v.Sub, Name: v.Name, Email: v.Email, Avatar: v.Picture}, nil
}

func parseFacebook(body []byte) (*Profile, error) {
	var v struct {
		ID      string `json:"id"`
		Name    string `json:"name"`
		Email   string `json:"email"`
		Picture struct {
			Data struct {
				URL string `json:"url"`
			} `json:"data"`
		} `json:"picture"`
	}
	if err := json.Unmarshal(body, &v); err != nil {
		return nil, err
	}
	return &Profile{UID: v.ID, Name: v.Name, Email: v.Email, Avatar: v.Picture.Data.URL}, nil
}

// Meetup ids are numeric and profiles carry no email.
func parseMeetup(body []byte) (*Profile, error) {
	var v struct {
		ID    json.Number `json:"id"`
		Name  string      `json:"name"`
		Photo struct {
			PhotoLink string `json:"photo_link"`
		} `json:"photo"`
	}
	if err := json.Unmarshal(body, &v); err != nil {
		return nil, err
	}
	uid := v.ID.String()
	if _, err := strconv.ParseInt(uid, 10, 64); uid != "" && err != nil {
		return nil, fmt.Errorf("invalid id %q", uid)
	}
	return &Profile{UID: uid, Name: v.Name, Avatar: v.Photo.PhotoLink}, nil
}
