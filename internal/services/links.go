package services

import (
	"github.com/huangang/hackfest/internal/config"
	"github.com/huangang/hackfest/internal/models"
)

// Links builds absolute URLs on an organization's subdomain.
type Links struct {
	Scheme     string
	BaseDomain string
}

func NewLinks(cfg *config.AppConfig) *Links {
	return &Links{Scheme: cfg.Scheme, BaseDomain: cfg.BaseDomain}
}

// OrganizationURL is e.g. "https://acme.hackfest.io".
func (l *Links) OrganizationURL(org *models.Organization) string {
	scheme := l.Scheme
	if scheme == "" {
		scheme = "http"
	}
	return scheme + "://" + org.Subdomain + "." + l.BaseDomain
}

// ProjectURL is e.g. "https://acme.hackfest.io/projects/42-my-cool-app".
func (l *Links) ProjectURL(org *models.Organization, p *models.Project) string {
	return l.OrganizationURL(org) + "/projects/" + p.Param()
}
