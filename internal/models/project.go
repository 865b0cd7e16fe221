package models

import (
	"strconv"
	"strings"
	"time"

	"github.com/huangang/hackfest/internal/utils"
	"gorm.io/gorm"
)

// Project classifications.
const (
	ClassificationDevelop = "Develop an App"
	ClassificationLearn   = "Learn and Explore"
	ClassificationSpecify = "Specify and Design"
	ClassificationOther   = "Other"
)

var Classifications = []string{
	ClassificationDevelop,
	ClassificationLearn,
	ClassificationSpecify,
	ClassificationOther,
}

// Project is a hackathon submission. It always belongs to exactly one
// organization; a nil EventID means the project sits in the backlog.
//
// The *Count columns are maintained in the same transaction as every
// rating, volunteer and comment row change.
type Project struct {
	ID              uint          `gorm:"primaryKey" json:"id"`
	OrganizationID  uint          `gorm:"index;not null" json:"organization_id"`
	EventID         *uint         `gorm:"index" json:"event_id"`
	Event           *Event        `gorm:"foreignKey:EventID" json:"event,omitempty"`
	Title           string        `gorm:"size:255;not null" json:"title"`
	Description     string        `gorm:"type:text;not null" json:"description"`
	Classification  string        `gorm:"size:50" json:"classification"`
	Repository      *string       `gorm:"size:500" json:"repository"`
	Approved        bool          `gorm:"default:false" json:"approved"`
	ProjectOwnerID  *uint         `gorm:"index" json:"project_owner_id"`
	ProjectOwner    *User         `gorm:"foreignKey:ProjectOwnerID" json:"project_owner,omitempty"`
	SubmittedUserID *uint         `json:"submitted_user_id"`
	SubmittedUser   *User         `gorm:"foreignKey:SubmittedUserID" json:"-"`
	CommentsCount   int           `gorm:"column:project_comments_count;not null;default:0" json:"comment_count"`
	RatingsCount    int           `gorm:"column:project_ratings_count;not null;default:0" json:"vote_count"`
	VolunteersCount int           `gorm:"column:project_volunteers_count;not null;default:0" json:"volunteer_count"`
	Hotness         float64       `gorm:"not null;default:0;index" json:"hotness"`
	Tags            []ProjectTag  `gorm:"foreignKey:ProjectID" json:"tags,omitempty"`
	Presentation    *Presentation `gorm:"foreignKey:ProjectID" json:"-"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
}

func (Project) TableName() string { return "projects" }

// BeforeSave stores blank repositories as NULL so "has a repository" is a
// nil check.
func (p *Project) BeforeSave(tx *gorm.DB) error {
	p.Repository = NormalizeRepository(p.Repository)
	return nil
}

// NormalizeRepository maps nil, "" and whitespace-only values to nil and
// returns every other value unchanged.
func NormalizeRepository(repo *string) *string {
	if repo == nil || strings.TrimSpace(*repo) == "" {
		return nil
	}
	return repo
}

// Validate returns field-level messages; an empty map means valid.
func (p *Project) Validate() map[string][]string {
	errs := map[string][]string{}
	if strings.TrimSpace(p.Title) == "" {
		errs["title"] = append(errs["title"], "can't be blank")
	}
	if strings.TrimSpace(p.Description) == "" {
		errs["description"] = append(errs["description"], "can't be blank")
	}
	if p.Classification != "" && !IsClassification(p.Classification) {
		errs["classification"] = append(errs["classification"], "is not included in the list")
	}
	return errs
}

func IsClassification(s string) bool {
	for _, c := range Classifications {
		if c == s {
			return true
		}
	}
	return false
}

// IsBacklog reports whether the project has no event.
func (p *Project) IsBacklog() bool {
	return p.EventID == nil
}

func (p *Project) IsOther() bool {
	return p.Classification == ClassificationOther
}

// VotingAllowed is false for backlog projects and otherwise follows the
// event. Event must be preloaded.
func (p *Project) VotingAllowed() bool {
	if p.EventID == nil || p.Event == nil {
		return false
	}
	return p.Event.VotingEnabled
}

// VolunteeringAllowed mirrors VotingAllowed for the volunteering flag.
func (p *Project) VolunteeringAllowed() bool {
	if p.EventID == nil || p.Event == nil {
		return false
	}
	return p.Event.VolunteeringEnabled
}

// Param is the external identifier used in URLs, e.g. "42-my-cool-app".
func (p *Project) Param() string {
	id := strconv.FormatUint(uint64(p.ID), 10)
	slug := utils.Slugify(p.Title)
	if slug == "" {
		return id
	}
	return id + "-" + slug
}

// ParseParam extracts the numeric id from a Param value. Only the leading
// digits matter, so stale slugs still resolve.
func ParseParam(param string) (uint, bool) {
	end := 0
	for end < len(param) && param[end] >= '0' && param[end] <= '9' {
		end++
	}
	if end == 0 || (end < len(param) && param[end] != '-') {
		return 0, false
	}
	id, err := strconv.ParseUint(param[:end], 10, 32)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

// NotificationMessage announces a new submission. Event must be preloaded
// when EventID is set.
func (p *Project) NotificationMessage(url string) string {
	if p.EventID != nil && p.Event != nil {
		return "A new project " + p.Title + " has been submitted for " + p.Event.Title + ". " + url
	}
	return "A new project " + p.Title + " has been submitted to the backlog. " + url
}
