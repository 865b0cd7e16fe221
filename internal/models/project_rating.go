package models

import "time"

// ProjectRating is one user's like on a project. The unique index makes a
// second like from the same user a no-op at the storage layer.
type ProjectRating struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	ProjectID uint      `gorm:"not null;uniqueIndex:idx_rating_project_user" json:"project_id"`
	Project   *Project  `gorm:"foreignKey:ProjectID" json:"-"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_rating_project_user" json:"user_id"`
	User      *User     `gorm:"foreignKey:UserID" json:"user,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func (ProjectRating) TableName() string { return "project_ratings" }

// ProjectVolunteer is a user offering to help on a project.
type ProjectVolunteer struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	ProjectID uint      `gorm:"not null;uniqueIndex:idx_volunteer_project_user" json:"project_id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_volunteer_project_user" json:"user_id"`
	User      *User     `gorm:"foreignKey:UserID" json:"user,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func (ProjectVolunteer) TableName() string { return "project_volunteers" }

type ProjectComment struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	ProjectID uint      `gorm:"not null;index" json:"project_id"`
	UserID    uint      `gorm:"not null;index" json:"user_id"`
	User      *User     `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Body      string    `gorm:"type:text;not null" json:"body"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (ProjectComment) TableName() string { return "project_comments" }

type ProjectTag struct {
	ID        uint   `gorm:"primaryKey" json:"id"`
	ProjectID uint   `gorm:"not null;uniqueIndex:idx_tag_project_name" json:"project_id"`
	Name      string `gorm:"size:50;not null;uniqueIndex:idx_tag_project_name" json:"name"`
}

func (ProjectTag) TableName() string { return "project_tags" }

// Presentation holds demo material; at most one per project.
type Presentation struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	ProjectID uint      `gorm:"not null;uniqueIndex" json:"project_id"`
	SlidesURL string    `gorm:"size:500" json:"slides_url"`
	VideoURL  string    `gorm:"size:500" json:"video_url"`
	Notes     string    `gorm:"type:text" json:"notes"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Presentation) TableName() string { return "presentations" }

// AnonymousName replaces the liker's name when the event hides social activity.
const AnonymousName = "Somebody"

// NotificationMessage announces the like. Project (with Event) and User
// must be preloaded.
func (r *ProjectRating) NotificationMessage(url string) string {
	name := AnonymousName
	if r.User != nil {
		name = r.User.Name
	}
	title := ""
	if r.Project != nil {
		title = r.Project.Title
		if r.Project.Event != nil && r.Project.Event.AnonymousSocial {
			name = AnonymousName
		}
	}
	return name + " liked project " + title + ": " + url
}
