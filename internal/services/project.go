package services

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/huangang/hackfest/internal/models"
	"github.com/huangang/hackfest/internal/tenant"
	"github.com/huangang/hackfest/pkg/logger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Project list orderings.
const (
	SortNewest        = "newest"
	SortMostLiked     = "most_liked"
	SortMostCommented = "most_commented"
	SortMostHelp      = "most_help"
	SortHottest       = "hottest"
)

var sortOrders = map[string]string{
	SortNewest:        "projects.created_at DESC, projects.id DESC",
	SortMostLiked:     "projects.project_ratings_count DESC, projects.id DESC",
	SortMostCommented: "projects.project_comments_count DESC, projects.id DESC",
	SortMostHelp:      "projects.project_volunteers_count DESC, projects.id DESC",
	SortHottest:       "projects.hotness DESC, projects.id DESC",
}

// CSVHeader is the first line of every project export.
var CSVHeader = []string{"Title", "Classification", "Votes", "Volunteers", "Comments", "Created On"}

// ProjectService owns every read and write of projects. Each method takes the
// organization id explicitly and never touches rows of another organization.
type ProjectService struct {
	db       *gorm.DB
	orgs     *OrganizationService
	notifier Notifier
	links    *Links
	hotness  HotnessFunc
}

func NewProjectService(db *gorm.DB, orgs *OrganizationService, notifier Notifier, links *Links) *ProjectService {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &ProjectService{db: db, orgs: orgs, notifier: notifier, links: links, hotness: Hotness}
}

// SetHotnessFunc replaces the ranking function.
func (s *ProjectService) SetHotnessFunc(fn HotnessFunc) {
	s.hotness = fn
}

type ProjectListRequest struct {
	Page     int    `form:"page" binding:"omitempty,min=1"`
	PageSize int    `form:"page_size" binding:"omitempty,min=1,max=100"`
	Sort     string `form:"sort"`
	EventID  *uint  `form:"event_id"`
	Backlog  bool   `form:"backlog"`
	Tag      string `form:"tag"`
}

type ProjectListResponse struct {
	Total    int64            `json:"total"`
	Page     int              `json:"page"`
	PageSize int              `json:"page_size"`
	Items    []models.Project `json:"items"`
}

type CreateProjectRequest struct {
	Title          string   `json:"title"`
	Description    string   `json:"description"`
	Classification string   `json:"classification"`
	Repository     *string  `json:"repository"`
	EventID        *uint    `json:"event_id"`
	Tags           []string `json:"tags"`
}

type UpdateProjectRequest struct {
	Title          *string  `json:"title"`
	Description    *string  `json:"description"`
	Classification *string  `json:"classification"`
	Repository     *string  `json:"repository"`
	EventID        *uint    `json:"event_id"`
	ToBacklog      bool     `json:"to_backlog"`
	ProjectOwnerID *uint    `json:"project_owner_id"`
	Approved       *bool    `json:"approved"`
	Tags           []string `json:"tags"`
}

type UpdatePresentationRequest struct {
	SlidesURL *string `json:"slides_url" binding:"omitempty,url"`
	VideoURL  *string `json:"video_url" binding:"omitempty,url"`
	Notes     *string `json:"notes"`
}

// Counters are live row counts next to the cached values.
type Counters struct {
	Votes            int  `json:"votes"`
	Volunteers       int  `json:"volunteers"`
	Comments         int  `json:"comments"`
	CachedVotes      int  `json:"cached_votes"`
	CachedVolunteers int  `json:"cached_volunteers"`
	CachedComments   int  `json:"cached_comments"`
	Repaired         bool `json:"repaired"`
}

// Drifted reports whether any cached counter disagrees with the live count.
func (c *Counters) Drifted() bool {
	return c.Votes != c.CachedVotes || c.Volunteers != c.CachedVolunteers || c.Comments != c.CachedComments
}

func requireOrg(orgID uint) error {
	if orgID == 0 {
		return tenant.ErrNoTenant
	}
	return nil
}

// List returns one page of the organization's projects.
func (s *ProjectService) List(ctx context.Context, orgID uint, req *ProjectListRequest) (*ProjectListResponse, error) {
	if err := requireOrg(orgID); err != nil {
		return nil, err
	}
	if req.Page == 0 {
		req.Page = 1
	}
	if req.PageSize == 0 {
		req.PageSize = 20
	}
	order, ok := sortOrders[req.Sort]
	if !ok {
		order = sortOrders[SortNewest]
	}

	query := s.db.WithContext(ctx).Model(&models.Project{}).Scopes(tenant.ScopeTable("projects", orgID))
	if req.Backlog {
		query = query.Where("projects.event_id IS NULL")
	} else if req.EventID != nil {
		query = query.Where("projects.event_id = ?", *req.EventID)
	}
	if tag := strings.TrimSpace(req.Tag); tag != "" {
		query = query.Where("EXISTS (SELECT 1 FROM project_tags WHERE project_tags.project_id = projects.id AND project_tags.name = ?)", strings.ToLower(tag))
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}

	var projects []models.Project
	offset := (req.Page - 1) * req.PageSize
	err := query.Preload("Event").Preload("ProjectOwner").Preload("Tags").
		Order(order).Offset(offset).Limit(req.PageSize).Find(&projects).Error
	if err != nil {
		return nil, err
	}

	return &ProjectListResponse{
		Total:    total,
		Page:     req.Page,
		PageSize: req.PageSize,
		Items:    projects,
	}, nil
}

// GetByID loads a project of orgID with its event, owner and tags.
func (s *ProjectService) GetByID(ctx context.Context, orgID, id uint) (*models.Project, error) {
	if err := requireOrg(orgID); err != nil {
		return nil, err
	}
	return findProject(s.db.WithContext(ctx).Preload("ProjectOwner").Preload("Tags"), orgID, id)
}

// GetByParam resolves a "<id>-<slug>" URL fragment.
func (s *ProjectService) GetByParam(ctx context.Context, orgID uint, param string) (*models.Project, error) {
	id, ok := models.ParseParam(param)
	if !ok {
		return nil, ErrProjectNotFound
	}
	return s.GetByID(ctx, orgID, id)
}

func findProject(db *gorm.DB, orgID, id uint) (*models.Project, error) {
	var p models.Project
	if err := db.Scopes(tenant.Scope(orgID)).Preload("Event").First(&p, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProjectNotFound
		}
		return nil, err
	}
	return &p, nil
}

func checkEvent(db *gorm.DB, orgID uint, eventID *uint) (*models.Event, error) {
	if eventID == nil {
		return nil, nil
	}
	var ev models.Event
	if err := db.Scopes(tenant.Scope(orgID)).First(&ev, *eventID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &ValidationError{Fields: map[string][]string{"event": {"does not exist"}}}
		}
		return nil, err
	}
	return &ev, nil
}

func normalizeTags(names []string) []models.ProjectTag {
	seen := map[string]bool{}
	var tags []models.ProjectTag
	for _, n := range names {
		n = strings.ToLower(strings.TrimSpace(n))
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		tags = append(tags, models.ProjectTag{Name: n})
	}
	return tags
}

// Create saves a project submitted by user, who also becomes its owner.
func (s *ProjectService) Create(ctx context.Context, orgID uint, req *CreateProjectRequest, user *models.User) (*models.Project, error) {
	if err := requireOrg(orgID); err != nil {
		return nil, err
	}

	p := models.Project{
		OrganizationID:  orgID,
		EventID:         req.EventID,
		Title:           strings.TrimSpace(req.Title),
		Description:     req.Description,
		Classification:  req.Classification,
		Repository:      req.Repository,
		ProjectOwnerID:  &user.ID,
		SubmittedUserID: &user.ID,
		Tags:            normalizeTags(req.Tags),
	}
	if err := validationError(p.Validate()); err != nil {
		return nil, err
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ev, err := checkEvent(tx, orgID, p.EventID)
		if err != nil {
			return err
		}
		if err := tx.Create(&p).Error; err != nil {
			return err
		}
		p.Event = ev
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info().Uint("organization_id", orgID).Uint("project_id", p.ID).Uint("user_id", user.ID).
		Msg("project submitted")
	s.notifySubmitted(ctx, orgID, &p)
	return &p, nil
}

func (s *ProjectService) notifySubmitted(ctx context.Context, orgID uint, p *models.Project) {
	url := ""
	if s.links != nil && s.orgs != nil {
		if org, err := s.orgs.GetByID(ctx, orgID); err == nil {
			url = s.links.ProjectURL(org, p)
		}
	}
	s.notifier.Notify(ctx, orgID, NotificationProjectSubmitted, p.NotificationMessage(url))
}

// Update applies the non-nil fields of req. A new owner must be one of
// TransferableOwners.
func (s *ProjectService) Update(ctx context.Context, orgID, id uint, req *UpdateProjectRequest) (*models.Project, error) {
	if err := requireOrg(orgID); err != nil {
		return nil, err
	}

	var updated *models.Project
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		p, err := findProject(tx, orgID, id)
		if err != nil {
			return err
		}

		if req.Title != nil {
			p.Title = strings.TrimSpace(*req.Title)
		}
		if req.Description != nil {
			p.Description = *req.Description
		}
		if req.Classification != nil {
			p.Classification = *req.Classification
		}
		if req.Repository != nil {
			p.Repository = req.Repository
		}
		if req.Approved != nil {
			p.Approved = *req.Approved
		}
		if req.ToBacklog {
			p.EventID = nil
			p.Event = nil
		} else if req.EventID != nil {
			ev, err := checkEvent(tx, orgID, req.EventID)
			if err != nil {
				return err
			}
			p.EventID = req.EventID
			p.Event = ev
		}
		if err := validationError(p.Validate()); err != nil {
			return err
		}

		if req.ProjectOwnerID != nil {
			owners, err := transferableOwners(tx, p)
			if err != nil {
				return err
			}
			if !containsUser(owners, *req.ProjectOwnerID) {
				return &ValidationError{Fields: map[string][]string{"project_owner": {"is not registered for the event"}}}
			}
			p.ProjectOwnerID = req.ProjectOwnerID
			p.ProjectOwner = nil
		}

		if err := tx.Omit(clause.Associations).Save(p).Error; err != nil {
			return err
		}

		if req.Tags != nil {
			if err := tx.Where("project_id = ?", p.ID).Delete(&models.ProjectTag{}).Error; err != nil {
				return err
			}
			tags := normalizeTags(req.Tags)
			for i := range tags {
				tags[i].ProjectID = p.ID
			}
			if len(tags) > 0 {
				if err := tx.Create(&tags).Error; err != nil {
					return err
				}
			}
		}
		updated = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.GetByID(ctx, orgID, updated.ID)
}

// Delete removes the project together with its presentation, ratings,
// volunteers, comments and tags.
func (s *ProjectService) Delete(ctx context.Context, orgID, id uint) error {
	if err := requireOrg(orgID); err != nil {
		return err
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		p, err := findProject(tx, orgID, id)
		if err != nil {
			return err
		}
		for _, child := range []interface{}{
			&models.Presentation{},
			&models.ProjectRating{},
			&models.ProjectVolunteer{},
			&models.ProjectComment{},
			&models.ProjectTag{},
		} {
			if err := tx.Where("project_id = ?", p.ID).Delete(child).Error; err != nil {
				return err
			}
		}
		if err := tx.Delete(&models.Project{}, p.ID).Error; err != nil {
			return err
		}
		logger.Info().Uint("organization_id", orgID).Uint("project_id", p.ID).Msg("project deleted")
		return nil
	})
}

// CanEdit is true for the owner, the submitter and organization admins.
func (s *ProjectService) CanEdit(ctx context.Context, orgID uint, p *models.Project, user *models.User) bool {
	if user == nil {
		return false
	}
	if p.ProjectOwnerID != nil && *p.ProjectOwnerID == user.ID {
		return true
	}
	if p.SubmittedUserID != nil && *p.SubmittedUserID == user.ID {
		return true
	}
	return s.orgs != nil && s.orgs.IsAdmin(ctx, orgID, user)
}

// TransferableOwners lists the users registered for the project's event,
// ordered by name, with the current owner appended when not among them.
// A backlog project yields only its owner.
func (s *ProjectService) TransferableOwners(ctx context.Context, orgID, id uint) ([]models.User, error) {
	if err := requireOrg(orgID); err != nil {
		return nil, err
	}
	db := s.db.WithContext(ctx)
	p, err := findProject(db, orgID, id)
	if err != nil {
		return nil, err
	}
	return transferableOwners(db, p)
}

func transferableOwners(db *gorm.DB, p *models.Project) ([]models.User, error) {
	var users []models.User
	if p.EventID != nil {
		err := db.Joins("JOIN registrations ON registrations.user_id = users.id").
			Where("registrations.event_id = ?", *p.EventID).
			Order("users.name ASC").
			Find(&users).Error
		if err != nil {
			return nil, err
		}
	}

	if p.ProjectOwnerID != nil && !containsUser(users, *p.ProjectOwnerID) {
		var owner models.User
		err := db.First(&owner, *p.ProjectOwnerID).Error
		switch {
		case err == nil:
			users = append(users, owner)
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return nil, err
		}
	}
	return users, nil
}

func containsUser(users []models.User, id uint) bool {
	for _, u := range users {
		if u.ID == id {
			return true
		}
	}
	return false
}

// GetOrCreatePresentation returns the project's presentation, creating an
// empty one on first use. Storage errors are returned unchanged.
func (s *ProjectService) GetOrCreatePresentation(ctx context.Context, orgID, id uint) (*models.Presentation, error) {
	if err := requireOrg(orgID); err != nil {
		return nil, err
	}

	db := s.db.WithContext(ctx)
	p, err := findProject(db, orgID, id)
	if err != nil {
		return nil, err
	}

	pres := models.Presentation{ProjectID: p.ID}
	if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&pres).Error; err != nil {
		return nil, err
	}

	var existing models.Presentation
	if err := db.Where("project_id = ?", p.ID).First(&existing).Error; err != nil {
		return nil, err
	}
	return &existing, nil
}

// UpdatePresentation edits an already provisioned presentation. A project
// without one yields ErrPresentationNotFound.
func (s *ProjectService) UpdatePresentation(ctx context.Context, orgID, id uint, req *UpdatePresentationRequest) (*models.Presentation, error) {
	if err := requireOrg(orgID); err != nil {
		return nil, err
	}

	db := s.db.WithContext(ctx)
	p, err := findProject(db, orgID, id)
	if err != nil {
		return nil, err
	}

	pres := &models.Presentation{}
	if err := db.Where("project_id = ?", p.ID).First(pres).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPresentationNotFound
		}
		return nil, err
	}
	if req.SlidesURL != nil {
		pres.SlidesURL = *req.SlidesURL
	}
	if req.VideoURL != nil {
		pres.VideoURL = *req.VideoURL
	}
	if req.Notes != nil {
		pres.Notes = *req.Notes
	}
	if err := db.Save(pres).Error; err != nil {
		return nil, err
	}
	return pres, nil
}

// Recount compares the cached counters with live row counts and, when
// repair is set, overwrites drifted caches with the live values.
func (s *ProjectService) Recount(ctx context.Context, orgID, id uint, repair bool) (*Counters, error) {
	if err := requireOrg(orgID); err != nil {
		return nil, err
	}

	var c Counters
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		p, err := findProject(tx, orgID, id)
		if err != nil {
			return err
		}
		c.CachedVotes, c.CachedVolunteers, c.CachedComments = p.RatingsCount, p.VolunteersCount, p.CommentsCount

		var n int64
		if err := tx.Model(&models.ProjectRating{}).Where("project_id = ?", p.ID).Count(&n).Error; err != nil {
			return err
		}
		c.Votes = int(n)
		if err := tx.Model(&models.ProjectVolunteer{}).Where("project_id = ?", p.ID).Count(&n).Error; err != nil {
			return err
		}
		c.Volunteers = int(n)
		if err := tx.Model(&models.ProjectComment{}).Where("project_id = ?", p.ID).Count(&n).Error; err != nil {
			return err
		}
		c.Comments = int(n)

		if !c.Drifted() {
			return nil
		}
		logger.Warn().Uint("organization_id", orgID).Uint("project_id", p.ID).
			Interface("counters", c).Msg("cached project counters drifted")
		if !repair {
			return nil
		}
		err = tx.Model(&models.Project{}).Where("id = ?", p.ID).UpdateColumns(map[string]interface{}{
			"project_ratings_count":    c.Votes,
			"project_volunteers_count": c.Volunteers,
			"project_comments_count":   c.Comments,
		}).Error
		if err != nil {
			return err
		}
		c.Repaired = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// RecalculateHotness scores one project and stores the result.
func (s *ProjectService) RecalculateHotness(ctx context.Context, orgID, id uint) (float64, error) {
	if err := requireOrg(orgID); err != nil {
		return 0, err
	}
	db := s.db.WithContext(ctx)
	p, err := findProject(db, orgID, id)
	if err != nil {
		return 0, err
	}
	score := s.hotness(p)
	if err := db.Model(&models.Project{}).Where("id = ?", p.ID).UpdateColumn("hotness", score).Error; err != nil {
		return 0, err
	}
	return score, nil
}

// RecalculateAll rescores every project of orgID and returns how many were
// updated.
func (s *ProjectService) RecalculateAll(ctx context.Context, orgID uint) (int, error) {
	if err := requireOrg(orgID); err != nil {
		return 0, err
	}

	db := s.db.WithContext(ctx)
	updated := 0
	var batch []models.Project
	res := db.Scopes(tenant.Scope(orgID)).
		FindInBatches(&batch, 200, func(_ *gorm.DB, _ int) error {
			for i := range batch {
				score := s.hotness(&batch[i])
				if err := db.Model(&models.Project{}).Where("id = ?", batch[i].ID).
					UpdateColumn("hotness", score).Error; err != nil {
					return err
				}
				updated++
			}
			return nil
		})
	if res.Error != nil {
		return updated, res.Error
	}
	return updated, nil
}

// ExportCSV writes every project of orgID, ordered by id, under CSVHeader.
// Counts come from the cached counters.
func (s *ProjectService) ExportCSV(ctx context.Context, orgID uint, w io.Writer) error {
	if err := requireOrg(orgID); err != nil {
		return err
	}

	var projects []models.Project
	if err := s.db.WithContext(ctx).Scopes(tenant.Scope(orgID)).Order("id ASC").Find(&projects).Error; err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return err
	}
	for _, p := range projects {
		record := []string{
			p.Title,
			p.Classification,
			strconv.Itoa(p.RatingsCount),
			strconv.Itoa(p.VolunteersCount),
			strconv.Itoa(p.CommentsCount),
			p.CreatedAt.UTC().Format("2006-01-02 15:04:05 UTC"),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write project %d: %w", p.ID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
