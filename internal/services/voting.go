package services

import (
	"context"
	"errors"
	"strings"

	"github.com/huangang/hackfest/internal/models"
	"github.com/huangang/hackfest/pkg/logger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// association is a (project, user) row kind with a cached counter on projects.
type association struct {
	name    string
	counter string
	row     func(projectID, userID uint) interface{}
}

var (
	ratings = association{
		name:    "rating",
		counter: "project_ratings_count",
		row: func(projectID, userID uint) interface{} {
			return &models.ProjectRating{ProjectID: projectID, UserID: userID}
		},
	}
	volunteers = association{
		name:    "volunteer",
		counter: "project_volunteers_count",
		row: func(projectID, userID uint) interface{} {
			return &models.ProjectVolunteer{ProjectID: projectID, UserID: userID}
		},
	}
)

// remove deletes the (project, user) row if present and returns the number
// of rows actually removed.
func (a association) remove(tx *gorm.DB, projectID, userID uint) (int64, error) {
	res := tx.Where("project_id = ? AND user_id = ?", projectID, userID).Delete(a.row(0, 0))
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, adjustCounter(tx, a.counter, projectID, -res.RowsAffected)
}

// insert adds the (project, user) row unless it exists. A concurrent insert
// of the same pair loses on the unique index and reports 0.
func (a association) insert(tx *gorm.DB, projectID, userID uint) (int64, error) {
	res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(a.row(projectID, userID))
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, adjustCounter(tx, a.counter, projectID, res.RowsAffected)
}

// toggle removes the row when present and inserts it otherwise. It returns
// whether the row exists afterwards.
func (a association) toggle(tx *gorm.DB, projectID, userID uint) (bool, error) {
	removed, err := a.remove(tx, projectID, userID)
	if err != nil {
		return false, err
	}
	if removed > 0 {
		return false, nil
	}
	if _, err := a.insert(tx, projectID, userID); err != nil {
		return false, err
	}
	return true, nil
}

func (a association) exists(db *gorm.DB, projectID, userID uint) (bool, error) {
	var n int64
	err := db.Model(a.row(0, 0)).Where("project_id = ? AND user_id = ?", projectID, userID).Count(&n).Error
	return n > 0, err
}

func adjustCounter(tx *gorm.DB, column string, projectID uint, delta int64) error {
	if delta == 0 {
		return nil
	}
	return tx.Model(&models.Project{}).Where("id = ?", projectID).
		UpdateColumn(column, gorm.Expr(column+" + ?", delta)).Error
}

// ToggleVote flips user's like on the project and returns whether the user
// likes it afterwards. When voting is not allowed nothing changes and the
// current state is returned.
func (s *ProjectService) ToggleVote(ctx context.Context, orgID, projectID uint, user *models.User) (bool, error) {
	if err := requireOrg(orgID); err != nil {
		return false, err
	}

	var (
		p     *models.Project
		voted bool
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		p, err = findProject(tx, orgID, projectID)
		if err != nil {
			return err
		}
		if !p.VotingAllowed() {
			voted, err = ratings.exists(tx, p.ID, user.ID)
			return err
		}
		voted, err = ratings.toggle(tx, p.ID, user.ID)
		return err
	})
	if err != nil {
		return false, err
	}

	if voted && p.VotingAllowed() {
		s.notifyLiked(ctx, orgID, p, user)
	}
	return voted, nil
}

func (s *ProjectService) notifyLiked(ctx context.Context, orgID uint, p *models.Project, user *models.User) {
	url := ""
	if s.links != nil && s.orgs != nil {
		if org, err := s.orgs.GetByID(ctx, orgID); err == nil {
			url = s.links.ProjectURL(org, p)
		}
	}
	rating := models.ProjectRating{ProjectID: p.ID, Project: p, UserID: user.ID, User: user}
	s.notifier.Notify(ctx, orgID, NotificationProjectLiked, rating.NotificationMessage(url))
}

// Volunteer signs user up to help. It returns whether user is volunteering
// afterwards.
func (s *ProjectService) Volunteer(ctx context.Context, orgID, projectID uint, user *models.User) (bool, error) {
	return s.changeVolunteer(ctx, orgID, projectID, user, func(tx *gorm.DB, pid, uid uint) (bool, error) {
		_, err := volunteers.insert(tx, pid, uid)
		return err == nil, err
	})
}

// Unvolunteer withdraws user's offer to help.
func (s *ProjectService) Unvolunteer(ctx context.Context, orgID, projectID uint, user *models.User) (bool, error) {
	return s.changeVolunteer(ctx, orgID, projectID, user, func(tx *gorm.DB, pid, uid uint) (bool, error) {
		_, err := volunteers.remove(tx, pid, uid)
		return false, err
	})
}

func (s *ProjectService) ToggleVolunteer(ctx context.Context, orgID, projectID uint, user *models.User) (bool, error) {
	return s.changeVolunteer(ctx, orgID, projectID, user, volunteers.toggle)
}

func (s *ProjectService) changeVolunteer(ctx context.Context, orgID, projectID uint, user *models.User,
	change func(tx *gorm.DB, projectID, userID uint) (bool, error)) (bool, error) {
	if err := requireOrg(orgID); err != nil {
		return false, err
	}

	var state bool
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		p, err := findProject(tx, orgID, projectID)
		if err != nil {
			return err
		}
		if !p.VolunteeringAllowed() {
			state, err = volunteers.exists(tx, p.ID, user.ID)
			return err
		}
		state, err = change(tx, p.ID, user.ID)
		return err
	})
	return state, err
}

// VotedOn reports whether user likes the project.
func (s *ProjectService) VotedOn(ctx context.Context, orgID, projectID uint, user *models.User) (bool, error) {
	return s.hasRow(ctx, orgID, projectID, user, ratings)
}

// VolunteeredFor reports whether user volunteers for the project.
func (s *ProjectService) VolunteeredFor(ctx context.Context, orgID, projectID uint, user *models.User) (bool, error) {
	return s.hasRow(ctx, orgID, projectID, user, volunteers)
}

func (s *ProjectService) hasRow(ctx context.Context, orgID, projectID uint, user *models.User, a association) (bool, error) {
	if err := requireOrg(orgID); err != nil {
		return false, err
	}
	if user == nil {
		return false, nil
	}
	db := s.db.WithContext(ctx)
	p, err := findProject(db, orgID, projectID)
	if err != nil {
		return false, err
	}
	return a.exists(db, p.ID, user.ID)
}

// Volunteers lists the users helping on a project.
func (s *ProjectService) Volunteers(ctx context.Context, orgID, projectID uint) ([]models.User, error) {
	if err := requireOrg(orgID); err != nil {
		return nil, err
	}
	db := s.db.WithContext(ctx)
	p, err := findProject(db, orgID, projectID)
	if err != nil {
		return nil, err
	}
	var users []models.User
	err = db.Joins("JOIN project_volunteers ON project_volunteers.user_id = users.id").
		Where("project_volunteers.project_id = ?", p.ID).
		Order("users.name ASC").Find(&users).Error
	return users, err
}

type CommentRequest struct {
	Body string `json:"body" binding:"required"`
}

// AddComment stores a comment and bumps the cached comment counter.
func (s *ProjectService) AddComment(ctx context.Context, orgID, projectID uint, user *models.User, body string) (*models.ProjectComment, error) {
	if err := requireOrg(orgID); err != nil {
		return nil, err
	}
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, &ValidationError{Fields: map[string][]string{"body": {"can't be blank"}}}
	}

	comment := models.ProjectComment{UserID: user.ID, Body: body}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		p, err := findProject(tx, orgID, projectID)
		if err != nil {
			return err
		}
		comment.ProjectID = p.ID
		if err := tx.Create(&comment).Error; err != nil {
			return err
		}
		return adjustCounter(tx, "project_comments_count", p.ID, 1)
	})
	if err != nil {
		return nil, err
	}
	comment.User = user
	return &comment, nil
}

// DeleteComment removes a comment. Only its author or an organization admin
// may do so.
func (s *ProjectService) DeleteComment(ctx context.Context, orgID, projectID, commentID uint, user *models.User) error {
	if err := requireOrg(orgID); err != nil {
		return err
	}

	isAdmin := s.orgs != nil && s.orgs.IsAdmin(ctx, orgID, user)
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		p, err := findProject(tx, orgID, projectID)
		if err != nil {
			return err
		}
		var c models.ProjectComment
		if err := tx.Where("project_id = ?", p.ID).First(&c, commentID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrCommentNotFound
			}
			return err
		}
		if c.UserID != user.ID && !isAdmin {
			return ErrForbidden
		}
		res := tx.Delete(&models.ProjectComment{}, c.ID)
		if res.Error != nil {
			return res.Error
		}
		logger.Debug().Uint("project_id", p.ID).Uint("comment_id", c.ID).Msg("comment deleted")
		return adjustCounter(tx, "project_comments_count", p.ID, -res.RowsAffected)
	})
}

// Comments lists a project's comments oldest first.
func (s *ProjectService) Comments(ctx context.Context, orgID, projectID uint) ([]models.ProjectComment, error) {
	if err := requireOrg(orgID); err != nil {
		return nil, err
	}
	db := s.db.WithContext(ctx)
	p, err := findProject(db, orgID, projectID)
	if err != nil {
		return nil, err
	}
	var comments []models.ProjectComment
	err = db.Preload("User").Where("project_id = ?", p.ID).Order("created_at ASC, id ASC").Find(&comments).Error
	return comments, err
}
