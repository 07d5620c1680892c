package repository

import (
	"context"
	"strings"
	"time"

	"confcheckin/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AttendeeCounts is a single-snapshot aggregate over the attendees table.
type AttendeeCounts struct {
	Total     int64
	CheckedIn int64
	Attendees int64
	Staff     int64
}

// AttendeeRepository is the only path to attendee rows. The two Mark methods
// are conditional updates: they report false when the row was not in the
// expected state, which is how concurrent transitions are serialized.
type AttendeeRepository interface {
	Create(ctx context.Context, a *model.Attendee) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Attendee, error)
	FindByEmail(ctx context.Context, email string) (*model.Attendee, error)
	FindByToken(ctx context.Context, token string) (*model.Attendee, error)
	Search(ctx context.Context, query string, limit int) ([]model.Attendee, error)
	MarkCheckedIn(ctx context.Context, id uuid.UUID, at time.Time) (bool, error)
	MarkCheckedOut(ctx context.Context, id uuid.UUID) (bool, error)
	CountStats(ctx context.Context) (AttendeeCounts, error)
	ListRecentCheckIns(ctx context.Context, limit int) ([]model.Attendee, error)
}

type attendeeRepo struct{ db *gorm.DB }

func NewAttendeeRepository(db *gorm.DB) AttendeeRepository { return &attendeeRepo{db: db} }

func (r *attendeeRepo) Create(ctx context.Context, a *model.Attendee) error {
	return r.db.WithContext(ctx).Create(a).Error
}

func (r *attendeeRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Attendee, error) {
	var a model.Attendee
	err := r.db.WithContext(ctx).First(&a, "id = ?", id).Error
	return &a, err
}

func (r *attendeeRepo) FindByEmail(ctx context.Context, email string) (*model.Attendee, error) {
	var a model.Attendee
	err := r.db.WithContext(ctx).
		Where("LOWER(email) = LOWER(?)", strings.TrimSpace(email)).
		First(&a).Error
	return &a, err
}

func (r *attendeeRepo) FindByToken(ctx context.Context, token string) (*model.Attendee, error) {
	var a model.Attendee
	err := r.db.WithContext(ctx).Where("qr_token = ?", token).First(&a).Error
	return &a, err
}

func (r *attendeeRepo) Search(ctx context.Context, query string, limit int) ([]model.Attendee, error) {
	var list []model.Attendee
	q := r.db.WithContext(ctx).Order("name ASC, created_at ASC, id ASC").Limit(limit)
	if query = strings.TrimSpace(query); query != "" {
		like := "%" + escapeLike(strings.ToLower(query)) + "%"
		q = q.Where("LOWER(name) LIKE ? ESCAPE '\\' OR LOWER(email) LIKE ? ESCAPE '\\'", like, like)
	}
	err := q.Find(&list).Error
	return list, err
}

func (r *attendeeRepo) MarkCheckedIn(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Model(&model.Attendee{}).
		Where("id = ? AND checked_in = ? AND role = ?", id, false, model.RoleAttendee).
		Updates(map[string]interface{}{"checked_in": true, "checked_in_at": at})
	return res.RowsAffected == 1, res.Error
}

func (r *attendeeRepo) MarkCheckedOut(ctx context.Context, id uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).Model(&model.Attendee{}).
		Where("id = ? AND checked_in = ? AND role = ?", id, true, model.RoleAttendee).
		Updates(map[string]interface{}{"checked_in": false, "checked_in_at": nil})
	return res.RowsAffected == 1, res.Error
}

// CountStats reads every counter in one statement so the numbers always
// belong to the same snapshot.
func (r *attendeeRepo) CountStats(ctx context.Context) (AttendeeCounts, error) {
	var c AttendeeCounts
	err := r.db.WithContext(ctx).Raw(`
		SELECT
			COUNT(*)                                   AS total,
			COUNT(*) FILTER (WHERE checked_in)         AS checked_in,
			COUNT(*) FILTER (WHERE role = 'attendee')  AS attendees,
			COUNT(*) FILTER (WHERE role = 'staff')     AS staff
		FROM attendees`).Scan(&c).Error
	return c, err
}

func (r *attendeeRepo) ListRecentCheckIns(ctx context.Context, limit int) ([]model.Attendee, error) {
	var list []model.Attendee
	err := r.db.WithContext(ctx).
		Where("checked_in = ? AND checked_in_at IS NOT NULL", true).
		Order("checked_in_at DESC, created_at ASC, id ASC").
		Limit(limit).
		Find(&list).Error
	return list, err
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
