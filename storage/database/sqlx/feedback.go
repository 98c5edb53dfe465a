package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/lalamika/core/feedback"
)

type feedbackRepository struct {
	db *sqlx.DB
}

var _ feedback.Repository = (*feedbackRepository)(nil) // interface compliance check

func NewFeedbackRepository(db *sqlx.DB) *feedbackRepository {
	return &feedbackRepository{db: db}
}

type feedbackRow struct {
	ID          string         `db:"id"`
	ComplaintID string         `db:"complaint_id"`
	UserID      string         `db:"user_id"`
	StaffID     sql.NullString `db:"staff_id"`
	Rating      int            `db:"rating"`
	Comment     string         `db:"comment"`
	SubmittedAt time.Time      `db:"submitted_at"`
}

func (r feedbackRow) unmarshal() feedback.Feedback {
	return feedback.Feedback{
		ID:          r.ID,
		ComplaintID: r.ComplaintID,
		UserID:      r.UserID,
		StaffID:     r.StaffID.String,
		Rating:      r.Rating,
		Comment:     r.Comment,
		SubmittedAt: r.SubmittedAt.UTC(),
	}
}

func marshalFeedback(fb feedback.Feedback) feedbackRow {
	return feedbackRow{
		ID:          fb.ID,
		ComplaintID: fb.ComplaintID,
		UserID:      fb.UserID,
		StaffID:     sql.NullString{String: fb.StaffID, Valid: fb.StaffID != ""},
		Rating:      fb.Rating,
		Comment:     fb.Comment,
		SubmittedAt: fb.SubmittedAt.UTC(),
	}
}

func (repo *feedbackRepository) CreateFeedback(ctx context.Context, fb feedback.Feedback) (feedback.Feedback, error) {
	fb.ID = uuid.New().String()
	q := `INSERT INTO feedback (id, complaint_id, user_id, staff_id, rating, comment, submitted_at)
	      VALUES (:id, :complaint_id, :user_id, :staff_id, :rating, :comment, :submitted_at)`
	if _, err := repo.db.NamedExecContext(ctx, q, marshalFeedback(fb)); err != nil {
		// UNIQUE (complaint_id, user_id) backs the one-per-pair invariant
		if isUniqueViolation(err) {
			return feedback.Feedback{}, feedback.ErrAlreadySubmitted
		}
		return feedback.Feedback{}, errors.Wrap(err, "inserting feedback")
	}
	return fb, nil
}

func (repo *feedbackRepository) GetFeedbackByComplaintAndUser(ctx context.Context, complaintID, userID string) (feedback.Feedback, error) {
	var row feedbackRow
	q := `SELECT * FROM feedback WHERE complaint_id = $1 AND user_id = $2`
	if err := repo.db.GetContext(ctx, &row, q, complaintID, userID); err != nil {
		if err == sql.ErrNoRows {
			return feedback.Feedback{}, feedback.ErrNotFound
		}
		return feedback.Feedback{}, errors.Wrap(err, "getting feedback by complaint and user")
	}
	return row.unmarshal(), nil
}

func (repo *feedbackRepository) QueryAllFeedback(ctx context.Context) ([]feedback.Feedback, error) {
	var rows []feedbackRow
	q := `SELECT * FROM feedback ORDER BY submitted_at DESC`
	if err := repo.db.SelectContext(ctx, &rows, q); err != nil {
		return nil, errors.Wrap(err, "querying all feedback")
	}

	fbs := make([]feedback.Feedback, 0, len(rows))
	for _, row := range rows {
		fbs = append(fbs, row.unmarshal())
	}
	return fbs, nil
}
