package dummydb

import (
	"context"

	"github.com/google/uuid"

	"github.com/trezcool/lalamika/core/feedback"
)

type feedbackRepository struct {
	db *DB
}

var _ feedback.Repository = (*feedbackRepository)(nil) // interface compliance check

func NewFeedbackRepository(db *DB) feedback.Repository {
	return &feedbackRepository{db: db}
}

func (repo *feedbackRepository) CreateFeedback(ctx context.Context, fb feedback.Feedback) (feedback.Feedback, error) {
	t := repo.db.feedback
	t.Lock()
	defer t.Unlock()

	for _, f := range t.rows {
		if f.ComplaintID == fb.ComplaintID && f.UserID == fb.UserID {
			return feedback.Feedback{}, feedback.ErrAlreadySubmitted
		}
	}

	fb.ID = uuid.New().String()
	t.rows = append(t.rows, &fb)
	t.byID[fb.ID] = &fb
	return fb, nil
}

func (repo *feedbackRepository) GetFeedbackByComplaintAndUser(ctx context.Context, complaintID, userID string) (feedback.Feedback, error) {
	t := repo.db.feedback
	t.RLock()
	defer t.RUnlock()

	for _, fb := range t.rows {
		if fb.ComplaintID == complaintID && fb.UserID == userID {
			return *fb, nil
		}
	}
	return feedback.Feedback{}, feedback.ErrNotFound
}

func (repo *feedbackRepository) QueryAllFeedback(ctx context.Context) ([]feedback.Feedback, error) {
	t := repo.db.feedback
	t.RLock()
	defer t.RUnlock()

	fbs := make([]feedback.Feedback, 0, len(t.rows))
	for i := len(t.rows) - 1; i >= 0; i-- {
		fbs = append(fbs, *t.rows[i])
	}
	return fbs, nil
}
