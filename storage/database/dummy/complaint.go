package dummydb

import (
	"context"

	"github.com/google/uuid"

	"github.com/trezcool/lalamika/core/complaint"
)

type complaintRepository struct {
	db *DB
}

var _ complaint.Repository = (*complaintRepository)(nil) // interface compliance check

func NewComplaintRepository(db *DB) complaint.Repository {
	return &complaintRepository{db: db}
}

func (repo *complaintRepository) CreateComplaint(ctx context.Context, cpl complaint.Complaint) (complaint.Complaint, error) {
	t := repo.db.complaint
	t.Lock()
	defer t.Unlock()

	cpl.ID = uuid.New().String()
	t.rows = append(t.rows, &cpl)
	t.byID[cpl.ID] = &cpl
	return cpl, nil
}

func (repo *complaintRepository) GetComplaintByID(ctx context.Context, id string) (complaint.Complaint, error) {
	t := repo.db.complaint
	t.RLock()
	defer t.RUnlock()

	if cpl, ok := t.byID[id]; ok {
		return *cpl, nil
	}
	return complaint.Complaint{}, complaint.ErrNotFound
}

func (repo *complaintRepository) QueryAllComplaints(ctx context.Context) ([]complaint.Complaint, error) {
	return repo.queryNewestFirst(func(*complaint.Complaint) bool { return true }), nil
}

func (repo *complaintRepository) QueryComplaintsByOwner(ctx context.Context, userID string) ([]complaint.Complaint, error) {
	return repo.queryNewestFirst(func(cpl *complaint.Complaint) bool { return cpl.RaisedBy == userID }), nil
}

func (repo *complaintRepository) QueryComplaintsByAssignee(ctx context.Context, staffID string) ([]complaint.Complaint, error) {
	return repo.queryNewestFirst(func(cpl *complaint.Complaint) bool { return cpl.AssignedTo == staffID }), nil
}

func (repo *complaintRepository) UpdateComplaint(ctx context.Context, cpl complaint.Complaint) (complaint.Complaint, error) {
	t := repo.db.complaint
	t.Lock()
	defer t.Unlock()

	stored, ok := t.byID[cpl.ID]
	if !ok {
		return complaint.Complaint{}, complaint.ErrNotFound
	}
	*stored = cpl // whole document write; last writer wins
	return cpl, nil
}

func (repo *complaintRepository) queryNewestFirst(match func(*complaint.Complaint) bool) []complaint.Complaint {
	t := repo.db.complaint
	t.RLock()
	defer t.RUnlock()

	complaints := make([]complaint.Complaint, 0, len(t.rows))
	for i := len(t.rows) - 1; i >= 0; i-- {
		if cpl := t.rows[i]; match(cpl) {
			complaints = append(complaints, *cpl)
		}
	}
	return complaints
}
