package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/trezcool/lalamika/core/complaint"
	"github.com/trezcool/lalamika/core/feedback"
	"github.com/trezcool/lalamika/core/user"
)

func CreateUser(
	t *testing.T,
	repo user.Repository,
	name, email, department, role, pwd string,
	createdAt ...time.Time,
) user.User {
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	usr := user.User{
		Name:       name,
		Email:      email,
		Department: department,
		Role:       role,
		CreatedAt:  tstamp,
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("CreateUser() failed: %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

func CreateComplaint(
	t *testing.T,
	repo complaint.Repository,
	title, category, status, raisedBy, assignedTo string,
	dueInDays int,
	createdAt ...time.Time,
) complaint.Complaint {
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	cpl := complaint.Complaint{
		Title:        title,
		Description:  title + " description",
		Category:     category,
		DueInDays:    dueInDays,
		Status:       status,
		RaisedBy:     raisedBy,
		AssignedTo:   assignedTo,
		CreatedAt:    tstamp,
		UpdatedAt:    tstamp,
		StaffUpdates: []complaint.StaffUpdate{},
	}
	cpl, err := repo.CreateComplaint(context.Background(), cpl)
	if err != nil {
		t.Fatalf("CreateComplaint() failed: %v", err)
	}
	return cpl
}

func AddStaffUpdate(
	t *testing.T,
	repo complaint.Repository,
	cpl complaint.Complaint,
	remarks string,
	createdAt time.Time,
) complaint.Complaint {
	cpl.StaffUpdates = append(cpl.StaffUpdates, complaint.StaffUpdate{
		Remarks:   remarks,
		CreatedAt: createdAt.UTC(),
	})
	cpl, err := repo.UpdateComplaint(context.Background(), cpl)
	if err != nil {
		t.Fatalf("AddStaffUpdate() failed: %v", err)
	}
	return cpl
}

func CreateFeedback(
	t *testing.T,
	repo feedback.Repository,
	complaintID, userID, staffID string,
	rating int,
	comment string,
) feedback.Feedback {
	fb := feedback.Feedback{
		ComplaintID: complaintID,
		UserID:      userID,
		StaffID:     staffID,
		Rating:      rating,
		Comment:     comment,
		SubmittedAt: time.Now().UTC(),
	}
	fb, err := repo.CreateFeedback(context.Background(), fb)
	if err != nil {
		t.Fatalf("CreateFeedback() failed: %v", err)
	}
	return fb
}
