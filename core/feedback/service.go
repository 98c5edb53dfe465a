package feedback

import (
	"context"
	"errors"
	"time"

	pkgerrors "github.com/pkg/errors"

	"github.com/trezcool/lalamika/core"
	"github.com/trezcool/lalamika/core/complaint"
	"github.com/trezcool/lalamika/core/user"
)

var (
	// errors
	ErrNotFound         = errors.New("feedback not found")
	ErrNotResolved      = errors.New("feedback can only be submitted for resolved complaints")
	ErrNotOwner         = errors.New("not authorized to submit feedback for this complaint")
	ErrAlreadySubmitted = errors.New("feedback already submitted for this complaint")
)

type (
	Repository interface {
		// CreateFeedback fails with ErrAlreadySubmitted when a feedback for the
		// same (complaint, user) pair already exists.
		CreateFeedback(ctx context.Context, fb Feedback) (Feedback, error)
		GetFeedbackByComplaintAndUser(ctx context.Context, complaintID, userID string) (Feedback, error)
		// QueryAllFeedback returns feedback newest first.
		QueryAllFeedback(ctx context.Context) ([]Feedback, error)
	}

	ServiceInterface interface {
		Submit(ctx context.Context, principal user.Principal, nf NewFeedback) (Feedback, error)
		QueryAll(ctx context.Context) ([]Info, error)
	}

	Service struct {
		repo    Repository
		cplRepo complaint.Repository
		usrRepo user.Repository
	}
)

var _ ServiceInterface = (*Service)(nil)

func NewService(repo Repository, cplRepo complaint.Repository, usrRepo user.Repository) *Service {
	return &Service{repo: repo, cplRepo: cplRepo, usrRepo: usrRepo}
}

// Submit persists a feedback after three ordered checks: the complaint is
// resolved, the caller raised it, and no feedback exists for the pair yet.
func (svc *Service) Submit(ctx context.Context, principal user.Principal, nf NewFeedback) (Feedback, error) {
	cpl, err := svc.cplRepo.GetComplaintByID(ctx, nf.ComplaintID)
	if err != nil {
		if err == complaint.ErrNotFound {
			return Feedback{}, core.NewValidationError(ErrNotResolved, core.FieldError{Field: "complaint_id", Error: ErrNotResolved.Error()})
		}
		return Feedback{}, pkgerrors.Wrap(err, "finding complaint")
	}
	if !cpl.IsResolved() {
		return Feedback{}, core.NewValidationError(ErrNotResolved, core.FieldError{Field: "complaint_id", Error: ErrNotResolved.Error()})
	}

	if !cpl.IsOwnedBy(principal) {
		return Feedback{}, ErrNotOwner
	}

	if _, err = svc.repo.GetFeedbackByComplaintAndUser(ctx, nf.ComplaintID, principal.ID); err == nil {
		return Feedback{}, ErrAlreadySubmitted
	} else if err != ErrNotFound {
		return Feedback{}, pkgerrors.Wrap(err, "checking existing feedback")
	}

	fb := Feedback{
		ComplaintID: nf.ComplaintID,
		UserID:      principal.ID,
		StaffID:     cpl.AssignedTo,
		Rating:      nf.Rating,
		Comment:     nf.Comment,
		SubmittedAt: time.Now().UTC(),
	}
	return svc.repo.CreateFeedback(ctx, fb)
}

// QueryAll lists all feedback with display fields, for the public testimonial page.
func (svc *Service) QueryAll(ctx context.Context) ([]Info, error) {
	fbs, err := svc.repo.QueryAllFeedback(ctx)
	if err != nil {
		return nil, err
	}

	summaries := make(map[string]*user.Summary)
	lookupUser := func(id string) (*user.Summary, error) {
		if id == "" {
			return nil, nil
		}
		if s, ok := summaries[id]; ok {
			return s, nil
		}
		usr, err := svc.usrRepo.GetUserByID(ctx, id)
		if err != nil {
			if err == user.ErrNotFound {
				summaries[id] = nil
				return nil, nil
			}
			return nil, pkgerrors.Wrap(err, "finding feedback actor")
		}
		s := usr.Summary()
		summaries[id] = &s
		return &s, nil
	}

	titles := make(map[string]string)
	lookupTitle := func(id string) (string, error) {
		if title, ok := titles[id]; ok {
			return title, nil
		}
		cpl, err := svc.cplRepo.GetComplaintByID(ctx, id)
		if err != nil {
			if err == complaint.ErrNotFound {
				titles[id] = ""
				return "", nil
			}
			return "", pkgerrors.Wrap(err, "finding feedback complaint")
		}
		titles[id] = cpl.Title
		return cpl.Title, nil
	}

	infos := make([]Info, 0, len(fbs))
	for _, fb := range fbs {
		usr, err := lookupUser(fb.UserID)
		if err != nil {
			return nil, err
		}
		staff, err := lookupUser(fb.StaffID)
		if err != nil {
			return nil, err
		}
		title, err := lookupTitle(fb.ComplaintID)
		if err != nil {
			return nil, err
		}
		infos = append(infos, Info{Feedback: fb, User: usr, Staff: staff, ComplaintTitle: title})
	}
	return infos, nil
}
