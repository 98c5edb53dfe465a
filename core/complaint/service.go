package complaint

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/mail"
	"sort"
	"time"

	pkgerrors "github.com/pkg/errors"

	"github.com/trezcool/lalamika/core"
	"github.com/trezcool/lalamika/core/user"
)

var (
	// errors
	ErrNotFound     = errors.New("complaint not found")
	ErrInvalidStaff = errors.New("invalid staff member selected")
	ErrNotAssignee  = errors.New("complaint is not assigned to you")
	ErrAccessDenied = errors.New("permission denied")
)

// defaultAvgResponseTime (hours) is reported when no resolved complaint has a
// staff update yet; a documented placeholder, not a measured value.
const defaultAvgResponseTime = 24

type (
	Repository interface {
		CreateComplaint(ctx context.Context, cpl Complaint) (Complaint, error)
		GetComplaintByID(ctx context.Context, id string) (Complaint, error)
		// Query* methods return complaints newest first.
		QueryAllComplaints(ctx context.Context) ([]Complaint, error)
		QueryComplaintsByOwner(ctx context.Context, userID string) ([]Complaint, error)
		QueryComplaintsByAssignee(ctx context.Context, staffID string) ([]Complaint, error)
		// UpdateComplaint writes the whole document back; last writer wins.
		UpdateComplaint(ctx context.Context, cpl Complaint) (Complaint, error)
	}

	ServiceInterface interface {
		Create(ctx context.Context, principal user.Principal, nc NewComplaint) (Complaint, error)
		QueryOwned(ctx context.Context, principal user.Principal) ([]Complaint, error)
		GetByID(ctx context.Context, principal user.Principal, id string) (Complaint, error)
		QueryTriage(ctx context.Context) (Triage, error)
		Assign(ctx context.Context, id string, ac AssignComplaint) (Complaint, error)
		UpdateStatus(ctx context.Context, id string, su StatusUpdate) (Complaint, error)
		QueryAssigned(ctx context.Context, principal user.Principal) ([]Complaint, error)
		AddStaffUpdate(ctx context.Context, principal user.Principal, id string, nsu NewStaffUpdate) (Complaint, error)
		Stats(ctx context.Context) (Stats, error)
	}

	Service struct {
		repo    Repository
		usrRepo user.Repository
		mailSvc core.EmailService
		logger  core.Logger
		conf    *core.Config
	}
)

var _ ServiceInterface = (*Service)(nil)

func NewService(
	repo Repository,
	usrRepo user.Repository,
	mailSvc core.EmailService,
	logger core.Logger,
	conf *core.Config,
) *Service {
	return &Service{
		repo:    repo,
		usrRepo: usrRepo,
		mailSvc: mailSvc,
		logger:  logger,
		conf:    conf,
	}
}

func (svc *Service) Create(ctx context.Context, principal user.Principal, nc NewComplaint) (Complaint, error) {
	now := time.Now().UTC()
	cpl := Complaint{
		Title:        nc.Title,
		Description:  nc.Description,
		ImageURL:     nc.ImageURL,
		Category:     nc.Category,
		DueInDays:    nc.DueInDays,
		Status:       StatusPending,
		RaisedBy:     principal.ID,
		CreatedAt:    now,
		UpdatedAt:    now,
		StaffUpdates: []StaffUpdate{},
	}
	return svc.repo.CreateComplaint(ctx, cpl)
}

func (svc *Service) QueryOwned(ctx context.Context, principal user.Principal) ([]Complaint, error) {
	return svc.repo.QueryComplaintsByOwner(ctx, principal.ID)
}

// GetByID returns the full complaint including staff updates.
// In strict mode only the owner, the assignee or the admin may read it;
// permissive mode lets any authenticated caller through (legacy behavior).
func (svc *Service) GetByID(ctx context.Context, principal user.Principal, id string) (Complaint, error) {
	cpl, err := svc.repo.GetComplaintByID(ctx, id)
	if err != nil {
		return Complaint{}, err
	}
	if svc.conf.StrictAccess {
		if !(principal.IsAdmin() || cpl.IsOwnedBy(principal) || cpl.IsAssignedTo(principal)) {
			return Complaint{}, ErrAccessDenied
		}
	}
	return cpl, nil
}

func (svc *Service) QueryTriage(ctx context.Context) (Triage, error) {
	complaints, err := svc.repo.QueryAllComplaints(ctx)
	if err != nil {
		return Triage{}, err
	}

	infos, err := svc.populate(ctx, complaints)
	if err != nil {
		return Triage{}, err
	}

	triage := Triage{
		Pending:    make([]Info, 0),
		InProgress: make([]Info, 0),
		Resolved:   make([]Info, 0),
	}
	for _, info := range infos {
		switch info.Status {
		case StatusPending:
			triage.Pending = append(triage.Pending, info)
		case StatusInProgress:
			triage.InProgress = append(triage.InProgress, info)
		case StatusResolved:
			triage.Resolved = append(triage.Resolved, info)
		}
	}

	// most urgent first; ties keep retrieval order
	byUrgency := func(bucket []Info) func(i, j int) bool {
		return func(i, j int) bool { return bucket[i].DueInDays < bucket[j].DueInDays }
	}
	sort.SliceStable(triage.Pending, byUrgency(triage.Pending))
	sort.SliceStable(triage.InProgress, byUrgency(triage.InProgress))

	return triage, nil
}

// Assign matches a complaint to a staff member and moves it to in-progress
// unconditionally, bypassing the status flow: re-assignment is a plain
// overwrite and a resolved complaint gets reopened. The new assignee is
// notified either way.
func (svc *Service) Assign(ctx context.Context, id string, ac AssignComplaint) (Complaint, error) {
	staff, err := svc.usrRepo.GetUserByID(ctx, ac.StaffID)
	if err != nil {
		if err == user.ErrNotFound {
			return Complaint{}, core.NewValidationError(ErrInvalidStaff, core.FieldError{Field: "staff_id", Error: ErrInvalidStaff.Error()})
		}
		return Complaint{}, pkgerrors.Wrap(err, "finding staff user")
	}
	if !staff.IsStaff() {
		return Complaint{}, core.NewValidationError(ErrInvalidStaff, core.FieldError{Field: "staff_id", Error: ErrInvalidStaff.Error()})
	}

	cpl, err := svc.repo.GetComplaintByID(ctx, id)
	if err != nil {
		return Complaint{}, err
	}

	cpl.AssignedTo = staff.ID
	cpl.Status = StatusInProgress
	cpl.UpdatedAt = time.Now().UTC()
	cpl, err = svc.repo.UpdateComplaint(ctx, cpl)
	if err != nil {
		return Complaint{}, err
	}

	svc.notifyAssignment(staff, cpl)
	return cpl, nil
}

func (svc *Service) UpdateStatus(ctx context.Context, id string, su StatusUpdate) (Complaint, error) {
	cpl, err := svc.repo.GetComplaintByID(ctx, id)
	if err != nil {
		return Complaint{}, err
	}

	if !CanTransition(cpl.Status, su.Status) {
		err := fmt.Errorf("cannot move a %s complaint to %s", cpl.Status, su.Status)
		return Complaint{}, core.NewValidationError(err, core.FieldError{Field: "status", Error: err.Error()})
	}

	wasResolved := cpl.IsResolved()
	cpl.Status = su.Status
	cpl.ResolutionNotes = su.ResolutionNotes
	cpl.UpdatedAt = time.Now().UTC()
	cpl, err = svc.repo.UpdateComplaint(ctx, cpl)
	if err != nil {
		return Complaint{}, err
	}

	if cpl.IsResolved() && !wasResolved {
		svc.notifyResolution(ctx, cpl)
	}
	return cpl, nil
}

func (svc *Service) QueryAssigned(ctx context.Context, principal user.Principal) ([]Complaint, error) {
	return svc.repo.QueryComplaintsByAssignee(ctx, principal.ID)
}

// AddStaffUpdate appends a progress note; the status is left untouched.
// In strict mode the caller must be the assignee.
func (svc *Service) AddStaffUpdate(ctx context.Context, principal user.Principal, id string, nsu NewStaffUpdate) (Complaint, error) {
	cpl, err := svc.repo.GetComplaintByID(ctx, id)
	if err != nil {
		return Complaint{}, err
	}
	if svc.conf.StrictAccess && !cpl.IsAssignedTo(principal) {
		return Complaint{}, ErrNotAssignee
	}

	now := time.Now().UTC()
	cpl.StaffUpdates = append(cpl.StaffUpdates, StaffUpdate{
		PhotoURL:  nsu.PhotoURL,
		Remarks:   nsu.Remarks,
		CreatedAt: now,
	})
	cpl.UpdatedAt = now
	return svc.repo.UpdateComplaint(ctx, cpl)
}

func (svc *Service) Stats(ctx context.Context) (Stats, error) {
	complaints, err := svc.repo.QueryAllComplaints(ctx)
	if err != nil {
		return Stats{}, err
	}

	stats := Stats{Total: len(complaints)}
	var totalResponseTime time.Duration
	var withResponseTime int
	for _, cpl := range complaints {
		if !cpl.IsResolved() {
			continue
		}
		stats.Resolved++
		if len(cpl.StaffUpdates) > 0 {
			totalResponseTime += cpl.StaffUpdates[0].CreatedAt.Sub(cpl.CreatedAt)
			withResponseTime++
		}
	}

	if withResponseTime > 0 {
		avg := totalResponseTime / time.Duration(withResponseTime)
		stats.AvgResponseTime = int(math.Round(avg.Hours()))
	} else {
		stats.AvgResponseTime = defaultAvgResponseTime
	}
	return stats, nil
}

// populate resolves the actors' display fields for a batch of complaints.
func (svc *Service) populate(ctx context.Context, complaints []Complaint) ([]Info, error) {
	summaries := make(map[string]*user.Summary)
	lookup := func(id string) (*user.Summary, error) {
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
			return nil, pkgerrors.Wrap(err, "finding complaint actor")
		}
		s := usr.Summary()
		summaries[id] = &s
		return &s, nil
	}

	infos := make([]Info, 0, len(complaints))
	for _, cpl := range complaints {
		raisedBy, err := lookup(cpl.RaisedBy)
		if err != nil {
			return nil, err
		}
		assignedTo, err := lookup(cpl.AssignedTo)
		if err != nil {
			return nil, err
		}
		infos = append(infos, Info{Complaint: cpl, RaisedByUser: raisedBy, AssignedToUser: assignedTo})
	}
	return infos, nil
}

// Notifications are best-effort: the email service sends asynchronously and
// failures are logged there; a flaky mail relay never holds a state change hostage.

func (svc *Service) notifyAssignment(staff user.User, cpl Complaint) {
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: staff.Name, Address: staff.Email}},
		Subject:      "New Complaint Assigned to You",
		TemplateName: "complaint_assigned",
		TemplateData: struct{ Name, Title string }{Name: staff.Name, Title: cpl.Title},
	})
}

func (svc *Service) notifyResolution(ctx context.Context, cpl Complaint) {
	owner, err := svc.usrRepo.GetUserByID(ctx, cpl.RaisedBy)
	if err != nil {
		svc.logger.Error(fmt.Sprintf("finding complaint owner for resolution email: %v", err), err)
		return
	}
	if owner.Email == "" {
		return
	}
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: owner.Name, Address: owner.Email}},
		Subject:      "Your complaint has been resolved",
		TemplateName: "complaint_resolved",
		TemplateData: struct{ Name, Title string }{Name: owner.Name, Title: cpl.Title},
	})
}
