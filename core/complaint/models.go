package complaint

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/lalamika/core"
	"github.com/trezcool/lalamika/core/user"
)

// Statuses. A complaint only advances pending -> in-progress -> resolved.
const (
	StatusPending    = "pending"
	StatusInProgress = "in-progress"
	StatusResolved   = "resolved"
)

var AllStatuses = []string{StatusPending, StatusInProgress, StatusResolved}

// statusFlow enumerates the legal transitions out of each status.
// Re-saving the current status is allowed (notes edits); moving backwards or
// skipping a step is not.
var statusFlow = map[string][]string{
	StatusPending:    {StatusPending, StatusInProgress},
	StatusInProgress: {StatusInProgress, StatusResolved},
	StatusResolved:   {StatusResolved},
}

// CanTransition reports whether a complaint may move from one status to another.
func CanTransition(from, to string) bool {
	for _, s := range statusFlow[from] {
		if s == to {
			return true
		}
	}
	return false
}

// StaffUpdate is an append-only progress note; never edited or removed.
type StaffUpdate struct {
	PhotoURL  string    `json:"photo_url,omitempty"`
	Remarks   string    `json:"remarks"`
	CreatedAt time.Time `json:"created_at"` // UTC
}

type Complaint struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	ImageURL    string `json:"image_url,omitempty"`
	Category    string `json:"category"`
	// DueInDays is an urgency bucket (1, 2 or 3+ days), not a literal deadline.
	DueInDays       int           `json:"due_in_days"`
	Status          string        `json:"status"`
	RaisedBy        string        `json:"raised_by"`
	AssignedTo      string        `json:"assigned_to,omitempty"`
	ResolutionNotes string        `json:"resolution_notes,omitempty"`
	CreatedAt       time.Time     `json:"created_at"` // UTC
	UpdatedAt       time.Time     `json:"updated_at"` // UTC
	StaffUpdates    []StaffUpdate `json:"staff_updates"`
}

func (c *Complaint) IsResolved() bool { return c.Status == StatusResolved }

func (c *Complaint) IsOwnedBy(p user.Principal) bool    { return c.RaisedBy == p.ID }
func (c *Complaint) IsAssignedTo(p user.Principal) bool { return c.AssignedTo != "" && c.AssignedTo == p.ID }

// NewComplaint contains information needed to submit a Complaint.
type NewComplaint struct {
	Title       string `json:"title" form:"title" validate:"required"`
	Description string `json:"description" form:"description" validate:"required"`
	Category    string `json:"category" form:"category" validate:"required"`
	DueInDays   int    `json:"due_in_days" form:"due_in_days" validate:"required,oneof=1 2 3"`
	ImageURL    string `json:"-" form:"-"` // set by the upload layer, not bound from the request
}

func (nc *NewComplaint) Validate(validate *validator.Validate) error {
	nc.Title = core.CleanString(nc.Title)
	nc.Description = core.CleanString(nc.Description)
	nc.Category = core.CleanString(nc.Category)
	return validate.Struct(nc)
}

// AssignComplaint matches a pending complaint to a staff member.
type AssignComplaint struct {
	StaffID string `json:"staff_id" validate:"required"`
}

func (ac *AssignComplaint) Validate(validate *validator.Validate) error {
	ac.StaffID = core.CleanString(ac.StaffID)
	return validate.Struct(ac)
}

// StatusUpdate overwrites a complaint's status and resolution notes.
type StatusUpdate struct {
	Status          string `json:"status" validate:"required,status"`
	ResolutionNotes string `json:"resolution_notes"`
}

func (su *StatusUpdate) Validate(validate *validator.Validate) error {
	su.Status = core.CleanString(su.Status, true /* lower */)
	su.ResolutionNotes = core.CleanString(su.ResolutionNotes)
	return validate.Struct(su)
}

// NewStaffUpdate appends a progress note to an assigned complaint.
type NewStaffUpdate struct {
	Remarks  string `json:"remarks" form:"remarks" validate:"required"`
	PhotoURL string `json:"-" form:"-"` // set by the upload layer
}

func (nsu *NewStaffUpdate) Validate(validate *validator.Validate) error {
	nsu.Remarks = core.CleanString(nsu.Remarks)
	return validate.Struct(nsu)
}

// Info is a Complaint with its actors' display fields populated.
type Info struct {
	Complaint
	RaisedByUser   *user.Summary `json:"raised_by_user,omitempty"`
	AssignedToUser *user.Summary `json:"assigned_to_user,omitempty"`
}

// Triage buckets complaints by status for the admin dashboard.
// Pending and InProgress are ordered by ascending DueInDays (most urgent
// first), ties keeping retrieval order; Resolved keeps retrieval order.
type Triage struct {
	Pending    []Info `json:"pending"`
	InProgress []Info `json:"in_progress"`
	Resolved   []Info `json:"resolved"`
}

// Stats are the public complaint metrics, recomputed from a full scan on
// every call. AvgResponseTime is in whole hours; when no resolved complaint
// has a staff update it falls back to a documented placeholder of 24.
type Stats struct {
	Total           int `json:"total"`
	Resolved        int `json:"resolved"`
	AvgResponseTime int `json:"avg_response_time"`
}
