package feedback

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/lalamika/core"
	"github.com/trezcool/lalamika/core/user"
)

// Feedback is a post-resolution rating, one per (complaint, user) pair,
// immutable once stored. StaffID is a snapshot of the complaint's assignee
// at submission time.
type Feedback struct {
	ID          string    `json:"id"`
	ComplaintID string    `json:"complaint_id"`
	UserID      string    `json:"user_id"`
	StaffID     string    `json:"staff_id,omitempty"`
	Rating      int       `json:"rating"`
	Comment     string    `json:"comment,omitempty"`
	SubmittedAt time.Time `json:"submitted_at"` // UTC
}

// NewFeedback contains information needed to submit a Feedback.
type NewFeedback struct {
	ComplaintID string `json:"complaint_id" validate:"required"`
	Rating      int    `json:"rating" validate:"required,min=1,max=5"`
	Comment     string `json:"comment"`
}

func (nf *NewFeedback) Validate(validate *validator.Validate) error {
	nf.ComplaintID = core.CleanString(nf.ComplaintID)
	nf.Comment = core.CleanString(nf.Comment)
	return validate.Struct(nf)
}

// Info is a Feedback with display fields populated, for the public
// testimonial listing.
type Info struct {
	Feedback
	User           *user.Summary `json:"user,omitempty"`
	Staff          *user.Summary `json:"staff,omitempty"`
	ComplaintTitle string        `json:"complaint_title,omitempty"`
}
