package sqlxrepos

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/lalamika/core/complaint"
)

type complaintRepository struct {
	db *sqlx.DB
}

var _ complaint.Repository = (*complaintRepository)(nil) // interface compliance check

func NewComplaintRepository(db *sqlx.DB) *complaintRepository {
	return &complaintRepository{db: db}
}

// staffUpdatesDoc stores the append-only StaffUpdate sequence as a single
// jsonb document, read-modify-written with its row (last writer wins).
type staffUpdatesDoc []complaint.StaffUpdate

func (d staffUpdatesDoc) Value() (driver.Value, error) {
	if d == nil {
		d = staffUpdatesDoc{}
	}
	return json.Marshal(d)
}

func (d *staffUpdatesDoc) Scan(src interface{}) error {
	switch data := src.(type) {
	case []byte:
		return json.Unmarshal(data, d)
	case string:
		return json.Unmarshal([]byte(data), d)
	case nil:
		*d = staffUpdatesDoc{}
		return nil
	}
	return fmt.Errorf("unsupported staff_updates source: %T", src)
}

type complaintRow struct {
	ID              string          `db:"id"`
	Title           string          `db:"title"`
	Description     string          `db:"description"`
	ImageURL        string          `db:"image_url"`
	Category        string          `db:"category"`
	DueInDays       int             `db:"due_in_days"`
	Status          string          `db:"status"`
	RaisedBy        string          `db:"raised_by"`
	AssignedTo      sql.NullString  `db:"assigned_to"`
	ResolutionNotes string          `db:"resolution_notes"`
	CreatedAt       time.Time       `db:"created_at"`
	UpdatedAt       time.Time       `db:"updated_at"`
	StaffUpdates    staffUpdatesDoc `db:"staff_updates"`
}

func (r complaintRow) unmarshal() complaint.Complaint {
	return complaint.Complaint{
		ID:              r.ID,
		Title:           r.Title,
		Description:     r.Description,
		ImageURL:        r.ImageURL,
		Category:        r.Category,
		DueInDays:       r.DueInDays,
		Status:          r.Status,
		RaisedBy:        r.RaisedBy,
		AssignedTo:      r.AssignedTo.String,
		ResolutionNotes: r.ResolutionNotes,
		CreatedAt:       r.CreatedAt.UTC(),
		UpdatedAt:       r.UpdatedAt.UTC(),
		StaffUpdates:    []complaint.StaffUpdate(r.StaffUpdates),
	}
}

func marshalComplaint(cpl complaint.Complaint) complaintRow {
	return complaintRow{
		ID:              cpl.ID,
		Title:           cpl.Title,
		Description:     cpl.Description,
		ImageURL:        cpl.ImageURL,
		Category:        cpl.Category,
		DueInDays:       cpl.DueInDays,
		Status:          cpl.Status,
		RaisedBy:        cpl.RaisedBy,
		AssignedTo:      sql.NullString{String: cpl.AssignedTo, Valid: cpl.AssignedTo != ""},
		ResolutionNotes: cpl.ResolutionNotes,
		CreatedAt:       cpl.CreatedAt.UTC(),
		UpdatedAt:       cpl.UpdatedAt.UTC(),
		StaffUpdates:    staffUpdatesDoc(cpl.StaffUpdates),
	}
}

// trapComplaintNoRowsErr maps psql "no rows" err to complaint.ErrNotFound
func trapComplaintNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return complaint.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo *complaintRepository) CreateComplaint(ctx context.Context, cpl complaint.Complaint) (complaint.Complaint, error) {
	cpl.ID = uuid.New().String()
	q := `INSERT INTO complaint (id, title, description, image_url, category, due_in_days, status,
	      raised_by, assigned_to, resolution_notes, created_at, updated_at, staff_updates)
	      VALUES (:id, :title, :description, :image_url, :category, :due_in_days, :status,
	      :raised_by, :assigned_to, :resolution_notes, :created_at, :updated_at, :staff_updates)`
	if _, err := repo.db.NamedExecContext(ctx, q, marshalComplaint(cpl)); err != nil {
		return complaint.Complaint{}, errors.Wrap(err, "inserting complaint")
	}
	return cpl, nil
}

func (repo *complaintRepository) GetComplaintByID(ctx context.Context, id string) (complaint.Complaint, error) {
	var row complaintRow
	q := `SELECT * FROM complaint WHERE id = $1`
	if err := repo.db.GetContext(ctx, &row, q, id); err != nil {
		return complaint.Complaint{}, trapComplaintNoRowsErr(err, "getting complaint by id")
	}
	return row.unmarshal(), nil
}

func (repo *complaintRepository) QueryAllComplaints(ctx context.Context) ([]complaint.Complaint, error) {
	var rows []complaintRow
	q := `SELECT * FROM complaint ORDER BY created_at DESC`
	if err := repo.db.SelectContext(ctx, &rows, q); err != nil {
		return nil, errors.Wrap(err, "querying all complaints")
	}
	return unmarshalComplaints(rows), nil
}

func (repo *complaintRepository) QueryComplaintsByOwner(ctx context.Context, userID string) ([]complaint.Complaint, error) {
	var rows []complaintRow
	q := `SELECT * FROM complaint WHERE raised_by = $1 ORDER BY created_at DESC`
	if err := repo.db.SelectContext(ctx, &rows, q, userID); err != nil {
		return nil, errors.Wrap(err, "querying complaints by owner")
	}
	return unmarshalComplaints(rows), nil
}

func (repo *complaintRepository) QueryComplaintsByAssignee(ctx context.Context, staffID string) ([]complaint.Complaint, error) {
	var rows []complaintRow
	q := `SELECT * FROM complaint WHERE assigned_to = $1 ORDER BY created_at DESC`
	if err := repo.db.SelectContext(ctx, &rows, q, staffID); err != nil {
		return nil, errors.Wrap(err, "querying complaints by assignee")
	}
	return unmarshalComplaints(rows), nil
}

func (repo *complaintRepository) UpdateComplaint(ctx context.Context, cpl complaint.Complaint) (complaint.Complaint, error) {
	q := `UPDATE complaint SET status = :status, assigned_to = :assigned_to,
	      resolution_notes = :resolution_notes, updated_at = :updated_at, staff_updates = :staff_updates
	      WHERE id = :id`
	res, err := repo.db.NamedExecContext(ctx, q, marshalComplaint(cpl))
	if err != nil {
		return complaint.Complaint{}, errors.Wrap(err, "updating complaint")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return complaint.Complaint{}, complaint.ErrNotFound
	}
	return cpl, nil
}

func unmarshalComplaints(rows []complaintRow) []complaint.Complaint {
	complaints := make([]complaint.Complaint, 0, len(rows))
	for _, row := range rows {
		complaints = append(complaints, row.unmarshal())
	}
	return complaints
}
