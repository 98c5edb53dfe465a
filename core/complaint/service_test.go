package complaint_test

import (
	"context"
	"testing"
	"time"

	"github.com/trezcool/lalamika/core"
	"github.com/trezcool/lalamika/core/complaint"
	"github.com/trezcool/lalamika/core/user"
	emailsvc "github.com/trezcool/lalamika/services/email"
	dummydb "github.com/trezcool/lalamika/storage/database/dummy"
	testutil "github.com/trezcool/lalamika/tests"
)

type nopLogger struct{}

func (nopLogger) Debug(msg string, args ...interface{}) {}
func (nopLogger) Info(msg string, args ...interface{})  {}
func (nopLogger) Warn(msg string, args ...interface{})  {}
func (nopLogger) Error(msg string, args ...interface{}) {}
func (nopLogger) Fatal(msg string, args ...interface{}) {}

func setup(t *testing.T) (*complaint.Service, complaint.Repository, user.Repository, *core.Config) {
	db, err := dummydb.Open()
	if err != nil {
		t.Fatalf("dummydb.Open(): %v", err)
	}
	usrRepo := dummydb.NewUserRepository(db)
	cplRepo := dummydb.NewComplaintRepository(db)

	conf := &core.Config{
		AppName:      "Lalamika",
		Env:          "TEST",
		TestMode:     true,
		WorkDir:      core.Getwd(),
		StrictAccess: true,
	}
	mailSvc := emailsvc.NewConsoleServiceMock(conf)
	emailsvc.ResetSentMessages()

	svc := complaint.NewService(cplRepo, usrRepo, mailSvc, nopLogger{}, conf)
	return svc, cplRepo, usrRepo, conf
}

func TestService_Stats(t *testing.T) {
	svc, cplRepo, usrRepo, _ := setup(t)
	ctx := context.Background()

	t.Run("no complaints falls back to the default", func(t *testing.T) {
		stats, err := svc.Stats(ctx)
		if err != nil {
			t.Fatalf("Stats(): %v", err)
		}
		want := complaint.Stats{Total: 0, Resolved: 0, AvgResponseTime: 24}
		if stats != want {
			t.Errorf("Stats() = %+v, want %+v", stats, want)
		}
	})

	student := testutil.CreateUser(t, usrRepo, "Jo Eyo", "jo@test.cd", "Hostel", user.RoleStudent, "")
	staff := testutil.CreateUser(t, usrRepo, "Mo Ngoy", "mo@test.cd", "Maintenance", user.RoleStaff, "")

	now := time.Now().UTC()

	// responded to after 90 min: rounds to 2 hours
	done := testutil.CreateComplaint(t, cplRepo, "Leaky tap", "Plumbing", complaint.StatusResolved, student.ID, staff.ID, 2, now.Add(-3*time.Hour))
	testutil.AddStaffUpdate(t, cplRepo, done, "On it.", now.Add(-90*time.Minute))

	// only the first staff update counts as the response
	multi := testutil.CreateComplaint(t, cplRepo, "Broken bulb", "Electrical", complaint.StatusResolved, student.ID, staff.ID, 1, now.Add(-10*time.Hour))
	multi = testutil.AddStaffUpdate(t, cplRepo, multi, "Ordering parts.", now.Add(-6*time.Hour))
	testutil.AddStaffUpdate(t, cplRepo, multi, "Done.", now.Add(-1*time.Hour))

	// resolved without a staff update is excluded from the average
	testutil.CreateComplaint(t, cplRepo, "Noisy fan", "Electrical", complaint.StatusResolved, student.ID, staff.ID, 3)

	// pending only counts toward the total
	testutil.CreateComplaint(t, cplRepo, "Cracked window", "Carpentry", complaint.StatusPending, student.ID, "", 1)

	t.Run("average in whole hours", func(t *testing.T) {
		stats, err := svc.Stats(ctx)
		if err != nil {
			t.Fatalf("Stats(): %v", err)
		}
		// (1.5h + 4h) / 2 = 2.75h, rounded to 3
		want := complaint.Stats{Total: 4, Resolved: 3, AvgResponseTime: 3}
		if stats != want {
			t.Errorf("Stats() = %+v, want %+v", stats, want)
		}
	})
}

func TestService_GetByID_strictAccess(t *testing.T) {
	svc, cplRepo, usrRepo, conf := setup(t)
	ctx := context.Background()

	student := testutil.CreateUser(t, usrRepo, "Jo Eyo", "jo@test.cd", "Hostel", user.RoleStudent, "")
	other := testutil.CreateUser(t, usrRepo, "Lia Eyo", "lia@test.cd", "Hostel", user.RoleStudent, "")
	staff := testutil.CreateUser(t, usrRepo, "Mo Ngoy", "mo@test.cd", "Maintenance", user.RoleStaff, "")

	cpl := testutil.CreateComplaint(t, cplRepo, "Leaky tap", "Plumbing", complaint.StatusInProgress, student.ID, staff.ID, 2)

	tests := []struct {
		name    string
		prin    user.Principal
		wantErr error
	}{
		{name: "owner", prin: user.NewPrincipal(student)},
		{name: "assignee", prin: user.NewPrincipal(staff)},
		{name: "admin", prin: user.NewAdminPrincipal("root@lalamika.cd")},
		{name: "other student", prin: user.NewPrincipal(other), wantErr: complaint.ErrAccessDenied},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.GetByID(ctx, tt.prin, cpl.ID); err != tt.wantErr {
				t.Errorf("GetByID() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}

	t.Run("permissive mode lets anyone through", func(t *testing.T) {
		conf.StrictAccess = false
		defer func() { conf.StrictAccess = true }()

		if _, err := svc.GetByID(ctx, user.NewPrincipal(other), cpl.ID); err != nil {
			t.Errorf("GetByID() error = %v, want nil", err)
		}
	})
}
