package tests

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/trezcool/lalamika/core/complaint"
	"github.com/trezcool/lalamika/core/user"
	emailsvc "github.com/trezcool/lalamika/services/email"
	testutil "github.com/trezcool/lalamika/tests"
)

func Test_complaintApi_create(t *testing.T) {
	resetDB()

	student := testutil.CreateUser(t, usrRepo, "Jo Eyo", "jo@test.cd", "Hostel", user.RoleStudent, "password1")
	staff := testutil.CreateUser(t, usrRepo, "Mo Ngoy", "mo@test.cd", "Maintenance", user.RoleStaff, "password2")

	payload := func(title, desc, category string, dueInDays int) []byte {
		return marchallObj(t, complaint.NewComplaint{Title: title, Description: desc, Category: category, DueInDays: dueInDays})
	}

	tests := []httpTest{
		{name: "Auth required", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "admin cannot raise complaints", token: getAdminToken(t),
			body: payload("Leaky tap", "The tap leaks.", "Plumbing", 2),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, errPermissionDenied),
		},
		{
			name: "empty payload", token: getToken(t, student), body: []byte("{}"), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{
				"title":       "this field is required",
				"description": "this field is required",
				"category":    "this field is required",
				"due_in_days": "this field is required",
			}),
		},
		{
			name: "due_in_days out of range", token: getToken(t, student),
			body:     payload("Leaky tap", "The tap leaks.", "Plumbing", 7),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"due_in_days": "due_in_days must be one of [1 2 3]"}),
		},
		{
			name: "student create ok", token: getToken(t, student),
			body: payload("Leaky tap", "The tap leaks.", "Plumbing", 2), wantCode: http.StatusCreated,
			extra: student.ID,
		},
		{
			name: "staff create ok", token: getToken(t, staff),
			body: payload("Jammed printer", "The lab printer is jammed.", "Equipment", 1), wantCode: http.StatusCreated,
			extra: staff.ID,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodPost, "/v1/complaints", tt.token, tt.body)
			app.ServeHTTP(rec, req)

			if tt.wantCode == http.StatusCreated {
				if rec.Code != tt.wantCode {
					t.Fatalf("failed! code = %v; wantCode %v; body %s", rec.Code, tt.wantCode, rec.Body.String())
				}
				var cpl complaint.Complaint
				if err := json.Unmarshal(rec.Body.Bytes(), &cpl); err != nil {
					t.Fatalf("json.Unmarshal(): %v", err)
				}
				if cpl.ID == "" {
					t.Error("expected a generated complaint ID")
				}
				if cpl.Status != complaint.StatusPending {
					t.Errorf("status = %s; want %s", cpl.Status, complaint.StatusPending)
				}
				if want := tt.extra.(string); cpl.RaisedBy != want {
					t.Errorf("raised_by = %s; want %s", cpl.RaisedBy, want)
				}
				if cpl.StaffUpdates == nil || len(cpl.StaffUpdates) != 0 {
					t.Errorf("staff_updates = %v; want empty slice", cpl.StaffUpdates)
				}
				return
			}
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_complaintApi_createWithImage(t *testing.T) {
	resetDB()

	student := testutil.CreateUser(t, usrRepo, "Jo Eyo", "jo@test.cd", "Hostel", user.RoleStudent, "password1")

	multipartBody := func(t *testing.T, fields map[string]string) (*bytes.Buffer, string) {
		var buf bytes.Buffer
		w := multipart.NewWriter(&buf)
		for k, v := range fields {
			if err := w.WriteField(k, v); err != nil {
				t.Fatalf("WriteField(): %v", err)
			}
		}
		fw, err := w.CreateFormFile("image", "tap.png")
		if err != nil {
			t.Fatalf("CreateFormFile(): %v", err)
		}
		if _, err = fw.Write([]byte("png-bytes")); err != nil {
			t.Fatalf("Write(): %v", err)
		}
		if err = w.Close(); err != nil {
			t.Fatalf("Close(): %v", err)
		}
		return &buf, w.FormDataContentType()
	}

	storedFiles := func(t *testing.T) int {
		entries, err := os.ReadDir(conf.Uploads.Dir)
		if err != nil {
			t.Fatalf("os.ReadDir(): %v", err)
		}
		return len(entries)
	}

	doMultipart := func(t *testing.T, fields map[string]string) *httptest.ResponseRecorder {
		body, contentType := multipartBody(t, fields)
		req := httptest.NewRequest(http.MethodPost, "/v1/complaints", body)
		req.Header.Set("Content-Type", contentType)
		req.Header.Set("Authorization", "Bearer "+getToken(t, student))
		rec := httptest.NewRecorder()
		app.ServeHTTP(rec, req)
		return rec
	}

	t.Run("rejected payload stores no file", func(t *testing.T) {
		before := storedFiles(t)

		rec := doMultipart(t, map[string]string{"title": "Leaky tap"})
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("code = %v; want %v; body %s", rec.Code, http.StatusBadRequest, rec.Body.String())
		}
		if after := storedFiles(t); after != before {
			t.Errorf("stored files = %d; want %d; rejected payloads must not keep their upload", after, before)
		}
	})

	t.Run("accepted payload stores the file", func(t *testing.T) {
		before := storedFiles(t)

		rec := doMultipart(t, map[string]string{
			"title":       "Leaky tap",
			"description": "The tap leaks.",
			"category":    "Plumbing",
			"due_in_days": "2",
		})
		if rec.Code != http.StatusCreated {
			t.Fatalf("code = %v; want %v; body %s", rec.Code, http.StatusCreated, rec.Body.String())
		}
		var cpl complaint.Complaint
		if err := json.Unmarshal(rec.Body.Bytes(), &cpl); err != nil {
			t.Fatalf("json.Unmarshal(): %v", err)
		}
		if !strings.HasPrefix(cpl.ImageURL, conf.Uploads.BaseURL+"/") {
			t.Errorf("image_url = %q; want it under %s/", cpl.ImageURL, conf.Uploads.BaseURL)
		}
		if after := storedFiles(t); after != before+1 {
			t.Errorf("stored files = %d; want %d", after, before+1)
		}
	})
}

func Test_complaintApi_queryOwned(t *testing.T) {
	resetDB()

	student := testutil.CreateUser(t, usrRepo, "Jo Eyo", "jo@test.cd", "Hostel", user.RoleStudent, "password1")
	other := testutil.CreateUser(t, usrRepo, "Lia Eyo", "lia@test.cd", "Hostel", user.RoleStudent, "password1")

	cpl1 := testutil.CreateComplaint(t, cplRepo, "Leaky tap", "Plumbing", complaint.StatusPending, student.ID, "", 2)
	cpl2 := testutil.CreateComplaint(t, cplRepo, "Broken bulb", "Electrical", complaint.StatusPending, student.ID, "", 1)
	testutil.CreateComplaint(t, cplRepo, "Noisy fan", "Electrical", complaint.StatusPending, other.ID, "", 3)

	tests := []httpTest{
		{name: "Auth required", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		// newest first
		{name: "own complaints only", token: getToken(t, student), wantCode: http.StatusOK, wantData: marchallList(t, cpl2, cpl1)},
		{name: "no complaints", token: getAdminToken(t), wantCode: http.StatusOK, wantData: marchallObj(t, []complaint.Complaint{})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodGet, "/v1/complaints/my", tt.token)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_complaintApi_queryAssigned(t *testing.T) {
	resetDB()

	student := testutil.CreateUser(t, usrRepo, "Jo Eyo", "jo@test.cd", "Hostel", user.RoleStudent, "password1")
	staff := testutil.CreateUser(t, usrRepo, "Mo Ngoy", "mo@test.cd", "Maintenance", user.RoleStaff, "password2")

	cpl1 := testutil.CreateComplaint(t, cplRepo, "Leaky tap", "Plumbing", complaint.StatusInProgress, student.ID, staff.ID, 2)
	cpl2 := testutil.CreateComplaint(t, cplRepo, "Broken bulb", "Electrical", complaint.StatusInProgress, student.ID, staff.ID, 1)
	testutil.CreateComplaint(t, cplRepo, "Noisy fan", "Electrical", complaint.StatusPending, student.ID, "", 3)

	tests := []httpTest{
		{name: "Auth required", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "Staff required", token: getToken(t, student), wantCode: http.StatusForbidden, wantData: marchallObj(t, errPermissionDenied)},
		{name: "assigned complaints", token: getToken(t, staff), wantCode: http.StatusOK, wantData: marchallList(t, cpl2, cpl1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodGet, "/v1/complaints/assigned", tt.token)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_complaintApi_retrieve(t *testing.T) {
	resetDB()

	student := testutil.CreateUser(t, usrRepo, "Jo Eyo", "jo@test.cd", "Hostel", user.RoleStudent, "password1")
	other := testutil.CreateUser(t, usrRepo, "Lia Eyo", "lia@test.cd", "Hostel", user.RoleStudent, "password1")
	staff := testutil.CreateUser(t, usrRepo, "Mo Ngoy", "mo@test.cd", "Maintenance", user.RoleStaff, "password2")
	otherStaff := testutil.CreateUser(t, usrRepo, "Didi Kal", "didi@test.cd", "Cafeteria", user.RoleStaff, "password3")

	cpl := testutil.CreateComplaint(t, cplRepo, "Leaky tap", "Plumbing", complaint.StatusInProgress, student.ID, staff.ID, 2)

	tests := []httpTest{
		{name: "Auth required", path: "/v1/complaints/" + cpl.ID, wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "Not found", path: "/v1/complaints/nope", token: getToken(t, student), wantCode: http.StatusNotFound, wantData: marchallObj(t, errNotFound)},
		{
			name: "other student denied", path: "/v1/complaints/" + cpl.ID, token: getToken(t, other),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, errPermissionDenied),
		},
		{
			name: "unassigned staff denied", path: "/v1/complaints/" + cpl.ID, token: getToken(t, otherStaff),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, errPermissionDenied),
		},
		{name: "owner", path: "/v1/complaints/" + cpl.ID, token: getToken(t, student), wantCode: http.StatusOK, wantData: marchallObj(t, cpl)},
		{name: "assignee", path: "/v1/complaints/" + cpl.ID, token: getToken(t, staff), wantCode: http.StatusOK, wantData: marchallObj(t, cpl)},
		{name: "admin", path: "/v1/complaints/" + cpl.ID, token: getAdminToken(t), wantCode: http.StatusOK, wantData: marchallObj(t, cpl)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodGet, tt.path, tt.token)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_complaintApi_triage(t *testing.T) {
	resetDB()

	student := testutil.CreateUser(t, usrRepo, "Jo Eyo", "jo@test.cd", "Hostel", user.RoleStudent, "password1")
	staff := testutil.CreateUser(t, usrRepo, "Mo Ngoy", "mo@test.cd", "Maintenance", user.RoleStaff, "password2")
	studentSummary := student.Summary()
	staffSummary := staff.Summary()

	// retrieval is newest first; pending/in-progress buckets re-sort by urgency
	pendSlow := testutil.CreateComplaint(t, cplRepo, "Cracked window", "Carpentry", complaint.StatusPending, student.ID, "", 3)
	pendFast := testutil.CreateComplaint(t, cplRepo, "Leaky tap", "Plumbing", complaint.StatusPending, student.ID, "", 1)
	pendMid := testutil.CreateComplaint(t, cplRepo, "Stuck door", "Carpentry", complaint.StatusPending, student.ID, "", 2)
	prog := testutil.CreateComplaint(t, cplRepo, "Broken bulb", "Electrical", complaint.StatusInProgress, student.ID, staff.ID, 2)
	done := testutil.CreateComplaint(t, cplRepo, "Noisy fan", "Electrical", complaint.StatusResolved, student.ID, staff.ID, 2)

	wantTriage := complaint.Triage{
		Pending: []complaint.Info{
			{Complaint: pendFast, RaisedByUser: &studentSummary},
			{Complaint: pendMid, RaisedByUser: &studentSummary},
			{Complaint: pendSlow, RaisedByUser: &studentSummary},
		},
		InProgress: []complaint.Info{
			{Complaint: prog, RaisedByUser: &studentSummary, AssignedToUser: &staffSummary},
		},
		Resolved: []complaint.Info{
			{Complaint: done, RaisedByUser: &studentSummary, AssignedToUser: &staffSummary},
		},
	}

	tests := []httpTest{
		{name: "Auth required", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "Admin required", token: getToken(t, student), wantCode: http.StatusForbidden, wantData: marchallObj(t, errPermissionDenied)},
		{name: "triage buckets ordered by urgency", token: getAdminToken(t), wantCode: http.StatusOK, wantData: marchallObj(t, wantTriage)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodGet, "/v1/complaints", tt.token)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_complaintApi_assign(t *testing.T) {
	resetDB()

	student := testutil.CreateUser(t, usrRepo, "Jo Eyo", "jo@test.cd", "Hostel", user.RoleStudent, "password1")
	staff := testutil.CreateUser(t, usrRepo, "Mo Ngoy", "mo@test.cd", "Maintenance", user.RoleStaff, "password2")

	cpl := testutil.CreateComplaint(t, cplRepo, "Leaky tap", "Plumbing", complaint.StatusPending, student.ID, "", 2)
	done := testutil.CreateComplaint(t, cplRepo, "Noisy fan", "Electrical", complaint.StatusResolved, student.ID, "", 3)

	payload := func(staffID string) []byte {
		return marchallObj(t, complaint.AssignComplaint{StaffID: staffID})
	}
	errInvalidStaff := marchallObj(t, map[string]string{"staff_id": "invalid staff member selected"})

	tests := []httpTest{
		{name: "Auth required", path: "/v1/complaints/" + cpl.ID + "/assign", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "Admin required", path: "/v1/complaints/" + cpl.ID + "/assign", token: getToken(t, staff),
			body: payload(staff.ID), wantCode: http.StatusForbidden, wantData: marchallObj(t, errPermissionDenied),
		},
		{
			name: "missing staff_id", path: "/v1/complaints/" + cpl.ID + "/assign", token: getAdminToken(t),
			body: []byte("{}"), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"staff_id": "this field is required"}),
		},
		{
			name: "unknown staff", path: "/v1/complaints/" + cpl.ID + "/assign", token: getAdminToken(t),
			body: payload("nope"), wantCode: http.StatusBadRequest, wantData: errInvalidStaff,
		},
		{
			name: "student cannot be an assignee", path: "/v1/complaints/" + cpl.ID + "/assign", token: getAdminToken(t),
			body: payload(student.ID), wantCode: http.StatusBadRequest, wantData: errInvalidStaff,
		},
		{
			name: "complaint not found", path: "/v1/complaints/nope/assign", token: getAdminToken(t),
			body: payload(staff.ID), wantCode: http.StatusNotFound, wantData: marchallObj(t, errNotFound),
		},
		{name: "assign ok", path: "/v1/complaints/" + cpl.ID + "/assign", token: getAdminToken(t), body: payload(staff.ID), wantCode: http.StatusOK, extra: 1},
		// assignment bypasses the status flow: a resolved complaint is reopened
		{name: "assigning a resolved complaint reopens it", path: "/v1/complaints/" + done.ID + "/assign", token: getAdminToken(t), body: payload(staff.ID), wantCode: http.StatusOK, extra: 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodPut, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)

			if tt.wantCode == http.StatusOK {
				if rec.Code != tt.wantCode {
					t.Fatalf("failed! code = %v; wantCode %v; body %s", rec.Code, tt.wantCode, rec.Body.String())
				}
				var got complaint.Complaint
				if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
					t.Fatalf("json.Unmarshal(): %v", err)
				}
				if got.AssignedTo != staff.ID {
					t.Errorf("assigned_to = %s; want %s", got.AssignedTo, staff.ID)
				}
				if got.Status != complaint.StatusInProgress {
					t.Errorf("status = %s; want %s", got.Status, complaint.StatusInProgress)
				}

				// the assignee is notified
				msgs := emailsvc.GetSentMessages()
				if want := tt.extra.(int); len(msgs) != want {
					t.Fatalf("sent messages = %d; want %d", len(msgs), want)
				}
				last := msgs[len(msgs)-1]
				if to := last.To[0].Address; to != staff.Email {
					t.Errorf("notification to = %s; want %s", to, staff.Email)
				}
				if last.Subject != "New Complaint Assigned to You" {
					t.Errorf("notification subject = %q", last.Subject)
				}
				return
			}
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_complaintApi_updateStatus(t *testing.T) {
	resetDB()

	student := testutil.CreateUser(t, usrRepo, "Jo Eyo", "jo@test.cd", "Hostel", user.RoleStudent, "password1")
	staff := testutil.CreateUser(t, usrRepo, "Mo Ngoy", "mo@test.cd", "Maintenance", user.RoleStaff, "password2")

	pending := testutil.CreateComplaint(t, cplRepo, "Leaky tap", "Plumbing", complaint.StatusPending, student.ID, "", 2)
	inProgress := testutil.CreateComplaint(t, cplRepo, "Broken bulb", "Electrical", complaint.StatusInProgress, student.ID, staff.ID, 1)
	resolved := testutil.CreateComplaint(t, cplRepo, "Noisy fan", "Electrical", complaint.StatusResolved, student.ID, staff.ID, 3)

	payload := func(status, notes string) []byte {
		return marchallObj(t, complaint.StatusUpdate{Status: status, ResolutionNotes: notes})
	}
	transitionErr := func(from, to string) []byte {
		return marchallObj(t, map[string]string{"status": fmt.Sprintf("cannot move a %s complaint to %s", from, to)})
	}

	tests := []httpTest{
		{name: "Auth required", path: "/v1/complaints/" + pending.ID + "/status", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "Admin required", path: "/v1/complaints/" + pending.ID + "/status", token: getToken(t, staff),
			body: payload(complaint.StatusInProgress, ""), wantCode: http.StatusForbidden, wantData: marchallObj(t, errPermissionDenied),
		},
		{
			name: "unknown status", path: "/v1/complaints/" + pending.ID + "/status", token: getAdminToken(t),
			body: payload("done", ""), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"status": "invalid status"}),
		},
		{
			name: "pending cannot skip to resolved", path: "/v1/complaints/" + pending.ID + "/status", token: getAdminToken(t),
			body: payload(complaint.StatusResolved, ""), wantCode: http.StatusBadRequest,
			wantData: transitionErr(complaint.StatusPending, complaint.StatusResolved),
		},
		{
			name: "resolved cannot reopen", path: "/v1/complaints/" + resolved.ID + "/status", token: getAdminToken(t),
			body: payload(complaint.StatusPending, ""), wantCode: http.StatusBadRequest,
			wantData: transitionErr(complaint.StatusResolved, complaint.StatusPending),
		},
		{
			name: "in-progress cannot go back", path: "/v1/complaints/" + inProgress.ID + "/status", token: getAdminToken(t),
			body: payload(complaint.StatusPending, ""), wantCode: http.StatusBadRequest,
			wantData: transitionErr(complaint.StatusInProgress, complaint.StatusPending),
		},
		{
			name: "complaint not found", path: "/v1/complaints/nope/status", token: getAdminToken(t),
			body: payload(complaint.StatusInProgress, ""), wantCode: http.StatusNotFound, wantData: marchallObj(t, errNotFound),
		},
		{
			name: "resolve ok", path: "/v1/complaints/" + inProgress.ID + "/status", token: getAdminToken(t),
			body: payload(complaint.StatusResolved, "Bulb replaced."), wantCode: http.StatusOK,
			extra: complaint.StatusResolved,
		},
		{
			name: "re-saving resolved does not re-notify", path: "/v1/complaints/" + inProgress.ID + "/status", token: getAdminToken(t),
			body: payload(complaint.StatusResolved, "Bulb replaced, again."), wantCode: http.StatusOK,
			extra: complaint.StatusResolved,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodPut, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)

			if tt.wantCode == http.StatusOK {
				if rec.Code != tt.wantCode {
					t.Fatalf("failed! code = %v; wantCode %v; body %s", rec.Code, tt.wantCode, rec.Body.String())
				}
				var got complaint.Complaint
				if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
					t.Fatalf("json.Unmarshal(): %v", err)
				}
				if want := tt.extra.(string); got.Status != want {
					t.Errorf("status = %s; want %s", got.Status, want)
				}

				// the owner is notified once, on the first resolution only
				msgs := emailsvc.GetSentMessages()
				if len(msgs) != 1 {
					t.Fatalf("sent messages = %d; want 1", len(msgs))
				}
				if to := msgs[0].To[0].Address; to != student.Email {
					t.Errorf("notification to = %s; want %s", to, student.Email)
				}
				return
			}
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_complaintApi_addStaffUpdate(t *testing.T) {
	resetDB()

	student := testutil.CreateUser(t, usrRepo, "Jo Eyo", "jo@test.cd", "Hostel", user.RoleStudent, "password1")
	staff := testutil.CreateUser(t, usrRepo, "Mo Ngoy", "mo@test.cd", "Maintenance", user.RoleStaff, "password2")
	otherStaff := testutil.CreateUser(t, usrRepo, "Didi Kal", "didi@test.cd", "Cafeteria", user.RoleStaff, "password3")

	cpl := testutil.CreateComplaint(t, cplRepo, "Leaky tap", "Plumbing", complaint.StatusInProgress, student.ID, staff.ID, 2)

	payload := func(remarks string) []byte {
		return marchallObj(t, complaint.NewStaffUpdate{Remarks: remarks})
	}

	tests := []httpTest{
		{name: "Auth required", path: "/v1/complaints/" + cpl.ID + "/staff-update", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "Staff required", path: "/v1/complaints/" + cpl.ID + "/staff-update", token: getToken(t, student),
			body: payload("On it."), wantCode: http.StatusForbidden, wantData: marchallObj(t, errPermissionDenied),
		},
		{
			name: "assignee required", path: "/v1/complaints/" + cpl.ID + "/staff-update", token: getToken(t, otherStaff),
			body: payload("On it."), wantCode: http.StatusForbidden, wantData: marchallObj(t, errPermissionDenied),
		},
		{
			name: "missing remarks", path: "/v1/complaints/" + cpl.ID + "/staff-update", token: getToken(t, staff),
			body: []byte("{}"), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"remarks": "this field is required"}),
		},
		{
			name: "complaint not found", path: "/v1/complaints/nope/staff-update", token: getToken(t, staff),
			body: payload("On it."), wantCode: http.StatusNotFound, wantData: marchallObj(t, errNotFound),
		},
		{name: "first update", path: "/v1/complaints/" + cpl.ID + "/staff-update", token: getToken(t, staff), body: payload("On it."), wantCode: http.StatusOK, extra: 1},
		{name: "second update appends", path: "/v1/complaints/" + cpl.ID + "/staff-update", token: getToken(t, staff), body: payload("Parts ordered."), wantCode: http.StatusOK, extra: 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodPost, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)

			if tt.wantCode == http.StatusOK {
				if rec.Code != tt.wantCode {
					t.Fatalf("failed! code = %v; wantCode %v; body %s", rec.Code, tt.wantCode, rec.Body.String())
				}
				var got complaint.Complaint
				if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
					t.Fatalf("json.Unmarshal(): %v", err)
				}
				if want := tt.extra.(int); len(got.StaffUpdates) != want {
					t.Fatalf("staff updates = %d; want %d", len(got.StaffUpdates), want)
				}
				if got.Status != complaint.StatusInProgress {
					t.Errorf("status = %s; progress notes must not change it", got.Status)
				}
				return
			}
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_complaintApi_stats(t *testing.T) {
	resetDB()

	t.Run("no data falls back to the default response time", func(t *testing.T) {
		tt := httpTest{wantCode: http.StatusOK, wantData: marchallObj(t, complaint.Stats{Total: 0, Resolved: 0, AvgResponseTime: 24})}
		req, rec := newRequest(http.MethodGet, "/v1/complaints/stats")
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, tt, rec)
	})

	student := testutil.CreateUser(t, usrRepo, "Jo Eyo", "jo@test.cd", "Hostel", user.RoleStudent, "password1")
	staff := testutil.CreateUser(t, usrRepo, "Mo Ngoy", "mo@test.cd", "Maintenance", user.RoleStaff, "password2")

	now := time.Now().UTC()

	// resolved 2h after the first staff update: avg response = 2h
	done1 := testutil.CreateComplaint(t, cplRepo, "Leaky tap", "Plumbing", complaint.StatusResolved, student.ID, staff.ID, 2, now.Add(-8*time.Hour))
	testutil.AddStaffUpdate(t, cplRepo, done1, "On it.", now.Add(-6*time.Hour))

	// second resolved complaint responded to in 4h: avg = (2+4)/2 = 3
	done2 := testutil.CreateComplaint(t, cplRepo, "Broken bulb", "Electrical", complaint.StatusResolved, student.ID, staff.ID, 1, now.Add(-8*time.Hour))
	testutil.AddStaffUpdate(t, cplRepo, done2, "Ordering parts.", now.Add(-4*time.Hour))

	// resolved without staff updates counts as resolved but not in the average
	testutil.CreateComplaint(t, cplRepo, "Noisy fan", "Electrical", complaint.StatusResolved, student.ID, staff.ID, 3)

	// open complaints only count toward the total
	testutil.CreateComplaint(t, cplRepo, "Cracked window", "Carpentry", complaint.StatusPending, student.ID, "", 1)

	t.Run("computed average in whole hours", func(t *testing.T) {
		tt := httpTest{wantCode: http.StatusOK, wantData: marchallObj(t, complaint.Stats{Total: 4, Resolved: 3, AvgResponseTime: 3})}
		req, rec := newRequest(http.MethodGet, "/v1/complaints/stats")
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, tt, rec)
	})
}
