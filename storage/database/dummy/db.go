// Package dummydb provides in-memory repositories backing the test suite and
// local development without a running postgres.
package dummydb

import (
	"sync"

	"github.com/trezcool/lalamika/core/complaint"
	"github.com/trezcool/lalamika/core/feedback"
	"github.com/trezcool/lalamika/core/user"
)

type (
	DB struct {
		user      *userTable
		complaint *complaintTable
		feedback  *feedbackTable
	}

	// tables keep insertion order; newest-first queries iterate backwards.
	userTable struct {
		sync.RWMutex
		rows []*user.User
		byID map[string]*user.User
	}

	complaintTable struct {
		sync.RWMutex
		rows []*complaint.Complaint
		byID map[string]*complaint.Complaint
	}

	feedbackTable struct {
		sync.RWMutex
		rows []*feedback.Feedback
		byID map[string]*feedback.Feedback
	}
)

func Open() (*DB, error) {
	db := &DB{}
	db.Reset()
	return db, nil
}

// Reset drops all rows; used between tests.
func (db *DB) Reset() {
	db.user = &userTable{byID: make(map[string]*user.User)}
	db.complaint = &complaintTable{byID: make(map[string]*complaint.Complaint)}
	db.feedback = &feedbackTable{byID: make(map[string]*feedback.Feedback)}
}
