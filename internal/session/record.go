// Package session resolves the caller's identity from a priority-ordered set
// of sources: the live auth session, the durable session record in Postgres,
// and the fast session record cache in Redis. The durable copy survives
// cache eviction; the fast copy is repaired from it on the way through.
package session

import (
	"strings"

	"github.com/minimartapp/minimart-backend/pkg/db/models"
)

// Record is the cached summary of a caller's identity and role.
type Record struct {
	UserEmail    string `json:"user_email"`
	UserID       string `json:"user_id"`
	UserRole     string `json:"user_role"`
	StoreID      string `json:"store_id"`
	StoreName    string `json:"store_name"`
	AdminName    string `json:"admin_name"`
	UserFullName string `json:"user_full_name"`
}

// CallerKey derives the lookup key for a caller's session record. Keys are
// email-based so invited members and primary-auth users share one shape.
func CallerKey(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Complete reports whether the record carries the two fields every resolution
// path requires. Records missing either are treated as absent.
func (r *Record) Complete() bool {
	return r != nil && r.UserEmail != "" && r.UserID != ""
}

// Key returns the caller key the record is stored under.
func (r *Record) Key() string {
	return CallerKey(r.UserEmail)
}

// ToModel converts the record into its durable row form.
func (r *Record) ToModel() *models.SessionRecord {
	if r == nil {
		return nil
	}
	return &models.SessionRecord{
		CallerKey:    r.Key(),
		UserEmail:    r.UserEmail,
		UserID:       r.UserID,
		UserRole:     r.UserRole,
		StoreID:      r.StoreID,
		StoreName:    r.StoreName,
		AdminName:    r.AdminName,
		UserFullName: r.UserFullName,
	}
}

// RecordFromModel converts a durable row back into a record.
func RecordFromModel(m *models.SessionRecord) *Record {
	if m == nil {
		return nil
	}
	return &Record{
		UserEmail:    m.UserEmail,
		UserID:       m.UserID,
		UserRole:     m.UserRole,
		StoreID:      m.StoreID,
		StoreName:    m.StoreName,
		AdminName:    m.AdminName,
		UserFullName: m.UserFullName,
	}
}
