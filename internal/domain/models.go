package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Role is the privilege level carried by a verified identity.
type Role string

const (
	RoleStudent Role = "student"
	RoleAlumni  Role = "alumni"
	RoleAdmin   Role = "admin"
)

// Identity is the authenticated actor attached to a request by the auth layer.
type Identity struct {
	UserID string
	Role   Role
}

// IsAdmin reports whether the identity holds elevated privilege.
func (id Identity) IsAdmin() bool { return id.Role == RoleAdmin }

// Question is a student question scoped to a university. RepliesCount is a
// denormalized aggregate and must always equal the number of live Reply rows
// referencing the question; it is only ever mutated by the storage layer.
type Question struct {
	ID           string    `json:"id" gorm:"type:uuid;primaryKey"`
	UniversityID string    `json:"universityId" gorm:"type:varchar(64);not null;index"`
	AuthorID     string    `json:"authorId" gorm:"type:varchar(64);not null;index"`
	Title        string    `json:"title" gorm:"type:varchar(255);not null"`
	Content      string    `json:"content" gorm:"type:text;not null"`
	RepliesCount int64     `json:"repliesCount" gorm:"not null;default:0"`
	CreatedAt    time.Time `json:"createdAt" gorm:"not null"`
	Replies      []*Reply  `json:"-" gorm:"foreignKey:QuestionID"` // gorm only
}

// Reply is a threaded answer under a question. It is both a fact (counted by
// Question.RepliesCount) and a subject (LikesCount counts its ReplyLike rows).
type Reply struct {
	ID         string    `json:"id" gorm:"type:uuid;primaryKey"`
	QuestionID string    `json:"questionId" gorm:"type:uuid;not null;index"`
	ParentID   *string   `json:"parentId,omitempty" gorm:"type:uuid;index"`
	AuthorID   string    `json:"authorId" gorm:"type:varchar(64);not null"`
	Content    string    `json:"content" gorm:"type:varchar(2000);not null"`
	LikesCount int64     `json:"likesCount" gorm:"not null;default:0"`
	CreatedAt  time.Time `json:"createdAt" gorm:"not null"`

	// LikedBy is populated on reads that return a refreshed reply; it is not a
	// persisted column.
	LikedBy []string `json:"likedBy,omitempty" gorm:"-"`
}

// ReplyLike is one actor's like on one reply. The composite unique index is
// what turns a concurrent duplicate toggle into a detectable, benign conflict.
type ReplyLike struct {
	ID        uint      `json:"id" gorm:"primaryKey;autoIncrement"`
	ReplyID   string    `json:"replyId" gorm:"type:uuid;not null;uniqueIndex:uk_reply_user,priority:1"`
	UserID    string    `json:"userId" gorm:"type:varchar(64);not null;uniqueIndex:uk_reply_user,priority:2"`
	CreatedAt time.Time `json:"createdAt" gorm:"not null"`
}

// AlumniMessage is a standalone message from an alumnus on a university feed.
type AlumniMessage struct {
	ID           string    `json:"id" gorm:"type:uuid;primaryKey"`
	UniversityID string    `json:"universityId" gorm:"type:varchar(64);not null;index"`
	AuthorID     string    `json:"authorId" gorm:"type:varchar(64);not null"`
	Content      string    `json:"content" gorm:"type:varchar(2000);not null"`
	CreatedAt    time.Time `json:"createdAt" gorm:"not null"`
}

// Report statuses. A report starts open and is moved to resolved or ignored
// by an admin; no other transitions exist.
const (
	ReportStatusOpen     = "open"
	ReportStatusResolved = "resolved"
	ReportStatusIgnored  = "ignored"
)

// Report is a moderation report against a question, reply or alumni message.
type Report struct {
	ID         string    `json:"id" gorm:"type:uuid;primaryKey"`
	TargetType string    `json:"targetType" gorm:"type:varchar(32);not null"`
	TargetID   string    `json:"targetId" gorm:"type:uuid;not null;index"`
	ReporterID string    `json:"reporterId" gorm:"type:varchar(64);not null"`
	Reason     string    `json:"reason" gorm:"type:varchar(1000);not null"`
	Status     string    `json:"status" gorm:"type:varchar(16);not null;default:open"`
	CreatedAt  time.Time `json:"createdAt" gorm:"not null"`
}

// IDs are assigned in BeforeCreate hooks rather than by a database default so
// the same models work against both postgres and sqlite.

func (q *Question) BeforeCreate(tx *gorm.DB) error {
	if q.ID == "" {
		q.ID = uuid.NewString()
	}
	return nil
}

func (r *Reply) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}

func (m *AlumniMessage) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return nil
}

func (r *Report) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}
