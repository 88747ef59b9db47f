package storage

import (
	"context"

	"github.com/campusgrid/forum-service/internal/domain"
)

// PaginationArgs bounds list queries.
type PaginationArgs struct {
	Limit  int
	Offset int
}

// Storage is the contract both backends implement. Every mutation that touches
// a fact row together with an aggregate counter commits as one atomic unit;
// callers never see one without the other.
type Storage interface {
	// Questions.
	CreateQuestion(ctx context.Context, q *domain.Question) (*domain.Question, error)
	GetQuestionByID(ctx context.Context, id string) (*domain.Question, error)
	ListQuestions(ctx context.Context, universityID string, args PaginationArgs) ([]*domain.Question, error)
	// DeleteQuestion cascades to the question's replies and their likes.
	DeleteQuestion(ctx context.Context, id string) error

	// Replies. CreateReply inserts the row and bumps the question's
	// RepliesCount in the same transaction, as a relative delta.
	CreateReply(ctx context.Context, r *domain.Reply) (*domain.Reply, error)
	GetReplyByID(ctx context.Context, id string) (*domain.Reply, error)
	ListReplies(ctx context.Context, questionID string) ([]*domain.Reply, error)
	DeleteReply(ctx context.Context, id string) error

	// RecountReplies recomputes RepliesCount from the remaining reply rows and
	// overwrites the stored value, returning the new count. It self-heals any
	// drift, so callers run it after deletions rather than decrementing.
	RecountReplies(ctx context.Context, questionID string) (int64, error)

	// ToggleReplyLike creates the (reply, user) like fact if absent or deletes
	// it if present, adjusting LikesCount by exactly ±1 atomically. The
	// refreshed reply is returned with LikedBy populated. A concurrent
	// duplicate create is reconciled internally, never surfaced.
	ToggleReplyLike(ctx context.Context, replyID, userID string) (*domain.Reply, error)

	// Alumni messages.
	CreateAlumniMessage(ctx context.Context, m *domain.AlumniMessage) (*domain.AlumniMessage, error)
	GetAlumniMessageByID(ctx context.Context, id string) (*domain.AlumniMessage, error)
	ListAlumniMessages(ctx context.Context, universityID string, args PaginationArgs) ([]*domain.AlumniMessage, error)
	DeleteAlumniMessage(ctx context.Context, id string) error

	// Moderation reports.
	CreateReport(ctx context.Context, r *domain.Report) (*domain.Report, error)
	ListReports(ctx context.Context, status string, args PaginationArgs) ([]*domain.Report, error)
	SetReportStatus(ctx context.Context, id, status string) (*domain.Report, error)
}
