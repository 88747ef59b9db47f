package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/campusgrid/forum-service/internal/domain"
	"github.com/campusgrid/forum-service/internal/storage"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// errBenignConflict marks a toggle that lost a same-actor race on the
// (reply_id, user_id) unique index. The transaction is rolled back and the
// committed state of the winner is returned instead.
var errBenignConflict = errors.New("concurrent toggle, reconciled")

// Store implements storage.Storage on a relational database through GORM.
type Store struct {
	db *gorm.DB
}

// New connects to postgres and migrates the schema.
func New(dsn string) (*Store, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		// Unique violations must surface as gorm.ErrDuplicatedKey so the
		// toggle can tell a benign conflict from a real failure.
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return NewWithDB(db)
}

// NewWithDB wraps an already-opened GORM handle. Tests use it with the sqlite
// driver; the transactional semantics are the same.
func NewWithDB(db *gorm.DB) (*Store, error) {
	if err := db.AutoMigrate(
		&domain.Question{},
		&domain.Reply{},
		&domain.ReplyLike{},
		&domain.AlumniMessage{},
		&domain.Report{},
	); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return &Store{db: db}, nil
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.ErrNotFound
	}
	return err
}

func validateContent(content string, max int) error {
	if strings.TrimSpace(content) == "" {
		return fmt.Errorf("%w: content cannot be empty", domain.ErrInvalidInput)
	}
	if len(content) > max {
		return fmt.Errorf("%w: content is too long", domain.ErrInvalidInput)
	}
	return nil
}

// === Questions ===

func (s *Store) CreateQuestion(ctx context.Context, q *domain.Question) (*domain.Question, error) {
	if strings.TrimSpace(q.Title) == "" {
		return nil, fmt.Errorf("%w: title cannot be empty", domain.ErrInvalidInput)
	}
	if err := validateContent(q.Content, 10000); err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Create(q).Error; err != nil {
		return nil, err
	}
	return q, nil
}

func (s *Store) GetQuestionByID(ctx context.Context, id string) (*domain.Question, error) {
	var q domain.Question
	if err := s.db.WithContext(ctx).First(&q, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &q, nil
}

func (s *Store) ListQuestions(ctx context.Context, universityID string, args storage.PaginationArgs) ([]*domain.Question, error) {
	var questions []*domain.Question
	query := s.db.WithContext(ctx).Order("created_at DESC")
	if universityID != "" {
		query = query.Where("university_id = ?", universityID)
	}
	if args.Limit > 0 {
		query = query.Limit(args.Limit).Offset(args.Offset)
	}
	err := query.Find(&questions).Error
	return questions, err
}

// DeleteQuestion removes the question together with all replies under it and
// the likes on those replies, in one transaction.
func (s *Store) DeleteQuestion(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var q domain.Question
		if err := tx.Select("id").First(&q, "id = ?", id).Error; err != nil {
			return notFound(err)
		}

		var replyIDs []string
		if err := tx.Model(&domain.Reply{}).Where("question_id = ?", id).Pluck("id", &replyIDs).Error; err != nil {
			return err
		}
		if len(replyIDs) > 0 {
			if err := tx.Where("reply_id IN ?", replyIDs).Delete(&domain.ReplyLike{}).Error; err != nil {
				return err
			}
			if err := tx.Where("question_id = ?", id).Delete(&domain.Reply{}).Error; err != nil {
				return err
			}
		}
		return tx.Delete(&domain.Question{}, "id = ?", id).Error
	})
}

// === Replies ===

// CreateReply inserts the reply and bumps the question's replies_count in the
// same transaction. The increment is a relative SQL expression, not a value
// computed from a prior read, so concurrent creators cannot lose updates.
func (s *Store) CreateReply(ctx context.Context, r *domain.Reply) (*domain.Reply, error) {
	if err := validateContent(r.Content, 2000); err != nil {
		return nil, err
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var q domain.Question
		if err := tx.Select("id").First(&q, "id = ?", r.QuestionID).Error; err != nil {
			return notFound(err)
		}

		if r.ParentID != nil {
			var parentCount int64
			if err := tx.Model(&domain.Reply{}).
				Where("id = ? AND question_id = ?", *r.ParentID, r.QuestionID).
				Count(&parentCount).Error; err != nil {
				return err
			}
			if parentCount == 0 {
				return fmt.Errorf("parent reply: %w", domain.ErrNotFound)
			}
		}

		if err := tx.Create(r).Error; err != nil {
			return err
		}
		return tx.Model(&domain.Question{}).Where("id = ?", r.QuestionID).
			UpdateColumn("replies_count", gorm.Expr("replies_count + ?", 1)).Error
	})
	if err != nil {
		return nil, err
	}
	return r, nil
}

func (s *Store) GetReplyByID(ctx context.Context, id string) (*domain.Reply, error) {
	var r domain.Reply
	if err := s.db.WithContext(ctx).First(&r, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	if err := s.loadLikers(ctx, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *Store) loadLikers(ctx context.Context, r *domain.Reply) error {
	var likes []domain.ReplyLike
	err := s.db.WithContext(ctx).
		Where("reply_id = ?", r.ID).
		Order("created_at ASC").
		Find(&likes).Error
	if err != nil {
		return err
	}
	r.LikedBy = make([]string, 0, len(likes))
	for _, l := range likes {
		r.LikedBy = append(r.LikedBy, l.UserID)
	}
	return nil
}

// ListReplies returns all replies under a question, oldest first, with the
// liker sets loaded in a single batched query.
func (s *Store) ListReplies(ctx context.Context, questionID string) ([]*domain.Reply, error) {
	var replies []*domain.Reply
	err := s.db.WithContext(ctx).
		Where("question_id = ?", questionID).
		Order("created_at ASC").
		Find(&replies).Error
	if err != nil {
		return nil, err
	}
	if len(replies) == 0 {
		return replies, nil
	}

	ids := make([]string, len(replies))
	for i, r := range replies {
		ids[i] = r.ID
	}
	var likes []domain.ReplyLike
	err = s.db.WithContext(ctx).
		Where("reply_id IN ?", ids).
		Order("reply_id, created_at ASC").
		Find(&likes).Error
	if err != nil {
		return nil, err
	}

	likers := make(map[string][]string, len(replies))
	for _, l := range likes {
		likers[l.ReplyID] = append(likers[l.ReplyID], l.UserID)
	}
	for _, r := range replies {
		r.LikedBy = likers[r.ID]
		if r.LikedBy == nil {
			r.LikedBy = []string{}
		}
	}
	return replies, nil
}

// DeleteReply removes the reply, its descendants and all their likes in one
// transaction. The question's replies_count is NOT adjusted here; the caller
// runs RecountReplies afterwards, which converges the counter exactly.
func (s *Store) DeleteReply(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var r domain.Reply
		if err := tx.Select("id").First(&r, "id = ?", id).Error; err != nil {
			return notFound(err)
		}

		// Walk the thread level by level to collect descendant ids.
		ids := []string{r.ID}
		frontier := []string{r.ID}
		for len(frontier) > 0 {
			var next []string
			if err := tx.Model(&domain.Reply{}).
				Where("parent_id IN ?", frontier).
				Pluck("id", &next).Error; err != nil {
				return err
			}
			ids = append(ids, next...)
			frontier = next
		}

		if err := tx.Where("reply_id IN ?", ids).Delete(&domain.ReplyLike{}).Error; err != nil {
			return err
		}
		return tx.Where("id IN ?", ids).Delete(&domain.Reply{}).Error
	})
}

// RecountReplies recomputes replies_count from the surviving reply rows and
// overwrites the stored value. Counting inside the transaction makes the
// overwrite exact even when deletions race each other.
func (s *Store) RecountReplies(ctx context.Context, questionID string) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var q domain.Question
		if err := tx.Select("id").First(&q, "id = ?", questionID).Error; err != nil {
			return notFound(err)
		}
		if err := tx.Model(&domain.Reply{}).Where("question_id = ?", questionID).Count(&count).Error; err != nil {
			return err
		}
		return tx.Model(&domain.Question{}).Where("id = ?", questionID).
			UpdateColumn("replies_count", count).Error
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}

// === Likes ===

// ToggleReplyLike flips the (reply, user) like fact and adjusts likes_count by
// exactly ±1 in the same transaction. Delete-first: a deleted row means this
// was an unlike. If the insert hits the unique index, a concurrent toggle by
// the same user already created the row; the loser rolls back and returns the
// winner's committed state.
func (s *Store) ToggleReplyLike(ctx context.Context, replyID, userID string) (*domain.Reply, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var exists int64
		if err := tx.Model(&domain.Reply{}).Where("id = ?", replyID).Count(&exists).Error; err != nil {
			return err
		}
		if exists == 0 {
			return domain.ErrNotFound
		}

		res := tx.Where("reply_id = ? AND user_id = ?", replyID, userID).Delete(&domain.ReplyLike{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected > 0 {
			return tx.Model(&domain.Reply{}).Where("id = ?", replyID).
				UpdateColumn("likes_count", gorm.Expr("likes_count - ?", 1)).Error
		}

		if err := tx.Create(&domain.ReplyLike{ReplyID: replyID, UserID: userID}).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return errBenignConflict
			}
			return err
		}
		return tx.Model(&domain.Reply{}).Where("id = ?", replyID).
			UpdateColumn("likes_count", gorm.Expr("likes_count + ?", 1)).Error
	})
	if err != nil && !errors.Is(err, errBenignConflict) {
		return nil, err
	}
	return s.GetReplyByID(ctx, replyID)
}

// === Alumni messages ===

func (s *Store) CreateAlumniMessage(ctx context.Context, m *domain.AlumniMessage) (*domain.AlumniMessage, error) {
	if err := validateContent(m.Content, 2000); err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Create(m).Error; err != nil {
		return nil, err
	}
	return m, nil
}

func (s *Store) GetAlumniMessageByID(ctx context.Context, id string) (*domain.AlumniMessage, error) {
	var m domain.AlumniMessage
	if err := s.db.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &m, nil
}

func (s *Store) ListAlumniMessages(ctx context.Context, universityID string, args storage.PaginationArgs) ([]*domain.AlumniMessage, error) {
	var messages []*domain.AlumniMessage
	query := s.db.WithContext(ctx).Order("created_at DESC")
	if universityID != "" {
		query = query.Where("university_id = ?", universityID)
	}
	if args.Limit > 0 {
		query = query.Limit(args.Limit).Offset(args.Offset)
	}
	err := query.Find(&messages).Error
	return messages, err
}

func (s *Store) DeleteAlumniMessage(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Delete(&domain.AlumniMessage{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// === Reports ===

func (s *Store) CreateReport(ctx context.Context, r *domain.Report) (*domain.Report, error) {
	if strings.TrimSpace(r.Reason) == "" {
		return nil, fmt.Errorf("%w: reason cannot be empty", domain.ErrInvalidInput)
	}
	r.Status = domain.ReportStatusOpen
	if err := s.db.WithContext(ctx).Create(r).Error; err != nil {
		return nil, err
	}
	return r, nil
}

func (s *Store) ListReports(ctx context.Context, status string, args storage.PaginationArgs) ([]*domain.Report, error) {
	var reports []*domain.Report
	query := s.db.WithContext(ctx).Order("created_at DESC")
	if status != "" {
		query = query.Where("status = ?", status)
	}
	if args.Limit > 0 {
		query = query.Limit(args.Limit).Offset(args.Offset)
	}
	err := query.Find(&reports).Error
	return reports, err
}

func (s *Store) SetReportStatus(ctx context.Context, id, status string) (*domain.Report, error) {
	var report domain.Report
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&report, "id = ?", id).Error; err != nil {
			return notFound(err)
		}
		report.Status = status
		return tx.Model(&domain.Report{}).Where("id = ?", id).UpdateColumn("status", status).Error
	})
	if err != nil {
		return nil, err
	}
	return &report, nil
}
