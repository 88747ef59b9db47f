package inmemory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/campusgrid/forum-service/internal/domain"
	"github.com/campusgrid/forum-service/internal/storage"
	"github.com/google/uuid"
)

// Store implements storage.Storage in memory. The single mutex gives every
// mutation the same all-or-nothing visibility the relational backend gets from
// transactions, so the aggregate counters obey the same invariants.
type Store struct {
	mu        sync.RWMutex
	questions map[string]*domain.Question
	replies   map[string]*domain.Reply
	likes     map[string]map[string]time.Time // map[replyID]map[userID]likedAt
	messages  map[string]*domain.AlumniMessage
	reports   map[string]*domain.Report
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		questions: make(map[string]*domain.Question),
		replies:   make(map[string]*domain.Reply),
		likes:     make(map[string]map[string]time.Time),
		messages:  make(map[string]*domain.AlumniMessage),
		reports:   make(map[string]*domain.Report),
	}
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

// likerIDs returns the user ids liking a reply, oldest like first.
// Callers must hold at least the read lock.
func (s *Store) likerIDs(replyID string) []string {
	set := s.likes[replyID]
	ids := make([]string, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		if !set[ids[i]].Equal(set[ids[j]]) {
			return set[ids[i]].Before(set[ids[j]])
		}
		return ids[i] < ids[j]
	})
	return ids
}

// snapshotReply copies a reply together with its liker set so callers never
// observe later mutations. Callers must hold at least the read lock.
func (s *Store) snapshotReply(r *domain.Reply) *domain.Reply {
	cp := *r
	cp.LikedBy = s.likerIDs(r.ID)
	return &cp
}

// === Questions ===

func (s *Store) CreateQuestion(ctx context.Context, q *domain.Question) (*domain.Question, error) {
	if strings.TrimSpace(q.Title) == "" {
		return nil, fmt.Errorf("%w: title cannot be empty", domain.ErrInvalidInput)
	}
	if err := validateContent(q.Content, 10000); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	q.ID = uuid.NewString()
	q.CreatedAt = time.Now().UTC()
	q.RepliesCount = 0
	s.questions[q.ID] = q
	cp := *q
	return &cp, nil
}

func (s *Store) GetQuestionByID(ctx context.Context, id string) (*domain.Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	q, ok := s.questions[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *q
	return &cp, nil
}

func (s *Store) ListQuestions(ctx context.Context, universityID string, args storage.PaginationArgs) ([]*domain.Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := make([]*domain.Question, 0, len(s.questions))
	for _, q := range s.questions {
		if universityID != "" && q.UniversityID != universityID {
			continue
		}
		cp := *q
		all = append(all, &cp)
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})
	return paginate(all, args), nil
}

func paginate[T any](items []T, args storage.PaginationArgs) []T {
	if args.Limit <= 0 {
		return items
	}
	start := args.Offset
	if start >= len(items) {
		return []T{}
	}
	end := start + args.Limit
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}

func (s *Store) DeleteQuestion(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.questions[id]; !ok {
		return domain.ErrNotFound
	}
	for rid, r := range s.replies {
		if r.QuestionID == id {
			delete(s.replies, rid)
			delete(s.likes, rid)
		}
	}
	delete(s.questions, id)
	return nil
}

// === Replies ===

func (s *Store) CreateReply(ctx context.Context, r *domain.Reply) (*domain.Reply, error) {
	if err := validateContent(r.Content, 2000); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	q, ok := s.questions[r.QuestionID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if r.ParentID != nil {
		parent, ok := s.replies[*r.ParentID]
		if !ok || parent.QuestionID != r.QuestionID {
			return nil, fmt.Errorf("parent reply: %w", domain.ErrNotFound)
		}
	}

	r.ID = uuid.NewString()
	r.CreatedAt = time.Now().UTC()
	r.LikesCount = 0
	s.replies[r.ID] = r

	// Same atomic unit as the insert: the fact row and the aggregate move
	// together under the lock.
	q.RepliesCount++

	return s.snapshotReply(r), nil
}

func (s *Store) GetReplyByID(ctx context.Context, id string) (*domain.Reply, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.replies[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return s.snapshotReply(r), nil
}

func (s *Store) ListReplies(ctx context.Context, questionID string) ([]*domain.Reply, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	replies := make([]*domain.Reply, 0)
	for _, r := range s.replies {
		if r.QuestionID == questionID {
			replies = append(replies, s.snapshotReply(r))
		}
	}
	sort.Slice(replies, func(i, j int) bool {
		if !replies[i].CreatedAt.Equal(replies[j].CreatedAt) {
			return replies[i].CreatedAt.Before(replies[j].CreatedAt)
		}
		return replies[i].ID < replies[j].ID
	})
	return replies, nil
}

func (s *Store) DeleteReply(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	root, ok := s.replies[id]
	if !ok {
		return domain.ErrNotFound
	}

	// Collect the thread below the reply level by level.
	doomed := map[string]bool{root.ID: true}
	frontier := []string{root.ID}
	for len(frontier) > 0 {
		var next []string
		for rid, r := range s.replies {
			if r.ParentID == nil || doomed[rid] {
				continue
			}
			for _, fid := range frontier {
				if *r.ParentID == fid {
					doomed[rid] = true
					next = append(next, rid)
					break
				}
			}
		}
		frontier = next
	}

	for rid := range doomed {
		delete(s.replies, rid)
		delete(s.likes, rid)
	}
	return nil
}

func (s *Store) RecountReplies(ctx context.Context, questionID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	q, ok := s.questions[questionID]
	if !ok {
		return 0, domain.ErrNotFound
	}
	var count int64
	for _, r := range s.replies {
		if r.QuestionID == questionID {
			count++
		}
	}
	q.RepliesCount = count
	return count, nil
}

// === Likes ===

func (s *Store) ToggleReplyLike(ctx context.Context, replyID, userID string) (*domain.Reply, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.replies[replyID]
	if !ok {
		return nil, domain.ErrNotFound
	}

	set := s.likes[replyID]
	if _, liked := set[userID]; liked {
		delete(set, userID)
		r.LikesCount--
	} else {
		if set == nil {
			set = make(map[string]time.Time)
			s.likes[replyID] = set
		}
		set[userID] = time.Now().UTC()
		r.LikesCount++
	}
	return s.snapshotReply(r), nil
}

// === Alumni messages ===

func (s *Store) CreateAlumniMessage(ctx context.Context, m *domain.AlumniMessage) (*domain.AlumniMessage, error) {
	if err := validateContent(m.Content, 2000); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	m.ID = uuid.NewString()
	m.CreatedAt = time.Now().UTC()
	s.messages[m.ID] = m
	cp := *m
	return &cp, nil
}

func (s *Store) GetAlumniMessageByID(ctx context.Context, id string) (*domain.AlumniMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.messages[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *m
	return &cp, nil
}

func (s *Store) ListAlumniMessages(ctx context.Context, universityID string, args storage.PaginationArgs) ([]*domain.AlumniMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := make([]*domain.AlumniMessage, 0, len(s.messages))
	for _, m := range s.messages {
		if universityID != "" && m.UniversityID != universityID {
			continue
		}
		cp := *m
		all = append(all, &cp)
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})
	return paginate(all, args), nil
}

func (s *Store) DeleteAlumniMessage(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.messages[id]; !ok {
		return domain.ErrNotFound
	}
	delete(s.messages, id)
	return nil
}

// === Reports ===

func (s *Store) CreateReport(ctx context.Context, r *domain.Report) (*domain.Report, error) {
	if strings.TrimSpace(r.Reason) == "" {
		return nil, fmt.Errorf("%w: reason cannot be empty", domain.ErrInvalidInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	r.ID = uuid.NewString()
	r.CreatedAt = time.Now().UTC()
	r.Status = domain.ReportStatusOpen
	s.reports[r.ID] = r
	cp := *r
	return &cp, nil
}

func (s *Store) ListReports(ctx context.Context, status string, args storage.PaginationArgs) ([]*domain.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := make([]*domain.Report, 0, len(s.reports))
	for _, r := range s.reports {
		if status != "" && r.Status != status {
			continue
		}
		cp := *r
		all = append(all, &cp)
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})
	return paginate(all, args), nil
}

func (s *Store) SetReportStatus(ctx context.Context, id, status string) (*domain.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.reports[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	r.Status = status
	cp := *r
	return &cp, nil
}
