package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/campusgrid/forum-service/internal/auth"
	"github.com/campusgrid/forum-service/internal/domain"
	"github.com/campusgrid/forum-service/internal/events"
	"github.com/campusgrid/forum-service/internal/logger"
	"github.com/campusgrid/forum-service/internal/storage/inmemory"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func newTestHandler(t *testing.T) http.Handler {
	t.Helper()
	store := inmemory.New()
	verifier := auth.NewTokenVerifier(testSecret)
	server := NewServer(store, verifier, events.NewObserver(), logger.NewNop())
	return server.Routes()
}

func bearer(t *testing.T, userID string, role domain.Role) string {
	t.Helper()
	token, err := auth.NewTokenVerifier(testSecret).Mint(domain.Identity{UserID: userID, Role: role}, time.Hour)
	require.NoError(t, err)
	return "Bearer " + token
}

func do(t *testing.T, handler http.Handler, method, path, authz string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if authz != "" {
		req.Header.Set("Authorization", authz)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&out))
	return out
}

type questionEnvelope struct {
	Question domain.Question `json:"question"`
	Replies  []domain.Reply  `json:"replies"`
}

type replyEnvelope struct {
	Reply domain.Reply `json:"reply"`
}

func postQuestion(t *testing.T, handler http.Handler, authz string) domain.Question {
	t.Helper()
	rec := do(t, handler, http.MethodPost, "/questions", authz, map[string]string{
		"universityId": "uni-1",
		"title":        "Where is the quiet study floor?",
		"content":      "The library map is outdated.",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	return decode[questionEnvelope](t, rec).Question
}

func postReply(t *testing.T, handler http.Handler, questionID, authz string) domain.Reply {
	t.Helper()
	rec := do(t, handler, http.MethodPost, "/questions/"+questionID+"/reply", authz, map[string]string{
		"content": "Third floor, past the archives.",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	return decode[replyEnvelope](t, rec).Reply
}

func TestAuth_RejectedBeforeAnyRead(t *testing.T) {
	handler := newTestHandler(t)

	rec := do(t, handler, http.MethodPost, "/questions", "", map[string]string{"universityId": "uni-1"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(t, handler, http.MethodPost, "/questions", "Bearer garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Even a delete aimed at a missing resource is rejected on auth first.
	rec = do(t, handler, http.MethodPost, "/questions/missing/delete", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestQuestions_CreateListGet(t *testing.T) {
	handler := newTestHandler(t)
	authz := bearer(t, "user-1", domain.RoleStudent)

	question := postQuestion(t, handler, authz)
	assert.Equal(t, "user-1", question.AuthorID)

	rec := do(t, handler, http.MethodGet, "/questions?universityId=uni-1", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[struct {
		Questions []domain.Question `json:"questions"`
	}](t, rec)
	require.Len(t, list.Questions, 1)

	rec = do(t, handler, http.MethodGet, "/questions?universityId=uni-other", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list = decode[struct {
		Questions []domain.Question `json:"questions"`
	}](t, rec)
	assert.Empty(t, list.Questions)

	rec = do(t, handler, http.MethodGet, "/questions/"+question.ID, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	detail := decode[questionEnvelope](t, rec)
	assert.Equal(t, question.ID, detail.Question.ID)
	assert.Empty(t, detail.Replies)

	rec = do(t, handler, http.MethodGet, "/questions/does-not-exist", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestQuestions_DeleteAuthorization(t *testing.T) {
	handler := newTestHandler(t)
	owner := bearer(t, "user-1", domain.RoleStudent)
	stranger := bearer(t, "user-2", domain.RoleStudent)
	admin := bearer(t, "admin-1", domain.RoleAdmin)

	question := postQuestion(t, handler, owner)

	rec := do(t, handler, http.MethodPost, "/questions/"+question.ID+"/delete", stranger, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = do(t, handler, http.MethodPost, "/questions/"+question.ID+"/delete", owner, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, handler, http.MethodPost, "/questions/"+question.ID+"/delete", owner, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// Admin deletes someone else's question.
	question = postQuestion(t, handler, owner)
	rec = do(t, handler, http.MethodPost, "/questions/"+question.ID+"/delete", admin, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReplies_CreateAndCount(t *testing.T) {
	handler := newTestHandler(t)
	authz := bearer(t, "user-1", domain.RoleStudent)

	question := postQuestion(t, handler, authz)
	postReply(t, handler, question.ID, bearer(t, "user-2", domain.RoleStudent))
	postReply(t, handler, question.ID, bearer(t, "user-3", domain.RoleStudent))

	rec := do(t, handler, http.MethodGet, "/questions/"+question.ID, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	detail := decode[questionEnvelope](t, rec)
	assert.EqualValues(t, 2, detail.Question.RepliesCount)
	assert.Len(t, detail.Replies, 2)

	rec = do(t, handler, http.MethodPost, "/questions/missing/reply", authz, map[string]string{"content": "hi"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestReplies_DeleteTriggersRecount(t *testing.T) {
	handler := newTestHandler(t)
	owner := bearer(t, "user-1", domain.RoleStudent)

	question := postQuestion(t, handler, owner)
	first := postReply(t, handler, question.ID, bearer(t, "user-2", domain.RoleStudent))
	postReply(t, handler, question.ID, bearer(t, "user-3", domain.RoleStudent))

	rec := do(t, handler, http.MethodPost, "/questions/"+question.ID+"/reply/"+first.ID+"/delete",
		bearer(t, "user-2", domain.RoleStudent), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, handler, http.MethodGet, "/questions/"+question.ID, "", nil)
	detail := decode[questionEnvelope](t, rec)
	assert.EqualValues(t, 1, detail.Question.RepliesCount)
}

func TestReplies_DeleteWrongQuestionIs404(t *testing.T) {
	handler := newTestHandler(t)
	authz := bearer(t, "user-1", domain.RoleStudent)

	questionA := postQuestion(t, handler, authz)
	questionB := postQuestion(t, handler, authz)
	reply := postReply(t, handler, questionA.ID, authz)

	rec := do(t, handler, http.MethodPost, "/questions/"+questionB.ID+"/reply/"+reply.ID+"/delete", authz, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestToggleLike_RoundTrip(t *testing.T) {
	handler := newTestHandler(t)
	authz := bearer(t, "user-1", domain.RoleStudent)
	liker := bearer(t, "user-2", domain.RoleStudent)

	question := postQuestion(t, handler, authz)
	reply := postReply(t, handler, question.ID, authz)
	likePath := "/questions/" + question.ID + "/reply/" + reply.ID + "/like"

	rec := do(t, handler, http.MethodPost, likePath, "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(t, handler, http.MethodPost, likePath, liker, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	liked := decode[replyEnvelope](t, rec).Reply
	assert.EqualValues(t, 1, liked.LikesCount)
	assert.Equal(t, []string{"user-2"}, liked.LikedBy)

	rec = do(t, handler, http.MethodPost, likePath, liker, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	unliked := decode[replyEnvelope](t, rec).Reply
	assert.EqualValues(t, 0, unliked.LikesCount)
	assert.Empty(t, unliked.LikedBy)
}

func TestAlumniMessages_Guarded(t *testing.T) {
	handler := newTestHandler(t)
	owner := bearer(t, "alum-1", domain.RoleAlumni)
	stranger := bearer(t, "user-2", domain.RoleStudent)
	admin := bearer(t, "admin-1", domain.RoleAdmin)

	rec := do(t, handler, http.MethodPost, "/alumni-messages", owner, map[string]string{
		"universityId": "uni-1",
		"content":      "Mentoring offer.",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	message := decode[struct {
		Message domain.AlumniMessage `json:"message"`
	}](t, rec).Message

	rec = do(t, handler, http.MethodGet, "/alumni-messages?universityId=uni-1", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, handler, http.MethodDelete, "/alumni-messages/"+message.ID, stranger, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = do(t, handler, http.MethodDelete, "/alumni-messages/"+message.ID, admin, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, handler, http.MethodDelete, "/alumni-messages/"+message.ID, owner, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestReports_AdminOnlyResolution(t *testing.T) {
	handler := newTestHandler(t)
	student := bearer(t, "user-1", domain.RoleStudent)
	admin := bearer(t, "admin-1", domain.RoleAdmin)

	question := postQuestion(t, handler, student)

	rec := do(t, handler, http.MethodPost, "/reports", student, map[string]string{
		"targetType": "question",
		"targetId":   question.ID,
		"reason":     "duplicate",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	report := decode[struct {
		Report domain.Report `json:"report"`
	}](t, rec).Report

	rec = do(t, handler, http.MethodGet, "/reports?status=open", student, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = do(t, handler, http.MethodPatch, "/reports/"+report.ID, student, map[string]string{"status": "resolved"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = do(t, handler, http.MethodPatch, "/reports/"+report.ID, admin, map[string]string{"status": "closed"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, handler, http.MethodPatch, "/reports/"+report.ID, admin, map[string]string{"status": "resolved"})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, handler, http.MethodGet, "/reports?status=open", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[struct {
		Reports []domain.Report `json:"reports"`
	}](t, rec)
	assert.Empty(t, list.Reports)
}

// The spec's end-to-end scenario: replies from two actors, one deletion with
// recount, and a forbidden delete that changes nothing.
func TestScenario_ReplyLifecycle(t *testing.T) {
	handler := newTestHandler(t)
	actorA := bearer(t, "user-A", domain.RoleStudent)
	actorB := bearer(t, "user-B", domain.RoleStudent)
	actorC := bearer(t, "user-C", domain.RoleStudent)
	actorD := bearer(t, "user-D", domain.RoleStudent)

	question := postQuestion(t, handler, actorA)
	replyB := postReply(t, handler, question.ID, actorB)
	replyC := postReply(t, handler, question.ID, actorC)

	rec := do(t, handler, http.MethodGet, "/questions/"+question.ID, "", nil)
	detail := decode[questionEnvelope](t, rec)
	require.EqualValues(t, 2, detail.Question.RepliesCount)

	rec = do(t, handler, http.MethodPost, "/questions/"+question.ID+"/reply/"+replyB.ID+"/delete", actorB, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, handler, http.MethodGet, "/questions/"+question.ID, "", nil)
	detail = decode[questionEnvelope](t, rec)
	require.EqualValues(t, 1, detail.Question.RepliesCount)

	rec = do(t, handler, http.MethodPost, "/questions/"+question.ID+"/reply/"+replyC.ID+"/delete", actorD, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = do(t, handler, http.MethodGet, "/questions/"+question.ID, "", nil)
	detail = decode[questionEnvelope](t, rec)
	assert.EqualValues(t, 1, detail.Question.RepliesCount)
}

func TestQuestionEvents_StreamsNewReplies(t *testing.T) {
	handler := newTestHandler(t)
	authz := bearer(t, "user-1", domain.RoleStudent)
	question := postQuestion(t, handler, authz)

	srv := httptest.NewServer(handler)
	defer srv.Close()

	rec := do(t, handler, http.MethodGet, "/questions/missing/events", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/questions/" + question.ID + "/events"
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	if resp != nil {
		resp.Body.Close()
	}
	defer conn.Close()

	// Give the handler goroutine a moment to register its subscription.
	time.Sleep(100 * time.Millisecond)
	reply := postReply(t, handler, question.ID, bearer(t, "user-2", domain.RoleStudent))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var ev struct {
		Type  string       `json:"type"`
		Reply domain.Reply `json:"reply"`
	}
	require.NoError(t, conn.ReadJSON(&ev))
	assert.Equal(t, events.TypeReplyCreated, ev.Type)
	assert.Equal(t, reply.ID, ev.Reply.ID)
}

func TestHealthz(t *testing.T) {
	handler := newTestHandler(t)

	rec := do(t, handler, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}
