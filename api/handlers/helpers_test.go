package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/moyijulius/crime-report-platform/api"
	"github.com/moyijulius/crime-report-platform/api/handlers"
	"github.com/moyijulius/crime-report-platform/attachments"
	"github.com/moyijulius/crime-report-platform/config"
	mocksdb "github.com/moyijulius/crime-report-platform/databases/mocks"
	"github.com/moyijulius/crime-report-platform/mailer"
	"github.com/moyijulius/crime-report-platform/models"
	"github.com/moyijulius/crime-report-platform/queue"
)

// testEnv is an App wired against mocked collections
type testEnv struct {
	app          *handlers.App
	db           *mocksdb.DatabaseHelper
	users        *mocksdb.CollectionHelper
	reports      *mocksdb.CollectionHelper
	testimonials *mocksdb.CollectionHelper
	tokens       *mocksdb.CollectionHelper
	events       *queue.Recorder
	mail         *recordingMailer
	uploadDir    string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	e := &testEnv{
		db:           &mocksdb.DatabaseHelper{},
		users:        &mocksdb.CollectionHelper{},
		reports:      &mocksdb.CollectionHelper{},
		testimonials: &mocksdb.CollectionHelper{},
		tokens:       &mocksdb.CollectionHelper{},
		events:       &queue.Recorder{},
		mail:         &recordingMailer{},
		uploadDir:    t.TempDir(),
	}
	e.db.On("Collection", "users").Return(e.users)
	e.db.On("Collection", "reports").Return(e.reports)
	e.db.On("Collection", "testimonials").Return(e.testimonials)
	e.db.On("Collection", "revoked_tokens").Return(e.tokens)
	e.tokens.On("CountDocuments", mock.Anything, mock.Anything).Return(int64(0), nil)

	store, err := attachments.NewLocal(e.uploadDir)
	require.NoError(t, err)

	e.app = &handlers.App{Config: config.Config{
		JWTSecret:      "test-secret",
		TokenTTL:       time.Hour,
		AllowedOrigins: []string{"*"},
		MaxUploadBytes: 1 << 20,
		MaxFiles:       2,
	}}
	ctx, cancel := context.WithCancel(context.Background())
	e.app.Wire(ctx, handlers.Deps{DB: e.db, Store: store, Events: e.events, Mailer: e.mail})
	t.Cleanup(func() {
		e.app.Shutdown(context.Background())
		cancel()
	})
	return e
}

// token issues a bearer token for a fresh user holding role
func (e *testEnv) token(t *testing.T, role models.Role) (string, primitive.ObjectID) {
	t.Helper()
	id := primitive.NewObjectID()
	token, err := e.app.Auth.IssueToken(models.User{ID: id, Role: role})
	require.NoError(t, err)
	return token, id
}

// do sends a request through the full router
func (e *testEnv) do(method, path string, body interface{}, token string) *httptest.ResponseRecorder {
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		raw, _ := json.Marshal(b)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	e.app.Router.ServeHTTP(rr, req)
	return rr
}

// withClaims authenticates a request handed directly to a handler
func withClaims(req *http.Request, id primitive.ObjectID, role models.Role) *http.Request {
	return req.WithContext(api.WithClaims(req.Context(), &api.Claims{UserID: id.Hex(), Role: role}))
}

type sentMail struct {
	To      mailer.Recipient
	Subject string
	Body    string
}

type recordingMailer struct {
	mu   sync.Mutex
	sent []sentMail
}

func (m *recordingMailer) Send(_ context.Context, to mailer.Recipient, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentMail{To: to, Subject: subject, Body: body})
	return nil
}

func (m *recordingMailer) Sent() []sentMail {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]sentMail(nil), m.sent...)
}
