package handlers_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/moyijulius/crime-report-platform/databases"
	mocksdb "github.com/moyijulius/crime-report-platform/databases/mocks"
	"github.com/moyijulius/crime-report-platform/models"
)

type caseFrame struct {
	Event string         `json:"event"`
	Data  models.Message `json:"data"`
}

func dialCase(t *testing.T, srv *httptest.Server, ref string) (*websocket.Conn, *http.Response, error) {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/reports/" + ref + "/messages/ws"
	return websocket.DefaultDialer.Dial(url, nil)
}

func TestCaseHub_StreamsNewMessages(t *testing.T) {
	e := newTestEnv(t)
	stubReportLookup(e.reports, bson.M{"referenceNumber": "REF-ABC123XYZ"}, &models.Report{ReferenceNumber: "REF-ABC123XYZ"}, nil)

	sr := &mocksdb.SingleResultHelper{}
	sr.On("Decode", mock.Anything).Return(nil).Run(func(args mock.Arguments) {
		arg := args.Get(0).(**models.Report)
		(*arg).ReferenceNumber = "REF-ABC123XYZ"
	})
	e.reports.On("FindOneAndUpdate", mock.Anything, bson.M{"referenceNumber": "REF-ABC123XYZ"}, mock.Anything).Return(sr)

	srv := httptest.NewServer(e.app.Router)
	defer srv.Close()

	conn, _, err := dialCase(t, srv, "ref-abc123xyz")
	require.NoError(t, err)
	defer conn.Close()

	assert.Eventually(t, func() bool {
		return e.app.Hub.Subscribers("REF-ABC123XYZ") == 1
	}, time.Second, 10*time.Millisecond)

	token, _ := e.token(t, models.RoleOfficer)
	rr := e.do("POST", "/api/reports/REF-ABC123XYZ/messages", map[string]string{"message": "An officer has been assigned"}, token)
	require.Equal(t, http.StatusCreated, rr.Code)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var frame caseFrame
	require.NoError(t, conn.ReadJSON(&frame))
	assert.Equal(t, "new_message", frame.Event)
	assert.Equal(t, "An officer has been assigned", frame.Data.Text)
	assert.Equal(t, models.SenderOfficer, frame.Data.Sender)
}

func TestCaseHub_UnknownCase(t *testing.T) {
	e := newTestEnv(t)
	stubReportLookup(e.reports, bson.M{"referenceNumber": "REF-MISSING00"}, nil, databases.ErrNotFound)

	srv := httptest.NewServer(e.app.Router)
	defer srv.Close()

	_, resp, err := dialCase(t, srv, "REF-MISSING00")

	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCaseHub_CloseDisconnectsSubscribers(t *testing.T) {
	e := newTestEnv(t)
	stubReportLookup(e.reports, bson.M{"referenceNumber": "REF-ABC123XYZ"}, &models.Report{ReferenceNumber: "REF-ABC123XYZ"}, nil)

	srv := httptest.NewServer(e.app.Router)
	defer srv.Close()

	conn, _, err := dialCase(t, srv, "REF-ABC123XYZ")
	require.NoError(t, err)
	defer conn.Close()
	assert.Eventually(t, func() bool {
		return e.app.Hub.Subscribers("REF-ABC123XYZ") == 1
	}, time.Second, 10*time.Millisecond)

	e.app.Hub.Close()

	assert.Equal(t, 0, e.app.Hub.Subscribers("REF-ABC123XYZ"))
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err = conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNoStatusReceived), "unexpected error: %v", err)
}
