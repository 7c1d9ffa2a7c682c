package simulator

import (
	"encoding/json"
	"fmt"
	"net"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"tws-core/pkg/wire"
)

// rawClient speaks just enough of the protocol to open a session.
type rawClient struct {
	conn net.Conn
}

func dialSimulator(t *testing.T, srv *Server) *rawClient {
	t.Helper()
	conn, err := net.DialTimeout("tcp", fmt.Sprintf("%s:%d", srv.Addr(), srv.Port()), 5*time.Second)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	_, err = conn.Write([]byte(apiMagic))
	require.NoError(t, err)
	require.NoError(t, wire.WriteFrame(conn, []byte("v100..187")))

	greeting := readFields(t, conn)
	require.Len(t, greeting, 2)
	require.Equal(t, "176", greeting[0])

	startAPI := wire.NewRequestMessage().AddInt(71).AddInt(2).AddInt(7).AddString("")
	require.NoError(t, wire.WriteFrame(conn, startAPI.Encode()))

	// Session bootstrap: next order id then managed accounts.
	require.Equal(t, "9", readFields(t, conn)[0])
	require.Equal(t, "15", readFields(t, conn)[0])

	return &rawClient{conn: conn}
}

func readFields(t *testing.T, conn net.Conn) []string {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	payload, err := wire.ReadFrame(conn)
	require.NoError(t, err)
	return strings.Split(strings.TrimSuffix(string(payload), "\x00"), "\x00")
}

func startTestServer(t *testing.T) *Server {
	srv := New(nil)
	require.NoError(t, srv.Start())
	t.Cleanup(srv.Close)
	return srv
}

func TestHandshakeAndHandlers(t *testing.T) {
	srv := startTestServer(t)
	srv.Handle(49, CurrentTimeHandler())
	c := dialSimulator(t, srv)

	request := wire.NewRequestMessage().AddInt(49).AddInt(1)
	require.NoError(t, wire.WriteFrame(c.conn, request.Encode()))

	fields := readFields(t, c.conn)
	require.Equal(t, "49", fields[0])
	require.Len(t, fields, 3)
}

func TestAdminSessionControl(t *testing.T) {
	gin.SetMode(gin.TestMode)
	srv := startTestServer(t)
	admin := NewAdmin(srv)
	c := dialSimulator(t, srv)

	require.Eventually(t, func() bool {
		for _, s := range srv.Sessions() {
			if s.ClientID == 7 {
				return true
			}
		}
		return false
	}, 5*time.Second, 10*time.Millisecond)

	// List sessions.
	rec := httptest.NewRecorder()
	admin.Router.ServeHTTP(rec, httptest.NewRequest("GET", "/sessions", nil))
	require.Equal(t, 200, rec.Code)

	var sessions []struct {
		ID       string `json:"id"`
		ClientID int    `json:"client_id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sessions))
	require.Len(t, sessions, 1)
	require.Equal(t, 7, sessions[0].ClientID)
	id := sessions[0].ID

	// Inject a server error and observe it on the wire.
	body := strings.NewReader(`{"request_id":-1,"code":1100,"message":"Connectivity lost"}`)
	rec = httptest.NewRecorder()
	admin.Router.ServeHTTP(rec, httptest.NewRequest("POST", "/sessions/"+id+"/error", body))
	require.Equal(t, 200, rec.Code)

	fields := readFields(t, c.conn)
	require.Equal(t, []string{"4", "2", "-1", "1100", "Connectivity lost"}, fields)

	// Unknown session ids are rejected.
	rec = httptest.NewRecorder()
	admin.Router.ServeHTTP(rec, httptest.NewRequest("POST", "/sessions/nope/shutdown", nil))
	require.Equal(t, 404, rec.Code)

	// Dropping the session closes the socket.
	rec = httptest.NewRecorder()
	admin.Router.ServeHTTP(rec, httptest.NewRequest("POST", "/sessions/"+id+"/drop", nil))
	require.Equal(t, 200, rec.Code)

	c.conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, err := wire.ReadFrame(c.conn)
	require.Error(t, err)
}
