package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/joacominatel/vizql/internal/app"
	"github.com/joacominatel/vizql/internal/commands"
	"github.com/joacominatel/vizql/internal/database/dbtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) (*httptest.Server, *dbtest.Driver) {
	t.Helper()
	d := dbtest.New()
	srv := NewServer(Config{Commands: commands.New(app.NewService(d), nil)})
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts, d
}

func post(t *testing.T, ts *httptest.Server, command, body string) (int, string) {
	t.Helper()
	resp, err := http.Post(ts.URL+"/invoke/"+command, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, strings.TrimSpace(string(b))
}

func getHealth(t *testing.T, ts *httptest.Server) (int, string) {
	t.Helper()
	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(b)
}

func TestHealthz(t *testing.T) {
	ts, d := newTestServer(t)
	var down atomic.Bool
	d.PingFn = func(context.Context) error {
		if down.Load() {
			return errors.New("server closed the connection")
		}
		return nil
	}

	status, body := getHealth(t, ts)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok (not connected)", body)

	status, _ = post(t, ts, commands.ConnectDBPool, `{"dbname":"app","port":"5432"}`)
	require.Equal(t, http.StatusOK, status)

	status, body = getHealth(t, ts)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", body)

	down.Store(true)
	status, body = getHealth(t, ts)
	assert.Equal(t, http.StatusServiceUnavailable, status)
	assert.Contains(t, body, "server closed the connection")
}

func TestCommandsList(t *testing.T) {
	ts, _ := newTestServer(t)
	resp, err := http.Get(ts.URL + "/commands")
	require.NoError(t, err)
	defer resp.Body.Close()

	var names []string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&names))
	assert.Contains(t, names, commands.ConnectDBPool)
	assert.Contains(t, names, commands.ListTableColumns)
}

func TestInvoke_RoundTrip(t *testing.T) {
	ts, _ := newTestServer(t)

	status, body := post(t, ts, "list_tables", ``)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, `"`+app.ErrNotInitialized.Error()+`"`, body)

	status, body = post(t, ts, "connect_db_pool", `{"dbname":"app","user":"me","password":"pw","host":"localhost","port":"5432"}`)
	assert.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, "null", body)

	status, _ = post(t, ts, "connect_db_pool", `{"dbname":"app","user":"me","password":"pw","host":"localhost","port":"5432"}`)
	assert.Equal(t, http.StatusConflict, status)

	status, body = post(t, ts, "create_table", `{"tableName":"t","columns":[{"name":"id","type":"SERIAL PRIMARY KEY"},{"name":"age","type":"INT"}]}`)
	assert.Equal(t, http.StatusOK, status, body)

	status, body = post(t, ts, "list_tables", `{}`)
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `["t"]`, body)

	status, body = post(t, ts, "list_table_columns", `{"tableName":"t"}`)
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `[{"name":"id","type":"SERIAL PRIMARY KEY"},{"name":"age","type":"INT"}]`, body)

	status, body = post(t, ts, "list_table_columns", `{"tableName":"nope"}`)
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `[]`, body)

	status, _ = post(t, ts, "create_table", `{"tableName":"t","columns":[{"name":"id","type":"INT"}]}`)
	assert.Equal(t, http.StatusUnprocessableEntity, status)
}

func TestInvoke_Errors(t *testing.T) {
	ts, _ := newTestServer(t)

	status, body := post(t, ts, "connect_db_pool", `{"dbname":"app","port":"abc"}`)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, body, "invalid port")

	status, _ = post(t, ts, "nope", `{}`)
	assert.Equal(t, http.StatusNotFound, status)

	resp, err := http.Get(ts.URL + "/invoke/list_tables")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("%w %q", commands.ErrUnknownCommand, "x"), http.StatusNotFound},
		{&app.ErrConfig{Cause: errors.New("bad")}, http.StatusBadRequest},
		{app.ErrNotInitialized, http.StatusConflict},
		{app.ErrAlreadyInitialized, http.StatusConflict},
		{&app.ErrConnection{Cause: errors.New("refused")}, http.StatusBadGateway},
		{&app.ErrExecution{Op: "create table", Cause: errors.New("exists")}, http.StatusUnprocessableEntity},
		{context.DeadlineExceeded, http.StatusGatewayTimeout},
		{errors.New("other"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.want, StatusFor(tt.err))
		})
	}
}

func TestServe_StopsOnCancel(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	srv := NewServer(Config{Commands: commands.New(app.NewService(dbtest.New()), nil)})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.serve(ctx, ln) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + ln.Addr().String() + "/healthz")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("server did not stop")
	}
}
