package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Seednode/mafiabox/game"
	"github.com/Seednode/mafiabox/roles"
	"github.com/Seednode/mafiabox/store"
)

func testAPIServer(t *testing.T) *apiServer {
	t.Helper()

	db, err := store.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	return &apiServer{
		cfg:  &Config{port: 8080, db: ":memory:"},
		svc:  game.NewService(db, roles.NewCatalog(roles.DefaultFS())),
		live: newBroadcaster(),
	}
}

func TestStatusForError(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("%w: game", game.ErrNotFound), http.StatusNotFound},
		{store.ErrNotFound, http.StatusNotFound},
		{fmt.Errorf("%w: name is required", game.ErrValidation), http.StatusBadRequest},
		{fmt.Errorf("%w: game has already started", game.ErrStateConflict), http.StatusConflict},
		{fmt.Errorf("%w: unknown role", game.ErrConsistency), http.StatusInternalServerError},
		{errors.New("disk on fire"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, statusForError(tc.err), "error: %v", tc.err)
	}
}

func TestSanitizePlayerHidesLivingRoles(t *testing.T) {
	player := store.Player{
		ID:      "p1",
		Name:    "alice",
		Role:    "mafia",
		IsAlive: true,
		RoleData: &roles.Role{
			ID:   "mafia",
			Name: "Mafia",
		},
	}

	view := sanitizePlayer(player)
	assert.Empty(t, view.Role)
	assert.Nil(t, view.RoleData)
	assert.Equal(t, "alice", view.Name)
	assert.True(t, view.IsAlive)

	player.IsAlive = false
	view = sanitizePlayer(player)
	assert.Equal(t, "mafia", view.Role)
	require.NotNil(t, view.RoleData)
	assert.Equal(t, "Mafia", view.RoleData.Name)
}

func TestDecodeBody(t *testing.T) {
	var req struct {
		Name string `json:"name"`
	}

	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"bob"}`))
	require.NoError(t, decodeBody(r, &req))
	assert.Equal(t, "bob", req.Name)

	// Empty bodies are fine; fields keep their zero values.
	r = httptest.NewRequest(http.MethodPost, "/", nil)
	require.NoError(t, decodeBody(r, &req))

	r = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":`))
	err := decodeBody(r, &req)
	require.Error(t, err)
	assert.ErrorIs(t, err, game.ErrValidation)
}

func TestJoinLanding(t *testing.T) {
	a := testAPIServer(t)

	g, err := a.svc.CreateGame(context.Background(), "", 7)
	require.NoError(t, err)

	// Scanning the QR code must land somewhere this server routes.
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/join/"+g.Code, nil)
	a.joinLanding(rec, req, httprouter.Params{{Key: "code", Value: g.Code}})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), g.Code)

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/join/ZZZZZZ", nil)
	a.joinLanding(rec, req, httprouter.Params{{Key: "code", Value: "ZZZZZZ"}})

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestConfigValidate(t *testing.T) {
	cfg := &Config{port: 8080, db: "mafiabox.db"}
	require.NoError(t, cfg.validate())
	assert.Equal(t, "http", cfg.scheme())

	cfg.tlsCert = "cert.pem"
	assert.Error(t, cfg.validate())

	cfg.tlsKey = "key.pem"
	require.NoError(t, cfg.validate())
	assert.Equal(t, "https", cfg.scheme())

	cfg.port = 0
	assert.Error(t, cfg.validate())

	cfg.port = 8080
	cfg.db = ""
	assert.Error(t, cfg.validate())
}
