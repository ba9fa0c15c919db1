package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"

	"github.com/Seednode/mafiabox/game"
	"github.com/Seednode/mafiabox/roles"
	"github.com/Seednode/mafiabox/store"
)

type apiServer struct {
	cfg  *Config
	svc  *game.Service
	live *Broadcaster
}

func registerGameRoutes(cfg *Config, svc *game.Service, mux *httprouter.Router) {
	a := &apiServer{
		cfg:  cfg,
		svc:  svc,
		live: newBroadcaster(),
	}

	p := cfg.prefix

	mux.POST(p+"/api/games", a.createGame)
	mux.GET(p+"/api/games", a.listGames)
	mux.GET(p+"/api/games/:id", a.getGame)
	mux.GET(p+"/api/games/:id/admin", a.adminGame)
	mux.DELETE(p+"/api/games/:id", a.deleteGame)
	mux.POST(p+"/api/games/:id/issue-cards", a.issueCards)
	mux.POST(p+"/api/games/:id/reroll-roles", a.rerollRoles)
	mux.POST(p+"/api/games/:id/end", a.endGame)
	mux.GET(p+"/api/games/:id/players", a.gamePlayers)
	mux.POST(p+"/api/games/:id/tally-votes", a.tallyVotes)
	mux.DELETE(p+"/api/games/:id/votes", a.clearVotes)
	mux.GET(p+"/api/games/:id/events", a.gameEvents)
	mux.GET(p+"/api/games/:id/ws", a.serveLive)

	mux.POST(p+"/api/join/:code", a.joinGame)
	mux.GET(p+"/api/join/:code/qr", a.joinQR)
	mux.GET(p+"/join/:code", a.joinLanding)

	mux.GET(p+"/api/players/:id", a.getPlayer)
	mux.PATCH(p+"/api/players/:id/status", a.setPlayerStatus)
	mux.POST(p+"/api/players/:id/vote", a.castVote)
	mux.GET(p+"/api/players/:id/vote", a.currentVote)

	mux.GET(p+"/api/themes", a.listThemes)
	mux.GET(p+"/api/themes/:theme/roles", a.themeRoles)
}

// statusForError maps service errors onto HTTP status codes.
func statusForError(err error) int {
	switch {
	case errors.Is(err, game.ErrNotFound) || errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, game.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, game.ErrStateConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (a *apiServer) writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	securityHeaders(a.cfg, w)
	w.WriteHeader(status)

	_ = json.NewEncoder(w).Encode(value)
}

func (a *apiServer) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusForError(err)
	if status == http.StatusInternalServerError {
		logf(a.cfg, "ERROR: %s %s from %s: %v", r.Method, r.URL.Path, realIP(r), err)
	}

	a.writeJSON(w, status, map[string]string{"error": err.Error()})
}

func decodeBody(r *http.Request, into any) error {
	defer r.Body.Close()

	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(into); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: %v", game.ErrValidation, err)
	}
	return nil
}

// playerView is the sanitized player shape shown to the table at
// large. Roles stay hidden until a player has been eliminated.
type playerView struct {
	ID       string      `json:"id"`
	Name     string      `json:"name"`
	IsAlive  bool        `json:"is_alive"`
	JoinedAt time.Time   `json:"joined_at"`
	Role     string      `json:"role,omitempty"`
	RoleData *roles.Role `json:"role_data,omitempty"`
}

func sanitizePlayer(p store.Player) playerView {
	view := playerView{
		ID:       p.ID,
		Name:     p.Name,
		IsAlive:  p.IsAlive,
		JoinedAt: p.JoinedAt,
	}

	if !p.IsAlive {
		view.Role = p.Role
		view.RoleData = p.RoleData
	}

	return view
}

func sanitizePlayers(players []store.Player) []playerView {
	views := make([]playerView, 0, len(players))
	for _, p := range players {
		views = append(views, sanitizePlayer(p))
	}
	return views
}

type gameSnapshot struct {
	Type       string         `json:"type"`
	Game       *store.Game    `json:"game"`
	Players    []playerView   `json:"players"`
	VoteCounts map[string]int `json:"vote_counts"`
}

func (a *apiServer) snapshot(ctx context.Context, gameID string) (*gameSnapshot, error) {
	g, err := a.svc.Store().GameByID(ctx, gameID)
	if err != nil {
		return nil, err
	}

	players, err := a.svc.Store().PlayersByGame(ctx, gameID)
	if err != nil {
		return nil, err
	}

	counts, err := a.svc.Store().VoteCounts(ctx, gameID)
	if err != nil {
		return nil, err
	}

	return &gameSnapshot{
		Type:       "game_state",
		Game:       g,
		Players:    sanitizePlayers(players),
		VoteCounts: counts,
	}, nil
}

// publishState pushes a fresh snapshot to any websocket subscribers of
// the game. Mutating handlers call it after a successful write.
func (a *apiServer) publishState(ctx context.Context, gameID string) {
	if !a.live.HasSubscribers(gameID) {
		return
	}

	snapshot, err := a.snapshot(ctx, gameID)
	if err != nil {
		logf(a.cfg, "GAMES: Snapshot for %s failed: %v", gameID, err)

		return
	}

	a.live.Publish(gameID, snapshot)
}

func (a *apiServer) createGame(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req struct {
		Theme       string `json:"theme"`
		PlayerCount int    `json:"player_count"`
	}
	if err := decodeBody(r, &req); err != nil {
		a.writeError(w, r, err)

		return
	}

	g, err := a.svc.CreateGame(r.Context(), req.Theme, req.PlayerCount)
	if err != nil {
		a.writeError(w, r, err)

		return
	}

	logf(a.cfg, "GAMES: Created game %s (%s, %d players) for %s", g.Code, g.Theme, req.PlayerCount, realIP(r))

	a.writeJSON(w, http.StatusCreated, g)
}

func (a *apiServer) listGames(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	games, err := a.svc.Store().AllGames(r.Context())
	if err != nil {
		a.writeError(w, r, err)

		return
	}

	a.writeJSON(w, http.StatusOK, map[string]any{"games": games})
}

func (a *apiServer) getGame(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	g, err := a.svc.Store().GameByID(r.Context(), ps.ByName("id"))
	if err != nil {
		a.writeError(w, r, err)

		return
	}

	players, err := a.svc.Store().PlayersByGame(r.Context(), g.ID)
	if err != nil {
		a.writeError(w, r, err)

		return
	}

	a.writeJSON(w, http.StatusOK, map[string]any{
		"game":    g,
		"players": sanitizePlayers(players),
	})
}

func (a *apiServer) adminGame(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	g, err := a.svc.Store().GameByID(r.Context(), ps.ByName("id"))
	if err != nil {
		a.writeError(w, r, err)

		return
	}

	players, err := a.svc.Store().PlayersByGame(r.Context(), g.ID)
	if err != nil {
		a.writeError(w, r, err)

		return
	}

	counts, err := a.svc.VoteCounts(r.Context(), g.ID)
	if err != nil {
		a.writeError(w, r, err)

		return
	}

	a.writeJSON(w, http.StatusOK, map[string]any{
		"game":        g,
		"players":     players,
		"vote_counts": counts,
	})
}

func (a *apiServer) deleteGame(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id := ps.ByName("id")

	if err := a.svc.DeleteGame(r.Context(), id); err != nil {
		a.writeError(w, r, err)

		return
	}

	a.live.CloseGame(id)

	logf(a.cfg, "GAMES: Deleted game %s for %s", id, realIP(r))

	w.WriteHeader(http.StatusNoContent)
}

func (a *apiServer) issueCards(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id := ps.ByName("id")

	result, err := a.svc.IssueCards(r.Context(), id)
	if err != nil {
		a.writeError(w, r, err)

		return
	}

	a.publishState(r.Context(), id)

	a.writeJSON(w, http.StatusOK, result)
}

func (a *apiServer) rerollRoles(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id := ps.ByName("id")

	result, err := a.svc.RerollRoles(r.Context(), id)
	if err != nil {
		a.writeError(w, r, err)

		return
	}

	a.publishState(r.Context(), id)

	a.writeJSON(w, http.StatusOK, result)
}

func (a *apiServer) endGame(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id := ps.ByName("id")

	if err := a.svc.EndGame(r.Context(), id); err != nil {
		a.writeError(w, r, err)

		return
	}

	g, err := a.svc.Store().GameByID(r.Context(), id)
	if err != nil {
		a.writeError(w, r, err)

		return
	}

	a.publishState(r.Context(), id)

	a.writeJSON(w, http.StatusOK, g)
}

func (a *apiServer) gamePlayers(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id := ps.ByName("id")

	if _, err := a.svc.Store().GameByID(r.Context(), id); err != nil {
		a.writeError(w, r, err)

		return
	}

	players, err := a.svc.Store().PlayersByGame(r.Context(), id)
	if err != nil {
		a.writeError(w, r, err)

		return
	}

	a.writeJSON(w, http.StatusOK, map[string]any{"players": sanitizePlayers(players)})
}

func (a *apiServer) tallyVotes(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id := ps.ByName("id")

	var req struct {
		TargetPlayerID string `json:"target_player_id"`
	}
	if err := decodeBody(r, &req); err != nil {
		a.writeError(w, r, err)

		return
	}

	result, err := a.svc.ResolveElimination(r.Context(), id, req.TargetPlayerID)
	if err != nil {
		a.writeError(w, r, err)

		return
	}

	a.publishState(r.Context(), id)

	a.writeJSON(w, http.StatusOK, result)
}

func (a *apiServer) clearVotes(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id := ps.ByName("id")

	if err := a.svc.ClearVotes(r.Context(), id); err != nil {
		a.writeError(w, r, err)

		return
	}

	a.publishState(r.Context(), id)

	w.WriteHeader(http.StatusNoContent)
}

func (a *apiServer) gameEvents(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id := ps.ByName("id")

	if _, err := a.svc.Store().GameByID(r.Context(), id); err != nil {
		a.writeError(w, r, err)

		return
	}

	events, err := a.svc.Store().EventsByGame(r.Context(), id)
	if err != nil {
		a.writeError(w, r, err)

		return
	}

	a.writeJSON(w, http.StatusOK, map[string]any{"events": events})
}

func (a *apiServer) joinGame(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var req struct {
		Name string `json:"name"`
	}
	if err := decodeBody(r, &req); err != nil {
		a.writeError(w, r, err)

		return
	}

	player, err := a.svc.Join(r.Context(), ps.ByName("code"), req.Name)
	if err != nil {
		a.writeError(w, r, err)

		return
	}

	logf(a.cfg, "GAMES: Player %q joined %s from %s", player.Name, ps.ByName("code"), realIP(r))

	a.publishState(r.Context(), player.GameID)

	a.writeJSON(w, http.StatusCreated, player)
}

func (a *apiServer) getPlayer(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	player, err := a.svc.Store().PlayerByID(r.Context(), ps.ByName("id"))
	if err != nil {
		a.writeError(w, r, err)

		return
	}

	a.writeJSON(w, http.StatusOK, player)
}

func (a *apiServer) setPlayerStatus(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var req struct {
		Alive *bool `json:"alive"`
	}
	if err := decodeBody(r, &req); err != nil {
		a.writeError(w, r, err)

		return
	}
	if req.Alive == nil {
		a.writeError(w, r, fmt.Errorf("%w: alive must be a boolean", game.ErrValidation))

		return
	}

	player, err := a.svc.SetAlive(r.Context(), ps.ByName("id"), *req.Alive)
	if err != nil {
		a.writeError(w, r, err)

		return
	}

	a.publishState(r.Context(), player.GameID)

	a.writeJSON(w, http.StatusOK, player)
}

func (a *apiServer) castVote(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var req struct {
		TargetPlayerID string `json:"target_player_id"`
	}
	if err := decodeBody(r, &req); err != nil {
		a.writeError(w, r, err)

		return
	}

	receipt, err := a.svc.RecordVote(r.Context(), ps.ByName("id"), req.TargetPlayerID)
	if err != nil {
		a.writeError(w, r, err)

		return
	}

	if player, err := a.svc.Store().PlayerByID(r.Context(), ps.ByName("id")); err == nil {
		a.publishState(r.Context(), player.GameID)
	}

	a.writeJSON(w, http.StatusOK, receipt)
}

func (a *apiServer) currentVote(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	vote, err := a.svc.VoteByPlayer(r.Context(), ps.ByName("id"))
	if err != nil {
		a.writeError(w, r, err)

		return
	}

	a.writeJSON(w, http.StatusOK, vote)
}

type themeInfo struct {
	ID         string `json:"id"`
	GameName   string `json:"game_name"`
	MinPlayers int    `json:"min_players"`
	MaxPlayers int    `json:"max_players"`
	Complexity string `json:"complexity,omitempty"`
}

func (a *apiServer) listThemes(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	themes, err := a.svc.Catalog().Themes()
	if err != nil {
		a.writeError(w, r, err)

		return
	}

	infos := make([]themeInfo, 0, len(themes))
	for _, theme := range themes {
		meta, err := a.svc.Catalog().MetadataFor(theme)
		if err != nil {
			a.writeError(w, r, err)

			return
		}

		infos = append(infos, themeInfo{
			ID:         theme,
			GameName:   meta.GameName,
			MinPlayers: meta.MinPlayers,
			MaxPlayers: meta.MaxPlayers,
			Complexity: meta.Complexity,
		})
	}

	a.writeJSON(w, http.StatusOK, map[string]any{"themes": infos})
}

func (a *apiServer) themeRoles(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	theme := ps.ByName("theme")

	themes, err := a.svc.Catalog().Themes()
	if err != nil {
		a.writeError(w, r, err)

		return
	}

	known := false
	for _, t := range themes {
		if t == theme {
			known = true
			break
		}
	}
	if !known {
		a.writeError(w, r, fmt.Errorf("%w: unknown theme %q", game.ErrNotFound, theme))

		return
	}

	merged, err := a.svc.Catalog().RolesFor(theme)
	if err != nil {
		a.writeError(w, r, err)

		return
	}

	a.writeJSON(w, http.StatusOK, map[string]any{"roles": merged})
}
