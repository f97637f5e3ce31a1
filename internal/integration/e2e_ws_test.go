package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tictactoe_live/internal/domain"
	httpserver "tictactoe_live/internal/http"
	"tictactoe_live/internal/http/handlers"
	"tictactoe_live/internal/http/middleware"
	"tictactoe_live/internal/logger"
	"tictactoe_live/internal/notify"
	"tictactoe_live/internal/repository"
	"tictactoe_live/internal/service"
	"tictactoe_live/internal/ws"
)

const botName = "rl-agent"

type env struct {
	srv    *httptest.Server
	tokens map[string]string
	names  map[string]string
}

func applyMigrationsToPool(t *testing.T, dbp *pgxpool.Pool) {
	t.Helper()
	migDir := filepath.Join("..", "migrations")
	files, err := os.ReadDir(migDir)
	require.NoError(t, err)
	var names []string
	for _, f := range files {
		if strings.HasSuffix(f.Name(), ".sql") {
			names = append(names, f.Name())
		}
	}
	sort.Strings(names)
	for _, name := range names {
		b, err := os.ReadFile(filepath.Join(migDir, name))
		require.NoError(t, err)
		_, err = dbp.Exec(context.Background(), string(b))
		require.NoError(t, err, "apply migration %s", name)
	}
}

func newEnv(t *testing.T, games repository.GameStore, users repository.UserStore) *env {
	t.Helper()
	gin.SetMode(gin.TestMode)
	service.InitJWT("e2e-secret")
	middleware.InitRedisRateLimiter(nil)

	ctx := context.Background()
	log := logger.Discard()

	require.NoError(t, users.EnsureUser(ctx, botName))
	policy, err := service.LoadLuaPolicy(filepath.Join("..", "..", "policies", "tictactoe.lua"))
	require.NoError(t, err)

	hub := ws.NewHub(8)
	opponent := service.NewOpponent(botName, policy, time.Second, log)
	gameService := service.NewGameService(games, hub, notify.NewLogNotifier(log), opponent, log)

	r := gin.New()
	httpserver.RegisterRoutes(r, httpserver.Deps{
		Handler:    handlers.NewHandler(gameService, users, handlers.HandlerConfig{}),
		Health:     handlers.NewHealthHandler(map[string]handlers.Pinger{"games": games}, "test"),
		Hub:        hub,
		Dispatcher: ws.NewDispatcher(hub, gameService, service.JWTAuthenticator{}, log),
		Limits:     httpserver.Limits{APIRate: 10000, MoveRate: 10000},
	})
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	e := &env{srv: srv, tokens: map[string]string{}, names: map[string]string{}}
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	for _, who := range []string{"alice", "bob"} {
		name := who + "_" + suffix
		u := &domain.User{Username: name, FirstName: who}
		require.NoError(t, users.Create(ctx, u))
		token, err := service.GenerateJWT(u.ID, name)
		require.NoError(t, err)
		e.tokens[who] = token
		e.names[who] = name
	}
	return e
}

func (e *env) post(t *testing.T, path, who string, body any) (int, domain.Snapshot) {
	t.Helper()
	b, err := json.Marshal(body)
	require.NoError(t, err)
	req, err := http.NewRequest(http.MethodPost, e.srv.URL+path, bytes.NewReader(b))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if who != "" {
		req.Header.Set("Authorization", "Bearer "+e.tokens[who])
	}
	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer res.Body.Close()
	var snap domain.Snapshot
	_ = json.NewDecoder(res.Body).Decode(&snap)
	return res.StatusCode, snap
}

func (e *env) dial(t *testing.T) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(e.srv.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

type wsMessage struct {
	Action  *string         `json:"action"`
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Reason string `json:"reason"`
	} `json:"error"`
	MsgID json.RawMessage `json:"msgId"`
}

func send(t *testing.T, conn *websocket.Conn, action, msgID string, args map[string]any) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(map[string]any{"action": action, "args": args, "msgId": msgID}))
}

// await reads until a message matches, failing after two seconds.
func await(t *testing.T, conn *websocket.Conn, match func(wsMessage) bool) wsMessage {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		require.NoError(t, conn.SetReadDeadline(deadline))
		var msg wsMessage
		require.NoError(t, conn.ReadJSON(&msg))
		if match(msg) {
			return msg
		}
	}
}

func reply(msgID string) func(wsMessage) bool {
	want := `"` + msgID + `"`
	return func(m wsMessage) bool {
		return string(m.MsgID) == want && (m.Action == nil || *m.Action != ws.ActionBroadcast)
	}
}

func broadcastWith(moveCount int) func(wsMessage) bool {
	return func(m wsMessage) bool {
		if m.Action == nil || *m.Action != ws.ActionBroadcast {
			return false
		}
		var snap domain.Snapshot
		return json.Unmarshal(m.Data, &snap) == nil && snap.MoveCount == moveCount
	}
}

func decode(t *testing.T, m wsMessage) domain.Snapshot {
	t.Helper()
	var snap domain.Snapshot
	require.NoError(t, json.Unmarshal(m.Data, &snap))
	return snap
}

func runMatch(t *testing.T, e *env) {
	code, created := e.post(t, "/api/v1/games", "alice", map[string]any{"playAgainstBot": false})
	require.Equal(t, http.StatusCreated, code)
	id := created.GameID

	viewer := e.dial(t)
	send(t, viewer, ws.ActionSubscribe, "watch", map[string]any{"gameId": id})
	require.True(t, await(t, viewer, reply("watch")).Success)

	code, joined := e.post(t, "/api/v1/games/"+jsonInt(id)+"/join", "bob", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, e.names["bob"], *joined.Defender)
	assert.True(t, decode(t, await(t, viewer, broadcastWith(0))).Started)

	player := e.dial(t)
	moves := []struct {
		who string
		pos int
	}{{"alice", 0}, {"bob", 4}, {"alice", 1}, {"bob", 8}, {"alice", 2}}
	for i, m := range moves {
		msgID := "m" + jsonInt(int64(i))
		send(t, player, ws.ActionMove, msgID, map[string]any{
			"gameId":       id,
			"movePosition": m.pos,
			"token":        e.tokens[m.who],
		})
		res := await(t, player, reply(msgID))
		require.True(t, res.Success, "move %d", i)
		await(t, viewer, broadcastWith(i+1))
	}

	send(t, player, ws.ActionMove, "late", map[string]any{"gameId": id, "movePosition": 5, "token": e.tokens["bob"]})
	res := await(t, player, reply("late"))
	assert.False(t, res.Success)
	require.NotNil(t, res.Error)
	assert.Equal(t, "game_finished", res.Error.Reason)

	send(t, viewer, ws.ActionView, "view", map[string]any{"gameId": id})
	final := decode(t, await(t, viewer, reply("view")))
	assert.True(t, final.IsFinished)
	assert.Equal(t, domain.OutcomeXWins, final.Outcome)
	require.NotNil(t, final.Winner)
	assert.Equal(t, e.names["alice"], *final.Winner)
	assert.Equal(t, []int{1, 1, 1, 0, -1, 0, 0, 0, -1}, final.GameField)
	assert.Nil(t, final.GameKey)
}

func runBotGame(t *testing.T, e *env) {
	code, created := e.post(t, "/api/v1/games", "", map[string]any{})
	require.Equal(t, http.StatusCreated, code)
	require.NotNil(t, created.GameKey)

	conn := e.dial(t)
	send(t, conn, ws.ActionSubscribe, "sub", map[string]any{"gameId": created.GameID})
	require.True(t, await(t, conn, reply("sub")).Success)

	send(t, conn, ws.ActionMove, "move", map[string]any{
		"gameId":       created.GameID,
		"movePosition": "4",
		"gameKey":      *created.GameKey,
	})
	snap := decode(t, await(t, conn, broadcastWith(2)))
	assert.Equal(t, 1, snap.GameField[4])
	assert.Contains(t, snap.GameField, -1)
	assert.Nil(t, snap.GameKey)
}

func jsonInt(n int64) string {
	b, _ := json.Marshal(n)
	return string(b)
}

func TestE2E_Memory(t *testing.T) {
	e := newEnv(t, repository.NewMemoryGameStore(botName), repository.NewMemoryUserStore())
	t.Run("match", func(t *testing.T) { runMatch(t, e) })
	t.Run("bot game", func(t *testing.T) { runBotGame(t, e) })
}

func TestE2E_Postgres(t *testing.T) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set")
	}

	dbp, err := pgxpool.New(context.Background(), dsn)
	require.NoError(t, err)
	defer dbp.Close()
	applyMigrationsToPool(t, dbp)

	e := newEnv(t, repository.NewGameRepository(dbp, botName), repository.NewUserRepository(dbp))
	t.Run("match", func(t *testing.T) { runMatch(t, e) })
	t.Run("bot game", func(t *testing.T) { runBotGame(t, e) })
}
