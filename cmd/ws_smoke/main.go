package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/websocket"
)

type snapshot struct {
	GameID    int64   `json:"gameId"`
	Defender  *string `json:"defender"`
	GameField []int   `json:"gameField"`
	MoveCount int     `json:"moveCount"`
	Outcome   string  `json:"outcome"`
	GameKey   *string `json:"gameKey"`
}

type message struct {
	Action  *string         `json:"action"`
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   json.RawMessage `json:"error"`
	MsgID   json.RawMessage `json:"msgId"`
}

// Plays the centre cell of a fresh bot game as a guest and waits for the
// bot's reply to be broadcast.
func main() {
	port := os.Getenv("APP_PORT")
	if port == "" {
		port = "8080"
	}
	// use 127.0.0.1 to prefer IPv4 (avoid resolving to [::1])
	host := flag.String("host", "127.0.0.1:"+port, "server address")
	flag.Parse()

	res, err := http.Post("http://"+*host+"/api/v1/games", "application/json", bytes.NewBufferString(`{}`))
	if err != nil {
		log.Fatalf("create game: %v", err)
	}
	var created snapshot
	err = json.NewDecoder(res.Body).Decode(&created)
	res.Body.Close()
	if err != nil || res.StatusCode != http.StatusCreated {
		log.Fatalf("create game: status=%d err=%v", res.StatusCode, err)
	}
	if created.GameKey == nil {
		log.Fatal("create game: no gameKey for guest game")
	}
	log.Printf("created game %d against %v", created.GameID, deref(created.Defender))

	conn, _, err := websocket.DefaultDialer.Dial("ws://"+*host+"/ws", nil)
	if err != nil {
		log.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	send := func(v any) {
		if err := conn.WriteJSON(v); err != nil {
			log.Fatalf("write: %v", err)
		}
	}

	send(map[string]any{"action": "subscribeGame", "args": map[string]any{"gameId": created.GameID}, "msgId": "sub"})
	send(map[string]any{"action": "makeMove", "msgId": "move", "args": map[string]any{
		"gameId":       created.GameID,
		"movePosition": 4,
		"gameKey":      *created.GameKey,
	}})

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		conn.SetReadDeadline(deadline)
		var msg message
		if err := conn.ReadJSON(&msg); err != nil {
			log.Fatalf("read: %v", err)
		}
		if !msg.Success {
			log.Fatalf("server rejected %s: %s", string(msg.MsgID), string(msg.Error))
		}
		if msg.Action == nil || *msg.Action != "broadcast" {
			log.Printf("response %s: %s", string(msg.MsgID), string(msg.Data))
			continue
		}
		var snap snapshot
		if err := json.Unmarshal(msg.Data, &snap); err != nil {
			log.Fatalf("decode broadcast: %v", err)
		}
		log.Printf("broadcast: moves=%d field=%v outcome=%s", snap.MoveCount, snap.GameField, snap.Outcome)
		if snap.MoveCount >= 2 {
			log.Println("smoke test finished")
			return
		}
	}
	log.Fatal("timed out waiting for the bot's move")
}

func deref(s *string) string {
	if s == nil {
		return "<guest>"
	}
	return *s
}
