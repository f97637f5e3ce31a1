package ws

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"tictactoe_live/internal/domain"
	"tictactoe_live/internal/game"
)

// Inbound is one client message.
type Inbound struct {
	Action *string                    `json:"action"`
	Args   map[string]json.RawMessage `json:"args"`
	MsgID  json.RawMessage            `json:"msgId"`
}

// Outbound is every server message: a response or a broadcast.
type Outbound struct {
	Action  *string         `json:"action"`
	Success bool            `json:"success"`
	Data    any             `json:"data,omitempty"`
	Error   *ErrorBody      `json:"error,omitempty"`
	MsgID   json.RawMessage `json:"msgId"`
}

type ErrorBody struct {
	Data   any                        `json:"data"`
	Reason string                     `json:"reason"`
	Args   map[string]json.RawMessage `json:"args,omitempty"`
}

const (
	ActionPing        = "ping"
	ActionSubscribe   = "subscribeGame"
	ActionUnsubscribe = "unsubscribeGame"
	ActionView        = "viewGame"
	ActionMove        = "makeMove"
	ActionHelp        = "help"
	ActionBroadcast   = "broadcast"
)

type command struct {
	Args []string `json:"args"`
	Desc string   `json:"desc"`
}

var catalogue = map[string]command{
	ActionPing:        {Args: []string{}, Desc: `returns "pong", use this to test the connection and its speed`},
	ActionSubscribe:   {Args: []string{"gameId"}, Desc: "receive a broadcast with the game state after every move"},
	ActionUnsubscribe: {Args: []string{"gameId"}, Desc: "stop receiving broadcasts for a game"},
	ActionView:        {Args: []string{"gameId"}, Desc: "returns the state and board of a game"},
	ActionMove:        {Args: []string{"gameId", "movePosition", "?token", "?gameKey"}, Desc: "makes a move on a certain game at the given position"},
	ActionHelp:        {Args: []string{}, Desc: "lists the available actions"},
}

// GameAPI is what the protocol needs from the admission path.
type GameAPI interface {
	Submit(ctx context.Context, req domain.MoveRequest) (*domain.Snapshot, error)
	View(ctx context.Context, id int64) (*domain.Snapshot, error)
}

// Authenticator resolves a session token to an identity.
type Authenticator interface {
	AuthenticateToken(token string) (string, bool)
}

// Dispatcher turns inbound messages into hub and game operations.
type Dispatcher struct {
	hub   *Hub
	games GameAPI
	auth  Authenticator
	log   *slog.Logger
}

func NewDispatcher(hub *Hub, games GameAPI, auth Authenticator, log *slog.Logger) *Dispatcher {
	return &Dispatcher{hub: hub, games: games, auth: auth, log: log}
}

// Handle processes one raw message from conn and returns the response.
func (d *Dispatcher) Handle(ctx context.Context, conn Conn, raw []byte) *Outbound {
	var in Inbound
	if err := json.Unmarshal(raw, &in); err != nil {
		return &Outbound{
			Error: &ErrorBody{
				Data:   []string{"unparseable data", string(raw)},
				Reason: "malformed_request",
			},
		}
	}
	if in.Action == nil {
		return d.fail(in, "missing action", game.ErrMalformedRequest)
	}

	switch *in.Action {
	case ActionPing:
		return d.ok(in, "pong")

	case ActionSubscribe:
		id, err := gameIDArg(in.Args)
		if err != nil {
			return d.fail(in, err.Error(), game.ErrMalformedRequest)
		}
		if err := d.hub.Subscribe(id, conn, in.MsgID); err != nil {
			return d.fail(in, "failed to subscribe to game", err)
		}
		return d.ok(in, map[string]int64{"gameId": id})

	case ActionUnsubscribe:
		id, err := gameIDArg(in.Args)
		if err != nil {
			return d.fail(in, err.Error(), game.ErrMalformedRequest)
		}
		d.hub.Unsubscribe(conn, &id)
		return d.ok(in, map[string]int64{"gameId": id})

	case ActionView:
		id, err := gameIDArg(in.Args)
		if err != nil {
			return d.fail(in, err.Error(), game.ErrMalformedRequest)
		}
		snap, err := d.games.View(ctx, id)
		if err != nil {
			return d.fail(in, "failed to view game", err)
		}
		return d.ok(in, snap)

	case ActionMove:
		return d.makeMove(ctx, in)

	case ActionHelp:
		return d.ok(in, catalogue)
	}

	return d.fail(in, `unknown action "`+*in.Action+`". send {"action":"help"} to receive docs`, game.ErrMalformedRequest)
}

func (d *Dispatcher) makeMove(ctx context.Context, in Inbound) *Outbound {
	id, err := gameIDArg(in.Args)
	if err != nil {
		return d.fail(in, err.Error(), game.ErrMalformedRequest)
	}
	pos, err := intArg(in.Args, "movePosition")
	if err != nil {
		return d.fail(in, err.Error(), game.ErrMalformedRequest)
	}

	req := domain.MoveRequest{GameID: id, Position: int(pos)}
	if token, ok, err := stringArg(in.Args, "token"); err != nil {
		return d.fail(in, err.Error(), game.ErrMalformedRequest)
	} else if ok && token != "" {
		who, valid := d.auth.AuthenticateToken(token)
		if !valid {
			return d.fail(in, "authentication failed", game.ErrUnauthorized)
		}
		req.Mover = &who
	}
	if key, ok, err := stringArg(in.Args, "gameKey"); err != nil {
		return d.fail(in, err.Error(), game.ErrMalformedRequest)
	} else if ok {
		req.Secret = key
	}

	if _, err := d.games.Submit(ctx, req); err != nil {
		return d.fail(in, "failed to make move", err)
	}
	return d.ok(in, map[string]bool{"success": true})
}

func (d *Dispatcher) ok(in Inbound, data any) *Outbound {
	return &Outbound{Action: in.Action, Success: true, Data: data, MsgID: in.MsgID}
}

// fail builds an error response. Rejections carry their own message; any
// other error is logged and reported with the generic one.
func (d *Dispatcher) fail(in Inbound, msg string, err error) *Outbound {
	reason := game.Reason(err)
	if game.IsRejection(err) {
		if !errors.Is(err, game.ErrMalformedRequest) {
			msg = err.Error()
		}
	} else {
		action := ""
		if in.Action != nil {
			action = *in.Action
		}
		d.log.Error("ws action failed", "action", action, "error", err)
	}
	return &Outbound{
		Action: in.Action,
		Error:  &ErrorBody{Data: msg, Reason: reason, Args: in.Args},
		MsgID:  in.MsgID,
	}
}

func encodeBroadcast(data []byte, tag string) ([]byte, error) {
	action := ActionBroadcast
	var msgID json.RawMessage
	if tag != "" {
		msgID = json.RawMessage(tag)
	}
	return json.Marshal(Outbound{
		Action:  &action,
		Success: true,
		Data:    json.RawMessage(data),
		MsgID:   msgID,
	})
}

func gameIDArg(args map[string]json.RawMessage) (int64, error) {
	return intArg(args, "gameId")
}

// intArg accepts a JSON number or a numeric string.
func intArg(args map[string]json.RawMessage, name string) (int64, error) {
	raw, ok := args[name]
	if !ok || isNull(raw) {
		return 0, fmt.Errorf("parameter not given: %s", name)
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		if v, err := n.Int64(); err == nil {
			return v, nil
		}
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if v, err := strconv.ParseInt(s, 10, 64); err == nil {
			return v, nil
		}
	}
	return 0, fmt.Errorf("parameter is not an integer: %s", name)
}

func stringArg(args map[string]json.RawMessage, name string) (string, bool, error) {
	raw, ok := args[name]
	if !ok || isNull(raw) {
		return "", false, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false, fmt.Errorf("parameter is not a string: %s", name)
	}
	return s, true, nil
}

func isNull(raw json.RawMessage) bool {
	return len(bytes.TrimSpace(raw)) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}
