package homeassistant

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/gorilla/websocket"
)

// WebSocket message types of the Home Assistant API.
const (
	msgAuthRequired = "auth_required"
	msgAuth         = "auth"
	msgAuthOK       = "auth_ok"
	msgAuthInvalid  = "auth_invalid"
	msgResult       = "result"
)

// websocketURL turns the REST base URL into the WebSocket endpoint.
func websocketURL(base string) (string, error) {
	u, err := url.Parse(strings.TrimSuffix(base, "/"))
	if err != nil {
		return "", fmt.Errorf("parsing home assistant url: %w", err)
	}
	switch u.Scheme {
	case "http", "ws":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported home assistant url scheme %q", u.Scheme)
	}
	u.Path += "/api/websocket"
	return u.String(), nil
}

type wsEnvelope struct {
	ID      int             `json:"id,omitempty"`
	Type    string          `json:"type"`
	Success bool            `json:"success,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *wsError        `json:"error,omitempty"`
	Message string          `json:"message,omitempty"`
}

type wsError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// wsSession runs request/response commands over one authenticated
// connection. It is not safe for concurrent use.
type wsSession struct {
	conn   *websocket.Conn
	nextID int
}

// authenticate completes the auth_required > auth > auth_ok handshake.
func (s *wsSession) authenticate(token string) error {
	var hello wsEnvelope
	if err := s.conn.ReadJSON(&hello); err != nil {
		return fmt.Errorf("reading auth request: %w", err)
	}
	if hello.Type != msgAuthRequired {
		return fmt.Errorf("%w: expected %s, got %q", ErrCommandFailed, msgAuthRequired, hello.Type)
	}

	if err := s.conn.WriteJSON(map[string]string{"type": msgAuth, "access_token": token}); err != nil {
		return fmt.Errorf("sending auth: %w", err)
	}

	var reply wsEnvelope
	if err := s.conn.ReadJSON(&reply); err != nil {
		return fmt.Errorf("reading auth reply: %w", err)
	}
	switch reply.Type {
	case msgAuthOK:
		return nil
	case msgAuthInvalid:
		return fmt.Errorf("%w: %s", ErrUnauthorized, reply.Message)
	default:
		return fmt.Errorf("%w: unexpected auth reply %q", ErrCommandFailed, reply.Type)
	}
}

// call sends one command and decodes its result into out. Messages for
// other ids (events) are skipped.
func (s *wsSession) call(cmdType string, params map[string]any, out any) error {
	s.nextID++
	id := s.nextID

	msg := make(map[string]any, len(params)+2)
	for k, v := range params {
		msg[k] = v
	}
	msg["id"] = id
	msg["type"] = cmdType

	if err := s.conn.WriteJSON(msg); err != nil {
		return fmt.Errorf("sending %s: %w", cmdType, err)
	}

	for {
		var reply wsEnvelope
		if err := s.conn.ReadJSON(&reply); err != nil {
			return fmt.Errorf("reading %s result: %w", cmdType, err)
		}
		if reply.Type != msgResult || reply.ID != id {
			continue
		}
		if !reply.Success {
			if reply.Error != nil {
				return fmt.Errorf("%w: %s: %s: %s", ErrCommandFailed, cmdType, reply.Error.Code, reply.Error.Message)
			}
			return fmt.Errorf("%w: %s", ErrCommandFailed, cmdType)
		}
		if out == nil {
			return nil
		}
		if err := json.Unmarshal(reply.Result, out); err != nil {
			return fmt.Errorf("decoding %s result: %w", cmdType, err)
		}
		return nil
	}
}
