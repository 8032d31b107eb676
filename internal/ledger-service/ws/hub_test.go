package ws

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/radieske/match-betting-ledger/pkg/contracts/events"
)

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	c, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

// send manda msg e espera o pong seguinte: o loop de leitura é sequencial,
// então a assinatura já foi registrada quando o pong chega.
func send(t *testing.T, c *websocket.Conn, msg ClientMsg) {
	t.Helper()
	if err := c.WriteJSON(msg); err != nil {
		t.Fatal(err)
	}
	if err := c.WriteJSON(ClientMsg{Type: "ping"}); err != nil {
		t.Fatal(err)
	}
	var pong map[string]string
	_ = c.SetReadDeadline(time.Now().Add(2 * time.Second))
	if err := c.ReadJSON(&pong); err != nil || pong["type"] != "pong" {
		t.Fatalf("pong = %v err = %v", pong, err)
	}
}

func env(t *testing.T, e events.Event) events.Envelope {
	t.Helper()
	out, err := events.Wrap(e, "id-"+e.EventMatchID(), time.Unix(0, 0))
	if err != nil {
		t.Fatal(err)
	}
	return out
}

func TestHubRoutesByMatch(t *testing.T) {
	hub := NewHub(func(*http.Request) bool { return true })
	srv := httptest.NewServer(http.HandlerFunc(hub.HandleWS))
	defer srv.Close()

	m1 := dial(t, srv)
	all := dial(t, srv)
	send(t, m1, ClientMsg{Type: "subscribe", MatchID: "m1"})
	send(t, all, ClientMsg{Type: "subscribe", MatchID: AllMatches})

	hub.Broadcast(env(t, events.MatchCreated{MatchID: "m2"}))
	hub.Broadcast(env(t, events.MatchResolved{MatchID: "m1", Winner: "draw"}))

	var got events.Envelope
	_ = m1.SetReadDeadline(time.Now().Add(2 * time.Second))
	if err := m1.ReadJSON(&got); err != nil {
		t.Fatal(err)
	}
	if got.MatchID != "m1" || got.Type != events.TypeMatchResolved {
		t.Fatalf("m1 subscriber got %+v", got)
	}

	var first, second events.Envelope
	_ = all.SetReadDeadline(time.Now().Add(2 * time.Second))
	if err := all.ReadJSON(&first); err != nil {
		t.Fatal(err)
	}
	if err := all.ReadJSON(&second); err != nil {
		t.Fatal(err)
	}
	if first.MatchID != "m2" || second.MatchID != "m1" {
		t.Fatalf("wildcard got %s then %s", first.MatchID, second.MatchID)
	}

	send(t, m1, ClientMsg{Type: "unsubscribe", MatchID: "m1"})
	hub.mu.RLock()
	_, still := hub.subs["m1"]
	hub.mu.RUnlock()
	if still {
		t.Fatal("m1 subscription not removed")
	}
}
