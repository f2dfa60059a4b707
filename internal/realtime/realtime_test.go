package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/adherence-api/internal/middleware"
	"github.com/jwalitptl/adherence-api/internal/model"
	"github.com/jwalitptl/adherence-api/pkg/auth"
	"github.com/jwalitptl/adherence-api/pkg/messaging"
	"github.com/jwalitptl/adherence-api/pkg/metrics"
)

func TestTopicsFor(t *testing.T) {
	pharmacyID, clientID := uuid.New(), uuid.New()

	assert.Equal(t, []string{model.PharmacyTopic(pharmacyID)},
		TopicsFor(&model.Principal{Role: model.RolePharmacy, PharmacyID: pharmacyID}))
	assert.Equal(t, []string{model.ClientTopic(clientID), model.AdsTopic(pharmacyID)},
		TopicsFor(&model.Principal{Role: model.RoleClient, PharmacyID: pharmacyID, ClientID: &clientID}))
}

func TestHubBroadcast(t *testing.T) {
	m := metrics.NewNop()
	hub := NewHub(m)

	a := NewClient("pharmacy:a")
	b := NewClient("pharmacy:b", "ads:a")
	hub.Register(a)
	hub.Register(b)
	assert.Equal(t, 2, hub.ClientCount())
	assert.Equal(t, float64(2), testutil.ToFloat64(m.WebsocketConnections))

	assert.Equal(t, 1, hub.Broadcast("pharmacy:a", []byte("x")))
	assert.Equal(t, []byte("x"), <-a.Send)
	assert.Empty(t, b.Send)

	assert.Equal(t, 0, hub.Broadcast("nobody", []byte("y")))

	hub.Unregister(b)
	hub.Unregister(b)
	assert.Equal(t, 0, hub.TopicCount("ads:a"))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.WebsocketConnections))
	_, open := <-b.Send
	assert.False(t, open)
}

func TestHubDropsForSlowClient(t *testing.T) {
	hub := NewHub(metrics.NewNop())
	c := NewClient("t")
	hub.Register(c)

	for i := 0; i < sendBuffer; i++ {
		require.Equal(t, 1, hub.Broadcast("t", []byte("m")))
	}
	assert.Equal(t, 0, hub.Broadcast("t", []byte("m")))
}

func TestRelayDispatch(t *testing.T) {
	hub := NewHub(metrics.NewNop())
	c := NewClient("client:1")
	hub.Register(c)
	r := NewRelay(messaging.NewMemoryBroker(), hub, "")
	var seen []string
	r.OnEvent(func(ev model.ChangeEvent) { seen = append(seen, ev.Topic) })

	r.dispatch([]byte("not json"))
	r.dispatch([]byte(`{"type":"doses.changed"}`))
	assert.Empty(t, c.Send)
	assert.Empty(t, seen)

	r.dispatch([]byte(`{"type":"doses.changed","topic":"client:1"}`))
	assert.Len(t, c.Send, 1)
	assert.Equal(t, []string{"client:1"}, seen)
}

func TestWebsocketEndToEnd(t *testing.T) {
	gin.SetMode(gin.TestMode)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	jwtSvc, err := auth.NewJWTService(auth.Config{Secret: "ws-secret"})
	require.NoError(t, err)
	pharmacyID := uuid.New()
	token, err := jwtSvc.GenerateAccessToken(auth.Subject{AccountID: uuid.New(), Role: auth.RolePharmacy, PharmacyID: pharmacyID})
	require.NoError(t, err)

	hub := NewHub(metrics.NewNop())
	broker := messaging.NewMemoryBroker()
	relay := NewRelay(broker, hub, messaging.ChannelEvents)
	go func() { _ = relay.Run(ctx) }()

	r := gin.New()
	NewHandler(hub, []string{"*"}).RegisterRoutes(r.Group("/api/v1"), middleware.NewAuthMiddleware(jwtSvc).Authenticate())
	srv := httptest.NewServer(r)
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/realtime/ws"

	_, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL+"?token="+token, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return hub.TopicCount(model.PharmacyTopic(pharmacyID)) == 1 },
		time.Second, 10*time.Millisecond)

	ev := model.ChangeEvent{
		Type:       model.EventClientsChanged,
		Topic:      model.PharmacyTopic(pharmacyID),
		ResourceID: uuid.New(),
		Timestamp:  time.Now().UTC(),
	}
	payload, err := json.Marshal(ev)
	require.NoError(t, err)

	// the relay subscribes asynchronously; publish until the event arrives
	received := make(chan model.ChangeEvent, 1)
	go func() {
		var got model.ChangeEvent
		if err := conn.ReadJSON(&got); err == nil {
			received <- got
		}
	}()
	var got model.ChangeEvent
	require.Eventually(t, func() bool {
		_ = broker.Publish(ctx, messaging.ChannelEvents, payload)
		select {
		case got = <-received:
			return true
		case <-time.After(20 * time.Millisecond):
			return false
		}
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, ev.ResourceID, got.ResourceID)
	assert.Equal(t, model.EventClientsChanged, got.Type)
}
