package realtime

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"horeca-pos/backend/internal/security"
)

const (
	// sendBuffer is the per-member outbound queue; when it is full the
	// message is dropped for that member (at-most-once, no backpressure
	// onto the rest of the room).
	sendBuffer = 32
	// writeTimeout bounds a single outbound write.
	writeTimeout = 5 * time.Second
)

// Gateway relays channel messages between the members of a tenant room.
// It holds no message history: a member that was absent for a broadcast
// recovers session state through the record store, not through the
// gateway.
type Gateway struct {
	tokens *security.TokenProvider // nil disables auth (dev mode)
	logger *slog.Logger

	mu    sync.Mutex
	rooms map[string]map[*member]struct{}

	relayed   metric.Int64Counter
	dropped   metric.Int64Counter
	connected metric.Int64UpDownCounter
}

type member struct {
	id     string
	tenant string
	conn   *websocket.Conn
	out    chan []byte
}

// NewGateway returns a gateway validating join tokens with tokens. A nil
// provider trusts the tenant_id query parameter, for local development.
func NewGateway(tokens *security.TokenProvider, logger *slog.Logger) *Gateway {
	if logger == nil {
		logger = slog.Default()
	}
	meter := otel.Meter("horeca-pos/backend/internal/realtime")
	relayed, _ := meter.Int64Counter("cobrowse.gateway.messages_relayed")
	dropped, _ := meter.Int64Counter("cobrowse.gateway.messages_dropped")
	connected, _ := meter.Int64UpDownCounter("cobrowse.gateway.members")
	return &Gateway{
		tokens:    tokens,
		logger:    logger,
		rooms:     make(map[string]map[*member]struct{}),
		relayed:   relayed,
		dropped:   dropped,
		connected: connected,
	}
}

// ServeHTTP upgrades the request to a WebSocket and joins the caller to
// its tenant room until the connection closes.
func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := g.authorize(w, r)
	if !ok {
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: []string{"*"}})
	if err != nil {
		g.logger.Warn("realtime: websocket accept failed", "tenant_id", tenantID, "err", err)
		return
	}

	m := &member{
		id:     uuid.New().String(),
		tenant: tenantID,
		conn:   conn,
		out:    make(chan []byte, sendBuffer),
	}
	g.join(m)
	g.logger.Info("realtime: member joined", "tenant_id", tenantID, "member_id", m.id)

	// The request context ends when this handler returns; the writer and
	// reader run against their own context tied to the connection.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go g.writeLoop(ctx, m)

	g.readLoop(ctx, m)

	g.leave(m)
	conn.Close(websocket.StatusNormalClosure, "")
	g.logger.Info("realtime: member left", "tenant_id", tenantID, "member_id", m.id)
}

// authorize validates the bearer token (Authorization header or token
// query parameter) and pins the room to the token's tenant claim.
func (g *Gateway) authorize(w http.ResponseWriter, r *http.Request) (string, bool) {
	queryTenant := r.URL.Query().Get("tenant_id")
	if g.tokens == nil {
		if queryTenant == "" {
			http.Error(w, "tenant_id required", http.StatusBadRequest)
			return "", false
		}
		return queryTenant, true
	}

	token := bearerToken(r)
	if token == "" {
		http.Error(w, "missing or invalid authorization", http.StatusUnauthorized)
		return "", false
	}
	id, err := g.tokens.ValidateAccess(token)
	if err != nil {
		http.Error(w, "missing or invalid authorization", http.StatusUnauthorized)
		return "", false
	}
	if queryTenant != "" && queryTenant != id.TenantID {
		http.Error(w, "tenant mismatch", http.StatusForbidden)
		return "", false
	}
	return id.TenantID, true
}

func (g *Gateway) join(m *member) {
	g.mu.Lock()
	if g.rooms[m.tenant] == nil {
		g.rooms[m.tenant] = make(map[*member]struct{})
	}
	g.rooms[m.tenant][m] = struct{}{}
	g.mu.Unlock()
	g.connected.Add(context.Background(), 1, metric.WithAttributes(attribute.String("tenant_id", m.tenant)))
}

func (g *Gateway) leave(m *member) {
	g.mu.Lock()
	if room, ok := g.rooms[m.tenant]; ok {
		delete(room, m)
		if len(room) == 0 {
			delete(g.rooms, m.tenant)
		}
	}
	g.mu.Unlock()
	g.connected.Add(context.Background(), -1, metric.WithAttributes(attribute.String("tenant_id", m.tenant)))
}

func (g *Gateway) readLoop(ctx context.Context, m *member) {
	for {
		typ, data, err := m.conn.Read(ctx)
		if err != nil {
			return
		}
		if typ != websocket.MessageText {
			continue
		}
		var env Envelope
		if err := json.Unmarshal(data, &env); err != nil || !knownEvent(env.Event) {
			g.logger.Warn("realtime: dropping malformed frame", "tenant_id", m.tenant, "member_id", m.id)
			continue
		}
		g.relay(m, data)
	}
}

// relay fans the frame out to every other member of the room. Members
// whose queue is full miss this message.
func (g *Gateway) relay(from *member, data []byte) {
	g.mu.Lock()
	peers := make([]*member, 0, len(g.rooms[from.tenant]))
	for peer := range g.rooms[from.tenant] {
		if peer != from {
			peers = append(peers, peer)
		}
	}
	g.mu.Unlock()

	attrs := metric.WithAttributes(attribute.String("tenant_id", from.tenant))
	for _, peer := range peers {
		select {
		case peer.out <- data:
			g.relayed.Add(context.Background(), 1, attrs)
		default:
			g.dropped.Add(context.Background(), 1, attrs)
			g.logger.Warn("realtime: slow member, message dropped", "tenant_id", from.tenant, "member_id", peer.id)
		}
	}
}

func (g *Gateway) writeLoop(ctx context.Context, m *member) {
	for {
		select {
		case <-ctx.Done():
			return
		case data := <-m.out:
			writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := m.conn.Write(writeCtx, websocket.MessageText, data)
			cancel()
			if err != nil {
				return
			}
		}
	}
}

// Close disconnects every member; used on server shutdown.
func (g *Gateway) Close() {
	g.mu.Lock()
	var members []*member
	for _, room := range g.rooms {
		for m := range room {
			members = append(members, m)
		}
	}
	g.rooms = make(map[string]map[*member]struct{})
	g.mu.Unlock()
	for _, m := range members {
		m.conn.Close(websocket.StatusGoingAway, "server shutting down")
	}
}

func bearerToken(r *http.Request) string {
	const prefix = "Bearer "
	h := r.Header.Get("Authorization")
	if len(h) > len(prefix) && h[:len(prefix)] == prefix {
		return h[len(prefix):]
	}
	return r.URL.Query().Get("token")
}
