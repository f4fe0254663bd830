package observer

import (
	"encoding/json"
	"log"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"robogrid.ai/internal/protocol"
)

// Info is the static part of the bootstrap response.
type Info struct {
	WorldID string
	Program string
	Params  protocol.WorldParams

	// Every is the frame interval for observers that do not ask for one.
	Every int
}

type Server struct {
	hub  *Hub
	info Info
	log  *log.Logger

	upgrader websocket.Upgrader
}

func NewServer(hub *Hub, info Info, logger *log.Logger) *Server {
	return &Server{
		hub:  hub,
		info: info,
		log:  logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
	}
}

func (s *Server) BootstrapHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			rw.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}

		resp := protocol.BootstrapResponse{
			ProtocolVersion: protocol.Version,
			WorldID:         s.info.WorldID,
			Program:         s.info.Program,
			WorldParams:     s.info.Params,
		}
		if f, ok := s.hub.Latest(); ok {
			resp.Round = f.Round
			resp.Population = f.Population
			resp.Done = f.Done
		}

		rw.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(rw).Encode(resp)
	}
}

func (s *Server) WSHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}

		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		// Handshake: must send SUBSCRIBE first.
		_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		sub, ok := decodeSubscribe(msg)
		if !ok {
			s.reject(conn, protocol.ErrProtoBadRequest, "expected SUBSCRIBE")
			return
		}

		id, frames := s.hub.subscribe(s.every(sub), sub.Compact)
		defer s.hub.unsubscribe(id)
		if s.log != nil {
			s.log.Printf("observer %s subscribed every=%d compact=%v", r.RemoteAddr, normalizeEvery(s.every(sub)), sub.Compact)
		}

		// Reader loop: SUBSCRIBE updates change the frame rate; a read error ends the session.
		readErr := make(chan error, 1)
		go func() {
			for {
				_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
				_, msg, err := conn.ReadMessage()
				if err != nil {
					readErr <- err
					return
				}
				if sub, ok := decodeSubscribe(msg); ok {
					s.hub.update(id, s.every(sub), sub.Compact)
				}
			}
		}()

		for {
			select {
			case <-readErr:
				return
			case b := <-frames:
				_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
				if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
					return
				}
			}
		}
	}
}

func (s *Server) every(sub protocol.SubscribeMsg) int {
	if sub.Every > 0 {
		return sub.Every
	}
	return s.info.Every
}

func decodeSubscribe(msg []byte) (protocol.SubscribeMsg, bool) {
	var sub protocol.SubscribeMsg
	if err := json.Unmarshal(msg, &sub); err != nil {
		return sub, false
	}
	if sub.Type != protocol.TypeSubscribe || sub.ProtocolVersion != protocol.Version {
		return sub, false
	}
	return sub, true
}

func (s *Server) reject(conn *websocket.Conn, code, message string) {
	b, _ := json.Marshal(protocol.NewError(code, message))
	_ = conn.SetWriteDeadline(time.Now().Add(time.Second))
	_ = conn.WriteMessage(websocket.TextMessage, b)
	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, message), time.Now().Add(time.Second))
}

func isLoopbackRemote(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	host = strings.TrimPrefix(host, "[")
	host = strings.TrimSuffix(host, "]")
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
