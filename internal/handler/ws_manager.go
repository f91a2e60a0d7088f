package handler

import (
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Client is one websocket connection watching a patient's session.
type Client struct {
	ID        uuid.UUID
	PatientID string
	Conn      *websocket.Conn
	send      chan []byte
	// registered is closed once the manager tracks the client.
	registered chan struct{}
}

// NewClient wraps conn for patientID with a send queue of the given size.
func NewClient(patientID string, conn *websocket.Conn, queue int) *Client {
	return &Client{
		ID:         uuid.New(),
		PatientID:  patientID,
		Conn:       conn,
		send:       make(chan []byte, queue),
		registered: make(chan struct{}),
	}
}

// ConnectionManager tracks the websocket clients of every patient.
type ConnectionManager struct {
	clients    map[string]map[uuid.UUID]*Client
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	stopOnce   sync.Once
	mu         sync.RWMutex
	logger     *zap.Logger
}

// NewConnectionManager creates a manager and starts its loop.
func NewConnectionManager(logger *zap.Logger) *ConnectionManager {
	m := &ConnectionManager{
		clients:    make(map[string]map[uuid.UUID]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		logger:     logger.Named("ConnectionManager"),
	}
	go m.run()
	return m
}

func (m *ConnectionManager) run() {
	for {
		select {
		case client := <-m.register:
			m.mu.Lock()
			if m.clients[client.PatientID] == nil {
				m.clients[client.PatientID] = make(map[uuid.UUID]*Client)
			}
			m.clients[client.PatientID][client.ID] = client
			m.mu.Unlock()
			close(client.registered)
			m.logger.Info("Client registered", zap.String("patientID", client.PatientID), zap.Stringer("clientID", client.ID))

		case client := <-m.unregister:
			m.mu.Lock()
			if set, ok := m.clients[client.PatientID]; ok {
				if _, ok := set[client.ID]; ok {
					delete(set, client.ID)
					close(client.send)
					if len(set) == 0 {
						delete(m.clients, client.PatientID)
					}
					m.logger.Info("Client unregistered", zap.String("patientID", client.PatientID), zap.Stringer("clientID", client.ID))
				}
			}
			m.mu.Unlock()

		case <-m.done:
			m.mu.Lock()
			for patientID, set := range m.clients {
				for _, client := range set {
					close(client.send)
				}
				delete(m.clients, patientID)
			}
			m.mu.Unlock()
			return
		}
	}
}

// RegisterClient adds client and returns once it can receive messages.
// After Stop the client's queue is closed instead.
func (m *ConnectionManager) RegisterClient(client *Client) {
	select {
	case m.register <- client:
		<-client.registered
	case <-m.done:
		close(client.send)
	}
}

// UnregisterClient removes client and closes its send channel.
func (m *ConnectionManager) UnregisterClient(client *Client) {
	select {
	case m.unregister <- client:
	case <-m.done:
	}
}

// Send queues message for client. It reports false when the client is gone or its queue is full.
func (m *ConnectionManager) Send(client *Client, message []byte) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if _, ok := m.clients[client.PatientID][client.ID]; !ok {
		return false
	}
	select {
	case client.send <- message:
		return true
	default:
		m.logger.Warn("Client send queue full, dropping message", zap.String("patientID", client.PatientID), zap.Stringer("clientID", client.ID))
		return false
	}
}

// ClientCount returns the number of connections watching patientID.
func (m *ConnectionManager) ClientCount(patientID string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.clients[patientID])
}

// Stop closes every client queue and ends the loop.
func (m *ConnectionManager) Stop() {
	m.stopOnce.Do(func() { close(m.done) })
}
