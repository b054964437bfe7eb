package irc

import (
	"bufio"
	"crypto/subtle"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/ayame-irc/ayame/irc/config"
)

const (
	serverSoftware = "ayame"
	serverVersion  = "1.0.0"
)

// Server represents an IRC server instance. The nick registry, the pending
// session list, the channel registry and the active-operator set are guarded
// by the embedded lock; the MOTD and operator credentials carry their own.
type Server struct {
	sync.RWMutex
	config   *config.Config
	clients  map[string]*Client // nickname -> registered session
	pending  map[*Client]bool   // accepted sessions with no nick yet
	channels map[string]*Channel
	opers    map[string]bool // nicks currently holding operator status

	opCredentials map[string]string // operator name -> password
	credsLock     sync.RWMutex

	motd     []string
	motdLock sync.RWMutex

	services map[string]Service
	history  *NickHistory
	metrics  *Metrics

	listener    net.Listener
	metricsHTTP *http.Server
	shutdown    chan struct{}
	created     time.Time
}

// NewServer creates an IRC server from a loaded configuration.
func NewServer(cfg *config.Config) *Server {
	s := &Server{
		config:        cfg,
		clients:       make(map[string]*Client),
		pending:       make(map[*Client]bool),
		channels:      make(map[string]*Channel),
		opers:         make(map[string]bool),
		opCredentials: cfg.OperPasswords(),
		services:      make(map[string]Service),
		history:       NewNickHistory(),
		metrics:       newMetrics(),
		shutdown:      make(chan struct{}),
		created:       time.Now(),
	}

	s.registerService(NewNickServ())
	s.registerService(NewHostServ(false))

	s.loadMOTD()

	return s
}

// Name returns the configured server name.
func (s *Server) Name() string {
	return s.config.Server.Name
}

// Start binds the listener and begins accepting connections.
func (s *Server) Start() error {
	listener, err := net.Listen("tcp", s.config.GetListenAddress())
	if err != nil {
		return fmt.Errorf("failed to bind %s: %w", s.config.GetListenAddress(), err)
	}
	s.listener = listener

	log.Printf("Listening on %s", listener.Addr())

	if s.config.Metrics.Enabled {
		if err := s.startMetricsServer(); err != nil {
			return err
		}
	}

	go s.acceptConnections()
	return nil
}

// Addr returns the bound listener address.
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Stop closes the listener and disconnects every session.
func (s *Server) Stop() error {
	log.Printf("Stopping IRC server...")

	close(s.shutdown)

	if s.listener != nil {
		s.listener.Close()
	}

	s.Lock()
	clients := make([]*Client, 0, len(s.clients)+len(s.pending))
	for _, client := range s.clients {
		clients = append(clients, client)
	}
	for client := range s.pending {
		clients = append(clients, client)
	}
	s.Unlock()

	for _, client := range clients {
		client.sendRaw("ERROR :Server shutting down")
		client.conn.Close()
	}

	s.stopMetricsServer()
	return nil
}

// acceptConnections accepts sockets and spawns the per-connection reader and
// pinger tasks.
func (s *Server) acceptConnections() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.shutdown:
				return
			default:
				log.Printf("Error accepting connection: %v", err)
				continue
			}
		}

		ip := remoteIP(conn)

		client := &Client{
			conn:      conn,
			server:    s,
			channels:  make(map[string]bool),
			ipAddr:    ip,
			hostname:  CloakAddress(ip),
			cloaked:   true,
			pongSeen:  true,
			idleSince: time.Now(),
			writer:    bufio.NewWriter(conn),
		}

		s.Lock()
		s.pending[client] = true
		s.Unlock()

		s.metrics.ConnectionsAccepted.Inc()

		go client.handleConnection()
		go client.pingLoop()
	}
}

func remoteIP(conn net.Conn) string {
	host, _, err := net.SplitHostPort(conn.RemoteAddr().String())
	if err != nil {
		return conn.RemoteAddr().String()
	}
	return host
}

// registerService maps a pseudo-user under its reserved name.
func (s *Server) registerService(svc Service) {
	s.services[strings.ToLower(svc.Name())] = svc
}

// lookupService resolves a PRIVMSG target against the reserved service names.
func (s *Server) lookupService(name string) (Service, bool) {
	svc, ok := s.services[strings.ToLower(name)]
	return svc, ok
}

// isNickMapped reports whether a nick is registered.
func (s *Server) isNickMapped(nick string) bool {
	s.RLock()
	defer s.RUnlock()
	_, ok := s.clients[nick]
	return ok
}

// getClient resolves a registered nick to its session.
func (s *Server) getClient(nick string) (*Client, bool) {
	s.RLock()
	defer s.RUnlock()
	client, ok := s.clients[nick]
	return client, ok
}

// getChannel resolves a channel name to its canonical lowercased entry.
func (s *Server) getChannel(name string) (*Channel, bool) {
	s.RLock()
	defer s.RUnlock()
	channel, ok := s.channels[strings.ToLower(name)]
	return channel, ok
}

// getOrCreateChannel resolves a channel, creating it when absent. The second
// result reports whether the channel was created by this call.
func (s *Server) getOrCreateChannel(name string) (*Channel, bool) {
	key := strings.ToLower(name)

	s.Lock()
	defer s.Unlock()

	if channel, ok := s.channels[key]; ok {
		return channel, false
	}

	channel := newChannel(name)
	s.channels[key] = channel
	s.metrics.Channels.Inc()
	return channel, true
}

// removeChannelIfEmpty deletes a channel from the registry once its last
// participant is gone. Emptiness is re-checked while the registry lock is
// held so a concurrent join cannot repopulate a channel we are deleting.
func (s *Server) removeChannelIfEmpty(channel *Channel) {
	s.Lock()

	channel.RLock()
	empty := len(channel.clients) == 0
	channel.RUnlock()

	if !empty {
		s.Unlock()
		return
	}

	delete(s.channels, strings.ToLower(channel.name))
	s.Unlock()
	s.metrics.Channels.Dec()
}

// checkOperCredentials verifies an OPER name/password pair.
func (s *Server) checkOperCredentials(name, password string) bool {
	s.credsLock.RLock()
	defer s.credsLock.RUnlock()

	expected, ok := s.opCredentials[name]
	return ok && subtle.ConstantTimeCompare([]byte(expected), []byte(password)) == 1
}

// loadMOTD reads the MOTD file; a missing file leaves the MOTD unset, which
// surfaces as ERR_NOMOTD.
func (s *Server) loadMOTD() {
	data, err := os.ReadFile(s.config.Server.MOTDPath)
	if err != nil {
		log.Printf("MOTD file %s not available: %v", s.config.Server.MOTDPath, err)
		s.motdLock.Lock()
		s.motd = nil
		s.motdLock.Unlock()
		return
	}

	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")

	s.motdLock.Lock()
	s.motd = lines
	s.motdLock.Unlock()
}

// rehash re-reads the configuration file, refreshing the MOTD and the
// operator credential map.
func (s *Server) rehash() {
	if err := s.config.Reload(); err != nil {
		log.Printf("Rehash failed: %v", err)
		return
	}

	s.credsLock.Lock()
	s.opCredentials = s.config.OperPasswords()
	s.credsLock.Unlock()

	s.loadMOTD()
}

// uptime returns the number of whole seconds since the server started.
func (s *Server) uptime() int64 {
	return int64(time.Since(s.created).Seconds())
}
