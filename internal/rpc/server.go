// Package rpc's Server wraps the ledger core (schema registry, operator
// ledger, conflict engine, packet assembler) behind a Unix-socket
// JSON-RPC endpoint, grounded in the teacher's internal/rpc.Server:
// newline-delimited request/response framing, a bounded connection
// semaphore, and a WaitReady channel signaling listener readiness.
package rpc

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/darianrosebrook/sterling/internal/claimstore"
	"github.com/darianrosebrook/sterling/internal/conflict"
	"github.com/darianrosebrook/sterling/internal/governance"
	"github.com/darianrosebrook/sterling/internal/ledger"
	"github.com/darianrosebrook/sterling/internal/obslog"
	"github.com/darianrosebrook/sterling/internal/packet"
	"github.com/darianrosebrook/sterling/internal/schema"
	"github.com/darianrosebrook/sterling/internal/witness"
)

// ServerVersion identifies the daemon's protocol revision for future
// client/server compatibility checks.
const ServerVersion = "0.1.0"

// Server is the daemon side of the RPC protocol.
type Server struct {
	socketPath string
	registry   *schema.Registry
	core       *ledger.Ledger
	claims     *claimstore.Store
	conflicts  *conflict.Engine
	assembler  *packet.Assembler
	witnesses  *witness.Store
	logger     *slog.Logger

	startTime time.Time

	mu       sync.RWMutex
	listener net.Listener
	shutdown bool
	stopOnce sync.Once

	maxConns      int
	connSemaphore chan struct{}
	requestTimeout time.Duration
	readyChan     chan struct{}
}

// NewServer constructs a Server over the given ledger core components.
func NewServer(socketPath string, registry *schema.Registry, core *ledger.Ledger, claims *claimstore.Store, conflicts *conflict.Engine, assembler *packet.Assembler, witnesses *witness.Store) *Server {
	return &Server{
		socketPath:     socketPath,
		registry:       registry,
		core:           core,
		claims:         claims,
		conflicts:      conflicts,
		assembler:      assembler,
		witnesses:      witnesses,
		logger:         obslog.NewSilent(),
		startTime:      time.Now(),
		maxConns:       100,
		connSemaphore:  make(chan struct{}, 100),
		requestTimeout: 30 * time.Second,
		readyChan:      make(chan struct{}),
	}
}

// Start listens on the Unix socket and serves connections until Stop is
// called. ctx bounds only the listen call; canceling it later does not
// end the accept loop.
func (s *Server) Start(ctx context.Context) error {
	if err := os.MkdirAll(filepath.Dir(s.socketPath), 0o700); err != nil {
		return fmt.Errorf("rpc.Server.Start: ensure socket dir: %w", err)
	}
	_ = os.Remove(s.socketPath)

	lc := net.ListenConfig{}
	listener, err := lc.Listen(ctx, "unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("rpc.Server.Start: listen: %w", err)
	}
	if err := os.Chmod(s.socketPath, 0o600); err != nil {
		listener.Close()
		return fmt.Errorf("rpc.Server.Start: chmod socket: %w", err)
	}

	s.mu.Lock()
	s.listener = listener
	s.mu.Unlock()
	close(s.readyChan)

	for {
		conn, err := listener.Accept()
		if err != nil {
			s.mu.RLock()
			shutdown := s.shutdown
			s.mu.RUnlock()
			if shutdown {
				return nil
			}
			return fmt.Errorf("rpc.Server.Start: accept: %w", err)
		}

		select {
		case s.connSemaphore <- struct{}{}:
			go func(c net.Conn) {
				defer func() { <-s.connSemaphore }()
				s.handleConnection(c)
			}(conn)
		default:
			conn.Close()
		}
	}
}

// WaitReady blocks until the listener is accepting connections.
func (s *Server) WaitReady() <-chan struct{} { return s.readyChan }

// Stop closes the listener and removes the socket file.
func (s *Server) Stop() error {
	var err error
	s.stopOnce.Do(func() {
		s.mu.Lock()
		s.shutdown = true
		listener := s.listener
		s.listener = nil
		s.mu.Unlock()

		if listener != nil {
			if closeErr := listener.Close(); closeErr != nil {
				err = fmt.Errorf("rpc.Server.Stop: close listener: %w", closeErr)
			}
		}
		_ = os.Remove(s.socketPath)
	})
	return err
}

func (s *Server) handleConnection(conn net.Conn) {
	defer conn.Close()
	reader := bufio.NewReader(conn)
	writer := bufio.NewWriter(conn)

	for {
		if err := conn.SetReadDeadline(time.Now().Add(s.requestTimeout)); err != nil {
			return
		}
		line, err := reader.ReadBytes('\n')
		if err != nil {
			return
		}

		var req Request
		if err := json.Unmarshal(line, &req); err != nil {
			s.writeResponse(writer, Response{Success: false, Error: fmt.Sprintf("invalid request: %v", err)})
			continue
		}

		if err := conn.SetWriteDeadline(time.Now().Add(s.requestTimeout)); err != nil {
			return
		}
		s.writeResponse(writer, s.handleRequest(&req))
	}
}

func (s *Server) writeResponse(w *bufio.Writer, resp Response) {
	data, _ := json.Marshal(resp)
	w.Write(data)
	w.WriteByte('\n')
	w.Flush()
}

func (s *Server) handleRequest(req *Request) Response {
	ctx := context.Background()
	switch req.Operation {
	case OpPing:
		return s.handlePing()
	case OpHealth:
		return s.handleHealth()
	case OpSchemaRegister:
		return s.handleSchemaRegister(ctx, req)
	case OpSchemaGet:
		return s.handleSchemaGet(ctx, req)
	case OpSchemaList:
		return s.handleSchemaList(ctx)
	case OpSchemaMigrate:
		return s.handleSchemaMigrate(ctx, req)
	case OpOpCommit:
		return s.handleOpCommit(ctx, req)
	case OpOpList:
		return s.handleOpList()
	case OpConflictList:
		return s.handleConflictList()
	case OpConflictShow:
		return s.handleConflictShow(req)
	case OpPacketAssemble:
		return s.handlePacketAssemble(ctx, req)
	case OpClaimGet:
		return s.handleClaimGet(req)
	case OpClaimList:
		return s.handleClaimList(req)
	case OpFailureShow:
		return s.handleFailureShow(req)
	case OpFailureList:
		return s.handleFailureList()
	default:
		return Response{Success: false, Error: fmt.Sprintf("unknown operation %q", req.Operation)}
	}
}

func ok(v any) Response {
	data, err := json.Marshal(v)
	if err != nil {
		return Response{Success: false, Error: err.Error()}
	}
	return Response{Success: true, Data: data}
}

func fail(err error) Response { return Response{Success: false, Error: err.Error()} }

func (s *Server) handlePing() Response {
	return ok(PingResponse{Message: "pong", Version: ServerVersion})
}

func (s *Server) handleHealth() Response {
	return ok(HealthResponse{Status: "healthy", UptimeMs: time.Since(s.startTime).Milliseconds()})
}

func (s *Server) handleSchemaRegister(ctx context.Context, req *Request) Response {
	var args SchemaRegisterArgs
	if err := json.Unmarshal(req.Args, &args); err != nil {
		return fail(err)
	}
	if err := s.registry.Register(ctx, args.Schema); err != nil {
		return fail(err)
	}
	return ok(args.Schema)
}

func (s *Server) handleSchemaGet(ctx context.Context, req *Request) Response {
	var args SchemaGetArgs
	if err := json.Unmarshal(req.Args, &args); err != nil {
		return fail(err)
	}
	def, err := s.registry.Get(ctx, args.SchemaID)
	if err != nil {
		return fail(err)
	}
	return ok(def)
}

func (s *Server) handleSchemaList(ctx context.Context) Response {
	defs, err := s.registry.List(ctx)
	if err != nil {
		return fail(err)
	}
	return ok(defs)
}

func (s *Server) handleSchemaMigrate(ctx context.Context, req *Request) Response {
	var args SchemaMigrateArgs
	if err := json.Unmarshal(req.Args, &args); err != nil {
		return fail(err)
	}
	def, err := s.registry.Migrate(ctx, args.SchemaID, args.Descriptor)
	if err != nil {
		return fail(err)
	}
	return ok(def)
}

func (s *Server) handleOpCommit(ctx context.Context, req *Request) Response {
	var args OpCommitArgs
	if err := json.Unmarshal(req.Args, &args); err != nil {
		return fail(err)
	}
	gov, err := governance.NewContext(args.RunIntent, s.witnesses)
	if err != nil {
		return fail(err)
	}
	op, err := s.core.Commit(ctx, args.OperatorID, args.Args, args.Delta, args.Support, gov)
	if err != nil {
		return fail(err)
	}
	return ok(op)
}

func (s *Server) handleOpList() Response {
	return ok(s.core.Rows())
}

func (s *Server) handleConflictList() Response {
	return ok(s.conflicts.All())
}

func (s *Server) handleConflictShow(req *Request) Response {
	var args ConflictShowArgs
	if err := json.Unmarshal(req.Args, &args); err != nil {
		return fail(err)
	}
	return ok(s.conflicts.Touching(args.Signature))
}

func (s *Server) handlePacketAssemble(ctx context.Context, req *Request) Response {
	var args PacketAssembleArgs
	if err := json.Unmarshal(req.Args, &args); err != nil {
		return fail(err)
	}
	p, certFailure, err := s.assembler.Assemble(ctx, args.Task, args.Budget)
	if err != nil {
		return fail(err)
	}
	if certFailure != nil {
		return ok(certFailure)
	}
	return ok(p)
}

func (s *Server) handleClaimGet(req *Request) Response {
	var args ClaimGetArgs
	if err := json.Unmarshal(req.Args, &args); err != nil {
		return fail(err)
	}
	row, ok2 := s.claims.Get(args.Signature)
	if !ok2 {
		return fail(fmt.Errorf("claim not found: %s", args.Signature))
	}
	return ok(row)
}

func (s *Server) handleClaimList(req *Request) Response {
	var args ClaimListArgs
	if len(req.Args) > 0 {
		if err := json.Unmarshal(req.Args, &args); err != nil {
			return fail(err)
		}
	}
	return ok(s.claims.List(args.SchemaID))
}

func (s *Server) handleFailureShow(req *Request) Response {
	var args FailureShowArgs
	if err := json.Unmarshal(req.Args, &args); err != nil {
		return fail(err)
	}
	w, ok2 := s.witnesses.Lookup(args.RecordID)
	if !ok2 {
		return fail(fmt.Errorf("witness record not found: %s", args.RecordID))
	}
	return ok(w)
}

func (s *Server) handleFailureList() Response {
	return ok(s.witnesses.All())
}
