// Package bridge serves a management connection over HTTP.
package bridge

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	reuseport "github.com/kavu/go_reuseport"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/luma/ovpnctl/client"
	"github.com/luma/ovpnctl/protocol"
	"github.com/luma/ovpnctl/storage"
)

// maxCommandSize bounds the body of POST /command.
const maxCommandSize = 4096

var ErrNotStarted = errors.New("HTTP bridge has not been started")

type HTTP struct {
	addr      string
	reuseport bool

	manager Manager
	store   storage.Store

	router   *gin.Engine
	server   *http.Server
	listener net.Listener

	log *zap.Logger
}

func NewHTTP(options Options) *HTTP {
	log := options.Log
	if log == nil {
		log = zap.NewNop()
	}

	h := &HTTP{
		addr:      options.Addr,
		reuseport: options.Reuseport,
		manager:   options.Manager,
		store:     options.Store,
		log:       log,
	}

	h.router = setupRouter(options.Debug, log)
	h.routes()

	return h
}

// Handler returns the router, for serving the bridge from somewhere else.
func (h *HTTP) Handler() http.Handler {
	return h.router
}

// Start listens on the configured address and serves requests in the
// background until Shutdown is called.
func (h *HTTP) Start(ctx context.Context) error {
	listener, err := h.listen()
	if err != nil {
		return err
	}

	h.listener = listener
	h.server = &http.Server{
		Handler:     h.router,
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	h.log.Info("HTTP bridge listening", zap.String("addr", listener.Addr().String()))

	// Serving in a goroutine so that it won't block the graceful shutdown
	// handling of the caller
	go func() {
		if err := h.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			h.log.Error("Http server errored", zap.Error(err))
		}
	}()

	return nil
}

func (h *HTTP) listen() (net.Listener, error) {
	if h.reuseport {
		return reuseport.Listen("tcp", h.addr)
	}

	return net.Listen("tcp", h.addr)
}

// Addr returns the address the bridge is listening on, nil before Start.
func (h *HTTP) Addr() net.Addr {
	if h.listener == nil {
		return nil
	}

	return h.listener.Addr()
}

// Shutdown stops accepting requests and waits for in-flight requests until
// ctx is done, then closes whatever is left.
func (h *HTTP) Shutdown(ctx context.Context) error {
	if h.server == nil {
		return ErrNotStarted
	}

	h.server.SetKeepAlivesEnabled(false)

	if err := h.server.Shutdown(ctx); err != nil {
		h.log.Error("Http server forced to shutdown", zap.Error(err))
		return multierr.Append(err, h.server.Close())
	}

	return nil
}

func (h *HTTP) routes() {
	h.router.GET("/ping", func(c *gin.Context) {
		c.String(http.StatusOK, "pong")
	})

	h.router.GET("/state", h.getState)
	h.router.GET("/pid", h.getPid)
	h.router.GET("/notifications", h.getNotifications)
	h.router.GET("/notifications/:category", h.getNotification)
	h.router.POST("/command", h.postCommand)
}

func (h *HTTP) getState(c *gin.Context) {
	state, err := h.manager.State(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"time":        state.Time,
		"state":       state.State,
		"description": state.Description,
		"localIP":     state.LocalIP,
		"remoteIP":    state.RemoteIP,
		"remotePort":  state.RemotePort,
		"localAddr":   state.LocalAddr,
		"localPort":   state.LocalPort,
		"localIPv6":   state.LocalIPv6,
		"connected":   state.Connected(),
	})
}

func (h *HTTP) getPid(c *gin.Context) {
	pid, err := h.manager.Pid(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"pid": pid})
}

func (h *HTTP) getNotifications(c *gin.Context) {
	values, err := h.store.Backup()
	if err != nil {
		h.fail(c, err)
		return
	}

	c.Data(http.StatusOK, gin.MIMEJSON, values)
}

func (h *HTTP) getNotification(c *gin.Context) {
	category := strings.ToUpper(c.Param("category"))

	value, err := h.store.Get(c.Request.Context(), category)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.Data(http.StatusOK, gin.MIMEJSON, value)
}

// postCommand sends the request body as a raw command.
func (h *HTTP) postCommand(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxCommandSize))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	command := strings.TrimSpace(string(body))

	info, err := h.manager.Send(c.Request.Context(), command)
	if err != nil {
		h.fail(c, err)
		return
	}

	lines := info.Lines()
	if lines == nil {
		lines = []string{}
	}

	c.JSON(http.StatusOK, gin.H{
		"command":    info.Command,
		"status":     info.Status.String(),
		"body":       info.Body,
		"lines":      lines,
		"receivedAt": info.ReceivedAt,
	})
}

func (h *HTTP) fail(c *gin.Context, err error) {
	status := statusFor(err)

	if status >= http.StatusInternalServerError {
		h.log.Warn("Request failed",
			zap.String("path", c.FullPath()),
			zap.Error(err))
	}

	c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, protocol.ErrInvalidCommand):
		return http.StatusBadRequest

	case errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound

	case client.IsProtocolError(err), errors.Is(err, client.ErrMalformedReply):
		return http.StatusBadGateway

	case errors.Is(err, client.ErrTimeout):
		return http.StatusGatewayTimeout

	case errors.Is(err, client.ErrConnectionClosed):
		return http.StatusServiceUnavailable

	case errors.Is(err, client.ErrCancelled):
		// nginx's "client closed request"
		return 499

	default:
		return http.StatusInternalServerError
	}
}

func setupRouter(debugHTTP bool, log *zap.Logger) *gin.Engine {
	gin.DisableConsoleColor()
	if !debugHTTP {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Add a ginzap middleware, which:
	//   - Logs all requests, like a combined access and error log.
	//   - RFC3339 with UTC time format.
	r.Use(ginzap.GinzapWithConfig(log, &ginzap.Config{
		TimeFormat: time.RFC3339,
		UTC:        true,
		SkipPaths:  []string{"/ping"},
	}))

	// Logs all panic to error log
	//   - stack means whether output the stack info.
	r.Use(ginzap.RecoveryWithZap(log, true))

	return r
}
