package apiserver

import (
	goctx "context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/netrixframework/interop/context"
	"github.com/netrixframework/interop/log"
	"github.com/netrixframework/interop/types"
)

// DefaultAddr is the default address of the APIServer
const DefaultAddr = "0.0.0.0:7074"

// DefaultMaxBodyBytes bounds request bodies when no limit is configured
const DefaultMaxBodyBytes = 8 << 20

// APIServer runs a HTTP server accepting protocol messages from upstream systems
type APIServer struct {
	router *gin.Engine
	ctx    *context.RootContext

	server   *http.Server
	addr     string
	maxBody  int64
	listener net.Listener

	*types.BaseService
}

var _ types.Service = (*APIServer)(nil)

// NewAPIServer instantiates APIServer
func NewAPIServer(ctx *context.RootContext) *APIServer {
	addr := ctx.Config.APIServerAddr
	if addr == "" {
		addr = DefaultAddr
	}
	maxBody := ctx.Config.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = DefaultMaxBodyBytes
	}
	server := &APIServer{
		ctx:         ctx,
		addr:        addr,
		maxBody:     maxBody,
		BaseService: types.NewBaseService("APIServer", ctx.Logger),
	}
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(server.logMiddleware, gin.Recovery(), server.limitBody)

	router.POST("/message", server.HandleMessage)
	router.POST("/messages", server.HandleBatch)
	router.POST("/parse", server.HandleParse)
	router.POST("/validate", server.HandleValidate)

	router.GET("/destinations", server.handleDestinations)
	router.GET("/stats", server.handleStats)
	router.GET("/audit/verify", server.handleVerify)
	router.GET("/healthz", server.handleHealth)

	server.router = router
	server.server = &http.Server{
		Addr:              server.addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return server
}

// Handler returns the http handler serving the API
func (a *APIServer) Handler() http.Handler {
	return a.router
}

// Addr returns the address the server listens on once started
func (a *APIServer) Addr() string {
	if a.listener != nil {
		return a.listener.Addr().String()
	}
	return a.addr
}

func (a *APIServer) logMiddleware(c *gin.Context) {
	start := time.Now()
	path := c.Request.URL.Path
	raw := c.Request.URL.RawQuery

	// Process request
	c.Next()

	end := time.Now()
	if raw != "" {
		path = path + "?" + raw
	}
	a.Logger.With(log.LogParams{
		"timestamp":   end,
		"latency":     end.Sub(start).String(),
		"client_ip":   c.ClientIP(),
		"method":      c.Request.Method,
		"status_code": c.Writer.Status(),
		"error":       c.Errors.ByType(gin.ErrorTypePrivate).String(),
		"body_size":   c.Writer.Size(),
		"path":        path,
	}).Debug("Handled request")
}

func (a *APIServer) limitBody(c *gin.Context) {
	if c.Request.Body != nil {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, a.maxBody)
	}
	c.Next()
}

// Start starts the APIServer and implements Service
func (a *APIServer) Start() error {
	listener, err := net.Listen("tcp", a.addr)
	if err != nil {
		return err
	}
	a.listener = listener
	a.StartRunning()
	go func() {
		a.Logger.With(log.LogParams{
			"addr": a.Addr(),
		}).Info("API server starting!")
		if err := a.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.Logger.With(log.LogParams{
				"addr": a.Addr(),
				"err":  err,
			}).Fatal("API server closed!")
		}
	}()
	return nil
}

// Stop stops the APIServer and implements Service
func (a *APIServer) Stop() error {
	a.StopRunning()
	ctx, cancel := goctx.WithTimeout(goctx.Background(), 5*time.Second)
	defer cancel()
	if err := a.server.Shutdown(ctx); err != nil {
		a.Logger.Error("API server forcefully shutdown")
		return err
	}
	a.Logger.Info("API server stopped!")
	return nil
}
