package apiserver

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/netrixframework/interop/audit"
	"github.com/netrixframework/interop/log"
	"github.com/netrixframework/interop/types"
)

// MaxBatchSize is the largest number of messages accepted by `/messages`
const MaxBatchSize = 1000

// resultStatus maps the outcome of processing onto a HTTP status
func resultStatus(r *types.RouteResult) int {
	switch {
	case r.Success:
		return http.StatusOK
	case r.RoutedTo == types.DestinationNone:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusBadGateway
	}
}

// badRequest replies to a body which could not be bound
func (srv *APIServer) badRequest(c *gin.Context, err error, what string) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "request body too large"})
		return
	}
	srv.Logger.With(log.LogParams{"error": err}).Info(what)
	c.JSON(http.StatusBadRequest, gin.H{"error": "failed to unmarshal request"})
}

// HandleMessage is the handler for the route `/message`
// which is used by upstream systems to submit one protocol message
func (srv *APIServer) HandleMessage(c *gin.Context) {
	var msg types.ProtocolMessage
	if err := c.ShouldBindJSON(&msg); err != nil {
		srv.badRequest(c, err, "Bad message")
		return
	}
	result := srv.ctx.Adapter.Process(c.Request.Context(), &msg)
	c.JSON(resultStatus(result), result)
}

// HandleBatch is the handler for the route `/messages`.
// Results are returned in the order of the submitted messages.
func (srv *APIServer) HandleBatch(c *gin.Context) {
	var msgs []*types.ProtocolMessage
	if err := c.ShouldBindJSON(&msgs); err != nil {
		srv.badRequest(c, err, "Bad batch request")
		return
	}
	if len(msgs) > MaxBatchSize {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "too many messages"})
		return
	}
	results := srv.ctx.Adapter.ProcessBatch(c.Request.Context(), msgs)
	c.JSON(http.StatusOK, gin.H{"results": results})
}

// HandleParse is the handler for the route `/parse`. Nothing is routed or recorded.
func (srv *APIServer) HandleParse(c *gin.Context) {
	var msg types.ProtocolMessage
	if err := c.ShouldBindJSON(&msg); err != nil {
		srv.badRequest(c, err, "Bad message")
		return
	}
	_, parsed := srv.ctx.Adapter.Parse(&msg)
	c.JSON(http.StatusOK, parsed)
}

// HandleValidate is the handler for the route `/validate`. Nothing is routed or recorded.
func (srv *APIServer) HandleValidate(c *gin.Context) {
	var msg types.ProtocolMessage
	if err := c.ShouldBindJSON(&msg); err != nil {
		srv.badRequest(c, err, "Bad message")
		return
	}
	parsed, validation := srv.ctx.Adapter.Validate(&msg)
	c.JSON(http.StatusOK, gin.H{
		"parsed":     parsed,
		"validation": validation,
	})
}

func (srv *APIServer) handleDestinations(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"destinations": srv.ctx.Dispatcher.Destinations(),
	})
}

func (srv *APIServer) handleStats(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"destinations": srv.ctx.Stats.Snapshot(),
	})
}

func (srv *APIServer) handleVerify(c *gin.Context) {
	for _, s := range srv.ctx.Sinks {
		if f, ok := s.(*audit.FileSink); ok {
			result := audit.Verify(f.Path())
			status := http.StatusOK
			if !result.Valid {
				status = http.StatusConflict
			}
			c.JSON(status, result)
			return
		}
	}
	c.JSON(http.StatusNotFound, gin.H{"error": "file audit sink not configured"})
}

func (srv *APIServer) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
