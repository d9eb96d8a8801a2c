package handler

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/undangan/rsvp-service/internal/rsvp"
	"github.com/undangan/rsvp-service/internal/rsvp/service"
	"github.com/undangan/rsvp-service/internal/rsvp/viewmodel"
	"github.com/undangan/rsvp-service/pkg/logger"
)

// Service is what the routes need from the RSVP service.
type Service interface {
	viewmodel.Store
	Snapshot(ctx context.Context) (*service.Listing, error)
}

var log = logger.Named("http")

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// invitation pages are served from other origins
	CheckOrigin: func(r *http.Request) bool { return true },
}

const wsWriteTimeout = 10 * time.Second

type submitRequest struct {
	Name       string `json:"name"`
	Message    string `json:"message"`
	Attendance string `json:"attendance"`
}

func RegisterRoutes(r *gin.Engine, svc Service) {
	g := r.Group("/api/rsvp")

	g.GET("", func(c *gin.Context) {
		listing, err := svc.Snapshot(c.Request.Context())
		if err != nil {
			log.Errorf("list rsvps: %v", err)
			c.JSON(http.StatusBadGateway, gin.H{"error": "store unavailable"})
			return
		}
		c.JSON(http.StatusOK, listing)
	})

	g.POST("", func(c *gin.Context) {
		var req submitRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		attendance, err := rsvp.ParseAttendance(req.Attendance)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		var toast viewmodel.Toast
		vm := viewmodel.New(svc, viewmodel.NotifierFunc(func(t viewmodel.Toast) { toast = t }))
		vm.SetName(req.Name)
		vm.SetMessage(req.Message)
		_ = vm.SetAttendance(attendance)

		rec, err := vm.Submit(c.Request.Context())
		switch {
		case err == nil:
			c.JSON(http.StatusCreated, gin.H{"id": rec.ID, "record": rec, "toast": toast})
		case errors.Is(err, rsvp.ErrValidation):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "toast": toast})
		default:
			c.JSON(http.StatusBadGateway, gin.H{"error": "submission failed", "toast": toast})
		}
	})

	g.GET("/stream", func(c *gin.Context) { streamSSE(c, svc) })
	g.GET("/ws", func(c *gin.Context) { streamWS(c, svc) })
}

// mount activates a view-model for one streaming client. Views are handed
// over through a one-slot channel that always holds the newest view.
func mount(ctx context.Context, svc Service) (*viewmodel.ViewModel, <-chan viewmodel.View, error) {
	views := make(chan viewmodel.View, 1)
	vm := viewmodel.New(svc, nil)
	vm.OnChange(func(s viewmodel.State) {
		for {
			select {
			case views <- s.View:
				return
			default:
			}
			select {
			case <-views:
			default:
			}
		}
	})
	if err := vm.Activate(ctx); err != nil {
		return nil, nil, err
	}
	return vm, views, nil
}

func streamSSE(c *gin.Context, svc Service) {
	ctx := c.Request.Context()
	vm, views, err := mount(ctx, svc)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "live updates unavailable"})
		return
	}
	defer vm.Deactivate()

	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")
	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case v := <-views:
			c.SSEvent("snapshot", v)
			return true
		}
	})
}

func streamWS(c *gin.Context, svc Service) {
	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Warnf("websocket upgrade: %v", err)
		return
	}
	defer ws.Close()

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	vm, views, err := mount(ctx, svc)
	if err != nil {
		_ = ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "live updates unavailable"),
			time.Now().Add(wsWriteTimeout))
		return
	}
	defer vm.Deactivate()

	// the client never sends data; reading detects when it goes away
	go func() {
		defer cancel()
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case v := <-views:
			_ = ws.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := ws.WriteJSON(v); err != nil {
				log.Debugf("websocket write: %v", err)
				return
			}
		}
	}
}
