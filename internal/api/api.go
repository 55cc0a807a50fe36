package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/victornm/tweetle/internal/domain"
	"github.com/victornm/tweetle/internal/errors"
	"github.com/victornm/tweetle/internal/event"
	"github.com/victornm/tweetle/internal/game"
	"github.com/victornm/tweetle/internal/progress"
)

const (
	DeviceHeader = "X-Device-ID"
	DeviceCookie = "tweetle_device"

	deviceKey       = "device"
	deviceCookieTTL = 400 * 24 * time.Hour
)

type Config struct {
	Router   gin.IRouter
	GRPC     *grpc.Server
	EventBus *event.Bus
	Game     *game.Service
	Progress progress.Backend
	// Now returns the current time in the game's timezone.
	Now      func() time.Time
	ShareURL string

	// Redis receives game notifications. Nil disables them.
	Redis        Redis
	PubsubPrefix string
}

type Redis interface {
	Publish(ctx context.Context, channel string, message any) *redis.IntCmd
}

type API struct {
	gs       *game.Service
	progress progress.Backend
	sessions *registry
	now      func() time.Time
	shareURL string

	redis  Redis
	prefix string
}

func New(c Config) *API {
	a := &API{
		gs:       c.Game,
		progress: c.Progress,
		sessions: newRegistry(),
		now:      c.Now,
		shareURL: c.ShareURL,
		redis:    c.Redis,
		prefix:   c.PubsubPrefix,
	}

	if a.now == nil {
		a.now = time.Now
	}

	// gRPC APIs
	if c.GRPC != nil {
		healthpb.RegisterHealthServer(c.GRPC, health.NewServer())
	}

	// HTTP APIs
	v1 := c.Router.Group("/api/v1", a.identifyDevice)
	v1.GET("/puzzles/today", a.GetTodaysPuzzle)
	v1.GET("/puzzles/missed", a.ListMissedPuzzles)
	v1.POST("/sessions", a.StartSession)
	v1.GET("/sessions/current", a.GetCurrentSession)
	v1.POST("/sessions/current/answers", a.SubmitAnswer)
	v1.POST("/sessions/current/advance", a.Advance)
	v1.GET("/sessions/current/share", a.Share)
	v1.GET("/stats", a.GetStats)

	// Register event handlers
	if c.EventBus != nil && a.redis != nil {
		c.EventBus.Subscribe(domain.EventNameGameFinished, func(ctx context.Context, e event.Event) error {
			return a.PublishGameFinished(ctx, e.(domain.EventGameFinished))
		})
	}

	return a
}

// identifyDevice resolves the device from the X-Device-ID header or the device
// cookie, and issues a new device cookie when neither is present.
func (a *API) identifyDevice(c *gin.Context) {
	if id := c.GetHeader(DeviceHeader); id != "" {
		if _, err := uuid.Parse(id); err != nil {
			a.abort(c, errors.InvalidArgument("invalid %s: %q", DeviceHeader, id))
			return
		}
		c.Set(deviceKey, id)
		return
	}

	if id, err := c.Cookie(DeviceCookie); err == nil {
		if _, err := uuid.Parse(id); err == nil {
			c.Set(deviceKey, id)
			return
		}
	}

	id := uuid.NewString()
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(DeviceCookie, id, int(deviceCookieTTL.Seconds()), "/", "", false, true)
	c.Set(deviceKey, id)
}

func (a *API) device(c *gin.Context) string {
	return c.GetString(deviceKey)
}

func (a *API) store(c *gin.Context) *progress.Store {
	return progress.NewStore(a.progress.Device(a.device(c)))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (a *API) abort(c *gin.Context, err error) {
	e := errors.Convert(err)
	if e.Code == errors.CodeInternal {
		slog.ErrorContext(c.Request.Context(), "api: request failed",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"error", err,
		)
	}

	c.AbortWithStatusJSON(e.HTTPStatusCode(), errorResponse{
		Code:    e.Code.String(),
		Message: e.Message,
	})
}
