package api

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/your-org/faceaccess/internal/api/handlers"
	"github.com/your-org/faceaccess/internal/api/ws"
)

// Store is the persistence the HTTP API reads from.
type Store interface {
	handlers.PersonReader
	handlers.AccessLogReader
}

type RouterConfig struct {
	Store      Store
	Identifier handlers.Identifier
	Enroller   handlers.Enroller
	Images     handlers.ImageReader // nil when the image archive is disabled
	Hub        *ws.Hub              // nil disables /v1/ws
	Checks     map[string]handlers.Check
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(LoggingMiddleware())
	r.Use(cors.Default())

	systemH := handlers.NewSystemHandler(cfg.Checks)
	r.GET("/", systemH.Root)
	r.GET("/healthz", systemH.Healthz)
	r.GET("/readyz", systemH.Readyz)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := r.Group("/v1")

	if cfg.Hub != nil {
		v1.GET("/ws", cfg.Hub.HandleWS)
	}

	personH := handlers.NewPersonHandler(cfg.Store, cfg.Enroller, cfg.Images)
	v1.GET("/persons", personH.List)
	v1.POST("/persons", personH.Enroll)
	v1.GET("/persons/:name/image", personH.Image)

	recognizeH := handlers.NewRecognizeHandler(cfg.Identifier)
	v1.POST("/recognize", recognizeH.Recognize)

	accessH := handlers.NewAccessLogHandler(cfg.Store)
	v1.GET("/access-log", accessH.List)

	return r
}
