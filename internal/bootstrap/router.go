package bootstrap

import (
	fbauth "firebase.google.com/go/v4/auth"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"

	httpapi "github.com/dreamcanvas-ai/dreamcanvas-backend/internal/api/http"
	"github.com/dreamcanvas-ai/dreamcanvas-backend/internal/api/http/middleware"
	"github.com/dreamcanvas-ai/dreamcanvas-backend/internal/auth"
	authmw "github.com/dreamcanvas-ai/dreamcanvas-backend/internal/auth/middleware"
	designshttp "github.com/dreamcanvas-ai/dreamcanvas-backend/internal/designs/http"
)

type RouterDeps struct {
	ServiceName    string
	Version        string
	StorageBackend string
	AllowedOrigins []string
	DB             *pgxpool.Pool
	// AuthClient may be nil outside production; the router then falls back
	// to the header-based development middleware.
	AuthClient *fbauth.Client
	Designs    *designshttp.Handler
}

func BuildRouter(dep RouterDeps) *gin.Engine {
	r := gin.Default()

	r.Use(middleware.RequestID())

	origins := dep.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000"}
	}
	r.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Request-Id"},
		AllowCredentials: true,
	}))

	healthHandler := httpapi.NewHealthHandler(dep.ServiceName, dep.Version, dep.StorageBackend, dep.DB)
	healthHandler.RegisterRoutes(r)

	api := r.Group("/api/v1")

	if dep.AuthClient != nil {
		api.Use(authmw.FirebaseAuthMiddleware(dep.AuthClient))
	} else {
		api.Use(auth.OptionalUser())
	}

	designshttp.Register(api, dep.Designs)

	return r
}
