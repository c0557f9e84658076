package http_server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"time"

	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis_rate/v10"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/abrar71/swaggerfilesv2" // swagger embed files

	"emblitzgo/internal/auth"
	"emblitzgo/internal/http/adminhandler"
	"emblitzgo/internal/http/apihandler"
	"emblitzgo/internal/ws"
)

type httpServer struct {
	listenPort uint16
	srv        http.Server
	ln         net.Listener
	wsSrv      *ws.WsServer
	apiH       *apihandler.Handler
	adminH     *adminhandler.Handler
	tokens     *auth.TokenIssuer
	limiter    *redis_rate.Limiter
	ctx        context.Context
}

func NewHttpServer(ctx context.Context, listenPort uint16, wsSrv *ws.WsServer,
	apiH *apihandler.Handler, adminH *adminhandler.Handler,
	tokens *auth.TokenIssuer, rdc *redis.Client) *httpServer {
	h := &httpServer{
		listenPort: listenPort,
		wsSrv:      wsSrv,
		apiH:       apiH,
		adminH:     adminH,
		tokens:     tokens,
		ctx:        ctx,
	}
	if rdc != nil {
		h.limiter = redis_rate.NewLimiter(rdc)
	}
	return h
}

func (h *httpServer) Start() error {
	var err error
	listenAddr := fmt.Sprintf(":%d", h.listenPort)
	h.ln, err = net.Listen("tcp", listenAddr)
	if err != nil {
		return err
	}

	routerEngine := gin.New()

	// Swagger UI and API specs
	routerEngine.StaticFS("/swagger-apis", http.FS(swaggerfilesv2.FS))
	routerEngine.Static("/api-specs", "api_specs")

	// Static files for the web client
	routerEngine.Static("/static", "public")

	routerEngine.Use(ginzap.RecoveryWithZap(zap.L(), true))

	// the game page issues a fresh session id per load
	routerEngine.GET("/", h.index)

	// websocket endpoint
	routerEngine.GET("/ws", h.wsSrv.Handle)

	// rate-limited JSON APIs
	api := routerEngine.Group("/", h.rateLimit(500,
		"You are accessing the api too quickly (500 requests/min)! Try again in a minute."))
	h.apiH.Register(api)

	admin := routerEngine.Group("/", h.rateLimit(20,
		"You are accessing the auth api too quickly (20 requests/min)! Please try again in a minute."))
	h.adminH.Register(admin)

	routerEngine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": 404, "message": "Not found"})
	})

	h.srv = http.Server{
		Handler: routerEngine,
	}

	return h.srv.Serve(h.ln)
}

// index hands every pageload a fresh GID cookie and keeps a valid signed
// auth cookie on the browser. Registration is still a stub identity.
func (h *httpServer) index(c *gin.Context) {
	c.SetCookie("GID", auth.NewGID(), 0, "/", "", false, false)

	if tok, err := c.Cookie("auth"); err != nil || h.tokens.Verify(tok) != nil {
		minted, err := h.tokens.Mint("69420666", "bobux")
		if err != nil {
			zap.L().Warn("http.mint_token", zap.Error(err))
		} else {
			c.SetCookie("auth", minted, 0, "/", "", false, true)
		}
	}

	c.File("public/index.html")
}

// rateLimit applies a per-client-IP GCRA budget; redis trouble fails open.
func (h *httpServer) rateLimit(perMinute int, msg string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if h.limiter == nil {
			c.Next()
			return
		}
		res, err := h.limiter.Allow(c.Request.Context(),
			"rl:"+c.ClientIP()+":"+c.FullPath(), redis_rate.PerMinute(perMinute))
		if err != nil {
			zap.L().Debug("http.ratelimit", zap.Error(err))
			c.Next()
			return
		}
		if res.Allowed == 0 {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":   429,
				"message": msg,
			})
			return
		}
		c.Next()
	}
}

// Dispose gracefully shuts the HTTP server down.
// It waits up to 10 s for in-flight requests to finish.
func (h *httpServer) Dispose() error {
	ctx, cancel := context.WithTimeout(h.ctx, 10*time.Second)
	defer cancel()

	if err := h.srv.Shutdown(ctx); err != nil {
		zap.L().Error("http_dispose", zap.Error(err))
		return err // e.g. active conns didn't finish in time
	}

	if ctx.Err() == context.DeadlineExceeded {
		zap.L().Error("http_dispose", zap.Error(errors.New("shutdown timed out")))
		log.Println("shutdown timeout (10 s)")
	}

	return nil
}
