package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/palemoky/imposter/internal/config"
	"github.com/palemoky/imposter/internal/game/player"
	"github.com/palemoky/imposter/internal/game/room"
	"github.com/palemoky/imposter/internal/game/template"
	"github.com/palemoky/imposter/internal/notify"
	"github.com/palemoky/imposter/internal/server/handler"
)

const shutdownTimeout = 10 * time.Second

// Deps 服务器依赖
type Deps struct {
	Config      *config.Config
	Logger      *zap.Logger
	RoomManager *room.RoomManager
	Templates   *template.Service
	Players     *player.Service
	Hub         *notify.Hub
}

// Server HTTP / WebSocket 服务器
type Server struct {
	config    *config.Config
	logger    *zap.Logger
	templates *template.Service
	players   *player.Service
	handler   *handler.Handler
	upgrader  websocket.Upgrader
	origins   *originChecker

	clients   map[string]*Client
	clientsMu sync.RWMutex
}

// NewServer 创建服务器实例
func NewServer(deps Deps) *Server {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	s := &Server{
		config:    deps.Config,
		logger:    deps.Logger,
		templates: deps.Templates,
		players:   deps.Players,
		origins:   newOriginChecker(deps.Config.Server.AllowedOrigins),
		clients:   make(map[string]*Client),
		handler: handler.NewHandler(handler.HandlerDeps{
			RoomManager:    deps.RoomManager,
			Players:        deps.Players,
			Hub:            deps.Hub,
			Logger:         deps.Logger,
			RequestTimeout: deps.Config.Server.RequestTimeoutDuration(),
		}),
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.origins.Check,
	}
	return s
}

// Router 构建路由
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)
	r.Get("/ws", s.handleWebSocket)
	r.Post("/games", s.handleCreateTemplate)
	r.Get("/games", s.handleListTemplates)
	return r
}

// Run 启动服务器，ctx 结束时优雅关闭
func (s *Server) Run(ctx context.Context) error {
	addr := s.config.Server.Addr()
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second, // 防止 Slowloris 攻击
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("🚀 服务器启动", zap.String("addr", "ws://"+addr+"/ws"))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info("🛑 正在关闭服务器", zap.Int("online", s.GetOnlineCount()))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)
	s.closeClients()
	if err != nil {
		return err
	}
	s.logger.Info("✅ 服务器已关闭")
	return nil
}

// handleHealth 健康检查接口
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// GetOnlineCount 获取在线连接数
func (s *Server) GetOnlineCount() int {
	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()
	return len(s.clients)
}

// registerClient 注册客户端
func (s *Server) registerClient(client *Client) {
	s.clientsMu.Lock()
	defer s.clientsMu.Unlock()
	s.clients[client.ID] = client
}

// unregisterClient 注销客户端
func (s *Server) unregisterClient(client *Client) {
	s.clientsMu.Lock()
	defer s.clientsMu.Unlock()

	if _, ok := s.clients[client.ID]; ok {
		delete(s.clients, client.ID)
		s.logger.Info("❌ 连接已断开",
			zap.String("connection_id", client.ID),
			zap.String("player_id", client.GetPlayerID()))
	}
}

// closeClients 关闭全部连接
func (s *Server) closeClients() {
	s.clientsMu.RLock()
	clients := make([]*Client, 0, len(s.clients))
	for _, c := range s.clients {
		clients = append(clients, c)
	}
	s.clientsMu.RUnlock()

	for _, c := range clients {
		c.Close()
	}
}

// originChecker 来源验证器，未配置或配置了 "*" 时允许全部来源
type originChecker struct {
	allowed  map[string]bool
	allowAll bool
}

func newOriginChecker(origins []string) *originChecker {
	oc := &originChecker{allowed: make(map[string]bool), allowAll: len(origins) == 0}
	for _, origin := range origins {
		if origin == "*" {
			oc.allowAll = true
			break
		}
		oc.allowed[strings.ToLower(strings.TrimSpace(origin))] = true
	}
	return oc
}

// Check 检查来源是否允许
func (oc *originChecker) Check(r *http.Request) bool {
	if oc.allowAll {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" {
		// 没有 Origin 头，可能是同源请求或本地客户端
		return true
	}
	return oc.allowed[strings.ToLower(origin)]
}
