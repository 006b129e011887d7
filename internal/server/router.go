// internal/server/router.go
//
// 本檔負責 HTTP 路由註冊與中介層。
// handler.go 定義「如何處理請求」，router.go 定義「請求如何被導向」。
package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

// Router 建立並回傳整個 HTTP 處理鏈。
// 所有端點掛在 /api/v1 下，同時保留根路徑方便本機開發。
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(requestLogger(s.log))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.origins,
		AllowedMethods: []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
		MaxAge:         300,
	}))

	r.Route("/api/v1", s.routes)
	s.routes(r)
	return r
}

func (s *Server) routes(r chi.Router) {
	r.Get("/health", s.health)

	// レジ
	r.Route("/register", func(r chi.Router) {
		r.Get("/", s.getRegister)
		r.Put("/customer", s.putCustomer)
		r.Post("/items/{index}/adjust", s.adjustItem)
		r.Post("/items/{index}/clear", s.clearItem)
		r.Post("/commit", s.commit)
		r.Post("/restore", s.restore)
		r.Post("/clear", s.clearRegister)
		r.Get("/bill", s.bill)
		r.Get("/letter", s.letter)
	})

	// 管理
	r.Route("/catalog", func(r chi.Router) {
		r.Get("/", s.getCatalog)
		r.Put("/", s.putCatalog)
		r.Put("/count", s.putCatalogCount)
		r.Get("/{index}/image", s.getImage)
		r.Put("/{index}/image", s.putImage)
	})

	// 資格
	r.Route("/qualifications", func(r chi.Router) {
		r.Get("/", s.getQualifications)
		r.Put("/", s.putQualifications)
		r.Put("/count", s.putQualificationCount)
	})

	// 質問
	r.Route("/questions", func(r chi.Router) {
		r.Get("/", s.getQuestions)
		r.Put("/", s.putQuestions)
		r.Put("/count", s.putQuestionCount)
	})

	r.Get("/shop", s.getShop)
	r.Put("/shop", s.putShop)
	r.Get("/settings/image-scale", s.getImageScale)
	r.Put("/settings/image-scale", s.putImageScale)

	// 履歴 / 回答
	r.Get("/history/transactions", s.transactions)
	r.Get("/history/surveys", s.surveys)
}

// requestLogger 以 zap 記錄每個請求的方法、路徑、狀態碼與耗時。
func requestLogger(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			log.Info("http request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("elapsed", time.Since(start)),
				zap.String("request_id", middleware.GetReqID(r.Context())))
		})
	}
}
