package router

import (
	"github.com/gin-gonic/gin"

	"folio_backend/internal/app/di"
	"folio_backend/internal/platform/htmltemplate"
	"folio_backend/internal/platform/http/handler"
	jwtmw "folio_backend/internal/platform/jwt"
	"folio_backend/internal/platform/metrics"
)

// Options are the non-feature dependencies of the router.
type Options struct {
	JWTSecret    string
	Metrics      *metrics.Metrics
	HTMLTemplate *htmltemplate.Middleware
	ReadyChecks  map[string]handler.Check
}

func NewRouter(h di.Handlers, opts Options) *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())
	if opts.Metrics != nil {
		r.Use(opts.Metrics.GinMiddleware())
		r.GET("/metrics", gin.WrapH(opts.Metrics.Handler()))
	}
	// 認証不要
	// 導通確認用
	r.Any("/healthz", handler.Health)
	r.GET("/readyz", handler.Ready(opts.ReadyChecks))
	// 新規ユーザー登録
	r.POST("/signup", h.Auth.Signup)
	// ログイン（JWT 発行）
	r.POST("/login", h.Auth.Login)

	// 認証必須のルート
	// → リクエストヘッダーに JWT が必要になる
	api := r.Group("/api/v1")
	api.Use(jwtmw.AuthRequired(opts.JWTSecret))
	{
		api.GET("/user", h.Auth.Me)
		api.PUT("/user/setting", h.Auth.UpdateSetting)

		api.GET("/account", h.Account.List)
		api.POST("/account", h.Account.Create)

		api.GET("/order", h.Order.List)
		api.POST("/order", h.Order.Create)
		api.DELETE("/order", h.Order.DeleteMany)
		api.GET("/order/:id", h.Order.Get)
		api.PUT("/order/:id", h.Order.Update)
		api.DELETE("/order/:id", h.Order.Delete)

		api.GET("/tags", h.Order.ListTags)
		api.POST("/tags", h.Order.CreateTag)

		api.GET("/portfolio/holdings", h.Portfolio.Holdings)
		api.GET("/portfolio/allocation", h.Portfolio.Allocation)
		api.PUT("/portfolio/position/:dataSource/:symbol/tags", h.Order.AssignTags)

		api.GET("/symbol-profile", h.SymbolProfile.List)
		api.GET("/symbol-profile/:dataSource/:symbol", h.SymbolProfile.Get)
		api.PATCH("/symbol-profile/:dataSource/:symbol", h.SymbolProfile.PatchOverrides)

		api.GET("/market-data/:dataSource/:symbol", h.MarketData.Get)

		api.GET("/symbol/lookup", h.DataProvider.Lookup)
		api.GET("/symbol/:dataSource/:symbol", h.DataProvider.Quote)
		api.GET("/data-providers", h.DataProvider.Providers)
	}

	// SEO用のindex.html差し替え（本番のみ）
	// どのルートにも一致しないリクエストだけがクライアントのページになる
	if opts.HTMLTemplate != nil {
		r.NoRoute(opts.HTMLTemplate.Handler())
	}

	return r
}
