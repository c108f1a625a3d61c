package server

import (
	"context"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/regi/internal/cache"
	"github.com/smallbiznis/regi/internal/clock"
	"github.com/smallbiznis/regi/internal/config"
	"github.com/smallbiznis/regi/internal/customer"
	customerdomain "github.com/smallbiznis/regi/internal/customer/domain"
	"github.com/smallbiznis/regi/internal/item"
	itemdomain "github.com/smallbiznis/regi/internal/item/domain"
	"github.com/smallbiznis/regi/internal/lock"
	"github.com/smallbiznis/regi/internal/membership"
	membershipdomain "github.com/smallbiznis/regi/internal/membership/domain"
	"github.com/smallbiznis/regi/internal/observability"
	obsmiddleware "github.com/smallbiznis/regi/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/regi/internal/observability/metrics"
	obstracing "github.com/smallbiznis/regi/internal/observability/tracing"
	"github.com/smallbiznis/regi/internal/providers/pdf"
	"github.com/smallbiznis/regi/internal/sale"
	saledomain "github.com/smallbiznis/regi/internal/sale/domain"
	"github.com/smallbiznis/regi/internal/taxrate"
	taxdomain "github.com/smallbiznis/regi/internal/taxrate/domain"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("http.server",
	config.Module,
	fx.Provide(registerGin),
	cache.Module,
	lock.Module,
	clock.Module,
	pdf.Module,
	membership.Module,
	item.Module,
	customer.Module,
	taxrate.Module,
	sale.Module,
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	return NewEngine(obsCfg, httpMetrics)
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					panic(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine        *gin.Engine
	cfg           config.Config
	db            *gorm.DB
	genID         *snowflake.Node
	itemSvc       itemdomain.Service
	membershipSvc membershipdomain.Service
	customerSvc   customerdomain.Service
	taxSvc        taxdomain.Service
	saleSvc       saledomain.Service
}

type ServerParams struct {
	fx.In

	Gin           *gin.Engine
	Cfg           config.Config
	DB            *gorm.DB
	GenID         *snowflake.Node
	ItemSvc       itemdomain.Service
	MembershipSvc membershipdomain.Service
	CustomerSvc   customerdomain.Service
	TaxSvc        taxdomain.Service
	SaleSvc       saledomain.Service
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:        p.Gin,
		cfg:           p.Cfg,
		db:            p.DB,
		genID:         p.GenID,
		itemSvc:       p.ItemSvc,
		membershipSvc: p.MembershipSvc,
		customerSvc:   p.CustomerSvc,
		taxSvc:        p.TaxSvc,
		saleSvc:       p.SaleSvc,
	}

	svc.registerAPIRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	v1 := s.engine.Group("/v1")

	// -------- Items --------
	v1.GET("/items", s.ListItems)
	v1.POST("/items", s.CreateItem)
	v1.GET("/items/:id", s.GetItemByID)
	v1.PATCH("/items/:id/price", s.RepriceItem)
	v1.POST("/items/:id/discontinue", s.DiscontinueItem)
	v1.DELETE("/items/:id", s.DeleteItem)

	// -------- Membership types --------
	v1.GET("/membership-types", s.ListMembershipTypes)

	// -------- Customers --------
	v1.GET("/customers", s.ListCustomers)
	v1.POST("/customers", s.CreateCustomer)
	v1.GET("/customers/:id", s.GetCustomerByID)
	v1.DELETE("/customers/:id", s.DeleteCustomer)

	// -------- Tax rates --------
	v1.GET("/tax-rates", s.ListTaxRates)
	v1.POST("/tax-rates", s.RegisterTaxRate)
	v1.GET("/tax-rates/current", s.GetCurrentTaxRate)

	// -------- Sales --------
	v1.GET("/sales", s.ListSales)
	v1.POST("/sales", s.RecordSale)
	v1.GET("/sales/:id", s.GetSaleByID)
	v1.DELETE("/sales/:id", s.DeleteSale)
	v1.GET("/sales/:id/receipt", s.RenderSaleReceipt)

	if s.cfg.Environment != "production" {
		v1.POST("/test/cleanup", s.TestCleanup)
	}
}
