package main

import (
	"net/http"
	"time"

	"leasekeeper/config"
	"leasekeeper/controllers"
	"leasekeeper/middleware"
	"leasekeeper/services"
	"leasekeeper/utils"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// application связывает сервисы, триггеры и HTTP слой
type application struct {
	cfg     *config.Config
	db      *gorm.DB
	clock   utils.Clock
	metrics *utils.Metrics

	bus         *services.EventBus
	obligations *services.ObligationService
	contracts   *services.ContractService
	receipts    *services.ReceiptService
	properties  *services.PropertyService
	parties     *services.PartyService
	users       *services.UserService
	exports     *services.ExportService
	sweep       *services.ObligationSweepService
}

// newApplication собирает приложение. Триггеры жизненного цикла
// подписываются на шину здесь и больше нигде.
func newApplication(cfg *config.Config, db *gorm.DB, clock utils.Clock, notifier services.Notifier) *application {
	metrics := utils.GetMetrics()
	bus := services.NewEventBus()

	obligations := services.NewObligationService(db, metrics)
	services.NewLifecycleTriggers(obligations, clock, cfg.Obligations.MonthsAhead).Register(bus)

	contracts := services.NewContractService(db, bus)

	return &application{
		cfg:         cfg,
		db:          db,
		clock:       clock,
		metrics:     metrics,
		bus:         bus,
		obligations: obligations,
		contracts:   contracts,
		receipts:    services.NewReceiptService(db, bus, metrics),
		properties:  services.NewPropertyService(db),
		parties:     services.NewPartyService(db),
		users:       services.NewUserService(db),
		exports:     services.NewExportService(contracts, obligations),
		sweep:       services.NewObligationSweepService(db, obligations, clock, notifier, metrics, cfg.Obligations.MonthsAhead),
	}
}

// engine строит корневой gin роутер: служебные маршруты и API на gorilla/mux
func (a *application) engine() *gin.Engine {
	engine := gin.New()
	engine.Use(middleware.Recovery())
	engine.Use(middleware.Logger())
	engine.Use(middleware.CORSMiddleware())
	engine.Use(middleware.RateLimit(utils.NewRateLimiter(a.cfg.Server.RateLimit, time.Minute)))

	engine.GET("/health", a.health)
	engine.GET("/metrics", func(c *gin.Context) {
		c.JSON(http.StatusOK, a.metrics.GetMetricsSnapshot())
	})

	api := controllers.NewRouter(controllers.Handlers{
		Auth:        controllers.NewAuthController(a.users, a.cfg),
		Properties:  controllers.NewPropertyController(a.properties, a.parties),
		Contracts:   controllers.NewContractController(a.contracts, a.obligations, a.exports, a.cfg.Obligations.MonthsAhead),
		Obligations: controllers.NewObligationController(a.obligations, a.receipts, a.clock),
	}, []byte(a.cfg.JWT.SecretKey))
	engine.Any("/api/*path", gin.WrapH(api))

	return engine
}

func (a *application) health(c *gin.Context) {
	sqlDB, err := a.db.DB()
	if err == nil {
		err = sqlDB.PingContext(c.Request.Context())
	}
	if err != nil {
		utils.LogError("Проверка базы данных не прошла: %v", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "database": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"today":  a.clock.Today().Format(time.DateOnly),
	})
}
