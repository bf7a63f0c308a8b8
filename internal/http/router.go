package httpapi

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/pstracker/backend/internal/config"
	"github.com/pstracker/backend/internal/db"
	"github.com/pstracker/backend/internal/http/handlers"
	"github.com/pstracker/backend/internal/http/middleware"
	"github.com/pstracker/backend/internal/service"

	_ "github.com/pstracker/backend/docs"
)

func Router(cfg config.Config, store *db.Store, missions *service.MissionService, checks *service.CheckService, imports *service.ImportService, logger zerolog.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Admin-Key", "X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if cfg.CORSAllowed == "*" {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = []string{cfg.CORSAllowed}
	}
	r.Use(cors.New(corsCfg))

	h := &handlers.Handler{
		Store:     store,
		Missions:  missions,
		Checks:    checks,
		Imports:   imports,
		Validator: validator.New(),
		Logger:    logger,
		AdminKey:  cfg.AdminKey,
	}

	r.GET("/healthz", h.Healthz)

	api := r.Group("/api")
	{
		api.GET("/missions", h.ListMissions)
		api.GET("/missions/:id", h.GetMission)
		api.GET("/missions/:id/route", h.MissionRoute)
		api.GET("/missions/:id/next-position", h.NextPosition)
		api.GET("/missions/:id/summary", h.MissionSummary)
		api.GET("/checks/:id", h.GetCheck)
		api.GET("/imports/status", h.ImportStatus)
	}

	admin := api.Group("")
	admin.Use(middleware.AdminKey(cfg.AdminKey))
	{
		admin.POST("/missions", h.CreateMission)
		admin.PUT("/missions/:id/status", h.UpdateMissionStatus)
		admin.POST("/checks/:id", h.UpdateCheck)
		admin.POST("/imports/:source/trigger", h.TriggerImport)
	}

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	return r
}
