package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"parking-gate/ticket-kiosk/pkg/config"
	"parking-gate/ticket-kiosk/pkg/infra"
)

const shutdownTimeout = 10 * time.Second

type Server struct {
	application *Application
	echo        *echo.Echo
	server      *http.Server

	loggerFactory *infra.LoggerFactory
	logger        *zap.SugaredLogger
}

func ProvideServer(config *config.Config, application *Application, loggerFactory *infra.LoggerFactory) *Server {
	logger := loggerFactory.Create("Server").Sugar()

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.RequestID())
	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogLatency:   true,
		LogMethod:    true,
		LogURI:       true,
		LogRequestID: true,
		LogStatus:    true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			logger.Infof("%v %v id[%v] status[%v] latency[%vms]", v.Method, v.URI, v.RequestID, v.Status, v.Latency.Milliseconds())
			return nil
		},
	}))

	e.GET("/", application.HandleHealth)

	e.PUT("/debug", func(c echo.Context) error {
		infra.LoggerLevel.SetLevel(zapcore.DebugLevel)
		logger.Info("debug logging enabled")
		return c.NoContent(http.StatusOK)
	})

	e.DELETE("/debug", func(c echo.Context) error {
		infra.LoggerLevel.SetLevel(zapcore.InfoLevel)
		logger.Info("debug logging disabled")
		return c.NoContent(http.StatusOK)
	})

	e.GET("/metrics", echo.WrapHandler(application.stats.Handler()))
	e.GET("/ws", application.HandleWs)

	checkIn := e.Group("/checkin")
	checkIn.POST("", application.HandleCheckIn)
	checkIn.GET("", application.HandleGetCheckIn)
	checkIn.GET("/ticket.png", application.HandleTicketImage)
	checkIn.POST("/reset", application.HandleResetCheckIn)

	checkOut := e.Group("/checkout")
	checkOut.POST("/lookup", application.HandleCheckOutLookup)
	checkOut.GET("", application.HandleGetCheckOut)
	checkOut.POST("/pay", application.HandlePay)
	checkOut.POST("/reset", application.HandleResetCheckOut)

	return &Server{
		application: application,
		echo:        e,
		server: &http.Server{
			Addr:              fmt.Sprintf(":%v", *config.ServerPort),
			Handler:           e,
			ReadHeaderTimeout: 10 * time.Second,
		},
		loggerFactory: loggerFactory,
		logger:        logger,
	}
}

// Run serves until ctx is done or something fails, then shuts the server
// and the application down.
func (s *Server) Run(ctx context.Context) error {
	defer s.loggerFactory.Sync()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.logger.Infof("server running application")
		return s.application.Run(ctx)
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		s.logger.Infof("server shutting down")
		return s.server.Shutdown(shutdownCtx)
	})

	g.Go(func() error {
		s.logger.Infof("server starts listening on addr[%v]", s.server.Addr)
		if err := s.server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	return g.Wait()
}
