package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"barberflow-backend/config"
	"barberflow-backend/controllers"
	"barberflow-backend/metrics"
	"barberflow-backend/models"
	"barberflow-backend/routes"
	"barberflow-backend/services"
	"barberflow-backend/services/messaging"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	if err := run(); err != nil {
		os.Exit(1)
	}
}

// run returns instead of exiting so deferred cleanup, such as stopping the
// reminder cron, happens before the process ends.
func run() error {
	envErr := godotenv.Load()
	settings := config.LoadSettings()
	logger := config.NewLogger(settings.LogLevel)
	if envErr != nil {
		logger.Debug().Msg("no .env file found")
	}
	if settings.LocationErr != nil {
		logger.Warn().Err(settings.LocationErr).Msg("timezone not found, using UTC")
	}

	db, err := config.ConnectDB(settings)
	if err != nil {
		logger.Error().Err(err).Msg("database")
		return err
	}
	if err := models.AutoMigrate(db); err != nil {
		logger.Error().Err(err).Msg("migrate")
		return err
	}

	m := metrics.New("barberflow", prometheus.DefaultRegisterer)
	evo := messaging.EvolutionConfig{
		BaseURL: settings.EvolutionBaseURL,
		APIKey:  settings.EvolutionAPIKey,
		Metrics: m,
	}
	messenger, err := messaging.NewMessenger(settings.MessagingProvider, evo,
		settings.TwilioAccountSID, settings.TwilioAuthToken, settings.TwilioWhatsAppNumber)
	if err != nil {
		logger.Error().Err(err).Msg("messaging")
		return err
	}

	notifier := services.NewNotificationService(messenger, settings.Location, m, logger)
	appointments := services.NewAppointmentService(db, notifier, m, logger)
	channels := messaging.NewChannelManager(db, evo, logger)
	reminders := services.NewReminderService(db, notifier, m, logger)

	if settings.ReminderCron != "" {
		if err := reminders.Start(settings.ReminderCron, settings.ReminderWindowStart, settings.ReminderWindowEnd); err != nil {
			logger.Error().Err(err).Msg("reminders")
			return err
		}
		defer reminders.Stop()
	}

	if os.Getenv("GIN_MODE") == "" {
		gin.SetMode(gin.ReleaseMode)
	}
	h := controllers.NewHandler(db, settings.Location, appointments, channels, logger)
	r := routes.SetupRouter(h, settings, prometheus.DefaultGatherer, logger)
	if os.Getenv("PRINT_ROUTES") != "" {
		printRoutes(r)
	}

	srv := &http.Server{Addr: ":" + settings.Port, Handler: r}
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	logger.Info().Str("addr", srv.Addr).Str("provider", settings.MessagingProvider).Msg("listening")
	if err := serve(srv, stop); err != nil {
		logger.Error().Err(err).Msg("server")
		return err
	}
	return nil
}

// serve runs srv until it fails or stop fires. A listen error is returned
// as is; a stop signal triggers a graceful shutdown.
func serve(srv *http.Server, stop <-chan os.Signal) error {
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-stop:
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func printRoutes(r *gin.Engine) {
	for _, route := range r.Routes() {
		fmt.Printf("%-6s %s\n", route.Method, route.Path)
	}
}
