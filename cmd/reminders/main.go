// Command reminders runs one reminder scan and exits. It is meant for an
// external scheduler when the server's built-in cron is disabled.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"barberflow-backend/config"
	"barberflow-backend/metrics"
	"barberflow-backend/services"
	"barberflow-backend/services/messaging"

	"github.com/joho/godotenv"
)

func main() {
	windowStart := flag.Int("window-start", services.DefaultWindowStart, "minutes from now where the reminder window opens")
	windowEnd := flag.Int("window-end", services.DefaultWindowEnd, "minutes from now where the reminder window closes")
	timeout := flag.Duration("timeout", 5*time.Minute, "upper bound for the whole scan")
	flag.Parse()

	_ = godotenv.Load()
	settings := config.LoadSettings()
	logger := config.NewLogger(settings.LogLevel)
	if settings.LocationErr != nil {
		logger.Warn().Err(settings.LocationErr).Msg("timezone not found, using UTC")
	}

	db, err := config.ConnectDB(settings)
	if err != nil {
		logger.Fatal().Err(err).Msg("database")
	}

	m := metrics.New("barberflow", nil)
	evo := messaging.EvolutionConfig{
		BaseURL: settings.EvolutionBaseURL,
		APIKey:  settings.EvolutionAPIKey,
		Metrics: m,
	}
	messenger, err := messaging.NewMessenger(settings.MessagingProvider, evo,
		settings.TwilioAccountSID, settings.TwilioAuthToken, settings.TwilioWhatsAppNumber)
	if err != nil {
		logger.Fatal().Err(err).Msg("messaging")
	}

	notifier := services.NewNotificationService(messenger, settings.Location, m, logger)
	reminders := services.NewReminderService(db, notifier, m, logger)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	processed, err := reminders.Run(ctx, *windowStart, *windowEnd)
	if err != nil {
		logger.Error().Err(err).Msg("reminder scan failed")
		cancel()
		os.Exit(1)
	}
	fmt.Printf("Lembretes processados: %d\n", processed)
}
