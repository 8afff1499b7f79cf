package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	// Zone names resolve even on images without /usr/share/zoneinfo.
	_ "time/tzdata"
)

// Settings is the process-wide configuration. It is loaded once at startup
// and handed to components by value; nothing mutates it afterwards.
type Settings struct {
	Port        string
	DBDriver    string
	DBURL       string
	LogLevel    string
	CORSOrigins []string
	Location    *time.Location
	// LocationErr is set when APP_TIMEZONE did not load and Location fell
	// back to UTC. Callers log it at startup.
	LocationErr error

	EvolutionBaseURL string
	EvolutionAPIKey  string

	MessagingProvider    string
	TwilioAccountSID     string
	TwilioAuthToken      string
	TwilioWhatsAppNumber string

	ReminderCron        string
	ReminderWindowStart int
	ReminderWindowEnd   int
}

func LoadSettings() Settings {
	s := Settings{
		Port:     getenv("PORT", "8080"),
		DBDriver: getenv("DB_DRIVER", "postgres"),
		DBURL:    os.Getenv("DB_URL"),
		LogLevel: getenv("LOG_LEVEL", "info"),

		EvolutionBaseURL: strings.TrimRight(strings.TrimSpace(os.Getenv("EVOLUTION_API_URL")), "/"),
		EvolutionAPIKey:  strings.TrimSpace(os.Getenv("EVOLUTION_API_KEY")),

		MessagingProvider:    strings.ToLower(getenv("MESSAGING_PROVIDER", "evolution")),
		TwilioAccountSID:     os.Getenv("TWILIO_ACCOUNT_SID"),
		TwilioAuthToken:      os.Getenv("TWILIO_AUTH_TOKEN"),
		TwilioWhatsAppNumber: os.Getenv("TWILIO_WHATSAPP_NUMBER"),

		ReminderCron:        getenv("REMINDER_CRON", "*/5 * * * *"),
		ReminderWindowStart: getenvInt("REMINDER_WINDOW_START", 25),
		ReminderWindowEnd:   getenvInt("REMINDER_WINDOW_END", 35),
	}

	if origins := os.Getenv("CORS_ORIGINS"); origins != "" {
		for _, o := range strings.Split(origins, ",") {
			if o = strings.TrimSpace(o); o != "" {
				s.CORSOrigins = append(s.CORSOrigins, o)
			}
		}
	} else {
		s.CORSOrigins = []string{"http://localhost:3000"}
	}

	// REMINDER_CRON=off leaves scheduling to cmd/reminders.
	if strings.EqualFold(s.ReminderCron, "off") {
		s.ReminderCron = ""
	}

	loc, err := time.LoadLocation(getenv("APP_TIMEZONE", "America/Sao_Paulo"))
	if err != nil {
		loc = time.UTC
		s.LocationErr = fmt.Errorf("APP_TIMEZONE: %w", err)
	}
	s.Location = loc

	return s
}

func getenv(key, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v
}

func getenvInt(key string, fallback int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
