package main

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"tourcart/internal/auth"
	"tourcart/internal/cartstore"
	"tourcart/internal/inventory"
	"tourcart/internal/localstore"
	"tourcart/internal/mailer"
	"tourcart/internal/merge"
	"tourcart/internal/notifications"
	"tourcart/internal/ratelimiter"
	"tourcart/internal/validate"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LoadRateLimiterConfig retrieves rate limiter settings from environment variables
func LoadRateLimiterConfig() ratelimiter.Config {
	defaultRequests := 200
	defaultEnabled := false

	requestsPerTimeFrame := defaultRequests
	if val, exists := os.LookupEnv("RATELIMITER_REQUESTS_COUNT"); exists {
		if parsedVal, err := strconv.Atoi(val); err == nil {
			requestsPerTimeFrame = parsedVal
		} else {
			fmt.Println("Invalid RATELIMITER_REQUESTS_COUNT, defaulting to", defaultRequests)
		}
	}

	enabled := defaultEnabled
	if val, exists := os.LookupEnv("RATE_LIMITER_ENABLED"); exists {
		if parsedVal, err := strconv.ParseBool(val); err == nil {
			enabled = parsedVal
		} else {
			fmt.Println("Invalid RATE_LIMITER_ENABLED, defaulting to", defaultEnabled)
		}
	}

	return ratelimiter.Config{
		RequestsPerTimeFrame: requestsPerTimeFrame,
		TimeFrame:            5 * time.Second,
		Enabled:              enabled,
	}
}

// NewLogger creates a new zap logger with color.
func NewLogger() (*zap.SugaredLogger, error) {
	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder

	consoleEncoder := zapcore.NewConsoleEncoder(encoderCfg)
	level := zapcore.InfoLevel
	core := zapcore.NewCore(consoleEncoder, zapcore.NewMultiWriteSyncer(zapcore.AddSync(os.Stdout)), level)

	return zap.New(core).Sugar(), nil
}

var version = "0.3.0"

//	@title			Tourcart Gateway API
//	@description	Cart consistency and reservation validation gateway for the booking marketplace.

//	@BasePath					/v1
//	@securityDefinitions.apikey	ApiKeyAuth
//	@in							header
//	@name						Authorization
//	@description

func main() {
	err := godotenv.Load()
	if err != nil {
		log.Fatalf("Error loading .env file: %v", err)
	}

	smtpPort := 587
	if val := os.Getenv("SMTP_PORT"); val != "" {
		smtpPort, err = strconv.Atoi(val)
		if err != nil {
			log.Fatalf("Invalid value for SMTP_PORT: %v", err)
		}
	}

	cfg := config{
		addr:        os.Getenv("ADDR"),
		env:         os.Getenv("ENV"),
		apiURL:      os.Getenv("EXTERNAL_URL"),
		frontendURL: os.Getenv("FRONTEND_URL"),
		upstream: upstreamConfig{
			inventoryURL: os.Getenv("INVENTORY_SERVICE_URL"),
			cartURL:      os.Getenv("CART_SERVICE_URL"),
		},
		guestSlotPath: os.Getenv("GUEST_CART_DB"),
		mail: mailConfig{
			fromEmail: os.Getenv("SMTP_FROM_EMAIL"),
			smtp: smtpConfig{
				host: os.Getenv("SMTP_HOST"),
				port: smtpPort,
				user: os.Getenv("SMTP_USER"),
				pass: os.Getenv("SMTP_PASS"),
			},
		},
		auth: authConfig{
			basic: basicConfig{
				user: os.Getenv("AUTH_BASIC_USER"),
				pass: os.Getenv("AUTH_BASIC_PASS"),
			},
			token: tokenConfig{
				secret: os.Getenv("AUTH_TOKEN_SECRET"),
				iss:    os.Getenv("AUTH_TOKEN_ISSUER"),
				aud:    os.Getenv("AUTH_TOKEN_AUDIENCE"),
			},
		},
		rateLimiter: LoadRateLimiterConfig(),
	}
	if cfg.guestSlotPath == "" {
		cfg.guestSlotPath = "guest_carts.db"
	}

	logger, err := NewLogger()
	if err != nil {
		fmt.Println("Error creating logger:", err)
		return
	}
	defer logger.Sync()

	// Guest cart slot storage
	slots, err := localstore.Open(cfg.guestSlotPath)
	if err != nil {
		logger.Fatal(err)
	}
	defer slots.Close()
	logger.Infow("guest cart storage opened", "path", cfg.guestSlotPath)

	// Notification sink. Deployments with a push credential swap in the
	// Expo adapter; the log sink is the default delivery path.
	sink := notifications.NewLogSink(logger)

	// Validation engine over the inventory service
	inv := inventory.NewClient(cfg.upstream.inventoryURL)
	engine := validate.NewEngine(inv, sink, logger)

	// The two cart tiers
	userCarts := cartstore.NewRemote(cfg.upstream.cartURL, engine, logger)
	guestCarts := cartstore.NewGuest(slots, engine, logger)

	// Merge reconciler: the only path allowed to write to both tiers
	reconciler := merge.NewReconciler(guestCarts, userCarts, sink, logger)

	// Merge-report mail is optional; without SMTP config the gateway just
	// skips the summary email.
	var mailClient mailer.Client
	if cfg.mail.smtp.host != "" {
		mailClient, err = mailer.NewGomailClient(
			cfg.mail.smtp.host,
			cfg.mail.smtp.port,
			cfg.mail.smtp.user,
			cfg.mail.smtp.pass,
			cfg.mail.fromEmail,
		)
		if err != nil {
			logger.Fatal(err)
		}
	}

	jwtAuthenticator := auth.NewJWTAuthenticator(
		cfg.auth.token.secret,
		cfg.auth.token.aud,
		cfg.auth.token.iss,
	)

	rateLimiter := ratelimiter.NewFixedWindowLimiter(
		cfg.rateLimiter.RequestsPerTimeFrame,
		cfg.rateLimiter.TimeFrame,
	)

	app := &application{
		config:        cfg,
		logger:        logger,
		guestCarts:    guestCarts,
		userCarts:     userCarts,
		reconciler:    reconciler,
		authenticator: jwtAuthenticator,
		sink:          sink,
		mailer:        mailClient,
		rateLimiter:   rateLimiter,
	}

	app.publishMetrics()

	mux := app.mount()

	logger.Fatal(app.run(mux))
}
