package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"threadsntrends_back_end/internal/auth"
	"threadsntrends_back_end/internal/cache"
	"threadsntrends_back_end/internal/config"
	"threadsntrends_back_end/internal/database"
	"threadsntrends_back_end/internal/handlers"
	"threadsntrends_back_end/internal/handlers/admin"
	"threadsntrends_back_end/internal/handlers/forms"
	invoicehandler "threadsntrends_back_end/internal/handlers/invoice"
	"threadsntrends_back_end/internal/handlers/payement"
	"threadsntrends_back_end/internal/handlers/product"
	"threadsntrends_back_end/internal/handlers/user"
	"threadsntrends_back_end/internal/invoice"
	"threadsntrends_back_end/internal/logger"
	"threadsntrends_back_end/internal/middleware"
	"threadsntrends_back_end/internal/orders"
	"threadsntrends_back_end/internal/repository"
	"threadsntrends_back_end/internal/routes"
	"threadsntrends_back_end/internal/services"
	"threadsntrends_back_end/internal/worker"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("❌ Configuration invalide")
	}
	logger.Init(cfg.AppEnv, cfg.LogLevel)

	if err := handlers.RegisterValidators(); err != nil {
		log.Fatal().Err(err).Msg("❌ Enregistrement des validateurs impossible")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	conns, err := database.Connect(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("❌ Connexion aux bases de données impossible")
	}

	// --- Dépôts ---
	orderRepo := repository.NewOrderRepository(conns.DB)
	productRepo := repository.NewProductRepository(conns.DB)
	userRepo := repository.NewUserRepository(conns.DB)
	reviewRepo := repository.NewReviewRepository(conns.DB)
	contactRepo := repository.NewContactRepository(conns.DB)
	measurementRepo := repository.NewMeasurementRepository(conns.DB)
	deadLetterRepo := repository.NewDeadLetterRepository(conns.DB)

	carts := cache.NewCartStore(conns.Redis)
	productCache := cache.NewProductCache(conns.Redis)

	// --- Kafka : événements commande et lettres mortes ---
	var (
		events         orders.EventPublisher
		deadLetterSink orders.DeadLetterSink = deadLetterRepo
		deadLetterBus  *services.DeadLetterTopic
		orderEvents    *services.OrderEvents
	)
	brokers := cfg.KafkaBrokerList()
	if len(brokers) > 0 {
		orderEvents = services.NewOrderEvents(services.NewKafkaWriter(brokers, cfg.KafkaOrderTopic))
		deadLetterBus = services.NewDeadLetterTopic(services.NewKafkaWriter(brokers, cfg.KafkaDeadLetterTopic))
		events = orderEvents
		deadLetterSink = deadLetterBus
		log.Info().Strs("brokers", brokers).Msg("✅ Kafka configuré")
	} else {
		log.Warn().Msg("⚠️ KAFKA_BROKERS absent, lettres mortes archivées directement dans MongoDB")
	}

	// --- Mail et factures ---
	renderer := invoice.NewRenderer(cfg.ShopName, cfg.ShopEmail, cfg.FrontendURL)
	var sender services.MailSender
	if cfg.SMTPHost != "" {
		sender = services.NewSMTPMailer(services.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.MailFrom,
		})
	} else {
		log.Warn().Msg("⚠️ SMTP_HOST absent, aucun e-mail ne sera envoyé")
	}
	notifier := services.NewNotifier(sender, renderer, cfg.ShopName, cfg.ShopEmail)

	// --- Commandes ---
	orderService := orders.NewService(orders.Deps{
		Orders:      orderRepo,
		Carts:       carts,
		Gateway:     services.NewStripeGateway(cfg.StripeSecretKey),
		DeadLetters: deadLetterSink,
		Catalog:     productRepo,
		Stock:       productRepo,
		Events:      events,
		Notifier:    notifier,
	}, orders.Settings{
		ShippingCost: cfg.ShippingCost,
		Currency:     cfg.StripeCurrency,
		SuccessURL:   cfg.FrontendURL + "/checkout/success?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:    cfg.FrontendURL + "/checkout/cancel",
	})

	// --- Services optionnels ---
	var (
		auditRecorder middleware.AuditRecorder
		loginAudit    user.AuditRecorder
		auditReader   admin.AuditReader
	)
	if conns.Scylla != nil {
		auditLog := services.NewAuditLog(conns.Scylla)
		if err := auditLog.EnsureSchema(ctx); err != nil {
			log.Warn().Err(err).Msg("⚠️ Table audit_logs indisponible, journal d'audit désactivé")
		} else {
			auditRecorder, loginAudit, auditReader = auditLog, auditLog, auditLog
		}
	}

	productDeps := product.Deps{
		Products: productRepo,
		Reviews:  reviewRepo,
		Cache:    productCache,
	}
	if conns.Elastic != nil {
		productDeps.Index = services.NewProductIndex(conns.Elastic)
	}
	if conns.MinIO != nil {
		productDeps.Images = services.NewImageStore(conns.MinIO, cfg.MinioBucket)
	}

	// --- Auth ---
	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.JWTTTL)
	auth.InitProviders(auth.OAuthConfig{
		SessionSecret:        cfg.SessionSecret,
		BaseURL:              cfg.BaseURL,
		Secure:               cfg.IsProduction(),
		GoogleClientID:       cfg.GoogleClientID,
		GoogleClientSecret:   cfg.GoogleClientSecret,
		FacebookClientID:     cfg.FacebookClientID,
		FacebookClientSecret: cfg.FacebookClientSecret,
	})

	// --- HTTP ---
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	routes.RegisterRoutes(r, routes.Handlers{
		Payment:  payement.NewHandler(orderService, deadLetterRepo, cfg.StripeWebhookSecret),
		Auth:     user.NewAuthHandler(userRepo, tokens, loginAudit, cfg.FrontendURL),
		Cart:     user.NewCartHandler(carts, productRepo),
		Orders:   user.NewOrderHandler(orderService),
		Products: product.NewHandler(productDeps),
		Invoice:  invoicehandler.NewHandler(orderService, renderer),
		Forms:    forms.NewHandler(contactRepo, measurementRepo, notifier),
		Audit:    admin.NewAuditHandler(auditReader),
	}, routes.Options{
		Tokens:      tokens,
		Limiter:     middleware.NewRateLimiter(conns.Redis),
		AuditLog:    auditRecorder,
		CORSOrigins: cfg.CORSOriginList(),
		RatePerMin:  int64(cfg.RateLimitPerMinute),
		Upgrader:    user.NewUpgrader(cfg.CORSOriginList()),
	})

	// --- Worker de lettres mortes ---
	var workers sync.WaitGroup
	if deadLetterBus != nil {
		reader := worker.NewDeadLetterReader(brokers, cfg.KafkaDeadLetterTopic, cfg.KafkaGroupID)
		w := worker.NewDeadLetterWorker(reader, orderService, deadLetterBus, deadLetterRepo, worker.Config{
			MaxAttempts: cfg.WebhookMaxAttempts,
		})
		workers.Add(1)
		go func() {
			defer workers.Done()
			defer reader.Close()
			if err := w.Run(ctx); err != nil {
				log.Error().Err(err).Msg("❌ Worker de lettres mortes arrêté sur erreur")
			}
		}()
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	go func() {
		log.Info().Str("port", cfg.Port).Str("env", cfg.AppEnv).Msg("🚀 Serveur ThreadsNTrends lancé")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("❌ Serveur HTTP arrêté")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("🛑 Arrêt demandé, fermeture en cours")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("❌ Arrêt du serveur HTTP")
	}

	workers.Wait()
	notifier.Wait()

	if orderEvents != nil {
		if err := orderEvents.Close(); err != nil {
			log.Warn().Err(err).Msg("⚠️ Fermeture du producteur Kafka")
		}
	}
	if deadLetterBus != nil {
		if err := deadLetterBus.Close(); err != nil {
			log.Warn().Err(err).Msg("⚠️ Fermeture du producteur de lettres mortes")
		}
	}
	conns.Close(shutdownCtx)
	log.Info().Msg("👋 Serveur arrêté proprement")
}
