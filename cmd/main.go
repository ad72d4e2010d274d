package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nuttroadm/backendnuttro/agents"
	"github.com/nuttroadm/backendnuttro/config"
	"github.com/nuttroadm/backendnuttro/controllers"
	"github.com/nuttroadm/backendnuttro/routes"
	"github.com/nuttroadm/backendnuttro/services"
	"github.com/nuttroadm/backendnuttro/utils"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

func main() {
	root := &cobra.Command{
		Use:           "nuttro",
		Short:         "Nuttro nutrition coaching API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(serveCmd(), migrateCmd(), seedAdminCmd())

	if err := root.Execute(); err != nil {
		logger := zerolog.New(os.Stderr).With().Timestamp().Logger()
		logger.Fatal().Err(err).Msg("command failed")
	}
}

func bootstrap() (*config.Config, zerolog.Logger, *gorm.DB, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, zerolog.Nop(), nil, err
	}
	log := config.NewLogger(cfg)
	db, err := config.OpenDB(cfg)
	if err != nil {
		return nil, log, nil, err
	}
	return cfg, log, db, nil
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, log, db, err := bootstrap()
			if err != nil {
				return err
			}
			if err := config.Migrate(db); err != nil {
				return err
			}
			log.Info().Msg("migrations applied")
			return nil
		},
	}
}

func seedAdminCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed-admin",
		Short: "Create the default admin nutricionista if missing",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, db, err := bootstrap()
			if err != nil {
				return err
			}
			if err := config.Migrate(db); err != nil {
				return err
			}
			_, err = config.SeedAdmin(db, cfg, log)
			return err
		},
	}
}

func serveCmd() *cobra.Command {
	var skipMigrate bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, websocket hub and reminder scheduler",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, db, err := bootstrap()
			if err != nil {
				return err
			}
			if !skipMigrate {
				if err := config.Migrate(db); err != nil {
					return err
				}
				if _, err := config.SeedAdmin(db, cfg, log); err != nil {
					return err
				}
			}
			return serve(cmd.Context(), cfg, log, db)
		},
	}
	cmd.Flags().BoolVar(&skipMigrate, "skip-migrate", false, "do not run migrations and admin seed on boot")
	return cmd
}

func serve(parent context.Context, cfg *config.Config, log zerolog.Logger, db *gorm.DB) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if !cfg.IsDev() {
		gin.SetMode(gin.ReleaseMode)
	}

	// Optional AWS integrations stay as nil interfaces when unconfigured.
	var uploader services.ImageUploader
	if cfg.S3Enabled() {
		s3u, err := utils.NewS3Uploader(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.CloudFrontURL)
		if err != nil {
			log.Warn().Err(err).Msg("S3 disabled")
		} else {
			uploader = s3u
		}
	}

	var push services.PushNotifier
	var pushSvc *services.PushService
	if cfg.SNSFCMArn != "" {
		ps, err := services.NewPushService(ctx, db, cfg.AWSRegion, cfg.SNSFCMArn, log)
		if err != nil {
			log.Warn().Err(err).Msg("SNS push disabled")
		} else {
			pushSvc, push = ps, ps
		}
	}

	var mail services.EmailSender
	if cfg.SESEmail != "" {
		m, err := utils.NewMailer(ctx, cfg.AWSRegion, cfg.SESEmail)
		if err != nil {
			log.Warn().Err(err).Msg("SES disabled")
		} else {
			mail = m
		}
	}

	var labeler agents.ImageLabeler
	if cfg.RekognitionEnabled {
		rk, err := services.NewRekognitionService(ctx, cfg.AWSRegion)
		if err != nil {
			log.Warn().Err(err).Msg("Rekognition disabled")
		} else {
			labeler = rk
		}
	}

	var llm agents.Completer
	if cfg.LLMEnabled() {
		llm = agents.NewGroqCompleter(agents.GroqConfig{
			APIKey:      cfg.GroqAPIKey,
			BaseURL:     cfg.GroqBaseURL,
			TextModel:   cfg.GroqModelText,
			VisionModel: cfg.GroqModelVision,
			Timeout:     cfg.LLMTimeout,
		})
	} else {
		log.Warn().Msg("GROQ_API_KEY not set, agents will answer with fallbacks")
	}
	ag := agents.New(llm, agents.Options{
		Recorder: services.NewIAHistoryRecorder(db, log),
		Labeler:  labeler,
		Logger:   log,
	})

	tokens := utils.NewTokenIssuer(cfg.SecretKey, cfg.TokenTTL)
	hub := services.NewRealtimeHub(log)
	alerts := services.NewAlertBus(db, hub, log)
	evo := services.NewEvolutionClient(cfg.EvolutionAPIURL, cfg.EvolutionAPIKey).WithLogger(log)
	if !evo.Enabled() {
		log.Warn().Msg("Evolution API not configured, WhatsApp features disabled")
	}

	authSvc := services.NewAuthService(db, tokens, services.IDTokenVerifier{Audience: cfg.GoogleClientID}, cfg.AdminEmail, log)
	nutriSvc := services.NewNutricionistaService(db, uploader)
	pacienteSvc := services.NewPacienteService(db, uploader, log)
	dashSvc := services.NewDashboardService(db)
	waSvc := services.NewWhatsAppService(db, evo, hub, push, log)

	reminders := services.NewReminderService(db, evo, push, mail, log)
	if err := reminders.Start(cfg.ReminderCron); err != nil {
		return err
	}
	defer reminders.Stop()

	r := routes.SetupRouter(routes.Deps{
		Log:         log,
		CORSOrigins: cfg.CORSOrigins,
		DevRoutes:   cfg.IsDev(),
		Tokens:      tokens,
		Loader:      authSvc,

		Auth:          controllers.NewAuthController(authSvc, nutriSvc),
		Pacientes:     controllers.NewPacienteController(pacienteSvc, dashSvc),
		Metas:         controllers.NewMetaController(services.NewMetaService(db)),
		Planos:        controllers.NewPlanoController(services.NewPlanoService(db, ag)),
		Agendamentos:  controllers.NewAgendamentoController(services.NewAgendamentoService(db)),
		Consultas:     controllers.NewConsultaController(services.NewConsultaService(db, ag)),
		Status:        controllers.NewStatusController(services.NewStatusService(db)),
		Analytics:     controllers.NewAnalyticsController(dashSvc, alerts),
		IA:            controllers.NewRecommendationController(services.NewIAService(db, ag)),
		WhatsApp:      controllers.NewWhatsAppController(waSvc),
		Webhooks:      controllers.NewWebhookController(services.NewWebhookService(db, hub, log)),
		Mobile:        controllers.NewMobileController(services.NewMobileService(db, ag, uploader, alerts, log)),
		Devices:       controllers.NewDeviceController(pushSvc),
		Notifications: controllers.NewNotificationController(db),
		Uploads:       controllers.NewImageUploadController(uploader),
		Realtime:      controllers.NewRealtimeController(hub, pacienteSvc, log),
		Dev:           controllers.NewDevController(push, pacienteSvc),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Str("env", cfg.Env).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
