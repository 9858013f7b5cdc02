package main

import (
	"context"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/omics-os/leadengine/internal/config"
	"github.com/omics-os/leadengine/internal/infra/database"
	"github.com/omics-os/leadengine/internal/infra/discovery"
	"github.com/omics-os/leadengine/internal/infra/http/handlers"
	"github.com/omics-os/leadengine/internal/infra/http/middleware"
	"github.com/omics-os/leadengine/internal/infra/mail"
	"github.com/omics-os/leadengine/internal/infra/queue"
	"github.com/omics-os/leadengine/internal/infra/worker"
	"github.com/omics-os/leadengine/internal/persona"
	"github.com/omics-os/leadengine/internal/usecase"
)

func main() {
	cfg := config.Load()

	db, err := database.NewDBConnection(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("❌ [MAIN] database connection failed: %v", err)
	}
	defer db.Close()

	rabbitMQ, err := queue.NewRabbitMQ(cfg.RabbitUser, cfg.RabbitPass, cfg.RabbitHost, cfg.RabbitPort)
	if err != nil {
		log.Fatalf("❌ [MAIN] rabbitmq connection failed: %v", err)
	}
	defer rabbitMQ.Conn.Close()
	defer rabbitMQ.Ch.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 1. Repositories
	leadRepo := database.NewLeadRepository(db)
	outreachRepo := database.NewOutreachRepository(db)
	provenanceRepo := database.NewProvenanceRepository(db)

	// 2. Collaborators and adapters
	registry, err := persona.LoadRegistry(cfg.PersonasFile)
	if err != nil {
		log.Fatalf("❌ [MAIN] persona registry load failed: %v", err)
	}
	github := discovery.NewGitHubClient(cfg.GitHubToken)
	producer := queue.NewProducer(rabbitMQ.Conn, rabbitMQ.Ch)
	sender := mail.NewSender(cfg.MailHost, cfg.MailPort, cfg.MailUser, cfg.MailPass, cfg.MailDomain)

	// 3. Use cases
	ingestUC := usecase.NewIngestCandidatesUseCase(github, leadRepo, provenanceRepo, cfg.Concurrency)
	coordinator := usecase.NewOutreachCoordinator(
		outreachRepo, leadRepo, provenanceRepo, registry, producer,
		usecase.DefaultApprovalPolicy, cfg.AutoOutreachEnabled, cfg.OutreachCoolDown,
	)
	dispatchUC := usecase.NewDispatchOutreachUseCase(
		outreachRepo, leadRepo, provenanceRepo, registry, sender,
		cfg.DispatchMaxRetries, cfg.DispatchBackoff,
	)
	reconcileUC := usecase.NewReconcileEventUseCase(outreachRepo, leadRepo, provenanceRepo)

	// 4. Workers (dispatch consumer + stale queue sweeper)
	dispatchWorker := queue.NewWorker(rabbitMQ.Ch, dispatchUC)
	go dispatchWorker.Start(ctx, queue.QueueName)

	sweeper := worker.NewOutreachSweeper(db, producer)
	go sweeper.Start(ctx)

	// 5. Handlers
	prospectHandler := handlers.NewProspectHandler(ingestUC, cfg.TargetRepos, cfg.MaxIssuesPerRepo, cfg.ScoreThreshold)
	leadHandler := handlers.NewLeadHandler(leadRepo, provenanceRepo)
	outreachHandler := handlers.NewOutreachHandler(coordinator, outreachRepo)
	webhookHandler := handlers.NewWebhookHandler(reconcileUC, cfg.WebhookSecret)
	healthHandler := handlers.NewHealthHandler(db, rabbitMQ.Conn)

	// 6. Router
	r := chi.NewRouter()
	r.Use(chimiddleware.Logger)
	r.Use(middleware.Metrics)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"http://localhost:5173", "*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
	}))

	r.Post("/prospect", prospectHandler.Handle)
	r.Get("/leads", leadHandler.HandleList)
	r.Get("/leads/export", leadHandler.HandleExport)
	r.Get("/leads/{leadId}", leadHandler.HandleGet)
	r.Put("/leads/{leadId}/stage", leadHandler.HandleUpdateStage)
	r.Post("/outreach", outreachHandler.HandleCreate)
	r.Get("/outreach", outreachHandler.HandleList)
	r.Get("/outreach/{attemptId}", outreachHandler.HandleGet)
	r.Post("/outreach/{attemptId}/approve", outreachHandler.HandleApprove)
	r.Post("/outreach/{attemptId}/cancel", outreachHandler.HandleCancel)
	r.Post("/outreach/{attemptId}/close", outreachHandler.HandleClose)
	r.Post("/webhook", webhookHandler.Handle)
	r.Get("/provenance/{resourceType}/{resourceId}", leadHandler.HandleProvenance)
	r.Get("/health", healthHandler.Handle)
	r.Handle("/metrics", promhttp.Handler())

	addr := ":" + cfg.Port
	log.Printf("🔥 LeadEngine API listening on %s", addr)
	if err := http.ListenAndServe(addr, r); err != nil {
		log.Fatalf("❌ [MAIN] server stopped: %v", err)
	}
}
