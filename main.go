package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"worksense/backend/ai"
	"worksense/backend/cache"
	"worksense/backend/config"
	"worksense/backend/db"
	"worksense/backend/handlers"
	"worksense/backend/logging"
	"worksense/backend/middleware"
	"worksense/backend/mq"
	"worksense/backend/mqhandler"
	"worksense/backend/repositories"
	"worksense/backend/services"
)

func main() {
	_ = godotenv.Load()
	logging.InitLogger()
	log := logging.Logger

	cfg := config.Load()
	if cfg.JWTSecret == "" {
		log.Fatal("Event ID: CONFIG_MISSING, Description: JWT_SECRET must be set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	// MongoDB: projects, backlog, sprints, points.
	mongoClient, err := db.ConnectMongo(cfg.MongoURI)
	if err != nil {
		log.Fatalf("Event ID: MONGO_CONNECT_FAILED, Description: %v", err)
	}
	defer mongoClient.Disconnect(context.Background())

	database := mongoClient.Database(cfg.MongoDBName)
	if err := db.EnsureIndexes(ctx, database); err != nil {
		log.Fatalf("Event ID: MONGO_INDEX_FAILED, Description: %v", err)
	}

	projectsColl := database.Collection("projects")
	itemsColl := database.Collection("backlog_items")
	sprintsColl := database.Collection("sprints")
	sprintItemsColl := database.Collection("sprint_items")
	pointsColl := database.Collection("points_events")

	// PostgreSQL: user accounts.
	pgPool, err := db.ConnectPostgres(cfg)
	if err != nil {
		log.Fatalf("Event ID: POSTGRES_CONNECT_FAILED, Description: %v", err)
	}
	defer pgPool.Close()

	// Redis: project cache and leaderboard rankings.
	rdb := cache.NewRedisClient(cfg)
	defer rdb.Close()
	projectCache := cache.NewProjectCache(rdb)

	// RabbitMQ: domain event publisher.
	publisher, err := mq.NewPublisher(cfg.MQURL)
	if err != nil {
		log.Fatalf("Event ID: MQ_CONNECT_FAILED, Description: %v", err)
	}
	defer publisher.Close()

	// Cassandra: notification feed.
	notificationRepo, err := repositories.NewNotificationRepo(cfg.CassandraHost)
	if err != nil {
		log.Fatalf("Event ID: CASSANDRA_CONNECT_FAILED, Description: %v", err)
	}
	defer notificationRepo.CloseSession()

	// Services.
	generatorClient := ai.NewGeneratorClient(cfg)
	backlogService := services.NewBacklogService(mongoClient, itemsColl, projectsColl)
	assistantService := services.NewAssistantService(backlogService, generatorClient, publisher)
	boardService := services.NewBoardService(services.NewMongoBoardStore(sprintItemsColl, sprintsColl, itemsColl), publisher)
	projectService := services.NewProjectService(projectsColl, itemsColl, sprintsColl, projectCache)
	sprintService := services.NewSprintService(services.NewMongoSprintStore(sprintsColl, sprintItemsColl))
	gamificationService := services.NewGamificationService(pointsColl, rdb)
	userService := services.NewUserService(pgPool, cfg.JWTSecret)

	// Event consumers.
	startConsumer(cfg.MQURL, "worksense.gamification", mq.KeySprintItemDone,
		mqhandler.NewItemCompletedHandler(gamificationService, backlogService, notificationRepo).Handle)
	startConsumer(cfg.MQURL, "worksense.assignments", mq.KeySprintItemAssigned,
		mqhandler.NewItemAssignedHandler(backlogService, notificationRepo).Handle)
	startConsumer(cfg.MQURL, "worksense.backlog", mq.KeyBacklogConfirmed,
		mqhandler.NewBacklogConfirmedHandler(notificationRepo).Handle)

	// Handlers.
	assistantHandler := handlers.NewAssistantHandler(assistantService)
	boardHandler := handlers.NewBoardHandler(boardService)
	projectHandler := handlers.NewProjectHandler(projectService)
	backlogHandler := handlers.NewBacklogHandler(backlogService)
	sprintHandler := handlers.NewSprintHandler(sprintService)
	gamificationHandler := handlers.NewGamificationHandler(gamificationService)
	userHandler := handlers.NewUserHandler(userService)
	notificationHandler := handlers.NewNotificationHandler(notificationRepo)

	r := mux.NewRouter()

	r.Handle("/metrics", promhttp.Handler()).Methods("GET")
	r.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")

	r.HandleFunc("/api/auth/register", userHandler.Register).Methods("POST")
	r.HandleFunc("/api/auth/login", userHandler.Login).Methods("POST")

	// AI assistant routes. Auth is optional here: anonymous confirmations
	// carry a null author.
	assist := r.PathPrefix("/project/{projectId}").Subrouter()
	assist.Use(func(next http.Handler) http.Handler {
		return middleware.OptionalAuthMiddleware(cfg.JWTSecret, next)
	})
	assist.HandleFunc("/generate-epics", assistantHandler.GenerateEpics).Methods("GET")
	assist.HandleFunc("/confirm-epics", assistantHandler.ConfirmEpics).Methods("POST")
	assist.HandleFunc("/stories/generate-stories", assistantHandler.GenerateStories).Methods("POST")
	assist.HandleFunc("/stories/confirm-stories", assistantHandler.ConfirmStories).Methods("POST")

	// Sprint board routes.
	board := r.PathPrefix("/projects/{projectId}/sprints/{sprintId}").Subrouter()
	board.Use(func(next http.Handler) http.Handler {
		return middleware.OptionalAuthMiddleware(cfg.JWTSecret, next)
	})
	board.HandleFunc("/items", boardHandler.AddItem).Methods("POST")
	board.HandleFunc("/board", boardHandler.GetBoard).Methods("GET")
	board.HandleFunc("/items/{itemId}", boardHandler.UpdateItem).Methods("PATCH")
	board.HandleFunc("/items/{itemId}", boardHandler.RemoveItem).Methods("DELETE")
	board.HandleFunc("/renumber", boardHandler.Renumber).Methods("POST")

	// Authenticated API.
	api := r.PathPrefix("/api").Subrouter()
	api.Use(func(next http.Handler) http.Handler {
		return middleware.JWTAuthMiddleware(cfg.JWTSecret, next)
	})
	api.HandleFunc("/users/me", userHandler.Me).Methods("GET")

	api.HandleFunc("/projects", projectHandler.CreateProject).Methods("POST")
	api.HandleFunc("/projects", projectHandler.ListProjects).Methods("GET")
	api.HandleFunc("/projects/{projectId}", projectHandler.GetProjectByID).Methods("GET")
	api.HandleFunc("/projects/{projectId}", projectHandler.UpdateProject).Methods("PATCH")
	api.HandleFunc("/projects/{projectId}", projectHandler.DeleteProject).Methods("DELETE")
	api.HandleFunc("/projects/{projectId}/members", projectHandler.GetProjectMembers).Methods("GET")
	api.HandleFunc("/projects/{projectId}/members", projectHandler.AddMemberToProject).Methods("POST")
	api.HandleFunc("/projects/{projectId}/members/{memberId}", projectHandler.RemoveMemberFromProject).Methods("DELETE")

	api.HandleFunc("/projects/{projectId}/backlog", backlogHandler.CreateItem).Methods("POST")
	api.HandleFunc("/projects/{projectId}/backlog", backlogHandler.ListBacklog).Methods("GET")
	api.HandleFunc("/projects/{projectId}/backlog/{itemId}", backlogHandler.GetItem).Methods("GET")
	api.HandleFunc("/projects/{projectId}/backlog/{itemId}", backlogHandler.UpdateItem).Methods("PATCH")
	api.HandleFunc("/projects/{projectId}/backlog/{itemId}", backlogHandler.DeleteItem).Methods("DELETE")
	api.HandleFunc("/projects/{projectId}/epics/{epicId}/stories", backlogHandler.ListStories).Methods("GET")

	api.HandleFunc("/projects/{projectId}/sprints", sprintHandler.CreateSprint).Methods("POST")
	api.HandleFunc("/projects/{projectId}/sprints", sprintHandler.ListSprints).Methods("GET")
	api.HandleFunc("/projects/{projectId}/sprints/{sprintId}", sprintHandler.GetSprint).Methods("GET")
	api.HandleFunc("/projects/{projectId}/sprints/{sprintId}", sprintHandler.UpdateSprint).Methods("PATCH")
	api.HandleFunc("/projects/{projectId}/sprints/{sprintId}", sprintHandler.DeleteSprint).Methods("DELETE")
	api.HandleFunc("/projects/{projectId}/sprints/{sprintId}/activate", sprintHandler.ActivateSprint).Methods("POST")
	api.HandleFunc("/projects/{projectId}/sprints/{sprintId}/complete", sprintHandler.CompleteSprint).Methods("POST")

	api.HandleFunc("/projects/{projectId}/leaderboard", gamificationHandler.GetLeaderboard).Methods("GET")
	api.HandleFunc("/notifications", notificationHandler.GetNotifications).Methods("GET")
	api.HandleFunc("/notifications/{notificationId}/read", notificationHandler.MarkAsRead).Methods("POST")

	handler := middleware.EnableCORS(middleware.Metrics(r))

	srv := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Infof("Event ID: SERVER_START, Description: Worksense backend listening on :%s", cfg.ServerPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Event ID: SERVER_FAILED, Description: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Event ID: SERVER_STOPPING, Description: Shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorf("Event ID: SERVER_SHUTDOWN_FAILED, Description: %v", err)
	}
}

// startConsumer wires one queue to its handler and keeps it running in the
// background. A consumer that cannot connect is fatal at startup.
func startConsumer(url, queue, routingKey string, handler mq.MessageHandler) {
	consumer, err := mq.NewConsumer(url, queue, routingKey)
	if err != nil {
		logging.Logger.Fatalf("Event ID: MQ_CONSUMER_FAILED, Description: Failed to start consumer for %s: %v", routingKey, err)
	}
	consumer.SetHandler(handler)
	go func() {
		if err := consumer.StartConsuming(); err != nil {
			logging.Logger.Errorf("Event ID: MQ_CONSUME_STOPPED, Description: Consumer for %s stopped: %v", routingKey, err)
		}
	}()
}
