package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"deptkb-go/internal/config"
	"deptkb-go/internal/handler"
	"deptkb-go/internal/model"
	"deptkb-go/internal/pipeline"
	"deptkb-go/internal/repository"
	"deptkb-go/internal/service"
	"deptkb-go/internal/settings"
	"deptkb-go/internal/tools"
	"deptkb-go/internal/vectorindex"
	"deptkb-go/pkg/database"
	"deptkb-go/pkg/embedding"
	"deptkb-go/pkg/es"
	"deptkb-go/pkg/kafka"
	"deptkb-go/pkg/llm"
	"deptkb-go/pkg/log"
	"deptkb-go/pkg/storage"
	"deptkb-go/pkg/tika"
	"deptkb-go/pkg/token"

	"github.com/gin-gonic/gin"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "配置文件路径")
	flag.Parse()

	// 基础设施初始化
	config.Init(*configPath)
	cfg := config.Conf

	log.Init(cfg.Log.Level, cfg.Log.Format, cfg.Log.OutputPath)
	defer log.Sync()

	database.InitMySQL(cfg.Database.MySQL.DSN)
	database.InitRedis(cfg.Database.Redis.Addr, cfg.Database.Redis.Password, cfg.Database.Redis.DB)
	storage.InitMinIO(cfg.MinIO)
	if err := es.InitES(cfg.Elasticsearch, cfg.Embedding.Dimensions); err != nil {
		log.Fatal("初始化 Elasticsearch 失败", err)
	}
	kafka.InitProducer(cfg.Kafka)

	if err := database.DB.AutoMigrate(
		&model.User{},
		&model.Document{},
		&model.DocumentLibraryEntry{},
		&model.KnowledgeNote{},
		&model.SystemPrompt{},
		&model.ModelConfig{},
		&model.ToolPermission{},
		&model.QuickAccessLink{},
		&model.PopularQuestion{},
	); err != nil {
		log.Fatal("数据库迁移失败", err)
	}

	// 仓储
	docRepo := repository.NewDocumentRepository(database.DB)
	noteRepo := repository.NewNoteRepository(database.DB)
	settingsRepo := repository.NewSettingsRepository(database.DB)
	quickRepo := repository.NewQuickAccessRepository(database.DB)
	userRepo := repository.NewUserRepository(database.DB)
	convRepo := repository.NewConversationRepository(database.RDB)

	// 外部客户端与索引
	embedder := embedding.NewClient(cfg.Embedding)
	llmClient := llm.NewClient(cfg.LLM)
	tikaClient := tika.NewClient(cfg.Tika)
	index := vectorindex.NewESIndex(es.ESClient, cfg.Elasticsearch.IndexName)

	// 设置缓存与结构化数据工具
	configCache := settings.NewConfigCache(settingsRepo)
	registry := tools.NewRegistry(
		configCache,
		tools.NewJournalTool(cfg.Datasets),
		tools.NewStaffTool(cfg.Datasets),
		tools.NewResearchTool(cfg.Datasets),
	)

	// 入库流水线与消费者
	processor := pipeline.NewProcessor(
		docRepo, noteRepo, index, embedder,
		pipeline.NewMinioFetcher(cfg.MinIO.BucketName), tikaClient,
	)
	go kafka.StartConsumer(cfg.Kafka, processor)
	reconciler := pipeline.NewReconciler(docRepo, noteRepo, index)

	// 业务服务
	retrievalSvc := service.NewRetrievalService(index, embedder, registry)
	promptSvc := service.NewPromptService()
	answerSvc := service.NewAnswerService(
		retrievalSvc, promptSvc, llmClient, configCache,
		docRepo, convRepo, service.NewMinioSigner(cfg.MinIO.BucketName),
	)
	docSvc := service.NewDocumentService(docRepo, cfg.MinIO)
	noteSvc := service.NewNoteService(noteRepo, index, embedder)
	adminSvc := service.NewAdminService(settingsRepo, configCache, reconciler)
	portalSvc := service.NewPortalService(quickRepo)
	jwtManager := token.NewJWTManager(cfg.JWT.Secret, cfg.JWT.AccessTokenExpireHours, cfg.JWT.RefreshTokenExpireDays)
	userSvc := service.NewUserService(userRepo, jwtManager)

	// 路由
	gin.SetMode(cfg.Server.Mode)
	r := gin.New()
	r.Use(gin.Recovery())
	handler.RegisterRoutes(r, handler.Handlers{
		User:     handler.NewUserHandler(userSvc),
		Chat:     handler.NewChatHandler(answerSvc, convRepo),
		Document: handler.NewDocumentHandler(docSvc),
		Note:     handler.NewNoteHandler(noteSvc),
		Portal:   handler.NewPortalHandler(portalSvc),
		Admin:    handler.NewAdminHandler(adminSvc),
	}, jwtManager)

	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: r,
	}

	go func() {
		log.Infof("服务启动，监听端口 %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("服务启动失败", err)
		}
	}()

	// 优雅退出
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("收到退出信号，正在关闭服务...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("服务关闭异常", err)
	}
	log.Info("服务已退出")
}
