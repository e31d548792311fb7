package cmd

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	feat "interviewace/internal/features"
	"interviewace/internal/handler"
	sv "interviewace/internal/service"
	"interviewace/internal/store"
	ext "interviewace/internal/utils/extractor"
	"interviewace/internal/utils/sse"
	logging "interviewace/pkg/logger/pkg"
	rabbit "interviewace/pkg/rabbit/pkg"
)

func Execute() {
	if err := loadConfig(logging.NewTmpLogger()); err != nil {
		log.Fatalf("Failed to read config: %v", err)
	}
	logger, err := logging.InitLogger(logging.ReadConfig())
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()
	logging.SetXRequestIDHeader(ext.XRequestID)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, logger); err != nil {
		logger.Fatal("Server exited with error", zap.Error(err))
	}
	logger.Info("Server stopped")
}

func run(ctx context.Context, logger *zap.Logger) error {
	repository, closeRepo, err := openRepository(ctx, readStorageConfig(), logger)
	if err != nil {
		return err
	}
	defer closeRepo()

	pool := feat.NewGenerationWorkerPool(feat.ReadWorkerConfig(), logger)
	pool.Start()
	defer pool.Stop()

	timers := feat.NewQuestionTimerManager(logger, nil)
	defer timers.Shutdown()

	rb := rabbit.New(rabbit.ReadConfig())
	hub := sse.NewHub()

	st := store.New(repository, store.NewReducer(), logger)
	interviewer := feat.NewInterviewer(st, sv.NewGeneratorClient(sv.ReadConfig(), logger), pool, timers, feat.ReadSettings(), logger)
	policy := feat.NewResumePolicy(st, logger)
	notifier := feat.NewNotifier(rb, hub, logger)
	timers.OnTick(notifier.Tick)

	// Subscribers must be in place before hydration.
	interviewer.Start()
	policy.Start()
	notifier.Start(st)
	st.Load(ctx)

	gin.SetMode(gin.ReleaseMode)
	serverCfg := readServerConfig()
	router := handler.NewRouter(handler.RouterConfig{
		InterviewHandler: handler.NewInterviewHandler(st, interviewer, policy, logger),
		SSEHandler:       handler.NewSSEHandler(hub, serverCfg.SSEHeartbeat, logger),
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return serveHTTP(gctx, serverCfg, router, logger)
	})
	g.Go(func() error {
		return rb.Consume(gctx, feat.ResumeParsedHandler(interviewer, logger))
	})
	g.Go(func() error {
		return notifier.Run(gctx)
	})
	return g.Wait()
}
