package bootstrap

import (
	"context"
	"fmt"
	"log"
	"path/filepath"

	"design-analysis-be/internal/config"
	"design-analysis-be/internal/controller"
	"design-analysis-be/internal/handler"
	"design-analysis-be/internal/pkg/logger"
	"design-analysis-be/internal/repository/memory"
	"design-analysis-be/internal/repository/unitofwork"
	"design-analysis-be/internal/service"
	"design-analysis-be/internal/websocket"
	"design-analysis-be/pkg/database"
	"design-analysis-be/pkg/embedding"
	"design-analysis-be/pkg/events"
	"design-analysis-be/pkg/llm"
	"design-analysis-be/pkg/llm/factory"
	"design-analysis-be/pkg/lock"
	"design-analysis-be/pkg/maturity"
	"design-analysis-be/pkg/pipeline"
	ragcontext "design-analysis-be/pkg/rag/context"
	"design-analysis-be/pkg/rag/retriever"
	"design-analysis-be/pkg/synthesis"

	pktNats "design-analysis-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Container struct {
	// Controllers
	AnalysisController    controller.IAnalysisController
	KnowledgeController   controller.IKnowledgeController
	MaintenanceController controller.IMaintenanceController
	EventStreamHandler    *handler.EventStreamHandler

	// Background Services (Exposed for main.go to run)
	ConsumerService service.IConsumerService

	// Used directly by the maintenance binaries
	AnalysisService    service.IAnalysisService
	KnowledgeService   service.IKnowledgeService
	MaintenanceService service.IMaintenanceService
	Orchestrator       *pipeline.Orchestrator
	Logger             logger.ILogger

	closers []func()
}

// NewContainer wires every component. db may be nil when the memory storage driver is selected.
func NewContainer(db *gorm.DB, cfg *config.Config) (*Container, error) {
	// 1. Core Facades
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")
	c := &Container{Logger: sysLogger}

	var uowFactory unitofwork.RepositoryFactory
	switch cfg.App.StorageDriver {
	case "memory":
		uowFactory = memory.NewRepositoryFactory(memory.NewStore())
		sysLogger.Warn("bootstrap", "Using in-memory storage; data is lost on exit", nil)
	default:
		if db == nil {
			return nil, fmt.Errorf("storage driver %q needs a database connection", cfg.App.StorageDriver)
		}
		uowFactory = unitofwork.NewRepositoryFactory(db)
	}

	// 2. AI backends
	embeddingProvider, err := newEmbeddingProvider(cfg.Ai)
	if err != nil {
		return nil, err
	}
	if cfg.Ai.EmbeddingCacheTTL > 0 {
		embeddingProvider = embedding.NewCachedProvider(embeddingProvider, cfg.Ai.EmbeddingCacheTTL)
	}
	log.Printf("[INFO] Using Embedding Provider: %s (%d dims)", embeddingProvider.ModelVersion(), embeddingProvider.Dimensions())

	chain, err := newChain(cfg.Ai, sysLogger)
	if err != nil {
		return nil, err
	}

	// 3. Infrastructure
	var natsPub *pktNats.Publisher
	var natsSub *pktNats.Subscriber
	var publisher events.Publisher = events.NopPublisher{}
	if cfg.App.QueueDriver == "nats" {
		natsPub, err = pktNats.NewPublisher(cfg.App.NatsURL, sysLogger)
		if err != nil {
			return nil, fmt.Errorf("connect NATS publisher: %w", err)
		}
		natsSub, err = pktNats.NewSubscriber(cfg.App.NatsURL, sysLogger)
		if err != nil {
			natsPub.Close()
			return nil, fmt.Errorf("connect NATS subscriber: %w", err)
		}
		publisher = natsPub
		c.closers = append(c.closers, natsPub.Close, natsSub.Close)
	}

	var locker lock.Locker = lock.NewMemoryLocker()
	var rdb *redis.Client
	if cfg.App.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.App.RedisURL)
		if err != nil {
			log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
			opt = &redis.Options{Addr: cfg.App.RedisURL}
		}
		client := redis.NewClient(opt)
		if _, err := client.Ping(context.Background()).Result(); err != nil {
			log.Printf("[WARN] Failed to connect to Redis: %v. Session locks stay in-process", err)
			_ = client.Close()
		} else {
			rdb = client
			locker = lock.NewRedisLocker(rdb, "design-analysis:lock:")
			c.closers = append(c.closers, func() { _ = rdb.Close() })
		}
	}

	// WebSocket Hub: lifecycle events also reach the session owner's open sockets
	wsLogger := logger.NewIsolatedLogger(filepath.Join(filepath.Dir(cfg.App.LogFilePath), "events.log"))
	wsHub := websocket.NewHub(rdb, wsLogger)
	hubCtx, stopHub := context.WithCancel(context.Background())
	go wsHub.Run(hubCtx)
	c.closers = append(c.closers, stopHub, func() { _ = wsLogger.Sync() })
	publisher = events.Multi{publisher, wsHub}

	// 4. Pipeline
	pcfg := cfg.Pipeline
	rtr := retriever.NewRetriever(embeddingProvider, uowFactory, sysLogger)
	scorer := maturity.NewScorer(maturity.DefaultWeights())
	stages := pipeline.DefaultStages(pcfg, pipeline.StageDeps{
		Retriever: rtr,
		Assembler: ragcontext.NewAssembler(pcfg.MaxEntryChars),
		Critic:    chain,
		Engine:    synthesis.NewEngine(),
		Scorer:    scorer,
		Repos:     uowFactory,
	})
	orchestrator, err := pipeline.NewOrchestrator(pcfg, uowFactory, stages, locker, publisher, sysLogger)
	if err != nil {
		return nil, err
	}

	// 5. Run queue
	var queue service.IRunQueue
	if cfg.App.QueueDriver == "nats" {
		queue = service.NewNatsRunQueue(natsPub, natsSub, sysLogger)
	} else {
		pubSub := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 64}, watermill.NewStdLogger(false, false))
		queue = service.NewChannelRunQueue(pubSub, sysLogger)
		c.closers = append(c.closers, func() { _ = pubSub.Close() })
	}

	// 6. Services
	c.Orchestrator = orchestrator
	c.AnalysisService = service.NewAnalysisService(uowFactory, queue, orchestrator, sysLogger)
	c.KnowledgeService = service.NewKnowledgeService(uowFactory, embeddingProvider, rtr, retriever.Query{
		Threshold: pcfg.SimilarityThreshold,
		TopK:      pcfg.TopK,
		Category:  pcfg.CategoryFilter,
	}, sysLogger)
	c.MaintenanceService = service.NewMaintenanceService(uowFactory, orchestrator, scorer, pcfg, sysLogger)
	c.ConsumerService = service.NewConsumerService(queue, orchestrator, pcfg.WorkerConcurrency, sysLogger)

	// 7. Controllers
	c.AnalysisController = controller.NewAnalysisController(c.AnalysisService)
	c.KnowledgeController = controller.NewKnowledgeController(c.KnowledgeService)
	c.MaintenanceController = controller.NewMaintenanceController(c.MaintenanceService)
	c.EventStreamHandler = handler.NewEventStreamHandler(wsHub, wsLogger)

	return c, nil
}

// Close releases broker and cache connections in reverse order.
func (c *Container) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
	_ = c.Logger.Sync()
}

func newEmbeddingProvider(cfg config.AIConfig) (embedding.EmbeddingProvider, error) {
	switch cfg.EmbeddingProvider {
	case "ollama":
		return embedding.NewOllamaProvider(cfg.OllamaBaseURL, cfg.EmbeddingModel, cfg.EmbeddingDimensions), nil
	case "gemini":
		if cfg.GeminiAPIKey == "" {
			return nil, fmt.Errorf("gemini embeddings need GOOGLE_GEMINI_API_KEY")
		}
		return embedding.NewGeminiProvider(cfg.GeminiAPIKey, cfg.EmbeddingModel, cfg.EmbeddingDimensions), nil
	case "openai":
		if cfg.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("openai embeddings need OPENAI_API_KEY")
		}
		return embedding.NewOpenAIProvider(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.EmbeddingModel, cfg.EmbeddingDimensions), nil
	case "static":
		return embedding.NewStaticProvider(cfg.EmbeddingModel, cfg.EmbeddingDimensions), nil
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", cfg.EmbeddingProvider)
	}
}

// newChain keeps the configured order and drops backends that cannot be built, e.g. a missing key.
func newChain(cfg config.AIConfig, log logger.ILogger) (*llm.Chain, error) {
	creds := factory.Credentials{
		OpenAIKey:     cfg.OpenAIAPIKey,
		OpenAIBaseURL: cfg.OpenAIBaseURL,
		AnthropicKey:  cfg.AnthropicKey,
		OllamaBaseURL: cfg.OllamaBaseURL,
	}
	usable := make([]string, 0, len(cfg.Backends))
	for _, spec := range cfg.Backends {
		if _, err := factory.NewChain([]string{spec}, creds); err != nil {
			log.Warn("bootstrap", "Skipping LLM backend", map[string]interface{}{"backend": spec, "error": err.Error()})
			continue
		}
		usable = append(usable, spec)
	}
	chain, err := factory.NewChain(usable, creds)
	if err != nil {
		return nil, err
	}
	for _, b := range chain.Backends() {
		log.Info("bootstrap", "LLM backend enabled", map[string]interface{}{"backend": b.Name, "capabilities": b.Capabilities})
	}
	return chain, nil
}

// OpenDatabase connects to Postgres unless the memory storage driver is selected.
func OpenDatabase(cfg *config.Config) (*gorm.DB, error) {
	if cfg.App.StorageDriver == "memory" {
		return nil, nil
	}
	return database.NewGormDBFromDSN(cfg.Database.Connection, cfg.App.Environment == "development")
}
