package app

import (
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"ioccore/internal/cache"
	"ioccore/internal/config"
	"ioccore/internal/repository"
	"ioccore/internal/service"
)

// App wires the scoring pipeline and loop orchestrator with their
// persistence and cache collaborators
type App struct {
	AssessmentRepo repository.AssessmentRepo
	ResultRepo     repository.ResultRepo
	LoopRepo       repository.LoopRepo

	ContentCache    cache.ContentCache
	CompletionCache cache.CompletionCache

	Scoring     *service.ScoringService
	Aggregation *service.AggregationService
	Profiles    *service.ProfileService
	Risk        *service.RiskService
	Intake      *service.IntakeService
	Loops       *service.LoopService
}

// New builds the full collaborator graph. The loop service starts on the
// heuristic built-ins; hosting processes swap in real AI collaborators via
// its setters.
func New(db *mongo.Database, rdb *redis.Client, scoringCfg config.ScoringConfig, norms *config.NormTable, loopCfg config.LoopConfig, logger *zap.Logger) (*App, error) {
	scoring, err := service.NewScoringService(scoringCfg, norms)
	if err != nil {
		return nil, err
	}
	aggregation, err := service.NewAggregationService(scoringCfg)
	if err != nil {
		return nil, err
	}
	profiles, err := service.NewProfileService(scoringCfg)
	if err != nil {
		return nil, err
	}
	risk, err := service.NewRiskService(scoringCfg)
	if err != nil {
		return nil, err
	}

	loopRepo := repository.NewLoopRepo(db)
	loops, err := service.NewLoopService(
		loopRepo,
		service.NewHeuristicGenerator(),
		service.NewHeuristicValidator(),
		loopCfg,
		logger,
	)
	if err != nil {
		return nil, err
	}
	contentCache := cache.NewContentCache(rdb)
	loops.SetCache(contentCache)

	assessmentRepo := repository.NewAssessmentRepo(db)
	completionCache := cache.NewCompletionCache(rdb)
	intake, err := service.NewIntakeService(assessmentRepo, completionCache, scoringCfg)
	if err != nil {
		return nil, err
	}

	return &App{
		AssessmentRepo:  assessmentRepo,
		ResultRepo:      repository.NewResultRepo(db),
		LoopRepo:        loopRepo,
		ContentCache:    contentCache,
		CompletionCache: completionCache,
		Scoring:         scoring,
		Aggregation:     aggregation,
		Profiles:        profiles,
		Risk:            risk,
		Intake:          intake,
		Loops:           loops,
	}, nil
}
