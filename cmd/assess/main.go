package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"ioccore/internal/config"
	"ioccore/internal/model"
	"ioccore/internal/repository"
	"ioccore/internal/service"
)

// assessInput is the offline scoring request: an assessment's mappings plus
// everything submitted so far for one subject
type assessInput struct {
	AssessmentID string                  `json:"assessmentId"`
	SubjectID    string                  `json:"subjectId"`
	StressLevel  int                     `json:"stressLevel"`
	Role         model.RoleMetadata      `json:"role"`
	Mappings     []model.QuestionMapping `json:"mappings"`
	Submissions  []model.Submission      `json:"submissions"`
	Members      []model.TraitScores     `json:"members,omitempty"` // org collective, optional
}

// assessReport is the full pipeline output
type assessReport struct {
	SubjectID    string                             `json:"subjectId"`
	Scores       map[string]*model.OceanScoreDetails `json:"scores"` // per rater
	Aggregated   *model.Aggregated360Result         `json:"aggregated"`
	Executive    *model.ExecutiveProfile            `json:"executive"`
	Risk         *model.DarkSideProfile             `json:"risk"`
	Organization *model.OrganizationalProfile       `json:"organization,omitempty"`
	Fit          *model.FitResult                   `json:"fit,omitempty"`
}

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	input := flag.String("input", "", "assessment input JSON file")
	normsPath := flag.String("norms", "", "normative table YAML (bundled defaults when empty)")
	save := flag.Bool("save", false, "persist results to MongoDB")
	enqueueLoop := flag.Bool("enqueue-loop", false, "queue a feedback loop to draft the narrative report")
	flag.Parse()

	if *input == "" {
		logger.Fatal("missing -input file")
	}
	data, err := os.ReadFile(*input)
	if err != nil {
		logger.Fatal("read input", zap.Error(err))
	}
	var in assessInput
	if err := json.Unmarshal(data, &in); err != nil {
		logger.Fatal("parse input", zap.Error(err))
	}

	norms := config.DefaultNormTable()
	if *normsPath != "" {
		norms, err = config.LoadNormTable(*normsPath)
		if err != nil {
			logger.Fatal("load norms", zap.Error(err))
		}
	}

	scoringCfg := config.DefaultScoringConfig()
	scorer, err := service.NewScoringService(scoringCfg, norms)
	if err != nil {
		logger.Fatal("scoring service", zap.Error(err))
	}
	aggregator, err := service.NewAggregationService(scoringCfg)
	if err != nil {
		logger.Fatal("aggregation service", zap.Error(err))
	}
	profiles, err := service.NewProfileService(scoringCfg)
	if err != nil {
		logger.Fatal("profile service", zap.Error(err))
	}
	risk, err := service.NewRiskService(scoringCfg)
	if err != nil {
		logger.Fatal("risk service", zap.Error(err))
	}

	mappings := make(map[string]model.QuestionMapping, len(in.Mappings))
	for _, m := range in.Mappings {
		mappings[m.QuestionID] = m
	}

	report := assessReport{
		SubjectID: in.SubjectID,
		Scores:    make(map[string]*model.OceanScoreDetails),
	}

	byRole := make(map[model.RaterRole][]model.TraitScores)
	for _, sub := range in.Submissions {
		details, err := scorer.Score(sub.Responses, mappings)
		if err != nil {
			logger.Fatal("score submission",
				zap.String("raterId", sub.RaterID),
				zap.String("role", string(sub.Role)),
				zap.Error(err))
		}
		report.Scores[sub.RaterID] = details
		byRole[sub.Role] = append(byRole[sub.Role], details.Raw)
	}

	report.Aggregated, err = aggregator.Aggregate(in.AssessmentID, in.SubjectID, byRole)
	if err != nil {
		logger.Fatal("aggregate", zap.Error(err))
	}

	report.Executive = profiles.ComposeExecutive(in.SubjectID, report.Aggregated.Weighted, in.Role)

	stress := in.StressLevel
	if stress == 0 {
		stress = 5
	}
	report.Risk, err = risk.Assess(in.SubjectID, report.Aggregated.Weighted, stress)
	if err != nil {
		logger.Fatal("risk assessment", zap.Error(err))
	}

	if len(in.Members) > 0 {
		report.Organization, err = profiles.ComposeOrganizational(in.Members)
		if err != nil {
			logger.Fatal("organizational profile", zap.Error(err))
		}
		report.Fit = profiles.Fit(report.Aggregated.Weighted, report.Organization)
	}

	if *save || *enqueueLoop {
		persist(logger, &in, &report, *save, *enqueueLoop)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		logger.Fatal("encode report", zap.Error(err))
	}
}

func persist(logger *zap.Logger, in *assessInput, report *assessReport, save, enqueueLoop bool) {
	cfg := config.Load()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		logger.Fatal("connect mongodb", zap.Error(err))
	}
	defer client.Disconnect(ctx)
	db := client.Database(cfg.MongoDB)

	if save {
		repo := repository.NewResultRepo(db)
		if err := repo.Save360(ctx, report.Aggregated); err != nil {
			logger.Fatal("save 360 result", zap.Error(err))
		}
		if err := repo.SaveRiskProfile(ctx, in.AssessmentID, report.Risk); err != nil {
			logger.Fatal("save risk profile", zap.Error(err))
		}
		logger.Info("results persisted", zap.String("assessmentId", in.AssessmentID))
	}

	if enqueueLoop {
		req := &model.LoopRequest{
			Context: model.GenerationContext{
				SubjectID: in.SubjectID,
				NodeType:  model.NodeInsight,
				Seed:      fmt.Sprintf("Draft a development narrative for subject %s of assessment %s.", in.SubjectID, in.AssessmentID),
				Data: map[string]interface{}{
					"weighted":    report.Aggregated.Weighted,
					"overallRisk": string(report.Risk.Overall),
				},
			},
		}
		if err := repository.NewLoopRepo(db).EnqueueRequest(ctx, req); err != nil {
			logger.Fatal("enqueue feedback loop", zap.Error(err))
		}
		logger.Info("feedback loop queued", zap.String("requestId", req.ID))
	}
}
