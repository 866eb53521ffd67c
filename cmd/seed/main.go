package main

import (
	"context"
	"flag"
	"os"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"ioccore/internal/config"
	"ioccore/internal/model"
	"ioccore/internal/repository"
)

// seedFile is the authoring-time definition of an assessment template
type seedFile struct {
	AssessmentID string `yaml:"assessmentId"`
	Mappings     []struct {
		QuestionID     string  `yaml:"questionId"`
		Trait          string  `yaml:"trait"`
		SecondaryTrait string  `yaml:"secondaryTrait"`
		Facet          string  `yaml:"facet"`
		Weight         float64 `yaml:"weight"`
		Reverse        bool    `yaml:"reverse"`
	} `yaml:"mappings"`
}

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	file := flag.String("file", "assessment.yaml", "assessment template to seed")
	flag.Parse()

	data, err := os.ReadFile(*file)
	if err != nil {
		logger.Fatal("read template", zap.Error(err))
	}
	var seed seedFile
	if err := yaml.Unmarshal(data, &seed); err != nil {
		logger.Fatal("parse template", zap.Error(err))
	}
	if seed.AssessmentID == "" || len(seed.Mappings) == 0 {
		logger.Fatal("template needs an assessmentId and at least one mapping")
	}

	mappings := make([]model.QuestionMapping, 0, len(seed.Mappings))
	for _, m := range seed.Mappings {
		weight := m.Weight
		if weight == 0 {
			weight = 1
		}
		mappings = append(mappings, model.QuestionMapping{
			QuestionID:     m.QuestionID,
			AssessmentID:   seed.AssessmentID,
			Trait:          model.Trait(m.Trait),
			SecondaryTrait: model.Trait(m.SecondaryTrait),
			Facet:          model.Facet(m.Facet),
			Weight:         weight,
			Reverse:        m.Reverse,
		})
	}

	cfg := config.Load()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		logger.Fatal("connect mongodb", zap.Error(err))
	}
	defer client.Disconnect(ctx)
	if err := client.Ping(ctx, nil); err != nil {
		logger.Fatal("ping mongodb", zap.Error(err))
	}

	repo := repository.NewAssessmentRepo(client.Database(cfg.MongoDB))
	if err := repo.SaveMappings(ctx, mappings); err != nil {
		logger.Fatal("save mappings", zap.Error(err))
	}

	logger.Info("seeded assessment template",
		zap.String("assessmentId", seed.AssessmentID),
		zap.Int("mappings", len(mappings)))
}
