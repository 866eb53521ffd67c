package config

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"ioccore/internal/model"
)

func TestDefaultScoringConfigValid(t *testing.T) {
	assert.NoError(t, DefaultScoringConfig().Validate())
}

func TestScoringConfigValidation(t *testing.T) {
	inverted := DefaultScoringConfig()
	inverted.Scale = model.AnswerScale{Min: 5, Max: 1}
	assert.ErrorContains(t, inverted.Validate(), "scale")

	skewed := DefaultScoringConfig()
	skewed.RoleWeights = map[model.RaterRole]float64{
		model.RoleSelf:    0.5,
		model.RoleManager: 0.3,
	}
	assert.ErrorContains(t, skewed.Validate(), "sum")

	crossed := DefaultScoringConfig()
	crossed.HighExtremeThreshold = 1.5
	crossed.LowExtremeThreshold = 4.0
	assert.ErrorContains(t, crossed.Validate(), "extreme")
}

func TestDefaultLoopConfigValid(t *testing.T) {
	assert.NoError(t, DefaultLoopConfig().Validate())
}

func TestLoopConfigValidation(t *testing.T) {
	over := DefaultLoopConfig()
	over.MaxIterations = MaxLoopIterations + 1
	assert.ErrorContains(t, over.Validate(), "max iterations")

	stuck := DefaultLoopConfig()
	stuck.Timeout = 0
	assert.ErrorContains(t, stuck.Validate(), "timeout")

	narrow := DefaultLoopConfig()
	narrow.OscillationWindow = 1
	assert.ErrorContains(t, narrow.Validate(), "oscillation")

	disabled := DefaultLoopConfig()
	disabled.ImprovementEpsilon = 0
	disabled.ImprovementStreak = 0
	assert.NoError(t, disabled.Validate())
}

func TestLoadReadsEnvironment(t *testing.T) {
	t.Setenv("MONGO_URI", "mongodb://example:27017")
	t.Setenv("REDIS_ADDR", "example:6379")

	cfg := Load()
	assert.Equal(t, "mongodb://example:27017", cfg.MongoURI)
	assert.Equal(t, "example:6379", cfg.RedisAddr)
	assert.Equal(t, "ioccore", cfg.MongoDB)
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("MONGO_URI", "")
	t.Setenv("REDIS_ADDR", "")

	cfg := Load()
	assert.Equal(t, "mongodb://localhost:27017", cfg.MongoURI)
	assert.Equal(t, "localhost:6379", cfg.RedisAddr)
}
