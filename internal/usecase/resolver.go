package usecase

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"prepmic/internal/domain"
	"prepmic/internal/ports"
)

var ErrMissingRole = errors.New("target role is required")

const (
	minDuration = time.Minute
	maxDuration = time.Hour

	// Roughly one question per 2.5 minutes of requested interview time.
	questionPace = 150 * time.Second
	minQuestions = 3
)

// ResolveConfig validates setup input and fills defaults. Rejected input
// never reaches the preparing phase.
func ResolveConfig(cfg domain.InterviewConfig) (domain.InterviewConfig, error) {
	cfg.Role = strings.TrimSpace(cfg.Role)
	cfg.Company = strings.TrimSpace(cfg.Company)
	cfg.CandidateName = strings.TrimSpace(cfg.CandidateName)

	if cfg.Role == "" {
		return domain.InterviewConfig{}, ErrMissingRole
	}
	if cfg.Duration < minDuration || cfg.Duration > maxDuration {
		return domain.InterviewConfig{}, fmt.Errorf("interview duration %s must be between %s and %s", cfg.Duration, minDuration, maxDuration)
	}
	switch cfg.Voice {
	case domain.VoiceMale, domain.VoiceFemale:
	case "":
		cfg.Voice = domain.VoiceFemale
	default:
		return domain.InterviewConfig{}, fmt.Errorf("unknown voice %q", cfg.Voice)
	}
	return cfg, nil
}

// QuestionCount derives how many questions fit the requested duration.
func QuestionCount(duration time.Duration) int {
	count := int(duration / questionPace)
	if count < minQuestions {
		count = minQuestions
	}
	return count
}

// QuestionRequestFor builds the generator request for a resolved config.
func QuestionRequestFor(cfg domain.InterviewConfig) ports.QuestionRequest {
	return ports.QuestionRequest{
		Role:           cfg.Role,
		Company:        cfg.Company,
		JobDescription: cfg.JobDescription,
		DurationMin:    int(cfg.Duration / time.Minute),
		Context:        cfg.Context,
		CandidateName:  cfg.CandidateName,
		QuestionCount:  QuestionCount(cfg.Duration),
	}
}
