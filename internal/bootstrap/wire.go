package bootstrap

import (
	"go.uber.org/zap"

	"prepmic/internal/audio"
	"prepmic/internal/config"
	"prepmic/internal/ports"
	"prepmic/internal/providers/gemini"
	"prepmic/internal/storage"
	"prepmic/internal/usecase"
)

// Services is the assembled runtime graph.
type Services struct {
	Controller *usecase.InterviewController
	Pipeline   *usecase.AnalysisPipeline
	Store      ports.SessionStore
	Config     config.Config
}

// Build wires all backend dependencies for the current runtime.
func Build(eventSink ports.EventSink, log *zap.Logger) (Services, error) {
	cfg, err := config.Load()
	if err != nil {
		return Services{}, err
	}
	if log == nil {
		log = zap.NewNop()
	}

	store, err := storage.NewProfileStore(cfg.DataDir)
	if err != nil {
		return Services{}, err
	}

	client := gemini.NewClient(gemini.Config{
		APIKey:          cfg.Gemini.APIKey,
		APIBaseURL:      cfg.Gemini.APIBaseURL,
		QuestionModel:   cfg.Gemini.QuestionModel,
		TTSModel:        cfg.Gemini.TTSModel,
		TranscribeModel: cfg.Gemini.TranscribeModel,
		AnalysisModel:   cfg.Gemini.AnalysisModel,
		CaptureRate:     cfg.Audio.SampleRate,
		Timeout:         cfg.Gemini.Timeout,
	}, log)

	controller := usecase.NewInterviewController(
		audio.NewFFMPEGCapture(cfg.Audio.RecorderCommand),
		audio.NewFFPlayPlayer(cfg.Playback.PlayerCommand),
		client,
		client,
		store,
		eventSink,
		log,
		usecase.Config{
			Audio: ports.AudioConfig{
				SampleRate:  cfg.Audio.SampleRate,
				Channels:    cfg.Audio.Channels,
				InputFormat: cfg.Audio.InputFormat,
				InputDevice: cfg.Audio.InputDevice,
			},
			Playback: ports.PlaybackConfig{
				SampleRate: cfg.Playback.SampleRate,
				Channels:   cfg.Playback.Channels,
			},
			ChunkSize:            cfg.Session.ChunkSize,
			Lookahead:            cfg.Session.Lookahead,
			FirstQuestionTimeout: cfg.Session.FirstQuestionTimeout,
		},
	)

	pipeline := usecase.NewAnalysisPipeline(client, client, store, eventSink, log)

	return Services{
		Controller: controller,
		Pipeline:   pipeline,
		Store:      store,
		Config:     cfg,
	}, nil
}
