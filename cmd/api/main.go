package main

import (
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"monumentNarrator/internal/cache"
	"monumentNarrator/internal/config"
	"monumentNarrator/internal/events"
	"monumentNarrator/internal/llm"
	"monumentNarrator/internal/narration"
	"monumentNarrator/internal/server"
	"monumentNarrator/internal/session"
	"monumentNarrator/internal/speech"
	"monumentNarrator/internal/translate"
)

func main() {
	initLogging()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	describer := llm.NewMistralClient(llm.Config{
		APIKey:  cfg.MistralAPIKey,
		Model:   cfg.MistralModel,
		Timeout: cfg.RequestTimeout,
	})
	translator := translate.NewGoogleTranslator(translate.Config{Timeout: cfg.RequestTimeout})
	synthesizer := speech.NewGoogleSynthesizer(speech.Config{Timeout: cfg.RequestTimeout})

	handler := narration.Handler{
		Store:       session.NewStore(),
		Describer:   describer,
		Translator:  translator,
		Synthesizer: synthesizer,
		Cache:       cache.New(),
		Events:      events.NewBroker(),
		TargetLang:  cfg.TargetLang,
	}

	staticFS := http.FileServer(http.Dir(cfg.WebDir))
	srv := server.New(cfg.Port, handler, staticFS)

	shutdownChan := make(chan os.Signal, 1)
	signal.Notify(shutdownChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-shutdownChan
		log.Info().Msg("shutting down server")
		if err := srv.Close(); err != nil {
			log.Error().Err(err).Msg("server close error")
		}
	}()

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal().Err(err).Msg("server failed")
	}
}

func initLogging() {
	switch os.Getenv("LOG_LEVEL") {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
}
