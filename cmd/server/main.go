package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	discordadapter "github.com/gnupbl/partyvoice/internal/adapters/discord"
	router "github.com/gnupbl/partyvoice/internal/adapters/http"
	"github.com/gnupbl/partyvoice/internal/app"
	"github.com/gnupbl/partyvoice/internal/clock"
	"github.com/gnupbl/partyvoice/internal/config"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Hosting providers inject env vars directly; .env is for local runs.
	_ = godotenv.Load()

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	if cfg.BotToken == "" || cfg.GuildID == "" {
		log.Fatal().Msg("BOT_TOKEN and GUILD_ID must be set")
	}

	session, err := discordgo.New("Bot " + cfg.BotToken)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build discord session")
	}

	plat := discordadapter.NewClient(session, cfg.GuildID)
	reg := app.NewRegistry()
	votes := app.NewVoteCoordinator(clock.Real(), cfg.VoteWindow, reg, plat)
	reclaim := app.NewReclaimer(clock.Real(), cfg.IdleGrace, reg, votes, plat)
	orch := &app.Orchestrator{
		Registry: reg,
		Reclaim:  reclaim,
		Votes:    votes,
		Platform: plat,
	}

	gateway := discordadapter.NewGateway(session, cfg.GuildID, orch)
	if err := gateway.Start(); err != nil {
		log.Fatal().Err(err).Msg("failed to connect to discord")
	}
	defer gateway.Close()

	r := router.SetupRouter(cfg, orch, reg)
	addr := fmt.Sprintf(":%d", cfg.Port)

	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("partyvoice server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	log.Info().Msg("Server exited gracefully")
}
