package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	contractx "github.com/wayfarer-agent/wayfarer/agent/contract"
	executorx "github.com/wayfarer-agent/wayfarer/agent/executor"
	memoryx "github.com/wayfarer-agent/wayfarer/agent/memory"
	orchestratorx "github.com/wayfarer-agent/wayfarer/agent/orchestrator"
	plannerx "github.com/wayfarer-agent/wayfarer/agent/planner"
	promptx "github.com/wayfarer-agent/wayfarer/agent/prompt"
	registryx "github.com/wayfarer-agent/wayfarer/agent/registry"
	sessionx "github.com/wayfarer-agent/wayfarer/agent/session"
	toolx "github.com/wayfarer-agent/wayfarer/agent/tool"
	configx "github.com/wayfarer-agent/wayfarer/pkg/config"
	_ "github.com/wayfarer-agent/wayfarer/pkg/logger/autoload"
	openrouterx "github.com/wayfarer-agent/wayfarer/pkg/openrouter"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	openRouterCfg := configx.MustNew[openrouterx.Config]("OPENROUTER")

	memory := buildMemory(ctx)
	store := buildSessionStore()

	reg := registryx.New()
	err := toolx.RegisterAll(reg, toolx.Deps{
		Geo:         *configx.MustNew[toolx.GeoConfig]("GEO"),
		Weather:     *configx.MustNew[toolx.WeatherConfig]("WEATHER"),
		Currency:    *configx.MustNew[toolx.CurrencyConfig]("CURRENCY"),
		Advice:      openrouterx.NewClient(*openRouterCfg),
		AdviceModel: openRouterCfg.Model,
		Memory:      memory,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("register tools")
	}
	reg.Seal()

	chatModel, err := openRouterCfg.NewChatModel(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("create planner chat model")
	}

	prompts := promptx.LoadPromptSet()
	planner, err := plannerx.New(ctx, chatModel, prompts.Planner, reg.ToolInfos())
	if err != nil {
		log.Fatal().Err(err).Msg("build planner")
	}

	orch, err := orchestratorx.New(
		reg,
		planner,
		executorx.New(reg),
		memory,
		store,
		*configx.MustNew[orchestratorx.Config]("ORCHESTRATOR"),
	)
	if err != nil {
		log.Fatal().Err(err).Msg("build orchestrator")
	}

	runREPL(ctx, orch)
}

// buildMemory prefers Postgres when a DSN is configured and falls back to
// the process-local store otherwise.
func buildMemory(ctx context.Context) contractx.Memory {
	if os.Getenv("POSTGRES_DSN") == "" {
		log.Info().Msg("POSTGRES_DSN not set, using in-process memory store")
		return memoryx.NewInMemoryStore()
	}

	cfg, err := configx.New[memoryx.PostgresConfig]("POSTGRES")
	if err != nil {
		log.Fatal().Err(err).Msg("load postgres config")
	}
	pg, err := memoryx.NewPostgresStore(*cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("connect postgres memory store")
	}
	if err := pg.EnsureSchema(ctx); err != nil {
		log.Fatal().Err(err).Msg("ensure memory schema")
	}
	return pg
}

// buildSessionStore returns nil when Redis is not configured; the
// orchestrator then keeps sessions in process memory only.
func buildSessionStore() sessionx.Store {
	if os.Getenv("REDIS_URL") == "" {
		log.Info().Msg("REDIS_URL not set, session snapshots disabled")
		return nil
	}

	cfg, err := configx.New[sessionx.RedisRESTConfig]("REDIS")
	if err != nil {
		log.Fatal().Err(err).Msg("load redis config")
	}
	store, err := sessionx.NewRedisRESTStore(*cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("build redis session store")
	}
	return store
}

func runREPL(ctx context.Context, orch *orchestratorx.Orchestrator) {
	sessionID := uuid.NewString()
	fmt.Println("Wayfarer travel assistant. Type 'exit' to quit, 'new' for a fresh session.")

	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 64*1024)

	for {
		fmt.Print("you> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case "exit", "quit":
			return
		case "new":
			sessionID = uuid.NewString()
			fmt.Println("started a new session")
			continue
		}

		reply, err := orch.Submit(ctx, sessionID, line)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Error().Err(err).Msg("turn failed")
			fmt.Println("wayfarer> something went wrong, please try again")
			continue
		}

		fmt.Printf("wayfarer> %s\n", reply.Text)
		if reply.Degraded {
			fmt.Println("(partial answer)")
		}
	}
}
