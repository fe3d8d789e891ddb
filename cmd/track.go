package cmd

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/shehryarbajwa/tabtrace/internal/api"
	"github.com/shehryarbajwa/tabtrace/internal/bridge"
	"github.com/shehryarbajwa/tabtrace/internal/pause"
	"github.com/shehryarbajwa/tabtrace/internal/session"
	"github.com/shehryarbajwa/tabtrace/internal/state"
	"github.com/shehryarbajwa/tabtrace/internal/submitter"
)

func newTrackCmd(a *app) *cobra.Command {
	trackCmd := &cobra.Command{
		Use:   "track",
		Short: "Run the tracker agent the browser extension connects to",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.track(ctx, listenAddr(cmd, a.cfg.AgentAddr))
		},
	}

	trackCmd.Flags().String("addr", "", "listen address (default from agent.addr)")
	trackCmd.Flags().String("state", "", "pause state file (default from agent.state_path)")

	return trackCmd
}

// agent is the wired tracker: pause state, sessions, submission and the extension bridge
type agent struct {
	controller *pause.Controller
	manager    *session.Manager
	submitter  *submitter.Submitter
	bridge     *bridge.Server
	router     http.Handler
}

func (a *app) newAgent(ctx context.Context) (*agent, error) {
	stateStore, err := state.NewStore(a.cfg.StatePath)
	if err != nil {
		return nil, fmt.Errorf("open state: %w", err)
	}
	controller := pause.NewController(ctx, stateStore)
	log.Printf("✓ Pause controller initialized (tracking=%t, state=%s)", !controller.Paused(), stateStore.Path())

	client := submitter.NewClient(a.cfg.ServerURL, a.httpClient)
	sub := submitter.New(client,
		submitter.WithMaxInFlight(a.cfg.MaxInFlight),
		submitter.WithTimeout(a.cfg.SubmitTimeout),
	)
	log.Printf("✓ Submitter initialized (%s)", a.cfg.ServerURL)

	manager := session.NewManager(controller, sub)
	controller.OnPause(manager.FlushAll)
	log.Println("✓ Session manager initialized")

	bridgeServer := bridge.NewServer(manager, a.cfg.SignalInterval)
	log.Println("✓ Extension bridge initialized")

	return &agent{
		controller: controller,
		manager:    manager,
		submitter:  sub,
		bridge:     bridgeServer,
		router:     api.NewControlHandler(controller, manager).SetupRoutes(bridgeServer.HandleConnection),
	}, nil
}

// shutdown finalizes sessions still open and waits for their delivery
func (ag *agent) shutdown(now time.Time) {
	ag.manager.FlushAll(now)
	ag.submitter.Wait()
	ag.submitter.Close()
}

func (a *app) track(ctx context.Context, addr string) error {
	log.Println("Starting tabtrace agent...")

	ag, err := a.newAgent(ctx)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           ag.router,
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return ag.bridge.Run(gctx)
	})
	g.Go(func() error {
		log.Printf("🚀 Agent listening on %s", addr)
		log.Println("🔌 Extension bridge at /ws")
		return runHTTPServer(gctx, srv)
	})

	err = g.Wait()
	ag.shutdown(time.Now())
	return err
}
