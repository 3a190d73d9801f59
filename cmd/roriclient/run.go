package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/rori/roriclient/internal/agent"
	"github.com/rori/roriclient/internal/api"
	"github.com/rori/roriclient/internal/core"
	"github.com/rori/roriclient/internal/daemon"
	"github.com/rori/roriclient/internal/identity"
	"github.com/rori/roriclient/internal/logging"
	"github.com/rori/roriclient/internal/lookup"
	"github.com/rori/roriclient/internal/mdns"
	"github.com/rori/roriclient/internal/router"
	"github.com/rori/roriclient/internal/sayqueue"
	"github.com/rori/roriclient/internal/session"
	"github.com/rori/roriclient/internal/shared"
	"github.com/rori/roriclient/internal/sinks"
	"github.com/rori/roriclient/internal/speech"
)

func runClient(cmd *cobra.Command, args []string) error {
	log := logging.Component("main")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		if errors.Is(err, core.ErrNotConfigured) {
			return fmt.Errorf("%w (run `roriclient setup` first)", err)
		}
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Daemon
	client, err := daemon.Dial(cfg.Daemon)
	if err != nil {
		return err
	}
	defer client.Close()

	id, err := identity.NewManager(client).Bind(ctx, cfg.IdentityHandle)
	if err != nil {
		return err
	}

	if cfg.Alias != id.Alias {
		log.Warn("Configured username %q differs from account alias %q; using %q", cfg.Alias, id.Alias, id.Alias)
	}

	fields := shared.New()
	say := sayqueue.New()
	fields.DisplayText.Set("Connecting...")

	// Subscribe before the handshake so its confirmation cannot be missed.
	events, err := daemon.Subscribe(cfg.Daemon)
	if err != nil {
		return err
	}
	defer events.Close()

	machine := session.New(session.Options{
		Identity:       id,
		ServiceAddress: cfg.ServiceAddress,
		Resolver:       lookup.NewClient(cfg.ServiceURL, cfg.Lookup),
		Sender:         client,
		Fields:         fields,
		SayQueue:       say,
	})

	rt := router.New(router.Options{
		Identity:       id,
		ServiceAddress: cfg.ServiceAddress,
		Session:        machine,
		Sinks:          sinks.New(cfg.Sinks, sinks.NewExecRunner()),
		Sender:         client,
		Fields:         fields,
		SayQueue:       say,
	})

	ag := agent.New(agent.Config{
		Identity:  id,
		Events:    events,
		Router:    rt,
		EventWait: cfg.Daemon.EventWait.Duration,
	})

	if err := machine.Login(ctx); err != nil {
		if core.IsMisconfiguration(err) {
			log.Error("Fatal misconfiguration: %v", err)
		}
		return err
	}

	if err := ag.Start(ctx); err != nil {
		return err
	}
	defer ag.Stop()

	speaker := speech.New(cfg.Sinks, say, fields, nil)
	speechDone := make(chan struct{})
	go func() {
		defer close(speechDone)
		speaker.Run(ctx)
	}()

	// Remote control API
	server := api.New(api.Config{
		Addr:     cfg.API.Addr(),
		Fields:   fields,
		Session:  machine,
		Agent:    ag,
		Identity: id,
	})
	ln, err := net.Listen("tcp", cfg.API.Addr())
	if err != nil {
		cancel()
		<-speechDone
		return fmt.Errorf("listen %s: %w", cfg.API.Addr(), err)
	}

	stopAdvertising, err := mdns.Advertise(cfg.MDNS, ln.Addr().(*net.TCPAddr).Port, id)
	if err != nil {
		log.Warn("mDNS disabled: %v", err)
		stopAdvertising = func() {}
	}
	defer stopAdvertising()

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.Serve(ln)
	}()

	select {
	case <-ctx.Done():
		log.Info("Shutting down...")
	case err = <-serveErr:
		cancel()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if stopErr := server.Stop(shutdownCtx); stopErr != nil {
		log.Warn("API shutdown: %v", stopErr)
	}
	<-speechDone
	return err
}
