// Package setup creates the bootstrap configuration interactively.
package setup

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/rori/roriclient/internal/config"
	"github.com/rori/roriclient/internal/core"
	"github.com/rori/roriclient/internal/identity"
	"github.com/rori/roriclient/internal/logging"
	"github.com/rori/roriclient/internal/lookup"
)

// ServiceName is the well-known alias of the coordination service.
const ServiceName = "rori"

// Prompts
const (
	PromptServer   = "RORI needs a few things to begin...\nFirst, what is the address of the RORI you want to connect?"
	PromptRetry    = "Cannot connect to this RORI, choose another address?"
	PromptUsername = "Under what username?"
	PromptArchive  = "Path of the account archive to import?"
)

const (
	defaultAttempts   = 3
	defaultAliasTries = 3
)

// Prompter asks questions on a line-oriented terminal.
type Prompter struct {
	in  *bufio.Reader
	out io.Writer
}

// NewPrompter creates a prompter over in and out.
func NewPrompter(in io.Reader, out io.Writer) *Prompter {
	return &Prompter{in: bufio.NewReader(in), out: out}
}

// Ask prints question and returns the trimmed answer.
func (p *Prompter) Ask(question string) (string, error) {
	fmt.Fprintf(p.out, "%s\n> ", question)
	line, err := p.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", fmt.Errorf("read answer: %w", err)
	}
	return strings.TrimSpace(line), nil
}

// Say prints a line.
func (p *Prompter) Say(format string, args ...interface{}) {
	fmt.Fprintf(p.out, format+"\n", args...)
}

// Options configures a Flow.
type Options struct {
	Prompter   *Prompter
	Identities *identity.Manager
	// NewResolver builds a lookup client for a base URL.
	NewResolver func(baseURL string) lookup.Resolver
	// Attempts bounds how many server addresses are tried.
	Attempts int
	// Archive imports the account from an archive instead of creating it.
	Archive bool
	// ReadSecret reads the archive password without echo.
	ReadSecret func() (string, error)
}

// Flow runs the bootstrap questions.
type Flow struct {
	opts Options
	log  *logging.Logger
}

// New creates a setup flow.
func New(opts Options) *Flow {
	if opts.Attempts <= 0 {
		opts.Attempts = defaultAttempts
	}
	return &Flow{opts: opts, log: logging.Component("setup")}
}

// Run asks for the service and alias, finds or creates the daemon account,
// fills the bootstrap fields of cfg and saves it to path.
func (f *Flow) Run(ctx context.Context, cfg *config.Config, path string) error {
	p := f.opts.Prompter

	server, serviceAddress, err := f.askServer(ctx)
	if err != nil {
		return err
	}

	alias, err := f.askNonEmpty(PromptUsername)
	if err != nil {
		return err
	}

	var id core.Identity
	if f.opts.Archive {
		archive, err := f.askNonEmpty(PromptArchive)
		if err != nil {
			return err
		}
		secret := ""
		if f.opts.ReadSecret != nil {
			p.Say("Archive password:")
			if secret, err = f.opts.ReadSecret(); err != nil {
				return fmt.Errorf("read archive password: %w", err)
			}
		}
		id, err = f.opts.Identities.FindOrCreate(ctx, archive, secret, true)
		if err != nil {
			return err
		}
	} else {
		id, err = f.opts.Identities.FindOrCreate(ctx, alias, "", false)
		if err != nil {
			return err
		}
	}

	// An imported account keeps the alias it was exported with.
	if id.Alias != "" && id.Alias != alias {
		p.Say("Account alias is %q, using it instead of %q", id.Alias, alias)
		alias = id.Alias
	}

	cfg.IdentityHandle = id.ID
	cfg.ServiceURL = server
	cfg.ServiceAddress = serviceAddress
	cfg.Alias = alias

	if err := cfg.Save(path); err != nil {
		return fmt.Errorf("save config: %w", err)
	}
	f.log.Info("Saved configuration for %s to %s", alias, path)
	p.Say("Configuration saved to %s", path)
	return nil
}

// askServer asks for a server until its service alias resolves.
func (f *Flow) askServer(ctx context.Context) (string, string, error) {
	question := PromptServer
	for attempt := 0; attempt < f.opts.Attempts; attempt++ {
		server, err := f.opts.Prompter.Ask(question)
		if err != nil {
			return "", "", err
		}
		if server != "" {
			address := f.opts.NewResolver(server).ResolveName(ctx, ServiceName)
			if address != "" {
				return server, address, nil
			}
			f.log.Warn("%s did not resolve %q", server, ServiceName)
		}
		question = PromptRetry
	}
	return "", "", core.ErrServiceUnreachable
}

func (f *Flow) askNonEmpty(question string) (string, error) {
	for i := 0; i < defaultAliasTries; i++ {
		answer, err := f.opts.Prompter.Ask(question)
		if err != nil {
			return "", err
		}
		if answer != "" {
			return answer, nil
		}
	}
	return "", fmt.Errorf("no answer to %q", question)
}
