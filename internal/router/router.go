// Package router classifies interactions and dispatches them.
//
// Inbound interactions come from the daemon event stream and are routed by
// datatype to the session, the say-queue or an external sink. Outbound text
// comes from the surface's pending-input field and is sent to the service as
// a command or as plain text.
package router

import (
	"context"
	"errors"
	"strings"

	"github.com/rori/roriclient/internal/core"
	"github.com/rori/roriclient/internal/daemon"
	"github.com/rori/roriclient/internal/logging"
	"github.com/rori/roriclient/internal/sayqueue"
	"github.com/rori/roriclient/internal/session"
	"github.com/rori/roriclient/internal/shared"
)

// commands are the first tokens that make user input a Command.
var commands = map[string]bool{
	"/register":   true,
	"/unregister": true,
	"/add_device": true,
	"/rm_device":  true,
	"/link":       true,
}

// Classify returns Command when the first whitespace-delimited token of text
// is an allowed command, PlainText otherwise, and DatatypeUnknown for blank
// input.
func Classify(text string) core.Datatype {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return core.DatatypeUnknown
	}
	if commands[fields[0]] {
		return core.Command
	}
	return core.PlainText
}

// Confirmer receives session confirmations.
type Confirmer interface {
	Confirm(ctx context.Context) bool
}

// Sinks runs external programs for inbound interactions.
type Sinks interface {
	Media(arg string) error
	Alarm(arg string) error
	Shell(cmdline string) error
}

// Options configures a Router.
type Options struct {
	Identity       core.Identity
	ServiceAddress string
	Session        Confirmer
	Sinks          Sinks
	Sender         session.Sender
	Fields         *shared.Fields
	SayQueue       *sayqueue.Queue
}

// Router dispatches interactions for the bound identity.
type Router struct {
	identity core.Identity
	service  string
	session  Confirmer
	sinks    Sinks
	sender   session.Sender
	fields   *shared.Fields
	say      *sayqueue.Queue
	log      *logging.Logger
}

// New creates a router.
func New(opts Options) *Router {
	return &Router{
		identity: opts.Identity,
		service:  opts.ServiceAddress,
		session:  opts.Session,
		sinks:    opts.Sinks,
		sender:   opts.Sender,
		fields:   opts.Fields,
		say:      opts.SayQueue,
		log:      logging.Component("router"),
	}
}

// Accepts reports whether an event may reach the dispatch table: it must be
// an interaction for the bound identity, authored by the service peer.
func (r *Router) Accepts(ev daemon.Event) bool {
	return ev.Kind == daemon.EventInteraction &&
		ev.AccountID == r.identity.ID &&
		ev.From == r.service
}

// Inbound decodes and dispatches one event. It reports whether the event
// was dispatched; filtered, empty, malformed and multi-key events are dropped.
func (r *Router) Inbound(ctx context.Context, ev daemon.Event) bool {
	if !r.Accepts(ev) {
		return false
	}

	interaction, err := core.DecodePayload(ev.From, ev.Payload)
	if err != nil {
		if errors.Is(err, core.ErrMultiplePayloadKeys) {
			r.log.Warn("dropping interaction %s: %v", ev.MessageID, err)
		}
		return false
	}
	if interaction.Body == "" {
		return false
	}

	r.log.WithFields(map[string]interface{}{
		"datatype":    interaction.Datatype,
		"interaction": interaction.ID,
	}).Debug("Received daemon message %s", ev.MessageID)
	r.dispatch(ctx, interaction)
	return true
}

func (r *Router) dispatch(ctx context.Context, in core.Interaction) {
	var err error
	switch in.Datatype {
	case core.SessionMessage:
		reply, ok := core.ParseSessionReply(in.Body).Get()
		switch {
		case ok && reply.Registered:
			r.session.Confirm(ctx)
		case ok && reply.HasRegistered:
			// A well-formed "not registered" reply carries nothing to show.
			r.log.Info("Service reports not registered")
		default:
			r.fields.DisplayText.Set(in.Body)
		}
	case core.PlainText:
		r.say.Append(in.Body)
	case core.MediaControl:
		err = r.sinks.Media(in.Body)
	case core.AlarmControl:
		err = r.sinks.Alarm(in.Body)
	case core.Command:
		err = r.sinks.Shell(in.Body)
	default:
		r.log.Debug("dropping %s interaction", in.Datatype)
	}
	if err != nil {
		r.log.Warn("%s sink: %v", in.Datatype, err)
	}
}

// Outbound takes the pending user input, if any, and sends it to the
// service. The field is cleared as it is read. It reports whether anything
// was sent.
func (r *Router) Outbound(ctx context.Context) bool {
	text := r.fields.PendingUserInput.Take()
	datatype := Classify(text)
	if datatype == core.DatatypeUnknown {
		return false
	}

	out := core.NewInteraction(r.identity.ID, datatype, text)
	log := r.log.WithFields(map[string]interface{}{
		"datatype":    out.Datatype,
		"interaction": out.ID,
	})

	id := r.sender.SendInteraction(ctx, out.SourceIdentity, r.service, out.Datatype, out.Body)
	if id == 0 {
		log.Warn("could not deliver %q", out.Body)
		return false
	}
	log.Debug("Sent as daemon interaction %d", id)
	return true
}
