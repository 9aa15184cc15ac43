package notify

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/groupeclinic/clinic-scheduling/internal/directory"
)

// UserTopic is the private push topic for one directory identity.
func UserTopic(role directory.Role, id int64) string {
	return fmt.Sprintf("user:%s:%d", role, id)
}

// RoleTopic is the broadcast topic for everyone holding a role.
func RoleTopic(role directory.Role) string {
	return fmt.Sprintf("role:%s", role)
}

// HubDispatcher fans events out to the websocket hub and, when an event
// carries a recipient email, to the email channel. Delivery failures are
// logged and swallowed: a failed notification must never roll back the
// appointment state that triggered it.
type HubDispatcher struct {
	hub    *Hub
	mailer EmailSender
}

func NewHubDispatcher(hub *Hub, mailer EmailSender) *HubDispatcher {
	if mailer == nil {
		mailer = LogSender{}
	}
	return &HubDispatcher{hub: hub, mailer: mailer}
}

func (d *HubDispatcher) Dispatch(ctx context.Context, ev Event) {
	topic := RoleTopic(ev.RecipientRole)
	if ev.RecipientID != nil {
		topic = UserTopic(ev.RecipientRole, *ev.RecipientID)
	}
	d.hub.Broadcast(topic, ev)

	if ev.RecipientEmail != "" {
		subject := ev.EmailSubject
		if subject == "" {
			subject = ev.Type
		}
		if err := d.mailer.SendEmail(ctx, ev.RecipientEmail, subject, ev.Message); err != nil {
			log.Error().Err(err).
				Str("event_type", ev.Type).
				Str("recipient", ev.RecipientEmail).
				Msg("email delivery failed")
		}
	}

	log.Debug().
		Str("event_type", ev.Type).
		Str("topic", topic).
		Msg("event dispatched")
}
