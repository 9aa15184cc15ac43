package notify

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/groupeclinic/clinic-scheduling/internal/directory"
)

func newTestClient(topics ...string) *Client {
	return &Client{
		ID:     "test-" + topics[0],
		Topics: topics,
		Send:   make(chan []byte, 8),
	}
}

func receive(t *testing.T, c *Client) Event {
	t.Helper()
	select {
	case data := <-c.Send:
		var ev Event
		require.NoError(t, json.Unmarshal(data, &ev))
		return ev
	case <-time.After(time.Second):
		t.Fatal("no message received")
		return Event{}
	}
}

func TestBroadcastReachesTopicSubscribers(t *testing.T) {
	hub := NewHub()

	doctor := newTestClient(UserTopic(directory.RoleDoctor, 7))
	secretary := newTestClient(RoleTopic(directory.RoleSecretary))
	hub.Register(doctor)
	hub.Register(secretary)

	hub.Broadcast(UserTopic(directory.RoleDoctor, 7), Event{
		Type:    EventNewRendezvous,
		Message: "Nouveau rendez-vous planifié pour 2026-09-15",
	})

	ev := receive(t, doctor)
	assert.Equal(t, EventNewRendezvous, ev.Type)
	assert.Empty(t, secretary.Send)
}

func TestBroadcastToUnknownTopicIsNoop(t *testing.T) {
	hub := NewHub()
	hub.Broadcast("role:MEDECIN", Event{Type: EventReminder})
	assert.Equal(t, 0, hub.ClientCount())
}

func TestSubscribeAndUnsubscribe(t *testing.T) {
	hub := NewHub()
	client := newTestClient("role:SECRETAIRE")
	hub.Register(client)

	hub.ProcessMessage(client, ClientMessage{Action: "subscribe", Topics: []string{"user:MEDECIN:3"}})
	assert.Equal(t, 1, hub.TopicCount("user:MEDECIN:3"))

	hub.Broadcast("user:MEDECIN:3", Event{Type: EventConflictDetected, Message: "⚠️ Conflit de rendez-vous"})
	ev := receive(t, client)
	assert.Equal(t, EventConflictDetected, ev.Type)

	hub.ProcessMessage(client, ClientMessage{Action: "unsubscribe", Topics: []string{"user:MEDECIN:3"}})
	assert.Equal(t, 0, hub.TopicCount("user:MEDECIN:3"))
	assert.Equal(t, []string{"role:SECRETAIRE"}, client.Topics)

	hub.Broadcast("user:MEDECIN:3", Event{Type: EventConflictDetected})
	assert.Empty(t, client.Send)
}

func TestUnregisterClosesSendChannel(t *testing.T) {
	hub := NewHub()
	client := newTestClient("role:SECRETAIRE")
	hub.Register(client)
	require.Equal(t, 1, hub.ClientCount())

	hub.Unregister(client)
	assert.Equal(t, 0, hub.ClientCount())
	assert.Equal(t, 0, hub.TopicCount("role:SECRETAIRE"))

	_, open := <-client.Send
	assert.False(t, open)

	// Double unregister must not panic.
	hub.Unregister(client)
}

func TestBroadcastSkipsFullBuffers(t *testing.T) {
	hub := NewHub()
	client := &Client{ID: "slow", Topics: []string{"role:SECRETAIRE"}, Send: make(chan []byte, 1)}
	hub.Register(client)

	hub.Broadcast("role:SECRETAIRE", Event{Type: EventReminder})
	hub.Broadcast("role:SECRETAIRE", Event{Type: EventReminder}) // dropped, buffer full

	assert.Len(t, client.Send, 1)
}

type captureMailer struct {
	to, subject, body string
	calls             int
}

func (m *captureMailer) SendEmail(_ context.Context, to, subject, body string) error {
	m.calls++
	m.to, m.subject, m.body = to, subject, body
	return nil
}

func TestDispatcherRoutesPrivateAndBroadcast(t *testing.T) {
	hub := NewHub()
	mailer := &captureMailer{}
	d := NewHubDispatcher(hub, mailer)

	doctor := newTestClient(UserTopic(directory.RoleDoctor, 5))
	secretaries := newTestClient(RoleTopic(directory.RoleSecretary))
	hub.Register(doctor)
	hub.Register(secretaries)

	id := int64(5)
	d.Dispatch(context.Background(), Event{
		Type:          EventConfirmed,
		Message:       "Rendez-vous confirmé pour 2026-09-15",
		RecipientRole: directory.RoleDoctor,
		RecipientID:   &id,
	})
	ev := receive(t, doctor)
	assert.Equal(t, EventConfirmed, ev.Type)
	assert.Empty(t, secretaries.Send)
	assert.Zero(t, mailer.calls)

	// RecipientID nil routes to the role broadcast topic.
	d.Dispatch(context.Background(), Event{
		Type:          EventConflictDetected,
		Message:       "⚠️ Tentative de création échouée",
		RecipientRole: directory.RoleSecretary,
	})
	ev = receive(t, secretaries)
	assert.Equal(t, EventConflictDetected, ev.Type)
}

func TestDispatcherSendsEmailWhenRecipientSet(t *testing.T) {
	hub := NewHub()
	mailer := &captureMailer{}
	d := NewHubDispatcher(hub, mailer)

	id := int64(9)
	d.Dispatch(context.Background(), Event{
		Type:           EventReminder,
		Message:        "Rappel: RDV avec Dr. Alice Martin à 09:30",
		RecipientRole:  directory.RolePatient,
		RecipientID:    &id,
		RecipientEmail: "c.petit@example.com",
		EmailSubject:   "Rappel de rendez-vous",
	})

	assert.Equal(t, 1, mailer.calls)
	assert.Equal(t, "c.petit@example.com", mailer.to)
	assert.Equal(t, "Rappel de rendez-vous", mailer.subject)
}
