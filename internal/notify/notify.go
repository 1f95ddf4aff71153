// Package notify fans submission outcomes and status changes out to an SNS
// topic and, optionally, an SES e-mail list.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"cpq-console/internal/common/aws"
	"cpq-console/internal/common/config"
	"cpq-console/internal/common/errors"
	"cpq-console/internal/common/logger"
	"cpq-console/internal/models"
	"cpq-console/internal/wizard"
)

const (
	EventSubmission    = "opportunity.submission"
	EventStatusChanged = "status.changed"
)

// Event is the JSON message published to the topic.
type Event struct {
	Type          string    `json:"type"`
	Level         string    `json:"level,omitempty"`
	Message       string    `json:"message"`
	OpportunityID string    `json:"opportunityId,omitempty"`
	Entity        string    `json:"entity,omitempty"`
	EntityID      string    `json:"entityId,omitempty"`
	EntityName    string    `json:"entityName,omitempty"`
	From          string    `json:"from,omitempty"`
	To            string    `json:"to,omitempty"`
	At            time.Time `json:"at"`
}

// Notifier implements wizard.Notifier and lifecycle.Observer. A nil topic or
// mailer disables that channel.
type Notifier struct {
	topic      *aws.SNSClient
	topicARN   string
	mailer     *aws.SESClient
	from       string
	recipients []string
	clock      func() time.Time
	logger     logger.Logger
}

type Options struct {
	Topic      *aws.SNSClient
	TopicARN   string
	Mailer     *aws.SESClient
	From       string
	Recipients []string
	Clock      func() time.Time
}

func New(opts Options, log logger.Logger) *Notifier {
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &Notifier{
		topic:      opts.Topic,
		topicARN:   opts.TopicARN,
		mailer:     opts.Mailer,
		from:       opts.From,
		recipients: opts.Recipients,
		clock:      opts.Clock,
		logger:     logger.Component(log, "notify"),
	}
}

// FromConfig builds the channels enabled in cfg.
func FromConfig(ctx context.Context, cfg config.NotificationConfig, log logger.Logger) (*Notifier, error) {
	opts := Options{}
	if !cfg.Enabled() {
		return New(opts, log), nil
	}
	awsCfg, err := aws.LoadConfig(ctx, cfg.AWS.Region, cfg.AWS.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	if cfg.Topic.Enabled {
		opts.Topic = aws.NewSNSClient(awsCfg)
		opts.TopicARN = cfg.Topic.ARN
	}
	if cfg.Email.Enabled && len(cfg.Email.Recipients) > 0 {
		opts.Mailer = aws.NewSESClient(awsCfg)
		opts.From = cfg.Email.FromEmail
		opts.Recipients = cfg.Email.Recipients
	}
	return New(opts, log), nil
}

// Publish sends a submit outcome.
func (n *Notifier) Publish(ctx context.Context, note wizard.Notification) error {
	ev := Event{
		Type:          EventSubmission,
		Level:         note.Level,
		Message:       note.Message,
		OpportunityID: note.OpportunityID,
		At:            n.clock().UTC(),
	}
	subject := "Opportunity submission: " + note.Level
	return n.send(ctx, ev, subject)
}

// StatusChanged sends a lifecycle transition. Failures are logged only.
func (n *Notifier) StatusChanged(ctx context.Context, entity, id, name string, from, to models.Status) {
	ev := Event{
		Type:       EventStatusChanged,
		Message:    fmt.Sprintf("%s %q moved from %s to %s", entity, name, from, to),
		Entity:     entity,
		EntityID:   id,
		EntityName: name,
		From:       string(from),
		To:         string(to),
		At:         n.clock().UTC(),
	}
	subject := fmt.Sprintf("%s %s", capitalize(entity), to)
	if err := n.send(ctx, ev, subject); err != nil {
		n.logger.Warn("Status change notification failed", map[string]interface{}{"entity": entity, "id": id, "error": err.Error()})
	}
}

func (n *Notifier) send(ctx context.Context, ev Event, subject string) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return errors.NewNotificationSendFailedError("topic", err)
	}

	if n.topic != nil {
		id, err := n.topic.PublishEvent(ctx, n.topicARN, ev.Type, subject, string(body))
		if err != nil {
			return errors.NewNotificationSendFailedError("topic", err)
		}
		n.logger.Debug("Event published", map[string]interface{}{"type": ev.Type, "messageId": id})
	}

	if n.mailer != nil && len(n.recipients) > 0 {
		if _, err := n.mailer.SendText(ctx, n.from, n.recipients, subject, ev.Message); err != nil {
			return errors.NewNotificationSendFailedError("email", err)
		}
	}
	return nil
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
