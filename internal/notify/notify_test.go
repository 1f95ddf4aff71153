package notify

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	awsclient "cpq-console/internal/common/aws"
	apperrors "cpq-console/internal/common/errors"
	"cpq-console/internal/common/logger"
	"cpq-console/internal/models"
	"cpq-console/internal/wizard"
)

// ==========================
// Mocks
// ==========================

type mockSNS struct{ mock.Mock }

func (m *mockSNS) Publish(ctx context.Context, in *sns.PublishInput, _ ...func(*sns.Options)) (*sns.PublishOutput, error) {
	args := m.Called(ctx, in)
	if out, ok := args.Get(0).(*sns.PublishOutput); ok {
		return out, args.Error(1)
	}
	return nil, args.Error(1)
}

type mockSES struct{ mock.Mock }

func (m *mockSES) SendEmail(ctx context.Context, in *ses.SendEmailInput, _ ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
	args := m.Called(ctx, in)
	if out, ok := args.Get(0).(*ses.SendEmailOutput); ok {
		return out, args.Error(1)
	}
	return nil, args.Error(1)
}

var fixedNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

func newNotifier(t *testing.T, topic *mockSNS, mail *mockSES) *Notifier {
	opts := Options{
		TopicARN:   "arn:aws:sns:us-east-1:000000000000:cpq-events",
		From:       "cpq@example.com",
		Recipients: []string{"sales-ops@example.com"},
		Clock:      func() time.Time { return fixedNow },
	}
	if topic != nil {
		opts.Topic = awsclient.NewSNSClientWith(topic)
	}
	if mail != nil {
		opts.Mailer = awsclient.NewSESClientWith(mail)
	}
	return New(opts, logger.NewTestLogger(t))
}

// ==========================
// Publish
// ==========================

func TestNotifier_Publish(t *testing.T) {
	topic, mail := &mockSNS{}, &mockSES{}

	topic.On("Publish", mock.Anything, mock.MatchedBy(func(in *sns.PublishInput) bool {
		var ev Event
		if err := json.Unmarshal([]byte(aws.ToString(in.Message)), &ev); err != nil {
			return false
		}
		return aws.ToString(in.TopicArn) == "arn:aws:sns:us-east-1:000000000000:cpq-events" &&
			aws.ToString(in.MessageAttributes["eventType"].StringValue) == EventSubmission &&
			ev.OpportunityID == "opp-1" && ev.Level == wizard.LevelSuccess && ev.At.Equal(fixedNow)
	})).Return(&sns.PublishOutput{MessageId: aws.String("m-1")}, nil).Once()

	mail.On("SendEmail", mock.Anything, mock.MatchedBy(func(in *ses.SendEmailInput) bool {
		return aws.ToString(in.Source) == "cpq@example.com" &&
			aws.ToString(in.Message.Body.Text.Data) == "Opportunity created successfully"
	})).Return(&ses.SendEmailOutput{MessageId: aws.String("e-1")}, nil).Once()

	n := newNotifier(t, topic, mail)
	err := n.Publish(context.Background(), wizard.Notification{
		Level:         wizard.LevelSuccess,
		Message:       "Opportunity created successfully",
		OpportunityID: "opp-1",
	})
	require.NoError(t, err)
	topic.AssertExpectations(t)
	mail.AssertExpectations(t)
}

func TestNotifier_Publish_TopicFailure(t *testing.T) {
	topic, mail := &mockSNS{}, &mockSES{}
	topic.On("Publish", mock.Anything, mock.Anything).Return(nil, errors.New("throttled"))

	n := newNotifier(t, topic, mail)
	err := n.Publish(context.Background(), wizard.Notification{Level: wizard.LevelError, Message: "Failed to create opportunity"})

	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeNotificationSendFailed))
	mail.AssertNotCalled(t, "SendEmail", mock.Anything, mock.Anything)
}

func TestNotifier_NoChannels(t *testing.T) {
	n := newNotifier(t, nil, nil)
	assert.NoError(t, n.Publish(context.Background(), wizard.Notification{Level: wizard.LevelSuccess}))
	n.StatusChanged(context.Background(), "catalog", "c-1", "Retail", models.StatusDraft, models.StatusPublished)
}

// ==========================
// StatusChanged
// ==========================

func TestNotifier_StatusChanged(t *testing.T) {
	topic := &mockSNS{}
	topic.On("Publish", mock.Anything, mock.MatchedBy(func(in *sns.PublishInput) bool {
		var ev Event
		_ = json.Unmarshal([]byte(aws.ToString(in.Message)), &ev)
		return aws.ToString(in.Subject) == "Catalog published" &&
			ev.Type == EventStatusChanged && ev.From == "draft" && ev.To == "published" &&
			ev.Message == `catalog "Retail" moved from draft to published`
	})).Return(&sns.PublishOutput{MessageId: aws.String("m-2")}, nil).Once()

	n := newNotifier(t, topic, nil)
	n.StatusChanged(context.Background(), "catalog", "c-1", "Retail", models.StatusDraft, models.StatusPublished)
	topic.AssertExpectations(t)
}

func TestNotifier_StatusChanged_FailureIsSwallowed(t *testing.T) {
	topic := &mockSNS{}
	topic.On("Publish", mock.Anything, mock.Anything).Return(nil, errors.New("down")).Once()

	n := newNotifier(t, topic, nil)
	assert.NotPanics(t, func() {
		n.StatusChanged(context.Background(), "category", "k-1", "Phones", models.StatusPublished, models.StatusRetired)
	})
	topic.AssertExpectations(t)
}
