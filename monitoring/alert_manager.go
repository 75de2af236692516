// Package monitoring notifies doctors about cases: malignant alerts on a
// pub/sub topic and a live case feed for the dashboard.
package monitoring

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	snstypes "github.com/aws/aws-sdk-go-v2/service/sns/types"
	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
	"gocloud.dev/pubsub"
	_ "gocloud.dev/pubsub/awssnssqs"
	_ "gocloud.dev/pubsub/mempubsub"
)

const (
	MetadataSubject = "subject"
	MetadataCaseID  = "case_id"
)

// Alerter publishes malignant-case alerts to a topic, an SNS topic in
// production.
type Alerter struct {
	topic  *pubsub.Topic
	logger *zap.Logger
}

func OpenAlerter(ctx context.Context, url string, logger *zap.Logger) (*Alerter, error) {
	topic, err := pubsub.OpenTopic(ctx, url)
	if err != nil {
		return nil, errors.Wrapf(err, "open alert topic %s", url)
	}
	return NewAlerter(topic, logger), nil
}

func NewAlerter(topic *pubsub.Topic, logger *zap.Logger) *Alerter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Alerter{topic: topic, logger: logger}
}

func MalignantAlertSubject(caseID string) string {
	return fmt.Sprintf("Alert: Malignant Case %s", caseID)
}

func MalignantAlertBody(caseID string) string {
	return fmt.Sprintf("URGENT: Malignant Case Detected\n\n"+
		"Case ID: %s\n"+
		"Prediction: Malignant (M)\n"+
		"Status: Pending Doctor Review\n\n"+
		"Please log in to the dashboard to review this case immediately.", caseID)
}

// MalignantAlert sends exactly one alert naming caseID.
func (a *Alerter) MalignantAlert(ctx context.Context, caseID string) error {
	subject := MalignantAlertSubject(caseID)
	msg := &pubsub.Message{
		Body: []byte(MalignantAlertBody(caseID)),
		Metadata: map[string]string{
			MetadataSubject: subject,
			MetadataCaseID:  caseID,
		},
		// SNS shows Subject as the e-mail subject; other drivers ignore it.
		BeforeSend: func(asFunc func(interface{}) bool) error {
			var input *sns.PublishInput
			if asFunc(&input) {
				input.Subject = aws.String(subject)
			}
			var entry *snstypes.PublishBatchRequestEntry
			if asFunc(&entry) {
				entry.Subject = aws.String(subject)
			}
			return nil
		},
	}
	if err := a.topic.Send(ctx, msg); err != nil {
		return errors.Wrapf(err, "publish alert for case %s", caseID)
	}
	a.logger.Info("malignant alert published", zap.String("case_id", caseID))
	return nil
}

func (a *Alerter) Close(ctx context.Context) error {
	return a.topic.Shutdown(ctx)
}
