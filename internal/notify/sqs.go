// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"
)

// sqsClient is the subset of the SQS API the sink uses.
type sqsClient interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// SQSSink sends each event as one queue message.
type SQSSink struct {
	queueURL string
	client   sqsClient
}

// NewSQSSink loads the default AWS configuration for region.
func NewSQSSink(ctx context.Context, queueURL, region string) (*SQSSink, error) {
	var opts []func(*awscfg.LoadOptions) error
	if region != "" {
		opts = append(opts, awscfg.WithRegion(region))
	}
	cfg, err := awscfg.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return &SQSSink{queueURL: queueURL, client: sqs.NewFromConfig(cfg)}, nil
}

func (s *SQSSink) Type() string   { return TypeSQS }
func (s *SQSSink) Target() string { return s.queueURL }

func (s *SQSSink) Send(ctx context.Context, evt Event) error {
	payload, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	input := &sqs.SendMessageInput{
		QueueUrl:    aws.String(s.queueURL),
		MessageBody: aws.String(string(payload)),
		MessageAttributes: map[string]sqstypes.MessageAttributeValue{
			"identifier": {
				DataType:    aws.String("String"),
				StringValue: aws.String(evt.Outcome.Identifier),
			},
			"success": {
				DataType:    aws.String("String"),
				StringValue: aws.String(strconv.FormatBool(evt.Outcome.Success)),
			},
		},
	}
	if _, err := s.client.SendMessage(ctx, input); err != nil {
		return fmt.Errorf("send message to sqs: %w", err)
	}
	return nil
}
