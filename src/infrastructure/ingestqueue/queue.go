package ingestqueue

import (
	"encoding/json"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"

	"certrag/src/core/rag"
)

// Topic is the queue the ingestion worker consumes. MinIO bucket
// notifications publish to the same queue, so uploads made outside the
// API are picked up too.
const Topic = "ingest"

// Notification is the S3-style upload event batch: the shape MinIO and
// S3 emit for bucket notifications.
type Notification struct {
	Records []NotificationRecord `json:"Records"`
}

type NotificationRecord struct {
	S3 struct {
		Bucket struct {
			Name string `json:"name"`
		} `json:"bucket"`
		Object struct {
			Key string `json:"key"`
		} `json:"object"`
	} `json:"s3"`
}

// UploadRecords flattens the notification into pipeline upload records.
func (n Notification) UploadRecords() []rag.UploadRecord {
	records := make([]rag.UploadRecord, 0, len(n.Records))
	for _, r := range n.Records {
		records = append(records, rag.UploadRecord{
			Bucket:    r.S3.Bucket.Name,
			ObjectKey: r.S3.Object.Key,
		})
	}
	return records
}

// NewNotification builds a single-record notification for an object
// uploaded through the API.
func NewNotification(bucket, objectKey string) Notification {
	var record NotificationRecord
	record.S3.Bucket.Name = bucket
	record.S3.Object.Key = objectKey
	return Notification{Records: []NotificationRecord{record}}
}

// Publisher enqueues upload notifications for the ingestion worker.
type Publisher struct {
	publisher message.Publisher
}

func NewPublisher(publisher message.Publisher) *Publisher {
	return &Publisher{publisher: publisher}
}

func (p *Publisher) PublishUpload(bucket, objectKey string) error {
	payload, err := json.Marshal(NewNotification(bucket, objectKey))
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	if err := p.publisher.Publish(Topic, msg); err != nil {
		return fmt.Errorf("failed to publish notification: %w", err)
	}

	return nil
}
