package ingestqueue_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"certrag/src/infrastructure/ingestqueue"
)

func TestPublishUpload(t *testing.T) {
	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	defer pubSub.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	messages, err := pubSub.Subscribe(ctx, ingestqueue.Topic)
	if err != nil {
		t.Fatalf("Subscribe returned error: %v", err)
	}

	publisher := ingestqueue.NewPublisher(pubSub)
	if err := publisher.PublishUpload("materials", "folder/file.pdf"); err != nil {
		t.Fatalf("PublishUpload returned error: %v", err)
	}

	select {
	case msg := <-messages:
		var notification ingestqueue.Notification
		if err := json.Unmarshal(msg.Payload, &notification); err != nil {
			t.Fatalf("failed to decode payload: %v", err)
		}
		msg.Ack()

		records := notification.UploadRecords()
		if len(records) != 1 {
			t.Fatalf("got %d upload records, want 1", len(records))
		}
		if records[0].Bucket != "materials" || records[0].ObjectKey != "folder/file.pdf" {
			t.Errorf("got record %+v, want bucket materials key folder/file.pdf", records[0])
		}
	case <-ctx.Done():
		t.Fatal("timed out waiting for the published notification")
	}
}

func TestNotification_RoundTripMatchesS3Shape(t *testing.T) {
	payload, err := json.Marshal(ingestqueue.NewNotification("materials", "notes/chapter1.docx"))
	if err != nil {
		t.Fatalf("failed to marshal notification: %v", err)
	}

	// The wire shape must stay compatible with MinIO bucket notifications.
	var raw struct {
		Records []struct {
			S3 struct {
				Bucket struct {
					Name string `json:"name"`
				} `json:"bucket"`
				Object struct {
					Key string `json:"key"`
				} `json:"object"`
			} `json:"s3"`
		} `json:"Records"`
	}
	if err := json.Unmarshal(payload, &raw); err != nil {
		t.Fatalf("failed to unmarshal payload: %v", err)
	}
	if len(raw.Records) != 1 {
		t.Fatalf("got %d records, want 1", len(raw.Records))
	}
	if raw.Records[0].S3.Bucket.Name != "materials" {
		t.Errorf("got bucket %q, want %q", raw.Records[0].S3.Bucket.Name, "materials")
	}
	if raw.Records[0].S3.Object.Key != "notes/chapter1.docx" {
		t.Errorf("got key %q, want %q", raw.Records[0].S3.Object.Key, "notes/chapter1.docx")
	}
}

func TestNotification_UploadRecordsEmpty(t *testing.T) {
	var notification ingestqueue.Notification
	if got := notification.UploadRecords(); len(got) != 0 {
		t.Errorf("got %d records from empty notification, want 0", len(got))
	}
}
