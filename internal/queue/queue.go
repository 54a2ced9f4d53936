package queue

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"github.com/otienoanyango/hansard-tales-sub004/internal/util"
	"github.com/otienoanyango/hansard-tales-sub004/pkg/logger"
)

// AnalysisQueue carries document batches into the worker. The companion
// "_dlq" and "_retry" queues hold poisoned and deferred messages.
const AnalysisQueue = "analysis_queue"

const (
	retryTTLMs = 10000
	maxRetries = 10
)

// AnalysisMessage is the intake payload: which documents to process under
// which batch correlation id.
type AnalysisMessage struct {
	BatchID     string   `json:"batch_id"`
	DocumentIDs []string `json:"document_ids"`
}

func Init() *amqp091.Connection {
	user := util.GetEnv("RABBITMQ_USER")
	pass := util.GetEnv("RABBITMQ_PASSWORD")
	host := util.GetEnv("RABBITMQ_HOST")
	port := util.GetEnv("RABBITMQ_PORT")

	connURL := fmt.Sprintf(
		"amqp://%s:%s@%s:%s/",
		user,
		pass,
		host,
		port,
	)

	conn, err := amqp091.Dial(connURL)
	if err != nil {
		logger.Fatal("Failed to connect to RabbitMQ", "err", err)
	}

	return conn
}

// SetupQueues declares the analysis queue with its retry queue (TTL
// dead-lettering back to the work queue) and its DLQ.
func SetupQueues(ch *amqp091.Channel) error {
	_, err := ch.QueueDeclare(
		AnalysisQueue,
		true,  // durable
		false, // autoDelete
		false, // exclusive
		false, // noWait
		nil,   // args
	)
	if err != nil {
		return fmt.Errorf("declare %s: %w", AnalysisQueue, err)
	}

	dlqName := AnalysisQueue + "_dlq"
	_, err = ch.QueueDeclare(
		dlqName,
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("declare %s: %w", dlqName, err)
	}

	retryName := AnalysisQueue + "_retry"
	_, err = ch.QueueDeclare(
		retryName,
		true,
		false,
		false,
		false,
		amqp091.Table{
			"x-message-ttl":             int32(retryTTLMs),
			"x-dead-letter-exchange":    "",
			"x-dead-letter-routing-key": AnalysisQueue,
		},
	)
	if err != nil {
		return fmt.Errorf("declare %s: %w", retryName, err)
	}

	return nil
}

// PublishAnalysis enqueues a batch for the worker.
func PublishAnalysis(ch *amqp091.Channel, msg AnalysisMessage) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal analysis message: %w", err)
	}

	publishing := amqp091.Publishing{
		ContentType:  "application/json",
		Body:         body,
		DeliveryMode: amqp091.Persistent,
		Timestamp:    time.Now(),
	}

	if err := ch.Publish("", AnalysisQueue, false, false, publishing); err != nil {
		return fmt.Errorf("publish to %s: %w", AnalysisQueue, err)
	}
	return nil
}

// HandleProcessingError routes a failed delivery: to the retry queue while
// attempts remain, to the DLQ once they are spent.
func HandleProcessingError(ch *amqp091.Channel, msg amqp091.Delivery) {
	retries := 0
	if val, ok := msg.Headers["x-retries"]; ok {
		if v, ok := val.(int32); ok {
			retries = int(v)
		}
	}

	if retries >= maxRetries {
		dlqName := AnalysisQueue + "_dlq"
		logger.Info("Sending message to DLQ", "dlq", dlqName)
		pubErr := ch.Publish(
			"",
			dlqName,
			false,
			false,
			amqp091.Publishing{
				ContentType: msg.ContentType,
				Body:        msg.Body,
				Headers:     msg.Headers,
			},
		)
		if pubErr != nil {
			logger.Error("Failed to publish to DLQ", "dlq", dlqName, "err", pubErr)
			msg.Nack(false, true)
			return
		}
		msg.Ack(false)
		return
	}

	retryName := AnalysisQueue + "_retry"
	headers := msg.Headers
	if headers == nil {
		headers = amqp091.Table{}
	}
	headers["x-retries"] = int32(retries + 1)

	pubErr := ch.Publish(
		"",
		retryName,
		false,
		false,
		amqp091.Publishing{
			ContentType: msg.ContentType,
			Body:        msg.Body,
			Headers:     headers,
		},
	)
	if pubErr != nil {
		logger.Error("Failed to publish to retry queue", "retry_queue", retryName, "err", pubErr)
		msg.Nack(false, true)
		return
	}
	msg.Ack(false)
}
