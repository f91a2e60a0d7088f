//go:build integration

package messaging_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"exposure-server/internal/messaging"
	"exposure-server/shared/models"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/rabbitmq"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
)

const testQueue = "test_session_events"

type PublisherIntegrationTestSuite struct {
	suite.Suite
	container *rabbitmq.RabbitMQContainer
	conn      *amqp.Connection
}

func (s *PublisherIntegrationTestSuite) SetupSuite() {
	ctx := context.Background()
	container, err := rabbitmq.Run(ctx,
		"rabbitmq:3-management-alpine",
		testcontainers.WithWaitStrategy(
			wait.ForLog("Server startup complete"),
		),
	)
	require.NoError(s.T(), err)
	s.container = container

	url, err := container.AmqpURL(ctx)
	require.NoError(s.T(), err)
	s.conn, err = messaging.Connect(url, 5, time.Second, zap.NewNop())
	require.NoError(s.T(), err)
}

func (s *PublisherIntegrationTestSuite) TearDownSuite() {
	if s.conn != nil {
		s.conn.Close()
	}
	if s.container != nil {
		require.NoError(s.T(), s.container.Terminate(context.Background()))
	}
}

func (s *PublisherIntegrationTestSuite) TestExitRecordReachesQueue() {
	publisher, err := messaging.NewRabbitMQSessionEventPublisher(s.conn, testQueue, zap.NewNop())
	s.Require().NoError(err)
	defer publisher.Close()

	distress := models.DistressRating(40)
	s.Require().NoError(publisher.PublishSessionExit(context.Background(), models.SessionExitRecord{
		Type:          models.MessageSessionExit,
		PatientID:     "integration-patient",
		ExitTime:      time.Now().UTC(),
		CurrentStage:  2,
		FinalDistress: &distress,
	}))

	ch, err := s.conn.Channel()
	s.Require().NoError(err)
	defer ch.Close()
	deliveries, err := ch.Consume(testQueue, "", true, false, false, false, nil)
	s.Require().NoError(err)

	select {
	case d := <-deliveries:
		var record models.SessionExitRecord
		s.Require().NoError(json.Unmarshal(d.Body, &record))
		s.Equal("integration-patient", record.PatientID)
		s.Equal(2, record.CurrentStage)
		s.Equal("session_exit", d.Type)
	case <-time.After(10 * time.Second):
		s.T().Fatal("timeout waiting for session exit message")
	}
}

func TestPublisherIntegration(t *testing.T) {
	suite.Run(t, new(PublisherIntegrationTestSuite))
}
