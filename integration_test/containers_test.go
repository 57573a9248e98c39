//go:build integration

package integration_test

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"
	natsgo "github.com/nats-io/nats.go"
	"github.com/testcontainers/testcontainers-go"
	tcnats "github.com/testcontainers/testcontainers-go/modules/nats"
	pgtc "github.com/testcontainers/testcontainers-go/modules/postgres"
	netlib "github.com/testcontainers/testcontainers-go/network"
	"github.com/testcontainers/testcontainers-go/wait"
)

var serviceTables = []string{
	"metric_samples",
	"agent_leads_reports",
	"activity_logs",
	"newsletter_campaign_reports",
	"schedule_configs",
}

// startPostgres starts a PostgreSQL container and returns it along with its connection string.
func startPostgres(ctx context.Context, networkName string, network *testcontainers.DockerNetwork) (testcontainers.Container, string, error) {
	pgContainer, err := pgtc.Run(ctx,
		"postgres:17-bookworm",
		pgtc.WithDatabase("outreach_metrics"),
		pgtc.WithUsername("postgres"),
		pgtc.WithPassword("postgres"),
		netlib.WithNetwork([]string{"pg", networkName}, network),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	if err != nil {
		return nil, "", fmt.Errorf("failed to start PostgreSQL container: %w", err)
	}

	dsn, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		return pgContainer, "", fmt.Errorf("failed to get PostgreSQL connection string: %w", err)
	}
	return pgContainer, dsn, nil
}

// startNATSContainer starts a NATS container with JetStream enabled.
func startNATSContainer(ctx context.Context, networkName string, nwr *testcontainers.DockerNetwork) (testcontainers.Container, string, error) {
	natsContainer, err := tcnats.Run(ctx,
		"nats:2.11-alpine",
		tcnats.WithArgument("name", "test-nats-server"),
		tcnats.WithArgument("store_dir", "/data"),
		netlib.WithNetwork([]string{"nats", networkName}, nwr),
	)
	if err != nil {
		return nil, "", fmt.Errorf("failed to start NATS container: %w", err)
	}

	natsURL, err := natsContainer.ConnectionString(ctx)
	if err != nil {
		return natsContainer, "", fmt.Errorf("failed to get NATS connection string: %w", err)
	}
	return natsContainer, natsURL, nil
}

func truncatePostgresTables(ctx context.Context, dsn string) error {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}
	defer db.Close()

	quoted := make([]string, 0, len(serviceTables))
	for _, t := range serviceTables {
		quoted = append(quoted, pq.QuoteIdentifier(t))
	}

	ctxExec, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	_, err = db.ExecContext(ctxExec, fmt.Sprintf("TRUNCATE TABLE %s RESTART IDENTITY CASCADE", strings.Join(quoted, ", ")))
	if err != nil {
		return fmt.Errorf("failed to truncate tables: %w", err)
	}
	return nil
}

// publishJetStream publishes payload to subject and waits for the stream ack.
func publishJetStream(natsURL, subject string, payload []byte) error {
	nc, err := natsgo.Connect(natsURL, natsgo.Name("integration-test-publisher"))
	if err != nil {
		return fmt.Errorf("failed to connect to NATS: %w", err)
	}
	defer nc.Close()

	js, err := nc.JetStream()
	if err != nil {
		return fmt.Errorf("failed to access JetStream: %w", err)
	}
	if _, err := js.Publish(subject, payload); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", subject, err)
	}
	return nil
}
