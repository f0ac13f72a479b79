package postgres

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/hray3182/ledgerline/internal/database"
)

const (
	changeChannel     = "finance_changes"
	reconnectInterval = 5 * time.Second
)

// ChangeFeed delivers the table names reported by the finance_changes
// triggers, so writes made by other processes reach in-process subscribers.
type ChangeFeed struct {
	db *database.DB
}

func NewChangeFeed(db *database.DB) *ChangeFeed {
	return &ChangeFeed{db: db}
}

// Listen blocks until ctx is cancelled, reconnecting after connection loss.
func (f *ChangeFeed) Listen(ctx context.Context, onChange func(table string)) error {
	for {
		err := f.listenOnce(ctx, onChange)
		if ctx.Err() != nil {
			return nil
		}
		log.Printf("Change feed interrupted: %v", err)

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(reconnectInterval):
			log.Println("Reconnecting change feed...")
		}
	}
}

func (f *ChangeFeed) listenOnce(ctx context.Context, onChange func(table string)) error {
	conn, err := f.db.Pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("failed to acquire connection: %w", err)
	}
	defer func() {
		// the connection returns to the pool, so it must stop listening
		_, _ = conn.Exec(context.Background(), "UNLISTEN *")
		conn.Release()
	}()

	if _, err := conn.Exec(ctx, "LISTEN "+changeChannel); err != nil {
		return fmt.Errorf("failed to listen on %s: %w", changeChannel, err)
	}
	log.Printf("Listening on channel: %s", changeChannel)

	for {
		n, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			return err
		}
		onChange(n.Payload)
	}
}
