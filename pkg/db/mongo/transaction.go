package mongo

import (
	"context"
	"fmt"

	apperrors "caravan/pkg/errors"

	"go.mongodb.org/mongo-driver/mongo"
)

// TransactionFunc receives a context bound to the transaction's session.
// Every store call made with it joins the transaction.
type TransactionFunc func(ctx context.Context) error

type TransactionManager interface {
	ExecuteTransaction(ctx context.Context, fn TransactionFunc) error
}

type mongoTransactionManager struct {
	client  *mongo.Client
	enabled bool
}

// NewTransactionManager returns a manager running fn inside a multi-document
// transaction. Transactions need a replica set; with enabled=false fn runs
// directly against the plain context.
func NewTransactionManager(client *mongo.Client, enabled bool) TransactionManager {
	return &mongoTransactionManager{
		client:  client,
		enabled: enabled,
	}
}

func (m *mongoTransactionManager) ExecuteTransaction(ctx context.Context, fn TransactionFunc) error {
	if !m.enabled {
		return fn(ctx)
	}

	session, err := m.client.StartSession()
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sessCtx mongo.SessionContext) (any, error) {
		return nil, fn(sessCtx)
	})

	if err != nil {
		if apperrors.IsAppError(err) {
			return err
		}
		return fmt.Errorf("transaction failed: %w", err)
	}

	return nil
}
