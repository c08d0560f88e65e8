// Package txn runs multi-document writes in a MongoDB transaction when the
// deployment supports it and falls back to sequential writes when it does not
// (standalone servers used in development and tests).
package txn

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"

	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// warnedFallback makes the standalone fallback log once per process.
var warnedFallback atomic.Bool

// Run executes fn inside a transaction on client. The context passed to fn
// carries the session; every write inside fn must use it.
//
// If the server rejects transactions, fn is re-run without one. The writes
// are then sequential and not atomic, matching what a standalone server can
// offer.
func Run(ctx context.Context, client *mongo.Client, log *zap.Logger, fn func(ctx context.Context) error) error {
	if client == nil {
		return fn(ctx)
	}

	sess, err := client.StartSession()
	if err != nil {
		if IsNotSupported(err) {
			return runWithoutTxn(ctx, log, err, fn)
		}
		return err
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	if err != nil && IsNotSupported(err) {
		return runWithoutTxn(ctx, log, err, fn)
	}
	return err
}

func runWithoutTxn(ctx context.Context, log *zap.Logger, cause error, fn func(ctx context.Context) error) error {
	if log != nil && warnedFallback.CompareAndSwap(false, true) {
		log.Warn("transactions unsupported; running multi-document writes sequentially",
			zap.Error(cause))
	}
	return fn(ctx)
}

// IsNotSupported reports whether err indicates that the server cannot run
// transactions or sessions (standalone mongod, some managed offerings).
func IsNotSupported(err error) bool {
	if err == nil {
		return false
	}

	var ce mongo.CommandError
	if errors.As(err, &ce) {
		switch ce.Code {
		case 20, // IllegalOperation: transaction numbers only allowed on replica set
			51,  // legacy illegal operation
			263: // OperationNotSupportedInTransaction
			return true
		}
	}

	msg := strings.ToLower(err.Error())
	hasTxn := strings.Contains(msg, "transaction")
	if hasTxn && (strings.Contains(msg, "replica set") ||
		strings.Contains(msg, "session") ||
		strings.Contains(msg, "illegal operation")) {
		return true
	}
	if strings.Contains(msg, "session") && strings.Contains(msg, "not supported") {
		return true
	}
	return false
}
