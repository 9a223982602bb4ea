package mongostore

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"

	"github.com/osvaldoandrade/provision/internal/domain"
)

var ErrURIRequired = errors.New("mongo uri is required")

// Server error codes that mean the requested structure is already there.
var alreadyExistsCodes = []int{
	48, // NamespaceExists
	68, // IndexAlreadyExists
}

// codeAlreadyInitialized means "already exists" for enableSharding only.
// shardCollection returns it for a collection sharded on another key too.
const codeAlreadyInitialized = 23

// Server error codes worth retrying: elections, step downs, shutdowns and
// network level failures.
var transientCodes = []int{
	6,     // HostUnreachable
	7,     // HostNotFound
	46,    // LockBusy
	50,    // MaxTimeMSExpired
	89,    // NetworkTimeout
	91,    // ShutdownInProgress
	117,   // ConflictingOperationInProgress
	189,   // PrimarySteppedDown
	262,   // ExceededTimeLimit
	9001,  // SocketException
	10107, // NotWritablePrimary
	11600, // InterruptedAtShutdown
	11602, // InterruptedDueToReplStateChange
	13435, // NotPrimaryNoSecondaryOk
	13436, // NotPrimaryOrSecondary
}

var transientLabels = []string{
	"RetryableWriteError",
	"TransientTransactionError",
}

func isAlreadyExists(op string, err error) bool {
	var serverErr mongo.ServerError
	if !errors.As(err, &serverErr) {
		return false
	}
	if op == "enableSharding" && serverErr.HasErrorCode(codeAlreadyInitialized) {
		return true
	}
	for _, code := range alreadyExistsCodes {
		if serverErr.HasErrorCode(code) {
			return true
		}
	}
	return false
}

func isTransient(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || mongo.IsTimeout(err) || mongo.IsNetworkError(err) {
		return true
	}
	var serverErr mongo.ServerError
	if !errors.As(err, &serverErr) {
		return false
	}
	for _, label := range transientLabels {
		if serverErr.HasErrorLabel(label) {
			return true
		}
	}
	for _, code := range transientCodes {
		if serverErr.HasErrorCode(code) {
			return true
		}
	}
	return false
}

// wrapErr turns a driver error into a domain.DriverError. Existing
// structures are reported through domain.ErrAlreadyExists.
func wrapErr(op, target string, err error) error {
	if err == nil {
		return nil
	}
	if isAlreadyExists(op, err) {
		return &domain.DriverError{Op: op, Target: target, Err: fmt.Errorf("%w: %w", domain.ErrAlreadyExists, err)}
	}
	return &domain.DriverError{Op: op, Target: target, Transient: isTransient(err), Err: err}
}
