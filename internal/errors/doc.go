// Package errors provides typed error values for the Magpie application.
//
// Using sentinel errors allows callers to handle specific error conditions
// programmatically with errors.Is() rather than string matching. This makes
// error handling more robust and refactoring-safe.
//
// # Error Categories
//
// Errors are grouped by category:
//
//   - Vault errors: vault file and content issues (ErrVaultCorrupt, ErrSecretExists)
//   - Encryption errors: external encryption tool failures (ErrSopsNotFound)
//   - Registry errors: service catalog lookups (ErrServiceNotFound)
//   - Harvest errors: harvest session step failures (ErrToolNotInstalled)
//
// # Usage
//
// Return errors from internal packages:
//
//	if svc == nil {
//	    return nil, errors.ErrServiceNotFound
//	}
//
// Handle errors in the CLI layer:
//
//	session, err := h.Harvest(ctx, serviceID)
//	if errors.Is(err, merrors.ErrNoCLISupport) {
//	    // Show user-friendly message
//	}
//
// Wrap errors with additional context:
//
//	return fmt.Errorf("harvesting %s: %w", serviceID, errors.ErrToolNotInstalled)
package errors
