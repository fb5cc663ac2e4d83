// Package twofa implements multi-method two-factor authentication.
//
// Three methods are supported, each behind a Provider:
//
//   - authenticator: RFC 6238 TOTP against a shared base32 secret
//   - mailbox: six digit codes emailed to the user
//   - bot_channel: six digit codes sent to a linked Telegram chat
//
// A SecurityRecord per (user, method) holds the secret or chat binding, the
// hashed backup codes and the lockout counter. After MaxFailedAttempts
// consecutive failures verification is withheld for LockoutDuration.
//
// The Manager is the entry point. It loads records from a RecordRepository,
// serializes work on one (user, method) and persists each transition:
//
//	store := codestore.NewInMemStore()
//	repo := twofa.NewInMemRecordRepository()
//	manager, err := twofa.NewManager(repo, []twofa.Provider{
//	    twofa.NewAuthenticatorProvider("simple-mfa"),
//	    twofa.NewMailboxProvider(store, notices),
//	}, twofa.WithRecordLease(store, twofa.DefaultLeaseTTL))
//
// Within a process the Manager serializes with a mutex per (user, method).
// WithRecordLease adds a lease in the shared code store so replicas behind
// one repository do not overwrite each other's failure counts.
//
//	result, err := manager.Setup(ctx, user, "authenticator")
//	ok, err := manager.Enable(ctx, user.ID, "authenticator", code)
//	ok, err = manager.VerifyUserCode(ctx, user.ID, code, "")
//
// Expected outcomes such as a wrong code, a locked record or a failed
// delivery are reported as false. Errors are reserved for unknown methods,
// missing setup and storage failures.
package twofa
